/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package tier maps a composite credit score onto a lending tier and its parameters.
package tier

import (
	"errors"
	"fmt"

	"credshield-go/internal/models"

	"github.com/shopspring/decimal"
)

const (
	MinScore = 300
	MaxScore = 900
)

// ErrInvalidScoreRange is returned for scores outside [MinScore, MaxScore].
var ErrInvalidScoreRange = errors.New("score must be 300-900")

type band struct {
	floor              int
	tier               models.Tier
	collateralRatioBps int64
	creditLimitUnits   int64
	interestRateBps    int64
}

// Ordered from the highest floor down; the first band whose floor is <= score wins.
var bands = []band{
	{800, models.TierPlatinum, 5000, 5000, 200},
	{700, models.TierGold, 7500, 2000, 400},
	{550, models.TierSilver, 10000, 1000, 600},
	{300, models.TierBronze, 12500, 500, 800},
}

// Classify returns the tier for a score in [300, 900].
func Classify(score int) (models.Tier, error) {
	if score < MinScore || score > MaxScore {
		return models.TierBronze, fmt.Errorf("%w: got %d", ErrInvalidScoreRange, score)
	}
	for _, b := range bands {
		if score >= b.floor {
			return b.tier, nil
		}
	}
	return models.TierBronze, nil
}

// ParamsFor returns the lending parameters of a tier. The credit limit is in wei.
func ParamsFor(t models.Tier) models.TierParams {
	for _, b := range bands {
		if b.tier == t {
			return models.TierParams{
				CollateralRatioBps: b.collateralRatioBps,
				CreditLimit:        models.ToWei(decimal.NewFromInt(b.creditLimitUnits)),
				InterestRateBps:    b.interestRateBps,
			}
		}
	}
	return Default()
}

// Default returns the Bronze parameters applied to borrowers without a profile.
func Default() models.TierParams {
	b := bands[len(bands)-1]
	return models.TierParams{
		CollateralRatioBps: b.collateralRatioBps,
		CreditLimit:        models.ToWei(decimal.NewFromInt(b.creditLimitUnits)),
		InterestRateBps:    b.interestRateBps,
	}
}

// Clamp bounds a score to [MinScore, MaxScore].
func Clamp(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}
