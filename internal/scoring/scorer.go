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

// Package scoring computes the six-dimension credit score of a wallet snapshot.
//
// All score arithmetic is on integers: every "min(cap, floor(x/den * cap))" is
// evaluated as min(cap, floor(num*cap/den)) so results are identical on every platform.
package scoring

import (
	"strings"

	"credshield-go/internal/models"
	"credshield-go/internal/reference"
	"credshield-go/internal/tier"
)

// Dimension maxima sum to RawMax.
const (
	MaturityMax   = 180
	DeFiMax       = 225
	QualityMax    = 180
	AssetMax      = 135
	RepaymentMax  = 135
	SocialMax     = 45
	RawMax        = 900
	compositeSpan = tier.MaxScore - tier.MinScore
)

// Scorer evaluates snapshots against a set of reference tables. It holds no mutable state.
type Scorer struct {
	protocols    reference.Classifier
	tokens       reference.TokenClassifier
	nativeSymbol string
}

func New(reg *reference.Registry) *Scorer {
	return NewWithClassifiers(reg, reg, reg.NativeSymbol())
}

func NewWithClassifiers(protocols reference.Classifier, tokens reference.TokenClassifier, nativeSymbol string) *Scorer {
	return &Scorer{protocols: protocols, tokens: tokens, nativeSymbol: nativeSymbol}
}

// Dimensions runs the six scorers in their fixed order.
func (s *Scorer) Dimensions(snap models.ActivitySnapshot) []models.DimensionScore {
	return []models.DimensionScore{
		s.WalletMaturity(snap),
		s.DeFiExperience(snap),
		s.TransactionQuality(snap),
		s.AssetHealth(snap),
		s.RepaymentHistory(snap),
		s.SocialVerification(snap),
	}
}

// ComputeScore combines the dimensions into a 300-900 composite score and tier.
func (s *Scorer) ComputeScore(snap models.ActivitySnapshot) models.ScoreResult {
	dims := s.Dimensions(snap)
	raw := 0
	for _, d := range dims {
		raw += d.Score
	}
	score := Composite(raw)
	t, _ := tier.Classify(score)
	return models.ScoreResult{
		Address:    snap.Address,
		Score:      score,
		Tier:       t,
		RawTotal:   raw,
		Dimensions: dims,
	}
}

// Composite maps a raw total in [0, 900] onto [300, 900].
func Composite(raw int) int {
	if raw < 0 {
		raw = 0
	}
	return tier.Clamp(tier.MinScore + raw*compositeSpan/RawMax)
}

// capped returns min(limit, floor(num*limit/den)); non-positive inputs give 0.
func capped(num, den int64, limit int) int {
	if num <= 0 || den <= 0 {
		return 0
	}
	v := num * int64(limit) / den
	if v > int64(limit) {
		return limit
	}
	return int(v)
}

// percent returns floor(num*100/den), or 0 when den is 0.
func percent(num, den int64) int64 {
	if den <= 0 || num <= 0 {
		return 0
	}
	return num * 100 / den
}

func clampScore(v, limit int) int {
	if v < 0 {
		return 0
	}
	if v > limit {
		return limit
	}
	return v
}

func dimension(name string, score, limit, weightBps int, details []string) models.DimensionScore {
	return models.DimensionScore{
		Name:      name,
		Score:     clampScore(score, limit),
		MaxScore:  limit,
		WeightBps: weightBps,
		Rationale: strings.Join(details, "; "),
	}
}
