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

package models

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Tier is the ordinal creditworthiness band, 0=Bronze..3=Platinum
type Tier int

const (
	TierBronze Tier = iota
	TierSilver
	TierGold
	TierPlatinum
)

var tierNames = [...]string{"Bronze", "Silver", "Gold", "Platinum"}

func (t Tier) String() string {
	if t < TierBronze || t > TierPlatinum {
		return "Unknown"
	}
	return tierNames[t]
}

// CreditProfile is the stored credit state of a borrower
type CreditProfile struct {
	Address            common.Address  `db:"address"`
	Score              int             `db:"score"`
	Tier               Tier            `db:"tier"`
	CollateralRatioBps int64           `db:"collateral_ratio_bps"`
	CreditLimit        decimal.Decimal `db:"credit_limit"` // wei
	InterestRateBps    int64           `db:"interest_rate_bps"`
	LoansCompleted     int64           `db:"loans_completed"`
	LoansFailed        int64           `db:"loans_failed"`
	TotalBorrowed      decimal.Decimal `db:"total_borrowed"`
	TotalRepaid        decimal.Decimal `db:"total_repaid"`
	ReportHash         common.Hash     `db:"report_hash"`
	Version            int64           `db:"version"`
	CreatedAt          time.Time       `db:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at"`
}

// CreditHistory is the streak-tracking record of a borrower
type CreditHistory struct {
	Address        common.Address  `db:"address"`
	Score          int             `db:"score"`
	Tier           Tier            `db:"tier"`
	LoansCompleted int64           `db:"loans_completed"`
	LoansFailed    int64           `db:"loans_failed"`
	TotalBorrowed  decimal.Decimal `db:"total_borrowed"`
	TotalRepaid    decimal.Decimal `db:"total_repaid"`
	CurrentStreak  int64           `db:"current_streak"`
	LongestStreak  int64           `db:"longest_streak"`
	FirstCreditAt  time.Time       `db:"first_credit_at"`
	Version        int64           `db:"version"`
	UpdatedAt      time.Time       `db:"updated_at"`
}
