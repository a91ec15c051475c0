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

// Loan is an installment loan. At most one active loan exists per borrower.
type Loan struct {
	Id                int64           `db:"id"`
	Borrower          common.Address  `db:"borrower"`
	Principal         decimal.Decimal `db:"principal"`
	TotalAmount       decimal.Decimal `db:"total_amount"`
	RemainingAmount   decimal.Decimal `db:"remaining_amount"`
	CollateralAmount  decimal.Decimal `db:"collateral_amount"`
	InstallmentAmount decimal.Decimal `db:"installment_amount"`
	InstallmentsPaid  int             `db:"installments_paid"`
	TotalInstallments int             `db:"total_installments"`
	NextDueAt         time.Time       `db:"next_due_at"`
	InterestRateBps   int64           `db:"interest_rate_bps"`
	Active            bool            `db:"active"`
	Defaulted         bool            `db:"defaulted"`
	Version           int64           `db:"version"`
	CreatedAt         time.Time       `db:"created_at"`
	ClosedAt          *time.Time      `db:"closed_at"`
}

// PaidAmount returns how much of the total has been repaid so far.
func (l *Loan) PaidAmount() decimal.Decimal {
	return l.TotalAmount.Sub(l.RemainingAmount)
}

// InstallmentDue is one row of a repayment schedule
type InstallmentDue struct {
	Number int             `json:"number"`
	Amount decimal.Decimal `json:"amount"`
	DueAt  time.Time       `json:"due_at"`
}

// CollateralPosition is collateral locked by an owner, optionally tied to a loan
type CollateralPosition struct {
	Id          int64           `db:"id"`
	Owner       common.Address  `db:"owner"`
	Amount      decimal.Decimal `db:"amount"`
	DepositedAt time.Time       `db:"deposited_at"`
	LoanId      *int64          `db:"loan_id"`
	Active      bool            `db:"active"`
	Version     int64           `db:"version"`
	ReleasedAt  *time.Time      `db:"released_at"`
}

// PoolStats summarizes the lending pool
type PoolStats struct {
	TotalDeposits  decimal.Decimal `json:"total_deposits"`
	TotalBorrowed  decimal.Decimal `json:"total_borrowed"`
	Available      decimal.Decimal `json:"available"`
	UtilizationBps int64           `json:"utilization_bps"`
	LoansIssued    int64           `json:"loans_issued"`
	LoansRepaid    int64           `json:"loans_repaid"`
	YieldReserve   decimal.Decimal `json:"yield_reserve"`
}

// Purchase is a buy-now-pay-later purchase backed by a loan
type Purchase struct {
	Id               int64           `db:"id"`
	Buyer            common.Address  `db:"buyer"`
	Merchant         common.Address  `db:"merchant"`
	Item             string          `db:"item"`
	TotalPrice       decimal.Decimal `db:"total_price"`
	Installments     int             `db:"installments"`
	InstallmentsPaid int             `db:"installments_paid"`
	PaidAmount       decimal.Decimal `db:"paid_amount"`
	LoanId           int64           `db:"loan_id"`
	Completed        bool            `db:"completed"`
	Defaulted        bool            `db:"defaulted"` // the backing loan was defaulted; no further payments
	CreatedAt        time.Time       `db:"created_at"`
}

// CollateralOpKind names a collateral vault movement
type CollateralOpKind string

const (
	CollateralDeposit  CollateralOpKind = "deposit"
	CollateralWithdraw CollateralOpKind = "withdraw"
	CollateralSeize    CollateralOpKind = "seize"
)

// CollateralOp is a vault movement published to the external ledger
type CollateralOp struct {
	Kind       CollateralOpKind
	PositionId int64
	Owner      common.Address
	Amount     decimal.Decimal
	Yield      decimal.Decimal
	LoanId     *int64
	TopUp      bool // deposit adding to a position reused for a new loan
}

// OverdueLoan is an active loan past its next due time
type OverdueLoan struct {
	Loan        Loan
	OverdueDays int64
}
