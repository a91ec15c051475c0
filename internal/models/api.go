package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ScoreReport is the outcome of scoring a wallet end to end
type ScoreReport struct {
	Result        ScoreResult `json:"result"`
	Params        TierParams  `json:"params"`
	Report        string      `json:"report"`
	ReportHash    string      `json:"report_hash"`
	FromFallback  bool        `json:"from_fallback"`
	DataFallback  bool        `json:"data_fallback"`
	Created       bool        `json:"created"`
	PreviousScore int         `json:"previous_score,omitempty"`
}

// TierParams are the lending parameters attached to a tier
type TierParams struct {
	CollateralRatioBps int64           `json:"collateral_ratio_bps"`
	CreditLimit        decimal.Decimal `json:"credit_limit"` // wei
	InterestRateBps    int64           `json:"interest_rate_bps"`
}

// LoanQuote is the response to a loan creation
type LoanQuote struct {
	Loan     Loan             `json:"loan"`
	Schedule []InstallmentDue `json:"schedule"`
	Tier     Tier             `json:"tier"`
}

// RepaymentResult is the response to an installment repayment
type RepaymentResult struct {
	Loan      Loan            `json:"loan"`
	Paid      decimal.Decimal `json:"paid"`
	Completed bool            `json:"completed"`
	Purchase  *Purchase       `json:"purchase,omitempty"` // set when the loan backs a BNPL purchase
}

// ScoreUpdate is the result of setting a borrower's score
type ScoreUpdate struct {
	Profile       CreditProfile `json:"profile"`
	Created       bool          `json:"created"`
	PreviousScore int           `json:"previous_score"`
}

// PurchaseStats aggregates every BNPL purchase
type PurchaseStats struct {
	Volume decimal.Decimal `json:"volume"`
	Count  int64           `json:"count"`
}

// WithdrawalResult is the payout of a collateral withdrawal
type WithdrawalResult struct {
	Principal decimal.Decimal `json:"principal"`
	Yield     decimal.Decimal `json:"yield"`
	Total     decimal.Decimal `json:"total"`
	At        time.Time       `json:"at"`
}

// CheckoutResult is the response to a BNPL checkout
type CheckoutResult struct {
	Purchase Purchase  `json:"purchase"`
	Quote    LoanQuote `json:"quote"`
}
