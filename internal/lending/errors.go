package lending

import (
	"errors"

	"credshield-go/internal/store"
	"credshield-go/internal/tier"
)

var (
	ErrInsufficientLiquidity    = errors.New("insufficient pool liquidity")
	ErrActiveLoanExists         = errors.New("borrower already has an active loan")
	ErrCreditLimitExceeded      = errors.New("principal exceeds credit limit")
	ErrLoanNotActive            = errors.New("loan is not active")
	ErrNotBorrower              = errors.New("caller is not the borrower")
	ErrAlreadyHasCollateral     = errors.New("owner already has active collateral")
	ErrNoActiveCollateral       = errors.New("no active collateral")
	ErrInvalidScoreRange        = tier.ErrInvalidScoreRange
	ErrUnauthorized             = errors.New("caller is not the operator")
	ErrInvalidRequest           = errors.New("invalid request")
	ErrLoanNotFound             = errors.New("loan not found")
	ErrCollateralLocked         = errors.New("collateral is locked by an active loan")
	ErrInsufficientYieldReserve = errors.New("yield reserve cannot cover accrued yield")
	ErrInsufficientDeposit      = errors.New("withdrawal exceeds lender deposit")
	ErrPurchaseCompleted        = errors.New("purchase already completed")
	ErrPurchaseNotFound         = errors.New("purchase not found")
	ErrPurchaseDefaulted        = errors.New("purchase loan was defaulted")
)

var reasons = []struct {
	err    error
	reason string
}{
	{ErrInsufficientLiquidity, "insufficient_liquidity"},
	{ErrActiveLoanExists, "active_loan_exists"},
	{ErrCreditLimitExceeded, "credit_limit_exceeded"},
	{ErrLoanNotActive, "loan_not_active"},
	{ErrNotBorrower, "not_borrower"},
	{ErrAlreadyHasCollateral, "already_has_collateral"},
	{ErrNoActiveCollateral, "no_active_collateral"},
	{ErrInvalidScoreRange, "invalid_score_range"},
	{ErrUnauthorized, "unauthorized"},
	{ErrInvalidRequest, "invalid_request"},
	{ErrLoanNotFound, "loan_not_found"},
	{ErrCollateralLocked, "collateral_locked"},
	{ErrInsufficientYieldReserve, "insufficient_yield_reserve"},
	{ErrInsufficientDeposit, "insufficient_deposit"},
	{ErrPurchaseCompleted, "purchase_completed"},
	{ErrPurchaseNotFound, "purchase_not_found"},
	{ErrPurchaseDefaulted, "purchase_defaulted"},
	{store.ErrConcurrentModification, "concurrent_modification"},
	{store.ErrDuplicateEntry, "duplicate_entry"},
	{store.ErrNotFound, "not_found"},
}

// Reason returns a stable metric label for err.
func Reason(err error) string {
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return "internal"
}
