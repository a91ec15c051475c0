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

package lending

import (
	"context"
	"fmt"
	"time"

	"credshield-go/internal/lock"
	"credshield-go/internal/metrics"
	"credshield-go/internal/models"
	"credshield-go/internal/store"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Schedule lists every installment of a loan. The final installment absorbs the rounding
// residue of the integer installment division.
func Schedule(loan models.Loan, period time.Duration) []models.InstallmentDue {
	n := loan.TotalInstallments
	if n <= 0 {
		return nil
	}
	schedule := make([]models.InstallmentDue, n)
	for k := 1; k <= n; k++ {
		amount := loan.InstallmentAmount
		if k == n {
			amount = loan.TotalAmount.Sub(loan.InstallmentAmount.Mul(decimal.NewFromInt(int64(n - 1))))
		}
		schedule[k-1] = models.InstallmentDue{
			Number: k,
			Amount: amount,
			DueAt:  loan.CreatedAt.Add(time.Duration(k) * period),
		}
	}
	return schedule
}

// LoanTerms computes the total owed and the regular installment for a principal.
func LoanTerms(principal decimal.Decimal, interestRateBps int64, installments int) (total, installment decimal.Decimal) {
	total = principal.Add(models.MulBps(principal, interestRateBps))
	installment, _ = total.QuoRem(decimal.NewFromInt(int64(installments)), 0)
	return total, installment
}

// RequiredCollateral returns principal scaled by the collateral ratio, floored to whole wei.
func RequiredCollateral(principal decimal.Decimal, ratioBps int64) decimal.Decimal {
	return models.MulBps(principal, ratioBps)
}

// CreateLoan issues an installment loan against the borrower's tier and locks the required collateral.
func (e *Engine) CreateLoan(ctx context.Context, borrower common.Address, principal decimal.Decimal, installments int) (*models.LoanQuote, error) {
	if err := e.validateLoanRequest(principal, installments, e.cfg.MinInstallments, e.cfg.MaxInstallments); err != nil {
		return nil, e.fail("create_loan", err)
	}

	var quote *models.LoanQuote
	var deposit *models.CollateralOp
	err := e.mutate(ctx, "create_loan", []string{borrowerKey(borrower), lock.PoolKey}, func(tx store.LedgerTx) error {
		var err error
		quote, deposit, err = e.createLoanInTx(ctx, tx, borrower, principal, installments)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.afterLoanCreated(ctx, quote, deposit)
	return quote, nil
}

func (e *Engine) validateLoanRequest(principal decimal.Decimal, installments, lo, hi int) error {
	if installments < lo || installments > hi {
		return fmt.Errorf("%w: installments must be between %d and %d, got %d", ErrInvalidRequest, lo, hi, installments)
	}
	return requirePositive(principal, "principal")
}

// createLoanInTx also returns the collateral deposit to publish, nil when nothing new was locked.
func (e *Engine) createLoanInTx(ctx context.Context, tx store.LedgerTx, borrower common.Address, principal decimal.Decimal, installments int) (*models.LoanQuote, *models.CollateralOp, error) {
	if active, err := tx.GetActiveLoan(ctx, borrower); err == nil {
		return nil, nil, fmt.Errorf("%w: loan %d", ErrActiveLoanExists, active.Id)
	} else if !isNotFound(err) {
		return nil, nil, err
	}

	params, t, err := e.params(ctx, tx, borrower)
	if err != nil {
		return nil, nil, err
	}
	if principal.GreaterThan(params.CreditLimit) {
		return nil, nil, fmt.Errorf("%w: requested %s, limit %s", ErrCreditLimitExceeded, principal.String(), params.CreditLimit.String())
	}

	available, err := e.available(ctx, tx)
	if err != nil {
		return nil, nil, err
	}
	if principal.GreaterThan(available) {
		return nil, nil, fmt.Errorf("%w: requested %s, available %s", ErrInsufficientLiquidity, principal.String(), available.String())
	}

	// A position released by a repaid loan is reused for the next one.
	existing, err := tx.GetActiveCollateral(ctx, borrower)
	switch {
	case err == nil:
		if existing.LoanId != nil {
			return nil, nil, fmt.Errorf("%w: position %d", ErrAlreadyHasCollateral, existing.Id)
		}
	case isNotFound(err):
		existing = nil
	default:
		return nil, nil, err
	}

	now := e.now()
	total, installment := LoanTerms(principal, params.InterestRateBps, installments)
	collateral := RequiredCollateral(principal, params.CollateralRatioBps)
	loan := &models.Loan{
		Borrower:          borrower,
		Principal:         principal,
		TotalAmount:       total,
		RemainingAmount:   total,
		CollateralAmount:  collateral,
		InstallmentAmount: installment,
		TotalInstallments: installments,
		NextDueAt:         now.Add(e.cfg.InstallmentPeriod),
		InterestRateBps:   params.InterestRateBps,
		Active:            true,
		CreatedAt:         now,
	}
	if err := tx.InsertLoan(ctx, loan); err != nil {
		return nil, nil, err
	}

	position, topUp, err := e.lockCollateral(ctx, tx, existing, borrower, loan.Id, collateral, now)
	if err != nil {
		return nil, nil, err
	}

	ref := fmt.Sprintf("loan:%d:issue", loan.Id)
	if err := post(ctx, tx, store.AccountPoolBorrowed, "loan-issued", principal, ref); err != nil {
		return nil, nil, err
	}
	if err := post(ctx, tx, store.LoanAccount(loan.Id), "loan-issued", total.Neg(), ref); err != nil {
		return nil, nil, err
	}
	if err := post(ctx, tx, store.CollateralAccount(borrower), "collateral-lock", topUp, ref); err != nil {
		return nil, nil, err
	}

	var deposit *models.CollateralOp
	if position != nil && topUp.IsPositive() {
		deposit = &models.CollateralOp{
			Kind:       models.CollateralDeposit,
			PositionId: position.Id,
			Owner:      borrower,
			Amount:     topUp,
			Yield:      decimal.Zero,
			LoanId:     position.LoanId,
			TopUp:      existing != nil,
		}
	}

	return &models.LoanQuote{
		Loan:     *loan,
		Schedule: Schedule(*loan, e.cfg.InstallmentPeriod),
		Tier:     t,
	}, deposit, nil
}

// lockCollateral secures a new loan. Without an existing released position it opens one for
// the required amount. Otherwise it links that position to the loan and tops it up to the
// required amount; returns the amount newly locked.
func (e *Engine) lockCollateral(ctx context.Context, tx store.LedgerTx, existing *models.CollateralPosition,
	borrower common.Address, loanId int64, required decimal.Decimal, now time.Time) (*models.CollateralPosition, decimal.Decimal, error) {
	if existing == nil {
		if !required.IsPositive() {
			return nil, decimal.Zero, nil
		}
		position := &models.CollateralPosition{
			Owner:       borrower,
			Amount:      required,
			DepositedAt: now,
			LoanId:      &loanId,
			Active:      true,
		}
		if err := tx.InsertCollateral(ctx, position); err != nil {
			return nil, decimal.Zero, err
		}
		return position, required, nil
	}

	topUp := decimal.Max(required.Sub(existing.Amount), decimal.Zero)
	if topUp.IsPositive() {
		existing.DepositedAt = rebaseDeposit(existing.Amount, existing.Amount.Add(topUp), existing.DepositedAt, now)
		existing.Amount = existing.Amount.Add(topUp)
	}
	existing.LoanId = &loanId
	if err := tx.UpdateCollateral(ctx, existing); err != nil {
		return nil, decimal.Zero, err
	}
	return existing, topUp, nil
}

// rebaseDeposit moves the deposit time forward so that newAmount accrues what oldAmount had
// accrued by now, leaving the top-up without back-dated yield.
func rebaseDeposit(oldAmount, newAmount decimal.Decimal, depositedAt, now time.Time) time.Time {
	elapsed := now.Sub(depositedAt)
	if elapsed <= 0 || !newAmount.IsPositive() {
		return now
	}
	kept := decimal.NewFromInt(int64(elapsed)).Mul(oldAmount).Div(newAmount).IntPart()
	return now.Add(-time.Duration(kept))
}

func (e *Engine) afterLoanCreated(ctx context.Context, quote *models.LoanQuote, deposit *models.CollateralOp) {
	metrics.RecordLoanEvent("created")
	zap.L().Info("Loan created",
		zap.Int64("loan_id", quote.Loan.Id),
		zap.String("borrower", quote.Loan.Borrower.Hex()),
		zap.String("principal", quote.Loan.Principal.String()),
		zap.String("total", quote.Loan.TotalAmount.String()),
		zap.Int("installments", quote.Loan.TotalInstallments),
		zap.String("tier", quote.Tier.String()))

	if deposit == nil {
		return
	}
	metrics.RecordCollateralOp(string(models.CollateralDeposit))
	op := *deposit
	e.publish(ctx, "persist_collateral", func(ctx context.Context, p store.Publisher) error {
		return p.PersistCollateralOp(ctx, op)
	})
}

// available is pool deposits minus outstanding principal.
func (e *Engine) available(ctx context.Context, tx store.LedgerTx) (decimal.Decimal, error) {
	deposits, err := tx.AccountBalance(ctx, store.AccountPoolDeposits)
	if err != nil {
		return decimal.Zero, err
	}
	borrowed, err := tx.AccountBalance(ctx, store.AccountPoolBorrowed)
	if err != nil {
		return decimal.Zero, err
	}
	return deposits.Sub(borrowed), nil
}

// RepayInstallment pays the next installment of a loan on behalf of its borrower.
func (e *Engine) RepayInstallment(ctx context.Context, caller common.Address, loanId int64) (*models.RepaymentResult, error) {
	loan, err := e.GetLoan(ctx, loanId)
	if err != nil {
		return nil, e.fail("repay", err)
	}

	var result *models.RepaymentResult
	err = e.mutate(ctx, "repay", []string{borrowerKey(loan.Borrower), lock.PoolKey}, func(tx store.LedgerTx) error {
		var err error
		result, err = e.repayInTx(ctx, tx, caller, loanId)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.afterRepayment(ctx, result)
	return result, nil
}

func (e *Engine) repayInTx(ctx context.Context, tx store.LedgerTx, caller common.Address, loanId int64) (*models.RepaymentResult, error) {
	loan, err := tx.GetLoan(ctx, loanId)
	if isNotFound(err) {
		return nil, fmt.Errorf("%w: %d", ErrLoanNotFound, loanId)
	}
	if err != nil {
		return nil, err
	}
	if !loan.Active {
		return nil, fmt.Errorf("%w: %d", ErrLoanNotActive, loanId)
	}
	if loan.Borrower != caller {
		return nil, fmt.Errorf("%w: loan %d belongs to %s", ErrNotBorrower, loanId, loan.Borrower.Hex())
	}

	payment := decimal.Min(loan.InstallmentAmount, loan.RemainingAmount)
	if loan.InstallmentsPaid >= loan.TotalInstallments-1 {
		payment = loan.RemainingAmount
	}
	now := e.now()
	loan.RemainingAmount = loan.RemainingAmount.Sub(payment)
	loan.InstallmentsPaid++
	loan.NextDueAt = loan.NextDueAt.Add(e.cfg.InstallmentPeriod)

	ref := fmt.Sprintf("loan:%d:repay:%d", loan.Id, loan.InstallmentsPaid)
	if err := post(ctx, tx, store.LoanAccount(loan.Id), "repayment", payment, ref); err != nil {
		return nil, err
	}

	completed := !loan.RemainingAmount.IsPositive()
	if completed {
		loan.Active = false
		loan.ClosedAt = &now
	}
	if err := tx.UpdateLoan(ctx, loan); err != nil {
		return nil, err
	}

	result := &models.RepaymentResult{Paid: payment, Completed: completed}
	if completed {
		if err := e.settleCompleted(ctx, tx, loan); err != nil {
			return nil, err
		}
	}

	purchase, err := tx.GetPurchaseByLoan(ctx, loan.Id)
	switch {
	case err == nil:
		purchase.InstallmentsPaid = loan.InstallmentsPaid
		purchase.PaidAmount = purchase.PaidAmount.Add(payment)
		purchase.Completed = completed
		if err := tx.UpdatePurchase(ctx, purchase); err != nil {
			return nil, err
		}
		result.Purchase = purchase
	case !isNotFound(err):
		return nil, err
	}

	result.Loan = *loan
	return result, nil
}

// settleCompleted returns the principal to the pool, credits the interest to depositors,
// unlinks the collateral and records a successful outcome.
func (e *Engine) settleCompleted(ctx context.Context, tx store.LedgerTx, loan *models.Loan) error {
	ref := fmt.Sprintf("loan:%d:settle", loan.Id)
	if err := post(ctx, tx, store.AccountPoolBorrowed, "loan-settled", loan.Principal.Neg(), ref); err != nil {
		return err
	}
	if err := post(ctx, tx, store.AccountPoolDeposits, "interest", loan.TotalAmount.Sub(loan.Principal), ref); err != nil {
		return err
	}

	position, err := tx.GetActiveCollateral(ctx, loan.Borrower)
	switch {
	case err == nil:
		if position.LoanId != nil && *position.LoanId == loan.Id {
			position.LoanId = nil
			if err := tx.UpdateCollateral(ctx, position); err != nil {
				return err
			}
		}
	case !isNotFound(err):
		return err
	}

	_, err = e.applyOutcome(ctx, tx, loan.Borrower, true, loan.TotalAmount)
	return err
}

func (e *Engine) afterRepayment(ctx context.Context, result *models.RepaymentResult) {
	loan := result.Loan
	metrics.RecordLoanEvent("repaid")
	zap.L().Info("Installment repaid",
		zap.Int64("loan_id", loan.Id),
		zap.String("borrower", loan.Borrower.Hex()),
		zap.String("paid", result.Paid.String()),
		zap.Int("installments_paid", loan.InstallmentsPaid),
		zap.String("remaining", loan.RemainingAmount.String()))

	if !result.Completed {
		return
	}
	metrics.RecordLoanEvent("completed")
	zap.L().Info("Loan completed", zap.Int64("loan_id", loan.Id), zap.String("borrower", loan.Borrower.Hex()))
	e.publish(ctx, "persist_outcome", func(ctx context.Context, p store.Publisher) error {
		return p.PersistLoanOutcome(ctx, loan.Borrower, loan.Id, true, loan.TotalAmount)
	})
}

// MarkDefault closes an active loan as defaulted, writes off the remainder and seizes its collateral. Operator only.
func (e *Engine) MarkDefault(ctx context.Context, caller common.Address, loanId int64) (*models.Loan, error) {
	if err := e.requireOperator(caller); err != nil {
		return nil, e.fail("default", err)
	}
	loan, err := e.GetLoan(ctx, loanId)
	if err != nil {
		return nil, e.fail("default", err)
	}

	var writtenOff decimal.Decimal
	var seized *models.CollateralPosition
	err = e.mutate(ctx, "default", []string{borrowerKey(loan.Borrower), lock.PoolKey}, func(tx store.LedgerTx) error {
		current, err := tx.GetLoan(ctx, loanId)
		if err != nil {
			return err
		}
		loan = current
		if !loan.Active {
			return fmt.Errorf("%w: %d", ErrLoanNotActive, loanId)
		}

		now := e.now()
		writtenOff = loan.RemainingAmount
		repaid := loan.PaidAmount()
		loan.Active = false
		loan.Defaulted = true
		loan.ClosedAt = &now
		if err := tx.UpdateLoan(ctx, loan); err != nil {
			return err
		}

		ref := fmt.Sprintf("loan:%d:default", loan.Id)
		if err := post(ctx, tx, store.LoanAccount(loan.Id), "write-off", writtenOff, ref); err != nil {
			return err
		}

		seized, err = e.seizeInTx(ctx, tx, loan.Borrower)
		if err != nil && !isNotFound(err) {
			return err
		}

		purchase, err := tx.GetPurchaseByLoan(ctx, loan.Id)
		switch {
		case err == nil:
			purchase.Defaulted = true
			if err := tx.UpdatePurchase(ctx, purchase); err != nil {
				return err
			}
		case !isNotFound(err):
			return err
		}

		if err := post(ctx, tx, store.AccountPoolBorrowed, "loan-settled", loan.Principal.Neg(), ref); err != nil {
			return err
		}
		if err := post(ctx, tx, store.AccountPoolDeposits, "default-settlement", repaid.Sub(loan.Principal), ref); err != nil {
			return err
		}

		_, err = e.applyOutcome(ctx, tx, loan.Borrower, false, writtenOff)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordLoanEvent("defaulted")
	zap.L().Info("Loan defaulted",
		zap.Int64("loan_id", loan.Id),
		zap.String("borrower", loan.Borrower.Hex()),
		zap.String("written_off", writtenOff.String()))
	e.publish(ctx, "persist_outcome", func(ctx context.Context, p store.Publisher) error {
		return p.PersistLoanOutcome(ctx, loan.Borrower, loan.Id, false, writtenOff)
	})
	if seized != nil {
		e.afterSeize(ctx, seized)
	}
	return loan, nil
}

// GetLoan returns a loan by id, or ErrLoanNotFound.
func (e *Engine) GetLoan(ctx context.Context, loanId int64) (*models.Loan, error) {
	var loan *models.Loan
	err := e.read(ctx, func(tx store.LedgerTx) error {
		var err error
		loan, err = tx.GetLoan(ctx, loanId)
		return err
	})
	if isNotFound(err) {
		return nil, fmt.Errorf("%w: %d", ErrLoanNotFound, loanId)
	}
	return loan, err
}

func (e *Engine) LoansByBorrower(ctx context.Context, borrower common.Address) ([]models.Loan, error) {
	var loans []models.Loan
	err := e.read(ctx, func(tx store.LedgerTx) error {
		var err error
		loans, err = tx.ListLoansByBorrower(ctx, borrower)
		return err
	})
	return loans, err
}

// ActiveLoan returns the borrower's active loan, or nil when there is none.
func (e *Engine) ActiveLoan(ctx context.Context, borrower common.Address) (*models.Loan, error) {
	var loan *models.Loan
	err := e.read(ctx, func(tx store.LedgerTx) error {
		var err error
		loan, err = tx.GetActiveLoan(ctx, borrower)
		return err
	})
	if isNotFound(err) {
		return nil, nil
	}
	return loan, err
}

// OverdueLoans lists active loans whose next installment was due before asOf.
func (e *Engine) OverdueLoans(ctx context.Context, asOf time.Time) ([]models.OverdueLoan, error) {
	var loans []models.Loan
	err := e.read(ctx, func(tx store.LedgerTx) error {
		var err error
		loans, err = tx.ListOverdueLoans(ctx, asOf)
		return err
	})
	if err != nil {
		return nil, err
	}
	overdue := make([]models.OverdueLoan, 0, len(loans))
	for _, l := range loans {
		overdue = append(overdue, models.OverdueLoan{
			Loan:        l,
			OverdueDays: int64(asOf.Sub(l.NextDueAt) / (24 * time.Hour)),
		})
	}
	return overdue, nil
}
