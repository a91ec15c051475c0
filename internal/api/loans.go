package api

import (
	"context"
	"strings"

	"credshield-go/internal/lending"
	"credshield-go/internal/models"

	"go.uber.org/zap"
)

// CreateLoan opens an installment loan for the borrower against their tier parameters.
func (s *CreditService) CreateLoan(ctx context.Context, borrower, principal string, installments int) (*models.LoanQuote, error) {
	addr, err := ParseAddress(borrower)
	if err != nil {
		return nil, err
	}
	wei, err := ParseAmount(principal)
	if err != nil {
		return nil, err
	}

	zap.L().Info("Creating loan",
		zap.String("borrower", addr.Hex()),
		zap.String("principal", wei.String()),
		zap.Int("installments", installments))

	quote, err := s.engine.CreateLoan(ctx, addr, wei, installments)
	if err != nil {
		return nil, userError("create_loan", err, zap.String("borrower", addr.Hex()))
	}
	return quote, nil
}

// RepayInstallment pays the next installment of a loan on behalf of its borrower.
func (s *CreditService) RepayInstallment(ctx context.Context, caller string, loanId int64) (*models.RepaymentResult, error) {
	addr, err := ParseAddress(caller)
	if err != nil {
		return nil, err
	}
	result, err := s.engine.RepayInstallment(ctx, addr, loanId)
	if err != nil {
		return nil, userError("repay_installment", err, zap.Int64("loan_id", loanId))
	}
	return result, nil
}

// MarkDefault defaults an active loan and seizes its collateral. Operator only.
func (s *CreditService) MarkDefault(ctx context.Context, caller string, loanId int64) (*models.Loan, error) {
	addr, err := ParseAddress(caller)
	if err != nil {
		return nil, err
	}
	loan, err := s.engine.MarkDefault(ctx, addr, loanId)
	if err != nil {
		return nil, userError("mark_default", err, zap.Int64("loan_id", loanId))
	}
	return loan, nil
}

// GetLoan returns a loan with its repayment schedule.
func (s *CreditService) GetLoan(ctx context.Context, loanId int64) (*models.LoanQuote, error) {
	loan, err := s.engine.GetLoan(ctx, loanId)
	if err != nil {
		return nil, userError("get_loan", err, zap.Int64("loan_id", loanId))
	}
	return &models.LoanQuote{
		Loan:     *loan,
		Schedule: s.schedule(*loan),
	}, nil
}

func (s *CreditService) schedule(loan models.Loan) []models.InstallmentDue {
	return lending.Schedule(loan, s.engine.Config().InstallmentPeriod)
}

func (s *CreditService) LoansByBorrower(ctx context.Context, borrower string) ([]models.Loan, error) {
	addr, err := ParseAddress(borrower)
	if err != nil {
		return nil, err
	}
	loans, err := s.engine.LoansByBorrower(ctx, addr)
	if err != nil {
		return nil, userError("loans_by_borrower", err, zap.String("borrower", addr.Hex()))
	}
	return loans, nil
}

// OverdueLoans lists active loans past their next due time as of now.
func (s *CreditService) OverdueLoans(ctx context.Context) ([]models.OverdueLoan, error) {
	loans, err := s.engine.OverdueLoans(ctx, s.clock().UTC())
	if err != nil {
		return nil, userError("overdue_loans", err)
	}
	return loans, nil
}

// ---------- BNPL ----------

// Checkout finances a purchase with an installment loan.
func (s *CreditService) Checkout(ctx context.Context, buyer, merchant, item, price string, installments int) (*models.CheckoutResult, error) {
	buyerAddr, err := ParseAddress(buyer)
	if err != nil {
		return nil, err
	}
	merchantAddr, err := ParseAddress(merchant)
	if err != nil {
		return nil, err
	}
	wei, err := ParseAmount(price)
	if err != nil {
		return nil, err
	}
	result, err := s.engine.Checkout(ctx, buyerAddr, merchantAddr, strings.TrimSpace(item), wei, installments)
	if err != nil {
		return nil, userError("checkout", err, zap.String("buyer", buyerAddr.Hex()))
	}
	return result, nil
}

// PayPurchaseInstallment repays the next installment of the loan behind a purchase.
func (s *CreditService) PayPurchaseInstallment(ctx context.Context, caller string, purchaseId int64) (*models.RepaymentResult, error) {
	addr, err := ParseAddress(caller)
	if err != nil {
		return nil, err
	}
	result, err := s.engine.RecordPurchaseInstallment(ctx, addr, purchaseId)
	if err != nil {
		return nil, userError("pay_purchase_installment", err, zap.Int64("purchase_id", purchaseId))
	}
	return result, nil
}

func (s *CreditService) PurchasesByBuyer(ctx context.Context, buyer string) ([]models.Purchase, error) {
	addr, err := ParseAddress(buyer)
	if err != nil {
		return nil, err
	}
	purchases, err := s.engine.PurchasesByBuyer(ctx, addr)
	if err != nil {
		return nil, userError("purchases_by_buyer", err)
	}
	return purchases, nil
}

func (s *CreditService) PurchasesByMerchant(ctx context.Context, merchant string) ([]models.Purchase, error) {
	addr, err := ParseAddress(merchant)
	if err != nil {
		return nil, err
	}
	purchases, err := s.engine.PurchasesByMerchant(ctx, addr)
	if err != nil {
		return nil, userError("purchases_by_merchant", err)
	}
	return purchases, nil
}

func (s *CreditService) PurchaseStats(ctx context.Context) (models.PurchaseStats, error) {
	stats, err := s.engine.PurchaseStats(ctx)
	if err != nil {
		return models.PurchaseStats{}, userError("purchase_stats", err)
	}
	return stats, nil
}
