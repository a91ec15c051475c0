package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"credshield-go/internal/models"
	"credshield-go/internal/store"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

func scanLoan(row rowScanner) (*models.Loan, error) {
	var l models.Loan
	var borrower, principal, total, remaining, collateral, installment string
	var closedAt sql.NullTime
	err := row.Scan(&l.Id, &borrower, &principal, &total, &remaining, &collateral, &installment,
		&l.InstallmentsPaid, &l.TotalInstallments, &l.NextDueAt, &l.InterestRateBps, &l.Active, &l.Defaulted,
		&l.Version, &l.CreatedAt, &closedAt)
	if err != nil {
		return nil, err
	}
	l.Borrower = common.HexToAddress(borrower)
	l.ClosedAt = timePtr(closedAt)
	err = parseAmounts(
		amountField{principal, "principal", &l.Principal},
		amountField{total, "total_amount", &l.TotalAmount},
		amountField{remaining, "remaining_amount", &l.RemainingAmount},
		amountField{collateral, "collateral_amount", &l.CollateralAmount},
		amountField{installment, "installment_amount", &l.InstallmentAmount},
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (t *txStore) queryLoans(ctx context.Context, query string, args ...any) ([]models.Loan, error) {
	rows, err := t.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query loans: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var loans []models.Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan loan: %w", err)
		}
		loans = append(loans, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating loan rows: %w", err)
	}
	return loans, nil
}

// InsertLoan stores a new loan and sets its sequential id
func (t *txStore) InsertLoan(ctx context.Context, l *models.Loan) error {
	l.Version = 1
	err := t.q.QueryRowContext(ctx, queryInsertLoan,
		l.Borrower.Hex(), l.Principal.String(), l.TotalAmount.String(), l.RemainingAmount.String(),
		l.CollateralAmount.String(), l.InstallmentAmount.String(),
		l.InstallmentsPaid, l.TotalInstallments, l.NextDueAt.UTC(), l.InterestRateBps, l.Active, l.Defaulted,
		l.Version, l.CreatedAt.UTC()).Scan(&l.Id)
	if err != nil {
		return mapConstraintError(fmt.Errorf("failed to insert loan: %w", err))
	}
	return nil
}

func (t *txStore) GetLoan(ctx context.Context, id int64) (*models.Loan, error) {
	l, err := scanLoan(t.q.QueryRowContext(ctx, queryGetLoan, id))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("loan %d", id))
	}
	return l, nil
}

func (t *txStore) GetActiveLoan(ctx context.Context, borrower common.Address) (*models.Loan, error) {
	l, err := scanLoan(t.q.QueryRowContext(ctx, queryGetActiveLoan, borrower.Hex()))
	if err != nil {
		return nil, notFound(err, "active loan of "+borrower.Hex())
	}
	return l, nil
}

func (t *txStore) UpdateLoan(ctx context.Context, l *models.Loan) error {
	result, err := t.q.ExecContext(ctx, queryUpdateLoan,
		l.RemainingAmount.String(), l.InstallmentsPaid, l.NextDueAt.UTC(), l.Active, l.Defaulted,
		nullTime(l.ClosedAt), l.Id, l.Version)
	if err != nil {
		return fmt.Errorf("failed to update loan: %w", err)
	}
	if err := expectOneRow(result, "loan"); err != nil {
		return err
	}
	l.Version++
	return nil
}

func (t *txStore) ListLoansByBorrower(ctx context.Context, borrower common.Address) ([]models.Loan, error) {
	return t.queryLoans(ctx, queryListLoansByBorrower, borrower.Hex())
}

// ListOverdueLoans returns active loans whose next installment was due before asOf
func (t *txStore) ListOverdueLoans(ctx context.Context, asOf time.Time) ([]models.Loan, error) {
	active, err := t.queryLoans(ctx, queryListActiveLoans)
	if err != nil {
		return nil, err
	}
	var overdue []models.Loan
	for _, l := range active {
		if l.NextDueAt.Before(asOf) {
			overdue = append(overdue, l)
		}
	}
	return overdue, nil
}

func (t *txStore) LoanCounts(ctx context.Context) (store.LoanCounts, error) {
	var c store.LoanCounts
	if err := t.q.QueryRowContext(ctx, queryLoanCounts).Scan(&c.Issued, &c.Repaid); err != nil {
		return store.LoanCounts{}, fmt.Errorf("failed to count loans: %w", err)
	}
	return c, nil
}
