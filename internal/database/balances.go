package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"credshield-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func getBalance(ctx context.Context, q querier, accountId string) (decimal.Decimal, error) {
	var balanceStr string
	err := q.QueryRowContext(ctx, queryGetBalance, accountId).Scan(&balanceStr)
	if errors.Is(err, sql.ErrNoRows) {
		// No balance record means zero balance
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get balance: %w", err)
	}
	return parseAmount(balanceStr, "balance")
}

// GetBalance returns current balance of an account (O(1) lookup)
func (s *SubledgerService) GetBalance(ctx context.Context, accountId string) (decimal.Decimal, error) {
	zap.L().Debug("Getting balance", zap.String("account_id", accountId))

	balance, err := getBalance(ctx, s.db, accountId)
	if err != nil {
		zap.L().Error("Failed to get balance", zap.String("account_id", accountId), zap.Error(err))
		return decimal.Zero, err
	}

	zap.L().Debug("Retrieved balance", zap.String("account_id", accountId), zap.String("balance", balance.String()))
	return balance, nil
}

// GetAllBalances returns every account balance ordered by account id
func (s *SubledgerService) GetAllBalances(ctx context.Context) ([]models.AccountBalance, error) {
	rows, err := s.db.QueryContext(ctx, queryGetAllBalances)
	if err != nil {
		zap.L().Error("Failed to get all balances", zap.Error(err))
		return nil, fmt.Errorf("failed to get all balances: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var balances []models.AccountBalance
	for rows.Next() {
		var balance models.AccountBalance
		var balanceStr string
		err := rows.Scan(&balance.AccountId, &balanceStr, &balance.LastEntryId, &balance.Version, &balance.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}

		balance.Balance, err = parseAmount(balanceStr, "balance")
		if err != nil {
			return nil, err
		}

		balances = append(balances, balance)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during balance row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating balance rows: %w", err)
	}

	zap.L().Debug("Retrieved all balances", zap.Int("count", len(balances)))
	return balances, nil
}

// GetEntries returns the newest entries of an account first
func (s *SubledgerService) GetEntries(ctx context.Context, accountId string, limit, offset int) ([]models.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx, queryGetEntries, accountId, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entries: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var entries []models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		var amount, before, after string
		err := rows.Scan(&e.Id, &e.AccountId, &e.EntryType, &amount, &before, &after, &e.Reference, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		err = parseAmounts(
			amountField{amount, "amount", &e.Amount},
			amountField{before, "balance_before", &e.BalanceBefore},
			amountField{after, "balance_after", &e.BalanceAfter},
		)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger entry rows: %w", err)
	}
	return entries, nil
}

// ReconcileBalance verifies that current balance matches sum of all entries.
// Amounts are summed in Go because wei values overflow SQLite integers.
func (s *SubledgerService) ReconcileBalance(ctx context.Context, accountId string) error {
	zap.L().Info("Reconciling balance", zap.String("account_id", accountId))

	currentBalance, err := s.GetBalance(ctx, accountId)
	if err != nil {
		return fmt.Errorf("failed to get current balance: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, queryReconcileBalance, accountId)
	if err != nil {
		return fmt.Errorf("failed to calculate balance from entries: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	calculatedBalance := decimal.Zero
	for rows.Next() {
		var amountStr string
		if err := rows.Scan(&amountStr); err != nil {
			return fmt.Errorf("failed to scan entry amount: %w", err)
		}
		amount, err := parseAmount(amountStr, "amount")
		if err != nil {
			return err
		}
		calculatedBalance = calculatedBalance.Add(amount)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating entry rows: %w", err)
	}

	// Check if balances match (exact decimal comparison)
	if !currentBalance.Equal(calculatedBalance) {
		zap.L().Error("Balance reconciliation failed",
			zap.String("account_id", accountId),
			zap.String("current_balance", currentBalance.String()),
			zap.String("calculated_balance", calculatedBalance.String()),
			zap.String("difference", currentBalance.Sub(calculatedBalance).String()))
		return fmt.Errorf("balance mismatch: current=%s, calculated=%s", currentBalance.String(), calculatedBalance.String())
	}

	zap.L().Info("Balance reconciliation successful",
		zap.String("account_id", accountId),
		zap.String("balance", currentBalance.String()))
	return nil
}
