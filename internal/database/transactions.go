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

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"credshield-go/internal/models"
	"credshield-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProcessPosting applies a single posting in its own transaction.
func (s *SubledgerService) ProcessPosting(ctx context.Context, p store.Posting) (*models.LedgerEntry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	entry, err := postInTx(ctx, tx, p, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return entry, nil
}

// postInTx atomically updates the account balance and appends the ledger entry
func postInTx(ctx context.Context, q querier, p store.Posting, now time.Time) (*models.LedgerEntry, error) {
	if p.AccountId == "" {
		return nil, fmt.Errorf("posting has no account")
	}

	zap.L().Debug("Posting ledger entry",
		zap.String("account_id", p.AccountId),
		zap.String("type", p.EntryType),
		zap.String("amount", p.Amount.String()),
		zap.String("reference", p.Reference))

	// Check for a replayed reference on this account
	if p.Reference != "" {
		var existingId string
		err := q.QueryRowContext(ctx, queryCheckDuplicateEntry, p.AccountId, p.Reference).Scan(&existingId)
		if err == nil {
			zap.L().Warn("Duplicate ledger reference detected, skipping",
				zap.String("account_id", p.AccountId),
				zap.String("reference", p.Reference),
				zap.String("existing_entry_id", existingId))
			return nil, fmt.Errorf("%w: reference %s already posted to %s", store.ErrDuplicateEntry, p.Reference, p.AccountId)
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to check for duplicate entry: %w", err)
		}
	}

	var currentBalanceStr string
	var version int64
	err := q.QueryRowContext(ctx, queryGetAccountBalance, p.AccountId).Scan(&currentBalanceStr, &version)

	var currentBalance decimal.Decimal
	if errors.Is(err, sql.ErrNoRows) {
		currentBalance = decimal.Zero
		version = 1
		if _, err := q.ExecContext(ctx, queryInsertAccountBalance, p.AccountId, "0", 1, now); err != nil {
			return nil, fmt.Errorf("failed to create account balance: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to get current balance: %w", err)
	} else {
		currentBalance, err = parseAmount(currentBalanceStr, "balance")
		if err != nil {
			return nil, err
		}
	}

	newBalance := currentBalance.Add(p.Amount)
	entry := &models.LedgerEntry{
		Id:            uuid.New().String(),
		AccountId:     p.AccountId,
		EntryType:     p.EntryType,
		Amount:        p.Amount,
		BalanceBefore: currentBalance,
		BalanceAfter:  newBalance,
		Reference:     p.Reference,
		CreatedAt:     now,
	}

	_, err = q.ExecContext(ctx, queryInsertEntry,
		entry.Id, entry.AccountId, entry.EntryType,
		entry.Amount.String(), entry.BalanceBefore.String(), entry.BalanceAfter.String(),
		entry.Reference, entry.CreatedAt)
	if err != nil {
		return nil, mapConstraintError(fmt.Errorf("failed to insert ledger entry: %w", err))
	}

	// Update account balance (with optimistic locking)
	result, err := q.ExecContext(ctx, queryUpdateAccountBalance, newBalance.String(), entry.Id, now, p.AccountId, version)
	if err != nil {
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}
	if err := expectOneRow(result, "account balance"); err != nil {
		return nil, err
	}

	return entry, nil
}
