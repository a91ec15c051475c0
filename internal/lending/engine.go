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

// Package lending implements the loan lifecycle, collateral vault, credit history,
// lending pool and BNPL purchases on top of a store.LedgerStore.
package lending

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"credshield-go/internal/lock"
	"credshield-go/internal/metrics"
	"credshield-go/internal/models"
	"credshield-go/internal/store"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Clock returns the current time. Tests inject a fixed clock.
type Clock func() time.Time

type Engine struct {
	store     store.LedgerStore
	locker    lock.Locker
	publisher store.Publisher
	cfg       models.LendingConfig
	clock     Clock
}

func NewEngine(st store.LedgerStore, locker lock.Locker, publisher store.Publisher, cfg models.LendingConfig, clock Clock) (*Engine, error) {
	if st == nil {
		return nil, fmt.Errorf("ledger store cannot be nil")
	}
	if locker == nil {
		return nil, fmt.Errorf("locker cannot be nil")
	}
	if cfg.MinInstallments < 1 || cfg.MaxInstallments < cfg.MinInstallments {
		return nil, fmt.Errorf("invalid installment bounds [%d, %d]", cfg.MinInstallments, cfg.MaxInstallments)
	}
	if cfg.BNPLMaxInstallments < 2 {
		return nil, fmt.Errorf("BNPL max installments must be at least 2, got %d", cfg.BNPLMaxInstallments)
	}
	if cfg.InstallmentPeriod <= 0 {
		return nil, fmt.Errorf("installment period must be positive, got %v", cfg.InstallmentPeriod)
	}
	if cfg.YieldDailyRateBps < 0 || cfg.OutcomeSuccessDelta < 0 || cfg.OutcomeFailurePenalty < 0 {
		return nil, fmt.Errorf("lending rates and score deltas cannot be negative")
	}
	if publisher == nil {
		publisher = store.NopPublisher{}
	}
	if clock == nil {
		clock = time.Now
	}
	if cfg.Operator == (common.Address{}) {
		zap.L().Warn("No operator address configured; privileged lending operations will be rejected")
	}
	return &Engine{store: st, locker: locker, publisher: publisher, cfg: cfg, clock: clock}, nil
}

// Operator is the address allowed to set scores, record outcomes, default loans and seize collateral.
func (e *Engine) Operator() common.Address {
	return e.cfg.Operator
}

func (e *Engine) Config() models.LendingConfig {
	return e.cfg
}

func (e *Engine) now() time.Time {
	return e.clock().UTC()
}

func (e *Engine) requireOperator(caller common.Address) error {
	if e.cfg.Operator == (common.Address{}) || caller != e.cfg.Operator {
		return fmt.Errorf("%w: %s", ErrUnauthorized, caller.Hex())
	}
	return nil
}

func borrowerKey(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}

// mutate serializes on keys, then runs fn as one storage transaction.
func (e *Engine) mutate(ctx context.Context, op string, keys []string, fn func(tx store.LedgerTx) error) error {
	start := time.Now()
	unlock, err := lock.LockAll(ctx, e.locker, keys...)
	metrics.RecordLockWait(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("failed to acquire lock for %s: %w", op, err)
	}
	defer unlock()

	if err := e.store.RunInTx(ctx, fn); err != nil {
		return e.fail(op, err)
	}
	return nil
}

// read runs fn in a transaction without taking any lock.
func (e *Engine) read(ctx context.Context, fn func(tx store.LedgerTx) error) error {
	return e.store.RunInTx(ctx, fn)
}

func (e *Engine) fail(op string, err error) error {
	metrics.RecordLendingError(op, Reason(err))
	zap.L().Debug("Lending operation rejected", zap.String("op", op), zap.Error(err))
	return err
}

// publish mirrors a committed change to the external ledger; failures are logged only.
func (e *Engine) publish(ctx context.Context, op string, fn func(ctx context.Context, p store.Publisher) error) {
	if err := fn(ctx, e.publisher); err != nil {
		metrics.RecordPublisherError(op)
		zap.L().Warn("Failed to publish to external ledger", zap.String("op", op), zap.Error(err))
	}
}

func post(ctx context.Context, tx store.LedgerTx, account, entryType string, amount decimal.Decimal, reference string) error {
	if amount.IsZero() {
		return nil
	}
	if _, err := tx.Post(ctx, store.Posting{AccountId: account, EntryType: entryType, Amount: amount, Reference: reference}); err != nil {
		return fmt.Errorf("failed to post %s to %s: %w", entryType, account, err)
	}
	return nil
}

func requirePositive(amount decimal.Decimal, what string) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: %s must be positive", ErrInvalidRequest, what)
	}
	if !amount.Equal(amount.Truncate(0)) {
		return fmt.Errorf("%w: %s must be whole wei", ErrInvalidRequest, what)
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
