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
	"fmt"
	"time"

	"credshield-go/internal/models"
	"credshield-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.LedgerStore.
var _ store.LedgerStore = (*Service)(nil)

type Service struct {
	db        *sql.DB
	subledger *SubledgerService
}

// txStore binds store.LedgerTx to one open transaction.
type txStore struct {
	q   querier
	now time.Time
}

var _ store.LedgerTx = (*txStore)(nil)

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	// Validate configuration
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	db, err := sql.Open("sqlite3", dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	// Set connection timeouts and limits
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test connection with timeout
	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			zap.L().Warn("Failed to close database after ping failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service := newService(db)
	if err := service.initSchema(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			zap.L().Warn("Failed to close database after schema failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	zap.L().Info("Database service initialized successfully")
	return service, nil
}

// dsn builds the connection string. Transactions start IMMEDIATE so a read-check-write
// sequence holds the write lock from its first read.
func dsn(cfg models.DatabaseConfig) string {
	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	return fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000&_txlock=immediate&_busy_timeout=%d&_loc=UTC&_foreign_keys=1",
		cfg.Path, busy.Milliseconds())
}

func newService(db *sql.DB) *Service {
	return &Service{db: db, subledger: NewSubledgerService(db)}
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

func (s *Service) initSchema() error {
	schema := `
	-- Credit profiles, one per scored borrower
	CREATE TABLE IF NOT EXISTS credit_profiles (
		address TEXT PRIMARY KEY,
		score INTEGER NOT NULL,
		tier INTEGER NOT NULL,
		collateral_ratio_bps INTEGER NOT NULL,
		credit_limit TEXT NOT NULL,
		interest_rate_bps INTEGER NOT NULL,
		loans_completed INTEGER NOT NULL DEFAULT 0,
		loans_failed INTEGER NOT NULL DEFAULT 0,
		total_borrowed TEXT NOT NULL DEFAULT '0',
		total_repaid TEXT NOT NULL DEFAULT '0',
		report_hash TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	-- Streak-tracking credit history
	CREATE TABLE IF NOT EXISTS credit_histories (
		address TEXT PRIMARY KEY,
		score INTEGER NOT NULL,
		tier INTEGER NOT NULL,
		loans_completed INTEGER NOT NULL DEFAULT 0,
		loans_failed INTEGER NOT NULL DEFAULT 0,
		total_borrowed TEXT NOT NULL DEFAULT '0',
		total_repaid TEXT NOT NULL DEFAULT '0',
		current_streak INTEGER NOT NULL DEFAULT 0,
		longest_streak INTEGER NOT NULL DEFAULT 0,
		first_credit_at TIMESTAMP NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		updated_at TIMESTAMP NOT NULL
	);

	-- Installment loans
	CREATE TABLE IF NOT EXISTS loans (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		borrower TEXT NOT NULL,
		principal TEXT NOT NULL,
		total_amount TEXT NOT NULL,
		remaining_amount TEXT NOT NULL,
		collateral_amount TEXT NOT NULL,
		installment_amount TEXT NOT NULL,
		installments_paid INTEGER NOT NULL DEFAULT 0,
		total_installments INTEGER NOT NULL,
		next_due_at TIMESTAMP NOT NULL,
		interest_rate_bps INTEGER NOT NULL,
		active BOOLEAN NOT NULL,
		defaulted BOOLEAN NOT NULL DEFAULT 0,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL,
		closed_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_loans_borrower ON loans(borrower);
	-- At most one active loan per borrower
	CREATE UNIQUE INDEX IF NOT EXISTS idx_loans_active_borrower ON loans(borrower) WHERE active = 1;

	-- Collateral vault positions
	CREATE TABLE IF NOT EXISTS collateral_positions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		owner TEXT NOT NULL,
		amount TEXT NOT NULL,
		deposited_at TIMESTAMP NOT NULL,
		loan_id INTEGER REFERENCES loans(id),
		active BOOLEAN NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		released_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_collateral_owner ON collateral_positions(owner);
	-- At most one active position per owner
	CREATE UNIQUE INDEX IF NOT EXISTS idx_collateral_active_owner ON collateral_positions(owner) WHERE active = 1;

	-- Buy-now-pay-later purchases
	CREATE TABLE IF NOT EXISTS purchases (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		buyer TEXT NOT NULL,
		merchant TEXT NOT NULL,
		item TEXT NOT NULL,
		total_price TEXT NOT NULL,
		installments INTEGER NOT NULL,
		installments_paid INTEGER NOT NULL DEFAULT 0,
		paid_amount TEXT NOT NULL DEFAULT '0',
		loan_id INTEGER NOT NULL UNIQUE REFERENCES loans(id),
		completed BOOLEAN NOT NULL DEFAULT 0,
		defaulted BOOLEAN NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_purchases_buyer ON purchases(buyer);
	CREATE INDEX IF NOT EXISTS idx_purchases_merchant ON purchases(merchant);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// Initialize subledger schema
	if err := s.subledger.InitSchema(); err != nil {
		return fmt.Errorf("unable to initialize subledger schema: %w", err)
	}
	return nil
}

// RunInTx runs fn inside one IMMEDIATE transaction; any error rolls everything back.
func (s *Service) RunInTx(ctx context.Context, fn func(tx store.LedgerTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&txStore{q: tx, now: time.Now().UTC()}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (t *txStore) Post(ctx context.Context, p store.Posting) (*models.LedgerEntry, error) {
	return postInTx(ctx, t.q, p, t.now)
}

func (t *txStore) AccountBalance(ctx context.Context, accountId string) (decimal.Decimal, error) {
	return getBalance(ctx, t.q, accountId)
}

// Report methods

func (s *Service) ListProfiles(ctx context.Context) ([]models.CreditProfile, error) {
	rows, err := s.db.QueryContext(ctx, queryListProfiles)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var profiles []models.CreditProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating profile rows: %w", err)
	}
	return profiles, nil
}

func (s *Service) ListAccountBalances(ctx context.Context) ([]models.AccountBalance, error) {
	return s.subledger.GetAllBalances(ctx)
}

func (s *Service) ListEntries(ctx context.Context, accountId string, limit, offset int) ([]models.LedgerEntry, error) {
	return s.subledger.GetEntries(ctx, accountId, limit, offset)
}

func (s *Service) GetAccountBalance(ctx context.Context, accountId string) (decimal.Decimal, error) {
	return s.subledger.GetBalance(ctx, accountId)
}

func (s *Service) ReconcileAccount(ctx context.Context, accountId string) error {
	return s.subledger.ReconcileBalance(ctx, accountId)
}
