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

package store

import (
	"context"
	"errors"
	"time"

	"credshield-go/internal/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrNotFound               = errors.New("record not found")
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrDuplicateEntry         = errors.New("duplicate ledger entry")
)

// Subledger account identifiers.
const (
	AccountPoolDeposits = "pool:deposits"
	AccountPoolBorrowed = "pool:borrowed"
	AccountYieldReserve = "reserve:yield"
)

func LenderAccount(addr common.Address) string {
	return "lender:" + addr.Hex()
}

func CollateralAccount(addr common.Address) string {
	return "collateral:" + addr.Hex()
}

func LoanAccount(loanId int64) string {
	return "loan:" + decimal.NewFromInt(loanId).String()
}

// Posting is a signed movement on one subledger account. Reference must be unique per account
// when set, so that a replayed operation is rejected with ErrDuplicateEntry.
type Posting struct {
	AccountId string
	EntryType string // loan-issued, repayment, collateral-lock, liquidity-deposit, write-off, ...
	Amount    decimal.Decimal
	Reference string
}

// LoanCounts is the number of loans ever issued and the number repaid in full.
type LoanCounts struct {
	Issued int64
	Repaid int64
}

// LedgerTx exposes every read and write the lending engine needs inside one storage transaction.
// Update methods apply optimistic locking on the record's Version and bump it on success.
type LedgerTx interface {
	// --- Profiles ---
	GetProfile(ctx context.Context, addr common.Address) (*models.CreditProfile, error)
	InsertProfile(ctx context.Context, p *models.CreditProfile) error
	UpdateProfile(ctx context.Context, p *models.CreditProfile) error

	// --- Histories ---
	GetHistory(ctx context.Context, addr common.Address) (*models.CreditHistory, error)
	InsertHistory(ctx context.Context, h *models.CreditHistory) error
	UpdateHistory(ctx context.Context, h *models.CreditHistory) error

	// --- Loans ---
	InsertLoan(ctx context.Context, l *models.Loan) error
	GetLoan(ctx context.Context, id int64) (*models.Loan, error)
	GetActiveLoan(ctx context.Context, borrower common.Address) (*models.Loan, error)
	UpdateLoan(ctx context.Context, l *models.Loan) error
	ListLoansByBorrower(ctx context.Context, borrower common.Address) ([]models.Loan, error)
	ListOverdueLoans(ctx context.Context, asOf time.Time) ([]models.Loan, error)
	LoanCounts(ctx context.Context) (LoanCounts, error)

	// --- Collateral ---
	InsertCollateral(ctx context.Context, p *models.CollateralPosition) error
	GetActiveCollateral(ctx context.Context, owner common.Address) (*models.CollateralPosition, error)
	UpdateCollateral(ctx context.Context, p *models.CollateralPosition) error

	// --- Purchases ---
	InsertPurchase(ctx context.Context, p *models.Purchase) error
	GetPurchase(ctx context.Context, id int64) (*models.Purchase, error)
	GetPurchaseByLoan(ctx context.Context, loanId int64) (*models.Purchase, error)
	UpdatePurchase(ctx context.Context, p *models.Purchase) error
	ListPurchasesByBuyer(ctx context.Context, buyer common.Address) ([]models.Purchase, error)
	ListPurchasesByMerchant(ctx context.Context, merchant common.Address) ([]models.Purchase, error)
	PurchaseStats(ctx context.Context) (models.PurchaseStats, error)

	// --- Subledger ---
	Post(ctx context.Context, p Posting) (*models.LedgerEntry, error)
	AccountBalance(ctx context.Context, accountId string) (decimal.Decimal, error)
}

// LedgerStore defines the contract that every backend must satisfy.
type LedgerStore interface {
	// RunInTx runs fn in one transaction, committing when fn returns nil.
	RunInTx(ctx context.Context, fn func(tx LedgerTx) error) error

	// --- Reports ---
	ListProfiles(ctx context.Context) ([]models.CreditProfile, error)
	ListAccountBalances(ctx context.Context) ([]models.AccountBalance, error)
	ListEntries(ctx context.Context, accountId string, limit, offset int) ([]models.LedgerEntry, error)
	GetAccountBalance(ctx context.Context, accountId string) (decimal.Decimal, error)
	ReconcileAccount(ctx context.Context, accountId string) error

	// --- Lifecycle ---
	Close()
}

// Publisher mirrors lending state changes to an external ledger. Calls are best-effort.
type Publisher interface {
	PersistScore(ctx context.Context, addr common.Address, score int, tier models.Tier, fingerprint common.Hash) error
	PersistLoanOutcome(ctx context.Context, addr common.Address, loanId int64, success bool, amount decimal.Decimal) error
	PersistCollateralOp(ctx context.Context, op models.CollateralOp) error
}

// NopPublisher discards everything; used when no external ledger is configured.
type NopPublisher struct{}

func (NopPublisher) PersistScore(context.Context, common.Address, int, models.Tier, common.Hash) error {
	return nil
}

func (NopPublisher) PersistLoanOutcome(context.Context, common.Address, int64, bool, decimal.Decimal) error {
	return nil
}

func (NopPublisher) PersistCollateralOp(context.Context, models.CollateralOp) error {
	return nil
}
