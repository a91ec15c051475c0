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

package main

import (
	"context"
	"flag"
	"fmt"

	"credshield-go/internal/common"
	"credshield-go/internal/config"
	"credshield-go/internal/models"
	"credshield-go/internal/store"

	"go.uber.org/zap"
)

type ledgerStats struct {
	borrowers     int
	accounts      int
	reconciled    int
	reconcileFail int
}

func formatEntryId(id string) string {
	if id == "" {
		return "none"
	}
	if len(id) > 8 {
		return id[:8] + "..."
	}
	return id
}

func printBalance(balance models.AccountBalance, symbol string, isLast bool) {
	fmt.Printf("%s %-50s: %24s (v%d, last_entry: %s, updated: %s)\n",
		common.BoxPrefix(isLast),
		balance.AccountId,
		common.FormatAmount(balance.Balance, symbol),
		balance.Version,
		formatEntryId(balance.LastEntryId),
		balance.UpdatedAt.Format("2006-01-02 15:04:05"))
}

func printBorrower(ctx context.Context, dbService store.LedgerStore, profile models.CreditProfile, symbol string) error {
	collateral, err := dbService.GetAccountBalance(ctx, store.CollateralAccount(profile.Address))
	if err != nil {
		return fmt.Errorf("failed to get collateral balance: %w", err)
	}
	supplied, err := dbService.GetAccountBalance(ctx, store.LenderAccount(profile.Address))
	if err != nil {
		return fmt.Errorf("failed to get lender balance: %w", err)
	}

	fmt.Printf("\n┌─ Borrower: %s\n", profile.Address.Hex())
	fmt.Printf("│  Score: %d (%s), limit %s\n", profile.Score, profile.Tier, common.FormatAmount(profile.CreditLimit, symbol))
	fmt.Printf("│  Loans: %d completed, %d failed\n", profile.LoansCompleted, profile.LoansFailed)
	common.PrintBoxSeparator(78)
	fmt.Printf("%s collateral: %s\n", common.BoxPrefix(false), common.FormatAmount(collateral, symbol))
	fmt.Printf("%s supplied:   %s\n", common.BoxPrefix(true), common.FormatAmount(supplied, symbol))
	return nil
}

func printEntries(ctx context.Context, dbService store.LedgerStore, accountId string, limit int, symbol string) error {
	entries, err := dbService.ListEntries(ctx, accountId, limit, 0)
	if err != nil {
		return fmt.Errorf("failed to list entries: %w", err)
	}

	common.PrintHeader(fmt.Sprintf("ENTRIES: %s (%d)", accountId, len(entries)), common.WideWidth)
	for i, e := range entries {
		fmt.Printf("%s %s %-22s %24s -> %s  %s\n",
			common.BoxPrefix(i == len(entries)-1),
			e.CreatedAt.Format("2006-01-02 15:04:05"),
			e.EntryType,
			common.FormatAmount(e.Amount, symbol),
			common.FormatAmount(e.BalanceAfter, symbol),
			e.Reference)
	}
	return nil
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	addressFlag := flag.String("address", "", "Filter by borrower address (optional)")
	entriesFlag := flag.String("entries", "", "Show the entry history of one account, e.g. pool:deposits")
	limitFlag := flag.Int("limit", 50, "Maximum entries to show with --entries")
	reconcileFlag := flag.Bool("reconcile", false, "Check every account balance against its entry history")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}
	symbol := cfg.Chain.NativeSymbol

	// Read-only: no chain, narrative or lock collaborators needed
	logger.Info("Connecting to database", zap.String("path", cfg.Database.Path))
	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	if *entriesFlag != "" {
		if err := printEntries(ctx, dbService, *entriesFlag, *limitFlag, symbol); err != nil {
			logger.Fatal("Failed to show entries", zap.String("account", *entriesFlag), zap.Error(err))
		}
		return
	}

	profiles, err := common.LoadBorrowers(ctx, dbService, *addressFlag, logger)
	if err != nil {
		logger.Fatal("Failed to load borrowers", zap.Error(err))
	}

	stats := ledgerStats{}
	common.PrintHeader("CREDIT LEDGER REPORT", common.WideWidth)
	for _, p := range profiles {
		if err := printBorrower(ctx, dbService, p, symbol); err != nil {
			logger.Error("Failed to process borrower", zap.String("address", p.Address.Hex()), zap.Error(err))
			continue
		}
		stats.borrowers++
	}

	balances, err := dbService.ListAccountBalances(ctx)
	if err != nil {
		logger.Fatal("Failed to list account balances", zap.Error(err))
	}
	stats.accounts = len(balances)

	common.PrintSeparatorNewline("-", common.WideWidth)
	fmt.Println("Accounts")
	for i, b := range balances {
		printBalance(b, symbol, i == len(balances)-1)
	}

	if *reconcileFlag {
		for _, b := range balances {
			if err := dbService.ReconcileAccount(ctx, b.AccountId); err != nil {
				stats.reconcileFail++
				logger.Error("Reconciliation failed", zap.String("account", b.AccountId), zap.Error(err))
				continue
			}
			stats.reconciled++
		}
	}

	summary := fmt.Sprintf("SUMMARY: %d borrowers, %d accounts", stats.borrowers, stats.accounts)
	if *reconcileFlag {
		summary += fmt.Sprintf(", %d reconciled, %d mismatched", stats.reconciled, stats.reconcileFail)
	}
	common.PrintFooter(summary, common.WideWidth)

	logger.Info("Ledger report completed",
		zap.Int("borrowers", stats.borrowers),
		zap.Int("accounts", stats.accounts),
		zap.Int("reconcile_failures", stats.reconcileFail))
}
