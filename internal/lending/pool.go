package lending

import (
	"context"
	"fmt"

	"credshield-go/internal/lock"
	"credshield-go/internal/models"
	"credshield-go/internal/store"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DepositLiquidity adds a lender's funds to the pool and returns the lender's new deposit balance.
func (e *Engine) DepositLiquidity(ctx context.Context, lender common.Address, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := requirePositive(amount, "deposit amount"); err != nil {
		return decimal.Zero, e.fail("deposit_liquidity", err)
	}

	var balance decimal.Decimal
	err := e.mutate(ctx, "deposit_liquidity", []string{borrowerKey(lender), lock.PoolKey}, func(tx store.LedgerTx) error {
		ref := "liquidity:deposit:" + uuid.New().String()
		entry, err := tx.Post(ctx, store.Posting{AccountId: store.LenderAccount(lender), EntryType: "liquidity-deposit", Amount: amount, Reference: ref})
		if err != nil {
			return err
		}
		balance = entry.BalanceAfter
		return post(ctx, tx, store.AccountPoolDeposits, "liquidity-deposit", amount, ref)
	})
	if err != nil {
		return decimal.Zero, err
	}

	zap.L().Info("Liquidity deposited",
		zap.String("lender", lender.Hex()),
		zap.String("amount", amount.String()),
		zap.String("balance", balance.String()))
	return balance, nil
}

// WithdrawLiquidity returns funds to a lender, bounded by both their deposit and the unborrowed pool balance.
func (e *Engine) WithdrawLiquidity(ctx context.Context, lender common.Address, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := requirePositive(amount, "withdrawal amount"); err != nil {
		return decimal.Zero, e.fail("withdraw_liquidity", err)
	}

	var balance decimal.Decimal
	err := e.mutate(ctx, "withdraw_liquidity", []string{borrowerKey(lender), lock.PoolKey}, func(tx store.LedgerTx) error {
		deposited, err := tx.AccountBalance(ctx, store.LenderAccount(lender))
		if err != nil {
			return err
		}
		if amount.GreaterThan(deposited) {
			return fmt.Errorf("%w: requested %s, deposited %s", ErrInsufficientDeposit, amount.String(), deposited.String())
		}
		available, err := e.available(ctx, tx)
		if err != nil {
			return err
		}
		if amount.GreaterThan(available) {
			return fmt.Errorf("%w: requested %s, available %s", ErrInsufficientLiquidity, amount.String(), available.String())
		}

		ref := "liquidity:withdraw:" + uuid.New().String()
		entry, err := tx.Post(ctx, store.Posting{AccountId: store.LenderAccount(lender), EntryType: "liquidity-withdrawal", Amount: amount.Neg(), Reference: ref})
		if err != nil {
			return err
		}
		balance = entry.BalanceAfter
		return post(ctx, tx, store.AccountPoolDeposits, "liquidity-withdrawal", amount.Neg(), ref)
	})
	if err != nil {
		return decimal.Zero, err
	}

	zap.L().Info("Liquidity withdrawn",
		zap.String("lender", lender.Hex()),
		zap.String("amount", amount.String()),
		zap.String("balance", balance.String()))
	return balance, nil
}

// FundYieldReserve tops up the reserve that pays collateral yield. Operator only.
func (e *Engine) FundYieldReserve(ctx context.Context, caller common.Address, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := e.requireOperator(caller); err != nil {
		return decimal.Zero, e.fail("fund_reserve", err)
	}
	if err := requirePositive(amount, "reserve amount"); err != nil {
		return decimal.Zero, e.fail("fund_reserve", err)
	}

	var balance decimal.Decimal
	err := e.mutate(ctx, "fund_reserve", []string{lock.PoolKey}, func(tx store.LedgerTx) error {
		entry, err := tx.Post(ctx, store.Posting{
			AccountId: store.AccountYieldReserve,
			EntryType: "reserve-funding",
			Amount:    amount,
			Reference: "reserve:fund:" + uuid.New().String(),
		})
		if err != nil {
			return err
		}
		balance = entry.BalanceAfter
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	zap.L().Info("Yield reserve funded", zap.String("amount", amount.String()), zap.String("balance", balance.String()))
	return balance, nil
}

// LenderBalance returns what a lender has deposited and not withdrawn.
func (e *Engine) LenderBalance(ctx context.Context, lender common.Address) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := e.read(ctx, func(tx store.LedgerTx) error {
		var err error
		balance, err = tx.AccountBalance(ctx, store.LenderAccount(lender))
		return err
	})
	return balance, err
}

func (e *Engine) PoolStats(ctx context.Context) (*models.PoolStats, error) {
	var stats models.PoolStats
	err := e.read(ctx, func(tx store.LedgerTx) error {
		var err error
		if stats.TotalDeposits, err = tx.AccountBalance(ctx, store.AccountPoolDeposits); err != nil {
			return err
		}
		if stats.TotalBorrowed, err = tx.AccountBalance(ctx, store.AccountPoolBorrowed); err != nil {
			return err
		}
		if stats.YieldReserve, err = tx.AccountBalance(ctx, store.AccountYieldReserve); err != nil {
			return err
		}
		counts, err := tx.LoanCounts(ctx)
		if err != nil {
			return err
		}
		stats.LoansIssued = counts.Issued
		stats.LoansRepaid = counts.Repaid
		return nil
	})
	if err != nil {
		return nil, err
	}

	stats.Available = stats.TotalDeposits.Sub(stats.TotalBorrowed)
	if stats.TotalDeposits.IsPositive() {
		q, _ := stats.TotalBorrowed.Mul(decimal.NewFromInt(10000)).QuoRem(stats.TotalDeposits, 0)
		stats.UtilizationBps = q.IntPart()
	}
	return &stats, nil
}
