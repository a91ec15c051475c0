package lending

import (
	"context"
	"testing"

	"credshield-go/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_EmptyStats(t *testing.T) {
	env := setupEngine(t)

	stats, err := env.engine.PoolStats(context.Background())
	require.NoError(t, err)
	assert.True(t, stats.TotalDeposits.IsZero())
	assert.True(t, stats.Available.IsZero())
	assert.Equal(t, int64(0), stats.UtilizationBps)
	assert.Equal(t, int64(0), stats.LoansIssued)
}

func TestPool_DepositWithdraw(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()

	balance, err := env.engine.DepositLiquidity(ctx, lender, wei(1500))
	require.NoError(t, err)
	assertAmount(t, wei(1500), balance)
	balance, err = env.engine.DepositLiquidity(ctx, lender, wei(500))
	require.NoError(t, err)
	assertAmount(t, wei(2000), balance)

	_, err = env.engine.DepositLiquidity(ctx, lender, decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = env.engine.WithdrawLiquidity(ctx, lender, wei(-1))
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = env.engine.WithdrawLiquidity(ctx, lender, wei(2001))
	assert.ErrorIs(t, err, ErrInsufficientDeposit)
	_, err = env.engine.WithdrawLiquidity(ctx, bob, wei(1))
	assert.ErrorIs(t, err, ErrInsufficientDeposit)

	_, err = env.engine.CreateLoan(ctx, alice, wei(900), 3)
	require.NoError(t, err)

	stats, err := env.engine.PoolStats(ctx)
	require.NoError(t, err)
	assertAmount(t, wei(2000), stats.TotalDeposits)
	assertAmount(t, wei(900), stats.TotalBorrowed)
	assertAmount(t, wei(1100), stats.Available)
	assert.Equal(t, int64(4500), stats.UtilizationBps)
	assert.Equal(t, int64(1), stats.LoansIssued)
	assert.Equal(t, int64(0), stats.LoansRepaid)

	_, err = env.engine.WithdrawLiquidity(ctx, lender, wei(2000))
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)

	balance, err = env.engine.WithdrawLiquidity(ctx, lender, wei(1100))
	require.NoError(t, err)
	assertAmount(t, wei(900), balance)

	lenderBalance, err := env.engine.LenderBalance(ctx, lender)
	require.NoError(t, err)
	assertAmount(t, wei(900), lenderBalance)

	// Fully utilized pool
	_, err = env.engine.CreateLoan(ctx, bob, wei(1), 2)
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)
	assertAmount(t, wei(900), env.balance(t, store.AccountPoolDeposits))
	env.assertReconciled(t)
}

func TestPool_FundYieldReserve(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()

	_, err := env.engine.FundYieldReserve(ctx, operator, decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	balance, err := env.engine.FundYieldReserve(ctx, operator, units(3))
	require.NoError(t, err)
	assertAmount(t, units(3), balance)
	balance, err = env.engine.FundYieldReserve(ctx, operator, units(2))
	require.NoError(t, err)
	assertAmount(t, units(5), balance)

	stats, err := env.engine.PoolStats(ctx)
	require.NoError(t, err)
	assertAmount(t, units(5), stats.YieldReserve)
	assert.True(t, stats.TotalDeposits.IsZero(), "the reserve is not lendable liquidity")
}
