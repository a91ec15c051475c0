package lending

import (
	"context"
	"testing"
	"time"

	"credshield-go/internal/models"
	"credshield-go/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const day = 24 * time.Hour

func TestAccruedYield(t *testing.T) {
	assertAmount(t, units(14), AccruedYield(units(1000), 14, t0, t0.Add(10*day)))
	assertAmount(t, decimal.RequireFromString("12600000000000000000"), AccruedYield(units(1000), 14, t0, t0.Add(10*day-time.Second)))
	assertAmount(t, wei(9), AccruedYield(wei(675), 14, t0, t0.Add(10*day)))
	assert.True(t, AccruedYield(units(1000), 14, t0, t0.Add(-day)).IsZero())
	assert.True(t, AccruedYield(units(1000), 0, t0, t0.Add(10*day)).IsZero())
}

func TestCollateral_DepositYieldWithdraw(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()

	position, err := env.engine.DepositCollateral(ctx, alice, units(1000), nil)
	require.NoError(t, err)
	assert.True(t, position.Active)
	assert.Nil(t, position.LoanId)

	_, err = env.engine.DepositCollateral(ctx, alice, units(1), nil)
	assert.ErrorIs(t, err, ErrAlreadyHasCollateral)

	env.clock.Advance(10 * day)
	yield, err := env.engine.CalculateYield(ctx, alice)
	require.NoError(t, err)
	assertAmount(t, units(14), yield)

	_, err = env.engine.WithdrawCollateral(ctx, alice)
	assert.ErrorIs(t, err, ErrInsufficientYieldReserve)

	reserve, err := env.engine.FundYieldReserve(ctx, operator, units(20))
	require.NoError(t, err)
	assertAmount(t, units(20), reserve)

	result, err := env.engine.WithdrawCollateral(ctx, alice)
	require.NoError(t, err)
	assertAmount(t, units(1000), result.Principal)
	assertAmount(t, units(14), result.Yield)
	assertAmount(t, units(1014), result.Total)
	assert.Equal(t, t0.Add(10*day), result.At)

	assertAmount(t, units(6), env.balance(t, store.AccountYieldReserve))
	assertAmount(t, decimal.Zero, env.balance(t, store.CollateralAccount(alice)))

	_, err = env.engine.GetCollateral(ctx, alice)
	assert.ErrorIs(t, err, ErrNoActiveCollateral)
	_, err = env.engine.WithdrawCollateral(ctx, alice)
	assert.ErrorIs(t, err, ErrNoActiveCollateral)
	_, err = env.engine.CalculateYield(ctx, alice)
	assert.ErrorIs(t, err, ErrNoActiveCollateral)

	// A released position frees the slot
	_, err = env.engine.DepositCollateral(ctx, alice, units(2), nil)
	require.NoError(t, err)

	kinds := []models.CollateralOpKind{}
	for _, op := range env.publisher.collateral {
		kinds = append(kinds, op.Kind)
	}
	assert.Equal(t, []models.CollateralOpKind{models.CollateralDeposit, models.CollateralWithdraw, models.CollateralDeposit}, kinds)
	env.assertReconciled(t)
}

func TestCollateral_DepositValidation(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()
	env.fund(t, units(10))

	_, err := env.engine.DepositCollateral(ctx, alice, decimal.Zero, nil)
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = env.engine.DepositCollateral(ctx, alice, decimal.RequireFromString("1.5"), nil)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	missing := int64(999)
	_, err = env.engine.DepositCollateral(ctx, alice, units(1), &missing)
	assert.ErrorIs(t, err, ErrLoanNotFound)

	quote, err := env.engine.CreateLoan(ctx, alice, units(1), 2)
	require.NoError(t, err)
	loanId := quote.Loan.Id
	_, err = env.engine.DepositCollateral(ctx, bob, units(1), &loanId)
	assert.ErrorIs(t, err, ErrNotBorrower)
}

func TestCollateral_LinkToLoanWithoutCollateral(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()
	env.score(t, alice, 850) // 50% ratio floors a 1 wei principal to no collateral
	env.fund(t, units(1))

	quote, err := env.engine.CreateLoan(ctx, alice, wei(1), 2)
	require.NoError(t, err)
	assert.True(t, quote.Loan.CollateralAmount.IsZero())
	_, err = env.engine.GetCollateral(ctx, alice)
	require.ErrorIs(t, err, ErrNoActiveCollateral)

	loanId := quote.Loan.Id
	position, err := env.engine.DepositCollateral(ctx, alice, units(1), &loanId)
	require.NoError(t, err)
	require.NotNil(t, position.LoanId)
	assert.Equal(t, loanId, *position.LoanId)

	_, err = env.engine.WithdrawCollateral(ctx, alice)
	assert.ErrorIs(t, err, ErrCollateralLocked)
}

func TestCollateral_LockedUntilLoanCompletes(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()
	env.score(t, alice, 700)
	env.fund(t, units(10))

	quote, err := env.engine.CreateLoan(ctx, alice, wei(900), 3)
	require.NoError(t, err)

	_, err = env.engine.WithdrawCollateral(ctx, alice)
	assert.ErrorIs(t, err, ErrCollateralLocked)

	for i := 0; i < 3; i++ {
		_, err = env.engine.RepayInstallment(ctx, alice, quote.Loan.Id)
		require.NoError(t, err)
	}

	env.clock.Advance(10 * day)
	_, err = env.engine.FundYieldReserve(ctx, operator, units(1))
	require.NoError(t, err)

	result, err := env.engine.WithdrawCollateral(ctx, alice)
	require.NoError(t, err)
	assertAmount(t, wei(675), result.Principal)
	assertAmount(t, wei(9), result.Yield)
	assertAmount(t, wei(684), result.Total)

	// A completed loan cannot take new collateral
	loanId := quote.Loan.Id
	_, err = env.engine.DepositCollateral(ctx, alice, units(1), &loanId)
	assert.ErrorIs(t, err, ErrLoanNotActive)
	env.assertReconciled(t)
}

func TestSeizeCollateral(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()
	env.fund(t, units(10))

	_, err := env.engine.SeizeCollateral(ctx, operator, alice)
	assert.ErrorIs(t, err, ErrNoActiveCollateral)

	_, err = env.engine.DepositCollateral(ctx, alice, units(5), nil)
	require.NoError(t, err)
	env.clock.Advance(30 * day)

	position, err := env.engine.SeizeCollateral(ctx, operator, alice)
	require.NoError(t, err)
	assert.False(t, position.Active)
	require.NotNil(t, position.ReleasedAt)

	assertAmount(t, units(15), env.balance(t, store.AccountPoolDeposits), "seizure moves the amount but not the yield")
	_, err = env.engine.GetCollateral(ctx, alice)
	assert.ErrorIs(t, err, ErrNoActiveCollateral)
	env.assertReconciled(t)
}
