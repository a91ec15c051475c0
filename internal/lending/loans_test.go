package lending

import (
	"context"
	"sync"
	"testing"
	"time"

	"credshield-go/internal/models"
	"credshield-go/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const period = 30 * 24 * time.Hour

func TestLoanTerms(t *testing.T) {
	tests := []struct {
		principal, rate    int64
		installments       int
		total, installment int64
	}{
		{900, 400, 3, 936, 312},
		{1000, 800, 3, 1080, 360},
		{1001, 0, 3, 1001, 333},
		{100, 0, 3, 100, 33},
		{999, 200, 12, 1018, 84},
	}
	for _, tt := range tests {
		total, installment := LoanTerms(wei(tt.principal), tt.rate, tt.installments)
		assertAmount(t, wei(tt.total), total)
		assertAmount(t, wei(tt.installment), installment)
	}
}

func TestSchedule_FinalInstallmentAbsorbsResidue(t *testing.T) {
	total, installment := LoanTerms(wei(1001), 0, 3)
	loan := models.Loan{TotalAmount: total, InstallmentAmount: installment, TotalInstallments: 3, CreatedAt: t0}

	schedule := Schedule(loan, period)
	require.Len(t, schedule, 3)
	assertAmount(t, wei(333), schedule[0].Amount)
	assertAmount(t, wei(333), schedule[1].Amount)
	assertAmount(t, wei(335), schedule[2].Amount)
	for i, due := range schedule {
		assert.Equal(t, i+1, due.Number)
		assert.Equal(t, t0.Add(time.Duration(i+1)*period), due.DueAt)
	}

	sum := schedule[0].Amount.Add(schedule[1].Amount).Add(schedule[2].Amount)
	assertAmount(t, total, sum)
}

func TestRequiredCollateral(t *testing.T) {
	assertAmount(t, units(750), RequiredCollateral(units(1000), 7500))
	assertAmount(t, units(1250), RequiredCollateral(units(1000), 12500))
	assertAmount(t, wei(1), RequiredCollateral(wei(3), 5000))
}

func TestCreateLoan_RepayToCompletion(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()
	env.score(t, alice, 700)
	env.fund(t, units(10))

	quote, err := env.engine.CreateLoan(ctx, alice, wei(900), 3)
	require.NoError(t, err)
	loan := quote.Loan
	assert.Equal(t, models.TierGold, quote.Tier)
	assertAmount(t, wei(936), loan.TotalAmount)
	assertAmount(t, wei(312), loan.InstallmentAmount)
	assertAmount(t, wei(675), loan.CollateralAmount)
	assert.Equal(t, t0.Add(period), loan.NextDueAt)
	require.Len(t, quote.Schedule, 3)

	position, err := env.engine.GetCollateral(ctx, alice)
	require.NoError(t, err)
	require.NotNil(t, position.LoanId)
	assert.Equal(t, loan.Id, *position.LoanId)
	assertAmount(t, wei(675), position.Amount)
	assertAmount(t, wei(900), env.balance(t, store.AccountPoolBorrowed))
	assertAmount(t, wei(-936), env.balance(t, store.LoanAccount(loan.Id)))

	for i := 1; i <= 3; i++ {
		result, err := env.engine.RepayInstallment(ctx, alice, loan.Id)
		require.NoError(t, err)
		assertAmount(t, wei(312), result.Paid)
		assert.Equal(t, i, result.Loan.InstallmentsPaid)
		assert.Equal(t, i == 3, result.Completed)
		assertAmount(t, wei(936-312*int64(i)), result.Loan.RemainingAmount)
		assert.Nil(t, result.Purchase)
	}

	loan2, err := env.engine.GetLoan(ctx, loan.Id)
	require.NoError(t, err)
	assert.False(t, loan2.Active)
	assert.False(t, loan2.Defaulted)
	require.NotNil(t, loan2.ClosedAt)

	active, err := env.engine.ActiveLoan(ctx, alice)
	require.NoError(t, err)
	assert.Nil(t, active)

	profile, err := env.engine.GetProfile(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 715, profile.Score)
	assert.Equal(t, int64(1), profile.LoansCompleted)
	assertAmount(t, wei(936), profile.TotalRepaid)

	position, err = env.engine.GetCollateral(ctx, alice)
	require.NoError(t, err)
	assert.Nil(t, position.LoanId)

	stats, err := env.engine.PoolStats(ctx)
	require.NoError(t, err)
	assertAmount(t, decimal0(), stats.TotalBorrowed)
	assertAmount(t, units(10).Add(wei(36)), stats.TotalDeposits)
	assert.Equal(t, int64(1), stats.LoansIssued)
	assert.Equal(t, int64(1), stats.LoansRepaid)

	assertAmount(t, decimal0(), env.balance(t, store.LoanAccount(loan.Id)))
	require.Len(t, env.publisher.outcomes, 1)
	assert.True(t, env.publisher.outcomes[0].success)
	assert.Equal(t, loan.Id, env.publisher.outcomes[0].loanId)
	env.assertReconciled(t)
}

func TestCreateLoan_CompletesExactlyOnFinalInstallment(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()
	env.score(t, alice, 850) // Platinum, 200 bps
	env.fund(t, units(1))

	quote, err := env.engine.CreateLoan(ctx, alice, wei(1001), 3)
	require.NoError(t, err)
	assertAmount(t, wei(1021), quote.Loan.TotalAmount)
	assertAmount(t, wei(340), quote.Loan.InstallmentAmount)
	assertAmount(t, wei(341), quote.Schedule[2].Amount)

	var paid []int64
	for i := 0; i < 3; i++ {
		result, err := env.engine.RepayInstallment(ctx, alice, quote.Loan.Id)
		require.NoError(t, err)
		paid = append(paid, result.Paid.IntPart())
		assert.Equal(t, i == 2, result.Completed)
	}
	assert.Equal(t, []int64{340, 340, 341}, paid)

	_, err = env.engine.RepayInstallment(ctx, alice, quote.Loan.Id)
	assert.ErrorIs(t, err, ErrLoanNotActive)
	env.assertReconciled(t)
}

func TestCreateLoan_Validation(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()
	env.fund(t, units(10))

	_, err := env.engine.CreateLoan(ctx, alice, wei(100), 1)
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = env.engine.CreateLoan(ctx, alice, wei(100), 13)
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = env.engine.CreateLoan(ctx, alice, wei(0), 3)
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = env.engine.CreateLoan(ctx, alice, wei(-5), 3)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestCreateLoan_Errors(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()

	// Unscored borrowers get the Bronze limit of 500
	_, err := env.engine.CreateLoan(ctx, alice, units(501), 3)
	assert.ErrorIs(t, err, ErrCreditLimitExceeded)

	_, err = env.engine.CreateLoan(ctx, alice, units(1), 3)
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)

	env.fund(t, units(100))
	_, err = env.engine.CreateLoan(ctx, alice, units(101), 3)
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)

	quote, err := env.engine.CreateLoan(ctx, alice, units(10), 3)
	require.NoError(t, err)
	assertAmount(t, decimal.RequireFromString("12500000000000000000"), quote.Loan.CollateralAmount)
	assertAmount(t, decimal.RequireFromString("10800000000000000000"), quote.Loan.TotalAmount)

	// The active-loan check runs before the credit limit
	_, err = env.engine.CreateLoan(ctx, alice, units(501), 3)
	assert.ErrorIs(t, err, ErrActiveLoanExists)
	_, err = env.engine.CreateLoan(ctx, alice, units(1), 3)
	assert.ErrorIs(t, err, ErrActiveLoanExists)
}

func TestCreateLoan_LinksFreeCollateral(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()
	env.score(t, alice, 700)
	env.fund(t, units(10))

	deposited, err := env.engine.DepositCollateral(ctx, alice, units(1), nil)
	require.NoError(t, err)
	published := len(env.publisher.collateral)

	quote, err := env.engine.CreateLoan(ctx, alice, wei(900), 3)
	require.NoError(t, err)

	position, err := env.engine.GetCollateral(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, deposited.Id, position.Id)
	require.NotNil(t, position.LoanId)
	assert.Equal(t, quote.Loan.Id, *position.LoanId)
	assertAmount(t, units(1), position.Amount, "a covering position is not topped up")
	assertAmount(t, units(1), env.balance(t, store.CollateralAccount(alice)))
	assert.Len(t, env.publisher.collateral, published, "nothing new was locked")

	_, err = env.engine.WithdrawCollateral(ctx, alice)
	assert.ErrorIs(t, err, ErrCollateralLocked)
	env.assertReconciled(t)
}

func TestCreateLoan_BorrowAgainAfterRepayment(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()
	env.score(t, alice, 700)
	env.fund(t, units(10))

	first, err := env.engine.CreateLoan(ctx, alice, wei(900), 3)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := env.engine.RepayInstallment(ctx, alice, first.Loan.Id)
		require.NoError(t, err)
	}
	released, err := env.engine.GetCollateral(ctx, alice)
	require.NoError(t, err)
	require.Nil(t, released.LoanId)

	// The yield reserve was never funded, so the released position cannot be withdrawn.
	env.clock.Advance(48 * time.Hour)
	assertAmount(t, decimal.Zero, env.balance(t, store.AccountYieldReserve))

	second, err := env.engine.CreateLoan(ctx, alice, wei(900), 3)
	require.NoError(t, err)

	position, err := env.engine.GetCollateral(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, released.Id, position.Id)
	require.NotNil(t, position.LoanId)
	assert.Equal(t, second.Loan.Id, *position.LoanId)
	assertAmount(t, wei(675), position.Amount)
	assert.True(t, position.DepositedAt.Equal(t0), "deposit time is kept when nothing is added")
	assertAmount(t, wei(675), env.balance(t, store.CollateralAccount(alice)))

	_, err = env.engine.WithdrawCollateral(ctx, alice)
	assert.ErrorIs(t, err, ErrCollateralLocked)
	env.assertReconciled(t)
}

func TestCreateLoan_TopsUpReleasedCollateral(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()
	env.score(t, alice, 700)
	env.fund(t, units(10))

	first, err := env.engine.CreateLoan(ctx, alice, wei(900), 3)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := env.engine.RepayInstallment(ctx, alice, first.Loan.Id)
		require.NoError(t, err)
	}
	env.clock.Advance(48 * time.Hour)

	second, err := env.engine.CreateLoan(ctx, alice, wei(1800), 3)
	require.NoError(t, err)
	assertAmount(t, wei(1350), second.Loan.CollateralAmount)

	position, err := env.engine.GetCollateral(ctx, alice)
	require.NoError(t, err)
	assertAmount(t, wei(1350), position.Amount)
	assert.True(t, position.DepositedAt.Equal(t0.Add(24*time.Hour)), "got %s", position.DepositedAt)
	assertAmount(t, wei(1350), env.balance(t, store.CollateralAccount(alice)))

	require.NotEmpty(t, env.publisher.collateral)
	op := env.publisher.collateral[len(env.publisher.collateral)-1]
	assert.Equal(t, models.CollateralDeposit, op.Kind)
	assert.True(t, op.TopUp)
	assert.Equal(t, position.Id, op.PositionId)
	assertAmount(t, wei(675), op.Amount)
	require.NotNil(t, op.LoanId)
	assert.Equal(t, second.Loan.Id, *op.LoanId)
	env.assertReconciled(t)
}

func TestRebaseDeposit(t *testing.T) {
	now := t0.Add(48 * time.Hour)
	assert.Equal(t, t0.Add(24*time.Hour), rebaseDeposit(wei(675), wei(1350), t0, now))
	assert.Equal(t, t0, rebaseDeposit(wei(675), wei(675), t0, now))
	assert.Equal(t, now, rebaseDeposit(wei(675), wei(1350), now, now))
	assert.Equal(t, now, rebaseDeposit(wei(675), decimal.Zero, t0, now))

	// accrual at the new amount from the rebased time matches the old accrual
	rebased := rebaseDeposit(units(1000), units(2000), t0, t0.Add(10*day))
	assertAmount(t, AccruedYield(units(1000), 14, t0, t0.Add(10*day)), AccruedYield(units(2000), 14, rebased, t0.Add(10*day)))
}

func TestCreateLoan_ConcurrentSingleWinner(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()
	env.score(t, alice, 700)
	env.fund(t, units(100))

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.engine.CreateLoan(ctx, alice, units(1), 3)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrActiveLoanExists)
	}
	assert.Equal(t, 1, succeeded)

	loans, err := env.engine.LoansByBorrower(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, loans, 1)
	assertAmount(t, units(1), env.balance(t, store.AccountPoolBorrowed))
}

func TestRepayInstallment_Errors(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()
	env.fund(t, units(10))

	_, err := env.engine.RepayInstallment(ctx, alice, 42)
	assert.ErrorIs(t, err, ErrLoanNotFound)

	quote, err := env.engine.CreateLoan(ctx, alice, units(1), 2)
	require.NoError(t, err)

	_, err = env.engine.RepayInstallment(ctx, bob, quote.Loan.Id)
	assert.ErrorIs(t, err, ErrNotBorrower)

	loan, err := env.engine.GetLoan(ctx, quote.Loan.Id)
	require.NoError(t, err)
	assert.Equal(t, 0, loan.InstallmentsPaid)
}

func TestRepayInstallment_AdvancesDueDate(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()
	env.fund(t, units(10))

	quote, err := env.engine.CreateLoan(ctx, alice, units(1), 4)
	require.NoError(t, err)
	result, err := env.engine.RepayInstallment(ctx, alice, quote.Loan.Id)
	require.NoError(t, err)
	assert.Equal(t, t0.Add(2*period), result.Loan.NextDueAt.UTC())
}

func TestMarkDefault(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()
	env.score(t, alice, 700)
	env.fund(t, units(10))

	quote, err := env.engine.CreateLoan(ctx, alice, wei(900), 3)
	require.NoError(t, err)
	_, err = env.engine.RepayInstallment(ctx, alice, quote.Loan.Id)
	require.NoError(t, err)
	_, err = env.engine.RecordOutcome(ctx, operator, alice, true, wei(1))
	require.NoError(t, err)

	loan, err := env.engine.MarkDefault(ctx, operator, quote.Loan.Id)
	require.NoError(t, err)
	assert.False(t, loan.Active)
	assert.True(t, loan.Defaulted)
	require.NotNil(t, loan.ClosedAt)

	profile, err := env.engine.GetProfile(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 615, profile.Score)
	assert.Equal(t, models.TierSilver, profile.Tier)
	assert.Equal(t, int64(1), profile.LoansFailed)
	assertAmount(t, wei(624), profile.TotalBorrowed)

	history, err := env.engine.GetHistory(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(0), history.CurrentStreak)
	assert.Equal(t, int64(1), history.LongestStreak)

	_, err = env.engine.GetCollateral(ctx, alice)
	assert.ErrorIs(t, err, ErrNoActiveCollateral)

	// deposits + repaid 312 + seized 675 - principal 900
	assertAmount(t, units(10).Add(wei(87)), env.balance(t, store.AccountPoolDeposits))
	assertAmount(t, decimal0(), env.balance(t, store.AccountPoolBorrowed))
	assertAmount(t, decimal0(), env.balance(t, store.LoanAccount(loan.Id)))
	assertAmount(t, decimal0(), env.balance(t, store.CollateralAccount(alice)))

	_, err = env.engine.MarkDefault(ctx, operator, quote.Loan.Id)
	assert.ErrorIs(t, err, ErrLoanNotActive)
	_, err = env.engine.MarkDefault(ctx, operator, 999)
	assert.ErrorIs(t, err, ErrLoanNotFound)

	require.Len(t, env.publisher.collateral, 2)
	assert.Equal(t, models.CollateralSeize, env.publisher.collateral[1].Kind)
	assert.False(t, env.publisher.outcomes[len(env.publisher.outcomes)-1].success)
	env.assertReconciled(t)
}

func TestMarkDefault_FailureFromSeededScore(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()
	env.fund(t, units(10))

	quote, err := env.engine.CreateLoan(ctx, alice, units(1), 2)
	require.NoError(t, err)
	_, err = env.engine.MarkDefault(ctx, operator, quote.Loan.Id)
	require.NoError(t, err)

	profile, err := env.engine.GetProfile(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 300, profile.Score)
}

func TestPublisherFailureDoesNotFailRepayment(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()
	env.fund(t, units(10))
	env.publisher.failOutcome = true

	quote, err := env.engine.CreateLoan(ctx, alice, units(1), 2)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err = env.engine.RepayInstallment(ctx, alice, quote.Loan.Id)
		require.NoError(t, err)
	}
	assert.Empty(t, env.publisher.outcomes)
}

func TestOverdueLoans(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()
	env.fund(t, units(10))

	quote, err := env.engine.CreateLoan(ctx, alice, units(1), 3)
	require.NoError(t, err)

	overdue, err := env.engine.OverdueLoans(ctx, t0.Add(period-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, overdue)

	overdue, err = env.engine.OverdueLoans(ctx, t0.Add(period+5*24*time.Hour+time.Hour))
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, quote.Loan.Id, overdue[0].Loan.Id)
	assert.Equal(t, int64(5), overdue[0].OverdueDays)
}
