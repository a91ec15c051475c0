package lending

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckout_Validation(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()
	env.fund(t, units(10))

	_, err := env.engine.Checkout(ctx, alice, merchant, "Headphones", wei(900), 1)
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = env.engine.Checkout(ctx, alice, merchant, "Headphones", wei(900), 7)
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = env.engine.Checkout(ctx, alice, merchant, "  ", wei(900), 3)
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = env.engine.Checkout(ctx, alice, common.Address{}, "Headphones", wei(900), 3)
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = env.engine.Checkout(ctx, alice, merchant, "Headphones", wei(0), 3)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestCheckout_PayOff(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()
	env.score(t, alice, 700)
	env.fund(t, units(10))

	result, err := env.engine.Checkout(ctx, alice, merchant, "Headphones", wei(900), 3)
	require.NoError(t, err)
	purchase := result.Purchase
	assert.Equal(t, result.Quote.Loan.Id, purchase.LoanId)
	assert.Equal(t, "Headphones", purchase.Item)
	assert.Equal(t, 3, purchase.Installments)
	assertAmount(t, decimal.Zero, purchase.PaidAmount)
	assertAmount(t, wei(936), result.Quote.Loan.TotalAmount)

	_, err = env.engine.Checkout(ctx, alice, merchant, "Speaker", wei(100), 2)
	assert.ErrorIs(t, err, ErrActiveLoanExists)

	_, err = env.engine.RecordPurchaseInstallment(ctx, bob, purchase.Id)
	assert.ErrorIs(t, err, ErrNotBorrower)

	for i := 1; i <= 3; i++ {
		repayment, err := env.engine.RecordPurchaseInstallment(ctx, alice, purchase.Id)
		require.NoError(t, err)
		require.NotNil(t, repayment.Purchase)
		assert.Equal(t, i, repayment.Purchase.InstallmentsPaid)
		assertAmount(t, wei(312*int64(i)), repayment.Purchase.PaidAmount)
		assert.Equal(t, i == 3, repayment.Purchase.Completed)
	}

	_, err = env.engine.RecordPurchaseInstallment(ctx, alice, purchase.Id)
	assert.ErrorIs(t, err, ErrPurchaseCompleted)
	_, err = env.engine.RecordPurchaseInstallment(ctx, alice, 999)
	assert.ErrorIs(t, err, ErrPurchaseNotFound)

	byBuyer, err := env.engine.PurchasesByBuyer(ctx, alice)
	require.NoError(t, err)
	require.Len(t, byBuyer, 1)
	assert.True(t, byBuyer[0].Completed)

	byMerchant, err := env.engine.PurchasesByMerchant(ctx, merchant)
	require.NoError(t, err)
	assert.Len(t, byMerchant, 1)
	none, err := env.engine.PurchasesByMerchant(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, none)

	stats, err := env.engine.PurchaseStats(ctx)
	require.NoError(t, err)
	assertAmount(t, wei(900), stats.Volume)
	assert.Equal(t, int64(1), stats.Count)

	profile, err := env.engine.GetProfile(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 715, profile.Score)
	env.assertReconciled(t)
}

func TestCheckout_PaidAmountTracksInstallments(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()
	env.score(t, alice, 850) // Platinum, 200 bps
	env.fund(t, units(10))

	result, err := env.engine.Checkout(ctx, alice, merchant, "Bike", wei(900), 3)
	require.NoError(t, err)
	assertAmount(t, wei(918), result.Quote.Loan.TotalAmount)

	repayment, err := env.engine.RecordPurchaseInstallment(ctx, alice, result.Purchase.Id)
	require.NoError(t, err)
	assertAmount(t, wei(306), repayment.Paid)
	assertAmount(t, wei(306), repayment.Purchase.PaidAmount)

	byBuyer, err := env.engine.PurchasesByBuyer(ctx, alice)
	require.NoError(t, err)
	require.Len(t, byBuyer, 1)
	assertAmount(t, wei(306), byBuyer[0].PaidAmount)
	assert.Equal(t, 1, byBuyer[0].InstallmentsPaid)
	assert.False(t, byBuyer[0].Completed)
}

func TestCheckout_DefaultClosesPurchase(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()
	env.score(t, alice, 700)
	env.fund(t, units(10))

	result, err := env.engine.Checkout(ctx, alice, merchant, "Headphones", wei(900), 3)
	require.NoError(t, err)
	_, err = env.engine.RecordPurchaseInstallment(ctx, alice, result.Purchase.Id)
	require.NoError(t, err)

	_, err = env.engine.MarkDefault(ctx, operator, result.Quote.Loan.Id)
	require.NoError(t, err)

	byBuyer, err := env.engine.PurchasesByBuyer(ctx, alice)
	require.NoError(t, err)
	require.Len(t, byBuyer, 1)
	assert.True(t, byBuyer[0].Defaulted)
	assert.False(t, byBuyer[0].Completed)
	assert.Equal(t, 1, byBuyer[0].InstallmentsPaid)
	assertAmount(t, wei(312), byBuyer[0].PaidAmount)

	_, err = env.engine.RecordPurchaseInstallment(ctx, alice, result.Purchase.Id)
	assert.ErrorIs(t, err, ErrPurchaseDefaulted)
	env.assertReconciled(t)
}
