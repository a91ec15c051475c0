package store

import (
	"context"
	"testing"

	"credshield-go/internal/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestAccountIdentifiers(t *testing.T) {
	addr := common.HexToAddress("0x00000000000000000000000000000000000000aa")

	assert.Equal(t, "lender:"+addr.Hex(), LenderAccount(addr))
	assert.Equal(t, "collateral:"+addr.Hex(), CollateralAccount(addr))
	assert.Equal(t, "loan:42", LoanAccount(42))
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	ctx := context.Background()

	assert.NoError(t, p.PersistScore(ctx, common.Address{}, 700, models.TierGold, common.Hash{}))
	assert.NoError(t, p.PersistLoanOutcome(ctx, common.Address{}, 1, true, decimal.NewFromInt(1)))
	assert.NoError(t, p.PersistCollateralOp(ctx, models.CollateralOp{Kind: models.CollateralDeposit}))
}
