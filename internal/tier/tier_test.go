package tier

import (
	"errors"
	"testing"

	"credshield-go/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_Boundaries(t *testing.T) {
	tests := []struct {
		score int
		want  models.Tier
	}{
		{300, models.TierBronze},
		{549, models.TierBronze},
		{550, models.TierSilver},
		{699, models.TierSilver},
		{700, models.TierGold},
		{799, models.TierGold},
		{800, models.TierPlatinum},
		{900, models.TierPlatinum},
	}
	for _, tt := range tests {
		got, err := Classify(tt.score)
		require.NoError(t, err, "score %d", tt.score)
		assert.Equal(t, tt.want, got, "score %d", tt.score)
	}
}

func TestClassify_IsTotalOverRange(t *testing.T) {
	prev := models.TierBronze
	for s := MinScore; s <= MaxScore; s++ {
		got, err := Classify(s)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got, prev, "tiers must not decrease as score grows")
		prev = got
	}
}

func TestClassify_OutOfRange(t *testing.T) {
	for _, s := range []int{0, 200, 299, 901, 950} {
		_, err := Classify(s)
		assert.True(t, errors.Is(err, ErrInvalidScoreRange), "score %d", s)
	}
}

func TestParamsFor_Gold(t *testing.T) {
	tr, err := Classify(700)
	require.NoError(t, err)
	p := ParamsFor(tr)

	assert.Equal(t, models.TierGold, tr)
	assert.Equal(t, int64(7500), p.CollateralRatioBps)
	assert.Equal(t, int64(400), p.InterestRateBps)
	assert.True(t, p.CreditLimit.Equal(models.ToWei(decimal.NewFromInt(2000))))
}

func TestParamsFor_AllTiers(t *testing.T) {
	want := map[models.Tier][3]int64{
		models.TierBronze:   {12500, 500, 800},
		models.TierSilver:   {10000, 1000, 600},
		models.TierGold:     {7500, 2000, 400},
		models.TierPlatinum: {5000, 5000, 200},
	}
	for tr, w := range want {
		p := ParamsFor(tr)
		assert.Equal(t, w[0], p.CollateralRatioBps, tr.String())
		assert.True(t, p.CreditLimit.Equal(models.ToWei(decimal.NewFromInt(w[1]))), tr.String())
		assert.Equal(t, w[2], p.InterestRateBps, tr.String())
	}
}

func TestDefaultIsBronze(t *testing.T) {
	assert.Equal(t, ParamsFor(models.TierBronze), Default())
	assert.Equal(t, int64(800), Default().InterestRateBps)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 300, Clamp(250))
	assert.Equal(t, 900, Clamp(915))
	assert.Equal(t, 615, Clamp(615))
}
