package scoring

import (
	"fmt"

	"credshield-go/internal/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

const (
	assetBalanceTargetUnits = 5
	assetTokenTarget        = 10
	assetSubScoreMax        = 45
	stablecoinBonus         = 20
	blueChipBonus           = 15
	blueChipExcellentBonus  = 10
)

// AssetHealth scores native balance, token diversity and stablecoin/blue-chip exposure.
func (s *Scorer) AssetHealth(snap models.ActivitySnapshot) models.DimensionScore {
	var details []string

	balance := snap.NativeBalance
	if balance.IsNegative() {
		balance = decimal.Zero
	}
	balanceScore := balanceSubScore(balance)
	details = append(details, fmt.Sprintf("%s %s balance (%d/45)", models.FormatUnits(balance, 4), s.nativeSymbol, balanceScore))

	tokens := make(map[common.Address]struct{})
	blueChips := make(map[common.Address]struct{})
	stable := false
	for _, tr := range snap.TokenTransfers {
		tokens[tr.TokenContract] = struct{}{}
		if s.tokens.IsBlueChip(tr.TokenContract) {
			blueChips[tr.TokenContract] = struct{}{}
		}
		if s.tokens.IsStablecoin(tr.TokenContract) {
			stable = true
		}
	}
	diversity := capped(int64(len(tokens)), assetTokenTarget, assetSubScoreMax)
	details = append(details, fmt.Sprintf("%d unique tokens held/transferred (%d/45)", len(tokens), diversity))

	quality := 0
	if stable {
		quality += stablecoinBonus
		details = append(details, "Stablecoin holdings detected (+20)")
	}
	if len(blueChips) >= 2 {
		quality += blueChipBonus
		details = append(details, "Blue-chip diversification (+15)")
	}
	if len(blueChips) >= 4 {
		quality += blueChipExcellentBonus
		details = append(details, "Excellent diversification (+10)")
	}

	return dimension("Asset Health", balanceScore+quality+diversity, AssetMax, 1500, details)
}

// balanceSubScore is min(45, floor(balanceWei * 45 / (5 * 10^18))).
func balanceSubScore(balanceWei decimal.Decimal) int {
	den := models.ToWei(decimal.NewFromInt(assetBalanceTargetUnits))
	q, _ := balanceWei.Mul(decimal.NewFromInt(assetSubScoreMax)).QuoRem(den, 0)
	if q.GreaterThanOrEqual(decimal.NewFromInt(assetSubScoreMax)) {
		return assetSubScoreMax
	}
	return int(q.IntPart())
}
