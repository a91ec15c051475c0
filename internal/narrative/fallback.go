package narrative

import (
	"fmt"
	"strings"

	"credshield-go/internal/models"
)

// Fallback builds a deterministic report from the dimension data alone.
func Fallback(req Request) string {
	result := req.Result
	tierName := result.Tier.String()
	balance := models.FormatUnits(req.Snapshot.NativeBalance, 4)

	var b strings.Builder
	fmt.Fprintf(&b, "**CredShield Credit Analysis: %s Tier**\n\n", tierName)
	fmt.Fprintf(&b, "Wallet %s has a CredScore of %d/900, placing it in the %s tier. "+
		"The score is based on %d on-chain transactions and a current balance of %s %s.",
		ShortAddress(result.Address), result.Score, tierName, len(req.Snapshot.Transactions), balance, req.symbol())

	strongest, weakest, ok := extremes(result.Dimensions)
	if ok {
		fmt.Fprintf(&b, "\n\nThe strongest dimension is %s (%d/%d): %s.",
			strongest.Name, strongest.Score, strongest.MaxScore, strings.TrimSuffix(strongest.Rationale, "."))
		fmt.Fprintf(&b, "\n\nThe main area for improvement is %s (%d/%d). "+
			"More activity here would raise the CredScore and unlock better lending terms.",
			weakest.Name, weakest.Score, weakest.MaxScore)
	}

	fmt.Fprintf(&b, "\n\nAs a %s tier wallet it qualifies for credit with the collateral ratio, "+
		"credit limit and interest rate defined for that tier.", tierName)
	return b.String()
}

// extremes returns the dimensions with the highest and lowest score/max ratio.
// Ties keep the earlier dimension.
func extremes(dims []models.DimensionScore) (strongest, weakest models.DimensionScore, ok bool) {
	for i, d := range dims {
		if d.MaxScore <= 0 {
			continue
		}
		if !ok {
			strongest, weakest, ok = dims[i], dims[i], true
			continue
		}
		if ratioLess(strongest, d) {
			strongest = d
		}
		if ratioLess(d, weakest) {
			weakest = d
		}
	}
	return strongest, weakest, ok
}

// ratioLess reports a.Score/a.MaxScore < b.Score/b.MaxScore without division.
func ratioLess(a, b models.DimensionScore) bool {
	return a.Score*b.MaxScore < b.Score*a.MaxScore
}
