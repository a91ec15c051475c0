package scoring

import (
	"fmt"

	"credshield-go/internal/models"
)

const (
	secondsPerMonth     = 30 * 24 * 60 * 60
	maturityAgeMonths   = 24
	maturityTxTarget    = 200
	maturitySubScoreMax = 60
)

// WalletMaturity scores account age, month-over-month consistency and transaction volume.
func (s *Scorer) WalletMaturity(snap models.ActivitySnapshot) models.DimensionScore {
	const name = "Wallet Maturity"
	txs := snap.Transactions
	if len(txs) == 0 {
		return dimension(name, 0, MaturityMax, 2000, []string{"No transaction history found."})
	}

	oldest := txs[0].Timestamp
	active := make(map[[2]int]struct{})
	for _, tx := range txs {
		if tx.Timestamp.Before(oldest) {
			oldest = tx.Timestamp
		}
		ts := tx.Timestamp.UTC()
		active[[2]int{ts.Year(), int(ts.Month())}] = struct{}{}
	}

	ageSecs := snap.AsOf.Unix() - oldest.Unix()
	if ageSecs < 0 {
		ageSecs = 0
	}
	ageMonths := ageSecs / secondsPerMonth

	var details []string
	ageScore := capped(ageSecs, maturityAgeMonths*secondsPerMonth, maturitySubScoreMax)
	details = append(details, fmt.Sprintf("Wallet age: %d months (%d/60)", ageMonths, ageScore))

	// Denominator is max(1, ageMonths) with fractional months.
	activeMonths := int64(len(active))
	var consistency int
	totalMonths := ageMonths
	if ageSecs <= secondsPerMonth {
		consistency = capped(activeMonths, 1, maturitySubScoreMax)
		totalMonths = 1
	} else {
		consistency = capped(activeMonths*secondsPerMonth, ageSecs, maturitySubScoreMax)
	}
	details = append(details, fmt.Sprintf("Active %d/%d months (%d/60)", activeMonths, totalMonths, consistency))

	volume := capped(int64(len(txs)), maturityTxTarget, maturitySubScoreMax)
	details = append(details, fmt.Sprintf("%d transactions (%d/60)", len(txs), volume))

	return dimension(name, ageScore+consistency+volume, MaturityMax, 2000, details)
}
