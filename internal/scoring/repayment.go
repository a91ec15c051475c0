package scoring

import (
	"fmt"

	"credshield-go/internal/models"
	"credshield-go/internal/reference"

	"github.com/ethereum/go-ethereum/common"
)

const (
	repaymentLendingTarget   = 20
	repaymentLendingMax      = 67
	repaymentPartnerTarget   = 5
	repaymentPartnerMax      = 68
	recurringPartnerMinCount = 3
)

// RepaymentHistory approximates repayment behavior from lending-protocol usage and recurring outflows.
func (s *Scorer) RepaymentHistory(snap models.ActivitySnapshot) models.DimensionScore {
	var details []string

	var lending int64
	outflows := make(map[common.Address]int)
	for _, tx := range snap.Transactions {
		if tx.To == nil {
			continue
		}
		if p, ok := s.protocols.Classify(*tx.To); ok && p.Categories.Has(reference.CategoryLending) {
			lending++
		}
		if tx.From == snap.Address {
			outflows[*tx.To]++
		}
	}

	lendingScore := 0
	if lending > 0 {
		lendingScore = capped(lending, repaymentLendingTarget, repaymentLendingMax)
		details = append(details, fmt.Sprintf("%d lending protocol interactions (%d/67)", lending, lendingScore))
	} else {
		details = append(details, "No lending protocol history found (0/67)")
	}

	var recurring int64
	for _, n := range outflows {
		if n >= recurringPartnerMinCount {
			recurring++
		}
	}
	partnerScore := capped(recurring, repaymentPartnerTarget, repaymentPartnerMax)
	details = append(details, fmt.Sprintf("%d recurring transaction partners (%d/68)", recurring, partnerScore))

	return dimension("Repayment History", lendingScore+partnerScore, RepaymentMax, 1500, details)
}
