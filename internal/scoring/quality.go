package scoring

import (
	"fmt"

	"credshield-go/internal/models"

	"github.com/ethereum/go-ethereum/common"
)

const (
	qualityContractTarget = 20
	qualitySubScoreMax    = 60
)

// isContractCall reports whether a transaction invoked a function on a destination contract.
func isContractCall(tx models.Transaction) bool {
	return tx.To != nil && (tx.FunctionName != "" || tx.Selector != "")
}

// TransactionQuality scores success rate, audited-protocol share of contract calls and contract diversity.
func (s *Scorer) TransactionQuality(snap models.ActivitySnapshot) models.DimensionScore {
	const name = "Transaction Quality"
	txs := snap.Transactions
	if len(txs) == 0 {
		return dimension(name, 0, QualityMax, 2000, []string{"No transactions."})
	}

	var details []string
	total := int64(len(txs))
	var succeeded, calls, audited int64
	contracts := make(map[common.Address]struct{})
	for _, tx := range txs {
		if tx.Succeeded {
			succeeded++
		}
		if !isContractCall(tx) {
			continue
		}
		calls++
		contracts[*tx.To] = struct{}{}
		if p, ok := s.protocols.Classify(*tx.To); ok && p.Audited {
			audited++
		}
	}

	successScore := capped(succeeded, total, qualitySubScoreMax)
	details = append(details, fmt.Sprintf("%d%% success rate (%d/60)", percent(succeeded, total), successScore))

	auditedScore := capped(audited, calls, qualitySubScoreMax)
	details = append(details, fmt.Sprintf("%d%% interactions with audited protocols (%d/60)", percent(audited, calls), auditedScore))

	diversity := capped(int64(len(contracts)), qualityContractTarget, qualitySubScoreMax)
	details = append(details, fmt.Sprintf("%d unique contracts interacted with (%d/60)", len(contracts), diversity))

	return dimension(name, successScore+auditedScore+diversity, QualityMax, 2000, details)
}
