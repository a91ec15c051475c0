package scoring

import (
	"strings"

	"credshield-go/internal/models"
)

const socialSignal = 15

var (
	governanceVocabulary = []string{"vote", "delegate", "propose"}
	bridgeVocabulary     = []string{"bridge", "relay", "swap"}
)

// SocialVerification awards fixed points for NFT/domain, governance and cross-chain signals.
func (s *Scorer) SocialVerification(snap models.ActivitySnapshot) models.DimensionScore {
	var details []string
	score := 0

	for _, tr := range snap.TokenTransfers {
		if tr.TokenDecimals == 0 {
			score += socialSignal
			details = append(details, "NFT/domain activity detected (+15)")
			break
		}
	}
	if anyFunctionMatches(snap.Transactions, governanceVocabulary) {
		score += socialSignal
		details = append(details, "Governance participation detected (+15)")
	}
	if anyFunctionMatches(snap.Transactions, bridgeVocabulary) {
		score += socialSignal
		details = append(details, "Cross-chain/bridge activity detected (+15)")
	}
	if score == 0 {
		details = append(details, "No social verification signals found")
	}

	return dimension("Social Verification", score, SocialMax, 500, details)
}

func anyFunctionMatches(txs []models.Transaction, words []string) bool {
	for _, tx := range txs {
		fn := strings.ToLower(tx.FunctionName)
		if fn == "" {
			continue
		}
		for _, w := range words {
			if strings.Contains(fn, w) {
				return true
			}
		}
	}
	return false
}
