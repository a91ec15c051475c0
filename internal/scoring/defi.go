package scoring

import (
	"fmt"
	"strings"

	"credshield-go/internal/models"
	"credshield-go/internal/reference"

	"github.com/ethereum/go-ethereum/common"
)

const (
	defiProtocolTarget    = 5
	defiInteractionTarget = 50
	defiSubScoreMax       = 75
	defiCategoryBonus     = 25
	defiNamesShown        = 5
)

// DeFiExperience scores breadth and depth of known-protocol usage across external and internal transactions.
func (s *Scorer) DeFiExperience(snap models.ActivitySnapshot) models.DimensionScore {
	counts := make(map[common.Address]int64)
	var order []common.Address
	var categories reference.Category

	touch := func(to *common.Address) {
		if to == nil {
			return
		}
		p, ok := s.protocols.Classify(*to)
		if !ok {
			return
		}
		if _, seen := counts[*to]; !seen {
			order = append(order, *to)
		}
		counts[*to]++
		categories |= p.Categories
	}
	for _, tx := range snap.Transactions {
		touch(tx.To)
	}
	for _, itx := range snap.InternalTxs {
		touch(itx.To)
	}

	var details []string

	unique := int64(len(order))
	protocolScore := capped(unique, defiProtocolTarget, defiSubScoreMax)
	names := make([]string, 0, defiNamesShown)
	for _, addr := range order {
		if len(names) == defiNamesShown {
			break
		}
		p, _ := s.protocols.Classify(addr)
		names = append(names, p.Name)
	}
	shown := strings.Join(names, ", ")
	if shown == "" {
		shown = "none"
	}
	details = append(details, fmt.Sprintf("%d DeFi protocols used: %s (%d/75)", unique, shown, protocolScore))

	var total int64
	for _, n := range counts {
		total += n
	}
	interactionScore := capped(total, defiInteractionTarget, defiSubScoreMax)
	details = append(details, fmt.Sprintf("%d total DeFi interactions (%d/75)", total, interactionScore))

	bonus := 0
	if categories.Has(reference.CategoryLending) {
		bonus += defiCategoryBonus
		details = append(details, "Lending activity detected (+25)")
	}
	if categories.Has(reference.CategoryDEX) {
		bonus += defiCategoryBonus
		details = append(details, "LP/DEX activity detected (+25)")
	}
	if categories.Has(reference.CategoryStaking) {
		bonus += defiCategoryBonus
		details = append(details, "Staking activity detected (+25)")
	}

	return dimension("DeFi Experience", protocolScore+interactionScore+bonus, DeFiMax, 2500, details)
}
