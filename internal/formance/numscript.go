package formance

import (
	"fmt"
	"strconv"
	"strings"

	"credshield-go/internal/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Numscript templates. Every transaction describes itself through set_tx_meta
// so the ledger can be audited without the local database.
// ---------------------------------------------------------------------------

const numscriptLoanRepaid = `vars {
  asset $asset
  number $amount
  account $borrower
  account $loan
  string $loan_id
}

send [$asset $amount] (
  source = $borrower allowing unbounded overdraft
  destination = $loan
)

set_tx_meta("event_type", "loan_repaid")
set_tx_meta("loan_id", $loan_id)
`

const numscriptLoanDefaulted = `vars {
  asset $asset
  number $amount
  account $loan
  string $loan_id
}

send [$asset $amount] (
  source = $loan allowing unbounded overdraft
  destination = @world
)

set_tx_meta("event_type", "loan_defaulted")
set_tx_meta("loan_id", $loan_id)
`

const numscriptCollateralDeposit = `vars {
  asset $asset
  number $amount
  account $owner
  account $vault
  string $position_id
  string $loan_id
}

send [$asset $amount] (
  source = $owner allowing unbounded overdraft
  destination = $vault
)

set_tx_meta("event_type", "collateral_deposit")
set_tx_meta("position_id", $position_id)
set_tx_meta("loan_id", $loan_id)
`

const numscriptCollateralWithdraw = `vars {
  asset $asset
  number $amount
  account $owner
  account $vault
  string $position_id
}

send [$asset $amount] (
  source = $vault allowing unbounded overdraft
  destination = $owner
)

set_tx_meta("event_type", "collateral_withdraw")
set_tx_meta("position_id", $position_id)
`

// numscriptCollateralWithdrawWithYield releases the principal and pays the
// accrued yield from @world in one atomic transaction.
const numscriptCollateralWithdrawWithYield = `vars {
  asset $asset
  number $amount
  number $yield
  account $owner
  account $vault
  string $position_id
}

send [$asset $amount] (
  source = $vault allowing unbounded overdraft
  destination = $owner
)

send [$asset $yield] (
  source = @world
  destination = $owner
)

set_tx_meta("event_type", "collateral_withdraw")
set_tx_meta("position_id", $position_id)
`

const numscriptCollateralSeize = `vars {
  asset $asset
  number $amount
  account $vault
  string $position_id
  string $loan_id
}

send [$asset $amount] (
  source = $vault allowing unbounded overdraft
  destination = @world
)

set_tx_meta("event_type", "collateral_seize")
set_tx_meta("position_id", $position_id)
set_tx_meta("loan_id", $loan_id)
`

// ---------- account addresses ----------

func borrowerAccount(addr common.Address) string {
	return "borrowers:" + strings.ToLower(addr.Hex())
}

func loanAccount(loanId int64) string {
	return "loans:" + strconv.FormatInt(loanId, 10)
}

func collateralAccount(addr common.Address) string {
	return "collateral:" + strings.ToLower(addr.Hex())
}

// ---------- transaction builders ----------

// smallestUnit renders a wei amount as the integer Numscript expects.
func smallestUnit(amount decimal.Decimal) string {
	return amount.Truncate(0).BigInt().String()
}

func optionalLoanId(loanId *int64) string {
	if loanId == nil {
		return ""
	}
	return strconv.FormatInt(*loanId, 10)
}

// scoreMetadata is the metadata written on borrowers:{addr} for every score update.
func scoreMetadata(score int, tier models.Tier, fingerprint common.Hash) map[string]string {
	return map[string]string{
		"entity_type": "borrower",
		"score":       strconv.Itoa(score),
		"tier":        tier.String(),
		"report_hash": fingerprint.Hex(),
	}
}

// loanOutcomeTx builds the posting for a finished loan. Manual outcomes carry
// no loan id, so the caller supplies a unique suffix for their reference.
func loanOutcomeTx(asset string, addr common.Address, loanId int64, success bool, amount decimal.Decimal, suffix string) shared.V2PostTransaction {
	vars := map[string]string{
		"asset":   asset,
		"amount":  smallestUnit(amount),
		"loan":    loanAccount(loanId),
		"loan_id": strconv.FormatInt(loanId, 10),
	}
	plain := numscriptLoanDefaulted
	outcome := "default"
	if success {
		plain = numscriptLoanRepaid
		outcome = "repaid"
		vars["borrower"] = borrowerAccount(addr)
	}

	ref := fmt.Sprintf("loan:%d:%s", loanId, outcome)
	if loanId == 0 {
		ref = fmt.Sprintf("outcome:%s:%s:%s", strings.ToLower(addr.Hex()), outcome, suffix)
	}
	return shared.V2PostTransaction{
		Reference: strPtr(ref),
		Script: &shared.V2PostTransactionScript{
			Plain: plain,
			Vars:  vars,
		},
	}
}

// collateralOpTx builds the posting for a vault movement. The reference is
// unique per position and kind, so a replayed publish is a CONFLICT.
func collateralOpTx(asset string, op models.CollateralOp) (shared.V2PostTransaction, error) {
	vars := map[string]string{
		"asset":       asset,
		"amount":      smallestUnit(op.Amount),
		"vault":       collateralAccount(op.Owner),
		"position_id": strconv.FormatInt(op.PositionId, 10),
	}

	var plain string
	switch op.Kind {
	case models.CollateralDeposit:
		plain = numscriptCollateralDeposit
		vars["owner"] = borrowerAccount(op.Owner)
		vars["loan_id"] = optionalLoanId(op.LoanId)
	case models.CollateralWithdraw:
		plain = numscriptCollateralWithdraw
		vars["owner"] = borrowerAccount(op.Owner)
		if op.Yield.IsPositive() {
			plain = numscriptCollateralWithdrawWithYield
			vars["yield"] = smallestUnit(op.Yield)
		}
	case models.CollateralSeize:
		plain = numscriptCollateralSeize
		vars["loan_id"] = optionalLoanId(op.LoanId)
	default:
		return shared.V2PostTransaction{}, fmt.Errorf("unknown collateral op %q", op.Kind)
	}

	ref := fmt.Sprintf("collateral:%d:%s", op.PositionId, op.Kind)
	if op.TopUp {
		ref = fmt.Sprintf("collateral:%d:topup:%s", op.PositionId, optionalLoanId(op.LoanId))
	}

	return shared.V2PostTransaction{
		Reference: strPtr(ref),
		Script: &shared.V2PostTransactionScript{
			Plain: plain,
			Vars:  vars,
		},
	}, nil
}

func strPtr(s string) *string { return &s }
