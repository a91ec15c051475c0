package formance

import (
	"fmt"
	"testing"

	"credshield-go/internal/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/sdkerrors"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"github.com/shopspring/decimal"
)

// ---------- Unit tests for pure helpers (no Formance stack needed) ----------

var testOwner = common.HexToAddress("0x00000000000000000000000000000000000000Ab")

func TestFormanceAsset(t *testing.T) {
	tests := []struct {
		symbol string
		want   string
	}{
		{"BNB", "BNB/18"},
		{"bnb", "BNB/18"},
		{"ETH", "ETH/18"},
		{"MATIC", "MATIC/18"}, // default precision
	}
	for _, tt := range tests {
		if got := formanceAsset(tt.symbol); got != tt.want {
			t.Errorf("formanceAsset(%q) = %q, want %q", tt.symbol, got, tt.want)
		}
	}
}

func TestAccountAddresses(t *testing.T) {
	if got := borrowerAccount(testOwner); got != "borrowers:0x00000000000000000000000000000000000000ab" {
		t.Errorf("borrowerAccount = %q", got)
	}
	if got := collateralAccount(testOwner); got != "collateral:0x00000000000000000000000000000000000000ab" {
		t.Errorf("collateralAccount = %q", got)
	}
	if got := loanAccount(42); got != "loans:42" {
		t.Errorf("loanAccount = %q", got)
	}
}

func TestSmallestUnit(t *testing.T) {
	d := decimal.RequireFromString("1500000000000000000")
	if got := smallestUnit(d); got != "1500000000000000000" {
		t.Errorf("smallestUnit = %q", got)
	}
	if got := smallestUnit(decimal.RequireFromString("7.9")); got != "7" {
		t.Errorf("expected fractional wei to truncate, got %q", got)
	}
}

func TestScoreMetadata(t *testing.T) {
	hash := common.HexToHash("0x01")
	meta := scoreMetadata(715, models.TierGold, hash)
	if meta["score"] != "715" {
		t.Errorf("score = %q", meta["score"])
	}
	if meta["tier"] != "Gold" {
		t.Errorf("tier = %q", meta["tier"])
	}
	if meta["report_hash"] != hash.Hex() {
		t.Errorf("report_hash = %q", meta["report_hash"])
	}
}

func TestLoanOutcomeTx_Repaid(t *testing.T) {
	tx := loanOutcomeTx("BNB/18", testOwner, 7, true, decimal.NewFromInt(936), "unused")
	if *tx.Reference != "loan:7:repaid" {
		t.Errorf("reference = %q", *tx.Reference)
	}
	if tx.Script.Plain != numscriptLoanRepaid {
		t.Error("expected repaid script")
	}
	vars := tx.Script.Vars
	if vars["amount"] != "936" || vars["loan"] != "loans:7" || vars["borrower"] != borrowerAccount(testOwner) {
		t.Errorf("unexpected vars %v", vars)
	}
}

func TestLoanOutcomeTx_Default(t *testing.T) {
	tx := loanOutcomeTx("BNB/18", testOwner, 7, false, decimal.NewFromInt(624), "unused")
	if *tx.Reference != "loan:7:default" {
		t.Errorf("reference = %q", *tx.Reference)
	}
	if tx.Script.Plain != numscriptLoanDefaulted {
		t.Error("expected default script")
	}
	if _, ok := tx.Script.Vars["borrower"]; ok {
		t.Error("default script takes no borrower var")
	}
}

func TestLoanOutcomeTx_ManualOutcomeUsesSuffix(t *testing.T) {
	a := loanOutcomeTx("BNB/18", testOwner, 0, true, decimal.NewFromInt(1), "s1")
	b := loanOutcomeTx("BNB/18", testOwner, 0, true, decimal.NewFromInt(1), "s2")
	if *a.Reference == *b.Reference {
		t.Fatalf("manual outcomes must not share a reference: %q", *a.Reference)
	}
	want := fmt.Sprintf("outcome:%s:repaid:s1", "0x00000000000000000000000000000000000000ab")
	if *a.Reference != want {
		t.Errorf("reference = %q, want %q", *a.Reference, want)
	}
}

func TestCollateralOpTx(t *testing.T) {
	loanId := int64(3)
	tests := []struct {
		name   string
		op     models.CollateralOp
		script string
		ref    string
	}{
		{
			name:   "deposit",
			op:     models.CollateralOp{Kind: models.CollateralDeposit, PositionId: 5, Owner: testOwner, Amount: decimal.NewFromInt(100), LoanId: &loanId},
			script: numscriptCollateralDeposit,
			ref:    "collateral:5:deposit",
		},
		{
			name:   "top-up for a new loan",
			op:     models.CollateralOp{Kind: models.CollateralDeposit, PositionId: 5, Owner: testOwner, Amount: decimal.NewFromInt(20), LoanId: &loanId, TopUp: true},
			script: numscriptCollateralDeposit,
			ref:    "collateral:5:topup:3",
		},
		{
			name:   "withdraw without yield",
			op:     models.CollateralOp{Kind: models.CollateralWithdraw, PositionId: 5, Owner: testOwner, Amount: decimal.NewFromInt(100)},
			script: numscriptCollateralWithdraw,
			ref:    "collateral:5:withdraw",
		},
		{
			name:   "withdraw with yield",
			op:     models.CollateralOp{Kind: models.CollateralWithdraw, PositionId: 5, Owner: testOwner, Amount: decimal.NewFromInt(100), Yield: decimal.NewFromInt(6)},
			script: numscriptCollateralWithdrawWithYield,
			ref:    "collateral:5:withdraw",
		},
		{
			name:   "seize",
			op:     models.CollateralOp{Kind: models.CollateralSeize, PositionId: 5, Owner: testOwner, Amount: decimal.NewFromInt(100), LoanId: &loanId},
			script: numscriptCollateralSeize,
			ref:    "collateral:5:seize",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, err := collateralOpTx("BNB/18", tt.op)
			if err != nil {
				t.Fatalf("collateralOpTx: %v", err)
			}
			if tx.Script.Plain != tt.script {
				t.Error("wrong script selected")
			}
			if *tx.Reference != tt.ref {
				t.Errorf("reference = %q, want %q", *tx.Reference, tt.ref)
			}
			if tx.Script.Vars["vault"] != collateralAccount(testOwner) {
				t.Errorf("vault = %q", tx.Script.Vars["vault"])
			}
		})
	}
}

func TestCollateralOpTx_YieldAndLoanVars(t *testing.T) {
	tx, _ := collateralOpTx("BNB/18", models.CollateralOp{
		Kind: models.CollateralWithdraw, PositionId: 1, Owner: testOwner,
		Amount: decimal.NewFromInt(1000), Yield: decimal.NewFromInt(14),
	})
	if tx.Script.Vars["yield"] != "14" {
		t.Errorf("yield = %q", tx.Script.Vars["yield"])
	}

	tx, _ = collateralOpTx("BNB/18", models.CollateralOp{
		Kind: models.CollateralDeposit, PositionId: 1, Owner: testOwner, Amount: decimal.NewFromInt(1),
	})
	if tx.Script.Vars["loan_id"] != "" {
		t.Errorf("standalone deposit should carry an empty loan_id, got %q", tx.Script.Vars["loan_id"])
	}
}

func TestCollateralOpTx_UnknownKind(t *testing.T) {
	_, err := collateralOpTx("BNB/18", models.CollateralOp{Kind: "burn", Amount: decimal.NewFromInt(1)})
	if err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestIsConflictError(t *testing.T) {
	// nil error should not be a conflict
	if isConflictError(nil) {
		t.Error("nil should not be a conflict error")
	}
	conflict := &sdkerrors.V2ErrorResponse{ErrorCode: shared.V2ErrorsEnumConflict}
	if !isConflictError(fmt.Errorf("wrapped: %w", conflict)) {
		t.Error("wrapped CONFLICT should be detected")
	}
	other := &sdkerrors.V2ErrorResponse{ErrorCode: shared.V2ErrorsEnumNotFound}
	if isConflictError(other) {
		t.Error("NOT_FOUND is not a conflict")
	}
}
