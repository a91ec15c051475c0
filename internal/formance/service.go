/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package formance

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"credshield-go/internal/models"
	"credshield-go/internal/store"

	"github.com/ethereum/go-ethereum/common"
	v3 "github.com/formancehq/formance-sdk-go/v3"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/sdkerrors"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Compile-time check: *Publisher must satisfy store.Publisher.
var _ store.Publisher = (*Publisher)(nil)

// assetPrecision maps native asset symbols to their decimal precision.
var assetPrecision = map[string]int{
	"BNB": 18,
	"ETH": 18,
}

// Publisher mirrors scores, loan outcomes and collateral movements to a Formance Stack ledger.
type Publisher struct {
	client *v3.Formance
	ledger string
	asset  string
}

// NewPublisher connects to the stack and creates the ledger if it doesn't already exist.
func NewPublisher(ctx context.Context, cfg models.FormanceConfig) (*Publisher, error) {
	if cfg.StackURL == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("formance config requires StackURL, ClientID, and ClientSecret")
	}
	if cfg.LedgerName == "" {
		cfg.LedgerName = "credshield"
	}
	if cfg.AssetSymbol == "" {
		cfg.AssetSymbol = "BNB"
	}

	zap.L().Info("Connecting to Formance Stack",
		zap.String("stack_url", cfg.StackURL),
		zap.String("ledger", cfg.LedgerName))

	client := v3.New(
		v3.WithServerURL(cfg.StackURL),
		v3.WithSecurity(shared.Security{
			ClientID:     v3.Pointer(cfg.ClientID),
			ClientSecret: v3.Pointer(cfg.ClientSecret),
		}),
	)

	p := &Publisher{client: client, ledger: cfg.LedgerName, asset: formanceAsset(cfg.AssetSymbol)}

	if err := p.ensureLedger(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure ledger exists: %w", err)
	}

	zap.L().Info("Formance publisher initialized",
		zap.String("ledger", cfg.LedgerName),
		zap.String("asset", p.asset))
	return p, nil
}

// ensureLedger creates the ledger if it does not already exist.
func (p *Publisher) ensureLedger(ctx context.Context) error {
	_, err := p.client.Ledger.V2.CreateLedger(ctx, operations.V2CreateLedgerRequest{
		Ledger: p.ledger,
		V2CreateLedgerRequest: shared.V2CreateLedgerRequest{
			Metadata: map[string]string{
				"application": "credshield",
			},
		},
	})
	if err != nil {
		var apiErr *sdkerrors.V2ErrorResponse
		if errors.As(err, &apiErr) && apiErr.ErrorCode == shared.V2ErrorsEnumLedgerAlreadyExists {
			zap.L().Info("Ledger already exists", zap.String("ledger", p.ledger))
			return nil
		}
		return err
	}
	zap.L().Info("Ledger created", zap.String("ledger", p.ledger))
	return nil
}

// PersistScore writes the latest score, tier and report fingerprint on borrowers:{addr}.
func (p *Publisher) PersistScore(ctx context.Context, addr common.Address, score int, tier models.Tier, fingerprint common.Hash) error {
	_, err := p.client.Ledger.V2.AddMetadataToAccount(ctx, operations.V2AddMetadataToAccountRequest{
		Ledger:      p.ledger,
		Address:     borrowerAccount(addr),
		RequestBody: scoreMetadata(score, tier, fingerprint),
	})
	if err != nil {
		return fmt.Errorf("failed to update borrower metadata: %w", err)
	}

	zap.L().Debug("Score published to Formance",
		zap.String("borrower", addr.Hex()),
		zap.Int("score", score),
		zap.String("tier", tier.String()))
	return nil
}

// PersistLoanOutcome posts the repaid or written-off amount of a loan.
func (p *Publisher) PersistLoanOutcome(ctx context.Context, addr common.Address, loanId int64, success bool, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return nil
	}
	postTx := loanOutcomeTx(p.asset, addr, loanId, success, amount, uuid.New().String())
	if err := p.post(ctx, postTx); err != nil {
		return fmt.Errorf("error recording loan outcome: %w", err)
	}

	zap.L().Info("Loan outcome recorded in Formance",
		zap.String("borrower", addr.Hex()),
		zap.Int64("loan_id", loanId),
		zap.Bool("success", success),
		zap.String("amount", amount.String()))
	return nil
}

// PersistCollateralOp posts a collateral vault movement.
func (p *Publisher) PersistCollateralOp(ctx context.Context, op models.CollateralOp) error {
	if !op.Amount.IsPositive() {
		return nil
	}
	postTx, err := collateralOpTx(p.asset, op)
	if err != nil {
		return err
	}
	if err := p.post(ctx, postTx); err != nil {
		return fmt.Errorf("error recording collateral %s: %w", op.Kind, err)
	}

	zap.L().Info("Collateral op recorded in Formance",
		zap.String("kind", string(op.Kind)),
		zap.Int64("position_id", op.PositionId),
		zap.String("owner", op.Owner.Hex()),
		zap.String("amount", op.Amount.String()))
	return nil
}

// post submits a transaction. A CONFLICT means the reference was already
// recorded, which is the expected result of a replay.
func (p *Publisher) post(ctx context.Context, postTx shared.V2PostTransaction) error {
	_, err := p.client.Ledger.V2.CreateTransaction(ctx, operations.V2CreateTransactionRequest{
		Ledger:            p.ledger,
		V2PostTransaction: postTx,
	})
	if err != nil {
		if isConflictError(err) {
			ref := ""
			if postTx.Reference != nil {
				ref = *postTx.Reference
			}
			zap.L().Debug("Formance transaction already recorded", zap.String("reference", ref))
			return nil
		}
		return err
	}
	return nil
}

// Close is a no-op for the Formance backend (HTTP client needs no teardown).
func (p *Publisher) Close() {}

// ---------- helpers ----------

// formanceAsset returns the Formance UMN notation, e.g. "BNB/18".
func formanceAsset(symbol string) string {
	symbol = strings.ToUpper(symbol)
	if prec, ok := assetPrecision[symbol]; ok {
		return fmt.Sprintf("%s/%d", symbol, prec)
	}
	return fmt.Sprintf("%s/18", symbol) // EVM native assets default to 18
}

// isConflictError checks whether a Formance SDK error is a CONFLICT (duplicate reference).
func isConflictError(err error) bool {
	var apiErr *sdkerrors.V2ErrorResponse
	return errors.As(err, &apiErr) && apiErr.ErrorCode == shared.V2ErrorsEnumConflict
}
