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

package api

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"credshield-go/internal/lending"
	"credshield-go/internal/models"
	"credshield-go/internal/narrative"
	"credshield-go/internal/scoring"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrInternal is returned in place of storage or infrastructure failures; the cause is logged.
var ErrInternal = errors.New("internal error")

// SnapshotFetcher retrieves the on-chain activity of a wallet
type SnapshotFetcher interface {
	FetchActivitySnapshot(ctx context.Context, addr common.Address, asOf time.Time) (models.ActivitySnapshot, error)
}

// CreditServiceConfig contains the collaborators of a CreditService.
// Fetcher and Generator are optional; without them scoring runs on an empty
// snapshot and reports use the deterministic fallback text.
type CreditServiceConfig struct {
	Engine       *lending.Engine
	Scorer       *scoring.Scorer
	Fetcher      SnapshotFetcher
	Generator    narrative.Generator
	NativeSymbol string
	Clock        func() time.Time
}

// CreditService validates caller input and orchestrates scoring and lending
type CreditService struct {
	engine       *lending.Engine
	scorer       *scoring.Scorer
	fetcher      SnapshotFetcher
	generator    narrative.Generator
	nativeSymbol string
	clock        func() time.Time
}

func NewCreditService(cfg CreditServiceConfig) (*CreditService, error) {
	if cfg.Engine == nil {
		return nil, fmt.Errorf("lending engine is required")
	}
	if cfg.Scorer == nil {
		return nil, fmt.Errorf("scorer is required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &CreditService{
		engine:       cfg.Engine,
		scorer:       cfg.Scorer,
		fetcher:      cfg.Fetcher,
		generator:    cfg.Generator,
		nativeSymbol: cfg.NativeSymbol,
		clock:        clock,
	}, nil
}

// Engine exposes the underlying lending engine for read-only reporting tools.
func (s *CreditService) Engine() *lending.Engine {
	return s.engine
}

func (s *CreditService) HealthCheck(ctx context.Context) error {
	if _, err := s.engine.PoolStats(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// ---------- input validation ----------

// ParseAddress accepts a 0x-prefixed 20-byte hex address in any case.
func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return common.Address{}, fmt.Errorf("%w: address %q must be 0x-prefixed", lending.ErrInvalidRequest, s)
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: invalid address %q", lending.ErrInvalidRequest, s)
	}
	return common.HexToAddress(s), nil
}

// ParseAmount converts a positive amount in whole units ("12.5") to wei.
func ParseAmount(s string) (decimal.Decimal, error) {
	wei, err := models.ParseUnits(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", lending.ErrInvalidRequest, err)
	}
	if !wei.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: amount must be positive, got %q", lending.ErrInvalidRequest, s)
	}
	return wei, nil
}

// userError passes caller-correctable errors through and hides everything else behind ErrInternal.
func userError(op string, err error, fields ...zap.Field) error {
	if err == nil {
		return nil
	}
	fields = append(fields, zap.String("op", op), zap.Error(err))
	if lending.Reason(err) != "internal" {
		zap.L().Info("Request rejected", fields...)
		return err
	}
	zap.L().Error("Request failed", fields...)
	return fmt.Errorf("%s: %w", op, ErrInternal)
}
