package api

import (
	"context"
	"errors"
	"time"

	"credshield-go/internal/metrics"
	"credshield-go/internal/models"
	"credshield-go/internal/narrative"
	"credshield-go/internal/snapshot"
	"credshield-go/internal/tier"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// assessment is one complete scoring pass that has not been persisted yet
type assessment struct {
	snapshot     models.ActivitySnapshot
	result       models.ScoreResult
	report       string
	fingerprint  common.Hash
	fromFallback bool
	dataFallback bool
}

// assess fetches, scores and narrates a wallet. It never fails: missing chain data
// scores as an empty snapshot and a missing narrative uses the fallback text.
func (s *CreditService) assess(ctx context.Context, addr common.Address) assessment {
	asOf := s.clock().UTC()

	var a assessment
	snap, err := s.fetch(ctx, addr, asOf)
	if err != nil {
		zap.L().Warn("Activity snapshot unavailable, scoring empty snapshot",
			zap.String("address", addr.Hex()),
			zap.Error(err))
		metrics.SnapshotFallbacks.Inc()
		snap = snapshot.Empty(addr, asOf)
		a.dataFallback = true
	}
	a.snapshot = snap
	a.result = s.scorer.ComputeScore(snap)
	a.report, a.fromFallback = narrative.Report(ctx, s.generator, narrative.Request{
		Snapshot:     snap,
		Result:       a.result,
		NativeSymbol: s.nativeSymbol,
	})
	a.fingerprint = narrative.Fingerprint(a.report)
	return a
}

func (s *CreditService) fetch(ctx context.Context, addr common.Address, asOf time.Time) (models.ActivitySnapshot, error) {
	if s.fetcher == nil {
		return models.ActivitySnapshot{}, errors.New("no chain data provider configured")
	}
	return s.fetcher.FetchActivitySnapshot(ctx, addr, asOf)
}

func (a assessment) toReport() *models.ScoreReport {
	return &models.ScoreReport{
		Result:       a.result,
		Params:       tier.ParamsFor(a.result.Tier),
		Report:       a.report,
		ReportHash:   a.fingerprint.Hex(),
		FromFallback: a.fromFallback,
		DataFallback: a.dataFallback,
	}
}

// PreviewScore scores a wallet without persisting anything.
func (s *CreditService) PreviewScore(ctx context.Context, address string) (*models.ScoreReport, error) {
	addr, err := ParseAddress(address)
	if err != nil {
		return nil, err
	}
	a := s.assess(ctx, addr)
	metrics.RecordScore(a.result.Tier.String(), a.result.Score)
	return a.toReport(), nil
}

// ScoreWallet scores a wallet and stores the result as the borrower's credit profile.
// caller must be the operator.
func (s *CreditService) ScoreWallet(ctx context.Context, caller, address string) (*models.ScoreReport, error) {
	callerAddr, err := ParseAddress(caller)
	if err != nil {
		return nil, err
	}
	addr, err := ParseAddress(address)
	if err != nil {
		return nil, err
	}

	zap.L().Info("Scoring wallet", zap.String("address", addr.Hex()))

	a := s.assess(ctx, addr)
	update, err := s.engine.SetScore(ctx, callerAddr, addr, a.result.Score, a.fingerprint)
	if err != nil {
		return nil, userError("score_wallet", err, zap.String("address", addr.Hex()))
	}
	metrics.RecordScore(a.result.Tier.String(), a.result.Score)

	report := a.toReport()
	report.Created = update.Created
	report.PreviousScore = update.PreviousScore

	zap.L().Info("Wallet scored",
		zap.String("address", addr.Hex()),
		zap.Int("score", a.result.Score),
		zap.String("tier", a.result.Tier.String()),
		zap.Bool("data_fallback", a.dataFallback),
		zap.Bool("narrative_fallback", a.fromFallback))
	return report, nil
}

// SetScore stores a manually chosen score. Operator only.
func (s *CreditService) SetScore(ctx context.Context, caller, address string, score int) (*models.ScoreUpdate, error) {
	callerAddr, err := ParseAddress(caller)
	if err != nil {
		return nil, err
	}
	addr, err := ParseAddress(address)
	if err != nil {
		return nil, err
	}
	update, err := s.engine.SetScore(ctx, callerAddr, addr, score, common.Hash{})
	if err != nil {
		return nil, userError("set_score", err, zap.String("address", addr.Hex()), zap.Int("score", score))
	}
	return update, nil
}

// RecordOutcome applies a manual loan outcome to a borrower's score. Operator only.
func (s *CreditService) RecordOutcome(ctx context.Context, caller, address string, success bool, amount string) (*models.CreditProfile, error) {
	callerAddr, err := ParseAddress(caller)
	if err != nil {
		return nil, err
	}
	addr, err := ParseAddress(address)
	if err != nil {
		return nil, err
	}
	wei, err := ParseAmount(amount)
	if err != nil {
		return nil, err
	}
	profile, err := s.engine.RecordOutcome(ctx, callerAddr, addr, success, wei)
	if err != nil {
		return nil, userError("record_outcome", err, zap.String("address", addr.Hex()))
	}
	return profile, nil
}

// GetProfile returns the stored profile and history of a borrower.
func (s *CreditService) GetProfile(ctx context.Context, address string) (*models.CreditProfile, *models.CreditHistory, error) {
	addr, err := ParseAddress(address)
	if err != nil {
		return nil, nil, err
	}
	profile, err := s.engine.GetProfile(ctx, addr)
	if err != nil {
		return nil, nil, userError("get_profile", err, zap.String("address", addr.Hex()))
	}
	history, err := s.engine.GetHistory(ctx, addr)
	if err != nil {
		return nil, nil, userError("get_history", err, zap.String("address", addr.Hex()))
	}
	return profile, history, nil
}

// BorrowingTerms returns the interest rate and collateral ratio a borrower would get today, in bps.
func (s *CreditService) BorrowingTerms(ctx context.Context, address string) (interestRateBps, collateralRatioBps int64, err error) {
	addr, err := ParseAddress(address)
	if err != nil {
		return 0, 0, err
	}
	if interestRateBps, err = s.engine.GetInterestRate(ctx, addr); err != nil {
		return 0, 0, userError("get_interest_rate", err, zap.String("address", addr.Hex()))
	}
	if collateralRatioBps, err = s.engine.GetCollateralRatio(ctx, addr); err != nil {
		return 0, 0, userError("get_collateral_ratio", err, zap.String("address", addr.Hex()))
	}
	return interestRateBps, collateralRatioBps, nil
}
