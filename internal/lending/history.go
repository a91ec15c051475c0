package lending

import (
	"context"
	"errors"
	"fmt"
	"time"

	"credshield-go/internal/models"
	"credshield-go/internal/store"
	"credshield-go/internal/tier"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SetScore records a borrower's score with the tier and parameters it implies. Operator only.
func (e *Engine) SetScore(ctx context.Context, caller, borrower common.Address, score int, reportHash common.Hash) (*models.ScoreUpdate, error) {
	if err := e.requireOperator(caller); err != nil {
		return nil, e.fail("set_score", err)
	}
	t, err := tier.Classify(score)
	if err != nil {
		return nil, e.fail("set_score", err)
	}
	params := tier.ParamsFor(t)

	var update models.ScoreUpdate
	err = e.mutate(ctx, "set_score", []string{borrowerKey(borrower)}, func(tx store.LedgerTx) error {
		now := e.now()
		profile, err := tx.GetProfile(ctx, borrower)
		switch {
		case isNotFound(err):
			profile = &models.CreditProfile{
				Address:       borrower,
				TotalBorrowed: decimal.Zero,
				TotalRepaid:   decimal.Zero,
				CreatedAt:     now,
			}
			update.Created = true
		case err != nil:
			return err
		default:
			update.PreviousScore = profile.Score
		}

		profile.Score = score
		profile.Tier = t
		profile.CollateralRatioBps = params.CollateralRatioBps
		profile.CreditLimit = params.CreditLimit
		profile.InterestRateBps = params.InterestRateBps
		profile.ReportHash = reportHash
		profile.UpdatedAt = now

		if update.Created {
			if err := tx.InsertProfile(ctx, profile); err != nil {
				return err
			}
		} else if err := tx.UpdateProfile(ctx, profile); err != nil {
			return err
		}

		if err := syncHistory(ctx, tx, profile, now, nil); err != nil {
			return err
		}
		update.Profile = *profile
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Credit score set",
		zap.String("borrower", borrower.Hex()),
		zap.Int("score", score),
		zap.String("tier", t.String()),
		zap.Bool("created", update.Created))

	e.publish(ctx, "persist_score", func(ctx context.Context, p store.Publisher) error {
		return p.PersistScore(ctx, borrower, score, t, reportHash)
	})
	return &update, nil
}

// RecordOutcome adjusts a borrower's score after a loan outcome. Operator only.
func (e *Engine) RecordOutcome(ctx context.Context, caller, borrower common.Address, success bool, amount decimal.Decimal) (*models.CreditProfile, error) {
	if err := e.requireOperator(caller); err != nil {
		return nil, e.fail("record_outcome", err)
	}
	if amount.IsNegative() {
		return nil, e.fail("record_outcome", fmt.Errorf("%w: amount cannot be negative", ErrInvalidRequest))
	}

	var profile *models.CreditProfile
	err := e.mutate(ctx, "record_outcome", []string{borrowerKey(borrower)}, func(tx store.LedgerTx) error {
		var err error
		profile, err = e.applyOutcome(ctx, tx, borrower, success, amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.publish(ctx, "persist_outcome", func(ctx context.Context, p store.Publisher) error {
		return p.PersistLoanOutcome(ctx, borrower, 0, success, amount)
	})
	return profile, nil
}

// applyOutcome moves the score by the configured delta, then refreshes tier, parameters and
// history. A borrower without a profile starts from the minimum score.
func (e *Engine) applyOutcome(ctx context.Context, tx store.LedgerTx, borrower common.Address, success bool, amount decimal.Decimal) (*models.CreditProfile, error) {
	now := e.now()
	created := false
	profile, err := tx.GetProfile(ctx, borrower)
	if isNotFound(err) {
		created = true
		profile = &models.CreditProfile{
			Address:       borrower,
			Score:         tier.MinScore,
			TotalBorrowed: decimal.Zero,
			TotalRepaid:   decimal.Zero,
			CreatedAt:     now,
		}
	} else if err != nil {
		return nil, err
	}

	if success {
		profile.Score = tier.Clamp(profile.Score + e.cfg.OutcomeSuccessDelta)
		profile.LoansCompleted++
		profile.TotalRepaid = profile.TotalRepaid.Add(amount)
	} else {
		profile.Score = tier.Clamp(profile.Score - e.cfg.OutcomeFailurePenalty)
		profile.LoansFailed++
		profile.TotalBorrowed = profile.TotalBorrowed.Add(amount)
	}

	t, err := tier.Classify(profile.Score)
	if err != nil {
		return nil, err
	}
	params := tier.ParamsFor(t)
	profile.Tier = t
	profile.CollateralRatioBps = params.CollateralRatioBps
	profile.CreditLimit = params.CreditLimit
	profile.InterestRateBps = params.InterestRateBps
	profile.UpdatedAt = now

	if created {
		err = tx.InsertProfile(ctx, profile)
	} else {
		err = tx.UpdateProfile(ctx, profile)
	}
	if err != nil {
		return nil, err
	}

	if err := syncHistory(ctx, tx, profile, now, &success); err != nil {
		return nil, err
	}
	return profile, nil
}

// syncHistory mirrors the profile into the history record. outcome is nil for plain
// score updates, which leave the streaks untouched.
func syncHistory(ctx context.Context, tx store.LedgerTx, profile *models.CreditProfile, now time.Time, outcome *bool) error {
	history, err := tx.GetHistory(ctx, profile.Address)
	created := false
	if errors.Is(err, store.ErrNotFound) {
		created = true
		history = &models.CreditHistory{Address: profile.Address, FirstCreditAt: now}
	} else if err != nil {
		return err
	}

	history.Score = profile.Score
	history.Tier = profile.Tier
	history.LoansCompleted = profile.LoansCompleted
	history.LoansFailed = profile.LoansFailed
	history.TotalBorrowed = profile.TotalBorrowed
	history.TotalRepaid = profile.TotalRepaid
	history.UpdatedAt = now
	if outcome != nil {
		if *outcome {
			history.CurrentStreak++
			if history.CurrentStreak > history.LongestStreak {
				history.LongestStreak = history.CurrentStreak
			}
		} else {
			history.CurrentStreak = 0
		}
	}

	if created {
		return tx.InsertHistory(ctx, history)
	}
	return tx.UpdateHistory(ctx, history)
}

func (e *Engine) GetProfile(ctx context.Context, borrower common.Address) (*models.CreditProfile, error) {
	var profile *models.CreditProfile
	err := e.read(ctx, func(tx store.LedgerTx) error {
		var err error
		profile, err = tx.GetProfile(ctx, borrower)
		return err
	})
	return profile, err
}

func (e *Engine) GetHistory(ctx context.Context, borrower common.Address) (*models.CreditHistory, error) {
	var history *models.CreditHistory
	err := e.read(ctx, func(tx store.LedgerTx) error {
		var err error
		history, err = tx.GetHistory(ctx, borrower)
		return err
	})
	return history, err
}

// params returns the borrower's stored tier parameters, or the Bronze defaults when unscored.
func (e *Engine) params(ctx context.Context, tx store.LedgerTx, borrower common.Address) (models.TierParams, models.Tier, error) {
	profile, err := tx.GetProfile(ctx, borrower)
	if isNotFound(err) {
		return tier.Default(), models.TierBronze, nil
	}
	if err != nil {
		return models.TierParams{}, 0, err
	}
	return models.TierParams{
		CollateralRatioBps: profile.CollateralRatioBps,
		CreditLimit:        profile.CreditLimit,
		InterestRateBps:    profile.InterestRateBps,
	}, profile.Tier, nil
}

// GetInterestRate returns the borrower's rate in bps; unscored borrowers get the Bronze rate.
func (e *Engine) GetInterestRate(ctx context.Context, borrower common.Address) (int64, error) {
	var rate int64
	err := e.read(ctx, func(tx store.LedgerTx) error {
		p, _, err := e.params(ctx, tx, borrower)
		rate = p.InterestRateBps
		return err
	})
	return rate, err
}

// GetCollateralRatio returns the borrower's collateral ratio in bps; unscored borrowers get the Bronze ratio.
func (e *Engine) GetCollateralRatio(ctx context.Context, borrower common.Address) (int64, error) {
	var ratio int64
	err := e.read(ctx, func(tx store.LedgerTx) error {
		p, _, err := e.params(ctx, tx, borrower)
		ratio = p.CollateralRatioBps
		return err
	})
	return ratio, err
}
