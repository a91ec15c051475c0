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

package lending

import (
	"context"
	"fmt"
	"time"

	"credshield-go/internal/lock"
	"credshield-go/internal/metrics"
	"credshield-go/internal/models"
	"credshield-go/internal/store"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AccruedYield is simple non-compounding yield over whole elapsed days.
func AccruedYield(amount decimal.Decimal, dailyRateBps int64, depositedAt, now time.Time) decimal.Decimal {
	days := int64(now.Sub(depositedAt) / (24 * time.Hour))
	if days <= 0 || dailyRateBps <= 0 {
		return decimal.Zero
	}
	return models.MulBps(amount.Mul(decimal.NewFromInt(days)), dailyRateBps)
}

// DepositCollateral opens the owner's collateral position, optionally tied to one of their active loans.
func (e *Engine) DepositCollateral(ctx context.Context, owner common.Address, amount decimal.Decimal, loanId *int64) (*models.CollateralPosition, error) {
	if err := requirePositive(amount, "collateral amount"); err != nil {
		return nil, e.fail("deposit_collateral", err)
	}

	var position *models.CollateralPosition
	err := e.mutate(ctx, "deposit_collateral", []string{borrowerKey(owner)}, func(tx store.LedgerTx) error {
		if existing, err := tx.GetActiveCollateral(ctx, owner); err == nil {
			return fmt.Errorf("%w: position %d", ErrAlreadyHasCollateral, existing.Id)
		} else if !isNotFound(err) {
			return err
		}

		if loanId != nil {
			loan, err := tx.GetLoan(ctx, *loanId)
			if isNotFound(err) {
				return fmt.Errorf("%w: %d", ErrLoanNotFound, *loanId)
			}
			if err != nil {
				return err
			}
			if loan.Borrower != owner {
				return fmt.Errorf("%w: loan %d belongs to %s", ErrNotBorrower, loan.Id, loan.Borrower.Hex())
			}
			if !loan.Active {
				return fmt.Errorf("%w: %d", ErrLoanNotActive, loan.Id)
			}
		}

		position = &models.CollateralPosition{
			Owner:       owner,
			Amount:      amount,
			DepositedAt: e.now(),
			LoanId:      loanId,
			Active:      true,
		}
		if err := tx.InsertCollateral(ctx, position); err != nil {
			return err
		}
		ref := fmt.Sprintf("collateral:%d:deposit", position.Id)
		return post(ctx, tx, store.CollateralAccount(owner), "collateral-lock", amount, ref)
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordCollateralOp(string(models.CollateralDeposit))
	zap.L().Info("Collateral deposited",
		zap.Int64("position_id", position.Id),
		zap.String("owner", owner.Hex()),
		zap.String("amount", amount.String()))
	op := models.CollateralOp{
		Kind:       models.CollateralDeposit,
		PositionId: position.Id,
		Owner:      owner,
		Amount:     amount,
		Yield:      decimal.Zero,
		LoanId:     loanId,
	}
	e.publish(ctx, "persist_collateral", func(ctx context.Context, p store.Publisher) error {
		return p.PersistCollateralOp(ctx, op)
	})
	return position, nil
}

// GetCollateral returns the owner's active position, or ErrNoActiveCollateral.
func (e *Engine) GetCollateral(ctx context.Context, owner common.Address) (*models.CollateralPosition, error) {
	var position *models.CollateralPosition
	err := e.read(ctx, func(tx store.LedgerTx) error {
		var err error
		position, err = e.activeCollateral(ctx, tx, owner)
		return err
	})
	return position, err
}

func (e *Engine) activeCollateral(ctx context.Context, tx store.LedgerTx, owner common.Address) (*models.CollateralPosition, error) {
	position, err := tx.GetActiveCollateral(ctx, owner)
	if isNotFound(err) {
		return nil, fmt.Errorf("%w: %s", ErrNoActiveCollateral, owner.Hex())
	}
	return position, err
}

// CalculateYield returns the yield accrued so far on the owner's active position.
func (e *Engine) CalculateYield(ctx context.Context, owner common.Address) (decimal.Decimal, error) {
	position, err := e.GetCollateral(ctx, owner)
	if err != nil {
		return decimal.Zero, err
	}
	return AccruedYield(position.Amount, e.cfg.YieldDailyRateBps, position.DepositedAt, e.now()), nil
}

// WithdrawCollateral releases the owner's position and pays out amount plus yield from the yield reserve.
func (e *Engine) WithdrawCollateral(ctx context.Context, owner common.Address) (*models.WithdrawalResult, error) {
	var result *models.WithdrawalResult
	var position *models.CollateralPosition
	err := e.mutate(ctx, "withdraw_collateral", []string{borrowerKey(owner), lock.PoolKey}, func(tx store.LedgerTx) error {
		var err error
		position, err = e.activeCollateral(ctx, tx, owner)
		if err != nil {
			return err
		}
		if position.LoanId != nil {
			loan, err := tx.GetLoan(ctx, *position.LoanId)
			if err != nil && !isNotFound(err) {
				return err
			}
			if err == nil && loan.Active {
				return fmt.Errorf("%w: loan %d", ErrCollateralLocked, loan.Id)
			}
		}

		now := e.now()
		yield := AccruedYield(position.Amount, e.cfg.YieldDailyRateBps, position.DepositedAt, now)
		reserve, err := tx.AccountBalance(ctx, store.AccountYieldReserve)
		if err != nil {
			return err
		}
		if yield.GreaterThan(reserve) {
			return fmt.Errorf("%w: yield %s, reserve %s", ErrInsufficientYieldReserve, yield.String(), reserve.String())
		}

		position.Active = false
		position.ReleasedAt = &now
		if err := tx.UpdateCollateral(ctx, position); err != nil {
			return err
		}

		ref := fmt.Sprintf("collateral:%d:withdraw", position.Id)
		if err := post(ctx, tx, store.AccountYieldReserve, "yield-payout", yield.Neg(), ref); err != nil {
			return err
		}
		if err := post(ctx, tx, store.CollateralAccount(owner), "collateral-release", position.Amount.Neg(), ref); err != nil {
			return err
		}

		result = &models.WithdrawalResult{
			Principal: position.Amount,
			Yield:     yield,
			Total:     position.Amount.Add(yield),
			At:        now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordCollateralOp(string(models.CollateralWithdraw))
	zap.L().Info("Collateral withdrawn",
		zap.Int64("position_id", position.Id),
		zap.String("owner", owner.Hex()),
		zap.String("amount", result.Principal.String()),
		zap.String("yield", result.Yield.String()))
	op := models.CollateralOp{
		Kind:       models.CollateralWithdraw,
		PositionId: position.Id,
		Owner:      owner,
		Amount:     result.Principal,
		Yield:      result.Yield,
	}
	e.publish(ctx, "persist_collateral", func(ctx context.Context, p store.Publisher) error {
		return p.PersistCollateralOp(ctx, op)
	})
	return result, nil
}

// SeizeCollateral moves the owner's locked amount, without yield, into the pool. Operator only.
func (e *Engine) SeizeCollateral(ctx context.Context, caller, owner common.Address) (*models.CollateralPosition, error) {
	if err := e.requireOperator(caller); err != nil {
		return nil, e.fail("seize_collateral", err)
	}

	var position *models.CollateralPosition
	err := e.mutate(ctx, "seize_collateral", []string{borrowerKey(owner), lock.PoolKey}, func(tx store.LedgerTx) error {
		var err error
		position, err = e.seizeInTx(ctx, tx, owner)
		if isNotFound(err) {
			return fmt.Errorf("%w: %s", ErrNoActiveCollateral, owner.Hex())
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	e.afterSeize(ctx, position)
	return position, nil
}

// seizeInTx returns store.ErrNotFound when the owner has no active position.
func (e *Engine) seizeInTx(ctx context.Context, tx store.LedgerTx, owner common.Address) (*models.CollateralPosition, error) {
	position, err := tx.GetActiveCollateral(ctx, owner)
	if err != nil {
		return nil, err
	}

	now := e.now()
	position.Active = false
	position.ReleasedAt = &now
	if err := tx.UpdateCollateral(ctx, position); err != nil {
		return nil, err
	}

	ref := fmt.Sprintf("collateral:%d:seize", position.Id)
	if err := post(ctx, tx, store.CollateralAccount(owner), "collateral-seized", position.Amount.Neg(), ref); err != nil {
		return nil, err
	}
	if err := post(ctx, tx, store.AccountPoolDeposits, "collateral-seized", position.Amount, ref); err != nil {
		return nil, err
	}
	return position, nil
}

func (e *Engine) afterSeize(ctx context.Context, position *models.CollateralPosition) {
	metrics.RecordCollateralOp(string(models.CollateralSeize))
	zap.L().Info("Collateral seized",
		zap.Int64("position_id", position.Id),
		zap.String("owner", position.Owner.Hex()),
		zap.String("amount", position.Amount.String()))
	op := models.CollateralOp{
		Kind:       models.CollateralSeize,
		PositionId: position.Id,
		Owner:      position.Owner,
		Amount:     position.Amount,
		Yield:      decimal.Zero,
		LoanId:     position.LoanId,
	}
	e.publish(ctx, "persist_collateral", func(ctx context.Context, p store.Publisher) error {
		return p.PersistCollateralOp(ctx, op)
	})
}
