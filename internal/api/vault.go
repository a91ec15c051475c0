package api

import (
	"context"
	"strconv"

	"credshield-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ---------- collateral ----------

// DepositCollateral locks collateral for owner, optionally against one of their active loans.
func (s *CreditService) DepositCollateral(ctx context.Context, owner, amount string, loanId *int64) (*models.CollateralPosition, error) {
	addr, err := ParseAddress(owner)
	if err != nil {
		return nil, err
	}
	wei, err := ParseAmount(amount)
	if err != nil {
		return nil, err
	}
	linked := "none"
	if loanId != nil {
		linked = strconv.FormatInt(*loanId, 10)
	}
	position, err := s.engine.DepositCollateral(ctx, addr, wei, loanId)
	if err != nil {
		return nil, userError("deposit_collateral", err, zap.String("owner", addr.Hex()), zap.String("loan_id", linked))
	}
	return position, nil
}

// WithdrawCollateral releases an unlocked position with its accrued yield.
func (s *CreditService) WithdrawCollateral(ctx context.Context, owner string) (*models.WithdrawalResult, error) {
	addr, err := ParseAddress(owner)
	if err != nil {
		return nil, err
	}
	result, err := s.engine.WithdrawCollateral(ctx, addr)
	if err != nil {
		return nil, userError("withdraw_collateral", err, zap.String("owner", addr.Hex()))
	}
	return result, nil
}

// SeizeCollateral moves an owner's position into the pool. Operator only.
func (s *CreditService) SeizeCollateral(ctx context.Context, caller, owner string) (*models.CollateralPosition, error) {
	callerAddr, err := ParseAddress(caller)
	if err != nil {
		return nil, err
	}
	addr, err := ParseAddress(owner)
	if err != nil {
		return nil, err
	}
	position, err := s.engine.SeizeCollateral(ctx, callerAddr, addr)
	if err != nil {
		return nil, userError("seize_collateral", err, zap.String("owner", addr.Hex()))
	}
	return position, nil
}

// GetCollateral returns the owner's active position and the yield accrued on it so far.
func (s *CreditService) GetCollateral(ctx context.Context, owner string) (*models.CollateralPosition, decimal.Decimal, error) {
	addr, err := ParseAddress(owner)
	if err != nil {
		return nil, decimal.Zero, err
	}
	position, err := s.engine.GetCollateral(ctx, addr)
	if err != nil {
		return nil, decimal.Zero, userError("get_collateral", err, zap.String("owner", addr.Hex()))
	}
	yield, err := s.engine.CalculateYield(ctx, addr)
	if err != nil {
		return nil, decimal.Zero, userError("calculate_yield", err, zap.String("owner", addr.Hex()))
	}
	return position, yield, nil
}

// ---------- lending pool ----------

// DepositLiquidity adds lender funds to the pool and returns the lender's new balance.
func (s *CreditService) DepositLiquidity(ctx context.Context, lender, amount string) (decimal.Decimal, error) {
	addr, err := ParseAddress(lender)
	if err != nil {
		return decimal.Zero, err
	}
	wei, err := ParseAmount(amount)
	if err != nil {
		return decimal.Zero, err
	}
	balance, err := s.engine.DepositLiquidity(ctx, addr, wei)
	if err != nil {
		return decimal.Zero, userError("deposit_liquidity", err, zap.String("lender", addr.Hex()))
	}
	return balance, nil
}

// WithdrawLiquidity returns lender funds from the pool and returns the lender's new balance.
func (s *CreditService) WithdrawLiquidity(ctx context.Context, lender, amount string) (decimal.Decimal, error) {
	addr, err := ParseAddress(lender)
	if err != nil {
		return decimal.Zero, err
	}
	wei, err := ParseAmount(amount)
	if err != nil {
		return decimal.Zero, err
	}
	balance, err := s.engine.WithdrawLiquidity(ctx, addr, wei)
	if err != nil {
		return decimal.Zero, userError("withdraw_liquidity", err, zap.String("lender", addr.Hex()))
	}
	return balance, nil
}

// FundYieldReserve tops up the reserve that pays collateral yield. Operator only.
func (s *CreditService) FundYieldReserve(ctx context.Context, caller, amount string) (decimal.Decimal, error) {
	addr, err := ParseAddress(caller)
	if err != nil {
		return decimal.Zero, err
	}
	wei, err := ParseAmount(amount)
	if err != nil {
		return decimal.Zero, err
	}
	reserve, err := s.engine.FundYieldReserve(ctx, addr, wei)
	if err != nil {
		return decimal.Zero, userError("fund_yield_reserve", err)
	}
	return reserve, nil
}

func (s *CreditService) LenderBalance(ctx context.Context, lender string) (decimal.Decimal, error) {
	addr, err := ParseAddress(lender)
	if err != nil {
		return decimal.Zero, err
	}
	balance, err := s.engine.LenderBalance(ctx, addr)
	if err != nil {
		return decimal.Zero, userError("lender_balance", err)
	}
	return balance, nil
}

func (s *CreditService) PoolStats(ctx context.Context) (*models.PoolStats, error) {
	stats, err := s.engine.PoolStats(ctx)
	if err != nil {
		return nil, userError("pool_stats", err)
	}
	return stats, nil
}
