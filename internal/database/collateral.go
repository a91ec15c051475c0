package database

import (
	"context"
	"database/sql"
	"fmt"

	"credshield-go/internal/models"

	"github.com/ethereum/go-ethereum/common"
)

func scanCollateral(row rowScanner) (*models.CollateralPosition, error) {
	var p models.CollateralPosition
	var owner, amount string
	var loanId sql.NullInt64
	var releasedAt sql.NullTime
	err := row.Scan(&p.Id, &owner, &amount, &p.DepositedAt, &loanId, &p.Active, &p.Version, &releasedAt)
	if err != nil {
		return nil, err
	}
	p.Owner = common.HexToAddress(owner)
	p.LoanId = int64Ptr(loanId)
	p.ReleasedAt = timePtr(releasedAt)
	if p.Amount, err = parseAmount(amount, "amount"); err != nil {
		return nil, err
	}
	return &p, nil
}

func (t *txStore) InsertCollateral(ctx context.Context, p *models.CollateralPosition) error {
	p.Version = 1
	err := t.q.QueryRowContext(ctx, queryInsertCollateral,
		p.Owner.Hex(), p.Amount.String(), p.DepositedAt.UTC(), nullInt64(p.LoanId), p.Active, p.Version).Scan(&p.Id)
	if err != nil {
		return mapConstraintError(fmt.Errorf("failed to insert collateral position: %w", err))
	}
	return nil
}

func (t *txStore) GetActiveCollateral(ctx context.Context, owner common.Address) (*models.CollateralPosition, error) {
	p, err := scanCollateral(t.q.QueryRowContext(ctx, queryGetActiveCollateral, owner.Hex()))
	if err != nil {
		return nil, notFound(err, "active collateral of "+owner.Hex())
	}
	return p, nil
}

func (t *txStore) UpdateCollateral(ctx context.Context, p *models.CollateralPosition) error {
	result, err := t.q.ExecContext(ctx, queryUpdateCollateral,
		p.Amount.String(), nullInt64(p.LoanId), p.Active, nullTime(p.ReleasedAt), p.Id, p.Version)
	if err != nil {
		return fmt.Errorf("failed to update collateral position: %w", err)
	}
	if err := expectOneRow(result, "collateral position"); err != nil {
		return err
	}
	p.Version++
	return nil
}
