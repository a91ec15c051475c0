package database

import (
	"context"
	"fmt"

	"credshield-go/internal/models"

	"github.com/ethereum/go-ethereum/common"
)

func scanProfile(row rowScanner) (*models.CreditProfile, error) {
	var p models.CreditProfile
	var address, limit, borrowed, repaid, reportHash string
	err := row.Scan(&address, &p.Score, &p.Tier, &p.CollateralRatioBps, &limit, &p.InterestRateBps,
		&p.LoansCompleted, &p.LoansFailed, &borrowed, &repaid, &reportHash,
		&p.Version, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Address = common.HexToAddress(address)
	p.ReportHash = common.HexToHash(reportHash)
	err = parseAmounts(
		amountField{limit, "credit_limit", &p.CreditLimit},
		amountField{borrowed, "total_borrowed", &p.TotalBorrowed},
		amountField{repaid, "total_repaid", &p.TotalRepaid},
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (t *txStore) GetProfile(ctx context.Context, addr common.Address) (*models.CreditProfile, error) {
	p, err := scanProfile(t.q.QueryRowContext(ctx, queryGetProfile, addr.Hex()))
	if err != nil {
		return nil, notFound(err, "credit profile "+addr.Hex())
	}
	return p, nil
}

func (t *txStore) InsertProfile(ctx context.Context, p *models.CreditProfile) error {
	p.Version = 1
	_, err := t.q.ExecContext(ctx, queryInsertProfile,
		p.Address.Hex(), p.Score, p.Tier, p.CollateralRatioBps, p.CreditLimit.String(), p.InterestRateBps,
		p.LoansCompleted, p.LoansFailed, p.TotalBorrowed.String(), p.TotalRepaid.String(), p.ReportHash.Hex(),
		p.Version, p.CreatedAt.UTC(), p.UpdatedAt.UTC())
	if err != nil {
		return mapConstraintError(fmt.Errorf("failed to insert credit profile: %w", err))
	}
	return nil
}

func (t *txStore) UpdateProfile(ctx context.Context, p *models.CreditProfile) error {
	result, err := t.q.ExecContext(ctx, queryUpdateProfile,
		p.Score, p.Tier, p.CollateralRatioBps, p.CreditLimit.String(), p.InterestRateBps,
		p.LoansCompleted, p.LoansFailed, p.TotalBorrowed.String(), p.TotalRepaid.String(), p.ReportHash.Hex(),
		p.UpdatedAt.UTC(), p.Address.Hex(), p.Version)
	if err != nil {
		return fmt.Errorf("failed to update credit profile: %w", err)
	}
	if err := expectOneRow(result, "credit profile"); err != nil {
		return err
	}
	p.Version++
	return nil
}

func scanHistory(row rowScanner) (*models.CreditHistory, error) {
	var h models.CreditHistory
	var address, borrowed, repaid string
	err := row.Scan(&address, &h.Score, &h.Tier, &h.LoansCompleted, &h.LoansFailed, &borrowed, &repaid,
		&h.CurrentStreak, &h.LongestStreak, &h.FirstCreditAt, &h.Version, &h.UpdatedAt)
	if err != nil {
		return nil, err
	}
	h.Address = common.HexToAddress(address)
	err = parseAmounts(
		amountField{borrowed, "total_borrowed", &h.TotalBorrowed},
		amountField{repaid, "total_repaid", &h.TotalRepaid},
	)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (t *txStore) GetHistory(ctx context.Context, addr common.Address) (*models.CreditHistory, error) {
	h, err := scanHistory(t.q.QueryRowContext(ctx, queryGetHistory, addr.Hex()))
	if err != nil {
		return nil, notFound(err, "credit history "+addr.Hex())
	}
	return h, nil
}

func (t *txStore) InsertHistory(ctx context.Context, h *models.CreditHistory) error {
	h.Version = 1
	_, err := t.q.ExecContext(ctx, queryInsertHistory,
		h.Address.Hex(), h.Score, h.Tier, h.LoansCompleted, h.LoansFailed, h.TotalBorrowed.String(), h.TotalRepaid.String(),
		h.CurrentStreak, h.LongestStreak, h.FirstCreditAt.UTC(), h.Version, h.UpdatedAt.UTC())
	if err != nil {
		return mapConstraintError(fmt.Errorf("failed to insert credit history: %w", err))
	}
	return nil
}

func (t *txStore) UpdateHistory(ctx context.Context, h *models.CreditHistory) error {
	result, err := t.q.ExecContext(ctx, queryUpdateHistory,
		h.Score, h.Tier, h.LoansCompleted, h.LoansFailed, h.TotalBorrowed.String(), h.TotalRepaid.String(),
		h.CurrentStreak, h.LongestStreak, h.UpdatedAt.UTC(), h.Address.Hex(), h.Version)
	if err != nil {
		return fmt.Errorf("failed to update credit history: %w", err)
	}
	if err := expectOneRow(result, "credit history"); err != nil {
		return err
	}
	h.Version++
	return nil
}
