package database

import (
	"context"
	"database/sql"
	"fmt"

	"credshield-go/internal/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func scanPurchase(row rowScanner) (*models.Purchase, error) {
	var p models.Purchase
	var buyer, merchant, price, paid string
	err := row.Scan(&p.Id, &buyer, &merchant, &p.Item, &price, &p.Installments, &p.InstallmentsPaid, &paid,
		&p.LoanId, &p.Completed, &p.Defaulted, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.Buyer = common.HexToAddress(buyer)
	p.Merchant = common.HexToAddress(merchant)
	if p.TotalPrice, err = parseAmount(price, "total_price"); err != nil {
		return nil, err
	}
	if p.PaidAmount, err = parseAmount(paid, "paid_amount"); err != nil {
		return nil, err
	}
	return &p, nil
}

func (t *txStore) queryPurchases(ctx context.Context, query string, args ...any) ([]models.Purchase, error) {
	rows, err := t.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query purchases: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var purchases []models.Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan purchase: %w", err)
		}
		purchases = append(purchases, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating purchase rows: %w", err)
	}
	return purchases, nil
}

func (t *txStore) InsertPurchase(ctx context.Context, p *models.Purchase) error {
	err := t.q.QueryRowContext(ctx, queryInsertPurchase,
		p.Buyer.Hex(), p.Merchant.Hex(), p.Item, p.TotalPrice.String(), p.Installments, p.InstallmentsPaid,
		p.PaidAmount.String(), p.LoanId, p.Completed, p.Defaulted, p.CreatedAt.UTC()).Scan(&p.Id)
	if err != nil {
		return mapConstraintError(fmt.Errorf("failed to insert purchase: %w", err))
	}
	return nil
}

func (t *txStore) GetPurchase(ctx context.Context, id int64) (*models.Purchase, error) {
	p, err := scanPurchase(t.q.QueryRowContext(ctx, queryGetPurchase, id))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("purchase %d", id))
	}
	return p, nil
}

func (t *txStore) GetPurchaseByLoan(ctx context.Context, loanId int64) (*models.Purchase, error) {
	p, err := scanPurchase(t.q.QueryRowContext(ctx, queryGetPurchaseByLoan, loanId))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("purchase for loan %d", loanId))
	}
	return p, nil
}

func (t *txStore) UpdatePurchase(ctx context.Context, p *models.Purchase) error {
	result, err := t.q.ExecContext(ctx, queryUpdatePurchase, p.InstallmentsPaid, p.PaidAmount.String(), p.Completed, p.Defaulted, p.Id)
	if err != nil {
		return fmt.Errorf("failed to update purchase: %w", err)
	}
	return expectOneRow(result, "purchase")
}

func (t *txStore) ListPurchasesByBuyer(ctx context.Context, buyer common.Address) ([]models.Purchase, error) {
	return t.queryPurchases(ctx, queryListPurchasesByBuyer, buyer.Hex())
}

func (t *txStore) ListPurchasesByMerchant(ctx context.Context, merchant common.Address) ([]models.Purchase, error) {
	return t.queryPurchases(ctx, queryListPurchasesByMerchant, merchant.Hex())
}

// PurchaseStats sums prices in Go; wei totals overflow SQLite integers
func (t *txStore) PurchaseStats(ctx context.Context) (models.PurchaseStats, error) {
	rows, err := t.q.QueryContext(ctx, queryPurchasePrices)
	if err != nil {
		return models.PurchaseStats{}, fmt.Errorf("failed to query purchase prices: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	stats := models.PurchaseStats{Volume: decimal.Zero}
	for rows.Next() {
		var priceStr string
		if err := rows.Scan(&priceStr); err != nil {
			return models.PurchaseStats{}, fmt.Errorf("failed to scan purchase price: %w", err)
		}
		price, err := parseAmount(priceStr, "total_price")
		if err != nil {
			return models.PurchaseStats{}, err
		}
		stats.Volume = stats.Volume.Add(price)
		stats.Count++
	}
	if err := rows.Err(); err != nil {
		return models.PurchaseStats{}, fmt.Errorf("error iterating purchase rows: %w", err)
	}
	return stats, nil
}
