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
	"strings"

	"credshield-go/internal/lock"
	"credshield-go/internal/models"
	"credshield-go/internal/store"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Checkout finances a merchant purchase as an installment loan and records the purchase.
func (e *Engine) Checkout(ctx context.Context, buyer, merchant common.Address, item string, price decimal.Decimal, installments int) (*models.CheckoutResult, error) {
	item = strings.TrimSpace(item)
	if item == "" {
		return nil, e.fail("checkout", fmt.Errorf("%w: item cannot be empty", ErrInvalidRequest))
	}
	if merchant == (common.Address{}) {
		return nil, e.fail("checkout", fmt.Errorf("%w: merchant address required", ErrInvalidRequest))
	}
	if err := e.validateLoanRequest(price, installments, 2, e.cfg.BNPLMaxInstallments); err != nil {
		return nil, e.fail("checkout", err)
	}

	var result *models.CheckoutResult
	var deposit *models.CollateralOp
	err := e.mutate(ctx, "checkout", []string{borrowerKey(buyer), lock.PoolKey}, func(tx store.LedgerTx) error {
		quote, op, err := e.createLoanInTx(ctx, tx, buyer, price, installments)
		if err != nil {
			return err
		}
		deposit = op

		purchase := &models.Purchase{
			Buyer:        buyer,
			Merchant:     merchant,
			Item:         item,
			TotalPrice:   price,
			Installments: installments,
			PaidAmount:   decimal.Zero,
			LoanId:       quote.Loan.Id,
			CreatedAt:    quote.Loan.CreatedAt,
		}
		if err := tx.InsertPurchase(ctx, purchase); err != nil {
			return err
		}
		result = &models.CheckoutResult{Purchase: *purchase, Quote: *quote}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.afterLoanCreated(ctx, &result.Quote, deposit)
	zap.L().Info("BNPL purchase created",
		zap.Int64("purchase_id", result.Purchase.Id),
		zap.String("buyer", buyer.Hex()),
		zap.String("merchant", merchant.Hex()),
		zap.String("item", item))
	return result, nil
}

// RecordPurchaseInstallment repays the next installment of the loan behind a purchase.
func (e *Engine) RecordPurchaseInstallment(ctx context.Context, caller common.Address, purchaseId int64) (*models.RepaymentResult, error) {
	var purchase *models.Purchase
	err := e.read(ctx, func(tx store.LedgerTx) error {
		var err error
		purchase, err = tx.GetPurchase(ctx, purchaseId)
		return err
	})
	if isNotFound(err) {
		return nil, e.fail("purchase_installment", fmt.Errorf("%w: %d", ErrPurchaseNotFound, purchaseId))
	}
	if err != nil {
		return nil, e.fail("purchase_installment", err)
	}
	if purchase.Completed {
		return nil, e.fail("purchase_installment", fmt.Errorf("%w: %d", ErrPurchaseCompleted, purchaseId))
	}
	if purchase.Defaulted {
		return nil, e.fail("purchase_installment", fmt.Errorf("%w: %d", ErrPurchaseDefaulted, purchaseId))
	}
	return e.RepayInstallment(ctx, caller, purchase.LoanId)
}

func (e *Engine) PurchasesByBuyer(ctx context.Context, buyer common.Address) ([]models.Purchase, error) {
	var purchases []models.Purchase
	err := e.read(ctx, func(tx store.LedgerTx) error {
		var err error
		purchases, err = tx.ListPurchasesByBuyer(ctx, buyer)
		return err
	})
	return purchases, err
}

func (e *Engine) PurchasesByMerchant(ctx context.Context, merchant common.Address) ([]models.Purchase, error) {
	var purchases []models.Purchase
	err := e.read(ctx, func(tx store.LedgerTx) error {
		var err error
		purchases, err = tx.ListPurchasesByMerchant(ctx, merchant)
		return err
	})
	return purchases, err
}

// PurchaseStats returns the total financed volume and the number of purchases.
func (e *Engine) PurchaseStats(ctx context.Context) (models.PurchaseStats, error) {
	var stats models.PurchaseStats
	err := e.read(ctx, func(tx store.LedgerTx) error {
		var err error
		stats, err = tx.PurchaseStats(ctx)
		return err
	})
	return stats, err
}
