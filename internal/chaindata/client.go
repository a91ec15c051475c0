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

// Package chaindata retrieves raw wallet activity from a BNB Chain JSON-RPC provider
// that also serves the NodeReal nr_getAssetTransfers extension.
package chaindata

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"credshield-go/internal/models"
	"credshield-go/internal/snapshot"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultTransfersMaxCount = 100

var transferCategories = []string{snapshot.CategoryExternal, snapshot.CategoryInternal, snapshot.CategoryERC20}

type Client struct {
	rpc      *rpc.Client
	eth      *ethclient.Client
	maxCount int
}

func NewClient(ctx context.Context, cfg models.ChainConfig) (*Client, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("chain RPC URL cannot be empty")
	}

	httpClient, err := NewHttpClient(cfg.RequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("unable to create custom http client: %w", err)
	}

	rpcClient, err := rpc.DialOptions(ctx, cfg.RPCURL, rpc.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to dial chain RPC: %w", err)
	}

	maxCount := cfg.TransfersMaxCount
	if maxCount <= 0 {
		maxCount = defaultTransfersMaxCount
	}

	return &Client{
		rpc:      rpcClient,
		eth:      ethclient.NewClient(rpcClient),
		maxCount: maxCount,
	}, nil
}

func (c *Client) Close() {
	c.rpc.Close()
}

// FetchRaw concurrently loads the balance, the nonce and both transfer directions.
// Any failure is reported as snapshot.ErrDataUnavailable.
func (c *Client) FetchRaw(ctx context.Context, addr common.Address) (models.RawActivity, error) {
	var (
		balance  *big.Int
		nonce    uint64
		outgoing []models.RawTransfer
		incoming []models.RawTransfer
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		balance, err = c.eth.BalanceAt(gctx, addr, nil)
		if err != nil {
			return fmt.Errorf("eth_getBalance: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		nonce, err = c.eth.NonceAt(gctx, addr, nil)
		if err != nil {
			return fmt.Errorf("eth_getTransactionCount: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		outgoing, err = c.assetTransfers(gctx, addr, true)
		return err
	})
	g.Go(func() error {
		var err error
		incoming, err = c.assetTransfers(gctx, addr, false)
		return err
	})

	if err := g.Wait(); err != nil {
		zap.L().Warn("Failed to fetch wallet activity", zap.String("address", addr.Hex()), zap.Error(err))
		return models.RawActivity{}, fmt.Errorf("%w: %v", snapshot.ErrDataUnavailable, err)
	}

	zap.L().Debug("Fetched wallet activity",
		zap.String("address", addr.Hex()),
		zap.String("balance", balance.String()),
		zap.Uint64("nonce", nonce),
		zap.Int("outgoing", len(outgoing)),
		zap.Int("incoming", len(incoming)))

	return models.RawActivity{
		Balance:   balance.String(),
		Nonce:     fmt.Sprintf("%d", nonce),
		Transfers: append(outgoing, incoming...),
	}, nil
}

type assetTransfersParams struct {
	Category    []string `json:"category"`
	MaxCount    string   `json:"maxCount"`
	FromAddress string   `json:"fromAddress,omitempty"`
	ToAddress   string   `json:"toAddress,omitempty"`
}

type assetTransfersResult struct {
	Transfers []assetTransfer `json:"transfers"`
}

// assetTransfer mirrors one nr_getAssetTransfers record. Numeric fields arrive as
// either JSON numbers or hex strings depending on the field.
type assetTransfer struct {
	Category        string     `json:"category"`
	BlockNum        flexString `json:"blockNum"`
	BlockTimeStamp  flexString `json:"blockTimeStamp"`
	Hash            string     `json:"hash"`
	From            string     `json:"from"`
	To              string     `json:"to"`
	Value           flexString `json:"value"`
	GasUsed         flexString `json:"gasUsed"`
	ReceiptsStatus  flexString `json:"receiptsStatus"`
	Input           string     `json:"input"`
	ContractAddress string     `json:"contractAddress"`
	Asset           string     `json:"asset"`
	Decimal         flexString `json:"decimal"`
}

func (c *Client) assetTransfers(ctx context.Context, addr common.Address, outgoing bool) ([]models.RawTransfer, error) {
	params := assetTransfersParams{
		Category: transferCategories,
		MaxCount: fmt.Sprintf("0x%x", c.maxCount),
	}
	direction := "to"
	if outgoing {
		params.FromAddress = addr.Hex()
		direction = "from"
	} else {
		params.ToAddress = addr.Hex()
	}

	var result assetTransfersResult
	if err := c.rpc.CallContext(ctx, &result, "nr_getAssetTransfers", params); err != nil {
		return nil, fmt.Errorf("nr_getAssetTransfers (%s): %w", direction, err)
	}

	transfers := make([]models.RawTransfer, 0, len(result.Transfers))
	for _, t := range result.Transfers {
		transfers = append(transfers, models.RawTransfer{
			Category:        t.Category,
			BlockNum:        string(t.BlockNum),
			BlockTimeStamp:  string(t.BlockTimeStamp),
			Hash:            t.Hash,
			From:            t.From,
			To:              t.To,
			Value:           string(t.Value),
			GasUsed:         string(t.GasUsed),
			ReceiptsStatus:  string(t.ReceiptsStatus),
			Input:           t.Input,
			ContractAddress: t.ContractAddress,
			Asset:           t.Asset,
			Decimal:         string(t.Decimal),
		})
	}
	return transfers, nil
}

// flexString accepts a JSON string, number or null.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*f = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*f = flexString(v)
		return nil
	}
	*f = flexString(s)
	return nil
}
