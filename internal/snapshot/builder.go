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

// Package snapshot normalizes provider records into an immutable ActivitySnapshot.
package snapshot

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"
	"time"

	"credshield-go/internal/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrDataUnavailable reports that wallet activity could not be retrieved.
// Callers recover by scoring Empty(address, asOf).
var ErrDataUnavailable = errors.New("activity data unavailable")

const defaultTokenDecimals = 18

// Transfer categories as reported by the provider
const (
	CategoryExternal = "external"
	CategoryInternal = "internal"
	CategoryERC20    = "20"
	CategoryERC721   = "721"
	CategoryERC1155  = "1155"
)

// Empty returns the zeroed snapshot scored when no data could be fetched.
func Empty(address common.Address, asOf time.Time) models.ActivitySnapshot {
	return models.ActivitySnapshot{
		Address:       address,
		AsOf:          asOf.UTC(),
		NativeBalance: decimal.Zero,
	}
}

// Build normalizes raw provider activity. Malformed numeric fields become zero,
// duplicate records are dropped and every sequence is ordered by (timestamp, block).
func Build(address common.Address, asOf time.Time, raw models.RawActivity) (models.ActivitySnapshot, error) {
	if address == (common.Address{}) {
		return models.ActivitySnapshot{}, fmt.Errorf("snapshot address cannot be the zero address")
	}

	snap := Empty(address, asOf)
	snap.NativeBalance = parseQuantity(raw.Balance)
	snap.Nonce = parseUint(raw.Nonce)

	seen := make(map[string]struct{}, len(raw.Transfers))
	skipped := 0
	for _, t := range raw.Transfers {
		key := dedupeKey(t)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		switch t.Category {
		case CategoryExternal:
			snap.Transactions = append(snap.Transactions, toTransaction(t))
		case CategoryInternal:
			snap.InternalTxs = append(snap.InternalTxs, toInternal(t))
		case CategoryERC20, CategoryERC721, CategoryERC1155:
			snap.TokenTransfers = append(snap.TokenTransfers, toTokenTransfer(t))
		default:
			skipped++
		}
	}
	if skipped > 0 {
		zap.L().Debug("Skipped transfers with unknown category",
			zap.String("address", address.Hex()),
			zap.Int("count", skipped))
	}

	sort.SliceStable(snap.Transactions, func(i, j int) bool {
		return before(snap.Transactions[i].Timestamp, snap.Transactions[i].Block, snap.Transactions[j].Timestamp, snap.Transactions[j].Block)
	})
	sort.SliceStable(snap.InternalTxs, func(i, j int) bool {
		return before(snap.InternalTxs[i].Timestamp, snap.InternalTxs[i].Block, snap.InternalTxs[j].Timestamp, snap.InternalTxs[j].Block)
	})
	sort.SliceStable(snap.TokenTransfers, func(i, j int) bool {
		return before(snap.TokenTransfers[i].Timestamp, snap.TokenTransfers[i].Block, snap.TokenTransfers[j].Timestamp, snap.TokenTransfers[j].Block)
	})

	return snap, nil
}

func before(ti time.Time, bi uint64, tj time.Time, bj uint64) bool {
	if !ti.Equal(tj) {
		return ti.Before(tj)
	}
	return bi < bj
}

func dedupeKey(t models.RawTransfer) string {
	return strings.ToLower(t.Hash + "|" + t.Category + "|" + t.From + "|" + t.To)
}

func toTransaction(t models.RawTransfer) models.Transaction {
	tx := models.Transaction{
		Hash:            common.HexToHash(t.Hash),
		Block:           parseUint(t.BlockNum),
		Timestamp:       parseTimestamp(t.BlockTimeStamp),
		From:            common.HexToAddress(t.From),
		To:              optionalAddress(t.To),
		Value:           parseQuantity(t.Value),
		GasUsed:         parseUint(t.GasUsed),
		Succeeded:       parseUint(t.ReceiptsStatus) == 1,
		FunctionName:    strings.TrimSpace(t.FunctionName),
		ContractAddress: optionalAddress(t.ContractAddress),
	}
	input := strings.ToLower(t.Input)
	if strings.HasPrefix(input, "0x") && len(input) > 10 {
		tx.Selector = input[:10]
	}
	return tx
}

func toInternal(t models.RawTransfer) models.InternalTx {
	return models.InternalTx{
		Hash:      common.HexToHash(t.Hash),
		Block:     parseUint(t.BlockNum),
		Timestamp: parseTimestamp(t.BlockTimeStamp),
		From:      common.HexToAddress(t.From),
		To:        optionalAddress(t.To),
		Value:     parseQuantity(t.Value),
	}
}

func toTokenTransfer(t models.RawTransfer) models.TokenTransfer {
	decimals := defaultTokenDecimals
	switch {
	case t.Category == CategoryERC721 || t.Category == CategoryERC1155:
		decimals = 0
	case t.Decimal != "":
		if d, err := strconv.Atoi(strings.TrimSpace(t.Decimal)); err == nil && d >= 0 {
			decimals = d
		}
	}
	return models.TokenTransfer{
		Hash:          common.HexToHash(t.Hash),
		Block:         parseUint(t.BlockNum),
		Timestamp:     parseTimestamp(t.BlockTimeStamp),
		From:          common.HexToAddress(t.From),
		To:            common.HexToAddress(t.To),
		Value:         parseQuantity(t.Value),
		TokenSymbol:   t.Asset,
		TokenDecimals: decimals,
		TokenContract: common.HexToAddress(t.ContractAddress),
	}
}

func optionalAddress(s string) *common.Address {
	s = strings.TrimSpace(s)
	if s == "" || !common.IsHexAddress(s) {
		return nil
	}
	addr := common.HexToAddress(s)
	return &addr
}

// parseQuantity parses a 0x-hex or base-10 integer; anything else is zero.
func parseQuantity(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	n := new(big.Int)
	var ok bool
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		if len(s) == 2 {
			return decimal.Zero
		}
		_, ok = n.SetString(s[2:], 16)
	} else {
		_, ok = n.SetString(s, 10)
	}
	if !ok || n.Sign() < 0 {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n, 0)
}

func parseUint(s string) uint64 {
	q := parseQuantity(s)
	if !q.BigInt().IsUint64() {
		return 0
	}
	return q.BigInt().Uint64()
}

func parseTimestamp(s string) time.Time {
	secs := parseUint(s)
	if secs == 0 || secs > uint64(1<<40) {
		return time.Unix(0, 0).UTC()
	}
	return time.Unix(int64(secs), 0).UTC()
}
