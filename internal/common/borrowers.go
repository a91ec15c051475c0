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

package common

import (
	"context"
	"fmt"

	"credshield-go/internal/models"
	"credshield-go/internal/store"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// LoadBorrowers retrieves profiles based on an optional address filter.
// If addressFilter is provided, returns only that borrower's profile.
// If addressFilter is empty, returns every scored borrower.
func LoadBorrowers(ctx context.Context, dbService store.LedgerStore, addressFilter string, logger *zap.Logger) ([]models.CreditProfile, error) {
	if addressFilter != "" && !ethcommon.IsHexAddress(addressFilter) {
		return nil, fmt.Errorf("invalid borrower address %q", addressFilter)
	}

	allProfiles, err := dbService.ListProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get profiles: %w", err)
	}

	if addressFilter == "" {
		logger.Info("Retrieved borrowers", zap.Int("count", len(allProfiles)))
		return allProfiles, nil
	}

	want := ethcommon.HexToAddress(addressFilter)
	logger.Info("Looking up borrower by address", zap.String("address", want.Hex()))
	for _, p := range allProfiles {
		if p.Address == want {
			return []models.CreditProfile{p}, nil
		}
	}
	return nil, fmt.Errorf("borrower not found: %w", store.ErrNotFound)
}
