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

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"credshield-go/internal/models"

	"github.com/ethereum/go-ethereum/common"
)

func Load() (*models.Config, error) {
	var (
		connMaxLifetime, connMaxIdleTime, pingTimeout, busyTimeout time.Duration
		chainTimeout, narrativeTimeout, installmentPeriod          time.Duration
		lockTTL, lockRetry, monitorInterval                        time.Duration
		err                                                        error
	)

	if connMaxLifetime, err = getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute); err != nil {
		return nil, err
	}
	if connMaxIdleTime, err = getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second); err != nil {
		return nil, err
	}
	if pingTimeout, err = getEnvDuration("DB_PING_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if busyTimeout, err = getEnvDuration("DB_BUSY_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if chainTimeout, err = getEnvDuration("CHAIN_REQUEST_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if narrativeTimeout, err = getEnvDuration("NARRATIVE_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if installmentPeriod, err = getEnvDuration("INSTALLMENT_PERIOD", 30*24*time.Hour); err != nil {
		return nil, err
	}
	if lockTTL, err = getEnvDuration("LOCK_TTL", 30*time.Second); err != nil {
		return nil, err
	}
	if lockRetry, err = getEnvDuration("LOCK_RETRY_INTERVAL", 50*time.Millisecond); err != nil {
		return nil, err
	}
	if monitorInterval, err = getEnvDuration("MONITOR_POLLING_INTERVAL", time.Hour); err != nil {
		return nil, err
	}

	operator, err := getEnvAddress("OPERATOR_ADDRESS")
	if err != nil {
		return nil, err
	}

	lendingDefaults := models.DefaultLendingConfig()

	return &models.Config{
		Database: models.DatabaseConfig{
			Path:            getEnvString("DATABASE_PATH", "credshield.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
			BusyTimeout:     busyTimeout,
		},
		Chain: models.ChainConfig{
			RPCURL:            getEnvString("CHAIN_RPC_URL", ""),
			TransfersMaxCount: getEnvInt("CHAIN_TRANSFERS_MAX_COUNT", 100),
			RequestTimeout:    chainTimeout,
			NativeSymbol:      getEnvString("CHAIN_NATIVE_SYMBOL", "BNB"),
		},
		Narrative: models.NarrativeConfig{
			BaseURL:   getEnvString("NARRATIVE_BASE_URL", "https://openrouter.ai/api/v1"),
			APIKey:    getEnvString("NARRATIVE_API_KEY", ""),
			Model:     getEnvString("NARRATIVE_MODEL", "anthropic/claude-sonnet-4"),
			MaxTokens: getEnvInt("NARRATIVE_MAX_TOKENS", 500),
			Timeout:   narrativeTimeout,
		},
		Lending: models.LendingConfig{
			Operator:              operator,
			YieldDailyRateBps:     int64(getEnvInt("YIELD_DAILY_RATE_BPS", int(lendingDefaults.YieldDailyRateBps))),
			OutcomeSuccessDelta:   getEnvInt("OUTCOME_SUCCESS_DELTA", lendingDefaults.OutcomeSuccessDelta),
			OutcomeFailurePenalty: getEnvInt("OUTCOME_FAILURE_PENALTY", lendingDefaults.OutcomeFailurePenalty),
			MinInstallments:       getEnvInt("LOAN_MIN_INSTALLMENTS", lendingDefaults.MinInstallments),
			MaxInstallments:       getEnvInt("LOAN_MAX_INSTALLMENTS", lendingDefaults.MaxInstallments),
			BNPLMaxInstallments:   getEnvInt("BNPL_MAX_INSTALLMENTS", lendingDefaults.BNPLMaxInstallments),
			InstallmentPeriod:     installmentPeriod,
		},
		Lock: models.LockConfig{
			RedisAddr:     getEnvString("REDIS_ADDR", ""),
			RedisPassword: getEnvString("REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("REDIS_DB", 0),
			TTL:           lockTTL,
			RetryInterval: lockRetry,
		},
		Formance: models.FormanceConfig{
			StackURL:     getEnvString("FORMANCE_STACK_URL", ""),
			ClientID:     getEnvString("FORMANCE_CLIENT_ID", ""),
			ClientSecret: getEnvString("FORMANCE_CLIENT_SECRET", ""),
			LedgerName:   getEnvString("FORMANCE_LEDGER", "credshield"),
			AssetSymbol:  getEnvString("FORMANCE_ASSET", "BNB"),
		},
		Monitor: models.MonitorConfig{
			PollingInterval: monitorInterval,
			MetricsAddr:     getEnvString("METRICS_ADDR", ":9090"),
		},
		ReferenceFile: getEnvString("REFERENCE_FILE", ""),
	}, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAddress returns the zero address when key is unset.
func getEnvAddress(key string) (common.Address, error) {
	value := os.Getenv(key)
	if value == "" {
		return common.Address{}, nil
	}
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("invalid address for %s: %q", key, value)
	}
	return common.HexToAddress(value), nil
}
