package models

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Config represents the application configuration
type Config struct {
	Database      DatabaseConfig
	Chain         ChainConfig
	Narrative     NarrativeConfig
	Lending       LendingConfig
	Lock          LockConfig
	Formance      FormanceConfig
	Monitor       MonitorConfig
	ReferenceFile string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
	BusyTimeout     time.Duration
}

// ChainConfig holds the chain-data provider settings
type ChainConfig struct {
	RPCURL            string
	TransfersMaxCount int
	RequestTimeout    time.Duration
	NativeSymbol      string
}

// NarrativeConfig holds the report generator settings. An empty APIKey disables the model.
type NarrativeConfig struct {
	BaseURL   string
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// LendingConfig holds the protocol constants of the lending engine
type LendingConfig struct {
	Operator              common.Address
	YieldDailyRateBps     int64
	OutcomeSuccessDelta   int
	OutcomeFailurePenalty int
	MinInstallments       int
	MaxInstallments       int
	BNPLMaxInstallments   int
	InstallmentPeriod     time.Duration
}

// LockConfig selects the per-borrower lock backend. An empty RedisAddr keeps locks in-process.
type LockConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
	RetryInterval time.Duration
}

// FormanceConfig holds the external ledger settings. An empty StackURL disables publishing.
type FormanceConfig struct {
	StackURL     string
	ClientID     string
	ClientSecret string
	LedgerName   string
	AssetSymbol  string
}

// MonitorConfig holds overdue monitor settings
type MonitorConfig struct {
	PollingInterval time.Duration
	MetricsAddr     string
}

// DefaultLendingConfig returns the protocol constants observed on the reference deployment.
func DefaultLendingConfig() LendingConfig {
	return LendingConfig{
		YieldDailyRateBps:     14,
		OutcomeSuccessDelta:   15,
		OutcomeFailurePenalty: 100,
		MinInstallments:       2,
		MaxInstallments:       12,
		BNPLMaxInstallments:   6,
		InstallmentPeriod:     30 * 24 * time.Hour,
	}
}
