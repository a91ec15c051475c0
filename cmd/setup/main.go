package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"credshield-go/internal/common"
	"credshield-go/internal/config"
	"credshield-go/internal/models"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// walletList is the batch scoring input, e.g.
//
//	wallets:
//	  - 0x...
type walletList struct {
	Wallets []string `yaml:"wallets"`
}

func loadWallets(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", path, err)
	}
	var list walletList
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", path, err)
	}
	return list.Wallets, nil
}

// redactedConfig is what -init prints; credentials are masked.
func redactedConfig(cfg *models.Config) models.Config {
	out := *cfg
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "****"
	}
	out.Narrative.APIKey = mask(out.Narrative.APIKey)
	out.Lock.RedisPassword = mask(out.Lock.RedisPassword)
	out.Formance.ClientSecret = mask(out.Formance.ClientSecret)
	return out
}

func scoreWallets(ctx context.Context, services *common.Services, wallets []string) {
	caller := services.Config.Lending.Operator.Hex()

	var scored, fallbacks, failed int
	var failedWallets []string

	for _, wallet := range wallets {
		zap.L().Info("Scoring wallet", zap.String("address", wallet))

		report, err := services.Credit.ScoreWallet(ctx, caller, wallet)
		if err != nil {
			zap.L().Error("Error scoring wallet", zap.String("address", wallet), zap.Error(err))
			failed++
			failedWallets = append(failedWallets, wallet)
			continue
		}

		scored++
		if report.DataFallback {
			fallbacks++
		}
		zap.L().Info("Scored wallet",
			zap.String("address", report.Result.Address.Hex()),
			zap.Int("score", report.Result.Score),
			zap.String("tier", report.Result.Tier.String()),
			zap.Bool("created", report.Created))
	}

	if failed > 0 {
		zap.L().Warn("Batch scoring completed with some failures",
			zap.Int("scored", scored),
			zap.Int("failed", failed),
			zap.Strings("failed_wallets", failedWallets))
	} else {
		zap.L().Info("Batch scoring completed successfully",
			zap.Int("scored", scored),
			zap.Int("empty_snapshot_fallbacks", fallbacks))
	}
}

func runInit(ctx context.Context, services *common.Services) {
	zap.L().Info("Database schema and external ledger ready",
		zap.String("database", services.Config.Database.Path),
		zap.String("formance_ledger", services.Config.Formance.LedgerName))

	if err := services.Credit.HealthCheck(ctx); err != nil {
		zap.L().Fatal("Health check failed", zap.Error(err))
	}

	output, err := json.MarshalIndent(redactedConfig(services.Config), "", "  ")
	if err != nil {
		zap.L().Error("Error marshaling config to JSON", zap.Error(err))
	} else {
		fmt.Println(string(output))
	}

	if services.Config.Lending.Operator == (ethcommon.Address{}) {
		zap.L().Warn("OPERATOR_ADDRESS is not set; operator-only commands will be rejected")
	}

	zap.L().Info("Initialization complete",
		zap.Int("protocols", services.Registry.ProtocolCount()),
		zap.Int("tokens", services.Registry.TokenCount()))
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	initFlag := flag.Bool("init", false, "Initialize the database and external ledger and print the effective config")
	walletsFlag := flag.String("wallets", "wallets.yaml", "YAML list of wallets to score as the operator")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	if *initFlag {
		runInit(ctx, services)
		return
	}

	wallets, err := loadWallets(*walletsFlag)
	if err != nil {
		zap.L().Fatal("Failed to load wallet list", zap.Error(err))
	}
	zap.L().Info("Wallet list loaded", zap.Int("count", len(wallets)))

	scoreWallets(ctx, services, wallets)
}
