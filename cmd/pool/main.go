package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"credshield-go/internal/common"
	"credshield-go/internal/config"

	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	actionFlag := flag.String("action", "stats", "One of: deposit, withdraw, fund-reserve, balance, stats")
	lenderFlag := flag.String("lender", "", "Lender address for deposit, withdraw and balance")
	callerFlag := flag.String("caller", cfg.Lending.Operator.Hex(), "Operator address for fund-reserve")
	amountFlag := flag.String("amount", "", "Amount in whole units")
	flag.Parse()

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	symbol := cfg.Chain.NativeSymbol
	credit := services.Credit

	switch *actionFlag {
	case "deposit":
		balance, err := credit.DepositLiquidity(ctx, *lenderFlag, *amountFlag)
		if err != nil {
			zap.L().Fatal("Deposit failed", zap.String("lender", *lenderFlag), zap.Error(err))
		}
		fmt.Printf("Deposited. Lender balance: %s\n", common.FormatAmount(balance, symbol))

	case "withdraw":
		balance, err := credit.WithdrawLiquidity(ctx, *lenderFlag, *amountFlag)
		if err != nil {
			zap.L().Fatal("Withdrawal failed", zap.String("lender", *lenderFlag), zap.Error(err))
		}
		fmt.Printf("Withdrawn. Lender balance: %s\n", common.FormatAmount(balance, symbol))

	case "fund-reserve":
		reserve, err := credit.FundYieldReserve(ctx, *callerFlag, *amountFlag)
		if err != nil {
			zap.L().Fatal("Funding yield reserve failed", zap.Error(err))
		}
		fmt.Printf("Yield reserve: %s\n", common.FormatAmount(reserve, symbol))

	case "balance":
		balance, err := credit.LenderBalance(ctx, *lenderFlag)
		if err != nil {
			zap.L().Fatal("Failed to load lender balance", zap.String("lender", *lenderFlag), zap.Error(err))
		}
		fmt.Printf("Lender balance: %s\n", common.FormatAmount(balance, symbol))

	case "stats":
		stats, err := credit.PoolStats(ctx)
		if err != nil {
			zap.L().Fatal("Failed to load pool stats", zap.Error(err))
		}
		common.PrintHeader("LENDING POOL", common.DefaultWidth)
		fmt.Printf("Deposits:      %s\n", common.FormatAmount(stats.TotalDeposits, symbol))
		fmt.Printf("Borrowed:      %s\n", common.FormatAmount(stats.TotalBorrowed, symbol))
		fmt.Printf("Available:     %s\n", common.FormatAmount(stats.Available, symbol))
		fmt.Printf("Utilization:   %s\n", common.FormatBps(stats.UtilizationBps))
		fmt.Printf("Yield reserve: %s\n", common.FormatAmount(stats.YieldReserve, symbol))
		fmt.Printf("Loans:         %d issued, %d repaid\n", stats.LoansIssued, stats.LoansRepaid)
		common.PrintFooter("Pool summary complete", common.DefaultWidth)

	default:
		zap.L().Fatal("Unknown action", zap.String("action", *actionFlag))
	}
}
