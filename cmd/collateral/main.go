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

package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"credshield-go/internal/common"
	"credshield-go/internal/config"
	"credshield-go/internal/models"

	"go.uber.org/zap"
)

type collateralRequest struct {
	action string
	owner  string
	caller string
	amount string
	loanId *int64
}

func parseAndValidateFlags(operator string) (*collateralRequest, error) {
	actionFlag := flag.String("action", "show", "One of: deposit, withdraw, seize, show")
	ownerFlag := flag.String("owner", "", "Collateral owner address (required)")
	callerFlag := flag.String("caller", operator, "Operator address for seize")
	amountFlag := flag.String("amount", "", "Deposit amount in whole units")
	loanFlag := flag.Int64("loan", 0, "Loan id the deposit secures")
	flag.Parse()

	if *ownerFlag == "" {
		return nil, fmt.Errorf("--owner is required")
	}

	req := &collateralRequest{
		action: *actionFlag,
		owner:  *ownerFlag,
		caller: *callerFlag,
		amount: *amountFlag,
	}

	switch req.action {
	case "deposit":
		if req.amount == "" {
			return nil, fmt.Errorf("--amount is required for deposit")
		}
		if *loanFlag > 0 {
			req.loanId = loanFlag
		}
	case "withdraw", "seize", "show":
	default:
		return nil, fmt.Errorf("unknown action %q", req.action)
	}
	return req, nil
}

func printPosition(position *models.CollateralPosition, symbol string) {
	state := "active"
	if !position.Active {
		state = "released"
	}
	fmt.Printf("Owner:      %s\n", position.Owner.Hex())
	fmt.Printf("Amount:     %s (%s)\n", common.FormatAmount(position.Amount, symbol), state)
	fmt.Printf("Deposited:  %s\n", position.DepositedAt.Format("2006-01-02 15:04:05"))
	if position.LoanId != nil {
		fmt.Printf("Secures:    loan #%d\n", *position.LoanId)
	}
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	req, err := parseAndValidateFlags(cfg.Lending.Operator.Hex())
	if err != nil {
		zap.L().Fatal("Invalid arguments", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	symbol := cfg.Chain.NativeSymbol
	credit := services.Credit

	switch req.action {
	case "deposit":
		position, err := credit.DepositCollateral(ctx, req.owner, req.amount, req.loanId)
		if err != nil {
			zap.L().Fatal("Deposit failed", zap.String("owner", req.owner), zap.Error(err))
		}
		common.PrintHeader("COLLATERAL DEPOSITED", common.DefaultWidth)
		printPosition(position, symbol)

	case "withdraw":
		result, err := credit.WithdrawCollateral(ctx, req.owner)
		if err != nil {
			zap.L().Fatal("Withdrawal failed", zap.String("owner", req.owner), zap.Error(err))
		}
		common.PrintHeader("COLLATERAL WITHDRAWN", common.DefaultWidth)
		fmt.Printf("Principal:  %s\n", common.FormatAmount(result.Principal, symbol))
		fmt.Printf("Yield:      %s\n", common.FormatAmount(result.Yield, symbol))
		fmt.Printf("Total:      %s\n", common.FormatAmount(result.Total, symbol))

	case "seize":
		position, err := credit.SeizeCollateral(ctx, req.caller, req.owner)
		if err != nil {
			zap.L().Fatal("Seizure failed", zap.String("owner", req.owner), zap.Error(err))
		}
		common.PrintHeader("COLLATERAL SEIZED", common.DefaultWidth)
		printPosition(position, symbol)

	case "show":
		position, yield, err := credit.GetCollateral(ctx, req.owner)
		if err != nil {
			zap.L().Fatal("Failed to load collateral", zap.String("owner", req.owner), zap.Error(err))
		}
		common.PrintHeader("COLLATERAL POSITION", common.DefaultWidth)
		printPosition(position, symbol)
		fmt.Printf("Accrued:    %s\n", common.FormatAmount(yield, symbol))
	}

	common.PrintFooter("Done", common.DefaultWidth)
}
