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

type scoreRequest struct {
	address string
	caller  string
	preview bool
	profile bool
}

func parseAndValidateFlags(operator string) (*scoreRequest, error) {
	addressFlag := flag.String("address", "", "Wallet address to score (required)")
	callerFlag := flag.String("caller", operator, "Operator address recording the score")
	previewFlag := flag.Bool("preview", false, "Compute the score without recording it")
	profileFlag := flag.Bool("profile", false, "Show the stored profile instead of scoring")
	flag.Parse()

	if *addressFlag == "" {
		return nil, fmt.Errorf("--address is required")
	}
	if *previewFlag && *profileFlag {
		return nil, fmt.Errorf("--preview and --profile are mutually exclusive")
	}

	return &scoreRequest{
		address: *addressFlag,
		caller:  *callerFlag,
		preview: *previewFlag,
		profile: *profileFlag,
	}, nil
}

func showProfile(ctx context.Context, services *common.Services, address string) error {
	profile, history, err := services.Credit.GetProfile(ctx, address)
	if err != nil {
		return err
	}
	symbol := services.Config.Chain.NativeSymbol

	common.PrintHeader("CREDIT PROFILE", common.DefaultWidth)
	fmt.Printf("Address:        %s\n", profile.Address.Hex())
	fmt.Printf("CredScore:      %d (%s)\n", profile.Score, profile.Tier)
	fmt.Printf("Credit limit:   %s\n", common.FormatAmount(profile.CreditLimit, symbol))
	fmt.Printf("Collateral:     %s\n", common.FormatBps(profile.CollateralRatioBps))
	fmt.Printf("Interest:       %s\n", common.FormatBps(profile.InterestRateBps))
	fmt.Printf("Loans:          %d completed, %d failed\n", profile.LoansCompleted, profile.LoansFailed)
	fmt.Printf("Borrowed:       %s\n", common.FormatAmount(profile.TotalBorrowed, symbol))
	fmt.Printf("Repaid:         %s\n", common.FormatAmount(profile.TotalRepaid, symbol))
	fmt.Printf("Report hash:    %s\n", profile.ReportHash.Hex())
	if history != nil {
		common.PrintBoxSeparator(40)
		fmt.Printf("Current streak: %d\n", history.CurrentStreak)
		fmt.Printf("Longest streak: %d\n", history.LongestStreak)
		fmt.Printf("First credit:   %s\n", history.FirstCreditAt.Format("2006-01-02"))
	}
	common.PrintFooter("Profile updated "+profile.UpdatedAt.Format("2006-01-02 15:04:05"), common.DefaultWidth)
	return nil
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

	if req.profile {
		if err := showProfile(ctx, services, req.address); err != nil {
			zap.L().Fatal("Failed to load profile", zap.String("address", req.address), zap.Error(err))
		}
		return
	}

	var report *models.ScoreReport
	if req.preview {
		report, err = services.Credit.PreviewScore(ctx, req.address)
	} else {
		report, err = services.Credit.ScoreWallet(ctx, req.caller, req.address)
	}
	if err != nil {
		zap.L().Fatal("Scoring failed", zap.String("address", req.address), zap.Error(err))
	}

	title := "CREDSCORE REPORT"
	if req.preview {
		title += " (preview)"
	}
	common.PrintHeader(title, common.WideWidth)
	common.WriteScoreReport(os.Stdout, report, cfg.Chain.NativeSymbol)

	footer := "Score recorded"
	switch {
	case req.preview:
		footer = "Preview only, nothing recorded"
	case report.Created:
		footer = "New borrower profile created"
	case report.PreviousScore != report.Result.Score:
		footer = fmt.Sprintf("Score updated from %d", report.PreviousScore)
	}
	common.PrintFooter(footer, common.WideWidth)
}
