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

const usage = `usage: loan <command> [flags]

commands:
  create        open a loan            --borrower --amount --installments
  repay         pay the next installment --borrower --id
  default       mark a loan defaulted  --id [--caller]
  show          show one loan or all of a borrower's loans  --id | --borrower
  overdue       list active loans past due
  terms         interest rate and collateral ratio for a borrower  --borrower
  checkout      BNPL purchase          --buyer --merchant --item --price --installments
  pay-purchase  pay a purchase installment --buyer --id
  purchases     list purchases         --buyer | --merchant`

type command struct {
	fs           *flag.FlagSet
	borrower     *string
	caller       *string
	merchant     *string
	item         *string
	amount       *string
	id           *int64
	installments *int
}

func newCommand(name, operator string) *command {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	c := &command{fs: fs}
	c.borrower = fs.String("borrower", "", "Borrower address")
	fs.StringVar(c.borrower, "buyer", "", "Buyer address (alias of --borrower)")
	c.caller = fs.String("caller", operator, "Operator address for privileged commands")
	c.merchant = fs.String("merchant", "", "Merchant address")
	c.item = fs.String("item", "", "Purchased item description")
	c.amount = fs.String("amount", "", "Amount in whole units")
	fs.StringVar(c.amount, "price", "", "Purchase price in whole units (alias of --amount)")
	c.id = fs.Int64("id", 0, "Loan or purchase id")
	c.installments = fs.Int("installments", 3, "Number of installments")
	return c
}

func requireFlags(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			return fmt.Errorf("--%s is required", pairs[i])
		}
	}
	return nil
}

func run(ctx context.Context, services *common.Services, name string, c *command) error {
	credit := services.Credit
	symbol := services.Config.Chain.NativeSymbol

	switch name {
	case "create":
		if err := requireFlags("borrower", *c.borrower, "amount", *c.amount); err != nil {
			return err
		}
		quote, err := credit.CreateLoan(ctx, *c.borrower, *c.amount, *c.installments)
		if err != nil {
			return err
		}
		common.PrintHeader(fmt.Sprintf("LOAN OPENED (%s tier)", quote.Tier), common.DefaultWidth)
		common.WriteLoan(os.Stdout, quote.Loan, quote.Schedule, symbol)
		common.PrintFooter("Principal disbursed from the pool", common.DefaultWidth)

	case "repay":
		if err := requireFlags("borrower", *c.borrower); err != nil {
			return err
		}
		result, err := credit.RepayInstallment(ctx, *c.borrower, *c.id)
		if err != nil {
			return err
		}
		fmt.Printf("Paid %s on loan #%d\n", common.FormatAmount(result.Paid, symbol), result.Loan.Id)
		common.WriteLoan(os.Stdout, result.Loan, nil, symbol)
		if result.Completed {
			fmt.Println("Loan fully repaid, collateral released for withdrawal")
		}

	case "default":
		loan, err := credit.MarkDefault(ctx, *c.caller, *c.id)
		if err != nil {
			return err
		}
		fmt.Printf("Loan #%d marked defaulted\n", loan.Id)
		common.WriteLoan(os.Stdout, *loan, nil, symbol)

	case "show":
		if *c.id > 0 {
			quote, err := credit.GetLoan(ctx, *c.id)
			if err != nil {
				return err
			}
			common.WriteLoan(os.Stdout, quote.Loan, quote.Schedule, symbol)
			return nil
		}
		if err := requireFlags("borrower", *c.borrower); err != nil {
			return fmt.Errorf("--id or --borrower is required")
		}
		loans, err := credit.LoansByBorrower(ctx, *c.borrower)
		if err != nil {
			return err
		}
		common.PrintHeader(fmt.Sprintf("LOANS (%d)", len(loans)), common.DefaultWidth)
		for _, loan := range loans {
			common.WriteLoan(os.Stdout, loan, nil, symbol)
			common.PrintBoxSeparator(40)
		}

	case "overdue":
		overdue, err := credit.OverdueLoans(ctx)
		if err != nil {
			return err
		}
		common.PrintHeader(fmt.Sprintf("OVERDUE LOANS (%d)", len(overdue)), common.DefaultWidth)
		for i, o := range overdue {
			last := i == len(overdue)-1
			fmt.Printf("%s#%d %s %d days overdue, %s remaining\n", common.BoxPrefix(last), o.Loan.Id,
				o.Loan.Borrower.Hex(), o.OverdueDays, common.FormatAmount(o.Loan.RemainingAmount, symbol))
		}

	case "terms":
		if err := requireFlags("borrower", *c.borrower); err != nil {
			return err
		}
		rate, ratio, err := credit.BorrowingTerms(ctx, *c.borrower)
		if err != nil {
			return err
		}
		fmt.Printf("Interest %s, collateral %s of principal\n", common.FormatBps(rate), common.FormatBps(ratio))

	case "checkout":
		if err := requireFlags("buyer", *c.borrower, "merchant", *c.merchant, "item", *c.item, "price", *c.amount); err != nil {
			return err
		}
		result, err := credit.Checkout(ctx, *c.borrower, *c.merchant, *c.item, *c.amount, *c.installments)
		if err != nil {
			return err
		}
		common.PrintHeader(fmt.Sprintf("PURCHASE #%d: %s", result.Purchase.Id, result.Purchase.Item), common.DefaultWidth)
		fmt.Printf("Merchant %s paid %s\n", result.Purchase.Merchant.Hex(), common.FormatAmount(result.Purchase.TotalPrice, symbol))
		common.WriteLoan(os.Stdout, result.Quote.Loan, result.Quote.Schedule, symbol)
		common.PrintFooter("Buyer repays in installments", common.DefaultWidth)

	case "pay-purchase":
		if err := requireFlags("buyer", *c.borrower); err != nil {
			return err
		}
		result, err := credit.PayPurchaseInstallment(ctx, *c.borrower, *c.id)
		if err != nil {
			return err
		}
		fmt.Printf("Paid %s\n", common.FormatAmount(result.Paid, symbol))
		if p := result.Purchase; p != nil {
			fmt.Printf("Purchase #%d: %d/%d installments paid\n", p.Id, p.InstallmentsPaid, p.Installments)
			if p.Completed {
				fmt.Println("Purchase completed")
			}
		}

	case "purchases":
		var (
			purchases []models.Purchase
			err       error
		)
		switch {
		case *c.borrower != "":
			purchases, err = credit.PurchasesByBuyer(ctx, *c.borrower)
		case *c.merchant != "":
			purchases, err = credit.PurchasesByMerchant(ctx, *c.merchant)
		default:
			stats, err := credit.PurchaseStats(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("%d purchases, %s total volume\n", stats.Count, common.FormatAmount(stats.Volume, symbol))
			return nil
		}
		if err != nil {
			return err
		}
		printPurchases(purchases, symbol)

	default:
		return fmt.Errorf("unknown command %q\n%s", name, usage)
	}
	return nil
}

func printPurchases(purchases []models.Purchase, symbol string) {
	common.PrintHeader(fmt.Sprintf("PURCHASES (%d)", len(purchases)), common.DefaultWidth)
	for i, p := range purchases {
		last := i == len(purchases)-1
		state := "open"
		switch {
		case p.Completed:
			state = "completed"
		case p.Defaulted:
			state = "defaulted"
		}
		fmt.Printf("%s#%d %s (%s)\n", common.BoxPrefix(last), p.Id, p.Item, state)
		fmt.Printf("%s  %s, %d/%d paid (%s), loan #%d\n", common.BoxDetailPrefix(last),
			common.FormatAmount(p.TotalPrice, symbol), p.InstallmentsPaid, p.Installments,
			common.FormatAmount(p.PaidAmount, symbol), p.LoanId)
	}
}

func main() {
	ctx := context.Background()

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	name := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	cmd := newCommand(name, cfg.Lending.Operator.Hex())
	if err := cmd.fs.Parse(os.Args[2:]); err != nil {
		zap.L().Fatal("Invalid arguments", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	if err := run(ctx, services, name, cmd); err != nil {
		zap.L().Fatal("Command failed", zap.String("command", name), zap.Error(err))
	}
}
