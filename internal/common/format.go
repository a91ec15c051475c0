package common

import (
	"fmt"
	"io"
	"strings"

	"credshield-go/internal/models"

	"github.com/shopspring/decimal"
)

const (
	// Default separator widths
	DefaultWidth = 80
	WideWidth    = 100
)

// PrintSeparator prints a separator line with the specified character and width
func PrintSeparator(char string, width int) {
	fmt.Println(strings.Repeat(char, width))
}

// PrintSeparatorNewline prints a separator with a newline before it
func PrintSeparatorNewline(char string, width int) {
	fmt.Println("\n" + strings.Repeat(char, width))
}

// PrintHeader prints a formatted header with title and separators
func PrintHeader(title string, width int) {
	PrintSeparatorNewline("=", width)
	fmt.Println(title)
	PrintSeparator("=", width)
}

// PrintFooter prints a formatted footer with message and separators
func PrintFooter(message string, width int) {
	PrintSeparatorNewline("=", width)
	fmt.Println(message)
	fmt.Println(strings.Repeat("=", width) + "\n")
}

// PrintBoxSeparator prints a box-drawing separator line (for sub-sections)
func PrintBoxSeparator(width int) {
	fmt.Println("├" + strings.Repeat("─", width))
}

// BoxPrefix returns the appropriate box-drawing prefix for list items
func BoxPrefix(isLast bool) string {
	if isLast {
		return "└  "
	}
	return "│  "
}

// BoxDetailPrefix returns the prefix for detail lines under list items
func BoxDetailPrefix(isLast bool) string {
	if isLast {
		return "   "
	}
	return "│  "
}

// FormatAmount renders wei as "12.5000 BNB".
func FormatAmount(wei decimal.Decimal, symbol string) string {
	return models.FormatUnits(wei, 4) + " " + symbol
}

// FormatBps renders basis points as a percentage, e.g. 7500 -> "75.00%".
func FormatBps(bps int64) string {
	return decimal.New(bps, -2).StringFixed(2) + "%"
}

// WriteScoreReport renders a scored wallet: score, tier terms, dimensions and narrative.
func WriteScoreReport(w io.Writer, report *models.ScoreReport, symbol string) {
	r := report.Result
	fmt.Fprintf(w, "Address:     %s\n", r.Address.Hex())
	fmt.Fprintf(w, "CredScore:   %d/900 (%s)\n", r.Score, r.Tier)
	fmt.Fprintf(w, "Collateral:  %s\n", FormatBps(report.Params.CollateralRatioBps))
	fmt.Fprintf(w, "Limit:       %s\n", FormatAmount(report.Params.CreditLimit, symbol))
	fmt.Fprintf(w, "Interest:    %s\n", FormatBps(report.Params.InterestRateBps))
	if report.DataFallback {
		fmt.Fprintln(w, "Note:        chain data unavailable, scored on an empty snapshot")
	}

	fmt.Fprintln(w, "\nDimensions:")
	for i, d := range r.Dimensions {
		last := i == len(r.Dimensions)-1
		fmt.Fprintf(w, "%s%-24s %3d/%-3d\n", BoxPrefix(last), d.Name, d.Score, d.MaxScore)
		fmt.Fprintf(w, "%s  %s\n", BoxDetailPrefix(last), d.Rationale)
	}

	fmt.Fprintf(w, "\n%s\n", report.Report)
	fmt.Fprintf(w, "\nReport hash: %s\n", report.ReportHash)
}

// WriteLoan renders a loan and, when given, its schedule.
func WriteLoan(w io.Writer, loan models.Loan, schedule []models.InstallmentDue, symbol string) {
	state := "active"
	switch {
	case loan.Defaulted:
		state = "defaulted"
	case !loan.Active:
		state = "repaid"
	}
	fmt.Fprintf(w, "Loan #%d (%s) borrower %s\n", loan.Id, state, loan.Borrower.Hex())
	fmt.Fprintf(w, "  Principal:    %s\n", FormatAmount(loan.Principal, symbol))
	fmt.Fprintf(w, "  Total owed:   %s at %s\n", FormatAmount(loan.TotalAmount, symbol), FormatBps(loan.InterestRateBps))
	fmt.Fprintf(w, "  Remaining:    %s\n", FormatAmount(loan.RemainingAmount, symbol))
	fmt.Fprintf(w, "  Collateral:   %s\n", FormatAmount(loan.CollateralAmount, symbol))
	fmt.Fprintf(w, "  Installments: %d/%d paid\n", loan.InstallmentsPaid, loan.TotalInstallments)
	if loan.Active {
		fmt.Fprintf(w, "  Next due:     %s\n", loan.NextDueAt.Format("2006-01-02 15:04 MST"))
	}

	for i, due := range schedule {
		last := i == len(schedule)-1
		paid := ""
		if due.Number <= loan.InstallmentsPaid {
			paid = " (paid)"
		}
		fmt.Fprintf(w, "  %s#%-2d %s due %s%s\n", BoxPrefix(last), due.Number,
			FormatAmount(due.Amount, symbol), due.DueAt.Format("2006-01-02"), paid)
	}
}
