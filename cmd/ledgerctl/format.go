package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/iho/orgledger/internal/domain"
	"github.com/iho/orgledger/internal/usecase"
)

var printer = message.NewPrinter(language.English)

// formatAmount renders d with thousands separators and two decimals.
func formatAmount(d decimal.Decimal) string {
	if d.IsZero() {
		return "-"
	}
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	fixed := d.Round(2)
	whole := fixed.Truncate(0)
	cents := fixed.Sub(whole).Shift(2).IntPart()
	return fmt.Sprintf("%s%s.%02d", sign, printer.Sprintf("%d", whole.IntPart()), cents)
}

func newTable(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
}

func printTrialBalance(out io.Writer, tb *domain.TrialBalance) error {
	fmt.Fprintf(out, "Trial balance %s as of %s\n\n", tb.ScopeID, tb.AsOf.Format("2006-01-02"))

	w := newTable(out)
	fmt.Fprintln(w, "Code\tAccount\tDebit\tCredit\t")
	for _, r := range tb.Rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n", r.Code, r.Name, formatAmount(r.Debit), formatAmount(r.Credit))
	}
	fmt.Fprintf(w, "\tTotal\t%s\t%s\t\n", formatAmount(tb.TotalDebits), formatAmount(tb.TotalCredits))
	if err := w.Flush(); err != nil {
		return err
	}

	if !tb.IsBalanced {
		fmt.Fprintf(out, "\nOUT OF BALANCE by %s\n", formatAmount(tb.TotalDebits.Sub(tb.TotalCredits)))
	}
	return nil
}

func printBalance(out io.Writer, b *domain.Balance) {
	asOf := "today"
	if b.AsOf != nil {
		asOf = b.AsOf.Format("2006-01-02")
	}
	fmt.Fprintf(out, "Account %s as of %s\n", b.AccountID, asOf)
	fmt.Fprintf(out, "  debits:  %s\n", formatAmount(b.TotalDebit))
	fmt.Fprintf(out, "  credits: %s\n", formatAmount(b.TotalCredit))
	fmt.Fprintf(out, "  balance: %s %s\n", formatAmount(b.Balance), b.BalanceType)
}

func printStatement(out io.Writer, s *usecase.Statement) error {
	fmt.Fprintf(out, "%s %s, %s to %s\n\n", s.Account.Code, s.Account.Name, s.From.Format("2006-01-02"), s.To.Format("2006-01-02"))

	w := newTable(out)
	fmt.Fprintln(w, "Date\tEntry\tNarration\tDebit\tCredit\tBalance\t")
	fmt.Fprintf(w, "\t\tOpening balance\t\t\t%s\t\n", formatAmount(s.OpeningBalance))
	for line := range s.Lines() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t\n",
			line.EntryDate.Format("2006-01-02"),
			line.EntryNumber,
			line.Narration,
			formatAmount(line.Debit),
			formatAmount(line.Credit),
			formatAmount(line.RunningBalance),
		)
	}
	fmt.Fprintf(w, "\t\tClosing balance\t\t\t%s\t\n", formatAmount(s.ClosingBalance()))
	return w.Flush()
}

func printClosing(out io.Writer, c *domain.PeriodClosing) {
	fmt.Fprintf(out, "Closed %s %s to %s\n", c.Kind, c.PeriodStart.Format("2006-01-02"), c.PeriodEnd.Format("2006-01-02"))
	fmt.Fprintf(out, "  income:      %s\n", formatAmount(c.TotalIncome))
	fmt.Fprintf(out, "  expenses:    %s\n", formatAmount(c.TotalExpenses))
	fmt.Fprintf(out, "  net surplus: %s\n", formatAmount(c.NetSurplus))
	if c.JournalEntryID != nil {
		fmt.Fprintf(out, "  entry:       %s\n", *c.JournalEntryID)
	}
}

func printSchedule(out io.Writer, s *domain.DepreciationSchedule) {
	fmt.Fprintf(out, "Schedule %s (%s, %s) %s\n", s.ID, s.Period, s.Method, s.Status)
	fmt.Fprintf(out, "  opening:      %s\n", formatAmount(s.OpeningBookValue))
	fmt.Fprintf(out, "  depreciation: %s\n", formatAmount(s.DepreciationAmount))
	fmt.Fprintf(out, "  closing:      %s\n", formatAmount(s.ClosingBookValue))
	if s.JournalEntryID != nil {
		fmt.Fprintf(out, "  entry:        %s\n", *s.JournalEntryID)
	}
}
