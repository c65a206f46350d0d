package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/iho/orgledger/internal/usecase"
)

func (c *cli) ledgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}

	var scope string
	consistency := &cobra.Command{
		Use:   "consistency",
		Short: "Check that posted debits equal posted credits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := c.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			ok, err := s.Balances.CheckConsistency(cmd.Context(), scope)
			if errors.Is(err, usecase.ErrInconsistentLedger) {
				fmt.Fprintf(c.out, "Consistency check FAILED: %v\n", err)
				return err
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Consistency check PASSED\nConsistent: %t\n", ok)
			return nil
		},
	}
	consistency.Flags().StringVar(&scope, "scope", "", "Scope (organisation) ID")
	_ = consistency.MarkFlagRequired("scope")

	cmd.AddCommand(consistency)
	return cmd
}

func (c *cli) reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Balance reports",
	}

	var scope, asOf string
	trial := &cobra.Command{
		Use:   "trial-balance",
		Short: "Print the trial balance of a scope",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			date := time.Now().UTC()
			if asOf != "" {
				d, err := parseDate(asOf)
				if err != nil {
					return err
				}
				date = d
			}

			s, err := c.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			tb, err := s.Balances.TrialBalance(cmd.Context(), scope, date)
			if err != nil {
				return err
			}
			return printTrialBalance(c.out, tb)
		},
	}
	trial.Flags().StringVar(&scope, "scope", "", "Scope (organisation) ID")
	trial.Flags().StringVar(&asOf, "as-of", "", "Report date, YYYY-MM-DD (default today)")
	_ = trial.MarkFlagRequired("scope")

	var account, balanceAsOf string
	balance := &cobra.Command{
		Use:   "balance",
		Short: "Print the balance of one account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var date *time.Time
			if balanceAsOf != "" {
				d, err := parseDate(balanceAsOf)
				if err != nil {
					return err
				}
				date = &d
			}

			s, err := c.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			b, err := s.Balances.AccountBalance(cmd.Context(), account, date)
			if err != nil {
				return err
			}
			printBalance(c.out, b)
			return nil
		},
	}
	balance.Flags().StringVar(&account, "account", "", "Account ID")
	balance.Flags().StringVar(&balanceAsOf, "as-of", "", "Balance date, YYYY-MM-DD")
	_ = balance.MarkFlagRequired("account")

	var stmtAccount, from, to string
	statement := &cobra.Command{
		Use:   "statement",
		Short: "Print an account ledger with running balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var start time.Time
			if from != "" {
				d, err := parseDate(from)
				if err != nil {
					return err
				}
				start = d
			}
			end, err := parseDate(to)
			if err != nil {
				return err
			}

			s, err := c.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			stmt, err := s.Balances.LedgerStatement(cmd.Context(), stmtAccount, start, end)
			if err != nil {
				return err
			}
			return printStatement(c.out, stmt)
		},
	}
	statement.Flags().StringVar(&stmtAccount, "account", "", "Account ID")
	statement.Flags().StringVar(&from, "from", "", "First day, YYYY-MM-DD (default: beginning)")
	statement.Flags().StringVar(&to, "to", "", "Last day, YYYY-MM-DD")
	_ = statement.MarkFlagRequired("account")
	_ = statement.MarkFlagRequired("to")

	cmd.AddCommand(trial, balance, statement)
	return cmd
}
