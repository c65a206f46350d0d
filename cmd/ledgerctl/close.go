package main

import (
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/iho/orgledger/internal/jobs"
	"github.com/iho/orgledger/internal/usecase"
)

func (c *cli) closeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "close",
		Short: "Period closing",
	}

	var scope, year, date string
	var async bool
	month := &cobra.Command{
		Use:   "month",
		Short: "Close the month containing --date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			closingDate, err := parseDate(date)
			if err != nil {
				return err
			}

			if async {
				return c.enqueueCloseMonth(cmd, jobs.CloseMonthPayload{
					ScopeID:         scope,
					FinancialYearID: year,
					ClosingDate:     date,
					Actor:           c.actor,
				})
			}

			s, err := c.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			closing, err := s.Closing.CloseMonth(cmd.Context(), usecase.CloseMonthInput{
				ClosingDate:     closingDate,
				ScopeID:         scope,
				FinancialYearID: year,
				Actor:           c.actor,
			})
			if err != nil {
				return err
			}
			printClosing(c.out, closing)
			return nil
		},
	}
	month.Flags().StringVar(&scope, "scope", "", "Scope (organisation) ID")
	month.Flags().StringVar(&year, "year", "", "Financial year ID")
	month.Flags().StringVar(&date, "date", "", "Any day of the month to close, YYYY-MM-DD")
	month.Flags().BoolVar(&async, "async", false, "Queue the close for ledger-worker instead of running it here")
	for _, f := range []string{"scope", "year", "date"} {
		_ = month.MarkFlagRequired(f)
	}

	var yearScope, yearID string
	closeYear := &cobra.Command{
		Use:   "year",
		Short: "Close a financial year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := c.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			closing, err := s.Closing.CloseYear(cmd.Context(), usecase.CloseYearInput{
				ScopeID:         yearScope,
				FinancialYearID: yearID,
				Actor:           c.actor,
			})
			if err != nil {
				return err
			}
			printClosing(c.out, closing)
			return nil
		},
	}
	closeYear.Flags().StringVar(&yearScope, "scope", "", "Scope (organisation) ID")
	closeYear.Flags().StringVar(&yearID, "year", "", "Financial year ID")
	_ = closeYear.MarkFlagRequired("scope")
	_ = closeYear.MarkFlagRequired("year")

	cmd.AddCommand(month, closeYear)
	return cmd
}

func (c *cli) queue() (*jobs.Client, error) {
	opt, err := asynq.ParseRedisURI(c.cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	return jobs.NewClient(opt), nil
}

func (c *cli) enqueueCloseMonth(cmd *cobra.Command, p jobs.CloseMonthPayload) error {
	client, err := c.queue()
	if err != nil {
		return err
	}
	defer client.Close()

	info, err := client.EnqueueCloseMonth(cmd.Context(), p)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "queued %s as %s on %s\n", info.Type, info.ID, info.Queue)
	return nil
}
