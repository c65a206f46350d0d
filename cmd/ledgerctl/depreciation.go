package main

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/iho/orgledger/internal/jobs"
	"github.com/iho/orgledger/internal/usecase"
)

func (c *cli) depreciationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "depreciation",
		Aliases: []string{"dep"},
		Short:   "Asset depreciation",
	}

	var asset, year, period, from, to, units string
	calculate := &cobra.Command{
		Use:   "calculate",
		Short: "Calculate one period of depreciation for an asset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			start, err := parseDate(from)
			if err != nil {
				return err
			}
			end, err := parseDate(to)
			if err != nil {
				return err
			}
			input := usecase.CalculateInput{
				PeriodStart:     start,
				PeriodEnd:       end,
				AssetID:         asset,
				FinancialYearID: year,
				Period:          period,
				Actor:           c.actor,
			}
			if units != "" {
				u, err := decimal.NewFromString(units)
				if err != nil {
					return fmt.Errorf("invalid --units: %w", err)
				}
				input.UnitsProduced = &u
			}

			s, err := c.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			schedule, err := s.Depreciation.Calculate(cmd.Context(), input)
			if err != nil {
				return err
			}
			printSchedule(c.out, schedule)
			return nil
		},
	}
	calculate.Flags().StringVar(&asset, "asset", "", "Asset ID")
	calculate.Flags().StringVar(&year, "year", "", "Financial year ID")
	calculate.Flags().StringVar(&period, "period", "", "Period label, e.g. 2025-04 or FY2025")
	calculate.Flags().StringVar(&from, "from", "", "Period start, YYYY-MM-DD")
	calculate.Flags().StringVar(&to, "to", "", "Period end, YYYY-MM-DD")
	calculate.Flags().StringVar(&units, "units", "", "Units produced (units of production and depletion)")
	for _, f := range []string{"asset", "year", "period", "from", "to"} {
		_ = calculate.MarkFlagRequired(f)
	}

	var scheduleID string
	post := &cobra.Command{
		Use:   "post",
		Short: "Post a calculated schedule to the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := c.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			schedule, err := s.Depreciation.Post(cmd.Context(), scheduleID, c.actor)
			if err != nil {
				return err
			}
			printSchedule(c.out, schedule)
			return nil
		},
	}
	post.Flags().StringVar(&scheduleID, "schedule", "", "Schedule ID")
	_ = post.MarkFlagRequired("schedule")

	var cancelID string
	cancel := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel a calculated schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := c.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			schedule, err := s.Depreciation.Cancel(cmd.Context(), cancelID, c.actor)
			if err != nil {
				return err
			}
			printSchedule(c.out, schedule)
			return nil
		},
	}
	cancel.Flags().StringVar(&cancelID, "schedule", "", "Schedule ID")
	_ = cancel.MarkFlagRequired("schedule")

	var batch jobs.DepreciationBatchPayload
	var assets []string
	batchCmd := &cobra.Command{
		Use:   "batch",
		Short: "Queue depreciation of many assets for ledger-worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, a := range assets {
				if a = strings.TrimSpace(a); a != "" {
					batch.AssetIDs = append(batch.AssetIDs, a)
				}
			}
			batch.Actor = c.actor

			client, err := c.queue()
			if err != nil {
				return err
			}
			defer client.Close()

			info, err := client.EnqueueDepreciationBatch(cmd.Context(), batch)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "queued %s for %d assets as %s\n", info.Type, len(batch.AssetIDs), info.ID)
			return nil
		},
	}
	batchCmd.Flags().StringSliceVar(&assets, "assets", nil, "Comma separated asset IDs")
	batchCmd.Flags().StringVar(&batch.FinancialYearID, "year", "", "Financial year ID")
	batchCmd.Flags().StringVar(&batch.Period, "period", "", "Period label")
	batchCmd.Flags().StringVar(&batch.PeriodStart, "from", "", "Period start, YYYY-MM-DD")
	batchCmd.Flags().StringVar(&batch.PeriodEnd, "to", "", "Period end, YYYY-MM-DD")
	batchCmd.Flags().StringToStringVar(&batch.UnitsProduced, "units", nil, "Units produced per asset, asset=units")
	batchCmd.Flags().BoolVar(&batch.AutoPost, "post", false, "Post each schedule after calculating it")
	for _, f := range []string{"assets", "year", "period", "from", "to"} {
		_ = batchCmd.MarkFlagRequired(f)
	}

	cmd.AddCommand(calculate, post, cancel, batchCmd)
	return cmd
}
