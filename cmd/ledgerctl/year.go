package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	postgresRepo "github.com/iho/orgledger/internal/adapter/repository/postgres"
	"github.com/iho/orgledger/internal/domain"
)

func (c *cli) yearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "year",
		Short: "Financial years",
	}

	var scope, name, from, to string
	create := &cobra.Command{
		Use:   "create",
		Short: "Open a financial year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			y, err := newFinancialYear(scope, name, from, to)
			if err != nil {
				return err
			}
			y.ID = postgresRepo.NewULIDGenerator().Generate()

			s, err := c.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.Periods.CreateYear(cmd.Context(), nil, y); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "financial year %s (%s) %s to %s\n", y.Name, y.ID, from, to)
			return nil
		},
	}
	create.Flags().StringVar(&scope, "scope", "", "Scope (organisation) ID")
	create.Flags().StringVar(&name, "name", "", "Display name, e.g. FY2025-26")
	create.Flags().StringVar(&from, "from", "", "First day, YYYY-MM-DD")
	create.Flags().StringVar(&to, "to", "", "Last day, YYYY-MM-DD")
	for _, f := range []string{"scope", "name", "from", "to"} {
		_ = create.MarkFlagRequired(f)
	}

	cmd.AddCommand(create)
	return cmd
}

func newFinancialYear(scope, name, from, to string) (*domain.FinancialYear, error) {
	start, err := parseDate(from)
	if err != nil {
		return nil, err
	}
	end, err := parseDate(to)
	if err != nil {
		return nil, err
	}
	if !end.After(start) {
		return nil, errors.New("--to must be after --from")
	}
	return &domain.FinancialYear{
		StartDate: start,
		EndDate:   end,
		ScopeID:   scope,
		Name:      name,
		IsActive:  true,
	}, nil
}
