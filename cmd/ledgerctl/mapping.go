package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iho/orgledger/internal/domain"
	"github.com/iho/orgledger/internal/usecase"
)

func (c *cli) mappingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mapping",
		Short: "Account mappings used by depreciation and closing",
	}

	var input usecase.SetMappingInput
	var key string
	set := &cobra.Command{
		Use:   "set",
		Short: "Point a mapping key at an account code",
		Example: "  ledgerctl mapping set --scope org-1 --key general_fund --code 31001\n" +
			"  ledgerctl mapping set --scope org-1 --key accumulated_depreciation:VEH --code 12902",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			input.Key = domain.MappingKey(key)

			s, err := c.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			m, err := s.Mappings.SetMapping(cmd.Context(), input)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "%s -> %s\n", m.Key, m.AccountCode)
			return nil
		},
	}
	set.Flags().StringVar(&input.ScopeID, "scope", "", "Scope (organisation) ID")
	set.Flags().StringVar(&key, "key", "", "Mapping key")
	set.Flags().StringVar(&input.AccountCode, "code", "", "Account code")
	for _, f := range []string{"scope", "key", "code"} {
		_ = set.MarkFlagRequired(f)
	}

	cmd.AddCommand(set)
	return cmd
}
