package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grow-with-growth/growyourneed/internal/content"
)

func newSelfTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "selftest [category]",
		Short: "Run the sample queries and report how many results verify",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = appInstance.Close() }()

			var result any
			if len(args) == 1 {
				category, err := content.ParseCategory(args[0])
				if err != nil {
					return err
				}
				result = appInstance.Suite().RunCategory(cmd.Context(), category)
			} else {
				result = appInstance.Suite().RunAll(cmd.Context())
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				return fmt.Errorf("encode result: %w", err)
			}
			return nil
		},
	}
}
