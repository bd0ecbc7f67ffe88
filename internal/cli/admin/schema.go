package admin

import (
	"fmt"

	"github.com/spf13/cobra"
)

// SchemaCmd prints the schema summary handed to the query model.
func SchemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the schema summary of the curriculum graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(false)
			if err != nil {
				return err
			}
			e.applySourceFlags(cmd)

			store, _, err := e.loadCurriculum(cmd.Context())
			if err != nil {
				return err
			}
			snap, err := store.Snapshot()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), snap.Schema)
			return nil
		},
	}
	sourceFlags(cmd)
	return cmd
}
