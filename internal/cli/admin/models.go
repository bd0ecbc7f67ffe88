package admin

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/mathbot/internal/config"
)

// ModelsCmd lists the models offered by the configured endpoint.
func ModelsCmd() *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List models available at the configured LLM endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(false)
			if err != nil {
				return err
			}
			if !e.cfg.HasLLM() {
				return config.ErrMissingLLMKey
			}

			ids, err := e.llmClient().ListModels(cmd.Context(), filter)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, id := range ids {
				fmt.Fprintln(out, id)
			}
			if len(ids) == 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "no models match %q\n", filter)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "gemini", "Only list model ids containing this text (empty lists all)")

	return cmd
}
