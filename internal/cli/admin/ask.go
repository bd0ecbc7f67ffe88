package admin

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/mathbot/internal/domain"
)

// AskCmd answers one question in-process, without a server.
func AskCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer one question without starting the server",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(true)
			if err != nil {
				return err
			}
			defer e.log.Sync()
			e.applySourceFlags(cmd)

			ctx := cmd.Context()
			store, _, err := e.loadCurriculum(ctx)
			if err != nil {
				return err
			}

			ask := e.askService(store, e.llmClient())
			result, err := ask.Ask(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			ask.Wait()

			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				enc.SetEscapeHTML(false)
				return enc.Encode(result)
			}
			printAnswer(cmd.OutOrStdout(), result)
			return nil
		},
	}

	sourceFlags(cmd)
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the full result as JSON")

	return cmd
}

func printAnswer(w io.Writer, r *domain.AskResult) {
	fmt.Fprintln(w, r.Answer)
	for _, e := range r.Evidence {
		fmt.Fprintf(w, "  - %s > %s > %s\n", e.Subject, e.Chapter, e.Concept)
	}
	fmt.Fprintf(w, "\nscope: %s, rows: %d\n", r.Scope.Kind, r.RowCount)
	if r.Query != "" {
		fmt.Fprintf(w, "query:\n%s\n", r.Query)
	}
}
