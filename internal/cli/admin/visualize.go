package admin

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/mathbot/internal/visualize"
)

// VisualizeCmd renders the curriculum graph as a standalone HTML page.
func VisualizeCmd() *cobra.Command {
	var outPath, s3Key, title string
	var highlights []string

	cmd := &cobra.Command{
		Use:   "visualize",
		Short: "Render the curriculum graph as an interactive HTML page",
		Long: `Renders the loaded curriculum graph with vis-network. The page is written to
--out, or uploaded to the configured S3 bucket under --s3-key.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(false)
			if err != nil {
				return err
			}
			e.applySourceFlags(cmd)
			ctx := cmd.Context()

			store, _, err := e.loadCurriculum(ctx)
			if err != nil {
				return err
			}
			snap, err := store.Snapshot()
			if err != nil {
				return err
			}

			var page bytes.Buffer
			if err := visualize.Render(&page, snap.Graph, snap.Namespace, highlights, visualize.Options{Title: title}); err != nil {
				return fmt.Errorf("failed to render graph: %w", err)
			}

			if s3Key != "" {
				s3, err := e.objectStore(ctx)
				if err != nil {
					return err
				}
				if s3 == nil {
					return fmt.Errorf("--s3-key needs MATHBOT_S3_ENDPOINT, MATHBOT_S3_ACCESS_KEY and MATHBOT_S3_SECRET_KEY")
				}
				if err := s3.PutObject(ctx, s3Key, "text/html; charset=utf-8", page.Bytes()); err != nil {
					return err
				}
				url, err := s3.GenerateDownloadURL(ctx, s3Key)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), url)
				return nil
			}

			if err := os.WriteFile(outPath, page.Bytes(), 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", outPath, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", outPath, page.Len())
			return nil
		},
	}

	sourceFlags(cmd)
	cmd.Flags().StringVar(&outPath, "out", "curriculum_graph.html", "Output file")
	cmd.Flags().StringVar(&s3Key, "s3-key", "", "Upload the page to this key instead of writing a file")
	cmd.Flags().StringVar(&title, "title", "", "Page title")
	cmd.Flags().StringSliceVar(&highlights, "highlight", nil, "Labels to highlight (repeatable or comma-separated)")

	return cmd
}
