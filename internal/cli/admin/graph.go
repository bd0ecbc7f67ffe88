package admin

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/mathbot/internal/graphsync"
)

// GraphCmd groups commands that export the curriculum graph.
func GraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Export the curriculum graph",
	}
	cmd.AddCommand(GraphSyncNeo4jCmd())
	return cmd
}

// GraphSyncNeo4jCmd mirrors the loaded graph into Neo4j.
func GraphSyncNeo4jCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync-neo4j",
		Short: "Mirror the curriculum graph into Neo4j",
		Long: `Merges subjects, chapters, sections and concepts with their hierarchy and
prerequisite relationships into Neo4j, then removes nodes left over from other graph
versions. Connection settings come from MATHBOT_NEO4J_*.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(false)
			if err != nil {
				return err
			}
			defer e.log.Sync()
			if !e.cfg.HasNeo4j() {
				return fmt.Errorf("MATHBOT_NEO4J_URI is not set")
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

			driver, err := graphsync.Connect(ctx, e.cfg.Neo4jURI, e.cfg.Neo4jUser, e.cfg.Neo4jPassword)
			if err != nil {
				return err
			}
			defer driver.Close(ctx)

			session := graphsync.NewSession(ctx, driver, e.cfg.Neo4jDatabase)
			defer session.Close(ctx)

			report, err := graphsync.Sync(ctx, session, snap, e.log)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "synced version %s: %d nodes, %d relationships, %d stale nodes removed\n",
				report.Version, report.Nodes, report.Relationships, report.Removed)
			return nil
		},
	}
	sourceFlags(cmd)
	return cmd
}
