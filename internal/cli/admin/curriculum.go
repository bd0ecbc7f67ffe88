package admin

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/mathbot/internal/curriculum"
	"github.com/cloo-solutions/mathbot/internal/graph"
	"github.com/cloo-solutions/mathbot/internal/vocab"
)

// CurriculumCmd groups the offline graph authoring commands.
func CurriculumCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "curriculum",
		Short: "Edit curriculum graph documents",
	}

	cmd.AddCommand(CurriculumLinkCmd())
	cmd.AddCommand(CurriculumRenameCmd())

	return cmd
}

// CurriculumLinkCmd adds prerequisiteOf edges to an instance document.
func CurriculumLinkCmd() *cobra.Command {
	var dataPath, linksPath, outPath, namespace string
	var noDefaults bool

	cmd := &cobra.Command{
		Use:   "link",
		Short: "Add prerequisite links to an instance document",
		Long: `Adds a prerequisiteOf edge for every parent/child pair whose labels name concepts
in the document and writes the result as Turtle. The built-in link list is applied
unless --no-defaults is given; --links adds pairs from a YAML file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := readGraph(dataPath)
			if err != nil {
				return err
			}

			var links []curriculum.Link
			if !noDefaults {
				links = append(links, curriculum.DefaultLinks()...)
			}
			if linksPath != "" {
				extra, err := curriculum.LoadLinks(linksPath)
				if err != nil {
					return err
				}
				links = append(links, extra...)
			}

			linked, report := curriculum.Apply(g, vocab.Normalize(namespace), links)
			if err := writeGraph(cmd.OutOrStdout(), outPath, linked); err != nil {
				return err
			}

			errOut := cmd.ErrOrStderr()
			fmt.Fprintf(errOut, "added %d, already present %d, skipped %d\n",
				len(report.Added), len(report.Existing), len(report.Skipped))
			for _, l := range report.Skipped {
				fmt.Fprintf(errOut, "  skipped: %s\n", l)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "", "Instance document to link (required)")
	cmd.Flags().StringVar(&linksPath, "links", "", "YAML file with additional links")
	cmd.Flags().StringVar(&outPath, "out", "", "Output file (default stdout)")
	cmd.Flags().StringVar(&namespace, "namespace", string(vocab.DefaultNamespace), "Ontology namespace")
	cmd.Flags().BoolVar(&noDefaults, "no-defaults", false, "Do not apply the built-in link list")
	_ = cmd.MarkFlagRequired("data")

	return cmd
}

// CurriculumRenameCmd moves every IRI of a document to another namespace.
func CurriculumRenameCmd() *cobra.Command {
	var dataPath, outPath, from, to string

	cmd := &cobra.Command{
		Use:   "rename-namespace",
		Short: "Rewrite the namespace of every IRI in a document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if from == "" || to == "" {
				return fmt.Errorf("--from and --to are required")
			}
			g, err := readGraph(dataPath)
			if err != nil {
				return err
			}
			renamed := curriculum.RenameNamespace(g, vocab.Namespace(from), vocab.Namespace(to))
			return writeGraph(cmd.OutOrStdout(), outPath, renamed)
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "", "Document to rewrite (required)")
	cmd.Flags().StringVar(&outPath, "out", "", "Output file (default stdout)")
	cmd.Flags().StringVar(&from, "from", "", "Namespace to replace")
	cmd.Flags().StringVar(&to, "to", "", "Replacement namespace")
	_ = cmd.MarkFlagRequired("data")

	return cmd
}

func readGraph(path string) (*graph.Graph, error) {
	format, err := graph.FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	g, err := graph.Decode(bufio.NewReader(f), format)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return g, nil
}

// writeGraph writes g as Turtle to path, or to stdout when path is empty.
func writeGraph(stdout io.Writer, path string, g *graph.Graph) error {
	if path == "" {
		return graph.Encode(stdout, g, graph.FormatTurtle)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	if err := graph.Encode(w, g, graph.FormatTurtle); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
