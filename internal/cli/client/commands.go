package client

import (
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/mathbot/internal/domain"
)

// RootCmd builds the mathbot client command tree.
func RootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "mathbot",
		Short: "mathbot CLI - ask the high-school math curriculum",
		Long: `mathbot answers questions about the Korean high-school math curriculum through
a mathbotd server.

Environment variables:
  MATHBOT_API_KEY   API key, when the server requires one
  MATHBOT_API_URL   API base URL (default: http://localhost:8080)`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringP("output", "o", outputText, "Output format (text or json)")
	root.PersistentFlags().String("api-key", "", "API key (overrides env and config)")
	root.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")

	root.AddCommand(AskCmd())
	root.AddCommand(ConceptsCmd())
	root.AddCommand(PrereqsCmd())
	root.AddCommand(PathCmd())
	root.AddCommand(SchemaCmd())
	root.AddCommand(QuestionsCmd())
	root.AddCommand(AuthCmd())

	return root
}

// AskCmd creates the ask command.
func AskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question",
		Long:  "Asks a question and prints the answer with the curriculum evidence it is based on.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			var result domain.AskResult
			req := map[string]string{"question": strings.Join(args, " ")}
			if err := api.PostInto(cmd.Context(), "/v1/ask", req, &result); err != nil {
				return err
			}

			return render(cmd, result, func(w io.Writer) {
				fmt.Fprintln(w, result.Answer)
				if len(result.Evidence) > 0 {
					fmt.Fprintln(w)
					fmt.Fprintln(w, "근거:")
					for _, e := range result.Evidence {
						line := fmt.Sprintf("  - %s > %s > %s", e.Subject, e.Chapter, e.Concept)
						if e.Desc != "" {
							line += ": " + e.Desc
						}
						fmt.Fprintln(w, line)
					}
				}
			})
		},
	}
}

type conceptsResponse struct {
	Concepts []domain.Concept `json:"concepts"`
	Count    int              `json:"count"`
}

// ConceptsCmd creates the concepts command.
func ConceptsCmd() *cobra.Command {
	var query string

	cmd := &cobra.Command{
		Use:   "concepts",
		Short: "List curriculum concepts",
		Long:  "Lists concepts with their subject and chapter, optionally filtered by label.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			params := url.Values{}
			if query != "" {
				params.Set("q", query)
			}
			var resp conceptsResponse
			if err := api.GetInto(cmd.Context(), "/v1/concepts", params, &resp); err != nil {
				return err
			}

			return render(cmd, resp, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "CONCEPT\tSUBJECT\tCHAPTER")
				for _, c := range resp.Concepts {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Label, c.Hierarchy.SubjectLabel(), c.Hierarchy.ChapterLabel())
				}
				tw.Flush()
				fmt.Fprintf(w, "\n%d concepts\n", resp.Count)
			})
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "Only list concepts whose label contains this text")

	return cmd
}

// PrereqsCmd creates the prereqs command.
func PrereqsCmd() *cobra.Command {
	var depth int

	cmd := &cobra.Command{
		Use:   "prereqs <concept label>",
		Short: "Show the prerequisites of a concept",
		Long:  "Walks prerequisiteOf edges backwards from a concept, level by level.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			label := strings.Join(args, " ")
			params := url.Values{}
			if depth > 0 {
				params.Set("depth", strconv.Itoa(depth))
			}
			var walk domain.PrerequisiteWalk
			path := "/v1/concepts/" + url.PathEscape(label) + "/prerequisites"
			if err := api.GetInto(cmd.Context(), path, params, &walk); err != nil {
				return err
			}

			return render(cmd, walk, func(w io.Writer) {
				fmt.Fprintln(w, walk.Concept.Label)
				if len(walk.Levels) == 0 {
					fmt.Fprintln(w, "  (no prerequisites)")
					return
				}
				for _, level := range walk.Levels {
					labels := make([]string, 0, len(level.Concepts))
					for _, n := range level.Concepts {
						labels = append(labels, n.Label)
					}
					fmt.Fprintf(w, "  %d: %s\n", level.Depth, strings.Join(labels, ", "))
				}
			})
		},
	}

	cmd.Flags().IntVarP(&depth, "depth", "d", 0, "Maximum depth (0 walks the whole chain)")

	return cmd
}

// PathCmd creates the path command.
func PathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path <from> <to>",
		Short: "Show the shortest prerequisite chain between two concepts",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			params := url.Values{}
			params.Set("to", args[1])
			var path domain.PrerequisitePath
			if err := api.GetInto(cmd.Context(), "/v1/concepts/"+url.PathEscape(args[0])+"/path", params, &path); err != nil {
				return err
			}

			return render(cmd, path, func(w io.Writer) {
				if len(path.Steps) == 0 {
					fmt.Fprintf(w, "%s does not lead to %s\n", path.From.Label, path.To.Label)
					return
				}
				labels := make([]string, 0, len(path.Steps))
				for _, n := range path.Steps {
					labels = append(labels, n.Label)
				}
				fmt.Fprintln(w, strings.Join(labels, " -> "))
			})
		},
	}
}

type schemaResponse struct {
	Schema    string `json:"schema"`
	Version   string `json:"version"`
	LoadedAt  string `json:"loaded_at"`
	Triples   int    `json:"triples"`
	Namespace string `json:"namespace"`
}

// SchemaCmd creates the schema command.
func SchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the schema summary the query model sees",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			var resp schemaResponse
			if err := api.GetInto(cmd.Context(), "/v1/schema", nil, &resp); err != nil {
				return err
			}

			return render(cmd, resp, func(w io.Writer) {
				fmt.Fprintf(w, "# version %s, %d triples, loaded %s\n\n", resp.Version, resp.Triples, resp.LoadedAt)
				fmt.Fprintln(w, resp.Schema)
			})
		},
	}
}

type questionsResponse struct {
	Questions  []domain.QuestionLog     `json:"questions"`
	ByScope    map[domain.ScopeKind]int `json:"by_scope"`
	NextCursor string                   `json:"next_cursor,omitempty"`
}

// QuestionsCmd creates the questions command.
func QuestionsCmd() *cobra.Command {
	var limit int
	var cursor string

	cmd := &cobra.Command{
		Use:   "questions",
		Short: "List recently asked questions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			params := url.Values{}
			params.Set("limit", strconv.Itoa(limit))
			if cursor != "" {
				params.Set("cursor", cursor)
			}
			var resp questionsResponse
			if err := api.GetInto(cmd.Context(), "/v1/questions", params, &resp); err != nil {
				return err
			}

			return render(cmd, resp, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ASKED\tSCOPE\tROWS\tQUESTION")
				for _, q := range resp.Questions {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", q.CreatedAt.Local().Format("2006-01-02 15:04"), q.Scope, q.RowCount, q.Question)
				}
				tw.Flush()
				fmt.Fprintf(w, "\nin curriculum %d, out of curriculum %d, ambiguous %d\n",
					resp.ByScope[domain.ScopeInCurriculum],
					resp.ByScope[domain.ScopeOutOfCurriculum],
					resp.ByScope[domain.ScopeAmbiguous])
				if resp.NextCursor != "" {
					fmt.Fprintf(w, "more: --cursor %s\n", resp.NextCursor)
				}
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of questions")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Continue from a previous page")

	return cmd
}
