package admin

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/mathbot/internal/config"
	"github.com/cloo-solutions/mathbot/internal/llm"
	"github.com/cloo-solutions/mathbot/internal/logger"
	"github.com/cloo-solutions/mathbot/internal/ontology"
	"github.com/cloo-solutions/mathbot/internal/service"
	"github.com/cloo-solutions/mathbot/internal/sparql"
	"github.com/cloo-solutions/mathbot/internal/storage"
	"github.com/cloo-solutions/mathbot/internal/vocab"
)

// RootCmd builds the mathbotd command tree.
func RootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "mathbotd",
		Short: "mathbot server and curriculum tooling",
		Long: `mathbotd serves the curriculum question answering API and carries the offline
tooling for the curriculum graph: prerequisite linking, visualization, Neo4j sync.

Configuration is read from MATHBOT_* environment variables and an optional .env file.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(ServeCmd(version))
	root.AddCommand(AskCmd())
	root.AddCommand(SchemaCmd())
	root.AddCommand(CurriculumCmd())
	root.AddCommand(VisualizeCmd())
	root.AddCommand(GraphCmd())
	root.AddCommand(ModelsCmd())

	return root
}

// env is the configuration and logger every command starts from.
type env struct {
	cfg *config.Config
	log *logger.Logger
}

// loadEnv reads the configuration. Commands that talk to the language model pass
// validate=true and fail before doing any work when the configuration is incomplete.
func loadEnv(validate bool) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if validate {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	log, err := logger.New(cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return &env{cfg: cfg, log: log}, nil
}

// sourceFlags lets offline commands read other documents than the configured ones.
func sourceFlags(cmd *cobra.Command) {
	cmd.Flags().String("schema", "", "Schema (TBox) document, local path or s3:// URL (overrides MATHBOT_SCHEMA_PATH)")
	cmd.Flags().String("data", "", "Instance (ABox) document, local path or s3:// URL (overrides MATHBOT_DATA_PATH)")
}

func (e *env) applySourceFlags(cmd *cobra.Command) {
	if schema, _ := cmd.Flags().GetString("schema"); schema != "" {
		e.cfg.SchemaPath = schema
	}
	if data, _ := cmd.Flags().GetString("data"); data != "" {
		e.cfg.DataPath = data
	}
}

func (e *env) namespace() vocab.Namespace {
	return vocab.Normalize(e.cfg.Namespace)
}

// objectStore connects to S3 when it is configured and returns nil otherwise.
func (e *env) objectStore(ctx context.Context) (*storage.S3Client, error) {
	if !e.cfg.HasS3() {
		return nil, nil
	}
	client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        e.cfg.S3Endpoint,
		Region:          e.cfg.S3Region,
		AccessKeyID:     e.cfg.S3AccessKey,
		SecretAccessKey: e.cfg.S3SecretKey,
		Bucket:          e.cfg.S3Bucket,
		UsePathStyle:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	return client, nil
}

// loadCurriculum reads the schema and instance documents into a fresh store.
func (e *env) loadCurriculum(ctx context.Context) (*ontology.Store, *ontology.Reloader, error) {
	s3, err := e.objectStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	var objects ontology.ObjectReader
	if s3 != nil {
		objects = s3
	}

	loader := ontology.NewLoader(e.namespace(), objects, e.cfg.SchemaPath, e.cfg.DataPath)
	store := ontology.NewStore(nil)
	reloader := ontology.NewReloader(loader, store, e.log)

	snap, _, err := reloader.Reload(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load curriculum graph: %w", err)
	}
	e.log.Info("curriculum graph loaded",
		"version", snap.Version,
		"triples", snap.Graph.Len(),
		"concepts", len(snap.Concepts.Concepts()),
	)
	return store, reloader, nil
}

func (e *env) llmClient() *llm.Client {
	return llm.NewClient(llm.Config{
		APIKey:              e.cfg.LLMAPIKey,
		BaseURL:             e.cfg.LLMBaseURL,
		Model:               e.cfg.LLMModel,
		Temperature:         e.cfg.LLMTemperature,
		EmbeddingModel:      e.cfg.EmbeddingModel,
		EmbeddingDimensions: e.cfg.EmbeddingDimensions,
		Timeout:             e.cfg.LLMTimeout,
		RetryBackoff:        e.cfg.LLMRetryBackoff,
	})
}

// askService wires the pipeline stages over store with lexical concept hints. Optional
// backends, including the embedding hinter, are attached by the caller.
func (e *env) askService(store *ontology.Store, client service.JSONCompleter) *service.AskService {
	limits := sparql.Limits{
		MaxTerms:     e.cfg.MaxPatternTerms,
		MaxTermRunes: e.cfg.MaxTermRunes,
		MaxPattern:   e.cfg.MaxPatternBytes,
	}
	return service.NewAskService(
		store,
		service.NewQuerySynthesizer(client, e.namespace(), limits, e.log),
		service.NewQueryExecutor(e.cfg.QueryTimeout, e.cfg.MaxRows, e.log),
		service.NewAnswerSynthesizer(client, e.log),
		e.log,
	).
		WithMaxQuestionRunes(e.cfg.MaxQuestionRunes).
		WithHinter(service.NewConceptHinter(nil, nil, e.log))
}
