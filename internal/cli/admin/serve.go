package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/cloo-solutions/mathbot/internal/api/handlers"
	"github.com/cloo-solutions/mathbot/internal/api/middleware"
	"github.com/cloo-solutions/mathbot/internal/cache"
	"github.com/cloo-solutions/mathbot/internal/database"
	"github.com/cloo-solutions/mathbot/internal/jobs"
	"github.com/cloo-solutions/mathbot/internal/metrics"
	"github.com/cloo-solutions/mathbot/internal/repository"
	"github.com/cloo-solutions/mathbot/internal/server"
	"github.com/cloo-solutions/mathbot/internal/service"
	"github.com/cloo-solutions/mathbot/internal/telemetry"
)

const shutdownGrace = 30 * time.Second

// ServeCmd returns the serve command
func ServeCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Load the curriculum graph and serve the question answering API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, version)
		},
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (overrides MATHBOT_PORT)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().Duration("index-interval", 10*time.Minute, "How often the concept embedding index is refreshed")

	return cmd
}

func runServe(cmd *cobra.Command, version string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e, err := loadEnv(true)
	if err != nil {
		return err
	}
	cfg, log := e.cfg, e.log
	defer log.Sync()

	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}

	flush := telemetry.Init(telemetry.Config{
		DSN:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		TracesSampleRate: cfg.SentrySampleRate,
		Debug:            cfg.Debug,
		Release:          "mathbot@" + version,
	}, log)
	defer flush()

	recorder, metricsHandler := metrics.NewPrometheus()
	metrics.SetRecorder(recorder)

	store, reloader, err := e.loadCurriculum(ctx)
	if err != nil {
		return err
	}

	client := e.llmClient()
	ask := e.askService(store, client)

	var workers []*jobs.Worker
	if cfg.ReloadInterval > 0 {
		workers = append(workers, jobs.NewWorker("ontology-reload", reloader, cfg.ReloadInterval, log))
	}

	var questionHandler *handlers.QuestionHandler
	if cfg.HasDatabase() {
		pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()
		log.Info("connected to database")

		if noMigrate, _ := cmd.Flags().GetBool("no-migrate"); !noMigrate {
			if err := database.RunMigrations(cfg.DatabaseURL, log); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
		}

		questions, indexer := wireDatabase(pool, ask, store, client, e)
		questionHandler = handlers.NewQuestionHandler(questions)

		interval, _ := cmd.Flags().GetDuration("index-interval")
		workers = append(workers, jobs.NewWorker("concept-index", indexer, interval, log).RunImmediately())
	}

	if cfg.HasRedis() {
		rdb, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer closeRedis(rdb)
		ask.WithCache(cache.NewQueryCache(rdb, cfg.QueryCacheTTL))
		log.Info("query cache enabled", "ttl", cfg.QueryCacheTTL.String())
	}

	routerCfg := server.RouterConfig{
		Logger:            log,
		MaxBodyBytes:      cfg.MaxBodyBytes,
		MetricsHandler:    metricsHandler,
		AskHandler:        handlers.NewAskHandler(ask, log),
		CurriculumHandler: handlers.NewCurriculumHandler(service.NewCurriculumService(store), reloader, log),
		QuestionHandler:   questionHandler,
	}
	if cfg.HasAPIKey() {
		routerCfg.AuthValidator = middleware.StaticKey(cfg.APIKey)
	} else {
		log.Warn("MATHBOT_API_KEY is not set, /v1 is open")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.NewRouter(routerCfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	for _, w := range workers {
		go w.Start(ctx)
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting server", "port", cfg.Port, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		return fmt.Errorf("server failed: %w", err)
	}
	log.Info("shutting down")

	for _, w := range workers {
		w.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	ask.Wait()

	log.Info("server exited")
	return nil
}

// wireDatabase attaches the question log and concept hints to ask and returns the
// question repository and the concept indexer job.
func wireDatabase(pool *pgxpool.Pool, ask *service.AskService, snapshots jobs.SnapshotSource, client service.EmbeddingClient, e *env) (*repository.QuestionLogRepository, *jobs.ConceptIndexer) {
	questions := repository.NewQuestionLogRepository(pool)
	concepts := repository.NewConceptEmbeddingRepository(pool)

	ask.WithQuestionLog(questions).WithHinter(service.NewConceptHinter(client, concepts, e.log))
	return questions, jobs.NewConceptIndexer(snapshots, concepts, client, e.log)
}

func closeRedis(rdb *goredis.Client) {
	_ = rdb.Close()
}
