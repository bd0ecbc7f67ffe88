package service

import (
	"context"
	"fmt"
	"time"

	"github.com/cloo-solutions/mathbot/internal/domain"
	"github.com/cloo-solutions/mathbot/internal/graph"
	"github.com/cloo-solutions/mathbot/internal/logger"
	"github.com/cloo-solutions/mathbot/internal/metrics"
	"github.com/cloo-solutions/mathbot/internal/sparql"
	"github.com/cloo-solutions/mathbot/internal/telemetry"
)

const defaultQueryTimeout = 5 * time.Second

// QueryExecutor runs query text against a graph and never fails: any error becomes an
// empty row set plus a logged diagnostic.
type QueryExecutor struct {
	timeout time.Duration
	maxRows int
	log     *logger.Logger
}

func NewQueryExecutor(timeout time.Duration, maxRows int, log *logger.Logger) *QueryExecutor {
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}
	return &QueryExecutor{timeout: timeout, maxRows: maxRows, log: log}
}

// Run returns the rows of queryText and records the execute stage outcome. Empty query
// text returns [] without touching g.
func (e *QueryExecutor) Run(ctx context.Context, queryText string, g *graph.Graph) []domain.Row {
	if queryText == "" || g == nil {
		return []domain.Row{}
	}

	ctx, span := telemetry.StartSpan(ctx, "QueryExecutor.Run", telemetry.SpanAttributes{
		Stage: metrics.StageExecuteQuery,
	})
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	done := metrics.TimeStage(metrics.StageExecuteQuery)
	res, err := sparql.Execute(ctx, g, queryText, sparql.Options{MaxRows: e.maxRows})
	done(err == nil)
	if err != nil {
		e.log.Warn("query execution failed", "error", err)
		metrics.Default().IncExecutionFailure()
		telemetry.AddBreadcrumb(ctx, "sparql", fmt.Sprintf("%v: %v", domain.ErrExecutionFailure, err))
		return []domain.Row{}
	}
	return res.Rows()
}
