package service

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/cloo-solutions/mathbot/internal/cache"
	"github.com/cloo-solutions/mathbot/internal/domain"
	"github.com/cloo-solutions/mathbot/internal/logger"
	"github.com/cloo-solutions/mathbot/internal/metrics"
	"github.com/cloo-solutions/mathbot/internal/ontology"
	"github.com/cloo-solutions/mathbot/internal/telemetry"
	"github.com/cloo-solutions/mathbot/internal/visualize"
)

const (
	DefaultMaxQuestionRunes = 1000
	questionLogTimeout      = 5 * time.Second
)

// SnapshotSource returns the curriculum snapshot in effect.
type SnapshotSource interface {
	Snapshot() (*ontology.Snapshot, error)
}

// QueryCache stores successful query syntheses.
type QueryCache interface {
	Get(ctx context.Context, key string) (domain.SynthesizedQuery, bool, error)
	Set(ctx context.Context, key string, q domain.SynthesizedQuery) error
}

// QuestionLogRepository records answered questions.
type QuestionLogRepository interface {
	Create(ctx context.Context, entry *domain.QuestionLog) error
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// AskService runs the question pipeline: synthesize query, execute, synthesize answer.
type AskService struct {
	snapshots SnapshotSource
	queries   *QuerySynthesizer
	executor  *QueryExecutor
	answers   *AnswerSynthesizer
	hinter    *ConceptHinter
	cache     QueryCache
	logs      QuestionLogRepository
	uuidGen   UUIDGenerator
	maxRunes  int
	log       *logger.Logger
	pending   sync.WaitGroup
}

func NewAskService(
	snapshots SnapshotSource,
	queries *QuerySynthesizer,
	executor *QueryExecutor,
	answers *AnswerSynthesizer,
	log *logger.Logger,
) *AskService {
	return &AskService{
		snapshots: snapshots,
		queries:   queries,
		executor:  executor,
		answers:   answers,
		uuidGen:   &DefaultUUIDGenerator{},
		maxRunes:  DefaultMaxQuestionRunes,
		log:       log,
	}
}

// WithHinter enables concept hints in the query prompt.
func (s *AskService) WithHinter(h *ConceptHinter) *AskService {
	s.hinter = h
	return s
}

// WithCache enables the synthesized query cache.
func (s *AskService) WithCache(c QueryCache) *AskService {
	s.cache = c
	return s
}

// WithQuestionLog records every answered question in repo.
func (s *AskService) WithQuestionLog(repo QuestionLogRepository) *AskService {
	s.logs = repo
	return s
}

func (s *AskService) WithMaxQuestionRunes(n int) *AskService {
	if n > 0 {
		s.maxRunes = n
	}
	return s
}

func (s *AskService) WithUUIDGenerator(g UUIDGenerator) *AskService {
	s.uuidGen = g
	return s
}

// Ask answers one question. Only validation errors and a missing snapshot are
// returned; every later failure degrades the result instead.
func (s *AskService) Ask(ctx context.Context, question string) (*domain.AskResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.ErrEmptyQuestion
	}
	if utf8.RuneCountInString(question) > s.maxRunes {
		return nil, domain.ErrQuestionTooLong
	}

	snap, err := s.snapshots.Snapshot()
	if err != nil {
		return nil, err
	}

	id := s.uuidGen.NewString()
	ctx, span := telemetry.StartSpan(ctx, "AskService.Ask", telemetry.SpanAttributes{
		RequestID:    id,
		Stage:        metrics.StageAsk,
		GraphVersion: snap.Version,
	})
	defer span.End()

	started := time.Now()
	doneAsk := metrics.TimeStage(metrics.StageAsk)

	doneQuery := metrics.TimeStage(metrics.StageSynthesizeQuery)
	q, cacheHit := s.synthesize(ctx, question, snap)
	doneQuery(!q.Failed())
	queryMs := time.Since(started).Milliseconds()
	span.SetTag("scope", string(q.Scope.Kind))

	rows := []domain.Row{}
	execStarted := time.Now()
	if !q.Failed() && q.Query != "" {
		rows = s.executor.Run(ctx, q.Query, snap.Graph)
	}
	execMs := time.Since(execStarted).Milliseconds()

	answerStarted := time.Now()
	doneAnswer := metrics.TimeStage(metrics.StageSynthesizeAnswer)
	ans := s.answers.Synthesize(ctx, question, rows, q)
	doneAnswer(!ans.Failed())
	answerMs := time.Since(answerStarted).Milliseconds()

	result := &domain.AskResult{
		ID:           id,
		Question:     question,
		Answer:       ans.Answer,
		Evidence:     ans.Evidence,
		Highlights:   visualize.HighlightLabels(ans.Evidence),
		Query:        q.Query,
		Explanation:  domain.StripMarkers(q.Explanation),
		Scope:        q.Scope,
		RowCount:     len(rows),
		QueryFailed:  q.Failed(),
		AnswerFailed: ans.Failed(),
		CacheHit:     cacheHit,
		GraphVersion: snap.Version,
		Timings: domain.StageTimings{
			SynthesizeQueryMs:  queryMs,
			ExecuteMs:          execMs,
			SynthesizeAnswerMs: answerMs,
			TotalMs:            time.Since(started).Milliseconds(),
		},
		CreatedAt: started.UTC(),
	}

	doneAsk(!result.QueryFailed && !result.AnswerFailed)
	metrics.Default().IncQuestion(string(q.Scope.Kind))
	s.log.Info("question answered",
		"id", id,
		"scope", q.Scope.Kind,
		"rows", result.RowCount,
		"query_failed", result.QueryFailed,
		"answer_failed", result.AnswerFailed,
		"cache_hit", cacheHit,
		"total_ms", result.Timings.TotalMs,
	)

	s.record(ctx, result, q)
	return result, nil
}

func (s *AskService) synthesize(ctx context.Context, question string, snap *ontology.Snapshot) (domain.SynthesizedQuery, bool) {
	var key string
	if s.cache != nil {
		key = cache.Key(string(snap.Namespace), snap.Version, question)
		q, hit, err := s.cache.Get(ctx, key)
		switch {
		case err != nil:
			s.log.Warn("query cache read failed", "error", err)
			metrics.Default().IncQueryCache("error")
		case hit:
			metrics.Default().IncQueryCache("hit")
			return q, true
		default:
			metrics.Default().IncQueryCache("miss")
		}
	}

	var hints []string
	if s.hinter != nil {
		hints = s.hinter.Hints(ctx, question, snap.Concepts)
	}

	q := s.queries.Synthesize(ctx, question, snap.Schema, hints...)

	if s.cache != nil && !q.Failed() {
		if err := s.cache.Set(ctx, key, q); err != nil {
			s.log.Warn("query cache write failed", "error", err)
		}
	}
	return q, false
}

func (s *AskService) record(ctx context.Context, result *domain.AskResult, q domain.SynthesizedQuery) {
	if s.logs == nil {
		return
	}
	entry := &domain.QuestionLog{
		ID:           result.ID,
		Question:     result.Question,
		Query:        result.Query,
		Explanation:  q.Explanation,
		Scope:        result.Scope.Kind,
		Terms:        q.Terms,
		RowCount:     result.RowCount,
		Evidence:     result.Evidence,
		Answer:       result.Answer,
		QueryFailed:  result.QueryFailed,
		AnswerFailed: result.AnswerFailed,
		GraphVersion: result.GraphVersion,
		DurationMs:   result.Timings.TotalMs,
		CreatedAt:    result.CreatedAt,
	}

	ctx = context.WithoutCancel(ctx)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(ctx, questionLogTimeout)
		defer cancel()
		if err := s.logs.Create(ctx, entry); err != nil {
			s.log.Warn("question log write failed", "id", entry.ID, "error", err)
		}
	}()
}

// Wait blocks until pending question log writes finish.
func (s *AskService) Wait() {
	s.pending.Wait()
}
