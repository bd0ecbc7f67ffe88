package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloo-solutions/mathbot/internal/domain"
	"github.com/cloo-solutions/mathbot/internal/logger"
	"github.com/cloo-solutions/mathbot/internal/metrics"
	"github.com/cloo-solutions/mathbot/internal/sparql"
	"github.com/cloo-solutions/mathbot/internal/telemetry"
	"github.com/cloo-solutions/mathbot/internal/vocab"
)

const (
	purposeQuery  = "query"
	purposeAnswer = "answer"
)

// JSONCompleter asks a generative model for a JSON reply and decodes it into out.
type JSONCompleter interface {
	CompleteJSON(ctx context.Context, purpose, system, user string, out any) error
}

var errNoTerms = errors.New("model output has no usable concept terms")

type queryReply struct {
	Query       string   `json:"query"`
	Explanation string   `json:"explanation"`
	Terms       []string `json:"terms"`
}

// QuerySynthesizer turns a question into the canonical concept label query.
type QuerySynthesizer struct {
	llm    JSONCompleter
	ns     vocab.Namespace
	limits sparql.Limits
	log    *logger.Logger
}

func NewQuerySynthesizer(llm JSONCompleter, ns vocab.Namespace, limits sparql.Limits, log *logger.Logger) *QuerySynthesizer {
	if ns == "" {
		ns = vocab.DefaultNamespace
	}
	return &QuerySynthesizer{llm: llm, ns: ns, limits: limits, log: log}
}

// Synthesize asks the model for a query and normalizes it. The terms of the model's
// label filter (or its "terms" list) are sanitized and re-rendered with
// sparql.LabelQuery, so the executed query always has the same shape. Failures are
// returned as a domain.FailedQuery, never as an error.
func (s *QuerySynthesizer) Synthesize(ctx context.Context, question, schemaText string, hints ...string) domain.SynthesizedQuery {
	ctx, span := telemetry.StartSpan(ctx, "QuerySynthesizer.Synthesize", telemetry.SpanAttributes{
		Stage: metrics.StageSynthesizeQuery,
	})
	defer span.End()

	prompt, err := renderPrompt(queryPrompt, queryPromptData{
		Schema:          schemaText,
		Namespace:       string(s.ns),
		Question:        question,
		Hints:           hints,
		OutMarker:       domain.OutOfCurriculumMarker,
		AmbiguousMarker: domain.AmbiguousScopeMarker,
	})
	if err != nil {
		return s.fail(span, fmt.Errorf("render prompt: %w", err))
	}

	var reply queryReply
	if err := s.llm.CompleteJSON(ctx, purposeQuery, querySystemPrompt, prompt, &reply); err != nil {
		return s.fail(span, err)
	}

	terms := sparql.SanitizeTerms(replyTerms(reply), s.limits)
	if len(terms) == 0 {
		return s.fail(span, errNoTerms)
	}

	explanation := strings.TrimSpace(reply.Explanation)
	scope := domain.ScopeFromExplanation(explanation, terms)
	span.SetTag("scope", string(scope.Kind))

	return domain.SynthesizedQuery{
		Query:       sparql.LabelQuery(s.ns, terms),
		Explanation: explanation,
		Scope:       scope,
		Terms:       terms,
	}
}

func (s *QuerySynthesizer) fail(span *telemetry.Span, err error) domain.SynthesizedQuery {
	s.log.Warn("query synthesis failed", "error", err)
	span.SetError(fmt.Errorf("%w: %v", domain.ErrSynthesisFailure, err))
	return domain.FailedQuery(err.Error())
}

// replyTerms prefers the alternation in the model's own filter and falls back to its
// explicit term list.
func replyTerms(reply queryReply) []string {
	if strings.TrimSpace(reply.Query) != "" {
		if q, err := sparql.Parse(reply.Query); err == nil {
			if terms := sparql.LabelTerms(q); len(terms) > 0 {
				return terms
			}
		}
		if terms := sparql.RawLabelTerms(reply.Query); len(terms) > 0 {
			return terms
		}
	}
	return reply.Terms
}
