package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cloo-solutions/mathbot/internal/domain"
	"github.com/cloo-solutions/mathbot/internal/logger"
	"github.com/cloo-solutions/mathbot/internal/metrics"
	"github.com/cloo-solutions/mathbot/internal/sparql"
	"github.com/cloo-solutions/mathbot/internal/telemetry"
)

// NoDataFound is the retrieved-knowledge text when a query returned no rows.
const NoDataFound = "No data found."

var errEmptyAnswer = errors.New("model returned an empty answer")

type answerReply struct {
	Answer   string                `json:"answer"`
	Evidence []domain.EvidenceItem `json:"evidence"`
}

// AnswerSynthesizer writes the tutor answer for retrieved rows.
type AnswerSynthesizer struct {
	llm JSONCompleter
	log *logger.Logger
}

func NewAnswerSynthesizer(llm JSONCompleter, log *logger.Logger) *AnswerSynthesizer {
	return &AnswerSynthesizer{llm: llm, log: log}
}

// Synthesize asks the model for an answer grounded in rows. Evidence always comes from
// rows; the model only contributes descriptions. An out-of-curriculum answer always
// opens with the disclosure sentence. Failures yield domain.FailedAnswer.
func (s *AnswerSynthesizer) Synthesize(ctx context.Context, question string, rows []domain.Row, q domain.SynthesizedQuery) domain.Answer {
	ctx, span := telemetry.StartSpan(ctx, "AnswerSynthesizer.Synthesize", telemetry.SpanAttributes{
		Stage: metrics.StageSynthesizeAnswer,
		Scope: string(q.Scope.Kind),
	})
	defer span.End()

	data := NoDataFound
	if len(rows) > 0 {
		raw, err := json.Marshal(rows)
		if err != nil {
			return s.fail(span, fmt.Errorf("encode rows: %w", err))
		}
		data = string(raw)
	}

	prompt, err := renderPrompt(answerPrompt, newAnswerPromptData(question, data, q))
	if err != nil {
		return s.fail(span, fmt.Errorf("render prompt: %w", err))
	}

	var reply answerReply
	if err := s.llm.CompleteJSON(ctx, purposeAnswer, answerSystemPrompt, prompt, &reply); err != nil {
		return s.fail(span, err)
	}

	text := strings.TrimSpace(reply.Answer)
	if text == "" {
		return s.fail(span, errEmptyAnswer)
	}

	evidence := BuildEvidence(rows, descriptions(reply.Evidence))

	if q.Scope.IsOutOfCurriculum() && !strings.HasPrefix(text, domain.OutOfCurriculumDisclosure) {
		text = domain.OutOfCurriculumDisclosure + " " + text
	}
	if q.Scope.IsAmbiguous() && !statesScopeBoundary(text) {
		text += " " + scopeBoundarySentence(evidence)
	}

	return domain.Answer{Answer: text, Evidence: evidence}
}

func (s *AnswerSynthesizer) fail(span *telemetry.Span, err error) domain.Answer {
	s.log.Warn("answer synthesis failed", "error", err)
	span.SetError(fmt.Errorf("%w: %v", domain.ErrSynthesisFailure, err))
	return domain.FailedAnswer(err.Error())
}

func descriptions(items []domain.EvidenceItem) map[string]string {
	out := make(map[string]string, len(items))
	for _, it := range items {
		desc := strings.TrimSpace(it.Desc)
		if it.Concept == "" || desc == "" {
			continue
		}
		if _, ok := out[it.Concept]; !ok {
			out[it.Concept] = desc
		}
	}
	return out
}

// BuildEvidence maps rows to evidence items in row order. Missing subject or chapter
// becomes domain.Unknown, rows without a concept label are skipped and exact duplicates
// collapse. desc comes from descs keyed by concept label, then from the row's comment.
func BuildEvidence(rows []domain.Row, descs map[string]string) []domain.EvidenceItem {
	out := make([]domain.EvidenceItem, 0, len(rows))
	seen := make(map[domain.EvidenceItem]bool, len(rows))
	for _, row := range rows {
		concept, ok := row.Value(sparql.VarLabel)
		if !ok || strings.TrimSpace(concept) == "" {
			continue
		}
		item := domain.EvidenceItem{
			Subject: valueOrUnknown(row, sparql.VarSubject),
			Chapter: valueOrUnknown(row, sparql.VarChapter),
			Concept: concept,
		}
		if d, ok := descs[concept]; ok {
			item.Desc = d
		} else if c, ok := row.Value(sparql.VarComment); ok {
			item.Desc = c
		}
		if seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}

func valueOrUnknown(row domain.Row, name string) string {
	if v, ok := row.Value(name); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return domain.Unknown
}

func statesScopeBoundary(answer string) bool {
	return strings.Contains(answer, "고등학교") && strings.Contains(answer, "대학")
}

func scopeBoundarySentence(evidence []domain.EvidenceItem) string {
	seen := make(map[string]bool)
	var names []string
	for _, it := range evidence {
		if !seen[it.Concept] {
			seen[it.Concept] = true
			names = append(names, "'"+it.Concept+"'")
		}
	}
	if len(names) == 0 {
		return "고등학교 과정에서는 기본 개념만 다루지만, 대학 과정에서는 더 일반적인 정의와 이론까지 확장됩니다."
	}
	return "고등학교 과정에서는 " + strings.Join(names, ", ") + "의 기본 내용만 다루지만, 대학 과정에서는 더 일반적인 정의와 이론까지 확장됩니다."
}
