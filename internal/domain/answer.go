package domain

import "time"

// Sentences with a fixed wording in answers.
const (
	OutOfCurriculumDisclosure = "교육과정 외의 내용입니다."
	AnswerFailurePrefix       = "답변 생성 중 오류가 발생했습니다."
)

// EvidenceItem is one retrieved concept surfaced as justification for an answer.
type EvidenceItem struct {
	Subject string `json:"subject"`
	Chapter string `json:"chapter"`
	Concept string `json:"concept"`
	Desc    string `json:"desc,omitempty"`
}

// Answer is the final structured answer.
type Answer struct {
	Answer   string         `json:"answer"`
	Evidence []EvidenceItem `json:"evidence"`
	Failure  string         `json:"-"`
}

// Failed reports whether the answer is the degraded failure answer.
func (a Answer) Failed() bool {
	return a.Failure != ""
}

// FailedAnswer builds the degraded answer for a generative or parse failure.
func FailedAnswer(cause string) Answer {
	return Answer{
		Answer:   AnswerFailurePrefix + " (" + cause + ")",
		Evidence: []EvidenceItem{},
		Failure:  cause,
	}
}

// StageTimings records how long each pipeline stage took, in milliseconds.
type StageTimings struct {
	SynthesizeQueryMs  int64 `json:"synthesize_query_ms"`
	ExecuteMs          int64 `json:"execute_ms"`
	SynthesizeAnswerMs int64 `json:"synthesize_answer_ms"`
	TotalMs            int64 `json:"total_ms"`
}

// AskResult is everything the pipeline produced for one question.
type AskResult struct {
	ID           string         `json:"id"`
	Question     string         `json:"question"`
	Answer       string         `json:"answer"`
	Evidence     []EvidenceItem `json:"evidence"`
	Highlights   []string       `json:"highlights"`
	Query        string         `json:"query"`
	Explanation  string         `json:"explanation"`
	Scope        Scope          `json:"scope"`
	RowCount     int            `json:"row_count"`
	QueryFailed  bool           `json:"query_failed"`
	AnswerFailed bool           `json:"answer_failed"`
	CacheHit     bool           `json:"cache_hit"`
	GraphVersion string         `json:"graph_version"`
	Timings      StageTimings   `json:"timings"`
	CreatedAt    time.Time      `json:"created_at"`
}

// QuestionLog is the persisted record of an answered question.
type QuestionLog struct {
	ID           string         `json:"id"`
	Question     string         `json:"question"`
	Query        string         `json:"query"`
	Explanation  string         `json:"explanation"`
	Scope        ScopeKind      `json:"scope"`
	Terms        []string       `json:"terms"`
	RowCount     int            `json:"row_count"`
	Evidence     []EvidenceItem `json:"evidence"`
	Answer       string         `json:"answer"`
	QueryFailed  bool           `json:"query_failed"`
	AnswerFailed bool           `json:"answer_failed"`
	GraphVersion string         `json:"graph_version"`
	DurationMs   int64          `json:"duration_ms"`
	CreatedAt    time.Time      `json:"created_at"`
}
