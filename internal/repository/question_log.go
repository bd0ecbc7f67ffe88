package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/mathbot/internal/domain"
	"github.com/cloo-solutions/mathbot/internal/pagination"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

// QuestionLogRepository stores answered questions for review and evaluation.
type QuestionLogRepository struct {
	db dbtx
}

func NewQuestionLogRepository(pool *pgxpool.Pool) *QuestionLogRepository {
	return &QuestionLogRepository{db: pool}
}

func (r *QuestionLogRepository) Create(ctx context.Context, entry *domain.QuestionLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	terms := entry.Terms
	if terms == nil {
		terms = []string{}
	}
	evidence := entry.Evidence
	if evidence == nil {
		evidence = []domain.EvidenceItem{}
	}
	evidenceJSON, err := json.Marshal(evidence)
	if err != nil {
		return fmt.Errorf("encode evidence: %w", err)
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO question_log
			(id, question, query, explanation, scope, terms, row_count, evidence, answer,
			 query_failed, answer_failed, graph_version, duration_ms, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		entry.ID,
		entry.Question,
		entry.Query,
		entry.Explanation,
		string(entry.Scope),
		terms,
		entry.RowCount,
		evidenceJSON,
		entry.Answer,
		entry.QueryFailed,
		entry.AnswerFailed,
		entry.GraphVersion,
		entry.DurationMs,
		entry.CreatedAt,
	)
	return err
}

// ListRecent returns the newest entries first, starting after before when it is
// set. limit is clamped to [1, 200]. The second result is the cursor of the
// following page, empty on the last one.
func (r *QuestionLogRepository) ListRecent(ctx context.Context, limit int, before *pagination.Cursor) ([]*domain.QuestionLog, string, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	query := `SELECT id, question, query, explanation, scope, terms, row_count, evidence, answer,
	                 query_failed, answer_failed, graph_version, duration_ms, created_at
	          FROM question_log`
	args := []any{limit}
	if before != nil {
		query += ` WHERE (created_at, id) < ($2, $3)`
		args = append(args, before.CreatedAt, before.ID)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT $1`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	var out []*domain.QuestionLog
	for rows.Next() {
		var e domain.QuestionLog
		var scope string
		var evidenceJSON []byte
		if err := rows.Scan(&e.ID, &e.Question, &e.Query, &e.Explanation, &scope, &e.Terms, &e.RowCount,
			&evidenceJSON, &e.Answer, &e.QueryFailed, &e.AnswerFailed, &e.GraphVersion, &e.DurationMs, &e.CreatedAt); err != nil {
			return nil, "", err
		}
		e.Scope = domain.ScopeKind(scope)
		if err := json.Unmarshal(evidenceJSON, &e.Evidence); err != nil {
			return nil, "", fmt.Errorf("decode evidence of %s: %w", e.ID, err)
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	next := pagination.Next(out, limit, func(e *domain.QuestionLog) pagination.Cursor {
		return pagination.Cursor{ID: e.ID, CreatedAt: e.CreatedAt}
	})
	return out, next, nil
}

// CountByScope returns how many questions were logged per scope.
func (r *QuestionLogRepository) CountByScope(ctx context.Context) (map[domain.ScopeKind]int, error) {
	rows, err := r.db.Query(ctx, `SELECT scope, COUNT(*) FROM question_log GROUP BY scope`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[domain.ScopeKind]int)
	for rows.Next() {
		var scope string
		var n int
		if err := rows.Scan(&scope, &n); err != nil {
			return nil, err
		}
		out[domain.ScopeKind(scope)] = n
	}
	return out, rows.Err()
}
