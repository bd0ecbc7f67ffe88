package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/cloo-solutions/mathbot/internal/api"
	"github.com/cloo-solutions/mathbot/internal/domain"
	"github.com/cloo-solutions/mathbot/internal/pagination"
)

type QuestionLister interface {
	ListRecent(ctx context.Context, limit int, before *pagination.Cursor) ([]*domain.QuestionLog, string, error)
	CountByScope(ctx context.Context) (map[domain.ScopeKind]int, error)
}

type QuestionHandler struct {
	repo QuestionLister
}

func NewQuestionHandler(repo QuestionLister) *QuestionHandler {
	return &QuestionHandler{repo: repo}
}

type QuestionsResponse struct {
	Questions  []*domain.QuestionLog    `json:"questions"`
	ByScope    map[domain.ScopeKind]int `json:"by_scope"`
	NextCursor string                   `json:"next_cursor,omitempty"`
}

func (h *QuestionHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			api.Error(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	cursor, err := pagination.Decode(r.URL.Query().Get("cursor"))
	if err != nil {
		api.Error(w, http.StatusBadRequest, "cursor is invalid")
		return
	}

	questions, next, err := h.repo.ListRecent(r.Context(), limit, cursor)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	byScope, err := h.repo.CountByScope(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, QuestionsResponse{
		Questions:  questions,
		ByScope:    byScope,
		NextCursor: next,
	})
}
