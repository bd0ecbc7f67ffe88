package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/mathbot/internal/domain"
	"github.com/cloo-solutions/mathbot/internal/ontology"
	"github.com/cloo-solutions/mathbot/internal/pagination"
	"github.com/cloo-solutions/mathbot/internal/service"
)

type MockAsker struct {
	mock.Mock
}

func (m *MockAsker) Ask(ctx context.Context, question string) (*domain.AskResult, error) {
	args := m.Called(ctx, question)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AskResult), args.Error(1)
}

type MockCurriculumReader struct {
	mock.Mock
}

func (m *MockCurriculumReader) Schema(ctx context.Context) (*service.SchemaInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SchemaInfo), args.Error(1)
}

func (m *MockCurriculumReader) Concepts(ctx context.Context, query string) ([]domain.Concept, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Concept), args.Error(1)
}

func (m *MockCurriculumReader) Prerequisites(ctx context.Context, label string, depth int) (*domain.PrerequisiteWalk, error) {
	args := m.Called(ctx, label, depth)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PrerequisiteWalk), args.Error(1)
}

func (m *MockCurriculumReader) PrerequisitePath(ctx context.Context, from, to string) (*domain.PrerequisitePath, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PrerequisitePath), args.Error(1)
}

func (m *MockCurriculumReader) RenderGraph(ctx context.Context, w io.Writer, highlights []string) error {
	args := m.Called(ctx, w, highlights)
	if args.Error(0) == nil {
		_, _ = io.WriteString(w, "<html>graph</html>")
	}
	return args.Error(0)
}

type MockGraphReloader struct {
	mock.Mock
}

func (m *MockGraphReloader) Reload(ctx context.Context) (*ontology.Snapshot, bool, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*ontology.Snapshot), args.Bool(1), args.Error(2)
}

type MockQuestionLister struct {
	mock.Mock
}

func (m *MockQuestionLister) ListRecent(ctx context.Context, limit int, before *pagination.Cursor) ([]*domain.QuestionLog, string, error) {
	args := m.Called(ctx, limit, before)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).([]*domain.QuestionLog), args.String(1), args.Error(2)
}

func (m *MockQuestionLister) CountByScope(ctx context.Context) (map[domain.ScopeKind]int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[domain.ScopeKind]int), args.Error(1)
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// withURLParam attaches a chi route parameter the way the router would.
func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data, ok := resp["data"].(map[string]interface{})
	require.True(t, ok, "response has a data object: %s", w.Body.String())
	return data
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) (string, string) {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	msg, _ := resp["error"].(string)
	code, _ := resp["code"].(string)
	return msg, code
}
