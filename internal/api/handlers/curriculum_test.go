package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/cloo-solutions/mathbot/internal/domain"
	"github.com/cloo-solutions/mathbot/internal/logger"
	"github.com/cloo-solutions/mathbot/internal/ontology"
	"github.com/cloo-solutions/mathbot/internal/service"
	"github.com/cloo-solutions/mathbot/internal/testutil"
	"github.com/cloo-solutions/mathbot/internal/vocab"
)

func TestCurriculumHandler_Schema(t *testing.T) {
	mockSvc := new(MockCurriculumReader)
	handler := NewCurriculumHandler(mockSvc, nil, logger.Nop())
	mockSvc.On("Schema", mock.Anything).Return(&service.SchemaInfo{Schema: "### Classes", Version: "abc", LoadedAt: "2026-01-01T00:00:00Z"}, nil)

	w := httptest.NewRecorder()
	handler.Schema(w, httptest.NewRequest(http.MethodGet, "/v1/schema", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "### Classes", data["schema"])
	assert.Equal(t, "abc", data["version"])
	assert.Equal(t, "2026-01-01T00:00:00Z", data["loaded_at"])
}

func TestCurriculumHandler_Schema_NotLoaded(t *testing.T) {
	mockSvc := new(MockCurriculumReader)
	handler := NewCurriculumHandler(mockSvc, nil, logger.Nop())
	mockSvc.On("Schema", mock.Anything).Return(nil, domain.ErrGraphNotLoaded)

	w := httptest.NewRecorder()
	handler.Schema(w, httptest.NewRequest(http.MethodGet, "/v1/schema", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCurriculumHandler_Concepts(t *testing.T) {
	mockSvc := new(MockCurriculumReader)
	handler := NewCurriculumHandler(mockSvc, nil, logger.Nop())
	mockSvc.On("Concepts", mock.Anything, "미분").Return([]domain.Concept{
		{Node: domain.Node{IRI: "http://snu.ac.kr/math/ChainRule", Label: "합성함수의 미분"}},
		{Node: domain.Node{IRI: "http://snu.ac.kr/math/SecondDerivative", Label: "이계도함수"}},
	}, nil)

	w := httptest.NewRecorder()
	handler.Concepts(w, httptest.NewRequest(http.MethodGet, "/v1/concepts?q=%EB%AF%B8%EB%B6%84", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.EqualValues(t, 2, data["count"])
	mockSvc.AssertExpectations(t)
}

func TestCurriculumHandler_Prerequisites(t *testing.T) {
	mockSvc := new(MockCurriculumReader)
	handler := NewCurriculumHandler(mockSvc, nil, logger.Nop())
	walk := &domain.PrerequisiteWalk{
		Concept: domain.Node{Label: "이계도함수"},
		Levels:  []domain.PrerequisiteLevel{{Depth: 1, Concepts: []domain.Node{{Label: "도함수"}}}},
		Edges:   []domain.PrerequisiteEdge{},
	}
	mockSvc.On("Prerequisites", mock.Anything, "이계도함수", 2).Return(walk, nil)

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/v1/concepts/x/prerequisites?depth=2", nil), "label", "이계도함수")
	w := httptest.NewRecorder()
	handler.Prerequisites(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	levels := data["levels"].([]interface{})
	assert.Len(t, levels, 1)
	mockSvc.AssertExpectations(t)
}

func TestCurriculumHandler_Prerequisites_BadDepth(t *testing.T) {
	handler := NewCurriculumHandler(new(MockCurriculumReader), nil, logger.Nop())

	for _, q := range []string{"depth=-1", "depth=two"} {
		req := withURLParam(httptest.NewRequest(http.MethodGet, "/v1/concepts/x/prerequisites?"+q, nil), "label", "급수")
		w := httptest.NewRecorder()
		handler.Prerequisites(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestCurriculumHandler_Prerequisites_NotFound(t *testing.T) {
	mockSvc := new(MockCurriculumReader)
	handler := NewCurriculumHandler(mockSvc, nil, logger.Nop())
	mockSvc.On("Prerequisites", mock.Anything, "위상수학", 0).Return(nil, domain.ErrConceptNotFound)

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/v1/concepts/x/prerequisites", nil), "label", "위상수학")
	w := httptest.NewRecorder()
	handler.Prerequisites(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	_, code := decodeError(t, w)
	assert.Equal(t, domain.ErrCodeNotFound, code)
}

func TestCurriculumHandler_Path(t *testing.T) {
	mockSvc := new(MockCurriculumReader)
	handler := NewCurriculumHandler(mockSvc, nil, logger.Nop())
	mockSvc.On("PrerequisitePath", mock.Anything, "도함수", "이계도함수").Return(&domain.PrerequisitePath{
		From:  domain.Node{Label: "도함수"},
		To:    domain.Node{Label: "이계도함수"},
		Steps: []domain.Node{{Label: "도함수"}, {Label: "이계도함수"}},
	}, nil)

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/v1/concepts/x/path?to="+url.QueryEscape("이계도함수"), nil), "label", "도함수")
	w := httptest.NewRecorder()
	handler.Path(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Len(t, data["steps"].([]interface{}), 2)
	mockSvc.AssertExpectations(t)
}

func TestCurriculumHandler_Path_MissingTarget(t *testing.T) {
	handler := NewCurriculumHandler(new(MockCurriculumReader), nil, logger.Nop())

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/v1/concepts/x/path", nil), "label", "도함수")
	w := httptest.NewRecorder()
	handler.Path(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCurriculumHandler_GraphView(t *testing.T) {
	mockSvc := new(MockCurriculumReader)
	handler := NewCurriculumHandler(mockSvc, nil, logger.Nop())
	mockSvc.On("RenderGraph", mock.Anything, mock.Anything, []string{"급수", "미적분", "도함수"}).Return(nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/graph/view?highlight=%EA%B8%89%EC%88%98,%EB%AF%B8%EC%A0%81%EB%B6%84&highlight=%EB%8F%84%ED%95%A8%EC%88%98", nil)
	handler.GraphView(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "graph")
	mockSvc.AssertExpectations(t)
}

func TestCurriculumHandler_GraphView_Error(t *testing.T) {
	mockSvc := new(MockCurriculumReader)
	handler := NewCurriculumHandler(mockSvc, nil, logger.Nop())
	mockSvc.On("RenderGraph", mock.Anything, mock.Anything, []string(nil)).Return(domain.ErrGraphNotLoaded)

	w := httptest.NewRecorder()
	handler.GraphView(w, httptest.NewRequest(http.MethodGet, "/v1/graph/view", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

func TestCurriculumHandler_Reload(t *testing.T) {
	reloader := new(MockGraphReloader)
	handler := NewCurriculumHandler(new(MockCurriculumReader), reloader, logger.Nop())

	snap := ontology.NewSnapshot(testutil.CurriculumGraph(t), vocab.DefaultNamespace, "v2", nil)
	snap.LoadedAt = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	reloader.On("Reload", mock.Anything).Return(snap, true, nil)

	w := httptest.NewRecorder()
	handler.Reload(w, httptest.NewRequest(http.MethodPost, "/v1/graph/reload", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "v2", data["version"])
	assert.Equal(t, true, data["changed"])
	assert.Equal(t, "2026-03-01T09:00:00Z", data["loaded_at"])
	assert.EqualValues(t, snap.Graph.Len(), data["triples"])
}

func TestCurriculumHandler_Reload_Failure(t *testing.T) {
	reloader := new(MockGraphReloader)
	handler := NewCurriculumHandler(new(MockCurriculumReader), reloader, logger.Nop())
	reloader.On("Reload", mock.Anything).Return(nil, false, errors.New("turtle: unexpected token"))

	w := httptest.NewRecorder()
	handler.Reload(w, httptest.NewRequest(http.MethodPost, "/v1/graph/reload", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	msg, _ := decodeError(t, w)
	assert.Equal(t, "reload failed", msg)
}

func TestCurriculumHandler_Reload_Disabled(t *testing.T) {
	handler := NewCurriculumHandler(new(MockCurriculumReader), nil, logger.Nop())

	w := httptest.NewRecorder()
	handler.Reload(w, httptest.NewRequest(http.MethodPost, "/v1/graph/reload", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}
