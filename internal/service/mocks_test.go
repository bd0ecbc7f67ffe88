package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/cloo-solutions/mathbot/internal/domain"
	"github.com/cloo-solutions/mathbot/internal/logger"
	"github.com/cloo-solutions/mathbot/internal/ontology"
	"github.com/cloo-solutions/mathbot/internal/sparql"
	"github.com/cloo-solutions/mathbot/internal/testutil"
	"github.com/cloo-solutions/mathbot/internal/vocab"
)

// MockCompleter is a mock implementation of JSONCompleter. The first return value is
// the raw JSON reply decoded into out.
type MockCompleter struct {
	mock.Mock
}

func (m *MockCompleter) CompleteJSON(ctx context.Context, purpose, system, user string, out any) error {
	args := m.Called(ctx, purpose, system, user)
	if raw := args.String(0); raw != "" {
		if err := json.Unmarshal([]byte(raw), out); err != nil {
			return err
		}
	}
	return args.Error(1)
}

type MockQueryCache struct {
	mock.Mock
}

func (m *MockQueryCache) Get(ctx context.Context, key string) (domain.SynthesizedQuery, bool, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(domain.SynthesizedQuery), args.Bool(1), args.Error(2)
}

func (m *MockQueryCache) Set(ctx context.Context, key string, q domain.SynthesizedQuery) error {
	args := m.Called(ctx, key, q)
	return args.Error(0)
}

type MockQuestionLogRepository struct {
	mock.Mock
}

func (m *MockQuestionLogRepository) Create(ctx context.Context, entry *domain.QuestionLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

type MockEmbeddingClient struct {
	mock.Mock
}

func (m *MockEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

type MockConceptIndex struct {
	mock.Mock
}

func (m *MockConceptIndex) Nearest(ctx context.Context, embedding []float32, limit int) ([]domain.ConceptMatch, error) {
	args := m.Called(ctx, embedding, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ConceptMatch), args.Error(1)
}

type fixedUUID string

func (f fixedUUID) NewString() string { return string(f) }

func testStore(t *testing.T) *ontology.Store {
	t.Helper()
	g := testutil.CurriculumGraph(t)
	return ontology.NewStore(ontology.NewSnapshot(g, vocab.DefaultNamespace, "v1", nil))
}

func newTestAskService(t *testing.T, llm *MockCompleter) *AskService {
	t.Helper()
	log := logger.Nop()
	return NewAskService(
		testStore(t),
		NewQuerySynthesizer(llm, vocab.DefaultNamespace, sparql.DefaultLimits(), log),
		NewQueryExecutor(0, 0, log),
		NewAnswerSynthesizer(llm, log),
		log,
	).WithUUIDGenerator(fixedUUID("q-1"))
}

func modelQuery(pattern string) string {
	return "PREFIX : <http://snu.ac.kr/math/> PREFIX rdfs: <http://www.w3.org/2000/01/rdf-schema#> " +
		"SELECT ?targetLabel ?targetSubject ?targetChapter WHERE { ?target a :Concept ; rdfs:label ?targetLabel . " +
		"FILTER(regex(?targetLabel, '" + pattern + "', 'i')) }"
}

func queryReplyJSON(query, explanation string, terms ...string) string {
	raw, _ := json.Marshal(queryReply{Query: query, Explanation: explanation, Terms: terms})
	return string(raw)
}

func answerReplyJSON(answer string, evidence ...domain.EvidenceItem) string {
	if evidence == nil {
		evidence = []domain.EvidenceItem{}
	}
	raw, _ := json.Marshal(answerReply{Answer: answer, Evidence: evidence})
	return string(raw)
}
