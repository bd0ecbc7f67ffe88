package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockChatAPI struct {
	mock.Mock
}

func (m *MockChatAPI) CreateJSONCompletion(ctx context.Context, system, user string) (string, error) {
	args := m.Called(ctx, system, user)
	return args.String(0), args.Error(1)
}

type MockEmbeddingAPI struct {
	mock.Mock
}

func (m *MockEmbeddingAPI) CreateEmbeddings(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

type MockModelAPI struct {
	mock.Mock
}

func (m *MockModelAPI) ListModels(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type netTimeout struct{}

func (netTimeout) Error() string   { return "i/o timeout" }
func (netTimeout) Timeout() bool   { return true }
func (netTimeout) Temporary() bool { return true }

var fastRetry = Config{RetryBackoff: time.Millisecond, Timeout: time.Second}

type reply struct {
	Query string `json:"query"`
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around fence", "Here you go:\n```json\n{\"a\":1}\n```\nDone.", "Here you go:\n```json\n{\"a\":1}\n```\nDone."},
		{"fence inside value", "{\"a\":\"```x```\"}", "{\"a\":\"```x```\"}"},
		{"unterminated fence", "```json\n{\"a\":1}", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripFences(tt.in))
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	var r reply
	require.NoError(t, DecodeJSON("```json\n{\"query\": \"SELECT\"}\n```", &r))
	assert.Equal(t, "SELECT", r.Query)

	require.NoError(t, DecodeJSON(`Sure! {"query": "X"} hope this helps`, &r))
	assert.Equal(t, "X", r.Query)

	require.NoError(t, DecodeJSON("Here you go:\n```json\n{\"query\": \"Y\"}\n```\nDone.", &r))
	assert.Equal(t, "Y", r.Query)

	assert.ErrorIs(t, DecodeJSON("not json", &r), ErrMalformedOutput)
	assert.ErrorIs(t, DecodeJSON("  ", &r), ErrMalformedOutput)
	assert.ErrorIs(t, DecodeJSON("```json\n```", &r), ErrMalformedOutput)
}

func TestDecodeJSON_KeepsCodeBlocksInsideStrings(t *testing.T) {
	var got struct {
		Answer   string   `json:"answer"`
		Evidence []string `json:"evidence"`
	}
	raw := "{\"answer\": \"예시 코드: ```python\\nprint(1)\\n``` 입니다.\", \"evidence\": []}"

	require.NoError(t, DecodeJSON(raw, &got))
	assert.Equal(t, "예시 코드: ```python\nprint(1)\n``` 입니다.", got.Answer)
	assert.Empty(t, got.Evidence)

	require.NoError(t, DecodeJSON("```json\n"+raw+"\n```", &got))
	assert.Equal(t, "예시 코드: ```python\nprint(1)\n``` 입니다.", got.Answer)
}

func TestCompleteJSON_Success(t *testing.T) {
	chat := new(MockChatAPI)
	chat.On("CreateJSONCompletion", mock.Anything, "sys", "user").Return(`{"query":"Q"}`, nil).Once()
	client := NewClientWithAPIs(fastRetry, chat, nil, nil)

	var r reply
	err := client.CompleteJSON(context.Background(), "query", "sys", "user", &r)

	require.NoError(t, err)
	assert.Equal(t, "Q", r.Query)
	chat.AssertExpectations(t)
}

func TestCompleteJSON_RetriesTransportErrorOnce(t *testing.T) {
	chat := new(MockChatAPI)
	chat.On("CreateJSONCompletion", mock.Anything, "s", "u").Return("", fmt.Errorf("dial: %w", netTimeout{})).Once()
	chat.On("CreateJSONCompletion", mock.Anything, "s", "u").Return(`{"query":"Q"}`, nil).Once()
	client := NewClientWithAPIs(fastRetry, chat, nil, nil)

	var r reply
	require.NoError(t, client.CompleteJSON(context.Background(), "query", "s", "u", &r))
	chat.AssertNumberOfCalls(t, "CreateJSONCompletion", 2)
}

func TestCompleteJSON_GivesUpAfterOneRetry(t *testing.T) {
	chat := new(MockChatAPI)
	chat.On("CreateJSONCompletion", mock.Anything, "s", "u").Return("", netTimeout{})
	client := NewClientWithAPIs(fastRetry, chat, nil, nil)

	var r reply
	err := client.CompleteJSON(context.Background(), "query", "s", "u", &r)

	assert.ErrorIs(t, err, ErrServiceUnavailable)
	chat.AssertNumberOfCalls(t, "CreateJSONCompletion", 2)
}

func TestCompleteJSON_DoesNotRetryPlainErrors(t *testing.T) {
	chat := new(MockChatAPI)
	chat.On("CreateJSONCompletion", mock.Anything, "s", "u").Return("", errors.New("invalid api key"))
	client := NewClientWithAPIs(fastRetry, chat, nil, nil)

	var r reply
	err := client.CompleteJSON(context.Background(), "query", "s", "u", &r)

	assert.ErrorIs(t, err, ErrServiceUnavailable)
	chat.AssertNumberOfCalls(t, "CreateJSONCompletion", 1)
}

func TestCompleteJSON_MalformedIsNotRetried(t *testing.T) {
	chat := new(MockChatAPI)
	chat.On("CreateJSONCompletion", mock.Anything, "s", "u").Return("I cannot answer that.", nil)
	client := NewClientWithAPIs(fastRetry, chat, nil, nil)

	var r reply
	err := client.CompleteJSON(context.Background(), "answer", "s", "u", &r)

	assert.ErrorIs(t, err, ErrMalformedOutput)
	assert.NotErrorIs(t, err, ErrServiceUnavailable)
	chat.AssertNumberOfCalls(t, "CreateJSONCompletion", 1)
}

func TestCompleteJSON_AttemptTimeoutIsRetried(t *testing.T) {
	chat := new(MockChatAPI)
	chat.On("CreateJSONCompletion", mock.Anything, "s", "u").
		Run(func(args mock.Arguments) { <-args.Get(0).(context.Context).Done() }).
		Return("", context.DeadlineExceeded)
	client := NewClientWithAPIs(Config{Timeout: 10 * time.Millisecond, RetryBackoff: time.Millisecond}, chat, nil, nil)

	var r reply
	err := client.CompleteJSON(context.Background(), "query", "s", "u", &r)

	assert.ErrorIs(t, err, ErrServiceUnavailable)
	chat.AssertNumberOfCalls(t, "CreateJSONCompletion", 2)
}

func TestCompleteJSON_CallerCancellationStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	chat := new(MockChatAPI)
	chat.On("CreateJSONCompletion", mock.Anything, "s", "u").
		Run(func(mock.Arguments) { cancel() }).
		Return("", netTimeout{})
	client := NewClientWithAPIs(fastRetry, chat, nil, nil)

	var r reply
	err := client.CompleteJSON(ctx, "query", "s", "u", &r)

	assert.ErrorIs(t, err, ErrServiceUnavailable)
	chat.AssertNumberOfCalls(t, "CreateJSONCompletion", 1)
}

func TestGenerateEmbedding(t *testing.T) {
	embed := new(MockEmbeddingAPI)
	vec := make([]float32, 4)
	embed.On("CreateEmbeddings", mock.Anything, "급수").Return(vec, nil)
	embed.On("CreateEmbeddings", mock.Anything, "short").Return([]float32{1}, nil)
	embed.On("CreateEmbeddings", mock.Anything, "boom").Return(nil, errors.New("rate limited"))
	client := NewClientWithAPIs(Config{EmbeddingDimensions: 4}, nil, embed, nil)
	ctx := context.Background()

	got, err := client.GenerateEmbedding(ctx, "급수")
	require.NoError(t, err)
	assert.Equal(t, vec, got)

	_, err = client.GenerateEmbedding(ctx, "short")
	assert.ErrorIs(t, err, ErrWrongDimensions)

	_, err = client.GenerateEmbedding(ctx, "boom")
	assert.Contains(t, err.Error(), "failed to create embedding")

	_, err = client.GenerateEmbedding(ctx, " ")
	assert.Equal(t, ErrEmptyText, err)
}

func TestListModels(t *testing.T) {
	models := new(MockModelAPI)
	models.On("ListModels", mock.Anything).Return([]string{"models/gemini-2.5-flash", "models/Gemini-2.5-pro", "models/text-embedding-004"}, nil)
	client := NewClientWithAPIs(Config{}, nil, nil, models)

	got, err := client.ListModels(context.Background(), "gemini")
	require.NoError(t, err)
	assert.Equal(t, []string{"models/gemini-2.5-flash", "models/Gemini-2.5-pro"}, got)

	all, err := client.ListModels(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestOpenAIAdapter_AgainstCompatibleServer(t *testing.T) {
	var chatCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1beta/openai/chat/completions":
			var req map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "gemini-2.5-flash", req["model"])
			assert.Equal(t, map[string]any{"type": "json_object"}, req["response_format"])
			if chatCalls.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
				return
			}
			_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"` + "```json\\n{\\\"query\\\":\\\"Q\\\"}\\n```" + `"},"finish_reason":"stop"}]}`))
		case "/v1beta/openai/models":
			_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"gemini-2.5-flash","object":"model"},{"id":"text-embedding-004","object":"model"}]}`))
		case "/v1beta/openai/embeddings":
			_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.1,0.2]}],"model":"text-embedding-004"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := NewClient(Config{
		APIKey:              "test-key",
		BaseURL:             srv.URL + "/v1beta/openai/",
		EmbeddingDimensions: 2,
		RetryBackoff:        time.Millisecond,
	})
	ctx := context.Background()

	var r reply
	require.NoError(t, client.CompleteJSON(ctx, "query", "sys", "user", &r))
	assert.Equal(t, "Q", r.Query)
	assert.Equal(t, int32(2), chatCalls.Load(), "503 is retried once")

	models, err := client.ListModels(ctx, "gemini")
	require.NoError(t, err)
	assert.Equal(t, []string{"gemini-2.5-flash"}, models)

	vec, err := client.GenerateEmbedding(ctx, "급수")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2}, vec)
}
