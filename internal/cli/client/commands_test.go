package client

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Body   map[string]string
}

// fakeServer answers every request with the given status and body and records
// the last request.
func fakeServer(t *testing.T, status int, body string) (*httptest.Server, *recordedRequest) {
	t.Helper()
	rec := &recordedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.Method = r.Method
		rec.Path = r.URL.EscapedPath()
		rec.Query = r.URL.RawQuery
		rec.Auth = r.Header.Get("Authorization")
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&rec.Body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func runCLI(t *testing.T, srv *httptest.Server, args ...string) (string, error) {
	t.Helper()
	useTempConfig(t)
	return runRoot(srv, args...)
}

// runRoot runs the command tree against srv with whatever config is in place.
func runRoot(srv *httptest.Server, args ...string) (string, error) {
	root := RootCmd("test")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--api-url", srv.URL}, args...))
	err := root.Execute()
	return out.String(), err
}

const askBody = `{"data":{
	"id":"q-1",
	"question":"합성함수의 미분은 어느 과목에서 배우나요?",
	"answer":"합성함수의 미분은 수학Ⅱ의 미분 단원에서 배웁니다.",
	"evidence":[{"subject":"수학Ⅱ","chapter":"미분","concept":"합성함수의 미분","desc":"연쇄법칙"}],
	"scope":{"kind":"in_curriculum"},
	"row_count":1
}}`

func TestAskCmd_Text(t *testing.T) {
	srv, rec := fakeServer(t, http.StatusOK, askBody)

	out, err := runCLI(t, srv, "ask", "합성함수의", "미분은", "어느", "과목에서", "배우나요?")
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, rec.Method)
	assert.Equal(t, "/v1/ask", rec.Path)
	assert.Equal(t, "합성함수의 미분은 어느 과목에서 배우나요?", rec.Body["question"])
	assert.Empty(t, rec.Auth)

	assert.Contains(t, out, "수학Ⅱ의 미분 단원에서 배웁니다")
	assert.Contains(t, out, "수학Ⅱ > 미분 > 합성함수의 미분: 연쇄법칙")
}

func TestAskCmd_JSONWithKey(t *testing.T) {
	srv, rec := fakeServer(t, http.StatusOK, askBody)

	out, err := runCLI(t, srv, "--api-key", "mb-key", "-o", "json", "ask", "질문")
	require.NoError(t, err)

	assert.Equal(t, "Bearer mb-key", rec.Auth)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "q-1", decoded["id"])
}

func TestAskCmd_APIError(t *testing.T) {
	srv, _ := fakeServer(t, http.StatusServiceUnavailable, `{"error":"curriculum graph not loaded","code":"UNAVAILABLE"}`)

	_, err := runCLI(t, srv, "ask", "질문")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Equal(t, "UNAVAILABLE", apiErr.Code)
	assert.Equal(t, "curriculum graph not loaded", apiErr.Message)
}

func TestAskCmd_NonJSONError(t *testing.T) {
	srv, _ := fakeServer(t, http.StatusBadGateway, "bad gateway")

	_, err := runCLI(t, srv, "ask", "질문")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "bad gateway", apiErr.Message)
}

func TestConceptsCmd(t *testing.T) {
	body := `{"data":{"concepts":[{"iri":"http://x/c1","kind":"Concept","label":"합성함수의 미분",
		"hierarchy":{"subject":{"label":"수학Ⅱ"},"chapter":{"label":"미분"}}}],"count":1}}`
	srv, rec := fakeServer(t, http.StatusOK, body)

	out, err := runCLI(t, srv, "concepts", "-q", "미분")
	require.NoError(t, err)

	assert.Equal(t, "/v1/concepts", rec.Path)
	assert.Contains(t, rec.Query, "q=")
	assert.Contains(t, out, "합성함수의 미분")
	assert.Contains(t, out, "수학Ⅱ")
	assert.Contains(t, out, "1 concepts")
}

func TestPrereqsCmd(t *testing.T) {
	body := `{"data":{"concept":{"label":"합성함수의 미분"},
		"levels":[{"depth":1,"concepts":[{"label":"미분계수"},{"label":"함수의 합성"}]}],"edges":[]}}`
	srv, rec := fakeServer(t, http.StatusOK, body)

	out, err := runCLI(t, srv, "prereqs", "합성함수의 미분", "--depth", "2")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(rec.Path, "/v1/concepts/"))
	assert.True(t, strings.HasSuffix(rec.Path, "/prerequisites"))
	assert.Equal(t, "depth=2", rec.Query)
	assert.Contains(t, out, "1: 미분계수, 함수의 합성")
}

func TestPrereqsCmd_NoPrerequisites(t *testing.T) {
	srv, rec := fakeServer(t, http.StatusOK, `{"data":{"concept":{"label":"함수"},"levels":[],"edges":[]}}`)

	out, err := runCLI(t, srv, "prereqs", "함수")
	require.NoError(t, err)
	assert.Empty(t, rec.Query)
	assert.Contains(t, out, "(no prerequisites)")
}

func TestSchemaCmd(t *testing.T) {
	body := `{"data":{"schema":"Classes: Subject, Chapter","version":"abc123","loaded_at":"2026-01-01T00:00:00Z","triples":42,"namespace":"http://x/"}}`
	srv, rec := fakeServer(t, http.StatusOK, body)

	out, err := runCLI(t, srv, "schema")
	require.NoError(t, err)

	assert.Equal(t, "/v1/schema", rec.Path)
	assert.Contains(t, out, "version abc123, 42 triples")
	assert.Contains(t, out, "Classes: Subject, Chapter")
}

func TestQuestionsCmd(t *testing.T) {
	body := `{"data":{"questions":[{"id":"q-1","question":"미분이란?","scope":"in_curriculum","row_count":2,
		"created_at":"2026-01-01T00:00:00Z"}],"by_scope":{"in_curriculum":3,"out_of_curriculum":1}}}`
	srv, rec := fakeServer(t, http.StatusOK, body)

	out, err := runCLI(t, srv, "questions", "-n", "5")
	require.NoError(t, err)

	assert.Equal(t, "/v1/questions", rec.Path)
	assert.Equal(t, "limit=5", rec.Query)
	assert.Contains(t, out, "미분이란?")
	assert.Contains(t, out, "in curriculum 3, out of curriculum 1, ambiguous 0")
	assert.NotContains(t, out, "more:")
}

func TestQuestionsCommand_NextPage(t *testing.T) {
	body := `{"data":{"questions":[],"by_scope":{},"next_cursor":"abc"}}`
	srv, rec := fakeServer(t, http.StatusOK, body)

	out, err := runCLI(t, srv, "questions", "-n", "1", "--cursor", "xyz")
	require.NoError(t, err)

	assert.Equal(t, "cursor=xyz&limit=1", rec.Query)
	assert.Contains(t, out, "more: --cursor abc")
}

func TestPathCommand(t *testing.T) {
	body := `{"data":{"from":{"label":"도함수"},"to":{"label":"이계도함수"},
		"steps":[{"label":"도함수"},{"label":"합성함수의 미분"},{"label":"이계도함수"}]}}`
	srv, rec := fakeServer(t, http.StatusOK, body)

	out, err := runCLI(t, srv, "path", "도함수", "이계도함수")
	require.NoError(t, err)

	assert.Equal(t, "/v1/concepts/%EB%8F%84%ED%95%A8%EC%88%98/path", rec.Path)
	assert.Contains(t, out, "도함수 -> 합성함수의 미분 -> 이계도함수")
}

func TestPathCommand_Unreachable(t *testing.T) {
	body := `{"data":{"from":{"label":"급수"},"to":{"label":"도함수"},"steps":[]}}`
	srv, _ := fakeServer(t, http.StatusOK, body)

	out, err := runCLI(t, srv, "path", "급수", "도함수")
	require.NoError(t, err)
	assert.Contains(t, out, "급수 does not lead to 도함수")
}

func TestUnknownOutputFormat(t *testing.T) {
	srv, _ := fakeServer(t, http.StatusOK, askBody)

	_, err := runCLI(t, srv, "-o", "yaml", "ask", "질문")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}

func TestAuthLoginAndStatus(t *testing.T) {
	useTempConfig(t)

	var out bytes.Buffer
	require.NoError(t, runAuthLogin(strings.NewReader("mb-0123456789-key\n"), &out, "", "http://math.test"))
	assert.Contains(t, out.String(), "Credentials saved")

	root := RootCmd("test")
	out.Reset()
	root.SetOut(&out)
	root.SetArgs([]string{"auth", "status"})
	require.NoError(t, root.Execute())

	assert.Contains(t, out.String(), "Source: global_config")
	assert.Contains(t, out.String(), "mb-0...-key")
	assert.Contains(t, out.String(), "http://math.test")
}

func TestOutputDefaultFromConfig(t *testing.T) {
	useTempConfig(t)
	require.NoError(t, SaveGlobalConfig(&GlobalConfig{APIKey: "mb-local-key", Output: outputJSON}))
	srv, _ := fakeServer(t, http.StatusOK, askBody)

	out, err := runRoot(srv, "ask", "질문")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out), "{"))

	out, err = runRoot(srv, "-o", "text", "ask", "질문")
	require.NoError(t, err)
	assert.False(t, strings.HasPrefix(strings.TrimSpace(out), "{"))
}

func TestAuthLogin_KeepsOutputPreference(t *testing.T) {
	useTempConfig(t)
	require.NoError(t, SaveGlobalConfig(&GlobalConfig{APIKey: "old-key-000000", Output: outputJSON}))

	require.NoError(t, runAuthLogin(strings.NewReader(""), &bytes.Buffer{}, "new-key-000000", defaultAPIURL))

	cfg, err := LoadGlobalConfig()
	require.NoError(t, err)
	assert.Equal(t, "new-key-000000", cfg.APIKey)
	assert.Equal(t, outputJSON, cfg.Output)
}

func TestAuthLogin_InvalidKey(t *testing.T) {
	useTempConfig(t)

	err := runAuthLogin(strings.NewReader("has space\n"), &bytes.Buffer{}, "", defaultAPIURL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid API key")
}
