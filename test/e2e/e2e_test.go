//go:build e2e

package e2e

import (
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/mathbot/internal/domain"
	"github.com/cloo-solutions/mathbot/internal/testutil"
)

func TestE2E_AuthAndHealth(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	resp, err := env.Get("/health", "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)

	resp, err = env.Get("/v1/schema", "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.Status)
	assert.Equal(t, "UNAUTHORIZED", resp.Code)

	resp, err = env.Get("/v1/schema", "wrong-key")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.Status)
}

func TestE2E_AskLifecycle(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	question := map[string]string{"question": "합성함수의 미분은 어느 과목에서 배우나요?"}

	var first domain.AskResult
	t.Run("ask answers from the graph loaded out of S3", func(t *testing.T) {
		resp, err := env.Post("/v1/ask", question, apiKey)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.Status, resp.Error)
		require.NoError(t, json.Unmarshal(resp.Data, &first))

		assert.Equal(t, chainAnswer, first.Answer)
		assert.Equal(t, domain.ScopeInCurriculum, first.Scope.Kind)
		assert.Equal(t, 1, first.RowCount)
		assert.False(t, first.CacheHit)
		require.Len(t, first.Evidence, 1)
		assert.Equal(t, "수학Ⅱ", first.Evidence[0].Subject)
		assert.Equal(t, "합성함수의 미분", first.Evidence[0].Concept)
	})

	t.Run("repeated question hits the redis query cache", func(t *testing.T) {
		queryCalls := func() int {
			n := 0
			for _, c := range env.LLM.Calls() {
				if c.Purpose == "query" {
					n++
				}
			}
			return n
		}
		before := queryCalls()

		resp, err := env.Post("/v1/ask", map[string]string{"question": "  합성함수의  미분은 어느 과목에서 배우나요? "}, apiKey)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.Status)

		var second domain.AskResult
		require.NoError(t, json.Unmarshal(resp.Data, &second))
		assert.True(t, second.CacheHit)
		assert.Equal(t, first.Query, second.Query)
		assert.Equal(t, before, queryCalls())
	})

	t.Run("questions are logged in postgres", func(t *testing.T) {
		var listed struct {
			Questions []domain.QuestionLog   `json:"questions"`
			ByScope   map[domain.ScopeKind]int `json:"by_scope"`
		}
		require.Eventually(t, func() bool {
			resp, err := env.Get("/v1/questions?limit=10", apiKey)
			if err != nil || resp.Status != http.StatusOK {
				return false
			}
			if err := json.Unmarshal(resp.Data, &listed); err != nil {
				return false
			}
			return len(listed.Questions) == 2
		}, 10*time.Second, 100*time.Millisecond)

		assert.Equal(t, 2, listed.ByScope[domain.ScopeInCurriculum])
		assert.Equal(t, first.GraphVersion, listed.Questions[0].GraphVersion)

		var page struct {
			Questions  []domain.QuestionLog `json:"questions"`
			NextCursor string               `json:"next_cursor"`
		}
		resp, err := env.Get("/v1/questions?limit=1", apiKey)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(resp.Data, &page))
		require.Len(t, page.Questions, 1)
		require.NotEmpty(t, page.NextCursor)
		newest := page.Questions[0].ID

		resp, err = env.Get("/v1/questions?limit=1&cursor="+url.QueryEscape(page.NextCursor), apiKey)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.Status)
		page.Questions, page.NextCursor = nil, ""
		require.NoError(t, json.Unmarshal(resp.Data, &page))
		require.Len(t, page.Questions, 1)
		assert.NotEqual(t, newest, page.Questions[0].ID)
	})

	t.Run("validation errors", func(t *testing.T) {
		resp, err := env.Post("/v1/ask", map[string]string{"question": "   "}, apiKey)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.Status)
		assert.Equal(t, "VALIDATION_ERROR", resp.Code)
	})
}

func TestE2E_CurriculumReadAndReload(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	conceptCount := func() int {
		resp, err := env.Get("/v1/concepts", apiKey)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.Status)
		var body struct {
			Count int `json:"count"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &body))
		return body.Count
	}
	assert.Equal(t, 7, conceptCount())

	resp, err := env.Get("/v1/concepts/"+url.PathEscape("이계도함수")+"/prerequisites", apiKey)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Status)
	var walk domain.PrerequisiteWalk
	require.NoError(t, json.Unmarshal(resp.Data, &walk))
	require.NotEmpty(t, walk.Levels)
	assert.Equal(t, 1, walk.Levels[0].Depth)

	resp, err = env.Get("/v1/concepts/"+url.PathEscape("도함수")+"/path?to="+url.QueryEscape("이계도함수"), apiKey)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Status)
	var path domain.PrerequisitePath
	require.NoError(t, json.Unmarshal(resp.Data, &path))
	require.Len(t, path.Steps, 2)
	assert.Equal(t, "이계도함수", path.Steps[1].Label)

	resp, err = env.Post("/v1/graph/reload", nil, apiKey)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Contains(t, string(resp.Data), `"changed":false`)

	env.PutDocument(aboxKey, testutil.CurriculumABox+`
:Integral a :Concept ; rdfs:label "정적분" .
:Derivative :prerequisiteOf :Integral .
`)

	resp, err = env.Post("/v1/graph/reload", nil, apiKey)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Contains(t, string(resp.Data), `"changed":true`)
	assert.Equal(t, 8, conceptCount())

	resp, err = env.Get("/v1/concepts/"+url.PathEscape("없는 개념")+"/prerequisites", apiKey)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Status)
}

func TestE2E_CLIWorkflow(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.BuildBinaries()

	t.Run("mathbot ask prints answer and evidence", func(t *testing.T) {
		output, err := env.RunMathbot("ask", "합성함수의 미분은 어느 과목에서 배우나요?")
		require.NoError(t, err, "ask failed: %s", output)
		assert.Contains(t, output, chainAnswer)
		assert.Contains(t, output, "수학Ⅱ > 미분 > 합성함수의 미분")
	})

	t.Run("mathbot concepts filters by label", func(t *testing.T) {
		output, err := env.RunMathbot("concepts", "-q", "미분")
		require.NoError(t, err, "concepts failed: %s", output)
		assert.Contains(t, output, "합성함수의 미분")
		assert.NotContains(t, output, "급수")
	})

	t.Run("mathbot prereqs walks the chain", func(t *testing.T) {
		output, err := env.RunMathbot("prereqs", "이계도함수", "-o", "json")
		require.NoError(t, err, "prereqs failed: %s", output)
		var walk domain.PrerequisiteWalk
		require.NoError(t, json.Unmarshal([]byte(output), &walk))
		assert.Equal(t, "이계도함수", walk.Concept.Label)
	})

	t.Run("mathbotd curriculum link works offline", func(t *testing.T) {
		dir := t.TempDir()
		abox := filepath.Join(dir, "abox.ttl")
		out := filepath.Join(dir, "linked.ttl")
		require.NoError(t, os.WriteFile(abox, []byte(testutil.CurriculumABox), 0644))

		output, err := env.RunMathbotd("curriculum", "link", "--data", abox, "--out", out)
		require.NoError(t, err, "link failed: %s", output)
		assert.True(t, strings.Contains(output, "added"))

		linked, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Contains(t, string(linked), "prerequisiteOf")
	})

	t.Run("help-json describes the client", func(t *testing.T) {
		output, err := env.RunMathbot("prereqs", "--help-json")
		require.NoError(t, err, "help-json failed: %s", output)
		assert.Contains(t, output, `"name": "depth"`)
	})
}
