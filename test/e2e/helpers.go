//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/cloo-solutions/mathbot/internal/api/handlers"
	"github.com/cloo-solutions/mathbot/internal/api/middleware"
	"github.com/cloo-solutions/mathbot/internal/cache"
	"github.com/cloo-solutions/mathbot/internal/logger"
	"github.com/cloo-solutions/mathbot/internal/ontology"
	"github.com/cloo-solutions/mathbot/internal/repository"
	"github.com/cloo-solutions/mathbot/internal/server"
	"github.com/cloo-solutions/mathbot/internal/service"
	"github.com/cloo-solutions/mathbot/internal/sparql"
	"github.com/cloo-solutions/mathbot/internal/storage"
	"github.com/cloo-solutions/mathbot/internal/testutil"
	"github.com/cloo-solutions/mathbot/internal/vocab"
)

const (
	apiKey     = "e2e-secret-key"
	bucket     = "curriculum"
	tboxKey    = "ontology/math_tbox.ttl"
	aboxKey    = "knowledge_graph/math_abox.ttl"
	chainQuery = `PREFIX : <http://snu.ac.kr/math/>
PREFIX rdfs: <http://www.w3.org/2000/01/rdf-schema#>
SELECT ?targetLabel WHERE { ?target a :Concept ; rdfs:label ?targetLabel . FILTER(regex(?targetLabel, '합성함수', 'i')) }`
	chainAnswer = "합성함수의 미분은 수학Ⅱ 미분 단원에서 배웁니다."
)

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T          *testing.T
	Ctx        context.Context
	PostgresC  *testutil.PostgresContainer
	RedisC     *testutil.RedisContainer
	RustFSC    *testutil.RustFSContainer
	Pool       *pgxpool.Pool
	Redis      *goredis.Client
	S3Client   *storage.S3Client
	LLM        *testutil.StubLLM
	Ask        *service.AskService
	ServerURL  string
	closer     func()
	BinaryDir  string
	HTTPClient *http.Client
}

// SetupE2EEnv starts Postgres, Redis and RustFS, uploads the curriculum documents and
// serves the full router backed by them. The language model is stubbed.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()
	env := &E2ETestEnv{T: t, Ctx: ctx, HTTPClient: &http.Client{Timeout: 30 * time.Second}}

	env.PostgresC = testutil.NewPostgresContainer(ctx, t)
	env.RedisC = testutil.NewRedisContainer(ctx, t)
	env.RustFSC = testutil.NewRustFSContainer(ctx, t)
	env.Pool = testutil.NewTestPool(ctx, t, env.PostgresC)

	rdb, err := cache.Connect(ctx, env.RedisC.URL())
	if err != nil {
		t.Fatalf("failed to connect to redis: %v", err)
	}
	env.Redis = rdb

	env.S3Client, err = storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        env.RustFSC.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          bucket,
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}
	if err := env.S3Client.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}
	env.PutDocument(tboxKey, testutil.CurriculumTBox)
	env.PutDocument(aboxKey, testutil.CurriculumABox)

	queryReply, _ := json.Marshal(map[string]any{"query": chainQuery, "explanation": "직접 일치", "terms": []string{"합성함수"}})
	env.LLM = testutil.NewStubLLM().
		Reply("query", string(queryReply)).
		Reply("answer", fmt.Sprintf(`{"answer":%q,"evidence":[]}`, chainAnswer))

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to find free port: %v", err)
	}
	env.ServerURL, env.closer = env.startServer(port)

	return env
}

// PutDocument uploads a curriculum document to the test bucket.
func (e *E2ETestEnv) PutDocument(key, turtle string) {
	if err := e.S3Client.PutObject(e.Ctx, key, "text/turtle", []byte(turtle)); err != nil {
		e.T.Fatalf("failed to upload %s: %v", key, err)
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.closer != nil {
		e.closer()
	}
	if e.Ask != nil {
		e.Ask.Wait()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.Redis != nil {
		_ = e.Redis.Close()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.RedisC != nil {
		e.RedisC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

func (e *E2ETestEnv) startServer(port int) (string, func()) {
	log := logger.Nop()
	ns := vocab.DefaultNamespace

	loader := ontology.NewLoader(ns, e.S3Client,
		fmt.Sprintf("s3://%s/%s", bucket, tboxKey),
		fmt.Sprintf("s3://%s/%s", bucket, aboxKey),
	)
	store := ontology.NewStore(nil)
	reloader := ontology.NewReloader(loader, store, log)
	if _, _, err := reloader.Reload(e.Ctx); err != nil {
		e.T.Fatalf("failed to load curriculum: %v", err)
	}

	questions := repository.NewQuestionLogRepository(e.Pool)
	e.Ask = service.NewAskService(
		store,
		service.NewQuerySynthesizer(e.LLM, ns, sparql.DefaultLimits(), log),
		service.NewQueryExecutor(5*time.Second, 500, log),
		service.NewAnswerSynthesizer(e.LLM, log),
		log,
	).WithCache(cache.NewQueryCache(e.Redis, time.Hour)).WithQuestionLog(questions)

	router := server.NewRouter(server.RouterConfig{
		Logger:            log,
		AuthValidator:     middleware.StaticKey(apiKey),
		MaxBodyBytes:      1 << 16,
		AskHandler:        handlers.NewAskHandler(e.Ask, log),
		CurriculumHandler: handlers.NewCurriculumHandler(service.NewCurriculumService(store), reloader, log),
		QuestionHandler:   handlers.NewQuestionHandler(questions),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			e.T.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(e.T, serverURL, 10*time.Second)

	return serverURL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// BuildBinaries builds the mathbot and mathbotd binaries
func (e *E2ETestEnv) BuildBinaries() {
	tmpDir, err := os.MkdirTemp("", "mathbot-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	for _, name := range []string{"mathbot", "mathbotd"} {
		cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, name), "./cmd/"+name)
		cmd.Dir = "../.."
		if out, err := cmd.CombinedOutput(); err != nil {
			e.T.Fatalf("failed to build %s: %v\n%s", name, err, out)
		}
	}
}

// RunMathbot runs the client CLI against the test server
func (e *E2ETestEnv) RunMathbot(args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "mathbot"), args...)
	cmd.Env = append(os.Environ(),
		"MATHBOT_API_KEY="+apiKey,
		"MATHBOT_API_URL="+e.ServerURL,
		"XDG_CONFIG_HOME="+e.BinaryDir,
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// RunMathbotd runs an offline mathbotd command
func (e *E2ETestEnv) RunMathbotd(args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "mathbotd"), args...)
	cmd.Env = append(os.Environ(), "MATHBOT_LOG_LEVEL=error")
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// APIResponse represents a standard API response
type APIResponse struct {
	Status int             `json:"-"`
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error,omitempty"`
	Code   string          `json:"code,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path, authToken string) (*APIResponse, error) {
	return e.doRequest(http.MethodGet, path, nil, authToken)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}, authToken string) (*APIResponse, error) {
	return e.doRequest(http.MethodPost, path, body, authToken)
}

// doRequest returns the decoded envelope for every status; only transport and
// decoding failures are errors.
func (e *E2ETestEnv) doRequest(method, path string, body interface{}, authToken string) (*APIResponse, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, e.ServerURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	apiResp := APIResponse{Status: resp.StatusCode}
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}
	return &apiResp, nil
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
