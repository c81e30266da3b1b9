package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-insight/pkg/config"
	"github.com/ekaya-inc/ekaya-insight/pkg/llm"
	"github.com/ekaya-inc/ekaya-insight/pkg/middleware"
	"github.com/ekaya-inc/ekaya-insight/pkg/models"
)

type fakeChat struct {
	ask func(ctx context.Context, question string) (*models.ChatResponse, error)
}

func (f *fakeChat) Ask(ctx context.Context, question string, _ []models.Turn) (*models.ChatResponse, error) {
	return f.ask(ctx, question)
}

func (f *fakeChat) DescribeDataset(context.Context) (*models.DatasetInfo, error) {
	return &models.DatasetInfo{Table: models.DefaultTableName, Dialect: "SQLite"}, nil
}

func greetingChat() *fakeChat {
	return &fakeChat{ask: func(_ context.Context, q string) (*models.ChatResponse, error) {
		return &models.ChatResponse{
			Query:       models.SentinelResponse(models.ResponseGreeting),
			Explanation: "Hello! Ask me about " + q,
			Type:        models.ResponseGreeting,
		}, nil
	}}
}

func testConfig(mcpEnabled bool) *config.Config {
	return &config.Config{
		Version:        "test",
		Env:            "test",
		RequestTimeout: time.Second,
		Datasource:     config.DatasourceConfig{Type: "sqlite"},
		LLM:            config.LLMConfig{Provider: "groq"},
		MCP:            config.MCPConfig{Enabled: mcpEnabled},
	}
}

func TestRouter_Routes(t *testing.T) {
	router := newRouter(testConfig(true), greetingChat(), zap.NewNop())

	tests := []struct {
		method, path, body string
		want               int
	}{
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/ping", "", http.StatusOK},
		{http.MethodGet, "/metrics", "", http.StatusOK},
		{http.MethodGet, "/api/dataset", "", http.StatusOK},
		{http.MethodPost, "/api/chat", `{"message":"hi"}`, http.StatusOK},
		{http.MethodGet, "/api/chat", "", http.StatusMethodNotAllowed},
		{http.MethodGet, "/missing", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
		})
	}
}

func TestRouter_MCP(t *testing.T) {
	body := `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"ask_dataset","arguments":{"question":"hello"}}}`

	t.Run("enabled", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json, text/event-stream")
		rec := httptest.NewRecorder()

		newRouter(testConfig(true), greetingChat(), zap.NewNop()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "greeting")
	})

	t.Run("disabled", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body))
		rec := httptest.NewRecorder()

		newRouter(testConfig(false), greetingChat(), zap.NewNop()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestRouter_ChatTimeout(t *testing.T) {
	cfg := testConfig(false)
	cfg.RequestTimeout = 10 * time.Millisecond
	slow := &fakeChat{ask: func(ctx context.Context, _ string) (*models.ChatResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"slow"}`))
	rec := httptest.NewRecorder()
	newRouter(cfg, slow, zap.NewNop()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "timeout")
}

func TestAskBatch(t *testing.T) {
	chat := &fakeChat{ask: func(_ context.Context, q string) (*models.ChatResponse, error) {
		if q == "broken" {
			return nil, errors.New("execute generated query: boom")
		}
		return &models.ChatResponse{Query: "SELECT 1", Type: models.ResponseDataAnalysis}, nil
	}}
	pool := llm.NewWorkerPool(llm.WorkerPoolConfig{MaxConcurrent: 2}, zap.NewNop())

	var out bytes.Buffer
	err := askBatch(context.Background(), chat, pool, []string{"first", "broken", "third"}, &out, zap.NewNop())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3")

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)

	var answers []batchAnswer
	for _, line := range lines {
		var a batchAnswer
		require.NoError(t, json.Unmarshal([]byte(line), &a))
		answers = append(answers, a)
	}
	assert.Equal(t, "first", answers[0].Question)
	assert.Equal(t, models.ResponseDataAnalysis, answers[0].Response.Type)
	assert.Equal(t, "broken", answers[1].Question)
	assert.Contains(t, answers[1].Error, "boom")
	assert.Nil(t, answers[1].Response)
	assert.Equal(t, "third", answers[2].Question)
}

func TestReadQuestions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.txt")
	require.NoError(t, os.WriteFile(path, []byte("# sales questions\ntotal sales by region\n\n  average order value  \n"), 0o600))

	questions, err := readQuestions(path)

	require.NoError(t, err)
	assert.Equal(t, []string{"total sales by region", "average order value"}, questions)

	_, err = readQuestions(filepath.Join(t.TempDir(), "absent.txt"))
	assert.Error(t, err)
}

func TestLoadPatterns(t *testing.T) {
	lib, err := loadPatterns(&config.Config{})
	require.NoError(t, err)
	assert.NotNil(t, lib)

	_, err = loadPatterns(&config.Config{PatternsFile: filepath.Join(t.TempDir(), "absent.yaml")})
	assert.Error(t, err)
}

func TestConfigMapping(t *testing.T) {
	cfg := config.LLMConfig{
		Provider:            "anthropic",
		BaseURL:             "https://example.test",
		Model:               "claude-test",
		APIKey:              "key",
		MaxTokens:           512,
		MaxRetries:          4,
		RetryDelay:          2 * time.Second,
		RateLimitMultiplier: 3,
	}

	lc := llmConfig(&cfg)
	assert.Equal(t, "anthropic", lc.Provider)
	assert.Equal(t, "https://example.test", lc.Endpoint)
	assert.Equal(t, 512, lc.MaxTokens)

	rc := retryConfig(&cfg)
	assert.Equal(t, 4, rc.MaxAttempts)
	assert.Equal(t, 2*time.Second, rc.BaseDelay)
	assert.Equal(t, 3.0, rc.RateLimitMultiplier)
}

func TestVersionCommand(t *testing.T) {
	root := NewRootCmd("1.2.3")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Equal(t, "ekaya-insight 1.2.3\n", out.String())
}

func TestAskCommand_RequiresQuestion(t *testing.T) {
	t.Setenv("LLM_API_KEY", "test")
	root := NewRootCmd("test")
	root.SetArgs([]string{"ask", "--config", filepath.Join(t.TempDir(), "absent.yaml")})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "question or --file")
}
