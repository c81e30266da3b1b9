package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-insight/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-insight/pkg/cache"
	"github.com/ekaya-inc/ekaya-insight/pkg/formatter"
	"github.com/ekaya-inc/ekaya-insight/pkg/intent"
	"github.com/ekaya-inc/ekaya-insight/pkg/llm"
	"github.com/ekaya-inc/ekaya-insight/pkg/logging"
	"github.com/ekaya-inc/ekaya-insight/pkg/metrics"
	"github.com/ekaya-inc/ekaya-insight/pkg/models"
	"github.com/ekaya-inc/ekaya-insight/pkg/prompts"
	"github.com/ekaya-inc/ekaya-insight/pkg/retry"
)

// PreviewRowLimit is the row count of the data preview shortcut.
const PreviewRowLimit = 10

// FallbackRowLimit is used when analysis is requested without a table name.
const FallbackRowLimit = 5

// DefaultTemperature keeps SQL generation close to deterministic.
const DefaultTemperature = 0.1

// GenerateRequest is one question plus the dataset context it is asked against.
type GenerateRequest struct {
	Question string
	// TableName is empty when no dataset is loaded.
	TableName string
	// Schema may be nil; the prompt then omits the column list.
	Schema  *models.TableSchema
	History []models.Turn
	// Dialect names the SQL flavour for the prompt ("SQLite", "PostgreSQL").
	Dialect string
}

// QueryGenerator turns a question into SQL or a canned reply.
type QueryGenerator interface {
	// GenerateQuery always returns a well-formed result. Failures surface as
	// the error sentinel, never as a Go error or a panic.
	GenerateQuery(ctx context.Context, req GenerateRequest) models.GeneratedQuery
}

// QueryGeneratorConfig tunes model calls.
type QueryGeneratorConfig struct {
	Temperature float64
	Retry       *retry.Config
}

// DefaultQueryGeneratorConfig returns temperature 0.1 and the default retry
// policy.
func DefaultQueryGeneratorConfig() QueryGeneratorConfig {
	return QueryGeneratorConfig{
		Temperature: DefaultTemperature,
		Retry:       retry.DefaultConfig(),
	}
}

type sqlReply struct {
	Query       string `json:"query"`
	Explanation string `json:"explanation"`
	Summary     string `json:"summary"`
}

var sqlReplySchema = llm.MustResponseSchema(prompts.SQLResponseSchema)

type queryGenerator struct {
	classifier *intent.Classifier
	client     llm.LLMClient
	breaker    *llm.CircuitBreaker
	cache      cache.QueryCache
	config     QueryGeneratorConfig
	logger     *zap.Logger
}

// NewQueryGenerator creates a query generator. A nil breaker or cache gets a
// default breaker and a no-op cache.
func NewQueryGenerator(
	classifier *intent.Classifier,
	client llm.LLMClient,
	breaker *llm.CircuitBreaker,
	queryCache cache.QueryCache,
	config QueryGeneratorConfig,
	logger *zap.Logger,
) QueryGenerator {
	if breaker == nil {
		breaker = llm.NewCircuitBreaker(llm.DefaultCircuitBreakerConfig())
	}
	if queryCache == nil {
		queryCache = cache.NoopCache{}
	}
	if config.Retry == nil {
		config.Retry = retry.DefaultConfig()
	}
	return &queryGenerator{
		classifier: classifier,
		client:     client,
		breaker:    breaker,
		cache:      queryCache,
		config:     config,
		logger:     logger.Named("query-generator"),
	}
}

var _ QueryGenerator = (*queryGenerator)(nil)

func (g *queryGenerator) GenerateQuery(ctx context.Context, req GenerateRequest) (result models.GeneratedQuery) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("Recovered panic during query generation",
				zap.Any("panic", r),
				zap.Stack("stack"))
			result = g.errorResult()
		}
		metrics.ObserveGeneration(branchOf(result.Query), time.Since(start))
	}()

	var err error
	result, err = g.generate(ctx, req)
	if err != nil {
		g.logger.Error("Query generation failed",
			zap.String("question", logging.TruncateString(req.Question, 200)),
			zap.String("table", req.TableName),
			zap.String("error_type", string(llm.GetErrorType(err))),
			zap.Error(err))
		return g.errorResult()
	}
	return result
}

func (g *queryGenerator) generate(ctx context.Context, req GenerateRequest) (models.GeneratedQuery, error) {
	decision := g.classifier.Classify(req.Question)
	metrics.ObserveIntent(string(decision.Intent))
	lib := g.classifier.Library()

	switch decision.Intent {
	case models.IntentKnowledgeBase:
		return models.GeneratedQuery{
			Query:       models.SentinelResponse(models.ResponseKnowledgeBase),
			Explanation: lib.KnowledgeAnswer(decision.Match),
		}, nil
	case models.IntentGreeting:
		return models.GeneratedQuery{
			Query:       models.SentinelResponse(models.ResponseGreeting),
			Explanation: lib.GreetingReply,
		}, nil
	case models.IntentHelp:
		text, _ := lib.HelpFor(intent.Normalize(req.Question))
		return models.GeneratedQuery{
			Query:       models.SentinelResponse(models.ResponseHelp),
			Explanation: text,
		}, nil
	case models.IntentOperation:
		return models.GeneratedQuery{
			Query:       models.SentinelResponse(models.ResponseOperation),
			Explanation: lib.OperationReply,
		}, nil
	case models.IntentGeneralKnowledge:
		return g.answerGeneralKnowledge(ctx, req), nil
	}

	switch decision.Shortcut {
	case intent.ShortcutDatasetSummary:
		if req.TableName == "" {
			return g.noDataset(), nil
		}
		return models.GeneratedQuery{
			Query:       models.SentinelType(models.ResponseDatasetSummary),
			Explanation: lib.Responses.DatasetSummary,
			Summary:     lib.Responses.DatasetSummarySummary,
		}, nil
	case intent.ShortcutDataPreview:
		if req.TableName == "" {
			return g.noDataset(), nil
		}
		return models.GeneratedQuery{
			Query:       previewQuery(req.Dialect, req.TableName),
			Explanation: lib.Responses.Preview,
			Summary:     lib.Responses.PreviewSummary,
		}, nil
	}

	if req.TableName == "" {
		return models.GeneratedQuery{
			Query:       fmt.Sprintf("SELECT * FROM %s LIMIT %d", models.DefaultTableName, FallbackRowLimit),
			Explanation: lib.Responses.Fallback,
			Summary:     lib.Responses.FallbackSummary,
		}, nil
	}

	return g.generateSQL(ctx, req)
}

// answerGeneralKnowledge makes exactly one model call. Any failure becomes the
// general-knowledge apology.
func (g *queryGenerator) answerGeneralKnowledge(ctx context.Context, req GenerateRequest) models.GeneratedQuery {
	failed := models.GeneratedQuery{
		Query:       models.SentinelResponse(models.ResponseError),
		Explanation: g.classifier.Library().Responses.GeneralKnowledgeError,
	}

	if err := g.breaker.Allow(); err != nil {
		metrics.ObserveLLMCall(metrics.OutcomeCircuit)
		g.logger.Error("Circuit breaker prevented general knowledge call",
			zap.String("circuit_state", g.breaker.State().String()),
			zap.Error(err))
		return failed
	}

	prompt := prompts.BuildGeneralKnowledgePrompt(req.Question, req.History)
	resp, err := g.callModel(ctx, prompt, prompts.GeneralKnowledgeSystemPrompt)
	g.breaker.Record(err)
	if err != nil {
		metrics.ObserveLLMCall(metrics.OutcomeError)
		g.logger.Error("Error generating general knowledge response",
			zap.String("error_type", string(llm.GetErrorType(err))),
			zap.Error(err))
		return failed
	}
	metrics.ObserveLLMCall(metrics.OutcomeSuccess)

	return models.GeneratedQuery{
		Query:       models.SentinelResponse(models.ResponseGeneralKnowledge),
		Explanation: strings.TrimSpace(resp.Content),
	}
}

func (g *queryGenerator) generateSQL(ctx context.Context, req GenerateRequest) (models.GeneratedQuery, error) {
	cacheKey := cache.Key(req.Dialect, req.TableName, req.Schema, req.Question)
	if cached, ok, err := g.cache.Get(ctx, cacheKey); err != nil {
		g.logger.Warn("Cache lookup failed", zap.Error(err))
	} else if ok {
		g.logger.Debug("Serving generated query from cache", zap.String("key", cacheKey))
		return *cached, nil
	}

	systemPrompt := prompts.BuildSQLSystemPrompt(req.Dialect, req.TableName, req.Schema)

	g.logger.Info("Processing question",
		zap.String("question", logging.TruncateString(req.Question, 200)),
		zap.String("table", req.TableName),
		zap.Strings("columns", req.Schema.ColumnNames()))

	retryCfg := *g.config.Retry
	onRetry := retryCfg.OnRetry
	retryCfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		errType := llm.GetErrorType(err)
		metrics.ObserveRetry(string(errType))
		g.logger.Warn("Retrying SQL generation",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", retryCfg.MaxAttempts),
			zap.String("error_type", string(errType)),
			zap.Duration("delay", delay),
			zap.Error(err))
		if onRetry != nil {
			onRetry(attempt, err, delay)
		}
	}

	reply, err := retry.DoWithResult(ctx, &retryCfg, func(attempt int) (*sqlReply, error) {
		if err := g.breaker.Allow(); err != nil {
			metrics.ObserveLLMCall(metrics.OutcomeCircuit)
			return nil, llm.NewError(llm.ErrorTypeOther, "circuit breaker open", err)
		}

		resp, err := g.callModel(ctx, req.Question, systemPrompt)
		if err != nil {
			classified := llm.ClassifyError(err)
			g.breaker.Record(classified)
			metrics.ObserveLLMCall(metrics.OutcomeError)
			return nil, classified
		}
		g.breaker.Record(nil)
		metrics.ObserveLLMCall(metrics.OutcomeSuccess)

		parsed, err := llm.ParseStructured[sqlReply](resp.Content, sqlReplySchema)
		if err != nil {
			return nil, err
		}
		return &parsed, nil
	})
	if err != nil {
		if mentionsCannotGenerate(err) {
			return g.outOfScope(req), nil
		}
		return models.GeneratedQuery{}, err
	}

	query := strings.TrimSpace(reply.Query)
	if containsCannotGenerate(query) {
		return g.outOfScope(req), nil
	}
	result := models.GeneratedQuery{
		Query:       query,
		Explanation: formatter.FormatExplanation(reply.Explanation),
		Summary:     formatter.SummaryForSQL(query),
	}
	g.logger.Info("Generated SQL query", zap.String("query", logging.SanitizeQuery(query)))

	if !models.IsSentinel(query) {
		if err := g.cache.Set(ctx, cacheKey, &result); err != nil {
			g.logger.Warn("Cache store failed", zap.Error(err))
		}
	}
	return result, nil
}

// callModel makes one model call. A panicking client counts as a provider
// failure so a half-open breaker is never left waiting on its probe.
func (g *queryGenerator) callModel(ctx context.Context, prompt, systemMessage string) (*llm.GenerateResponseResult, error) {
	defer func() {
		if r := recover(); r != nil {
			g.breaker.RecordFailure()
			panic(r)
		}
	}()
	return g.client.GenerateResponse(ctx, prompt, systemMessage, g.config.Temperature)
}

func (g *queryGenerator) outOfScope(req GenerateRequest) models.GeneratedQuery {
	g.logger.Info("Model declined to generate SQL",
		zap.String("question", logging.TruncateString(req.Question, 200)))
	return models.GeneratedQuery{
		Query:       models.SentinelType(models.ResponseOutOfScope),
		Explanation: g.classifier.Library().Responses.OutOfScope,
	}
}

func (g *queryGenerator) noDataset() models.GeneratedQuery {
	r := g.classifier.Library().Responses
	return models.GeneratedQuery{
		Query:       models.SentinelType(models.ResponseNoDataset),
		Explanation: r.NoDataset,
		Summary:     r.NoDatasetSummary,
	}
}

func (g *queryGenerator) errorResult() models.GeneratedQuery {
	return models.GeneratedQuery{
		Query:       models.SentinelType(models.ResponseError),
		Explanation: g.classifier.Library().Responses.Error,
	}
}

// mentionsCannotGenerate reports whether the model said it cannot answer with
// SQL, either in the error text or in an unparseable reply.
func mentionsCannotGenerate(err error) bool {
	if containsCannotGenerate(err.Error()) {
		return true
	}
	var parseErr *llm.ParseError
	if errors.As(err, &parseErr) {
		return containsCannotGenerate(parseErr.Raw)
	}
	return false
}

func containsCannotGenerate(text string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(prompts.CannotGenerateSQL))
}

// previewQuery selects the first PreviewRowLimit rows. SQL Server has no
// LIMIT clause.
func previewQuery(dialect, table string) string {
	if dialect == datasource.DialectSQLServer {
		return fmt.Sprintf("SELECT TOP %d * FROM %s", PreviewRowLimit, QuoteIdentifier(table))
	}
	return fmt.Sprintf("SELECT * FROM %s LIMIT %d", QuoteIdentifier(table), PreviewRowLimit)
}

// QuoteIdentifier double-quotes a table name, doubling embedded quotes.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func branchOf(query string) string {
	if t, ok := models.ParseSentinel(query); ok {
		return string(t)
	}
	return string(models.ResponseDataAnalysis)
}
