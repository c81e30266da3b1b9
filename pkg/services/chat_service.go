package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-insight/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-insight/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-insight/pkg/logging"
	"github.com/ekaya-inc/ekaya-insight/pkg/models"
	"github.com/ekaya-inc/ekaya-insight/pkg/patterns"
	sqlsafety "github.com/ekaya-inc/ekaya-insight/pkg/sql"
	"github.com/ekaya-inc/ekaya-insight/pkg/visualization"
)

// ChatService answers questions against the active dataset.
type ChatService interface {
	// Ask classifies and answers one question. Canned branches return without
	// touching the datasource; real SQL is screened, executed, and paired with
	// a visualization hint.
	Ask(ctx context.Context, question string, history []models.Turn) (*models.ChatResponse, error)

	// DescribeDataset returns the active table's columns and row count.
	// Returns apperrors.ErrNoDataset when no dataset is loaded.
	DescribeDataset(ctx context.Context) (*models.DatasetInfo, error)
}

// ChatServiceConfig names the dataset table and caps result size.
type ChatServiceConfig struct {
	Table   string
	MaxRows int
}

type chatService struct {
	generator QueryGenerator
	ds        datasource.Datasource
	responses patterns.Responses
	config    ChatServiceConfig
	logger    *zap.Logger
}

// NewChatService creates a chat service over ds.
func NewChatService(
	generator QueryGenerator,
	ds datasource.Datasource,
	lib *patterns.Library,
	config ChatServiceConfig,
	logger *zap.Logger,
) ChatService {
	if config.Table == "" {
		config.Table = models.DefaultTableName
	}
	if lib == nil {
		lib = patterns.Default()
	}
	return &chatService{
		generator: generator,
		ds:        ds,
		responses: lib.Responses,
		config:    config,
		logger:    logger.Named("chat"),
	}
}

var _ ChatService = (*chatService)(nil)

func (s *chatService) Ask(ctx context.Context, question string, history []models.Turn) (*models.ChatResponse, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, apperrors.ErrInvalidQuestion
	}

	req := GenerateRequest{
		Question: question,
		History:  history,
		Dialect:  s.ds.Dialect(),
	}

	hasDataset := true
	schema, err := s.ds.GetTableSchema(ctx, s.config.Table)
	switch {
	case err == nil:
		req.TableName = s.config.Table
		req.Schema = schema
	case errors.Is(err, apperrors.ErrNoDataset):
		hasDataset = false
	default:
		// The model can still write SQL from the table name alone.
		s.logger.Warn("Failed to load dataset schema",
			zap.String("table", s.config.Table),
			zap.String("error", logging.SanitizeError(err)))
		req.TableName = s.config.Table
	}

	generated := s.generator.GenerateQuery(ctx, req)
	resp := &models.ChatResponse{
		Query:       generated.Query,
		Explanation: generated.Explanation,
		Summary:     generated.Summary,
	}

	if branch, ok := models.ParseSentinel(generated.Query); ok {
		resp.Type = branch
		return resp, nil
	}

	if !startsWithSelect(generated.Query) {
		resp.Type = models.ResponseInvalidQuery
		if resp.Explanation == "" {
			resp.Explanation = s.responses.InvalidQuery
		}
		return resp, nil
	}

	if !hasDataset {
		return &models.ChatResponse{
			Query:       models.SentinelType(models.ResponseNoDataset),
			Explanation: s.responses.NoDataset,
			Summary:     s.responses.NoDatasetSummary,
			Type:        models.ResponseNoDataset,
		}, nil
	}

	prepared, err := sqlsafety.Prepare(generated.Query)
	if err != nil {
		s.logger.Warn("Rejected generated query",
			zap.String("query", logging.SanitizeQuery(generated.Query)),
			zap.Error(err))
		resp.Type = models.ResponseInvalidQuery
		resp.Explanation = s.responses.UnsafeQuery
		return resp, nil
	}

	result, err := s.ds.Query(ctx, prepared, s.config.MaxRows)
	if err != nil {
		return nil, fmt.Errorf("execute generated query: %w", err)
	}

	s.logger.Info("Query executed",
		zap.String("query", logging.TruncateString(logging.SanitizeQuery(prepared), 200)),
		zap.Int("rows", result.RowCount),
		zap.Bool("truncated", result.Truncated))

	resp.Type = models.ResponseDataAnalysis
	resp.Data = result.Rows
	resp.Columns = result.ColumnNames()
	resp.Truncated = result.Truncated
	resp.Visualization = visualization.Select(prepared, result.Rows)
	return resp, nil
}

func (s *chatService) DescribeDataset(ctx context.Context) (*models.DatasetInfo, error) {
	schema, err := s.ds.GetTableSchema(ctx, s.config.Table)
	if err != nil {
		return nil, err
	}

	result, err := s.ds.Query(ctx,
		fmt.Sprintf("SELECT COUNT(*) AS row_count FROM %s", QuoteIdentifier(s.config.Table)), 1)
	if err != nil {
		return nil, fmt.Errorf("count dataset rows: %w", err)
	}

	var rowCount int64
	if len(result.Rows) == 1 {
		rowCount = toInt64(result.Rows[0]["row_count"])
	}

	return &models.DatasetInfo{
		Table:      s.config.Table,
		Dialect:    s.ds.Dialect(),
		Columns:    schema.Columns,
		PrimaryKey: schema.PrimaryKey,
		RowCount:   rowCount,
	}, nil
}

func startsWithSelect(query string) bool {
	trimmed := strings.TrimSpace(query)
	return len(trimmed) >= 6 && strings.EqualFold(trimmed[:6], "select")
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case []byte:
		parsed, _ := strconv.ParseInt(string(n), 10, 64)
		return parsed
	case string:
		parsed, _ := strconv.ParseInt(n, 10, 64)
		return parsed
	default:
		return 0
	}
}
