package tools

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-insight/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-insight/pkg/logging"
	"github.com/ekaya-inc/ekaya-insight/pkg/models"
	"github.com/ekaya-inc/ekaya-insight/pkg/services"
	"github.com/ekaya-inc/ekaya-insight/pkg/visualization"
)

// DatasetToolDeps contains dependencies for the dataset tools.
type DatasetToolDeps struct {
	ChatService services.ChatService
	Logger      *zap.Logger
}

// RegisterDatasetTools registers ask_dataset, describe_dataset and
// suggest_visualization.
func RegisterDatasetTools(s *server.MCPServer, deps *DatasetToolDeps) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	registerAskDatasetTool(s, deps)
	registerDescribeDatasetTool(s, deps)
	registerSuggestVisualizationTool(s)
}

func registerAskDatasetTool(s *server.MCPServer, deps *DatasetToolDeps) {
	tool := mcp.NewTool(
		"ask_dataset",
		mcp.WithDescription(
			"Ask a natural-language question about the loaded dataset. "+
				"Returns the generated SQL, an explanation, the result rows and a suggested chart. "+
				"Greetings and help requests get a canned reply with no query. "+
				"Example: ask_dataset(question='total sales by region')",
		),
		mcp.WithString(
			"question",
			mcp.Required(),
			mcp.Description("The question in plain language"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil {
			return nil, err
		}
		question = trimString(question)
		if question == "" {
			return NewErrorResult("invalid_parameters", "parameter 'question' cannot be empty"), nil
		}

		resp, err := deps.ChatService.Ask(ctx, question, nil)
		if err != nil {
			if errors.Is(err, apperrors.ErrInvalidQuestion) {
				return NewErrorResult("invalid_parameters", err.Error()), nil
			}
			deps.Logger.Error("ask_dataset failed",
				zap.String("question", logging.SanitizeQuery(question)),
				zap.String("error", logging.SanitizeError(err)))
			return NewErrorResult("query_failed", "failed to run the query for this question"), nil
		}

		return jsonResult(resp)
	})
}

func registerDescribeDatasetTool(s *server.MCPServer, deps *DatasetToolDeps) {
	tool := mcp.NewTool(
		"describe_dataset",
		mcp.WithDescription("Describe the loaded dataset: table name, SQL dialect, columns, primary key and row count."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		info, err := deps.ChatService.DescribeDataset(ctx)
		if err != nil {
			if errors.Is(err, apperrors.ErrNoDataset) {
				return NewErrorResult("no_dataset", "no dataset is loaded"), nil
			}
			return nil, err
		}
		return jsonResult(info)
	})
}

type visualizationResult struct {
	Visualization models.VisualizationHint   `json:"visualization"`
	Supported     []models.VisualizationHint `json:"supported"`
}

func registerSuggestVisualizationTool(s *server.MCPServer) {
	tool := mcp.NewTool(
		"suggest_visualization",
		mcp.WithDescription(
			"Suggest a chart kind (bar, line, pie, scatter or table) for a SQL query and its result rows. "+
				"Example: suggest_visualization(query='SELECT region, COUNT(*) FROM t GROUP BY region', rows_json='[{\"region\":\"West\",\"count\":3}]')",
		),
		mcp.WithString(
			"query",
			mcp.Required(),
			mcp.Description("The SQL query that produced the rows"),
		),
		mcp.WithString(
			"rows_json",
			mcp.Description("Result rows as a JSON array of objects"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return nil, err
		}

		rows, err := parseRows(req.GetArguments()["rows_json"])
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}

		return jsonResult(visualizationResult{
			Visualization: visualization.Select(query, rows),
			Supported:     visualization.SupportedKinds(),
		})
	})
}
