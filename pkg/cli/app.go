package cli

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-insight/pkg/adapters/datasource"
	_ "github.com/ekaya-inc/ekaya-insight/pkg/adapters/datasource/mssql"
	_ "github.com/ekaya-inc/ekaya-insight/pkg/adapters/datasource/postgres"
	_ "github.com/ekaya-inc/ekaya-insight/pkg/adapters/datasource/sqlite"
	"github.com/ekaya-inc/ekaya-insight/pkg/cache"
	"github.com/ekaya-inc/ekaya-insight/pkg/config"
	"github.com/ekaya-inc/ekaya-insight/pkg/intent"
	"github.com/ekaya-inc/ekaya-insight/pkg/llm"
	"github.com/ekaya-inc/ekaya-insight/pkg/logging"
	"github.com/ekaya-inc/ekaya-insight/pkg/patterns"
	"github.com/ekaya-inc/ekaya-insight/pkg/retry"
	"github.com/ekaya-inc/ekaya-insight/pkg/services"
)

// app holds the wired services shared by every command.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	client llm.LLMClient
	ds     datasource.Datasource
	redis  *redis.Client
	chat   services.ChatService
}

// loadPatterns returns the built-in library or the one named in cfg.
func loadPatterns(cfg *config.Config) (*patterns.Library, error) {
	if cfg.PatternsFile == "" {
		return patterns.Default(), nil
	}
	lib, err := patterns.LoadFile(cfg.PatternsFile)
	if err != nil {
		return nil, fmt.Errorf("load patterns file: %w", err)
	}
	return lib, nil
}

// llmConfig maps the configuration section onto the client config.
func llmConfig(cfg *config.LLMConfig) *llm.Config {
	return &llm.Config{
		Provider:  cfg.Provider,
		Endpoint:  cfg.BaseURL,
		Model:     cfg.Model,
		APIKey:    cfg.APIKey,
		MaxTokens: cfg.MaxTokens,
	}
}

func retryConfig(cfg *config.LLMConfig) *retry.Config {
	return &retry.Config{
		MaxAttempts:         cfg.MaxRetries,
		BaseDelay:           cfg.RetryDelay,
		RateLimitMultiplier: cfg.RateLimitMultiplier,
	}
}

// newApp wires patterns, classifier, provider, cache, datasource and the chat
// service. Redis is optional: a connection failure logs a warning and
// generation runs uncached.
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	lib, err := loadPatterns(cfg)
	if err != nil {
		return nil, err
	}

	client, err := llm.NewClientFromConfig(llmConfig(&cfg.LLM), logger)
	if err != nil {
		return nil, fmt.Errorf("create llm client: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, client: client}

	a.redis, err = cache.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Warn("Redis unavailable; generation cache disabled",
			zap.String("addr", cfg.Redis.Addr()),
			zap.String("error", logging.SanitizeError(err)))
		a.redis = nil
	}

	a.ds, err = datasource.Open(ctx, &cfg.Datasource, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	breaker := llm.NewCircuitBreaker(llm.CircuitBreakerConfig{
		Threshold:  cfg.LLM.CircuitThreshold,
		ResetAfter: cfg.LLM.CircuitReset,
	})

	generator := services.NewQueryGenerator(
		intent.New(lib, logger),
		client,
		breaker,
		cache.New(a.redis, cfg.Redis.TTL, logger),
		services.QueryGeneratorConfig{
			Temperature: cfg.LLM.Temperature,
			Retry:       retryConfig(&cfg.LLM),
		},
		logger,
	)

	a.chat = services.NewChatService(generator, a.ds, lib, services.ChatServiceConfig{
		Table:   cfg.Datasource.Table,
		MaxRows: cfg.Datasource.MaxRows,
	}, logger)

	logger.Info("Services initialized",
		zap.String("datasource", cfg.Datasource.Type),
		zap.String("dialect", a.ds.Dialect()),
		zap.String("table", cfg.Datasource.Table),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("llm_model", client.GetModel()),
		zap.Bool("cache", a.redis != nil))

	return a, nil
}

// Close releases the datasource and Redis connections.
func (a *app) Close() {
	if a.ds != nil {
		if err := a.ds.Close(); err != nil {
			a.logger.Warn("Failed to close datasource", zap.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("Failed to close Redis client", zap.Error(err))
		}
	}
}
