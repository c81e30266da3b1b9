package llm

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-insight/pkg/apperrors"
)

// NewClientFromConfig creates the client for the configured provider.
func NewClientFromConfig(cfg *Config, logger *zap.Logger) (LLMClient, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	switch provider {
	case ProviderOpenAI, ProviderGroq, "":
		normalized := *cfg
		if provider == "" {
			normalized.Provider = ProviderGroq
		}
		return NewClient(&normalized, logger)
	case ProviderAnthropic:
		return NewAnthropicClient(cfg, logger)
	default:
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnsupportedProvider, cfg.Provider)
	}
}
