package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/ekaya-inc/ekaya-insight/pkg/apperrors"
)

// DefaultConfigPath is read when no explicit path is given.
const DefaultConfigPath = "config.yaml"

// Config holds all configuration for ekaya-insight.
// Values come from config.yaml with environment variable overrides.
// Secrets (API keys, passwords) only come from the environment.
type Config struct {
	// Server configuration
	BindAddr       string        `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port           string        `yaml:"port" env:"PORT" env-default:"8000"`
	Env            string        `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel       string        `yaml:"log_level" env:"LOG_LEVEL" env-default:""`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT" env-default:"60s"`
	Version        string        `yaml:"-"`

	// PatternsFile replaces the built-in intent phrase tables when set.
	PatternsFile string `yaml:"patterns_file" env:"PATTERNS_FILE" env-default:""`

	LLM        LLMConfig        `yaml:"llm"`
	Datasource DatasourceConfig `yaml:"datasource"`
	Redis      RedisConfig      `yaml:"redis"`
	MCP        MCPConfig        `yaml:"mcp"`
}

// LLMConfig selects and tunes the language model provider.
type LLMConfig struct {
	Provider    string  `yaml:"provider" env:"LLM_PROVIDER" env-default:"groq"`
	BaseURL     string  `yaml:"base_url" env:"LLM_BASE_URL" env-default:""`
	Model       string  `yaml:"model" env:"LLM_MODEL" env-default:"llama-3.3-70b-versatile"`
	APIKey      string  `yaml:"-" env:"LLM_API_KEY"` // Secret - not in YAML
	Temperature float64 `yaml:"temperature" env:"LLM_TEMPERATURE" env-default:"0.1"`
	MaxTokens   int     `yaml:"max_tokens" env:"LLM_MAX_TOKENS" env-default:"1024"`

	// Retry policy for SQL generation.
	MaxRetries          int           `yaml:"max_retries" env:"LLM_MAX_RETRIES" env-default:"3"`
	RetryDelay          time.Duration `yaml:"retry_delay" env:"LLM_RETRY_DELAY" env-default:"1s"`
	RateLimitMultiplier float64       `yaml:"rate_limit_multiplier" env:"LLM_RATE_LIMIT_MULTIPLIER" env-default:"2"`

	// Circuit breaker around the provider.
	CircuitThreshold int           `yaml:"circuit_threshold" env:"LLM_CIRCUIT_THRESHOLD" env-default:"5"`
	CircuitReset     time.Duration `yaml:"circuit_reset" env:"LLM_CIRCUIT_RESET" env-default:"30s"`
}

// providerKeyEnv is consulted when LLM_API_KEY is unset.
var providerKeyEnv = map[string]string{
	"groq":      "GROQ_API_KEY",
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
}

// DatasourceConfig describes where the active dataset lives.
type DatasourceConfig struct {
	Type     string `yaml:"type" env:"DATASOURCE_TYPE" env-default:"sqlite"`
	Path     string `yaml:"path" env:"DATASOURCE_PATH" env-default:"data/insight.db"`
	Host     string `yaml:"host" env:"DATASOURCE_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"DATASOURCE_PORT" env-default:"0"`
	User     string `yaml:"user" env:"DATASOURCE_USER" env-default:""`
	Password string `yaml:"-" env:"DATASOURCE_PASSWORD"` // Secret - not in YAML
	Database string `yaml:"database" env:"DATASOURCE_DATABASE" env-default:""`
	SSLMode  string `yaml:"ssl_mode" env:"DATASOURCE_SSL_MODE" env-default:"disable"`

	// Table is the dataset table. When it does not exist no dataset is loaded.
	Table string `yaml:"table" env:"DATASOURCE_TABLE" env-default:"current_dataset"`
	// MaxRows caps rows returned from one query.
	MaxRows      int   `yaml:"max_rows" env:"DATASOURCE_MAX_ROWS" env-default:"1000"`
	PoolMaxConns int32 `yaml:"pool_max_conns" env:"DATASOURCE_POOL_MAX_CONNS" env-default:"10"`
}

// RedisConfig configures the generation cache. An empty host disables it.
type RedisConfig struct {
	Host     string        `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int           `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string        `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	TTL      time.Duration `yaml:"ttl" env:"REDIS_TTL" env-default:"1h"`
}

// Enabled reports whether a Redis host is configured.
func (r *RedisConfig) Enabled() bool {
	return r.Host != ""
}

// Addr returns host:port, resolved for Docker.
func (r *RedisConfig) Addr() string {
	return net.JoinHostPort(ResolveHostForDocker(r.Host), strconv.Itoa(r.Port))
}

// MCPConfig toggles the MCP endpoint.
type MCPConfig struct {
	Enabled bool `yaml:"enabled" env:"MCP_ENABLED" env-default:"true"`
}

// Load reads config.yaml from the working directory. See LoadFrom.
func Load(version string) (*Config, error) {
	return LoadFrom(DefaultConfigPath, version)
}

// LoadFrom reads configuration from path with environment variable overrides.
// A .env file in the working directory is loaded first when present. A missing
// config file is not an error; environment variables and defaults apply.
func LoadFrom(path, version string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{Version: version}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if cfg.LLM.APIKey == "" {
		if name, ok := providerKeyEnv[strings.ToLower(cfg.LLM.Provider)]; ok {
			cfg.LLM.APIKey = os.Getenv(name)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks values cleanenv cannot.
func (c *Config) Validate() error {
	switch strings.ToLower(c.LLM.Provider) {
	case "groq", "openai", "anthropic":
	default:
		return fmt.Errorf("%w: %q", apperrors.ErrUnsupportedProvider, c.LLM.Provider)
	}
	switch strings.ToLower(c.Datasource.Type) {
	case "sqlite", "postgres", "mssql":
	default:
		return fmt.Errorf("%w: %q", apperrors.ErrUnsupportedDatasource, c.Datasource.Type)
	}
	if c.LLM.MaxRetries < 1 {
		return fmt.Errorf("llm.max_retries must be at least 1, got %d", c.LLM.MaxRetries)
	}
	if c.Datasource.MaxRows < 1 {
		return fmt.Errorf("datasource.max_rows must be at least 1, got %d", c.Datasource.MaxRows)
	}
	return nil
}

// ListenAddr returns the HTTP listen address.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.BindAddr, c.Port)
}

// PostgresConnectionString returns a pgx connection URL.
func (d *DatasourceConfig) PostgresConnectionString() string {
	port := d.Port
	if port == 0 {
		port = 5432
	}
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(ResolveHostForDocker(d.Host), strconv.Itoa(port)),
		Path:     "/" + d.Database,
		RawQuery: url.Values{"sslmode": []string{d.SSLMode}}.Encode(),
	}
	return u.String()
}

// MSSQLConnectionString returns a go-mssqldb connection URL.
func (d *DatasourceConfig) MSSQLConnectionString() string {
	port := d.Port
	if port == 0 {
		port = 1433
	}
	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(ResolveHostForDocker(d.Host), strconv.Itoa(port)),
		RawQuery: url.Values{"database": []string{d.Database}}.Encode(),
	}
	return u.String()
}

// SQLiteDSN returns the go-sqlite3 data source name, opened read-only.
func (d *DatasourceConfig) SQLiteDSN() string {
	return "file:" + d.Path + "?mode=ro&_busy_timeout=5000"
}
