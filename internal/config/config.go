// Package config defines configuration parsing and helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// DefaultGeminiModels is the model preference order used when GEMINI_MODELS is unset.
var DefaultGeminiModels = []string{"gemini-2.0-flash", "gemini-1.5-flash", "gemini-1.5-pro", "gemini-pro"}

// Config holds all application configuration parsed from environment variables.
type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"dev"`
	Port   int    `env:"PORT" envDefault:"8080"`
	// DBURL selects the Postgres store; empty keeps everything in memory.
	DBURL string `env:"DB_URL"`
	// RedisURL enables per-credential pacing of AI calls.
	RedisURL      string   `env:"REDIS_URL"`
	KafkaBrokers  []string `env:"KAFKA_BROKERS" envSeparator:","`
	FeedbackTopic string   `env:"FEEDBACK_TOPIC" envDefault:"feedback-submitted"`

	// Gemini credentials. Both variables feed one pool; there are no built-in keys.
	GeminiAPIKey  string   `env:"GEMINI_API_KEY"`
	GeminiAPIKeys []string `env:"GEMINI_API_KEYS" envSeparator:","`
	GeminiModels  []string `env:"GEMINI_MODELS" envSeparator:","`
	GeminiBaseURL string   `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta"`

	AIAttemptTimeout    time.Duration `env:"AI_ATTEMPT_TIMEOUT" envDefault:"30s"`
	AIPromptTokenBudget int           `env:"AI_PROMPT_TOKEN_BUDGET" envDefault:"6000"`
	AIPacePerMin        int           `env:"AI_PACE_PER_MIN" envDefault:"0"`
	AIPaceMaxWait       time.Duration `env:"AI_PACE_MAX_WAIT" envDefault:"5s"`
	AIInsightsTimeout   time.Duration `env:"AI_INSIGHTS_TIMEOUT" envDefault:"120s"`

	// RegisterHashPepper salts register-number digests; empty stores numbers as entered.
	RegisterHashPepper string `env:"REGISTER_HASH_PEPPER"`
	SeedSubjectsPath   string `env:"SEED_SUBJECTS_PATH"`

	DBConnectMaxElapsed time.Duration `env:"DB_CONNECT_MAX_ELAPSED" envDefault:"30s"`

	OTLPEndpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	OTELServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"feedback-insights"`

	CORSAllowOrigins      string        `env:"CORS_ALLOW_ORIGINS" envDefault:"*"`
	RateLimitPerMin       int           `env:"RATE_LIMIT_PER_MIN" envDefault:"30"`
	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	HTTPReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	HTTPWriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"150s"`
	HTTPIdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
}

// Load parses environment variables into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w", err)
	}
	return cfg, nil
}

// IsDev reports whether the app is running in development mode.
func (c Config) IsDev() bool { return strings.ToLower(c.AppEnv) == "dev" }

// IsProd reports whether the app is running in production mode.
func (c Config) IsProd() bool { return strings.ToLower(c.AppEnv) == "prod" }

// IsTest reports whether the app is running in test mode.
func (c Config) IsTest() bool { return strings.ToLower(c.AppEnv) == "test" }

// Credentials returns the raw credential list: GEMINI_API_KEYS entries first,
// then GEMINI_API_KEY. Cleaning and de-duplication happen in the pool.
func (c Config) Credentials() []string {
	out := make([]string, 0, len(c.GeminiAPIKeys)+1)
	for _, k := range append(append([]string(nil), c.GeminiAPIKeys...), c.GeminiAPIKey) {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// Models returns the configured model preference order, or the defaults.
func (c Config) Models() []string {
	models := make([]string, 0, len(c.GeminiModels))
	for _, m := range c.GeminiModels {
		if m = strings.TrimSpace(m); m != "" {
			models = append(models, m)
		}
	}
	if len(models) == 0 {
		return append([]string(nil), DefaultGeminiModels...)
	}
	return models
}

// GetAITimeouts returns the per-attempt deadline, the pacing wait cap and the
// overall insights deadline. Test environments use much shorter values.
func (c Config) GetAITimeouts() (attempt, paceMaxWait, insights time.Duration) {
	if c.IsTest() {
		return 2 * time.Second, 100 * time.Millisecond, 10 * time.Second
	}
	return c.AIAttemptTimeout, c.AIPaceMaxWait, c.AIInsightsTimeout
}

// GetConnectBackoffConfig returns the retry budget used while dialing Postgres and Redis at startup.
func (c Config) GetConnectBackoffConfig() (maxElapsedTime, initialInterval, maxInterval time.Duration) {
	if c.IsTest() {
		return 1 * time.Second, 50 * time.Millisecond, 200 * time.Millisecond
	}
	return c.DBConnectMaxElapsed, 500 * time.Millisecond, 5 * time.Second
}

// EventsEnabled reports whether feedback events should be published.
func (c Config) EventsEnabled() bool { return len(c.KafkaBrokers) > 0 }
