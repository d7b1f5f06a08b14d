// Package config reads the process configuration once at startup.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
)

// Config is immutable after Load and shared read-only by every request.
type Config struct {
	Provider Provider

	OpenAIAPIKey      string
	OpenAIAPIKeyParam string // SSM parameter holding the key, read on first use
	OpenAIModel       string
	OpenAIBaseURL     string

	GeminiAPIKey string
	GeminiModel  string

	MaxOutputTokens int
	Temperature     float64
	MaxRetries      int
	RetryBaseDelay  time.Duration
	HTTPTimeout     time.Duration

	StateTable          string
	PromptOverridesPath string
	LogLevel            string
	IdempotencyTTL      time.Duration
}

// NeedsKeyFromParamStore reports whether the OpenAI key must be fetched from
// SSM on first use.
func (c Config) NeedsKeyFromParamStore() bool {
	return c.Provider == ProviderOpenAI && c.OpenAIAPIKey == "" && c.OpenAIAPIKeyParam != ""
}

// Load reads an optional .env file and then the environment.
func Load() (Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()
	return LoadFrom(os.Getenv)
}

// LoadFrom builds a Config from getenv.
func LoadFrom(getenv func(string) string) (Config, error) {
	e := env{getenv: getenv}
	cfg := Config{
		Provider: Provider(strings.ToLower(e.str("LLM_PROVIDER", string(ProviderOpenAI)))),

		OpenAIAPIKey:      e.str("OPENAI_API_KEY", ""),
		OpenAIAPIKeyParam: e.str("OPENAI_API_KEY_PARAM", ""),
		OpenAIModel:       e.str("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:     e.str("OPENAI_BASE_URL", "https://api.openai.com/v1"),

		GeminiAPIKey: e.str("GEMINI_API_KEY", ""),
		GeminiModel:  e.str("GEMINI_MODEL", "gemini-2.5-flash"),

		MaxOutputTokens: e.integer("MAX_OUTPUT_TOKENS", 250),
		Temperature:     e.float("TEMPERATURE", 0.7),
		MaxRetries:      e.integer("LLM_MAX_RETRIES", 3),
		RetryBaseDelay:  e.duration("LLM_RETRY_BASE_DELAY", 500*time.Millisecond),
		HTTPTimeout:     e.duration("LLM_HTTP_TIMEOUT", 20*time.Second),

		StateTable:          e.str("STATE_TABLE", ""),
		PromptOverridesPath: e.str("PROMPT_OVERRIDES_PATH", ""),
		LogLevel:            e.str("LOG_LEVEL", "info"),
		IdempotencyTTL:      e.duration("IDEMPOTENCY_TTL", 10*time.Minute),
	}
	if err := e.err(); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Provider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" && c.OpenAIAPIKeyParam == "" {
			return errors.New("config: OPENAI_API_KEY or OPENAI_API_KEY_PARAM must be set")
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return errors.New("config: GEMINI_API_KEY must be set")
		}
	default:
		return fmt.Errorf("config: unsupported LLM_PROVIDER %q", c.Provider)
	}
	if c.MaxRetries < 0 {
		return errors.New("config: LLM_MAX_RETRIES must not be negative")
	}
	if c.MaxOutputTokens <= 0 {
		return errors.New("config: MAX_OUTPUT_TOKENS must be positive")
	}
	if c.RetryBaseDelay <= 0 || c.HTTPTimeout <= 0 {
		return errors.New("config: durations must be positive")
	}
	return nil
}

// env collects parse errors so Load reports the first bad variable.
type env struct {
	getenv func(string) string
	errs   []error
}

func (e *env) str(key, def string) string {
	if v := strings.TrimSpace(e.getenv(key)); v != "" {
		return v
	}
	return def
}

func (e *env) integer(key string, def int) int {
	v := strings.TrimSpace(e.getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("config: %s: %w", key, err))
		return def
	}
	return n
}

func (e *env) float(key string, def float64) float64 {
	v := strings.TrimSpace(e.getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("config: %s: %w", key, err))
		return def
	}
	return f
}

func (e *env) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(e.getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("config: %s: %w", key, err))
		return def
	}
	return d
}

func (e *env) err() error {
	if len(e.errs) == 0 {
		return nil
	}
	return e.errs[0]
}
