package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	OpenAI    OpenAIConfig    `yaml:"openai" mapstructure:"openai"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	LLM       LLMConfig       `yaml:"llm" mapstructure:"llm"`
	Extract   ExtractConfig   `yaml:"extract" mapstructure:"extract"`
	Pricing   PricingConfig   `yaml:"pricing" mapstructure:"pricing"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`

	warnings []string
}

// OpenAIConfig holds OpenAI API settings.
type OpenAIConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// LLMConfig holds settings shared by every provider call.
type LLMConfig struct {
	TimeoutSecs int `yaml:"timeout_secs" mapstructure:"timeout_secs"`

	// MaxRetries is read for compatibility with older deployments and is not
	// consumed. Analysis makes at most one provider fallback and one
	// evaluator-driven retry regardless of its value.
	MaxRetries int `yaml:"max_retries" mapstructure:"max_retries"`
}

// ExtractConfig configures PDF text extraction.
type ExtractConfig struct {
	Provider      string `yaml:"provider" mapstructure:"provider"`
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	MistralKey    string `yaml:"mistral_api_key" mapstructure:"mistral_api_key"`
	MistralModel  string `yaml:"mistral_model" mapstructure:"mistral_model"`
	MaxBytes      int64  `yaml:"max_bytes" mapstructure:"max_bytes"`
}

// PricingConfig holds per-model token pricing keyed by model ID.
type PricingConfig struct {
	Models map[string]ModelPricing `yaml:"models" mapstructure:"models"`
}

// ModelPricing holds per-model token pricing (USD per million tokens).
type ModelPricing struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// ServerConfig configures the upload server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	RatePerMinute  int      `yaml:"rate_per_minute" mapstructure:"rate_per_minute"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, config file, and environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DOCANALYZER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unprefixed names used by existing .env files.
	bindings := map[string][]string{
		"openai.key":              {"DOCANALYZER_OPENAI_KEY", "OPENAI_API_KEY"},
		"openai.model":            {"DOCANALYZER_OPENAI_MODEL", "OPENAI_MODEL", "MODEL_NAME"},
		"anthropic.key":           {"DOCANALYZER_ANTHROPIC_KEY", "ANTHROPIC_API_KEY"},
		"anthropic.model":         {"DOCANALYZER_ANTHROPIC_MODEL", "ANTHROPIC_MODEL"},
		"llm.max_retries":         {"DOCANALYZER_LLM_MAX_RETRIES", "MAX_RETRIES"},
		"extract.mistral_api_key": {"DOCANALYZER_EXTRACT_MISTRAL_API_KEY", "MISTRAL_API_KEY"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", key)
		}
	}

	// Defaults
	v.SetDefault("openai.model", "gpt-4o")
	v.SetDefault("openai.max_tokens", 4000)
	v.SetDefault("anthropic.model", "claude-3-haiku-20240307")
	v.SetDefault("anthropic.max_tokens", 1000)
	v.SetDefault("llm.timeout_secs", 60)
	v.SetDefault("extract.provider", "local")
	v.SetDefault("extract.pdftotext_path", "pdftotext")
	v.SetDefault("extract.mistral_model", "pixtral-large-latest")
	v.SetDefault("extract.max_bytes", 20<<20)
	v.SetDefault("server.port", 7860)
	v.SetDefault("server.rate_per_minute", 30)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("pricing.models", map[string]any{
		"gpt-4o":                     map[string]any{"input": 2.50, "output": 10.00},
		"gpt-4o-mini":                map[string]any{"input": 0.15, "output": 0.60},
		"claude-3-haiku-20240307":    map[string]any{"input": 0.25, "output": 1.25},
		"claude-haiku-4-5-20251001":  map[string]any{"input": 0.80, "output": 4.00},
		"claude-sonnet-4-5-20250929": map[string]any{"input": 3.00, "output": 15.00},
	})

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if v.IsSet("llm.max_retries") {
		cfg.warnings = append(cfg.warnings,
			"llm.max_retries is set but unused: analysis retries are fixed at one fallback and one evaluator retry")
	}

	return &cfg, nil
}

// Warnings returns non-fatal configuration problems found by Load.
func (c *Config) Warnings() []string {
	return c.warnings
}

// Validate checks the settings the given command needs. Supported modes are
// "analyze" and "serve".
func (c *Config) Validate(mode string) error {
	var errs []string

	if c.OpenAI.Key == "" {
		errs = append(errs, "openai.key is required")
	}
	if c.OpenAI.Model == "" {
		errs = append(errs, "openai.model is required")
	}
	if c.LLM.TimeoutSecs <= 0 {
		errs = append(errs, "llm.timeout_secs must be > 0")
	}

	switch c.Extract.Provider {
	case "local", "pdftotext", "":
	case "mistral":
		if c.Extract.MistralKey == "" {
			errs = append(errs, "extract.mistral_api_key is required for the mistral extractor")
		}
	default:
		errs = append(errs, "extract.provider must be one of local, pdftotext, mistral")
	}

	switch mode {
	case "analyze":
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Server.RatePerMinute < 0 {
			errs = append(errs, "server.rate_per_minute must be >= 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
