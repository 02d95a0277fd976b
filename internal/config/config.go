package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/aidiscovery-cli/internal/cost"
	"github.com/sells-group/aidiscovery-cli/internal/scoring"
)

// EnvPrefix prefixes every environment override, e.g. AIDISCOVERY_LOG_LEVEL.
const EnvPrefix = "AIDISCOVERY"

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Google     GoogleConfig     `yaml:"google" mapstructure:"google"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Evolution  EvolutionConfig  `yaml:"evolution" mapstructure:"evolution"`
	Redis      RedisConfig      `yaml:"redis" mapstructure:"redis"`
	Audit      AuditConfig      `yaml:"audit" mapstructure:"audit"`
	Scoring    scoring.Weights  `yaml:"scoring" mapstructure:"scoring"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Resilience ResilienceConfig `yaml:"resilience" mapstructure:"resilience"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Pricing    cost.Rates       `yaml:"pricing" mapstructure:"pricing"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// GoogleConfig holds Google Places API settings.
type GoogleConfig struct {
	PlacesAPIKey string `yaml:"places_api_key" mapstructure:"places_api_key"`
	BaseURL      string `yaml:"base_url" mapstructure:"base_url"`
	LanguageCode string `yaml:"language_code" mapstructure:"language_code"`
	RegionCode   string `yaml:"region_code" mapstructure:"region_code"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// EvolutionConfig holds WhatsApp gateway settings.
type EvolutionConfig struct {
	BaseURL        string `yaml:"base_url" mapstructure:"base_url"`
	APIKey         string `yaml:"api_key" mapstructure:"api_key"`
	Instance       string `yaml:"instance" mapstructure:"instance"`
	OwnerPhone     string `yaml:"owner_phone" mapstructure:"owner_phone"`
	RetryDelaySecs int    `yaml:"retry_delay_secs" mapstructure:"retry_delay_secs"`
}

// Enabled reports whether enough settings are present to send messages.
func (e EvolutionConfig) Enabled() bool {
	return e.BaseURL != "" && e.APIKey != "" && e.Instance != ""
}

// RedisConfig configures the optional audit cache.
type RedisConfig struct {
	URL string `yaml:"url" mapstructure:"url"`
}

// AuditConfig configures the audit pipeline.
type AuditConfig struct {
	CacheHours        int `yaml:"cache_hours" mapstructure:"cache_hours"`
	CompetitorRadiusM int `yaml:"competitor_radius_m" mapstructure:"competitor_radius_m"`
	CompetitorLimit   int `yaml:"competitor_limit" mapstructure:"competitor_limit"`
	MaxReviews        int `yaml:"max_reviews" mapstructure:"max_reviews"`
	Concurrency       int `yaml:"concurrency" mapstructure:"concurrency"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port               int      `yaml:"port" mapstructure:"port"`
	CORSOrigins        []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	RateLimitPerMinute int      `yaml:"rate_limit_per_minute" mapstructure:"rate_limit_per_minute"`
	JWTSecret          string   `yaml:"jwt_secret" mapstructure:"jwt_secret"`
	JWTIssuer          string   `yaml:"jwt_issuer" mapstructure:"jwt_issuer"`
}

// ResilienceConfig configures retries and circuit breakers for external calls.
type ResilienceConfig struct {
	Retry   RetryConfig   `yaml:"retry" mapstructure:"retry"`
	Circuit CircuitConfig `yaml:"circuit" mapstructure:"circuit"`
}

// RetryConfig is the backoff policy for upstream calls, in milliseconds.
type RetryConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
}

// CircuitConfig sets when an upstream circuit opens and how long it rests.
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// MonitoringConfig configures audit health alerting.
type MonitoringConfig struct {
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	CostThresholdUSD     float64 `yaml:"cost_threshold_usd" mapstructure:"cost_threshold_usd"`
	LookbackHours        int     `yaml:"lookback_hours" mapstructure:"lookback_hours"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, file and environment.
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

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

	if len(cfg.Pricing.Anthropic) == 0 {
		cfg.Pricing.Anthropic = cost.DefaultRates().Anthropic
	}

	return &cfg, nil
}

// loadDotEnv loads path into the process environment when it exists.
// Variables already set in the environment are left untouched.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return eris.Wrapf(err, "config: load %s", path)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	w := scoring.DefaultWeights()
	places := cost.DefaultRates().Places

	// Secrets default to empty so AutomaticEnv can bind them.
	for _, key := range []string{
		"store.database_url",
		"google.places_api_key",
		"anthropic.key",
		"evolution.base_url",
		"evolution.api_key",
		"evolution.instance",
		"evolution.owner_phone",
		"redis.url",
		"server.jwt_secret",
		"server.jwt_issuer",
		"monitoring.webhook_url",
	} {
		v.SetDefault(key, "")
	}

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "aidiscovery.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("google.base_url", "https://places.googleapis.com/v1")
	v.SetDefault("google.language_code", "pt-BR")
	v.SetDefault("google.region_code", "BR")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("evolution.retry_delay_secs", 3)
	v.SetDefault("audit.cache_hours", 24)
	v.SetDefault("audit.competitor_radius_m", 5000)
	v.SetDefault("audit.competitor_limit", 5)
	v.SetDefault("audit.max_reviews", 100)
	v.SetDefault("audit.concurrency", 5)
	v.SetDefault("scoring.ai_confidence", w.AIConfidence)
	v.SetDefault("scoring.completeness", w.Completeness)
	v.SetDefault("scoring.sentiment", w.Sentiment)
	v.SetDefault("scoring.visual", w.Visual)
	v.SetDefault("scoring.competitive", w.Competitive)
	v.SetDefault("scoring.competitive_default", w.CompetitiveDefault)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.rate_limit_per_minute", 10)
	v.SetDefault("resilience.retry.max_attempts", 3)
	v.SetDefault("resilience.retry.initial_backoff_ms", 500)
	v.SetDefault("resilience.retry.max_backoff_ms", 10000)
	v.SetDefault("resilience.retry.multiplier", 2.0)
	v.SetDefault("resilience.retry.jitter_fraction", 0.25)
	v.SetDefault("resilience.circuit.failure_threshold", 5)
	v.SetDefault("resilience.circuit.reset_timeout_secs", 30)
	v.SetDefault("monitoring.failure_rate_threshold", 0.2)
	v.SetDefault("monitoring.cost_threshold_usd", 10.0)
	v.SetDefault("monitoring.lookback_hours", 24)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("pricing.places.text_search", places.TextSearch)
	v.SetDefault("pricing.places.nearby_search", places.NearbySearch)
	v.SetDefault("pricing.places.details", places.Details)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks the settings a command mode depends on and reports every
// problem found. Modes: audit, score, store, serve, monitor.
func (c *Config) Validate(mode string) error {
	var errs []string

	if err := c.Scoring.Validate(); err != nil {
		errs = append(errs, err.Error())
	}

	needStore := func() {
		switch c.Store.Driver {
		case "postgres":
			if c.Store.DatabaseURL == "" {
				errs = append(errs, "store.database_url is required for the postgres driver")
			}
		case "sqlite":
			if c.Store.SQLitePath == "" {
				errs = append(errs, "store.sqlite_path is required for the sqlite driver")
			}
		default:
			errs = append(errs, fmt.Sprintf("store.driver must be sqlite or postgres, got %q", c.Store.Driver))
		}
	}
	needPipeline := func() {
		needStore()
		if c.Google.PlacesAPIKey == "" {
			errs = append(errs, "google.places_api_key is required")
		}
		if c.Anthropic.Key == "" {
			errs = append(errs, "anthropic.key is required")
		}
		if c.Audit.Concurrency < 1 || c.Audit.Concurrency > 50 {
			errs = append(errs, "audit.concurrency must be between 1 and 50")
		}
		if c.Audit.CompetitorLimit < 0 {
			errs = append(errs, "audit.competitor_limit must be >= 0")
		}
	}

	switch mode {
	case "score":
	case "store":
		needStore()
	case "audit":
		needPipeline()
	case "serve":
		needPipeline()
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Server.RateLimitPerMinute <= 0 {
			errs = append(errs, "server.rate_limit_per_minute must be > 0")
		}
	case "monitor":
		needStore()
		if c.Monitoring.FailureRateThreshold < 0 || c.Monitoring.FailureRateThreshold > 1 {
			errs = append(errs, "monitoring.failure_rate_threshold must be between 0 and 1")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
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
