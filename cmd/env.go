package main

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/aidiscovery-cli/internal/audit"
	"github.com/sells-group/aidiscovery-cli/internal/config"
	"github.com/sells-group/aidiscovery-cli/internal/resilience"
	"github.com/sells-group/aidiscovery-cli/internal/store"
	anthropicpkg "github.com/sells-group/aidiscovery-cli/pkg/anthropic"
	"github.com/sells-group/aidiscovery-cli/pkg/evolution"
	"github.com/sells-group/aidiscovery-cli/pkg/google"
)

// auditEnv holds the store, clients and service needed by the audit, batch
// and serve commands.
type auditEnv struct {
	Store    store.Store
	Service  *audit.Service
	Registry *prometheus.Registry
	Redis    *redis.Client // may be nil
}

// Close releases resources held by the environment.
func (e *auditEnv) Close() {
	if e.Redis != nil {
		_ = e.Redis.Close()
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initStore opens the configured store backend.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		st, err := store.NewSQLite(cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		return st, nil
	case "postgres":
		st, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// openStore opens the store and applies its schema. Callers close it.
func openStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initAudit validates the config for mode, opens the store and wires every
// client into an audit.Service. Callers should defer env.Close().
func initAudit(ctx context.Context, mode string) (*auditEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}
	env := &auditEnv{Store: st, Registry: prometheus.NewRegistry()}
	env.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	deps := audit.Deps{
		Places: google.NewClient(cfg.Google.PlacesAPIKey,
			google.WithBaseURL(cfg.Google.BaseURL),
			google.WithLocale(cfg.Google.LanguageCode, cfg.Google.RegionCode),
		),
		Claude:  anthropicpkg.NewClient(cfg.Anthropic.Key),
		Store:   st,
		Metrics: audit.NewMetrics(env.Registry),
	}

	if cfg.Evolution.Enabled() {
		deps.WhatsApp = evolution.NewClient(cfg.Evolution.BaseURL, cfg.Evolution.APIKey, cfg.Evolution.Instance)
		zap.L().Info("whatsapp delivery enabled", zap.String("instance", cfg.Evolution.Instance))
	} else {
		zap.L().Debug("evolution not configured, whatsapp delivery disabled")
	}

	if cfg.Redis.URL != "" {
		rdb, err := audit.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			zap.L().Warn("redis unavailable, audit cache falls back to the store", zap.Error(err))
		} else {
			env.Redis = rdb
			deps.Cache = audit.NewRedisCache(rdb)
		}
	}

	env.Service = audit.New(deps, auditOptions(cfg))
	return env, nil
}

// auditOptions converts config units into the pipeline's options.
func auditOptions(c *config.Config) audit.Options {
	r := c.Resilience
	return audit.Options{
		Model:              c.Anthropic.Model,
		MaxTokens:          c.Anthropic.MaxTokens,
		Weights:            c.Scoring,
		Rates:              c.Pricing,
		CacheTTL:           time.Duration(c.Audit.CacheHours) * time.Hour,
		CompetitorRadiusM:  c.Audit.CompetitorRadiusM,
		CompetitorLimit:    c.Audit.CompetitorLimit,
		MaxReviews:         c.Audit.MaxReviews,
		OwnerPhone:         c.Evolution.OwnerPhone,
		WhatsAppRetryDelay: time.Duration(c.Evolution.RetryDelaySecs) * time.Second,
		Retry: resilience.RetryConfig{
			MaxAttempts:    r.Retry.MaxAttempts,
			InitialBackoff: time.Duration(r.Retry.InitialBackoffMs) * time.Millisecond,
			MaxBackoff:     time.Duration(r.Retry.MaxBackoffMs) * time.Millisecond,
			Multiplier:     r.Retry.Multiplier,
			JitterFraction: r.Retry.JitterFraction,
		},
		Circuit: resilience.CircuitBreakerConfig{
			FailureThreshold: r.Circuit.FailureThreshold,
			ResetTimeout:     time.Duration(r.Circuit.ResetTimeoutSecs) * time.Second,
		},
	}
}
