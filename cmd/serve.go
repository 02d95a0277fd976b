package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/aidiscovery-cli/internal/api"
	"github.com/sells-group/aidiscovery-cli/internal/monitoring"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the audit HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initAudit(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		srv := api.New(ctx, env.Service, env.Store, newLimiter(env), env.Registry, api.Config{
			CORSOrigins: cfg.Server.CORSOrigins,
			JWTSecret:   cfg.Server.JWTSecret,
			JWTIssuer:   cfg.Server.JWTIssuer,
		})
		if cfg.Server.JWTSecret == "" {
			zap.L().Warn("server.jwt_secret not set, audit routes are unauthenticated")
		}

		if cfg.Monitoring.WebhookURL != "" {
			checker := monitoring.NewChecker(
				monitoring.NewCollector(env.Store),
				monitoring.NewAlerter(cfg.Monitoring),
				cfg.Monitoring,
			)
			go checker.Run(ctx)
		}

		err = api.ListenAndServe(ctx, srv.Handler(), resolvePort(servePort, cfg.Server.Port))
		srv.Wait()
		return err
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "HTTP port (default server.port)")
	rootCmd.AddCommand(serveCmd)
}

// resolvePort prefers the --port flag over the configured port.
func resolvePort(flagPort, cfgPort int) int {
	if flagPort > 0 {
		return flagPort
	}
	return cfgPort
}

// newLimiter shares rate-limit counters through redis when it is available.
func newLimiter(env *auditEnv) api.Limiter {
	if env.Redis != nil {
		return api.NewRedisLimiter(env.Redis, cfg.Server.RateLimitPerMinute)
	}
	return api.NewMemoryLimiter(cfg.Server.RateLimitPerMinute)
}
