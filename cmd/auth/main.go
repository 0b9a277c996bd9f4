package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/smallbiznis/portal-auth/internal/adapter/cache"
	"github.com/smallbiznis/portal-auth/internal/adapter/provider"
	"github.com/smallbiznis/portal-auth/internal/audit"
	"github.com/smallbiznis/portal-auth/internal/config"
	"github.com/smallbiznis/portal-auth/internal/cors"
	"github.com/smallbiznis/portal-auth/internal/http/handler"
	"github.com/smallbiznis/portal-auth/internal/jwt"
	"github.com/smallbiznis/portal-auth/internal/mail"
	"github.com/smallbiznis/portal-auth/internal/repository"
	"github.com/smallbiznis/portal-auth/internal/server"
	"github.com/smallbiznis/portal-auth/internal/service"
	"github.com/smallbiznis/portal-auth/internal/telemetry"
	"github.com/smallbiznis/portal-auth/internal/webhook"

	internalhttp "github.com/smallbiznis/portal-auth/internal/http"
)

func main() {
	fx.New(
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger}
		}),
		fx.Provide(
			config.Load,
			newLogger,
			newSnowflakeNode,
			newPgxPool,
			newEphemeralStore,
			newProviderRegistry,
			newJWTGenerator,
			newWebhookDispatcher,
			newMailSender,

			fx.Annotate(repository.NewPostgresProjectRepo, fx.As(new(repository.ProjectRepository))),
			fx.Annotate(repository.NewPostgresUserRepo, fx.As(new(repository.UserRepository))),
			fx.Annotate(repository.NewPostgresSessionRepo, fx.As(new(repository.SessionRepository))),
			fx.Annotate(repository.NewPostgresAuditRepo, fx.As(new(repository.AuditRepository))),
			fx.Annotate(repository.NewPostgresNotificationRepo, fx.As(new(repository.NotificationRepository))),

			cors.NewResolver,
			audit.NewTrail,
			service.NewSessionService,
			service.NewAuthorizationService,
			handler.NewAuthHandler,
			internalhttp.NewRouter,
			server.New,
		),
		fx.Invoke(registerTelemetry, registerServer),
	).Run()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	var logger *zap.Logger
	var err error
	if cfg.Environment == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func newSnowflakeNode() (*snowflake.Node, error) {
	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, fmt.Errorf("snowflake node: %w", err)
	}
	return node, nil
}

func newPgxPool(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			pool.Close()
			return nil
		},
	})
	return pool, nil
}

// newEphemeralStore selects Redis unless CACHE_ADDR was set to an empty
// string. The in-process store cannot back the single-use claims across
// multiple instances, so opting into it is loud.
func newEphemeralStore(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (repository.EphemeralStore, error) {
	if cfg.CacheAddr == "" {
		logger.Warn("CACHE_ADDR is empty: using the in-process ephemeral store; single-use guarantees do not span instances")
		return cache.NewMemoryStore(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.CacheAddr,
		Password: cfg.CachePassword,
		DB:       cfg.CacheDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping cache: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return cache.NewRedisStore(client), nil
}

func newProviderRegistry(cfg config.Config, logger *zap.Logger) *provider.Registry {
	registry := provider.NewRegistry()
	client := &http.Client{Timeout: 10 * time.Second}
	for _, pc := range cfg.Providers {
		registry.Register(pc.Name, provider.NewHTTPAdapter(pc, client))
		logger.Info("provider registered", zap.String("provider", pc.Name))
	}
	return registry
}

func newJWTGenerator(cfg config.Config) *jwt.Generator {
	return jwt.NewGenerator(cfg.AccessTokenTTL)
}

func newWebhookDispatcher(lc fx.Lifecycle, logger *zap.Logger) *webhook.Dispatcher {
	dispatcher := webhook.NewDispatcher(nil, logger)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			dispatcher.Wait()
			return nil
		},
	})
	return dispatcher
}

func newMailSender(logger *zap.Logger) mail.Sender {
	return mail.NewLogSender(logger)
}

func registerTelemetry(lc fx.Lifecycle, cfg config.Config) error {
	shutdown, err := telemetry.Setup(context.Background(), cfg)
	if err != nil {
		return err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return shutdown(ctx)
		},
	})
	return nil
}

func registerServer(lc fx.Lifecycle, srv *server.HTTPServer, trail *audit.Trail) {
	serverCtx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				done <- srv.Start(serverCtx)
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			trail.Wait()
			select {
			case err := <-done:
				return err
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}
