package main

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	cacheadapter "github.com/ainexllc/ainexsuite-bridge/internal/adapter/cache"
	"github.com/ainexllc/ainexsuite-bridge/internal/config"
	httptransport "github.com/ainexllc/ainexsuite-bridge/internal/http"
	"github.com/ainexllc/ainexsuite-bridge/internal/http/handler"
	"github.com/ainexllc/ainexsuite-bridge/internal/identity"
	apimiddleware "github.com/ainexllc/ainexsuite-bridge/internal/middleware"
	"github.com/ainexllc/ainexsuite-bridge/internal/repository"
	"github.com/ainexllc/ainexsuite-bridge/internal/server"
	"github.com/ainexllc/ainexsuite-bridge/internal/service"
	"github.com/ainexllc/ainexsuite-bridge/internal/telemetry"
)

func main() {
	app := fx.New(
		fx.Provide(
			newConfig,
			newLogger,
			newTelemetry,
			newSnowflake,
			newPGXPool,
			newRedisClient,
			newInviteRepository,
			newSpaceRepository,
			newUserRepository,
			newRevocationStore,
			newBootstrapGuard,
			newIdentityProvider,
			newRateLimiter,
			newSessionService,
			newInviteService,
			newSpaceService,
			newBootstrapService,
			handler.NewSessionHandler,
			handler.NewInviteHandler,
			handler.NewSpaceHandler,
			handler.NewAdminHandler,
			httptransport.NewRouter,
			server.NewHTTPServer,
		),
		fx.Invoke(useTelemetry, startHTTPServer),
	)

	app.Run()
}

func newConfig() (config.Config, error) {
	return config.Load()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Environment == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func newTelemetry(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*telemetry.Provider, error) {
	provider, err := telemetry.New(context.Background(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("telemetry init: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return provider.Shutdown(stopCtx)
		},
	})

	return provider, nil
}

func newSnowflake() (*snowflake.Node, error) {
	node, err := snowflake.NewNode(1)
	return node, err
}

func newPGXPool(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
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

func newRedisClient(lc fx.Lifecycle, cfg config.Config) (redis.UniversalClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

func newInviteRepository(pool *pgxpool.Pool) repository.InviteRepository {
	return repository.NewPostgresInviteRepo(pool)
}

func newSpaceRepository(pool *pgxpool.Pool) repository.SpaceRepository {
	return repository.NewPostgresSpaceRepo(pool)
}

func newUserRepository(pool *pgxpool.Pool) repository.UserRepository {
	return repository.NewPostgresUserRepo(pool)
}

func newRevocationStore(client redis.UniversalClient) identity.RevocationStore {
	return cacheadapter.NewRedisRevocationStore(client)
}

func newBootstrapGuard(client redis.UniversalClient) service.BootstrapGuard {
	return cacheadapter.NewRedisBootstrapGuard(client, 0)
}

func newIdentityProvider(cfg config.Config, revoked identity.RevocationStore) identity.Provider {
	return identity.NewTokenService([]byte(cfg.TokenSigningKey), cfg.TokenIssuer, revoked)
}

func newRateLimiter(cfg config.Config) *apimiddleware.RateLimiter {
	return apimiddleware.NewRateLimiter(cfg.RateLimitRPM)
}

func newSessionService(provider identity.Provider, users repository.UserRepository, cfg config.Config, logger *zap.Logger) *service.SessionService {
	return service.NewSessionService(provider, users, cfg, logger)
}

func newInviteService(invites repository.InviteRepository, spaces repository.SpaceRepository, node *snowflake.Node, cfg config.Config, logger *zap.Logger) *service.InviteService {
	return service.NewInviteService(invites, spaces, node, cfg.InviteTTL, logger)
}

func newSpaceService(spaces repository.SpaceRepository, node *snowflake.Node, logger *zap.Logger) *service.SpaceService {
	return service.NewSpaceService(spaces, node, logger)
}

func newBootstrapService(users repository.UserRepository, guard service.BootstrapGuard, cfg config.Config, logger *zap.Logger) *service.BootstrapService {
	return service.NewBootstrapService(users, guard, cfg.BootstrapSecret, logger)
}

func startHTTPServer(lc fx.Lifecycle, srv *server.HTTPServer, cfg config.Config, logger *zap.Logger) {
	addr := ":" + cfg.HTTPPort
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runCtx, stop := context.WithCancel(context.Background())
			cancel = stop
			done = make(chan struct{})

			go func() {
				if err := srv.Run(runCtx, addr); err != nil {
					logger.Error("http server stopped", zap.Error(err))
				}
				close(done)
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}
			if done == nil {
				return nil
			}
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func useTelemetry(*telemetry.Provider) {}
