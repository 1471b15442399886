package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MrEthical07/forumguard"
	"github.com/MrEthical07/forumguard/internal/logger"
	"github.com/MrEthical07/forumguard/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "forumguard",
		Short: "Forum authentication and request defense service",
		Long: `forumguard issues access and refresh tokens for the forum and guards
its write endpoints with rate limiting and CSRF checks.

Configuration is read from the environment, with an optional .env file:
  SECRET_KEY, DATABASE_URL, REDIS_ADDR, TOKEN_STORE, TRUSTED_PROXIES,
  HTTPS_ONLY, LOG_LEVEL, LOG_FORMAT, HTTP_ADDR and friends.`,
		SilenceUsage: true,
	}
	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newSweepCmd(),
		newUserCmd(),
		newLoadtestCmd(),
	)
	return root
}

// loadConfig reads the environment and installs the default logger.
func loadConfig() (forumguard.Config, *slog.Logger, error) {
	cfg, err := forumguard.LoadConfigFromEnv()
	if err != nil {
		return forumguard.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	return cfg, log, nil
}

func openDB(ctx context.Context, cfg forumguard.DatabaseConfig) (*sql.DB, error) {
	if cfg.URL == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}
	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MinConnections)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

func openRedis(ctx context.Context, cfg forumguard.RedisConfig) (redis.UniversalClient, error) {
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{cfg.Addr},
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// backends holds the connections an engine was built over.
type backends struct {
	db    *sql.DB
	redis redis.UniversalClient
}

func (b *backends) Close() {
	if b.redis != nil {
		_ = b.redis.Close()
	}
	if b.db != nil {
		_ = b.db.Close()
	}
}

// buildEngine connects to Postgres (always, for users) and Redis (when it
// is the token store) and builds the engine over them.
func buildEngine(ctx context.Context, cfg forumguard.Config, log *slog.Logger) (*forumguard.Engine, *backends, error) {
	b := &backends{}
	db, err := openDB(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	b.db = db

	builder := forumguard.New().
		WithConfig(cfg).
		WithDB(db).
		WithUserProvider(users.NewPostgresProvider(db, cfg.Store.OpTimeout)).
		WithLogger(log)

	if cfg.Store.Backend == "redis" {
		rdb, err := openRedis(ctx, cfg.Redis)
		if err != nil {
			b.Close()
			return nil, nil, err
		}
		b.redis = rdb
		builder = builder.WithRedis(rdb)
	}

	engine, err := builder.Build()
	if err != nil {
		b.Close()
		return nil, nil, fmt.Errorf("build engine: %w", err)
	}
	return engine, b, nil
}
