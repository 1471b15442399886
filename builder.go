package forumguard

import (
	"database/sql"
	"errors"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/forumguard/internal/audit"
	"github.com/MrEthical07/forumguard/jwt"
	"github.com/MrEthical07/forumguard/password"
	"github.com/MrEthical07/forumguard/refresh"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. It is single-use.
type Builder struct {
	config Config

	store refresh.Store
	redis redis.UniversalClient
	db    *sql.DB

	userProvider UserProvider
	verifier     PasswordVerifier
	auditSink    AuditSink
	logger       *slog.Logger
	now          func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithTokenStore sets the refresh store directly, bypassing Store.Backend.
func (b *Builder) WithTokenStore(store refresh.Store) *Builder {
	b.store = store
	return b
}

// WithRedis supplies the client for the "redis" store backend.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithDB supplies the pool for the "postgres" store backend.
func (b *Builder) WithDB(db *sql.DB) *Builder {
	b.db = db
	return b
}

func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

// WithPasswordVerifier overrides the default Argon2id/bcrypt verifier.
func (b *Builder) WithPasswordVerifier(v PasswordVerifier) *Builder {
	b.verifier = v
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithClock overrides the clock shared by token issuance and the store.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.userProvider == nil {
		return nil, errors.New("user provider required")
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	// -------- TOKEN ISSUER --------
	jwtMgr, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cfg.JWT.PrivateKey,
		PublicKey:     cfg.JWT.PublicKey,
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
		KeyID:         cfg.JWT.KeyID,
		Now:           now,
	})
	if err != nil {
		return nil, err
	}

	// -------- TOKEN STORE --------
	store := b.store
	if store == nil {
		opts := refresh.Options{OpTimeout: cfg.Store.OpTimeout, Now: now}
		switch cfg.Store.Backend {
		case "redis":
			if b.redis == nil {
				return nil, errors.New("redis store backend requires a redis client")
			}
			store = refresh.NewRedisStore(b.redis, cfg.Store.RedisPrefix, opts)
		default:
			if b.db == nil {
				return nil, errors.New("postgres store backend requires a database handle")
			}
			store = refresh.NewPostgresStore(b.db, opts)
		}
	}

	// -------- PASSWORD VERIFIER --------
	verifier := b.verifier
	if verifier == nil {
		argon, err := password.NewArgon2(password.Config{
			Memory:      cfg.Password.Memory,
			Time:        cfg.Password.Time,
			Parallelism: cfg.Password.Parallelism,
			SaltLength:  cfg.Password.SaltLength,
			KeyLength:   cfg.Password.KeyLength,
		})
		if err != nil {
			return nil, err
		}
		v, err := password.NewVerifier(argon)
		if err != nil {
			return nil, err
		}
		verifier = v
	}

	sink := b.auditSink
	if sink == nil {
		sink = internalaudit.NewSlogSink(logger)
	}

	e := &Engine{
		config:   cfg,
		jwt:      jwtMgr,
		store:    store,
		users:    b.userProvider,
		verifier: verifier,
		metrics:  NewMetrics(cfg.Metrics),
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, sink),
		logger: logger.With(slog.String("component", "auth")),
		now:    now,
	}
	e.initFlowDeps()

	b.built = true
	return e, nil
}
