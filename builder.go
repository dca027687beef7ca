package aegis

import (
	"context"
	"io"
	"time"

	"github.com/MrEthical07/aegis/autherr"
	"github.com/MrEthical07/aegis/cookie"
	"github.com/MrEthical07/aegis/crypto"
	internalaudit "github.com/MrEthical07/aegis/internal/audit"
	"github.com/MrEthical07/aegis/internal/flows"
	"github.com/MrEthical07/aegis/password"
	"github.com/MrEthical07/aegis/session"
	"github.com/MrEthical07/aegis/store"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Builder assembles an Engine. Configure it during initialization, call
// Build once, and discard it.
type Builder struct {
	config Config

	store    CredentialStore
	cache    session.Cache
	redis    redis.UniversalClient
	hasher   password.Hasher
	policies []password.Policy

	logger    logrus.FieldLogger
	auditSink AuditSink
	now       func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration. The value is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore sets the durable credential store. Required.
func (b *Builder) WithStore(s CredentialStore) *Builder {
	b.store = s
	return b
}

// WithCache sets the volatile session tier directly. It takes precedence
// over WithRedis.
func (b *Builder) WithCache(c session.Cache) *Builder {
	b.cache = c
	return b
}

// WithRedis backs the volatile session tier with a go-redis client. Keys
// are namespaced with Config.Session.CacheKeyPrefix.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithPasswordHasher overrides the hasher built from Config.Password.
func (b *Builder) WithPasswordHasher(h password.Hasher) *Builder {
	b.hasher = h
	return b
}

// WithPasswordPolicy adds sign-up password rules checked after the length
// bounds.
func (b *Builder) WithPasswordPolicy(policies ...password.Policy) *Builder {
	b.policies = append(b.policies, policies...)
	return b
}

func (b *Builder) WithLogger(logger logrus.FieldLogger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithClock overrides time.Now for session expiry, tokens and audit
// timestamps.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine. A Builder can
// only be built once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.store == nil {
		return nil, ErrStoreRequired
	}

	hasher := b.hasher
	if hasher == nil {
		h, err := password.New(cfg.Password)
		if err != nil {
			return nil, err
		}
		hasher = h
	}

	cache := b.cache
	if cache == nil && b.redis != nil {
		cache = session.NewRedisCache(b.redis, cfg.Session.CacheKeyPrefix)
	}

	logger := b.logger
	if logger == nil {
		logger = discardLogger()
	}
	now := b.now
	if now == nil {
		now = time.Now
	}

	if !cfg.Session.StoreSessionInDatabase && cache == nil {
		logger.Warn("aegis: StoreSessionInDatabase is false but no cache is configured; sessions stay in the store")
	}

	engine := &Engine{
		config:  cloneConfig(cfg),
		store:   b.store,
		cache:   cache,
		metrics: NewMetrics(cfg.Metrics),
		logger:  logger,
		now:     now,
	}
	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)
	engine.cookies = cookie.New(cookie.Options{
		Secret:       cfg.Secret,
		Production:   cfg.Cookie.Production,
		Domain:       cfg.Cookie.Domain,
		CacheEnabled: cfg.Session.CookieCache.Enabled,
		Strategy:     cfg.Session.CookieCache.Strategy,
		MaxAge:       cfg.Session.CookieCache.MaxAge,
		Now:          now,
	})
	engine.flows = flows.New(engine.flowDeps(hasher, b.policies))

	b.built = true

	return engine, nil
}

// flowDeps builds the flow dependency sets once. Closures capture e, so
// they observe the fully constructed engine.
func (e *Engine) flowDeps(hasher password.Hasher, policies []password.Policy) flows.Deps {
	rt := flows.Runtime{
		Now:       e.now,
		Logger:    e.logger,
		MetricInc: func(id int) { e.metrics.Inc(MetricID(id)) },
		EmitAudit: e.emitAudit,
	}
	persist := e.config.Session.StoreSessionInDatabase

	var sendVerification func(context.Context, *store.User, string) error
	if e.config.EmailVerification.SendVerificationEmail != nil {
		sendVerification = e.sendVerificationEmail
	}

	var deps flows.Deps
	deps.Session = flows.SessionDeps{
		Runtime:            rt,
		ExpiresIn:          e.config.Session.ExpiresIn,
		PersistSessions:    persist,
		Cache:              e.cache,
		NewToken:           crypto.NewSessionToken,
		NewID:              newID,
		SaveSession:        e.store.CreateSession,
		DeleteSession:      e.store.DeleteSession,
		DeleteUserSessions: e.store.DeleteUserSessions,
		Metrics: flows.SessionMetrics{
			SessionCreated:         int(MetricSessionCreated),
			SessionCreateFailed:    int(MetricSessionCreateFailed),
			SessionRevoked:         int(MetricSessionRevoked),
			SessionRevokedAll:      int(MetricSessionRevokedAll),
			RegistryRetryExhausted: int(MetricRegistryRetryExhausted),
		},
		Events: flows.SessionEvents{
			SessionCreated:    AuditSessionCreated,
			SessionRevoked:    AuditSessionRevoked,
			SessionRevokedAll: AuditSessionRevokedAll,
		},
	}
	deps.Resolve = flows.ResolveDeps{
		Runtime:            rt,
		PersistSessions:    persist,
		Cache:              e.cache,
		FindSessionByToken: e.store.FindSessionByToken,
		FindUserByID:       e.store.FindUserByID,
		ObserveLatency:     func(id int, d time.Duration) { e.metrics.Observe(MetricID(id), d) },
		Metrics: flows.ResolveMetrics{
			ResolvedFromCache: int(MetricSessionResolvedFromCache),
			ResolvedFromStore: int(MetricSessionResolvedFromStore),
			ResolveMiss:       int(MetricSessionResolveMiss),
			ResolveLatency:    int(MetricResolveLatency),
		},
	}

	sessionDeps := deps.Session
	createSession := func(ctx context.Context, u *store.User, in flows.CreateSessionInput) autherr.Result[*store.Session] {
		return flows.RunCreateSession(ctx, u, in, sessionDeps)
	}

	deps.SignUp = flows.SignUpDeps{
		Runtime:               rt,
		Enabled:               e.config.EmailPassword.Enabled,
		DisableSignUp:         e.config.EmailPassword.DisableSignUp,
		MinPasswordLength:     e.config.EmailPassword.MinPasswordLength,
		MaxPasswordLength:     e.config.EmailPassword.MaxPasswordLength,
		AutoSignIn:            e.config.EmailPassword.AutoSignIn,
		SendOnSignUp:          e.config.EmailVerification.SendOnSignUp,
		Password:              password.WithPolicy(hasher, policies...),
		NewID:                 newID,
		FindUserByEmail:       e.store.FindUserByEmail,
		CreateUserWithAccount: e.store.CreateUserWithAccount,
		CreateSession:         createSession,
		SendVerification:      sendVerification,
		Metrics: flows.SignUpMetrics{
			SignUpSuccess:   int(MetricSignUpSuccess),
			SignUpFailure:   int(MetricSignUpFailure),
			SignUpDuplicate: int(MetricSignUpDuplicate),
		},
		Events: flows.SignUpEvents{SignUp: AuditSignUp},
	}
	deps.SignIn = flows.SignInDeps{
		Runtime:                  rt,
		Enabled:                  e.config.EmailPassword.Enabled,
		RequireEmailVerification: e.config.EmailPassword.RequireEmailVerification,
		SendOnSignIn:             e.config.EmailVerification.SendOnSignIn,
		Password:                 hasher,
		FindUserByEmail:          e.store.FindUserByEmail,
		FindAccount:              e.store.FindAccount,
		CreateSession:            createSession,
		SendVerification:         sendVerification,
		Metrics: flows.SignInMetrics{
			SignInSuccess: int(MetricSignInSuccess),
			SignInFailure: int(MetricSignInFailure),
		},
		Events: flows.SignInEvents{
			SignInSuccess: AuditSignInSuccess,
			SignInFailure: AuditSignInFailure,
		},
	}
	deps.SignOut = flows.SignOutDeps{
		Runtime: rt,
		Lookup:  deps.Resolve,
		RevokeSession: func(ctx context.Context, userID, token string) autherr.Result[struct{}] {
			return flows.RunRevokeSession(ctx, userID, token, sessionDeps)
		},
		Metrics: flows.SignOutMetrics{SignOut: int(MetricSignOut)},
		Events:  flows.SignOutEvents{SignOut: AuditSignOut},
	}
	return deps
}

// newID returns a time-ordered UUIDv7 string.
func newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func discardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
