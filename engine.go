package aegis

import (
	"context"
	"time"

	"github.com/MrEthical07/aegis/autherr"
	"github.com/MrEthical07/aegis/cookie"
	"github.com/MrEthical07/aegis/crypto"
	internalaudit "github.com/MrEthical07/aegis/internal/audit"
	"github.com/MrEthical07/aegis/internal/flows"
	"github.com/MrEthical07/aegis/session"
	"github.com/sirupsen/logrus"
)

// Engine runs the email/password flows and the session lifecycle. It is
// immutable after Build and safe for concurrent use.
type Engine struct {
	config  Config
	flows   flows.Service
	store   CredentialStore
	cache   session.Cache
	cookies *cookie.Handler
	audit   *internalaudit.Dispatcher
	metrics *Metrics
	logger  logrus.FieldLogger
	now     func() time.Time
}

func notReady[T any]() autherr.Result[T] {
	return autherr.Internal[T]("Engine is not initialized.")
}

func (e *Engine) ready() bool {
	return e != nil && e.flows.Initialized()
}

// Close flushes pending audit events and stops the dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events dropped because the
// buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine counters. It is empty when
// metrics are disabled.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Cookies returns the cookie handler configured for this engine.
func (e *Engine) Cookies() *cookie.Handler {
	if e == nil {
		return nil
	}
	return e.cookies
}

// SignUpEmail registers a user with an email and password and, when
// AutoSignIn is on, opens a session for it.
func (e *Engine) SignUpEmail(ctx context.Context, req SignUpRequest) Result[*SignUpResult] {
	if !e.ready() {
		return notReady[*SignUpResult]()
	}
	return e.flows.SignUp(ctx, flows.SignUpInput{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		Image:       req.Image,
		CallbackURL: req.CallbackURL,
		IPAddress:   firstNonEmpty(req.IPAddress, clientIPFromContext(ctx)),
		UserAgent:   firstNonEmpty(req.UserAgent, userAgentFromContext(ctx)),
	})
}

// SignInEmail authenticates an email and password and opens a session.
// Unknown emails and wrong passwords produce the same error.
func (e *Engine) SignInEmail(ctx context.Context, req SignInRequest) Result[*SignInResult] {
	if !e.ready() {
		return notReady[*SignInResult]()
	}
	return e.flows.SignIn(ctx, flows.SignInInput{
		Email:       req.Email,
		Password:    req.Password,
		CallbackURL: req.CallbackURL,
		RememberMe:  req.RememberMe,
		IPAddress:   firstNonEmpty(req.IPAddress, clientIPFromContext(ctx)),
		UserAgent:   firstNonEmpty(req.UserAgent, userAgentFromContext(ctx)),
	})
}

// SignOut revokes the session behind token. The HTTP layer must clear the
// session cookies whatever the result.
func (e *Engine) SignOut(ctx context.Context, token string) Result[struct{}] {
	if !e.ready() {
		return notReady[struct{}]()
	}
	return e.flows.SignOut(ctx, token)
}

// CreateSession mints a session for an already authenticated user.
func (e *Engine) CreateSession(ctx context.Context, user *User, req CreateSessionRequest) Result[*Session] {
	if !e.ready() {
		return notReady[*Session]()
	}
	return e.flows.CreateSession(ctx, user, flows.CreateSessionInput{
		IPAddress:      firstNonEmpty(req.IPAddress, clientIPFromContext(ctx)),
		UserAgent:      firstNonEmpty(req.UserAgent, userAgentFromContext(ctx)),
		DontRememberMe: req.DontRememberMe,
	})
}

// RevokeSession deletes one session of userID from both tiers.
func (e *Engine) RevokeSession(ctx context.Context, userID, token string) Result[struct{}] {
	if !e.ready() {
		return notReady[struct{}]()
	}
	return e.flows.RevokeSession(ctx, userID, token)
}

// RevokeAllSessions deletes every session of userID from both tiers.
func (e *Engine) RevokeAllSessions(ctx context.Context, userID string) Result[struct{}] {
	if !e.ready() {
		return notReady[struct{}]()
	}
	return e.flows.RevokeAllSessions(ctx, userID)
}

// GetSession resolves a raw session token.
func (e *Engine) GetSession(ctx context.Context, token string) Result[*SessionData] {
	if !e.ready() {
		return notReady[*SessionData]()
	}
	return e.flows.ResolveSession(ctx, token)
}

// AuthenticateCookie verifies a signed session cookie value and resolves
// the token it carries. A bad signature reads as SESSION_NOT_FOUND.
func (e *Engine) AuthenticateCookie(ctx context.Context, signedValue string) Result[*SessionData] {
	if !e.ready() {
		return notReady[*SessionData]()
	}
	token, ok := crypto.Unsign(signedValue, e.config.Secret)
	if !ok || token == "" {
		e.metrics.Inc(MetricSessionResolveMiss)
		e.logger.Debug("aegis: session cookie signature rejected")
		return autherr.Err[*SessionData](autherr.SessionNotFound, "Session not found.")
	}
	return e.flows.ResolveSession(ctx, token)
}

// Snapshot pairs a resolved session with its user in the form the data
// cookie carries.
func Snapshot(s *Session, u *User) *session.Snapshot {
	if s == nil || u == nil {
		return nil
	}
	return &session.Snapshot{Session: *s, User: *u}
}
