package aegis

import (
	"context"

	"github.com/MrEthical07/aegis/autherr"
	internalaudit "github.com/MrEthical07/aegis/internal/audit"
	"github.com/MrEthical07/aegis/internal/flows"
	"github.com/MrEthical07/aegis/store"
)

// Records persisted by the credential store.
type (
	User    = store.User
	Account = store.Account
	Session = store.Session
)

// CredentialStore is the durable tier consumed by the engine.
// *store.BunStore implements it; any implementation must return
// store.ErrNotFound for misses and wrap store.ErrDuplicate for unique
// violations, and must write a user and its account atomically.
type CredentialStore interface {
	FindUserByEmail(ctx context.Context, email string) (*store.User, error)
	FindUserByID(ctx context.Context, id string) (*store.User, error)
	FindAccount(ctx context.Context, userID, providerID string) (*store.Account, error)
	CreateUserWithAccount(ctx context.Context, user *store.User, account *store.Account) error

	CreateSession(ctx context.Context, session *store.Session) error
	FindSessionByToken(ctx context.Context, token string) (*store.Session, error)
	DeleteSession(ctx context.Context, token, userID string) error
	DeleteUserSessions(ctx context.Context, userID string) (int64, error)
}

// SignUpRequest carries an email/password registration. IPAddress and
// UserAgent fall back to the values attached with WithClientIP and
// WithUserAgent.
type SignUpRequest struct {
	Name        string
	Email       string
	Password    string
	Image       string
	CallbackURL string
	IPAddress   string
	UserAgent   string
}

// SignInRequest carries an email/password sign-in.
type SignInRequest struct {
	Email       string
	Password    string
	CallbackURL string
	RememberMe  bool
	IPAddress   string
	UserAgent   string
}

// CreateSessionRequest describes a session minted outside the sign-in flow.
type CreateSessionRequest struct {
	IPAddress      string
	UserAgent      string
	DontRememberMe bool
}

type (
	SignUpResult = flows.SignUpResult
	SignInResult = flows.SignInResult
	// SessionData is a resolved session with its user and the tier that
	// answered ("cache" or "store").
	SessionData = flows.SessionData
)

// Result is the success-or-error value every engine operation returns.
type Result[T any] = autherr.Result[T]

// Audit types shared with the internal dispatcher.
type (
	AuditEvent     = internalaudit.Event
	AuditSink      = internalaudit.Sink
	NoOpSink       = internalaudit.NoOpSink
	ChannelSink    = internalaudit.ChannelSink
	JSONWriterSink = internalaudit.JSONWriterSink
	LogSink        = internalaudit.LogSink
)
