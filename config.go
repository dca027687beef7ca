package aegis

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/aegis/cookie"
	"github.com/MrEthical07/aegis/password"
	"github.com/MrEthical07/aegis/store"
)

// MinSecretLength is the minimum accepted length of Config.Secret in bytes.
const MinSecretLength = 32

// Config is the immutable engine configuration. Build it with
// DefaultConfig, adjust fields, and pass it to Builder.WithConfig. The
// engine keeps a private copy; later edits to the caller's value have no
// effect.
type Config struct {
	// Secret keys every HMAC signature and AEAD seal. At least 32 bytes.
	Secret string

	Session           SessionConfig
	EmailPassword     EmailPasswordConfig
	EmailVerification EmailVerificationConfig
	Cookie            CookieConfig
	Password          PasswordConfig
	Audit             AuditConfig
	Metrics           MetricsConfig
}

/*
====================================
SESSION CONFIG
====================================
*/

type SessionConfig struct {
	// ExpiresIn is the lifetime of a remembered session. Sessions created
	// without "remember me" always last one day.
	ExpiresIn time.Duration
	// StoreSessionInDatabase keeps the durable store authoritative for
	// sessions. When false and a cache is configured, sessions live only in
	// the cache.
	StoreSessionInDatabase bool
	// CacheKeyPrefix namespaces every cache key written through WithRedis.
	CacheKeyPrefix string
	CookieCache    CookieCacheConfig
}

// CookieCacheConfig controls the signed session_data cookie.
type CookieCacheConfig struct {
	Enabled  bool
	Strategy cookie.Strategy
	MaxAge   time.Duration
}

/*
====================================
EMAIL + PASSWORD CONFIG
====================================
*/

type EmailPasswordConfig struct {
	Enabled           bool
	DisableSignUp     bool
	MinPasswordLength int
	MaxPasswordLength int
	// AutoSignIn creates a session right after sign-up.
	AutoSignIn bool
	// RequireEmailVerification blocks sign-in for unverified users.
	RequireEmailVerification bool
}

/*
====================================
EMAIL VERIFICATION CONFIG
====================================
*/

// VerificationEmail is handed to the SendVerificationEmail hook.
type VerificationEmail struct {
	User        *store.User
	Token       string
	URL         string
	CallbackURL string
}

type EmailVerificationConfig struct {
	SendOnSignUp bool
	// SendOnSignIn controls whether a blocked sign-in triggers a new
	// email. Nil follows EmailPassword.RequireEmailVerification.
	SendOnSignIn *bool
	// ExpiresIn bounds the validity of verification tokens.
	ExpiresIn time.Duration
	// BaseURL prefixes the verification link, e.g. "https://app.example.com/api/auth".
	BaseURL               string
	SendVerificationEmail func(ctx context.Context, email VerificationEmail) error
}

/*
====================================
COOKIE CONFIG
====================================
*/

type CookieConfig struct {
	// Production switches to __Host- cookie names and Secure cookies.
	Production bool
	Domain     string
}

/*
====================================
PASSWORD, AUDIT, METRICS
====================================
*/

type PasswordConfig = password.Config

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the baseline configuration. Secret is left empty
// and must be set before Build.
func DefaultConfig() Config {
	return Config{
		Session: SessionConfig{
			ExpiresIn:              7 * 24 * time.Hour,
			StoreSessionInDatabase: true,
			CookieCache: CookieCacheConfig{
				Enabled:  false,
				Strategy: cookie.Compact,
				MaxAge:   cookie.DefaultMaxAge,
			},
		},
		EmailPassword: EmailPasswordConfig{
			Enabled:           true,
			MinPasswordLength: 8,
			MaxPasswordLength: 128,
			AutoSignIn:        true,
		},
		EmailVerification: EmailVerificationConfig{
			ExpiresIn: 15 * time.Minute,
		},
		Password: password.DefaultConfig(),
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if cfg.EmailVerification.SendOnSignIn != nil {
		v := *cfg.EmailVerification.SendOnSignIn
		out.EmailVerification.SendOnSignIn = &v
	}
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if len(c.Secret) < MinSecretLength {
		return errors.New("Secret must be at least 32 bytes")
	}

	// Session
	if c.Session.ExpiresIn <= 0 {
		return errors.New("Session ExpiresIn must be > 0")
	}
	if c.Session.CookieCache.Enabled {
		if !c.Session.CookieCache.Strategy.Valid() {
			return errors.New("Session CookieCache Strategy must be 'compact' or 'encrypted'")
		}
		if c.Session.CookieCache.MaxAge <= 0 {
			return errors.New("Session CookieCache MaxAge must be > 0")
		}
	}

	// Email + password
	if c.EmailPassword.MinPasswordLength < 1 {
		return errors.New("EmailPassword MinPasswordLength must be >= 1")
	}
	if c.EmailPassword.MaxPasswordLength < c.EmailPassword.MinPasswordLength {
		return errors.New("EmailPassword MaxPasswordLength must be >= MinPasswordLength")
	}

	// Password hashing
	switch c.Password.Algorithm {
	case password.AlgorithmArgon2id, "":
		if c.EmailPassword.MaxPasswordLength > c.maxArgon2Bytes() {
			return errors.New("EmailPassword MaxPasswordLength exceeds Argon2 MaxPasswordBytes")
		}
	case password.AlgorithmBcrypt:
		if c.EmailPassword.MaxPasswordLength > password.BcryptMaxPasswordBytes {
			return errors.New("bcrypt requires EmailPassword MaxPasswordLength <= 72")
		}
	default:
		return errors.New("Password Algorithm must be 'argon2id' or 'bcrypt'")
	}

	// Email verification
	if c.EmailVerification.ExpiresIn <= 0 {
		return errors.New("EmailVerification ExpiresIn must be > 0")
	}
	if c.EmailVerification.SendOnSignUp && c.EmailVerification.SendVerificationEmail == nil {
		return errors.New("EmailVerification SendOnSignUp requires SendVerificationEmail")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}

func (c *Config) maxArgon2Bytes() int {
	if c.Password.Argon2.MaxPasswordBytes > 0 {
		return c.Password.Argon2.MaxPasswordBytes
	}
	return password.DefaultMaxPasswordBytes
}
