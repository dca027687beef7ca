package store

import (
	"time"

	"github.com/uptrace/bun"
)

// CredentialProviderID marks the password Account of a User.
const CredentialProviderID = "credential"

// User is a person who can authenticate. Email is stored normalized
// (trimmed, lower-case) and is unique.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID            string    `bun:"id,pk" json:"id"`
	Name          string    `bun:"name,notnull" json:"name"`
	Email         string    `bun:"email,notnull,unique" json:"email"`
	EmailVerified bool      `bun:"email_verified,notnull" json:"emailVerified"`
	Image         string    `bun:"image,notnull" json:"image"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt     time.Time `bun:"updated_at,notnull" json:"updatedAt"`
}

// Account links a User to an authentication provider. The credential
// provider stores the password hash; other providers leave it empty.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:a"`

	ID           string    `bun:"id,pk"`
	UserID       string    `bun:"user_id,notnull"`
	AccountID    string    `bun:"account_id,notnull"`
	ProviderID   string    `bun:"provider_id,notnull"`
	PasswordHash string    `bun:"password_hash,nullzero"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
	UpdatedAt    time.Time `bun:"updated_at,notnull"`
}

// Session is the durable record of an issued session token.
type Session struct {
	bun.BaseModel `bun:"table:sessions,alias:s"`

	ID        string    `bun:"id,pk" json:"id"`
	Token     string    `bun:"token,notnull,unique" json:"token"`
	UserID    string    `bun:"user_id,notnull" json:"userId"`
	ExpiresAt time.Time `bun:"expires_at,notnull" json:"expiresAt"`
	IPAddress string    `bun:"ip_address,notnull" json:"ipAddress"`
	UserAgent string    `bun:"user_agent,notnull" json:"userAgent"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updatedAt"`
}

// Expired reports whether s is no longer valid at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
