package cookie

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MrEthical07/aegis/crypto"
	"github.com/MrEthical07/aegis/session"
)

// Strategy selects how the data envelope is protected.
type Strategy string

const (
	// Compact is base64url of the signed JSON: tamper-evident, readable.
	Compact Strategy = "compact"
	// Encrypted seals the signed JSON with AES-256-GCM.
	Encrypted Strategy = "encrypted"
)

// Valid reports whether s names a known strategy.
func (s Strategy) Valid() bool {
	return s == Compact || s == Encrypted
}

// EnvelopeVersion is stamped into every sealed envelope.
const EnvelopeVersion = "1"

type cached struct {
	Session   session.Snapshot `json:"session"`
	UpdatedAt int64            `json:"updatedAt"`
	Version   string           `json:"version"`
}

// signable is the exact byte layout the signature covers. Session stays
// raw so Open verifies the bytes it received, not a re-encoding.
type signable struct {
	ExpiresAt int64           `json:"expiresAt"`
	Session   json.RawMessage `json:"session"`
}

type envelope struct {
	Signature string          `json:"signature"`
	Session   json.RawMessage `json:"session"`
	ExpiresAt int64           `json:"expiresAt"`
}

func signedPayload(expiresAt int64, raw json.RawMessage) (string, error) {
	body, err := json.Marshal(signable{ExpiresAt: expiresAt, Session: raw})
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Seal produces the cookie value for snap, valid until now plus MaxAge.
func (h *Handler) Seal(snap *session.Snapshot, now time.Time) (string, error) {
	raw, err := json.Marshal(cached{
		Session:   *snap,
		UpdatedAt: now.UnixMilli(),
		Version:   EnvelopeVersion,
	})
	if err != nil {
		return "", fmt.Errorf("encode envelope: %w", err)
	}

	expiresAt := now.Add(h.opts.MaxAge).UnixMilli()
	payload, err := signedPayload(expiresAt, raw)
	if err != nil {
		return "", fmt.Errorf("encode envelope: %w", err)
	}

	out, err := json.Marshal(envelope{
		Signature: crypto.GenerateSignature(payload, h.opts.Secret),
		Session:   raw,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return "", fmt.Errorf("encode envelope: %w", err)
	}

	if h.opts.Strategy == Encrypted {
		return crypto.Encrypt(string(out), h.opts.Secret)
	}
	return base64.RawURLEncoding.EncodeToString(out), nil
}

// Open verifies value and returns its snapshot. Every failure (bad
// encoding, wrong secret, bad signature, envelope or session expiry,
// version mismatch) reports false.
func (h *Handler) Open(value string, now time.Time) (*session.Snapshot, bool) {
	var body []byte
	switch h.opts.Strategy {
	case Encrypted:
		plain, ok := crypto.Decrypt(value, h.opts.Secret)
		if !ok {
			return nil, false
		}
		body = []byte(plain)
	default:
		decoded, err := base64.RawURLEncoding.DecodeString(value)
		if err != nil {
			return nil, false
		}
		body = decoded
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil || len(env.Session) == 0 {
		return nil, false
	}
	payload, err := signedPayload(env.ExpiresAt, env.Session)
	if err != nil || !crypto.VerifySignature(payload, env.Signature, h.opts.Secret) {
		return nil, false
	}
	if env.ExpiresAt <= now.UnixMilli() {
		return nil, false
	}

	var c cached
	if err := json.Unmarshal(env.Session, &c); err != nil || c.Version != EnvelopeVersion {
		return nil, false
	}
	if c.Session.Session.Token == "" || c.Session.Expired(now) {
		return nil, false
	}
	return &c.Session, true
}
