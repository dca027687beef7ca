package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/MrEthical07/aegis/store"
)

// Snapshot is the session+user pair cached under the session token.
type Snapshot struct {
	Session store.Session `json:"session"`
	User    store.User    `json:"user"`
}

// Expired reports whether the cached session is no longer valid at now.
func (s *Snapshot) Expired(now time.Time) bool {
	return s.Session.Expired(now)
}

// EncodeSnapshot serializes s to its cache wire form.
func EncodeSnapshot(s *Snapshot) (string, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorruptValue, err)
	}
	return string(raw), nil
}

// DecodeSnapshot parses a cached snapshot. A snapshot without a token or
// owning user is rejected as corrupt.
func DecodeSnapshot(raw string) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptValue, err)
	}
	if s.Session.Token == "" || s.User.ID == "" {
		return nil, fmt.Errorf("%w: snapshot missing token or user", ErrCorruptValue)
	}
	return &s, nil
}
