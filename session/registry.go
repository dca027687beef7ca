package session

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// RegistryKeyPrefix prefixes the per-user registry key.
const RegistryKeyPrefix = "active-sessions-"

// RegistryKey returns the cache key holding userID's registry.
func RegistryKey(userID string) string {
	return RegistryKeyPrefix + userID
}

// Reference is one registry entry. ExpiresAt is in unix milliseconds.
type Reference struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
}

// Registry is the per-user list of session references, kept sorted by
// ascending expiry whenever it is written.
type Registry []Reference

// DecodeRegistry parses a registry value. An empty value decodes to an
// empty registry.
func DecodeRegistry(raw string) (Registry, error) {
	if raw == "" {
		return Registry{}, nil
	}
	var r Registry
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptValue, err)
	}
	if r == nil {
		r = Registry{}
	}
	return r, nil
}

// Encode serializes r to its cache wire form.
func (r Registry) Encode() (string, error) {
	if r == nil {
		r = Registry{}
	}
	raw, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorruptValue, err)
	}
	return string(raw), nil
}

// Live returns the entries that have not expired at nowMs.
func (r Registry) Live(nowMs int64) Registry {
	out := make(Registry, 0, len(r))
	for _, ref := range r {
		if ref.ExpiresAt > nowMs {
			out = append(out, ref)
		}
	}
	return out
}

// Without returns r minus every entry for token.
func (r Registry) Without(token string) Registry {
	out := make(Registry, 0, len(r))
	for _, ref := range r {
		if ref.Token != token {
			out = append(out, ref)
		}
	}
	return out
}

// With returns a sorted copy of r with ref appended. Callers remove any
// previous entry for ref.Token first.
func (r Registry) With(ref Reference) Registry {
	out := make(Registry, 0, len(r)+1)
	out = append(out, r...)
	out = append(out, ref)
	out.sort()
	return out
}

// Contains reports whether token has an entry in r.
func (r Registry) Contains(token string) bool {
	for _, ref := range r {
		if ref.Token == token {
			return true
		}
	}
	return false
}

// Tokens returns the token of every entry.
func (r Registry) Tokens() []string {
	out := make([]string, 0, len(r))
	for _, ref := range r {
		out = append(out, ref.Token)
	}
	return out
}

// TTL returns the key lifetime needed to keep the furthest-expiring entry
// reachable. It is zero for an empty or fully expired registry.
func (r Registry) TTL(nowMs int64) time.Duration {
	if len(r) == 0 {
		return 0
	}
	furthest := r[0].ExpiresAt
	for _, ref := range r[1:] {
		if ref.ExpiresAt > furthest {
			furthest = ref.ExpiresAt
		}
	}
	return TTLUntil(furthest, nowMs)
}

func (r Registry) sort() {
	sort.SliceStable(r, func(i, j int) bool {
		return r[i].ExpiresAt < r[j].ExpiresAt
	})
}

// TTLUntil converts the gap between nowMs and expiresAtMs into whole
// seconds, rounding up. A non-positive gap yields zero.
func TTLUntil(expiresAtMs, nowMs int64) time.Duration {
	delta := expiresAtMs - nowMs
	if delta <= 0 {
		return 0
	}
	secs := (delta + 999) / 1000
	return time.Duration(secs) * time.Second
}
