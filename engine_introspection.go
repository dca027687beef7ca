package aegis

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/aegis/session"
)

// ErrCacheNotConfigured is returned by introspection calls that read the
// volatile tier when the engine runs store-only.
var ErrCacheNotConfigured = errors.New("session cache not configured")

// SessionInfo is the registry view of one live session. It carries no
// token material.
type SessionInfo struct {
	TokenHint string
	ExpiresAt time.Time
}

// HealthStatus is an on-demand backend health result.
type HealthStatus struct {
	CacheConfigured bool
	CacheAvailable  bool
	CacheLatency    time.Duration
}

type pinger interface {
	Ping(ctx context.Context) (time.Duration, error)
}

// ListActiveSessions returns the live entries of userID's registry,
// soonest expiry first.
func (e *Engine) ListActiveSessions(ctx context.Context, userID string) ([]SessionInfo, error) {
	if e == nil {
		return nil, ErrCacheNotConfigured
	}
	if e.cache == nil {
		return nil, ErrCacheNotConfigured
	}
	if userID == "" {
		return nil, nil
	}

	reg, err := session.ReadRegistry(ctx, e.cache, userID)
	if err != nil && !errors.Is(err, session.ErrCorruptValue) {
		return nil, err
	}

	live := reg.Live(e.now().UnixMilli())
	out := make([]SessionInfo, 0, len(live))
	for _, ref := range live {
		out = append(out, SessionInfo{
			TokenHint: hintToken(ref.Token),
			ExpiresAt: time.UnixMilli(ref.ExpiresAt).UTC(),
		})
	}
	return out, nil
}

// GetActiveSessionCount counts the live registry entries of userID.
func (e *Engine) GetActiveSessionCount(ctx context.Context, userID string) (int, error) {
	sessions, err := e.ListActiveSessions(ctx, userID)
	if err != nil {
		return 0, err
	}
	return len(sessions), nil
}

// Health pings the cache when it supports it. Store-only engines report
// CacheConfigured=false.
func (e *Engine) Health(ctx context.Context) HealthStatus {
	if e == nil || e.cache == nil {
		return HealthStatus{}
	}
	status := HealthStatus{CacheConfigured: true, CacheAvailable: true}
	p, ok := e.cache.(pinger)
	if !ok {
		return status
	}
	latency, err := p.Ping(ctx)
	status.CacheAvailable = err == nil
	status.CacheLatency = latency
	return status
}

func hintToken(token string) string {
	if len(token) <= 6 {
		return "***"
	}
	return token[:6] + "***"
}
