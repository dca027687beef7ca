package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/aegis/autherr"
	"github.com/MrEthical07/aegis/session"
	"github.com/MrEthical07/aegis/store"
)

// Session data sources reported by RunResolveSession.
const (
	SourceCache = "cache"
	SourceStore = "store"
)

// SessionData is a resolved session with its owning user.
type SessionData struct {
	Session *store.Session
	User    *store.User
	Source  string
}

// ResolveMetrics carries metric IDs used by session resolution.
type ResolveMetrics struct {
	ResolvedFromCache int
	ResolvedFromStore int
	ResolveMiss       int
	ResolveLatency    int
}

// ResolveDeps captures session resolution dependencies.
type ResolveDeps struct {
	Runtime

	PersistSessions bool
	Cache           session.Cache

	FindSessionByToken func(context.Context, string) (*store.Session, error)
	FindUserByID       func(context.Context, string) (*store.User, error)
	ObserveLatency     func(int, time.Duration)

	Metrics ResolveMetrics
}

func (d *ResolveDeps) storeAuthoritative() bool {
	return d.PersistSessions || d.Cache == nil
}

// RunResolveSession answers "is token a valid session right now".
//
// The cached snapshot is tried first. On a miss, and only when the store
// holds sessions, the store record and its user are loaded. Expiry is
// checked against now on both paths. Cache faults fall through to the
// store; store faults yield INTERNAL_ERROR.
func RunResolveSession(ctx context.Context, token string, deps ResolveDeps) autherr.Result[*SessionData] {
	deps.normalize()
	if deps.ObserveLatency == nil {
		deps.ObserveLatency = func(int, time.Duration) {}
	}
	start := time.Now()
	defer func() {
		deps.ObserveLatency(deps.Metrics.ResolveLatency, time.Since(start))
	}()

	miss := func(code autherr.Code, msg string) autherr.Result[*SessionData] {
		deps.MetricInc(deps.Metrics.ResolveMiss)
		return autherr.Err[*SessionData](code, msg)
	}
	if token == "" {
		return miss(autherr.SessionNotFound, "Session not found.")
	}

	now := deps.Now()
	log := deps.Logger.WithField("token", tokenHint(token))
	sawExpired := false

	if deps.Cache != nil {
		snap, found, err := session.LoadSnapshot(ctx, deps.Cache, token)
		switch {
		case errors.Is(err, session.ErrCorruptValue):
			log.WithError(err).Warn("aegis: dropping corrupt session snapshot")
			_ = session.DropSnapshot(ctx, deps.Cache, token)
		case err != nil:
			log.WithError(err).Warn("aegis: session cache read failed, falling back")
		case found && !snap.Expired(now):
			deps.MetricInc(deps.Metrics.ResolvedFromCache)
			return autherr.Ok(&SessionData{Session: &snap.Session, User: &snap.User, Source: SourceCache})
		case found:
			sawExpired = true
			if err := session.DropSnapshot(ctx, deps.Cache, token); err != nil {
				log.WithError(err).Debug("aegis: expired snapshot delete failed")
			}
		}
	}

	if !deps.storeAuthoritative() || deps.FindSessionByToken == nil || deps.FindUserByID == nil {
		if sawExpired {
			return miss(autherr.SessionExpired, "Session expired.")
		}
		return miss(autherr.SessionNotFound, "Session not found.")
	}

	sess, err := deps.FindSessionByToken(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		if sawExpired {
			return miss(autherr.SessionExpired, "Session expired.")
		}
		return miss(autherr.SessionNotFound, "Session not found.")
	}
	if err != nil {
		log.WithError(err).Error("aegis: session store lookup failed")
		return autherr.Internal[*SessionData]("Session lookup failed.")
	}
	if sess.Expired(now) {
		return miss(autherr.SessionExpired, "Session expired.")
	}

	user, err := deps.FindUserByID(ctx, sess.UserID)
	if errors.Is(err, store.ErrNotFound) {
		log.WithField("user_id", sess.UserID).Warn("aegis: session owner missing")
		return miss(autherr.SessionNotFound, "Session not found.")
	}
	if err != nil {
		log.WithError(err).Error("aegis: session user lookup failed")
		return autherr.Internal[*SessionData]("Session lookup failed.")
	}

	deps.MetricInc(deps.Metrics.ResolvedFromStore)
	return autherr.Ok(&SessionData{Session: sess, User: user, Source: SourceStore})
}

// locateSession finds the session for token regardless of expiry, from the
// store when it holds sessions and from the cache otherwise.
func locateSession(ctx context.Context, token string, deps *ResolveDeps) (*SessionData, error) {
	if deps.storeAuthoritative() {
		if deps.FindSessionByToken == nil || deps.FindUserByID == nil {
			return nil, errors.New("session store not configured")
		}
		sess, err := deps.FindSessionByToken(ctx, token)
		if err != nil {
			return nil, err
		}
		user, err := deps.FindUserByID(ctx, sess.UserID)
		if err != nil {
			return nil, err
		}
		return &SessionData{Session: sess, User: user, Source: SourceStore}, nil
	}

	snap, found, err := session.LoadSnapshot(ctx, deps.Cache, token)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, store.ErrNotFound
	}
	return &SessionData{Session: &snap.Session, User: &snap.User, Source: SourceCache}, nil
}
