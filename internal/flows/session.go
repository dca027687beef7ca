package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/aegis/autherr"
	"github.com/MrEthical07/aegis/session"
	"github.com/MrEthical07/aegis/store"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultSessionTTL applies when SessionDeps.ExpiresIn is not positive.
	DefaultSessionTTL = 7 * 24 * time.Hour
	// ShortSessionTTL applies to sessions created without "remember me".
	ShortSessionTTL = 24 * time.Hour
)

// SessionMetrics carries metric IDs used by session flows.
type SessionMetrics struct {
	SessionCreated         int
	SessionCreateFailed    int
	SessionRevoked         int
	SessionRevokedAll      int
	RegistryRetryExhausted int
}

// SessionEvents carries audit event names used by session flows.
type SessionEvents struct {
	SessionCreated    string
	SessionRevoked    string
	SessionRevokedAll string
}

// SessionDeps captures session lifecycle dependencies.
type SessionDeps struct {
	Runtime

	ExpiresIn time.Duration
	// PersistSessions writes sessions to the durable store. The store is
	// also written whenever Cache is nil.
	PersistSessions bool
	// Cache is the volatile tier; nil runs store-only.
	Cache session.Cache

	NewToken func() string
	NewID    func() (string, error)

	SaveSession        func(context.Context, *store.Session) error
	DeleteSession      func(ctx context.Context, token, userID string) error
	DeleteUserSessions func(ctx context.Context, userID string) (int64, error)

	Metrics SessionMetrics
	Events  SessionEvents
}

// storeAuthoritative reports whether the durable store holds sessions.
func (d *SessionDeps) storeAuthoritative() bool {
	return d.PersistSessions || d.Cache == nil
}

// CreateSessionInput describes the session to mint.
type CreateSessionInput struct {
	IPAddress      string
	UserAgent      string
	DontRememberMe bool
}

// RunCreateSession mints a session for user, persists it, indexes it in the
// per-user registry and caches its snapshot.
func RunCreateSession(ctx context.Context, user *store.User, in CreateSessionInput, deps SessionDeps) autherr.Result[*store.Session] {
	deps.normalize()
	if deps.NewToken == nil || deps.NewID == nil || (deps.storeAuthoritative() && deps.SaveSession == nil) {
		return autherr.Internal[*store.Session]("Session manager is not configured.")
	}

	now := deps.Now().UTC()
	ttl := deps.ExpiresIn
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if in.DontRememberMe {
		ttl = ShortSessionTTL
	}

	log := deps.Logger.WithFields(logrus.Fields{"user_id": user.ID})

	id, err := deps.NewID()
	if err != nil {
		log.WithError(err).Error("aegis: session id generation failed")
		deps.MetricInc(deps.Metrics.SessionCreateFailed)
		return autherr.Internal[*store.Session]("Failed to create session.")
	}
	sess := &store.Session{
		ID:        id,
		Token:     deps.NewToken(),
		UserID:    user.ID,
		ExpiresAt: now.Add(ttl),
		IPAddress: in.IPAddress,
		UserAgent: in.UserAgent,
		CreatedAt: now,
		UpdatedAt: now,
	}
	log = log.WithFields(logrus.Fields{"session_id": sess.ID, "token": tokenHint(sess.Token)})
	log.Debug("aegis: creating session")

	if deps.storeAuthoritative() {
		if err := deps.SaveSession(ctx, sess); err != nil {
			log.WithError(err).Error("aegis: session store write failed")
			deps.MetricInc(deps.Metrics.SessionCreateFailed)
			return autherr.Internal[*store.Session]("Failed to save session.")
		}
	}

	if deps.Cache != nil && sess.ExpiresAt.After(now) {
		ref := session.Reference{Token: sess.Token, ExpiresAt: sess.ExpiresAt.UnixMilli()}
		res, err := session.Track(ctx, deps.Cache, user.ID, ref, now)
		switch {
		case err != nil:
			log.WithError(err).Warn("aegis: session registry update failed")
		case !res.Verified && !res.Skipped:
			log.WithField("attempts", res.Attempts).Warn("aegis: session registry update unverified, bulk revoke may miss this session")
			deps.MetricInc(deps.Metrics.RegistryRetryExhausted)
		}

		if _, err := session.PutSnapshot(ctx, deps.Cache, &session.Snapshot{Session: *sess, User: *user}, now); err != nil {
			if !deps.storeAuthoritative() {
				log.WithError(err).Error("aegis: session cache write failed with no durable tier")
				deps.MetricInc(deps.Metrics.SessionCreateFailed)
				return autherr.Internal[*store.Session]("Failed to save session.")
			}
			log.WithError(err).Warn("aegis: session snapshot cache write failed")
		}
	}

	deps.MetricInc(deps.Metrics.SessionCreated)
	deps.EmitAudit(ctx, deps.Events.SessionCreated, true, user.ID, sess.ID, nil, func() map[string]string {
		return map[string]string{"remember_me": boolString(!in.DontRememberMe)}
	})
	log.Info("aegis: session created")
	return autherr.Ok(sess)
}

// RunRevokeSession de-authenticates token for userID. The cached snapshot is
// removed first, then the registry entry, then the store record.
func RunRevokeSession(ctx context.Context, userID, token string, deps SessionDeps) autherr.Result[struct{}] {
	deps.normalize()
	if deps.storeAuthoritative() && deps.DeleteSession == nil {
		return autherr.Internal[struct{}]("Session manager is not configured.")
	}

	now := deps.Now().UTC()
	log := deps.Logger.WithFields(logrus.Fields{"user_id": userID, "token": tokenHint(token)})
	log.Debug("aegis: revoking session")

	if deps.Cache != nil {
		if err := session.DropSnapshot(ctx, deps.Cache, token); err != nil {
			log.WithError(err).Warn("aegis: session snapshot delete failed")
		}
		if err := session.Untrack(ctx, deps.Cache, userID, token, now); err != nil {
			log.WithError(err).Warn("aegis: session registry cleanup failed")
		}
	}

	if deps.storeAuthoritative() {
		if err := deps.DeleteSession(ctx, token, userID); err != nil && !errors.Is(err, store.ErrNotFound) {
			log.WithError(err).Error("aegis: session store delete failed")
			return autherr.Internal[struct{}]("Failed to revoke session.")
		}
	}

	deps.MetricInc(deps.Metrics.SessionRevoked)
	deps.EmitAudit(ctx, deps.Events.SessionRevoked, true, userID, "", nil, nil)
	log.Info("aegis: session revoked")
	return autherr.Done()
}

// RunRevokeAllSessions removes every session of userID from both tiers. It
// succeeds even when the user had no sessions. The store is cleared first;
// a store or cache failure yields INTERNAL_ERROR.
func RunRevokeAllSessions(ctx context.Context, userID string, deps SessionDeps) autherr.Result[struct{}] {
	deps.normalize()
	if deps.storeAuthoritative() && deps.DeleteUserSessions == nil {
		return autherr.Internal[struct{}]("Session manager is not configured.")
	}

	log := deps.Logger.WithField("user_id", userID)

	var stored int64
	if deps.storeAuthoritative() {
		n, err := deps.DeleteUserSessions(ctx, userID)
		if err != nil {
			log.WithError(err).Error("aegis: user sessions store delete failed")
			return autherr.Internal[struct{}]("Failed to revoke sessions.")
		}
		stored = n
	}

	// cached snapshots authenticate on their own, so a failed purge fails the call
	var cached int
	if deps.Cache != nil {
		tokens, err := session.Purge(ctx, deps.Cache, userID)
		if err != nil {
			log.WithError(err).Error("aegis: session registry purge failed")
			return autherr.Internal[struct{}]("Failed to revoke sessions.")
		}
		cached = len(tokens)
	}

	deps.MetricInc(deps.Metrics.SessionRevokedAll)
	deps.EmitAudit(ctx, deps.Events.SessionRevokedAll, true, userID, "", nil, nil)
	log.WithFields(logrus.Fields{"cached": cached, "stored": stored}).Info("aegis: all sessions revoked")
	return autherr.Done()
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
