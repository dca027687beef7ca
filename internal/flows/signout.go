package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/aegis/autherr"
	"github.com/MrEthical07/aegis/session"
	"github.com/MrEthical07/aegis/store"
)

// SignOutMetrics carries metric IDs used by the sign-out flow.
type SignOutMetrics struct {
	SignOut int
}

// SignOutEvents carries audit event names used by the sign-out flow.
type SignOutEvents struct {
	SignOut string
}

// SignOutDeps captures sign-out dependencies.
type SignOutDeps struct {
	Runtime

	Lookup        ResolveDeps
	RevokeSession func(ctx context.Context, userID, token string) autherr.Result[struct{}]

	Metrics SignOutMetrics
	Events  SignOutEvents
}

// RunSignOut revokes the session identified by token. Expired sessions can
// still be signed out so their leftovers are cleaned up. Clearing transport
// cookies is the caller's job and must happen whatever this returns.
func RunSignOut(ctx context.Context, token string, deps SignOutDeps) autherr.Result[struct{}] {
	deps.normalize()
	deps.Lookup.normalize()
	if deps.RevokeSession == nil {
		return autherr.Internal[struct{}]("Sign-out is not configured.")
	}
	log := deps.Logger.WithField("token", tokenHint(token))

	if token == "" {
		return autherr.Err[struct{}](autherr.SessionNotFound, "Session not found or already expired.")
	}

	data, err := locateSession(ctx, token, &deps.Lookup)
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, session.ErrCorruptValue) {
		log.Info("aegis: sign-out for unknown session")
		return autherr.Err[struct{}](autherr.SessionNotFound, "Session not found or already expired.")
	}
	if err != nil {
		log.WithError(err).Error("aegis: sign-out session lookup failed")
		return autherr.Internal[struct{}]("Session lookup failed.")
	}

	res := deps.RevokeSession(ctx, data.User.ID, token)
	if !res.OK() {
		log.WithField("user_id", data.User.ID).Error("aegis: sign-out revocation failed")
		return res
	}

	deps.MetricInc(deps.Metrics.SignOut)
	deps.EmitAudit(ctx, deps.Events.SignOut, true, data.User.ID, data.Session.ID, nil, nil)
	log.WithField("user_id", data.User.ID).Info("aegis: signed out")
	return autherr.Done()
}
