package flows

import (
	"context"
	"errors"
	"strings"

	"github.com/MrEthical07/aegis/autherr"
	"github.com/MrEthical07/aegis/password"
	"github.com/MrEthical07/aegis/store"
	"github.com/sirupsen/logrus"
)

const invalidEmailOrPassword = "Invalid email or password."

// SignInInput is the flow-local sign-in request.
type SignInInput struct {
	Email       string
	Password    string
	CallbackURL string
	RememberMe  bool
	IPAddress   string
	UserAgent   string
}

// SignInResult is the flow-local sign-in response.
type SignInResult struct {
	User        *store.User
	Session     *store.Session
	RememberMe  bool
	CallbackURL string
}

// SignInMetrics carries metric IDs used by the sign-in flow.
type SignInMetrics struct {
	SignInSuccess int
	SignInFailure int
}

// SignInEvents carries audit event names used by the sign-in flow.
type SignInEvents struct {
	SignInSuccess string
	SignInFailure string
}

// SignInDeps captures sign-in dependencies.
type SignInDeps struct {
	Runtime

	Enabled                  bool
	RequireEmailVerification bool
	// SendOnSignIn controls whether a blocked, unverified sign-in sends a
	// fresh verification email. Nil follows RequireEmailVerification.
	SendOnSignIn *bool

	Password password.Hasher

	FindUserByEmail func(context.Context, string) (*store.User, error)
	FindAccount     func(ctx context.Context, userID, providerID string) (*store.Account, error)
	CreateSession   func(context.Context, *store.User, CreateSessionInput) autherr.Result[*store.Session]
	// SendVerification is nil when no verification hook is configured.
	SendVerification func(ctx context.Context, user *store.User, callbackURL string) error

	Metrics SignInMetrics
	Events  SignInEvents
}

// RunSignIn authenticates an email and password and opens a session.
//
// Every credential failure (unknown email, no credential account, empty
// stored hash, wrong password) returns INVALID_EMAIL_OR_PASSWORD, and every
// branch that skips a real Verify runs Hash on the supplied password so the
// branches cost about the same.
func RunSignIn(ctx context.Context, in SignInInput, deps SignInDeps) autherr.Result[*SignInResult] {
	deps.normalize()
	if deps.Password == nil || deps.FindUserByEmail == nil || deps.FindAccount == nil || deps.CreateSession == nil {
		return autherr.Internal[*SignInResult]("Sign-in is not configured.")
	}

	fail := func(userID string, code autherr.Code, msg, reason string) autherr.Result[*SignInResult] {
		deps.MetricInc(deps.Metrics.SignInFailure)
		deps.EmitAudit(ctx, deps.Events.SignInFailure, false, userID, "", errors.New(string(code)), func() map[string]string {
			return map[string]string{"reason": reason}
		})
		return autherr.Err[*SignInResult](code, msg)
	}
	// burn keeps the unknown-account branches as expensive as a real verify
	burn := func() {
		_, _ = deps.Password.Hash(in.Password)
	}

	if !deps.Enabled {
		return fail("", autherr.FeatureDisabled, "Password auth is disabled.", "disabled")
	}
	if strings.TrimSpace(in.Email) == "" {
		return fail("", autherr.InvalidInput, "Email is required.", "email_missing")
	}
	email := NormalizeEmail(in.Email)
	if !ValidEmail(email) {
		return fail("", autherr.InvalidInput, "Email not valid.", "email_invalid")
	}
	if in.Password == "" {
		return fail("", autherr.InvalidInput, "Password is required.", "password_missing")
	}
	log := deps.Logger.WithField("email", emailHint(email))

	user, err := deps.FindUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		log.Warn("aegis: sign-in failed, unknown email")
		burn()
		return fail("", autherr.InvalidEmailOrPassword, invalidEmailOrPassword, "user_not_found")
	}
	if err != nil {
		log.WithError(err).Error("aegis: sign-in user lookup failed")
		return fail("", autherr.InternalError, "Database lookup failed.", "store_error")
	}
	log = log.WithField("user_id", user.ID)

	account, err := deps.FindAccount(ctx, user.ID, store.CredentialProviderID)
	if errors.Is(err, store.ErrNotFound) {
		log.Warn("aegis: sign-in failed, no credential account")
		burn()
		return fail(user.ID, autherr.InvalidEmailOrPassword, invalidEmailOrPassword, "no_credential_account")
	}
	if err != nil {
		log.WithError(err).Error("aegis: sign-in account lookup failed")
		return fail(user.ID, autherr.InternalError, "Database lookup failed.", "store_error")
	}
	if strings.TrimSpace(account.PasswordHash) == "" {
		log.Warn("aegis: sign-in failed, password hash missing")
		burn()
		return fail(user.ID, autherr.InvalidEmailOrPassword, invalidEmailOrPassword, "no_password_hash")
	}

	ok, err := deps.Password.Verify(in.Password, account.PasswordHash)
	if err != nil {
		log.WithError(err).Error("aegis: stored password hash unusable")
		burn()
		return fail(user.ID, autherr.InvalidEmailOrPassword, invalidEmailOrPassword, "hash_unusable")
	}
	if !ok {
		log.Warn("aegis: sign-in failed, password mismatch")
		return fail(user.ID, autherr.InvalidEmailOrPassword, invalidEmailOrPassword, "password_mismatch")
	}

	if deps.RequireEmailVerification && !user.EmailVerified {
		return blockUnverified(ctx, user, in.CallbackURL, deps, log, fail)
	}

	res := deps.CreateSession(ctx, user, CreateSessionInput{
		IPAddress:      in.IPAddress,
		UserAgent:      in.UserAgent,
		DontRememberMe: !in.RememberMe,
	})
	if !res.OK() {
		log.WithField("code", res.Code()).Error("aegis: sign-in session creation failed")
		return fail(user.ID, autherr.FailedToCreateSession, "Failed to create session.", "session_error")
	}
	sess := res.Value()

	deps.MetricInc(deps.Metrics.SignInSuccess)
	deps.EmitAudit(ctx, deps.Events.SignInSuccess, true, user.ID, sess.ID, nil, nil)
	log.WithFields(logrus.Fields{"session_id": sess.ID, "remember_me": in.RememberMe}).Info("aegis: sign-in succeeded")
	return autherr.Ok(&SignInResult{
		User:        user,
		Session:     sess,
		RememberMe:  in.RememberMe,
		CallbackURL: in.CallbackURL,
	})
}

func blockUnverified(
	ctx context.Context,
	user *store.User,
	callbackURL string,
	deps SignInDeps,
	log logrus.FieldLogger,
	fail func(string, autherr.Code, string, string) autherr.Result[*SignInResult],
) autherr.Result[*SignInResult] {
	if deps.SendVerification == nil {
		log.Error("aegis: email verification required but no sender is configured")
		return fail(user.ID, autherr.EmailNotVerified, "Email is not verified.", "email_not_verified")
	}

	send := deps.RequireEmailVerification
	if deps.SendOnSignIn != nil {
		send = *deps.SendOnSignIn
	}
	if !send {
		log.Warn("aegis: sign-in blocked, email not verified")
		return fail(user.ID, autherr.EmailNotVerified, "Email is not verified.", "email_not_verified")
	}

	if err := deps.SendVerification(ctx, user, callbackURL); err != nil {
		log.WithError(err).Error("aegis: verification email send failed")
		return fail(user.ID, autherr.InternalError, "Failed to send verification email.", "verification_send_error")
	}
	log.Info("aegis: verification email sent on blocked sign-in")
	return fail(user.ID, autherr.EmailNotVerified, "Verification email sent. Please check your inbox.", "email_not_verified")
}
