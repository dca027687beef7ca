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

// SignUpInput is the flow-local sign-up request.
type SignUpInput struct {
	Name        string
	Email       string
	Password    string
	Image       string
	CallbackURL string
	IPAddress   string
	UserAgent   string
}

// SignUpResult is the flow-local sign-up response. Session is nil when
// auto sign-in is disabled.
type SignUpResult struct {
	User        *store.User
	Session     *store.Session
	CallbackURL string
}

// SignUpMetrics carries metric IDs used by the sign-up flow.
type SignUpMetrics struct {
	SignUpSuccess   int
	SignUpFailure   int
	SignUpDuplicate int
}

// SignUpEvents carries audit event names used by the sign-up flow.
type SignUpEvents struct {
	SignUp string
}

// SignUpDeps captures sign-up dependencies.
type SignUpDeps struct {
	Runtime

	Enabled           bool
	DisableSignUp     bool
	MinPasswordLength int
	MaxPasswordLength int
	AutoSignIn        bool
	SendOnSignUp      bool

	Password password.Strategy
	NewID    func() (string, error)

	FindUserByEmail       func(context.Context, string) (*store.User, error)
	CreateUserWithAccount func(context.Context, *store.User, *store.Account) error
	CreateSession         func(context.Context, *store.User, CreateSessionInput) autherr.Result[*store.Session]
	// SendVerification is nil when no verification hook is configured.
	SendVerification func(ctx context.Context, user *store.User, callbackURL string) error

	Metrics SignUpMetrics
	Events  SignUpEvents
}

// RunSignUp registers a user with an email and password.
//
// Validation failures short-circuit before any store access. The user and
// its credential account are written in one transaction; a unique violation
// from that write maps to USER_ALREADY_EXISTS like the pre-check does.
func RunSignUp(ctx context.Context, in SignUpInput, deps SignUpDeps) autherr.Result[*SignUpResult] {
	deps.normalize()
	if deps.Password == nil || deps.NewID == nil || deps.FindUserByEmail == nil || deps.CreateUserWithAccount == nil {
		return autherr.Internal[*SignUpResult]("Sign-up is not configured.")
	}

	fail := func(code autherr.Code, msg, reason string) autherr.Result[*SignUpResult] {
		deps.MetricInc(deps.Metrics.SignUpFailure)
		deps.EmitAudit(ctx, deps.Events.SignUp, false, "", "", errors.New(string(code)), func() map[string]string {
			return map[string]string{"reason": reason}
		})
		return autherr.Err[*SignUpResult](code, msg)
	}

	if !deps.Enabled {
		return fail(autherr.FeatureDisabled, "Password auth is disabled.", "disabled")
	}
	if deps.DisableSignUp {
		return fail(autherr.FeatureDisabled, "Sign up is disabled.", "signup_disabled")
	}
	if strings.TrimSpace(in.Email) == "" {
		return fail(autherr.InvalidInput, "Email is required.", "email_missing")
	}
	if in.Password == "" {
		return fail(autherr.InvalidInput, "Password is required.", "password_missing")
	}

	email := NormalizeEmail(in.Email)
	if !ValidEmail(email) {
		return fail(autherr.InvalidInput, "Email not valid.", "email_invalid")
	}
	log := deps.Logger.WithField("email", emailHint(email))

	if len(in.Password) < deps.MinPasswordLength {
		return fail(autherr.PasswordTooShort, "Password is too short.", "password_too_short")
	}
	if deps.MaxPasswordLength > 0 && len(in.Password) > deps.MaxPasswordLength {
		return fail(autherr.PasswordTooLong, "Password is too long.", "password_too_long")
	}
	if err := deps.Password.Validate(in.Password); err != nil {
		return fail(autherr.InvalidInput, err.Error(), "password_policy")
	}

	_, err := deps.FindUserByEmail(ctx, email)
	switch {
	case err == nil:
		log.Info("aegis: sign-up rejected, email already registered")
		deps.MetricInc(deps.Metrics.SignUpDuplicate)
		return fail(autherr.UserAlreadyExists, "Email already registered.", "duplicate")
	case !errors.Is(err, store.ErrNotFound):
		log.WithError(err).Error("aegis: sign-up user lookup failed")
		return fail(autherr.InternalError, "Failed to create user.", "store_error")
	}

	hash, err := deps.Password.Hash(in.Password)
	if err != nil {
		log.WithError(err).Error("aegis: password hashing failed")
		return fail(autherr.InternalError, "Failed to create user.", "hash_error")
	}

	userID, err := deps.NewID()
	if err != nil {
		log.WithError(err).Error("aegis: user id generation failed")
		return fail(autherr.InternalError, "Failed to create user.", "id_error")
	}
	accountID, err := deps.NewID()
	if err != nil {
		log.WithError(err).Error("aegis: account id generation failed")
		return fail(autherr.InternalError, "Failed to create user.", "id_error")
	}

	now := deps.Now().UTC()
	user := &store.User{
		ID:        userID,
		Name:      strings.TrimSpace(in.Name),
		Email:     email,
		Image:     in.Image,
		CreatedAt: now,
		UpdatedAt: now,
	}
	account := &store.Account{
		ID:           accountID,
		UserID:       userID,
		AccountID:    email,
		ProviderID:   store.CredentialProviderID,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := deps.CreateUserWithAccount(ctx, user, account); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			log.Info("aegis: sign-up lost a race on the unique email")
			deps.MetricInc(deps.Metrics.SignUpDuplicate)
			return fail(autherr.UserAlreadyExists, "Email already registered.", "duplicate")
		}
		log.WithError(err).Error("aegis: sign-up store write failed")
		return fail(autherr.InternalError, "Save failed.", "store_error")
	}
	log = log.WithField("user_id", user.ID)

	if deps.SendOnSignUp && deps.SendVerification != nil {
		if err := deps.SendVerification(ctx, user, in.CallbackURL); err != nil {
			log.WithError(err).Warn("aegis: sign-up verification email failed")
		}
	}

	out := &SignUpResult{User: user, CallbackURL: in.CallbackURL}
	if deps.AutoSignIn && deps.CreateSession != nil {
		res := deps.CreateSession(ctx, user, CreateSessionInput{
			IPAddress:      in.IPAddress,
			UserAgent:      in.UserAgent,
			DontRememberMe: true,
		})
		if !res.OK() {
			log.WithField("code", res.Code()).Error("aegis: sign-up auto sign-in failed")
			deps.MetricInc(deps.Metrics.SignUpFailure)
			return autherr.Err[*SignUpResult](autherr.FailedToCreateSession, "Failed to create session.")
		}
		out.Session = res.Value()
	}

	deps.MetricInc(deps.Metrics.SignUpSuccess)
	deps.EmitAudit(ctx, deps.Events.SignUp, true, user.ID, sessionIDOf(out.Session), nil, nil)
	log.WithFields(logrus.Fields{"auto_sign_in": out.Session != nil}).Info("aegis: sign-up succeeded")
	return autherr.Ok(out)
}

func sessionIDOf(s *store.Session) string {
	if s == nil {
		return ""
	}
	return s.ID
}
