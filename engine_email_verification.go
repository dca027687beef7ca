package aegis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/MrEthical07/aegis/crypto"
	"github.com/MrEthical07/aegis/store"
	"github.com/sirupsen/logrus"
)

// ErrVerificationTokenExpired is returned by VerifyEmailToken for a token
// whose validity window has passed.
var ErrVerificationTokenExpired = errors.New("verification token expired")

type verificationClaims struct {
	Email string `json:"email"`
	Exp   int64  `json:"exp"`
}

// CreateVerificationToken seals email into an opaque token valid for
// Config.EmailVerification.ExpiresIn.
func (e *Engine) CreateVerificationToken(email string) (string, error) {
	if e == nil {
		return "", ErrVerificationTokenInvalid
	}
	raw, err := json.Marshal(verificationClaims{
		Email: strings.ToLower(strings.TrimSpace(email)),
		Exp:   e.now().Add(e.config.EmailVerification.ExpiresIn).Unix(),
	})
	if err != nil {
		return "", err
	}
	return crypto.Encrypt(string(raw), e.config.Secret)
}

// VerifyEmailToken opens a token created by CreateVerificationToken and
// returns the email it was issued for. Marking the user verified is left
// to the caller's store.
func (e *Engine) VerifyEmailToken(token string) (string, error) {
	if e == nil || token == "" {
		return "", ErrVerificationTokenInvalid
	}
	plain, ok := crypto.Decrypt(token, e.config.Secret)
	if !ok {
		return "", ErrVerificationTokenInvalid
	}
	var claims verificationClaims
	if err := json.Unmarshal([]byte(plain), &claims); err != nil || claims.Email == "" {
		return "", ErrVerificationTokenInvalid
	}
	if e.now().Unix() >= claims.Exp {
		return "", ErrVerificationTokenExpired
	}
	return claims.Email, nil
}

// sendVerificationEmail builds the hook payload for user and hands it to
// the configured sender.
func (e *Engine) sendVerificationEmail(ctx context.Context, user *store.User, callbackURL string) error {
	send := e.config.EmailVerification.SendVerificationEmail
	if send == nil {
		return errors.New("verification email sender not configured")
	}
	token, err := e.CreateVerificationToken(user.Email)
	if err != nil {
		return fmt.Errorf("verification token: %w", err)
	}

	if callbackURL == "" {
		callbackURL = "/"
	}
	q := url.Values{}
	q.Set("token", token)
	q.Set("callbackURL", callbackURL)
	link := strings.TrimSuffix(e.config.EmailVerification.BaseURL, "/") + "/verify-email?" + q.Encode()

	e.logger.WithFields(logrus.Fields{"user_id": user.ID}).Debug("aegis: dispatching verification email")
	return send(ctx, VerificationEmail{
		User:        user,
		Token:       token,
		URL:         link,
		CallbackURL: callbackURL,
	})
}
