package flows

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

// Runtime carries the ambient collaborators shared by every flow.
type Runtime struct {
	Now       func() time.Time
	Logger    logrus.FieldLogger
	MetricInc func(int)
	EmitAudit func(ctx context.Context, event string, success bool, userID, sessionID string, err error, metadata func() map[string]string)
}

var discardLogger = func() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}()

func (r *Runtime) normalize() {
	if r.Now == nil {
		r.Now = time.Now
	}
	if r.Logger == nil {
		r.Logger = discardLogger
	}
	if r.MetricInc == nil {
		r.MetricInc = func(int) {}
	}
	if r.EmitAudit == nil {
		r.EmitAudit = func(context.Context, string, bool, string, string, error, func() map[string]string) {}
	}
}

// tokenHint shortens a session token for log output.
func tokenHint(token string) string {
	if len(token) <= 6 {
		return "***"
	}
	return token[:6] + "***"
}

// emailHint masks the local part of an address for log output.
func emailHint(email string) string {
	for i := 0; i < len(email); i++ {
		if email[i] == '@' {
			if i == 0 {
				return "*" + email[i:]
			}
			return email[:1] + "***" + email[i:]
		}
	}
	return "***"
}
