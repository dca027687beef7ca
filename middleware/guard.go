package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/MrEthical07/aegis"
	"github.com/MrEthical07/aegis/autherr"
)

type sessionContextKey struct{}

// SessionFromContext returns the session attached by Authenticate or
// RequireSession.
func SessionFromContext(ctx context.Context) (*aegis.SessionData, bool) {
	data, ok := ctx.Value(sessionContextKey{}).(*aegis.SessionData)
	return data, ok && data != nil
}

// Authenticate resolves the session cookie, or a bearer header carrying the
// same signed value, and attaches the session to the request context. Requests
// without a valid session pass through unauthenticated.
func Authenticate(engine *aegis.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r = withClientInfo(r)
			if data, ok := resolve(engine, r); ok {
				r = r.WithContext(context.WithValue(r.Context(), sessionContextKey{}, data))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSession is Authenticate that rejects requests without a valid
// session with 401 and the resolution error code. A session already placed
// on the context by Authenticate is reused.
func RequireSession(engine *aegis.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := SessionFromContext(r.Context()); ok {
				next.ServeHTTP(w, r)
				return
			}
			r = withClientInfo(r)
			signed, ok := signedToken(engine, r)
			if !ok {
				WriteErrorStatus(w, http.StatusUnauthorized, &autherr.Error{Code: autherr.SessionNotFound, Message: "Session not found."})
				return
			}
			res := engine.AuthenticateCookie(r.Context(), signed)
			if !res.OK() {
				WriteErrorStatus(w, http.StatusUnauthorized, res.Err())
				return
			}
			ctx := context.WithValue(r.Context(), sessionContextKey{}, res.Value())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func resolve(engine *aegis.Engine, r *http.Request) (*aegis.SessionData, bool) {
	signed, ok := signedToken(engine, r)
	if !ok {
		return nil, false
	}
	res := engine.AuthenticateCookie(r.Context(), signed)
	if !res.OK() {
		return nil, false
	}
	return res.Value(), true
}

func signedToken(engine *aegis.Engine, r *http.Request) (string, bool) {
	if engine == nil || engine.Cookies() == nil {
		return "", false
	}
	if c, err := r.Cookie(engine.Cookies().Names().SessionToken); err == nil && c.Value != "" {
		return c.Value, true
	}
	return bearerToken(r.Header.Get("Authorization"))
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}

// withClientInfo copies the peer address and User-Agent into the request
// context for sign-in, sign-up and audit events.
func withClientInfo(r *http.Request) *http.Request {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		ip = host
	}
	ctx := aegis.WithUserAgent(aegis.WithClientIP(r.Context(), ip), r.UserAgent())
	return r.WithContext(ctx)
}
