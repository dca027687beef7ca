package cookie

import (
	"net/http"
	"time"

	"github.com/MrEthical07/aegis/crypto"
	"github.com/MrEthical07/aegis/session"
)

// Cookie base names. Production deployments add the __Host- prefix.
const (
	SessionTokenName = "aegis.session"
	SessionDataName  = "aegis.session_data"
	DontRememberName = "aegis.dont_remember"

	hostPrefix = "__Host-"
)

// DefaultMaxAge bounds how long a data envelope is trusted after sealing.
const DefaultMaxAge = 5 * time.Minute

// Names holds the effective cookie names for one deployment mode.
type Names struct {
	SessionToken string
	SessionData  string
	DontRemember string
}

// NamesFor returns the cookie names for production or development.
func NamesFor(production bool) Names {
	if !production {
		return Names{
			SessionToken: SessionTokenName,
			SessionData:  SessionDataName,
			DontRemember: DontRememberName,
		}
	}
	return Names{
		SessionToken: hostPrefix + SessionTokenName,
		SessionData:  hostPrefix + SessionDataName,
		DontRemember: hostPrefix + DontRememberName,
	}
}

// Options configures a Handler.
type Options struct {
	Secret string
	// Production marks cookies Secure and uses __Host- names. Domain is
	// ignored in production because host-prefixed cookies cannot carry one.
	Production bool
	Domain     string

	CacheEnabled bool
	Strategy     Strategy
	MaxAge       time.Duration

	// Now overrides the clock used to seal and open envelopes.
	Now func() time.Time
}

// Handler writes and reads the session cookies of one deployment.
type Handler struct {
	opts  Options
	names Names
	now   func() time.Time
}

// New returns a Handler. A zero MaxAge falls back to DefaultMaxAge and an
// empty Strategy to Compact.
func New(opts Options) *Handler {
	if opts.MaxAge <= 0 {
		opts.MaxAge = DefaultMaxAge
	}
	if opts.Strategy == "" {
		opts.Strategy = Compact
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Handler{
		opts:  opts,
		names: NamesFor(opts.Production),
		now:   now,
	}
}

func (h *Handler) Names() Names {
	return h.names
}

func (h *Handler) base(name, value string) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.opts.Production,
		SameSite: http.SameSiteLaxMode,
	}
	if !h.opts.Production && h.opts.Domain != "" {
		c.Domain = h.opts.Domain
	}
	return c
}

// SetSessionCookie writes the signed session token. The cookie outlives the
// browser session only when rememberMe is set; otherwise a signed
// dont_remember marker is written alongside it.
func (h *Handler) SetSessionCookie(w http.ResponseWriter, token string, expiresAt time.Time, rememberMe bool) {
	c := h.base(h.names.SessionToken, crypto.Sign(token, h.opts.Secret))
	if rememberMe {
		c.Expires = expiresAt
	}
	http.SetCookie(w, c)

	if !rememberMe {
		http.SetCookie(w, h.base(h.names.DontRemember, crypto.Sign("true", h.opts.Secret)))
	}
}

// SetSessionData writes the data envelope for snap when the cookie cache is
// enabled. It is a no-op otherwise.
func (h *Handler) SetSessionData(w http.ResponseWriter, snap *session.Snapshot, rememberMe bool) error {
	if !h.opts.CacheEnabled || snap == nil {
		return nil
	}
	value, err := h.Seal(snap, h.now())
	if err != nil {
		return err
	}
	c := h.base(h.names.SessionData, value)
	if rememberMe {
		c.Expires = snap.Session.ExpiresAt
	}
	http.SetCookie(w, c)
	return nil
}

// SetSession writes the token cookie and, when enabled, the data envelope.
func (h *Handler) SetSession(w http.ResponseWriter, snap *session.Snapshot, rememberMe bool) error {
	if snap == nil {
		return nil
	}
	h.SetSessionCookie(w, snap.Session.Token, snap.Session.ExpiresAt, rememberMe)
	return h.SetSessionData(w, snap, rememberMe)
}

// Clear expires every aegis cookie.
func (h *Handler) Clear(w http.ResponseWriter) {
	for _, name := range []string{h.names.SessionToken, h.names.SessionData, h.names.DontRemember} {
		c := h.base(name, "")
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
		http.SetCookie(w, c)
	}
}

// ReadSessionToken returns the raw token from a correctly signed session
// cookie. Missing, empty and tampered cookies all report false.
func (h *Handler) ReadSessionToken(r *http.Request) (string, bool) {
	c, err := r.Cookie(h.names.SessionToken)
	if err != nil || c.Value == "" {
		return "", false
	}
	return crypto.Unsign(c.Value, h.opts.Secret)
}

// DontRemember reports whether the request carries a valid dont_remember marker.
func (h *Handler) DontRemember(r *http.Request) bool {
	c, err := r.Cookie(h.names.DontRemember)
	if err != nil {
		return false
	}
	v, ok := crypto.Unsign(c.Value, h.opts.Secret)
	return ok && v == "true"
}

// ReadSessionData opens the data envelope carried by r.
func (h *Handler) ReadSessionData(r *http.Request) (*session.Snapshot, bool) {
	c, err := r.Cookie(h.names.SessionData)
	if err != nil || c.Value == "" {
		return nil, false
	}
	return h.Open(c.Value, h.now())
}
