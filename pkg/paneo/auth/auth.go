// Package auth implements the optional single-password session used by the
// HTTP API. A session is a signed cookie carrying its own expiry; the server
// keeps no session state.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// CookieName is the name of the session cookie.
const CookieName = "paneo.auth"

// SessionTTL is how long a session cookie stays valid.
const SessionTTL = 30 * 24 * time.Hour

// ErrInvalidPassword is returned by Login for a wrong password.
var ErrInvalidPassword = errors.New("invalid password")

// Config holds the auth settings.
type Config struct {
	// Password enables auth when non-empty.
	Password string `mapstructure:"password"`
	// PasswordHash is a bcrypt hash. It takes precedence over Password.
	PasswordHash string `mapstructure:"password_hash"`
	// Secret signs session cookies. Empty derives one from the password.
	Secret string `mapstructure:"secret"`
	// CookieSecure sets the Secure attribute on the cookie.
	CookieSecure bool `mapstructure:"cookie_secure"`
}

// Authenticator verifies passwords and session tokens.
type Authenticator struct {
	cfg    Config
	secret []byte
	now    func() time.Time
}

// New creates an Authenticator.
func New(cfg Config) *Authenticator {
	cfg.Password = strings.TrimSpace(cfg.Password)
	cfg.PasswordHash = strings.TrimSpace(cfg.PasswordHash)
	cfg.Secret = strings.TrimSpace(cfg.Secret)

	secret := cfg.Secret
	if secret == "" {
		seed := cfg.Password
		if seed == "" {
			seed = cfg.PasswordHash
		}
		sum := sha256.Sum256([]byte("paneo-auth:" + seed))
		secret = hex.EncodeToString(sum[:])
	}
	return &Authenticator{cfg: cfg, secret: []byte(secret), now: time.Now}
}

// Enabled reports whether a password is configured.
func (a *Authenticator) Enabled() bool {
	return a.cfg.Password != "" || a.cfg.PasswordHash != ""
}

// VerifyPassword checks input against the configured password. With auth
// disabled every input is accepted.
func (a *Authenticator) VerifyPassword(input string) bool {
	if !a.Enabled() {
		return true
	}
	if a.cfg.PasswordHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(a.cfg.PasswordHash), []byte(input)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(input), []byte(a.cfg.Password)) == 1
}

// Token returns a new session token of the form "<exp>.<signature>".
func (a *Authenticator) Token() string {
	exp := strconv.FormatInt(a.now().Add(SessionTTL).Unix(), 10)
	return exp + "." + a.sign(exp)
}

// Valid reports whether token is a well-formed, unexpired session token
// signed with the current secret.
func (a *Authenticator) Valid(token string) bool {
	if !a.Enabled() {
		return true
	}
	expRaw, sig, ok := strings.Cut(token, ".")
	if !ok || expRaw == "" || sig == "" {
		return false
	}
	exp, err := strconv.ParseInt(expRaw, 10, 64)
	if err != nil || exp <= a.now().Unix() {
		return false
	}
	return hmac.Equal([]byte(sig), []byte(a.sign(expRaw)))
}

func (a *Authenticator) sign(payload string) string {
	mac := hmac.New(sha256.New, a.secret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Authenticated reports whether r carries a valid session.
func (a *Authenticator) Authenticated(r *http.Request) bool {
	if !a.Enabled() {
		return true
	}
	c, err := r.Cookie(CookieName)
	if err != nil {
		return false
	}
	return a.Valid(c.Value)
}

// SessionCookie returns a cookie holding a fresh session token.
func (a *Authenticator) SessionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    a.Token(),
		Path:     "/",
		MaxAge:   int(SessionTTL / time.Second),
		HttpOnly: true,
		Secure:   a.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearCookie returns a cookie that deletes the session.
func (a *Authenticator) ClearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}
