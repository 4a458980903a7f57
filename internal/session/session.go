// Package session identifies a visitor across requests with an HS256-signed
// cookie whose subject is a random session id.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/lightbounty/booking-site/pkg/logging"
)

// CookieName is the cookie carrying the signed session token.
const CookieName = "lb_session"

const issuer = "lightbounty-booking"

// ErrInvalidSession is returned when a token fails verification.
var ErrInvalidSession = errors.New("session: invalid token")

type ctxKey struct{}

// Manager issues and verifies session cookies.
type Manager struct {
	secret []byte
	ttl    time.Duration
	secure    bool
	crossSite bool
	logger    *logging.Logger
	now       func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithCrossSite issues SameSite=None cookies so pages on other origins calling
// the booking API keep one session. Such cookies are always Secure.
func WithCrossSite(enabled bool) Option {
	return func(m *Manager) { m.crossSite = enabled }
}

// NewManager returns a manager signing with secret. An empty secret gets a
// random per-process key, which invalidates sessions on restart.
func NewManager(secret string, ttl time.Duration, secure bool, logger *logging.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = logging.Default()
	}
	key := []byte(secret)
	if len(key) == 0 {
		key = randomKey()
		logger.Warn("SESSION_SECRET not set; using an ephemeral signing key")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	m := &Manager{secret: key, ttl: ttl, secure: secure, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func randomKey() []byte {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing leaves nothing sensible to sign with.
		panic(fmt.Sprintf("session: read random key: %v", err))
	}
	return []byte(hex.EncodeToString(buf))
}

// Issue signs a token for id.
func (m *Manager) Issue(id string) (string, error) {
	now := m.now()
	claims := jwt.RegisteredClaims{
		Subject:   id,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("session: sign: %w", err)
	}
	return signed, nil
}

// Verify returns the session id in token.
func (m *Manager) Verify(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return "", ErrInvalidSession
	}
	return claims.Subject, nil
}

// Middleware puts the visitor's session id on the request context, issuing a
// new cookie when the request has none or an invalid one.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie(CookieName); err == nil {
			if id, err := m.Verify(c.Value); err == nil {
				next.ServeHTTP(w, r.WithContext(WithID(r.Context(), id)))
				return
			}
		}

		id := uuid.NewString()
		token, err := m.Issue(id)
		if err != nil {
			m.logger.Error("failed to issue session", "error", err)
			http.Error(w, "session unavailable", http.StatusInternalServerError)
			return
		}
		http.SetCookie(w, m.cookie(token))
		next.ServeHTTP(w, r.WithContext(WithID(r.Context(), id)))
	})
}

func (m *Manager) cookie(token string) *http.Cookie {
	c := &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if m.crossSite {
		c.SameSite = http.SameSiteNoneMode
		c.Secure = true
	}
	return c
}

// WithID returns a context carrying the session id.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// IDFromContext returns the session id set by Middleware.
func IDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}
