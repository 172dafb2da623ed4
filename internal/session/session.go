// Package session issues and verifies the signed access tokens that unlock the
// editor and broadcast panel of a single event.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Scope names the capability a token grants.
type Scope string

const (
	ScopeEdit      Scope = "edit"
	ScopeBroadcast Scope = "broadcast"
)

const issuer = "takt"

var (
	ErrInvalidToken = errors.New("session: invalid token")
	ErrExpiredToken = errors.New("session: token has expired")
	ErrWrongEvent   = errors.New("session: token belongs to another event")
	ErrScope        = errors.New("session: token scope is insufficient")
)

// ParseScope accepts the textual scope names used in forms and cookies.
func ParseScope(value string) (Scope, bool) {
	switch Scope(value) {
	case ScopeEdit:
		return ScopeEdit, true
	case ScopeBroadcast:
		return ScopeBroadcast, true
	}
	return "", false
}

// Allows reports whether a token of scope s may perform an action requiring
// required. Edit access includes broadcast access.
func (s Scope) Allows(required Scope) bool {
	if s == required {
		return true
	}
	return s == ScopeEdit && required == ScopeBroadcast
}

// Claims is the payload of an access token.
type Claims struct {
	Slug     string `json:"slug"`
	Scope    Scope  `json:"scope"`
	Remember bool   `json:"rem,omitempty"`
	jwt.RegisteredClaims
}

// Token is a freshly issued access token.
type Token struct {
	Value      string
	Scope      Scope
	ExpiresAt  time.Time
	Persistent bool
}

// Manager signs tokens with HS256.
type Manager struct {
	secret      []byte
	ttl         time.Duration
	rememberTTL time.Duration
	now         func() time.Time
}

// NewManager validates its inputs and returns a Manager. A nil now uses time.Now.
func NewManager(secret string, ttl, rememberTTL time.Duration, now func() time.Time) (*Manager, error) {
	if len(secret) < 16 {
		return nil, fmt.Errorf("session: secret must be at least 16 bytes")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("session: ttl must be positive")
	}
	if rememberTTL < ttl {
		rememberTTL = ttl
	}
	if now == nil {
		now = time.Now
	}
	return &Manager{
		secret:      []byte(secret),
		ttl:         ttl,
		rememberTTL: rememberTTL,
		now:         now,
	}, nil
}

// Issue signs a token for slug. Remembered tokens live for the remember TTL and
// are meant to be stored in a persistent cookie; others in a session cookie.
func (m *Manager) Issue(slug string, scope Scope, remember bool) (Token, error) {
	if slug == "" {
		return Token{}, fmt.Errorf("session: slug is required")
	}
	if _, ok := ParseScope(string(scope)); !ok {
		return Token{}, fmt.Errorf("session: unknown scope %q", scope)
	}

	now := m.now()
	ttl := m.ttl
	if remember {
		ttl = m.rememberTTL
	}
	expires := now.Add(ttl)

	claims := &Claims{
		Slug:     slug,
		Scope:    scope,
		Remember: remember,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   slug,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return Token{}, fmt.Errorf("session: sign token: %w", err)
	}
	return Token{
		Value:      signed,
		Scope:      scope,
		ExpiresAt:  expires.Truncate(time.Second),
		Persistent: remember,
	}, nil
}

// Verify parses value and checks that it grants required on slug.
func (m *Manager) Verify(value, slug string, required Scope) (Claims, error) {
	if value == "" {
		return Claims{}, ErrInvalidToken
	}
	token, err := jwt.ParseWithClaims(value, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpiredToken
		}
		return Claims{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Claims{}, ErrInvalidToken
	}
	if claims.Slug != slug {
		return Claims{}, ErrWrongEvent
	}
	if !claims.Scope.Allows(required) {
		return Claims{}, ErrScope
	}
	return *claims, nil
}

// CookieName is the cookie holding a token of the given scope. Cookies are
// path-scoped to the event, so one name per scope is enough.
func CookieName(scope Scope) string {
	return "takt_" + string(scope)
}
