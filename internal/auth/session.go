package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ayiooo/shortlink/internal/errx"
)

// MinSecretLength is the minimum HS256 key size in bytes.
const MinSecretLength = 32

const defaultIssuer = "shortlink"

// sessionClaims is the JWT payload of a session token.
type sessionClaims struct {
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// Sessions issues and verifies HS256 session tokens and manages the cookie
// that carries them.
type Sessions struct {
	secret       []byte
	ttl          time.Duration
	issuer       string
	cookieName   string
	cookieSecure bool
	now          func() time.Time
}

// SessionConfig holds configuration for Sessions.
type SessionConfig struct {
	Secret       string
	TTL          time.Duration
	Issuer       string // default: "shortlink"
	CookieName   string
	CookieSecure bool
	Now          func() time.Time // default: time.Now
}

// NewSessions validates cfg and returns a Sessions.
func NewSessions(cfg SessionConfig) (*Sessions, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, fmt.Errorf("session secret must be at least %d bytes", MinSecretLength)
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("session TTL must be positive")
	}
	if cfg.CookieName == "" {
		return nil, errors.New("session cookie name is required")
	}

	issuer := cfg.Issuer
	if issuer == "" {
		issuer = defaultIssuer
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Sessions{
		secret:       []byte(cfg.Secret),
		ttl:          cfg.TTL,
		issuer:       issuer,
		cookieName:   cfg.CookieName,
		cookieSecure: cfg.CookieSecure,
		now:          now,
	}, nil
}

// Issue signs a session token for id.
func (s *Sessions) Issue(id Identity) (string, time.Time, error) {
	const op = "auth.Sessions.Issue"

	if id.UserID == "" {
		return "", time.Time{}, errx.E(op, errx.Invalid, errors.New("user id is required"))
	}

	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.ttl)
	claims := sessionClaims{
		Email:   id.Email,
		Name:    id.Name,
		Picture: id.Picture,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, errx.E(op, errx.Internal, err)
	}
	return token, expiresAt, nil
}

// Verify parses token and returns the identity it names. Any failure is
// reported as Unauthorized.
func (s *Sessions) Verify(token string) (Identity, error) {
	const op = "auth.Sessions.Verify"

	var claims sessionClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Identity{}, errx.E(op, errx.Unauthorized, err)
	}
	if claims.Subject == "" {
		return Identity{}, errx.E(op, errx.Unauthorized, errors.New("token has no subject"))
	}

	return Identity{
		UserID:  claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
		Picture: claims.Picture,
	}, nil
}

// SetCookie writes the session cookie for token.
func (s *Sessions) SetCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(expiresAt.Sub(s.now()).Seconds()),
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie.
func (s *Sessions) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// CookieName returns the name of the session cookie.
func (s *Sessions) CookieName() string { return s.cookieName }
