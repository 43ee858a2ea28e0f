package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// SessionClaims is the signed payload of the session cookie. Subject carries
// the user id and ID (jti) carries the session id used for the Redis mirror.
type SessionClaims struct {
	Email     string `json:"email"`
	FirstName string `json:"fn,omitempty"`
	LastName  string `json:"ln,omitempty"`
	Image     string `json:"img,omitempty"`
	Verified  bool   `json:"ev"`
	jwt.RegisteredClaims
}

type SessionTokenManager struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
	Now    func() time.Time
}

func (m SessionTokenManager) IssueSessionToken(userID string, sessionID string, claims SessionClaims) (string, time.Time, error) {
	if userID == "" || sessionID == "" {
		return "", time.Time{}, ErrInvalidToken
	}
	now := m.now()
	expiresAt := now.Add(m.ttl())
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    m.Issuer,
		Subject:   userID,
		ID:        sessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseSessionToken verifies the signature and expiry. An expired but
// correctly signed token yields ErrTokenExpired; anything else ErrInvalidToken.
func (m SessionTokenManager) ParseSessionToken(tokenString string) (*SessionClaims, error) {
	return m.parse(tokenString, jwt.WithExpirationRequired(), jwt.WithTimeFunc(m.now))
}

// ParseSessionTokenAllowExpired verifies only the signature. Logout uses it so
// that an expired cookie can still have its mirror entry removed.
func (m SessionTokenManager) ParseSessionTokenAllowExpired(tokenString string) (*SessionClaims, error) {
	return m.parse(tokenString, jwt.WithoutClaimsValidation())
}

func (m SessionTokenManager) parse(tokenString string, opts ...jwt.ParserOption) (*SessionClaims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	parsed, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.Secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*SessionClaims)
	if !ok || !parsed.Valid || claims.Subject == "" || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	if m.Issuer != "" && claims.Issuer != m.Issuer {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (m SessionTokenManager) ttl() time.Duration {
	if m.TTL == 0 {
		return 24 * time.Hour
	}
	return m.TTL
}

func (m SessionTokenManager) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}
