package auth

import (
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultTokenTTL is the lifetime of an access token when none is configured.
	DefaultTokenTTL = 30 * time.Minute

	claimSubject   = "sub"
	claimExpiresAt = "exp"
	claimIssuedAt  = "iat"
)

var (
	// ErrInvalidToken is returned for any token that fails decoding,
	// signature, algorithm or expiry checks.
	ErrInvalidToken = errors.New("invalid token")

	// ErrMissingSubject is returned when a claim set has no subject.
	ErrMissingSubject = errors.New("missing subject")
)

// Tokens issues and verifies HMAC-signed access tokens.
type Tokens struct {
	secret []byte
	method *jwt.SigningMethodHMAC
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens constructs a Tokens for the given secret and algorithm name
// (HS256, HS384 or HS512). A non-positive ttl selects DefaultTokenTTL.
func NewTokens(secret, algorithm string, ttl time.Duration) (*Tokens, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("jwt secret is required")
	}

	var method *jwt.SigningMethodHMAC
	switch strings.ToUpper(strings.TrimSpace(algorithm)) {
	case "", "HS256":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("unsupported jwt algorithm %q", algorithm)
	}

	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	return &Tokens{
		secret: []byte(secret),
		method: method,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// SetClock replaces the time source used for issuing and verifying.
func (t *Tokens) SetClock(now func() time.Time) {
	t.now = now
}

// TTL returns the lifetime of issued tokens.
func (t *Tokens) TTL() time.Duration {
	return t.ttl
}

// Issue signs a copy of claims with exp and iat added. The claims must
// carry a non-empty "sub".
func (t *Tokens) Issue(claims map[string]any) (string, error) {
	subject, _ := claims[claimSubject].(string)
	if strings.TrimSpace(subject) == "" {
		return "", ErrMissingSubject
	}

	now := t.now()
	toEncode := jwt.MapClaims{}
	maps.Copy(toEncode, claims)
	toEncode[claimIssuedAt] = jwt.NewNumericDate(now)
	toEncode[claimExpiresAt] = jwt.NewNumericDate(now.Add(t.ttl))

	token := jwt.NewWithClaims(t.method, toEncode)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// IssueFor signs a token whose subject is subject.
func (t *Tokens) IssueFor(subject string) (string, error) {
	return t.Issue(map[string]any{claimSubject: subject})
}

// Subject verifies tokenString and returns its subject.
func (t *Tokens) Subject(tokenString string) (string, error) {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != t.method.Alg() {
			return nil, errors.New("invalid signing method")
		}
		return t.secret, nil
	},
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return "", ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", ErrMissingSubject
	}
	return claims.Subject, nil
}
