package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenInvalid indicates the access token is malformed or its signature
	// failed verification.
	ErrTokenInvalid = errors.New("access token invalid")
	// ErrTokenExpired indicates the access token elapsed its lifetime.
	ErrTokenExpired = errors.New("access token expired")
)

// AccessTokenClaims augments registered claims with session context. The session
// id is authoritative: validation always consults the session store, so a
// well-signed token for a terminated session never validates.
type AccessTokenClaims struct {
	PrincipalID string `json:"pid"`
	SessionID   string `json:"sid"`
	Role        string `json:"role"`
	jwt.RegisteredClaims
}

// TokenSigner creates and verifies HMAC-signed access tokens.
type TokenSigner struct {
	secret   []byte
	issuer   string
	audience string
}

// NewTokenSigner constructs a TokenSigner.
func NewTokenSigner(secret, issuer string) (*TokenSigner, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	return &TokenSigner{secret: []byte(secret), issuer: issuer, audience: issuer}, nil
}

// Sign issues an access token for the given principal and session.
func (s *TokenSigner) Sign(principalID, sessionID, role, jti string, issuedAt time.Time, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	claims := AccessTokenClaims{
		PrincipalID: principalID,
		SessionID:   sessionID,
		Role:        role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principalID,
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
			ID:        jti,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// Parse validates the access token and returns its claims.
func (s *TokenSigner) Parse(token string) (*AccessTokenClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrTokenInvalid
	}

	claims := &AccessTokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithAudience(s.audience))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	if parsed == nil || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	if strings.TrimSpace(claims.PrincipalID) == "" || strings.TrimSpace(claims.SessionID) == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
