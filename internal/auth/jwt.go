package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token purposes. A pending token is issued after a correct password when the
// account has two-factor enabled; it can only be exchanged at the 2FA step.
const (
	PurposeSession = "session"
	PurposePending = "2fa_pending"
)

type Claims struct {
	Role    string `json:"role"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

type JWTManager struct {
	sessionKey    []byte
	pendingKey    []byte
	sessionExpiry time.Duration
	pendingExpiry time.Duration
	issuer        string
}

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
)

// NewJWTManager derives independent signing keys for session and pending
// tokens from the master secret, so neither can be replayed as the other.
func NewJWTManager(masterSecret string, sessionExpiry, pendingExpiry time.Duration, issuer string) (*JWTManager, error) {
	sessionKey, err := DeriveSessionKey([]byte(masterSecret))
	if err != nil {
		return nil, err
	}
	pendingKey, err := DerivePendingKey([]byte(masterSecret))
	if err != nil {
		return nil, err
	}
	return &JWTManager{
		sessionKey:    sessionKey,
		pendingKey:    pendingKey,
		sessionExpiry: sessionExpiry,
		pendingExpiry: pendingExpiry,
		issuer:        issuer,
	}, nil
}

// GenerateSession issues a full session token for an authenticated user.
func (m *JWTManager) GenerateSession(subject, role string) (string, error) {
	return m.generate(subject, role, PurposeSession, m.sessionKey, m.sessionExpiry)
}

// GeneratePending issues a short-lived token that is only valid for
// completing the two-factor step.
func (m *JWTManager) GeneratePending(subject, role string) (string, error) {
	return m.generate(subject, role, PurposePending, m.pendingKey, m.pendingExpiry)
}

func (m *JWTManager) generate(subject, role, purpose string, key []byte, expiry time.Duration) (string, error) {
	if subject == "" || role == "" {
		return "", ErrInvalidToken
	}

	now := time.Now()
	claims := &Claims{
		Role:    role,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(key)
}

// ValidateSession validates a session token.
func (m *JWTManager) ValidateSession(tokenString string) (*Claims, error) {
	return m.validate(tokenString, PurposeSession, m.sessionKey)
}

// ValidatePending validates a pending two-factor token.
func (m *JWTManager) ValidatePending(tokenString string) (*Claims, error) {
	return m.validate(tokenString, PurposePending, m.pendingKey)
}

func (m *JWTManager) validate(tokenString, purpose string, key []byte) (*Claims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, ErrMissingToken
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return key, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Purpose != purpose {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func TokenFromHeader(authHeader string) (string, error) {
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(parts[1]), nil
}
