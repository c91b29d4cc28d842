// Package auth issues and verifies the HMAC-signed access tokens the
// HTTP layer trusts. There is no user store here; identity lives in the
// platform's account service and arrives as a signed subject + role.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Kwendataxi/kwenda-sub010/internal/domain/types"
	"github.com/Kwendataxi/kwenda-sub010/pkg/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingRole  = errors.New("token carries no role")
)

// Principal is the authenticated caller extracted from a token.
type Principal struct {
	Subject uuid.UUID
	Role    types.Role
}

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type TokenService struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}
}

// Issue signs a token for the subject. Used by the dev login endpoint
// and by tests; production tokens come from the account service with
// the same secret.
func (s *TokenService) Issue(subject uuid.UUID, role types.Role) (string, error) {
	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.New().String(),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token and returns the caller it names.
func (s *TokenService) Verify(tokenString string) (*Principal, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	subject, err := uuid.Parse(c.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}
	role := types.Role(c.Role)
	switch role {
	case types.RoleRider, types.RoleDriver, types.RoleService:
	default:
		return nil, ErrMissingRole
	}
	return &Principal{Subject: subject, Role: role}, nil
}
