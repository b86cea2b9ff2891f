package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mercadia/storefront-backend/pkg/config"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

var errInvalidSigningMethod = errors.New("unexpected token signing method")

// Claims is the identity payload this service trusts. Tokens are minted by the
// identity platform; here we only verify and read them.
type Claims struct {
	CustomerID uuid.UUID `json:"-"`
	Email      string    `json:"email,omitempty"`
	Role       string    `json:"role"`
	jwt.RegisteredClaims
}

// ParseToken verifies the bearer token signature/issuer and extracts claims.
func ParseToken(cfg config.JWTConfig, raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errInvalidSigningMethod
		}
		return []byte(cfg.Secret), nil
	}, jwt.WithIssuer(cfg.Issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("token is not valid")
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return nil, errors.New("token subject missing")
	}
	customerID, err := uuid.Parse(subject)
	if err != nil {
		return nil, fmt.Errorf("token subject is not a customer id: %w", err)
	}
	claims.CustomerID = customerID

	if claims.Role == "" {
		claims.Role = RoleCustomer
	}
	return claims, nil
}

// IssueToken signs a token for the given customer. Production tokens come from
// the identity platform; this exists for local development and tests.
func IssueToken(cfg config.JWTConfig, customerID uuid.UUID, role string, ttl time.Duration) (string, error) {
	if role == "" {
		role = RoleCustomer
	}
	now := time.Now()
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   customerID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.Secret))
}
