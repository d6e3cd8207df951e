// Package auth issues and verifies the signed identity tokens that carry an
// authenticated user between requests. Tokens are stateless: there is no
// revocation list, so the TTL is the only bound on a leaked token's life.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/blogapi/internal/common"
	"github.com/dmitrijs2005/blogapi/internal/server/models"
)

// Fixed service-identifying constants. Verification requires both; a token
// minted for any other audience or by any other issuer is invalid here.
const (
	Issuer   = "api-blog-product"
	Audience = "api-users"
)

// signingMethod is pinned. Verification never negotiates the algorithm with
// the token.
var signingMethod = jwt.SigningMethodHS256

// Claims embeds the registered claims plus the subject identity the
// orchestrator threads into business-logic calls.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

// Identity is the verified subject extracted from a token.
type Identity struct {
	UserID string
	Email  string
	Name   string
}

// Service signs and verifies tokens with a server-held symmetric secret.
// It is stateless and safe for concurrent use.
type Service struct {
	secret []byte
	ttl    time.Duration
}

// NewService constructs the token service. Secret length policy is enforced
// by config validation before this point; an empty secret is still refused
// here so the service can never be constructed unsigned.
func NewService(secret string, ttl time.Duration) (*Service, error) {
	if secret == "" {
		return nil, errors.New("token service: empty secret")
	}
	if ttl <= 0 {
		return nil, errors.New("token service: non-positive ttl")
	}
	return &Service{secret: []byte(secret), ttl: ttl}, nil
}

// Issue mints a signed token for the given user, valid for the configured TTL.
func (s *Service) Issue(user *models.User) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(signingMethod, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Audience:  jwt.ClaimStrings{Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Verify checks signature, algorithm, issuer, audience and expiry. Every
// failure collapses into common.ErrorUnauthorized: the caller must not be
// able to tell a bad signature from an expired token, so the response can
// never be used as an oracle.
func (s *Service) Verify(tokenString string) (*Identity, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(Audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, common.ErrorUnauthorized
	}

	return &Identity{
		UserID: claims.UserID,
		Email:  claims.Email,
		Name:   claims.Name,
	}, nil
}
