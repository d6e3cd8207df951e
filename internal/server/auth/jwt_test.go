package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/blogapi/internal/common"
	"github.com/dmitrijs2005/blogapi/internal/server/models"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testUser() *models.User {
	return &models.User{ID: "42", Email: "alice@example.com", Name: "Alice"}
}

func newTestService(t *testing.T, ttl time.Duration) *Service {
	t.Helper()
	s, err := NewService(testSecret, ttl)
	require.NoError(t, err)
	return s
}

func TestNewService_RefusesEmptySecret(t *testing.T) {
	_, err := NewService("", time.Hour)
	require.Error(t, err)
}

func TestNewService_RefusesNonPositiveTTL(t *testing.T) {
	_, err := NewService(testSecret, 0)
	require.Error(t, err)
}

func TestIssueVerify_RoundTrip(t *testing.T) {
	s := newTestService(t, time.Hour)
	user := testUser()

	token, err := s.Issue(user)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	id, err := s.Verify(token)
	require.NoError(t, err)
	require.Equal(t, user.ID, id.UserID)
	require.Equal(t, user.Email, id.Email)
	require.Equal(t, user.Name, id.Name)
}

// signWith builds a token with arbitrary claims and method, bypassing the
// service, to exercise each rejection path.
func signWith(t *testing.T, method jwt.SigningMethod, secret string, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func validClaims(ttl time.Duration) Claims {
	now := time.Now()
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Audience:  jwt.ClaimStrings{Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID: "42",
	}
}

func TestVerify_RejectionsAreIndistinguishable(t *testing.T) {
	s := newTestService(t, time.Hour)

	wrongIssuer := validClaims(time.Hour)
	wrongIssuer.Issuer = "someone-else"

	wrongAudience := validClaims(time.Hour)
	wrongAudience.Audience = jwt.ClaimStrings{"other-users"}

	expired := validClaims(-time.Minute)

	noExpiry := validClaims(time.Hour)
	noExpiry.ExpiresAt = nil

	tests := []struct {
		name  string
		token string
	}{
		{"wrong secret", signWith(t, jwt.SigningMethodHS256, strings.Repeat("x", 32), validClaims(time.Hour))},
		{"wrong algorithm", signWith(t, jwt.SigningMethodHS512, testSecret, validClaims(time.Hour))},
		{"wrong issuer", signWith(t, jwt.SigningMethodHS256, testSecret, wrongIssuer)},
		{"wrong audience", signWith(t, jwt.SigningMethodHS256, testSecret, wrongAudience)},
		{"expired", signWith(t, jwt.SigningMethodHS256, testSecret, expired)},
		{"missing expiry", signWith(t, jwt.SigningMethodHS256, testSecret, noExpiry)},
		{"malformed", "not.a.token"},
		{"empty", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			id, err := s.Verify(tc.token)
			require.Nil(t, id)
			// every failure mode must collapse into the same generic error
			require.True(t, errors.Is(err, common.ErrorUnauthorized),
				"got %v, want common.ErrorUnauthorized", err)
			require.Equal(t, common.ErrorUnauthorized.Error(), err.Error(),
				"error text must not leak the failure cause")
		})
	}
}

func TestVerify_ExpiryIsEnforced(t *testing.T) {
	s := newTestService(t, time.Millisecond)
	token, err := s.Issue(testUser())
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	_, err = s.Verify(token)
	require.ErrorIs(t, err, common.ErrorUnauthorized)
}
