package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

func TestGenerateAndParseJWT(t *testing.T) {
	userID := uuid.New()
	token, err := GenerateJWT(testSecret, userID, "ops@example.com", time.Minute)
	require.NoError(t, err)

	claims, err := ParseJWT(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", claims.Email)

	got, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestParseJWT_Rejects(t *testing.T) {
	userID := uuid.New()
	valid, err := GenerateJWT(testSecret, userID, "", time.Minute)
	require.NoError(t, err)

	sign := func(claims jwt.Claims, method jwt.SigningMethod, key any) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	future := jwt.NewNumericDate(time.Now().Add(time.Hour))

	tests := []struct {
		name  string
		token string
	}{
		{"wrong secret", mustToken(t, "other-secret", userID)},
		{"garbage", "not.a.token"},
		{"expired", sign(Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject: userID.String(), Audience: jwt.ClaimStrings{AudienceAuthenticated},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		}}, jwt.SigningMethodHS256, []byte(testSecret))},
		{"no expiry", sign(Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject: userID.String(), Audience: jwt.ClaimStrings{AudienceAuthenticated},
		}}, jwt.SigningMethodHS256, []byte(testSecret))},
		{"anon audience", sign(Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject: userID.String(), Audience: jwt.ClaimStrings{"anon"}, ExpiresAt: future,
		}}, jwt.SigningMethodHS256, []byte(testSecret))},
		{"non-uuid subject", sign(Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject: "service_role", Audience: jwt.ClaimStrings{AudienceAuthenticated}, ExpiresAt: future,
		}}, jwt.SigningMethodHS256, []byte(testSecret))},
		{"none alg", sign(Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject: userID.String(), Audience: jwt.ClaimStrings{AudienceAuthenticated}, ExpiresAt: future,
		}}, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType)},
	}

	require.NotEmpty(t, valid)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseJWT(testSecret, tt.token)
			assert.Error(t, err)
		})
	}
}

func mustToken(t *testing.T, secret string, userID uuid.UUID) string {
	t.Helper()
	token, err := GenerateJWT(secret, userID, "", time.Minute)
	require.NoError(t, err)
	return token
}
