package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTTokenService_RoundTrip(t *testing.T) {
	svc := NewJWTTokenService("ledger-secret", time.Hour, "economy-ledger")

	token, expires, err := svc.Generate("quest-module")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "quest-module", claims.Subject)
}

func TestJWTTokenService_Rejects(t *testing.T) {
	verifier := NewJWTTokenService("ledger-secret", time.Hour, "economy-ledger")

	mint := func(t *testing.T, svc *JWTTokenService) string {
		t.Helper()
		token, _, err := svc.Generate("shop-module")
		require.NoError(t, err)
		return token
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "shop-module",
		Issuer:    "economy-ledger",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token func(t *testing.T) string
	}{
		{"expired", func(t *testing.T) string {
			return mint(t, NewJWTTokenService("ledger-secret", -time.Minute, "economy-ledger"))
		}},
		{"other secret", func(t *testing.T) string {
			return mint(t, NewJWTTokenService("another-secret", time.Hour, "economy-ledger"))
		}},
		{"other issuer", func(t *testing.T) string {
			return mint(t, NewJWTTokenService("ledger-secret", time.Hour, "auction-house"))
		}},
		{"alg none", func(*testing.T) string { return unsigned }},
		{"garbage", func(*testing.T) string { return "not.a.jwt" }},
		{"empty", func(*testing.T) string { return "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := verifier.Validate(tt.token(t))
			assert.Error(t, err)
		})
	}
}

func TestJWTTokenService_EmptySubject(t *testing.T) {
	_, _, err := NewJWTTokenService("ledger-secret", time.Hour, "economy-ledger").Generate("")
	assert.Error(t, err)
}
