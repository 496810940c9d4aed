package tokens

import (
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-jwt-secret")

func TestIssueParseRoundTrip(t *testing.T) {
	raw, err := Issue(42, "user@shop.test", "admin", secret)
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	claims, err := Parse(raw, secret)
	require.NoError(t, err)
	require.Equal(t, "user@shop.test", claims.Email)
	require.Equal(t, "admin", claims.Role)

	id, err := claims.UserID()
	require.NoError(t, err)
	require.Equal(t, uint(42), id)
}

func TestParseRejectsTamperedSignature(t *testing.T) {
	raw, err := Issue(1, "a@b.test", "user", secret)
	require.NoError(t, err)

	tampered := []byte(raw)
	tampered[len(tampered)-1] ^= 0x01

	_, err = Parse(string(tampered), secret)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	raw, err := Issue(1, "a@b.test", "user", secret)
	require.NoError(t, err)

	_, err = Parse(raw, []byte("other-secret"))
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsExpired(t *testing.T) {
	claims := Claims{
		Email: "a@b.test",
		Role:  "user",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-48 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-24 * time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)

	_, err = Parse(raw, secret)
	require.ErrorIs(t, err, ErrExpiredToken)
}

func TestParseRejectsMissingSubject(t *testing.T) {
	claims := Claims{
		Email: "a@b.test",
		Role:  "user",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)

	_, err = Parse(raw, secret)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse("not-a-token", secret)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssuedSubjectIsNumeric(t *testing.T) {
	raw, err := Issue(7, "a@b.test", "user", secret)
	require.NoError(t, err)

	claims, err := Parse(raw, secret)
	require.NoError(t, err)
	_, err = strconv.ParseUint(claims.Subject, 10, 64)
	require.NoError(t, err)
}
