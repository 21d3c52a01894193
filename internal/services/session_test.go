package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionSignerRoundTrip(t *testing.T) {
	signer := NewSessionSigner("secret", time.Hour)

	token, expires, err := signer.Issue("user-1", false)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	claims, err := signer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.False(t, claims.Degraded)
}

func TestSessionSignerDegradedClaim(t *testing.T) {
	signer := NewSessionSigner("secret", time.Hour)
	token, _, err := signer.Issue("transient_usrX", true)
	require.NoError(t, err)

	claims, err := signer.Verify(token)
	require.NoError(t, err)
	assert.True(t, claims.Degraded)
}

func TestSessionSignerRejects(t *testing.T) {
	signer := NewSessionSigner("secret", time.Hour)
	token, _, err := signer.Issue("user-1", false)
	require.NoError(t, err)

	other := NewSessionSigner("other", time.Hour)
	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidSession)

	expired := NewSessionSigner("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = expired.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidSession)

	_, err = signer.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidSession)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = signer.Verify(none)
	assert.ErrorIs(t, err, ErrInvalidSession)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = signer.Verify(noSubject)
	assert.ErrorIs(t, err, ErrInvalidSession)
}
