package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"parcelbox/internal/config"
)

func testIssuer() *TokenIssuer {
	return NewTokenIssuer(config.SecurityConfig{
		UserSecret:     "user-secret",
		DeviceSecret:   "device-secret",
		UserTokenTTL:   24 * time.Hour,
		DeviceTokenTTL: 365 * 24 * time.Hour,
	})
}

func TestUserTokenRoundTrip(t *testing.T) {
	issuer := testIssuer()

	token, err := issuer.IssueUserToken("alice")
	require.NoError(t, err)

	claims, err := issuer.VerifyUserToken(token)
	require.NoError(t, err)
	require.Equal(t, "alice", claims.Username)
	require.WithinDuration(t, time.Now().Add(24*time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestDeviceTokenRoundTrip(t *testing.T) {
	issuer := testIssuer()

	token, err := issuer.IssueDeviceToken("esp32-cam")
	require.NoError(t, err)

	claims, err := issuer.VerifyDeviceToken(token)
	require.NoError(t, err)
	require.Equal(t, "esp32-cam", claims.DeviceID)
	require.Equal(t, "device", claims.Type)
}

// A user token must never pass device verification, and vice versa.
func TestCrossKindRejection(t *testing.T) {
	issuer := testIssuer()

	userToken, err := issuer.IssueUserToken("alice")
	require.NoError(t, err)
	_, err = issuer.VerifyDeviceToken(userToken)
	require.ErrorIs(t, err, ErrInvalidToken)

	deviceToken, err := issuer.IssueDeviceToken("esp32-cam")
	require.NoError(t, err)
	_, err = issuer.VerifyUserToken(deviceToken)
	require.ErrorIs(t, err, ErrInvalidToken)
}

// Even with shared secrets the type claim keeps the kinds apart.
func TestDeviceVerifyRejectsWrongTypeWithSharedSecret(t *testing.T) {
	shared := NewTokenIssuer(config.SecurityConfig{
		UserSecret:     "same-secret",
		DeviceSecret:   "same-secret",
		UserTokenTTL:   time.Hour,
		DeviceTokenTTL: time.Hour,
	})

	userToken, err := shared.IssueUserToken("alice")
	require.NoError(t, err)

	_, err = shared.VerifyDeviceToken(userToken)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyMalformedToken(t *testing.T) {
	issuer := testIssuer()

	for _, bad := range []string{"", "garbage", "a.b.c"} {
		_, err := issuer.VerifyUserToken(bad)
		require.ErrorIs(t, err, ErrInvalidToken)
		_, err = issuer.VerifyDeviceToken(bad)
		require.ErrorIs(t, err, ErrInvalidToken)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	expired := NewTokenIssuer(config.SecurityConfig{
		UserSecret:     "user-secret",
		DeviceSecret:   "device-secret",
		UserTokenTTL:   -time.Minute,
		DeviceTokenTTL: -time.Minute,
	})

	token, err := expired.IssueUserToken("alice")
	require.NoError(t, err)
	_, err = expired.VerifyUserToken(token)
	require.ErrorIs(t, err, ErrInvalidToken)

	deviceToken, err := expired.IssueDeviceToken("esp32-cam")
	require.NoError(t, err)
	_, err = expired.VerifyDeviceToken(deviceToken)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyWrongSecret(t *testing.T) {
	issuer := testIssuer()
	other := NewTokenIssuer(config.SecurityConfig{
		UserSecret:     "different",
		DeviceSecret:   "also-different",
		UserTokenTTL:   time.Hour,
		DeviceTokenTTL: time.Hour,
	})

	token, err := issuer.IssueUserToken("alice")
	require.NoError(t, err)
	_, err = other.VerifyUserToken(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)

	ok, err := VerifyPassword("correct horse battery staple", hash)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = VerifyPassword("wrong password", hash)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	_, err := VerifyPassword("anything", "not-a-hash")
	require.Error(t, err)
}
