package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"parcelbox/internal/config"
	"parcelbox/internal/security"
	"parcelbox/internal/session"
	"parcelbox/internal/store"
)

func testIssuer() *security.TokenIssuer {
	return security.NewTokenIssuer(config.SecurityConfig{
		UserSecret:     "user-secret",
		DeviceSecret:   "device-secret",
		UserTokenTTL:   time.Hour,
		DeviceTokenTTL: time.Hour,
	})
}

func userRouter(tokens *security.TokenIssuer, sessions *session.Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", UserAuth(tokens, sessions), func(c *gin.Context) {
		username, ok := UsernameFromContext(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"username": username})
	})
	return r
}

func doGet(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestUserAuthNoToken(t *testing.T) {
	tokens := testIssuer()
	sessions := session.NewStore(store.NewMemoryStore(), time.Hour, zerolog.Nop())
	r := userRouter(tokens, sessions)

	w := doGet(r, "/protected", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "no_token")
}

func TestUserAuthInvalidToken(t *testing.T) {
	tokens := testIssuer()
	sessions := session.NewStore(store.NewMemoryStore(), time.Hour, zerolog.Nop())
	r := userRouter(tokens, sessions)

	w := doGet(r, "/protected", "not-a-jwt")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "invalid_token")
}

func TestUserAuthSessionNotFound(t *testing.T) {
	tokens := testIssuer()
	sessions := session.NewStore(store.NewMemoryStore(), time.Hour, zerolog.Nop())
	r := userRouter(tokens, sessions)

	// Valid token, but no session was ever created for it.
	token, err := tokens.IssueUserToken("alice")
	require.NoError(t, err)

	w := doGet(r, "/protected", token)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "session_not_found")
}

func TestUserAuthSessionExpiredThenGone(t *testing.T) {
	tokens := testIssuer()
	db := store.NewMemoryStore()
	expired := session.NewStore(db, -time.Minute, zerolog.Nop())
	sessions := session.NewStore(db, time.Hour, zerolog.Nop())
	r := userRouter(tokens, sessions)

	token, err := tokens.IssueUserToken("alice")
	require.NoError(t, err)
	_, err = expired.Create(context.Background(), "alice", token)
	require.NoError(t, err)

	// The expired-session rejection also deletes the session record.
	w := doGet(r, "/protected", token)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "session_expired")

	w = doGet(r, "/protected", token)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "session_not_found")
}

func TestUserAuthSuccessTouchesActivity(t *testing.T) {
	tokens := testIssuer()
	sessions := session.NewStore(store.NewMemoryStore(), time.Hour, zerolog.Nop())
	r := userRouter(tokens, sessions)

	token, err := tokens.IssueUserToken("alice")
	require.NoError(t, err)
	created, err := sessions.Create(context.Background(), "alice", token)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	w := doGet(r, "/protected", token)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "alice")

	after, err := sessions.FindByToken(context.Background(), token)
	require.NoError(t, err)
	require.True(t, after.LastActivity.After(created.LastActivity))
}

func deviceRouter(tokens *security.TokenIssuer, legacySecret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/upload", DeviceAuth(tokens, legacySecret), func(c *gin.Context) {
		device, ok := DeviceFromContext(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deviceId": device.DeviceID})
	})
	return r
}

func doPost(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestDeviceAuthNoToken(t *testing.T) {
	r := deviceRouter(testIssuer(), "")
	w := doPost(r, "/upload", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "no_device_token")
}

func TestDeviceAuthSignedToken(t *testing.T) {
	tokens := testIssuer()
	r := deviceRouter(tokens, "")

	token, err := tokens.IssueDeviceToken("esp32-cam")
	require.NoError(t, err)

	w := doPost(r, "/upload", token)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "esp32-cam")
}

func TestDeviceAuthRejectsUserToken(t *testing.T) {
	tokens := testIssuer()
	r := deviceRouter(tokens, "")

	token, err := tokens.IssueUserToken("alice")
	require.NoError(t, err)

	w := doPost(r, "/upload", token)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "invalid_device_token")
}

func TestDeviceAuthLegacyFallback(t *testing.T) {
	r := deviceRouter(testIssuer(), "shared-legacy-secret")

	w := doPost(r, "/upload", "shared-legacy-secret")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "legacy")
}

func TestDeviceAuthLegacyDisabledWhenUnset(t *testing.T) {
	// Empty legacy secret means an empty-ish bearer value must not match.
	r := deviceRouter(testIssuer(), "")

	w := doPost(r, "/upload", "shared-legacy-secret")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "invalid_device_token")
}
