package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"parcelbox/internal/models"
	"parcelbox/internal/security"
	"parcelbox/internal/session"
)

const (
	ctxUsername = "username"
	ctxSession  = "user_session"
	ctxDevice   = "device_identity"
)

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	return strings.TrimPrefix(header, "Bearer "), true
}

// UserAuth admits requests carrying a valid user token backed by a live
// session. Both expiries are enforced: the token's own and the session
// record's. On success the session's activity clock is touched; rejections
// never mutate state.
func UserAuth(tokens *security.TokenIssuer, sessions *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no_token"})
			return
		}

		claims, err := tokens.VerifyUserToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
			return
		}

		sess, err := sessions.FindByToken(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session_not_found"})
			return
		}

		if sess.Expired() {
			_, _ = sessions.Delete(c.Request.Context(), token)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session_expired"})
			return
		}

		_, _ = sessions.Touch(c.Request.Context(), token)

		c.Set(ctxUsername, claims.Username)
		c.Set(ctxSession, sess)

		c.Next()
	}
}

// DeviceAuth tries the signed device token first and only then the
// configured legacy shared secret, never the reverse. The legacy path goes
// away entirely when the secret is configured empty.
func DeviceAuth(tokens *security.TokenIssuer, legacySecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no_device_token"})
			return
		}

		if claims, err := tokens.VerifyDeviceToken(token); err == nil {
			c.Set(ctxDevice, DeviceIdentity{DeviceID: claims.DeviceID, Type: claims.Type})
			c.Next()
			return
		}

		if legacySecret != "" && token == legacySecret {
			c.Set(ctxDevice, DeviceIdentity{DeviceID: "legacy", Type: "device"})
			c.Next()
			return
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_device_token"})
	}
}

type DeviceIdentity struct {
	DeviceID string
	Type     string
}

func UsernameFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxUsername)
	if !ok {
		return "", false
	}
	username, ok := v.(string)
	return username, ok
}

func SessionFromContext(c *gin.Context) (models.Session, bool) {
	v, ok := c.Get(ctxSession)
	if !ok {
		return models.Session{}, false
	}
	sess, ok := v.(models.Session)
	return sess, ok
}

func DeviceFromContext(c *gin.Context) (DeviceIdentity, bool) {
	v, ok := c.Get(ctxDevice)
	if !ok {
		return DeviceIdentity{}, false
	}
	device, ok := v.(DeviceIdentity)
	return device, ok
}
