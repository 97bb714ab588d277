package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"parcelbox/internal/config"
)

// ErrInvalidToken covers every verification failure: malformed input, bad
// signature, expiry, wrong token kind. Callers never see parser internals.
var ErrInvalidToken = errors.New("invalid token")

const deviceTokenType = "device"

type UserClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type DeviceClaims struct {
	DeviceID string `json:"deviceId"`
	Type     string `json:"type"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies the two independent token kinds. User and
// device tokens use separate secrets, so neither can ever verify as the
// other.
type TokenIssuer struct {
	userSecret   []byte
	deviceSecret []byte
	userTTL      time.Duration
	deviceTTL    time.Duration
}

func NewTokenIssuer(cfg config.SecurityConfig) *TokenIssuer {
	return &TokenIssuer{
		userSecret:   []byte(cfg.UserSecret),
		deviceSecret: []byte(cfg.DeviceSecret),
		userTTL:      cfg.UserTokenTTL,
		deviceTTL:    cfg.DeviceTokenTTL,
	}
}

func (i *TokenIssuer) IssueUserToken(username string) (string, error) {
	now := time.Now()
	claims := UserClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.userTTL)),
			Subject:   username,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.userSecret)
	if err != nil {
		return "", fmt.Errorf("sign user token: %w", err)
	}
	return signed, nil
}

func (i *TokenIssuer) VerifyUserToken(tokenStr string) (*UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.userSecret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*UserClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (i *TokenIssuer) IssueDeviceToken(deviceID string) (string, error) {
	now := time.Now()
	claims := DeviceClaims{
		DeviceID: deviceID,
		Type:     deviceTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.deviceTTL)),
			Subject:   deviceID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.deviceSecret)
	if err != nil {
		return "", fmt.Errorf("sign device token: %w", err)
	}
	return signed, nil
}

// VerifyDeviceToken checks signature and expiry, and additionally rejects
// any payload whose type claim is not "device" so a user token can never be
// replayed against a device endpoint.
func (i *TokenIssuer) VerifyDeviceToken(tokenStr string) (*DeviceClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &DeviceClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.deviceSecret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*DeviceClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != deviceTokenType {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
