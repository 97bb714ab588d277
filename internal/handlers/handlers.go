// Package handlers maps the HTTP surface onto the services. Handlers stay
// thin: bind, call, translate errors to status codes.
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"parcelbox/internal/config"
	"parcelbox/internal/events"
	"parcelbox/internal/middleware"
	"parcelbox/internal/security"
	"parcelbox/internal/service"
	"parcelbox/internal/session"
	"parcelbox/internal/store"
)

type HandlerSet struct {
	Auth          *AuthHandler
	Packages      *PackageHandler
	Device        *DeviceHandler
	Notifications *NotificationHandler
	Health        *HealthHandler

	tokens       *security.TokenIssuer
	sessions     *session.Store
	legacySecret string
}

func NewHandlerSet(
	cfg *config.AppConfig,
	auth *service.AuthService,
	packages *service.PackageService,
	tokens *security.TokenIssuer,
	sessions *session.Store,
	db store.Store,
	bus events.Bus,
	log zerolog.Logger,
) HandlerSet {
	return HandlerSet{
		Auth:          NewAuthHandler(auth, log),
		Packages:      NewPackageHandler(packages, log),
		Device:        NewDeviceHandler(bus, log),
		Notifications: NewNotificationHandler(db, log),
		Health:        NewHealthHandler(cfg.Environment, db),

		tokens:       tokens,
		sessions:     sessions,
		legacySecret: cfg.Security.LegacyDeviceToken,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health.Check)

	v1 := router.Group("/v1")

	userAuth := middleware.UserAuth(h.tokens, h.sessions)
	deviceAuth := middleware.DeviceAuth(h.tokens, h.legacySecret)

	auth := v1.Group("/auth")
	auth.POST("/login", h.Auth.Login)
	auth.POST("/logout", userAuth, h.Auth.Logout)
	auth.GET("/session", userAuth, h.Auth.Session)

	packages := v1.Group("/packages")
	packages.POST("", deviceAuth, h.Packages.Upload)
	packages.GET("", userAuth, h.Packages.List)
	packages.GET("/stats", userAuth, h.Packages.Stats)
	packages.GET("/:id", userAuth, h.Packages.Get)
	packages.DELETE("/:id", userAuth, h.Packages.Delete)
	packages.POST("/:id/pickup", userAuth, h.Packages.Pickup)

	deviceEvents := v1.Group("/events", deviceAuth)
	deviceEvents.POST("/security", h.Device.SecurityEvent)

	notifications := v1.Group("/notifications", userAuth)
	notifications.GET("/config", h.Notifications.GetConfig)
	notifications.PUT("/config", h.Notifications.UpdateConfig)

	devices := v1.Group("/devices", userAuth)
	devices.POST("/token", h.Auth.IssueDeviceToken)
}
