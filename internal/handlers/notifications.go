package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"parcelbox/internal/models"
	"parcelbox/internal/notify"
	"parcelbox/internal/store"
)

type NotificationHandler struct {
	db  store.Store
	log zerolog.Logger
}

func NewNotificationHandler(db store.Store, log zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{db: db, log: log}
}

func (h *NotificationHandler) GetConfig(c *gin.Context) {
	cfg, err := notify.LoadConfig(c.Request.Context(), h.db)
	if err != nil {
		h.log.Error().Err(err).Msg("load notification config failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	if cfg.Recipients == nil {
		cfg.Recipients = []string{}
	}

	c.JSON(http.StatusOK, cfg)
}

func (h *NotificationHandler) UpdateConfig(c *gin.Context) {
	var cfg models.NotificationConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	if err := notify.SaveConfig(c.Request.Context(), h.db, cfg); err != nil {
		h.log.Error().Err(err).Msg("save notification config failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	c.JSON(http.StatusOK, cfg)
}
