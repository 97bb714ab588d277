package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"parcelbox/internal/events"
	"parcelbox/internal/middleware"
)

type DeviceHandler struct {
	bus events.Bus
	log zerolog.Logger
}

func NewDeviceHandler(bus events.Bus, log zerolog.Logger) *DeviceHandler {
	return &DeviceHandler{bus: bus, log: log}
}

type securityEventRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// SecurityEvent accepts a tamper or intrusion report from the box and queues
// the alert. The device gets its acknowledgment before any notification is
// attempted.
func (h *DeviceHandler) SecurityEvent(c *gin.Context) {
	var req securityEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	deviceID := "unknown"
	if device, ok := middleware.DeviceFromContext(c); ok {
		deviceID = device.DeviceID
	}

	event := events.NewSecurityAlert(deviceID, req.Reason)
	if err := h.bus.Publish(c.Request.Context(), event); err != nil {
		h.log.Warn().Err(err).Str("device_id", deviceID).Msg("publish security alert failed")
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}
