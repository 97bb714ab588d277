package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"parcelbox/internal/middleware"
	"parcelbox/internal/models"
	"parcelbox/internal/service"
)

type PackageHandler struct {
	packages *service.PackageService
	log      zerolog.Logger
}

func NewPackageHandler(packages *service.PackageService, log zerolog.Logger) *PackageHandler {
	return &PackageHandler{packages: packages, log: log}
}

// uploadMeta is the optional JSON sidecar the firmware sends in the "meta"
// form field alongside the photo.
type uploadMeta struct {
	DeviceID   string   `json:"deviceId"`
	DistanceCm *float64 `json:"distanceCm"`
	Reason     string   `json:"reason"`
	Firmware   string   `json:"firmware"`
}

func (h *PackageHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_upload"})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_upload"})
		return
	}
	defer src.Close()

	photo, err := io.ReadAll(src)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_upload"})
		return
	}

	var meta uploadMeta
	if raw := c.PostForm("meta"); raw != "" {
		// Malformed metadata does not reject the photo, it just falls back
		// to the defaults.
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			h.log.Warn().Err(err).Msg("unreadable upload metadata")
			meta = uploadMeta{}
		}
	}
	if meta.DeviceID == "" {
		if device, ok := middleware.DeviceFromContext(c); ok && device.DeviceID != "legacy" {
			meta.DeviceID = device.DeviceID
		}
	}

	pkg, err := h.packages.Ingest(c.Request.Context(), service.IngestInput{
		Photo:      photo,
		DeviceID:   meta.DeviceID,
		DistanceCm: meta.DistanceCm,
		Reason:     meta.Reason,
		Firmware:   meta.Firmware,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidUpload) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_upload"})
			return
		}
		h.log.Error().Err(err).Msg("package ingestion failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":        pkg.ID,
		"photoUrl":  pkg.PhotoURL,
		"thumbUrl":  pkg.ThumbURL,
		"timestamp": pkg.Timestamp,
	})
}

func (h *PackageHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	items, total, err := h.packages.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.log.Error().Err(err).Msg("list packages failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	if items == nil {
		items = []models.Package{}
	}

	c.JSON(http.StatusOK, gin.H{
		"packages": items,
		"total":    total,
	})
}

func (h *PackageHandler) Stats(c *gin.Context) {
	stats, err := h.packages.Stats(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("package stats failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *PackageHandler) Get(c *gin.Context) {
	id, ok := packageID(c)
	if !ok {
		return
	}

	pkg, err := h.packages.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		h.log.Error().Err(err).Int("package_id", id).Msg("get package failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	c.JSON(http.StatusOK, pkg)
}

func (h *PackageHandler) Delete(c *gin.Context) {
	id, ok := packageID(c)
	if !ok {
		return
	}

	if err := h.packages.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		h.log.Error().Err(err).Int("package_id", id).Msg("delete package failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (h *PackageHandler) Pickup(c *gin.Context) {
	id, ok := packageID(c)
	if !ok {
		return
	}

	pkg, err := h.packages.MarkPickedUp(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		case errors.Is(err, service.ErrAlreadyPickedUp):
			c.JSON(http.StatusBadRequest, gin.H{"error": "already_picked_up"})
		default:
			h.log.Error().Err(err).Int("package_id", id).Msg("pickup failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		}
		return
	}

	c.JSON(http.StatusOK, pkg)
}

// packageID parses the :id path segment. Non-numeric ids read as records
// that do not exist.
func packageID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return 0, false
	}
	return id, true
}
