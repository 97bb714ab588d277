package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"parcelbox/internal/store"
)

type HealthHandler struct {
	environment string
	db          store.Store
}

func NewHealthHandler(environment string, db store.Store) *HealthHandler {
	return &HealthHandler{environment: environment, db: db}
}

func (h *HealthHandler) Check(c *gin.Context) {
	storeStatus := "ok"
	if _, err := h.db.Get(c.Request.Context(), "packages"); err != nil && !errors.Is(err, store.ErrCollectionNotFound) {
		storeStatus = "error"
	}

	status := http.StatusOK
	if storeStatus != "ok" {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":      storeStatus,
		"environment": h.environment,
	})
}
