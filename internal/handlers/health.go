package handlers

import (
	"os"

	"github.com/gofiber/fiber/v2"

	"github.com/jeshanrai/orderbot-backend/internal/storage"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	Version string
	store   storage.Store
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string, store storage.Store) *HealthHandler {
	return &HealthHandler{
		Version: version,
		store:   store,
	}
}

// Check returns the health status of the service, probing the storage
// layer with a cheap count so a dead database flips the status.
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	status := "OK"
	statusCode := fiber.StatusOK

	menuCount, err := h.store.CountMenuItems(c.Context())
	storageHealthy := err == nil
	if !storageHealthy {
		status = "degraded"
		statusCode = fiber.StatusServiceUnavailable
	}

	twilioConfigured := os.Getenv("TWILIO_ACCOUNT_SID") != "" && os.Getenv("TWILIO_AUTH_TOKEN") != ""

	return c.Status(statusCode).JSON(fiber.Map{
		"status":  status,
		"service": "OrderBot Backend",
		"version": h.Version,
		"storage": fiber.Map{
			"healthy":    storageHealthy,
			"menu_items": menuCount,
		},
		"whatsapp": fiber.Map{
			"configured": twilioConfigured,
		},
	})
}
