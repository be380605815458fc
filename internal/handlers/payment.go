package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/jeshanrai/orderbot-backend/internal/services"
)

// PaymentHandler handles payment gateway webhooks.
type PaymentHandler struct {
	payments *services.PaymentService
}

// NewPaymentHandler creates a new payment handler.
func NewPaymentHandler(payments *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// HandleWebhook processes payment gateway webhook events. The signature is
// already verified by middleware before this runs.
func (h *PaymentHandler) HandleWebhook(c *fiber.Ctx) error {
	body := c.Body()

	if err := h.payments.ProcessPaymentWebhook(c.Context(), body); err != nil {
		log.Printf("❌ Payment webhook processing failed: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "webhook processing failed",
		})
	}

	return c.JSON(fiber.Map{"status": "ok"})
}
