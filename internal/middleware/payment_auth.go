package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jeshanrai/orderbot-backend/internal/services"
)

// ValidatePaymentSignature validates the payment gateway's HMAC-SHA256
// signature over the raw webhook body.
func ValidatePaymentSignature(payments *services.PaymentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		signature := c.Get("X-Payment-Signature")
		if signature == "" {
			return c.Status(401).JSON(fiber.Map{
				"error": "Missing payment signature",
			})
		}

		if !payments.VerifySignature(c.Body(), signature) {
			return c.Status(401).JSON(fiber.Map{
				"error": "Invalid signature",
			})
		}

		return c.Next()
	}
}
