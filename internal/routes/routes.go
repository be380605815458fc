package routes

import (
	"os"

	"github.com/gofiber/fiber/v2"

	"github.com/jeshanrai/orderbot-backend/internal/handlers"
	"github.com/jeshanrai/orderbot-backend/internal/middleware"
	"github.com/jeshanrai/orderbot-backend/internal/services"
	"github.com/jeshanrai/orderbot-backend/internal/storage"
)

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, store storage.Store, orchestrator *services.Orchestrator, payments *services.PaymentService) {
	whatsappHandler := handlers.NewWhatsAppHandler(orchestrator)
	paymentHandler := handlers.NewPaymentHandler(payments)
	menuHandler := handlers.NewMenuHandler(store)
	healthHandler := handlers.NewHealthHandler("1.0.0", store)

	// Root endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Welcome to OrderBot Backend!",
			"version": "1.0.0",
			"endpoints": fiber.Map{
				"health":        "/health",
				"webhook":       "/webhook/whatsapp",
				"payments":      "/webhook/payment",
				"test_whatsapp": "/test/whatsapp",
				"admin":         "/admin",
			},
		})
	})

	app.Get("/health", healthHandler.Check)

	// ========== WEBHOOK ROUTES ==========
	webhooks := app.Group("/webhook")

	// WhatsApp webhook - environment-aware validation
	if os.Getenv("ENVIRONMENT") == "development" || os.Getenv("DISABLE_WEBHOOK_VALIDATION") == "true" {
		// Development: skip validation for ngrok
		webhooks.Post("/whatsapp", whatsappHandler.HandleWebhook)
		if os.Getenv("ENVIRONMENT") == "development" {
			println("⚠️  WhatsApp webhook validation DISABLED for development")
		}
	} else {
		webhooks.Post("/whatsapp", middleware.ValidateTwilioSignature(), whatsappHandler.HandleWebhook)
	}

	// Payment gateway webhook, always signature-checked
	webhooks.Post("/payment", middleware.ValidatePaymentSignature(payments), paymentHandler.HandleWebhook)

	// ========== TEST ROUTES (Development Only) ==========
	app.Post("/test/whatsapp", whatsappHandler.HandleTestWebhook)

	// ========== ADMIN ROUTES ==========
	admin := app.Group("/admin")
	admin.Get("/menu", menuHandler.ListItems)
	admin.Post("/menu", menuHandler.UpsertItem)
}
