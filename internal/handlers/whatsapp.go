package handlers

import (
	"context"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jeshanrai/orderbot-backend/internal/services"
)

// WhatsAppHandler handles WhatsApp webhook requests from Twilio.
type WhatsAppHandler struct {
	orchestrator *services.Orchestrator
}

// NewWhatsAppHandler creates a new WhatsApp handler.
func NewWhatsAppHandler(orchestrator *services.Orchestrator) *WhatsAppHandler {
	return &WhatsAppHandler{orchestrator: orchestrator}
}

// TwilioWebhookPayload represents an incoming WhatsApp message from Twilio.
type TwilioWebhookPayload struct {
	MessageSid    string `form:"MessageSid"`
	AccountSid    string `form:"AccountSid"`
	From          string `form:"From"` // WhatsApp number (whatsapp:+9779812345678)
	To            string `form:"To"`   // Your Twilio number
	Body          string `form:"Body"` // Message text
	ButtonPayload string `form:"ButtonPayload"`
	ButtonText    string `form:"ButtonText"`
	ListId        string `form:"ListId"`
	ListTitle     string `form:"ListTitle"`
	Latitude      string `form:"Latitude"`
	Longitude     string `form:"Longitude"`
	Address       string `form:"Address"`
}

// HandleWebhook processes incoming WhatsApp messages. The pipeline runs in
// a goroutine so Twilio gets its 200 immediately; the reply goes out over
// the Twilio send API, not the webhook response.
func (h *WhatsAppHandler) HandleWebhook(c *fiber.Ctx) error {
	var payload TwilioWebhookPayload

	if err := c.BodyParser(&payload); err != nil {
		log.Printf("Error parsing webhook: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid webhook payload",
		})
	}

	if payload.From == "" {
		// Status callbacks and delivery receipts land here too.
		return c.SendStatus(fiber.StatusOK)
	}

	log.Printf("📱 WhatsApp message from %s: %s", payload.From, payload.Body)

	from := strings.TrimPrefix(payload.From, "whatsapp:")
	ev := services.InboundEvent{
		Platform:      "whatsapp",
		From:          from,
		EventID:       payload.MessageSid,
		Text:          payload.Body,
		ButtonPayload: payload.ButtonPayload,
		ButtonText:    payload.ButtonText,
		ListID:        payload.ListId,
		ListTitle:     payload.ListTitle,
		Latitude:      payload.Latitude,
		Longitude:     payload.Longitude,
		Address:       payload.Address,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		h.orchestrator.HandleEvent(ctx, ev)
	}()

	return c.SendStatus(fiber.StatusOK)
}

// TestWebhookPayload is the shape of a simulated message for development.
type TestWebhookPayload struct {
	From     string `json:"from"`
	Message  string `json:"message"`
	EventID  string `json:"event_id"`
	ButtonID string `json:"button_id"`
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

// HandleTestWebhook processes test WhatsApp messages (for development). It
// runs the pipeline synchronously so the caller sees errors in the logs
// before the response returns.
func (h *WhatsAppHandler) HandleTestWebhook(c *fiber.Ctx) error {
	var payload TestWebhookPayload

	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid test payload",
		})
	}

	log.Printf("🧪 Test webhook from %s: %s", payload.From, payload.Message)

	eventID := payload.EventID
	if eventID == "" {
		eventID = "test-" + strconv.FormatInt(time.Now().UnixNano(), 10)
	}

	ev := services.InboundEvent{
		Platform:      "whatsapp",
		From:          payload.From,
		EventID:       eventID,
		Text:          payload.Message,
		ButtonPayload: payload.ButtonID,
	}
	if payload.ItemID != "" {
		ev.CatalogItems = []services.CatalogOrderItem{{ItemID: payload.ItemID, Quantity: payload.Quantity}}
	}

	ctx, cancel := context.WithTimeout(c.Context(), 60*time.Second)
	defer cancel()
	h.orchestrator.HandleEvent(ctx, ev)

	return c.JSON(fiber.Map{"success": true})
}
