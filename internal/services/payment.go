package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jeshanrai/orderbot-backend/internal/models"
	"github.com/jeshanrai/orderbot-backend/internal/storage"
)

// PaymentLinks creates hosted checkout links for confirmed orders.
type PaymentLinks interface {
	CreateCheckoutLink(ctx context.Context, order *models.Order) (string, error)
}

// PaymentService creates checkout links and processes payment gateway
// webhooks, notifying the user over chat when a payment lands.
type PaymentService struct {
	store        storage.Store
	sessions     storage.SessionStore
	renderer     Renderer
	checkoutBase string
	secret       string
}

// NewPaymentService builds the payment service from PAYMENT_CHECKOUT_BASE
// and PAYMENT_WEBHOOK_SECRET.
func NewPaymentService(store storage.Store, sessions storage.SessionStore, renderer Renderer) *PaymentService {
	return &PaymentService{
		store:        store,
		sessions:     sessions,
		renderer:     renderer,
		checkoutBase: os.Getenv("PAYMENT_CHECKOUT_BASE"),
		secret:       os.Getenv("PAYMENT_WEBHOOK_SECRET"),
	}
}

// CreateCheckoutLink returns a signed hosted-checkout URL for the order.
func (p *PaymentService) CreateCheckoutLink(ctx context.Context, order *models.Order) (string, error) {
	if p.checkoutBase == "" {
		return "", fmt.Errorf("PAYMENT_CHECKOUT_BASE not configured")
	}
	sig := p.sign([]byte(order.OrderID + order.Total.StringFixed(2)))
	return fmt.Sprintf("%s/pay/%s?amount=%s&sig=%s",
		p.checkoutBase, order.OrderID, order.Total.StringFixed(2), sig), nil
}

// PaymentWebhookPayload is the gateway's webhook envelope.
type PaymentWebhookPayload struct {
	Event     string         `json:"event"`
	Payload   map[string]any `json:"payload"`
	CreatedAt int64          `json:"created_at"`
}

// ProcessPaymentWebhook handles payment gateway webhooks.
func (p *PaymentService) ProcessPaymentWebhook(ctx context.Context, body []byte) error {
	var webhook PaymentWebhookPayload
	if err := json.Unmarshal(body, &webhook); err != nil {
		return fmt.Errorf("failed to parse payment webhook: %v", err)
	}

	log.Printf("Processing payment webhook: %s", webhook.Event)

	switch webhook.Event {
	case "payment.captured":
		return p.handlePaymentCaptured(ctx, webhook.Payload)
	case "payment.failed":
		return p.handlePaymentFailed(ctx, webhook.Payload)
	default:
		log.Printf("Unhandled payment webhook event: %s", webhook.Event)
		return nil
	}
}

func (p *PaymentService) handlePaymentCaptured(ctx context.Context, payload map[string]any) error {
	paymentID, orderID, err := extractPaymentRef(payload)
	if err != nil {
		return err
	}

	order, err := p.store.GetOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("order not found for payment %s: %v", paymentID, err)
	}

	now := time.Now()
	order.Status = models.OrderStatusPaid
	order.PaymentID = paymentID
	order.PaidAt = &now
	if err := p.store.UpdateOrder(ctx, order); err != nil {
		return fmt.Errorf("failed to mark order paid: %v", err)
	}

	p.settleSession(ctx, order, models.StageOrderComplete)

	p.notify(ctx, order.UserID, fmt.Sprintf("✅ Payment received for order %s (Rs. %s). We're on it — thank you!",
		order.OrderID, order.Total.StringFixed(2)))

	log.Printf("Payment %s captured for order %s", paymentID, orderID)
	return nil
}

func (p *PaymentService) handlePaymentFailed(ctx context.Context, payload map[string]any) error {
	paymentID, orderID, err := extractPaymentRef(payload)
	if err != nil {
		return err
	}

	order, err := p.store.GetOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("order not found for payment %s: %v", paymentID, err)
	}

	order.Status = models.OrderStatusFailed
	if err := p.store.UpdateOrder(ctx, order); err != nil {
		return fmt.Errorf("failed to mark order payment_failed: %v", err)
	}

	// Back to payment selection so the user can reply "cash" (or retry
	// card/wallet) without re-confirming the order.
	p.settleSession(ctx, order, models.StageSelectingPayment)

	p.notify(ctx, order.UserID, fmt.Sprintf("❌ Payment for order %s didn't go through. You can retry the link or reply \"cash\" to pay on delivery.",
		order.OrderID))

	log.Printf("Payment %s failed for order %s", paymentID, orderID)
	return nil
}

// settleSession moves the paying user's session out of awaiting_payment once
// the gateway has spoken. A captured payment completes the order (the
// PendingOrder snapshot is consumed); a failed one returns the session to
// payment selection with the snapshot intact. Sessions that moved on in the
// meantime, or that awaited a different order, are left alone.
func (p *PaymentService) settleSession(ctx context.Context, order *models.Order, next models.Stage) {
	session, err := p.sessions.LoadSession(ctx, order.UserID)
	if err != nil {
		log.Printf("cannot load session to settle payment for %s: %v", order.UserID, err)
		return
	}
	if session.PendingOrder == nil || session.PendingOrder.OrderID != order.OrderID {
		return
	}
	if !session.Stage.CanTransitionTo(next) {
		log.Printf("blocked stage transition %s -> %s settling %s for %s", session.Stage, next, order.OrderID, session.UserID)
		return
	}

	session.Stage = next
	if next == models.StageOrderComplete {
		session.PendingOrder = nil
		session.ReminderSent = false
	}
	if err := p.sessions.SaveSession(ctx, session); err != nil {
		log.Printf("failed to save settled session for %s: %v", session.UserID, err)
	}
}

// VerifySignature checks the gateway's HMAC-SHA256 hex signature over the
// raw body.
func (p *PaymentService) VerifySignature(body []byte, signature string) bool {
	if p.secret == "" || signature == "" {
		return false
	}
	expected := p.sign(body)
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (p *PaymentService) sign(data []byte) string {
	mac := hmac.New(sha256.New, []byte(p.secret))
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}

// notify sends a plain-text chat message, best effort.
func (p *PaymentService) notify(ctx context.Context, userID, text string) {
	if p.renderer == nil {
		return
	}
	session, err := p.sessions.LoadSession(ctx, userID)
	if err != nil {
		log.Printf("cannot load session to notify %s: %v", userID, err)
		return
	}
	if err := p.renderer.Render(ctx, session, TextIntent("%s", text)); err != nil {
		log.Printf("failed to notify %s about payment: %v", userID, err)
	}
}

func extractPaymentRef(payload map[string]any) (paymentID, orderID string, err error) {
	payment, ok := payload["payment"].(map[string]any)
	if !ok {
		return "", "", fmt.Errorf("payment entity missing from webhook payload")
	}
	paymentID, _ = payment["id"].(string)
	notes, _ := payment["notes"].(map[string]any)
	orderID, _ = notes["order_id"].(string)
	if orderID == "" {
		return "", "", fmt.Errorf("order_id not found in payment notes")
	}
	return paymentID, orderID, nil
}
