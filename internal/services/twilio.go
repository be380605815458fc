package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/jeshanrai/orderbot-backend/internal/models"
)

// TwilioRenderer sends replies over WhatsApp via Twilio. Buttons, lists
// and confirm prompts render as numbered text because the Twilio
// sandbox's plain message API carries text only; users reply with the
// number or the label and the classifier handles either.
type TwilioRenderer struct {
	client *twilio.RestClient
	from   string // format: "whatsapp:+14155238886"
}

// NewTwilioRenderer creates the renderer from TWILIO_ACCOUNT_SID,
// TWILIO_AUTH_TOKEN and TWILIO_WHATSAPP_FROM.
func NewTwilioRenderer() (*TwilioRenderer, error) {
	accountSid := os.Getenv("TWILIO_ACCOUNT_SID")
	authToken := os.Getenv("TWILIO_AUTH_TOKEN")
	from := os.Getenv("TWILIO_WHATSAPP_FROM")

	if accountSid == "" || authToken == "" || from == "" {
		return nil, fmt.Errorf("missing Twilio credentials in environment variables")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSid,
		Password: authToken,
	})

	return &TwilioRenderer{client: client, from: from}, nil
}

// Render implements Renderer over WhatsApp.
func (t *TwilioRenderer) Render(ctx context.Context, session *models.Session, intent *RenderIntent) error {
	if intent == nil {
		return nil
	}
	return t.SendWhatsAppMessage(phoneFromUserID(session.UserID), formatIntent(intent))
}

// SendWhatsAppMessage sends a plain WhatsApp message via Twilio.
func (t *TwilioRenderer) SendWhatsAppMessage(to string, message string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(t.from)
	params.SetTo(fmt.Sprintf("whatsapp:%s", to))
	params.SetBody(message)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		log.Printf("❌ Failed to send WhatsApp message: %v", err)
		return err
	}

	log.Printf("✅ WhatsApp message sent! SID: %s", *resp.Sid)
	return nil
}

// formatIntent flattens a structured intent into WhatsApp text.
func formatIntent(intent *RenderIntent) string {
	switch intent.Kind {
	case RenderButtons, RenderConfirm:
		var b strings.Builder
		b.WriteString(intent.Text)
		for i, button := range intent.Buttons {
			fmt.Fprintf(&b, "\n%d. %s", i+1, button.Title)
		}
		return b.String()
	case RenderList:
		var b strings.Builder
		b.WriteString(intent.Text)
		n := 1
		for _, section := range intent.Sections {
			if section.Title != "" {
				fmt.Fprintf(&b, "\n\n*%s*", section.Title)
			}
			for _, item := range section.Items {
				fmt.Fprintf(&b, "\n%d. %s", n, item.Title)
				n++
			}
		}
		return b.String()
	default:
		return intent.Text
	}
}

// phoneFromUserID strips the platform qualifier from a session user id,
// e.g. "whatsapp:+9779812345678" -> "+9779812345678".
func phoneFromUserID(userID string) string {
	if idx := strings.Index(userID, ":"); idx >= 0 {
		return userID[idx+1:]
	}
	return userID
}
