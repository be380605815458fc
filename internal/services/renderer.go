package services

import (
	"context"
	"fmt"
	"log"

	"github.com/jeshanrai/orderbot-backend/internal/models"
)

// RenderKind distinguishes the abstract reply shapes the core can produce.
type RenderKind string

const (
	RenderText    RenderKind = "text"
	RenderButtons RenderKind = "buttons"
	RenderList    RenderKind = "list"
	RenderConfirm RenderKind = "confirm"
)

// Button is one tappable option.
type Button struct {
	ID    string
	Title string
}

// ListSection groups list rows under a heading.
type ListSection struct {
	Title string
	Items []Button
}

// RenderIntent is the platform-neutral description of what to show the
// user. The transport adapter turns it into platform payloads; this core
// never builds platform JSON.
type RenderIntent struct {
	Kind     RenderKind
	Text     string
	Buttons  []Button
	Sections []ListSection
}

// TextIntent builds a plain-text render intent.
func TextIntent(format string, args ...any) *RenderIntent {
	return &RenderIntent{Kind: RenderText, Text: fmt.Sprintf(format, args...)}
}

// ConfirmIntent builds a confirmation prompt with Confirm/Cancel buttons.
func ConfirmIntent(text string) *RenderIntent {
	return &RenderIntent{
		Kind: RenderConfirm,
		Text: text,
		Buttons: []Button{
			{ID: "confirm_yes", Title: "Confirm"},
			{ID: "confirm_no", Title: "Cancel"},
		},
	}
}

// Renderer performs the platform-specific send for a render intent.
type Renderer interface {
	Render(ctx context.Context, session *models.Session, intent *RenderIntent) error
}

// LogRenderer writes replies to the log instead of sending them. Used in
// development when no messaging credentials are configured.
type LogRenderer struct{}

// NewLogRenderer creates a log-only renderer.
func NewLogRenderer() *LogRenderer {
	return &LogRenderer{}
}

// Render logs the reply.
func (r *LogRenderer) Render(_ context.Context, session *models.Session, intent *RenderIntent) error {
	if intent == nil {
		return nil
	}
	log.Printf("📤 Reply to %s (%s): %s", session.UserID, intent.Kind, intent.Text)
	return nil
}
