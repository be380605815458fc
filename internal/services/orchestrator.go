package services

import (
	"context"
	"log"

	"github.com/jeshanrai/orderbot-backend/internal/models"
	"github.com/jeshanrai/orderbot-backend/internal/storage"
)

// Orchestrator runs the full inbound pipeline for one webhook event:
// normalize, dedup, lock the user, load the session, resolve the intent,
// validate, dispatch, render, save. It is the only component that touches
// all the others.
type Orchestrator struct {
	sessions   storage.SessionStore
	engine     *IntentEngine
	dispatcher *Dispatcher
	renderer   Renderer
	dedup      *DedupGuard
	locks      *UserLocks
}

// NewOrchestrator wires the pipeline together.
func NewOrchestrator(sessions storage.SessionStore, engine *IntentEngine, dispatcher *Dispatcher, renderer Renderer) *Orchestrator {
	return &Orchestrator{
		sessions:   sessions,
		engine:     engine,
		dispatcher: dispatcher,
		renderer:   renderer,
		dedup:      NewDedupGuard(0),
		locks:      NewUserLocks(),
	}
}

// HandleEvent processes one raw platform event end to end. It never
// returns an error to the webhook layer: every failure mode degrades into
// either a silent drop (unusable or duplicate events) or an apology reply.
func (o *Orchestrator) HandleEvent(ctx context.Context, ev InboundEvent) {
	msg := Normalize(ev)
	if msg == nil {
		log.Printf("Dropping event %s from %s: nothing usable in it", ev.EventID, ev.From)
		return
	}

	if msg.EventID != "" && o.dedup.Seen(msg.Platform+"|"+msg.EventID) {
		log.Printf("Dropping duplicate event %s for %s", msg.EventID, msg.UserID)
		return
	}

	release := o.locks.Acquire(msg.UserID)
	defer release()

	session, err := o.sessions.LoadSession(ctx, msg.UserID)
	if err != nil {
		// Degraded mode: serve the turn on a throwaway session rather than
		// going silent. It won't persist, but the user gets an answer.
		log.Printf("⚠️ Session load failed for %s, using transient session: %v", msg.UserID, err)
		session = models.NewSession(msg.UserID, msg.Platform)
	}

	session.AppendTurn(models.RoleUser, msg.Text)

	action := o.resolveAction(ctx, msg, session)

	if ok, reason := ValidateAction(action.Name, action.Args); !ok {
		// Invalid arguments never reach the dispatcher; the stage stays put.
		o.reply(ctx, session, TextIntent("%s", reason))
		o.save(ctx, session)
		return
	}

	intent := o.dispatcher.Dispatch(ctx, action, session)
	o.reply(ctx, session, intent)
	o.save(ctx, session)
}

// resolveAction picks the action for the turn. A platform-native catalog
// cart is already structured, so it bypasses the classifier entirely and
// becomes a batch add keyed by catalog item ids.
func (o *Orchestrator) resolveAction(ctx context.Context, msg *InboundMessage, session *models.Session) models.ResolvedAction {
	if len(msg.CatalogOrder) > 0 {
		items := make([]any, 0, len(msg.CatalogOrder))
		for _, entry := range msg.CatalogOrder {
			items = append(items, map[string]any{
				"item_id":  entry.ItemID,
				"quantity": entry.Quantity,
			})
		}
		return models.ResolvedAction{Name: ActionAddMultipleToCart, Args: map[string]any{"items": items}}
	}

	if msg.Location != nil {
		if msg.Location.Address != "" {
			return models.ResolvedAction{Name: ActionProvideLocation, Args: map[string]any{"address": msg.Location.Address}}
		}
		if msg.Text == "" {
			// A bare map pin carries no street address we can hand to a
			// rider, so ask for one instead of classifying empty text.
			return models.ResolvedAction{
				Name: ActionRespondText,
				Args: map[string]any{"text": "Got your pin 📍 Please also type out your delivery address so the rider can find you."},
			}
		}
	}

	return o.engine.Resolve(ctx, msg.Text, session)
}

func (o *Orchestrator) reply(ctx context.Context, session *models.Session, intent *RenderIntent) {
	if intent == nil {
		return
	}
	if intent.Text != "" {
		session.AppendTurn(models.RoleAssistant, intent.Text)
	}
	if err := o.renderer.Render(ctx, session, intent); err != nil {
		log.Printf("❌ Failed to send reply to %s: %v", session.UserID, err)
	}
}

func (o *Orchestrator) save(ctx context.Context, session *models.Session) {
	if err := o.sessions.SaveSession(ctx, session); err != nil {
		// Swallowed on purpose: the reply already went out, and the
		// platform's webhook retry will heal a lost write.
		log.Printf("⚠️ Failed to save session for %s: %v", session.UserID, err)
	}
}
