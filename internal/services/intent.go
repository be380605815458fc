package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jeshanrai/orderbot-backend/internal/models"
)

const genericApology = "Sorry, I didn't quite get that. You can say \"menu\" to browse, or tell me what you'd like to order."

// IntentEngine turns raw user text into exactly one ResolvedAction. It
// never returns an error to the caller: classifier transport failures fall
// back to stage/keyword heuristics, malformed tool arguments get a single
// repair retry and then degrade to plain text, and unknown action names
// are discarded outright.
type IntentEngine struct {
	classifier Classifier
	timeout    time.Duration
}

// NewIntentEngine creates an engine. timeout bounds the whole classifier
// exchange including the repair retry; zero means 20s.
func NewIntentEngine(classifier Classifier, timeout time.Duration) *IntentEngine {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &IntentEngine{classifier: classifier, timeout: timeout}
}

// outcome of interpreting one classifier response.
type interpretOutcome int

const (
	outcomeAction interpretOutcome = iota
	outcomeParseError
	outcomeFreeText
)

// Resolve classifies the user's message in the context of the session.
func (e *IntentEngine) Resolve(ctx context.Context, userText string, session *models.Session) models.ResolvedAction {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req := ClassifyRequest{
		System: buildSystemContext(session),
		Turns:  session.History,
	}

	result, err := e.classifier.Classify(ctx, req)
	if err != nil {
		log.Printf("classifier unavailable for %s, using heuristics: %v", session.UserID, err)
		return e.heuristicFallback(userText, session)
	}

	action, outcome, parseErr := interpret(result)
	switch outcome {
	case outcomeAction:
		return action
	case outcomeFreeText:
		return textFallback(result.FreeText)
	}

	// Malformed arguments: exactly one repair retry with an explicit error
	// turn, then degrade to plain text.
	repairTurns := append(append([]models.HistoryTurn(nil), session.History...), models.HistoryTurn{
		Role: models.RoleSystem,
		Content: fmt.Sprintf("Your previous %s call had malformed JSON arguments (%v). "+
			"Call the function again with valid JSON.", result.ActionName, parseErr),
	})

	retry, err := e.classifier.Classify(ctx, ClassifyRequest{System: req.System, Turns: repairTurns})
	if err != nil {
		log.Printf("classifier retry failed for %s, using heuristics: %v", session.UserID, err)
		return e.heuristicFallback(userText, session)
	}

	action, outcome, _ = interpret(retry)
	if outcome == outcomeAction {
		return action
	}

	log.Printf("classifier arguments unparseable twice for %s, falling back to text", session.UserID)
	if retry.FreeText != "" {
		return textFallback(retry.FreeText)
	}
	return textFallback(result.FreeText)
}

// interpret validates one classifier proposal. Unknown action names are a
// hallucination and collapse to free text; malformed argument JSON is
// reported as a retryable parse error.
func interpret(result *ClassifyResult) (models.ResolvedAction, interpretOutcome, error) {
	if result.ActionName == "" {
		return models.ResolvedAction{}, outcomeFreeText, nil
	}
	if !KnownAction(result.ActionName) {
		log.Printf("classifier proposed unknown action %q, discarding", result.ActionName)
		return models.ResolvedAction{}, outcomeFreeText, nil
	}

	args := map[string]any{}
	if strings.TrimSpace(result.Arguments) != "" {
		if err := json.Unmarshal([]byte(result.Arguments), &args); err != nil {
			return models.ResolvedAction{}, outcomeParseError, err
		}
	}
	return models.ResolvedAction{Name: result.ActionName, Args: args}, outcomeAction, nil
}

// textFallback wraps free text (or the generic apology) as a respond_text
// action.
func textFallback(text string) models.ResolvedAction {
	text = strings.TrimSpace(text)
	if text == "" {
		text = genericApology
	}
	return models.ResolvedAction{
		Name: ActionRespondText,
		Args: map[string]any{"text": text},
	}
}

// heuristicFallback is the deterministic path used when the classifier is
// unreachable or times out. Driven purely by stage and keywords so the
// conversation can limp along without the model.
func (e *IntentEngine) heuristicFallback(userText string, session *models.Session) models.ResolvedAction {
	text := strings.ToLower(strings.TrimSpace(userText))

	switch session.Stage {
	case models.StageConfirmingOrder, models.StageConfirmingCancel:
		if containsAny(text, "confirm", "yes", "ok", "okay", "sure") {
			return models.ResolvedAction{Name: ActionProcessOrderResponse, Args: map[string]any{"action": "confirmed"}}
		}
		if containsAny(text, "cancel", "no") {
			return models.ResolvedAction{Name: ActionProcessOrderResponse, Args: map[string]any{"action": "cancelled"}}
		}
	case models.StageSelectingPayment:
		for _, method := range []string{"cash", "card", "wallet"} {
			if strings.Contains(text, method) {
				return models.ResolvedAction{Name: ActionSelectPayment, Args: map[string]any{"method": method}}
			}
		}
	}

	switch {
	case containsAny(text, "menu", "browse"):
		return models.ResolvedAction{Name: ActionShowMenu, Args: map[string]any{}}
	case containsAny(text, "checkout", "check out"):
		return models.ResolvedAction{Name: ActionCheckout, Args: map[string]any{}}
	case containsAny(text, "cart", "basket"):
		return models.ResolvedAction{Name: ActionViewCart, Args: map[string]any{}}
	case containsAny(text, "cancel"):
		return models.ResolvedAction{Name: ActionCancelOrder, Args: map[string]any{}}
	}

	return textFallback("")
}

func containsAny(text string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// buildSystemContext embeds the session state the classifier needs as
// machine-readable context, plus its standing instructions.
func buildSystemContext(session *models.Session) string {
	type cartLine struct {
		ItemID   string `json:"item_id"`
		Name     string `json:"name"`
		Quantity int    `json:"quantity"`
	}
	state := struct {
		Stage           models.Stage             `json:"stage"`
		Cart            []cartLine               `json:"cart"`
		ServiceType     string                   `json:"service_type,omitempty"`
		PaymentMethod   string                   `json:"payment_method,omitempty"`
		DeliveryAddress string                   `json:"delivery_address,omitempty"`
		PendingOrderID  string                   `json:"pending_order_id,omitempty"`
		Recommendations []models.RecommendedItem `json:"recommendations,omitempty"`
		AgeVerified     bool                     `json:"age_verified"`
	}{
		Stage:           session.Stage,
		Cart:            []cartLine{},
		ServiceType:     session.ServiceType,
		PaymentMethod:   session.PaymentMethod,
		DeliveryAddress: session.DeliveryAddress,
		Recommendations: session.Recommendations,
		AgeVerified:     session.AgeVerified,
	}
	for _, line := range session.Cart {
		state.Cart = append(state.Cart, cartLine{ItemID: line.ItemID, Name: line.Name, Quantity: line.Quantity})
	}
	if session.PendingOrder != nil {
		state.PendingOrderID = session.PendingOrder.OrderID
	}

	stateJSON, _ := json.Marshal(state)

	return fmt.Sprintf(`You are the ordering assistant of a restaurant, chatting with a customer over a messaging app.
Classify the customer's latest message into exactly one of the provided functions. Prefer a function call over a text reply whenever one fits. Never invent function names, item prices, or order ids. When a confirmation prompt is pending, map yes/no style answers to process_order_response.

Current conversation state:
%s`, stateJSON)
}
