package models

import (
	"time"
)

// Stage is the session's current position in the conversation state machine.
type Stage string

const (
	StageInitial          Stage = "initial"
	StageViewingMenu      Stage = "viewing_menu"
	StageViewingItems     Stage = "viewing_items"
	StageQuickCartAction  Stage = "quick_cart_action"
	StageCartOptions      Stage = "cart_options"
	StageConfirmingOrder  Stage = "confirming_order"
	StageSelectingPayment Stage = "selecting_payment"
	StageAwaitingPayment  Stage = "awaiting_payment"
	StageOrderComplete    Stage = "order_complete"
	StageConfirmingCancel Stage = "confirming_cancel"
)

// allStages is the closed set of valid conversation stages.
var allStages = map[Stage]bool{
	StageInitial:          true,
	StageViewingMenu:      true,
	StageViewingItems:     true,
	StageQuickCartAction:  true,
	StageCartOptions:      true,
	StageConfirmingOrder:  true,
	StageSelectingPayment: true,
	StageAwaitingPayment:  true,
	StageOrderComplete:    true,
	StageConfirmingCancel: true,
}

// Valid reports whether s is one of the defined stages.
func (s Stage) Valid() bool {
	return allStages[s]
}

// stageTransitions is the explicit transition table. A stage may always stay
// where it is; anything else must be listed here. Every stage can enter
// confirming_cancel, and confirming_cancel can return anywhere because a
// declined cancel resumes the prior stage.
var stageTransitions = map[Stage][]Stage{
	StageInitial:          {StageViewingMenu, StageViewingItems, StageQuickCartAction, StageCartOptions, StageConfirmingOrder},
	StageViewingMenu:      {StageInitial, StageViewingItems, StageQuickCartAction, StageCartOptions, StageConfirmingOrder},
	StageViewingItems:     {StageInitial, StageViewingMenu, StageQuickCartAction, StageCartOptions, StageConfirmingOrder},
	StageQuickCartAction:  {StageInitial, StageViewingMenu, StageViewingItems, StageCartOptions, StageConfirmingOrder},
	StageCartOptions:      {StageInitial, StageViewingMenu, StageViewingItems, StageQuickCartAction, StageConfirmingOrder},
	StageConfirmingOrder:  {StageInitial, StageViewingMenu, StageCartOptions, StageQuickCartAction, StageSelectingPayment},
	StageSelectingPayment: {StageAwaitingPayment, StageOrderComplete},
	StageAwaitingPayment:  {StageOrderComplete, StageSelectingPayment, StageInitial},
	StageOrderComplete:    {StageInitial, StageViewingMenu},
}

// CanTransitionTo reports whether moving from s to next is allowed by the
// transition table.
func (s Stage) CanTransitionTo(next Stage) bool {
	if !next.Valid() {
		return false
	}
	if next == s {
		return true
	}
	if next == StageConfirmingCancel || s == StageConfirmingCancel {
		return true
	}
	for _, allowed := range stageTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// History roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// HistoryTurn is one entry in the session transcript.
type HistoryTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// MaxHistoryTurns bounds the session transcript.
const MaxHistoryTurns = 10

// RecommendedItem is a menu item the bot recently suggested, kept on the
// session so follow-ups like "add it" can be resolved by id.
type RecommendedItem struct {
	ItemID string `json:"item_id"`
	Name   string `json:"name"`
}

// Session holds the full conversation state for one user on one platform.
type Session struct {
	UserID          string            `json:"user_id"` // platform-qualified, e.g. "whatsapp:+9779812345678"
	Platform        string            `json:"platform"`
	BusinessID      string            `json:"business_id"`
	Stage           Stage             `json:"stage"`
	ReturnStage     Stage             `json:"return_stage"` // stage to resume when a cancel prompt is declined
	Cart            []CartLine        `json:"cart"`
	History         []HistoryTurn     `json:"history"`
	ServiceType     string            `json:"service_type"`   // "delivery" or "pickup"
	PaymentMethod   string            `json:"payment_method"` // "cash", "card", "wallet"
	DeliveryAddress string            `json:"delivery_address"`
	PendingOrder    *PendingOrder     `json:"pending_order"`
	Recommendations []RecommendedItem `json:"recommendations"`
	AgeVerified     bool              `json:"age_verified"`
	LastAction      string            `json:"last_action"`
	ReminderSent    bool              `json:"reminder_sent"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// NewSession returns a session with safe defaults for a first-contact user.
func NewSession(userID, platform string) *Session {
	return &Session{
		UserID:    userID,
		Platform:  platform,
		Stage:     StageInitial,
		Cart:      []CartLine{},
		History:   []HistoryTurn{},
		UpdatedAt: time.Now(),
	}
}

// AppendTurn pushes a turn onto the transcript ring buffer. The oldest turn
// is evicted once the buffer exceeds MaxHistoryTurns. A user turn whose
// content equals the previous user turn is dropped, which absorbs duplicate
// webhook deliveries; assistant and system turns are never deduplicated.
func (s *Session) AppendTurn(role, content string) {
	if role == RoleUser && len(s.History) > 0 {
		last := s.History[len(s.History)-1]
		if last.Role == RoleUser && last.Content == content {
			return
		}
	}
	s.History = append(s.History, HistoryTurn{Role: role, Content: content})
	if len(s.History) > MaxHistoryTurns {
		s.History = s.History[len(s.History)-MaxHistoryTurns:]
	}
}

// AddCartLine merges a line into the cart. Lines are keyed strictly by the
// catalog item id: adding an item already present increments its quantity
// instead of appending a second line. Insertion order is preserved.
func (s *Session) AddCartLine(line CartLine) {
	for i := range s.Cart {
		if s.Cart[i].ItemID == line.ItemID {
			s.Cart[i].Quantity += line.Quantity
			return
		}
	}
	s.Cart = append(s.Cart, line)
}

// RemoveCartLine removes the line for itemID and reports whether it existed.
func (s *Session) RemoveCartLine(itemID string) bool {
	for i := range s.Cart {
		if s.Cart[i].ItemID == itemID {
			s.Cart = append(s.Cart[:i], s.Cart[i+1:]...)
			return true
		}
	}
	return false
}

// ClearCart empties the cart.
func (s *Session) ClearCart() {
	s.Cart = []CartLine{}
}

// CartCount returns the total number of units across all lines.
func (s *Session) CartCount() int {
	count := 0
	for _, line := range s.Cart {
		count += line.Quantity
	}
	return count
}
