package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order statuses.
const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusPaid      = "paid"
	OrderStatusFailed    = "payment_failed"
	OrderStatusCancelled = "cancelled"
)

// Order is the durable order record. It is created atomically with its
// items when the user confirms checkout, before a payment method is chosen,
// so payment selection can be retried without re-creating the order.
type Order struct {
	OrderID         string          `json:"order_id" gorm:"primaryKey"`
	UserID          string          `json:"user_id" gorm:"index"`
	BusinessID      string          `json:"business_id"`
	Items           []OrderItem     `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Total           decimal.Decimal `json:"total" gorm:"type:numeric(10,2)"`
	Status          string          `json:"status" gorm:"index"`
	ServiceType     string          `json:"service_type"`
	PaymentMethod   string          `json:"payment_method"`
	PaymentID       string          `json:"payment_id"`
	DeliveryAddress string          `json:"delivery_address"`
	PaidAt          *time.Time      `json:"paid_at"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// OrderItem is one line of a durable order.
type OrderItem struct {
	ID        uint            `json:"id" gorm:"primaryKey"`
	OrderID   string          `json:"order_id" gorm:"index"`
	ItemID    string          `json:"item_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price" gorm:"type:numeric(10,2)"`
	Quantity  int             `json:"quantity"`
}

// PendingOrder is the immutable snapshot attached to the session when the
// user confirms checkout. It becomes authoritative once a payment method is
// chosen, after which the session cart is cleared.
type PendingOrder struct {
	OrderID string          `json:"order_id"`
	Items   []CartLine      `json:"items"`
	Total   decimal.Decimal `json:"total"`
}

// ResolvedAction is the classified user intent handed from the intent
// engine to the dispatcher. Transient, consumed exactly once.
type ResolvedAction struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// StringArg returns the named argument as a trimmed-friendly string, or ""
// when absent or of an unexpected type.
func (a ResolvedAction) StringArg(key string) string {
	v, ok := a.Args[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
