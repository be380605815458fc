package services

import (
	"context"
	"fmt"

	"github.com/jeshanrai/orderbot-backend/internal/models"
	"github.com/jeshanrai/orderbot-backend/internal/storage"
	"github.com/jeshanrai/orderbot-backend/internal/utils"
)

// Orders is the order collaborator. CreateOrder is atomic: either the
// order with all its lines exists afterwards, or nothing does.
type Orders interface {
	CreateOrder(ctx context.Context, session *models.Session) (*models.Order, error)
	SetPaymentMethod(ctx context.Context, orderID, method string) (*models.Order, error)
	GetHistory(ctx context.Context, userID string, limit int) ([]*models.Order, error)
}

// StoreOrders persists orders through the primary store.
type StoreOrders struct {
	store storage.Store
}

// NewStoreOrders creates a store-backed order service.
func NewStoreOrders(store storage.Store) *StoreOrders {
	return &StoreOrders{store: store}
}

// CreateOrder snapshots the session cart into a durable order record.
func (o *StoreOrders) CreateOrder(ctx context.Context, session *models.Session) (*models.Order, error) {
	if len(session.Cart) == 0 {
		return nil, fmt.Errorf("cannot create an order from an empty cart")
	}

	order := &models.Order{
		OrderID:         utils.GenerateOrderID(),
		UserID:          session.UserID,
		BusinessID:      session.BusinessID,
		Total:           models.CartTotal(session.Cart),
		Status:          models.OrderStatusConfirmed,
		ServiceType:     session.ServiceType,
		DeliveryAddress: session.DeliveryAddress,
	}
	for _, line := range session.Cart {
		order.Items = append(order.Items, models.OrderItem{
			OrderID:   order.OrderID,
			ItemID:    line.ItemID,
			Name:      line.Name,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
		})
	}

	if err := o.store.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return order, nil
}

// SetPaymentMethod records the chosen method on an existing order. Safe to
// replay: setting the same method again is a no-op update.
func (o *StoreOrders) SetPaymentMethod(ctx context.Context, orderID, method string) (*models.Order, error) {
	order, err := o.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	order.PaymentMethod = method
	if err := o.store.UpdateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("update order payment method: %w", err)
	}
	return order, nil
}

// GetHistory returns the user's most recent orders.
func (o *StoreOrders) GetHistory(ctx context.Context, userID string, limit int) ([]*models.Order, error) {
	if limit <= 0 {
		limit = 5
	}
	return o.store.GetOrdersByUser(ctx, userID, limit)
}
