package storage

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeshanrai/orderbot-backend/internal/models"
)

func TestLoadSessionCreatesDefault(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	session, err := store.LoadSession(ctx, "whatsapp:+9779800000001")
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "whatsapp:+9779800000001", session.UserID)
	assert.Equal(t, "whatsapp", session.Platform)
	assert.Equal(t, models.StageInitial, session.Stage)
	assert.Empty(t, session.Cart)
}

func TestSaveSessionIsolation(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	session, err := store.LoadSession(ctx, "whatsapp:+9779800000001")
	require.NoError(t, err)
	session.AddCartLine(models.CartLine{ItemID: "coke", Name: "Coke", UnitPrice: decimal.NewFromInt(80), Quantity: 1})
	require.NoError(t, store.SaveSession(ctx, session))

	// Mutating the caller's copy must not leak into the stored one.
	session.Cart[0].Quantity = 99

	reloaded, err := store.LoadSession(ctx, "whatsapp:+9779800000001")
	require.NoError(t, err)
	require.Len(t, reloaded.Cart, 1)
	assert.Equal(t, 1, reloaded.Cart[0].Quantity)
}

func TestListIdleSessions(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	fresh, err := store.LoadSession(ctx, "whatsapp:+9779800000001")
	require.NoError(t, err)
	require.NoError(t, store.SaveSession(ctx, fresh))

	stale, err := store.LoadSession(ctx, "whatsapp:+9779800000002")
	require.NoError(t, err)
	require.NoError(t, store.SaveSession(ctx, stale))
	// backdate the stored copy directly
	store.sessions[stale.UserID].UpdatedAt = time.Now().Add(-time.Hour)

	idle, err := store.ListIdleSessions(ctx, 30*time.Minute)
	require.NoError(t, err)
	require.Len(t, idle, 1)
	assert.Equal(t, "whatsapp:+9779800000002", idle[0].UserID)
}

func TestMenuQueriesFilterUnavailable(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.UpsertMenuItem(ctx, &models.MenuItem{
		ID: "momo-steam", Name: "Steam Momo", Category: "Momo", Price: decimal.NewFromInt(180), Available: true, Tags: "popular",
	}))
	require.NoError(t, store.UpsertMenuItem(ctx, &models.MenuItem{
		ID: "momo-fried", Name: "Fried Momo", Category: "Momo", Price: decimal.NewFromInt(220), Available: false, Tags: "popular",
	}))

	categories, err := store.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Momo"}, categories)

	items, err := store.ListItemsByCategory(ctx, "momo")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "momo-steam", items[0].ID)

	_, err = store.GetMenuItem(ctx, "momo-fried")
	assert.Error(t, err)

	byTag, err := store.SearchMenuItemsByTag(ctx, "popular")
	require.NoError(t, err)
	assert.Len(t, byTag, 1)
}

func TestOrderLifecycleAndHistory(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	first := &models.Order{
		OrderID: "ORD-AAA11111",
		UserID:  "whatsapp:+9779800000001",
		Total:   decimal.NewFromInt(360),
		Status:  models.OrderStatusConfirmed,
		Items: []models.OrderItem{
			{OrderID: "ORD-AAA11111", ItemID: "momo-steam", Name: "Steam Momo", UnitPrice: decimal.NewFromInt(180), Quantity: 2},
		},
	}
	require.NoError(t, store.CreateOrder(ctx, first))
	assert.Error(t, store.CreateOrder(ctx, first), "duplicate order id must be rejected")

	second := &models.Order{OrderID: "ORD-BBB22222", UserID: "whatsapp:+9779800000001", Total: decimal.NewFromInt(80), Status: models.OrderStatusConfirmed}
	require.NoError(t, store.CreateOrder(ctx, second))

	other := &models.Order{OrderID: "ORD-CCC33333", UserID: "whatsapp:+9779800000099", Total: decimal.NewFromInt(100), Status: models.OrderStatusConfirmed}
	require.NoError(t, store.CreateOrder(ctx, other))

	history, err := store.GetOrdersByUser(ctx, "whatsapp:+9779800000001", 5)
	require.NoError(t, err)
	require.Len(t, history, 2)
	// newest first
	assert.Equal(t, "ORD-BBB22222", history[0].OrderID)

	first.Status = models.OrderStatusPaid
	require.NoError(t, store.UpdateOrder(ctx, first))
	got, err := store.GetOrder(ctx, "ORD-AAA11111")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPaid, got.Status)
}
