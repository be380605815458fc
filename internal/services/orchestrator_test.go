package services

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeshanrai/orderbot-backend/internal/models"
	"github.com/jeshanrai/orderbot-backend/internal/storage"
)

type captureRenderer struct {
	mu      sync.Mutex
	intents []*RenderIntent
}

func (r *captureRenderer) Render(_ context.Context, _ *models.Session, intent *RenderIntent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.intents = append(r.intents, intent)
	return nil
}

func (r *captureRenderer) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.intents)
}

func (r *captureRenderer) last() *RenderIntent {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.intents) == 0 {
		return nil
	}
	return r.intents[len(r.intents)-1]
}

func newTestOrchestrator(t *testing.T, classifier Classifier) (*Orchestrator, *storage.MemoryStore, *captureRenderer) {
	t.Helper()
	store := storage.NewMemoryStore()
	require.NoError(t, store.UpsertMenuItem(context.Background(), &models.MenuItem{
		ID: "momo-steam", Name: "Steam Momo", Category: "Momo", Price: decimal.NewFromInt(180), Available: true,
	}))

	dispatcher, err := NewDispatcher(NewStoreCatalog(store), NewStoreOrders(store), &fakePaymentLinks{})
	require.NoError(t, err)

	renderer := &captureRenderer{}
	orchestrator := NewOrchestrator(store, NewIntentEngine(classifier, 0), dispatcher, renderer)
	return orchestrator, store, renderer
}

func TestHandleEventEndToEnd(t *testing.T) {
	classifier := &scriptedClassifier{results: []*ClassifyResult{
		{ActionName: ActionAddToCart, Arguments: `{"item_name":"steam momo","quantity":2}`},
	}}
	orchestrator, store, renderer := newTestOrchestrator(t, classifier)

	orchestrator.HandleEvent(context.Background(), InboundEvent{
		Platform: "whatsapp",
		From:     "+9779800000001",
		EventID:  "SM001",
		Text:     "2 steam momo please",
	})

	require.Equal(t, 1, renderer.count())

	session, err := store.LoadSession(context.Background(), "whatsapp:+9779800000001")
	require.NoError(t, err)
	require.Len(t, session.Cart, 1)
	assert.Equal(t, 2, session.Cart[0].Quantity)
	assert.Equal(t, models.StageQuickCartAction, session.Stage)
	// transcript holds the user turn and the bot's reply
	require.Len(t, session.History, 2)
	assert.Equal(t, models.RoleUser, session.History[0].Role)
	assert.Equal(t, models.RoleAssistant, session.History[1].Role)
}

func TestHandleEventDropsDuplicateDeliveries(t *testing.T) {
	classifier := &scriptedClassifier{results: []*ClassifyResult{
		{ActionName: ActionAddToCart, Arguments: `{"item_name":"steam momo"}`},
	}}
	orchestrator, store, renderer := newTestOrchestrator(t, classifier)

	ev := InboundEvent{Platform: "whatsapp", From: "+9779800000001", EventID: "SM002", Text: "one steam momo"}
	orchestrator.HandleEvent(context.Background(), ev)
	orchestrator.HandleEvent(context.Background(), ev) // webhook retry

	assert.Equal(t, 1, renderer.count())
	assert.Equal(t, 1, classifier.calls)

	session, err := store.LoadSession(context.Background(), "whatsapp:+9779800000001")
	require.NoError(t, err)
	assert.Equal(t, 1, session.Cart[0].Quantity)
}

func TestHandleEventDropsEmptyEvents(t *testing.T) {
	classifier := &scriptedClassifier{results: []*ClassifyResult{{FreeText: "hi"}}}
	orchestrator, _, renderer := newTestOrchestrator(t, classifier)

	orchestrator.HandleEvent(context.Background(), InboundEvent{
		Platform: "whatsapp",
		From:     "+9779800000001",
		EventID:  "SM003",
	})

	assert.Zero(t, renderer.count())
	assert.Zero(t, classifier.calls)
}

func TestHandleEventCatalogOrderBypassesClassifier(t *testing.T) {
	classifier := &scriptedClassifier{results: []*ClassifyResult{{FreeText: "unused"}}}
	orchestrator, store, _ := newTestOrchestrator(t, classifier)

	orchestrator.HandleEvent(context.Background(), InboundEvent{
		Platform:     "whatsapp",
		From:         "+9779800000001",
		EventID:      "SM004",
		CatalogItems: []CatalogOrderItem{{ItemID: "momo-steam", Quantity: 3}},
	})

	assert.Zero(t, classifier.calls)

	session, err := store.LoadSession(context.Background(), "whatsapp:+9779800000001")
	require.NoError(t, err)
	require.Len(t, session.Cart, 1)
	assert.Equal(t, 3, session.Cart[0].Quantity)
}

func TestHandleEventBareMapPinAsksForAddress(t *testing.T) {
	classifier := &scriptedClassifier{results: []*ClassifyResult{{FreeText: "unused"}}}
	orchestrator, store, renderer := newTestOrchestrator(t, classifier)

	orchestrator.HandleEvent(context.Background(), InboundEvent{
		Platform:  "whatsapp",
		From:      "+9779800000001",
		EventID:   "SM006",
		Latitude:  "27.7172",
		Longitude: "85.3240",
	})

	// Coordinates alone never reach the classifier; the user gets asked
	// for a typed address instead.
	assert.Zero(t, classifier.calls)
	require.Equal(t, 1, renderer.count())
	assert.Contains(t, renderer.last().Text, "type out your delivery address")

	session, err := store.LoadSession(context.Background(), "whatsapp:+9779800000001")
	require.NoError(t, err)
	assert.Empty(t, session.DeliveryAddress)
}

func TestHandleEventInvalidArgumentsDoNotTouchStage(t *testing.T) {
	classifier := &scriptedClassifier{results: []*ClassifyResult{
		{ActionName: ActionAddToCart, Arguments: `{"item_name":"steam momo","quantity":500}`},
	}}
	orchestrator, store, renderer := newTestOrchestrator(t, classifier)

	orchestrator.HandleEvent(context.Background(), InboundEvent{
		Platform: "whatsapp", From: "+9779800000001", EventID: "SM005", Text: "500 momos",
	})

	require.Equal(t, 1, renderer.count())
	assert.Equal(t, msgQuantityTooLarge, renderer.last().Text)

	session, err := store.LoadSession(context.Background(), "whatsapp:+9779800000001")
	require.NoError(t, err)
	assert.Empty(t, session.Cart)
	assert.Equal(t, models.StageInitial, session.Stage)
}
