package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jeshanrai/orderbot-backend/internal/models"
)

// MemoryStore holds all data in memory. Used for tests and for running
// without infrastructure (USE_MEMORY_STORE=true).
type MemoryStore struct {
	sessions map[string]*models.Session
	items    map[string]*models.MenuItem
	orders   map[string]*models.Order

	sessionMu sync.RWMutex
	itemMu    sync.RWMutex
	orderMu   sync.RWMutex

	orderSeq []string // order ids in creation order, for history queries
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*models.Session),
		items:    make(map[string]*models.MenuItem),
		orders:   make(map[string]*models.Order),
	}
}

// LoadSession returns the stored session for userID, creating and
// persisting a default one when absent.
func (m *MemoryStore) LoadSession(ctx context.Context, userID string) (*models.Session, error) {
	m.sessionMu.Lock()
	defer m.sessionMu.Unlock()

	if session, exists := m.sessions[userID]; exists {
		return cloneSession(session), nil
	}

	platform, _, _ := strings.Cut(userID, ":")
	session := models.NewSession(userID, platform)
	m.sessions[userID] = cloneSession(session)
	return session, nil
}

// SaveSession upserts the session, last writer wins.
func (m *MemoryStore) SaveSession(ctx context.Context, session *models.Session) error {
	m.sessionMu.Lock()
	defer m.sessionMu.Unlock()

	session.UpdatedAt = time.Now()
	m.sessions[session.UserID] = cloneSession(session)
	return nil
}

// ListIdleSessions returns sessions not updated for at least idleFor.
func (m *MemoryStore) ListIdleSessions(ctx context.Context, idleFor time.Duration) ([]*models.Session, error) {
	m.sessionMu.RLock()
	defer m.sessionMu.RUnlock()

	cutoff := time.Now().Add(-idleFor)
	var idle []*models.Session
	for _, session := range m.sessions {
		if session.UpdatedAt.Before(cutoff) {
			idle = append(idle, cloneSession(session))
		}
	}
	return idle, nil
}

// Close implements SessionStore.
func (m *MemoryStore) Close() error { return nil }

// Menu operations

func (m *MemoryStore) ListCategories(ctx context.Context) ([]string, error) {
	m.itemMu.RLock()
	defer m.itemMu.RUnlock()

	seen := make(map[string]bool)
	var categories []string
	for _, item := range m.items {
		if !item.Available || seen[item.Category] {
			continue
		}
		seen[item.Category] = true
		categories = append(categories, item.Category)
	}
	sort.Strings(categories)
	return categories, nil
}

func (m *MemoryStore) ListItemsByCategory(ctx context.Context, category string) ([]*models.MenuItem, error) {
	m.itemMu.RLock()
	defer m.itemMu.RUnlock()

	var items []*models.MenuItem
	for _, item := range m.items {
		if item.Available && strings.EqualFold(item.Category, category) {
			items = append(items, item)
		}
	}
	sortItemsByName(items)
	return items, nil
}

func (m *MemoryStore) GetMenuItem(ctx context.Context, id string) (*models.MenuItem, error) {
	m.itemMu.RLock()
	defer m.itemMu.RUnlock()

	item, exists := m.items[id]
	if !exists || !item.Available {
		return nil, fmt.Errorf("menu item %s: %w", id, ErrNotFound)
	}
	return item, nil
}

func (m *MemoryStore) SearchMenuItems(ctx context.Context, query string) ([]*models.MenuItem, error) {
	m.itemMu.RLock()
	defer m.itemMu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(query))
	var items []*models.MenuItem
	for _, item := range m.items {
		if item.Available && strings.Contains(strings.ToLower(item.Name), q) {
			items = append(items, item)
		}
	}
	sortItemsByName(items)
	return items, nil
}

func (m *MemoryStore) SearchMenuItemsByTag(ctx context.Context, tag string) ([]*models.MenuItem, error) {
	m.itemMu.RLock()
	defer m.itemMu.RUnlock()

	t := strings.ToLower(strings.TrimSpace(tag))
	var items []*models.MenuItem
	for _, item := range m.items {
		if item.Available && strings.Contains(strings.ToLower(item.Tags), t) {
			items = append(items, item)
		}
	}
	sortItemsByName(items)
	return items, nil
}

func (m *MemoryStore) UpsertMenuItem(ctx context.Context, item *models.MenuItem) error {
	m.itemMu.Lock()
	defer m.itemMu.Unlock()

	if item.ID == "" {
		return fmt.Errorf("menu item needs an id")
	}
	now := time.Now()
	if existing, exists := m.items[item.ID]; exists {
		item.CreatedAt = existing.CreatedAt
	} else {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	m.items[item.ID] = item
	return nil
}

func (m *MemoryStore) CountMenuItems(ctx context.Context) (int64, error) {
	m.itemMu.RLock()
	defer m.itemMu.RUnlock()
	return int64(len(m.items)), nil
}

// Order operations

func (m *MemoryStore) CreateOrder(ctx context.Context, order *models.Order) error {
	m.orderMu.Lock()
	defer m.orderMu.Unlock()

	if _, exists := m.orders[order.OrderID]; exists {
		return fmt.Errorf("order %s already exists", order.OrderID)
	}
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	m.orders[order.OrderID] = order
	m.orderSeq = append(m.orderSeq, order.OrderID)
	return nil
}

func (m *MemoryStore) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	m.orderMu.RLock()
	defer m.orderMu.RUnlock()

	order, exists := m.orders[orderID]
	if !exists {
		return nil, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	return order, nil
}

func (m *MemoryStore) UpdateOrder(ctx context.Context, order *models.Order) error {
	m.orderMu.Lock()
	defer m.orderMu.Unlock()

	if _, exists := m.orders[order.OrderID]; !exists {
		return fmt.Errorf("order not found")
	}
	order.UpdatedAt = time.Now()
	m.orders[order.OrderID] = order
	return nil
}

func (m *MemoryStore) GetOrdersByUser(ctx context.Context, userID string, limit int) ([]*models.Order, error) {
	m.orderMu.RLock()
	defer m.orderMu.RUnlock()

	var orders []*models.Order
	// Walk newest first.
	for i := len(m.orderSeq) - 1; i >= 0 && len(orders) < limit; i-- {
		order := m.orders[m.orderSeq[i]]
		if order != nil && order.UserID == userID {
			orders = append(orders, order)
		}
	}
	return orders, nil
}

func sortItemsByName(items []*models.MenuItem) {
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
}

// cloneSession deep-copies a session so callers never share slices with the
// stored copy.
func cloneSession(s *models.Session) *models.Session {
	c := *s
	c.Cart = append([]models.CartLine(nil), s.Cart...)
	c.History = append([]models.HistoryTurn(nil), s.History...)
	c.Recommendations = append([]models.RecommendedItem(nil), s.Recommendations...)
	if s.PendingOrder != nil {
		p := *s.PendingOrder
		p.Items = append([]models.CartLine(nil), s.PendingOrder.Items...)
		c.PendingOrder = &p
	}
	return &c
}
