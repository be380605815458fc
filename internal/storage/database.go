package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jeshanrai/orderbot-backend/internal/models"
)

// DatabaseStore persists everything in PostgreSQL via GORM.
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore creates a new database-backed store.
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

// LoadSession returns the stored session for userID, creating and
// persisting a default one when absent.
func (d *DatabaseStore) LoadSession(ctx context.Context, userID string) (*models.Session, error) {
	var record models.SessionRecord
	err := d.db.WithContext(ctx).Where("user_id = ?", userID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		platform, _, _ := strings.Cut(userID, ":")
		session := models.NewSession(userID, platform)
		if saveErr := d.SaveSession(ctx, session); saveErr != nil {
			return nil, saveErr
		}
		return session, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal([]byte(record.Context), &session); err != nil {
		return nil, fmt.Errorf("decode session context: %w", err)
	}
	return &session, nil
}

// SaveSession upserts the session record, last writer wins.
func (d *DatabaseStore) SaveSession(ctx context.Context, session *models.Session) error {
	session.UpdatedAt = time.Now()

	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session context: %w", err)
	}

	record := models.SessionRecord{
		UserID:   session.UserID,
		Platform: session.Platform,
		Stage:    string(session.Stage),
		Context:  string(payload),
		LastSeen: session.UpdatedAt,
	}

	return d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"platform", "stage", "context", "last_seen", "updated_at"}),
	}).Create(&record).Error
}

// ListIdleSessions returns sessions whose last activity is older than idleFor.
func (d *DatabaseStore) ListIdleSessions(ctx context.Context, idleFor time.Duration) ([]*models.Session, error) {
	cutoff := time.Now().Add(-idleFor)

	var records []models.SessionRecord
	if err := d.db.WithContext(ctx).Where("last_seen < ?", cutoff).Find(&records).Error; err != nil {
		return nil, err
	}

	var sessions []*models.Session
	for _, record := range records {
		var session models.Session
		if err := json.Unmarshal([]byte(record.Context), &session); err != nil {
			// Skip rows we can't decode rather than failing the sweep.
			continue
		}
		sessions = append(sessions, &session)
	}
	return sessions, nil
}

// Close implements SessionStore.
func (d *DatabaseStore) Close() error { return nil }

// Menu operations

func (d *DatabaseStore) ListCategories(ctx context.Context) ([]string, error) {
	var categories []string
	err := d.db.WithContext(ctx).Model(&models.MenuItem{}).
		Where("available = ?", true).
		Distinct("category").
		Order("category").
		Pluck("category", &categories).Error
	return categories, err
}

func (d *DatabaseStore) ListItemsByCategory(ctx context.Context, category string) ([]*models.MenuItem, error) {
	var items []*models.MenuItem
	err := d.db.WithContext(ctx).
		Where("available = ? AND LOWER(category) = LOWER(?)", true, category).
		Order("name").
		Find(&items).Error
	return items, err
}

func (d *DatabaseStore) GetMenuItem(ctx context.Context, id string) (*models.MenuItem, error) {
	var item models.MenuItem
	err := d.db.WithContext(ctx).Where("id = ? AND available = ?", id, true).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("menu item %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (d *DatabaseStore) SearchMenuItems(ctx context.Context, query string) ([]*models.MenuItem, error) {
	var items []*models.MenuItem
	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	err := d.db.WithContext(ctx).
		Where("available = ? AND LOWER(name) LIKE ?", true, pattern).
		Order("name").
		Find(&items).Error
	return items, err
}

func (d *DatabaseStore) SearchMenuItemsByTag(ctx context.Context, tag string) ([]*models.MenuItem, error) {
	var items []*models.MenuItem
	pattern := "%" + strings.ToLower(strings.TrimSpace(tag)) + "%"
	err := d.db.WithContext(ctx).
		Where("available = ? AND LOWER(tags) LIKE ?", true, pattern).
		Order("name").
		Find(&items).Error
	return items, err
}

func (d *DatabaseStore) UpsertMenuItem(ctx context.Context, item *models.MenuItem) error {
	if item.ID == "" {
		return fmt.Errorf("menu item needs an id")
	}
	return d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(item).Error
}

func (d *DatabaseStore) CountMenuItems(ctx context.Context) (int64, error) {
	var count int64
	err := d.db.WithContext(ctx).Model(&models.MenuItem{}).Count(&count).Error
	return count, err
}

// Order operations

// CreateOrder writes the order and its items in one transaction.
func (d *DatabaseStore) CreateOrder(ctx context.Context, order *models.Order) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(order).Error
	})
}

func (d *DatabaseStore) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	err := d.db.WithContext(ctx).Preload("Items").Where("order_id = ?", orderID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (d *DatabaseStore) UpdateOrder(ctx context.Context, order *models.Order) error {
	return d.db.WithContext(ctx).Save(order).Error
}

func (d *DatabaseStore) GetOrdersByUser(ctx context.Context, userID string, limit int) ([]*models.Order, error) {
	var orders []*models.Order
	err := d.db.WithContext(ctx).Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&orders).Error
	return orders, err
}
