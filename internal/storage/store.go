package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/jeshanrai/orderbot-backend/internal/models"
)

// ErrNotFound marks a lookup that found no (available) record. Callers use
// errors.Is to tell genuine absence apart from transport failures, which
// must never be treated as "gone".
var ErrNotFound = errors.New("not found")

// SessionStore is the durable per-user conversation state. LoadSession
// creates and persists a default session when none exists; it never returns
// a nil session without an error. SaveSession is an upsert, last writer
// wins, and stamps UpdatedAt.
type SessionStore interface {
	LoadSession(ctx context.Context, userID string) (*models.Session, error)
	SaveSession(ctx context.Context, session *models.Session) error
	// ListIdleSessions returns sessions not updated for at least idleFor.
	ListIdleSessions(ctx context.Context, idleFor time.Duration) ([]*models.Session, error)
	Close() error
}

// Store defines menu catalog and order persistence.
type Store interface {
	// Menu operations
	ListCategories(ctx context.Context) ([]string, error)
	ListItemsByCategory(ctx context.Context, category string) ([]*models.MenuItem, error)
	GetMenuItem(ctx context.Context, id string) (*models.MenuItem, error)
	SearchMenuItems(ctx context.Context, query string) ([]*models.MenuItem, error)
	SearchMenuItemsByTag(ctx context.Context, tag string) ([]*models.MenuItem, error)
	UpsertMenuItem(ctx context.Context, item *models.MenuItem) error
	CountMenuItems(ctx context.Context) (int64, error)

	// Order operations. CreateOrder persists the order and all of its
	// items atomically.
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
	UpdateOrder(ctx context.Context, order *models.Order) error
	GetOrdersByUser(ctx context.Context, userID string, limit int) ([]*models.Order, error)
}

// Session store driver names, selected via the SESSION_STORE env var.
const (
	SessionStoreMemory   = "memory"
	SessionStorePostgres = "postgres"
	SessionStoreRedis    = "redis"
)

// NewSessionStore builds a session store for the given driver. The postgres
// driver needs db, the redis driver needs client.
func NewSessionStore(driver string, db *gorm.DB, client *redis.Client) (SessionStore, error) {
	switch driver {
	case SessionStoreMemory, "":
		return NewMemoryStore(), nil
	case SessionStorePostgres:
		if db == nil {
			return nil, fmt.Errorf("postgres session store requires a database connection")
		}
		return NewDatabaseStore(db), nil
	case SessionStoreRedis:
		if client == nil {
			return nil, fmt.Errorf("redis session store requires a redis client")
		}
		return NewRedisSessionStore(client, 0), nil
	default:
		return nil, fmt.Errorf("unknown session store driver %q", driver)
	}
}
