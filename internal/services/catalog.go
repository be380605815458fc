package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jeshanrai/orderbot-backend/internal/models"
	"github.com/jeshanrai/orderbot-backend/internal/storage"
)

// Catalog is the menu collaborator. All results are availability-filtered
// and carry the authoritative prices.
type Catalog interface {
	ListCategories(ctx context.Context) ([]string, error)
	ListItemsByCategory(ctx context.Context, category string) ([]*models.MenuItem, error)
	GetItemByID(ctx context.Context, id string) (*models.MenuItem, error)
	FindItemsByName(ctx context.Context, name string) ([]*models.MenuItem, error)
	Recommend(ctx context.Context, tag string) ([]*models.MenuItem, error)
}

const maxRecommendations = 5

// StoreCatalog serves the catalog from the primary store.
type StoreCatalog struct {
	store storage.Store
}

// NewStoreCatalog creates a store-backed catalog.
func NewStoreCatalog(store storage.Store) *StoreCatalog {
	return &StoreCatalog{store: store}
}

func (c *StoreCatalog) ListCategories(ctx context.Context) ([]string, error) {
	return c.store.ListCategories(ctx)
}

func (c *StoreCatalog) ListItemsByCategory(ctx context.Context, category string) ([]*models.MenuItem, error) {
	return c.store.ListItemsByCategory(ctx, category)
}

func (c *StoreCatalog) GetItemByID(ctx context.Context, id string) (*models.MenuItem, error) {
	return c.store.GetMenuItem(ctx, id)
}

func (c *StoreCatalog) FindItemsByName(ctx context.Context, name string) ([]*models.MenuItem, error) {
	return c.store.SearchMenuItems(ctx, name)
}

func (c *StoreCatalog) Recommend(ctx context.Context, tag string) ([]*models.MenuItem, error) {
	var (
		items []*models.MenuItem
		err   error
	)
	if strings.TrimSpace(tag) != "" {
		items, err = c.store.SearchMenuItemsByTag(ctx, tag)
	} else {
		items, err = c.store.SearchMenuItems(ctx, "")
	}
	if err != nil {
		return nil, err
	}
	if len(items) > maxRecommendations {
		items = items[:maxRecommendations]
	}
	return items, nil
}

// resolveItem finds one menu item for a user-supplied reference: stable id
// first, then exact name, then substring match. Item identity is always
// the catalog id afterwards, so case and spacing variants of a name can
// never produce two cart lines. A failed lookup is only reported as
// storage.ErrNotFound when the catalog actually answered; transport errors
// pass through so callers never mistake an outage for a missing item.
func resolveItem(ctx context.Context, catalog Catalog, ref string) (*models.MenuItem, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("empty item reference: %w", storage.ErrNotFound)
	}

	item, err := catalog.GetItemByID(ctx, ref)
	if err == nil && item != nil {
		return item, nil
	}
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	matches, err := catalog.FindItemsByName(ctx, ref)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no menu item matches %q: %w", ref, storage.ErrNotFound)
	}
	for _, m := range matches {
		if strings.EqualFold(m.Name, ref) {
			return m, nil
		}
	}
	return matches[0], nil
}
