package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/jeshanrai/orderbot-backend/internal/models"
	"github.com/jeshanrai/orderbot-backend/internal/storage"
)

// MenuHandler exposes the admin menu API.
type MenuHandler struct {
	store storage.Store
}

// NewMenuHandler creates a new menu handler.
func NewMenuHandler(store storage.Store) *MenuHandler {
	return &MenuHandler{store: store}
}

// MenuItemRequest is the admin upsert payload.
type MenuItemRequest struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Category      string `json:"category"`
	Description   string `json:"description"`
	Price         string `json:"price"`
	Available     *bool  `json:"available"`
	AgeRestricted bool   `json:"age_restricted"`
	Tags          string `json:"tags"`
}

// UpsertItem creates or updates a menu item.
func (h *MenuHandler) UpsertItem(c *fiber.Ctx) error {
	var req MenuItemRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.ID == "" || req.Name == "" || req.Category == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "id, name and category are required",
		})
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.IsNegative() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "price must be a non-negative decimal",
		})
	}

	available := true
	if req.Available != nil {
		available = *req.Available
	}

	item := &models.MenuItem{
		ID:            req.ID,
		Name:          req.Name,
		Category:      req.Category,
		Description:   req.Description,
		Price:         price,
		Available:     available,
		AgeRestricted: req.AgeRestricted,
		Tags:          req.Tags,
	}

	if err := h.store.UpsertMenuItem(c.Context(), item); err != nil {
		log.Printf("❌ Failed to upsert menu item %s: %v", req.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save menu item",
		})
	}

	return c.JSON(fiber.Map{"success": true, "item": item})
}

// ListItems returns the menu, optionally filtered by category.
func (h *MenuHandler) ListItems(c *fiber.Ctx) error {
	category := c.Query("category")

	if category != "" {
		items, err := h.store.ListItemsByCategory(c.Context(), category)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to list menu items",
			})
		}
		return c.JSON(fiber.Map{"items": items, "count": len(items)})
	}

	categories, err := h.store.ListCategories(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list categories",
		})
	}

	all := make([]*models.MenuItem, 0)
	for _, cat := range categories {
		items, err := h.store.ListItemsByCategory(c.Context(), cat)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to list menu items",
			})
		}
		all = append(all, items...)
	}
	return c.JSON(fiber.Map{"items": all, "count": len(all)})
}
