package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/cafe-pos/api/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MenuItemRequest is the input for creating or updating a menu item.
type MenuItemRequest struct {
	Name     string
	Price    decimal.Decimal
	Category string
	InStock  bool
}

func (r MenuItemRequest) validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return invalidInput("name is required")
	}
	if r.Price.IsNegative() {
		return ErrInvalidPrice
	}
	return nil
}

func (l *Lifecycle) ListMenu(ctx context.Context, category string) ([]model.MenuItem, error) {
	items, err := l.store.ListMenuItems(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("list menu: %w", err)
	}
	return items, nil
}

func (l *Lifecycle) CreateMenuItem(ctx context.Context, req MenuItemRequest) (model.MenuItem, error) {
	if err := req.validate(); err != nil {
		return model.MenuItem{}, err
	}
	now := l.now().UTC()
	m, err := l.store.CreateMenuItem(ctx, model.MenuItem{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(req.Name),
		Price:     req.Price.Round(2),
		Category:  strings.TrimSpace(req.Category),
		InStock:   req.InStock,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return model.MenuItem{}, fmt.Errorf("create menu item: %w", err)
	}
	return m, nil
}

// UpdateMenuItem changes a menu item. Orders already placed keep the price
// captured on their items.
func (l *Lifecycle) UpdateMenuItem(ctx context.Context, id uuid.UUID, req MenuItemRequest) (model.MenuItem, error) {
	if err := req.validate(); err != nil {
		return model.MenuItem{}, err
	}
	m, err := l.store.GetMenuItem(ctx, id)
	if err != nil {
		return model.MenuItem{}, fmt.Errorf("menu item %s: %w", id, err)
	}
	m.Name = strings.TrimSpace(req.Name)
	m.Price = req.Price.Round(2)
	m.Category = strings.TrimSpace(req.Category)
	m.InStock = req.InStock
	m.UpdatedAt = l.now().UTC()
	updated, err := l.store.UpdateMenuItem(ctx, m)
	if err != nil {
		return model.MenuItem{}, fmt.Errorf("update menu item: %w", err)
	}
	return updated, nil
}

// SetStock flips the in-stock flag.
func (l *Lifecycle) SetStock(ctx context.Context, id uuid.UUID, inStock bool) (model.MenuItem, error) {
	m, err := l.store.GetMenuItem(ctx, id)
	if err != nil {
		return model.MenuItem{}, fmt.Errorf("menu item %s: %w", id, err)
	}
	m.InStock = inStock
	m.UpdatedAt = l.now().UTC()
	updated, err := l.store.UpdateMenuItem(ctx, m)
	if err != nil {
		return model.MenuItem{}, fmt.Errorf("update menu item: %w", err)
	}
	return updated, nil
}
