package core

import (
	"context"

	"quiklii/internal/order/domain/models"
)

type IOrderRepo interface {
	// Create inserts the order, its items, and the initial status-log row
	// in one transaction.
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	GetByID(ctx context.Context, orderID int64) (*models.Order, error)
	History(ctx context.Context, orderID int64) ([]models.StatusLog, error)
	// UpdateStatus applies a compare-and-swap on (id, expectedVersion) and
	// appends a status-log row. A stale version yields zero rows updated.
	UpdateStatus(ctx context.Context, orderID int64, expectedVersion int64, from, to models.Status, changedBy, note string) (*models.Order, error)
	GetRestaurant(ctx context.Context, restaurantID int64) (*models.Restaurant, error)
	GetMenuItems(ctx context.Context, restaurantID int64, menuItemIDs []int64) (map[int64]models.MenuItem, error)
}
