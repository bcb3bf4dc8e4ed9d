package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quiklii/internal/order/app/core"
	"quiklii/internal/order/domain/models"
	"quiklii/internal/xpkg/db"
	"quiklii/internal/xpkg/errs"
	"quiklii/internal/xpkg/logger"

	"github.com/jackc/pgx/v5"
)

type OrderRepo struct {
	db  *db.DB
	log logger.Logger
}

func NewOrderRepo(database *db.DB, log logger.Logger) core.IOrderRepo {
	return &OrderRepo{
		db:  database,
		log: log,
	}
}

func (or *OrderRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	tx, err := or.db.Pool.Begin(ctx)
	if err != nil {
		return nil, errs.Internal("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	err = tx.QueryRow(ctx, `
		INSERT INTO orders (
			user_id,
			restaurant_id,
			status,
			total_amount,
			delivery_fee,
			currency,
			delivery_address,
			payment_method,
			version,
			created_at,
			updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1, $9, $9)
		RETURNING id
	`,
		order.UserID,
		order.RestaurantID,
		order.Status,
		order.TotalAmount,
		order.DeliveryFee,
		order.Currency,
		order.DeliveryAddress,
		order.PaymentMethod,
		now,
	).Scan(&order.ID)
	if err != nil {
		return nil, errs.Internal("failed to insert order", err)
	}
	order.Version = 1
	order.CreatedAt = now
	order.UpdatedAt = now

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		err = tx.QueryRow(ctx, `
			INSERT INTO order_items (
				order_id,
				menu_item_id,
				name,
				quantity,
				unit_price,
				line_total,
				instructions
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id
		`, order.ID, item.MenuItemID, item.Name, item.Quantity, item.UnitPrice, item.LineTotal, item.Instructions).Scan(&item.ID)
		if err != nil {
			return nil, errs.Internal("failed to insert order item", err)
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO order_status_log (order_id, previous_status, status, changed_by, note, changed_at)
		VALUES ($1, '', $2, $3, '', $4)
	`, order.ID, order.Status, fmt.Sprintf("customer:%d", order.UserID), now)
	if err != nil {
		return nil, errs.Internal("failed to insert status log", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errs.Internal("failed to commit transaction", err)
	}

	return order, nil
}

func (or *OrderRepo) GetByID(ctx context.Context, orderID int64) (*models.Order, error) {
	order := &models.Order{}
	err := or.db.Pool.QueryRow(ctx, `
		SELECT id, user_id, restaurant_id, status, total_amount, delivery_fee,
		       currency, delivery_address, payment_method, estimated_delivery,
		       version, created_at, updated_at
		FROM orders
		WHERE id = $1
	`, orderID).Scan(
		&order.ID,
		&order.UserID,
		&order.RestaurantID,
		&order.Status,
		&order.TotalAmount,
		&order.DeliveryFee,
		&order.Currency,
		&order.DeliveryAddress,
		&order.PaymentMethod,
		&order.EstimatedDelivery,
		&order.Version,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("order %d not found", orderID)
	}
	if err != nil {
		return nil, errs.Internal("failed to load order", err)
	}

	rows, err := or.db.Pool.Query(ctx, `
		SELECT id, order_id, menu_item_id, name, quantity, unit_price, line_total, instructions
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, errs.Internal("failed to load order items", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.MenuItemID, &item.Name,
			&item.Quantity, &item.UnitPrice, &item.LineTotal, &item.Instructions); err != nil {
			return nil, errs.Internal("failed to scan order item", err)
		}
		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Internal("failed to read order items", err)
	}

	return order, nil
}

func (or *OrderRepo) History(ctx context.Context, orderID int64) ([]models.StatusLog, error) {
	rows, err := or.db.Pool.Query(ctx, `
		SELECT id, order_id, previous_status, status, changed_by, note, changed_at
		FROM order_status_log
		WHERE order_id = $1
		ORDER BY changed_at, id
	`, orderID)
	if err != nil {
		return nil, errs.Internal("failed to load status history", err)
	}
	defer rows.Close()

	var history []models.StatusLog
	for rows.Next() {
		var entry models.StatusLog
		if err := rows.Scan(&entry.ID, &entry.OrderID, &entry.PreviousStatus,
			&entry.Status, &entry.ChangedBy, &entry.Note, &entry.ChangedAt); err != nil {
			return nil, errs.Internal("failed to scan status log", err)
		}
		history = append(history, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Internal("failed to read status history", err)
	}

	return history, nil
}

// UpdateStatus is a compare-and-swap: the row is only updated when the
// caller's version matches, so concurrent transitions cannot silently
// overwrite each other.
func (or *OrderRepo) UpdateStatus(ctx context.Context, orderID int64, expectedVersion int64, from, to models.Status, changedBy, note string) (*models.Order, error) {
	tx, err := or.db.Pool.Begin(ctx)
	if err != nil {
		return nil, errs.Internal("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	cmdTag, err := tx.Exec(ctx, `
		UPDATE orders
		SET status = $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND version = $4 AND status = $5
	`, to, now, orderID, expectedVersion, from)
	if err != nil {
		return nil, errs.Internal("failed to update order status", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return nil, errs.Conflict("order %d was modified concurrently, reload and retry", orderID)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO order_status_log (order_id, previous_status, status, changed_by, note, changed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, orderID, from, to, changedBy, note, now)
	if err != nil {
		return nil, errs.Internal("failed to insert status log", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errs.Internal("failed to commit transaction", err)
	}

	return or.GetByID(ctx, orderID)
}

func (or *OrderRepo) GetRestaurant(ctx context.Context, restaurantID int64) (*models.Restaurant, error) {
	restaurant := &models.Restaurant{}
	err := or.db.Pool.QueryRow(ctx, `
		SELECT id, name, active, delivery_fee
		FROM restaurants
		WHERE id = $1
	`, restaurantID).Scan(&restaurant.ID, &restaurant.Name, &restaurant.Active, &restaurant.DeliveryFee)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("restaurant %d not found", restaurantID)
	}
	if err != nil {
		return nil, errs.Internal("failed to load restaurant", err)
	}
	return restaurant, nil
}

func (or *OrderRepo) GetMenuItems(ctx context.Context, restaurantID int64, menuItemIDs []int64) (map[int64]models.MenuItem, error) {
	rows, err := or.db.Pool.Query(ctx, `
		SELECT id, restaurant_id, name, price, available
		FROM menu_items
		WHERE restaurant_id = $1 AND id = ANY($2)
	`, restaurantID, menuItemIDs)
	if err != nil {
		return nil, errs.Internal("failed to load menu items", err)
	}
	defer rows.Close()

	menu := make(map[int64]models.MenuItem, len(menuItemIDs))
	for rows.Next() {
		var item models.MenuItem
		if err := rows.Scan(&item.ID, &item.RestaurantID, &item.Name, &item.Price, &item.Available); err != nil {
			return nil, errs.Internal("failed to scan menu item", err)
		}
		menu[item.ID] = item
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Internal("failed to read menu items", err)
	}

	return menu, nil
}
