package dto

import (
	"time"

	"quiklii/internal/order/domain/models"
)

type CreateOrderRequest struct {
	RestaurantID    int64                `json:"restaurant_id"`
	Items           []ItemRequest        `json:"items"`
	DeliveryAddress string               `json:"delivery_address"`
	PaymentMethod   models.PaymentMethod `json:"payment_method"`
}

type ItemRequest struct {
	MenuItemID   int64  `json:"menu_item_id"`
	Quantity     int    `json:"quantity"`
	Instructions string `json:"instructions,omitempty"`
}

type TransitionRequest struct {
	Status models.Status `json:"status"`
	// Version is the caller's last-seen order version; a stale value is
	// rejected instead of overwriting a concurrent transition.
	Version int64 `json:"version"`
	Note    string `json:"note,omitempty"`
}

type CancelRequest struct {
	Version int64  `json:"version"`
	Reason  string `json:"reason,omitempty"`
}

type OrderResponse struct {
	Order *models.Order `json:"order"`
}

type HistoryResponse struct {
	OrderID int64              `json:"order_id"`
	History []models.StatusLog `json:"history"`
}

// StatusChangedEvent is the payload published on order status transitions
// and fanned out to realtime sessions as "order_status_updated".
type StatusChangedEvent struct {
	OrderID        int64         `json:"order_id"`
	UserID         int64         `json:"user_id"`
	PreviousStatus models.Status `json:"previous_status"`
	NewStatus      models.Status `json:"new_status"`
	ChangedBy      string        `json:"changed_by"`
	Timestamp      time.Time     `json:"timestamp"`
}
