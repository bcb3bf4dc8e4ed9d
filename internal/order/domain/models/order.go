package models

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusPreparing Status = "preparing"
	StatusOnTheWay  Status = "on_the_way"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// transitions is the full lifecycle table. cancelled is reachable from any
// non-terminal state; delivered and cancelled are terminal.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusOnTheWay, StatusCancelled},
	StatusOnTheWay:  {StatusDelivered, StatusCancelled},
	StatusDelivered: {},
	StatusCancelled: {},
}

func ValidStatus(s Status) bool {
	_, ok := transitions[s]
	return ok
}

func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransition reports whether target is reachable from s in one step.
func (s Status) CanTransition(target Status) bool {
	for _, next := range transitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

type PaymentMethod string

const (
	MethodCard   PaymentMethod = "card"
	MethodCash   PaymentMethod = "cash"
	MethodWallet PaymentMethod = "wallet"
)

func ValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case MethodCard, MethodCash, MethodWallet:
		return true
	}
	return false
}

// Amounts are integer minor units (e.g. cents, centavos).
type Order struct {
	ID                int64         `json:"id"`
	UserID            int64         `json:"user_id"`
	RestaurantID      int64         `json:"restaurant_id"`
	Status            Status        `json:"status"`
	Items             []OrderItem   `json:"items"`
	TotalAmount       int64         `json:"total_amount"`
	DeliveryFee       int64         `json:"delivery_fee"`
	Currency          string        `json:"currency"`
	DeliveryAddress   string        `json:"delivery_address"`
	PaymentMethod     PaymentMethod `json:"payment_method"`
	EstimatedDelivery *time.Time    `json:"estimated_delivery,omitempty"`
	Version           int64         `json:"version"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

type OrderItem struct {
	ID           int64  `json:"id"`
	OrderID      int64  `json:"order_id"`
	MenuItemID   int64  `json:"menu_item_id"`
	Name         string `json:"name"`
	Quantity     int    `json:"quantity"`
	UnitPrice    int64  `json:"unit_price"`
	LineTotal    int64  `json:"line_total"`
	Instructions string `json:"instructions,omitempty"`
}

type StatusLog struct {
	ID             int64     `json:"id"`
	OrderID        int64     `json:"order_id"`
	PreviousStatus Status    `json:"previous_status"`
	Status         Status    `json:"status"`
	ChangedBy      string    `json:"changed_by"`
	Note           string    `json:"note,omitempty"`
	ChangedAt      time.Time `json:"changed_at"`
}

// MenuItem is the read model checked at order creation; the catalog itself
// is owned elsewhere.
type MenuItem struct {
	ID           int64
	RestaurantID int64
	Name         string
	Price        int64
	Available    bool
}

type Restaurant struct {
	ID          int64
	Name        string
	Active      bool
	DeliveryFee int64
}
