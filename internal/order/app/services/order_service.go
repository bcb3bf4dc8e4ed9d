package services

import (
	"context"
	"fmt"
	"time"

	"quiklii/internal/order/app/core"
	"quiklii/internal/order/domain/dto"
	"quiklii/internal/order/domain/models"
	"quiklii/internal/xpkg/auth"
	"quiklii/internal/xpkg/errs"
	"quiklii/internal/xpkg/logger"
)

const DefaultCurrency = "COP"

// transitionRoles names the single authorized trigger per target status.
// Cancellation goes through Cancel, not Transition.
var transitionRoles = map[models.Status][]string{
	models.StatusConfirmed: {auth.RoleRestaurant, auth.RoleSystem},
	models.StatusPreparing: {auth.RoleRestaurant},
	models.StatusOnTheWay:  {auth.RoleCourier},
	models.StatusDelivered: {auth.RoleCourier},
}

type OrderService struct {
	orderRepo core.IOrderRepo
	events    core.IEventPublisher
	refunds   core.IRefundRequester
	mylog     logger.Logger
}

func NewOrderService(
	orderRepo core.IOrderRepo,
	events core.IEventPublisher,
	refunds core.IRefundRequester,
	mylog logger.Logger,
) *OrderService {
	return &OrderService{
		orderRepo: orderRepo,
		events:    events,
		refunds:   refunds,
		mylog:     mylog,
	}
}

// Create validates the request, snapshots current menu prices into line
// items, and persists the order in pending status.
func (os *OrderService) Create(ctx context.Context, actor auth.Claims, req dto.CreateOrderRequest) (*models.Order, error) {
	mylog := os.mylog.Action("create_order")

	if err := validateCreateRequest(req); err != nil {
		return nil, err
	}

	restaurant, err := os.orderRepo.GetRestaurant(ctx, req.RestaurantID)
	if err != nil {
		return nil, err
	}
	if !restaurant.Active {
		return nil, errs.Conflict("restaurant %d is not accepting orders", restaurant.ID)
	}

	ids := make([]int64, 0, len(req.Items))
	for _, item := range req.Items {
		ids = append(ids, item.MenuItemID)
	}
	menu, err := os.orderRepo.GetMenuItems(ctx, req.RestaurantID, ids)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		UserID:          actor.UserID,
		RestaurantID:    req.RestaurantID,
		Status:          models.StatusPending,
		DeliveryFee:     restaurant.DeliveryFee,
		Currency:        DefaultCurrency,
		DeliveryAddress: req.DeliveryAddress,
		PaymentMethod:   req.PaymentMethod,
	}

	// Unit prices are snapshotted here; later menu price changes must not
	// alter an already-placed order.
	var total int64
	for _, item := range req.Items {
		menuItem, ok := menu[item.MenuItemID]
		if !ok {
			return nil, errs.NotFound("menu item %d not found in restaurant %d", item.MenuItemID, req.RestaurantID)
		}
		if !menuItem.Available {
			return nil, errs.Conflict("menu item %q is currently unavailable", menuItem.Name)
		}

		lineTotal := int64(item.Quantity) * menuItem.Price
		total += lineTotal
		order.Items = append(order.Items, models.OrderItem{
			MenuItemID:   menuItem.ID,
			Name:         menuItem.Name,
			Quantity:     item.Quantity,
			UnitPrice:    menuItem.Price,
			LineTotal:    lineTotal,
			Instructions: item.Instructions,
		})
	}
	order.TotalAmount = total + order.DeliveryFee

	newOrder, err := os.orderRepo.Create(ctx, order)
	if err != nil {
		mylog.Error("Failed to save order", err)
		return nil, err
	}

	mylog.With("order_id", newOrder.ID, "total_amount", newOrder.TotalAmount).Info("Order created")
	return newOrder, nil
}

// Transition moves an order one step along the lifecycle. The caller's
// last-seen version is required; a stale one is rejected rather than
// overwriting a concurrent transition.
func (os *OrderService) Transition(ctx context.Context, actor auth.Claims, orderID int64, req dto.TransitionRequest) (*models.Order, error) {
	mylog := os.mylog.Action("transition_order").With("order_id", orderID, "target_status", req.Status)

	if !models.ValidStatus(req.Status) {
		return nil, errs.Validation("unknown status: %s", req.Status)
	}
	if req.Status == models.StatusCancelled {
		return nil, errs.Validation("use the cancel operation to cancel an order")
	}
	if req.Status == models.StatusPending {
		return nil, errs.InvalidTransition("no status transitions into %s", models.StatusPending)
	}

	roles, ok := transitionRoles[req.Status]
	if !ok || !roleAllowed(roles, actor.Role) {
		return nil, errs.Authentication("role %s may not set status %s", actor.Role, req.Status)
	}

	order, err := os.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransition(req.Status) {
		return nil, errs.InvalidTransition("cannot transition order %d from %s to %s", orderID, order.Status, req.Status)
	}

	updated, err := os.orderRepo.UpdateStatus(ctx, orderID, req.Version, order.Status, req.Status, actorName(actor), req.Note)
	if err != nil {
		return nil, err
	}

	os.emitStatusChanged(ctx, mylog, updated, order.Status, actorName(actor))
	mylog.Info("Order status updated")
	return updated, nil
}

// Cancel marks a non-terminal order cancelled and asks the payment service
// to record a refund intent. A failed refund request is logged, not rolled
// back; the refund sweep owns the retry.
func (os *OrderService) Cancel(ctx context.Context, actor auth.Claims, orderID int64, req dto.CancelRequest) (*models.Order, error) {
	mylog := os.mylog.Action("cancel_order").With("order_id", orderID)

	order, err := os.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status.Terminal() {
		return nil, errs.InvalidTransition("order %d is already %s", orderID, order.Status)
	}
	if actor.Role == auth.RoleCustomer && order.UserID != actor.UserID {
		return nil, errs.Authentication("order %d does not belong to user %d", orderID, actor.UserID)
	}

	updated, err := os.orderRepo.UpdateStatus(ctx, orderID, req.Version, order.Status, models.StatusCancelled, actorName(actor), req.Reason)
	if err != nil {
		return nil, err
	}

	os.emitStatusChanged(ctx, mylog, updated, order.Status, actorName(actor))

	if err := os.refunds.RequestRefund(ctx, orderID, req.Reason); err != nil {
		// Compensation is best effort here; the intent sweep retries.
		mylog.Action("refund_request_failed").Error("Failed to record refund intent", err)
	}

	mylog.Info("Order cancelled")
	return updated, nil
}

func (os *OrderService) Get(ctx context.Context, orderID int64) (*models.Order, error) {
	return os.orderRepo.GetByID(ctx, orderID)
}

func (os *OrderService) History(ctx context.Context, orderID int64) ([]models.StatusLog, error) {
	if _, err := os.orderRepo.GetByID(ctx, orderID); err != nil {
		return nil, err
	}
	return os.orderRepo.History(ctx, orderID)
}

func (os *OrderService) emitStatusChanged(ctx context.Context, mylog logger.Logger, order *models.Order, previous models.Status, changedBy string) {
	event := dto.StatusChangedEvent{
		OrderID:        order.ID,
		UserID:         order.UserID,
		PreviousStatus: previous,
		NewStatus:      order.Status,
		ChangedBy:      changedBy,
		Timestamp:      time.Now().UTC(),
	}
	if err := os.events.PublishStatusChanged(ctx, event); err != nil {
		// Delivery to live sessions is fire and forget.
		mylog.Action("event_publish_failed").Error("Failed to publish status event", err)
	}
}

func validateCreateRequest(req dto.CreateOrderRequest) error {
	if req.RestaurantID <= 0 {
		return errs.Validation("restaurant_id is required")
	}
	if len(req.Items) < core.MinItems {
		return errs.Validation("order must contain at least one item")
	}
	if len(req.Items) > core.MaxItems {
		return errs.Validation("order may contain at most %d items", core.MaxItems)
	}
	for i, item := range req.Items {
		if item.MenuItemID <= 0 {
			return errs.Validation("item %d: menu_item_id is required", i+1)
		}
		if item.Quantity < core.MinItemQuantity || item.Quantity > core.MaxItemQuantity {
			return errs.Validation("item %d: quantity %d must be in range [%d, %d]", i+1, item.Quantity, core.MinItemQuantity, core.MaxItemQuantity)
		}
		if len(item.Instructions) > core.MaxInstructionsLen {
			return errs.Validation("item %d: instructions exceed %d characters", i+1, core.MaxInstructionsLen)
		}
	}
	addrLen := len(req.DeliveryAddress)
	if addrLen < core.MinAddressLen || addrLen > core.MaxAddressLen {
		return errs.Validation("delivery address length %d must be in range [%d, %d]", addrLen, core.MinAddressLen, core.MaxAddressLen)
	}
	if !models.ValidPaymentMethod(req.PaymentMethod) {
		return errs.Validation("unknown payment method: %s", req.PaymentMethod)
	}
	return nil
}

func roleAllowed(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func actorName(actor auth.Claims) string {
	if actor.Role == auth.RoleSystem {
		return auth.RoleSystem
	}
	return fmt.Sprintf("%s:%d", actor.Role, actor.UserID)
}
