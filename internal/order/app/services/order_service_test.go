package services

import (
	"context"
	"testing"

	"quiklii/internal/order/domain/dto"
	"quiklii/internal/order/domain/models"
	"quiklii/internal/xpkg/auth"
	"quiklii/internal/xpkg/errs"
	"quiklii/internal/xpkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	orders      map[int64]*models.Order
	restaurants map[int64]*models.Restaurant
	menu        map[int64]models.MenuItem
	history     map[int64][]models.StatusLog
	nextID      int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		orders:      make(map[int64]*models.Order),
		restaurants: make(map[int64]*models.Restaurant),
		menu:        make(map[int64]models.MenuItem),
		history:     make(map[int64][]models.StatusLog),
		nextID:      1,
	}
}

func (f *fakeRepo) Create(_ context.Context, order *models.Order) (*models.Order, error) {
	order.ID = f.nextID
	f.nextID++
	order.Version = 1
	f.orders[order.ID] = order
	return order, nil
}

func (f *fakeRepo) GetByID(_ context.Context, orderID int64) (*models.Order, error) {
	order, ok := f.orders[orderID]
	if !ok {
		return nil, errs.NotFound("order %d not found", orderID)
	}
	copied := *order
	return &copied, nil
}

func (f *fakeRepo) History(_ context.Context, orderID int64) ([]models.StatusLog, error) {
	return f.history[orderID], nil
}

func (f *fakeRepo) UpdateStatus(_ context.Context, orderID int64, expectedVersion int64, from, to models.Status, changedBy, note string) (*models.Order, error) {
	order, ok := f.orders[orderID]
	if !ok {
		return nil, errs.NotFound("order %d not found", orderID)
	}
	if order.Version != expectedVersion || order.Status != from {
		return nil, errs.Conflict("order %d was modified concurrently, reload and retry", orderID)
	}
	order.Status = to
	order.Version++
	f.history[orderID] = append(f.history[orderID], models.StatusLog{
		OrderID: orderID, PreviousStatus: from, Status: to, ChangedBy: changedBy, Note: note,
	})
	copied := *order
	return &copied, nil
}

func (f *fakeRepo) GetRestaurant(_ context.Context, restaurantID int64) (*models.Restaurant, error) {
	restaurant, ok := f.restaurants[restaurantID]
	if !ok {
		return nil, errs.NotFound("restaurant %d not found", restaurantID)
	}
	return restaurant, nil
}

func (f *fakeRepo) GetMenuItems(_ context.Context, restaurantID int64, ids []int64) (map[int64]models.MenuItem, error) {
	menu := make(map[int64]models.MenuItem)
	for _, id := range ids {
		if item, ok := f.menu[id]; ok && item.RestaurantID == restaurantID {
			menu[id] = item
		}
	}
	return menu, nil
}

type fakePublisher struct {
	events []dto.StatusChangedEvent
}

func (f *fakePublisher) Close() error { return nil }

func (f *fakePublisher) PublishStatusChanged(_ context.Context, event dto.StatusChangedEvent) error {
	f.events = append(f.events, event)
	return nil
}

type fakeRefunder struct {
	requests []int64
}

func (f *fakeRefunder) RequestRefund(_ context.Context, orderID int64, _ string) error {
	f.requests = append(f.requests, orderID)
	return nil
}

func testService(t *testing.T) (*OrderService, *fakeRepo, *fakePublisher, *fakeRefunder) {
	t.Helper()
	mylog, err := logger.New("ERROR")
	require.NoError(t, err)

	repo := newFakeRepo()
	events := &fakePublisher{}
	refunds := &fakeRefunder{}
	return NewOrderService(repo, events, refunds, mylog), repo, events, refunds
}

func seedRestaurant(repo *fakeRepo) {
	repo.restaurants[1] = &models.Restaurant{ID: 1, Name: "La Arepa", Active: true, DeliveryFee: 4500}
	repo.menu[10] = models.MenuItem{ID: 10, RestaurantID: 1, Name: "Bandeja Paisa", Price: 15000, Available: true}
	repo.menu[11] = models.MenuItem{ID: 11, RestaurantID: 1, Name: "Arepa de Choclo", Price: 9000, Available: true}
	repo.menu[12] = models.MenuItem{ID: 12, RestaurantID: 1, Name: "Ajiaco", Price: 12000, Available: false}
}

var customer = auth.Claims{UserID: 7, Role: auth.RoleCustomer}

func validRequest() dto.CreateOrderRequest {
	return dto.CreateOrderRequest{
		RestaurantID: 1,
		Items: []dto.ItemRequest{
			{MenuItemID: 10, Quantity: 2},
			{MenuItemID: 11, Quantity: 1},
		},
		DeliveryAddress: "Calle 10 #43-12, Medellin",
		PaymentMethod:   models.MethodCard,
	}
}

func TestCreateComputesTotalFromSnapshots(t *testing.T) {
	svc, repo, _, _ := testService(t)
	seedRestaurant(repo)

	order, err := svc.Create(context.Background(), customer, validRequest())
	require.NoError(t, err)

	// 2*15000 + 1*9000 + 4500 delivery fee
	assert.Equal(t, int64(43500), order.TotalAmount)
	assert.Equal(t, models.StatusPending, order.Status)
	assert.Equal(t, int64(4500), order.DeliveryFee)
	require.Len(t, order.Items, 2)
	assert.Equal(t, int64(30000), order.Items[0].LineTotal)
	assert.Equal(t, int64(15000), order.Items[0].UnitPrice)
}

func TestCreateRejectsEmptyItems(t *testing.T) {
	svc, repo, _, _ := testService(t)
	seedRestaurant(repo)

	req := validRequest()
	req.Items = nil

	_, err := svc.Create(context.Background(), customer, req)
	assert.True(t, errs.IsKind(err, errs.KindValidation))
}

func TestCreateRejectsZeroQuantity(t *testing.T) {
	svc, repo, _, _ := testService(t)
	seedRestaurant(repo)

	req := validRequest()
	req.Items[0].Quantity = 0

	_, err := svc.Create(context.Background(), customer, req)
	assert.True(t, errs.IsKind(err, errs.KindValidation))
}

func TestCreateRejectsUnknownRestaurant(t *testing.T) {
	svc, repo, _, _ := testService(t)
	seedRestaurant(repo)

	req := validRequest()
	req.RestaurantID = 99

	_, err := svc.Create(context.Background(), customer, req)
	assert.True(t, errs.IsKind(err, errs.KindNotFound))
}

func TestCreateRejectsInactiveRestaurant(t *testing.T) {
	svc, repo, _, _ := testService(t)
	seedRestaurant(repo)
	repo.restaurants[1].Active = false

	_, err := svc.Create(context.Background(), customer, validRequest())
	assert.True(t, errs.IsKind(err, errs.KindConflict))
}

func TestCreateRejectsUnavailableItem(t *testing.T) {
	svc, repo, _, _ := testService(t)
	seedRestaurant(repo)

	req := validRequest()
	req.Items = append(req.Items, dto.ItemRequest{MenuItemID: 12, Quantity: 1})

	_, err := svc.Create(context.Background(), customer, req)
	assert.True(t, errs.IsKind(err, errs.KindConflict))
}

func TestCreateRejectsForeignMenuItem(t *testing.T) {
	svc, repo, _, _ := testService(t)
	seedRestaurant(repo)
	repo.menu[20] = models.MenuItem{ID: 20, RestaurantID: 2, Name: "Sushi", Price: 22000, Available: true}

	req := validRequest()
	req.Items = []dto.ItemRequest{{MenuItemID: 20, Quantity: 1}}

	_, err := svc.Create(context.Background(), customer, req)
	assert.True(t, errs.IsKind(err, errs.KindNotFound))
}

func placeOrder(t *testing.T, svc *OrderService, repo *fakeRepo) *models.Order {
	t.Helper()
	seedRestaurant(repo)
	order, err := svc.Create(context.Background(), customer, validRequest())
	require.NoError(t, err)
	return order
}

func TestTransitionHappyPath(t *testing.T) {
	svc, repo, events, _ := testService(t)
	order := placeOrder(t, svc, repo)

	restaurant := auth.Claims{UserID: 3, Role: auth.RoleRestaurant}
	updated, err := svc.Transition(context.Background(), restaurant, order.ID, dto.TransitionRequest{
		Status:  models.StatusConfirmed,
		Version: order.Version,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, updated.Status)
	assert.Equal(t, order.Version+1, updated.Version)

	require.Len(t, events.events, 1)
	assert.Equal(t, models.StatusPending, events.events[0].PreviousStatus)
	assert.Equal(t, models.StatusConfirmed, events.events[0].NewStatus)
	assert.Equal(t, order.ID, events.events[0].OrderID)
}

func TestTransitionRejectsSkippedState(t *testing.T) {
	svc, repo, _, _ := testService(t)
	order := placeOrder(t, svc, repo)

	courier := auth.Claims{UserID: 5, Role: auth.RoleCourier}
	_, err := svc.Transition(context.Background(), courier, order.ID, dto.TransitionRequest{
		Status:  models.StatusOnTheWay,
		Version: order.Version,
	})
	assert.True(t, errs.IsKind(err, errs.KindInvalidTransition))
}

func TestTransitionRejectsWrongRole(t *testing.T) {
	svc, repo, _, _ := testService(t)
	order := placeOrder(t, svc, repo)

	_, err := svc.Transition(context.Background(), customer, order.ID, dto.TransitionRequest{
		Status:  models.StatusConfirmed,
		Version: order.Version,
	})
	assert.True(t, errs.IsKind(err, errs.KindAuthentication))
}

func TestTransitionRejectsStaleVersion(t *testing.T) {
	svc, repo, _, _ := testService(t)
	order := placeOrder(t, svc, repo)

	restaurant := auth.Claims{UserID: 3, Role: auth.RoleRestaurant}
	_, err := svc.Transition(context.Background(), restaurant, order.ID, dto.TransitionRequest{
		Status:  models.StatusConfirmed,
		Version: order.Version + 5,
	})
	assert.True(t, errs.IsKind(err, errs.KindConflict))
}

func TestTransitionRejectsUnknownOrder(t *testing.T) {
	svc, repo, _, _ := testService(t)
	seedRestaurant(repo)

	restaurant := auth.Claims{UserID: 3, Role: auth.RoleRestaurant}
	_, err := svc.Transition(context.Background(), restaurant, 404, dto.TransitionRequest{
		Status:  models.StatusConfirmed,
		Version: 1,
	})
	assert.True(t, errs.IsKind(err, errs.KindNotFound))
}

func TestCancelFromPreparingThenConfirmFails(t *testing.T) {
	svc, repo, _, refunds := testService(t)
	order := placeOrder(t, svc, repo)

	restaurant := auth.Claims{UserID: 3, Role: auth.RoleRestaurant}
	confirmed, err := svc.Transition(context.Background(), restaurant, order.ID, dto.TransitionRequest{
		Status: models.StatusConfirmed, Version: order.Version,
	})
	require.NoError(t, err)
	preparing, err := svc.Transition(context.Background(), restaurant, order.ID, dto.TransitionRequest{
		Status: models.StatusPreparing, Version: confirmed.Version,
	})
	require.NoError(t, err)

	cancelled, err := svc.Cancel(context.Background(), customer, order.ID, dto.CancelRequest{
		Version: preparing.Version, Reason: "changed my mind",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)
	assert.Equal(t, []int64{order.ID}, refunds.requests)

	// cancelled is terminal
	_, err = svc.Transition(context.Background(), restaurant, order.ID, dto.TransitionRequest{
		Status: models.StatusConfirmed, Version: cancelled.Version,
	})
	assert.True(t, errs.IsKind(err, errs.KindInvalidTransition))
}

func TestCancelRejectsForeignCustomer(t *testing.T) {
	svc, repo, _, _ := testService(t)
	order := placeOrder(t, svc, repo)

	other := auth.Claims{UserID: 99, Role: auth.RoleCustomer}
	_, err := svc.Cancel(context.Background(), other, order.ID, dto.CancelRequest{Version: order.Version})
	assert.True(t, errs.IsKind(err, errs.KindAuthentication))
}

func TestCancelRejectsTerminalOrder(t *testing.T) {
	svc, repo, _, _ := testService(t)
	order := placeOrder(t, svc, repo)

	first, err := svc.Cancel(context.Background(), customer, order.ID, dto.CancelRequest{Version: order.Version})
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), customer, order.ID, dto.CancelRequest{Version: first.Version})
	assert.True(t, errs.IsKind(err, errs.KindInvalidTransition))
}
