package hub

import (
	"testing"

	"quiklii/internal/xpkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSubscriber struct {
	id       string
	received []string
	full     bool
}

func (f *fakeSubscriber) ID() string { return f.id }

func (f *fakeSubscriber) TrySend(event string, _ []byte) bool {
	if f.full {
		return false
	}
	f.received = append(f.received, event)
	return true
}

func testHub(t *testing.T) *Hub {
	t.Helper()
	mylog, err := logger.New("ERROR")
	require.NoError(t, err)
	return New(mylog)
}

func TestPublishReachesRoomMembers(t *testing.T) {
	h := testHub(t)
	a := &fakeSubscriber{id: "a"}
	b := &fakeSubscriber{id: "b"}

	h.Join(a, RoomForOrder(42))
	h.Join(b, RoomForOrder(42))
	h.Join(b, RoomForUser(7))

	delivered := h.Publish(RoomForOrder(42), "order_status_updated", []byte(`{}`))
	assert.Equal(t, 2, delivered)

	delivered = h.Publish(RoomForUser(7), "payment_status_updated", []byte(`{}`))
	assert.Equal(t, 1, delivered)
	assert.Equal(t, []string{"order_status_updated"}, a.received)
	assert.Equal(t, []string{"order_status_updated", "payment_status_updated"}, b.received)
}

func TestJoinIsIdempotent(t *testing.T) {
	h := testHub(t)
	a := &fakeSubscriber{id: "a"}

	h.Join(a, RoomForOrder(1))
	h.Join(a, RoomForOrder(1))

	delivered := h.Publish(RoomForOrder(1), "order_status_updated", nil)
	assert.Equal(t, 1, delivered)
	assert.Len(t, a.received, 1)
}

func TestLeaveStopsDelivery(t *testing.T) {
	h := testHub(t)
	a := &fakeSubscriber{id: "a"}

	h.Join(a, RoomForOrder(1))
	h.Leave(a, RoomForOrder(1))

	assert.Zero(t, h.Publish(RoomForOrder(1), "order_status_updated", nil))
	assert.Empty(t, a.received)

	// Leaving a room never joined is fine.
	h.Leave(a, RoomForOrder(2))
}

func TestDisconnectPurgesAllRooms(t *testing.T) {
	h := testHub(t)
	a := &fakeSubscriber{id: "a"}

	h.Join(a, RoomForUser(7))
	h.Join(a, RoomForOrder(1))
	h.Join(a, RoomForOrder(2))
	require.Len(t, h.Rooms(a), 3)

	h.Disconnect(a)

	assert.Empty(t, h.Rooms(a))
	assert.Zero(t, h.Publish(RoomForUser(7), "x", nil))
	assert.Zero(t, h.Publish(RoomForOrder(1), "x", nil))
	assert.Zero(t, h.Publish(RoomForOrder(2), "x", nil))
}

func TestSlowSubscriberIsSkipped(t *testing.T) {
	h := testHub(t)
	slow := &fakeSubscriber{id: "slow", full: true}
	fast := &fakeSubscriber{id: "fast"}

	h.Join(slow, RoomForOrder(1))
	h.Join(fast, RoomForOrder(1))

	delivered := h.Publish(RoomForOrder(1), "order_status_updated", nil)
	assert.Equal(t, 1, delivered)
	assert.Empty(t, slow.received)
	assert.Len(t, fast.received, 1)
}

func TestPublishToEmptyRoom(t *testing.T) {
	h := testHub(t)
	assert.Zero(t, h.Publish(RoomForOrder(99), "order_status_updated", nil))
}
