package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		allowed bool
	}{
		{"pending to confirmed", StatusPending, StatusConfirmed, true},
		{"confirmed to preparing", StatusConfirmed, StatusPreparing, true},
		{"preparing to on_the_way", StatusPreparing, StatusOnTheWay, true},
		{"on_the_way to delivered", StatusOnTheWay, StatusDelivered, true},
		{"pending skips to on_the_way", StatusPending, StatusOnTheWay, false},
		{"pending skips to delivered", StatusPending, StatusDelivered, false},
		{"confirmed back to pending", StatusConfirmed, StatusPending, false},
		{"preparing back to confirmed", StatusPreparing, StatusConfirmed, false},
		{"pending to cancelled", StatusPending, StatusCancelled, true},
		{"confirmed to cancelled", StatusConfirmed, StatusCancelled, true},
		{"preparing to cancelled", StatusPreparing, StatusCancelled, true},
		{"on_the_way to cancelled", StatusOnTheWay, StatusCancelled, true},
		{"delivered to cancelled", StatusDelivered, StatusCancelled, false},
		{"cancelled to confirmed", StatusCancelled, StatusConfirmed, false},
		{"delivered to anything", StatusDelivered, StatusPreparing, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransition(tt.to))
		})
	}
}

func TestTerminal(t *testing.T) {
	assert.True(t, StatusDelivered.Terminal())
	assert.True(t, StatusCancelled.Terminal())

	for _, s := range []Status{StatusPending, StatusConfirmed, StatusPreparing, StatusOnTheWay} {
		assert.False(t, s.Terminal(), "status %s should not be terminal", s)
	}
}

func TestValidStatus(t *testing.T) {
	assert.True(t, ValidStatus(StatusPending))
	assert.True(t, ValidStatus(StatusCancelled))
	assert.False(t, ValidStatus(Status("received")))
	assert.False(t, ValidStatus(Status("")))
}

func TestValidPaymentMethod(t *testing.T) {
	assert.True(t, ValidPaymentMethod(MethodCard))
	assert.True(t, ValidPaymentMethod(MethodCash))
	assert.True(t, ValidPaymentMethod(MethodWallet))
	assert.False(t, ValidPaymentMethod(PaymentMethod("crypto")))
}
