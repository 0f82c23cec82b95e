package orders_test

import (
	"testing"

	"sahara-backend/internal/models"
	"sahara-backend/internal/orders"

	"github.com/stretchr/testify/assert"
)

func items(statuses ...models.OrderStatus) []models.OrderItem {
	out := make([]models.OrderItem, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, models.OrderItem{Status: s})
	}
	return out
}

func TestDeriveStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		items    []models.OrderItem
		current  models.OrderStatus
		expected models.OrderStatus
	}{
		{
			"all delivered",
			items(models.StatusDelivered, models.StatusDelivered),
			models.StatusShipped, models.StatusDelivered,
		},
		{
			"all cancelled",
			items(models.StatusCancelled, models.StatusCancelled),
			models.StatusPending, models.StatusCancelled,
		},
		{
			"cancelled plus refunded still cancels",
			items(models.StatusCancelled, models.StatusRefunded),
			models.StatusPending, models.StatusCancelled,
		},
		{
			"partial progress leaves aggregate untouched",
			items(models.StatusPending, models.StatusDelivered),
			models.StatusPending, models.StatusPending,
		},
		{
			"in-progress item blocks cancellation",
			items(models.StatusCancelled, models.StatusShipped),
			models.StatusProcessing, models.StatusProcessing,
		},
		{
			"all refunded without a cancellation stays put",
			items(models.StatusRefunded, models.StatusRefunded),
			models.StatusConfirmed, models.StatusConfirmed,
		},
		{
			"delivered mixed with cancelled does not deliver",
			items(models.StatusDelivered, models.StatusCancelled),
			models.StatusProcessing, models.StatusCancelled,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, orders.DeriveStatus(tt.items, tt.current))
		})
	}
}

func TestCanTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from, to models.OrderStatus
		allowed  bool
	}{
		{models.StatusPending, models.StatusConfirmed, true},
		{models.StatusConfirmed, models.StatusProcessing, true},
		{models.StatusProcessing, models.StatusShipped, true},
		{models.StatusShipped, models.StatusDelivered, true},
		// no skipping ahead
		{models.StatusPending, models.StatusShipped, false},
		{models.StatusConfirmed, models.StatusDelivered, false},
		// no going backwards
		{models.StatusShipped, models.StatusProcessing, false},
		// cancel/refund from any non-terminal state
		{models.StatusPending, models.StatusCancelled, true},
		{models.StatusShipped, models.StatusCancelled, true},
		{models.StatusProcessing, models.StatusRefunded, true},
		// terminal states are final
		{models.StatusDelivered, models.StatusRefunded, false},
		{models.StatusCancelled, models.StatusConfirmed, false},
		{models.StatusRefunded, models.StatusCancelled, false},
		// no self transition via the forward chain
		{models.StatusPending, models.StatusPending, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.allowed, orders.CanTransition(tt.from, tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestIsTerminal(t *testing.T) {
	t.Parallel()

	assert.True(t, orders.IsTerminal(models.StatusDelivered))
	assert.True(t, orders.IsTerminal(models.StatusCancelled))
	assert.True(t, orders.IsTerminal(models.StatusRefunded))
	assert.False(t, orders.IsTerminal(models.StatusPending))
	assert.False(t, orders.IsTerminal(models.StatusShipped))
}
