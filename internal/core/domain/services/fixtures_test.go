package services_test

import (
	"testing"
	"time"

	"lastmile/internal/core/domain/model/delivery"
	"lastmile/internal/core/domain/model/kernel"

	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

const hour = time.Hour

func coords(t *testing.T, lat, lon float64) kernel.Coordinates {
	t.Helper()
	c, err := kernel.NewCoordinates(lat, lon)
	require.NoError(t, err)
	return c
}

func window(t *testing.T, from, to time.Duration) *kernel.TimeWindow {
	t.Helper()
	w, err := kernel.NewTimeWindow(base.Add(from), base.Add(to))
	require.NoError(t, err)
	return &w
}

type deliveryOption func(*delivery.Snapshot)

func withDriver(id kernel.UUID) deliveryOption {
	return func(s *delivery.Snapshot) { s.DriverID = &id }
}

func withWindow(w *kernel.TimeWindow) deliveryOption {
	return func(s *delivery.Snapshot) { s.Window = w }
}

func withFailedAttempts(n int) deliveryOption {
	return func(s *delivery.Snapshot) { s.FailedAttempts = n }
}

func restore(t *testing.T, status delivery.Status, opts ...deliveryOption) *delivery.Delivery {
	t.Helper()
	s := delivery.Snapshot{
		ID:                  kernel.NewUUID(),
		TrackingCode:        delivery.NewTrackingCode(),
		Status:              status,
		Priority:            delivery.PriorityNormal,
		Pickup:              coords(t, -23.5505, -46.6333),
		Dropoff:             coords(t, -23.5615, -46.6559),
		ScheduledPickupAt:   base,
		ScheduledDeliveryAt: base.Add(2 * time.Hour),
		CreatedAt:           base.Add(-time.Hour),
	}
	for _, opt := range opts {
		opt(&s)
	}
	d, err := delivery.RestoreDelivery(s)
	require.NoError(t, err)
	return d
}
