package commands_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"lastmile/internal/core/application/usecases/commands"
	"lastmile/internal/core/domain/model/delivery"
	"lastmile/internal/core/domain/model/kernel"
	"lastmile/internal/core/domain/services"
	"lastmile/internal/core/ports"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type MockDeliveryRepository struct{ mock.Mock }

func (m *MockDeliveryRepository) Add(ctx context.Context, d *delivery.Delivery) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDeliveryRepository) Update(ctx context.Context, d *delivery.Delivery) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDeliveryRepository) Get(ctx context.Context, id kernel.UUID) (*delivery.Delivery, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*delivery.Delivery), args.Error(1)
}

func (m *MockDeliveryRepository) FindActiveByDriver(ctx context.Context, driverID kernel.UUID) ([]*delivery.Delivery, error) {
	args := m.Called(ctx, driverID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*delivery.Delivery), args.Error(1)
}

func (m *MockDeliveryRepository) FindAllActive(ctx context.Context) ([]*delivery.Delivery, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*delivery.Delivery), args.Error(1)
}

type MockHistoryRepository struct{ mock.Mock }

func (m *MockHistoryRepository) Append(ctx context.Context, entry *delivery.StatusHistoryEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockHistoryRepository) ListByDelivery(ctx context.Context, id kernel.UUID) ([]*delivery.StatusHistoryEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*delivery.StatusHistoryEntry), args.Error(1)
}

type MockUoW struct{ mock.Mock }

func (m *MockUoW) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUoW) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUoW) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUoW) DeliveryRepository() ports.DeliveryRepository {
	args := m.Called()
	return args.Get(0).(ports.DeliveryRepository)
}

func (m *MockUoW) StatusHistoryRepository() ports.StatusHistoryRepository {
	args := m.Called()
	return args.Get(0).(ports.StatusHistoryRepository)
}

type MockUoWFactory struct{ mock.Mock }

func (m *MockUoWFactory) Create() commands.UoW {
	args := m.Called()
	return args.Get(0).(commands.UoW)
}

type MockTransitionHook struct{ mock.Mock }

func (m *MockTransitionHook) AfterTransition(ctx context.Context, event ports.TransitionEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type MockAuditSink struct{ mock.Mock }

func (m *MockAuditSink) Write(ctx context.Context, record services.AuditRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

// harness wires one unit of work with mocked repositories.
type harness struct {
	deliveries *MockDeliveryRepository
	history    *MockHistoryRepository
	uow        *MockUoW
	factory    *MockUoWFactory
	hook       *MockTransitionHook
	audit      *MockAuditSink
	effects    commands.SideEffects
}

func newHarness() *harness {
	h := &harness{
		deliveries: new(MockDeliveryRepository),
		history:    new(MockHistoryRepository),
		uow:        new(MockUoW),
		factory:    new(MockUoWFactory),
		hook:       new(MockTransitionHook),
		audit:      new(MockAuditSink),
	}
	h.uow.On("DeliveryRepository").Return(h.deliveries).Maybe()
	h.uow.On("StatusHistoryRepository").Return(h.history).Maybe()
	h.effects = commands.NewSideEffects(
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		services.DefaultAuditPolicy(),
		h.audit,
		h.hook,
	)
	return h
}

// expectTransaction expects a unit of work that begins and always rolls back.
// Deliveries have no stored history unless the test registered
// ListByDelivery before calling it.
func (h *harness) expectTransaction(ctx context.Context, commit bool) {
	h.history.On("ListByDelivery", ctx, mock.Anything).Return(nil, nil).Maybe()
	h.factory.On("Create").Return(h.uow).Once()
	h.uow.On("Begin", ctx).Return(nil).Once()
	if commit {
		h.uow.On("Commit", ctx).Return(nil).Once()
	}
	h.uow.On("Rollback", ctx).Return(nil).Once()
}

func (h *harness) assertExpectations(t *testing.T) {
	t.Helper()
	h.deliveries.AssertExpectations(t)
	h.history.AssertExpectations(t)
	h.uow.AssertExpectations(t)
	h.factory.AssertExpectations(t)
	h.hook.AssertExpectations(t)
	h.audit.AssertExpectations(t)
}

func coords(t *testing.T, lat, lon float64) kernel.Coordinates {
	t.Helper()
	c, err := kernel.NewCoordinates(lat, lon)
	require.NoError(t, err)
	return c
}

type deliveryOption func(*delivery.Snapshot)

func withDriver(id kernel.UUID) deliveryOption {
	return func(s *delivery.Snapshot) { s.DriverID = &id }
}

func withFailedAttempts(n int) deliveryOption {
	return func(s *delivery.Snapshot) { s.FailedAttempts = n }
}

func withDropoff(c kernel.Coordinates) deliveryOption {
	return func(s *delivery.Snapshot) { s.Dropoff = c }
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
		Version:             3,
	}
	for _, opt := range opts {
		opt(&s)
	}
	d, err := delivery.RestoreDelivery(s)
	require.NoError(t, err)
	return d
}

func anyDelivery() any {
	return mock.AnythingOfType("*delivery.Delivery")
}

func anyEntry() any {
	return mock.AnythingOfType("*delivery.StatusHistoryEntry")
}
