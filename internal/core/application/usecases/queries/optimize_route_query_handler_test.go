package queries_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"lastmile/internal/core/application/usecases/queries"
	"lastmile/internal/core/domain/model/delivery"
	"lastmile/internal/core/domain/model/kernel"
	"lastmile/internal/core/domain/services"
	"lastmile/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockStopSource struct{ mock.Mock }

func (m *MockStopSource) StopsByDeliveryIDs(ctx context.Context, ids []kernel.UUID) ([]queries.Stop, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]queries.Stop), args.Error(1)
}

func (m *MockStopSource) StopsByDriver(ctx context.Context, driverID kernel.UUID) ([]queries.Stop, error) {
	args := m.Called(ctx, driverID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]queries.Stop), args.Error(1)
}

type MockRouteCache struct{ mock.Mock }

func (m *MockRouteCache) Get(ctx context.Context, key string) (services.OptimizedRoute, bool, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(services.OptimizedRoute), args.Bool(1), args.Error(2)
}

func (m *MockRouteCache) Set(ctx context.Context, key string, route services.OptimizedRoute) error {
	args := m.Called(ctx, key, route)
	return args.Error(0)
}

type MockRouteObserver struct{ mock.Mock }

func (m *MockRouteObserver) ObserveOptimization(stops int, distanceKm float64, cacheHit bool) {
	m.Called(stops, distanceKm, cacheHit)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func stop(t *testing.T, lat, lon float64, p delivery.Priority) queries.Stop {
	t.Helper()
	c, err := kernel.NewCoordinates(lat, lon)
	require.NoError(t, err)
	return queries.Stop{
		RouteStop: services.RouteStop{DeliveryID: kernel.NewUUID(), Coordinates: c, Priority: p},
		Status:    delivery.StatusAssigned,
	}
}

func TestNewOptimizeRouteQuery(t *testing.T) {
	driverID := kernel.NewUUID()
	id := kernel.NewUUID()

	tests := []struct {
		name    string
		ids     []kernel.UUID
		driver  *kernel.UUID
		wantErr error
	}{
		{name: "ids only", ids: []kernel.UUID{id}},
		{name: "driver only", driver: &driverID},
		{name: "neither", wantErr: errs.ErrValueIsInvalid},
		{name: "both", ids: []kernel.UUID{id}, driver: &driverID, wantErr: errs.ErrValueIsInvalid},
		{name: "duplicate ids", ids: []kernel.UUID{id, id}, wantErr: errs.ErrValueIsInvalid},
		{name: "zero id", ids: []kernel.UUID{{}}, wantErr: errs.ErrValueIsRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := queries.NewOptimizeRouteQuery(tt.ids, tt.driver, nil)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NoError(t, q.Validate())
		})
	}
}

func TestOptimizeRouteQueryHandler_Handle(t *testing.T) {
	ctx := t.Context()

	t.Run("should optimise the driver's stops and fill the cache", func(t *testing.T) {
		driverID := kernel.NewUUID()
		low := stop(t, -23.5505, -46.6333, delivery.PriorityLow)
		critical := stop(t, -22.9068, -43.1729, delivery.PriorityCritical)
		stops := []queries.Stop{low, critical}

		source := new(MockStopSource)
		source.On("StopsByDriver", ctx, driverID).Return(stops, nil).Once()
		cache := new(MockRouteCache)
		cache.On("Get", ctx, mock.AnythingOfType("string")).Return(services.OptimizedRoute{}, false, nil).Once()
		cache.On("Set", ctx, mock.AnythingOfType("string"), mock.AnythingOfType("services.OptimizedRoute")).Return(nil).Once()
		observer := new(MockRouteObserver)
		observer.On("ObserveOptimization", 2, mock.AnythingOfType("float64"), false).Once()

		q, err := queries.NewOptimizeRouteQuery(nil, &driverID, nil)
		require.NoError(t, err)
		handler := queries.NewOptimizeRouteQueryHandler(source, services.DefaultRouteOptimizer(), 10, cache, observer, discardLogger())
		resp, err := handler.Handle(ctx, q)

		require.NoError(t, err)
		assert.False(t, resp.CacheHit)
		assert.Equal(t, []kernel.UUID{critical.DeliveryID, low.DeliveryID}, resp.Route.OrderedStopIDs)
		assert.Greater(t, resp.Route.TotalDistanceKm, 300.0)
		source.AssertExpectations(t)
		cache.AssertExpectations(t)
		observer.AssertExpectations(t)
	})

	t.Run("should serve a cached route without optimising", func(t *testing.T) {
		s := stop(t, -23.5505, -46.6333, delivery.PriorityNormal)
		cached := services.OptimizedRoute{OrderedStopIDs: []kernel.UUID{s.DeliveryID}, TotalDistanceKm: 4.2}

		source := new(MockStopSource)
		source.On("StopsByDeliveryIDs", ctx, []kernel.UUID{s.DeliveryID}).Return([]queries.Stop{s}, nil).Once()
		cache := new(MockRouteCache)
		cache.On("Get", ctx, mock.AnythingOfType("string")).Return(cached, true, nil).Once()
		observer := new(MockRouteObserver)
		observer.On("ObserveOptimization", 1, 4.2, true).Once()

		q, err := queries.NewOptimizeRouteQuery([]kernel.UUID{s.DeliveryID}, nil, nil)
		require.NoError(t, err)
		handler := queries.NewOptimizeRouteQueryHandler(source, services.DefaultRouteOptimizer(), 0, cache, observer, discardLogger())
		resp, err := handler.Handle(ctx, q)

		require.NoError(t, err)
		assert.True(t, resp.CacheHit)
		assert.Equal(t, cached, resp.Route)
		cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
		observer.AssertExpectations(t)
	})

	t.Run("should keep working when the cache fails", func(t *testing.T) {
		s := stop(t, -23.5505, -46.6333, delivery.PriorityNormal)

		source := new(MockStopSource)
		source.On("StopsByDeliveryIDs", ctx, mock.Anything).Return([]queries.Stop{s}, nil).Once()
		cache := new(MockRouteCache)
		cache.On("Get", ctx, mock.Anything).Return(services.OptimizedRoute{}, false, errors.New("redis down")).Once()
		cache.On("Set", ctx, mock.Anything, mock.Anything).Return(errors.New("redis down")).Once()

		q, err := queries.NewOptimizeRouteQuery([]kernel.UUID{s.DeliveryID}, nil, nil)
		require.NoError(t, err)
		handler := queries.NewOptimizeRouteQueryHandler(source, services.DefaultRouteOptimizer(), 0, cache, nil, discardLogger())
		resp, err := handler.Handle(ctx, q)

		require.NoError(t, err)
		assert.Equal(t, []kernel.UUID{s.DeliveryID}, resp.Route.OrderedStopIDs)
		cache.AssertExpectations(t)
	})

	t.Run("should refuse batches above the stop limit", func(t *testing.T) {
		stops := []queries.Stop{
			stop(t, 1, 1, delivery.PriorityNormal),
			stop(t, 2, 2, delivery.PriorityNormal),
			stop(t, 3, 3, delivery.PriorityNormal),
		}
		driverID := kernel.NewUUID()

		source := new(MockStopSource)
		source.On("StopsByDriver", ctx, driverID).Return(stops, nil).Once()

		q, err := queries.NewOptimizeRouteQuery(nil, &driverID, nil)
		require.NoError(t, err)
		handler := queries.NewOptimizeRouteQueryHandler(source, services.DefaultRouteOptimizer(), 2, nil, nil, discardLogger())
		_, err = handler.Handle(ctx, q)

		require.ErrorIs(t, err, errs.ErrValueIsOutOfRange)
	})

	t.Run("should pass through a missing delivery", func(t *testing.T) {
		id := kernel.NewUUID()
		source := new(MockStopSource)
		source.On("StopsByDeliveryIDs", ctx, []kernel.UUID{id}).Return(nil, errs.NewObjectNotFoundError("delivery", id)).Once()

		q, err := queries.NewOptimizeRouteQuery([]kernel.UUID{id}, nil, nil)
		require.NoError(t, err)
		handler := queries.NewOptimizeRouteQueryHandler(source, services.DefaultRouteOptimizer(), 0, nil, nil, discardLogger())
		_, err = handler.Handle(ctx, q)

		require.ErrorIs(t, err, errs.ErrObjectNotFound)
	})

	t.Run("should use different cache keys for different starts", func(t *testing.T) {
		s := stop(t, -23.5505, -46.6333, delivery.PriorityNormal)
		depotA, err := kernel.NewCoordinates(-23.0, -46.0)
		require.NoError(t, err)
		depotB, err := kernel.NewCoordinates(-24.0, -47.0)
		require.NoError(t, err)

		var keys []string
		source := new(MockStopSource)
		source.On("StopsByDeliveryIDs", ctx, mock.Anything).Return([]queries.Stop{s}, nil).Twice()
		cache := new(MockRouteCache)
		cache.On("Get", ctx, mock.Anything).Run(func(args mock.Arguments) {
			keys = append(keys, args.String(1))
		}).Return(services.OptimizedRoute{}, false, nil).Twice()
		cache.On("Set", ctx, mock.Anything, mock.Anything).Return(nil).Twice()

		handler := queries.NewOptimizeRouteQueryHandler(source, services.DefaultRouteOptimizer(), 0, cache, nil, discardLogger())
		for _, depot := range []kernel.Coordinates{depotA, depotB} {
			q, qErr := queries.NewOptimizeRouteQuery([]kernel.UUID{s.DeliveryID}, nil, &depot)
			require.NoError(t, qErr)
			_, err = handler.Handle(ctx, q)
			require.NoError(t, err)
		}

		require.Len(t, keys, 2)
		assert.NotEqual(t, keys[0], keys[1])
		assert.Contains(t, keys[0], "route:")
	})
	t.Run("should refuse finished deliveries named by id", func(t *testing.T) {
		open := stop(t, -23.5505, -46.6333, delivery.PriorityNormal)
		delivered := stop(t, -22.9068, -43.1729, delivery.PriorityNormal)
		delivered.Status = delivery.StatusDelivered
		cancelled := stop(t, -22.0, -43.0, delivery.PriorityNormal)
		cancelled.Status = delivery.StatusCancelled
		ids := []kernel.UUID{open.DeliveryID, delivered.DeliveryID, cancelled.DeliveryID}

		source := new(MockStopSource)
		source.On("StopsByDeliveryIDs", ctx, ids).Return([]queries.Stop{open, delivered, cancelled}, nil).Once()
		cache := new(MockRouteCache)

		q, err := queries.NewOptimizeRouteQuery(ids, nil, nil)
		require.NoError(t, err)
		handler := queries.NewOptimizeRouteQueryHandler(source, services.DefaultRouteOptimizer(), 0, cache, nil, discardLogger())
		_, err = handler.Handle(ctx, q)

		require.ErrorIs(t, err, errs.ErrValueIsInvalid)
		assert.Contains(t, err.Error(), delivered.DeliveryID.String())
		assert.Contains(t, err.Error(), cancelled.DeliveryID.String())
		assert.NotContains(t, err.Error(), open.DeliveryID.String())
		cache.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})

	t.Run("should report the service minutes of the stops", func(t *testing.T) {
		a := stop(t, -23.5505, -46.6333, delivery.PriorityNormal)
		a.EstimatedServiceMinutes = 4
		b := stop(t, -23.5615, -46.6559, delivery.PriorityNormal)
		b.EstimatedServiceMinutes = 6.5
		ids := []kernel.UUID{a.DeliveryID, b.DeliveryID}

		source := new(MockStopSource)
		source.On("StopsByDeliveryIDs", ctx, ids).Return([]queries.Stop{a, b}, nil).Once()

		q, err := queries.NewOptimizeRouteQuery(ids, nil, nil)
		require.NoError(t, err)
		handler := queries.NewOptimizeRouteQueryHandler(source, services.DefaultRouteOptimizer(), 0, nil, nil, discardLogger())
		resp, err := handler.Handle(ctx, q)

		require.NoError(t, err)
		assert.InDelta(t, 10.5, resp.Route.TotalServiceMinutes, 1e-9)
	})
}
