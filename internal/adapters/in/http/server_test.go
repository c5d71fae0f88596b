package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	httpin "lastmile/internal/adapters/in/http"
	"lastmile/internal/core/application/usecases/commands"
	"lastmile/internal/core/application/usecases/queries"
	"lastmile/internal/core/domain/model/delivery"
	"lastmile/internal/core/domain/model/kernel"
	"lastmile/internal/core/domain/services"
	"lastmile/internal/pkg/errs"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

const defaultServiceMinutes = 5

type MockCreate struct{ mock.Mock }

func (m *MockCreate) Handle(ctx context.Context, cmd commands.CreateDeliveryCommand) (commands.TransitionResult, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0).(commands.TransitionResult), args.Error(1)
}

type MockChangeStatus struct{ mock.Mock }

func (m *MockChangeStatus) Handle(ctx context.Context, cmd commands.ChangeDeliveryStatusCommand) (commands.TransitionResult, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0).(commands.TransitionResult), args.Error(1)
}

type MockAssign struct{ mock.Mock }

func (m *MockAssign) Handle(ctx context.Context, cmd commands.AssignDriverCommand) (commands.TransitionResult, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0).(commands.TransitionResult), args.Error(1)
}

type MockCancel struct{ mock.Mock }

func (m *MockCancel) Handle(ctx context.Context, cmd commands.CancelDeliveryCommand) (commands.TransitionResult, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0).(commands.TransitionResult), args.Error(1)
}

type MockHistory struct{ mock.Mock }

func (m *MockHistory) Handle(ctx context.Context, q queries.GetStatusHistoryQuery) (queries.GetStatusHistoryQueryResponse, error) {
	args := m.Called(ctx, q)
	return args.Get(0).(queries.GetStatusHistoryQueryResponse), args.Error(1)
}

type MockOptimize struct{ mock.Mock }

func (m *MockOptimize) Handle(ctx context.Context, q queries.OptimizeRouteQuery) (queries.OptimizeRouteQueryResponse, error) {
	args := m.Called(ctx, q)
	return args.Get(0).(queries.OptimizeRouteQueryResponse), args.Error(1)
}

type fixture struct {
	create   *MockCreate
	change   *MockChangeStatus
	assign   *MockAssign
	cancel   *MockCancel
	history  *MockHistory
	optimize *MockOptimize
	router   *echo.Echo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		create:   &MockCreate{},
		change:   &MockChangeStatus{},
		assign:   &MockAssign{},
		cancel:   &MockCancel{},
		history:  &MockHistory{},
		optimize: &MockOptimize{},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	server := httpin.NewServer(httpin.Handlers{
		CreateDelivery:       f.create,
		ChangeDeliveryStatus: f.change,
		AssignDriver:         f.assign,
		CancelDelivery:       f.cancel,
		StatusHistory:        f.history,
		OptimizeRoute:        f.optimize,
	}, defaultServiceMinutes, logger)

	router, err := httpin.NewRouter(server, http.NotFoundHandler(), logger)
	require.NoError(t, err)
	f.router = router
	return f
}

func (f *fixture) do(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) assertExpectations(t *testing.T) {
	f.create.AssertExpectations(t)
	f.change.AssertExpectations(t)
	f.assign.AssertExpectations(t)
	f.cancel.AssertExpectations(t)
	f.history.AssertExpectations(t)
	f.optimize.AssertExpectations(t)
}

func newPending(t *testing.T) *delivery.Delivery {
	t.Helper()
	pickup, err := kernel.NewCoordinates(52.52, 13.40)
	require.NoError(t, err)
	dropoff, err := kernel.NewCoordinates(52.50, 13.45)
	require.NoError(t, err)

	d, err := delivery.NewDelivery(kernel.NewUUID(), delivery.NewTrackingCode(), delivery.PriorityHigh,
		pickup, dropoff, delivery.Schedule{PickupAt: base, DeliveryAt: base.Add(2 * time.Hour)}, base)
	require.NoError(t, err)
	return d
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) httpin.Error {
	t.Helper()
	var body httpin.Error
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestServer_Health(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Healthy", rec.Body.String())
}

func TestServer_OpenAPIDocument(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/openapi.yaml", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/api/v1/deliveries")
}

func TestServer_CreateDelivery(t *testing.T) {
	body := `{
		"priority": "HIGH",
		"pickup": {"lat": 52.52, "lon": 13.40},
		"dropoff": {"lat": 52.50, "lon": 13.45},
		"scheduled_pickup_at": "2026-03-10T09:00:00Z",
		"scheduled_delivery_at": "2026-03-10T11:00:00Z"
	}`

	t.Run("should create a pending delivery with the caller as actor", func(t *testing.T) {
		f := newFixture(t)
		d := newPending(t)
		f.create.On("Handle", mock.Anything, mock.MatchedBy(func(cmd commands.CreateDeliveryCommand) bool {
			return cmd.Actor() == "dispatcher-7" && cmd.Priority() == delivery.PriorityHigh
		})).Return(commands.TransitionResult{Delivery: d}, nil).Once()

		rec := f.do(http.MethodPost, "/api/v1/deliveries", body, httpin.ActorHeader, "dispatcher-7")

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var resp httpin.TransitionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "PENDING", resp.Delivery.Status)
		assert.Equal(t, d.TrackingCode().String(), resp.Delivery.TrackingCode)
		assert.Equal(t, []string{}, resp.Warnings)
		f.assertExpectations(t)
	})

	t.Run("should reject a body missing required fields before the use case", func(t *testing.T) {
		f := newFixture(t)

		rec := f.do(http.MethodPost, "/api/v1/deliveries", `{"priority": "HIGH"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		f.create.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything)
	})

	t.Run("should use the configured service minutes unless the body states them", func(t *testing.T) {
		f := newFixture(t)
		d := newPending(t)
		f.create.On("Handle", mock.Anything, mock.MatchedBy(func(cmd commands.CreateDeliveryCommand) bool {
			return cmd.Schedule().ServiceMinutes == defaultServiceMinutes
		})).Return(commands.TransitionResult{Delivery: d}, nil).Once()
		f.create.On("Handle", mock.Anything, mock.MatchedBy(func(cmd commands.CreateDeliveryCommand) bool {
			return cmd.Schedule().ServiceMinutes == 12.5
		})).Return(commands.TransitionResult{Delivery: d}, nil).Once()

		rec := f.do(http.MethodPost, "/api/v1/deliveries", body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		explicit := strings.Replace(body, `"priority": "HIGH",`, `"priority": "HIGH", "estimated_service_minutes": 12.5,`, 1)
		rec = f.do(http.MethodPost, "/api/v1/deliveries", explicit)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		f.assertExpectations(t)
	})

	t.Run("should reject a window too short to plan", func(t *testing.T) {
		f := newFixture(t)
		short := strings.Replace(body, `"priority": "HIGH",`,
			`"priority": "HIGH", "window": {"start": "2026-03-10T10:00:00Z", "end": "2026-03-10T10:10:00Z"},`, 1)

		rec := f.do(http.MethodPost, "/api/v1/deliveries", short)

		assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		assert.Contains(t, decodeError(t, rec).Message, "time window")
		f.create.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything)
	})

	t.Run("should map a duplicate key to 409", func(t *testing.T) {
		f := newFixture(t)
		f.create.On("Handle", mock.Anything, mock.Anything).
			Return(commands.TransitionResult{}, fmt.Errorf("insert delivery: %w", &pgconn.PgError{Code: "23505"})).Once()

		rec := f.do(http.MethodPost, "/api/v1/deliveries", body)

		assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
		f.assertExpectations(t)
	})

	t.Run("should map a duplicate key from lib/pq to 409", func(t *testing.T) {
		f := newFixture(t)
		f.create.On("Handle", mock.Anything, mock.Anything).
			Return(commands.TransitionResult{}, &pq.Error{Code: "23505"}).Once()

		rec := f.do(http.MethodPost, "/api/v1/deliveries", body)

		assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
		f.assertExpectations(t)
	})

	t.Run("should reject out of range coordinates", func(t *testing.T) {
		f := newFixture(t)
		bad := strings.Replace(body, `"lat": 52.52`, `"lat": 152.52`, 1)

		rec := f.do(http.MethodPost, "/api/v1/deliveries", bad)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		f.create.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything)
	})
}

func TestServer_ChangeDeliveryStatus(t *testing.T) {
	id := kernel.NewUUID()
	path := "/api/v1/deliveries/" + id.String() + "/status"

	t.Run("should map an invalid transition to 409 with the allowed statuses", func(t *testing.T) {
		f := newFixture(t)
		f.change.On("Handle", mock.Anything, mock.Anything).Return(commands.TransitionResult{}, &delivery.InvalidTransitionError{
			CurrentStatus:      delivery.StatusPending,
			AttemptedStatus:    delivery.StatusDelivered,
			AllowedTransitions: []delivery.Status{delivery.StatusAssigned, delivery.StatusCancelled},
		}).Once()

		rec := f.do(http.MethodPost, path, `{"status": "DELIVERED"}`)

		require.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, []string{"ASSIGNED", "CANCELLED"}, decodeError(t, rec).AllowedTransitions)
		f.assertExpectations(t)
	})

	t.Run("should answer 422 for a status outside the lifecycle", func(t *testing.T) {
		f := newFixture(t)

		rec := f.do(http.MethodPost, path, `{"status": "LOST"}`)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		f.change.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything)
	})

	t.Run("should pass options and the reason to the command", func(t *testing.T) {
		f := newFixture(t)
		d := newPending(t)
		f.change.On("Handle", mock.Anything, mock.MatchedBy(func(cmd commands.ChangeDeliveryStatusCommand) bool {
			return cmd.To() == delivery.StatusCancelled &&
				cmd.Options().ForceOverride &&
				cmd.Reason() == "customer request" &&
				cmd.Actor() == "api"
		})).Return(commands.TransitionResult{Delivery: d}, nil).Once()

		rec := f.do(http.MethodPost, path, `{"status": "CANCELLED", "force": true, "reason": "customer request"}`)

		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		f.assertExpectations(t)
	})

	t.Run("should map a write conflict to 409", func(t *testing.T) {
		f := newFixture(t)
		f.change.On("Handle", mock.Anything, mock.Anything).
			Return(commands.TransitionResult{}, errs.NewWriteConflictError("delivery", id, 2)).Once()

		rec := f.do(http.MethodPost, path, `{"status": "ASSIGNED"}`)

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Empty(t, decodeError(t, rec).AllowedTransitions)
	})

	t.Run("should reject a malformed delivery id", func(t *testing.T) {
		f := newFixture(t)

		rec := f.do(http.MethodPost, "/api/v1/deliveries/not-a-uuid/status", `{"status": "ASSIGNED"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestServer_AssignDriver(t *testing.T) {
	id := kernel.NewUUID()
	driverID := kernel.NewUUID()
	path := "/api/v1/deliveries/" + id.String() + "/assignment"

	t.Run("should map constraint violations to 422 with every message", func(t *testing.T) {
		f := newFixture(t)
		violation := &services.ConstraintViolationError{
			Errors:   []string{"driver already carries a CRITICAL delivery"},
			Warnings: []string{"driver has 4 active deliveries"},
		}
		f.assign.On("Handle", mock.Anything, mock.MatchedBy(func(cmd commands.AssignDriverCommand) bool {
			return cmd.DriverID().IsEqual(driverID) && cmd.VehicleID() == nil
		})).Return(commands.TransitionResult{}, violation).Once()

		rec := f.do(http.MethodPost, path, `{"driver_id": "`+driverID.String()+`"}`)

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		body := decodeError(t, rec)
		assert.Equal(t, violation.Errors, body.Errors)
		assert.Equal(t, violation.Warnings, body.Warnings)
		f.assertExpectations(t)
	})
}

func TestServer_CancelDelivery(t *testing.T) {
	id := kernel.NewUUID()

	t.Run("should map a missing delivery to 404", func(t *testing.T) {
		f := newFixture(t)
		f.cancel.On("Handle", mock.Anything, mock.Anything).
			Return(commands.TransitionResult{}, errs.NewObjectNotFoundError("delivery", id)).Once()

		rec := f.do(http.MethodPost, "/api/v1/deliveries/"+id.String()+"/cancellation", `{"reason": "duplicate"}`)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		f.assertExpectations(t)
	})

	t.Run("should hide unexpected errors behind 500", func(t *testing.T) {
		f := newFixture(t)
		f.cancel.On("Handle", mock.Anything, mock.Anything).
			Return(commands.TransitionResult{}, io.ErrUnexpectedEOF).Once()

		rec := f.do(http.MethodPost, "/api/v1/deliveries/"+id.String()+"/cancellation", `{}`)

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "internal error", decodeError(t, rec).Message)
	})
}

func TestServer_GetDeliveryHistory(t *testing.T) {
	t.Run("should return the entries oldest first", func(t *testing.T) {
		f := newFixture(t)
		d := newPending(t)
		entry, err := delivery.NewStatusHistoryEntry(delivery.TransitionRecord{
			DeliveryID: d.ID(),
			To:         delivery.StatusPending,
			ChangedBy:  "api",
			Reason:     "delivery created",
		}, base)
		require.NoError(t, err)
		f.history.On("Handle", mock.Anything, mock.Anything).Return(queries.GetStatusHistoryQueryResponse{
			Delivery: d,
			Entries:  []*delivery.StatusHistoryEntry{entry},
		}, nil).Once()

		rec := f.do(http.MethodGet, "/api/v1/deliveries/"+d.ID().String()+"/history", "")

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp httpin.DeliveryHistory
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Entries, 1)
		assert.Nil(t, resp.Entries[0].From)
		assert.Equal(t, "PENDING", resp.Entries[0].To)
		f.assertExpectations(t)
	})
}

func TestServer_OptimizeRoute(t *testing.T) {
	t.Run("should return the ordered stops", func(t *testing.T) {
		f := newFixture(t)
		a, b := kernel.NewUUID(), kernel.NewUUID()
		f.optimize.On("Handle", mock.Anything, mock.Anything).Return(queries.OptimizeRouteQueryResponse{
			Route: services.OptimizedRoute{
				OrderedStopIDs:   []kernel.UUID{b, a},
				TotalDistanceKm:  4.2,
				TotalTimeMinutes: 12,
				Legs: []services.RouteLeg{
					{DeliveryID: b, DistanceKm: 0, Minutes: 0},
					{DeliveryID: a, DistanceKm: 4.2, Minutes: 12},
				},
			},
			CacheHit: true,
		}, nil).Once()

		rec := f.do(http.MethodPost, "/api/v1/routes/optimize",
			`{"delivery_ids": ["`+a.String()+`", "`+b.String()+`"]}`)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp httpin.Route
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.OrderedStopIDs, 2)
		assert.Equal(t, b.String(), resp.OrderedStopIDs[0].String())
		assert.True(t, resp.CacheHit)
		f.assertExpectations(t)
	})

	t.Run("should reject a request naming both ids and a driver", func(t *testing.T) {
		f := newFixture(t)
		id := kernel.NewUUID().String()

		rec := f.do(http.MethodPost, "/api/v1/routes/optimize",
			`{"delivery_ids": ["`+id+`"], "driver_id": "`+id+`"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		f.optimize.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything)
	})
}
