// Package http is the REST adapter of the delivery service.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"lastmile/internal/core/application/usecases/commands"
	"lastmile/internal/core/application/usecases/queries"
	"lastmile/internal/core/domain/model/delivery"
	"lastmile/internal/core/domain/model/kernel"

	"github.com/labstack/echo/v4"
	openapi_types "github.com/oapi-codegen/runtime/types"
)

const defaultActor = "api"

// Use case ports of the server.
type (
	CreateDeliveryHandler interface {
		Handle(ctx context.Context, cmd commands.CreateDeliveryCommand) (commands.TransitionResult, error)
	}
	ChangeDeliveryStatusHandler interface {
		Handle(ctx context.Context, cmd commands.ChangeDeliveryStatusCommand) (commands.TransitionResult, error)
	}
	AssignDriverHandler interface {
		Handle(ctx context.Context, cmd commands.AssignDriverCommand) (commands.TransitionResult, error)
	}
	CancelDeliveryHandler interface {
		Handle(ctx context.Context, cmd commands.CancelDeliveryCommand) (commands.TransitionResult, error)
	}
	StatusHistoryHandler interface {
		Handle(ctx context.Context, q queries.GetStatusHistoryQuery) (queries.GetStatusHistoryQueryResponse, error)
	}
	OptimizeRouteHandler interface {
		Handle(ctx context.Context, q queries.OptimizeRouteQuery) (queries.OptimizeRouteQueryResponse, error)
	}
)

// Handlers groups the use cases served over HTTP.
type Handlers struct {
	CreateDelivery       CreateDeliveryHandler
	ChangeDeliveryStatus ChangeDeliveryStatusHandler
	AssignDriver         AssignDriverHandler
	CancelDelivery       CancelDeliveryHandler
	StatusHistory        StatusHistoryHandler
	OptimizeRoute        OptimizeRouteHandler
}

// Server implements ServerInterface on top of the application use cases.
type Server struct {
	handlers              Handlers
	defaultServiceMinutes float64
	logger                *slog.Logger
}

var _ ServerInterface = (*Server)(nil)

// NewServer creates the server. defaultServiceMinutes is used for new
// deliveries that do not state their own stop duration.
func NewServer(handlers Handlers, defaultServiceMinutes float64, logger *slog.Logger) *Server {
	return &Server{
		handlers:              handlers,
		defaultServiceMinutes: defaultServiceMinutes,
		logger:                logger.With("component", "http"),
	}
}

// CreateDelivery handles POST /api/v1/deliveries.
func (s *Server) CreateDelivery(ctx echo.Context) error {
	var body NewDelivery
	if err := ctx.Bind(&body); err != nil {
		return badRequest(ctx, "Invalid request body")
	}

	priority, err := delivery.ParsePriority(body.Priority)
	if err != nil {
		return s.fail(ctx, err)
	}
	pickup, err := kernel.NewCoordinates(body.Pickup.Lat, body.Pickup.Lon)
	if err != nil {
		return s.fail(ctx, err)
	}
	dropoff, err := kernel.NewCoordinates(body.Dropoff.Lat, body.Dropoff.Lon)
	if err != nil {
		return s.fail(ctx, err)
	}
	schedule := delivery.Schedule{
		PickupAt:       body.ScheduledPickupAt,
		DeliveryAt:     body.ScheduledDeliveryAt,
		ServiceMinutes: s.defaultServiceMinutes,
	}
	if body.EstimatedServiceMinutes != nil {
		schedule.ServiceMinutes = *body.EstimatedServiceMinutes
	}
	if body.Window != nil {
		window, wErr := kernel.NewPlannableTimeWindow(body.Window.Start, body.Window.End)
		if wErr != nil {
			return s.fail(ctx, wErr)
		}
		schedule.Window = &window
	}

	cmd, err := commands.NewCreateDeliveryCommand(kernel.NewUUID(), priority, pickup, dropoff, schedule, actor(ctx))
	if err != nil {
		return s.fail(ctx, err)
	}

	res, err := s.handlers.CreateDelivery.Handle(ctx.Request().Context(), cmd)
	if err != nil {
		return s.fail(ctx, err)
	}
	return ctx.JSON(http.StatusCreated, toTransitionResponse(res))
}

// GetDeliveryHistory handles GET /api/v1/deliveries/{deliveryId}/history.
func (s *Server) GetDeliveryHistory(ctx echo.Context, deliveryID openapi_types.UUID) error {
	id, err := kernel.UUIDFromBytes(deliveryID[:])
	if err != nil {
		return s.fail(ctx, err)
	}
	q, err := queries.NewGetStatusHistoryQuery(id)
	if err != nil {
		return s.fail(ctx, err)
	}

	resp, err := s.handlers.StatusHistory.Handle(ctx.Request().Context(), q)
	if err != nil {
		return s.fail(ctx, err)
	}

	history := DeliveryHistory{
		Delivery: toDelivery(resp.Delivery),
		Entries:  make([]HistoryEntry, 0, len(resp.Entries)),
	}
	for _, e := range resp.Entries {
		history.Entries = append(history.Entries, toHistoryEntry(e))
	}
	return ctx.JSON(http.StatusOK, history)
}

// ChangeDeliveryStatus handles POST /api/v1/deliveries/{deliveryId}/status.
func (s *Server) ChangeDeliveryStatus(ctx echo.Context, deliveryID openapi_types.UUID) error {
	var body StatusChange
	if err := ctx.Bind(&body); err != nil {
		return badRequest(ctx, "Invalid request body")
	}

	id, err := kernel.UUIDFromBytes(deliveryID[:])
	if err != nil {
		return s.fail(ctx, err)
	}
	to, err := delivery.ParseStatus(body.Status)
	if err != nil {
		return ctx.JSON(http.StatusUnprocessableEntity, Error{Code: http.StatusUnprocessableEntity, Message: err.Error()})
	}

	cmd, err := commands.NewChangeDeliveryStatusCommand(id, to, actor(ctx), body.Reason, delivery.TransitionOptions{
		DisallowSameStatus: body.DisallowSameStatus,
		ForceOverride:      body.Force,
	}, false)
	if err != nil {
		return s.fail(ctx, err)
	}

	res, err := s.handlers.ChangeDeliveryStatus.Handle(ctx.Request().Context(), cmd)
	if err != nil {
		return s.fail(ctx, err)
	}
	return ctx.JSON(http.StatusOK, toTransitionResponse(res))
}

// AssignDriver handles POST /api/v1/deliveries/{deliveryId}/assignment.
func (s *Server) AssignDriver(ctx echo.Context, deliveryID openapi_types.UUID) error {
	var body Assignment
	if err := ctx.Bind(&body); err != nil {
		return badRequest(ctx, "Invalid request body")
	}

	id, err := kernel.UUIDFromBytes(deliveryID[:])
	if err != nil {
		return s.fail(ctx, err)
	}
	driverID, err := kernel.UUIDFromBytes(body.DriverID[:])
	if err != nil {
		return s.fail(ctx, err)
	}
	var vehicleID *kernel.UUID
	if body.VehicleID != nil {
		v, vErr := kernel.UUIDFromBytes(body.VehicleID[:])
		if vErr != nil {
			return s.fail(ctx, vErr)
		}
		vehicleID = &v
	}

	cmd, err := commands.NewAssignDriverCommand(id, driverID, vehicleID, actor(ctx), body.Reason)
	if err != nil {
		return s.fail(ctx, err)
	}

	res, err := s.handlers.AssignDriver.Handle(ctx.Request().Context(), cmd)
	if err != nil {
		return s.fail(ctx, err)
	}
	return ctx.JSON(http.StatusOK, toTransitionResponse(res))
}

// CancelDelivery handles POST /api/v1/deliveries/{deliveryId}/cancellation.
func (s *Server) CancelDelivery(ctx echo.Context, deliveryID openapi_types.UUID) error {
	var body Cancellation
	if err := ctx.Bind(&body); err != nil {
		return badRequest(ctx, "Invalid request body")
	}

	id, err := kernel.UUIDFromBytes(deliveryID[:])
	if err != nil {
		return s.fail(ctx, err)
	}
	cmd, err := commands.NewCancelDeliveryCommand(id, actor(ctx), body.Reason, body.Force)
	if err != nil {
		return s.fail(ctx, err)
	}

	res, err := s.handlers.CancelDelivery.Handle(ctx.Request().Context(), cmd)
	if err != nil {
		return s.fail(ctx, err)
	}
	return ctx.JSON(http.StatusOK, toTransitionResponse(res))
}

// OptimizeRoute handles POST /api/v1/routes/optimize.
func (s *Server) OptimizeRoute(ctx echo.Context) error {
	var body RouteRequest
	if err := ctx.Bind(&body); err != nil {
		return badRequest(ctx, "Invalid request body")
	}

	ids := make([]kernel.UUID, 0, len(body.DeliveryIDs))
	for _, raw := range body.DeliveryIDs {
		id, err := kernel.UUIDFromBytes(raw[:])
		if err != nil {
			return s.fail(ctx, err)
		}
		ids = append(ids, id)
	}
	var driverID *kernel.UUID
	if body.DriverID != nil {
		id, err := kernel.UUIDFromBytes(body.DriverID[:])
		if err != nil {
			return s.fail(ctx, err)
		}
		driverID = &id
	}
	var start *kernel.Coordinates
	if body.Start != nil {
		c, err := kernel.NewCoordinates(body.Start.Lat, body.Start.Lon)
		if err != nil {
			return s.fail(ctx, err)
		}
		start = &c
	}

	q, err := queries.NewOptimizeRouteQuery(ids, driverID, start)
	if err != nil {
		return s.fail(ctx, err)
	}
	resp, err := s.handlers.OptimizeRoute.Handle(ctx.Request().Context(), q)
	if err != nil {
		return s.fail(ctx, err)
	}
	return ctx.JSON(http.StatusOK, toRoute(resp))
}

func actor(ctx echo.Context) string {
	if a := strings.TrimSpace(ctx.Request().Header.Get(ActorHeader)); a != "" {
		return a
	}
	return defaultActor
}
