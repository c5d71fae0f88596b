package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"
)

// ActorHeader carries the id of whoever performs a change.
const ActorHeader = "X-Actor-ID"

// Wire types of openapi.yaml.
type (
	Coordinates struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	}

	Window struct {
		Start time.Time `json:"start"`
		End   time.Time `json:"end"`
	}

	NewDelivery struct {
		Priority            string      `json:"priority"`
		Pickup              Coordinates `json:"pickup"`
		Dropoff             Coordinates `json:"dropoff"`
		ScheduledPickupAt   time.Time   `json:"scheduled_pickup_at"`
		ScheduledDeliveryAt time.Time   `json:"scheduled_delivery_at"`
		Window              *Window     `json:"window,omitempty"`

		EstimatedServiceMinutes *float64 `json:"estimated_service_minutes,omitempty"`
	}

	StatusChange struct {
		Status             string `json:"status"`
		Reason             string `json:"reason,omitempty"`
		DisallowSameStatus bool   `json:"disallow_same_status,omitempty"`
		Force              bool   `json:"force,omitempty"`
	}

	Assignment struct {
		DriverID  openapi_types.UUID  `json:"driver_id"`
		VehicleID *openapi_types.UUID `json:"vehicle_id,omitempty"`
		Reason    string              `json:"reason,omitempty"`
	}

	Cancellation struct {
		Reason string `json:"reason,omitempty"`
		Force  bool   `json:"force,omitempty"`
	}

	RouteRequest struct {
		DeliveryIDs []openapi_types.UUID `json:"delivery_ids,omitempty"`
		DriverID    *openapi_types.UUID  `json:"driver_id,omitempty"`
		Start       *Coordinates         `json:"start,omitempty"`
	}

	Delivery struct {
		ID                       openapi_types.UUID  `json:"id"`
		TrackingCode             string              `json:"tracking_code"`
		Status                   string              `json:"status"`
		Priority                 string              `json:"priority"`
		Pickup                   Coordinates         `json:"pickup"`
		Dropoff                  Coordinates         `json:"dropoff"`
		ScheduledPickupAt        time.Time           `json:"scheduled_pickup_at"`
		ScheduledDeliveryAt      time.Time           `json:"scheduled_delivery_at"`
		Window                   *Window             `json:"window,omitempty"`
		DriverID                 *openapi_types.UUID `json:"driver_id,omitempty"`
		VehicleID                *openapi_types.UUID `json:"vehicle_id,omitempty"`
		FailedAttempts           int                 `json:"failed_attempts"`
		EstimatedDistanceKm      *float64            `json:"estimated_distance_km,omitempty"`
		EstimatedDurationMinutes *float64            `json:"estimated_duration_minutes,omitempty"`
		EstimatedServiceMinutes  float64             `json:"estimated_service_minutes"`
		CreatedAt                time.Time           `json:"created_at"`
		Version                  int                 `json:"version"`
	}

	HistoryEntry struct {
		ID        openapi_types.UUID `json:"id"`
		From      *string            `json:"from,omitempty"`
		To        string             `json:"to"`
		ChangedAt time.Time          `json:"changed_at"`
		ChangedBy string             `json:"changed_by,omitempty"`
		Reason    string             `json:"reason,omitempty"`
		Automatic bool               `json:"automatic"`
	}

	TransitionResponse struct {
		Delivery Delivery      `json:"delivery"`
		Entry    *HistoryEntry `json:"entry,omitempty"`
		Changed  bool          `json:"changed"`
		Warnings []string      `json:"warnings"`
	}

	DeliveryHistory struct {
		Delivery Delivery       `json:"delivery"`
		Entries  []HistoryEntry `json:"entries"`
	}

	RouteLeg struct {
		DeliveryID openapi_types.UUID `json:"delivery_id"`
		DistanceKm float64            `json:"distance_km"`
		Minutes    float64            `json:"minutes"`
	}

	Route struct {
		OrderedStopIDs      []openapi_types.UUID `json:"ordered_stop_ids"`
		TotalDistanceKm     float64              `json:"total_distance_km"`
		TotalTimeMinutes    float64              `json:"total_time_minutes"`
		TotalServiceMinutes float64              `json:"total_service_minutes"`
		Legs                []RouteLeg           `json:"legs"`
		CacheHit            bool                 `json:"cache_hit"`
	}

	Error struct {
		Code               int      `json:"code"`
		Message            string   `json:"message"`
		AllowedTransitions []string `json:"allowed_transitions,omitempty"`
		Errors             []string `json:"errors,omitempty"`
		Warnings           []string `json:"warnings,omitempty"`
	}
)

// ServerInterface lists the operations of openapi.yaml.
type ServerInterface interface {
	// (POST /api/v1/deliveries)
	CreateDelivery(ctx echo.Context) error
	// (GET /api/v1/deliveries/{deliveryId}/history)
	GetDeliveryHistory(ctx echo.Context, deliveryID openapi_types.UUID) error
	// (POST /api/v1/deliveries/{deliveryId}/status)
	ChangeDeliveryStatus(ctx echo.Context, deliveryID openapi_types.UUID) error
	// (POST /api/v1/deliveries/{deliveryId}/assignment)
	AssignDriver(ctx echo.Context, deliveryID openapi_types.UUID) error
	// (POST /api/v1/deliveries/{deliveryId}/cancellation)
	CancelDelivery(ctx echo.Context, deliveryID openapi_types.UUID) error
	// (POST /api/v1/routes/optimize)
	OptimizeRoute(ctx echo.Context) error
}

// ServerInterfaceWrapper binds path parameters before calling the server.
type ServerInterfaceWrapper struct {
	Handler ServerInterface
}

func (w *ServerInterfaceWrapper) CreateDelivery(ctx echo.Context) error {
	return w.Handler.CreateDelivery(ctx)
}

func (w *ServerInterfaceWrapper) GetDeliveryHistory(ctx echo.Context) error {
	id, err := bindDeliveryID(ctx)
	if err != nil {
		return err
	}
	return w.Handler.GetDeliveryHistory(ctx, id)
}

func (w *ServerInterfaceWrapper) ChangeDeliveryStatus(ctx echo.Context) error {
	id, err := bindDeliveryID(ctx)
	if err != nil {
		return err
	}
	return w.Handler.ChangeDeliveryStatus(ctx, id)
}

func (w *ServerInterfaceWrapper) AssignDriver(ctx echo.Context) error {
	id, err := bindDeliveryID(ctx)
	if err != nil {
		return err
	}
	return w.Handler.AssignDriver(ctx, id)
}

func (w *ServerInterfaceWrapper) CancelDelivery(ctx echo.Context) error {
	id, err := bindDeliveryID(ctx)
	if err != nil {
		return err
	}
	return w.Handler.CancelDelivery(ctx, id)
}

func (w *ServerInterfaceWrapper) OptimizeRoute(ctx echo.Context) error {
	return w.Handler.OptimizeRoute(ctx)
}

func bindDeliveryID(ctx echo.Context) (openapi_types.UUID, error) {
	var id openapi_types.UUID
	err := runtime.BindStyledParameterWithOptions("simple", "deliveryId", ctx.Param("deliveryId"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		return id, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter deliveryId: %s", err))
	}
	return id, nil
}

// EchoRouter is satisfied by *echo.Echo and *echo.Group.
type EchoRouter interface {
	GET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	POST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
}

// RegisterHandlers adds every operation to router.
func RegisterHandlers(router EchoRouter, si ServerInterface) {
	w := &ServerInterfaceWrapper{Handler: si}

	router.POST("/api/v1/deliveries", w.CreateDelivery)
	router.GET("/api/v1/deliveries/:deliveryId/history", w.GetDeliveryHistory)
	router.POST("/api/v1/deliveries/:deliveryId/status", w.ChangeDeliveryStatus)
	router.POST("/api/v1/deliveries/:deliveryId/assignment", w.AssignDriver)
	router.POST("/api/v1/deliveries/:deliveryId/cancellation", w.CancelDelivery)
	router.POST("/api/v1/routes/optimize", w.OptimizeRoute)
}
