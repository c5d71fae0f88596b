package prometheus_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"lastmile/internal/adapters/out/prometheus"
	"lastmile/internal/core/domain/model/delivery"
	"lastmile/internal/core/domain/model/kernel"
	"lastmile/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	m := prometheus.NewMetrics()

	err := m.AfterTransition(context.Background(), ports.TransitionEvent{
		Transition: delivery.Transition{
			DeliveryID: kernel.NewUUID(),
			From:       delivery.StatusAssigned,
			To:         delivery.StatusPickedUp,
		},
	})
	require.NoError(t, err)
	m.ObserveOptimization(3, 12.5, false)
	m.ObserveOptimization(3, 12.5, true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(body),
		`lastmile_delivery_transitions_total{automatic="false",from="ASSIGNED",to="PICKED_UP"} 1`)
	assert.Contains(t, string(body), `lastmile_route_lookups_total{cache="hit"} 1`)
	assert.Contains(t, string(body), `lastmile_route_lookups_total{cache="miss"} 1`)
	assert.Contains(t, string(body), "lastmile_route_stops_count 2")
}
