package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperation(t *testing.T) {
	m := New()

	m.Operation("transmute", nil)
	m.Operation("transmute", nil)
	m.Operation("transmute", errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.operations.WithLabelValues("transmute", ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("transmute", ResultError)))
}

func TestHTTPAndHandler(t *testing.T) {
	m := New()
	m.IncInFlight()
	m.RecordHTTPRequest(http.MethodPost, "/v1/query", http.StatusOK, 3*time.Millisecond)
	m.DecInFlight()
	m.Expansion(4)

	assert.Equal(t, 0.0, testutil.ToFloat64(m.httpInFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("POST", "/v1/query", "200")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "skulls_http_requests_total"))
	assert.True(t, strings.Contains(body, "skulls_engine_transmute_expansion_layers"))
}

func TestInstancesAreIndependent(t *testing.T) {
	assert.NotPanics(t, func() {
		New()
		New()
	})
}
