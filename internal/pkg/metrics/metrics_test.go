package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuth_CountsOutcomes(t *testing.T) {
	m := New()
	m.Auth("login", nil)
	m.Auth("login", errors.New("bad password"))
	m.Auth("login", errors.New("bad password"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuthAttempts.WithLabelValues("login", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AuthAttempts.WithLabelValues("login", "failure")))
}

func TestInstancesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.WSConnections.Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.WSConnections))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.WSConnections))
}

func TestHandler_Exposes(t *testing.T) {
	m := New()
	m.EventsPublished.WithLabelValues("task:created").Inc()

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `taskhub_ws_events_published_total{event="task:created"} 1`)
}
