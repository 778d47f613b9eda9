package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeRequest(e *echo.Echo, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func resetHTTPMetrics(t *testing.T) {
	t.Helper()
	_, err := registerHttpMetrics(DefaultMetricsConfig)
	if err == nil {
		return
	}
	are, ok := err.(prometheus.AlreadyRegisteredError)
	require.True(t, ok, "unexpected error %v", err)
	are.ExistingCollector.(*prometheus.HistogramVec).Reset()
}

func TestMetrics(t *testing.T) {
	resetHTTPMetrics(t)
	e := echo.New()
	e.Use(Metrics())

	e.GET("/avaliacoes", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.POST("/send_chat", func(c echo.Context) error { return fmt.Errorf("smtp exploded") })
	e.GET("/static/uploads/*", func(c echo.Context) error { return c.String(http.StatusOK, "file") })
	e.GET("/ws/tickets/:uuid", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	for i := 0; i < 3; i++ {
		makeRequest(e, http.MethodGet, "/avaliacoes")
	}
	makeRequest(e, http.MethodPost, "/send_chat")
	makeRequest(e, http.MethodGet, "/static/uploads/1700000000_logo.png")
	makeRequest(e, http.MethodGet, "/ws/tickets/abc")
	for i := 0; i < 2; i++ {
		makeRequest(e, http.MethodGet, fmt.Sprintf("/wp-admin-%d.php", i))
	}

	body := makeRequest(e, http.MethodGet, "/metrics").Body.String()
	assert.Contains(t, body, `agencia_request_duration_seconds_count{code="200",method="GET",path="/avaliacoes"} 3`)
	assert.Contains(t, body, `agencia_request_duration_seconds_count{code="500",method="POST",path="/send_chat"} 1`)
	assert.Contains(t, body, `agencia_request_duration_seconds_count{code="404",method="GET",path="/not-found"} 2`,
		"unknown paths collapse into one series")
	assert.NotContains(t, body, `path="/static/uploads/*"`)
	assert.NotContains(t, body, `path="/ws/tickets/:uuid"`)
}

func TestSkipStatic(t *testing.T) {
	e := echo.New()
	for path, skipped := range map[string]bool{
		"/static/uploads/*": true,
		"/ws/tickets/:uuid": true,
		"/send_chat":        false,
		"/admin/api/leads":  false,
	} {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		c.SetPath(path)
		assert.Equal(t, skipped, SkipStatic(c), path)
	}
}

func TestNormalizeHTTPStatus(t *testing.T) {
	assert.Equal(t, "1xx", normalizeHTTPStatus(http.StatusSwitchingProtocols))
	assert.Equal(t, "2xx", normalizeHTTPStatus(http.StatusOK))
	assert.Equal(t, "3xx", normalizeHTTPStatus(http.StatusSeeOther))
	assert.Equal(t, "4xx", normalizeHTTPStatus(http.StatusTooManyRequests))
	assert.Equal(t, "5xx", normalizeHTTPStatus(http.StatusBadGateway))
}
