package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kapimkk/Projeto-Agencia-Marketing/pkg/ctxval"
)

func TestRequestIDMiddleware(t *testing.T) {
	// Create a new Echo instance
	e := echo.New()

	// Define a test handler that returns the request ID from the context
	handler := func(c echo.Context) error {
		reqID, ok := c.Get(XRequestID).(string)
		if !ok {
			return echo.NewHTTPError(http.StatusInternalServerError, "request ID not found in context")
		}
		ctx := c.Request().Context()
		assert.Equal(t, reqID, GetRequestIDFromContext(ctx))
		assert.Equal(t, reqID, GetRequestIDFromEchoContext(c))

		return c.String(http.StatusOK, reqID)
	}

	// Create a new request with a custom request ID header
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(XRequestID, "custom-request-id")

	// Create a new response recorder
	rec := httptest.NewRecorder()

	// Create a new middleware instance with default configuration
	middleware := RequestID()

	// Invoke the middleware with the test handler
	c := e.NewContext(req, rec)
	err := middleware(handler)(c)

	// Assert that the middleware injected the request ID into the context
	assert.NoError(t, err)
	assert.Equal(t, "custom-request-id", c.Get(XRequestID))

	// Assert that the handler returned the correct response
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "custom-request-id", rec.Body.String())
	assert.Equal(t, "custom-request-id", rec.Header().Get(XRequestID))
}

func TestRequestIDGenerated(t *testing.T) {
	e := echo.New()
	var seen string
	handler := func(c echo.Context) error {
		seen = GetRequestIDFromContext(c.Request().Context())
		ctxval.Set(c.Request().Context(), "probe", "ok")
		v, ok := ctxval.Get[string, string](c.Request().Context(), "probe")
		assert.True(t, ok)
		assert.Equal(t, "ok", v)
		return c.NoContent(http.StatusNoContent)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, RequestID()(handler)(c))

	_, err := uuid.Parse(seen)
	assert.NoError(t, err)
	assert.Equal(t, seen, rec.Header().Get(XRequestID))
}
