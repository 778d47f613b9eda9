package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/models"
	"github.com/kapimkk/Projeto-Agencia-Marketing/pkg/logger"
)

type staticParser map[string]*models.Principal

func (p staticParser) ParseToken(_ context.Context, token string) (*models.Principal, error) {
	if principal, ok := p[token]; ok {
		return principal, nil
	}
	return nil, models.ErrUnauthenticated
}

func TestAuthenticateAndRequireRole(t *testing.T) {
	parser := staticParser{
		"admin-token":  {UserID: models.ObjectID("65f1c0a2b3c4d5e6f7a8b9c0"), Username: "admin", Role: models.RoleAdmin},
		"client-token": {UserID: models.ObjectID("65f1c0a2b3c4d5e6f7a8b9c1"), Username: "cliente", Role: models.RoleClient},
	}
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(logger.MustNamed("test"))
	e.Use(Authenticate(parser, "agencia_session"))
	e.GET("/admin", func(c echo.Context) error {
		return c.String(http.StatusOK, GetPrincipal(c).Username)
	}, RequireRole(models.RoleAdmin))

	tests := []struct {
		name   string
		cookie string
		bearer string
		want   int
	}{
		{name: "anonymous", want: http.StatusUnauthorized},
		{name: "invalid token", cookie: "forged", want: http.StatusUnauthorized},
		{name: "wrong role", cookie: "client-token", want: http.StatusForbidden},
		{name: "admin cookie", cookie: "admin-token", want: http.StatusOK},
		{name: "admin bearer", bearer: "admin-token", want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "agencia_session", Value: tt.cookie})
			}
			if tt.bearer != "" {
				req.Header.Set(echo.HeaderAuthorization, "Bearer "+tt.bearer)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusOK {
				assert.Equal(t, "admin", rec.Body.String())
			}
		})
	}
}
