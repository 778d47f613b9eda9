package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/models"
	"github.com/kapimkk/Projeto-Agencia-Marketing/pkg/ctxval"
	"github.com/kapimkk/Projeto-Agencia-Marketing/pkg/logger/log"
	"github.com/kapimkk/Projeto-Agencia-Marketing/pkg/util"
)

const PrincipalKey = "principal"

type TokenParser interface {
	ParseToken(ctx context.Context, token string) (*models.Principal, error)
}

// Authenticate resolves the caller from the session cookie or a bearer token.
// Anonymous requests pass through; RequireRole decides what they may reach.
func Authenticate(parser TokenParser, cookieName string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := ""
			if cookie, err := c.Cookie(cookieName); err == nil {
				token = cookie.Value
			}
			if token == "" {
				token = strings.TrimPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
			}
			if token == "" {
				return next(c)
			}

			ctx := c.Request().Context()
			principal, err := parser.ParseToken(ctx, token)
			if err != nil {
				log.Debugw(ctx, "ignoring invalid session", "error", err)
				return next(c)
			}
			c.Set(PrincipalKey, principal)
			ctxval.Set(ctx, log.UserIDKey, principal.UserID.String())
			return next(c)
		}
	}
}

// RequireRole rejects callers that are anonymous or hold none of roles.
func RequireRole(roles ...models.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			principal := GetPrincipal(c)
			if principal == nil {
				return models.ErrUnauthenticated
			}
			if !util.SliceIncludes(roles, principal.Role) {
				return models.ErrPermissionDenied
			}
			return next(c)
		}
	}
}

// GetPrincipal returns nil for anonymous callers.
func GetPrincipal(c echo.Context) *models.Principal {
	principal, _ := c.Get(PrincipalKey).(*models.Principal)
	return principal
}

func GetUserID(c echo.Context) string {
	if principal := GetPrincipal(c); principal != nil {
		return principal.UserID.String()
	}
	return ""
}
