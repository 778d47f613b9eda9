package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/models"
	pkgmdw "github.com/kapimkk/Projeto-Agencia-Marketing/internal/server/middleware"
)

func homeFor(role models.Role) string {
	if role == models.RoleClient {
		return "/client"
	}
	return "/admin"
}

func (h *controller) LoginPage(c echo.Context) error {
	if principal := pkgmdw.GetPrincipal(c); principal != nil {
		return c.Redirect(http.StatusSeeOther, homeFor(principal.Role))
	}
	return c.Render(http.StatusOK, "login.html", pageData(c, nil))
}

func (h *controller) sessionCookie(value string, expires time.Time) *http.Cookie {
	cookie := &http.Cookie{
		Name:     h.cfg.Auth.CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
	}
	if value == "" {
		cookie.MaxAge = -1
	}
	return cookie
}

// Login answers JSON callers with the role and browsers with a redirect.
func (h *controller) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := pkgmdw.BindAndValidate(c, &req); err != nil {
		return err
	}
	result, err := h.auth.Login(c.Request().Context(), req, c.RealIP())
	if err != nil {
		if wantsHTML(c) && errors.Is(err, models.ErrInvalidCredentials) {
			data := pageData(c, nil)
			data.Error = "Usuário ou senha incorretos"
			return c.Render(http.StatusUnauthorized, "login.html", data)
		}
		return err
	}

	c.SetCookie(h.sessionCookie(result.Token, result.ExpiresAt))
	if wantsHTML(c) {
		return c.Redirect(http.StatusSeeOther, homeFor(result.User.Role))
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status":     "success",
		"role":       result.User.Role,
		"expires_at": result.ExpiresAt,
	})
}

func (h *controller) Logout(c echo.Context) error {
	c.SetCookie(h.sessionCookie("", time.Unix(0, 0)))
	return c.Redirect(http.StatusSeeOther, "/login")
}
