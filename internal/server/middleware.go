package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/models"
	pkgmdw "github.com/kapimkk/Projeto-Agencia-Marketing/internal/server/middleware"
)

// wantsHTML reports whether the caller is a browser navigating pages rather
// than a script calling the JSON API.
func wantsHTML(c echo.Context) bool {
	req := c.Request()
	if strings.Contains(c.Path(), "/api/") || strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		return false
	}
	return strings.Contains(req.Header.Get(echo.HeaderAccept), echo.MIMETextHTML)
}

// errorHandler sends anonymous browsers to the login page and everything else
// through the JSON error payload.
func errorHandler(log pkgmdw.Logger) echo.HTTPErrorHandler {
	jsonHandler := pkgmdw.ErrorHandler(log)
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		if errors.Is(err, models.ErrUnauthenticated) && wantsHTML(c) {
			if err := c.Redirect(http.StatusSeeOther, "/login"); err != nil {
				log.Errorw("could not redirect", "error", err)
			}
			return
		}
		jsonHandler(err, c)
	}
}
