package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/models"
	pkgmdw "github.com/kapimkk/Projeto-Agencia-Marketing/internal/server/middleware"
)

func (h *controller) ClientPage(c echo.Context) error {
	dashboard, err := h.clients.Dashboard(c.Request().Context(), pkgmdw.GetPrincipal(c).UserID)
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, "client.html", pageData(c, dashboard))
}

// ClientTicket returns the client's open ticket, opening one when there is none.
func (h *controller) ClientTicket(c echo.Context, _ struct{}) (*models.ChatSession, error) {
	return h.tickets.OpenTicket(c.Request().Context(), pkgmdw.GetPrincipal(c), models.OpenTicketRequest{})
}

func (h *controller) ClientMessages(c echo.Context, _ struct{}) (*models.Thread, error) {
	ctx := c.Request().Context()
	principal := pkgmdw.GetPrincipal(c)
	session, err := h.tickets.ClientTicket(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}
	return h.tickets.GetThread(ctx, principal, session.UUID)
}

func (h *controller) ClientPostMessage(c echo.Context) error {
	ctx := c.Request().Context()
	session, err := h.tickets.ClientTicket(ctx, pkgmdw.GetPrincipal(c).UserID)
	if err != nil {
		return err
	}
	return h.postMessage(c, session.UUID)
}
