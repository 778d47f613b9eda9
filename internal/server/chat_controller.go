package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/models"
	pkgmdw "github.com/kapimkk/Projeto-Agencia-Marketing/internal/server/middleware"
	"github.com/kapimkk/Projeto-Agencia-Marketing/pkg/util"
)

func (h *controller) InitSession(c echo.Context) error {
	var req models.OpenTicketRequest
	if err := pkgmdw.BindAndValidate(c, &req); err != nil {
		return err
	}
	session, err := h.tickets.OpenTicket(c.Request().Context(), pkgmdw.GetPrincipal(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{
		"session_id": session.UUID,
		"ticket":     session.Ticket(),
	})
}

// readMessage collects the one payload of a chat post: an "arquivo" file, an
// "audio" recording or the "message" text. The caller closes the uploads.
func readMessage(c echo.Context, uuid string) (models.PostMessageRequest, []*upload, error) {
	req := models.PostMessageRequest{UUID: uuid, Text: c.FormValue("message")}
	file, err := formFile(c, "arquivo")
	if err != nil {
		return req, nil, err
	}
	audio, err := formFile(c, "audio")
	if err != nil {
		file.Close()
		return req, nil, err
	}
	req.File = file.model()
	req.Audio = audio.model()
	return req, []*upload{file, audio}, nil
}

func closeAll(uploads []*upload) {
	for _, u := range uploads {
		u.Close()
	}
}

// postMessage answers in the widget's shape: closed tickets and empty posts are
// reported in the body with status 200.
func (h *controller) postMessage(c echo.Context, uuid string) error {
	req, uploads, err := readMessage(c, uuid)
	defer closeAll(uploads)
	if err != nil {
		return err
	}

	message, err := h.tickets.PostMessage(c.Request().Context(), pkgmdw.GetPrincipal(c), req)
	switch {
	case errors.Is(err, models.ErrTicketClosed):
		return c.JSON(http.StatusOK, map[string]string{"status": "closed", "msg": models.ClosingMessage})
	case errors.Is(err, models.ErrEmptyMessage):
		return c.JSON(http.StatusOK, map[string]string{"status": "error", "message": "Vazio"})
	case err != nil:
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status":  "success",
		"content": message.Content,
		"type":    message.Kind,
	})
}

func (h *controller) SendChat(c echo.Context) error {
	return h.postMessage(c, c.FormValue("session_id"))
}

func threadView(thread *models.Thread) map[string]any {
	return map[string]any{
		"messages": util.ConvertList(thread.Messages, models.NewMessageView),
		"status":   thread.Session.Status,
		"ticket":   thread.Session.Ticket(),
	}
}

func (h *controller) GetMessages(c echo.Context) error {
	thread, err := h.tickets.GetThread(c.Request().Context(), pkgmdw.GetPrincipal(c), c.Param("uuid"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, threadView(thread))
}

func (h *controller) CloseChat(c echo.Context) error {
	principal := pkgmdw.GetPrincipal(c)
	session, err := h.tickets.CloseTicket(c.Request().Context(), principal, principal.Actor(c.RealIP()), c.Param("uuid"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"status": session.Status, "msg": models.ClosingMessage})
}

func (h *controller) MyTickets(c echo.Context) error {
	var req MyTicketsRequest
	if err := pkgmdw.BindAndValidate(c, &req); err != nil {
		return err
	}
	tickets, err := h.tickets.MyTickets(c.Request().Context(), req.UUIDs)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tickets)
}

// TicketSocket streams updates of a ticket the caller is allowed to read.
func (h *controller) TicketSocket(c echo.Context) error {
	thread, err := h.tickets.GetThread(c.Request().Context(), pkgmdw.GetPrincipal(c), c.Param("uuid"))
	if err != nil {
		return err
	}
	return h.hub.Serve(c, thread.Session.UUID)
}
