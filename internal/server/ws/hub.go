// Package ws pushes ticket updates to the browsers watching a ticket.
package ws

import (
	"context"
	"net/http"
	"sync"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/models"
	"github.com/kapimkk/Projeto-Agencia-Marketing/pkg/logger/log"
)

type EventType string

const (
	EventMessage EventType = "message"
	EventStatus  EventType = "status"
)

type Event struct {
	Type    EventType            `json:"type"`
	UUID    string               `json:"uuid"`
	Ticket  string               `json:"ticket"`
	Status  models.SessionStatus `json:"status"`
	Message *models.MessageView  `json:"message,omitempty"`
}

// Hub keeps one room per ticket uuid. It implements usecase.TicketBroadcaster.
type Hub struct {
	upgrader websocket.Upgrader
	rooms    map[string]map[*client]struct{}
	mu       sync.RWMutex
}

// NewHub accepts upgrades only from origins allowed by checkOrigin.
func NewHub(checkOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		rooms: make(map[string]map[*client]struct{}),
	}
}

// Serve upgrades the request and subscribes it to uuid. Access must be
// checked by the caller before.
func (h *Hub) Serve(c echo.Context, uuid string) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader already answered the client
		log.Debugw(c.Request().Context(), "websocket upgrade", "uuid", uuid, "error", err)
		return nil
	}
	cl := newClient(h, uuid, conn)
	h.join(uuid, cl)
	go cl.writePump()
	go cl.readPump()
	return nil
}

func (h *Hub) join(uuid string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[uuid] == nil {
		h.rooms[uuid] = make(map[*client]struct{})
	}
	h.rooms[uuid][c] = struct{}{}
}

func (h *Hub) leave(uuid string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m := h.rooms[uuid]; m != nil {
		delete(m, c)
		if len(m) == 0 {
			delete(h.rooms, uuid)
		}
	}
}

// Watchers returns how many connections follow uuid.
func (h *Hub) Watchers(uuid string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[uuid])
}

func (h *Hub) broadcast(ctx context.Context, uuid string, event Event) {
	h.mu.RLock()
	room := make([]*client, 0, len(h.rooms[uuid]))
	for c := range h.rooms[uuid] {
		room = append(room, c)
	}
	h.mu.RUnlock()
	if len(room) == 0 {
		return
	}

	b, err := json.Marshal(event)
	if err != nil {
		log.Warnw(ctx, "encode ticket event", "uuid", uuid, "error", err)
		return
	}
	for _, c := range room {
		c.enqueue(b)
	}
}

func (h *Hub) BroadcastMessage(ctx context.Context, session *models.ChatSession, message *models.ChatMessage) {
	view := models.NewMessageView(message)
	h.broadcast(ctx, session.UUID, Event{
		Type:    EventMessage,
		UUID:    session.UUID,
		Ticket:  session.Ticket(),
		Status:  session.Status,
		Message: &view,
	})
}

func (h *Hub) BroadcastStatus(ctx context.Context, session *models.ChatSession) {
	h.broadcast(ctx, session.UUID, Event{
		Type:   EventStatus,
		UUID:   session.UUID,
		Ticket: session.Ticket(),
		Status: session.Status,
	})
}
