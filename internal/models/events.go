package models

import (
	"io"
	"time"
)

type EventType string

const (
	EventTicketOpened       EventType = "ticket.opened"
	EventTicketMessage      EventType = "ticket.message"
	EventTicketClosed       EventType = "ticket.closed"
	EventTicketDeleted      EventType = "ticket.deleted"
	EventOrderCreated       EventType = "order.created"
	EventOrderStatusChanged EventType = "order.status_changed"
	EventLeadCreated        EventType = "lead.created"
)

type Event struct {
	Type    EventType `json:"type"`
	Key     string    `json:"key"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload,omitempty"`
}

// Upload is a file received from a form before it reaches storage.
type Upload struct {
	Filename string
	Size     int64
	Content  io.Reader
}
