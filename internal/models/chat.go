package models

import (
	"fmt"
	"time"
)

type SessionStatus string

const (
	SessionStatusOpen   SessionStatus = "Aberto"
	SessionStatusClosed SessionStatus = "Encerrado"
)

type MessageKind string

const (
	MessageKindText  MessageKind = "texto"
	MessageKindAudio MessageKind = "audio"
	MessageKindFile  MessageKind = "arquivo"
)

type Sender string

const (
	SenderUser   Sender = "user"
	SenderAdmin  Sender = "admin"
	SenderSystem Sender = "system"
)

const DefaultCategory = "Geral"

// ChatSession is one support ticket. UserID is nil for anonymous visitors.
type ChatSession struct {
	ID          ObjectID      `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(24)"`
	UUID        string        `json:"uuid" bson:"session_uuid" gorm:"column:session_uuid;uniqueIndex;size:36"`
	Number      int64         `json:"number" bson:"number"`
	Category    string        `json:"category" bson:"category"`
	Status      SessionStatus `json:"status" bson:"status" gorm:"size:20;index"`
	UserID      *ObjectID     `json:"user_id,omitempty" bson:"user_id,omitempty" gorm:"type:varchar(24)"`
	ClientName  string        `json:"client_name,omitempty" bson:"client_name,omitempty"`
	ClientPhone string        `json:"client_phone,omitempty" bson:"client_phone,omitempty"`
	CreatedAt   time.Time     `json:"created_at" bson:"created_at"`
	ClosedAt    *time.Time    `json:"closed_at,omitempty" bson:"closed_at,omitempty"`
}

func (ChatSession) CollectionName() string { return "chat_sessions" }
func (ChatSession) TableName() string      { return "chat_sessions" }

// Ticket is the human readable reference shown to visitors.
func (s *ChatSession) Ticket() string {
	return fmt.Sprintf("#%d", s.Number)
}

func (s *ChatSession) IsAnonymous() bool {
	return s.UserID == nil || s.UserID.IsZero()
}

func (s *ChatSession) IsOpen() bool {
	return s.Status == SessionStatusOpen
}

func (s *ChatSession) OwnedBy(userID ObjectID) bool {
	return !s.IsAnonymous() && *s.UserID == userID
}

type ChatMessage struct {
	ID        ObjectID    `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(24)"`
	SessionID ObjectID    `json:"session_id" bson:"session_id" gorm:"type:varchar(24);index"`
	Kind      MessageKind `json:"kind" bson:"kind" gorm:"size:20"`
	Content   string      `json:"content" bson:"content"`
	Sender    Sender      `json:"sender" bson:"sender" gorm:"size:20"`
	CreatedAt time.Time   `json:"created_at" bson:"created_at"`
}

func (ChatMessage) CollectionName() string { return "chat_messages" }
func (ChatMessage) TableName() string      { return "chat_messages" }

type TicketScope string

const (
	TicketScopeAll    TicketScope = ""
	TicketScopePublic TicketScope = "public"
	TicketScopeClient TicketScope = "client"
)

type TicketFilter struct {
	Scope  TicketScope
	Status SessionStatus
	Limit  int
}

// Thread is a ticket with its messages in insertion order.
type Thread struct {
	Session  *ChatSession   `json:"session"`
	Messages []*ChatMessage `json:"messages"`
}

type OpenTicketRequest struct {
	Category string `json:"category" form:"category" validate:"max=50"`
	Name     string `json:"name" form:"name" validate:"max=100"`
	Phone    string `json:"phone" form:"phone" validate:"max=30"`
}

// PostMessageRequest carries exactly one of Text, Audio or File.
type PostMessageRequest struct {
	UUID  string
	Text  string
	Audio *Upload
	File  *Upload
}

// TicketSummary is what a visitor's browser sees for the tickets it remembers.
type TicketSummary struct {
	UUID     string        `json:"uuid"`
	Ticket   string        `json:"ticket"`
	Status   SessionStatus `json:"status"`
	Category string        `json:"category"`
}

const (
	MaxMessageRunes = 4000
	ClosingMessage  = "Atendimento encerrado."
)

// MessageView is the shape the chat widget renders. File and audio contents
// are filenames under the uploads path.
type MessageView struct {
	Kind      MessageKind `json:"tipo"`
	Content   string      `json:"conteudo"`
	Sender    Sender      `json:"remetente"`
	CreatedAt time.Time   `json:"data"`
}

func NewMessageView(m *ChatMessage) MessageView {
	return MessageView{Kind: m.Kind, Content: m.Content, Sender: m.Sender, CreatedAt: m.CreatedAt}
}
