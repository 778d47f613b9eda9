package models

import "time"

type OutboxStatus string

const (
	OutboxStatusPending OutboxStatus = "pending"
	OutboxStatusSent    OutboxStatus = "sent"
	OutboxStatusFailed  OutboxStatus = "failed"
)

type EmailOutbox struct {
	ID            ObjectID       `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(24)"`
	To            []string       `json:"to" bson:"to" gorm:"serializer:json"`
	Subject       string         `json:"subject" bson:"subject"`
	Template      string         `json:"template" bson:"template"`
	Data          map[string]any `json:"data" bson:"data" gorm:"serializer:json"`
	Status        OutboxStatus   `json:"status" bson:"status" gorm:"size:10;index:idx_outbox_due,priority:1"`
	Attempts      int            `json:"attempts" bson:"attempts"`
	LastError     string         `json:"last_error,omitempty" bson:"last_error,omitempty"`
	NextAttemptAt time.Time      `json:"next_attempt_at" bson:"next_attempt_at" gorm:"index:idx_outbox_due,priority:2"`
	CreatedAt     time.Time      `json:"created_at" bson:"created_at"`
	SentAt        *time.Time     `json:"sent_at,omitempty" bson:"sent_at,omitempty"`
}

func (EmailOutbox) CollectionName() string { return "email_outbox" }
func (EmailOutbox) TableName() string      { return "email_outbox" }

// Mail is a rendered message ready for delivery.
type Mail struct {
	To       []string
	Subject  string
	HTMLBody string
}
