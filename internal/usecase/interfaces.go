package usecase

import (
	"context"

	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/models"
)

// TicketBroadcaster fans ticket updates out to live subscribers.
type TicketBroadcaster interface {
	BroadcastMessage(ctx context.Context, session *models.ChatSession, message *models.ChatMessage)
	BroadcastStatus(ctx context.Context, session *models.ChatSession)
}

type nopBroadcaster struct{}

func (nopBroadcaster) BroadcastMessage(context.Context, *models.ChatSession, *models.ChatMessage) {}
func (nopBroadcaster) BroadcastStatus(context.Context, *models.ChatSession)                      {}
