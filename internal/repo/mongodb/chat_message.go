package mongodb

import (
	"context"

	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/models"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type chatMessageRepository struct {
	baseRepo[models.ChatMessage]
}

func NewChatMessageRepository(db *DB) repository.ChatMessageRepository {
	return &chatMessageRepository{
		baseRepo: newBaseRepo[models.ChatMessage](db.Database),
	}
}

func (r *chatMessageRepository) Create(ctx context.Context, message *models.ChatMessage) error {
	if message.ID.IsZero() {
		message.ID = models.NewObjectID()
	}
	return r.Insert(ctx, message)
}

func (r *chatMessageRepository) ListBySession(ctx context.Context, sessionID models.ObjectID) ([]*models.ChatMessage, error) {
	if !sessionID.Valid() {
		return []*models.ChatMessage{}, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	return r.Find(ctx, bson.M{"session_id": sessionID}, opts)
}

func (r *chatMessageRepository) CountBySender(ctx context.Context, sessionID models.ObjectID, sender models.Sender) (int64, error) {
	if !sessionID.Valid() {
		return 0, nil
	}
	return r.Count(ctx, bson.M{"session_id": sessionID, "sender": sender})
}

func (r *chatMessageRepository) DeleteBySession(ctx context.Context, sessionID models.ObjectID) (int64, error) {
	if !sessionID.Valid() {
		return 0, nil
	}
	return r.DeleteMany(ctx, bson.M{"session_id": sessionID})
}
