package mongodb

import (
	"context"
	"time"

	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/models"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const ticketCounter = "ticket_number"

type chatSessionRepository struct {
	baseRepo[models.ChatSession]
	counters *mongo.Collection
}

func NewChatSessionRepository(db *DB) repository.ChatSessionRepository {
	return &chatSessionRepository{
		baseRepo: newBaseRepo[models.ChatSession](db.Database),
		counters: db.Database.Collection(countersCollection),
	}
}

func (r *chatSessionRepository) Create(ctx context.Context, session *models.ChatSession) error {
	if session.ID.IsZero() {
		session.ID = models.NewObjectID()
	}
	err := r.Insert(ctx, session)
	if mongo.IsDuplicateKeyError(err) {
		if session.UserID != nil && session.IsOpen() {
			return models.ErrOpenTicketExists
		}
		return models.ErrAlreadyExists
	}
	return err
}

func (r *chatSessionRepository) GetByUUID(ctx context.Context, uuid string) (*models.ChatSession, error) {
	return r.FindOne(ctx, bson.M{"session_uuid": uuid})
}

func (r *chatSessionRepository) GetOpenByUserID(ctx context.Context, userID models.ObjectID) (*models.ChatSession, error) {
	if !userID.Valid() {
		return nil, models.ErrNotFound
	}
	return r.FindOne(ctx, bson.M{"user_id": userID, "status": models.SessionStatusOpen})
}

func (r *chatSessionRepository) GetLatestByUserID(ctx context.Context, userID models.ObjectID) (*models.ChatSession, error) {
	if !userID.Valid() {
		return nil, models.ErrNotFound
	}
	return r.FindOne(ctx, bson.M{"user_id": userID}, options.FindOne().SetSort(newestFirst))
}

func (r *chatSessionRepository) ListByUUIDs(ctx context.Context, uuids []string) ([]*models.ChatSession, error) {
	if len(uuids) == 0 {
		return []*models.ChatSession{}, nil
	}
	return r.Find(ctx, bson.M{"session_uuid": bson.M{"$in": uuids}}, options.Find().SetSort(newestFirst))
}

func (r *chatSessionRepository) List(ctx context.Context, filter models.TicketFilter) ([]*models.ChatSession, error) {
	query := bson.M{}
	switch filter.Scope {
	case models.TicketScopePublic:
		query["user_id"] = bson.M{"$exists": false}
	case models.TicketScopeClient:
		query["user_id"] = bson.M{"$exists": true}
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	opts := options.Find().SetSort(newestFirst)
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	return r.Find(ctx, query, opts)
}

func (r *chatSessionRepository) Close(ctx context.Context, id models.ObjectID, at time.Time) (*models.ChatSession, error) {
	if !id.Valid() {
		return nil, models.ErrNotFound
	}
	update := bson.M{"$set": bson.M{"status": models.SessionStatusClosed, "closed_at": at}}
	return r.UpdateOne(ctx, bson.M{"_id": id}, update)
}

func (r *chatSessionRepository) Delete(ctx context.Context, id models.ObjectID) error {
	if !id.Valid() {
		return models.ErrNotFound
	}
	return r.DeleteOne(ctx, bson.M{"_id": id})
}

func (r *chatSessionRepository) CountOpen(ctx context.Context) (int64, error) {
	return r.Count(ctx, bson.M{"status": models.SessionStatusOpen})
}

func (r *chatSessionRepository) NextNumber(ctx context.Context) (int64, error) {
	return nextSequence(ctx, r.counters, ticketCounter)
}
