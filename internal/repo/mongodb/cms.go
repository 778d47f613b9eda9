package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/models"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var byPosition = bson.D{{Key: "position", Value: 1}, {Key: "_id", Value: 1}}

type publicPlanRepository struct {
	baseRepo[models.PublicPlan]
}

func NewPublicPlanRepository(db *DB) repository.PublicPlanRepository {
	return &publicPlanRepository{
		baseRepo: newBaseRepo[models.PublicPlan](db.Database),
	}
}

func (r *publicPlanRepository) List(ctx context.Context) ([]*models.PublicPlan, error) {
	return r.Find(ctx, bson.M{}, options.Find().SetSort(byPosition))
}

func (r *publicPlanRepository) GetByName(ctx context.Context, name string) (*models.PublicPlan, error) {
	return r.FindOne(ctx, bson.M{"name": name})
}

func (r *publicPlanRepository) Upsert(ctx context.Context, plan *models.PublicPlan) error {
	set := bson.M{
		"price":      plan.Price,
		"old_price":  plan.OldPrice,
		"features":   plan.Features,
		"highlight":  plan.Highlight,
		"position":   plan.Position,
		"updated_at": plan.UpdatedAt,
	}
	saved, err := r.UpsertOne(ctx, bson.M{"name": plan.Name}, set, bson.M{"_id": models.NewObjectID()})
	if err != nil {
		return err
	}
	plan.ID = saved.ID
	return nil
}

func (r *publicPlanRepository) Delete(ctx context.Context, id models.ObjectID) error {
	if !id.Valid() {
		return models.ErrNotFound
	}
	return r.DeleteOne(ctx, bson.M{"_id": id})
}

func (r *publicPlanRepository) Count(ctx context.Context) (int64, error) {
	return r.baseRepo.Count(ctx, bson.M{})
}

type portfolioRepository struct {
	baseRepo[models.PortfolioItem]
}

func NewPortfolioRepository(db *DB) repository.PortfolioRepository {
	return &portfolioRepository{
		baseRepo: newBaseRepo[models.PortfolioItem](db.Database),
	}
}

func (r *portfolioRepository) List(ctx context.Context) ([]*models.PortfolioItem, error) {
	return r.Find(ctx, bson.M{}, options.Find().SetSort(byPosition))
}

func (r *portfolioRepository) Create(ctx context.Context, item *models.PortfolioItem) error {
	if item.ID.IsZero() {
		item.ID = models.NewObjectID()
	}
	return r.Insert(ctx, item)
}

func (r *portfolioRepository) Delete(ctx context.Context, id models.ObjectID) error {
	if !id.Valid() {
		return models.ErrNotFound
	}
	return r.DeleteOne(ctx, bson.M{"_id": id})
}

type siteConfigRepository struct {
	baseRepo[models.SiteConfig]
}

func NewSiteConfigRepository(db *DB) repository.SiteConfigRepository {
	return &siteConfigRepository{
		baseRepo: newBaseRepo[models.SiteConfig](db.Database),
	}
}

func (r *siteConfigRepository) All(ctx context.Context) (map[string]string, error) {
	entries, err := r.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		out[e.Key] = e.Value
	}
	return out, nil
}

func (r *siteConfigRepository) Set(ctx context.Context, key, value string) error {
	_, err := r.UpsertOne(ctx, bson.M{"_id": key}, bson.M{"value": value, "updated_at": time.Now()}, nil)
	return err
}

type auditLogRepository struct {
	baseRepo[models.AuditLog]
}

func NewAuditLogRepository(db *DB) repository.AuditLogRepository {
	return &auditLogRepository{
		baseRepo: newBaseRepo[models.AuditLog](db.Database),
	}
}

func (r *auditLogRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID.IsZero() {
		entry.ID = models.NewObjectID()
	}
	return r.Insert(ctx, entry)
}

func (r *auditLogRepository) List(ctx context.Context, limit int) ([]*models.AuditLog, error) {
	opts := options.Find().SetSort(newestFirst)
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return r.Find(ctx, bson.M{}, opts)
}

type visitRepository struct {
	baseRepo[models.Visit]
}

func NewVisitRepository(db *DB) repository.VisitRepository {
	return &visitRepository{
		baseRepo: newBaseRepo[models.Visit](db.Database),
	}
}

func (r *visitRepository) Create(ctx context.Context, visit *models.Visit) error {
	if visit.ID.IsZero() {
		visit.ID = models.NewObjectID()
	}
	return r.Insert(ctx, visit)
}

func (r *visitRepository) Count(ctx context.Context) (int64, error) {
	return r.baseRepo.Count(ctx, bson.M{})
}

type outboxRepository struct {
	baseRepo[models.EmailOutbox]
}

func NewOutboxRepository(db *DB) repository.OutboxRepository {
	return &outboxRepository{
		baseRepo: newBaseRepo[models.EmailOutbox](db.Database),
	}
}

func (r *outboxRepository) Create(ctx context.Context, mail *models.EmailOutbox) error {
	if mail.ID.IsZero() {
		mail.ID = models.NewObjectID()
	}
	return r.Insert(ctx, mail)
}

func (r *outboxRepository) GetByID(ctx context.Context, id models.ObjectID) (*models.EmailOutbox, error) {
	if !id.Valid() {
		return nil, models.ErrNotFound
	}
	return r.FindOne(ctx, bson.M{"_id": id})
}

func (r *outboxRepository) ClaimDue(ctx context.Context, now, leaseUntil time.Time, limit int) ([]*models.EmailOutbox, error) {
	if !leaseUntil.After(now) {
		return nil, fmt.Errorf("claim outbox: lease %s must be after %s", leaseUntil, now)
	}
	filter := bson.M{
		"status":          models.OutboxStatusPending,
		"next_attempt_at": bson.M{"$lte": now},
	}
	update := bson.M{"$set": bson.M{"next_attempt_at": leaseUntil}}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "next_attempt_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetReturnDocument(options.After)

	claimed := make([]*models.EmailOutbox, 0, limit)
	for len(claimed) < limit {
		var mail models.EmailOutbox
		err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&mail)
		if errors.Is(err, mongo.ErrNoDocuments) {
			break
		}
		if err != nil {
			return claimed, fmt.Errorf("claim outbox row: %w", err)
		}
		claimed = append(claimed, &mail)
	}
	return claimed, nil
}

func (r *outboxRepository) ListByStatus(ctx context.Context, status models.OutboxStatus, limit int) ([]*models.EmailOutbox, error) {
	opts := options.Find().SetSort(newestFirst)
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return r.Find(ctx, bson.M{"status": status}, opts)
}

func (r *outboxRepository) Update(ctx context.Context, mail *models.EmailOutbox) error {
	set := bson.M{
		"status":          mail.Status,
		"attempts":        mail.Attempts,
		"last_error":      mail.LastError,
		"next_attempt_at": mail.NextAttemptAt,
		"sent_at":         mail.SentAt,
	}
	_, err := r.UpdateOne(ctx, bson.M{"_id": mail.ID}, bson.M{"$set": set})
	return err
}

func (r *outboxRepository) CountByStatus(ctx context.Context, status models.OutboxStatus) (int64, error) {
	return r.Count(ctx, bson.M{"status": status})
}

