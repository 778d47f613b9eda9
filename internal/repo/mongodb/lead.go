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

var newestFirst = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}

type leadRepository struct {
	baseRepo[models.Lead]
}

func NewLeadRepository(db *DB) repository.LeadRepository {
	return &leadRepository{
		baseRepo: newBaseRepo[models.Lead](db.Database),
	}
}

func (r *leadRepository) Create(ctx context.Context, lead *models.Lead) error {
	if lead.ID.IsZero() {
		lead.ID = models.NewObjectID()
	}
	return r.Insert(ctx, lead)
}

func (r *leadRepository) Paginate(ctx context.Context, page, pageSize int) (*models.Page[*models.Lead], error) {
	return r.baseRepo.Paginate(ctx, bson.M{}, page, pageSize, options.Find().SetSort(newestFirst))
}

func (r *leadRepository) ListAll(ctx context.Context) ([]*models.Lead, error) {
	return r.Find(ctx, bson.M{}, options.Find().SetSort(newestFirst))
}

func (r *leadRepository) Delete(ctx context.Context, id models.ObjectID) error {
	if !id.Valid() {
		return models.ErrNotFound
	}
	return r.DeleteOne(ctx, bson.M{"_id": id})
}

func (r *leadRepository) Count(ctx context.Context) (int64, error) {
	return r.baseRepo.Count(ctx, bson.M{})
}

func (r *leadRepository) CountByDay(ctx context.Context, since time.Time) ([]models.DayCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"created_at": bson.M{"$gte": since}}}},
		{{Key: "$group", Value: bson.M{
			"_id":   bson.M{"$dateToString": bson.M{"format": "%Y-%m-%d", "date": "$created_at"}},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}
	out := make([]models.DayCount, 0)
	if err := r.Aggregate(ctx, pipeline, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type reviewRepository struct {
	baseRepo[models.Review]
}

func NewReviewRepository(db *DB) repository.ReviewRepository {
	return &reviewRepository{
		baseRepo: newBaseRepo[models.Review](db.Database),
	}
}

func (r *reviewRepository) Create(ctx context.Context, review *models.Review) error {
	if review.ID.IsZero() {
		review.ID = models.NewObjectID()
	}
	return r.Insert(ctx, review)
}

func (r *reviewRepository) List(ctx context.Context, onlyVisible bool, limit int) ([]*models.Review, error) {
	filter := bson.M{}
	if onlyVisible {
		filter["visible"] = true
	}
	opts := options.Find().SetSort(newestFirst)
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return r.Find(ctx, filter, opts)
}

func (r *reviewRepository) SetVisible(ctx context.Context, id models.ObjectID, visible bool) (*models.Review, error) {
	if !id.Valid() {
		return nil, models.ErrNotFound
	}
	return r.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"visible": visible}})
}

func (r *reviewRepository) Delete(ctx context.Context, id models.ObjectID) error {
	if !id.Valid() {
		return models.ErrNotFound
	}
	return r.DeleteOne(ctx, bson.M{"_id": id})
}

func (r *reviewRepository) Count(ctx context.Context) (int64, error) {
	return r.baseRepo.Count(ctx, bson.M{})
}
