package mongodb

import (
	"context"

	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/models"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type orderRepository struct {
	baseRepo[models.Order]
}

func NewOrderRepository(db *DB) repository.OrderRepository {
	return &orderRepository{
		baseRepo: newBaseRepo[models.Order](db.Database),
	}
}

func (r *orderRepository) Create(ctx context.Context, order *models.Order) error {
	err := r.Insert(ctx, order)
	if mongo.IsDuplicateKeyError(err) {
		return models.ErrAlreadyExists
	}
	return err
}

func (r *orderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	return r.FindOne(ctx, bson.M{"_id": id})
}

func (r *orderRepository) Update(ctx context.Context, order *models.Order) error {
	set := bson.M{
		"status":       order.Status,
		"payer_email":  order.PayerEmail,
		"gateway_ref":  order.GatewayRef,
		"pix_code":     order.PixCode,
		"checkout_url": order.CheckoutURL,
		"updated_at":   order.UpdatedAt,
	}
	_, err := r.UpdateOne(ctx, bson.M{"_id": order.ID}, bson.M{"$set": set})
	return err
}

func (r *orderRepository) Paginate(ctx context.Context, page, pageSize int) (*models.Page[*models.Order], error) {
	return r.baseRepo.Paginate(ctx, bson.M{}, page, pageSize, options.Find().SetSort(newestFirst))
}

func (r *orderRepository) Count(ctx context.Context) (int64, error) {
	return r.baseRepo.Count(ctx, bson.M{})
}

func (r *orderRepository) CountByPlan(ctx context.Context) ([]models.LabelCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$plan", "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	}
	out := make([]models.LabelCount, 0)
	if err := r.Aggregate(ctx, pipeline, &out); err != nil {
		return nil, err
	}
	return out, nil
}
