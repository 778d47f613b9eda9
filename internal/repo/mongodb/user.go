package mongodb

import (
	"context"

	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/models"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type userRepository struct {
	baseRepo[models.User]
}

func NewUserRepository(db *DB) repository.UserRepository {
	return &userRepository{
		baseRepo: newBaseRepo[models.User](db.Database),
	}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = models.NewObjectID()
	}
	err := r.Insert(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return models.ErrAlreadyExists
	}
	return err
}

func (r *userRepository) GetByID(ctx context.Context, id models.ObjectID) (*models.User, error) {
	if !id.Valid() {
		return nil, models.ErrNotFound
	}
	return r.FindOne(ctx, bson.M{"_id": id})
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.FindOne(ctx, bson.M{"username": username})
}

func (r *userRepository) ListByRole(ctx context.Context, role models.Role) ([]*models.User, error) {
	return r.Find(ctx, bson.M{"role": role}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
}

func (r *userRepository) CountByRole(ctx context.Context, role models.Role) (int64, error) {
	return r.baseRepo.Count(ctx, bson.M{"role": role})
}

func (r *userRepository) Delete(ctx context.Context, id models.ObjectID) error {
	if !id.Valid() {
		return models.ErrNotFound
	}
	return r.DeleteOne(ctx, bson.M{"_id": id})
}

type clientPlanRepository struct {
	baseRepo[models.ClientPlan]
}

func NewClientPlanRepository(db *DB) repository.ClientPlanRepository {
	return &clientPlanRepository{
		baseRepo: newBaseRepo[models.ClientPlan](db.Database),
	}
}

func (r *clientPlanRepository) Upsert(ctx context.Context, plan *models.ClientPlan) error {
	set := bson.M{
		"plan_name":  plan.PlanName,
		"price":      plan.Price,
		"status":     plan.Status,
		"renews_at":  plan.RenewsAt,
		"updated_at": plan.UpdatedAt,
	}
	saved, err := r.UpsertOne(ctx, bson.M{"user_id": plan.UserID}, set, bson.M{"_id": models.NewObjectID()})
	if err != nil {
		return err
	}
	plan.ID = saved.ID
	return nil
}

func (r *clientPlanRepository) GetByUserID(ctx context.Context, userID models.ObjectID) (*models.ClientPlan, error) {
	if !userID.Valid() {
		return nil, models.ErrNotFound
	}
	return r.FindOne(ctx, bson.M{"user_id": userID})
}

func (r *clientPlanRepository) DeleteByUserID(ctx context.Context, userID models.ObjectID) error {
	if !userID.Valid() {
		return nil
	}
	_, err := r.DeleteMany(ctx, bson.M{"user_id": userID})
	return err
}

type clientStatRepository struct {
	baseRepo[models.ClientStat]
}

func NewClientStatRepository(db *DB) repository.ClientStatRepository {
	return &clientStatRepository{
		baseRepo: newBaseRepo[models.ClientStat](db.Database),
	}
}

func (r *clientStatRepository) Create(ctx context.Context, stat *models.ClientStat) error {
	if stat.ID.IsZero() {
		stat.ID = models.NewObjectID()
	}
	return r.Insert(ctx, stat)
}

func (r *clientStatRepository) ListByUserID(ctx context.Context, userID models.ObjectID) ([]*models.ClientStat, error) {
	if !userID.Valid() {
		return []*models.ClientStat{}, nil
	}
	return r.Find(ctx, bson.M{"user_id": userID}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
}

func (r *clientStatRepository) DeleteByUserID(ctx context.Context, userID models.ObjectID) (int64, error) {
	if !userID.Valid() {
		return 0, nil
	}
	return r.DeleteMany(ctx, bson.M{"user_id": userID})
}
