package mongodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"
)

// keep the baseRepo implementation in sync with IRepository interface
var _ IRepository[models.User] = (*baseRepo[models.User])(nil)

type IEntity interface {
	CollectionName() string
}

type IRepository[E IEntity] interface {
	Insert(ctx context.Context, entity *E) error
	Find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]*E, error)
	FindOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*E, error)
	UpdateOne(ctx context.Context, filter bson.M, update bson.M) (*E, error)
	UpsertOne(ctx context.Context, filter bson.M, set any, setOnInsert bson.M) (*E, error)
	DeleteOne(ctx context.Context, filter bson.M) error
	DeleteMany(ctx context.Context, filter bson.M) (int64, error)
	Count(ctx context.Context, filter bson.M) (int64, error)
	Paginate(ctx context.Context, filter bson.M, page, pageSize int, opts ...*options.FindOptions) (*models.Page[*E], error)
	Aggregate(ctx context.Context, pipeline mongo.Pipeline, out any) error
}

type baseRepo[E IEntity] struct {
	coll *mongo.Collection
}

func newBaseRepo[E IEntity](dbc *mongo.Database) baseRepo[E] {
	var entity E
	return baseRepo[E]{
		coll: dbc.Collection(entity.CollectionName()),
	}
}

func (r *baseRepo[E]) Insert(ctx context.Context, entity *E) error {
	if _, err := r.coll.InsertOne(ctx, entity); err != nil {
		return fmt.Errorf("insert one: %w", err)
	}
	return nil
}

func (r *baseRepo[E]) Find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]*E, error) {
	cursor, err := r.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}
	entities := make([]*E, 0)
	if err := cursor.All(ctx, &entities); err != nil {
		return nil, fmt.Errorf("cursor all: %w", err)
	}
	return entities, nil
}

func (r *baseRepo[E]) FindOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*E, error) {
	var entity E
	err := r.coll.FindOne(ctx, filter, opts...).Decode(&entity)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entity, nil
}

// UpdateOne applies update and returns the document after the change.
func (r *baseRepo[E]) UpdateOne(ctx context.Context, filter bson.M, update bson.M) (*E, error) {
	updateOpt := options.
		FindOneAndUpdate().
		SetReturnDocument(options.After)

	var updatedEntity E
	err := r.coll.FindOneAndUpdate(ctx, filter, update, updateOpt).Decode(&updatedEntity)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &updatedEntity, nil
}

func (r *baseRepo[E]) UpsertOne(ctx context.Context, filter bson.M, set any, setOnInsert bson.M) (*E, error) {
	update := bson.M{
		"$set": set,
	}
	if setOnInsert != nil {
		update["$setOnInsert"] = setOnInsert
	}
	upsertOpt := options.
		FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var updatedEntity E
	err := r.coll.FindOneAndUpdate(ctx, filter, update, upsertOpt).Decode(&updatedEntity)
	if err != nil {
		return nil, err
	}
	return &updatedEntity, nil
}

func (r *baseRepo[E]) DeleteOne(ctx context.Context, filter bson.M) error {
	result, err := r.coll.DeleteOne(ctx, filter)
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *baseRepo[E]) DeleteMany(ctx context.Context, filter bson.M) (int64, error) {
	result, err := r.coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

func (r *baseRepo[E]) Count(ctx context.Context, filter bson.M) (int64, error) {
	return r.coll.CountDocuments(ctx, filter)
}

func (r *baseRepo[E]) Paginate(ctx context.Context, filter bson.M, page, pageSize int, opts ...*options.FindOptions) (*models.Page[*E], error) {
	group, ctx := errgroup.WithContext(ctx)
	entities := make([]*E, 0, pageSize)
	var total int64

	group.Go(func() error {
		findOpts := append(opts, options.Find().
			SetSkip(int64(models.Offset(page, pageSize))).
			SetLimit(int64(pageSize)))
		cursor, err := r.coll.Find(ctx, filter, findOpts...)
		if err != nil {
			return fmt.Errorf("find: %w", err)
		}
		if err := cursor.All(ctx, &entities); err != nil {
			return fmt.Errorf("cursor all: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		var err error
		total, err = r.coll.CountDocuments(ctx, filter)
		if err != nil {
			return fmt.Errorf("count documents: %w", err)
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	return &models.Page[*E]{Items: entities, Total: total, Page: page, PageSize: pageSize}, nil
}

func (r *baseRepo[E]) Aggregate(ctx context.Context, pipeline mongo.Pipeline, out any) error {
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return fmt.Errorf("aggregate: %w", err)
	}
	if err := cursor.All(ctx, out); err != nil {
		return fmt.Errorf("cursor all: %w", err)
	}
	return nil
}
