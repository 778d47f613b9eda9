package sqlstore

import (
	"context"
	"errors"

	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/models"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type baseRepo[E any] struct {
	db *gorm.DB
}

func (r *baseRepo[E]) conn(ctx context.Context) *gorm.DB {
	var entity E
	return r.db.WithContext(ctx).Model(&entity)
}

func (r *baseRepo[E]) insert(ctx context.Context, entity *E) error {
	err := r.db.WithContext(ctx).Create(entity).Error
	if isDuplicate(err) {
		return models.ErrAlreadyExists
	}
	return err
}

func (r *baseRepo[E]) first(ctx context.Context, query string, args ...any) (*E, error) {
	var entity E
	err := r.db.WithContext(ctx).Where(query, args...).Take(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entity, nil
}

func (r *baseRepo[E]) find(ctx context.Context, scope func(*gorm.DB) *gorm.DB) ([]*E, error) {
	entities := make([]*E, 0)
	if err := scope(r.conn(ctx)).Find(&entities).Error; err != nil {
		return nil, err
	}
	return entities, nil
}

func (r *baseRepo[E]) count(ctx context.Context, query string, args ...any) (int64, error) {
	var total int64
	tx := r.conn(ctx)
	if query != "" {
		tx = tx.Where(query, args...)
	}
	err := tx.Count(&total).Error
	return total, err
}

func (r *baseRepo[E]) deleteOne(ctx context.Context, query string, args ...any) error {
	var entity E
	result := r.db.WithContext(ctx).Where(query, args...).Delete(&entity)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *baseRepo[E]) deleteMany(ctx context.Context, query string, args ...any) (int64, error) {
	var entity E
	result := r.db.WithContext(ctx).Where(query, args...).Delete(&entity)
	return result.RowsAffected, result.Error
}

// updates applies values to the matching row and reloads it.
func (r *baseRepo[E]) updates(ctx context.Context, values map[string]any, query string, args ...any) (*E, error) {
	result := r.conn(ctx).Where(query, args...).Updates(values)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, models.ErrNotFound
	}
	return r.first(ctx, query, args...)
}

func (r *baseRepo[E]) paginate(ctx context.Context, order string, page, pageSize int) (*models.Page[*E], error) {
	group, gctx := errgroup.WithContext(ctx)
	entities := make([]*E, 0, pageSize)
	var total int64

	group.Go(func() error {
		return r.conn(gctx).
			Order(order).
			Offset(models.Offset(page, pageSize)).
			Limit(pageSize).
			Find(&entities).Error
	})
	group.Go(func() error {
		return r.conn(gctx).Count(&total).Error
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	return &models.Page[*E]{Items: entities, Total: total, Page: page, PageSize: pageSize}, nil
}
