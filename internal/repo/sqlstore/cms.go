package sqlstore

import (
	"context"
	"time"

	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const byPosition = "position ASC, id ASC"

type publicPlanRepository struct {
	baseRepo[models.PublicPlan]
}

func (r *publicPlanRepository) List(ctx context.Context) ([]*models.PublicPlan, error) {
	return r.find(ctx, func(tx *gorm.DB) *gorm.DB { return tx.Order(byPosition) })
}

func (r *publicPlanRepository) GetByName(ctx context.Context, name string) (*models.PublicPlan, error) {
	return r.first(ctx, "name = ?", name)
}

func (r *publicPlanRepository) Upsert(ctx context.Context, plan *models.PublicPlan) error {
	if plan.ID.IsZero() {
		plan.ID = models.NewObjectID()
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"price", "old_price", "features", "highlight", "position", "updated_at"}),
	}).Create(plan).Error
	if err != nil {
		return err
	}
	saved, err := r.first(ctx, "name = ?", plan.Name)
	if err != nil {
		return err
	}
	plan.ID = saved.ID
	return nil
}

func (r *publicPlanRepository) Delete(ctx context.Context, id models.ObjectID) error {
	return r.deleteOne(ctx, "id = ?", id)
}

func (r *publicPlanRepository) Count(ctx context.Context) (int64, error) {
	return r.count(ctx, "")
}

type portfolioRepository struct {
	baseRepo[models.PortfolioItem]
}

func (r *portfolioRepository) List(ctx context.Context) ([]*models.PortfolioItem, error) {
	return r.find(ctx, func(tx *gorm.DB) *gorm.DB { return tx.Order(byPosition) })
}

func (r *portfolioRepository) Create(ctx context.Context, item *models.PortfolioItem) error {
	if item.ID.IsZero() {
		item.ID = models.NewObjectID()
	}
	return r.insert(ctx, item)
}

func (r *portfolioRepository) Delete(ctx context.Context, id models.ObjectID) error {
	return r.deleteOne(ctx, "id = ?", id)
}

type siteConfigRepository struct {
	baseRepo[models.SiteConfig]
}

func (r *siteConfigRepository) All(ctx context.Context) (map[string]string, error) {
	entries, err := r.find(ctx, func(tx *gorm.DB) *gorm.DB { return tx })
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
	entry := &models.SiteConfig{Key: key, Value: value, UpdatedAt: time.Now()}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(entry).Error
}

type auditLogRepository struct {
	baseRepo[models.AuditLog]
}

func (r *auditLogRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID.IsZero() {
		entry.ID = models.NewObjectID()
	}
	return r.insert(ctx, entry)
}

func (r *auditLogRepository) List(ctx context.Context, limit int) ([]*models.AuditLog, error) {
	return r.find(ctx, func(tx *gorm.DB) *gorm.DB {
		if limit > 0 {
			tx = tx.Limit(limit)
		}
		return tx.Order(newestFirst)
	})
}

type visitRepository struct {
	baseRepo[models.Visit]
}

func (r *visitRepository) Create(ctx context.Context, visit *models.Visit) error {
	if visit.ID.IsZero() {
		visit.ID = models.NewObjectID()
	}
	return r.insert(ctx, visit)
}

func (r *visitRepository) Count(ctx context.Context) (int64, error) {
	return r.count(ctx, "")
}

type outboxRepository struct {
	baseRepo[models.EmailOutbox]
}

func (r *outboxRepository) Create(ctx context.Context, mail *models.EmailOutbox) error {
	if mail.ID.IsZero() {
		mail.ID = models.NewObjectID()
	}
	return r.insert(ctx, mail)
}

func (r *outboxRepository) GetByID(ctx context.Context, id models.ObjectID) (*models.EmailOutbox, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *outboxRepository) ClaimDue(ctx context.Context, now, leaseUntil time.Time, limit int) ([]*models.EmailOutbox, error) {
	candidates, err := r.find(ctx, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("status = ? AND next_attempt_at <= ?", models.OutboxStatusPending, now).
			Order("next_attempt_at ASC, id ASC").
			Limit(limit)
	})
	if err != nil {
		return nil, err
	}

	claimed := make([]*models.EmailOutbox, 0, len(candidates))
	for _, mail := range candidates {
		// a row leased by another process since the read no longer matches
		res := r.conn(ctx).
			Where("id = ? AND status = ? AND next_attempt_at <= ?", mail.ID, models.OutboxStatusPending, now).
			Update("next_attempt_at", leaseUntil)
		if res.Error != nil {
			return claimed, res.Error
		}
		if res.RowsAffected == 1 {
			mail.NextAttemptAt = leaseUntil
			claimed = append(claimed, mail)
		}
	}
	return claimed, nil
}

func (r *outboxRepository) ListByStatus(ctx context.Context, status models.OutboxStatus, limit int) ([]*models.EmailOutbox, error) {
	return r.find(ctx, func(tx *gorm.DB) *gorm.DB {
		if limit > 0 {
			tx = tx.Limit(limit)
		}
		return tx.Where("status = ?", status).Order(newestFirst)
	})
}

func (r *outboxRepository) Update(ctx context.Context, mail *models.EmailOutbox) error {
	_, err := r.updates(ctx, map[string]any{
		"status":          mail.Status,
		"attempts":        mail.Attempts,
		"last_error":      mail.LastError,
		"next_attempt_at": mail.NextAttemptAt,
		"sent_at":         mail.SentAt,
	}, "id = ?", mail.ID)
	return err
}

func (r *outboxRepository) CountByStatus(ctx context.Context, status models.OutboxStatus) (int64, error) {
	return r.count(ctx, "status = ?", status)
}
