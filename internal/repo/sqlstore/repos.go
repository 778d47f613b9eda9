package sqlstore

import (
	"context"
	"errors"
	"time"

	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const newestFirst = "created_at DESC, id DESC"

type userRepository struct {
	baseRepo[models.User]
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = models.NewObjectID()
	}
	return r.insert(ctx, user)
}

func (r *userRepository) GetByID(ctx context.Context, id models.ObjectID) (*models.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.first(ctx, "username = ?", username)
}

func (r *userRepository) ListByRole(ctx context.Context, role models.Role) ([]*models.User, error) {
	return r.find(ctx, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("role = ?", role).Order(newestFirst)
	})
}

func (r *userRepository) CountByRole(ctx context.Context, role models.Role) (int64, error) {
	return r.count(ctx, "role = ?", role)
}

func (r *userRepository) Delete(ctx context.Context, id models.ObjectID) error {
	return r.deleteOne(ctx, "id = ?", id)
}

type clientPlanRepository struct {
	baseRepo[models.ClientPlan]
}

func (r *clientPlanRepository) Upsert(ctx context.Context, plan *models.ClientPlan) error {
	if plan.ID.IsZero() {
		plan.ID = models.NewObjectID()
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"plan_name", "price", "status", "renews_at", "updated_at"}),
	}).Create(plan).Error
	if err != nil {
		return err
	}
	saved, err := r.first(ctx, "user_id = ?", plan.UserID)
	if err != nil {
		return err
	}
	plan.ID = saved.ID
	return nil
}

func (r *clientPlanRepository) GetByUserID(ctx context.Context, userID models.ObjectID) (*models.ClientPlan, error) {
	return r.first(ctx, "user_id = ?", userID)
}

func (r *clientPlanRepository) DeleteByUserID(ctx context.Context, userID models.ObjectID) error {
	_, err := r.deleteMany(ctx, "user_id = ?", userID)
	return err
}

type clientStatRepository struct {
	baseRepo[models.ClientStat]
}

func (r *clientStatRepository) Create(ctx context.Context, stat *models.ClientStat) error {
	if stat.ID.IsZero() {
		stat.ID = models.NewObjectID()
	}
	return r.insert(ctx, stat)
}

func (r *clientStatRepository) ListByUserID(ctx context.Context, userID models.ObjectID) ([]*models.ClientStat, error) {
	return r.find(ctx, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("user_id = ?", userID).Order(newestFirst)
	})
}

func (r *clientStatRepository) DeleteByUserID(ctx context.Context, userID models.ObjectID) (int64, error) {
	return r.deleteMany(ctx, "user_id = ?", userID)
}

type leadRepository struct {
	baseRepo[models.Lead]
}

func (r *leadRepository) Create(ctx context.Context, lead *models.Lead) error {
	if lead.ID.IsZero() {
		lead.ID = models.NewObjectID()
	}
	return r.insert(ctx, lead)
}

func (r *leadRepository) Paginate(ctx context.Context, page, pageSize int) (*models.Page[*models.Lead], error) {
	return r.paginate(ctx, newestFirst, page, pageSize)
}

func (r *leadRepository) ListAll(ctx context.Context) ([]*models.Lead, error) {
	return r.find(ctx, func(tx *gorm.DB) *gorm.DB { return tx.Order(newestFirst) })
}

func (r *leadRepository) Delete(ctx context.Context, id models.ObjectID) error {
	return r.deleteOne(ctx, "id = ?", id)
}

func (r *leadRepository) Count(ctx context.Context) (int64, error) {
	return r.count(ctx, "")
}

func (r *leadRepository) CountByDay(ctx context.Context, since time.Time) ([]models.DayCount, error) {
	out := make([]models.DayCount, 0)
	err := r.conn(ctx).
		Select("substr(created_at, 1, 10) AS day, COUNT(*) AS count").
		Where("created_at >= ?", since).
		Group("day").
		Order("day").
		Scan(&out).Error
	return out, err
}

type reviewRepository struct {
	baseRepo[models.Review]
}

func (r *reviewRepository) Create(ctx context.Context, review *models.Review) error {
	if review.ID.IsZero() {
		review.ID = models.NewObjectID()
	}
	return r.insert(ctx, review)
}

func (r *reviewRepository) List(ctx context.Context, onlyVisible bool, limit int) ([]*models.Review, error) {
	return r.find(ctx, func(tx *gorm.DB) *gorm.DB {
		if onlyVisible {
			tx = tx.Where("visible = ?", true)
		}
		if limit > 0 {
			tx = tx.Limit(limit)
		}
		return tx.Order(newestFirst)
	})
}

func (r *reviewRepository) SetVisible(ctx context.Context, id models.ObjectID, visible bool) (*models.Review, error) {
	return r.updates(ctx, map[string]any{"visible": visible}, "id = ?", id)
}

func (r *reviewRepository) Delete(ctx context.Context, id models.ObjectID) error {
	return r.deleteOne(ctx, "id = ?", id)
}

func (r *reviewRepository) Count(ctx context.Context) (int64, error) {
	return r.count(ctx, "")
}

type orderRepository struct {
	baseRepo[models.Order]
}

func (r *orderRepository) Create(ctx context.Context, order *models.Order) error {
	return r.insert(ctx, order)
}

func (r *orderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *orderRepository) Update(ctx context.Context, order *models.Order) error {
	_, err := r.updates(ctx, map[string]any{
		"status":       order.Status,
		"payer_email":  order.PayerEmail,
		"gateway_ref":  order.GatewayRef,
		"pix_code":     order.PixCode,
		"checkout_url": order.CheckoutURL,
		"updated_at":   order.UpdatedAt,
	}, "id = ?", order.ID)
	return err
}

func (r *orderRepository) Paginate(ctx context.Context, page, pageSize int) (*models.Page[*models.Order], error) {
	return r.paginate(ctx, newestFirst, page, pageSize)
}

func (r *orderRepository) Count(ctx context.Context) (int64, error) {
	return r.count(ctx, "")
}

func (r *orderRepository) CountByPlan(ctx context.Context) ([]models.LabelCount, error) {
	out := make([]models.LabelCount, 0)
	err := r.conn(ctx).
		Select("plan AS label, COUNT(*) AS count").
		Group("plan").
		Order("count DESC, label").
		Scan(&out).Error
	return out, err
}

type chatSessionRepository struct {
	baseRepo[models.ChatSession]
}

func (r *chatSessionRepository) Create(ctx context.Context, session *models.ChatSession) error {
	if session.ID.IsZero() {
		session.ID = models.NewObjectID()
	}
	err := r.insert(ctx, session)
	if errors.Is(err, models.ErrAlreadyExists) && session.UserID != nil && session.IsOpen() {
		return models.ErrOpenTicketExists
	}
	return err
}

func (r *chatSessionRepository) GetByUUID(ctx context.Context, uuid string) (*models.ChatSession, error) {
	return r.first(ctx, "session_uuid = ?", uuid)
}

func (r *chatSessionRepository) GetOpenByUserID(ctx context.Context, userID models.ObjectID) (*models.ChatSession, error) {
	return r.first(ctx, "user_id = ? AND status = ?", userID, models.SessionStatusOpen)
}

func (r *chatSessionRepository) GetLatestByUserID(ctx context.Context, userID models.ObjectID) (*models.ChatSession, error) {
	sessions, err := r.find(ctx, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("user_id = ?", userID).Order(newestFirst).Limit(1)
	})
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, models.ErrNotFound
	}
	return sessions[0], nil
}

func (r *chatSessionRepository) ListByUUIDs(ctx context.Context, uuids []string) ([]*models.ChatSession, error) {
	if len(uuids) == 0 {
		return []*models.ChatSession{}, nil
	}
	return r.find(ctx, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("session_uuid IN ?", uuids).Order(newestFirst)
	})
}

func (r *chatSessionRepository) List(ctx context.Context, filter models.TicketFilter) ([]*models.ChatSession, error) {
	return r.find(ctx, func(tx *gorm.DB) *gorm.DB {
		switch filter.Scope {
		case models.TicketScopePublic:
			tx = tx.Where("user_id IS NULL")
		case models.TicketScopeClient:
			tx = tx.Where("user_id IS NOT NULL")
		}
		if filter.Status != "" {
			tx = tx.Where("status = ?", filter.Status)
		}
		if filter.Limit > 0 {
			tx = tx.Limit(filter.Limit)
		}
		return tx.Order(newestFirst)
	})
}

func (r *chatSessionRepository) Close(ctx context.Context, id models.ObjectID, at time.Time) (*models.ChatSession, error) {
	return r.updates(ctx, map[string]any{
		"status":    models.SessionStatusClosed,
		"closed_at": at,
	}, "id = ?", id)
}

func (r *chatSessionRepository) Delete(ctx context.Context, id models.ObjectID) error {
	return r.deleteOne(ctx, "id = ?", id)
}

func (r *chatSessionRepository) CountOpen(ctx context.Context) (int64, error) {
	return r.count(ctx, "status = ?", models.SessionStatusOpen)
}

func (r *chatSessionRepository) NextNumber(ctx context.Context) (int64, error) {
	return nextSequence(ctx, r.db, ticketCounter)
}

type chatMessageRepository struct {
	baseRepo[models.ChatMessage]
}

func (r *chatMessageRepository) Create(ctx context.Context, message *models.ChatMessage) error {
	if message.ID.IsZero() {
		message.ID = models.NewObjectID()
	}
	return r.insert(ctx, message)
}

func (r *chatMessageRepository) ListBySession(ctx context.Context, sessionID models.ObjectID) ([]*models.ChatMessage, error) {
	return r.find(ctx, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("session_id = ?", sessionID).Order("created_at ASC, id ASC")
	})
}

func (r *chatMessageRepository) CountBySender(ctx context.Context, sessionID models.ObjectID, sender models.Sender) (int64, error) {
	return r.count(ctx, "session_id = ? AND sender = ?", sessionID, sender)
}

func (r *chatMessageRepository) DeleteBySession(ctx context.Context, sessionID models.ObjectID) (int64, error) {
	return r.deleteMany(ctx, "session_id = ?", sessionID)
}
