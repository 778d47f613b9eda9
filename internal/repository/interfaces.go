// Package repository declares the storage contracts shared by the Mongo and
// SQL backends.
package repository

import (
	"context"
	"time"

	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/models"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id models.ObjectID) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	ListByRole(ctx context.Context, role models.Role) ([]*models.User, error)
	CountByRole(ctx context.Context, role models.Role) (int64, error)
	Delete(ctx context.Context, id models.ObjectID) error
}

type ClientPlanRepository interface {
	Upsert(ctx context.Context, plan *models.ClientPlan) error
	GetByUserID(ctx context.Context, userID models.ObjectID) (*models.ClientPlan, error)
	DeleteByUserID(ctx context.Context, userID models.ObjectID) error
}

type ClientStatRepository interface {
	Create(ctx context.Context, stat *models.ClientStat) error
	ListByUserID(ctx context.Context, userID models.ObjectID) ([]*models.ClientStat, error)
	DeleteByUserID(ctx context.Context, userID models.ObjectID) (int64, error)
}

type LeadRepository interface {
	Create(ctx context.Context, lead *models.Lead) error
	Paginate(ctx context.Context, page, pageSize int) (*models.Page[*models.Lead], error)
	ListAll(ctx context.Context) ([]*models.Lead, error)
	Delete(ctx context.Context, id models.ObjectID) error
	Count(ctx context.Context) (int64, error)
	CountByDay(ctx context.Context, since time.Time) ([]models.DayCount, error)
}

type ReviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	List(ctx context.Context, onlyVisible bool, limit int) ([]*models.Review, error)
	SetVisible(ctx context.Context, id models.ObjectID, visible bool) (*models.Review, error)
	Delete(ctx context.Context, id models.ObjectID) error
	Count(ctx context.Context) (int64, error)
}

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	Update(ctx context.Context, order *models.Order) error
	Paginate(ctx context.Context, page, pageSize int) (*models.Page[*models.Order], error)
	Count(ctx context.Context) (int64, error)
	CountByPlan(ctx context.Context) ([]models.LabelCount, error)
}

// ChatSessionRepository stores tickets. Create returns
// models.ErrOpenTicketExists when the owning user already has an open ticket.
type ChatSessionRepository interface {
	Create(ctx context.Context, session *models.ChatSession) error
	GetByUUID(ctx context.Context, uuid string) (*models.ChatSession, error)
	GetOpenByUserID(ctx context.Context, userID models.ObjectID) (*models.ChatSession, error)
	// GetLatestByUserID returns the user's most recently created ticket in any state.
	GetLatestByUserID(ctx context.Context, userID models.ObjectID) (*models.ChatSession, error)
	ListByUUIDs(ctx context.Context, uuids []string) ([]*models.ChatSession, error)
	List(ctx context.Context, filter models.TicketFilter) ([]*models.ChatSession, error)
	Close(ctx context.Context, id models.ObjectID, at time.Time) (*models.ChatSession, error)
	Delete(ctx context.Context, id models.ObjectID) error
	CountOpen(ctx context.Context) (int64, error)
	NextNumber(ctx context.Context) (int64, error)
}

type ChatMessageRepository interface {
	Create(ctx context.Context, message *models.ChatMessage) error
	ListBySession(ctx context.Context, sessionID models.ObjectID) ([]*models.ChatMessage, error)
	CountBySender(ctx context.Context, sessionID models.ObjectID, sender models.Sender) (int64, error)
	DeleteBySession(ctx context.Context, sessionID models.ObjectID) (int64, error)
}

type PublicPlanRepository interface {
	List(ctx context.Context) ([]*models.PublicPlan, error)
	GetByName(ctx context.Context, name string) (*models.PublicPlan, error)
	Upsert(ctx context.Context, plan *models.PublicPlan) error
	Delete(ctx context.Context, id models.ObjectID) error
	Count(ctx context.Context) (int64, error)
}

type PortfolioRepository interface {
	List(ctx context.Context) ([]*models.PortfolioItem, error)
	Create(ctx context.Context, item *models.PortfolioItem) error
	Delete(ctx context.Context, id models.ObjectID) error
}

type SiteConfigRepository interface {
	All(ctx context.Context) (map[string]string, error)
	Set(ctx context.Context, key, value string) error
}

type AuditLogRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	List(ctx context.Context, limit int) ([]*models.AuditLog, error)
}

type VisitRepository interface {
	Create(ctx context.Context, visit *models.Visit) error
	Count(ctx context.Context) (int64, error)
}

type OutboxRepository interface {
	Create(ctx context.Context, mail *models.EmailOutbox) error
	GetByID(ctx context.Context, id models.ObjectID) (*models.EmailOutbox, error)
	// ClaimDue leases up to limit pending rows due at now by moving their next
	// attempt to leaseUntil. A row is handed to one caller only, across processes.
	ClaimDue(ctx context.Context, now, leaseUntil time.Time, limit int) ([]*models.EmailOutbox, error)
	ListByStatus(ctx context.Context, status models.OutboxStatus, limit int) ([]*models.EmailOutbox, error)
	Update(ctx context.Context, mail *models.EmailOutbox) error
	CountByStatus(ctx context.Context, status models.OutboxStatus) (int64, error)
}

// Stores groups every repository of one backend.
type Stores struct {
	Users       UserRepository
	ClientPlans ClientPlanRepository
	ClientStats ClientStatRepository
	Leads       LeadRepository
	Reviews     ReviewRepository
	Orders      OrderRepository
	Sessions    ChatSessionRepository
	Messages    ChatMessageRepository
	Plans       PublicPlanRepository
	Portfolio   PortfolioRepository
	SiteConfig  SiteConfigRepository
	Audit       AuditLogRepository
	Visits      VisitRepository
	Outbox      OutboxRepository
}
