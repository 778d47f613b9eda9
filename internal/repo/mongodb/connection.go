package mongodb

import (
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/repository"
	"go.mongodb.org/mongo-driver/mongo"
)

type DB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// NewStores wires every Mongo backed repository.
func NewStores(db *DB) *repository.Stores {
	return &repository.Stores{
		Users:       NewUserRepository(db),
		ClientPlans: NewClientPlanRepository(db),
		ClientStats: NewClientStatRepository(db),
		Leads:       NewLeadRepository(db),
		Reviews:     NewReviewRepository(db),
		Orders:      NewOrderRepository(db),
		Sessions:    NewChatSessionRepository(db),
		Messages:    NewChatMessageRepository(db),
		Plans:       NewPublicPlanRepository(db),
		Portfolio:   NewPortfolioRepository(db),
		SiteConfig:  NewSiteConfigRepository(db),
		Audit:       NewAuditLogRepository(db),
		Visits:      NewVisitRepository(db),
		Outbox:      NewOutboxRepository(db),
	}
}
