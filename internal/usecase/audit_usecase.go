package usecase

import (
	"context"
	"time"

	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/models"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/repository"
	"github.com/kapimkk/Projeto-Agencia-Marketing/pkg/logger/log"
)

type AuditUsecase interface {
	// Record stores an audit entry. Failures are logged and never block the audited action.
	Record(ctx context.Context, actor models.Actor, action, details string)
	List(ctx context.Context, limit int) ([]*models.AuditLog, error)
}

type auditUsecase struct {
	auditRepo repository.AuditLogRepository
}

func NewAuditUsecase(auditRepo repository.AuditLogRepository) AuditUsecase {
	return &auditUsecase{auditRepo: auditRepo}
}

func (uc *auditUsecase) Record(ctx context.Context, actor models.Actor, action, details string) {
	entry := &models.AuditLog{
		UserID:    actor.UserID,
		Action:    action,
		Details:   details,
		IPAddress: actor.IP,
		CreatedAt: time.Now().UTC(),
	}
	if err := uc.auditRepo.Create(ctx, entry); err != nil {
		log.Errorw(ctx, "failed to record audit entry", "action", action, "error", err)
	}
}

func (uc *auditUsecase) List(ctx context.Context, limit int) ([]*models.AuditLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return uc.auditRepo.List(ctx, limit)
}
