package usecase

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/config"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/models"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/repo/mailer"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/repository"
	"github.com/kapimkk/Projeto-Agencia-Marketing/pkg/logger/log"
	"github.com/kapimkk/Projeto-Agencia-Marketing/pkg/tmplx"
)

//go:embed templates/*.tmpl
var emailTemplates embed.FS

const (
	TemplateNewLead       = "new_lead"
	TemplateChatMessage   = "chat_message"
	TemplateOrderApproved = "order_approved"
)

const (
	maxBackoff = 6 * time.Hour
	// defaultClaimLease outlives a delivery attempt; an expired lease means the worker died.
	defaultClaimLease = 5 * time.Minute
)

type OutboxUsecase interface {
	// Enqueue stores an email for asynchronous delivery. Empty recipients are skipped.
	Enqueue(ctx context.Context, to []string, subject, template string, data map[string]any) error
	// Claim leases pending emails whose next attempt is due. A leased email is
	// invisible to other workers until it is delivered, rescheduled or the lease ends.
	Claim(ctx context.Context, limit int) ([]*models.EmailOutbox, error)
	// Deliver renders and sends one email and records the outcome.
	Deliver(ctx context.Context, mail *models.EmailOutbox) error
	Retry(ctx context.Context, actor models.Actor, id models.ObjectID) (*models.EmailOutbox, error)
	List(ctx context.Context, status models.OutboxStatus, limit int) ([]*models.EmailOutbox, error)
}

type outboxUsecase struct {
	outboxRepo repository.OutboxRepository
	sender     mailer.Sender
	templates  *tmplx.Set
	audit      AuditUsecase
	cfg        config.OutboxConfig
	now        func() time.Time
	warnOnce   sync.Once
}

func NewOutboxUsecase(
	outboxRepo repository.OutboxRepository,
	sender mailer.Sender,
	audit AuditUsecase,
	cfg config.OutboxConfig,
) (OutboxUsecase, error) {
	templates, err := tmplx.ParseFS(emailTemplates, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}
	return &outboxUsecase{
		outboxRepo: outboxRepo,
		sender:     sender,
		templates:  templates,
		audit:      audit,
		cfg:        cfg,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

func (uc *outboxUsecase) Enqueue(ctx context.Context, to []string, subject, template string, data map[string]any) error {
	recipients := make([]string, 0, len(to))
	for _, addr := range to {
		if addr != "" {
			recipients = append(recipients, addr)
		}
	}
	if len(recipients) == 0 {
		log.Debugw(ctx, "email skipped, no recipients", "template", template)
		return nil
	}
	if _, err := uc.templates.Lookup(template); err != nil {
		return err
	}

	now := uc.now()
	mail := &models.EmailOutbox{
		To:            recipients,
		Subject:       subject,
		Template:      template,
		Data:          data,
		Status:        models.OutboxStatusPending,
		NextAttemptAt: now,
		CreatedAt:     now,
	}
	if err := uc.outboxRepo.Create(ctx, mail); err != nil {
		return fmt.Errorf("enqueue email: %w", err)
	}
	return nil
}

func (uc *outboxUsecase) Claim(ctx context.Context, limit int) ([]*models.EmailOutbox, error) {
	if !uc.sender.Enabled() {
		uc.warnOnce.Do(func() {
			log.Warnw(ctx, "smtp not configured, emails stay pending in the outbox")
		})
		return nil, nil
	}
	lease := uc.cfg.ClaimLease
	if lease <= 0 {
		lease = defaultClaimLease
	}
	now := uc.now()
	return uc.outboxRepo.ClaimDue(ctx, now, now.Add(lease), limit)
}

func (uc *outboxUsecase) Deliver(ctx context.Context, mail *models.EmailOutbox) error {
	body, err := uc.templates.Render(mail.Template, mail.Data)
	if err != nil {
		// a broken template will not fix itself on retry
		mail.Attempts++
		mail.Status = models.OutboxStatusFailed
		mail.LastError = err.Error()
		return errors.Join(err, uc.outboxRepo.Update(ctx, mail))
	}

	sendErr := uc.sender.Send(ctx, models.Mail{
		To:       mail.To,
		Subject:  mail.Subject,
		HTMLBody: body.String(),
	})
	now := uc.now()
	mail.Attempts++
	if sendErr == nil {
		mail.Status = models.OutboxStatusSent
		mail.LastError = ""
		mail.SentAt = &now
		return uc.outboxRepo.Update(ctx, mail)
	}

	mail.LastError = sendErr.Error()
	if mail.Attempts >= uc.cfg.MaxAttempts {
		mail.Status = models.OutboxStatusFailed
		log.Errorw(ctx, "email delivery failed permanently", "id", mail.ID, "attempts", mail.Attempts, "error", sendErr)
	} else {
		mail.NextAttemptAt = now.Add(uc.backoff(mail.Attempts))
		log.Warnw(ctx, "email delivery failed, will retry", "id", mail.ID, "attempts", mail.Attempts, "next_attempt_at", mail.NextAttemptAt, "error", sendErr)
	}
	return errors.Join(sendErr, uc.outboxRepo.Update(ctx, mail))
}

// backoff doubles the base delay per attempt.
func (uc *outboxUsecase) backoff(attempts int) time.Duration {
	d := time.Duration(float64(uc.cfg.BaseBackoff) * math.Pow(2, float64(attempts-1)))
	if d <= 0 || d > maxBackoff {
		return maxBackoff
	}
	return d
}

func (uc *outboxUsecase) Retry(ctx context.Context, actor models.Actor, id models.ObjectID) (*models.EmailOutbox, error) {
	mail, err := uc.outboxRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if mail.Status == models.OutboxStatusSent {
		return nil, models.InvalidArgument("email já enviado")
	}
	mail.Status = models.OutboxStatusPending
	mail.Attempts = 0
	mail.LastError = ""
	mail.NextAttemptAt = uc.now()
	if err := uc.outboxRepo.Update(ctx, mail); err != nil {
		return nil, fmt.Errorf("retry email: %w", err)
	}
	uc.audit.Record(ctx, actor, models.AuditRetryEmail, string(id))
	return mail, nil
}

func (uc *outboxUsecase) List(ctx context.Context, status models.OutboxStatus, limit int) ([]*models.EmailOutbox, error) {
	switch status {
	case models.OutboxStatusPending, models.OutboxStatusSent, models.OutboxStatusFailed:
	case "":
		status = models.OutboxStatusFailed
	default:
		return nil, models.InvalidArgument("status inválido: %s", status)
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return uc.outboxRepo.ListByStatus(ctx, status, limit)
}
