package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/config"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/models"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/repo/events"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/repo/filestore"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/repository"
	"github.com/kapimkk/Projeto-Agencia-Marketing/pkg/crypto"
	"github.com/kapimkk/Projeto-Agencia-Marketing/pkg/logger/log"
)

const LeadPageSize = 20

type LeadUsecase interface {
	Submit(ctx context.Context, req models.LeadRequest, attachment *models.Upload) (*models.Lead, error)
	Paginate(ctx context.Context, page int) (*models.Page[*models.Lead], error)
	ListAll(ctx context.Context) ([]*models.Lead, error)
	Delete(ctx context.Context, actor models.Actor, id models.ObjectID) error
}

type leadUsecase struct {
	leadRepo   repository.LeadRepository
	crypto     crypto.Client
	files      filestore.Store
	publisher  events.Publisher
	outbox     OutboxUsecase
	audit      AuditUsecase
	adminEmail string
}

func NewLeadUsecase(
	leadRepo repository.LeadRepository,
	cryptoClient crypto.Client,
	files filestore.Store,
	publisher events.Publisher,
	outbox OutboxUsecase,
	audit AuditUsecase,
	cfg *config.Config,
) LeadUsecase {
	return &leadUsecase{
		leadRepo:   leadRepo,
		crypto:     cryptoClient,
		files:      files,
		publisher:  publisher,
		outbox:     outbox,
		audit:      audit,
		adminEmail: cfg.Mail.AdminAddress,
	}
}

func (uc *leadUsecase) encrypt(values ...*string) error {
	for _, v := range values {
		enc, err := uc.crypto.Encrypt(*v)
		if err != nil {
			return fmt.Errorf("encrypt lead: %w", err)
		}
		*v = enc
	}
	return nil
}

func (uc *leadUsecase) reveal(lead *models.Lead) {
	lead.Name = crypto.Reveal(uc.crypto, lead.Name)
	lead.Email = crypto.Reveal(uc.crypto, lead.Email)
	lead.Phone = crypto.Reveal(uc.crypto, lead.Phone)
	lead.Project = crypto.Reveal(uc.crypto, lead.Project)
}

func (uc *leadUsecase) Submit(ctx context.Context, req models.LeadRequest, attachment *models.Upload) (*models.Lead, error) {
	lead := &models.Lead{
		Name:      strings.TrimSpace(req.Name),
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:     strings.TrimSpace(req.Phone),
		Project:   strings.TrimSpace(req.Project),
		CreatedAt: time.Now().UTC(),
	}
	if lead.Name == "" || lead.Email == "" || lead.Phone == "" {
		return nil, models.InvalidArgument("nome, email e telefone são obrigatórios")
	}
	if attachment != nil {
		name, err := uc.files.Save(ctx, *attachment)
		if err != nil {
			return nil, err
		}
		lead.Attachment = name
	}

	plain := *lead
	if err := uc.encrypt(&lead.Name, &lead.Email, &lead.Phone, &lead.Project); err != nil {
		return nil, err
	}
	if err := uc.leadRepo.Create(ctx, lead); err != nil {
		return nil, fmt.Errorf("create lead: %w", err)
	}
	plain.ID = lead.ID

	data := map[string]any{
		"name":       plain.Name,
		"email":      plain.Email,
		"phone":      plain.Phone,
		"project":    plain.Project,
		"attachment": plain.Attachment,
		"created_at": plain.CreatedAt.Format(time.RFC3339),
	}
	if err := uc.outbox.Enqueue(ctx, []string{uc.adminEmail}, "Novo lead: "+plain.Name, TemplateNewLead, data); err != nil {
		log.Warnw(ctx, "enqueue lead notification", "lead_id", plain.ID, "error", err)
	}
	if err := uc.publisher.Publish(ctx, models.Event{Type: models.EventLeadCreated, Key: plain.ID.String(), At: plain.CreatedAt}); err != nil {
		log.Warnw(ctx, "publish lead event", "lead_id", plain.ID, "error", err)
	}
	return &plain, nil
}

func (uc *leadUsecase) Paginate(ctx context.Context, page int) (*models.Page[*models.Lead], error) {
	result, err := uc.leadRepo.Paginate(ctx, page, LeadPageSize)
	if err != nil {
		return nil, fmt.Errorf("paginate leads: %w", err)
	}
	for _, lead := range result.Items {
		uc.reveal(lead)
	}
	return result, nil
}

func (uc *leadUsecase) ListAll(ctx context.Context) ([]*models.Lead, error) {
	leads, err := uc.leadRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	for _, lead := range leads {
		uc.reveal(lead)
	}
	return leads, nil
}

func (uc *leadUsecase) Delete(ctx context.Context, actor models.Actor, id models.ObjectID) error {
	if err := uc.leadRepo.Delete(ctx, id); err != nil {
		return err
	}
	uc.audit.Record(ctx, actor, models.AuditDeleteLead, id.String())
	return nil
}
