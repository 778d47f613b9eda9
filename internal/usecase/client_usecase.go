package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/models"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/repository"
)

type ClientUsecase interface {
	Create(ctx context.Context, actor models.Actor, req models.CreateClientRequest) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Delete(ctx context.Context, actor models.Actor, id models.ObjectID) error
	SetPlan(ctx context.Context, actor models.Actor, userID models.ObjectID, req models.ClientPlanRequest) (*models.ClientPlan, error)
	AddStat(ctx context.Context, userID models.ObjectID, req models.ClientStatRequest) (*models.ClientStat, error)
	ListStats(ctx context.Context, userID models.ObjectID) ([]*models.ClientStat, error)
	Dashboard(ctx context.Context, userID models.ObjectID) (*models.ClientDashboard, error)
}

type clientUsecase struct {
	userRepo    repository.UserRepository
	planRepo    repository.ClientPlanRepository
	statRepo    repository.ClientStatRepository
	sessionRepo repository.ChatSessionRepository
	audit       AuditUsecase
}

func NewClientUsecase(stores *repository.Stores, audit AuditUsecase) ClientUsecase {
	return &clientUsecase{
		userRepo:    stores.Users,
		planRepo:    stores.ClientPlans,
		statRepo:    stores.ClientStats,
		sessionRepo: stores.Sessions,
		audit:       audit,
	}
}

func (uc *clientUsecase) Create(ctx context.Context, actor models.Actor, req models.CreateClientRequest) (*models.User, error) {
	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	user := &models.User{
		Username:     strings.TrimSpace(req.Username),
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		Role:         models.RoleClient,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if user.Username == "" {
		return nil, models.InvalidArgument("usuário é obrigatório")
	}
	if err := uc.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, models.ErrAlreadyExists) {
			return nil, models.InvalidArgument("usuário %s já existe", user.Username)
		}
		return nil, fmt.Errorf("create client: %w", err)
	}
	uc.audit.Record(ctx, actor, models.AuditCreateClient, user.Username)
	return user, nil
}

func (uc *clientUsecase) List(ctx context.Context) ([]*models.User, error) {
	return uc.userRepo.ListByRole(ctx, models.RoleClient)
}

// getClient loads a user and rejects anything that is not a client account.
func (uc *clientUsecase) getClient(ctx context.Context, id models.ObjectID) (*models.User, error) {
	user, err := uc.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Role != models.RoleClient {
		return nil, models.ErrNotFound
	}
	return user, nil
}

func (uc *clientUsecase) Delete(ctx context.Context, actor models.Actor, id models.ObjectID) error {
	user, err := uc.getClient(ctx, id)
	if err != nil {
		return err
	}
	if err := uc.planRepo.DeleteByUserID(ctx, id); err != nil {
		return fmt.Errorf("delete client plan: %w", err)
	}
	if _, err := uc.statRepo.DeleteByUserID(ctx, id); err != nil {
		return fmt.Errorf("delete client stats: %w", err)
	}
	if err := uc.userRepo.Delete(ctx, id); err != nil {
		return err
	}
	uc.audit.Record(ctx, actor, models.AuditDeleteClient, user.Username)
	return nil
}

func (uc *clientUsecase) SetPlan(ctx context.Context, actor models.Actor, userID models.ObjectID, req models.ClientPlanRequest) (*models.ClientPlan, error) {
	user, err := uc.getClient(ctx, userID)
	if err != nil {
		return nil, err
	}
	status := strings.TrimSpace(req.Status)
	if status == "" {
		status = "Ativo"
	}
	plan := &models.ClientPlan{
		UserID:    user.ID,
		PlanName:  strings.TrimSpace(req.PlanName),
		Price:     req.Price,
		Status:    status,
		RenewsAt:  req.RenewsAt,
		UpdatedAt: time.Now().UTC(),
	}
	if err := uc.planRepo.Upsert(ctx, plan); err != nil {
		return nil, fmt.Errorf("set client plan: %w", err)
	}
	uc.audit.Record(ctx, actor, models.AuditUpdatePlan, fmt.Sprintf("%s -> %s", user.Username, plan.PlanName))
	return plan, nil
}

func (uc *clientUsecase) AddStat(ctx context.Context, userID models.ObjectID, req models.ClientStatRequest) (*models.ClientStat, error) {
	if _, err := uc.getClient(ctx, userID); err != nil {
		return nil, err
	}
	stat := &models.ClientStat{
		UserID:    userID,
		Label:     strings.TrimSpace(req.Label),
		Value:     strings.TrimSpace(req.Value),
		Period:    strings.TrimSpace(req.Period),
		CreatedAt: time.Now().UTC(),
	}
	if err := uc.statRepo.Create(ctx, stat); err != nil {
		return nil, fmt.Errorf("add client stat: %w", err)
	}
	return stat, nil
}

func (uc *clientUsecase) ListStats(ctx context.Context, userID models.ObjectID) ([]*models.ClientStat, error) {
	return uc.statRepo.ListByUserID(ctx, userID)
}

func (uc *clientUsecase) Dashboard(ctx context.Context, userID models.ObjectID) (*models.ClientDashboard, error) {
	dash := &models.ClientDashboard{}
	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() (err error) {
		dash.User, err = uc.getClient(gctx, userID)
		return err
	})
	group.Go(func() error {
		plan, err := uc.planRepo.GetByUserID(gctx, userID)
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		dash.Plan = plan
		return err
	})
	group.Go(func() (err error) {
		dash.Stats, err = uc.statRepo.ListByUserID(gctx, userID)
		return err
	})
	group.Go(func() error {
		ticket, err := uc.sessionRepo.GetOpenByUserID(gctx, userID)
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		dash.Ticket = ticket
		return err
	})

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return dash, nil
}
