package usecase

import (
	"context"
	_ "embed"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/models"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/repo/filestore"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/repository"
	"github.com/kapimkk/Projeto-Agencia-Marketing/pkg/logger/log"
)

//go:embed seed/cms.yaml
var seedCMS []byte

type cmsSeed struct {
	Plans     []*models.PublicPlan    `yaml:"plans"`
	Portfolio []*models.PortfolioItem `yaml:"portfolio"`
	Config    map[string]string       `yaml:"config"`
}

const homeReviews = 6

var configKey = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)

type CMSUsecase interface {
	// Seed loads the embedded defaults into an empty store.
	Seed(ctx context.Context) error
	SiteContent(ctx context.Context) (*models.SiteContent, error)
	ListPlans(ctx context.Context) ([]*models.PublicPlan, error)
	UpsertPlan(ctx context.Context, actor models.Actor, req models.PublicPlanRequest) (*models.PublicPlan, error)
	DeletePlan(ctx context.Context, actor models.Actor, id models.ObjectID) error
	ListPortfolio(ctx context.Context) ([]*models.PortfolioItem, error)
	CreatePortfolioItem(ctx context.Context, actor models.Actor, req models.PortfolioRequest, image models.Upload) (*models.PortfolioItem, error)
	DeletePortfolioItem(ctx context.Context, actor models.Actor, id models.ObjectID) error
	Config(ctx context.Context) (map[string]string, error)
	SetConfig(ctx context.Context, actor models.Actor, values map[string]string) error
	RecordVisit(ctx context.Context, page string)
}

type cmsUsecase struct {
	planRepo      repository.PublicPlanRepository
	portfolioRepo repository.PortfolioRepository
	configRepo    repository.SiteConfigRepository
	visitRepo     repository.VisitRepository
	reviews       ReviewUsecase
	files         filestore.Store
	audit         AuditUsecase
}

func NewCMSUsecase(stores *repository.Stores, reviews ReviewUsecase, files filestore.Store, audit AuditUsecase) CMSUsecase {
	return &cmsUsecase{
		planRepo:      stores.Plans,
		portfolioRepo: stores.Portfolio,
		configRepo:    stores.SiteConfig,
		visitRepo:     stores.Visits,
		reviews:       reviews,
		files:         files,
		audit:         audit,
	}
}

func (uc *cmsUsecase) Seed(ctx context.Context) error {
	count, err := uc.planRepo.Count(ctx)
	if err != nil {
		return fmt.Errorf("count plans: %w", err)
	}
	if count > 0 {
		return nil
	}

	var seed cmsSeed
	if err := yaml.Unmarshal(seedCMS, &seed); err != nil {
		return fmt.Errorf("parse cms seed: %w", err)
	}
	now := time.Now().UTC()
	for _, plan := range seed.Plans {
		plan.UpdatedAt = now
		if err := uc.planRepo.Upsert(ctx, plan); err != nil {
			return fmt.Errorf("seed plan %s: %w", plan.Name, err)
		}
	}
	for _, item := range seed.Portfolio {
		item.CreatedAt = now
		if err := uc.portfolioRepo.Create(ctx, item); err != nil {
			return fmt.Errorf("seed portfolio %s: %w", item.Title, err)
		}
	}
	existing, err := uc.configRepo.All(ctx)
	if err != nil {
		return fmt.Errorf("load site config: %w", err)
	}
	for key, value := range seed.Config {
		if _, ok := existing[key]; ok {
			continue
		}
		if err := uc.configRepo.Set(ctx, key, value); err != nil {
			return fmt.Errorf("seed config %s: %w", key, err)
		}
	}
	log.Infow(ctx, "cms seeded", "plans", len(seed.Plans), "portfolio", len(seed.Portfolio), "config", len(seed.Config))
	return nil
}

func (uc *cmsUsecase) SiteContent(ctx context.Context) (*models.SiteContent, error) {
	content := &models.SiteContent{}
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() (err error) {
		content.Plans, err = uc.planRepo.List(gctx)
		return err
	})
	group.Go(func() (err error) {
		content.Portfolio, err = uc.portfolioRepo.List(gctx)
		return err
	})
	group.Go(func() (err error) {
		content.Config, err = uc.configRepo.All(gctx)
		return err
	})
	group.Go(func() (err error) {
		content.Reviews, err = uc.reviews.ListVisible(gctx, homeReviews)
		return err
	})
	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("load site content: %w", err)
	}
	return content, nil
}

func (uc *cmsUsecase) ListPlans(ctx context.Context) ([]*models.PublicPlan, error) {
	return uc.planRepo.List(ctx)
}

func (uc *cmsUsecase) UpsertPlan(ctx context.Context, actor models.Actor, req models.PublicPlanRequest) (*models.PublicPlan, error) {
	features := make([]string, 0, len(req.Features))
	for _, f := range req.Features {
		if f = strings.TrimSpace(f); f != "" {
			features = append(features, f)
		}
	}
	plan := &models.PublicPlan{
		Name:      strings.TrimSpace(req.Name),
		Price:     req.Price,
		OldPrice:  req.OldPrice,
		Features:  features,
		Highlight: req.Highlight,
		Position:  req.Position,
		UpdatedAt: time.Now().UTC(),
	}
	if plan.Name == "" {
		return nil, models.InvalidArgument("nome do plano é obrigatório")
	}
	if err := uc.planRepo.Upsert(ctx, plan); err != nil {
		return nil, fmt.Errorf("upsert plan: %w", err)
	}
	uc.audit.Record(ctx, actor, models.AuditUpdatePlan, plan.Name)
	return plan, nil
}

func (uc *cmsUsecase) DeletePlan(ctx context.Context, actor models.Actor, id models.ObjectID) error {
	if err := uc.planRepo.Delete(ctx, id); err != nil {
		return err
	}
	uc.audit.Record(ctx, actor, models.AuditDeletePlan, id.String())
	return nil
}

func (uc *cmsUsecase) ListPortfolio(ctx context.Context) ([]*models.PortfolioItem, error) {
	return uc.portfolioRepo.List(ctx)
}

func (uc *cmsUsecase) CreatePortfolioItem(ctx context.Context, actor models.Actor, req models.PortfolioRequest, image models.Upload) (*models.PortfolioItem, error) {
	filename, err := uc.files.Save(ctx, image)
	if err != nil {
		return nil, err
	}
	item := &models.PortfolioItem{
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Image:       filename,
		Link:        strings.TrimSpace(req.Link),
		Position:    req.Position,
		CreatedAt:   time.Now().UTC(),
	}
	if err := uc.portfolioRepo.Create(ctx, item); err != nil {
		_ = uc.files.Remove(ctx, filename)
		return nil, fmt.Errorf("create portfolio item: %w", err)
	}
	uc.audit.Record(ctx, actor, models.AuditPortfolio, "create "+item.Title)
	return item, nil
}

func (uc *cmsUsecase) DeletePortfolioItem(ctx context.Context, actor models.Actor, id models.ObjectID) error {
	if err := uc.portfolioRepo.Delete(ctx, id); err != nil {
		return err
	}
	uc.audit.Record(ctx, actor, models.AuditPortfolio, "delete "+id.String())
	return nil
}

func (uc *cmsUsecase) Config(ctx context.Context) (map[string]string, error) {
	return uc.configRepo.All(ctx)
}

func (uc *cmsUsecase) SetConfig(ctx context.Context, actor models.Actor, values map[string]string) error {
	for key := range values {
		if !configKey.MatchString(key) {
			return models.InvalidArgument("chave inválida: %s", key)
		}
	}
	for key, value := range values {
		if err := uc.configRepo.Set(ctx, key, strings.TrimSpace(value)); err != nil {
			return fmt.Errorf("set config %s: %w", key, err)
		}
		uc.audit.Record(ctx, actor, models.AuditUpdateConfig, key)
	}
	return nil
}

// RecordVisit counts a page view; failures only get logged.
func (uc *cmsUsecase) RecordVisit(ctx context.Context, page string) {
	if err := uc.visitRepo.Create(ctx, &models.Visit{Page: page, CreatedAt: time.Now().UTC()}); err != nil {
		log.Warnw(ctx, "record visit", "page", page, "error", err)
	}
}
