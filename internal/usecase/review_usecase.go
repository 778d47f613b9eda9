package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/models"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/repository"
)

type ReviewUsecase interface {
	Submit(ctx context.Context, req models.ReviewRequest) (*models.Review, error)
	ListVisible(ctx context.Context, limit int) ([]*models.Review, error)
	ListAll(ctx context.Context) ([]*models.Review, error)
	SetVisible(ctx context.Context, actor models.Actor, id models.ObjectID, visible bool) (*models.Review, error)
	Delete(ctx context.Context, actor models.Actor, id models.ObjectID) error
}

type reviewUsecase struct {
	reviewRepo repository.ReviewRepository
	audit      AuditUsecase
}

func NewReviewUsecase(reviewRepo repository.ReviewRepository, audit AuditUsecase) ReviewUsecase {
	return &reviewUsecase{reviewRepo: reviewRepo, audit: audit}
}

func (uc *reviewUsecase) Submit(ctx context.Context, req models.ReviewRequest) (*models.Review, error) {
	stars, err := cast.ToIntE(req.Stars)
	if err != nil || stars < 1 || stars > 5 {
		return nil, models.InvalidArgument("estrelas deve ser um número de 1 a 5")
	}
	review := &models.Review{
		Name:      strings.TrimSpace(req.Name),
		Company:   strings.TrimSpace(req.Company),
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Text:      strings.TrimSpace(req.Text),
		Stars:     stars,
		Visible:   false,
		CreatedAt: time.Now().UTC(),
	}
	if review.Name == "" || review.Text == "" {
		return nil, models.InvalidArgument("nome e avaliação são obrigatórios")
	}
	if len([]rune(review.Text)) > 500 {
		return nil, models.InvalidArgument("avaliação excede 500 caracteres")
	}
	if err := uc.reviewRepo.Create(ctx, review); err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}
	return review, nil
}

func (uc *reviewUsecase) ListVisible(ctx context.Context, limit int) ([]*models.Review, error) {
	reviews, err := uc.reviewRepo.List(ctx, true, limit)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	for _, r := range reviews {
		r.Email = ""
	}
	return reviews, nil
}

func (uc *reviewUsecase) ListAll(ctx context.Context) ([]*models.Review, error) {
	return uc.reviewRepo.List(ctx, false, 0)
}

func (uc *reviewUsecase) SetVisible(ctx context.Context, actor models.Actor, id models.ObjectID, visible bool) (*models.Review, error) {
	review, err := uc.reviewRepo.SetVisible(ctx, id, visible)
	if err != nil {
		return nil, err
	}
	uc.audit.Record(ctx, actor, models.AuditToggleReview, fmt.Sprintf("%s visible=%t", id, visible))
	return review, nil
}

func (uc *reviewUsecase) Delete(ctx context.Context, actor models.Actor, id models.ObjectID) error {
	if err := uc.reviewRepo.Delete(ctx, id); err != nil {
		return err
	}
	uc.audit.Record(ctx, actor, models.AuditDeleteReview, id.String())
	return nil
}
