package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/models"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/repository"
)

func newTestCMS(t *testing.T) (CMSUsecase, *repository.Stores, *fakeFiles) {
	t.Helper()
	stores := newTestStores(t)
	audit := NewAuditUsecase(stores.Audit)
	files := &fakeFiles{}
	return NewCMSUsecase(stores, NewReviewUsecase(stores.Reviews, audit), files, audit), stores, files
}

func planNames(plans []*models.PublicPlan) []string {
	out := make([]string, 0, len(plans))
	for _, p := range plans {
		out = append(out, p.Name)
	}
	return out
}

func TestCMSSeed(t *testing.T) {
	ctx := context.Background()
	cms, _, _ := newTestCMS(t)

	require.NoError(t, cms.Seed(ctx))
	require.NoError(t, cms.Seed(ctx))

	plans, err := cms.ListPlans(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Silver", "Gold", "Rubi"}, planNames(plans))
	assert.Equal(t, 1500.0, plans[0].Price)
	assert.Nil(t, plans[0].OldPrice)
	require.NotNil(t, plans[1].OldPrice)
	assert.True(t, plans[1].Highlight)
	assert.NotEmpty(t, plans[2].Features)

	config, err := cms.Config(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Marketing que gera resultado", config["hero_title"])
}

func TestCMSSeedKeepsEditedConfig(t *testing.T) {
	ctx := context.Background()
	cms, stores, _ := newTestCMS(t)
	require.NoError(t, stores.SiteConfig.Set(ctx, "hero_title", "Título próprio"))

	require.NoError(t, cms.Seed(ctx))

	config, err := cms.Config(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Título próprio", config["hero_title"])
	assert.NotEmpty(t, config["whatsapp"])
}

func TestCMSPlans(t *testing.T) {
	ctx := context.Background()
	cms, stores, _ := newTestCMS(t)
	require.NoError(t, cms.Seed(ctx))
	actor := models.Actor{UserID: "admin"}

	updated, err := cms.UpsertPlan(ctx, actor, models.PublicPlanRequest{
		Name:     "Silver",
		Price:    1700,
		Features: []string{" Gestão de 2 redes ", "", "Relatório"},
		Position: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Gestão de 2 redes", "Relatório"}, updated.Features)

	plans, err := cms.ListPlans(ctx)
	require.NoError(t, err)
	require.Len(t, plans, 3)
	assert.Equal(t, 1700.0, plans[0].Price)

	require.NoError(t, cms.DeletePlan(ctx, actor, plans[2].ID))
	assert.ErrorIs(t, cms.DeletePlan(ctx, actor, plans[2].ID), models.ErrNotFound)

	logs, err := stores.Audit.List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, logs, 2)
}

func TestCMSPortfolio(t *testing.T) {
	ctx := context.Background()
	cms, _, files := newTestCMS(t)
	actor := models.Actor{UserID: "admin"}

	item, err := cms.CreatePortfolioItem(ctx, actor, models.PortfolioRequest{Title: " Campanha ", Position: 2}, *textUpload("capa.png", "png"))
	require.NoError(t, err)
	assert.Equal(t, "Campanha", item.Title)
	assert.Equal(t, "up_capa.png", item.Image)
	assert.Equal(t, []string{"up_capa.png"}, files.saved)

	items, err := cms.ListPortfolio(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	require.NoError(t, cms.DeletePortfolioItem(ctx, actor, item.ID))
	items, err = cms.ListPortfolio(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCMSSetConfig(t *testing.T) {
	ctx := context.Background()
	cms, _, _ := newTestCMS(t)

	err := cms.SetConfig(ctx, models.Actor{}, map[string]string{"Hero Title": "x"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	require.NoError(t, cms.SetConfig(ctx, models.Actor{}, map[string]string{"whatsapp": " 5511999990000 "}))
	config, err := cms.Config(ctx)
	require.NoError(t, err)
	assert.Equal(t, "5511999990000", config["whatsapp"])
}

func TestCMSSiteContent(t *testing.T) {
	ctx := context.Background()
	cms, stores, _ := newTestCMS(t)
	require.NoError(t, cms.Seed(ctx))
	cms.RecordVisit(ctx, "home")
	cms.RecordVisit(ctx, "home")

	content, err := cms.SiteContent(ctx)
	require.NoError(t, err)
	assert.Len(t, content.Plans, 3)
	assert.Empty(t, content.Reviews)
	assert.NotEmpty(t, content.Config)

	visits, err := stores.Visits.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), visits)
}
