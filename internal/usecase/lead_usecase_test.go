package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/models"
)

func TestLeadSubmit(t *testing.T) {
	ctx := context.Background()
	stores := newTestStores(t)
	cfg := newTestConfig()
	audit := NewAuditUsecase(stores.Audit)
	outbox, err := NewOutboxUsecase(stores.Outbox, &fakeSender{}, audit, cfg.Outbox)
	require.NoError(t, err)
	files := &fakeFiles{}
	publisher := &fakePublisher{}
	leads := NewLeadUsecase(stores.Leads, newTestCrypto(t), files, publisher, outbox, audit, cfg)

	_, err = leads.Submit(ctx, models.LeadRequest{Name: "Carlos"}, nil)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	lead, err := leads.Submit(ctx, models.LeadRequest{
		Name:    " Carlos ",
		Email:   "Carlos@Example.com",
		Phone:   "11 97777-6666",
		Project: "Loja virtual",
	}, textUpload("briefing.pdf", "%PDF"))
	require.NoError(t, err)
	assert.Equal(t, "Carlos", lead.Name)
	assert.Equal(t, "carlos@example.com", lead.Email)
	assert.Equal(t, "up_briefing.pdf", lead.Attachment)

	raw, err := stores.Leads.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, raw, 1)
	assert.NotEqual(t, "Carlos", raw[0].Name, "personal data is encrypted at rest")

	page, err := leads.Paginate(ctx, 1)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Carlos", page.Items[0].Name)
	assert.Equal(t, "11 97777-6666", page.Items[0].Phone)
	assert.Equal(t, LeadPageSize, page.PageSize)

	pending, err := stores.Outbox.ListByStatus(ctx, models.OutboxStatusPending, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, TemplateNewLead, pending[0].Template)
	assert.Equal(t, []models.EventType{models.EventLeadCreated}, publisher.types())

	require.NoError(t, leads.Delete(ctx, models.Actor{UserID: "admin"}, lead.ID))
	all, err := leads.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
