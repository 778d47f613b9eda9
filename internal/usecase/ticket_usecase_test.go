package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/models"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/repo/events"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/repository"
)

type ticketEnv struct {
	stores      *repository.Stores
	tickets     TicketUsecase
	files       *fakeFiles
	publisher   *fakePublisher
	broadcaster *fakeBroadcaster
}

func newTicketEnv(t *testing.T) *ticketEnv {
	t.Helper()
	stores := newTestStores(t)
	cfg := newTestConfig()
	audit := NewAuditUsecase(stores.Audit)
	outbox, err := NewOutboxUsecase(stores.Outbox, &fakeSender{}, audit, cfg.Outbox)
	require.NoError(t, err)

	env := &ticketEnv{
		stores:      stores,
		files:       &fakeFiles{},
		publisher:   &fakePublisher{},
		broadcaster: &fakeBroadcaster{},
	}
	env.tickets, err = NewTicketUsecase(stores, newTestCrypto(t), env.files, env.publisher, env.broadcaster, outbox, audit, cfg)
	require.NoError(t, err)
	return env
}

func contents(messages []*models.ChatMessage) []string {
	out := make([]string, 0, len(messages))
	for _, m := range messages {
		out = append(out, m.Content)
	}
	return out
}

func TestTicketLifecycle(t *testing.T) {
	ctx := context.Background()
	env := newTicketEnv(t)

	session, err := env.tickets.OpenTicket(ctx, nil, models.OpenTicketRequest{Category: "Suporte", Name: "Ana", Phone: "11 99999-0000"})
	require.NoError(t, err)
	assert.Equal(t, "#1", session.Ticket())
	assert.Equal(t, models.SessionStatusOpen, session.Status)
	assert.True(t, session.IsAnonymous())

	msg, err := env.tickets.PostMessage(ctx, nil, models.PostMessageRequest{UUID: session.UUID, Text: "  Olá  "})
	require.NoError(t, err)
	assert.Equal(t, "Olá", msg.Content)
	assert.Equal(t, models.SenderUser, msg.Sender)
	assert.Equal(t, models.MessageKindText, msg.Kind)

	stored, err := env.stores.Messages.ListBySession(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.NotEqual(t, "Olá", stored[1].Content, "text is encrypted at rest")

	closed, err := env.tickets.CloseTicket(ctx, nil, models.Actor{IP: "10.0.0.1"}, session.UUID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)

	_, err = env.tickets.PostMessage(ctx, nil, models.PostMessageRequest{UUID: session.UUID, Text: "ainda aí?"})
	assert.ErrorIs(t, err, models.ErrTicketClosed)

	again, err := env.tickets.CloseTicket(ctx, nil, models.Actor{}, session.UUID)
	require.NoError(t, err)
	require.NotNil(t, again.ClosedAt)
	assert.True(t, closed.ClosedAt.Equal(*again.ClosedAt))

	thread, err := env.tickets.GetThread(ctx, nil, session.UUID)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Olá, Ana! Recebemos seu chamado #1. Em breve um atendente vai responder.",
		"Olá",
		models.ClosingMessage,
		models.ClosingMessage,
	}, contents(thread.Messages))

	assert.Equal(t, []models.EventType{
		models.EventTicketOpened,
		models.EventTicketMessage,
		models.EventTicketClosed,
	}, env.publisher.types())
	assert.Equal(t, []models.SessionStatus{
		models.SessionStatusOpen,
		models.SessionStatusClosed,
		models.SessionStatusClosed,
	}, env.broadcaster.statuses)

	pending, err := env.stores.Outbox.ListByStatus(ctx, models.OutboxStatusPending, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, TemplateChatMessage, pending[0].Template)
	assert.Equal(t, []string{adminAddress}, pending[0].To)
}

func TestTicketNumbersIncrease(t *testing.T) {
	ctx := context.Background()
	env := newTicketEnv(t)

	for want := 1; want <= 3; want++ {
		session, err := env.tickets.OpenTicket(ctx, nil, models.OpenTicketRequest{})
		require.NoError(t, err)
		assert.Equal(t, int64(want), session.Number)
		assert.Equal(t, models.DefaultCategory, session.Category)
	}
}

func TestPostMessagePayloads(t *testing.T) {
	ctx := context.Background()
	env := newTicketEnv(t)
	session, err := env.tickets.OpenTicket(ctx, nil, models.OpenTicketRequest{})
	require.NoError(t, err)

	t.Run("empty", func(t *testing.T) {
		_, err := env.tickets.PostMessage(ctx, nil, models.PostMessageRequest{UUID: session.UUID, Text: "   "})
		assert.ErrorIs(t, err, models.ErrEmptyMessage)
	})

	t.Run("more than one payload", func(t *testing.T) {
		_, err := env.tickets.PostMessage(ctx, nil, models.PostMessageRequest{
			UUID: session.UUID,
			Text: "segue anexo",
			File: textUpload("briefing.pdf", "%PDF"),
		})
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})

	t.Run("too long", func(t *testing.T) {
		_, err := env.tickets.PostMessage(ctx, nil, models.PostMessageRequest{
			UUID: session.UUID,
			Text: strings.Repeat("a", models.MaxMessageRunes+1),
		})
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})

	t.Run("file", func(t *testing.T) {
		msg, err := env.tickets.PostMessage(ctx, nil, models.PostMessageRequest{
			UUID: session.UUID,
			File: textUpload("briefing.pdf", "%PDF"),
		})
		require.NoError(t, err)
		assert.Equal(t, models.MessageKindFile, msg.Kind)
		assert.Equal(t, "up_briefing.pdf", msg.Content)
	})

	t.Run("audio", func(t *testing.T) {
		msg, err := env.tickets.PostMessage(ctx, nil, models.PostMessageRequest{
			UUID:  session.UUID,
			Audio: textUpload("blob", "webm"),
		})
		require.NoError(t, err)
		assert.Equal(t, models.MessageKindAudio, msg.Kind)
		assert.Equal(t, "audio.webm", msg.Content)
	})

	t.Run("unknown ticket", func(t *testing.T) {
		_, err := env.tickets.PostMessage(ctx, nil, models.PostMessageRequest{UUID: "missing", Text: "oi"})
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestClientTicketAccess(t *testing.T) {
	ctx := context.Background()
	env := newTicketEnv(t)

	client := &models.Principal{UserID: models.NewObjectID(), Username: "loja", Role: models.RoleClient}
	other := &models.Principal{UserID: models.NewObjectID(), Username: "outra", Role: models.RoleClient}
	admin := &models.Principal{UserID: models.NewObjectID(), Username: "admin", Role: models.RoleAdmin}

	first, err := env.tickets.OpenTicket(ctx, client, models.OpenTicketRequest{Category: "Financeiro"})
	require.NoError(t, err)
	second, err := env.tickets.OpenTicket(ctx, client, models.OpenTicketRequest{})
	require.NoError(t, err)
	assert.Equal(t, first.UUID, second.UUID, "a client has at most one open ticket")
	assert.Equal(t, "loja", first.ClientName)

	_, err = env.tickets.GetThread(ctx, other, first.UUID)
	assert.ErrorIs(t, err, models.ErrPermissionDenied)

	_, err = env.tickets.GetThread(ctx, nil, first.UUID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	reply, err := env.tickets.PostMessage(ctx, admin, models.PostMessageRequest{UUID: first.UUID, Text: "Bom dia!"})
	require.NoError(t, err)
	assert.Equal(t, models.SenderAdmin, reply.Sender)

	open, err := env.tickets.ClientTicket(ctx, client.UserID)
	require.NoError(t, err)
	assert.Equal(t, first.UUID, open.UUID)

	_, err = env.tickets.CloseTicket(ctx, admin, admin.Actor("10.0.0.2"), first.UUID)
	require.NoError(t, err)

	latest, err := env.tickets.ClientTicket(ctx, client.UserID)
	require.NoError(t, err)
	assert.Equal(t, first.UUID, latest.UUID, "the closed ticket stays visible to its client")
	assert.Equal(t, models.SessionStatusClosed, latest.Status)

	_, err = env.tickets.PostMessage(ctx, client, models.PostMessageRequest{UUID: first.UUID, Text: "e agora?"})
	assert.ErrorIs(t, err, models.ErrTicketClosed)
	_, err = env.tickets.PostMessage(ctx, admin, models.PostMessageRequest{UUID: first.UUID, Text: "Mais alguma coisa?"})
	assert.ErrorIs(t, err, models.ErrTicketClosed, "closed is terminal for admins too")

	third, err := env.tickets.OpenTicket(ctx, client, models.OpenTicketRequest{})
	require.NoError(t, err)
	assert.NotEqual(t, first.UUID, third.UUID)

	current, err := env.tickets.ClientTicket(ctx, client.UserID)
	require.NoError(t, err)
	assert.Equal(t, third.UUID, current.UUID, "an open ticket wins over closed ones")

	_, err = env.tickets.ClientTicket(ctx, other.UserID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	logs, err := env.stores.Audit.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.AuditCloseTicket, logs[0].Action)
	assert.Equal(t, admin.UserID.String(), logs[0].UserID)
}

func TestMyTicketsOnlyAnonymous(t *testing.T) {
	ctx := context.Background()
	env := newTicketEnv(t)

	anon, err := env.tickets.OpenTicket(ctx, nil, models.OpenTicketRequest{Category: "Orçamento"})
	require.NoError(t, err)
	client := &models.Principal{UserID: models.NewObjectID(), Role: models.RoleClient}
	owned, err := env.tickets.OpenTicket(ctx, client, models.OpenTicketRequest{})
	require.NoError(t, err)

	summaries, err := env.tickets.MyTickets(ctx, []string{anon.UUID, owned.UUID, "missing"})
	require.NoError(t, err)
	assert.Equal(t, []models.TicketSummary{{
		UUID:     anon.UUID,
		Ticket:   anon.Ticket(),
		Status:   models.SessionStatusOpen,
		Category: "Orçamento",
	}}, summaries)
}

func TestListTicketsValidatesFilter(t *testing.T) {
	env := newTicketEnv(t)

	_, err := env.tickets.ListTickets(context.Background(), models.TicketFilter{Scope: "vip"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = env.tickets.ListTickets(context.Background(), models.TicketFilter{Status: "Pausado"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestDeleteTicket(t *testing.T) {
	ctx := context.Background()
	env := newTicketEnv(t)

	session, err := env.tickets.OpenTicket(ctx, nil, models.OpenTicketRequest{})
	require.NoError(t, err)
	_, err = env.tickets.PostMessage(ctx, nil, models.PostMessageRequest{UUID: session.UUID, File: textUpload("logo.png", "png")})
	require.NoError(t, err)

	require.NoError(t, env.tickets.DeleteTicket(ctx, models.Actor{UserID: "admin"}, session.UUID))

	_, err = env.stores.Sessions.GetByUUID(ctx, session.UUID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	remaining, err := env.stores.Messages.ListBySession(ctx, session.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)
	assert.Equal(t, []string{"up_logo.png"}, env.files.removed)
	assert.Contains(t, env.publisher.types(), models.EventTicketDeleted)

	assert.ErrorIs(t, env.tickets.DeleteTicket(ctx, models.Actor{}, session.UUID), models.ErrNotFound)
}

func TestOpenTicketWithNopPublisher(t *testing.T) {
	stores := newTestStores(t)
	cfg := newTestConfig()
	audit := NewAuditUsecase(stores.Audit)
	outbox, err := NewOutboxUsecase(stores.Outbox, &fakeSender{}, audit, cfg.Outbox)
	require.NoError(t, err)
	tickets, err := NewTicketUsecase(stores, newTestCrypto(t), &fakeFiles{}, events.NewNop(), nil, outbox, audit, cfg)
	require.NoError(t, err)

	session, err := tickets.OpenTicket(context.Background(), nil, models.OpenTicketRequest{})
	require.NoError(t, err)
	assert.NotEmpty(t, session.UUID)
}
