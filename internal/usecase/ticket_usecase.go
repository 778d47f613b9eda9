package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/config"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/models"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/repo/events"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/repo/filestore"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/repository"
	"github.com/kapimkk/Projeto-Agencia-Marketing/pkg/crypto"
	"github.com/kapimkk/Projeto-Agencia-Marketing/pkg/logger/log"
	"github.com/kapimkk/Projeto-Agencia-Marketing/pkg/util"
)

// TicketUsecase runs the chat ticket life cycle. A nil principal is an
// anonymous visitor who can only reach anonymous tickets by uuid.
type TicketUsecase interface {
	OpenTicket(ctx context.Context, principal *models.Principal, req models.OpenTicketRequest) (*models.ChatSession, error)
	PostMessage(ctx context.Context, principal *models.Principal, req models.PostMessageRequest) (*models.ChatMessage, error)
	GetThread(ctx context.Context, principal *models.Principal, uuid string) (*models.Thread, error)
	ListTickets(ctx context.Context, filter models.TicketFilter) ([]*models.ChatSession, error)
	MyTickets(ctx context.Context, uuids []string) ([]models.TicketSummary, error)
	ClientTicket(ctx context.Context, userID models.ObjectID) (*models.ChatSession, error)
	CloseTicket(ctx context.Context, principal *models.Principal, actor models.Actor, uuid string) (*models.ChatSession, error)
	DeleteTicket(ctx context.Context, actor models.Actor, uuid string) error
}

type ticketUsecase struct {
	sessionRepo repository.ChatSessionRepository
	messageRepo repository.ChatMessageRepository
	crypto      crypto.Client
	files       filestore.Store
	publisher   events.Publisher
	broadcaster TicketBroadcaster
	outbox      OutboxUsecase
	audit       AuditUsecase
	adminEmail  string
	baseURL     string
	opened      *prometheus.CounterVec
	closed      *prometheus.CounterVec
	now         func() time.Time
}

func NewTicketUsecase(
	stores *repository.Stores,
	cryptoClient crypto.Client,
	files filestore.Store,
	publisher events.Publisher,
	broadcaster TicketBroadcaster,
	outbox OutboxUsecase,
	audit AuditUsecase,
	cfg *config.Config,
) (TicketUsecase, error) {
	opened, err := util.GetCounterVec("tickets_opened_total", "Chat tickets opened", "scope")
	if err != nil {
		return nil, err
	}
	closed, err := util.GetCounterVec("tickets_closed_total", "Chat tickets closed", "scope")
	if err != nil {
		return nil, err
	}
	if broadcaster == nil {
		broadcaster = nopBroadcaster{}
	}
	return &ticketUsecase{
		sessionRepo: stores.Sessions,
		messageRepo: stores.Messages,
		crypto:      cryptoClient,
		files:       files,
		publisher:   publisher,
		broadcaster: broadcaster,
		outbox:      outbox,
		audit:       audit,
		adminEmail:  cfg.Mail.AdminAddress,
		baseURL:     strings.TrimRight(cfg.Server.BaseURL, "/"),
		opened:      opened,
		closed:      closed,
		now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

func scopeLabel(s *models.ChatSession) string {
	if s.IsAnonymous() {
		return string(models.TicketScopePublic)
	}
	return string(models.TicketScopeClient)
}

func (uc *ticketUsecase) OpenTicket(ctx context.Context, principal *models.Principal, req models.OpenTicketRequest) (*models.ChatSession, error) {
	category := strings.TrimSpace(req.Category)
	if category == "" {
		category = models.DefaultCategory
	}
	session := &models.ChatSession{
		UUID:     uuid.NewString(),
		Category: category,
		Status:   models.SessionStatusOpen,
	}

	if principal.IsClient() {
		existing, err := uc.sessionRepo.GetOpenByUserID(ctx, principal.UserID)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("get open ticket: %w", err)
		}
		userID := principal.UserID
		session.UserID = &userID
		session.ClientName = principal.Username
	} else {
		session.ClientName = strings.TrimSpace(req.Name)
		session.ClientPhone = strings.TrimSpace(req.Phone)
	}

	number, err := uc.sessionRepo.NextNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("next ticket number: %w", err)
	}
	session.Number = number
	session.CreatedAt = uc.now()

	if err := uc.sessionRepo.Create(ctx, session); err != nil {
		if errors.Is(err, models.ErrOpenTicketExists) {
			// lost the race against a concurrent open from the same client
			return uc.sessionRepo.GetOpenByUserID(ctx, principal.UserID)
		}
		return nil, fmt.Errorf("create ticket: %w", err)
	}

	if _, err := uc.appendSystem(ctx, session, welcomeMessage(session)); err != nil {
		return nil, err
	}

	uc.opened.WithLabelValues(scopeLabel(session)).Inc()
	uc.publish(ctx, models.EventTicketOpened, session.UUID, ticketPayload(session))
	uc.broadcaster.BroadcastStatus(ctx, session)
	log.Infow(ctx, "ticket opened", "uuid", session.UUID, "ticket", session.Ticket(), "scope", scopeLabel(session))
	return session, nil
}

func welcomeMessage(s *models.ChatSession) string {
	greeting := "Olá!"
	if s.ClientName != "" {
		greeting = fmt.Sprintf("Olá, %s!", s.ClientName)
	}
	return fmt.Sprintf("%s Recebemos seu chamado %s. Em breve um atendente vai responder.", greeting, s.Ticket())
}

// getAuthorized loads the ticket and hides tickets the caller may not reach.
func (uc *ticketUsecase) getAuthorized(ctx context.Context, principal *models.Principal, uuid string) (*models.ChatSession, error) {
	if uuid == "" {
		return nil, models.ErrNotFound
	}
	session, err := uc.sessionRepo.GetByUUID(ctx, uuid)
	if err != nil {
		return nil, err
	}
	switch {
	case principal.IsAdmin():
		return session, nil
	case principal.IsClient():
		if !session.OwnedBy(principal.UserID) {
			return nil, models.ErrPermissionDenied
		}
	case !session.IsAnonymous():
		return nil, models.ErrNotFound
	}
	return session, nil
}

func senderOf(principal *models.Principal) models.Sender {
	if principal.IsAdmin() {
		return models.SenderAdmin
	}
	return models.SenderUser
}

func (uc *ticketUsecase) PostMessage(ctx context.Context, principal *models.Principal, req models.PostMessageRequest) (*models.ChatMessage, error) {
	session, err := uc.getAuthorized(ctx, principal, req.UUID)
	if err != nil {
		return nil, err
	}
	if !session.IsOpen() {
		return nil, models.ErrTicketClosed
	}

	text := strings.TrimSpace(req.Text)
	payloads := 0
	for _, present := range []bool{text != "", req.Audio != nil, req.File != nil} {
		if present {
			payloads++
		}
	}
	switch {
	case payloads == 0:
		return nil, models.ErrEmptyMessage
	case payloads > 1:
		return nil, models.InvalidArgument("envie apenas um conteúdo por mensagem")
	}

	message := &models.ChatMessage{
		SessionID: session.ID,
		Sender:    senderOf(principal),
	}
	var stored string
	switch {
	case req.Audio != nil:
		message.Kind = models.MessageKindAudio
		if stored, err = uc.files.SaveAudio(ctx, *req.Audio); err != nil {
			return nil, err
		}
		message.Content = stored
	case req.File != nil:
		message.Kind = models.MessageKindFile
		if stored, err = uc.files.Save(ctx, *req.File); err != nil {
			return nil, err
		}
		message.Content = stored
	default:
		if utf8.RuneCountInString(text) > models.MaxMessageRunes {
			return nil, models.InvalidArgument("mensagem excede %d caracteres", models.MaxMessageRunes)
		}
		message.Kind = models.MessageKindText
		stored, err = uc.crypto.Encrypt(text)
		if err != nil {
			return nil, fmt.Errorf("encrypt message: %w", err)
		}
		message.Content = text
	}

	message.CreatedAt = uc.now()
	persisted := *message
	persisted.Content = stored
	if err := uc.messageRepo.Create(ctx, &persisted); err != nil {
		if message.Kind != models.MessageKindText {
			_ = uc.files.Remove(ctx, stored)
		}
		return nil, fmt.Errorf("create message: %w", err)
	}
	message.ID = persisted.ID

	uc.publish(ctx, models.EventTicketMessage, session.UUID, map[string]any{
		"message_id": message.ID,
		"ticket":     session.Ticket(),
		"kind":       message.Kind,
		"sender":     message.Sender,
	})
	uc.broadcaster.BroadcastMessage(ctx, session, message)

	if message.Sender == models.SenderUser {
		uc.notifyFirstMessage(ctx, session, message)
	}
	return message, nil
}

// notifyFirstMessage emails the admin when a visitor writes into a ticket for the first time.
func (uc *ticketUsecase) notifyFirstMessage(ctx context.Context, session *models.ChatSession, message *models.ChatMessage) {
	count, err := uc.messageRepo.CountBySender(ctx, session.ID, models.SenderUser)
	if err != nil {
		log.Warnw(ctx, "count visitor messages", "uuid", session.UUID, "error", err)
		return
	}
	if count != 1 {
		return
	}
	data := map[string]any{
		"ticket":   session.Ticket(),
		"category": session.Category,
		"name":     session.ClientName,
		"phone":    session.ClientPhone,
		"kind":     string(message.Kind),
		"content":  message.Content,
		"link":     uc.baseURL + "/admin",
	}
	subject := fmt.Sprintf("Novo chamado %s (%s)", session.Ticket(), session.Category)
	if err := uc.outbox.Enqueue(ctx, []string{uc.adminEmail}, subject, TemplateChatMessage, data); err != nil {
		log.Warnw(ctx, "enqueue chat notification", "uuid", session.UUID, "error", err)
	}
}

func (uc *ticketUsecase) appendSystem(ctx context.Context, session *models.ChatSession, text string) (*models.ChatMessage, error) {
	stored, err := uc.crypto.Encrypt(text)
	if err != nil {
		return nil, fmt.Errorf("encrypt message: %w", err)
	}
	message := &models.ChatMessage{
		SessionID: session.ID,
		Kind:      models.MessageKindText,
		Content:   stored,
		Sender:    models.SenderSystem,
		CreatedAt: uc.now(),
	}
	if err := uc.messageRepo.Create(ctx, message); err != nil {
		return nil, fmt.Errorf("create system message: %w", err)
	}
	message.Content = text
	uc.broadcaster.BroadcastMessage(ctx, session, message)
	return message, nil
}

func (uc *ticketUsecase) reveal(messages []*models.ChatMessage) {
	for _, m := range messages {
		if m.Kind == models.MessageKindText {
			m.Content = crypto.Reveal(uc.crypto, m.Content)
		}
	}
}

func (uc *ticketUsecase) GetThread(ctx context.Context, principal *models.Principal, uuid string) (*models.Thread, error) {
	session, err := uc.getAuthorized(ctx, principal, uuid)
	if err != nil {
		return nil, err
	}
	messages, err := uc.messageRepo.ListBySession(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	uc.reveal(messages)
	return &models.Thread{Session: session, Messages: messages}, nil
}

func (uc *ticketUsecase) ListTickets(ctx context.Context, filter models.TicketFilter) ([]*models.ChatSession, error) {
	switch filter.Scope {
	case models.TicketScopeAll, models.TicketScopePublic, models.TicketScopeClient:
	default:
		return nil, models.InvalidArgument("escopo inválido: %s", filter.Scope)
	}
	switch filter.Status {
	case "", models.SessionStatusOpen, models.SessionStatusClosed:
	default:
		return nil, models.InvalidArgument("status inválido: %s", filter.Status)
	}
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 200
	}
	return uc.sessionRepo.List(ctx, filter)
}

const maxRememberedTickets = 50

func (uc *ticketUsecase) MyTickets(ctx context.Context, uuids []string) ([]models.TicketSummary, error) {
	if len(uuids) > maxRememberedTickets {
		uuids = uuids[:maxRememberedTickets]
	}
	sessions, err := uc.sessionRepo.ListByUUIDs(ctx, uuids)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	out := make([]models.TicketSummary, 0, len(sessions))
	for _, s := range sessions {
		if !s.IsAnonymous() {
			continue
		}
		out = append(out, models.TicketSummary{
			UUID:     s.UUID,
			Ticket:   s.Ticket(),
			Status:   s.Status,
			Category: s.Category,
		})
	}
	return out, nil
}

// ClientTicket prefers the open ticket and falls back to the latest closed one,
// so the widget still sees the closure.
func (uc *ticketUsecase) ClientTicket(ctx context.Context, userID models.ObjectID) (*models.ChatSession, error) {
	session, err := uc.sessionRepo.GetOpenByUserID(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return uc.sessionRepo.GetLatestByUserID(ctx, userID)
	}
	return session, err
}

func (uc *ticketUsecase) CloseTicket(ctx context.Context, principal *models.Principal, actor models.Actor, uuid string) (*models.ChatSession, error) {
	session, err := uc.getAuthorized(ctx, principal, uuid)
	if err != nil {
		return nil, err
	}
	wasOpen := session.IsOpen()

	closedAt := uc.now()
	if !wasOpen && session.ClosedAt != nil {
		closedAt = *session.ClosedAt
	}
	closed, err := uc.sessionRepo.Close(ctx, session.ID, closedAt)
	if err != nil {
		return nil, fmt.Errorf("close ticket: %w", err)
	}
	if _, err := uc.appendSystem(ctx, closed, models.ClosingMessage); err != nil {
		return nil, err
	}

	if wasOpen {
		uc.closed.WithLabelValues(scopeLabel(closed)).Inc()
		uc.publish(ctx, models.EventTicketClosed, closed.UUID, ticketPayload(closed))
	}
	uc.broadcaster.BroadcastStatus(ctx, closed)
	if principal.IsAdmin() {
		uc.audit.Record(ctx, actor, models.AuditCloseTicket, closed.Ticket()+" "+closed.UUID)
	}
	return closed, nil
}

func (uc *ticketUsecase) DeleteTicket(ctx context.Context, actor models.Actor, uuid string) error {
	session, err := uc.sessionRepo.GetByUUID(ctx, uuid)
	if err != nil {
		return err
	}
	messages, err := uc.messageRepo.ListBySession(ctx, session.ID)
	if err != nil {
		return fmt.Errorf("list messages: %w", err)
	}
	if _, err := uc.messageRepo.DeleteBySession(ctx, session.ID); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	if err := uc.sessionRepo.Delete(ctx, session.ID); err != nil {
		return fmt.Errorf("delete ticket: %w", err)
	}
	for _, m := range messages {
		if m.Kind != models.MessageKindText {
			if err := uc.files.Remove(ctx, m.Content); err != nil {
				log.Warnw(ctx, "remove chat upload", "file", m.Content, "error", err)
			}
		}
	}

	uc.audit.Record(ctx, actor, models.AuditDeleteTicket, session.Ticket()+" "+session.UUID)
	uc.publish(ctx, models.EventTicketDeleted, session.UUID, ticketPayload(session))
	return nil
}

func ticketPayload(s *models.ChatSession) map[string]any {
	return map[string]any{
		"ticket":   s.Ticket(),
		"category": s.Category,
		"status":   s.Status,
		"scope":    scopeLabel(s),
	}
}

const publishTimeout = 5 * time.Second

// publish must not be aborted by a visitor dropping the request mid-write.
func (uc *ticketUsecase) publish(ctx context.Context, typ models.EventType, key string, payload any) {
	ctx, cancel := util.NewTimeoutContext(ctx, publishTimeout)
	defer cancel()
	err := uc.publisher.Publish(ctx, models.Event{Type: typ, Key: key, At: uc.now(), Payload: payload})
	if err != nil {
		log.Warnw(ctx, "publish event", "type", typ, "key", key, "error", err)
	}
}
