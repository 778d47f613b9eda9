package usecase

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/config"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/models"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/repo/sqlstore"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/repository"
	"github.com/kapimkk/Projeto-Agencia-Marketing/pkg/crypto"
)

const adminAddress = "admin@agencia.test"

func newTestStores(t *testing.T) *repository.Stores {
	t.Helper()
	db, err := sqlstore.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlstore.NewStores(db)
}

func newTestConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		Server:      config.ServerConfig{BaseURL: "http://localhost:5000/"},
		Auth: config.AuthConfig{
			JWTSecret: "test-secret",
			TokenTTL:  time.Hour,
		},
		Mail: config.MailConfig{AdminAddress: adminAddress},
		RateLimit: config.RateLimitConfig{
			LoginLimit:  3,
			LoginWindow: time.Minute,
			BanTTL:      time.Hour,
		},
		Outbox: config.OutboxConfig{
			MaxAttempts: 3,
			BaseBackoff: time.Minute,
		},
	}
}

func newTestCrypto(t *testing.T) crypto.Client {
	t.Helper()
	c, err := crypto.NewClient(base64.StdEncoding.EncodeToString(make([]byte, 32)))
	require.NoError(t, err)
	return c
}

type fakeFiles struct {
	mu      sync.Mutex
	saved   []string
	removed []string
	err     error
}

func (f *fakeFiles) Save(_ context.Context, upload models.Upload) (string, error) {
	return f.store("up_" + upload.Filename)
}

func (f *fakeFiles) SaveAudio(_ context.Context, _ models.Upload) (string, error) {
	return f.store("audio.webm")
}

func (f *fakeFiles) store(name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.saved = append(f.saved, name)
	return name, nil
}

func (f *fakeFiles) Remove(_ context.Context, filename string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, filename)
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []models.Event
}

func (p *fakePublisher) Publish(_ context.Context, event models.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) types() []models.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeBroadcaster struct {
	mu       sync.Mutex
	messages []*models.ChatMessage
	statuses []models.SessionStatus
}

func (b *fakeBroadcaster) BroadcastMessage(_ context.Context, _ *models.ChatSession, message *models.ChatMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, message)
}

func (b *fakeBroadcaster) BroadcastStatus(_ context.Context, session *models.ChatSession) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statuses = append(b.statuses, session.Status)
}

var errSMTPDown = errors.New("smtp: connection refused")

type fakeSender struct {
	mu       sync.Mutex
	disabled bool
	err      error
	sent     []models.Mail
}

func (s *fakeSender) Enabled() bool { return !s.disabled }

func (s *fakeSender) Send(_ context.Context, mail models.Mail) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, mail)
	return nil
}

type fakeGateway struct {
	err      error
	payments map[string]*models.GatewayPayment
	requests []models.PaymentRequest
}

func (g *fakeGateway) CreatePixPayment(_ context.Context, req models.PaymentRequest) (*models.PixPayment, error) {
	g.requests = append(g.requests, req)
	if g.err != nil {
		return nil, g.err
	}
	return &models.PixPayment{GatewayID: "pix-1", Status: "pending", QRCode: "00020126pix"}, nil
}

func (g *fakeGateway) CreatePreference(_ context.Context, req models.PaymentRequest) (*models.CheckoutPreference, error) {
	g.requests = append(g.requests, req)
	if g.err != nil {
		return nil, g.err
	}
	return &models.CheckoutPreference{GatewayID: "pref-1", InitPoint: "https://pay.test/checkout/pref-1"}, nil
}

func (g *fakeGateway) GetPayment(_ context.Context, id string) (*models.GatewayPayment, error) {
	p, ok := g.payments[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return p, nil
}

func textUpload(name, body string) *models.Upload {
	return &models.Upload{Filename: name, Size: int64(len(body)), Content: strings.NewReader(body)}
}
