package server

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/config"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/models"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/repo/banstore"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/repo/events"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/repo/filestore"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/repo/mailer"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/repo/sqlstore"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/server/ws"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/usecase"
	"github.com/kapimkk/Projeto-Agencia-Marketing/pkg/crypto"
)

const (
	adminUser     = "admin"
	adminPassword = "s3cret-pass"
)

type stubGateway struct{}

func (stubGateway) CreatePixPayment(_ context.Context, req models.PaymentRequest) (*models.PixPayment, error) {
	return &models.PixPayment{GatewayID: "pix-" + req.OrderID, Status: "pending", QRCode: "00020126pix"}, nil
}

func (stubGateway) CreatePreference(_ context.Context, req models.PaymentRequest) (*models.CheckoutPreference, error) {
	return &models.CheckoutPreference{GatewayID: "pref-1", InitPoint: "https://pay.test/checkout/" + req.OrderID}, nil
}

func (stubGateway) GetPayment(context.Context, string) (*models.GatewayPayment, error) {
	return nil, models.ErrNotFound
}

type testServer struct {
	e   *echo.Echo
	uc  Usecases
	cfg *config.Config
}

func newTestConfig(t *testing.T) *config.Config {
	return &config.Config{
		Environment:   "test",
		EncryptionKey: base64.StdEncoding.EncodeToString(make([]byte, 32)),
		Server: config.ServerConfig{
			BaseURL:      "http://localhost:5000",
			AllowOrigins: "^https?://localhost(:[0-9]+)?$",
		},
		Auth: config.AuthConfig{
			JWTSecret:  "test-secret",
			TokenTTL:   time.Hour,
			CookieName: "agencia_session",
		},
		Mail: config.MailConfig{AdminAddress: "admin@agencia.test"},
		Upload: config.UploadConfig{
			Dir:               t.TempDir(),
			MaxBytes:          1 << 20,
			AllowedExtensions: []string{"png", "pdf", "webm"},
		},
		RateLimit: config.RateLimitConfig{
			PublicLimit:  1000,
			PublicWindow: time.Minute,
			LoginLimit:   5,
			LoginWindow:  time.Minute,
			Strikes:      3,
			BanTTL:       time.Hour,
		},
		Outbox: config.OutboxConfig{MaxAttempts: 3, BaseBackoff: time.Minute},
	}
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	cfg := newTestConfig(t)

	db, err := sqlstore.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	stores := sqlstore.NewStores(db)

	cryptoClient, err := crypto.NewClient(cfg.EncryptionKey)
	require.NoError(t, err)
	files, err := filestore.New(cfg.Upload)
	require.NoError(t, err)
	bans := banstore.NewMemory()
	publisher := events.NewNop()
	hub := ws.NewHub(func(*http.Request) bool { return true })

	audit := usecase.NewAuditUsecase(stores.Audit)
	outbox, err := usecase.NewOutboxUsecase(stores.Outbox, mailer.New(cfg.Mail), audit, cfg.Outbox)
	require.NoError(t, err)
	tickets, err := usecase.NewTicketUsecase(stores, cryptoClient, files, publisher, hub, outbox, audit, cfg)
	require.NoError(t, err)
	reviews := usecase.NewReviewUsecase(stores.Reviews, audit)

	uc := Usecases{
		Auth:      usecase.NewAuthUsecase(stores.Users, bans, audit, cfg),
		Tickets:   tickets,
		Leads:     usecase.NewLeadUsecase(stores.Leads, cryptoClient, files, publisher, outbox, audit, cfg),
		Reviews:   reviews,
		Orders:    usecase.NewOrderUsecase(stores.Orders, stores.Plans, stubGateway{}, publisher, outbox, cfg),
		Clients:   usecase.NewClientUsecase(stores, audit),
		CMS:       usecase.NewCMSUsecase(stores, reviews, files, audit),
		Dashboard: usecase.NewDashboardUsecase(stores),
		Outbox:    outbox,
		Audit:     audit,
	}
	_, err = uc.Auth.CreateAdmin(ctx, adminUser, adminPassword)
	require.NoError(t, err)

	e, err := NewEcho(cfg, NewHandler(cfg, uc, hub), uc.Auth, bans)
	require.NoError(t, err)
	return &testServer{e: e, uc: uc, cfg: cfg}
}

func (s *testServer) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) postForm(path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return s.do(req, cookies...)
}

func (s *testServer) postJSON(path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return s.do(req, cookies...)
}

func (s *testServer) login(t *testing.T) *http.Cookie {
	t.Helper()
	return s.loginAs(t, adminUser, adminPassword)
}

func (s *testServer) loginAs(t *testing.T, username, password string) *http.Cookie {
	t.Helper()
	rec := s.postJSON("/login", `{"username":"`+username+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	for _, c := range rec.Result().Cookies() {
		if c.Name == s.cfg.Auth.CookieName {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode(t, rec)["status"])
}

func TestChatWidgetFlow(t *testing.T) {
	s := newTestServer(t)

	rec := s.postForm("/init_session", url.Values{"name": {"Ana"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	opened := decode(t, rec)
	uuid, _ := opened["session_id"].(string)
	require.NotEmpty(t, uuid)
	assert.Equal(t, "#1", opened["ticket"])

	rec = s.postForm("/send_chat", url.Values{"session_id": {uuid}, "message": {"Quero um site"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, map[string]any{"status": "success", "content": "Quero um site", "type": "texto"}, decode(t, rec))

	rec = s.postForm("/send_chat", url.Values{"session_id": {uuid}, "message": {"   "}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"status": "error", "message": "Vazio"}, decode(t, rec))

	rec = s.do(httptest.NewRequest(http.MethodGet, "/get_messages/"+uuid, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	thread := decode(t, rec)
	assert.Equal(t, "Aberto", thread["status"])
	messages, _ := thread["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["remetente"])
	assert.Equal(t, "Quero um site", messages[1].(map[string]any)["conteudo"])

	rec = s.postForm("/close_chat/"+uuid, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Encerrado", decode(t, rec)["status"])

	rec = s.postForm("/send_chat", url.Values{"session_id": {uuid}, "message": {"ainda aí?"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"status": "closed", "msg": "Atendimento encerrado."}, decode(t, rec))
}

func TestSendChatUnknownTicket(t *testing.T) {
	s := newTestServer(t)
	rec := s.postForm("/send_chat", url.Values{"session_id": {"missing"}, "message": {"oi"}})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMyTickets(t *testing.T) {
	s := newTestServer(t)
	uuid := decode(t, s.postForm("/init_session", nil))["session_id"].(string)

	rec := s.postJSON("/my_tickets", `{"uuids":["`+uuid+`","unknown"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var tickets []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tickets))
	require.Len(t, tickets, 1)
	assert.Equal(t, uuid, tickets[0]["uuid"])
}

func TestAdminRequiresLogin(t *testing.T) {
	s := newTestServer(t)

	page := httptest.NewRequest(http.MethodGet, "/admin", nil)
	page.Header.Set(echo.HeaderAccept, "text/html,application/xhtml+xml")
	rec := s.do(page)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))

	rec = s.do(httptest.NewRequest(http.MethodGet, "/admin/api/leads", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, false, decode(t, rec)["success"])
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)

	t.Run("json", func(t *testing.T) {
		cookie := s.login(t)
		assert.True(t, cookie.HttpOnly)
		assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)

		rec := s.do(httptest.NewRequest(http.MethodGet, "/admin/api/leads", nil), cookie)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, true, decode(t, rec)["success"])
	})

	t.Run("browser redirect", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/login",
			strings.NewReader(url.Values{"username": {adminUser}, "password": {adminPassword}}.Encode()))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
		req.Header.Set(echo.HeaderAccept, "text/html")
		rec := s.do(req)
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/admin", rec.Header().Get(echo.HeaderLocation))
	})

	t.Run("wrong password renders form", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/login",
			strings.NewReader(url.Values{"username": {adminUser}, "password": {"nope"}}.Encode()))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
		req.Header.Set(echo.HeaderAccept, "text/html")
		rec := s.do(req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Usuário ou senha incorretos")
	})

	t.Run("logout clears cookie", func(t *testing.T) {
		rec := s.do(httptest.NewRequest(http.MethodGet, "/logout", nil))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Empty(t, cookies[0].Value)
		assert.Negative(t, cookies[0].MaxAge)
	})
}

func TestLeadsCSV(t *testing.T) {
	s := newTestServer(t)

	rec := s.postJSON("/submit_lead", `{"nome":"João Silva","email":"joao@example.com","telefone":"11999990000","projeto":"Loja"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "success", decode(t, rec)["status"])

	rec = s.do(httptest.NewRequest(http.MethodGet, "/admin/leads.csv", nil), s.login(t))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/csv")

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(body), "\xEF\xBB\xBF"))
	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(string(body), "\xEF\xBB\xBF")), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "id,nome,email,telefone,projeto,anexo,data", lines[0])
	assert.Contains(t, lines[1], "João Silva,joao@example.com,11999990000,Loja")
}

func TestSubmitLeadValidation(t *testing.T) {
	s := newTestServer(t)
	rec := s.postJSON("/submit_lead", `{"nome":"Ana","email":"not-an-email","telefone":"1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminReplyReachesWidget(t *testing.T) {
	s := newTestServer(t)
	uuid := decode(t, s.postForm("/init_session", nil))["session_id"].(string)

	rec := s.postForm("/admin/api/tickets/"+uuid+"/messages", url.Values{"message": {"Olá, como ajudar?"}}, s.login(t))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "success", decode(t, rec)["status"])

	thread := decode(t, s.do(httptest.NewRequest(http.MethodGet, "/get_messages/"+uuid, nil)))
	messages := thread["messages"].([]any)
	require.Len(t, messages, 2)
	last := messages[1].(map[string]any)
	assert.Equal(t, "admin", last["remetente"])
	assert.Equal(t, "Olá, como ajudar?", last["conteudo"])
}

func TestProcessPayment(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	_, err := s.uc.CMS.UpsertPlan(ctx, models.Actor{}, models.PublicPlanRequest{Name: "Pro", Price: 499.9})
	require.NoError(t, err)

	rec := s.postJSON("/processar_pagamento", `{"plano":"Pro","metodo":"pix","email":"a@b.com","preco":1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "00020126pix", body["pix_code"])
	orderID := body["order_id"].(string)
	assert.Equal(t, "/api/orders/"+orderID+"/pix.png", body["qr_code_url"])

	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/orders/"+orderID+"/pix.png", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))

	rec = s.postJSON("/processar_pagamento", `{"plano":"Pro","metodo":"card","parcelas":"3x"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, decode(t, rec)["checkout_url"], "https://pay.test/checkout/")

	rec = s.postJSON("/processar_pagamento", `{"plano":"Enterprise","metodo":"pix"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPaymentWebhookDirectNotification(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	_, err := s.uc.CMS.UpsertPlan(ctx, models.Actor{}, models.PublicPlanRequest{Name: "Pro", Price: 100})
	require.NoError(t, err)
	order, err := s.uc.Orders.CreateOrder(ctx, models.OrderRequest{Plan: "Pro", Method: "pix"})
	require.NoError(t, err)

	rec := s.postJSON("/webhook/mercadopago", `{"external_reference":"`+order.ID+`","status":"approved"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Aprovado", decode(t, rec)["status"])

	rec = s.postJSON("/webhook/mercadopago", `{"type":"merchant_order","data":{"id":"1"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ignored", decode(t, rec)["status"])
}

func TestParseNotification(t *testing.T) {
	noQuery := func(string) string { return "" }
	tests := []struct {
		name  string
		body  string
		query url.Values
		want  models.PaymentNotification
	}{
		{
			name: "webhook",
			body: `{"type":"payment","data":{"id":"123"}}`,
			want: models.PaymentNotification{Type: "payment", PaymentID: "123"},
		},
		{
			name: "direct",
			body: `{"external_reference":"ord-1","status":"approved"}`,
			want: models.PaymentNotification{ExternalReference: "ord-1", Status: "approved"},
		},
		{
			name:  "query params",
			query: url.Values{"type": {"payment"}, "data.id": {"55"}},
			want:  models.PaymentNotification{Type: "payment", PaymentID: "55"},
		},
		{
			name:  "legacy ipn",
			query: url.Values{"topic": {"payment"}, "id": {"77"}},
			want:  models.PaymentNotification{Type: "payment", PaymentID: "77"},
		},
		{
			name: "garbage",
			body: `not json`,
			want: models.PaymentNotification{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query := noQuery
			if tt.query != nil {
				query = tt.query.Get
			}
			assert.Equal(t, tt.want, parseNotification([]byte(tt.body), query))
		})
	}
}

func TestPublicPagesRender(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/", "/avaliacoes", "/login"} {
		t.Run(path, func(t *testing.T) {
			rec := s.do(httptest.NewRequest(http.MethodGet, path, nil))
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Header().Get(echo.HeaderContentType), echo.MIMETextHTML)
		})
	}
}

func TestBansIgnoreForwardedFor(t *testing.T) {
	s := newTestServer(t)

	for i := 0; i < 7; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":"admin","password":"wrong-pass"}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		req.Header.Set(echo.HeaderXForwardedFor, "203.0.113.7")
		s.do(req)
	}

	victim := httptest.NewRequest(http.MethodPost, "/init_session", nil)
	victim.RemoteAddr = "203.0.113.7:40000"
	assert.Equal(t, http.StatusOK, s.do(victim).Code)

	attacker := httptest.NewRequest(http.MethodPost, "/init_session", nil)
	attacker.Header.Set(echo.HeaderXForwardedFor, "198.51.100.9")
	rec := s.do(attacker)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "ResourceExhausted", decode(t, rec)["error_code"])
}

func TestNewIPExtractor(t *testing.T) {
	newReq := func(remote string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remote
		req.Header.Set(echo.HeaderXForwardedFor, "203.0.113.7")
		return req
	}

	direct, err := newIPExtractor(nil)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", direct(newReq("10.0.0.5:1234")))

	proxied, err := newIPExtractor([]string{"10.0.0.0/8"})
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.7", proxied(newReq("10.0.0.5:1234")))
	assert.Equal(t, "192.0.2.1", proxied(newReq("192.0.2.1:1234")))

	_, err = newIPExtractor([]string{"not-a-cidr"})
	assert.Error(t, err)
}

func TestClientTicketAfterAdminClose(t *testing.T) {
	s := newTestServer(t)
	_, err := s.uc.Clients.Create(context.Background(), models.Actor{}, models.CreateClientRequest{
		Username: "loja", Name: "Loja da Ana", Password: "cliente-123",
	})
	require.NoError(t, err)
	client := s.loginAs(t, "loja", "cliente-123")

	rec := s.postJSON("/client/api/ticket", `{}`, client)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	uuid := decode(t, rec)["data"].(map[string]any)["uuid"].(string)

	rec = s.postForm("/admin/api/tickets/"+uuid+"/close", nil, s.login(t))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.postForm("/client/api/ticket/messages", url.Values{"message": {"ainda aí?"}}, client)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, map[string]any{"status": "closed", "msg": "Atendimento encerrado."}, decode(t, rec))

	rec = s.do(httptest.NewRequest(http.MethodGet, "/client/api/ticket/messages", nil), client)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	thread := decode(t, rec)["data"].(map[string]any)
	assert.Equal(t, "Encerrado", thread["session"].(map[string]any)["status"])
	messages := thread["messages"].([]any)
	assert.Equal(t, "Atendimento encerrado.", messages[len(messages)-1].(map[string]any)["content"])

	rec = s.postJSON("/client/api/ticket", `{}`, client)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEqual(t, uuid, decode(t, rec)["data"].(map[string]any)["uuid"])
}

func TestAdminReplyToClosedTicket(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t)
	uuid := decode(t, s.postForm("/init_session", nil))["session_id"].(string)
	require.Equal(t, http.StatusOK, s.postForm("/admin/api/tickets/"+uuid+"/close", nil, admin).Code)

	rec := s.postForm("/admin/api/tickets/"+uuid+"/messages", url.Values{"message": {"Reabrindo?"}}, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "closed", decode(t, rec)["status"])

	thread := decode(t, s.do(httptest.NewRequest(http.MethodGet, "/get_messages/"+uuid, nil)))
	for _, m := range thread["messages"].([]any) {
		assert.NotEqual(t, "admin", m.(map[string]any)["remetente"])
	}
}
