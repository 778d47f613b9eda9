package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/config"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/models"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/server/ws"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/usecase"
)

type Controller interface {
	Health(c echo.Context) error

	// public site
	Home(c echo.Context) error
	ReviewsPage(c echo.Context) error
	PublicReviews(c echo.Context) error
	Checkout(c echo.Context) error
	SubmitLead(c echo.Context) error
	SubmitReview(c echo.Context) error
	ProcessPayment(c echo.Context) error
	PixQRCode(c echo.Context) error
	PaymentWebhook(c echo.Context) error

	// chat widget
	InitSession(c echo.Context) error
	SendChat(c echo.Context) error
	GetMessages(c echo.Context) error
	CloseChat(c echo.Context) error
	MyTickets(c echo.Context) error
	TicketSocket(c echo.Context) error

	LoginPage(c echo.Context) error
	Login(c echo.Context) error
	Logout(c echo.Context) error

	AdminPage(c echo.Context) error
	LeadsCSV(c echo.Context) error
	ListLeads(c echo.Context, req PageRequest) (*models.Page[*models.Lead], error)
	DeleteLead(c echo.Context, req IDRequest) error
	ListReviews(c echo.Context, req struct{}) ([]*models.Review, error)
	SetReviewVisibility(c echo.Context, req VisibilityRequest) (*models.Review, error)
	DeleteReview(c echo.Context, req IDRequest) error
	ListOrders(c echo.Context, req PageRequest) (*models.Page[*models.Order], error)
	ListClients(c echo.Context, req struct{}) ([]*models.User, error)
	CreateClient(c echo.Context, req models.CreateClientRequest) (*models.User, error)
	DeleteClient(c echo.Context, req IDRequest) error
	SetClientPlan(c echo.Context, req ClientPlanRequest) (*models.ClientPlan, error)
	ListClientStats(c echo.Context, req IDRequest) ([]*models.ClientStat, error)
	AddClientStat(c echo.Context, req ClientStatRequest) (*models.ClientStat, error)
	ListPlans(c echo.Context, req struct{}) ([]*models.PublicPlan, error)
	UpsertPlan(c echo.Context, req models.PublicPlanRequest) (*models.PublicPlan, error)
	DeletePlan(c echo.Context, req IDRequest) error
	ListPortfolio(c echo.Context, req struct{}) ([]*models.PortfolioItem, error)
	CreatePortfolioItem(c echo.Context) error
	DeletePortfolioItem(c echo.Context, req IDRequest) error
	GetConfig(c echo.Context, req struct{}) (map[string]string, error)
	SetConfig(c echo.Context, req ConfigRequest) (map[string]string, error)
	ListTickets(c echo.Context, req TicketListRequest) ([]*models.ChatSession, error)
	GetTicket(c echo.Context, req UUIDRequest) (*models.Thread, error)
	DeleteTicket(c echo.Context, req UUIDRequest) error
	ReplyTicket(c echo.Context) error
	CloseTicket(c echo.Context, req UUIDRequest) (*models.ChatSession, error)
	ListOutbox(c echo.Context, req OutboxListRequest) ([]*models.EmailOutbox, error)
	RetryOutbox(c echo.Context, req IDRequest) (*models.EmailOutbox, error)
	ListAudit(c echo.Context, req LimitRequest) ([]*models.AuditLog, error)

	ClientPage(c echo.Context) error
	ClientTicket(c echo.Context, req struct{}) (*models.ChatSession, error)
	ClientMessages(c echo.Context, req struct{}) (*models.Thread, error)
	ClientPostMessage(c echo.Context) error
}

type controller struct {
	cfg       *config.Config
	auth      usecase.AuthUsecase
	tickets   usecase.TicketUsecase
	leads     usecase.LeadUsecase
	reviews   usecase.ReviewUsecase
	orders    usecase.OrderUsecase
	clients   usecase.ClientUsecase
	cms       usecase.CMSUsecase
	dashboard usecase.DashboardUsecase
	outbox    usecase.OutboxUsecase
	audit     usecase.AuditUsecase
	hub       *ws.Hub
}

type Usecases struct {
	Auth      usecase.AuthUsecase
	Tickets   usecase.TicketUsecase
	Leads     usecase.LeadUsecase
	Reviews   usecase.ReviewUsecase
	Orders    usecase.OrderUsecase
	Clients   usecase.ClientUsecase
	CMS       usecase.CMSUsecase
	Dashboard usecase.DashboardUsecase
	Outbox    usecase.OutboxUsecase
	Audit     usecase.AuditUsecase
}

func NewHandler(cfg *config.Config, uc Usecases, hub *ws.Hub) Controller {
	return &controller{
		cfg:       cfg,
		auth:      uc.Auth,
		tickets:   uc.Tickets,
		leads:     uc.Leads,
		reviews:   uc.Reviews,
		orders:    uc.Orders,
		clients:   uc.Clients,
		cms:       uc.CMS,
		dashboard: uc.Dashboard,
		outbox:    uc.Outbox,
		audit:     uc.Audit,
		hub:       hub,
	}
}

func (h *controller) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "agencia-web",
	})
}

func parseID(s string) (models.ObjectID, error) {
	id := models.ObjectID(strings.TrimSpace(s))
	if !id.Valid() {
		return "", models.ErrNotFound
	}
	return id, nil
}
