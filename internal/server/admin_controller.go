package server

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/models"
	pkgmdw "github.com/kapimkk/Projeto-Agencia-Marketing/internal/server/middleware"
	"github.com/kapimkk/Projeto-Agencia-Marketing/pkg/logger/log"
)

const defaultListLimit = 100

func actor(c echo.Context) models.Actor {
	return pkgmdw.GetPrincipal(c).Actor(c.RealIP())
}

func (h *controller) AdminPage(c echo.Context) error {
	dashboard, err := h.dashboard.Load(c.Request().Context())
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, "admin.html", pageData(c, dashboard))
}

func (h *controller) LeadsCSV(c echo.Context) error {
	ctx := c.Request().Context()
	leads, err := h.leads.ListAll(ctx)
	if err != nil {
		return err
	}

	filename := fmt.Sprintf("leads-%s.csv", time.Now().Format("2006-01-02"))
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	res.Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	res.WriteHeader(http.StatusOK)

	// BOM so spreadsheet apps detect UTF-8 accents
	_, _ = res.Write([]byte("\xEF\xBB\xBF"))
	w := csv.NewWriter(res)
	_ = w.Write([]string{"id", "nome", "email", "telefone", "projeto", "anexo", "data"})
	for _, l := range leads {
		_ = w.Write([]string{
			l.ID.String(), l.Name, l.Email, l.Phone, l.Project, l.Attachment,
			l.CreatedAt.Format(time.RFC3339),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		log.Warnw(ctx, "write leads csv", "error", err)
	}
	return nil
}

func (h *controller) ListLeads(c echo.Context, req PageRequest) (*models.Page[*models.Lead], error) {
	return h.leads.Paginate(c.Request().Context(), req.Page)
}

func (h *controller) DeleteLead(c echo.Context, req IDRequest) error {
	id, err := parseID(req.ID)
	if err != nil {
		return err
	}
	return h.leads.Delete(c.Request().Context(), actor(c), id)
}

func (h *controller) ListReviews(c echo.Context, _ struct{}) ([]*models.Review, error) {
	return h.reviews.ListAll(c.Request().Context())
}

func (h *controller) SetReviewVisibility(c echo.Context, req VisibilityRequest) (*models.Review, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return nil, err
	}
	return h.reviews.SetVisible(c.Request().Context(), actor(c), id, req.Visible)
}

func (h *controller) DeleteReview(c echo.Context, req IDRequest) error {
	id, err := parseID(req.ID)
	if err != nil {
		return err
	}
	return h.reviews.Delete(c.Request().Context(), actor(c), id)
}

func (h *controller) ListOrders(c echo.Context, req PageRequest) (*models.Page[*models.Order], error) {
	return h.orders.Paginate(c.Request().Context(), req.Page)
}

func (h *controller) ListClients(c echo.Context, _ struct{}) ([]*models.User, error) {
	return h.clients.List(c.Request().Context())
}

func (h *controller) CreateClient(c echo.Context, req models.CreateClientRequest) (*models.User, error) {
	return h.clients.Create(c.Request().Context(), actor(c), req)
}

func (h *controller) DeleteClient(c echo.Context, req IDRequest) error {
	id, err := parseID(req.ID)
	if err != nil {
		return err
	}
	return h.clients.Delete(c.Request().Context(), actor(c), id)
}

func (h *controller) SetClientPlan(c echo.Context, req ClientPlanRequest) (*models.ClientPlan, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return nil, err
	}
	return h.clients.SetPlan(c.Request().Context(), actor(c), id, req.toModel())
}

func (h *controller) ListClientStats(c echo.Context, req IDRequest) ([]*models.ClientStat, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return nil, err
	}
	return h.clients.ListStats(c.Request().Context(), id)
}

func (h *controller) AddClientStat(c echo.Context, req ClientStatRequest) (*models.ClientStat, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return nil, err
	}
	return h.clients.AddStat(c.Request().Context(), id, req.toModel())
}

func (h *controller) ListPlans(c echo.Context, _ struct{}) ([]*models.PublicPlan, error) {
	return h.cms.ListPlans(c.Request().Context())
}

func (h *controller) UpsertPlan(c echo.Context, req models.PublicPlanRequest) (*models.PublicPlan, error) {
	return h.cms.UpsertPlan(c.Request().Context(), actor(c), req)
}

func (h *controller) DeletePlan(c echo.Context, req IDRequest) error {
	id, err := parseID(req.ID)
	if err != nil {
		return err
	}
	return h.cms.DeletePlan(c.Request().Context(), actor(c), id)
}

func (h *controller) ListPortfolio(c echo.Context, _ struct{}) ([]*models.PortfolioItem, error) {
	return h.cms.ListPortfolio(c.Request().Context())
}

// CreatePortfolioItem takes a multipart form with the item fields and an "imagem" file.
func (h *controller) CreatePortfolioItem(c echo.Context) error {
	var req models.PortfolioRequest
	if err := pkgmdw.BindAndValidate(c, &req); err != nil {
		return err
	}
	image, err := formFile(c, "imagem")
	if err != nil {
		return err
	}
	if image == nil {
		return models.InvalidArgument("imagem é obrigatória")
	}
	defer image.Close()

	item, err := h.cms.CreatePortfolioItem(c.Request().Context(), actor(c), req, image.Upload)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &pkgmdw.Response{Status: http.StatusOK, Success: true, Data: item})
}

func (h *controller) DeletePortfolioItem(c echo.Context, req IDRequest) error {
	id, err := parseID(req.ID)
	if err != nil {
		return err
	}
	return h.cms.DeletePortfolioItem(c.Request().Context(), actor(c), id)
}

func (h *controller) GetConfig(c echo.Context, _ struct{}) (map[string]string, error) {
	return h.cms.Config(c.Request().Context())
}

func (h *controller) SetConfig(c echo.Context, req ConfigRequest) (map[string]string, error) {
	ctx := c.Request().Context()
	if err := h.cms.SetConfig(ctx, actor(c), req.Values); err != nil {
		return nil, err
	}
	return h.cms.Config(ctx)
}

func (h *controller) ListTickets(c echo.Context, req TicketListRequest) ([]*models.ChatSession, error) {
	return h.tickets.ListTickets(c.Request().Context(), models.TicketFilter{
		Scope:  req.Scope,
		Status: req.Status,
		Limit:  req.Limit,
	})
}

func (h *controller) GetTicket(c echo.Context, req UUIDRequest) (*models.Thread, error) {
	return h.tickets.GetThread(c.Request().Context(), pkgmdw.GetPrincipal(c), req.UUID)
}

func (h *controller) DeleteTicket(c echo.Context, req UUIDRequest) error {
	return h.tickets.DeleteTicket(c.Request().Context(), actor(c), req.UUID)
}

// ReplyTicket posts an admin answer; it takes the same form as the chat widget.
func (h *controller) ReplyTicket(c echo.Context) error {
	return h.postMessage(c, c.Param("uuid"))
}

func (h *controller) CloseTicket(c echo.Context, req UUIDRequest) (*models.ChatSession, error) {
	return h.tickets.CloseTicket(c.Request().Context(), pkgmdw.GetPrincipal(c), actor(c), req.UUID)
}

func (h *controller) ListOutbox(c echo.Context, req OutboxListRequest) ([]*models.EmailOutbox, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	return h.outbox.List(c.Request().Context(), req.Status, limit)
}

func (h *controller) RetryOutbox(c echo.Context, req IDRequest) (*models.EmailOutbox, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return nil, err
	}
	return h.outbox.Retry(c.Request().Context(), actor(c), id)
}

func (h *controller) ListAudit(c echo.Context, req LimitRequest) ([]*models.AuditLog, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	return h.audit.List(c.Request().Context(), limit)
}
