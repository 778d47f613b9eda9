package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/fx"

	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/config"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/models"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/repo/banstore"
	pkgmdw "github.com/kapimkk/Projeto-Agencia-Marketing/internal/server/middleware"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/usecase"
	"github.com/kapimkk/Projeto-Agencia-Marketing/pkg/logger"
	"github.com/kapimkk/Projeto-Agencia-Marketing/pkg/logger/log"
)

const contentSecurityPolicy = "default-src 'self'; img-src 'self' data: blob:; media-src 'self' blob:; " +
	"style-src 'self' 'unsafe-inline'; script-src 'self' 'unsafe-inline'; connect-src 'self' ws: wss:; frame-ancestors 'none'"

// NewEcho builds the HTTP server with every route registered.
func NewEcho(
	conf *config.Config,
	handler Controller,
	auth usecase.AuthUsecase,
	bans banstore.Store,
) (*echo.Echo, error) {
	origins, err := regexp.Compile(conf.Server.AllowOrigins)
	if err != nil {
		return nil, fmt.Errorf("compile allowed origins: %w", err)
	}
	renderer, err := NewRenderer()
	if err != nil {
		return nil, err
	}
	ipExtractor, err := newIPExtractor(conf.Server.TrustedProxies)
	if err != nil {
		return nil, err
	}

	httpLogger := logger.MustNamed("http")
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.IPExtractor = ipExtractor
	e.Validator = pkgmdw.NewValidator()
	e.Renderer = renderer
	e.HTTPErrorHandler = errorHandler(httpLogger)

	logConfig := pkgmdw.LogRequestConfig{
		Logger: httpLogger,
		Enabled: func(c echo.Context) bool {
			uri := c.Request().RequestURI
			return uri != "/health" && uri != "/metrics"
		},
		ResponseBody: func(c echo.Context) bool { return false },
	}

	var hstsMaxAge int
	if conf.IsProduction() {
		hstsMaxAge = 31536000
	}
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            hstsMaxAge,
		ContentSecurityPolicy: contentSecurityPolicy,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))
	e.Use(pkgmdw.Metrics())
	e.Use(pkgmdw.RequestID())
	e.Use(pkgmdw.LogRequest(logConfig))
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			log.Errorw(c.Request().Context(), "PANIC RECOVER", "error", err, "stack", string(stack))
			return nil
		},
	}))
	e.Use(middleware.BodyLimit(fmt.Sprintf("%dB", conf.Upload.MaxBytes)))
	e.Use(pkgmdw.CORS(origins))
	e.Use(pkgmdw.BlockBanned(bans))
	e.Use(pkgmdw.Authenticate(auth, conf.Auth.CookieName))

	registerRoutes(e, handler, conf, bans)
	return e, nil
}

// newIPExtractor reads X-Forwarded-For only when the peer is a configured proxy.
// Bans and rate limits key on the result.
func newIPExtractor(proxies []string) (echo.IPExtractor, error) {
	if len(proxies) == 0 {
		return echo.ExtractIPDirect(), nil
	}
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, cidr := range proxies {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, fmt.Errorf("parse trusted proxy %q: %w", cidr, err)
		}
		opts = append(opts, echo.TrustIPRange(ipNet))
	}
	return echo.ExtractIPFromXFFHeader(opts...), nil
}

func registerRoutes(e *echo.Echo, h Controller, conf *config.Config, bans banstore.Store) {
	limit := conf.RateLimit
	public := pkgmdw.RateLimit(pkgmdw.RateLimitConfig{
		Skipper: pkgmdw.OnlyWrites,
		Store:   bans,
		Limit:   limit.PublicLimit,
		Window:  limit.PublicWindow,
		Strikes: limit.Strikes,
		BanTTL:  limit.BanTTL,
	})

	e.GET("/health", h.Health)
	e.Static("/static/uploads", conf.Upload.Dir)

	e.GET("/", h.Home)
	e.GET("/avaliacoes", h.ReviewsPage)
	e.GET("/api/reviews", h.PublicReviews)
	e.GET("/checkout/:plano", h.Checkout)
	e.GET("/api/orders/:id/pix.png", h.PixQRCode)
	e.POST("/webhook/mercadopago", h.PaymentWebhook)

	e.POST("/submit_lead", h.SubmitLead, public)
	e.POST("/submit_review", h.SubmitReview, public)
	e.POST("/processar_pagamento", h.ProcessPayment, public)
	e.POST("/init_session", h.InitSession, public)
	e.POST("/send_chat", h.SendChat, public)
	e.POST("/close_chat/:uuid", h.CloseChat, public)
	e.POST("/my_tickets", h.MyTickets, public)
	e.GET("/get_messages/:uuid", h.GetMessages)
	e.GET("/ws/tickets/:uuid", h.TicketSocket)

	e.GET("/login", h.LoginPage)
	e.POST("/login", h.Login)
	e.GET("/logout", h.Logout)

	wrap := pkgmdw.WrapHandler

	admin := e.Group("/admin", pkgmdw.RequireRole(models.RoleAdmin))
	admin.GET("", h.AdminPage)
	admin.GET("/leads.csv", h.LeadsCSV)
	admin.GET("/api/leads", wrap(h.ListLeads))
	admin.DELETE("/api/leads/:id", wrap(h.DeleteLead))
	admin.GET("/api/reviews", wrap(h.ListReviews))
	admin.PUT("/api/reviews/:id/visibility", wrap(h.SetReviewVisibility))
	admin.DELETE("/api/reviews/:id", wrap(h.DeleteReview))
	admin.GET("/api/orders", wrap(h.ListOrders))
	admin.GET("/api/clients", wrap(h.ListClients))
	admin.POST("/api/clients", wrap(h.CreateClient))
	admin.DELETE("/api/clients/:id", wrap(h.DeleteClient))
	admin.PUT("/api/clients/:id/plan", wrap(h.SetClientPlan))
	admin.GET("/api/clients/:id/stats", wrap(h.ListClientStats))
	admin.POST("/api/clients/:id/stats", wrap(h.AddClientStat))
	admin.GET("/api/plans", wrap(h.ListPlans))
	admin.POST("/api/plans", wrap(h.UpsertPlan))
	admin.DELETE("/api/plans/:id", wrap(h.DeletePlan))
	admin.GET("/api/portfolio", wrap(h.ListPortfolio))
	admin.POST("/api/portfolio", h.CreatePortfolioItem)
	admin.DELETE("/api/portfolio/:id", wrap(h.DeletePortfolioItem))
	admin.GET("/api/config", wrap(h.GetConfig))
	admin.PUT("/api/config", wrap(h.SetConfig))
	admin.GET("/api/tickets", wrap(h.ListTickets))
	admin.GET("/api/tickets/:uuid", wrap(h.GetTicket))
	admin.DELETE("/api/tickets/:uuid", wrap(h.DeleteTicket))
	admin.POST("/api/tickets/:uuid/messages", h.ReplyTicket)
	admin.POST("/api/tickets/:uuid/close", wrap(h.CloseTicket))
	admin.GET("/api/outbox", wrap(h.ListOutbox))
	admin.POST("/api/outbox/:id/retry", wrap(h.RetryOutbox))
	admin.GET("/api/audit", wrap(h.ListAudit))
	if conf.Server.Pprof {
		pkgmdw.PprofWrap(admin)
	}

	client := e.Group("/client", pkgmdw.RequireRole(models.RoleClient))
	client.GET("", h.ClientPage)
	client.POST("/api/ticket", wrap(h.ClientTicket))
	client.GET("/api/ticket/messages", wrap(h.ClientMessages))
	client.POST("/api/ticket/messages", h.ClientPostMessage)
}

func StartServer(
	lc fx.Lifecycle,
	sd fx.Shutdowner,
	conf *config.Config,
	e *echo.Echo,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Infow(ctx, "starting HTTP server", "addr", conf.Server.Addr)
				if err := e.Start(conf.Server.Addr); !errors.Is(err, http.ErrServerClosed) {
					log.Errorw(ctx, "HTTP server stopped", "error", err)
					_ = sd.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return e.Shutdown(ctx)
		},
	})
}
