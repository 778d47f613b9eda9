package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/models"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/repo/banstore"
	"github.com/kapimkk/Projeto-Agencia-Marketing/pkg/logger/log"
)

type RateLimitConfig struct {
	Skipper Skipper
	Store   banstore.Store
	// Limit requests per Window and address.
	Limit  int64
	Window time.Duration
	// Strikes exceeded requests within BanTTL ban the address for BanTTL.
	Strikes int64
	BanTTL  time.Duration
}

// OnlyWrites skips safe methods so page views are never throttled.
func OnlyWrites(c echo.Context) bool {
	switch c.Request().Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// BlockBanned answers 429 to banned addresses. Store failures let the request through.
func BlockBanned(store banstore.Store) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			banned, err := store.IsBanned(ctx, c.RealIP())
			if err != nil {
				log.Warnw(ctx, "check ban", "ip", c.RealIP(), "error", err)
				return next(c)
			}
			if banned {
				return models.ErrBanned
			}
			return next(c)
		}
	}
}

func RateLimit(config RateLimitConfig) echo.MiddlewareFunc {
	if config.Store == nil {
		panic("Store is required to use RateLimit")
	}
	if config.Skipper == nil {
		config.Skipper = DefaultSkipper
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if config.Skipper(c) {
				return next(c)
			}
			ctx := c.Request().Context()
			ip := c.RealIP()

			ok, err := config.Store.Allow(ctx, "public:"+ip, config.Limit, config.Window)
			if err != nil {
				log.Warnw(ctx, "count request", "ip", ip, "error", err)
				return next(c)
			}
			if ok {
				return next(c)
			}

			tolerated, err := config.Store.Allow(ctx, "strike:"+ip, config.Strikes-1, config.BanTTL)
			if err == nil && !tolerated {
				if err := config.Store.Ban(ctx, ip, config.BanTTL); err != nil {
					log.Warnw(ctx, "ban ip", "ip", ip, "error", err)
				} else {
					log.Warnw(ctx, "ip banned for exceeding the request limit", "ip", ip, "ttl", config.BanTTL)
				}
			}
			return models.ErrRateLimited
		}
	}
}
