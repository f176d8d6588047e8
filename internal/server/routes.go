package server

import (
	"net/http"

	"storefront/internal/config"
	"storefront/internal/handler"
	"storefront/internal/metrics"
	"storefront/internal/middleware"
	"storefront/internal/repository"

	"github.com/labstack/echo/v4"
)

type Handlers struct {
	Catalog      *handler.CatalogHandler
	Payment      *handler.PaymentHandler
	Checkout     *handler.CheckoutHandler
	Auth         *handler.AuthHandler
	AdminCatalog *handler.AdminCatalogHandler
	AdminUser    *handler.AdminUserHandler
}

func RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository, limiter *middleware.RateLimiter, h Handlers) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	h.Catalog.RegisterRoutes(e)
	h.Auth.RegisterRoutes(e, middleware.AuthJWT(cfg), middleware.TokenVersionGuard(userRepo))
	h.Auth.RegisterPasswordRoutes(e.Group("/auth", middleware.RateLimit(limiter)))

	// 決済系はIPごとに制限
	payment := e.Group("/payment", middleware.RateLimit(limiter))
	h.Payment.RegisterRoutes(payment, middleware.OptionalAuth(cfg))

	checkout := e.Group("/checkout", middleware.RateLimit(limiter), middleware.OptionalAuth(cfg))
	h.Checkout.RegisterRoutes(checkout)

	// /admin 配下は全部「JWT必須 + token_version一致 + ADMIN限定」
	admin := e.Group(
		"/admin",
		middleware.AuthJWT(cfg),
		middleware.TokenVersionGuard(userRepo),
		middleware.AdminRoleGuard(),
	)
	h.AdminCatalog.RegisterRoutes(admin)
	h.AdminUser.RegisterRoutes(admin)
}
