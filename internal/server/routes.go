package server

import (
	"net/http"

	"github.com/rs-labo46/ec-shop-api/internal/config"
	"github.com/rs-labo46/ec-shop-api/internal/handler"
	"github.com/rs-labo46/ec-shop-api/internal/repository"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers はルート登録するhandler一式
type Handlers struct {
	User         *handler.UserHandler
	Product      *handler.ProductHandler
	AdminProduct *handler.AdminProductHandler
	Order        *handler.OrderHandler
	AdminOrder   *handler.AdminOrderHandler
	Payment      *handler.PaymentHandler
	Cart         *handler.CartHandler
}

type routeRegistrar interface {
	RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository)
}

func RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository, h Handlers, gatherer prometheus.Gatherer) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	for _, r := range []routeRegistrar{h.User, h.Product, h.AdminProduct, h.Order, h.AdminOrder, h.Payment, h.Cart} {
		r.RegisterRoutes(e, cfg, userRepo)
	}
}
