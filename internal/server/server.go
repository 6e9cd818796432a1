package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs-labo46/ec-shop-api/internal/config"
	"github.com/rs-labo46/ec-shop-api/internal/metrics"
	"github.com/rs-labo46/ec-shop-api/internal/middleware"
	"github.com/rs-labo46/ec-shop-api/internal/repository"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// New はミドルウェアとルートを登録したechoを返す。
func New(cfg config.Config, logger *zap.Logger, m *metrics.Metrics, gatherer prometheus.Gatherer, userRepo repository.UserRepository, h Handlers) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Observability(logger, m))
	e.Use(echomw.Recover())

	RegisterRoutes(e, cfg, userRepo, h, gatherer)
	return e
}

// Start はctxがキャンセルされるまでサーバーを動かし、その後graceful shutdownする。
func Start(ctx context.Context, e *echo.Echo, addr string, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server started", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down")
	return e.Shutdown(shutdownCtx)
}
