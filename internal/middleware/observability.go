package middleware

import (
	"strconv"
	"time"

	"github.com/rs-labo46/ec-shop-api/internal/logging"
	"github.com/rs-labo46/ec-shop-api/internal/metrics"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const HeaderRequestID = "X-Request-ID"

// Observability はリクエストIDを付けたロガーをctxに入れ、
// アクセスログとHTTPメトリクスを記録する。
func Observability(base *zap.Logger, m *metrics.Metrics) echo.MiddlewareFunc {
	if base == nil {
		base = zap.L()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			rid := req.Header.Get(HeaderRequestID)
			if rid == "" {
				rid = uuid.NewString()
			}
			c.Response().Header().Set(HeaderRequestID, rid)

			reqLogger := base.With(zap.String("request_id", rid))
			c.SetRequest(req.WithContext(logging.ContextWithLogger(req.Context(), reqLogger)))

			start := time.Now()
			err := next(c)
			if err != nil {
				//echoのエラーハンドラでステータスを確定させる
				c.Error(err)
			}
			elapsed := time.Since(start)

			//ルートはテンプレート（/api/orders/:id）でラベルにする
			route := c.Path()
			if route == "" {
				route = "unknown"
			}
			status := c.Response().Status

			if m != nil {
				labels := []string{req.Method, route, strconv.Itoa(status)}
				m.HTTPRequests.WithLabelValues(labels...).Inc()
				m.HTTPRequestDuration.WithLabelValues(labels...).Observe(elapsed.Seconds())
			}

			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("route", route),
				zap.Int("status", status),
				zap.Duration("latency", elapsed),
			}
			if uid, ok := c.Get(CtxUserIDKey).(int64); ok {
				fields = append(fields, zap.Int64("user_id", uid))
			}
			if status >= 500 {
				reqLogger.Error("request failed", append(fields, zap.Error(err))...)
			} else {
				reqLogger.Info("request", fields...)
			}
			return nil
		}
	}
}
