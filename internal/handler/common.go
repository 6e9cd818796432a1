package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs-labo46/ec-shop-api/internal/config"
	"github.com/rs-labo46/ec-shop-api/internal/domain/model"
	"github.com/rs-labo46/ec-shop-api/internal/logging"
	"github.com/rs-labo46/ec-shop-api/internal/middleware"
	"github.com/rs-labo46/ec-shop-api/internal/repository"
	"github.com/rs-labo46/ec-shop-api/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		if he.Status >= http.StatusInternalServerError {
			logging.FromContext(c.Request().Context()).Error("internal error", zap.Error(err))
		}
		return c.JSON(he.Status, ErrorResponse{Error: he.Message})
	}

	//500
	logging.FromContext(c.Request().Context()).Error("unhandled error", zap.Error(err))
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

// 認証が必要なルートに付けるミドルウェア
func authMiddlewares(cfg config.Config, userRepo repository.UserRepository) []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{
		middleware.AuthJWT(cfg.JWTSecret),
		middleware.TokenVersionGuard(userRepo),
	}
}

// ADMIN専用ルート
func adminMiddlewares(cfg config.Config, userRepo repository.UserRepository) []echo.MiddlewareFunc {
	return append(authMiddlewares(cfg, userRepo), middleware.AdminRoleGuard())
}

func getUserIDFromContext(c echo.Context) (int64, bool) {
	id, ok := c.Get(middleware.CtxUserIDKey).(int64)
	if !ok || id <= 0 {
		return 0, false
	}
	return id, true
}

// 認証済みユーザー（id+role）を取り出す
func actorFromContext(c echo.Context) (model.Actor, bool) {
	id, ok := getUserIDFromContext(c)
	if !ok {
		return model.Actor{}, false
	}
	role, ok := c.Get(middleware.CtxUserRoleKey).(model.Role)
	if !ok {
		return model.Actor{}, false
	}
	return model.Actor{UserID: id, Role: role}, true
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func parseIDParam(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// page/limitのクエリ（未指定は0、usecase側で既定値）
func parsePaging(c echo.Context) (int, int, bool) {
	page, limit := 0, 0
	if v := c.QueryParam("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, false
		}
		page = p
	}
	if v := c.QueryParam("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, false
		}
		limit = l
	}
	return page, limit, true
}

// RFC3339と、タイムゾーン無しの日時（2024-01-02T15:04:05）を受け付ける
func parseDateTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// クエリ優先、無ければbodyの値
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
