package handler

import (
	"net/http"
	"strconv"

	"github.com/rs-labo46/ec-shop-api/internal/config"
	"github.com/rs-labo46/ec-shop-api/internal/domain/model"
	"github.com/rs-labo46/ec-shop-api/internal/repository"
	"github.com/rs-labo46/ec-shop-api/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 管理画面用の注文一覧と監査ログ
type AdminOrderHandler struct {
	orders *usecase.OrderUsecase
	audit  *usecase.AuditLogUsecase
}

func NewAdminOrderHandler(orders *usecase.OrderUsecase, audit *usecase.AuditLogUsecase) *AdminOrderHandler {
	return &AdminOrderHandler{orders: orders, audit: audit}
}

func (h *AdminOrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	mw := adminMiddlewares(cfg, userRepo)

	e.GET("/api/admin/orders", h.list, mw...)
	e.GET("/api/admin/audit-logs", h.auditLogs, mw...)
}

func (h *AdminOrderHandler) list(c echo.Context) error {
	page, limit, ok := parsePaging(c)
	if !ok {
		return badRequest(c, "invalid paging")
	}

	f := repository.AdminOrderListFilter{
		Page:   page,
		Limit:  limit,
		Status: c.QueryParam("status"),
	}

	if v := c.QueryParam("user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return badRequest(c, "invalid user_id")
		}
		f.UserID = &id
	}
	if v := c.QueryParam("from"); v != "" {
		t, ok := parseDateTime(v)
		if !ok {
			return badRequest(c, "invalid from")
		}
		f.From = &t
	}
	if v := c.QueryParam("to"); v != "" {
		t, ok := parseDateTime(v)
		if !ok {
			return badRequest(c, "invalid to")
		}
		f.To = &t
	}

	out, err := h.orders.ListAdmin(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) auditLogs(c echo.Context) error {
	var f repository.AuditLogFilter

	if v := c.QueryParam("actor_user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return badRequest(c, "invalid actor_user_id")
		}
		f.ActorUserID = &id
	}
	if v := c.QueryParam("action"); v != "" {
		a := model.AuditAction(v)
		f.Action = &a
	}
	if v := c.QueryParam("resource_type"); v != "" {
		rt := model.AuditResourceType(v)
		f.ResourceType = &rt
	}
	if v := c.QueryParam("resource_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return badRequest(c, "invalid resource_id")
		}
		f.ResourceID = &id
	}
	if v := c.QueryParam("from"); v != "" {
		t, ok := parseDateTime(v)
		if !ok {
			return badRequest(c, "invalid from")
		}
		f.CreatedFrom = &t
	}
	if v := c.QueryParam("to"); v != "" {
		t, ok := parseDateTime(v)
		if !ok {
			return badRequest(c, "invalid to")
		}
		f.CreatedTo = &t
	}
	if v := c.QueryParam("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil {
			return badRequest(c, "invalid limit")
		}
		f.Limit = l
	}
	if v := c.QueryParam("offset"); v != "" {
		o, err := strconv.Atoi(v)
		if err != nil {
			return badRequest(c, "invalid offset")
		}
		f.Offset = o
	}

	logs, err := h.audit.List(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, logs)
}
