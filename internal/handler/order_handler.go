package handler

import (
	"net/http"
	"time"

	"github.com/rs-labo46/ec-shop-api/internal/config"
	"github.com/rs-labo46/ec-shop-api/internal/middleware"
	"github.com/rs-labo46/ec-shop-api/internal/repository"
	"github.com/rs-labo46/ec-shop-api/internal/usecase"

	"github.com/labstack/echo/v4"
)

type OrderHandler struct {
	uc   *usecase.OrderUsecase
	cart *usecase.CartUsecase
}

func NewOrderHandler(uc *usecase.OrderUsecase, cart *usecase.CartUsecase) *OrderHandler {
	return &OrderHandler{uc: uc, cart: cart}
}

type OrderCreateRequest struct {
	Items           []usecase.OrderItemInput `json:"items"`
	ShippingAddress string                   `json:"shippingAddress"`
	PaymentMethod   string                   `json:"paymentMethod"`
}

type CheckoutRequest struct {
	ShippingAddress string `json:"shippingAddress"`
	PaymentMethod   string `json:"paymentMethod"`
}

type OrderStatusUpdateRequest struct {
	Status string `json:"status"`
}

type ProcessPaymentRequest struct {
	PaymentIntentID string `json:"paymentIntentId"`
}

type RevenueResponse struct {
	Start   string `json:"start"`
	End     string `json:"end"`
	Revenue string `json:"revenue"`
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	g := e.Group("/api/orders", authMiddlewares(cfg, userRepo)...)
	admin := middleware.AdminRoleGuard()

	g.POST("", h.create)
	g.POST("/checkout", h.checkout)
	g.GET("/user", h.listMine)
	g.GET("/:id", h.detail)
	g.POST("/:id/cancel", h.cancel)

	g.PATCH("/:id/status", h.updateStatus, admin)
	g.POST("/process-payment", h.processPayment, admin)
	g.GET("/recent", h.recent, admin)
	g.GET("/revenue", h.revenue, admin)
}

func (h *OrderHandler) create(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req OrderCreateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.CreateOrder(c.Request().Context(), userID, usecase.CreateOrderInput{
		Items:           req.Items,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

// カートの中身で注文
func (h *OrderHandler) checkout(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.cart.Checkout(c.Request().Context(), userID, usecase.CheckoutInput{
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *OrderHandler) listMine(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	page, limit, ok := parsePaging(c)
	if !ok {
		return badRequest(c, "invalid paging")
	}

	out, err := h.uc.ListUserOrders(c.Request().Context(), userID, page, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) detail(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	out, err := h.uc.GetOrder(c.Request().Context(), actor, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) cancel(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	out, err := h.uc.CancelOrder(c.Request().Context(), actor, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// statusはクエリ(?status=)でもbodyでもよい
func (h *OrderHandler) updateStatus(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req OrderStatusUpdateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.UpdateOrderStatus(c.Request().Context(), adminID, id, firstNonEmpty(c.QueryParam("status"), req.Status))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) processPayment(c echo.Context) error {
	var req ProcessPaymentRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.ProcessPayment(c.Request().Context(), firstNonEmpty(c.QueryParam("paymentIntentId"), req.PaymentIntentID))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) recent(c echo.Context) error {
	since, ok := parseDateTime(c.QueryParam("since"))
	if !ok {
		return badRequest(c, "invalid since")
	}

	out, err := h.uc.RecentPaidOrders(c.Request().Context(), since)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) revenue(c echo.Context) error {
	start, ok := parseDateTime(c.QueryParam("start"))
	if !ok {
		return badRequest(c, "invalid start")
	}
	end, ok := parseDateTime(c.QueryParam("end"))
	if !ok {
		return badRequest(c, "invalid end")
	}

	total, err := h.uc.Revenue(c.Request().Context(), start, end)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, RevenueResponse{
		Start:   start.Format(time.RFC3339),
		End:     end.Format(time.RFC3339),
		Revenue: total.StringFixed(2),
	})
}
