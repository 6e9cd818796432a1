package handler

import (
	"net/http"
	"strconv"

	"github.com/rs-labo46/ec-shop-api/internal/config"
	"github.com/rs-labo46/ec-shop-api/internal/repository"
	"github.com/rs-labo46/ec-shop-api/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /api/payments のHTTP
type PaymentHandler struct {
	uc *usecase.PaymentUsecase
}

func NewPaymentHandler(uc *usecase.PaymentUsecase) *PaymentHandler {
	return &PaymentHandler{uc: uc}
}

// パラメータはクエリでもJSON bodyでもよい
type PaymentRequest struct {
	OrderID         int64  `json:"orderId"`
	PaymentIntentID string `json:"paymentIntentId"`
	PaymentMethod   string `json:"paymentMethod"`
}

func (h *PaymentHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	g := e.Group("/api/payments", authMiddlewares(cfg, userRepo)...)

	g.POST("/create-payment-intent", h.createPaymentIntent)
	g.POST("/confirm-payment", h.confirmPayment)
	g.POST("/cancel-payment", h.cancelPayment)
	g.GET("/payment-status", h.paymentStatus)
}

func (h *PaymentHandler) bind(c echo.Context) (PaymentRequest, error) {
	var req PaymentRequest
	if c.Request().Method != http.MethodGet {
		if err := c.Bind(&req); err != nil {
			return PaymentRequest{}, err
		}
	}
	if v := c.QueryParam("orderId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return PaymentRequest{}, err
		}
		req.OrderID = id
	}
	req.PaymentIntentID = firstNonEmpty(c.QueryParam("paymentIntentId"), req.PaymentIntentID)
	req.PaymentMethod = firstNonEmpty(c.QueryParam("paymentMethod"), req.PaymentMethod)
	return req, nil
}

func (h *PaymentHandler) createPaymentIntent(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	req, err := h.bind(c)
	if err != nil {
		return badRequest(c, "invalid request")
	}

	out, err := h.uc.CreatePaymentIntent(c.Request().Context(), actor, req.OrderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *PaymentHandler) confirmPayment(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	req, err := h.bind(c)
	if err != nil {
		return badRequest(c, "invalid request")
	}

	out, err := h.uc.ConfirmPayment(c.Request().Context(), actor, req.PaymentIntentID, req.PaymentMethod)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *PaymentHandler) cancelPayment(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	req, err := h.bind(c)
	if err != nil {
		return badRequest(c, "invalid request")
	}

	out, err := h.uc.CancelPayment(c.Request().Context(), actor, req.PaymentIntentID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *PaymentHandler) paymentStatus(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	req, err := h.bind(c)
	if err != nil {
		return badRequest(c, "invalid request")
	}

	out, err := h.uc.PaymentStatus(c.Request().Context(), actor, req.PaymentIntentID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
