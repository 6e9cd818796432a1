package handler

import (
	"net/http"

	"github.com/rs-labo46/ec-shop-api/internal/config"
	"github.com/rs-labo46/ec-shop-api/internal/repository"
	"github.com/rs-labo46/ec-shop-api/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /api/products の公開API
type ProductHandler struct {
	uc *usecase.ProductUsecase
}

// DI
func NewProductHandler(uc *usecase.ProductUsecase) *ProductHandler {
	return &ProductHandler{uc: uc}
}

// 公開商品のルートを登録（low-stockだけADMIN）
func (h *ProductHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	g := e.Group("/api/products")

	g.GET("", h.list)
	g.GET("/search", h.search)
	g.GET("/category/:category", h.byCategory)
	g.GET("/low-stock", h.lowStock, adminMiddlewares(cfg, userRepo)...)
	g.GET("/:id", h.detail)
}

func (h *ProductHandler) list(c echo.Context) error {
	page, limit, ok := parsePaging(c)
	if !ok {
		return badRequest(c, "invalid paging")
	}

	out, err := h.uc.ListProducts(c.Request().Context(), usecase.ListProductsInput{
		Page:     page,
		Limit:    limit,
		Q:        c.QueryParam("q"),
		Category: c.QueryParam("category"),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) search(c echo.Context) error {
	page, limit, ok := parsePaging(c)
	if !ok {
		return badRequest(c, "invalid paging")
	}

	out, err := h.uc.SearchProducts(c.Request().Context(), c.QueryParam("q"), page, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) byCategory(c echo.Context) error {
	page, limit, ok := parsePaging(c)
	if !ok {
		return badRequest(c, "invalid paging")
	}

	out, err := h.uc.ListByCategory(c.Request().Context(), c.Param("category"), page, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) lowStock(c echo.Context) error {
	items, err := h.uc.ListLowStock(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *ProductHandler) detail(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	p, err := h.uc.GetProductDetail(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}
