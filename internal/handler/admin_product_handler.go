package handler

import (
	"net/http"
	"strconv"

	"shoppit/internal/domain/model"
	appmw "shoppit/internal/middleware"
	"shoppit/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// /admin/products（ADMINのみ）
type AdminProductHandler struct {
	uc *usecase.ProductUsecase
}

// DI
func NewAdminProductHandler(uc *usecase.ProductUsecase) *AdminProductHandler {
	return &AdminProductHandler{uc: uc}
}

// 管理者商品ルートを登録（AuthJWT＋AdminRoleGuardの後ろ）
func (h *AdminProductHandler) RegisterRoutes(e *echo.Echo, mws ...echo.MiddlewareFunc) {
	g := e.Group("/admin/products", mws...)
	g.POST("", h.create)
	g.PUT("/:id", h.update)
}

type adminProductRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Image       string          `json:"image"`
}

func (h *AdminProductHandler) create(c echo.Context) error {
	var req adminProductRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	created, err := h.uc.AdminCreateProduct(c.Request().Context(), contextUserID(c), usecase.AdminProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    model.ProductCategory(req.Category),
		Image:       req.Image,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, created)
}

func (h *AdminProductHandler) update(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req adminProductRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	err = h.uc.AdminUpdateProduct(c.Request().Context(), contextUserID(c), id, usecase.AdminProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    model.ProductCategory(req.Category),
		Image:       req.Image,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// AuthJWTが入れたuser_idを取り出す。未認証なら0。
func contextUserID(c echo.Context) int64 {
	if v, ok := c.Get(appmw.CtxUserIDKey).(int64); ok {
		return v
	}
	return 0
}
