package handler

import (
	"net/http"
	"strconv"

	"shoppit/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /cart のAPI（匿名カートなので認証不要）
type CartHandler struct {
	uc *usecase.CartUsecase
}

// DI
func NewCartHandler(uc *usecase.CartUsecase) *CartHandler {
	return &CartHandler{uc: uc}
}

func (h *CartHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/cart/add", h.addItem)
	e.GET("/cart", h.getCart)
	e.GET("/cart/stats", h.getCartStats)
	e.GET("/cart/contains", h.productInCart)
	e.PATCH("/cart/items/:id", h.updateQuantity)
	e.DELETE("/cart/items/:id", h.deleteItem)
}

type addItemRequest struct {
	CartCode  string `json:"cart_code"`
	ProductID int64  `json:"product_id"`
}

func (h *CartHandler) addItem(c echo.Context) error {
	var req addItemRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	out, err := h.uc.AddItem(c.Request().Context(), req.CartCode, req.ProductID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, out)
}

func (h *CartHandler) getCart(c echo.Context) error {
	out, err := h.uc.GetCart(c.Request().Context(), c.QueryParam("cart_code"))
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) getCartStats(c echo.Context) error {
	out, err := h.uc.GetCartStats(c.Request().Context(), c.QueryParam("cart_code"))
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

type productInCartResponse struct {
	ProductInCart bool `json:"product_in_cart"`
}

func (h *CartHandler) productInCart(c echo.Context) error {
	productID, err := strconv.ParseInt(c.QueryParam("product_id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid product_id"})
	}

	exists, err := h.uc.ProductInCart(c.Request().Context(), c.QueryParam("cart_code"), productID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, productInCartResponse{ProductInCart: exists})
}

type updateQuantityRequest struct {
	Quantity int64 `json:"quantity"`
}

func (h *CartHandler) updateQuantity(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req updateQuantityRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	out, err := h.uc.UpdateQuantity(c.Request().Context(), id, req.Quantity)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) deleteItem(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	if err := h.uc.DeleteItem(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}
