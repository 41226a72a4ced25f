package handler

import (
	"net/http"

	"shoppit/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 会員登録・ログイン・プロフィールのAPI
type UserHandler struct {
	uc *usecase.UserUsecase
}

// DI
func NewUserHandler(uc *usecase.UserUsecase) *UserHandler {
	return &UserHandler{uc: uc}
}

// authMW: AuthJWT
func (h *UserHandler) RegisterRoutes(e *echo.Echo, authMW echo.MiddlewareFunc) {
	e.POST("/register", h.register)
	e.POST("/login", h.login)
	e.GET("/user/username", h.getUsername, authMW)
	e.GET("/user/info", h.getUserInfo, authMW)
}

type registerRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	City            string `json:"city"`
	State           string `json:"state"`
	Address         string `json:"address"`
	Phone           string `json:"phone"`
	Country         string `json:"country"`
}

type registerResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (h *UserHandler) register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	user, err := h.uc.Register(c.Request().Context(), usecase.RegisterInput{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		City:            req.City,
		State:           req.State,
		Address:         req.Address,
		Phone:           req.Phone,
		Country:         req.Country,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, registerResponse{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *UserHandler) login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	out, err := h.uc.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

type usernameResponse struct {
	Username string `json:"username"`
}

func (h *UserHandler) getUsername(c echo.Context) error {
	username, err := h.uc.GetUsername(c.Request().Context(), contextUserID(c))
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, usernameResponse{Username: username})
}

func (h *UserHandler) getUserInfo(c echo.Context) error {
	out, err := h.uc.GetUserInfo(c.Request().Context(), contextUserID(c))
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}
