package handler

import (
	"net/http"

	"shoppit/internal/gateway"
	"shoppit/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /payments のAPI。initiateは認証必須、callbackは公開（任意認証）。
type PaymentHandler struct {
	paymentUC    *usecase.PaymentUsecase
	settlementUC *usecase.SettlementUsecase
}

// DI
func NewPaymentHandler(paymentUC *usecase.PaymentUsecase, settlementUC *usecase.SettlementUsecase) *PaymentHandler {
	return &PaymentHandler{
		paymentUC:    paymentUC,
		settlementUC: settlementUC,
	}
}

// authMW: AuthJWT / optionalMW: AuthJWTOptional
func (h *PaymentHandler) RegisterRoutes(e *echo.Echo, authMW, optionalMW echo.MiddlewareFunc) {
	e.POST("/payments/flutterwave/initiate", h.initiate("flutterwave"), authMW)
	e.POST("/payments/paypal/initiate", h.initiate("paypal"), authMW)

	//プロバイダのリダイレクトはGET、サーバ間通知はPOSTで来る
	e.GET("/payments/flutterwave/callback", h.callback("flutterwave"), optionalMW)
	e.POST("/payments/flutterwave/callback", h.callback("flutterwave"), optionalMW)
	e.GET("/payments/paypal/callback", h.callback("paypal"), optionalMW)
	e.POST("/payments/paypal/callback", h.callback("paypal"), optionalMW)
}

type initiateRequest struct {
	CartCode string `json:"cart_code"`
}

func (h *PaymentHandler) initiate(gatewayName string) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req initiateRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		}

		out, err := h.paymentUC.InitiatePayment(c.Request().Context(), contextUserID(c), req.CartCode, gatewayName)
		if err != nil {
			return writeError(c, err)
		}

		//flutterwaveはプロバイダ応答をそのまま返す（リンクはdata.link）
		if out.Raw != nil {
			return c.JSON(http.StatusOK, out.Raw)
		}

		return c.JSON(http.StatusOK, out)
	}
}

func (h *PaymentHandler) callback(gatewayName string) echo.HandlerFunc {
	return func(c echo.Context) error {
		params := gateway.CallbackParams{}
		for name, values := range c.QueryParams() {
			if len(values) > 0 {
				params[name] = values[0]
			}
		}
		if form, err := c.FormParams(); err == nil {
			for name, values := range form {
				if len(values) > 0 {
					params[name] = values[0]
				}
			}
		}

		var authedUserID *int64
		if id := contextUserID(c); id > 0 {
			authedUserID = &id
		}

		out, err := h.settlementUC.HandleCallback(c.Request().Context(), gatewayName, params, authedUserID)
		if err != nil {
			if status, body, ok := usecase.AsCallbackFailure(err); ok {
				return c.JSON(status, body)
			}
			return writeError(c, err)
		}

		return c.JSON(http.StatusOK, out)
	}
}
