package handler

import (
	"encoding/json"
	"net/http"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// /payment の入力（決済確認）
type VerifyPaymentRequest struct {
	PaymentID string               `json:"paymentId"`
	OrderData usecase.OrderPayload `json:"orderData"`
}

// 成功は isSuccess=true + data、未払いは status、失敗は message
type VerifyPaymentResponse struct {
	IsSuccess bool                 `json:"isSuccess"`
	Data      json.RawMessage      `json:"data,omitempty"`
	Order     *usecase.OrderOutput `json:"order,omitempty"`
	Status    string               `json:"status,omitempty"`
	Message   string               `json:"message,omitempty"`
}

// 決済開始・確認API
type PaymentHandler struct {
	checkout  *usecase.CheckoutUsecase
	finalizer usecase.Finalizer
	logger    *zap.Logger
}

// DI
func NewPaymentHandler(checkout *usecase.CheckoutUsecase, finalizer usecase.Finalizer, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{checkout: checkout, finalizer: finalizer, logger: logger}
}

// /payment 配下を登録（ミドルウェアはserver側で決める）
func (h *PaymentHandler) RegisterRoutes(g *echo.Group, optionalAuth echo.MiddlewareFunc) {
	g.POST("", h.initiate, optionalAuth)
	g.POST("/verify", h.verify)
}

func (h *PaymentHandler) initiate(c echo.Context) error {
	var req usecase.RawPaymentInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.checkout.InitiatePayment(c.Request().Context(), req, authUserFromContext(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *PaymentHandler) verify(c echo.Context) error {
	var req VerifyPaymentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	res, err := h.finalizer.FinalizeOrder(c.Request().Context(), req.PaymentID, req.OrderData)
	if err != nil {
		ce, ok := usecase.AsCheckoutError(err)
		if !ok {
			h.logger.Error("verify payment failed", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, VerifyPaymentResponse{Message: "internal error"})
		}
		//保存失敗だけ500、それ以外は画面側で判断する
		if ce.Kind == usecase.KindPersistence {
			return c.JSON(http.StatusInternalServerError, VerifyPaymentResponse{Message: ce.Message})
		}
		return c.JSON(http.StatusOK, VerifyPaymentResponse{Message: ce.Message})
	}

	if res.Status == usecase.FinalizationUnpaid {
		return c.JSON(http.StatusOK, VerifyPaymentResponse{Status: string(usecase.FinalizationUnpaid)})
	}

	out := usecase.ToOrderOutput(res.Order, res.Items)
	return c.JSON(http.StatusOK, VerifyPaymentResponse{
		IsSuccess: true,
		Data:      res.Transaction,
		Order:     &out,
	})
}
