package handler

import (
	"net/http"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// POST /checkout/resume の入力
type ResumeCheckoutRequest struct {
	SessionToken string `json:"sessionToken"`
	PaymentID    string `json:"paymentId"`
}

type CheckoutHandler struct {
	uc *usecase.CheckoutUsecase
}

// DI
func NewCheckoutHandler(uc *usecase.CheckoutUsecase) *CheckoutHandler {
	return &CheckoutHandler{uc: uc}
}

func (h *CheckoutHandler) RegisterRoutes(g *echo.Group) {
	g.POST("", h.start)
	g.POST("/resume", h.resume)
}

func (h *CheckoutHandler) start(c echo.Context) error {
	var req usecase.InitiateCheckoutInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.Initiate(c.Request().Context(), req, authUserFromContext(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// 決済から戻ったあと：結果は常に200で status=success|failed
func (h *CheckoutHandler) resume(c echo.Context) error {
	var req ResumeCheckoutRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out := h.uc.ResumeAfterRedirect(c.Request().Context(), req.SessionToken, req.PaymentID, authUserFromContext(c))
	return c.JSON(http.StatusOK, out)
}
