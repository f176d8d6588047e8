package handler

import (
	"errors"
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/usecase"
	"storefront/internal/validator"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		return c.JSON(he.Status, ErrorResponse{Error: he.Message})
	}
	if ce, ok := usecase.AsCheckoutError(err); ok {
		return c.JSON(checkoutStatus(ce.Kind), ErrorResponse{Error: ce.Message})
	}

	switch {
	case errors.Is(err, validator.ErrInvalidInput), errors.Is(err, usecase.ErrValidation):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid input"})
	case errors.Is(err, validator.ErrEmailAlreadyUsed), errors.Is(err, usecase.ErrConflict):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: "conflict"})
	case errors.Is(err, usecase.ErrUnauthorized):
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	case errors.Is(err, usecase.ErrForbidden):
		return c.JSON(http.StatusForbidden, ErrorResponse{Error: "forbidden"})
	}

	//500
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

// 決済開始時のステータス
func checkoutStatus(kind usecase.ErrorKind) int {
	switch kind {
	case usecase.KindValidation, usecase.KindGatewayRejected:
		return http.StatusBadRequest
	case usecase.KindGatewayConnectivity:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// AuthJWTが入れたuser_idを取り出す
func getUserIDFromContext(c echo.Context) (int64, bool) {
	v := c.Get(middleware.CtxUserIDKey)
	id, ok := v.(int64)
	if !ok || id <= 0 {
		return 0, false
	}
	return id, true
}

// OptionalAuthの結果（ゲストならnil）
func authUserFromContext(c echo.Context) *usecase.AuthUser {
	id, ok := getUserIDFromContext(c)
	if !ok {
		return nil
	}
	name, _ := c.Get(middleware.CtxUserNameKey).(string)
	email, _ := c.Get(middleware.CtxUserEmailKey).(string)
	return &usecase.AuthUser{ID: id, Name: name, Email: email}
}
