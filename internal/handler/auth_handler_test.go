package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"storefront/internal/config"
	"storefront/internal/domain/model"
	"storefront/internal/handler"
	repo "storefront/internal/repository"
	"storefront/internal/usecase"
	"storefront/internal/validator"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// 誰も登録されていないユーザーリポジトリ
type emptyUserRepo struct{}

func (emptyUserRepo) Create(context.Context, *model.User) error { return nil }
func (emptyUserRepo) FindByID(context.Context, int64) (*model.User, error) {
	return nil, repo.ErrUserNotFound
}
func (emptyUserRepo) FindByEmail(context.Context, string) (*model.User, error) {
	return nil, repo.ErrUserNotFound
}
func (emptyUserRepo) Update(context.Context, *model.User) error { return nil }
func (emptyUserRepo) FindByResetTokenHash(context.Context, string) (*model.User, error) {
	return nil, repo.ErrUserNotFound
}

type nopMailer struct{ sent int }

func (m *nopMailer) SendPasswordReset(context.Context, string, string, string) error {
	m.sent++
	return nil
}

func newAuthEnv() (*echo.Echo, *nopMailer) {
	users := emptyUserRepo{}
	mailer := &nopMailer{}
	uc := usecase.NewAuthUsecase(config.Config{JWTSecret: "s"}, users, validator.NewAuthValidator(users), mailer, zap.NewNop())

	e := echo.New()
	handler.NewAuthHandler(uc).RegisterPasswordRoutes(e.Group("/auth"))
	return e, mailer
}

func TestForgotPassword_SameAnswerForUnknownEmail(t *testing.T) {
	e, mailer := newAuthEnv()

	rec := postJSON(e, "/auth/forgot-password", `{"email":"nobody@example.com"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var body handler.SuccessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, usecase.ForgotPasswordMessage, body.Message)
	assert.Zero(t, mailer.sent)
}

func TestForgotPassword_InvalidEmail(t *testing.T) {
	e, _ := newAuthEnv()

	rec := postJSON(e, "/auth/forgot-password", `{"email":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResetPassword_UnknownToken(t *testing.T) {
	e, _ := newAuthEnv()

	rec := postJSON(e, "/auth/reset-password", `{"token":"abc","password":"NewPassword1"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"invalid token"}`, rec.Body.String())
}
