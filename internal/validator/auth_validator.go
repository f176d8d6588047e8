package validator

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"storefront/internal/repository"
)

var (
	// 入力が不正
	ErrInvalidInput = errors.New("invalid input")

	// emailが既に使用済み
	ErrEmailAlreadyUsed = errors.New("email already used")
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// 登録・再設定で共通のパスワード最低文字数
const MinPasswordLength = 8

type AuthValidator struct {
	users repository.UserRepository
}

// Usecase側のinterfaceを満たす
func NewAuthValidator(users repository.UserRepository) *AuthValidator {
	return &AuthValidator{users: users}
}

// サインアップの入力を検証
func (v *AuthValidator) ValidateRegister(ctx context.Context, name string, email string, password string) error {
	email = strings.TrimSpace(email)

	// 必須チェック
	if strings.TrimSpace(name) == "" || email == "" || password == "" {
		return ErrInvalidInput
	}

	// email形式
	if !IsEmailLike(email) {
		return ErrInvalidInput
	}

	if len(password) < MinPasswordLength {
		return ErrInvalidInput
	}

	// email重複チェック（DBが必要）
	u, err := v.users.FindByEmail(ctx, strings.ToLower(email))
	if err == nil && u != nil {
		return ErrEmailAlreadyUsed
	}

	return nil
}

// ログインの入力を検証
func (v *AuthValidator) ValidateLogin(ctx context.Context, email string, password string) error {
	email = strings.TrimSpace(email)

	if email == "" || password == "" {
		return ErrInvalidInput
	}
	if !IsEmailLike(email) {
		return ErrInvalidInput
	}

	return nil
}

// 再設定メールの依頼。存在しないメールでもここでは弾かない
func (v *AuthValidator) ValidateForgotPassword(_ context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" || !IsEmailLike(email) {
		return ErrInvalidInput
	}
	return nil
}

func (v *AuthValidator) ValidateResetPassword(_ context.Context, token string, password string) error {
	if strings.TrimSpace(token) == "" || len(password) < MinPasswordLength {
		return ErrInvalidInput
	}
	return nil
}

// 簡易メール形式をチェック
func IsEmailLike(s string) bool {
	return emailRe.MatchString(s)
}
