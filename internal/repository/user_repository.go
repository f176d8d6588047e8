package repository

import (
	"context"
	"errors"

	"storefront/internal/domain/model"
)

// ユーザーが見つかりませんを統一
var ErrUserNotFound = errors.New("user not found")

// 保存・取得を約束
type UserRepository interface {
	//新規ユーザー作成
	Create(ctx context.Context, user *model.User) error
	// IDからユーザーを1件取得する。
	FindByID(ctx context.Context, userID int64) (*model.User, error)
	//メールからユーザーを一件取得する。
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	//最後のログイン時刻など
	Update(ctx context.Context, user *model.User) error
	// パスワード再設定トークンのハッシュで1件取得（無ければErrUserNotFound）
	FindByResetTokenHash(ctx context.Context, tokenHash string) (*model.User, error)
}
