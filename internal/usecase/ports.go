package usecase

import (
	"context"

	"storefront/internal/domain/model"
)

// 注文確定イベントの送信先（Kafka / noop）
type OrderEventPublisher interface {
	PublishOrderPaid(ctx context.Context, order model.Order, items []model.OrderItem) error
}

// 商品一覧のキャッシュ（Redis / noop）
type ProductCache interface {
	GetProducts(ctx context.Context, key string) ([]model.Product, bool, error)
	SetProducts(ctx context.Context, key string, products []model.Product) error
	InvalidateProducts(ctx context.Context) error
}

// ログイン中のユーザー（チェックアウトでは任意）
type AuthUser struct {
	ID    int64
	Name  string
	Email string
}
