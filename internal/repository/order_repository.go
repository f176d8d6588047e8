package repository

import (
	"context"

	"storefront/internal/domain/model"
)

type AdminOrderListFilter struct {
	Page  int
	Limit int
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)

	//作成したIDを返す。payment_referenceが既にあればErrDuplicateKey
	Create(ctx context.Context, order model.Order) (int64, error)

	//決済IDで検索（見つからなければfound=false）
	FindByPaymentReference(ctx context.Context, ref string) (model.Order, bool, error)

	//管理者用の注文一覧
	ListAdmin(ctx context.Context, f AdminOrderListFilter) ([]model.Order, int64, error)
}
