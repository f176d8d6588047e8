package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// 注文明細。注文本体と同じトランザクションで書く
type OrderItemRepository interface {
	// itemsのOrderIDはorderIDで上書きされる。空なら何もしない
	CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error

	// 登録順（id昇順）で返す
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error)
}
