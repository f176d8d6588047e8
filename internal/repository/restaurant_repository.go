package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// 店舗情報（1行）の取得・更新
type RestaurantRepository interface {
	//先頭の1行を返す。無ければErrNotFound
	Get(ctx context.Context) (model.RestaurantInfo, error)
	Update(ctx context.Context, info model.RestaurantInfo) error
}
