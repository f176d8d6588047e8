package repository

import (
	"context"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
)

// 管理画面の注文一覧のページング既定値
const (
	defaultOrderPageLimit = 50
	maxOrderPageLimit     = 100
)

type OrderGormRepository struct {
	db *gorm.DB
}

func NewOrderGormRepository(db *gorm.DB) *OrderGormRepository {
	return &OrderGormRepository{db: db}
}

func (r *OrderGormRepository) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	o, found, err := r.first(ctx, "id = ?", orderID)
	if err != nil {
		return model.Order{}, err
	}
	if !found {
		return model.Order{}, repo.ErrNotFound
	}
	return o, nil
}

// payment_referenceのunique違反はErrDuplicateKeyに寄せる
func (r *OrderGormRepository) Create(ctx context.Context, order model.Order) (int64, error) {
	if err := r.db.WithContext(ctx).Create(&order).Error; err != nil {
		return 0, translateDuplicate(err)
	}
	return order.ID, nil
}

// 決済確認の冪等チェック用
func (r *OrderGormRepository) FindByPaymentReference(ctx context.Context, ref string) (model.Order, bool, error) {
	return r.first(ctx, "payment_reference = ?", ref)
}

func (r *OrderGormRepository) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	page, limit := f.Page, f.Limit
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > maxOrderPageLimit {
		limit = defaultOrderPageLimit
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Order{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orders := []model.Order{}
	if total == 0 {
		return orders, 0, nil
	}
	err := r.db.WithContext(ctx).
		Order("id desc").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *OrderGormRepository) first(ctx context.Context, query string, arg any) (model.Order, bool, error) {
	var o model.Order
	err := r.db.WithContext(ctx).Where(query, arg).Take(&o).Error
	switch {
	case isNotFound(err):
		return model.Order{}, false, nil
	case err != nil:
		return model.Order{}, false, err
	}
	return o, true, nil
}
