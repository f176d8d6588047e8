package repository

import (
	"context"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
)

type RestaurantGormRepository struct {
	db *gorm.DB
}

func NewRestaurantGormRepository(db *gorm.DB) *RestaurantGormRepository {
	return &RestaurantGormRepository{db: db}
}

// 先頭の1行
func (r *RestaurantGormRepository) Get(ctx context.Context) (model.RestaurantInfo, error) {
	var info model.RestaurantInfo
	err := r.db.WithContext(ctx).Order("id asc").First(&info).Error
	if isNotFound(err) {
		return model.RestaurantInfo{}, repo.ErrNotFound
	}
	if err != nil {
		return model.RestaurantInfo{}, err
	}
	return info, nil
}

// まだ1行も無い（ID=0）ときは作成
func (r *RestaurantGormRepository) Update(ctx context.Context, info model.RestaurantInfo) error {
	if info.ID == 0 {
		return r.db.WithContext(ctx).Create(&info).Error
	}
	res := r.db.WithContext(ctx).Model(&model.RestaurantInfo{}).Where("id = ?", info.ID).Updates(map[string]interface{}{
		"name":     info.Name,
		"tagline":  info.Tagline,
		"logo_url": info.LogoURL,
		"phone":    info.Phone,
		"address":  info.Address,
		"email":    info.Email,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
