package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"go.uber.org/zap"
)

type CatalogUsecase struct {
	products   repo.ProductRepository
	categories repo.CategoryRepository
	restaurant repo.RestaurantRepository
	cache      ProductCache
	logger     *zap.Logger
}

// DI
func NewCatalogUsecase(
	products repo.ProductRepository,
	categories repo.CategoryRepository,
	restaurant repo.RestaurantRepository,
	cache ProductCache,
	logger *zap.Logger,
) *CatalogUsecase {
	return &CatalogUsecase{
		products:   products,
		categories: categories,
		restaurant: restaurant,
		cache:      cache,
		logger:     logger,
	}
}

// GET /products の入力
type ListProductsInput struct {
	CategoryID *int64
}

// 公開中の商品一覧（キャッシュ→DB）
func (u *CatalogUsecase) ListProducts(ctx context.Context, in ListProductsInput) ([]model.Product, error) {
	if in.CategoryID != nil && *in.CategoryID <= 0 {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid category_id")
	}

	key := productListKey(in.CategoryID)
	if cached, hit, err := u.cache.GetProducts(ctx, key); err != nil {
		//キャッシュが落ちていてもDBから返す
		u.logger.Warn("product cache read failed", zap.String("key", key), zap.Error(err))
	} else if hit {
		return cached, nil
	}

	items, err := u.products.ListPublic(ctx, repo.ProductListQuery{CategoryID: in.CategoryID})
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := u.cache.SetProducts(ctx, key, items); err != nil {
		u.logger.Warn("product cache write failed", zap.String("key", key), zap.Error(err))
	}
	return items, nil
}

func (u *CatalogUsecase) GetProduct(ctx context.Context, productID int64) (model.Product, error) {
	if productID <= 0 {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	p, err := u.products.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Product{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	//非公開は存在しない扱い
	if !p.IsActive {
		return model.Product{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	return p, nil
}

func (u *CatalogUsecase) ListCategories(ctx context.Context) ([]model.Category, error) {
	items, err := u.categories.List(ctx)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return items, nil
}

func (u *CatalogUsecase) GetRestaurant(ctx context.Context) (model.RestaurantInfo, error) {
	info, err := u.restaurant.Get(ctx)
	if errors.Is(err, repo.ErrNotFound) {
		return model.RestaurantInfo{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.RestaurantInfo{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return info, nil
}

func productListKey(categoryID *int64) string {
	if categoryID == nil {
		return "all"
	}
	return fmt.Sprintf("category:%d", *categoryID)
}
