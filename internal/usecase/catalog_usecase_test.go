package usecase_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type catalogDeps struct {
	products   *ProductRepoMock
	categories *CategoryRepoMock
	restaurant *RestaurantRepoMock
	cache      *ProductCacheMock
}

func newCatalog() (*usecase.CatalogUsecase, catalogDeps) {
	d := catalogDeps{
		products:   new(ProductRepoMock),
		categories: new(CategoryRepoMock),
		restaurant: new(RestaurantRepoMock),
		cache:      new(ProductCacheMock),
	}
	return usecase.NewCatalogUsecase(d.products, d.categories, d.restaurant, d.cache, zap.NewNop()), d
}

func requireHTTPStatus(t *testing.T, err error, status int) {
	t.Helper()
	he, ok := usecase.AsHTTPError(err)
	require.True(t, ok, "want HTTPError, got %v", err)
	assert.Equal(t, status, he.Status)
}

func TestListProducts_CacheHit(t *testing.T) {
	uc, d := newCatalog()

	cached := []model.Product{{ID: 1, Title: "Burger", Price: decimal.RequireFromString("1.5"), IsActive: true}}
	d.cache.On("GetProducts", mock.Anything, "all").Return(cached, true, nil)

	got, err := uc.ListProducts(context.Background(), usecase.ListProductsInput{})
	require.NoError(t, err)
	assert.Equal(t, cached, got)
	d.products.AssertNotCalled(t, "ListPublic", mock.Anything, mock.Anything)
}

func TestListProducts_CacheMiss_StoresResult(t *testing.T) {
	uc, d := newCatalog()

	catID := int64(3)
	rows := []model.Product{{ID: 2, Title: "Fries", CategoryID: catID, IsActive: true}}
	d.cache.On("GetProducts", mock.Anything, "category:3").Return(nil, false, nil)
	d.products.On("ListPublic", mock.Anything, repo.ProductListQuery{CategoryID: &catID}).Return(rows, nil)
	d.cache.On("SetProducts", mock.Anything, "category:3", rows).Return(nil)

	got, err := uc.ListProducts(context.Background(), usecase.ListProductsInput{CategoryID: &catID})
	require.NoError(t, err)
	assert.Equal(t, rows, got)
	d.cache.AssertExpectations(t)
}

// キャッシュが壊れていてもDBから返す
func TestListProducts_CacheErrorFallsBackToDB(t *testing.T) {
	uc, d := newCatalog()

	rows := []model.Product{{ID: 1, Title: "Burger", IsActive: true}}
	d.cache.On("GetProducts", mock.Anything, "all").Return(nil, false, errors.New("redis down"))
	d.products.On("ListPublic", mock.Anything, mock.Anything).Return(rows, nil)
	d.cache.On("SetProducts", mock.Anything, "all", rows).Return(errors.New("redis down"))

	got, err := uc.ListProducts(context.Background(), usecase.ListProductsInput{})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestListProducts_InvalidCategory(t *testing.T) {
	uc, d := newCatalog()

	zero := int64(0)
	_, err := uc.ListProducts(context.Background(), usecase.ListProductsInput{CategoryID: &zero})

	requireHTTPStatus(t, err, http.StatusBadRequest)
	d.cache.AssertNotCalled(t, "GetProducts", mock.Anything, mock.Anything)
}

func TestListProducts_DBError(t *testing.T) {
	uc, d := newCatalog()

	d.cache.On("GetProducts", mock.Anything, "all").Return(nil, false, nil)
	d.products.On("ListPublic", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))

	_, err := uc.ListProducts(context.Background(), usecase.ListProductsInput{})
	requireHTTPStatus(t, err, http.StatusInternalServerError)
	d.cache.AssertNotCalled(t, "SetProducts", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetProduct(t *testing.T) {
	tests := []struct {
		name       string
		id         int64
		setup      func(d catalogDeps)
		wantStatus int
	}{
		{name: "invalid id", id: 0, setup: func(catalogDeps) {}, wantStatus: http.StatusBadRequest},
		{
			name: "not found",
			id:   9,
			setup: func(d catalogDeps) {
				d.products.On("FindByID", mock.Anything, int64(9)).Return(model.Product{}, repo.ErrNotFound)
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name: "inactive is hidden",
			id:   9,
			setup: func(d catalogDeps) {
				d.products.On("FindByID", mock.Anything, int64(9)).Return(model.Product{ID: 9, IsActive: false}, nil)
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name: "db error",
			id:   9,
			setup: func(d catalogDeps) {
				d.products.On("FindByID", mock.Anything, int64(9)).Return(model.Product{}, errors.New("boom"))
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc, d := newCatalog()
			tt.setup(d)

			_, err := uc.GetProduct(context.Background(), tt.id)
			requireHTTPStatus(t, err, tt.wantStatus)
		})
	}

	t.Run("active product", func(t *testing.T) {
		uc, d := newCatalog()
		d.products.On("FindByID", mock.Anything, int64(1)).Return(model.Product{ID: 1, Title: "Burger", IsActive: true}, nil)

		p, err := uc.GetProduct(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, "Burger", p.Title)
	})
}

func TestGetRestaurant_NotFound(t *testing.T) {
	uc, d := newCatalog()
	d.restaurant.On("Get", mock.Anything).Return(model.RestaurantInfo{}, repo.ErrNotFound)

	_, err := uc.GetRestaurant(context.Background())
	requireHTTPStatus(t, err, http.StatusNotFound)
}

func TestListCategories(t *testing.T) {
	uc, d := newCatalog()
	d.categories.On("List", mock.Anything).Return([]model.Category{{ID: 1, Name: "Burgers"}}, nil)

	got, err := uc.ListCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Burgers", got[0].Name)
}
