package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type AdminCatalogUsecase struct {
	tx        repo.TransactionManager
	auditRepo repo.AuditLogRepository
	cache     ProductCache
	logger    *zap.Logger
}

func NewAdminCatalogUsecase(tx repo.TransactionManager, auditRepo repo.AuditLogRepository, cache ProductCache, logger *zap.Logger) *AdminCatalogUsecase {
	return &AdminCatalogUsecase{tx: tx, auditRepo: auditRepo, cache: cache, logger: logger}
}

type AdminProductInput struct {
	Title      string          `json:"Title"`
	TitleAr    string          `json:"TitleAr"`
	Price      decimal.Decimal `json:"price"`
	Image      string          `json:"image"`
	CategoryID int64           `json:"categoryId"`
	IsActive   *bool           `json:"is_active"`
}

type AdminCategoryInput struct {
	Name   string `json:"name"`
	NameAr string `json:"name_ar"`
}

type AdminRestaurantInput struct {
	Name    string `json:"name"`
	Tagline string `json:"tagline"`
	LogoURL string `json:"logoUrl"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Email   string `json:"email"`
}

type AdminOrderListOutput struct {
	Items []OrderOutput `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

func validateProductInput(in AdminProductInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return NewHTTPError(http.StatusBadRequest, "Title required")
	}
	if in.Price.IsNegative() {
		return NewHTTPError(http.StatusBadRequest, "price must be >= 0")
	}
	if in.CategoryID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "categoryId required")
	}
	return nil
}

func (u *AdminCatalogUsecase) CreateProduct(ctx context.Context, adminUserID int64, in AdminProductInput) (model.Product, error) {
	if adminUserID <= 0 {
		return model.Product{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err := validateProductInput(in); err != nil {
		return model.Product{}, err
	}

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	var created model.Product
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//カテゴリの存在確認
		if _, err := r.Categories().FindByID(ctx, in.CategoryID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusBadRequest, "category not found")
			}
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		p, err := r.Products().Create(ctx, model.Product{
			Title:      strings.TrimSpace(in.Title),
			TitleAr:    strings.TrimSpace(in.TitleAr),
			Price:      in.Price.Round(3),
			Image:      in.Image,
			CategoryID: in.CategoryID,
			IsActive:   active,
		})
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		created = p

		return writeAudit(ctx, r, adminUserID, model.AuditActionCreateProduct, model.AuditResourceProduct, p.ID, nil, p)
	})
	if err != nil {
		return model.Product{}, err
	}

	u.invalidateProducts(ctx)
	return created, nil
}

func (u *AdminCatalogUsecase) UpdateProduct(ctx context.Context, adminUserID int64, productID int64, in AdminProductInput) (model.Product, error) {
	if adminUserID <= 0 {
		return model.Product{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}
	if err := validateProductInput(in); err != nil {
		return model.Product{}, err
	}

	var updated model.Product
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//変更前（before）
		before, err := r.Products().FindByID(ctx, productID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		after := before
		after.Title = strings.TrimSpace(in.Title)
		after.TitleAr = strings.TrimSpace(in.TitleAr)
		after.Price = in.Price.Round(3)
		after.Image = in.Image
		after.CategoryID = in.CategoryID
		if in.IsActive != nil {
			after.IsActive = *in.IsActive
		}
		after.UpdatedAt = time.Now()

		if err := r.Products().Update(ctx, after); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusNotFound, "not found")
			}
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		updated = after

		return writeAudit(ctx, r, adminUserID, model.AuditActionUpdateProduct, model.AuditResourceProduct, productID, before, after)
	})
	if err != nil {
		return model.Product{}, err
	}

	u.invalidateProducts(ctx)
	return updated, nil
}

func (u *AdminCatalogUsecase) DeleteProduct(ctx context.Context, adminUserID int64, productID int64) error {
	if adminUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		before, err := r.Products().FindByID(ctx, productID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if err := r.Products().SoftDelete(ctx, productID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusNotFound, "not found")
			}
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		return writeAudit(ctx, r, adminUserID, model.AuditActionDeleteProduct, model.AuditResourceProduct, productID, before, nil)
	})
	if err != nil {
		return err
	}

	u.invalidateProducts(ctx)
	return nil
}

func (u *AdminCatalogUsecase) CreateCategory(ctx context.Context, adminUserID int64, in AdminCategoryInput) (model.Category, error) {
	if adminUserID <= 0 {
		return model.Category{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if strings.TrimSpace(in.Name) == "" {
		return model.Category{}, NewHTTPError(http.StatusBadRequest, "name required")
	}

	var created model.Category
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		c, err := r.Categories().Create(ctx, model.Category{
			Name:   strings.TrimSpace(in.Name),
			NameAr: strings.TrimSpace(in.NameAr),
		})
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		created = c

		return writeAudit(ctx, r, adminUserID, model.AuditActionCreateCategory, model.AuditResourceCategory, c.ID, nil, c)
	})
	if err != nil {
		return model.Category{}, err
	}
	return created, nil
}

func (u *AdminCatalogUsecase) DeleteCategory(ctx context.Context, adminUserID int64, categoryID int64) error {
	if adminUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if categoryID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid category id")
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		before, err := r.Categories().FindByID(ctx, categoryID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//商品が残っているカテゴリは消さない
		products, err := r.Products().ListPublic(ctx, repo.ProductListQuery{CategoryID: &categoryID})
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if len(products) > 0 {
			return NewHTTPError(http.StatusConflict, "category has products")
		}

		if err := r.Categories().Delete(ctx, categoryID); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		return writeAudit(ctx, r, adminUserID, model.AuditActionDeleteCategory, model.AuditResourceCategory, categoryID, before, nil)
	})
	if err != nil {
		return err
	}

	u.invalidateProducts(ctx)
	return nil
}

func (u *AdminCatalogUsecase) UpdateRestaurant(ctx context.Context, adminUserID int64, in AdminRestaurantInput) (model.RestaurantInfo, error) {
	if adminUserID <= 0 {
		return model.RestaurantInfo{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if strings.TrimSpace(in.Name) == "" {
		return model.RestaurantInfo{}, NewHTTPError(http.StatusBadRequest, "name required")
	}

	var saved model.RestaurantInfo
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//1行目が無ければ新規扱い
		before, err := r.Restaurant().Get(ctx)
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		hadBefore := err == nil

		after := before
		after.Name = strings.TrimSpace(in.Name)
		after.Tagline = in.Tagline
		after.LogoURL = in.LogoURL
		after.Phone = in.Phone
		after.Address = in.Address
		after.Email = in.Email
		after.UpdatedAt = time.Now()

		if err := r.Restaurant().Update(ctx, after); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		saved = after

		var beforeVal any
		if hadBefore {
			beforeVal = before
		}
		return writeAudit(ctx, r, adminUserID, model.AuditActionUpdateRestaurant, model.AuditResourceRestaurant, after.ID, beforeVal, after)
	})
	if err != nil {
		return model.RestaurantInfo{}, err
	}
	return saved, nil
}

// 注文一覧（新しい順）
func (u *AdminCatalogUsecase) ListOrders(ctx context.Context, f repo.AdminOrderListFilter) (AdminOrderListOutput, error) {
	// page/limitの最低限チェック
	if f.Page < 1 {
		return AdminOrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return AdminOrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	out := AdminOrderListOutput{Page: f.Page, Limit: f.Limit}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, total, err := r.Orders().ListAdmin(ctx, f)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out.Total = total
		out.Items = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			out.Items = append(out.Items, ToOrderOutput(o, items))
		}
		return nil
	})
	if err != nil {
		return AdminOrderListOutput{}, err
	}
	return out, nil
}

func (u *AdminCatalogUsecase) GetOrder(ctx context.Context, orderID int64) (OrderOutput, error) {
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out OrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		out = ToOrderOutput(o, items)
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// 監査ログ一覧
func (u *AdminCatalogUsecase) ListAuditLogs(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	f.Limit = f.EffectiveLimit()
	if f.Offset < 0 {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid offset")
	}

	logs, err := u.auditRepo.List(ctx, f)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return logs, nil
}

func (u *AdminCatalogUsecase) invalidateProducts(ctx context.Context) {
	if err := u.cache.InvalidateProducts(ctx); err != nil {
		u.logger.Warn("product cache invalidate failed", zap.Error(err))
	}
}

// 監査ログを作成
// 「誰が」「何を」「どの対象に」「どう変えたか」を残す
func writeAudit(ctx context.Context, r repo.TxRepos, actorID int64, action model.AuditAction, resType model.AuditResourceType, resID int64, before, after any) error {
	if err := r.AuditLogs().Create(ctx, model.AuditLog{
		ActorUserID:  actorID,
		Action:       action,
		ResourceType: resType,
		ResourceID:   resID,
		BeforeJSON:   toJSON(before),
		AfterJSON:    toJSON(after),
		CreatedAt:    time.Now(),
	}); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

func toJSON(v any) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
