package repository

import (
	"context"
	"time"

	"storefront/internal/domain/model"
)

// 監査ログ一覧のページ上限
const (
	DefaultAuditLimit = 50
	MaxAuditLimit     = 200
)

// 管理画面の監査ログ検索条件。nilの項目は絞り込まない
type AuditLogFilter struct {
	ActorUserID  *int64
	Action       *model.AuditAction
	ResourceType *model.AuditResourceType
	ResourceID   *int64
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
	Limit        int
	Offset       int
}

// 範囲外のlimitを既定値に寄せる
func (f AuditLogFilter) EffectiveLimit() int {
	if f.Limit <= 0 || f.Limit > MaxAuditLimit {
		return DefaultAuditLimit
	}
	return f.Limit
}

// 商品・カテゴリ・店舗の変更履歴。書き込みは管理系トランザクション内から呼ぶ
type AuditLogRepository interface {
	Create(ctx context.Context, log model.AuditLog) error
	List(ctx context.Context, filter AuditLogFilter) ([]model.AuditLog, error)
}
