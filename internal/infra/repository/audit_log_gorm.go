package repository

import (
	"context"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
)

type auditLogGormRepository struct {
	db *gorm.DB
}

func NewAuditLogGormRepository(db *gorm.DB) repo.AuditLogRepository {
	return &auditLogGormRepository{db: db}
}

// before/afterのJSONはusecase側で組み立て済み
func (r *auditLogGormRepository) Create(ctx context.Context, log model.AuditLog) error {
	return r.db.WithContext(ctx).Create(&log).Error
}

func (r *auditLogGormRepository) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	logs := []model.AuditLog{}
	err := r.db.WithContext(ctx).
		Scopes(auditLogConditions(filter)).
		Order("id DESC").
		Limit(filter.EffectiveLimit()).
		Offset(offset).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// 指定された条件だけWHEREに積む
func auditLogConditions(f repo.AuditLogFilter) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		q = q.Model(&model.AuditLog{})
		conds := []struct {
			set   bool
			query string
			arg   func() any
		}{
			{f.ActorUserID != nil, "actor_user_id = ?", func() any { return *f.ActorUserID }},
			{f.Action != nil, "action = ?", func() any { return *f.Action }},
			{f.ResourceType != nil, "resource_type = ?", func() any { return *f.ResourceType }},
			{f.ResourceID != nil, "resource_id = ?", func() any { return *f.ResourceID }},
			{f.CreatedFrom != nil, "created_at >= ?", func() any { return *f.CreatedFrom }},
			{f.CreatedTo != nil, "created_at <= ?", func() any { return *f.CreatedTo }},
		}
		for _, c := range conds {
			if c.set {
				q = q.Where(c.query, c.arg())
			}
		}
		return q
	}
}
