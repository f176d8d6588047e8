package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Product struct {
	ID         int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Title      string          `gorm:"type:varchar(255);not null" json:"Title"`
	TitleAr    string          `gorm:"type:varchar(255)" json:"TitleAr"`
	Price      decimal.Decimal `gorm:"type:numeric(12,3);not null" json:"price"`
	Image      string          `gorm:"type:varchar(1024)" json:"image"`
	CategoryID int64           `gorm:"not null;index" json:"categoryId"`
	IsActive   bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt  `gorm:"index" json:"-"`
}
