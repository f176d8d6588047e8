package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 注文時点のカート明細を凍結したもの
type OrderItem struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   int64           `gorm:"not null;index" json:"order_id"`
	ProductID int64           `gorm:"not null;index" json:"product_id"`
	Title     string          `gorm:"type:varchar(255);not null" json:"title"`
	TitleAr   string          `gorm:"type:varchar(255)" json:"title_ar"`
	Quantity  int64           `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,3);not null" json:"unit_price"`
	Image     string          `gorm:"type:varchar(1024)" json:"image"`
	CreatedAt time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
}
