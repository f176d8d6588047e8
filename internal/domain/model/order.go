package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPaid OrderStatus = "PAID"
)

// 決済確認済みの注文
// payment_referenceは1決済につき1件（uniqueIndexが最終防衛線）
type Order struct {
	ID               int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	PaymentReference string          `gorm:"type:varchar(255);not null;uniqueIndex" json:"payment_reference"`
	CustomerName     string          `gorm:"type:varchar(255);not null" json:"customer_name"`
	CustomerEmail    string          `gorm:"type:varchar(255);not null" json:"customer_email"`
	CustomerPhone    string          `gorm:"type:varchar(50);not null" json:"customer_phone"`
	Address          ShippingDetails `gorm:"type:text;not null;serializer:json" json:"address"`
	FulfillmentType  FulfillmentType `gorm:"type:varchar(20);not null;default:'pickup'" json:"fulfillment_type"`
	TotalAmount      decimal.Decimal `gorm:"type:numeric(12,3);not null" json:"total_amount"`
	Currency         string          `gorm:"type:varchar(3);not null;default:'KWD'" json:"currency"`
	Status           OrderStatus     `gorm:"type:varchar(20);not null;index" json:"status"`
	CreatedAt        time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
}
