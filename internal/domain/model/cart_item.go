package model

import "github.com/shopspring/decimal"

// カートの明細（DBには保存しない）
// 決済確認後にOrderItemへ展開される。
type CartItem struct {
	ProductID int64           `json:"id"`
	Title     string          `json:"Title"`
	TitleAr   string          `json:"TitleAr,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image"`
	Quantity  int64           `json:"qty"`
}

// 小計（単価×数量）
func (c CartItem) Subtotal() decimal.Decimal {
	return c.Price.Mul(decimal.NewFromInt(c.Quantity))
}
