package usecase

import (
	"time"

	"storefront/internal/domain/model"
)

type OrderItemOutput struct {
	ProductID int64  `json:"product_id"`
	Title     string `json:"title"`
	TitleAr   string `json:"title_ar,omitempty"`
	UnitPrice string `json:"unit_price"`
	Quantity  int64  `json:"quantity"`
	Image     string `json:"image,omitempty"`
}

type OrderOutput struct {
	ID               int64                 `json:"id"`
	PaymentReference string                `json:"payment_reference"`
	CustomerName     string                `json:"customer_name"`
	CustomerEmail    string                `json:"customer_email"`
	CustomerPhone    string                `json:"customer_phone"`
	Address          model.ShippingDetails `json:"address"`
	FulfillmentType  string                `json:"fulfillment_type"`
	Status           string                `json:"status"`
	TotalAmount      string                `json:"total_amount"`
	Currency         string                `json:"currency"`
	CreatedAt        time.Time             `json:"created_at"`
	Items            []OrderItemOutput     `json:"items"`
}

// 金額は3桁固定の文字列で返す（0.1+0.2問題を避ける）
func ToOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ProductID: it.ProductID,
			Title:     it.Title,
			TitleAr:   it.TitleAr,
			UnitPrice: it.UnitPrice.StringFixed(3),
			Quantity:  it.Quantity,
			Image:     it.Image,
		})
	}

	return OrderOutput{
		ID:               o.ID,
		PaymentReference: o.PaymentReference,
		CustomerName:     o.CustomerName,
		CustomerEmail:    o.CustomerEmail,
		CustomerPhone:    o.CustomerPhone,
		Address:          o.Address,
		FulfillmentType:  string(o.FulfillmentType),
		Status:           string(o.Status),
		TotalAmount:      o.TotalAmount.StringFixed(3),
		Currency:         o.Currency,
		CreatedAt:        o.CreatedAt,
		Items:            outItems,
	}
}
