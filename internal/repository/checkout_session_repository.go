package repository

import (
	"context"
	"errors"
	"time"

	"storefront/internal/domain/model"
)

var ErrSessionNotFound = errors.New("checkout session not found")

// 決済のリダイレクトをまたいで保持するカート・配送先
// タブ単位のトークンで引く（サーバー側のsessionStorage相当）
type CheckoutSession struct {
	Token       string                 `json:"token"`
	CartItems   []model.CartItem       `json:"cartItems"`
	Shipping    *model.ShippingDetails `json:"shippingAddress"`
	Fulfillment model.FulfillmentType  `json:"orderType"`
	Language    string                 `json:"language"`
	Currency    string                 `json:"currency"`
	InvoiceID   string                 `json:"invoiceId,omitempty"`
	CreatedAt   time.Time              `json:"createdAt"`
}

type CheckoutSessionStore interface {
	Save(ctx context.Context, s CheckoutSession, ttl time.Duration) error
	//無い・期限切れはErrSessionNotFound
	Get(ctx context.Context, token string) (CheckoutSession, error)
	Delete(ctx context.Context, token string) error
}
