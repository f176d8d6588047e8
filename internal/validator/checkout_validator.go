package validator

import (
	"errors"
	"fmt"
	"strings"

	"storefront/internal/domain/model"
)

var (
	// カートが空
	ErrEmptyCart = errors.New("cart is empty")
	// 数量・価格・IDがおかしい明細
	ErrInvalidCartItem = errors.New("invalid cart item")
	// 名前・電話番号が無い
	ErrMissingContact = errors.New("name and phone are required")
	// 配送なのに住所が足りない
	ErrMissingAddress = errors.New("area, block, street and house are required for delivery")
	// pickup/delivery以外
	ErrInvalidFulfillment = errors.New("order type must be pickup or delivery")
	// 決済IDが無い
	ErrMissingPaymentReference = errors.New("missing payment id")
)

// paymentReferenceの最大長（orders.payment_referenceの型に合わせる）
const maxPaymentReferenceLen = 255

// カートの中身をチェック
func ValidateCart(items []model.CartItem) error {
	if len(items) == 0 {
		return ErrEmptyCart
	}
	for i, it := range items {
		if it.ProductID <= 0 {
			return fmt.Errorf("%w: line %d has no product id", ErrInvalidCartItem, i+1)
		}
		if it.Quantity < 1 {
			return fmt.Errorf("%w: line %d quantity must be >= 1", ErrInvalidCartItem, i+1)
		}
		if it.Price.IsNegative() {
			return fmt.Errorf("%w: line %d price must be >= 0", ErrInvalidCartItem, i+1)
		}
	}
	return nil
}

func ValidateFulfillment(f model.FulfillmentType) error {
	switch f {
	case model.FulfillmentPickup, model.FulfillmentDelivery:
		return nil
	default:
		return ErrInvalidFulfillment
	}
}

// 受け取り方法ごとの必須項目をチェック
// pickupは名前+電話、deliveryはそれに加えて住所4項目
func ValidateShipping(f model.FulfillmentType, s *model.ShippingDetails) error {
	if err := ValidateFulfillment(f); err != nil {
		return err
	}
	if s == nil || blank(s.Name) || blank(s.Phone) {
		return ErrMissingContact
	}
	if f == model.FulfillmentDelivery {
		if blank(s.Area) || blank(s.Block) || blank(s.Street) || blank(s.House) {
			return ErrMissingAddress
		}
	}
	return nil
}

// NormalizeShipping は前後の空白を落とし、pickupなら住所を埋め値にする
func NormalizeShipping(f model.FulfillmentType, s model.ShippingDetails) model.ShippingDetails {
	out := model.ShippingDetails{
		Name:              strings.TrimSpace(s.Name),
		Phone:             strings.TrimSpace(s.Phone),
		Email:             strings.TrimSpace(s.Email),
		Area:              strings.TrimSpace(s.Area),
		Block:             strings.TrimSpace(s.Block),
		Street:            strings.TrimSpace(s.Street),
		House:             strings.TrimSpace(s.House),
		Avenue:            strings.TrimSpace(s.Avenue),
		SpecialDirections: strings.TrimSpace(s.SpecialDirections),
	}
	if f == model.FulfillmentPickup {
		out.Area = model.PickupAreaSentinel
		out.Block = model.EmptyFieldSentinel
		out.Street = model.EmptyFieldSentinel
		out.House = model.EmptyFieldSentinel
		out.Avenue = ""
	}
	return out
}

func ValidatePaymentReference(ref string) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ErrMissingPaymentReference
	}
	if len(ref) > maxPaymentReferenceLen {
		return fmt.Errorf("%w: too long", ErrMissingPaymentReference)
	}
	return nil
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
