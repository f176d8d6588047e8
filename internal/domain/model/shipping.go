package model

type FulfillmentType string

const (
	FulfillmentPickup   FulfillmentType = "pickup"
	FulfillmentDelivery FulfillmentType = "delivery"
)

const (
	// 店頭受け取りのときの住所の埋め値
	PickupAreaSentinel = "Pickup"
	// 住所なしで確定したときの埋め値
	PickupStoreAreaSentinel = "Pickup/Store"
	EmptyFieldSentinel      = "-"
)

// 配送先・連絡先
// ordersにはJSONのまま保存する（フォームの項目を落とさないため）
type ShippingDetails struct {
	Name              string `json:"name"`
	Phone             string `json:"phone"`
	Email             string `json:"email"`
	Area              string `json:"area"`
	Block             string `json:"block"`
	Street            string `json:"street"`
	House             string `json:"house"`
	Avenue            string `json:"avenue,omitempty"`
	SpecialDirections string `json:"specialDirections,omitempty"`
}
