package payment

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// 決済ゲートウェイのインボイス状態（支払い済み）
const StatusPaid = "PAID"

// ネットワーク・タイムアウトなど（ユーザーの入力とは無関係）
var ErrConnectivity = errors.New("could not reach payment gateway")

// ゲートウェイが業務的に拒否した（IsSuccess=false / 4xx）
type RejectedError struct {
	Messages []string
}

func (e *RejectedError) Error() string {
	if len(e.Messages) == 0 {
		return "payment gateway rejected the request"
	}
	return strings.Join(e.Messages, "; ")
}

func AsRejected(err error) (*RejectedError, bool) {
	var re *RejectedError
	ok := errors.As(err, &re)
	return re, ok
}

type Customer struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Mobile string `json:"mobile,omitempty"`
}

// 決済開始の入力
type InitiateRequest struct {
	Amount            decimal.Decimal
	Currency          string
	Customer          Customer
	CallbackURL       string
	Language          string // "AR" / "EN"
	CustomerReference string
}

// 決済開始の結果（このURLへリダイレクトする）
type Session struct {
	InvoiceID  string
	PaymentURL string
}

// 決済状態の照会結果
type Status struct {
	InvoiceID    string
	InvoiceState string
	Amount       decimal.Decimal
	Customer     Customer
	// ゲートウェイが返したDataそのもの（クライアントへそのまま返す）
	Raw json.RawMessage
}

func (s Status) IsPaid() bool {
	return strings.EqualFold(strings.TrimSpace(s.InvoiceState), StatusPaid)
}

// 外部決済ゲートウェイ
type Gateway interface {
	InitiatePayment(ctx context.Context, req InitiateRequest) (Session, error)
	GetPaymentStatus(ctx context.Context, paymentReference string) (Status, error)
}

// "ar"ならAR、それ以外はEN
func LanguageCode(lang string) string {
	if strings.EqualFold(strings.TrimSpace(lang), "ar") {
		return "AR"
	}
	return "EN"
}
