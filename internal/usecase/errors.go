package usecase

import (
	"errors"
	"fmt"
)

// カタログ・管理画面・認証はステータス付きエラーで返す
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

var (
	//400 入力不足
	ErrValidation = errors.New("validation error")
	//401 認証失敗
	ErrUnauthorized = errors.New("unauthorized")
	//403　権限
	ErrForbidden = errors.New("forbidden")
	//競合
	ErrConflict = errors.New("conflict")
	//500
	ErrInternal = errors.New("internal error")
	//決済が別のチェックアウトの請求書
	ErrInvoiceMismatch = errors.New("payment does not belong to this checkout")
)

// 決済まわりの失敗の種類
type ErrorKind string

const (
	// ユーザーが直せる入力ミス（ゲートウェイもDBも呼ばない）
	KindValidation ErrorKind = "validation"
	// ゲートウェイに届かなかった（再試行してよい）
	KindGatewayConnectivity ErrorKind = "gateway_connectivity"
	// ゲートウェイが拒否した
	KindGatewayRejected ErrorKind = "gateway_rejected"
	// 注文の保存に失敗（rollback済み）
	KindPersistence ErrorKind = "persistence"
)

// チェックアウト・注文確定のエラー
// Messageはクライアントにそのまま見せてよい短い文言、Errは内部の原因（ログ用）
type CheckoutError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *CheckoutError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *CheckoutError) Unwrap() error { return e.Err }

func AsCheckoutError(err error) (*CheckoutError, bool) {
	var ce *CheckoutError
	ok := errors.As(err, &ce)
	return ce, ok
}

func newCheckoutError(kind ErrorKind, msg string, err error) *CheckoutError {
	return &CheckoutError{Kind: kind, Message: msg, Err: err}
}
