package usecase

import (
	"context"
	"errors"
	"net/url"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/domain/payment"
	"storefront/internal/metrics"
	repo "storefront/internal/repository"
	"storefront/internal/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// チェックアウトが使う注文確定（テストで差し替える）
type Finalizer interface {
	FinalizeOrder(ctx context.Context, paymentReference string, p OrderPayload) (FinalizationResult, error)
}

type CheckoutConfig struct {
	// ゲートウェイから戻ってくるURL（成功・失敗とも同じ）
	CallbackURL     string
	SessionTTL      time.Duration
	DefaultCurrency string
	GatewayTimeout  time.Duration
}

// POST /checkout の入力
type InitiateCheckoutInput struct {
	CartItems       []model.CartItem       `json:"cartItems"`
	OrderType       model.FulfillmentType  `json:"orderType"`
	ShippingAddress *model.ShippingDetails `json:"shippingAddress"`
	Language        string                 `json:"language"`
	Currency        string                 `json:"currency"`
}

type CheckoutStarted struct {
	URL          string `json:"url"`
	InvoiceID    string `json:"invoiceId"`
	SessionToken string `json:"sessionToken"`
}

// POST /payment の入力（カートを持たない素の決済開始）
type RawPaymentInput struct {
	Amount          decimal.Decimal        `json:"amount"`
	Currency        string                 `json:"currency"`
	Customer        *CustomerInfo          `json:"customer"`
	Language        string                 `json:"language"`
	ShippingAddress *model.ShippingDetails `json:"shippingAddress"`
}

type PaymentStarted struct {
	URL       string `json:"url"`
	InvoiceID string `json:"invoiceId"`
}

const (
	VerificationSuccess = "success"
	VerificationFailed  = "failed"
)

// 決済から戻ったあとの結果（画面は 成功 / 失敗 の2択）
type VerificationOutcome struct {
	Status  string       `json:"status"`
	Message string       `json:"message,omitempty"`
	Order   *OrderOutput `json:"order,omitempty"`
}

const connectivityMessage = "could not reach payment gateway, please try again"

type CheckoutUsecase struct {
	sessions  repo.CheckoutSessionStore
	gateway   payment.Gateway
	finalizer Finalizer
	cfg       CheckoutConfig
	logger    *zap.Logger
}

// DI
func NewCheckoutUsecase(
	sessions repo.CheckoutSessionStore,
	gateway payment.Gateway,
	finalizer Finalizer,
	cfg CheckoutConfig,
	logger *zap.Logger,
) *CheckoutUsecase {
	return &CheckoutUsecase{
		sessions:  sessions,
		gateway:   gateway,
		finalizer: finalizer,
		cfg:       cfg,
		logger:    logger,
	}
}

// Initiate はカートと配送先を検証してセッションに保存し、決済URLを返す
func (u *CheckoutUsecase) Initiate(ctx context.Context, in InitiateCheckoutInput, authUser *AuthUser) (CheckoutStarted, error) {
	//カート・受け取り方法のチェック（ここで弾けばゲートウェイもストアも呼ばない）
	if err := validator.ValidateCart(in.CartItems); err != nil {
		metrics.RecordPaymentInitiation(metrics.OutcomeValidation)
		return CheckoutStarted{}, newCheckoutError(KindValidation, err.Error(), err)
	}
	if err := validator.ValidateShipping(in.OrderType, in.ShippingAddress); err != nil {
		metrics.RecordPaymentInitiation(metrics.OutcomeValidation)
		return CheckoutStarted{}, newCheckoutError(KindValidation, err.Error(), err)
	}
	shipping := validator.NormalizeShipping(in.OrderType, *in.ShippingAddress)

	amount := cartTotal(in.CartItems)
	if !amount.IsPositive() {
		metrics.RecordPaymentInitiation(metrics.OutcomeValidation)
		return CheckoutStarted{}, newCheckoutError(KindValidation, "amount must be greater than zero", validator.ErrInvalidCartItem)
	}

	var authName, authEmail string
	if authUser != nil {
		authName, authEmail = authUser.Name, authUser.Email
	}
	currency := firstNonEmpty(in.Currency, u.cfg.DefaultCurrency)

	//ゲートウェイへ行く前にセッションを保存（戻ってきたときに使う）
	token := uuid.NewString()
	sess := repo.CheckoutSession{
		Token:       token,
		CartItems:   in.CartItems,
		Shipping:    &shipping,
		Fulfillment: in.OrderType,
		Language:    in.Language,
		Currency:    currency,
		CreatedAt:   time.Now(),
	}
	if err := u.sessions.Save(ctx, sess, u.cfg.SessionTTL); err != nil {
		u.logger.Error("save checkout session failed", zap.Error(err))
		return CheckoutStarted{}, newCheckoutError(KindPersistence, "could not start checkout, please try again", err)
	}

	started, err := u.initiate(ctx, payment.InitiateRequest{
		Amount:   amount,
		Currency: currency,
		Customer: payment.Customer{
			Name:  firstNonEmpty(shipping.Name, authName, GuestName),
			Email: firstNonEmpty(shipping.Email, authEmail, GuestEmail),
		},
		CallbackURL:       u.callbackURL(token),
		Language:          payment.LanguageCode(in.Language),
		CustomerReference: firstNonEmpty(shipping.Name, "OrderRef"),
	})
	if err != nil {
		//失敗したらセッションは残さない
		if delErr := u.sessions.Delete(ctx, token); delErr != nil {
			u.logger.Warn("delete checkout session failed", zap.String("session", token), zap.Error(delErr))
		}
		return CheckoutStarted{}, err
	}

	//戻ってきた決済がこの請求書のものか照合するので、保存できなければ始めない
	sess.InvoiceID = started.InvoiceID
	if err := u.sessions.Save(ctx, sess, u.cfg.SessionTTL); err != nil {
		u.logger.Error("store invoice id on session failed", zap.String("session", token), zap.Error(err))
		if delErr := u.sessions.Delete(ctx, token); delErr != nil {
			u.logger.Warn("delete checkout session failed", zap.String("session", token), zap.Error(delErr))
		}
		return CheckoutStarted{}, newCheckoutError(KindPersistence, "could not start checkout, please try again", err)
	}

	return CheckoutStarted{URL: started.URL, InvoiceID: started.InvoiceID, SessionToken: token}, nil
}

// InitiatePayment は金額をそのまま渡して決済URLを作る
func (u *CheckoutUsecase) InitiatePayment(ctx context.Context, in RawPaymentInput, authUser *AuthUser) (PaymentStarted, error) {
	if !in.Amount.IsPositive() {
		metrics.RecordPaymentInitiation(metrics.OutcomeValidation)
		return PaymentStarted{}, newCheckoutError(KindValidation, "amount must be greater than zero", validator.ErrInvalidInput)
	}

	var cust CustomerInfo
	if in.Customer != nil {
		cust = *in.Customer
	}
	var authName, authEmail string
	if authUser != nil {
		authName, authEmail = authUser.Name, authUser.Email
	}
	var shipName string
	if in.ShippingAddress != nil {
		shipName = in.ShippingAddress.Name
	}

	return u.initiate(ctx, payment.InitiateRequest{
		Amount:   in.Amount,
		Currency: firstNonEmpty(in.Currency, u.cfg.DefaultCurrency),
		Customer: payment.Customer{
			Name:  firstNonEmpty(cust.Name, authName, GuestName),
			Email: firstNonEmpty(cust.Email, authEmail, GuestEmail),
		},
		CallbackURL:       u.cfg.CallbackURL,
		Language:          payment.LanguageCode(in.Language),
		CustomerReference: firstNonEmpty(shipName, "OrderRef"),
	})
}

// ゲートウェイ呼び出しとエラーの分類
func (u *CheckoutUsecase) initiate(ctx context.Context, req payment.InitiateRequest) (PaymentStarted, error) {
	if u.cfg.GatewayTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.cfg.GatewayTimeout)
		defer cancel()
	}

	s, err := u.gateway.InitiatePayment(ctx, req)
	if err != nil {
		if isConnectivity(err) {
			metrics.RecordPaymentInitiation(metrics.OutcomeConnectivity)
			u.logger.Warn("payment initiation unreachable", zap.Error(err))
			return PaymentStarted{}, newCheckoutError(KindGatewayConnectivity, connectivityMessage, err)
		}
		metrics.RecordPaymentInitiation(metrics.OutcomeRejected)
		msg := "payment initiation failed"
		if re, ok := payment.AsRejected(err); ok {
			msg = re.Error()
		}
		u.logger.Info("payment initiation rejected", zap.String("reason", msg))
		return PaymentStarted{}, newCheckoutError(KindGatewayRejected, msg, err)
	}

	metrics.RecordPaymentInitiation(metrics.OutcomeSuccess)
	return PaymentStarted{URL: s.PaymentURL, InvoiceID: s.InvoiceID}, nil
}

// ResumeAfterRedirect はセッションから注文内容を組み立てて確定する
// 成功したときだけセッションを消す（失敗時は再試行できるように残す）
func (u *CheckoutUsecase) ResumeAfterRedirect(ctx context.Context, sessionToken string, paymentReference string, authUser *AuthUser) VerificationOutcome {
	if err := validator.ValidatePaymentReference(paymentReference); err != nil {
		return VerificationOutcome{Status: VerificationFailed, Message: "Missing Payment ID"}
	}

	sess, err := u.sessions.Get(ctx, sessionToken)
	if errors.Is(err, repo.ErrSessionNotFound) {
		return VerificationOutcome{Status: VerificationFailed, Message: "checkout session expired"}
	}
	if err != nil {
		u.logger.Error("load checkout session failed", zap.String("session", sessionToken), zap.Error(err))
		return VerificationOutcome{Status: VerificationFailed, Message: "could not load checkout session, please retry"}
	}
	if sess.InvoiceID == "" {
		u.logger.Warn("checkout session has no invoice", zap.String("session", sessionToken))
		return VerificationOutcome{Status: VerificationFailed, Message: "checkout session is incomplete"}
	}

	var ship model.ShippingDetails
	if sess.Shipping != nil {
		ship = *sess.Shipping
	}
	var authName, authEmail string
	if authUser != nil {
		authName, authEmail = authUser.Name, authUser.Email
	}

	res, err := u.finalizer.FinalizeOrder(ctx, paymentReference, OrderPayload{
		CartItems:       sess.CartItems,
		ShippingAddress: sess.Shipping,
		//ゲストの埋め値は確定側に任せる（ゲートウェイの顧客情報を優先するため）
		Customer: &CustomerInfo{
			Name:   firstNonEmpty(authName, ship.Name),
			Email:  firstNonEmpty(authEmail, ship.Email),
			Mobile: ship.Phone,
		},
		OrderType:         sess.Fulfillment,
		Currency:          sess.Currency,
		ExpectedInvoiceID: sess.InvoiceID,
	})
	if err != nil {
		msg := "payment verification failed"
		if ce, ok := AsCheckoutError(err); ok {
			msg = ce.Message
		}
		return VerificationOutcome{Status: VerificationFailed, Message: msg}
	}
	if res.Status != FinalizationSuccess {
		return VerificationOutcome{Status: VerificationFailed, Message: "payment was not completed"}
	}

	if err := u.sessions.Delete(ctx, sessionToken); err != nil {
		u.logger.Warn("clear checkout session failed", zap.String("session", sessionToken), zap.Error(err))
	}

	out := ToOrderOutput(res.Order, res.Items)
	return VerificationOutcome{Status: VerificationSuccess, Order: &out}
}

func (u *CheckoutUsecase) callbackURL(token string) string {
	return u.cfg.CallbackURL + "?session=" + url.QueryEscape(token)
}

// 合計（単価×数量）を3桁で丸める
func cartTotal(items []model.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total.Round(3)
}
