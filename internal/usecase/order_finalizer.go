package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/domain/payment"
	"storefront/internal/metrics"
	repo "storefront/internal/repository"
	"storefront/internal/validator"

	"go.uber.org/zap"
)

// 注文データに含まれる顧客情報（任意）
type CustomerInfo struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Mobile string `json:"mobile"`
}

// 決済確認時にクライアント（またはセッション）から渡される注文内容
type OrderPayload struct {
	CartItems       []model.CartItem       `json:"cartItems"`
	ShippingAddress *model.ShippingDetails `json:"shippingAddress"`
	Customer        *CustomerInfo          `json:"customer"`
	OrderType       model.FulfillmentType  `json:"orderType,omitempty"`
	Currency        string                 `json:"currency,omitempty"`

	// セッション経由のときだけ入る。決済の請求書IDと一致しなければ保存しない
	ExpectedInvoiceID string `json:"-"`
}

type FinalizationStatus string

const (
	FinalizationSuccess FinalizationStatus = "success"
	FinalizationUnpaid  FinalizationStatus = "Unpaid"
)

type FinalizationResult struct {
	Status FinalizationStatus
	Order  model.Order
	Items  []model.OrderItem
	// 既に保存済みだった（事前検索か一意制約で検知）
	AlreadyProcessed bool
	// ゲートウェイが返した決済の詳細（成功時のみ）
	Transaction json.RawMessage
	// 未払い時のゲートウェイ上の状態
	GatewayStatus string
}

type OrderFinalizer struct {
	tx              repo.TransactionManager
	orders          repo.OrderRepository
	orderItems      repo.OrderItemRepository
	gateway         payment.Gateway
	publisher       OrderEventPublisher
	logger          *zap.Logger
	gatewayTimeout  time.Duration
	defaultCurrency string
}

// DI
func NewOrderFinalizer(
	tx repo.TransactionManager,
	orders repo.OrderRepository,
	orderItems repo.OrderItemRepository,
	gateway payment.Gateway,
	publisher OrderEventPublisher,
	logger *zap.Logger,
	gatewayTimeout time.Duration,
	defaultCurrency string,
) *OrderFinalizer {
	return &OrderFinalizer{
		tx:              tx,
		orders:          orders,
		orderItems:      orderItems,
		gateway:         gateway,
		publisher:       publisher,
		logger:          logger,
		gatewayTimeout:  gatewayTimeout,
		defaultCurrency: defaultCurrency,
	}
}

// FinalizeOrder は支払い済みを確認できたときだけ注文と明細を1トランザクションで保存する
// 同じpaymentReferenceで何回呼ばれても注文は1件
func (f *OrderFinalizer) FinalizeOrder(ctx context.Context, paymentReference string, p OrderPayload) (FinalizationResult, error) {
	ref := strings.TrimSpace(paymentReference)
	log := f.logger.With(zap.String("payment_reference", ref))

	//決済IDが無ければ何もしない
	if err := validator.ValidatePaymentReference(ref); err != nil {
		metrics.RecordPaymentVerification(metrics.OutcomeValidation)
		return FinalizationResult{}, newCheckoutError(KindValidation, "Missing Payment ID", err)
	}

	//チェックアウトに紐づく確認は、既存注文を返す前に請求書IDを照合する
	var st payment.Status
	fetched := false
	if p.ExpectedInvoiceID != "" {
		var err error
		if st, err = f.fetchStatus(ctx, ref); err != nil {
			return FinalizationResult{}, f.gatewayFailure(log, err)
		}
		if st.InvoiceID != p.ExpectedInvoiceID {
			metrics.RecordPaymentVerification(metrics.OutcomeValidation)
			log.Warn("payment invoice mismatch",
				zap.String("invoice_id", st.InvoiceID),
				zap.String("expected_invoice_id", p.ExpectedInvoiceID),
			)
			return FinalizationResult{}, newCheckoutError(KindValidation, ErrInvoiceMismatch.Error(), ErrInvoiceMismatch)
		}
		fetched = true
	}

	//既に保存済みならそれを返す（ゲートウェイは呼ばない）
	if res, ok, err := f.loadExisting(ctx, ref); err != nil {
		metrics.RecordPaymentVerification(metrics.OutcomePersistence)
		log.Error("order lookup failed", zap.Error(err))
		return FinalizationResult{}, newCheckoutError(KindPersistence, "could not verify order, please retry", err)
	} else if ok {
		metrics.RecordPaymentVerification(metrics.OutcomeAlreadyProcessed)
		log.Info("order already processed", zap.Int64("order_id", res.Order.ID))
		return res, nil
	}

	//明細は数量1以上・単価0以上でないと保存しない
	if err := validator.ValidateCart(p.CartItems); err != nil {
		metrics.RecordPaymentVerification(metrics.OutcomeValidation)
		log.Info("order payload rejected", zap.Error(err))
		return FinalizationResult{}, newCheckoutError(KindValidation, err.Error(), err)
	}

	//ゲートウェイで支払い状態を確認（時間制限つき）
	if !fetched {
		var err error
		if st, err = f.fetchStatus(ctx, ref); err != nil {
			return FinalizationResult{}, f.gatewayFailure(log, err)
		}
	}

	//未払いはエラーではない（何も保存しない）
	if !st.IsPaid() {
		metrics.RecordPaymentVerification(metrics.OutcomeUnpaid)
		log.Info("payment not paid", zap.String("gateway_status", st.InvoiceState))
		return FinalizationResult{Status: FinalizationUnpaid, GatewayStatus: st.InvoiceState}, nil
	}

	order, items := f.buildOrder(ref, p, st)

	var err error
	//注文＋明細を1トランザクションで作成（どこかで失敗したら全部rollback）
	err = f.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orderID, err := r.Orders().Create(ctx, order)
		if err != nil {
			return err
		}
		order.ID = orderID
		for i := range items {
			items[i].OrderID = orderID
		}

		return r.OrderItems().CreateBulk(ctx, orderID, items)
	})
	if errors.Is(err, repo.ErrDuplicateKey) {
		//同時に別リクエストが先に保存した → そちらを正とする
		res, ok, lookupErr := f.loadExisting(ctx, ref)
		if lookupErr == nil && ok {
			metrics.RecordPaymentVerification(metrics.OutcomeDuplicate)
			log.Info("duplicate submission resolved", zap.Int64("order_id", res.Order.ID))
			res.Transaction = st.Raw
			return res, nil
		}
		err = errors.Join(err, lookupErr)
	}
	if err != nil {
		metrics.RecordPaymentVerification(metrics.OutcomePersistence)
		log.Error("order persistence failed", zap.Error(err))
		return FinalizationResult{}, newCheckoutError(KindPersistence, "could not save order, please retry verification", err)
	}

	metrics.RecordPaymentVerification(metrics.OutcomeSuccess)
	log.Info("order created",
		zap.Int64("order_id", order.ID),
		zap.String("total_amount", order.TotalAmount.StringFixed(3)),
		zap.Int("items", len(items)),
	)

	//イベントは失敗してもログだけ（注文は確定済み）
	if err := f.publisher.PublishOrderPaid(ctx, order, items); err != nil {
		log.Warn("publish order event failed", zap.Int64("order_id", order.ID), zap.Error(err))
	}

	return FinalizationResult{
		Status:      FinalizationSuccess,
		Order:       order,
		Items:       items,
		Transaction: st.Raw,
	}, nil
}

func (f *OrderFinalizer) loadExisting(ctx context.Context, ref string) (FinalizationResult, bool, error) {
	existing, found, err := f.orders.FindByPaymentReference(ctx, ref)
	if err != nil || !found {
		return FinalizationResult{}, false, err
	}
	items, err := f.orderItems.ListByOrderID(ctx, existing.ID)
	if err != nil {
		return FinalizationResult{}, false, err
	}
	return FinalizationResult{
		Status:           FinalizationSuccess,
		Order:            existing,
		Items:            items,
		AlreadyProcessed: true,
	}, true, nil
}

func (f *OrderFinalizer) gatewayFailure(log *zap.Logger, err error) error {
	kind := KindGatewayRejected
	outcome := metrics.OutcomeRejected
	if isConnectivity(err) {
		kind = KindGatewayConnectivity
		outcome = metrics.OutcomeConnectivity
	}
	metrics.RecordPaymentVerification(outcome)
	log.Warn("payment validation failed", zap.String("kind", string(kind)), zap.Error(err))
	return newCheckoutError(kind, "payment validation failed", err)
}

func (f *OrderFinalizer) fetchStatus(ctx context.Context, ref string) (payment.Status, error) {
	if f.gatewayTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.gatewayTimeout)
		defer cancel()
	}
	return f.gateway.GetPaymentStatus(ctx, ref)
}

// 保存する注文を組み立てる（金額は必ずゲートウェイの値）
func (f *OrderFinalizer) buildOrder(ref string, p OrderPayload, st payment.Status) (model.Order, []model.OrderItem) {
	var ship model.ShippingDetails
	if p.ShippingAddress != nil {
		ship = *p.ShippingAddress
	}
	var cust CustomerInfo
	if p.Customer != nil {
		cust = *p.Customer
	}

	//フォーム > 顧客情報 > ゲートウェイ > ゲスト
	name := firstNonEmpty(ship.Name, cust.Name, st.Customer.Name, GuestName)
	email := firstNonEmpty(ship.Email, cust.Email, st.Customer.Email, GuestEmail)
	phone := firstNonEmpty(ship.Phone, cust.Mobile, st.Customer.Mobile, GuestPhone)

	//住所は必ず埋める
	var address model.ShippingDetails
	if p.ShippingAddress != nil {
		address = *p.ShippingAddress
	} else {
		address = model.ShippingDetails{
			Name:   name,
			Phone:  phone,
			Email:  email,
			Area:   model.PickupStoreAreaSentinel,
			Block:  model.EmptyFieldSentinel,
			Street: model.EmptyFieldSentinel,
			House:  model.EmptyFieldSentinel,
		}
	}

	fulfillment := p.OrderType
	if fulfillment != model.FulfillmentPickup && fulfillment != model.FulfillmentDelivery {
		fulfillment = inferFulfillment(p.ShippingAddress)
	}

	now := time.Now()
	order := model.Order{
		PaymentReference: ref,
		CustomerName:     name,
		CustomerEmail:    email,
		CustomerPhone:    phone,
		Address:          address,
		FulfillmentType:  fulfillment,
		TotalAmount:      st.Amount.Round(3),
		Currency:         firstNonEmpty(p.Currency, f.defaultCurrency),
		Status:           model.OrderStatusPaid,
		CreatedAt:        now,
	}

	items := make([]model.OrderItem, 0, len(p.CartItems))
	for _, ci := range p.CartItems {
		items = append(items, model.OrderItem{
			ProductID: ci.ProductID,
			Title:     ci.Title,
			TitleAr:   ci.TitleAr,
			Quantity:  ci.Quantity,
			UnitPrice: ci.Price.Round(3),
			Image:     ci.Image,
			CreatedAt: now,
		})
	}
	return order, items
}

// orderTypeが無い古いクライアント向け：住所の埋め値から判断
func inferFulfillment(s *model.ShippingDetails) model.FulfillmentType {
	if s == nil {
		return model.FulfillmentPickup
	}
	switch s.Area {
	case "", model.PickupAreaSentinel, model.PickupStoreAreaSentinel:
		return model.FulfillmentPickup
	}
	return model.FulfillmentDelivery
}

func isConnectivity(err error) bool {
	return errors.Is(err, payment.ErrConnectivity) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}
