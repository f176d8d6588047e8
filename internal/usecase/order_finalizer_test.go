package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/domain/payment"
	repo "storefront/internal/repository"
	"storefront/internal/usecase"
	"storefront/internal/validator"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type finalizerDeps struct {
	tx         *TxManagerMock
	orders     *OrderRepoMock
	orderItems *OrderItemRepoMock
	gateway    *GatewayMock
	publisher  *PublisherMock
}

func newFinalizer(t *testing.T) (*usecase.OrderFinalizer, finalizerDeps) {
	t.Helper()

	d := finalizerDeps{
		tx:         new(TxManagerMock),
		orders:     new(OrderRepoMock),
		orderItems: new(OrderItemRepoMock),
		gateway:    new(GatewayMock),
		publisher:  new(PublisherMock),
	}
	d.tx.Repos = &TxReposMock{orders: d.orders, orderItems: d.orderItems}

	f := usecase.NewOrderFinalizer(d.tx, d.orders, d.orderItems, d.gateway, d.publisher, zap.NewNop(), time.Second, "KWD")
	return f, d
}

func paidStatus(ref string, amount string) payment.Status {
	return payment.Status{
		InvoiceID:    ref,
		InvoiceState: "PAID",
		Amount:       decimal.RequireFromString(amount),
		Raw:          json.RawMessage(fmt.Sprintf(`{"Invoice":{"Id":%q,"Status":"PAID"}}`, ref)),
	}
}

func burgerCart() []model.CartItem {
	return []model.CartItem{
		{ProductID: 1, Title: "Burger", Price: decimal.RequireFromString("1.500"), Quantity: 2},
	}
}

func requireKind(t *testing.T, err error, kind usecase.ErrorKind) *usecase.CheckoutError {
	t.Helper()
	ce, ok := usecase.AsCheckoutError(err)
	require.True(t, ok, "want CheckoutError, got %v", err)
	assert.Equal(t, kind, ce.Kind)
	return ce
}

// =====================
// 入力・事前チェック
// =====================

func TestFinalizeOrder_MissingPaymentReference(t *testing.T) {
	for _, ref := range []string{"", "   "} {
		f, d := newFinalizer(t)

		_, err := f.FinalizeOrder(context.Background(), ref, usecase.OrderPayload{CartItems: burgerCart()})

		ce := requireKind(t, err, usecase.KindValidation)
		assert.Equal(t, "Missing Payment ID", ce.Message)
		d.orders.AssertNotCalled(t, "FindByPaymentReference", mock.Anything, mock.Anything)
		d.gateway.AssertNotCalled(t, "GetPaymentStatus", mock.Anything, mock.Anything)
	}
}

// 2回目以降はゲートウェイを呼ばずに既存の注文を返す
func TestFinalizeOrder_AlreadyProcessed_NoGatewayCall(t *testing.T) {
	f, d := newFinalizer(t)
	ctx := context.Background()

	existing := model.Order{ID: 7, PaymentReference: "INV-1", TotalAmount: decimal.RequireFromString("3.000"), Status: model.OrderStatusPaid}
	items := []model.OrderItem{{ID: 1, OrderID: 7, ProductID: 1, Title: "Burger", Quantity: 2}}

	d.orders.On("FindByPaymentReference", mock.Anything, "INV-1").Return(existing, true, nil)
	d.orderItems.On("ListByOrderID", mock.Anything, int64(7)).Return(items, nil)

	res, err := f.FinalizeOrder(ctx, "INV-1", usecase.OrderPayload{CartItems: burgerCart()})
	require.NoError(t, err)

	assert.Equal(t, usecase.FinalizationSuccess, res.Status)
	assert.True(t, res.AlreadyProcessed)
	assert.Equal(t, int64(7), res.Order.ID)
	assert.Len(t, res.Items, 1)

	d.gateway.AssertNotCalled(t, "GetPaymentStatus", mock.Anything, mock.Anything)
	d.tx.AssertNotCalled(t, "WithinTx", mock.Anything)
	d.publisher.AssertNotCalled(t, "PublishOrderPaid", mock.Anything, mock.Anything, mock.Anything)
}

func TestFinalizeOrder_LookupFailure_IsPersistence(t *testing.T) {
	f, d := newFinalizer(t)

	d.orders.On("FindByPaymentReference", mock.Anything, "INV-1").Return(model.Order{}, false, errors.New("db down"))

	_, err := f.FinalizeOrder(context.Background(), "INV-1", usecase.OrderPayload{})
	requireKind(t, err, usecase.KindPersistence)
	d.gateway.AssertNotCalled(t, "GetPaymentStatus", mock.Anything, mock.Anything)
}

// =====================
// ゲートウェイ
// =====================

func TestFinalizeOrder_Unpaid_PersistsNothing(t *testing.T) {
	f, d := newFinalizer(t)

	d.orders.On("FindByPaymentReference", mock.Anything, "INV-2").Return(model.Order{}, false, nil)
	d.gateway.On("GetPaymentStatus", mock.Anything, "INV-2").Return(payment.Status{InvoiceID: "INV-2", InvoiceState: "Pending"}, nil)

	res, err := f.FinalizeOrder(context.Background(), "INV-2", usecase.OrderPayload{CartItems: burgerCart()})
	require.NoError(t, err)

	assert.Equal(t, usecase.FinalizationUnpaid, res.Status)
	assert.Equal(t, "Pending", res.GatewayStatus)
	d.tx.AssertNotCalled(t, "WithinTx", mock.Anything)
}

// 大文字小文字は区別しない
func TestFinalizeOrder_PaidStatusIsCaseInsensitive(t *testing.T) {
	f, d := newFinalizer(t)

	st := paidStatus("INV-3", "3.000")
	st.InvoiceState = "paid"

	d.orders.On("FindByPaymentReference", mock.Anything, "INV-3").Return(model.Order{}, false, nil)
	d.gateway.On("GetPaymentStatus", mock.Anything, "INV-3").Return(st, nil)
	d.tx.On("WithinTx", mock.Anything).Return()
	d.orders.On("Create", mock.Anything, mock.Anything).Return(int64(1), nil)
	d.orderItems.On("CreateBulk", mock.Anything, int64(1), mock.Anything).Return(nil)
	d.publisher.On("PublishOrderPaid", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	res, err := f.FinalizeOrder(context.Background(), "INV-3", usecase.OrderPayload{CartItems: burgerCart()})
	require.NoError(t, err)
	assert.Equal(t, usecase.FinalizationSuccess, res.Status)
}

func TestFinalizeOrder_GatewayFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind usecase.ErrorKind
	}{
		{name: "rejected", err: &payment.RejectedError{Messages: []string{"Invalid key"}}, kind: usecase.KindGatewayRejected},
		{name: "connectivity", err: fmt.Errorf("get status: %w", payment.ErrConnectivity), kind: usecase.KindGatewayConnectivity},
		{name: "timeout", err: context.DeadlineExceeded, kind: usecase.KindGatewayConnectivity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, d := newFinalizer(t)

			d.orders.On("FindByPaymentReference", mock.Anything, "INV-4").Return(model.Order{}, false, nil)
			d.gateway.On("GetPaymentStatus", mock.Anything, "INV-4").Return(payment.Status{}, tt.err)

			_, err := f.FinalizeOrder(context.Background(), "INV-4", usecase.OrderPayload{CartItems: burgerCart()})

			ce := requireKind(t, err, tt.kind)
			assert.Equal(t, "payment validation failed", ce.Message)
			d.tx.AssertNotCalled(t, "WithinTx", mock.Anything)
		})
	}
}

// =====================
// 保存
// =====================

// Burger 1.500 x2、INV-100 で 3.000 支払い済み、住所なし
func TestFinalizeOrder_BurgerScenario(t *testing.T) {
	f, d := newFinalizer(t)
	ctx := context.Background()

	var created model.Order
	var createdItems []model.OrderItem

	d.orders.On("FindByPaymentReference", mock.Anything, "INV-100").Return(model.Order{}, false, nil).Once()
	d.gateway.On("GetPaymentStatus", mock.Anything, "INV-100").Return(paidStatus("INV-100", "3.000"), nil)
	d.tx.On("WithinTx", mock.Anything).Return()
	d.orders.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { created = args.Get(1).(model.Order) }).
		Return(int64(42), nil)
	d.orderItems.On("CreateBulk", mock.Anything, int64(42), mock.Anything).
		Run(func(args mock.Arguments) { createdItems = args.Get(2).([]model.OrderItem) }).
		Return(nil)
	d.publisher.On("PublishOrderPaid", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	res, err := f.FinalizeOrder(ctx, "INV-100", usecase.OrderPayload{CartItems: burgerCart()})
	require.NoError(t, err)

	assert.Equal(t, usecase.FinalizationSuccess, res.Status)
	assert.False(t, res.AlreadyProcessed)
	assert.Equal(t, int64(42), res.Order.ID)
	assert.JSONEq(t, `{"Invoice":{"Id":"INV-100","Status":"PAID"}}`, string(res.Transaction))

	assert.Equal(t, "INV-100", created.PaymentReference)
	assert.Equal(t, "3.000", created.TotalAmount.StringFixed(3))
	assert.Equal(t, model.OrderStatusPaid, created.Status)
	assert.Equal(t, "KWD", created.Currency)
	assert.Equal(t, usecase.GuestName, created.CustomerName)
	assert.Equal(t, usecase.GuestEmail, created.CustomerEmail)
	assert.Equal(t, usecase.GuestPhone, created.CustomerPhone)
	assert.Equal(t, model.FulfillmentPickup, created.FulfillmentType)

	//住所は必ず埋まる
	assert.Equal(t, model.PickupStoreAreaSentinel, created.Address.Area)
	assert.Equal(t, model.EmptyFieldSentinel, created.Address.Block)
	assert.Equal(t, model.EmptyFieldSentinel, created.Address.Street)
	assert.Equal(t, model.EmptyFieldSentinel, created.Address.House)
	assert.Equal(t, usecase.GuestName, created.Address.Name)

	require.Len(t, createdItems, 1)
	assert.Equal(t, int64(1), createdItems[0].ProductID)
	assert.Equal(t, "Burger", createdItems[0].Title)
	assert.Equal(t, int64(2), createdItems[0].Quantity)
	assert.Equal(t, "1.500", createdItems[0].UnitPrice.StringFixed(3))

	d.publisher.AssertCalled(t, "PublishOrderPaid", mock.Anything, mock.Anything, mock.Anything)
	d.tx.AssertNumberOfCalls(t, "WithinTx", 1)

	//同じINV-100でもう一度（中身の違う注文データでも）→ 同じ注文、保存は1回のまま
	saved := created
	saved.ID = 42
	d.orders.On("FindByPaymentReference", mock.Anything, "INV-100").Return(saved, true, nil).Once()
	d.orderItems.On("ListByOrderID", mock.Anything, int64(42)).Return(createdItems, nil)

	again, err := f.FinalizeOrder(ctx, "INV-100", usecase.OrderPayload{
		CartItems: []model.CartItem{{ProductID: 9, Title: "Fries", Price: decimal.RequireFromString("0.750"), Quantity: 5}},
		Customer:  &usecase.CustomerInfo{Name: "Someone Else"},
	})
	require.NoError(t, err)

	assert.Equal(t, usecase.FinalizationSuccess, again.Status)
	assert.True(t, again.AlreadyProcessed)
	assert.Equal(t, int64(42), again.Order.ID)
	assert.Equal(t, usecase.GuestName, again.Order.CustomerName)
	require.Len(t, again.Items, 1)
	assert.Equal(t, "Burger", again.Items[0].Title)

	d.tx.AssertNumberOfCalls(t, "WithinTx", 1)
	d.orders.AssertNumberOfCalls(t, "Create", 1)
	d.gateway.AssertNumberOfCalls(t, "GetPaymentStatus", 1)
}

// フォーム > 顧客情報 > ゲートウェイ > ゲスト
func TestFinalizeOrder_CustomerFallbackPrecedence(t *testing.T) {
	f, d := newFinalizer(t)

	st := paidStatus("INV-5", "2.000")
	st.Customer = payment.Customer{Name: "Gateway Name", Email: "gw@example.com", Mobile: "55500000"}

	var created model.Order
	d.orders.On("FindByPaymentReference", mock.Anything, "INV-5").Return(model.Order{}, false, nil)
	d.gateway.On("GetPaymentStatus", mock.Anything, "INV-5").Return(st, nil)
	d.tx.On("WithinTx", mock.Anything).Return()
	d.orders.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { created = args.Get(1).(model.Order) }).
		Return(int64(1), nil)
	d.orderItems.On("CreateBulk", mock.Anything, int64(1), mock.Anything).Return(nil)
	d.publisher.On("PublishOrderPaid", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	_, err := f.FinalizeOrder(context.Background(), "INV-5", usecase.OrderPayload{
		CartItems: burgerCart(),
		ShippingAddress: &model.ShippingDetails{
			Name:   "Form Name",
			Area:   "Salmiya",
			Block:  "1",
			Street: "2",
			House:  "3",
		},
		Customer: &usecase.CustomerInfo{Name: "Customer Name", Email: "customer@example.com"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Form Name", created.CustomerName)
	assert.Equal(t, "customer@example.com", created.CustomerEmail)
	assert.Equal(t, "55500000", created.CustomerPhone)
	assert.Equal(t, model.FulfillmentDelivery, created.FulfillmentType)
	assert.Equal(t, "Salmiya", created.Address.Area)
}

// 合計はカートではなくゲートウェイの金額
func TestFinalizeOrder_TotalComesFromGateway(t *testing.T) {
	f, d := newFinalizer(t)

	var created model.Order
	d.orders.On("FindByPaymentReference", mock.Anything, "INV-6").Return(model.Order{}, false, nil)
	d.gateway.On("GetPaymentStatus", mock.Anything, "INV-6").Return(paidStatus("INV-6", "2.7504"), nil)
	d.tx.On("WithinTx", mock.Anything).Return()
	d.orders.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { created = args.Get(1).(model.Order) }).
		Return(int64(1), nil)
	d.orderItems.On("CreateBulk", mock.Anything, int64(1), mock.Anything).Return(nil)
	d.publisher.On("PublishOrderPaid", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	_, err := f.FinalizeOrder(context.Background(), "INV-6", usecase.OrderPayload{CartItems: burgerCart()})
	require.NoError(t, err)

	assert.Equal(t, "2.750", created.TotalAmount.StringFixed(3))
}

// 一意制約違反 → 先に保存された注文を成功として返す
func TestFinalizeOrder_DuplicateKey_ReturnsExisting(t *testing.T) {
	f, d := newFinalizer(t)

	existing := model.Order{ID: 99, PaymentReference: "INV-7", Status: model.OrderStatusPaid}

	d.orders.On("FindByPaymentReference", mock.Anything, "INV-7").Return(model.Order{}, false, nil).Once()
	d.orders.On("FindByPaymentReference", mock.Anything, "INV-7").Return(existing, true, nil).Once()
	d.orderItems.On("ListByOrderID", mock.Anything, int64(99)).Return([]model.OrderItem{{OrderID: 99}}, nil)
	d.gateway.On("GetPaymentStatus", mock.Anything, "INV-7").Return(paidStatus("INV-7", "3.000"), nil)
	d.tx.On("WithinTx", mock.Anything).Return()
	d.orders.On("Create", mock.Anything, mock.Anything).Return(int64(0), repo.ErrDuplicateKey)

	res, err := f.FinalizeOrder(context.Background(), "INV-7", usecase.OrderPayload{CartItems: burgerCart()})
	require.NoError(t, err)

	assert.Equal(t, usecase.FinalizationSuccess, res.Status)
	assert.True(t, res.AlreadyProcessed)
	assert.Equal(t, int64(99), res.Order.ID)
	assert.NotEmpty(t, res.Transaction)
	d.orderItems.AssertNotCalled(t, "CreateBulk", mock.Anything, mock.Anything, mock.Anything)
	d.publisher.AssertNotCalled(t, "PublishOrderPaid", mock.Anything, mock.Anything, mock.Anything)
}

// 明細の保存に失敗したら全体が失敗（txのrollbackに任せる）
func TestFinalizeOrder_ItemInsertFailure_IsPersistence(t *testing.T) {
	f, d := newFinalizer(t)

	d.orders.On("FindByPaymentReference", mock.Anything, "INV-8").Return(model.Order{}, false, nil)
	d.gateway.On("GetPaymentStatus", mock.Anything, "INV-8").Return(paidStatus("INV-8", "3.000"), nil)
	d.tx.On("WithinTx", mock.Anything).Return()
	d.orders.On("Create", mock.Anything, mock.Anything).Return(int64(5), nil)
	d.orderItems.On("CreateBulk", mock.Anything, int64(5), mock.Anything).Return(errors.New("insert failed"))

	_, err := f.FinalizeOrder(context.Background(), "INV-8", usecase.OrderPayload{CartItems: burgerCart()})

	ce := requireKind(t, err, usecase.KindPersistence)
	assert.Equal(t, "could not save order, please retry verification", ce.Message)
	d.publisher.AssertNotCalled(t, "PublishOrderPaid", mock.Anything, mock.Anything, mock.Anything)
}

// イベント送信の失敗は注文の成功に影響しない
func TestFinalizeOrder_PublishFailureIgnored(t *testing.T) {
	f, d := newFinalizer(t)

	d.orders.On("FindByPaymentReference", mock.Anything, "INV-9").Return(model.Order{}, false, nil)
	d.gateway.On("GetPaymentStatus", mock.Anything, "INV-9").Return(paidStatus("INV-9", "3.000"), nil)
	d.tx.On("WithinTx", mock.Anything).Return()
	d.orders.On("Create", mock.Anything, mock.Anything).Return(int64(3), nil)
	d.orderItems.On("CreateBulk", mock.Anything, int64(3), mock.Anything).Return(nil)
	d.publisher.On("PublishOrderPaid", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("kafka down"))

	res, err := f.FinalizeOrder(context.Background(), "INV-9", usecase.OrderPayload{CartItems: burgerCart()})
	require.NoError(t, err)
	assert.Equal(t, usecase.FinalizationSuccess, res.Status)
	assert.Equal(t, int64(3), res.Order.ID)
}

// 明細は数量1以上・単価0以上・商品IDあり
func TestFinalizeOrder_InvalidCart_PersistsNothing(t *testing.T) {
	tests := []struct {
		name  string
		items []model.CartItem
		want  error
	}{
		{name: "empty", items: nil, want: validator.ErrEmptyCart},
		{name: "negative quantity and price", items: []model.CartItem{{ProductID: 0, Price: decimal.RequireFromString("-1.000"), Quantity: -3}}, want: validator.ErrInvalidCartItem},
		{name: "zero quantity", items: []model.CartItem{{ProductID: 1, Price: decimal.RequireFromString("1.500"), Quantity: 0}}, want: validator.ErrInvalidCartItem},
		{name: "negative price", items: []model.CartItem{{ProductID: 1, Price: decimal.RequireFromString("-0.100"), Quantity: 1}}, want: validator.ErrInvalidCartItem},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, d := newFinalizer(t)

			d.orders.On("FindByPaymentReference", mock.Anything, "INV-9").Return(model.Order{}, false, nil)

			_, err := f.FinalizeOrder(context.Background(), "INV-9", usecase.OrderPayload{CartItems: tt.items})

			requireKind(t, err, usecase.KindValidation)
			assert.ErrorIs(t, err, tt.want)
			d.gateway.AssertNotCalled(t, "GetPaymentStatus", mock.Anything, mock.Anything)
			d.tx.AssertNotCalled(t, "WithinTx", mock.Anything)
		})
	}
}

// 別の請求書の決済は、既存注文があっても返さない
func TestFinalizeOrder_ExpectedInvoiceMismatch(t *testing.T) {
	f, d := newFinalizer(t)

	d.gateway.On("GetPaymentStatus", mock.Anything, "PAY-1").Return(paidStatus("INV-OTHER", "0.100"), nil)

	_, err := f.FinalizeOrder(context.Background(), "PAY-1", usecase.OrderPayload{
		CartItems:         burgerCart(),
		ExpectedInvoiceID: "INV-100",
	})

	requireKind(t, err, usecase.KindValidation)
	assert.ErrorIs(t, err, usecase.ErrInvoiceMismatch)
	d.orders.AssertNotCalled(t, "FindByPaymentReference", mock.Anything, mock.Anything)
	d.tx.AssertNotCalled(t, "WithinTx", mock.Anything)
}

func TestFinalizeOrder_ExpectedInvoiceMatch_ChecksGatewayOnce(t *testing.T) {
	f, d := newFinalizer(t)

	d.gateway.On("GetPaymentStatus", mock.Anything, "PAY-1").Return(paidStatus("INV-100", "3.000"), nil)
	d.orders.On("FindByPaymentReference", mock.Anything, "PAY-1").Return(model.Order{}, false, nil)
	d.tx.On("WithinTx", mock.Anything).Return()
	d.orders.On("Create", mock.Anything, mock.Anything).Return(int64(8), nil)
	d.orderItems.On("CreateBulk", mock.Anything, int64(8), mock.Anything).Return(nil)
	d.publisher.On("PublishOrderPaid", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	res, err := f.FinalizeOrder(context.Background(), "PAY-1", usecase.OrderPayload{
		CartItems:         burgerCart(),
		ExpectedInvoiceID: "INV-100",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(8), res.Order.ID)
	assert.Equal(t, int64(8), res.Items[0].OrderID)
	d.gateway.AssertNumberOfCalls(t, "GetPaymentStatus", 1)
}

// 注文データに顧客情報が無ければゲートウェイの値がゲストより先
func TestFinalizeOrder_GatewayCustomerBeforeGuest(t *testing.T) {
	f, d := newFinalizer(t)

	st := paidStatus("INV-10", "3.000")
	st.Customer = payment.Customer{Email: "gw@example.com"}

	var created model.Order
	d.orders.On("FindByPaymentReference", mock.Anything, "INV-10").Return(model.Order{}, false, nil)
	d.gateway.On("GetPaymentStatus", mock.Anything, "INV-10").Return(st, nil)
	d.tx.On("WithinTx", mock.Anything).Return()
	d.orders.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { created = args.Get(1).(model.Order) }).
		Return(int64(1), nil)
	d.orderItems.On("CreateBulk", mock.Anything, int64(1), mock.Anything).Return(nil)
	d.publisher.On("PublishOrderPaid", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	_, err := f.FinalizeOrder(context.Background(), "INV-10", usecase.OrderPayload{
		CartItems: burgerCart(),
		Customer:  &usecase.CustomerInfo{},
	})
	require.NoError(t, err)

	assert.Equal(t, "gw@example.com", created.CustomerEmail)
	assert.Equal(t, usecase.GuestName, created.CustomerName)
}
