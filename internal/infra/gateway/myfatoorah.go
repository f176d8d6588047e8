package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"storefront/internal/domain/payment"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MyFatoorah v3 のクライアント
type MyFatoorahClient struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *zap.Logger
}

// DI
func NewMyFatoorahClient(baseURL, token string, timeout time.Duration, logger *zap.Logger) *MyFatoorahClient {
	return &MyFatoorahClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type validationError struct {
	Name  string `json:"Name"`
	Error string `json:"Error"`
}

// 共通のレスポンス
type envelope struct {
	IsSuccess        bool              `json:"IsSuccess"`
	Message          string            `json:"Message"`
	ValidationErrors []validationError `json:"ValidationErrors"`
	Data             json.RawMessage   `json:"Data"`
}

type initiatePayload struct {
	PaymentMethod             string          `json:"PaymentMethod"`
	InvoiceNotificationOption string          `json:"InvoiceNotificationOption"`
	Order                     orderPayload    `json:"Order"`
	Customer                  customerPayload `json:"Customer"`
	IntegrationUrls           integrationURLs `json:"IntegrationUrls"`
	Language                  string          `json:"Language"`
	CustomerReference         string          `json:"CustomerReference"`
}

type orderPayload struct {
	Amount   json.Number `json:"Amount"` // 文字列ではなく数値で送る
	Currency string      `json:"Currency"`
}

type customerPayload struct {
	Name   string `json:"Name"`
	Email  string `json:"Email"`
	Mobile string `json:"Mobile,omitempty"`
}

type integrationURLs struct {
	CallbackURL string `json:"CallbackUrl"`
	ErrorURL    string `json:"ErrorUrl"`
}

type initiateData struct {
	InvoiceID  flexString `json:"InvoiceId"`
	PaymentURL string     `json:"PaymentURL"`
}

type statusData struct {
	Invoice struct {
		ID     flexString `json:"Id"`
		Status string     `json:"Status"`
	} `json:"Invoice"`
	Amount struct {
		ValueInPayCurrency decimal.Decimal `json:"ValueInPayCurrency"`
	} `json:"Amount"`
	Customer struct {
		Name   string `json:"Name"`
		Email  string `json:"Email"`
		Mobile string `json:"Mobile"`
	} `json:"Customer"`
}

// InvoiceIdは数値で返ってくることがあるので文字列に寄せる
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// InitiatePayment はインボイスを作り、支払いURLを返す
func (c *MyFatoorahClient) InitiatePayment(ctx context.Context, req payment.InitiateRequest) (payment.Session, error) {
	currency := req.Currency
	if currency == "" {
		currency = "KWD"
	}
	body := initiatePayload{
		PaymentMethod:             "INVOICE",
		InvoiceNotificationOption: "LINK",
		Order:                     orderPayload{Amount: json.Number(req.Amount.Round(3).String()), Currency: currency},
		Customer: customerPayload{
			Name:   req.Customer.Name,
			Email:  req.Customer.Email,
			Mobile: req.Customer.Mobile,
		},
		IntegrationUrls:   integrationURLs{CallbackURL: req.CallbackURL, ErrorURL: req.CallbackURL},
		Language:          req.Language,
		CustomerReference: req.CustomerReference,
	}

	env, err := c.do(ctx, http.MethodPost, "/v3/payments", body)
	if err != nil {
		return payment.Session{}, err
	}

	var data initiateData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return payment.Session{}, &payment.RejectedError{Messages: []string{"malformed gateway response"}}
	}
	if data.PaymentURL == "" || data.InvoiceID == "" {
		return payment.Session{}, &payment.RejectedError{Messages: []string{"gateway returned no payment url"}}
	}

	c.logger.Info("payment initiated",
		zap.String("invoice_id", string(data.InvoiceID)),
		zap.String("amount", req.Amount.StringFixed(3)),
		zap.String("currency", currency),
	)
	return payment.Session{InvoiceID: string(data.InvoiceID), PaymentURL: data.PaymentURL}, nil
}

// GetPaymentStatus は決済IDの現在の状態を取得
func (c *MyFatoorahClient) GetPaymentStatus(ctx context.Context, paymentReference string) (payment.Status, error) {
	env, err := c.do(ctx, http.MethodGet, "/v3/payments/"+url.PathEscape(paymentReference), nil)
	if err != nil {
		return payment.Status{}, err
	}

	var data statusData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return payment.Status{}, &payment.RejectedError{Messages: []string{"malformed gateway response"}}
	}

	return payment.Status{
		InvoiceID:    string(data.Invoice.ID),
		InvoiceState: data.Invoice.Status,
		Amount:       data.Amount.ValueInPayCurrency,
		Customer: payment.Customer{
			Name:   data.Customer.Name,
			Email:  data.Customer.Email,
			Mobile: data.Customer.Mobile,
		},
		Raw: env.Data,
	}, nil
}

// do は1リクエスト送ってエンベロープを返す
// 通信エラーはErrConnectivity、IsSuccess=falseはRejectedError
func (c *MyFatoorahClient) do(ctx context.Context, method, path string, body any) (envelope, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return envelope{}, fmt.Errorf("marshal gateway request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return envelope{}, fmt.Errorf("build gateway request: %w", err)
	}
	httpReq.Header.Set("Authorization", c.token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Warn("gateway request failed", zap.String("path", path), zap.Error(err))
		return envelope{}, fmt.Errorf("%w: %v", payment.ErrConnectivity, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return envelope{}, fmt.Errorf("%w: read body: %v", payment.ErrConnectivity, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		// 5xxでHTMLなどが返ってきたときは到達できなかった扱い
		if resp.StatusCode >= http.StatusInternalServerError {
			return envelope{}, fmt.Errorf("%w: status %d", payment.ErrConnectivity, resp.StatusCode)
		}
		return envelope{}, &payment.RejectedError{Messages: []string{fmt.Sprintf("unexpected gateway response (status %d)", resp.StatusCode)}}
	}

	if !env.IsSuccess || resp.StatusCode >= http.StatusBadRequest {
		msgs := make([]string, 0, len(env.ValidationErrors))
		for _, ve := range env.ValidationErrors {
			if ve.Error != "" {
				msgs = append(msgs, ve.Error)
			}
		}
		if len(msgs) == 0 && env.Message != "" {
			msgs = append(msgs, env.Message)
		}
		c.logger.Warn("gateway rejected request",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.Strings("messages", msgs),
		)
		return envelope{}, &payment.RejectedError{Messages: msgs}
	}

	return env, nil
}
