package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"storefront/internal/domain/model"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

const EventTypeOrderPaid = "order.paid"

type OrderPaidItem struct {
	ProductID int64  `json:"product_id"`
	Title     string `json:"title"`
	Quantity  int64  `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

// 注文確定イベント（キッチン・通知など下流向け）
type OrderPaidEvent struct {
	EventType        string          `json:"event_type"`
	OrderID          int64           `json:"order_id"`
	PaymentReference string          `json:"payment_reference"`
	CustomerName     string          `json:"customer_name"`
	CustomerPhone    string          `json:"customer_phone"`
	FulfillmentType  string          `json:"fulfillment_type"`
	TotalAmount      string          `json:"total_amount"`
	Currency         string          `json:"currency"`
	Items            []OrderPaidItem `json:"items"`
	OccurredAt       time.Time       `json:"occurred_at"`
}

func NewOrderPaidEvent(o model.Order, items []model.OrderItem) OrderPaidEvent {
	out := make([]OrderPaidItem, 0, len(items))
	for _, it := range items {
		out = append(out, OrderPaidItem{
			ProductID: it.ProductID,
			Title:     it.Title,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice.StringFixed(3),
		})
	}
	return OrderPaidEvent{
		EventType:        EventTypeOrderPaid,
		OrderID:          o.ID,
		PaymentReference: o.PaymentReference,
		CustomerName:     o.CustomerName,
		CustomerPhone:    o.CustomerPhone,
		FulfillmentType:  string(o.FulfillmentType),
		TotalAmount:      o.TotalAmount.StringFixed(3),
		Currency:         o.Currency,
		Items:            out,
		OccurredAt:       time.Now().UTC(),
	}
}

func InitProducer(brokers []string, logger *zap.Logger) (sarama.SyncProducer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	logger.Info("Kafka producer initialized", zap.Strings("brokers", brokers))
	return producer, nil
}

type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
}

func NewKafkaPublisher(producer sarama.SyncProducer, topic string, logger *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic, logger: logger}
}

// PublishOrderPaid はpayment_referenceをキーに送る（同じ決済は同じパーティション）
func (p *KafkaPublisher) PublishOrderPaid(_ context.Context, o model.Order, items []model.OrderItem) error {
	payload, err := json.Marshal(NewOrderPaidEvent(o, items))
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(o.PaymentReference),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(EventTypeOrderPaid)},
			{Key: []byte("order_id"), Value: []byte(strconv.FormatInt(o.ID, 10))},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	p.logger.Info("order event published",
		zap.String("topic", p.topic),
		zap.String("payment_reference", o.PaymentReference),
		zap.Int64("order_id", o.ID),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// KAFKA_BROKERSが無いとき用
type NoopPublisher struct{}

func (NoopPublisher) PublishOrderPaid(context.Context, model.Order, []model.OrderItem) error {
	return nil
}

func (NoopPublisher) Close() error { return nil }
