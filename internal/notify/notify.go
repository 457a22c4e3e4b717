// Package notify publishes receipt status transitions to Kafka.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultTopic = "receipt.status_changed"

type StatusChanged struct {
	EventID    string    `json:"eventId"`
	OrderID    string    `json:"orderId"`
	Flow       string    `json:"flow"`
	FromStatus string    `json:"fromStatus"`
	ToStatus   string    `json:"toStatus"`
	Class      string    `json:"class"`
	Terminal   bool      `json:"terminal"`
	ObservedAt time.Time `json:"observedAt"`
}

type Publisher interface {
	PublishStatusChanged(ctx context.Context, ev StatusChanged) error
	Close() error
}

// New returns a Kafka publisher, or a no-op one when brokers is empty.
func New(brokers []string, topic string, log *zap.Logger) (Publisher, error) {
	if len(brokers) == 0 {
		return Nop{}, nil
	}

	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 3

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("notify.New: %w", err)
	}
	return NewKafka(producer, topic, log), nil
}

type Kafka struct {
	producer sarama.SyncProducer
	topic    string
	log      *zap.Logger
}

func NewKafka(producer sarama.SyncProducer, topic string, log *zap.Logger) *Kafka {
	if topic == "" {
		topic = DefaultTopic
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Kafka{producer: producer, topic: topic, log: log}
}

// PublishStatusChanged sends ev keyed by order id so one order's events stay ordered.
func (k *Kafka) PublishStatusChanged(_ context.Context, ev StatusChanged) error {
	const fn = "notify.PublishStatusChanged"

	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("%s: can't marshal event: %w", fn, err)
	}

	msg := &sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(ev.OrderID),
		Value: sarama.ByteEncoder(data),
	}
	partition, offset, err := k.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("%s: %w", fn, err)
	}

	k.log.Debug("status event published",
		zap.String("order_id", ev.OrderID),
		zap.String("to_status", ev.ToStatus),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)
	return nil
}

func (k *Kafka) Close() error {
	return k.producer.Close()
}

type Nop struct{}

func (Nop) PublishStatusChanged(context.Context, StatusChanged) error { return nil }
func (Nop) Close() error                                               { return nil }
