// Package events publishes domain events to Kafka.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/config"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/models"
	"github.com/kapimkk/Projeto-Agencia-Marketing/pkg/logger/log"
)

const (
	HeaderType   = "type"
	HeaderOrigin = "origin"
)

var instanceID = uuid.NewString()

// InstanceID identifies this process in the origin header of published events.
func InstanceID() string { return instanceID }

type Publisher interface {
	Publish(ctx context.Context, event models.Event) error
	Close() error
}

type kafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaPublisher(cfg config.KafkaConfig) (Publisher, error) {
	sc := sarama.NewConfig()
	sc.ClientID = cfg.ClientID
	sc.Producer.RequiredAcks = sarama.WaitForLocal
	sc.Producer.Retry.Max = 3
	sc.Producer.Return.Successes = true
	sc.Producer.Timeout = 5 * time.Second

	producer, err := sarama.NewSyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("new sync producer: %w", err)
	}
	return NewPublisherWithProducer(producer, cfg.Topic), nil
}

func NewPublisherWithProducer(producer sarama.SyncProducer, topic string) Publisher {
	return &kafkaPublisher{producer: producer, topic: topic}
}

func (p *kafkaPublisher) Publish(ctx context.Context, event models.Event) error {
	if event.At.IsZero() {
		event.At = time.Now()
	}
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.Key),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte(HeaderType), Value: []byte(event.Type)},
			{Key: []byte(HeaderOrigin), Value: []byte(instanceID)},
		},
		Timestamp: event.At,
	}
	if reqID, ok := ctx.Value(log.RequestIDKey).(string); ok && reqID != "" {
		msg.Headers = append(msg.Headers, sarama.RecordHeader{Key: []byte(log.RequestIDKey), Value: []byte(reqID)})
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("send %s: %w", event.Type, err)
	}
	log.Debugw(ctx, "event published", "type", event.Type, "key", event.Key, "partition", partition, "offset", offset)
	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.producer.Close()
}

type nopPublisher struct{}

// NewNop returns a Publisher that drops every event.
func NewNop() Publisher { return nopPublisher{} }

func (nopPublisher) Publish(context.Context, models.Event) error { return nil }
func (nopPublisher) Close() error                                 { return nil }
