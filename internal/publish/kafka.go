package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"

	"github.com/shortontech/botmeter/internal/record"
)

// KafkaConfig holds Kafka producer settings.
type KafkaConfig struct {
	Brokers     []string
	Topic       string
	Acks        string
	Compression string
}

// KafkaPublisher produces classified records to a topic, keyed by record ID
// so replays stay idempotent for downstream consumers.
type KafkaPublisher struct {
	config   KafkaConfig
	producer *kafka.Producer
	log      *zap.Logger
}

func NewKafkaPublisher(cfg KafkaConfig, log *zap.Logger) *KafkaPublisher {
	if cfg.Topic == "" {
		cfg.Topic = "botmeter.records"
	}
	if cfg.Acks == "" {
		cfg.Acks = "all"
	}
	return &KafkaPublisher{config: cfg, log: log}
}

func (p *KafkaPublisher) Name() string { return "kafka" }

func (p *KafkaPublisher) Start(ctx context.Context) error {
	configMap := kafka.ConfigMap{
		"bootstrap.servers": strings.Join(p.config.Brokers, ","),
		"acks":              p.config.Acks,
		"retries":           10,
		"retry.backoff.ms":  100,
		"linger.ms":         10,
	}
	if p.config.Compression != "" {
		configMap["compression.type"] = p.config.Compression
	}
	producer, err := kafka.NewProducer(&configMap)
	if err != nil {
		return fmt.Errorf("create kafka producer: %w", err)
	}
	p.producer = producer

	go p.handleDeliveryReports(ctx)
	return nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, r record.Record) error {
	if p.producer == nil {
		return fmt.Errorf("kafka producer not started")
	}
	value, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("serialize record: %w", err)
	}
	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &p.config.Topic,
			Partition: kafka.PartitionAny,
		},
		Key:   []byte(r.ID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "site", Value: []byte(r.Site)},
			{Key: "schema", Value: []byte("v1")},
		},
	}
	if err := p.producer.Produce(msg, nil); err != nil {
		return fmt.Errorf("produce record: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	if p.producer == nil {
		return nil
	}
	if remaining := p.producer.Flush(10 * 1000); remaining > 0 {
		return fmt.Errorf("failed to flush %d remaining messages", remaining)
	}
	p.producer.Close()
	return nil
}

func (p *KafkaPublisher) handleDeliveryReports(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-p.producer.Events():
			if !ok {
				return
			}
			switch e := ev.(type) {
			case *kafka.Message:
				if e.TopicPartition.Error != nil {
					p.log.Warn("kafka delivery failed",
						zap.Error(e.TopicPartition.Error))
				}
			case kafka.Error:
				p.log.Warn("kafka client error", zap.String("error", e.Error()))
			}
		}
	}
}
