package sales

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/IBM/sarama"
)

// Producer publishes sale confirmations for downstream consumers
// (receipts, analytics, seat availability notifications).
type Producer interface {
	PublishSaleConfirmed(ctx context.Context, msg *SaleConfirmedMessage) error
	Close() error
}

// KafkaProducerConfig contains configuration for the Kafka sale producer
type KafkaProducerConfig struct {
	Brokers      []string
	SaleTopic    string
	RetryMax     int
	TimeoutMs    int
	RequiredAcks sarama.RequiredAcks
}

// DefaultKafkaProducerConfig returns a default producer configuration
func DefaultKafkaProducerConfig() *KafkaProducerConfig {
	return &KafkaProducerConfig{
		Brokers:      []string{"localhost:9092"},
		SaleTopic:    "sales-confirmed",
		RetryMax:     3,
		TimeoutMs:    10000,
		RequiredAcks: sarama.WaitForAll,
	}
}

// KafkaSaleProducer publishes sale confirmations to Kafka
type KafkaSaleProducer struct {
	producer sarama.SyncProducer
	config   *KafkaProducerConfig
}

// NewKafkaSaleProducer creates a new Kafka sale producer
func NewKafkaSaleProducer(config *KafkaProducerConfig) (Producer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = config.RequiredAcks
	saramaConfig.Producer.Retry.Max = config.RetryMax
	saramaConfig.Producer.Timeout = time.Duration(config.TimeoutMs) * time.Millisecond

	// Partition by event so consumers see one event's sales in order
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(config.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	log.Println("Kafka sale producer created")
	return &KafkaSaleProducer{
		producer: producer,
		config:   config,
	}, nil
}

func (kp *KafkaSaleProducer) PublishSaleConfirmed(ctx context.Context, msg *SaleConfirmedMessage) error {
	messageBytes, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal sale message: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: kp.config.SaleTopic,
		Key:   sarama.StringEncoder(msg.EventID),
		Value: sarama.ByteEncoder(messageBytes),
		Headers: []sarama.RecordHeader{
			{Key: []byte("sale_id"), Value: []byte(msg.SaleID)},
			{Key: []byte("event_id"), Value: []byte(msg.EventID)},
			{Key: []byte("sold_at"), Value: []byte(msg.SoldAt.Format(time.RFC3339))},
		},
		Timestamp: msg.SoldAt,
	}

	partition, offset, err := kp.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to send sale message to Kafka: %w", err)
	}

	log.Printf("Sale published to Kafka - Topic: %s, Partition: %d, Offset: %d, Sale: %s",
		kp.config.SaleTopic, partition, offset, msg.SaleID)
	return nil
}

// Close closes the Kafka producer
func (kp *KafkaSaleProducer) Close() error {
	if kp.producer != nil {
		if err := kp.producer.Close(); err != nil {
			return fmt.Errorf("failed to close Kafka producer: %w", err)
		}
		log.Println("Kafka sale producer closed")
	}
	return nil
}

// NoopProducer is used when Kafka is disabled. Publishing succeeds
// silently.
type NoopProducer struct{}

func NewNoopProducer() Producer {
	return &NoopProducer{}
}

func (np *NoopProducer) PublishSaleConfirmed(ctx context.Context, msg *SaleConfirmedMessage) error {
	return nil
}

func (np *NoopProducer) Close() error {
	return nil
}
