package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/BarkinBalci/registration-analytics-service/internal/config"
	"github.com/BarkinBalci/registration-analytics-service/internal/queue"
)

// Reader is the subset of *kafka.Reader used by Client
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Writer is the subset of *kafka.Writer used by Client
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Client consumes from and publishes to a Kafka topic
type Client struct {
	reader Reader
	writer Writer
	topic  string
	log    *zap.Logger
}

// NewClient creates a new Kafka client for the configured topic and consumer group
func NewClient(cfg config.Kafka, log *zap.Logger) *Client {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  500 * time.Millisecond,
	})

	log.Info("Kafka client created",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic", cfg.Topic),
		zap.String("group_id", cfg.GroupID))

	return NewClientWith(reader, newWriter(cfg), cfg.Topic, log)
}

// NewPublisher creates a publish-only client that does not join the consumer group
func NewPublisher(cfg config.Kafka, log *zap.Logger) *Client {
	log.Info("Kafka publisher created",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic", cfg.Topic))

	return NewClientWith(nil, newWriter(cfg), cfg.Topic, log)
}

func newWriter(cfg config.Kafka) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
}

// NewClientWith creates a client around existing reader and writer implementations
func NewClientWith(reader Reader, writer Writer, topic string, log *zap.Logger) *Client {
	return &Client{
		reader: reader,
		writer: writer,
		topic:  topic,
		log:    log,
	}
}

// Name identifies the queue in logs
func (c *Client) Name() string {
	return "kafka:" + c.topic
}

// ReceiveMessages blocks until the next message of the consumer group is available
func (c *Client) ReceiveMessages(ctx context.Context) ([]queue.Message, error) {
	if c.reader == nil {
		return nil, errors.New("kafka client has no reader")
	}

	m, err := c.reader.FetchMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch message from Kafka: %w", err)
	}

	return []queue.Message{{
		ID:      fmt.Sprintf("%s/%d/%d", m.Topic, m.Partition, m.Offset),
		Body:    m.Value,
		Receipt: m,
	}}, nil
}

// DeleteMessage commits the offset of msg for the consumer group
func (c *Client) DeleteMessage(ctx context.Context, msg queue.Message) error {
	m, ok := msg.Receipt.(kafka.Message)
	if !ok || c.reader == nil {
		return fmt.Errorf("message %s has no Kafka offset", msg.ID)
	}
	if err := c.reader.CommitMessages(ctx, m); err != nil {
		return fmt.Errorf("failed to commit message %s: %w", msg.ID, err)
	}
	return nil
}

// PublishRegistration writes a raw registration keyed by key, so redeliveries land on the same partition
func (c *Client) PublishRegistration(ctx context.Context, key string, body []byte) error {
	err := c.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: body,
		Time:  time.Now(),
	})
	if err != nil {
		c.log.Error("Failed to write message to Kafka",
			zap.String("registration_key", key),
			zap.Error(err))
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}

	c.log.Debug("Registration published to Kafka", zap.String("registration_key", key))
	return nil
}

// Close closes the reader and writer
func (c *Client) Close() error {
	var readerErr error
	if c.reader != nil {
		readerErr = c.reader.Close()
	}
	return errors.Join(readerErr, c.writer.Close())
}
