package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"volunteer-service/internal/logging"
	"volunteer-service/internal/models"
)

// readRetryDelay is how long the consumer waits after a failed read.
const readRetryDelay = 2 * time.Second

type Config struct {
	Broker  string
	Topic   string
	GroupID string
}

// Deliverer receives live messages consumed from the topic.
type Deliverer interface {
	Deliver(msg models.LiveMessage)
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer reads relayed live messages. Every instance joins its own consumer
// group so that each one sees every message and can reach its local channels.
type Consumer struct {
	reader     messageReader
	topic      string
	target     Deliverer
	logger     *logging.Logger
	retryDelay time.Duration
}

func NewConsumer(cfg Config, target Deliverer, logger *logging.Logger) *Consumer {
	hostname, err := os.Hostname()
	if err != nil {
		logger.Warnf("Hostname unavailable, using a random consumer group suffix: %v", err)
	}
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     []string{cfg.Broker},
		Topic:       cfg.Topic,
		GroupID:     instanceGroupID(cfg.GroupID, hostname),
		StartOffset: kafka.LastOffset, // live only; missed messages come from the durable list
		MinBytes:    1,
		MaxBytes:    1e6,
	})
	return &Consumer{reader: r, topic: cfg.Topic, target: target, logger: logger, retryDelay: readRetryDelay}
}

// instanceGroupID names this instance's consumer group. The hostname keeps the
// group stable across restarts of the same instance.
func instanceGroupID(base, hostname string) string {
	if hostname == "" {
		hostname = uuid.New().String()
	}
	return fmt.Sprintf("%s-%s", base, hostname)
}

func (c *Consumer) Start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.logger.Infof("Kafka consumer started on topic %s", c.topic)
		c.run(ctx)
		c.logger.Info("Kafka consumer stopped")
	}()
}

func (c *Consumer) run(ctx context.Context) {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) || ctx.Err() != nil {
				return
			}
			c.logger.Errorf("Read message failed: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.retryDelay):
			}
			continue
		}

		live, err := decodeLiveMessage(msg.Value)
		if err != nil {
			c.logger.Errorf("Invalid live message at offset %d: %v", msg.Offset, err)
			continue
		}
		c.target.Deliver(live)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

func decodeLiveMessage(value []byte) (models.LiveMessage, error) {
	var live models.LiveMessage
	if err := json.Unmarshal(value, &live); err != nil {
		return models.LiveMessage{}, fmt.Errorf("unmarshal message failed: %w", err)
	}
	if live.OrganisationID == "" || live.Message == "" {
		return models.LiveMessage{}, errors.New("missing organisation_id or message")
	}
	return live, nil
}
