package kafka

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"noshow-service/internal/config"
	"noshow-service/internal/logging"
	"noshow-service/internal/models"
)

// AlertHandler receives every valid alert read from the topic.
type AlertHandler interface {
	HandleAlert(ctx context.Context, a models.NoShowAlert) error
}

type Consumer struct {
	reader  *kafka.Reader
	handler AlertHandler
	logger  *logging.Logger
}

func NewConsumer(cfg config.Config, handler AlertHandler, logger *logging.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     []string{cfg.Kafka.Broker},
		GroupID:     cfg.Kafka.GroupID,
		Topic:       cfg.Kafka.AlertTopic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	})
	return &Consumer{reader: reader, handler: handler, logger: logger.With("topic", cfg.Kafka.AlertTopic)}
}

// Start reads messages until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.logger.Infof("Kafka consumer started")
		for {
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, context.Canceled) {
					c.logger.Infof("Kafka consumer stopped")
					return
				}
				c.logger.Errorf("Read message failed: %v", err)
				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Second):
				}
				continue
			}
			c.process(ctx, msg)
		}
	}()
}

// process decodes one message and hands it over. Invalid messages are logged and skipped.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) {
	a, err := models.DecodeAlert(msg.Value)
	if err != nil {
		c.logger.Errorf("Invalid message at partition %d offset %d: %v", msg.Partition, msg.Offset, err)
		return
	}
	if err := c.handler.HandleAlert(ctx, a); err != nil {
		c.logger.Errorf("Handle alert %s failed: %v", a.ReservationID, err)
		return
	}
	c.logger.Debugf("Processed Kafka message for alert %s", a.ReservationID)
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
