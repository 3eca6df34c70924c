package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"noshow-service/internal/config"
	"noshow-service/internal/models"
)

// Producer publishes resolution events for the downstream release scheduler.
type Producer struct {
	writer *kafka.Writer
}

func NewProducer(cfg config.Config) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Kafka.Broker),
			Topic:                  cfg.Kafka.ResolutionTopic,
			Balancer:               &kafka.LeastBytes{},
			RequiredAcks:           kafka.RequireOne,
			WriteTimeout:           5 * time.Second,
			AllowAutoTopicCreation: true,
		},
	}
}

// PublishResolution writes r keyed by reservation so events for one alert stay ordered.
func (p *Producer) PublishResolution(ctx context.Context, r models.Resolution) error {
	msg, err := resolutionMessage(r)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish resolution for %s: %w", r.AlertID, err)
	}
	return nil
}

func resolutionMessage(r models.Resolution) (kafka.Message, error) {
	value, err := json.Marshal(r)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal resolution: %w", err)
	}
	return kafka.Message{
		Key:   []byte(r.AlertID),
		Value: value,
		Time:  r.ResolvedAt,
	}, nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
