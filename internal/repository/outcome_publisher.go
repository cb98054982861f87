package repository

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"

	"TradeGate/internal/domain/models"
	domrepo "TradeGate/internal/domain/repository"
	pkgkafka "TradeGate/pkg/kafka"
)

// KafkaOutcomePublisher pushes terminal outcomes onto a Kafka topic, keyed
// by asset so per-asset ordering survives partitioning.
type KafkaOutcomePublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaOutcomePublisher(producer *pkgkafka.Producer, topic string) *KafkaOutcomePublisher {
	return &KafkaOutcomePublisher{producer: producer, topic: topic}
}

func (p *KafkaOutcomePublisher) Publish(ctx context.Context, o *models.PipelineOutcome) error {
	payload, err := sonic.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}
	return p.producer.Publish(ctx, p.topic, []byte(o.AssetID), payload)
}

func (p *KafkaOutcomePublisher) Close() error {
	return p.producer.Close()
}

var _ domrepo.OutcomePublisher = (*KafkaOutcomePublisher)(nil)
