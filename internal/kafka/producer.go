package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/tintcrm/billing-service/pkg/logger"
)

// EntitlementChangedMessage сообщение о смене права доступа организации.
// Публикуется после каждого примененного патча, чтобы остальные сервисы
// CRM (уведомления, аналитика) реагировали на смену подписки.
type EntitlementChangedMessage struct {
	OrganizationID string    `json:"organization_id"`
	Status         string    `json:"status"`
	IsActive       bool      `json:"is_active"`
	EventID        string    `json:"event_id"`
	EventType      string    `json:"event_type"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// Producer публикует биллинговые события в Kafka
type Producer struct {
	writer *kafka.Writer
	log    *logger.Logger
}

// NewProducer создает продюсера для топика событий о правах доступа
func NewProducer(brokers []string, topic string, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{
		writer: writer,
		log:    log,
	}
}

// PublishEntitlementChanged публикует сообщение о смене права доступа.
// Ключ сообщения - ID организации: события одного тенанта попадают
// в одну партицию и читаются по порядку.
func (p *Producer) PublishEntitlementChanged(ctx context.Context, msg EntitlementChangedMessage) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("kafka: failed to marshal entitlement message: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.OrganizationID),
		Value: value,
	})
	if err != nil {
		p.log.Errorw("Failed to publish entitlement change", "organizationID", msg.OrganizationID, "error", err)
		return fmt.Errorf("kafka: failed to publish entitlement change: %w", err)
	}

	p.log.Debugw("Entitlement change published", "organizationID", msg.OrganizationID, "status", msg.Status)
	return nil
}

// Close закрывает продюсера
func (p *Producer) Close() error {
	return p.writer.Close()
}
