package kafka

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"watchstore/models"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

func InitConsumer(logger *zap.Logger) (sarama.Consumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Return.Errors = true

	brokers := []string{getEnv("KAFKA_BROKER", "localhost:9092")}

	consumer, err := sarama.NewConsumer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer: %w", err)
	}

	logger.Info("Kafka consumer initialized")
	return consumer, nil
}

// StartConsumer applies payment outcome events to the order ledger. Payment
// here is simulated end to end; only payment_status changes, order status
// stays with the admin workflow and cancellation.
func StartConsumer(consumer sarama.Consumer, db *sql.DB, logger *zap.Logger) error {
	topic := getEnv("KAFKA_TOPIC", "order_events")
	partitionConsumer, err := consumer.ConsumePartition(topic, 0, sarama.OffsetNewest)
	if err != nil {
		return fmt.Errorf("failed to consume partition: %w", err)
	}
	defer partitionConsumer.Close()

	logger.Info("Kafka consumer started", zap.String("topic", topic))

	for {
		select {
		case message := <-partitionConsumer.Messages():
			if err := handleMessage(message, db, logger); err != nil {
				logger.Error("Failed to handle message", zap.Error(err))
			}
		case err := <-partitionConsumer.Errors():
			logger.Error("Kafka consumer error", zap.Error(err))
		}
	}
}

func handleMessage(message *sarama.ConsumerMessage, db *sql.DB, logger *zap.Logger) error {
	// Continue the trace started by the producer
	propagator := otel.GetTextMapPropagator()
	carrier := consumerHeaderCarrier(message.Headers)
	ctx := propagator.Extract(context.Background(), carrier)

	ctx, span := otel.Tracer("watchstore").Start(ctx, "ProcessOrderEvent")
	defer span.End()

	var event models.OrderEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}

	span.SetAttributes(
		attribute.String("event.type", event.EventType),
		attribute.Int("order.id", event.OrderID),
	)

	logger.Info("Received event",
		zap.String("event_type", event.EventType),
		zap.Int("order_id", event.OrderID),
		zap.String("order_number", event.OrderNumber),
	)

	switch event.EventType {
	case "payment_failed":
		_, err := db.ExecContext(ctx,
			"UPDATE orders SET payment_status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2",
			models.PaymentStatusFailed, event.OrderID,
		)
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to update payment status: %w", err)
		}
		logger.Info("Payment marked failed", zap.Int("order_id", event.OrderID))
	case "order_paid":
		_, err := db.ExecContext(ctx,
			"UPDATE orders SET payment_status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2",
			models.PaymentStatusPaid, event.OrderID,
		)
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to update payment status: %w", err)
		}
		logger.Info("Payment marked paid", zap.Int("order_id", event.OrderID))
	}

	return nil
}

// consumerHeaderCarrier implements the TextMapCarrier interface for Kafka headers (for consumer)
type consumerHeaderCarrier []*sarama.RecordHeader

func (c consumerHeaderCarrier) Get(key string) string {
	for _, h := range c {
		if string(h.Key) == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c consumerHeaderCarrier) Set(key, value string) {
	// Not needed for extraction
}

func (c consumerHeaderCarrier) Keys() []string {
	keys := make([]string, len(c))
	for i, h := range c {
		keys[i] = string(h.Key)
	}
	return keys
}
