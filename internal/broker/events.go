package broker

import (
	"context"
	"errors"

	"product-order-service/internal/models"
	"product-order-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher publishes product events to Kafka in the delivery envelope format
type EventPublisher struct {
	producer   *Producer
	pubsubName string
	source     string
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer, pubsubName, source string) *EventPublisher {
	return &EventPublisher{producer: producer, pubsubName: pubsubName, source: source}
}

// Publish publishes event to topic, keyed by product ID
func (ep *EventPublisher) Publish(ctx context.Context, topic string, event *models.ProductEvent) error {
	payload, err := EncodeEnvelope(event, EnvelopeOptions{
		Topic:      topic,
		PubsubName: ep.pubsubName,
		Source:     ep.source,
	})
	if err != nil {
		return err
	}
	return ep.producer.Publish(ctx, topic, event.ProductID, payload)
}

// Projector applies a decoded product event to the consumer-side stores
type Projector interface {
	Project(ctx context.Context, event *models.ProductEvent) error
}

// Deduplicator remembers which event IDs were already projected
type Deduplicator interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// EventHandler turns deliveries into projected events
type EventHandler struct {
	projector Projector
	dedup     Deduplicator
	logger    *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler(projector Projector) *EventHandler {
	return &EventHandler{projector: projector, logger: util.GetLogger()}
}

// WithDeduplicator skips events whose ID was already projected
func (eh *EventHandler) WithDeduplicator(dedup Deduplicator) *EventHandler {
	eh.dedup = dedup
	return eh
}

// HandleEnvelope decodes a delivery payload and projects the event it carries
func (eh *EventHandler) HandleEnvelope(ctx context.Context, payload []byte) error {
	ctx, span := util.StartSpan(ctx, "EventHandler.HandleEnvelope")
	defer span.End()

	event, err := DecodeEnvelope(payload)
	if err != nil {
		util.ProductEventsFailedTotal.WithLabelValues("malformed").Inc()
		eh.logger.Error("Rejected delivery", zap.Error(err))
		return util.SpanError(span, err)
	}

	span.SetAttributes(util.EventAttributes(event.EventID, event.EventType, event.ProductID)...)
	eh.logger.Info("Received product event", util.EventFields(event.EventID, event.EventType, event.ProductID)...)

	if eh.seen(ctx, event) {
		util.ProductEventsDuplicateTotal.Inc()
		eh.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	if err := eh.projector.Project(ctx, event); err != nil {
		util.ProductEventsFailedTotal.WithLabelValues("projection").Inc()
		return util.SpanError(span, err)
	}

	if eh.dedup != nil && event.EventID != "" {
		if err := eh.dedup.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
			eh.logger.Error("Failed to mark event processed", zap.String("event_id", event.EventID), zap.Error(err))
		}
	}
	return nil
}

// HandleMessage handles a Kafka message carrying a delivery envelope
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	return eh.HandleEnvelope(ctx, msg.Value)
}

// seen reports a previously projected event. Lookup errors fall through to
// projection, which is safe to repeat.
func (eh *EventHandler) seen(ctx context.Context, event *models.ProductEvent) bool {
	if eh.dedup == nil || event.EventID == "" {
		return false
	}

	processed, err := eh.dedup.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			eh.logger.Warn("Dedup lookup failed, projecting anyway",
				zap.String("event_id", event.EventID),
				zap.Error(err))
		}
		return false
	}
	return processed
}
