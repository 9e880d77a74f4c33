package broker

import (
	"context"
	"sync"

	"product-order-service/internal/models"
	"product-order-service/internal/util"

	"go.uber.org/zap"
)

// Delivery receives an encoded envelope
type Delivery func(ctx context.Context, payload []byte) error

// LocalBus is an in-process publisher. Publish encodes the envelope exactly as
// the Kafka publisher does and hands it to every subscriber of the topic.
// Subscriber failures are logged, not returned: once the bus accepted the
// event, publishing succeeded.
type LocalBus struct {
	mu          sync.RWMutex
	subscribers map[string][]Delivery
	pubsubName  string
	source      string
	logger      *zap.Logger
}

// NewLocalBus creates an in-process bus
func NewLocalBus(pubsubName, source string) *LocalBus {
	return &LocalBus{
		subscribers: make(map[string][]Delivery),
		pubsubName:  pubsubName,
		source:      source,
		logger:      util.GetLogger(),
	}
}

// Subscribe registers delivery for topic
func (b *LocalBus) Subscribe(topic string, delivery Delivery) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[topic] = append(b.subscribers[topic], delivery)
}

// Publish delivers event synchronously to the subscribers of topic
func (b *LocalBus) Publish(ctx context.Context, topic string, event *models.ProductEvent) error {
	payload, err := EncodeEnvelope(event, EnvelopeOptions{
		Topic:      topic,
		PubsubName: b.pubsubName,
		Source:     b.source,
	})
	if err != nil {
		return err
	}

	b.mu.RLock()
	subs := append([]Delivery(nil), b.subscribers[topic]...)
	b.mu.RUnlock()

	for _, deliver := range subs {
		if err := deliver(ctx, payload); err != nil {
			b.logger.Error("Local delivery failed",
				zap.String("topic", topic),
				zap.String("event_id", event.EventID),
				zap.Error(err))
		}
	}
	return nil
}
