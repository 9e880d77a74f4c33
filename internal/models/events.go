package models

import "time"

// Event types
const (
	EventTypeProductCreated = "product.created"
	EventTypeProductUpdated = "product.updated"
	EventTypeProductDeleted = "product.deleted"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"eventId"`
	EventType string    `json:"eventType"`
	Timestamp time.Time `json:"timestamp"`
}

// ProductEvent is emitted by the catalog on every mutation.
// Product is always set for created/updated; for deleted only ProductID is guaranteed.
type ProductEvent struct {
	BaseEvent
	ProductID string   `json:"productId"`
	Product   *Product `json:"product,omitempty"`
}

// Subscription is the descriptor returned to the transport on discovery
type Subscription struct {
	PubsubName string            `json:"pubsubname"`
	Topic      string            `json:"topic"`
	Route      string            `json:"route"`
	Metadata   map[string]string `json:"metadata"`
}

// NewSubscription builds a raw-payload JSON subscription
func NewSubscription(pubsubName, topic, route string) Subscription {
	return Subscription{
		PubsubName: pubsubName,
		Topic:      topic,
		Route:      route,
		Metadata: map[string]string{
			"rawPayload":   "true",
			"content-type": "application/json",
		},
	}
}
