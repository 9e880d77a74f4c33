package broker

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"product-order-service/internal/models"

	"github.com/google/uuid"
)

// DeliveryEnvelope is the raw-payload wrapper the transport delivers to the route.
// DataBase64 carries a CloudEvent whose data field is the domain event.
type DeliveryEnvelope struct {
	ID              string `json:"id,omitempty"`
	Topic           string `json:"topic,omitempty"`
	PubsubName      string `json:"pubsubname,omitempty"`
	DataContentType string `json:"datacontenttype,omitempty"`
	DataBase64      string `json:"data_base64"`
}

// CloudEvent is the inner structure encoded in DataBase64
type CloudEvent struct {
	ID              string          `json:"id"`
	Source          string          `json:"source"`
	Type            string          `json:"type"`
	SpecVersion     string          `json:"specversion"`
	DataContentType string          `json:"datacontenttype"`
	Time            time.Time       `json:"time"`
	Data            json.RawMessage `json:"data"`
}

// EnvelopeOptions describes where an encoded event is headed
type EnvelopeOptions struct {
	Topic      string
	PubsubName string
	Source     string
}

// DecodeEnvelope recovers a ProductEvent from a delivery payload.
// Every stage fails closed with ErrMalformedEnvelope.
func DecodeEnvelope(payload []byte) (*models.ProductEvent, error) {
	var envelope DeliveryEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("%w: envelope is not a JSON object: %v", models.ErrMalformedEnvelope, err)
	}
	if envelope.DataBase64 == "" {
		return nil, fmt.Errorf("%w: missing data_base64", models.ErrMalformedEnvelope)
	}

	raw, err := base64.StdEncoding.DecodeString(envelope.DataBase64)
	if err != nil {
		return nil, fmt.Errorf("%w: data_base64 is not valid base64: %v", models.ErrMalformedEnvelope, err)
	}

	var ce CloudEvent
	if err := json.Unmarshal(raw, &ce); err != nil {
		return nil, fmt.Errorf("%w: decoded data is not JSON: %v", models.ErrMalformedEnvelope, err)
	}
	if len(ce.Data) == 0 || string(ce.Data) == "null" {
		return nil, fmt.Errorf("%w: missing data field", models.ErrMalformedEnvelope)
	}

	var event models.ProductEvent
	if err := json.Unmarshal(ce.Data, &event); err != nil {
		return nil, fmt.Errorf("%w: data is not a product event: %v", models.ErrMalformedEnvelope, err)
	}
	if event.EventType == "" || event.ProductID == "" {
		return nil, fmt.Errorf("%w: event type and product id are required", models.ErrMalformedEnvelope)
	}

	return &event, nil
}

// EncodeEnvelope wraps event the way the transport delivers it to subscribers
func EncodeEnvelope(event *models.ProductEvent, opts EnvelopeOptions) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	ce := CloudEvent{
		ID:              uuid.New().String(),
		Source:          opts.Source,
		Type:            "com.dapr.event.sent",
		SpecVersion:     "1.0",
		DataContentType: "application/json",
		Time:            event.Timestamp,
		Data:            data,
	}
	inner, err := json.Marshal(ce)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cloud event: %w", err)
	}

	return json.Marshal(DeliveryEnvelope{
		ID:              ce.ID,
		Topic:           opts.Topic,
		PubsubName:      opts.PubsubName,
		DataContentType: "application/json",
		DataBase64:      base64.StdEncoding.EncodeToString(inner),
	})
}
