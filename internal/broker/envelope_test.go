package broker

import (
	"encoding/base64"
	"testing"
	"time"

	"product-order-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvent() *models.ProductEvent {
	return &models.ProductEvent{
		BaseEvent: models.BaseEvent{
			EventID:   "evt-1",
			EventType: models.EventTypeProductUpdated,
			Timestamp: time.Date(2025, 11, 21, 10, 30, 0, 0, time.UTC),
		},
		ProductID: "p1",
		Product: &models.Product{
			ID:    "p1",
			Name:  "Laptop",
			Price: decimal.RequireFromString("150.25"),
			Stock: 4,
		},
	}
}

func wrap(inner string) []byte {
	return []byte(`{"data_base64":"` + base64.StdEncoding.EncodeToString([]byte(inner)) + `"}`)
}

func TestDecodeEnvelopeFromTransportPayload(t *testing.T) {
	inner := `{
		"id": "ce-1",
		"source": "product-service",
		"type": "com.dapr.event.sent",
		"specversion": "1.0",
		"datacontenttype": "application/json",
		"data": {
			"eventId": "evt-9",
			"eventType": "product.deleted",
			"timestamp": "2025-11-21T10:30:00.000Z",
			"productId": "p9"
		}
	}`

	event, err := DecodeEnvelope(wrap(inner))

	require.NoError(t, err)
	assert.Equal(t, "evt-9", event.EventID)
	assert.Equal(t, models.EventTypeProductDeleted, event.EventType)
	assert.Equal(t, "p9", event.ProductID)
	assert.Nil(t, event.Product)
}

func TestEncodeThenDecodeKeepsEvent(t *testing.T) {
	event := sampleEvent()

	payload, err := EncodeEnvelope(event, EnvelopeOptions{Topic: "product-events", PubsubName: "product-pubsub", Source: "product-service"})
	require.NoError(t, err)

	decoded, err := DecodeEnvelope(payload)
	require.NoError(t, err)
	assert.Equal(t, event.EventID, decoded.EventID)
	assert.Equal(t, event.EventType, decoded.EventType)
	assert.True(t, event.Timestamp.Equal(decoded.Timestamp))
	require.NotNil(t, decoded.Product)
	assert.True(t, event.Product.Price.Equal(decoded.Product.Price))
	assert.Equal(t, event.Product.Stock, decoded.Product.Stock)
}

func TestDecodeEnvelopeRejectsMalformedPayloads(t *testing.T) {
	cases := map[string][]byte{
		"not json":           []byte(`data_base64=abc`),
		"not an object":      []byte(`["data_base64"]`),
		"missing field":      []byte(`{"data": {"eventType": "product.created", "productId": "p1"}}`),
		"empty field":        []byte(`{"data_base64": ""}`),
		"bad base64":         []byte(`{"data_base64": "%%%"}`),
		"inner not json":     wrap(`hello`),
		"inner missing data": wrap(`{"id": "ce-1"}`),
		"inner null data":    wrap(`{"data": null}`),
		"data not an event":  wrap(`{"data": "product.created"}`),
		"missing product id": wrap(`{"data": {"eventType": "product.created"}}`),
		"missing event type": wrap(`{"data": {"productId": "p1"}}`),
	}

	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			event, err := DecodeEnvelope(payload)
			assert.Nil(t, event)
			assert.ErrorIs(t, err, models.ErrMalformedEnvelope)
		})
	}
}
