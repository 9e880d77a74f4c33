package worker

import (
	"context"

	"product-order-service/internal/broker"
	"product-order-service/internal/util"

	"go.uber.org/zap"
)

// ProductEventWorker feeds product events from Kafka into the event handler
type ProductEventWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewProductEventWorker creates a new product event worker
func NewProductEventWorker(consumer *broker.Consumer, eventHandler *broker.EventHandler) *ProductEventWorker {
	return &ProductEventWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
		logger:       util.GetLogger(),
	}
}

// Start blocks consuming until ctx is cancelled
func (w *ProductEventWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting product event worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *ProductEventWorker) Stop() error {
	w.logger.Info("Stopping product event worker")
	return w.consumer.Close()
}
