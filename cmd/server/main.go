package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"product-order-service/config"
	"product-order-service/internal/api"
	"product-order-service/internal/broker"
	"product-order-service/internal/models"
	"product-order-service/internal/redisclient"
	"product-order-service/internal/service"
	"product-order-service/internal/store"
	"product-order-service/internal/util"
	"product-order-service/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, cfg.Server.ServiceName); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting product order service", zap.String("broker", cfg.Broker.Driver))

	tp, err := util.InitTracer(cfg.Server.ServiceName, cfg.Server.Env, cfg.Observ.JaegerEndpoint)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Error("Error shutting down tracer", zap.Error(err))
		}
	}()

	// consumer side: projection + order book, written only through the projector and order service
	projection := store.NewProductStore()
	orderBook := store.NewOrderBook()
	projector := service.NewEventProjector(projection, orderBook)
	orderService := service.NewOrderService(projection, orderBook)

	eventHandler := broker.NewEventHandler(projector)
	if cfg.Redis.Enabled {
		redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.DedupTTL)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		eventHandler.WithDeduplicator(redisClient)
		logger.Info("Redis event deduplication enabled")
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var publisher service.Publisher
	var productWorker *worker.ProductEventWorker

	switch cfg.Broker.Driver {
	case config.BrokerKafka:
		producer := broker.NewProducer(cfg.Kafka.Brokers)
		defer producer.Close()
		publisher = broker.NewEventPublisher(producer, cfg.PubSub.Name, cfg.PubSub.Source)
		logger.Info("Kafka producer initialized", zap.Strings("brokers", cfg.Kafka.Brokers))

		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.ProductTopic, cfg.Kafka.ConsumerGroup)
		productWorker = worker.NewProductEventWorker(consumer, eventHandler)
		go func() {
			if err := productWorker.Start(workerCtx); err != nil && err != context.Canceled {
				logger.Error("Product event worker error", zap.Error(err))
			}
		}()
	case config.BrokerLocal:
		bus := broker.NewLocalBus(cfg.PubSub.Name, cfg.PubSub.Source)
		bus.Subscribe(cfg.PubSub.Topic, eventHandler.HandleEnvelope)
		publisher = bus
		logger.Info("Using in-process event bus")
	default:
		logger.Fatal("Unknown broker driver", zap.String("driver", cfg.Broker.Driver))
	}

	// publisher side: authoritative catalog
	catalog := service.NewProductCatalog(store.NewProductStore(), publisher, cfg.Kafka.ProductTopic)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	subscription := models.NewSubscription(cfg.PubSub.Name, cfg.PubSub.Topic, cfg.PubSub.Route)
	handler := api.NewHandler(catalog, orderService, projector, eventHandler, subscription)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if productWorker != nil {
		_ = productWorker.Stop()
	}

	logger.Info("Server exited")
}
