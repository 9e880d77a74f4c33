package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Broker drivers
const (
	BrokerLocal = "local"
	BrokerKafka = "kafka"
)

type Config struct {
	Server ServerConfig
	Broker BrokerConfig
	Kafka  KafkaConfig
	PubSub PubSubConfig
	Redis  RedisConfig
	Observ ObservabilityConfig
}

type ServerConfig struct {
	Port        string
	Env         string
	ServiceName string
}

type BrokerConfig struct {
	Driver string
}

type KafkaConfig struct {
	Brokers       []string
	ProductTopic  string
	ConsumerGroup string
}

// PubSubConfig describes the subscription handed to the transport on discovery
type PubSubConfig struct {
	Name   string
	Topic  string
	Route  string
	Source string
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	DedupTTL time.Duration
}

type ObservabilityConfig struct {
	JaegerEndpoint string
}

func Load() *Config {
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	redisEnabled, _ := strconv.ParseBool(getEnv("REDIS_ENABLED", "false"))
	dedupTTL, _ := strconv.Atoi(getEnv("EVENT_DEDUP_TTL_SECONDS", "86400"))

	topic := getEnv("PRODUCT_TOPIC", "product-events")

	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Env:         getEnv("ENV", "development"),
			ServiceName: getEnv("SERVICE_NAME", "product-order-service"),
		},
		Broker: BrokerConfig{
			Driver: strings.ToLower(getEnv("BROKER_DRIVER", BrokerLocal)),
		},
		Kafka: KafkaConfig{
			Brokers:       strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			ProductTopic:  topic,
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "order-service-group"),
		},
		PubSub: PubSubConfig{
			Name:   getEnv("PUBSUB_NAME", "product-pubsub"),
			Topic:  topic,
			Route:  getEnv("PUBSUB_ROUTE", "/product-events"),
			Source: getEnv("EVENT_SOURCE", "product-service"),
		},
		Redis: RedisConfig{
			Enabled:  redisEnabled,
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
			DedupTTL: time.Duration(dedupTTL) * time.Second,
		},
		Observ: ObservabilityConfig{
			JaegerEndpoint: getEnv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
		},
	}

	log.Printf("Config loaded: env=%s, port=%s, broker=%s", cfg.Server.Env, cfg.Server.Port, cfg.Broker.Driver)
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
