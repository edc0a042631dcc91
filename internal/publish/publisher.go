// Package publish announces stored readings to downstream consumers.
package publish

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"codeberg.org/mutker/vitalsd/internal/errors"
	"codeberg.org/mutker/vitalsd/internal/logger"
	"codeberg.org/mutker/vitalsd/internal/metric"
)

const (
	BackendNone  = "none"
	BackendRedis = "redis"
	BackendKafka = "kafka"
)

// Publisher delivers reading events. Implementations are safe for
// concurrent use.
type Publisher interface {
	Publish(ctx context.Context, r metric.Reading) error
	Close() error
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	// MaxLen caps the stream length approximately. Zero keeps every entry.
	MaxLen int64
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type Config struct {
	Backend string
	Redis   RedisConfig
	Kafka   KafkaConfig
}

func DefaultConfig() Config {
	return Config{
		Backend: BackendNone,
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Stream: "vitalsd:readings",
			MaxLen: 100000,
		},
		Kafka: KafkaConfig{
			Brokers: []string{"localhost:9092"},
			Topic:   "vitalsd.readings",
		},
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	switch c.Backend {
	case "", BackendNone:
		return nil
	case BackendRedis:
		if strings.TrimSpace(c.Redis.Addr) == "" || strings.TrimSpace(c.Redis.Stream) == "" {
			return errFactory.WithMessage(ErrInvalidConfig, "redis publisher requires addr and stream")
		}
	case BackendKafka:
		if len(c.Kafka.Brokers) == 0 || strings.TrimSpace(c.Kafka.Topic) == "" {
			return errFactory.WithMessage(ErrInvalidConfig, "kafka publisher requires brokers and topic")
		}
	default:
		return errFactory.WithData(ErrUnsupportedBackend, c.Backend)
	}
	return nil
}

// New builds the publisher selected by cfg.Backend.
func New(ctx context.Context, cfg Config, log logger.Logger) (Publisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case BackendRedis:
		return NewRedis(ctx, cfg.Redis, log)
	case BackendKafka:
		return NewKafka(cfg.Kafka, log), nil
	default:
		return Nop(), nil
	}
}

// Event is the message body published for every stored reading.
type Event struct {
	Kind        metric.Kind    `json:"kind"`
	UserID      string         `json:"user_id"`
	PublishedAt time.Time      `json:"published_at"`
	Reading     metric.Reading `json:"reading"`
}

func encode(r metric.Reading, now time.Time) ([]byte, error) {
	data, err := json.Marshal(Event{
		Kind:        r.Kind(),
		UserID:      r.Header().UserID,
		PublishedAt: now.UTC(),
		Reading:     r,
	})
	if err != nil {
		return nil, errors.New().Wrap(ErrEncodeFailed, err)
	}
	return data, nil
}

type nopPublisher struct{}

// Nop returns a publisher that drops every event.
func Nop() Publisher {
	return nopPublisher{}
}

func (nopPublisher) Publish(context.Context, metric.Reading) error { return nil }

func (nopPublisher) Close() error { return nil }
