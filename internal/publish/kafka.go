package publish

import (
	"context"
	"time"

	"codeberg.org/mutker/vitalsd/internal/errors"
	"codeberg.org/mutker/vitalsd/internal/logger"
	"codeberg.org/mutker/vitalsd/internal/metric"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a topic keyed by user id, so one
// user's readings stay ordered within a partition.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	logger logger.Logger
	now    func() time.Time
}

func NewKafka(cfg KafkaConfig, log logger.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: false,
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topic", cfg.Topic).
		Msg("Kafka publisher configured")

	return newKafkaWithWriter(cfg.Topic, w, log)
}

func newKafkaWithWriter(topic string, w messageWriter, log logger.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: w, topic: topic, logger: log, now: time.Now}
}

func (p *KafkaPublisher) Publish(ctx context.Context, r metric.Reading) error {
	now := p.now()
	data, err := encode(r, now)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(r.Header().UserID),
		Value: data,
		Time:  now,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(r.Kind())},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return errors.New().Wrap(ErrPublishFailed, err)
	}

	p.logger.Debug().
		Str("topic", p.topic).
		Str("kind", string(r.Kind())).
		Msg("Reading published")
	return nil
}

func (p *KafkaPublisher) Close() error {
	if err := p.writer.Close(); err != nil {
		return errors.New().Wrap(ErrCloseFailed, err)
	}
	return nil
}
