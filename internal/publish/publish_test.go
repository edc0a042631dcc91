package publish

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"codeberg.org/mutker/vitalsd/internal/errors"
	"codeberg.org/mutker/vitalsd/internal/logger"
	"codeberg.org/mutker/vitalsd/internal/metric"
	"github.com/alicebob/miniredis/v2"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)

func testReading() *metric.HeartRate {
	return &metric.HeartRate{
		Base: metric.Base{
			ID:        "r1",
			UserID:    "u1",
			Timestamp: t0,
			Source:    metric.SourceSimulated,
		},
		Value:         72,
		ActivityLevel: metric.ActivityResting,
	}
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Backend = "nats"
	assert.True(t, errors.HasCode(cfg.Validate(), ErrUnsupportedBackend))

	cfg.Backend = BackendRedis
	cfg.Redis.Stream = ""
	assert.True(t, errors.HasCode(cfg.Validate(), ErrInvalidConfig))

	cfg = DefaultConfig()
	cfg.Backend = BackendKafka
	cfg.Kafka.Brokers = nil
	assert.True(t, errors.HasCode(cfg.Validate(), ErrInvalidConfig))
}

func TestNewDefaultsToNop(t *testing.T) {
	p, err := New(context.Background(), DefaultConfig(), logger.Nop())
	require.NoError(t, err)
	assert.NoError(t, p.Publish(context.Background(), testReading()))
	assert.NoError(t, p.Close())
}

func TestRedisPublish(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	cfg := DefaultConfig()
	cfg.Backend = BackendRedis
	cfg.Redis.Addr = mr.Addr()

	p, err := New(ctx, cfg, logger.Nop())
	require.NoError(t, err)
	defer p.Close()

	rp := p.(*RedisPublisher)
	rp.now = func() time.Time { return t0.Add(time.Minute) }

	require.NoError(t, p.Publish(ctx, testReading()))

	entries, err := rp.client.XRange(ctx, cfg.Redis.Stream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	values := entries[0].Values
	assert.Equal(t, "heart_rate", values["kind"])
	assert.Equal(t, "u1", values["user_id"])

	var event struct {
		Kind        string          `json:"kind"`
		UserID      string          `json:"user_id"`
		PublishedAt time.Time       `json:"published_at"`
		Reading     json.RawMessage `json:"reading"`
	}
	require.NoError(t, json.Unmarshal([]byte(values["data"].(string)), &event))
	assert.Equal(t, "heart_rate", event.Kind)
	assert.True(t, t0.Add(time.Minute).Equal(event.PublishedAt))

	var reading map[string]any
	require.NoError(t, json.Unmarshal(event.Reading, &reading))
	assert.Equal(t, "r1", reading["id"])
	assert.Equal(t, float64(72), reading["value"])
}

func TestRedisConnectFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewRedis(ctx, RedisConfig{Addr: addr, Stream: "s"}, logger.Nop())
	assert.True(t, errors.HasCode(err, ErrConnectFailed))
}

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublishKeysByUser(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaWithWriter("vitalsd.readings", w, logger.Nop())
	p.now = func() time.Time { return t0 }

	require.NoError(t, p.Publish(context.Background(), testReading()))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, []byte("u1"), msg.Key)
	assert.Equal(t, t0, msg.Time)
	assert.Equal(t, []kafka.Header{{Key: "kind", Value: []byte("heart_rate")}}, msg.Headers)
	assert.Contains(t, string(msg.Value), `"user_id":"u1"`)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublishFailure(t *testing.T) {
	w := &fakeWriter{err: kafka.LeaderNotAvailable}
	p := newKafkaWithWriter("t", w, logger.Nop())

	err := p.Publish(context.Background(), testReading())
	assert.True(t, errors.HasCode(err, ErrPublishFailed))
	assert.ErrorIs(t, err, kafka.LeaderNotAvailable)
}
