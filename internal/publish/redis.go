package publish

import (
	"context"
	"time"

	"codeberg.org/mutker/vitalsd/internal/errors"
	"codeberg.org/mutker/vitalsd/internal/logger"
	"codeberg.org/mutker/vitalsd/internal/metric"
	"github.com/go-redis/redis/v8"
)

// RedisPublisher appends events to a Redis stream.
type RedisPublisher struct {
	client *redis.Client
	cfg    RedisConfig
	logger logger.Logger
	now    func() time.Time
}

// NewRedis connects to cfg.Addr and fails if the server does not answer.
func NewRedis(ctx context.Context, cfg RedisConfig, log logger.Logger) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.New().WithData(ErrConnectFailed, struct {
			Backend string
			Addr    string
			Error   string
		}{
			Backend: BackendRedis,
			Addr:    cfg.Addr,
			Error:   err.Error(),
		})
	}

	log.Info().
		Str("addr", cfg.Addr).
		Str("stream", cfg.Stream).
		Msg("Redis publisher connected")

	return &RedisPublisher{client: client, cfg: cfg, logger: log, now: time.Now}, nil
}

func (p *RedisPublisher) Publish(ctx context.Context, r metric.Reading) error {
	data, err := encode(r, p.now())
	if err != nil {
		return err
	}

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.cfg.Stream,
		MaxLen: p.cfg.MaxLen,
		Approx: p.cfg.MaxLen > 0,
		Values: map[string]interface{}{
			"kind":    string(r.Kind()),
			"user_id": r.Header().UserID,
			"data":    string(data),
		},
	}).Result()
	if err != nil {
		return errors.New().Wrap(ErrPublishFailed, err)
	}

	p.logger.Debug().
		Str("stream", p.cfg.Stream).
		Str("entry_id", id).
		Str("kind", string(r.Kind())).
		Msg("Reading published")
	return nil
}

func (p *RedisPublisher) Close() error {
	if err := p.client.Close(); err != nil {
		return errors.New().Wrap(ErrCloseFailed, err)
	}
	return nil
}
