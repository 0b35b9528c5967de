package weights

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iwvelando/pawn-calculator/pkg/rates"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const maxSaveRetries = 5

// RedisStore keeps the document as JSON under a single key and announces
// changes on a pub/sub channel.
type RedisStore struct {
	client  *redis.Client
	key     string
	channel string
	logger  *zap.Logger
}

// NewRedisClient creates a redis client from connection settings.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// NewRedisStore returns a store for appID's document.
func NewRedisStore(client *redis.Client, appID string, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	key := DocumentPath(appID)
	return &RedisStore{
		client:  client,
		key:     key,
		channel: key + ":changed",
		logger:  logger,
	}
}

// Load reads and decodes the document.
func (s *RedisStore) Load(ctx context.Context) (rates.WeightTable, error) {
	return s.load(ctx, s.client)
}

type redisGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *RedisStore) load(ctx context.Context, cmd redisGetter) (rates.WeightTable, error) {
	raw, err := cmd.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return rates.WeightTable{}, ErrNotFound
	}
	if err != nil {
		return rates.WeightTable{}, fmt.Errorf("failed to read %s from redis: %w", s.key, err)
	}

	var table rates.WeightTable
	if err := json.Unmarshal(raw, &table); err != nil {
		return rates.WeightTable{}, fmt.Errorf("failed to decode %s: %w", s.key, err)
	}
	return table, nil
}

// Save merges update into the document inside an optimistic transaction and
// publishes a change notification.
func (s *RedisStore) Save(ctx context.Context, update rates.WeightTable) error {
	txf := func(tx *redis.Tx) error {
		current, err := s.load(ctx, tx)
		var merged rates.WeightTable
		switch {
		case errors.Is(err, ErrNotFound):
			merged = update.Clone()
		case err != nil:
			return err
		default:
			merged = current.Merge(update)
		}

		raw, err := json.Marshal(merged)
		if err != nil {
			return fmt.Errorf("failed to encode weights: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.key, raw, 0)
			pipe.Publish(ctx, s.channel, "saved")
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxSaveRetries; attempt++ {
		err := s.client.Watch(ctx, txf, s.key)
		if errors.Is(err, redis.TxFailedErr) {
			s.logger.Debug("weights changed during save, retrying",
				zap.String("op", "weights.RedisStore.Save"),
				zap.Int("attempt", attempt+1),
			)
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to save %s to redis: %w", s.key, err)
		}
		return nil
	}
	return fmt.Errorf("failed to save %s to redis: too many concurrent updates", s.key)
}

// Watch subscribes to change notifications and reloads the document on each.
func (s *RedisStore) Watch(ctx context.Context, fn func(rates.WeightTable)) error {
	sub := s.client.Subscribe(ctx, s.channel)
	defer sub.Close()

	// Wait for the subscription to be confirmed so no notification is missed.
	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to subscribe to %s: %w", s.channel, err)
	}

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-messages:
			if !ok {
				return fmt.Errorf("subscription to %s closed", s.channel)
			}
			table, err := s.Load(ctx)
			if err != nil {
				s.logger.Warn("failed to reload weights after change notification",
					zap.String("op", "weights.RedisStore.Watch"),
					zap.Error(err),
				)
				continue
			}
			fn(table)
		}
	}
}
