package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/capitalize-ai/quote-assistant/internal/model"
	"github.com/capitalize-ai/quote-assistant/pkg/logger"
	"github.com/capitalize-ai/quote-assistant/pkg/metrics"
)

// RedisStore keeps conversations in Redis. Updates WATCH the key and commit
// in a MULTI block, retrying when another writer got there first.
type RedisStore struct {
	rdb    goredis.UniversalClient
	prefix string
	ttl    time.Duration
	logger *logger.Logger
}

// NewRedisStore creates a store. A zero ttl keeps keys forever; otherwise
// every write refreshes the expiry.
func NewRedisStore(rdb goredis.UniversalClient, ttl time.Duration, log *logger.Logger) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: "quote:conv:", ttl: ttl, logger: log}
}

func (s *RedisStore) key(userKey string) string {
	return s.prefix + userKey
}

// Get returns the stored state for userKey.
func (s *RedisStore) Get(ctx context.Context, userKey string) (*model.ConversationState, error) {
	data, err := s.rdb.Get(ctx, s.key(userKey)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return decode(data)
}

// Put stores state unconditionally.
func (s *RedisStore) Put(ctx context.Context, state *model.ConversationState) error {
	data, err := encode(state)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, s.key(state.UserKey), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes the conversation for userKey.
func (s *RedisStore) Delete(ctx context.Context, userKey string) error {
	if err := s.rdb.Del(ctx, s.key(userKey)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Update applies fn inside a WATCH transaction on the key.
func (s *RedisStore) Update(ctx context.Context, userKey string, fn UpdateFunc) (*model.ConversationState, error) {
	key := s.key(userKey)
	var next *model.ConversationState

	txf := func(tx *goredis.Tx) error {
		var current *model.ConversationState
		data, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, goredis.Nil):
		case err != nil:
			return fmt.Errorf("redis get: %w", err)
		default:
			if current, err = decode(data); err != nil {
				return err
			}
		}

		next, err = apply(userKey, current, fn)
		if err != nil {
			return err
		}
		out, err := encode(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, out, s.ttl)
			return nil
		})
		return err
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := s.rdb.Watch(ctx, txf, key)
		if err == nil {
			return next, nil
		}
		if !errors.Is(err, goredis.TxFailedErr) {
			return nil, err
		}
		metrics.StoreConflictsTotal.WithLabelValues("redis").Inc()
		s.logger.Debug("conversation update conflict",
			zap.String("user_key", userKey),
			zap.Int("attempt", attempt),
		)
	}
	return nil, fmt.Errorf("%q after %d attempts: %w", userKey, maxAttempts, ErrConflict)
}

// Ping checks the connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
