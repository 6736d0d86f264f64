package store

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/capitalize-ai/quote-assistant/internal/model"
	"github.com/capitalize-ai/quote-assistant/pkg/logger"
	"github.com/capitalize-ai/quote-assistant/pkg/metrics"
)

// kvBucket is the part of jetstream.KeyValue the store uses.
type kvBucket interface {
	Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error)
	Create(ctx context.Context, key string, value []byte) (uint64, error)
	Update(ctx context.Context, key string, value []byte, revision uint64) (uint64, error)
	Delete(ctx context.Context, key string, opts ...jetstream.KVDeleteOpt) error
}

// KVStore keeps conversations in a JetStream key-value bucket. Updates use
// the entry revision for compare-and-set and retry on conflict.
type KVStore struct {
	kv     kvBucket
	logger *logger.Logger
}

// NewKVStore creates a store over a bucket.
func NewKVStore(kv jetstream.KeyValue, log *logger.Logger) *KVStore {
	return &KVStore{kv: kv, logger: log}
}

// kvKey encodes userKey into the characters bucket keys allow. Phone numbers
// and channel ids carry "+", "@" and ":".
func kvKey(userKey string) string {
	return "conv." + base64.RawURLEncoding.EncodeToString([]byte(userKey))
}

// Get returns the stored state for userKey.
func (s *KVStore) Get(ctx context.Context, userKey string) (*model.ConversationState, error) {
	state, _, err := s.get(ctx, userKey)
	return state, err
}

func (s *KVStore) get(ctx context.Context, userKey string) (*model.ConversationState, uint64, error) {
	entry, err := s.kv.Get(ctx, kvKey(userKey))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, 0, ErrNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get conversation: %w", err)
	}
	if entry.Operation() != jetstream.KeyValuePut {
		return nil, entry.Revision(), ErrNotFound
	}
	state, err := decode(entry.Value())
	if err != nil {
		return nil, 0, err
	}
	return state, entry.Revision(), nil
}

// Put stores state unconditionally.
func (s *KVStore) Put(ctx context.Context, state *model.ConversationState) error {
	_, err := s.Update(ctx, state.UserKey, func(*model.ConversationState) (*model.ConversationState, error) {
		return state, nil
	})
	return err
}

// Delete removes the conversation for userKey.
func (s *KVStore) Delete(ctx context.Context, userKey string) error {
	err := s.kv.Delete(ctx, kvKey(userKey))
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return nil
}

// Update reads the current revision, applies fn and writes the result only
// if the revision is unchanged.
func (s *KVStore) Update(ctx context.Context, userKey string, fn UpdateFunc) (*model.ConversationState, error) {
	key := kvKey(userKey)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		current, revision, err := s.get(ctx, userKey)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}

		next, err := apply(userKey, current, fn)
		if err != nil {
			return nil, err
		}
		data, err := encode(next)
		if err != nil {
			return nil, err
		}

		if revision == 0 {
			_, err = s.kv.Create(ctx, key, data)
		} else {
			_, err = s.kv.Update(ctx, key, data, revision)
		}
		if err == nil {
			return next, nil
		}
		if !isRevisionConflict(err) {
			return nil, fmt.Errorf("failed to store conversation: %w", err)
		}

		metrics.StoreConflictsTotal.WithLabelValues("nats").Inc()
		s.logger.Debug("conversation update conflict",
			zap.String("user_key", userKey),
			zap.Int("attempt", attempt),
		)
	}
	return nil, fmt.Errorf("%q after %d attempts: %w", userKey, maxAttempts, ErrConflict)
}

func isRevisionConflict(err error) bool {
	if errors.Is(err, jetstream.ErrKeyExists) {
		return true
	}
	var apiErr *jetstream.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence
}
