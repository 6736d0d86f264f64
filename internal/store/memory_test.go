package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/quote-assistant/internal/model"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func increment(userKey string) UpdateFunc {
	return func(current *model.ConversationState) (*model.ConversationState, error) {
		if current == nil {
			current = model.NewConversationState(userKey, testNow)
		}
		next := current.Clone()
		next.Turns++
		return next, nil
	}
}

func TestMemoryStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)

	_, err := s.Get(ctx, "user-1")
	assert.ErrorIs(t, err, ErrNotFound)

	st := model.NewConversationState("user-1", testNow)
	st.Step = model.StepMaterialSelection
	st.Data.Category = &model.Selection{ID: "pouches", Name: "Pouches"}
	require.NoError(t, s.Put(ctx, st))

	got, err := s.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, model.StepMaterialSelection, got.Step)
	assert.Equal(t, "pouches", got.Data.Category.ID)

	got.Data.Category.ID = "changed"
	again, err := s.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "pouches", again.Data.Category.ID)

	require.NoError(t, s.Delete(ctx, "user-1"))
	_, err = s.Get(ctx, "user-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreUpdateSerialisesPerKey(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := s.Update(ctx, "user-1", increment("user-1"))
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := s.Update(ctx, "user-2", increment("user-2"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	for _, key := range []string{"user-1", "user-2"} {
		got, err := s.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, 50, got.Turns, key)
	}
	assert.Empty(t, s.locks)
}

func TestMemoryStoreUpdateErrorDoesNotCommit(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	_, err := s.Update(ctx, "user-1", increment("user-1"))
	require.NoError(t, err)

	boom := errors.New("catalog unavailable")
	_, err = s.Update(ctx, "user-1", func(current *model.ConversationState) (*model.ConversationState, error) {
		current.Step = model.StepQuoteReview
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, model.StepStart, got.Step)
	assert.Equal(t, 1, got.Turns)
}

func TestMemoryStoreUpdateRejectsForeignState(t *testing.T) {
	s := NewMemoryStore(0)
	_, err := s.Update(context.Background(), "user-1", func(*model.ConversationState) (*model.ConversationState, error) {
		return model.NewConversationState("user-2", testNow), nil
	})
	assert.Error(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Hour)
	now := testNow
	s.now = func() time.Time { return now }

	require.NoError(t, s.Put(ctx, model.NewConversationState("user-1", testNow)))
	assert.Equal(t, 1, s.Len())

	now = now.Add(59 * time.Minute)
	_, err := s.Get(ctx, "user-1")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = s.Get(ctx, "user-1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, s.Len())
}
