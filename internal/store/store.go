// Package store persists conversation state. Every driver provides atomic
// read-modify-write per user key, which is what serialises the turns of a
// single conversation.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/capitalize-ai/quote-assistant/internal/model"
)

var (
	// ErrNotFound is returned when a user has no stored conversation.
	ErrNotFound = errors.New("conversation not found")

	// ErrConflict is returned when an update kept losing to concurrent writers.
	ErrConflict = errors.New("conversation update conflict")
)

// maxAttempts bounds optimistic retries in the revision based drivers.
const maxAttempts = 5

// UpdateFunc receives the current state, or nil if there is none, and returns
// the state to store. Returning an error aborts the update without writing.
// The function may run more than once and must not have side effects.
type UpdateFunc func(current *model.ConversationState) (*model.ConversationState, error)

// Store is the conversation store collaborator.
type Store interface {
	Get(ctx context.Context, userKey string) (*model.ConversationState, error)
	Put(ctx context.Context, state *model.ConversationState) error
	Delete(ctx context.Context, userKey string) error
	Update(ctx context.Context, userKey string, fn UpdateFunc) (*model.ConversationState, error)
}

func encode(state *model.ConversationState) ([]byte, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal conversation: %w", err)
	}
	return data, nil
}

func decode(data []byte) (*model.ConversationState, error) {
	var state model.ConversationState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal conversation: %w", err)
	}
	if !state.Step.Valid() {
		return nil, fmt.Errorf("stored conversation has unknown step %q", state.Step)
	}
	return &state, nil
}

func apply(userKey string, current *model.ConversationState, fn UpdateFunc) (*model.ConversationState, error) {
	next, err := fn(current)
	if err != nil {
		return nil, err
	}
	if next == nil {
		return nil, fmt.Errorf("update for %q returned no state", userKey)
	}
	if next.UserKey != userKey {
		return nil, fmt.Errorf("update for %q returned state for %q", userKey, next.UserKey)
	}
	return next, nil
}
