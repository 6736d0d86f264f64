package model

import (
	"time"
)

// EventType represents the type of conversation event.
type EventType string

const (
	EventTypeTurn          EventType = "turn"
	EventTypeReset         EventType = "reset"
	EventTypeQuoteAccepted EventType = "quote_accepted"
	EventTypeError         EventType = "error"
)

// ConversationEvent is published after every committed turn.
type ConversationEvent struct {
	ID        string         `json:"id"`
	UserKey   string         `json:"user_key"`
	Type      EventType      `json:"type"`
	FromStep  Step           `json:"from_step,omitempty"`
	ToStep    Step           `json:"to_step,omitempty"`
	Replies   []string       `json:"replies,omitempty"`
	Reason    string         `json:"reason,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	Sequence  uint64         `json:"sequence,omitempty"`
}
