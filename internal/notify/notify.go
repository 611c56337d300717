// Package notify delivers best-effort user-facing notices (the dashboard's
// toast messages). Delivery failures are never surfaced to callers.
package notify

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Kind classifies a notification for presentation.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

// Sink receives notifications.
type Sink interface {
	Notify(message string, kind Kind)
}

// LogSink writes notifications to the structured log. It is the fallback
// when no UI-facing sink is configured.
type LogSink struct{}

func (LogSink) Notify(message string, kind Kind) {
	switch kind {
	case KindError:
		log.Warn().Str("kind", string(kind)).Msg(message)
	default:
		log.Info().Str("kind", string(kind)).Msg(message)
	}
}

// Notification is a buffered notice held for dashboard polling.
type Notification struct {
	Message   string    `json:"message"`
	Kind      Kind      `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
}

// MemorySink keeps the most recent notifications in a fixed-size ring so the
// dashboard can poll them. Oldest entries are dropped once the buffer fills.
type MemorySink struct {
	mu      sync.Mutex
	entries []Notification
	cap     int
}

// NewMemorySink creates a sink holding up to capacity notifications.
func NewMemorySink(capacity int) *MemorySink {
	if capacity <= 0 {
		capacity = 50
	}
	return &MemorySink{cap: capacity}
}

func (s *MemorySink) Notify(message string, kind Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, Notification{
		Message:   message,
		Kind:      kind,
		Timestamp: time.Now(),
	})
	if len(s.entries) > s.cap {
		s.entries = s.entries[len(s.entries)-s.cap:]
	}
}

// Recent returns buffered notifications, newest first.
func (s *MemorySink) Recent() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Notification, len(s.entries))
	for i, n := range s.entries {
		out[len(s.entries)-1-i] = n
	}
	return out
}

// Multi fans a notification out to several sinks.
type Multi []Sink

func (m Multi) Notify(message string, kind Kind) {
	for _, sink := range m {
		sink.Notify(message, kind)
	}
}
