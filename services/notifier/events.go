package notifier

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event
type EventType string

const (
	// Critical events
	EventPersistenceFailed EventType = "persistence_failed"
	EventStorageGuardOpen  EventType = "storage_guard_open"

	// Warning events
	EventModifierLimitExceeded EventType = "modifier_limit_exceeded"
	EventStyleLengthExceeded   EventType = "style_length_exceeded"

	// Info events
	EventStorageGuardRecovered EventType = "storage_guard_recovered"
	EventSongCommitted         EventType = "song_committed"
	EventSongLoaded            EventType = "song_loaded"
	EventLyricsReloaded        EventType = "lyrics_reloaded"
)

// Severity represents the severity level of an event
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// DefaultNoticeTTL is how long transient warnings stay visible.
const DefaultNoticeTTL = 3 * time.Second

// recentLimit bounds the notices kept for Active.
const recentLimit = 64

// Event represents an editor event. Events with a non-zero ExpiresAt are
// transient notices and disappear from Active after that deadline; Blocking
// notices stay until dismissed.
type Event struct {
	ID        string                 `json:"id"`
	Seq       uint64                 `json:"seq"`
	Type      EventType              `json:"type"`
	Severity  Severity               `json:"severity"`
	Message   string                 `json:"message"`
	Blocking  bool                   `json:"blocking"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	ExpiresAt time.Time              `json:"expiresAt,omitempty"`
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, severity Severity, message string) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Severity:  severity,
		Message:   message,
		Data:      make(map[string]interface{}),
		Timestamp: time.Now(),
	}
}

// WithData adds data to the event (chainable)
func (e *Event) WithData(key string, value interface{}) *Event {
	e.Data[key] = value
	return e
}

// WithTTL makes the event a transient notice (chainable)
func (e *Event) WithTTL(ttl time.Duration) *Event {
	if ttl > 0 {
		e.ExpiresAt = e.Timestamp.Add(ttl)
	}
	return e
}

// AsBlocking marks the event as a notice the user must dismiss (chainable)
func (e *Event) AsBlocking() *Event {
	e.Blocking = true
	return e
}

// Expired reports whether a transient notice has passed its deadline.
func (e *Event) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

// IsNotice reports whether the event is meant to be shown to the user.
func (e *Event) IsNotice() bool {
	return e.Severity != SeverityInfo
}

// EventHandler is a function that handles events
type EventHandler func(event *Event)

type subscription struct {
	id      int
	handler EventHandler
}

// EventBus manages event publishing and subscription
type EventBus struct {
	handlers    map[EventType][]subscription
	allHandlers []subscription // handlers that receive all events
	nextID      int
	seq         atomic.Uint64
	noticeTTL   time.Duration

	recent []*Event
	mu     sync.RWMutex
}

// NewEventBus creates an event bus. ttl is the lifetime of transient notices.
func NewEventBus(ttl time.Duration) *EventBus {
	if ttl <= 0 {
		ttl = DefaultNoticeTTL
	}
	return &EventBus{
		handlers:    make(map[EventType][]subscription),
		allHandlers: make([]subscription, 0),
		noticeTTL:   ttl,
	}
}

// Subscribe adds a handler for a specific event type and returns an id for
// Unsubscribe.
func (b *EventBus) Subscribe(eventType EventType, handler EventHandler) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.handlers[eventType] = append(b.handlers[eventType], subscription{id: b.nextID, handler: handler})
	return b.nextID
}

// SubscribeAll adds a handler that receives all events
func (b *EventBus) SubscribeAll(handler EventHandler) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.allHandlers = append(b.allHandlers, subscription{id: b.nextID, handler: handler})
	return b.nextID
}

// Unsubscribe removes a handler registered with Subscribe or SubscribeAll.
func (b *EventBus) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for eventType, subs := range b.handlers {
		b.handlers[eventType] = without(subs, id)
	}
	b.allHandlers = without(b.allHandlers, id)
}

func without(subs []subscription, id int) []subscription {
	out := subs[:0:0]
	for _, s := range subs {
		if s.id != id {
			out = append(out, s)
		}
	}
	return out
}

// Publish sends an event to all subscribed handlers. Handlers run on their own
// goroutines; Seq is strictly increasing so handlers can discard stale events.
func (b *EventBus) Publish(event *Event) {
	event.Seq = b.seq.Add(1)

	b.mu.Lock()
	if event.IsNotice() {
		b.recent = append(b.recent, event)
		if len(b.recent) > recentLimit {
			b.recent = b.recent[len(b.recent)-recentLimit:]
		}
	}
	b.mu.Unlock()

	b.mu.RLock()
	defer b.mu.RUnlock()

	// Call specific handlers
	for _, s := range b.handlers[event.Type] {
		go s.handler(event)
	}

	// Call handlers subscribed to all events
	for _, s := range b.allHandlers {
		go s.handler(event)
	}
}

// Active returns the notices that are still visible at now, oldest first.
func (b *EventBus) Active(now time.Time) []*Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*Event, 0, len(b.recent))
	for _, e := range b.recent {
		if !e.Expired(now) {
			out = append(out, e)
		}
	}
	return out
}

// Dismiss removes a notice from the active list.
func (b *EventBus) Dismiss(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, e := range b.recent {
		if e.ID == id {
			b.recent = append(b.recent[:i:i], b.recent[i+1:]...)
			return true
		}
	}
	return false
}

// Helper functions for publishing common events

// PublishModifierLimitExceeded publishes the transient "too many tags" warning.
func (b *EventBus) PublishModifierLimitExceeded(songID string, index, limit int) {
	event := NewEvent(EventModifierLimitExceeded, SeverityWarning,
		"A section can hold at most 2 modifiers").
		WithData("song_id", songID).
		WithData("index", index).
		WithData("limit", limit).
		WithTTL(b.noticeTTL)
	b.Publish(event)
}

// PublishStyleLengthExceeded publishes the blocking style length notice.
func (b *EventBus) PublishStyleLengthExceeded(songID string, length, limit int) {
	event := NewEvent(EventStyleLengthExceeded, SeverityWarning,
		"Style tags are too long, the change was not applied").
		WithData("song_id", songID).
		WithData("length", length).
		WithData("limit", limit).
		AsBlocking()
	b.Publish(event)
}

// PublishPersistenceFailed publishes a non-blocking storage error notice.
func (b *EventBus) PublishPersistenceFailed(songID string, err error) {
	event := NewEvent(EventPersistenceFailed, SeverityCritical,
		"Changes could not be saved to local storage").
		WithData("song_id", songID).
		WithData("error", err.Error())
	b.Publish(event)
}

// PublishStorageGuardOpen publishes when repeated write failures trip the guard.
func (b *EventBus) PublishStorageGuardOpen(name string, failures int, cooldown time.Duration) {
	event := NewEvent(EventStorageGuardOpen, SeverityCritical,
		"Local storage is failing, writes are paused").
		WithData("name", name).
		WithData("failures", failures).
		WithData("cooldown", cooldown.String())
	b.Publish(event)
}

// PublishStorageGuardRecovered publishes when a write succeeds after the guard opened.
func (b *EventBus) PublishStorageGuardRecovered(name string) {
	event := NewEvent(EventStorageGuardRecovered, SeverityInfo,
		"Local storage has recovered").
		WithData("name", name)
	b.Publish(event)
}

// PublishSongCommitted publishes after a commit changed a song's lyrics.
func (b *EventBus) PublishSongCommitted(songID, lyrics string) {
	event := NewEvent(EventSongCommitted, SeverityInfo, "Song committed").
		WithData("song_id", songID).
		WithData("lyrics", lyrics)
	b.Publish(event)
}

// PublishSongLoaded publishes when a song becomes the active song.
func (b *EventBus) PublishSongLoaded(songID, lyrics string) {
	event := NewEvent(EventSongLoaded, SeverityInfo, "Song loaded").
		WithData("song_id", songID).
		WithData("lyrics", lyrics)
	b.Publish(event)
}

// PublishLyricsReloaded publishes when lyrics changed outside the editor.
func (b *EventBus) PublishLyricsReloaded(songID, source string) {
	event := NewEvent(EventLyricsReloaded, SeverityInfo, "Lyrics reloaded").
		WithData("song_id", songID).
		WithData("source", source)
	b.Publish(event)
}
