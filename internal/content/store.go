package content

import (
	"context"
	"sync"
	"time"

	siteerrors "github.com/conneroisu/devlog/internal/errors"
	"github.com/conneroisu/devlog/internal/logging"
)

// EventType represents the outcome of a reload
type EventType int

const (
	EventTypeReloaded EventType = iota
	EventTypeFailed
)

// String returns the string representation of the EventType
func (e EventType) String() string {
	switch e {
	case EventTypeReloaded:
		return "reloaded"
	case EventTypeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is published to watchers after every reload attempt.
type Event struct {
	Type      EventType
	Snapshot  *Snapshot
	Err       error
	Timestamp time.Time
}

// Status summarizes the store for health reporting.
type Status struct {
	Loaded    bool      `json:"loaded"`
	LoadedAt  time.Time `json:"loadedAt,omitempty"`
	Entries   int       `json:"entries"`
	Devlog    int       `json:"devlog"`
	Journey   int       `json:"journey"`
	LastError string    `json:"lastError,omitempty"`
}

// Store owns the current content snapshot. A failed reload keeps the
// last good snapshot; before the first success readers get an error.
type Store struct {
	source   Source
	logger   logging.Logger
	reloadMu sync.Mutex

	mutex    sync.RWMutex
	snapshot *Snapshot
	lastErr  error
	watchers []chan Event
}

// NewStore creates a store backed by source. Nothing is loaded until
// Reload is called.
func NewStore(source Source, logger logging.Logger) *Store {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Store{
		source:   source,
		logger:   logger.WithComponent("content-store"),
		watchers: make([]chan Event, 0),
	}
}

// NewStaticStore wraps an already loaded snapshot.
func NewStaticStore(snap *Snapshot) *Store {
	s := NewStore(nil, nil)
	s.snapshot = snap
	return s
}

// Reload loads a fresh snapshot from the source. Concurrent reloads are
// serialized.
func (s *Store) Reload(ctx context.Context) error {
	if s.source == nil {
		return nil
	}

	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	snap, err := s.source.Load(ctx)

	s.mutex.Lock()
	event := Event{Timestamp: time.Now()}
	if err != nil {
		s.lastErr = err
		event.Type = EventTypeFailed
		event.Err = err
		event.Snapshot = s.snapshot
	} else {
		s.snapshot = snap
		s.lastErr = nil
		event.Type = EventTypeReloaded
		event.Snapshot = snap
	}
	s.notify(event)
	s.mutex.Unlock()

	if err != nil {
		s.logger.Error(ctx, err, "Content reload failed", "keeping_previous", event.Snapshot != nil)
		return err
	}
	return nil
}

// Snapshot returns the current snapshot. When nothing has loaded yet it
// returns the load failure itself if that is already a content error, and
// a content-unavailable error otherwise.
func (s *Store) Snapshot() (*Snapshot, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if s.snapshot == nil {
		if siteerrors.IsContent(s.lastErr) {
			return nil, s.lastErr
		}
		return nil, siteerrors.ErrContentUnavailable(s.lastErr)
	}
	return s.snapshot, nil
}

// LastError returns the error of the most recent reload, if it failed.
func (s *Store) LastError() error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.lastErr
}

// Status reports what is loaded.
func (s *Store) Status() Status {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var st Status
	if s.snapshot != nil {
		st.Loaded = true
		st.LoadedAt = s.snapshot.LoadedAt
		st.Entries = len(s.snapshot.Entries)
		st.Devlog = len(s.snapshot.Devlog)
		st.Journey = len(s.snapshot.Journey)
	}
	if s.lastErr != nil {
		st.LastError = siteerrors.PublicMessage(s.lastErr)
	}
	return st
}

// Watch returns a channel that receives reload events
func (s *Store) Watch() <-chan Event {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	ch := make(chan Event, 16)
	s.watchers = append(s.watchers, ch)
	return ch
}

// UnWatch removes a watcher channel and closes it
func (s *Store) UnWatch(ch <-chan Event) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for i, watcher := range s.watchers {
		if watcher == ch {
			close(watcher)
			s.watchers = append(s.watchers[:i], s.watchers[i+1:]...)
			break
		}
	}
}

// notify must be called with mutex held.
func (s *Store) notify(event Event) {
	for _, watcher := range s.watchers {
		select {
		case watcher <- event:
		default:
			// Skip if channel is full
		}
	}
}
