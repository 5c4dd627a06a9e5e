package directory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"dialer/internal/api"
	"dialer/internal/logging"
	"dialer/internal/metrics"
)

// Backend is the subset of the backend client used by the Store.
type Backend interface {
	ListBusinesses(ctx context.Context) ([]api.Business, error)
	ClearDatabase(ctx context.Context) error
}

// Snapshot is a read-only view of the directory at one point in time.
// Callers must not modify Businesses.
type Snapshot struct {
	Businesses []api.Business
	Sequence   uint64
}

// Len returns the number of records.
func (s Snapshot) Len() int {
	return len(s.Businesses)
}

// Find returns the record with id.
func (s Snapshot) Find(id string) (api.Business, bool) {
	for _, b := range s.Businesses {
		if b.ID == id {
			return b, true
		}
	}
	return api.Business{}, false
}

// Option customizes a Store.
type Option func(*Store)

// WithLogger sets the Store logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logging.NewComponentLogger(logger, "directory")
	}
}

// WithMetrics records the directory size on every commit.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// Store owns the in-memory directory.
type Store struct {
	backend Backend
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu        sync.Mutex
	records   []api.Business
	index     map[string]int
	issued    uint64
	committed uint64
	observers map[int]func(Snapshot)
	nextObs   int

	// notifyMu is taken before mu by every commit and held through observer
	// delivery, so observers see commits in order and may read the Store.
	notifyMu sync.Mutex
}

// New constructs an empty Store.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend:   backend,
		logger:    logging.NewNop(),
		records:   []api.Business{},
		index:     map[string]int{},
		observers: map[int]func(Snapshot){},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Refresh replaces the directory with the backend's current list. On failure
// the existing directory is kept. A response that arrives after a newer
// Refresh or Clear has committed is discarded.
func (s *Store) Refresh(ctx context.Context) error {
	ticket := s.takeTicket()
	records, err := s.backend.ListBusinesses(ctx)
	if err != nil {
		logging.WarnWithContext(s.logger, "directory refresh failed", "directory_refresh_failed",
			logging.Error(err),
			logging.Hint("check backend connectivity"),
			logging.Impact("directory keeps its previous contents"),
		)
		return fmt.Errorf("refresh directory: %w", err)
	}
	if !s.commit(ticket, records) {
		s.logger.Debug("discarded stale refresh",
			logging.Uint64("ticket", ticket),
			logging.Int("records", len(records)),
		)
		return nil
	}
	s.logger.Debug("directory refreshed", logging.Int("records", len(records)))
	return nil
}

// Clear deletes every business on the backend and, once the backend has
// confirmed, empties the local directory.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.backend.ClearDatabase(ctx); err != nil {
		return fmt.Errorf("clear directory: %w", err)
	}
	s.commit(s.takeTicket(), nil)
	s.logger.Info("directory cleared")
	return nil
}

// ApplyUpdate replaces the record with the same id in place. Unknown ids are
// ignored. It reports whether a record was replaced.
func (s *Store) ApplyUpdate(record api.Business) bool {
	s.notifyMu.Lock()
	s.mu.Lock()
	pos, ok := s.index[record.ID]
	if !ok {
		s.mu.Unlock()
		s.notifyMu.Unlock()
		return false
	}
	next := make([]api.Business, len(s.records))
	copy(next, s.records)
	next[pos] = record
	s.records = next
	snap, observers := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap, observers)
	return true
}

// Snapshot returns the current directory.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{Businesses: s.records, Sequence: s.committed}
}

// Len returns the number of records currently held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Subscribe registers fn for every committed change and returns a function
// that removes it. fn may call Snapshot and Len but must not call mutating
// Store methods.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.observers, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) takeTicket() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	return s.issued
}

func (s *Store) commit(ticket uint64, records []api.Business) bool {
	s.notifyMu.Lock()
	s.mu.Lock()
	if ticket <= s.committed {
		s.mu.Unlock()
		s.notifyMu.Unlock()
		return false
	}
	s.committed = ticket
	next := make([]api.Business, len(records))
	copy(next, records)
	s.records = next
	s.index = make(map[string]int, len(next))
	for i, b := range next {
		if _, dup := s.index[b.ID]; !dup {
			s.index[b.ID] = i
		}
	}
	snap, observers := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap, observers)
	return true
}

func (s *Store) snapshotLocked() (Snapshot, []func(Snapshot)) {
	observers := make([]func(Snapshot), 0, len(s.observers))
	for _, fn := range s.observers {
		observers = append(observers, fn)
	}
	return Snapshot{Businesses: s.records, Sequence: s.committed}, observers
}

// notify runs with notifyMu held and releases it.
func (s *Store) notify(snap Snapshot, observers []func(Snapshot)) {
	defer s.notifyMu.Unlock()
	s.metrics.SetDirectorySize(len(snap.Businesses))
	for _, fn := range observers {
		fn(snap)
	}
}
