package alerts

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/phishguard/phishguard/internal/storage"
	"github.com/phishguard/phishguard/pkg/logger"
	"github.com/phishguard/phishguard/pkg/metrics"
)

// Store defaults. All are adjustable through options.
const (
	DefaultMaxAlerts   = 100
	DefaultDedupWindow = 60 * time.Second

	defaultStorageKey = "alerts"
)

// EventType identifies a store mutation observed by subscribers.
type EventType string

// Store event types.
const (
	EventAdded   EventType = "added"
	EventRead    EventType = "read"
	EventRemoved EventType = "removed"
	EventCleared EventType = "cleared"
	EventSwept   EventType = "swept"
)

// Event describes a single store mutation. Record is populated for added and
// read events; RemovedIDs for removed, cleared, and swept events.
type Event struct {
	Type       EventType
	Record     *AlertRecord
	RemovedIDs []string
	Unread     int
}

// Observer receives store events. Observers are invoked after the mutation is
// applied and before the mutating call returns; they must not call mutating
// store methods synchronously.
type Observer func(Event)

// Snapshot is an immutable view of the store contents.
type Snapshot struct {
	Records []*AlertRecord
	Unread  int
}

// Store is the authoritative, process-wide alert collection. It deduplicates
// incoming candidates, caps retention, tracks unread state, and writes its
// contents behind every mutation to the injected durable storage.
type Store struct {
	mu       sync.Mutex
	notifyMu sync.Mutex

	records []*AlertRecord // newest first
	unread  int

	storage    storage.Store
	storageKey string
	now        func() time.Time
	maxAlerts  int
	dedup      time.Duration
	log        *zap.Logger

	observers map[int]Observer
	nextObs   int
}

// StoreOption customises the Store.
type StoreOption func(*Store)

// WithClock overrides the clock used for record timestamps and dedup checks.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMaxAlerts adjusts the retention cap.
func WithMaxAlerts(n int) StoreOption {
	return func(s *Store) {
		if n > 0 {
			s.maxAlerts = n
		}
	}
}

// WithDedupWindow adjusts the duplicate suppression window.
func WithDedupWindow(d time.Duration) StoreOption {
	return func(s *Store) {
		if d > 0 {
			s.dedup = d
		}
	}
}

// WithStorageKey overrides the key the alert sequence is persisted under.
func WithStorageKey(key string) StoreOption {
	return func(s *Store) {
		if key != "" {
			s.storageKey = key
		}
	}
}

// NewStore constructs a Store, loading any previously persisted sequence from
// durable storage. Corrupt or missing persisted state starts the store empty;
// the unread count is always recomputed from the loaded records.
func NewStore(st storage.Store, opts ...StoreOption) *Store {
	s := &Store{
		storage:    st,
		storageKey: defaultStorageKey,
		now:        time.Now,
		maxAlerts:  DefaultMaxAlerts,
		dedup:      DefaultDedupWindow,
		log:        logger.WithModule("alerts"),
		observers:  make(map[int]Observer),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.restore()
	return s
}

func (s *Store) restore() {
	if s.storage == nil {
		return
	}

	data, found, err := s.storage.Load(context.Background(), s.storageKey)
	if err != nil {
		s.log.Warn("load persisted alerts failed; starting empty", zap.Error(err))
		return
	}
	if !found || len(data) == 0 {
		return
	}

	var records []*AlertRecord
	if err := json.Unmarshal(data, &records); err != nil {
		s.log.Warn("persisted alerts corrupt; starting empty", zap.Error(err))
		return
	}

	if len(records) > s.maxAlerts {
		records = records[:s.maxAlerts]
	}

	unread := 0
	for _, rec := range records {
		if rec != nil && !rec.Read {
			unread++
		}
	}

	s.records = records
	s.unread = unread
	metrics.AlertsUnread.Set(float64(unread))

	s.log.Info("restored persisted alerts",
		zap.Int("count", len(records)),
		zap.Int("unread", unread),
	)
}

// Add validates the candidate, assigns identity and timestamps, and prepends
// the record. Duplicates inside the dedup window are silently dropped and
// reported as (nil, nil). The oldest records are evicted past the cap.
func (s *Store) Add(ctx context.Context, candidate Candidate) (*AlertRecord, error) {
	if err := candidate.normalize(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	now := s.now()

	for _, existing := range s.records {
		if existing.Content == candidate.Content && existing.Kind == candidate.Kind &&
			now.Sub(existing.CreatedAt) < s.dedup {
			s.mu.Unlock()
			metrics.AlertsDeduplicated.Inc()
			return nil, nil
		}
	}

	record := &AlertRecord{
		ID:        uuid.NewString(),
		CreatedAt: now,
		Kind:      candidate.Kind,
		Severity:  candidate.Severity,
		Title:     candidate.Title,
		Content:   candidate.Content,
		RiskLevel: candidate.RiskLevel,
		Details:   candidate.Details,
	}

	s.records = append([]*AlertRecord{record}, s.records...)

	var evicted []string
	for len(s.records) > s.maxAlerts {
		oldest := s.records[len(s.records)-1]
		s.records = s.records[:len(s.records)-1]
		if !oldest.Read {
			s.unread--
		}
		evicted = append(evicted, oldest.ID)
		metrics.AlertsEvicted.WithLabelValues("cap").Inc()
	}

	s.unread++
	metrics.AlertsUnread.Set(float64(s.unread))
	metrics.AlertsIngested.WithLabelValues(string(record.Kind)).Inc()

	s.persistLocked(ctx)

	events := make([]Event, 0, 2)
	if len(evicted) > 0 {
		events = append(events, Event{Type: EventRemoved, RemovedIDs: evicted, Unread: s.unread})
	}
	events = append(events, Event{Type: EventAdded, Record: record.clone(), Unread: s.unread})

	s.notify(events)
	return record.clone(), nil
}

// Remove deletes the record with the given id. Absent ids are a no-op.
func (s *Store) Remove(ctx context.Context, id string) bool {
	s.mu.Lock()

	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}

	record := s.records[idx]
	s.records = append(s.records[:idx], s.records[idx+1:]...)
	if !record.Read {
		s.unread--
	}
	metrics.AlertsUnread.Set(float64(s.unread))

	s.persistLocked(ctx)
	s.notify([]Event{{Type: EventRemoved, RemovedIDs: []string{id}, Unread: s.unread}})
	return true
}

// MarkRead flips the record to read. Marking an absent or already-read record
// is an idempotent no-op.
func (s *Store) MarkRead(ctx context.Context, id string) bool {
	s.mu.Lock()

	idx := s.indexLocked(id)
	if idx < 0 || s.records[idx].Read {
		s.mu.Unlock()
		return false
	}

	s.records[idx].Read = true
	s.unread--
	metrics.AlertsUnread.Set(float64(s.unread))

	record := s.records[idx].clone()
	s.persistLocked(ctx)
	s.notify([]Event{{Type: EventRead, Record: record, Unread: s.unread}})
	return true
}

// MarkAllRead flips every unread record to read and returns how many changed.
func (s *Store) MarkAllRead(ctx context.Context) int {
	s.mu.Lock()

	changed := 0
	for _, record := range s.records {
		if !record.Read {
			record.Read = true
			changed++
		}
	}
	if changed == 0 {
		s.mu.Unlock()
		return 0
	}

	s.unread = 0
	metrics.AlertsUnread.Set(0)

	s.persistLocked(ctx)
	s.notify([]Event{{Type: EventRead, Unread: 0}})
	return changed
}

// Clear empties the store.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()

	removed := make([]string, len(s.records))
	for i, record := range s.records {
		removed[i] = record.ID
	}

	s.records = nil
	s.unread = 0
	metrics.AlertsUnread.Set(0)

	s.persistLocked(ctx)
	s.notify([]Event{{Type: EventCleared, RemovedIDs: removed, Unread: 0}})
}

// Sweep removes every record created before the cutoff, preserving the order
// of the survivors. It is a single filter-and-replace so the unread count and
// persisted state stay consistent without re-triggering dedup or cap logic.
func (s *Store) Sweep(ctx context.Context, cutoff time.Time) int {
	s.mu.Lock()

	kept := s.records[:0]
	var removed []string
	unread := 0
	for _, record := range s.records {
		if record.CreatedAt.Before(cutoff) {
			removed = append(removed, record.ID)
			metrics.AlertsEvicted.WithLabelValues("retention").Inc()
			continue
		}
		kept = append(kept, record)
		if !record.Read {
			unread++
		}
	}

	if len(removed) == 0 {
		s.mu.Unlock()
		return 0
	}

	s.records = kept
	s.unread = unread
	metrics.AlertsUnread.Set(float64(unread))

	s.persistLocked(ctx)
	s.notify([]Event{{Type: EventSwept, RemovedIDs: removed, Unread: unread}})
	return len(removed)
}

// Snapshot returns an immutable copy of the alert sequence and unread count.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]*AlertRecord, len(s.records))
	for i, record := range s.records {
		records[i] = record.clone()
	}
	return Snapshot{Records: records, Unread: s.unread}
}

// UnreadCount returns the incrementally maintained unread counter.
func (s *Store) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread
}

// Recount recomputes the unread count by full scan. It exists so tests and
// health checks can verify the incremental counter.
func (s *Store) Recount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	unread := 0
	for _, record := range s.records {
		if !record.Read {
			unread++
		}
	}
	return unread
}

// Subscribe registers an observer and returns a function that removes it.
func (s *Store) Subscribe(observer Observer) func() {
	if observer == nil {
		return func() {}
	}

	s.mu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = observer
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

func (s *Store) indexLocked(id string) int {
	for i, record := range s.records {
		if record.ID == id {
			return i
		}
	}
	return -1
}

// persistLocked writes the current sequence to durable storage. Failures are
// logged and never roll back the in-memory mutation.
func (s *Store) persistLocked(ctx context.Context) {
	if s.storage == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	data, err := json.Marshal(s.records)
	if err != nil {
		s.log.Warn("marshal alerts for persistence failed", zap.Error(err))
		metrics.PersistFailures.Inc()
		return
	}

	if err := s.storage.Save(ctx, s.storageKey, data); err != nil {
		s.log.Warn("persist alerts failed", zap.Error(err))
		metrics.PersistFailures.Inc()
	}
}

// notify delivers events to all observers. Called with s.mu held; the handoff
// to notifyMu before releasing s.mu keeps delivery in mutation order.
func (s *Store) notify(events []Event) {
	observers := make([]Observer, 0, len(s.observers))
	for _, observer := range s.observers {
		observers = append(observers, observer)
	}

	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	for _, event := range events {
		for _, observer := range observers {
			observer(event)
		}
	}
}
