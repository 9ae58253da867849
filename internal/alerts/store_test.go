package alerts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// memStore is an in-memory storage.Store used across the package tests.
type memStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	saves  int
	failOn error
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (m *memStore) Load(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.data[key]
	return value, ok, nil
}

func (m *memStore) Save(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn != nil {
		return m.failOn
	}
	m.saves++
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *memStore) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func phishingCandidate(content string) Candidate {
	return Candidate{
		Kind:      KindPhishingDetected,
		Content:   content,
		RiskLevel: RiskCritical,
		Details:   map[string]string{"source": "text"},
	}
}

func systemCandidate(title, content string, severity Severity) Candidate {
	return Candidate{
		Kind:     KindSystemNotification,
		Severity: severity,
		Title:    title,
		Content:  content,
	}
}

func TestAddAssignsIdentityAndDefaults(t *testing.T) {
	store := NewStore(newMemStore())

	record, err := store.Add(context.Background(), phishingCandidate("fake login page at example.test"))
	require.NoError(t, err)
	require.NotNil(t, record)
	require.NotEmpty(t, record.ID)
	require.False(t, record.CreatedAt.IsZero())
	require.False(t, record.Read)
	require.Equal(t, SeverityCritical, record.Severity, "severity derives from risk level")
	require.Equal(t, "Phishing threat detected", record.Title)
	require.Equal(t, 1, store.UnreadCount())
}

func TestAddRejectsInvalidCandidates(t *testing.T) {
	store := NewStore(newMemStore())
	ctx := context.Background()

	_, err := store.Add(ctx, Candidate{Kind: KindSecurityWarning, Title: "missing body"})
	require.Error(t, err)

	_, err = store.Add(ctx, Candidate{Kind: "bogus", Title: "x", Content: "y"})
	require.Error(t, err)

	_, err = store.Add(ctx, Candidate{Kind: KindSecurityWarning, Severity: "apocalyptic", Title: "x", Content: "y"})
	require.Error(t, err, "severity outside the enum is rejected")

	_, err = store.Add(ctx, Candidate{Kind: KindPhishingDetected, Content: "y", RiskLevel: "extreme"})
	require.Error(t, err, "risk level outside the enum is rejected")

	_, err = store.Add(ctx, Candidate{Kind: KindSecurityWarning, Title: "x", Content: "y", RiskLevel: RiskHigh})
	require.Error(t, err, "risk level is phishing-only")

	require.Len(t, store.Snapshot().Records, 0)
}

func TestAddDeduplicatesWithinWindow(t *testing.T) {
	current := time.Now()
	store := NewStore(newMemStore(), WithClock(func() time.Time { return current }))
	ctx := context.Background()

	first, err := store.Add(ctx, phishingCandidate("same content"))
	require.NoError(t, err)
	require.NotNil(t, first)

	dup, err := store.Add(ctx, phishingCandidate("same content"))
	require.NoError(t, err)
	require.Nil(t, dup, "duplicate inside the window is silently dropped")
	require.Len(t, store.Snapshot().Records, 1)

	// Same content, different kind is not a duplicate.
	other, err := store.Add(ctx, systemCandidate("note", "same content", SeverityInfo))
	require.NoError(t, err)
	require.NotNil(t, other)

	// Outside the window the same content is accepted again.
	current = current.Add(61 * time.Second)
	later, err := store.Add(ctx, phishingCandidate("same content"))
	require.NoError(t, err)
	require.NotNil(t, later)
	require.Len(t, store.Snapshot().Records, 3)
}

func TestAddEnforcesCapNewestFirst(t *testing.T) {
	store := NewStore(newMemStore())
	ctx := context.Background()

	var firstID string
	for i := 0; i < 101; i++ {
		record, err := store.Add(ctx, systemCandidate("note", fmt.Sprintf("event %d", i), SeverityInfo))
		require.NoError(t, err)
		require.NotNil(t, record)
		if i == 0 {
			firstID = record.ID
		}
	}

	snap := store.Snapshot()
	require.Len(t, snap.Records, 100)
	require.Equal(t, 100, snap.Unread)
	require.Equal(t, "event 100", snap.Records[0].Content, "newest first")
	for _, record := range snap.Records {
		require.NotEqual(t, firstID, record.ID, "oldest record evicted")
	}
	require.Equal(t, store.Recount(), store.UnreadCount())
}

func TestMarkReadIsIdempotent(t *testing.T) {
	store := NewStore(newMemStore())
	ctx := context.Background()

	record, err := store.Add(ctx, phishingCandidate("one"))
	require.NoError(t, err)

	require.True(t, store.MarkRead(ctx, record.ID))
	require.False(t, store.MarkRead(ctx, record.ID))
	require.False(t, store.MarkRead(ctx, "missing"))
	require.Equal(t, 0, store.UnreadCount())
	require.Equal(t, 0, store.Recount())
}

func TestRemoveAdjustsUnread(t *testing.T) {
	store := NewStore(newMemStore())
	ctx := context.Background()

	kept, err := store.Add(ctx, phishingCandidate("kept"))
	require.NoError(t, err)
	removed, err := store.Add(ctx, phishingCandidate("removed"))
	require.NoError(t, err)

	require.True(t, store.Remove(ctx, removed.ID))
	require.False(t, store.Remove(ctx, removed.ID), "second remove is a no-op")
	require.Equal(t, 1, store.UnreadCount())

	require.True(t, store.MarkRead(ctx, kept.ID))
	require.True(t, store.Remove(ctx, kept.ID))
	require.Equal(t, 0, store.UnreadCount())
}

func TestMarkAllRead(t *testing.T) {
	store := NewStore(newMemStore())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := store.Add(ctx, phishingCandidate(fmt.Sprintf("alert %d", i)))
		require.NoError(t, err)
	}

	require.Equal(t, 3, store.MarkAllRead(ctx))
	require.Equal(t, 0, store.MarkAllRead(ctx))
	require.Equal(t, 0, store.UnreadCount())
}

func TestClearEmptiesStore(t *testing.T) {
	store := NewStore(newMemStore())
	ctx := context.Background()

	_, err := store.Add(ctx, phishingCandidate("one"))
	require.NoError(t, err)

	store.Clear(ctx)
	snap := store.Snapshot()
	require.Empty(t, snap.Records)
	require.Equal(t, 0, snap.Unread)
}

func TestSnapshotIsImmutable(t *testing.T) {
	store := NewStore(newMemStore())
	ctx := context.Background()

	_, err := store.Add(ctx, phishingCandidate("original"))
	require.NoError(t, err)

	snap := store.Snapshot()
	snap.Records[0].Content = "mutated"
	snap.Records[0].Details["source"] = "mutated"

	fresh := store.Snapshot()
	require.Equal(t, "original", fresh.Records[0].Content)
	require.Equal(t, "text", fresh.Records[0].Details["source"])
}

func TestPersistenceRoundTrip(t *testing.T) {
	backing := newMemStore()
	store := NewStore(backing)
	ctx := context.Background()

	first, err := store.Add(ctx, phishingCandidate("persisted one"))
	require.NoError(t, err)
	_, err = store.Add(ctx, systemCandidate("note", "persisted two", SeverityInfo))
	require.NoError(t, err)
	require.True(t, store.MarkRead(ctx, first.ID))

	// Simulated process restart over the same durable storage.
	reloaded := NewStore(backing)
	snap := reloaded.Snapshot()
	require.Len(t, snap.Records, 2)
	require.Equal(t, "persisted two", snap.Records[0].Content)
	require.Equal(t, "persisted one", snap.Records[1].Content)
	require.Equal(t, 1, snap.Unread, "unread recomputed from loaded records")
	require.Equal(t, reloaded.Recount(), snap.Unread)
}

func TestCorruptPersistedStateStartsEmpty(t *testing.T) {
	backing := newMemStore()
	backing.data["alerts"] = []byte("{not json")

	store := NewStore(backing)
	require.Empty(t, store.Snapshot().Records)
	require.Equal(t, 0, store.UnreadCount())
}

func TestPersistenceFailureKeepsInMemoryState(t *testing.T) {
	backing := newMemStore()
	backing.failOn = errors.New("disk gone")

	store := NewStore(backing)
	record, err := store.Add(context.Background(), phishingCandidate("still held"))
	require.NoError(t, err)
	require.NotNil(t, record)
	require.Len(t, store.Snapshot().Records, 1)
}

func TestSubscribeObservesMutationsInOrder(t *testing.T) {
	store := NewStore(newMemStore())
	ctx := context.Background()

	var mu sync.Mutex
	var seen []EventType
	unsubscribe := store.Subscribe(func(event Event) {
		mu.Lock()
		seen = append(seen, event.Type)
		mu.Unlock()
	})

	record, err := store.Add(ctx, phishingCandidate("observed"))
	require.NoError(t, err)
	store.MarkRead(ctx, record.ID)
	store.Clear(ctx)

	mu.Lock()
	require.Equal(t, []EventType{EventAdded, EventRead, EventCleared}, seen)
	mu.Unlock()

	unsubscribe()
	_, err = store.Add(ctx, phishingCandidate("after unsubscribe"))
	require.NoError(t, err)

	mu.Lock()
	require.Len(t, seen, 3, "unsubscribed observer no longer notified")
	mu.Unlock()
}

func TestConcurrentAddsKeepInvariants(t *testing.T) {
	store := NewStore(newMemStore())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 30; j++ {
				_, err := store.Add(ctx, systemCandidate("note", fmt.Sprintf("w%d-%d", worker, j), SeverityInfo))
				require.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()

	snap := store.Snapshot()
	require.Len(t, snap.Records, 100)
	require.Equal(t, store.Recount(), store.UnreadCount())
}
