package alerts

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/phishguard/phishguard/pkg/logger"
	"github.com/phishguard/phishguard/pkg/metrics"
)

// DefaultDismissTimeout is how long a promoted notification stays visible
// before it is auto-dismissed.
const DefaultDismissTimeout = 5 * time.Second

// Cue is the injected audible-cue capability. Implementations may fail; the
// presenter swallows every error.
type Cue interface {
	Play(ctx context.Context) error
}

// NopCue is a Cue that does nothing.
type NopCue struct{}

// Play implements Cue.
func (NopCue) Play(context.Context) error { return nil }

// Notification is a transient, currently visible alert.
type Notification struct {
	Alert      AlertRecord `json:"alert"`
	PromotedAt time.Time   `json:"promoted_at"`
}

// PresenterEventType identifies a change to the visible set.
type PresenterEventType string

// Presenter event types.
const (
	PresenterShown     PresenterEventType = "shown"
	PresenterDismissed PresenterEventType = "dismissed"
)

// PresenterEvent describes a visible-set change delivered to the listener.
type PresenterEvent struct {
	Type         PresenterEventType
	Notification Notification
}

// PresenterListener receives visible-set changes, e.g. to push them to
// connected dashboards.
type PresenterListener func(PresenterEvent)

type visibleEntry struct {
	record     *AlertRecord
	promotedAt time.Time
	timer      *time.Timer
}

// Presenter derives the transient notification surface from store changes.
// High-urgency alerts are promoted to a visible set, auto-dismissed after a
// timeout, and marked read exactly once when they leave the surface.
type Presenter struct {
	mu sync.Mutex

	store    *Store
	cue      Cue
	timeout  time.Duration
	now      func() time.Time
	log      *zap.Logger
	listener PresenterListener

	order    []string
	visible  map[string]*visibleEntry
	promoted map[string]struct{}

	unsubscribe func()
	stopped     bool
}

// PresenterOption customises the Presenter.
type PresenterOption func(*Presenter)

// WithDismissTimeout adjusts the auto-dismiss delay.
func WithDismissTimeout(d time.Duration) PresenterOption {
	return func(p *Presenter) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithPresenterClock overrides the clock used for promotion timestamps.
func WithPresenterClock(now func() time.Time) PresenterOption {
	return func(p *Presenter) {
		if now != nil {
			p.now = now
		}
	}
}

// WithPresenterListener registers a callback for visible-set changes.
func WithPresenterListener(listener PresenterListener) PresenterOption {
	return func(p *Presenter) {
		p.listener = listener
	}
}

// NewPresenter constructs a Presenter over the supplied store. A nil cue is
// replaced with a no-op implementation.
func NewPresenter(store *Store, cue Cue, opts ...PresenterOption) *Presenter {
	if cue == nil {
		cue = NopCue{}
	}

	p := &Presenter{
		store:    store,
		cue:      cue,
		timeout:  DefaultDismissTimeout,
		now:      time.Now,
		log:      logger.WithModule("presenter"),
		visible:  make(map[string]*visibleEntry),
		promoted: make(map[string]struct{}),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Start subscribes the presenter to store events.
func (p *Presenter) Start() {
	if p.store == nil {
		return
	}
	p.unsubscribe = p.store.Subscribe(p.handleStoreEvent)
}

// Stop unsubscribes from the store and cancels all pending dismiss timers.
func (p *Presenter) Stop() {
	if p.unsubscribe != nil {
		p.unsubscribe()
		p.unsubscribe = nil
	}

	p.mu.Lock()
	p.stopped = true
	for _, entry := range p.visible {
		if entry.timer != nil {
			entry.timer.Stop()
		}
	}
	p.order = nil
	p.visible = make(map[string]*visibleEntry)
	p.mu.Unlock()
}

// Visible returns the currently showing notifications in promotion order.
func (p *Presenter) Visible() []Notification {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Notification, 0, len(p.order))
	for _, id := range p.order {
		entry, ok := p.visible[id]
		if !ok {
			continue
		}
		out = append(out, Notification{
			Alert:      *entry.record.clone(),
			PromotedAt: entry.promotedAt,
		})
	}
	return out
}

// Dismiss removes the notification from the visible surface and marks the
// underlying record read. Dismissing an unknown id is a no-op.
func (p *Presenter) Dismiss(ctx context.Context, id string) bool {
	return p.dismiss(ctx, id, true)
}

func (p *Presenter) handleStoreEvent(event Event) {
	switch event.Type {
	case EventAdded:
		p.promote(event.Record)
	case EventRemoved, EventCleared, EventSwept:
		// The records no longer exist, so there is nothing to mark read; the
		// store must not be re-entered from an observer callback anyway.
		for _, id := range event.RemovedIDs {
			p.dismiss(context.Background(), id, false)
		}
	}
}

func shouldPromote(record *AlertRecord) bool {
	if record == nil {
		return false
	}
	return record.Severity == SeverityCritical ||
		record.Severity == SeverityHigh ||
		record.Kind == KindPhishingDetected
}

func audible(record *AlertRecord) bool {
	return record.Severity == SeverityCritical || record.Kind == KindPhishingDetected
}

func (p *Presenter) promote(record *AlertRecord) {
	if !shouldPromote(record) {
		return
	}

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	if _, seen := p.promoted[record.ID]; seen {
		p.mu.Unlock()
		return
	}

	entry := &visibleEntry{
		record:     record,
		promotedAt: p.now(),
	}
	id := record.ID
	entry.timer = time.AfterFunc(p.timeout, func() {
		p.dismiss(context.Background(), id, true)
	})

	p.promoted[id] = struct{}{}
	p.visible[id] = entry
	p.order = append(p.order, id)

	playCue := audible(record)
	notification := Notification{Alert: *record.clone(), PromotedAt: entry.promotedAt}
	p.mu.Unlock()

	metrics.NotificationsPromoted.Inc()

	if playCue {
		metrics.AudioCues.Inc()
		if err := p.cue.Play(context.Background()); err != nil {
			p.log.Debug("audio cue failed", zap.Error(err))
		}
	}

	p.emit(PresenterEvent{Type: PresenterShown, Notification: notification})
}

// dismiss is the single exit path from the visible set. markRead is false when
// the underlying record was already removed from the store. A late timer fire
// after an earlier dismissal finds no entry and is a safe no-op.
func (p *Presenter) dismiss(ctx context.Context, id string, markRead bool) bool {
	p.mu.Lock()
	entry, ok := p.visible[id]
	if !ok {
		p.mu.Unlock()
		return false
	}

	if entry.timer != nil {
		entry.timer.Stop()
	}
	delete(p.visible, id)
	for i, ordered := range p.order {
		if ordered == id {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}

	notification := Notification{Alert: *entry.record.clone(), PromotedAt: entry.promotedAt}
	p.mu.Unlock()

	if markRead && p.store != nil {
		p.store.MarkRead(ctx, id)
	}

	p.emit(PresenterEvent{Type: PresenterDismissed, Notification: notification})
	return true
}

func (p *Presenter) emit(event PresenterEvent) {
	if p.listener != nil {
		p.listener(event)
	}
}
