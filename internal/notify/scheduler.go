package notify

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// Notification is a message to show the operator at a fixed time.
type Notification struct {
	ID     string
	Text   string
	FireAt time.Time
}

type pendingEntry struct {
	n   Notification
	gen uint64
}

// Scheduler holds pending notifications and fires each one once at its fire
// time. Firing only posts a delivery task to the Queue; the visible effect
// runs on the queue's consumer goroutine after a final check that the
// notification is still pending. A Cancel that lands before that check
// suppresses the delivery.
type Scheduler struct {
	queue        *Queue
	show         func(Notification)
	suppressed   func(Notification)
	timers       *ttlcache.Cache[string, pendingEntry]
	stopEviction func()
	mu           sync.Mutex
	pending      map[string]pendingEntry
	gen          uint64
	started      bool
}

// NewScheduler returns a scheduler that delivers through queue by calling
// show on the queue's consumer goroutine.
func NewScheduler(queue *Queue, show func(Notification)) *Scheduler {
	s := &Scheduler{
		queue:   queue,
		show:    show,
		pending: make(map[string]pendingEntry),
		timers: ttlcache.New[string, pendingEntry](
			ttlcache.WithDisableTouchOnHit[string, pendingEntry](),
		),
	}
	return s
}

// OnSuppressed registers a hook called on the consumer goroutine when a
// fired notification turns out to have been cancelled or replaced. Set it
// before Start.
func (s *Scheduler) OnSuppressed(fn func(Notification)) {
	s.suppressed = fn
}

// Start runs the timer loop. A stopped scheduler can be started again.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.stopEviction = s.timers.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, pendingEntry]) {
		if reason == ttlcache.EvictionReasonExpired {
			s.fire(item.Value())
		}
	})
	go s.timers.Start()
}

// Stop halts the timer loop and forgets every pending notification.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	started := s.started
	stopEviction := s.stopEviction
	s.started = false
	s.stopEviction = nil
	clear(s.pending)
	s.mu.Unlock()

	if started {
		s.timers.Stop()
	}
	if stopEviction != nil {
		stopEviction()
	}
	s.timers.DeleteAll()
}

// Schedule registers n to fire at n.FireAt. Scheduling an ID that is already
// pending replaces it; the earlier instance will not be shown. A fire time
// in the past fires immediately.
func (s *Scheduler) Schedule(n Notification) error {
	if n.ID == "" {
		return errors.New("notify: notification ID required")
	}

	s.mu.Lock()
	s.gen++
	entry := pendingEntry{n: n, gen: s.gen}
	s.pending[n.ID] = entry
	s.mu.Unlock()

	delay := time.Until(n.FireAt)
	if delay <= 0 {
		s.timers.Delete(n.ID)
		s.fire(entry)
		return nil
	}
	s.timers.Set(n.ID, entry, delay)
	return nil
}

// Cancel removes a pending notification and reports whether it was pending.
// Once Cancel returns, the notification's show will not run, even if its
// timer has already fired.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	_, ok := s.pending[id]
	delete(s.pending, id)
	s.mu.Unlock()

	s.timers.Delete(id)
	return ok
}

// Pending reports whether id is scheduled and not yet delivered or cancelled.
func (s *Scheduler) Pending(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[id]
	return ok
}

// PendingIDs returns the IDs of all pending notifications, sorted.
func (s *Scheduler) PendingIDs() []string {
	s.mu.Lock()
	ids := make([]string, 0, len(s.pending))
	for id := range s.pending {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	slices.Sort(ids)
	return ids
}

// fire runs on the timer goroutine and only hands off to the consumer.
func (s *Scheduler) fire(entry pendingEntry) {
	s.queue.Post(func() { s.deliver(entry) })
}

// deliver runs on the consumer goroutine. Taking the entry out of pending
// under the lock is the final check: whichever of deliver and Cancel gets
// there first decides the outcome, and a notification is shown at most once.
func (s *Scheduler) deliver(entry pendingEntry) {
	s.mu.Lock()
	cur, ok := s.pending[entry.n.ID]
	live := ok && cur.gen == entry.gen
	if live {
		delete(s.pending, entry.n.ID)
	}
	s.mu.Unlock()

	if !live {
		if s.suppressed != nil {
			s.suppressed(entry.n)
		}
		return
	}
	s.show(cur.n)
}
