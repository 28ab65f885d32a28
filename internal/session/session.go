// Package session holds the state of a running presentation as the remote
// channel sees it: the displayed content, the scroll offset, the latest
// recorder status and the last notice shown to the operator.
package session

import (
	"log"
	"math"
	"sync"
	"time"

	"github.com/gastownhall/presenter-remote/internal/remote"
)

// subscriberBuffer is the per-subscriber queue depth for live messages.
const subscriberBuffer = 64

// Notice is an operator-facing notification that has been shown.
type Notice struct {
	ID   string
	Text string
	At   time.Time
}

// State is a point-in-time copy of the session.
type State struct {
	Content  remote.ContentSnapshot
	Recorder remote.RecorderStatus
	Offset   float32
	Notice   Notice
}

// Session is the presentation state shared by the remote channel, the
// content watcher and the meter poller.
type Session struct {
	mu       sync.Mutex // full Lock so that snapshot+subscribe is gap-free
	content  remote.ContentSnapshot
	recorder remote.RecorderStatus
	offset   float32
	notice   Notice
	subs     map[int]chan remote.Message
	nextSub  int
}

// New returns an empty session: no lines, no channels, offset 0.
func New() *Session {
	return &Session{
		subs: make(map[int]chan remote.Message),
	}
}

// State returns a copy of the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Content:  s.content,
		Recorder: s.recorder,
		Offset:   s.offset,
		Notice:   s.notice,
	}
}

// SetContent replaces the displayed content and pushes it to subscribers.
func (s *Session) SetContent(c remote.ContentSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.content = c
	s.offset = clampOffset(s.offset, maxOffset(c))
	s.broadcastLocked(c)
}

// SetRecorder replaces the recorder status and pushes it to subscribers.
func (s *Session) SetRecorder(r remote.RecorderStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.recorder = r
	s.broadcastLocked(r)
}

// Scroll applies a relative scroll and returns the resulting offset. The
// offset stays within [0, top of the last line]. A NaN delta is ignored.
func (s *Session) Scroll(d remote.ScrollDelta) float32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	amount := float64(d.Amount())
	if math.IsNaN(amount) {
		return s.offset
	}
	s.offset = clampOffset(float32(float64(s.offset)+amount), maxOffset(s.content))
	return s.offset
}

// SetNotice records a notice that has just been shown.
func (s *Session) SetNotice(n Notice) {
	s.mu.Lock()
	s.notice = n
	s.mu.Unlock()
}

// Subscribe registers a live subscriber. Every content and recorder update
// after this call is delivered on the returned channel.
func (s *Session) Subscribe() (int, <-chan remote.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan remote.Message, subscriberBuffer)
	s.nextSub++
	s.subs[s.nextSub] = ch
	return s.nextSub, ch
}

// Resend queues the current content and recorder status on subscriber id's
// channel. Because it holds the same lock as broadcasts, no later update can
// overtake the queued state. It reports false if the subscriber is gone or
// its queue has no room for both messages.
func (s *Session) Resend(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.subs[id]
	if !ok || cap(ch)-len(ch) < 2 {
		return false
	}
	ch <- s.content
	ch <- s.recorder
	return true
}

// Unsubscribe removes a subscriber and closes its channel.
func (s *Session) Unsubscribe(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ch, ok := s.subs[id]; ok {
		delete(s.subs, id)
		close(ch)
	}
}

// Subscribers returns the number of live subscribers.
func (s *Session) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func (s *Session) broadcastLocked(m remote.Message) {
	for id, ch := range s.subs {
		select {
		case ch <- m:
		default:
			log.Printf("session: dropped %s message to slow subscriber %d", m.Tag(), id)
		}
	}
}

// maxOffset is the largest finite top, so the offset itself stays finite.
func maxOffset(c remote.ContentSnapshot) float32 {
	var top float32
	for _, t := range c.Tops() {
		if t > top && !math.IsInf(float64(t), 1) {
			top = t
		}
	}
	return top
}

func clampOffset(v, upper float32) float32 {
	if v < 0 {
		return 0
	}
	if v > upper {
		return upper
	}
	return v
}
