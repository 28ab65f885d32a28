// Package meter samples an audio level source on a fixed interval and
// publishes each sample as a recorder status.
package meter

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/gastownhall/presenter-remote/internal/remote"
)

// Source reports the recorder state and the current level of each channel.
type Source interface {
	Sample() (recording bool, levels []int8)
}

// Silent is a source with the recorder stopped and no channels.
type Silent struct{}

// Sample returns false and no levels.
func (Silent) Sample() (bool, []int8) { return false, nil }

// Synthetic produces plausible dB-style levels in [-60, 0] for a fixed
// number of channels. It is used for demos and end-to-end checks when no
// audio device is attached.
type Synthetic struct {
	mu       sync.Mutex
	channels int
	levels   []int8
	rng      *rand.Rand
}

// NewSynthetic returns a recording source with the given channel count.
func NewSynthetic(channels int, seed uint64) *Synthetic {
	levels := make([]int8, channels)
	for i := range levels {
		levels[i] = -60
	}
	return &Synthetic{
		channels: channels,
		levels:   levels,
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Sample random-walks every channel by up to ±6 dB.
func (s *Synthetic) Sample() (bool, []int8) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]int8, s.channels)
	for i, level := range s.levels {
		next := int(level) + s.rng.IntN(13) - 6
		next = max(-60, min(0, next))
		s.levels[i] = int8(next)
		out[i] = int8(next)
	}
	return true, out
}

// New returns the source named by kind.
func New(kind string, channels int) (Source, error) {
	switch kind {
	case "", "silent":
		return Silent{}, nil
	case "synthetic":
		if channels < 0 || channels > remote.MaxChannels {
			return nil, fmt.Errorf("meter: %d channels out of range [0, %d]", channels, remote.MaxChannels)
		}
		return NewSynthetic(channels, uint64(time.Now().UnixNano())), nil
	}
	return nil, fmt.Errorf("meter: unknown source %q", kind)
}

// Sink receives recorder statuses.
type Sink interface {
	SetRecorder(remote.RecorderStatus)
}

// Poller samples a Source every interval and hands the status to a Sink.
type Poller struct {
	source   Source
	sink     Sink
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	mu       sync.Mutex
	started  bool
}

// NewPoller creates a poller. Call Start to begin sampling.
func NewPoller(source Source, sink Sink, interval time.Duration) *Poller {
	ctx, cancel := context.WithCancel(context.Background())
	return &Poller{
		source:   source,
		sink:     sink,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start publishes one sample immediately and then one per interval. Only the
// first call starts the loop.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true
	go p.loop()
}

// Stop ends sampling and waits for the loop to exit, if it was started.
func (p *Poller) Stop() {
	p.cancel()
	p.mu.Lock()
	started := p.started
	p.mu.Unlock()
	if started {
		<-p.done
	}
}

func (p *Poller) loop() {
	defer close(p.done)

	p.publish()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.publish()
		}
	}
}

func (p *Poller) publish() {
	recording, levels := p.source.Sample()
	status, err := remote.NewRecorderStatus(recording, levels)
	if err != nil {
		log.Printf("meter: %v", err)
		return
	}
	p.sink.SetRecorder(status)
}
