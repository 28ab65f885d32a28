// Package presenter wires the remote-control channel into a running service:
// session state, content reloads, recorder status polling, operator notices
// and the HTTP surface.
package presenter

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/gastownhall/presenter-remote/internal/config"
	"github.com/gastownhall/presenter-remote/internal/content"
	"github.com/gastownhall/presenter-remote/internal/meter"
	"github.com/gastownhall/presenter-remote/internal/metrics"
	"github.com/gastownhall/presenter-remote/internal/notify"
	"github.com/gastownhall/presenter-remote/internal/session"
	"github.com/gastownhall/presenter-remote/internal/wsremote"
)

// DisconnectNoticeID identifies the notice shown when the last controller
// has been gone for the configured delay.
const DisconnectNoticeID = "controller-disconnected"

// Presenter is the presenter-side remote-control service.
type Presenter struct {
	cfg      config.Config
	session  *session.Session
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	wsSrv    *wsremote.Server
	queue    *notify.Queue
	notices  *notify.Scheduler
	poller   *meter.Poller
	watcher  *content.Watcher
	handler  http.Handler
	httpSrv  *http.Server
	listener net.Listener

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	ready  atomic.Bool
}

// New builds a presenter from cfg. Nothing runs until Start.
func New(cfg config.Config) (*Presenter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	source, err := meter.New(cfg.Meter.Source, cfg.Meter.Channels)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	p := &Presenter{
		cfg:      cfg,
		session:  session.New(),
		registry: reg,
		metrics:  metrics.New(reg),
		queue:    notify.NewQueue(0),
	}

	p.wsSrv = wsremote.NewServer(p.session, p.metrics, cfg.AuthToken, cfg.OriginPatterns)
	p.wsSrv.SetReadLimit(cfg.MaxFrameBytes)
	p.wsSrv.SetLifecycleHooks(p.controllerConnected, p.controllerDisconnected)

	p.notices = notify.NewScheduler(p.queue, p.showNotice)
	p.notices.OnSuppressed(func(n notify.Notification) {
		p.metrics.Notification(metrics.OutcomeSuppressed)
		log.Printf("presenter: notice %s suppressed", n.ID)
	})

	p.poller = meter.NewPoller(source, p.session, cfg.Meter.Interval())
	p.handler = p.routes()
	return p, nil
}

// Session returns the presentation state.
func (p *Presenter) Session() *session.Session {
	return p.session
}

// Handler returns the HTTP handler serving every route.
func (p *Presenter) Handler() http.Handler {
	return p.handler
}

// Addr returns the listen address once started.
func (p *Presenter) Addr() string {
	if p.listener == nil {
		return ""
	}
	return p.listener.Addr().String()
}

// Start loads content, starts background workers and begins serving HTTP.
func (p *Presenter) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	if p.cfg.ContentFile != "" {
		w, err := content.NewWatcher(p.ctx, p.cfg.ContentFile)
		if err != nil {
			p.cancel()
			return fmt.Errorf("watch content %s: %w", p.cfg.ContentFile, err)
		}
		p.watcher = w
		p.wg.Add(1)
		go p.forwardContent()
		log.Printf("presenter: watching content %s", p.cfg.ContentFile)
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.queue.Run(p.ctx)
	}()
	p.notices.Start()
	p.poller.Start()

	ln, err := net.Listen("tcp", p.cfg.Listen)
	if err != nil {
		p.shutdownWorkers()
		return fmt.Errorf("listen %s: %w", p.cfg.Listen, err)
	}
	p.listener = ln
	p.httpSrv = &http.Server{
		Handler:           p.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("presenter: listening on %s", ln.Addr())
		if err := p.httpSrv.Serve(ln); err != http.ErrServerClosed {
			log.Printf("presenter: http server: %v", err)
		}
	}()

	p.ready.Store(true)
	return nil
}

// Stop gracefully shuts the presenter down. It is a no-op before a
// successful Start.
func (p *Presenter) Stop() {
	if !p.ready.Load() {
		return
	}
	log.Println("presenter: shutting down...")
	p.ready.Store(false)

	if p.httpSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.httpSrv.Shutdown(ctx); err != nil {
			log.Printf("presenter: http shutdown: %v", err)
		}
	}
	p.wsSrv.CloseAll()
	p.shutdownWorkers()

	log.Println("presenter: shutdown complete")
}

func (p *Presenter) shutdownWorkers() {
	p.poller.Stop()
	p.notices.Stop()
	if p.watcher != nil {
		p.watcher.Stop()
	}
	p.queue.Close()
	p.cancel()
	p.wg.Wait()
}

func (p *Presenter) forwardContent() {
	defer p.wg.Done()
	for snap := range p.watcher.Snapshots() {
		p.session.SetContent(snap)
		log.Printf("presenter: content loaded (%d lines)", snap.Len())
	}
}

func (p *Presenter) controllerConnected(int) {
	if p.notices.Cancel(DisconnectNoticeID) {
		p.metrics.Notification(metrics.OutcomeCancelled)
	}
}

func (p *Presenter) controllerDisconnected(remaining int) {
	delay := p.cfg.Notices.DisconnectDelay()
	if remaining > 0 || delay <= 0 {
		return
	}
	err := p.notices.Schedule(notify.Notification{
		ID:     DisconnectNoticeID,
		Text:   "Remote controller disconnected",
		FireAt: time.Now().Add(delay),
	})
	if err != nil {
		log.Printf("presenter: schedule notice: %v", err)
		return
	}
	p.metrics.Notification(metrics.OutcomeScheduled)
}

// showNotice runs on the notice queue's consumer goroutine.
func (p *Presenter) showNotice(n notify.Notification) {
	p.session.SetNotice(session.Notice{ID: n.ID, Text: n.Text, At: time.Now()})
	p.metrics.Notification(metrics.OutcomeDelivered)
	log.Printf("presenter: notice: %s", n.Text)
}
