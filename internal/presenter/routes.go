package presenter

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Top is null when the line's offset is not a finite number.
type lineView struct {
	Text string   `json:"text"`
	Top  *float32 `json:"top"`
}

type noticeView struct {
	ID   string    `json:"id"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

type stateView struct {
	Lines          []lineView  `json:"lines"`
	Offset         float32     `json:"offset"`
	Recording      bool        `json:"recording"`
	Levels         []int8      `json:"levels"`
	Controllers    int         `json:"controllers"`
	Notice         *noticeView `json:"notice,omitempty"`
	PendingNotices []string    `json:"pending_notices"`
}

func (p *Presenter) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, `{"ok":true}`)
	})
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !p.ready.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = fmt.Fprint(w, `{"ok":false}`)
			return
		}
		_, _ = fmt.Fprint(w, `{"ok":true}`)
	})
	r.Get("/state", p.handleState)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{}))
	r.Handle("/ws", p.wsSrv)
	return r
}

func (p *Presenter) handleState(w http.ResponseWriter, _ *http.Request) {
	st := p.session.State()

	view := stateView{
		Lines:          make([]lineView, 0, st.Content.Len()),
		Offset:         st.Offset,
		Recording:      st.Recorder.Recording(),
		Levels:         st.Recorder.Levels(),
		Controllers:    p.wsSrv.ClientCount(),
		PendingNotices: p.notices.PendingIDs(),
	}
	if view.Levels == nil {
		view.Levels = []int8{}
	}
	for i := range st.Content.Len() {
		text, top := st.Content.Line(i)
		view.Lines = append(view.Lines, lineView{Text: text, Top: finite(top)})
	}
	if st.Notice.ID != "" {
		view.Notice = &noticeView{ID: st.Notice.ID, Text: st.Notice.Text, At: st.Notice.At}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(view); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func finite(v float32) *float32 {
	if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
		return nil
	}
	return &v
}
