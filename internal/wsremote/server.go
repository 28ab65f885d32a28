// Package wsremote serves the remote-control channel over WebSocket. Each
// connection carries an ordered stream of binary-framed messages in both
// directions; WebSocket message boundaries carry no meaning.
package wsremote

import (
	"context"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/gastownhall/presenter-remote/internal/metrics"
	"github.com/gastownhall/presenter-remote/internal/session"
	"github.com/gastownhall/presenter-remote/internal/wsbase"
)

// Server accepts controller connections for one session.
type Server struct {
	session        *session.Session
	metrics        *metrics.Metrics
	authToken      string
	originPatterns []string
	readLimit      int64
	clients        map[*Client]struct{}
	mu             sync.Mutex

	onConnect    func(total int)
	onDisconnect func(remaining int)
}

// NewServer creates a server for sess. m may be nil.
func NewServer(sess *session.Session, m *metrics.Metrics, authToken string, originPatterns []string) *Server {
	return &Server{
		session:        sess,
		metrics:        m,
		authToken:      strings.TrimSpace(authToken),
		originPatterns: originPatterns,
		readLimit:      wsbase.DefaultReadLimit,
		clients:        make(map[*Client]struct{}),
	}
}

// SetReadLimit bounds a single inbound WebSocket frame. Call before serving.
func (s *Server) SetReadLimit(n int64) {
	if n > 0 {
		s.readLimit = n
	}
}

// SetLifecycleHooks registers callbacks run after a controller connects or
// disconnects, with the resulting controller count. Call before serving.
func (s *Server) SetLifecycleHooks(connected func(total int), disconnected func(remaining int)) {
	s.onConnect = connected
	s.onDisconnect = disconnected
}

// ServeHTTP handles WebSocket upgrade requests at /ws.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !wsbase.IsAuthorizedRequest(s.authToken, r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := wsbase.AcceptWebSocket(w, r, s.originPatterns, s.readLimit)
	if err != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := newClient(ctx, cancel, conn, s, r.RemoteAddr)

	s.mu.Lock()
	s.clients[client] = struct{}{}
	count := len(s.clients)
	s.mu.Unlock()

	s.metrics.SetControllers(count)
	log.Printf("wsremote: controller %s connected (%d total)", client.addr, count)
	if s.onConnect != nil {
		s.onConnect(count)
	}

	// Blocks until the controller disconnects.
	client.run()

	s.RemoveClient(client)
}

// RemoveClient closes a client and forgets it. Removing a client twice is a
// no-op.
func (s *Server) RemoveClient(client *Client) {
	s.mu.Lock()
	_, ok := s.clients[client]
	delete(s.clients, client)
	count := len(s.clients)
	s.mu.Unlock()

	client.Close()
	if !ok {
		return
	}

	s.metrics.SetControllers(count)
	log.Printf("wsremote: controller %s disconnected (%d remaining)", client.addr, count)
	if s.onDisconnect != nil {
		s.onDisconnect(count)
	}
}

// ClientCount returns the number of connected controllers.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// CloseAll closes all connected clients.
func (s *Server) CloseAll() {
	s.mu.Lock()
	clients := make([]*Client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		s.RemoveClient(c)
	}
}
