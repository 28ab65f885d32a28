package wsbase

import (
	"log"
	"net/http"

	"nhooyr.io/websocket"
)

// DefaultReadLimit bounds a single inbound WebSocket message.
const DefaultReadLimit = 4 << 20

// AcceptWebSocket upgrades an HTTP request to a WebSocket connection with the
// given origin patterns and per-message read limit. A readLimit <= 0 uses
// DefaultReadLimit.
func AcceptWebSocket(w http.ResponseWriter, r *http.Request, originPatterns []string, readLimit int64) (*websocket.Conn, error) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originPatterns,
	})
	if err != nil {
		log.Printf("websocket accept: %v", err)
		return nil, err
	}
	if readLimit <= 0 {
		readLimit = DefaultReadLimit
	}
	conn.SetReadLimit(readLimit)
	return conn, nil
}
