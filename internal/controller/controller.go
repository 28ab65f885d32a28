// Package controller is the client side of the remote-control channel: it
// dials a presenter, sends requests and scroll deltas, and decodes the
// messages the presenter pushes back.
package controller

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"

	"nhooyr.io/websocket"

	"github.com/gastownhall/presenter-remote/internal/remote"
	"github.com/gastownhall/presenter-remote/internal/wire"
	"github.com/gastownhall/presenter-remote/internal/wsbase"
)

// Conn is a controller connection to one presenter.
type Conn struct {
	ws     *websocket.Conn
	stream net.Conn
	reader *wire.Reader
	cancel context.CancelFunc

	mu sync.Mutex // serializes Send
}

// Dial connects to the presenter's WebSocket endpoint at url. ctx bounds the
// handshake only. A blank token sends no Authorization header.
func Dial(ctx context.Context, url, token string) (*Conn, error) {
	ws, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPHeader: wsbase.AuthHeader(token),
	})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	streamCtx, cancel := context.WithCancel(context.Background())
	stream := websocket.NetConn(streamCtx, ws, websocket.MessageBinary)
	ws.SetReadLimit(wsbase.DefaultReadLimit)

	return &Conn{
		ws:     ws,
		stream: stream,
		reader: wire.NewReader(bufio.NewReader(stream)),
		cancel: cancel,
	}, nil
}

// Send encodes m and writes it as one frame. Safe for concurrent use.
func (c *Conn) Send(m remote.Message) error {
	data, err := remote.Encode(m)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.stream.Write(data); err != nil {
		return fmt.Errorf("send %s: %w", m.Tag(), err)
	}
	return nil
}

// RequestState asks the presenter for its content and recorder status.
func (c *Conn) RequestState() error {
	return c.Send(remote.StateRequest{})
}

// Scroll sends a relative scroll by amount pixels.
func (c *Conn) Scroll(amount float32) error {
	return c.Send(remote.NewScrollDelta(amount))
}

// Receive blocks for the next message from the presenter. A presenter that
// closes the connection between messages yields an error matching io.EOF.
// Receive must not be called concurrently.
func (c *Conn) Receive() (remote.Message, error) {
	return remote.Parse(c.reader)
}

// Close closes the connection with a normal closure.
func (c *Conn) Close() error {
	err := c.ws.Close(websocket.StatusNormalClosure, "")
	c.cancel()
	return err
}
