package wsremote

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log"
	"net"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"github.com/gastownhall/presenter-remote/internal/remote"
	"github.com/gastownhall/presenter-remote/internal/wire"
)

const writeTimeout = 5 * time.Second

// Client is one connected controller.
type Client struct {
	conn   *websocket.Conn
	stream net.Conn
	server *Server
	addr   string
	ctx    context.Context
	cancel context.CancelFunc

	subID int
	live  <-chan remote.Message

	closeOnce sync.Once
}

func newClient(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, server *Server, addr string) *Client {
	c := &Client{
		conn:   conn,
		stream: websocket.NetConn(ctx, conn, websocket.MessageBinary),
		server: server,
		addr:   addr,
		ctx:    ctx,
		cancel: cancel,
	}
	// NetConn lifts the read limit; restore the server's.
	conn.SetReadLimit(server.readLimit)
	c.subID, c.live = server.session.Subscribe()
	return c
}

func (c *Client) run() {
	go c.writePump()
	c.readPump()
}

// Close stops both pumps and releases the session subscription.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		// Cancelling first would drop the connection without a close frame.
		_ = c.conn.Close(websocket.StatusNormalClosure, "")
		c.cancel()
		c.server.session.Unsubscribe(c.subID)
	})
}

func (c *Client) readPump() {
	defer c.cancel()

	r := wire.NewReader(bufio.NewReader(c.stream))
	for {
		msg, err := remote.Parse(r)
		if err != nil {
			c.readFailed(err)
			return
		}
		c.server.metrics.Received(msg.Tag())
		c.handle(msg)
	}
}

func (c *Client) readFailed(err error) {
	switch {
	case c.ctx.Err() != nil:
	case errors.Is(err, io.EOF):
		// Stream ended on a message boundary.
	case errors.Is(err, remote.ErrUnknownTag):
		c.protocolError(err, "unknown message tag")
	case errors.Is(err, wire.ErrTruncatedInput):
		c.protocolError(err, "truncated message")
	case errors.Is(err, wire.ErrInvalidEncoding):
		c.protocolError(err, "malformed message")
	case websocket.CloseStatus(err) != -1:
		log.Printf("wsremote: controller %s closed: %v", c.addr, err)
	default:
		c.server.metrics.DecodeFailed(err)
		log.Printf("wsremote: controller %s read error: %v", c.addr, err)
	}
}

func (c *Client) protocolError(err error, reason string) {
	c.server.metrics.DecodeFailed(err)
	log.Printf("wsremote: controller %s: %v", c.addr, err)
	_ = c.conn.Close(websocket.StatusProtocolError, reason)
}

func (c *Client) handle(msg remote.Message) {
	switch m := msg.(type) {
	case remote.StateRequest:
		if !c.server.session.Resend(c.subID) {
			c.server.metrics.Dropped()
			log.Printf("wsremote: controller %s: state reply dropped, queue full", c.addr)
		}
	case remote.ScrollDelta:
		c.server.session.Scroll(m)
	default:
		log.Printf("wsremote: controller %s sent %s, ignoring", c.addr, msg.Tag())
	}
}

func (c *Client) writePump() {
	defer c.cancel()

	for {
		select {
		case <-c.ctx.Done():
			return
		case msg, ok := <-c.live:
			if !ok {
				return
			}
			if err := c.write(msg); err != nil {
				if c.ctx.Err() == nil {
					log.Printf("wsremote: controller %s write %s: %v", c.addr, msg.Tag(), err)
				}
				return
			}
		}
	}
}

// write sends msg as a single WebSocket frame.
func (c *Client) write(msg remote.Message) error {
	data, err := remote.Encode(msg)
	if err != nil {
		return err
	}
	_ = c.stream.SetWriteDeadline(time.Now().Add(writeTimeout))
	if _, err := c.stream.Write(data); err != nil {
		return err
	}
	c.server.metrics.Sent(msg.Tag())
	return nil
}
