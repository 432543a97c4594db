package channel

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	handshakeTimeout = 10 * time.Second
	writeTimeout     = 5 * time.Second
)

// conn is one live channel handle. The manager owns at most one at a time
// and replaces it atomically on reconnect; a discarded handle is never
// reused.
type conn struct {
	ws *websocket.Conn

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// dial opens a WebSocket connection to addr, attaching the bearer credential
// when one is supplied.
func dial(ctx context.Context, addr, token string) (*conn, error) {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
	}

	ws, _, err := dialer.DialContext(ctx, addr, header)
	if err != nil {
		return nil, err
	}

	return &conn{ws: ws}, nil
}

// writeText writes one text frame. Writes are serialized; gorilla allows only
// one concurrent writer.
func (c *conn) writeText(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// close performs a normal closure handshake with the given code and reason,
// then tears down the underlying connection. Safe to call more than once.
func (c *conn) close(code int, reason string) {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		c.ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason),
			time.Now().Add(time.Second),
		)
		c.writeMu.Unlock()
		c.ws.Close()
	})
}

// kill tears the connection down without a close handshake. The read loop
// then fails with a non-CloseError, which classifies as abnormal closure —
// used by the heartbeat to surface a silently-dead channel.
func (c *conn) kill() {
	c.closeOnce.Do(func() {
		c.ws.Close()
	})
}

// readLoop pumps inbound frames until the connection dies, then reports the
// close code. It preserves the transport's frame order for this handle.
func (c *conn) readLoop(onFrame func([]byte), onClosed func(code int, err error)) {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			onClosed(closeCode(err), err)
			return
		}
		onFrame(data)
	}
}

// closeCode extracts the close code from a read error. Errors without a close
// frame (network drops, local teardown) count as abnormal closure.
func closeCode(err error) int {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return websocket.CloseAbnormalClosure
}
