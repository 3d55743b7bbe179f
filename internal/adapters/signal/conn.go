package signal

import (
	"sync"
	"time"

	"github.com/dkeye/Pair/internal/core"
	"github.com/gorilla/websocket"
)

type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool

	leaveOnce sync.Once
}

func newWsSignalConn(ws *websocket.Conn, buffer int) *WsSignalConn {
	return &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, buffer),
	}
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

// Close is idempotent and safe from any goroutine.
func (c *WsSignalConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
}

// CloseWithReason sends a close frame before tearing the connection down.
func (c *WsSignalConn) CloseWithReason(code int, text string, wait time.Duration) {
	msg := websocket.FormatCloseMessage(code, text)
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wait))
	c.Close()
}

// onClose runs fn at most once for the life of the connection.
func (c *WsSignalConn) onClose(fn func()) {
	c.leaveOnce.Do(fn)
}
