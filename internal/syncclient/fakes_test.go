package syncclient

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward and runs due timers on the caller's goroutine.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && t.at <= c.now {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		t.f()
	}
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

var errFakeClosed = errors.New("fake conn closed")

type fakeConn struct {
	in     chan []byte
	closed chan struct{}
	once   sync.Once

	// With gate set, data writes block until gate is closed or the conn is,
	// like a peer that stopped reading. entered sees every blocked write.
	gate    chan struct{}
	entered chan string

	mu        sync.Mutex
	written   [][]byte
	controls  []int
	deadlines int
	remote    error
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:      make(chan []byte, 64),
		closed:  make(chan struct{}),
		entered: make(chan string, 16),
	}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case b := <-f.in:
		return websocket.TextMessage, b, nil
	case <-f.closed:
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.remote != nil {
			return 0, nil, f.remote
		}
		return 0, nil, errFakeClosed
	}
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	select {
	case <-f.closed:
		return errFakeClosed
	default:
	}
	if messageType != websocket.TextMessage {
		return nil
	}
	if f.gate != nil {
		f.entered <- string(data)
		select {
		case <-f.gate:
		case <-f.closed:
			return errFakeClosed
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written = append(f.written, data)
	return nil
}

func (f *fakeConn) WriteControl(messageType int, _ []byte, _ time.Time) error {
	select {
	case <-f.closed:
		return errFakeClosed
	default:
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.controls = append(f.controls, messageType)
	return nil
}

func (f *fakeConn) SetWriteDeadline(time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deadlines++
	return nil
}

func (f *fakeConn) isClosed() bool {
	select {
	case <-f.closed:
		return true
	default:
		return false
	}
}

func (f *fakeConn) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

// dropFromServer simulates the server ending the connection with err.
func (f *fakeConn) dropFromServer(err error) {
	f.mu.Lock()
	f.remote = err
	f.mu.Unlock()
	_ = f.Close()
}

func (f *fakeConn) writes() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.written))
	copy(out, f.written)
	return out
}

func (f *fakeConn) push(frame string) { f.in <- []byte(frame) }

type fakeDialer struct {
	mu     sync.Mutex
	conns  []*fakeConn
	urls   []string
	err    error
	gate   chan struct{}
	onDial func()
}

func (d *fakeDialer) dial(_ context.Context, u string) (Conn, error) {
	if d.onDial != nil {
		d.onDial()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	c := newFakeConn()
	c.gate = d.gate
	d.conns = append(d.conns, c)
	d.urls = append(d.urls, u)
	return c, nil
}

func (d *fakeDialer) conn(i int) *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conns[i]
}
