// Package syncclient is the participant side of a collaborative room: it
// owns one WebSocket session at a time, debounces local edits into
// code_update frames and applies remote frames to a local State.
package syncclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	DefaultDebounce  = 300 * time.Millisecond
	DefaultWriteWait = 10 * time.Second
)

// ErrConnectAborted is returned by Connect when Disconnect ran while the
// dial was in progress.
var ErrConnectAborted = errors.New("connect aborted by disconnect")

// Conn is an indirection over *websocket.Conn to ease testing.
// WriteControl and Close may be called concurrently with the other methods.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type DialFunc func(ctx context.Context, url string) (Conn, error)

type Option func(*Client)

func WithDebounce(d time.Duration) Option { return func(c *Client) { c.debounce = d } }
func WithClock(clock Clock) Option        { return func(c *Client) { c.clock = clock } }
func WithDialer(dial DialFunc) Option     { return func(c *Client) { c.dial = dial } }
func WithLogger(l zerolog.Logger) Option  { return func(c *Client) { c.log = l } }

// WithWriteTimeout bounds every socket write, including the close frame.
func WithWriteTimeout(d time.Duration) Option { return func(c *Client) { c.writeWait = d } }

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// Client owns at most one active Session.
type Client struct {
	baseURL    string
	debounce   time.Duration
	writeWait  time.Duration
	clock      Clock
	dial       DialFunc
	httpClient *http.Client
	log        zerolog.Logger

	connectMu  sync.Mutex
	mu         sync.Mutex
	session    *Session
	connecting bool
	// gen counts Disconnect calls; a Connect that sees it move drops its dial.
	gen        uint64
	cancelDial context.CancelFunc
}

// New builds a client for a server reachable at baseURL (http or https).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		debounce:   DefaultDebounce,
		writeWait:  DefaultWriteWait,
		clock:      realClock{},
		dial:       dialWebSocket,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func dialWebSocket(ctx context.Context, u string) (Conn, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%w (status %d)", err, resp.StatusCode)
		}
		return nil, err
	}
	return conn, nil
}

// Connect joins roomID as displayName. Any previous session is closed first
// and its OnDisconnect has run before the new dial starts. A Disconnect
// during the dial cancels it and Connect returns ErrConnectAborted. Connect
// must not be called from inside a handler of the session it replaces.
func (c *Client) Connect(ctx context.Context, roomID, displayName string, h Handlers) (*Session, error) {
	c.connectMu.Lock()
	defer c.connectMu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	prev := c.session
	c.session = nil
	c.connecting = true
	gen := c.gen
	c.cancelDial = cancel
	c.mu.Unlock()

	if prev != nil {
		prev.Close()
		<-prev.Done()
	}

	u, err := c.socketURL(roomID, displayName)
	var conn Conn
	if err == nil {
		conn, err = c.dial(ctx, u)
	}

	c.mu.Lock()
	aborted := c.gen != gen
	if aborted || err != nil {
		if !aborted {
			c.connecting = false
			c.cancelDial = nil
		}
		c.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		if aborted {
			err = ErrConnectAborted
		}
		return nil, fmt.Errorf("connect to room %s: %w", roomID, err)
	}
	s := newSession(c, conn, roomID, h)
	c.session = s
	c.connecting = false
	c.cancelDial = nil
	c.mu.Unlock()

	c.log.Info().Str("module", "syncclient").Str("room_id", roomID).Msg("connected")
	s.start()
	return s, nil
}

// Session returns the current session, or nil.
func (c *Client) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *Client) Status() Status {
	c.mu.Lock()
	s, connecting := c.session, c.connecting
	c.mu.Unlock()
	if connecting {
		return Connecting
	}
	if s == nil {
		return Disconnected
	}
	return s.State().Status
}

// SendUpdate forwards to the active session. Without one it does nothing.
func (c *Client) SendUpdate(document string) {
	if s := c.Session(); s != nil {
		s.SendUpdate(document)
	}
}

// Disconnect closes the active session and waits for its teardown. A
// Connect still dialing is cancelled and will not install its session.
func (c *Client) Disconnect() {
	c.mu.Lock()
	s := c.session
	c.session = nil
	c.gen++
	c.connecting = false
	if c.cancelDial != nil {
		c.cancelDial()
		c.cancelDial = nil
	}
	c.mu.Unlock()
	if s != nil {
		s.Close()
		<-s.Done()
	}
}

func (c *Client) socketURL(roomID, displayName string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/" + url.PathEscape(roomID)
	q := url.Values{}
	if displayName != "" {
		q.Set("display_name", displayName)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
