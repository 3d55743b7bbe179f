package syncclient

import (
	"errors"
	"sync"
	"time"

	"github.com/dkeye/Pair/internal/protocol"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Handlers are invoked from the session's read goroutine.
type Handlers struct {
	OnMessage    func(protocol.Message)
	OnConnect    func()
	OnDisconnect func()
}

// Session is one connection to one room. Reads happen on one goroutine,
// writes of document updates on another.
type Session struct {
	conn      Conn
	roomID    string
	handlers  Handlers
	log       zerolog.Logger
	writeWait time.Duration
	debouncer *Debouncer

	mu       sync.Mutex
	state    State
	err      error
	closing  bool
	outgoing string
	hasOut   bool
	writing  bool
	idle     *sync.Cond

	wake      chan struct{}
	stop      chan struct{}
	closeOnce sync.Once
	done      chan struct{}
}

func newSession(c *Client, conn Conn, roomID string, h Handlers) *Session {
	s := &Session{
		conn:      conn,
		roomID:    roomID,
		handlers:  h,
		log:       c.log.With().Str("module", "syncclient").Str("room_id", roomID).Logger(),
		writeWait: c.writeWait,
		state:     State{Status: Connected, RoomID: roomID, Users: []string{}},
		wake:      make(chan struct{}, 1),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	s.idle = sync.NewCond(&s.mu)
	s.debouncer = NewDebouncer(c.clock, c.debounce, s.enqueue)
	return s
}

func (s *Session) start() {
	if s.handlers.OnConnect != nil {
		s.handlers.OnConnect()
	}
	go s.writeLoop()
	go s.readLoop()
}

func (s *Session) RoomID() string { return s.roomID }

// State returns a copy of the local room view.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Err reports why the session ended, or nil after a local Close.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Done is closed once the session is torn down and OnDisconnect has run.
func (s *Session) Done() <-chan struct{} { return s.done }

// SendUpdate records a local edit and schedules it for sending.
// Only the latest document of a debounce window goes on the wire.
func (s *Session) SendUpdate(document string) {
	s.mu.Lock()
	if s.state.Status != Connected {
		s.mu.Unlock()
		return
	}
	s.state.Document = document
	s.mu.Unlock()
	s.debouncer.Trigger(document)
}

// Flush sends a pending edit without waiting for the debounce window and
// returns once it has been written, or the session has ended.
func (s *Session) Flush() {
	s.debouncer.Flush()
	s.mu.Lock()
	defer s.mu.Unlock()
	for (s.hasOut || s.writing) && !s.closing && s.state.Status == Connected {
		s.idle.Wait()
	}
}

// Close ends the session. A pending debounced edit is dropped. Close does
// not wait for an in-flight write; closing the socket unblocks it.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closing = true
		s.hasOut = false
		s.idle.Broadcast()
		s.mu.Unlock()
		s.debouncer.Stop()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(s.writeWait))
		_ = s.conn.Close()
	})
}

// enqueue hands a document to the writer. A document still waiting is
// replaced, so the wire only ever sees documents in edit order.
func (s *Session) enqueue(document string) {
	s.mu.Lock()
	if s.closing || s.state.Status != Connected {
		s.mu.Unlock()
		return
	}
	s.outgoing = document
	s.hasOut = true
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Session) writeLoop() {
	for {
		select {
		case <-s.stop:
			return
		case <-s.wake:
		}

		s.mu.Lock()
		document, ok := s.outgoing, s.hasOut
		s.outgoing, s.hasOut = "", false
		s.writing = ok
		lang := s.state.Language
		s.mu.Unlock()
		if !ok {
			continue
		}

		err := s.write(document, lang)

		s.mu.Lock()
		s.writing = false
		closing := s.closing
		s.idle.Broadcast()
		s.mu.Unlock()
		if err != nil {
			if !closing {
				s.log.Warn().Err(err).Msg("send update")
			}
			_ = s.conn.Close()
			return
		}
	}
}

func (s *Session) write(document, lang string) error {
	frame, err := protocol.Encode(s.roomID, protocol.CodeUpdate{Code: document, Language: lang})
	if err != nil {
		s.log.Error().Err(err).Msg("encode update")
		return nil
	}
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeWait)); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, frame)
}

func (s *Session) readLoop() {
	var readErr error
	defer func() { s.finish(readErr) }()
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			readErr = err
			return
		}
		s.dispatch(data)
	}
}

func (s *Session) dispatch(data []byte) {
	msg, err := protocol.Decode(data)
	switch {
	case errors.Is(err, protocol.ErrUnknownKind):
		s.log.Debug().Err(err).Msg("ignoring frame")
		return
	case err != nil:
		s.log.Warn().Err(err).Msg("bad frame")
		return
	}

	s.apply(msg.Payload)
	if s.handlers.OnMessage != nil {
		s.handlers.OnMessage(msg)
	}
}

func (s *Session) apply(p protocol.Payload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc, ok := protocol.DocumentOf(p); ok {
		s.state.Document = doc
	}
	if rs, ok := p.(protocol.RoomState); ok {
		s.state.Language = rs.Language
	}
	if pr, ok := protocol.PresenceOf(p); ok {
		s.state.UserCount = pr.UserCount
		s.state.Users = append([]string(nil), pr.ConnectedUsers...)
	}
}

func (s *Session) finish(readErr error) {
	s.debouncer.Stop()
	close(s.stop)
	_ = s.conn.Close()

	s.mu.Lock()
	s.state.Status = Disconnected
	s.state.UserCount = 0
	s.state.Users = []string{}
	s.idle.Broadcast()
	if readErr != nil && !s.closing {
		var ce *websocket.CloseError
		if !errors.As(readErr, &ce) || ce.Code != websocket.CloseNormalClosure {
			s.err = readErr
		}
	}
	s.mu.Unlock()

	s.log.Info().Err(s.Err()).Msg("disconnected")
	if s.handlers.OnDisconnect != nil {
		s.handlers.OnDisconnect()
	}
	close(s.done)
}
