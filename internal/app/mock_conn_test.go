package app

import (
	"sync"
	"testing"

	"github.com/dkeye/Pair/internal/core"
	"github.com/dkeye/Pair/internal/domain"
	"github.com/dkeye/Pair/internal/protocol"
	"github.com/stretchr/testify/require"
)

type mockConn struct {
	mu     sync.Mutex
	frames []core.Frame
	full   bool
	closed bool
}

func (m *mockConn) TrySend(f core.Frame) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return core.ErrConnClosed
	}
	if m.full {
		return core.ErrBackpressure
	}
	m.frames = append(m.frames, f)
	return nil
}

func (m *mockConn) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
}

func (m *mockConn) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *mockConn) setFull(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.full = v
}

func (m *mockConn) messages(t *testing.T) []protocol.Message {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]protocol.Message, 0, len(m.frames))
	for _, f := range m.frames {
		msg, err := protocol.Decode(f)
		require.NoError(t, err)
		out = append(out, msg)
	}
	return out
}

func (m *mockConn) last(t *testing.T) protocol.Message {
	t.Helper()
	msgs := m.messages(t)
	require.NotEmpty(t, msgs)
	return msgs[len(msgs)-1]
}

func session(sid, name string) (core.MemberSession, *mockConn) {
	conn := &mockConn{}
	return core.NewMemberSession(core.SessionID(sid), &domain.Member{DisplayName: name}, conn), conn
}
