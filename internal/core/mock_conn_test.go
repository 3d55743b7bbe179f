package core

import (
	"sync"
	"testing"

	"github.com/dkeye/Pair/internal/domain"
	"github.com/dkeye/Pair/internal/protocol"
	"github.com/stretchr/testify/require"
)

type mockConn struct {
	mu     sync.Mutex
	frames []Frame
	full   bool
	closed bool
}

func (m *mockConn) TrySend(f Frame) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrConnClosed
	}
	if m.full {
		return ErrBackpressure
	}
	m.frames = append(m.frames, f)
	return nil
}

func (m *mockConn) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
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

func member(sid, name string, conn SignalConnection) MemberSession {
	return NewMemberSession(SessionID(sid), &domain.Member{DisplayName: name}, conn)
}
