package app

import (
	"sync"

	"github.com/dkeye/Pair/internal/core"
	"github.com/dkeye/Pair/internal/domain"
	"github.com/rs/zerolog/log"
)

type sessionEntry struct {
	RoomID  domain.RoomID
	Session core.MemberSession
}

// Sessions tracks every attached connection across all rooms.
type Sessions struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*sessionEntry
}

func NewSessions() *Sessions {
	return &Sessions{sessions: make(map[core.SessionID]*sessionEntry)}
}

func (s *Sessions) Bind(roomID domain.RoomID, sess core.MemberSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID()] = &sessionEntry{RoomID: roomID, Session: sess}
	log.Debug().Str("module", "app.sessions").Str("sid", string(sess.ID())).Str("room_id", string(roomID)).Msg("bound session")
}

func (s *Sessions) Unbind(sid core.SessionID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sid)
	log.Debug().Str("module", "app.sessions").Str("sid", string(sid)).Msg("unbind session")
}

func (s *Sessions) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// CloseAll closes every transport. Each close turns into a normal leave.
func (s *Sessions) CloseAll() int {
	s.mu.RLock()
	conns := make([]core.SignalConnection, 0, len(s.sessions))
	for _, e := range s.sessions {
		conns = append(conns, e.Session.Signal())
	}
	s.mu.RUnlock()

	for _, c := range conns {
		c.Close()
	}
	log.Info().Str("module", "app.sessions").Int("closed", len(conns)).Msg("closed all sessions")
	return len(conns)
}
