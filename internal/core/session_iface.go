package core

import "github.com/dkeye/Pair/internal/domain"

// SessionID identifies one transport session. A reconnect gets a new one.
type SessionID string

// MemberSession binds domain.Member and its transport endpoint.
// This is what a room stores and fans out to.
type MemberSession interface {
	ID() SessionID
	Meta() *domain.Member
	Signal() SignalConnection
}
