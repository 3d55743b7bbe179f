package core

import (
	"time"

	"github.com/dkeye/Pair/internal/domain"
)

// PublishResult reports delivery stats/backpressure to the hub.
type PublishResult struct {
	SendTo  int
	Dropped []MemberSession
}

// Snapshot is the full room state handed to a joining connection.
type Snapshot struct {
	RoomID   domain.RoomID
	Language domain.Language
	Document string
	Members  []string
}

// RoomService is the core-facing API of a room.
// Every mutating call and the broadcast it causes run under one lock, so
// members observe the outcomes in the order the room accepted them.
// It never closes adapter-owned resources.
type RoomService interface {
	Room() domain.Room
	MemberCount() int
	Members() []string
	LastActive() time.Time

	Join(ms MemberSession) (Snapshot, PublishResult, error)
	ApplyUpdate(sid SessionID, document string) (PublishResult, error)
	Leave(sid SessionID) (PublishResult, bool)

	// Release marks an empty room closed. It reports false and changes
	// nothing while members remain.
	Release() bool
}

type RoomInfo struct {
	ID          domain.RoomID   `json:"roomId"`
	Language    domain.Language `json:"language"`
	MemberCount int             `json:"userCount"`
}
