package app

import (
	"errors"

	"github.com/dkeye/Pair/internal/core"
	"github.com/dkeye/Pair/internal/domain"
	"github.com/rs/zerolog/log"
)

// Hub is the only writer of room documents and the only source of
// outbound room traffic. Operations on one room are serialized by the room;
// different rooms proceed independently.
type Hub struct {
	Rooms    *RoomRegistry
	Sessions *Sessions
	Policy   Policy
}

func NewHub(rooms *RoomRegistry, policy Policy) *Hub {
	return &Hub{
		Rooms:    rooms,
		Sessions: NewSessions(),
		Policy:   policy,
	}
}

// Join attaches ms to the room. The joiner receives the room snapshot and
// everyone else a user_joined notice.
func (h *Hub) Join(roomID domain.RoomID, ms core.MemberSession) (core.Snapshot, error) {
	room, err := h.Rooms.Get(roomID)
	if err != nil {
		return core.Snapshot{}, err
	}
	snap, res, err := room.Join(ms)
	if err != nil {
		return core.Snapshot{}, err
	}
	h.Sessions.Bind(roomID, ms)
	h.applyPolicy(room, res)
	return snap, nil
}

// ApplyUpdate replaces the document and relays it to every other member.
// The last accepted update wins.
func (h *Hub) ApplyUpdate(roomID domain.RoomID, sid core.SessionID, document string) error {
	room, err := h.Rooms.Get(roomID)
	if err != nil {
		return err
	}
	res, err := room.ApplyUpdate(sid, document)
	if err != nil {
		return err
	}
	h.applyPolicy(room, res)
	return nil
}

// Leave detaches sid and releases the room once it is empty.
// Calling it for a session that already left is a no-op.
func (h *Hub) Leave(roomID domain.RoomID, sid core.SessionID) {
	h.Sessions.Unbind(sid)
	room, err := h.Rooms.Get(roomID)
	if err != nil {
		if !errors.Is(err, domain.ErrRoomNotFound) {
			log.Error().Err(err).Str("module", "app.hub").Str("room_id", string(roomID)).Msg("leave lookup")
		}
		return
	}
	res, removed := room.Leave(sid)
	if !removed {
		return
	}
	h.applyPolicy(room, res)
	h.Rooms.ReleaseIfEmpty(roomID)
}

type Stats struct {
	ActiveRooms      int `json:"active_rooms"`
	TotalConnections int `json:"total_connections"`
}

func (h *Hub) Stats() Stats {
	return Stats{ActiveRooms: h.Rooms.Count(), TotalConnections: h.Sessions.Count()}
}

// Shutdown closes every connection so each of them leaves normally.
func (h *Hub) Shutdown() {
	h.Sessions.CloseAll()
}

func (h *Hub) applyPolicy(room core.RoomService, res core.PublishResult) {
	if h.Policy == nil {
		return
	}
	for _, slow := range res.Dropped {
		switch h.Policy.OnBackPressure(room, slow) {
		case KickMember:
			log.Warn().Str("module", "app.hub").Str("room_id", string(room.Room().ID)).
				Str("sid", string(slow.ID())).Msg("kicking slow member")
			slow.Signal().Close()
		case DropFrame, NoAction:
		}
	}
}
