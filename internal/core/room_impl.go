package core

import (
	"sync"
	"time"

	"github.com/dkeye/Pair/internal/domain"
	"github.com/dkeye/Pair/internal/protocol"
	"github.com/rs/zerolog/log"
)

// roomImpl is a threadsafe in-memory room.
// It never closes adapter-owned resources.
type roomImpl struct {
	mu         sync.RWMutex
	room       *domain.Room
	presence   *PresenceTracker
	bySID      map[SessionID]MemberSession
	lastActive time.Time
	closed     bool
	now        func() time.Time
}

func NewRoomService(room *domain.Room) RoomService {
	return newRoomService(room, time.Now)
}

func newRoomService(room *domain.Room, now func() time.Time) *roomImpl {
	return &roomImpl{
		room:       room,
		presence:   NewPresenceTracker(),
		bySID:      make(map[SessionID]MemberSession),
		lastActive: room.UpdatedAt,
		now:        now,
	}
}

func (r *roomImpl) Room() domain.Room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return *r.room
}

func (r *roomImpl) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.presence.Count()
}

func (r *roomImpl) Members() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.presence.Names()
}

func (r *roomImpl) LastActive() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastActive
}

func (r *roomImpl) Join(ms MemberSession) (Snapshot, PublishResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := PublishResult{}
	if r.closed {
		return Snapshot{}, res, domain.ErrRoomNotFound
	}

	sid := ms.ID()
	rejoin := r.presence.Has(sid)
	_, names := r.presence.Add(sid, ms.Meta().DisplayName)
	r.bySID[sid] = ms
	r.lastActive = r.now()

	snap := Snapshot{
		RoomID:   r.room.ID,
		Language: r.room.Language,
		Document: r.room.Document,
		Members:  names,
	}

	// The snapshot is queued before anything else can reach the joiner.
	r.deliver(ms, protocol.RoomState{
		Code:     snap.Document,
		Language: string(snap.Language),
		Presence: protocol.NewPresence(names),
	}, &res)

	if !rejoin {
		r.broadcast(sid, protocol.UserJoined{
			Presence:    protocol.NewPresence(names),
			DisplayName: ms.Meta().DisplayName,
		}, &res)
	}

	log.Info().Str("module", "core.room").Str("room_id", string(r.room.ID)).Str("sid", string(sid)).
		Int("members", len(names)).Msg("member joined")
	return snap, res, nil
}

func (r *roomImpl) ApplyUpdate(sid SessionID, document string) (PublishResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := PublishResult{}
	if r.closed {
		return res, domain.ErrRoomNotFound
	}
	if !r.presence.Has(sid) {
		return res, domain.ErrStaleOperation
	}

	now := r.now()
	r.room.Document = document
	r.room.UpdatedAt = now
	r.lastActive = now

	r.broadcast(sid, protocol.CodeUpdate{
		Code:     document,
		Language: string(r.room.Language),
	}, &res)
	return res, nil
}

func (r *roomImpl) Leave(sid SessionID) (PublishResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := PublishResult{}
	_, names, removed := r.presence.Remove(sid)
	if !removed {
		return res, false
	}
	delete(r.bySID, sid)
	r.lastActive = r.now()

	r.broadcast(sid, protocol.UserLeft{Presence: protocol.NewPresence(names)}, &res)

	log.Info().Str("module", "core.room").Str("room_id", string(r.room.ID)).Str("sid", string(sid)).
		Int("members", len(names)).Msg("member left")
	return res, true
}

func (r *roomImpl) Release() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.presence.Count() > 0 {
		return false
	}
	r.closed = true
	return true
}

// broadcast fans p out to every member except from. Must hold r.mu.
func (r *roomImpl) broadcast(from SessionID, p protocol.Payload, res *PublishResult) {
	frame, err := protocol.Encode(string(r.room.ID), p)
	if err != nil {
		log.Error().Err(err).Str("module", "core.room").Str("kind", string(p.Kind())).Msg("encode broadcast")
		return
	}
	for _, sid := range r.presence.IDs() {
		if sid == from {
			continue
		}
		r.send(r.bySID[sid], frame, res)
	}
	log.Debug().Str("module", "core.room").Str("from", string(from)).Str("kind", string(p.Kind())).
		Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
}

// deliver sends p to a single member. Must hold r.mu.
func (r *roomImpl) deliver(ms MemberSession, p protocol.Payload, res *PublishResult) {
	frame, err := protocol.Encode(string(r.room.ID), p)
	if err != nil {
		log.Error().Err(err).Str("module", "core.room").Str("kind", string(p.Kind())).Msg("encode frame")
		return
	}
	r.send(ms, frame, res)
}

func (r *roomImpl) send(ms MemberSession, frame Frame, res *PublishResult) {
	if err := ms.Signal().TrySend(frame); err != nil {
		res.Dropped = append(res.Dropped, ms)
		return
	}
	res.SendTo++
}
