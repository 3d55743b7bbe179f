package app

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dkeye/Pair/internal/core"
	"github.com/dkeye/Pair/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	roomIDLen       = 8
	maxIDAttempts   = 10
	DefaultMaxRooms = 100
)

// RoomRegistry maps room ids to live rooms.
// Lock order is registry then room; callers never hold a room lock here.
type RoomRegistry struct {
	mu       sync.RWMutex
	rooms    map[domain.RoomID]core.RoomService
	maxRooms int

	newID func() string
	now   func() time.Time
}

func NewRoomRegistry(maxRooms int) *RoomRegistry {
	if maxRooms <= 0 {
		maxRooms = DefaultMaxRooms
	}
	return &RoomRegistry{
		rooms:    make(map[domain.RoomID]core.RoomService),
		maxRooms: maxRooms,
		newID:    func() string { return uuid.NewString()[:roomIDLen] },
		now:      time.Now,
	}
}

// Create allocates a room with an empty document.
func (r *RoomRegistry) Create(language string) (core.RoomService, error) {
	lang, err := domain.ParseLanguage(language)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.rooms) >= r.maxRooms {
		return nil, fmt.Errorf("%w: %d rooms", domain.ErrCapacity, r.maxRooms)
	}

	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id := domain.RoomID(r.newID())
		if _, taken := r.rooms[id]; taken {
			continue
		}
		room := core.NewRoomService(domain.NewRoom(id, lang, r.now()))
		r.rooms[id] = room
		log.Info().Str("module", "app.rooms").Str("room_id", string(id)).Str("language", string(lang)).Msg("room created")
		return room, nil
	}
	return nil, domain.ErrIDExhausted
}

func (r *RoomRegistry) Get(id domain.RoomID) (core.RoomService, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrRoomNotFound, id)
	}
	return room, nil
}

// ReleaseIfEmpty removes the room when it has no members left.
func (r *RoomRegistry) ReleaseIfEmpty(id domain.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[id]
	if !ok || !room.Release() {
		return false
	}
	delete(r.rooms, id)
	log.Info().Str("module", "app.rooms").Str("room_id", string(id)).Msg("room released")
	return true
}

func (r *RoomRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

func (r *RoomRegistry) List() []core.RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.RoomInfo, 0, len(r.rooms))
	for id, room := range r.rooms {
		out = append(out, core.RoomInfo{ID: id, Language: room.Room().Language, MemberCount: room.MemberCount()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Sweep releases empty rooms whose last activity is older than idle.
// This collects rooms that were created but never joined.
func (r *RoomRegistry) Sweep(now time.Time, idle time.Duration) []domain.RoomID {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed []domain.RoomID
	for id, room := range r.rooms {
		if now.Sub(room.LastActive()) < idle {
			continue
		}
		if !room.Release() {
			continue
		}
		delete(r.rooms, id)
		removed = append(removed, id)
	}
	if len(removed) > 0 {
		log.Info().Str("module", "app.rooms").Int("removed", len(removed)).Msg("idle rooms swept")
	}
	return removed
}

// RunJanitor calls Sweep every interval until ctx is done. Rooms that still
// have members are never swept, however long they have been idle.
func (r *RoomRegistry) RunJanitor(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "app.rooms").Msg("janitor stopped")
			return
		case <-ticker.C:
			r.Sweep(r.now(), idle)
		}
	}
}
