// Package protocol defines the JSON frames exchanged between the sync server
// and its clients. Every frame is an envelope {type, roomId, data} whose data
// shape is fixed by type.
package protocol

type Kind string

const (
	KindRoomState  Kind = "room_state"
	KindCodeUpdate Kind = "code_update"
	KindCodeSync   Kind = "code_sync"
	KindUserJoined Kind = "user_joined"
	KindUserLeft   Kind = "user_left"
)

// Payload is the typed data of one message kind.
type Payload interface {
	Kind() Kind
}

// Message is a decoded frame.
type Message struct {
	Kind    Kind
	RoomID  string
	Payload Payload
}

// Presence is the member list as observed after a join or leave.
type Presence struct {
	UserCount      int      `json:"userCount"`
	ConnectedUsers []string `json:"connectedUsers"`
}

// RoomState is the snapshot sent only to a connection that just joined.
type RoomState struct {
	Code     string `json:"code"`
	Language string `json:"language"`
	Presence
}

// CodeUpdate replaces the whole document. Language is informational only.
type CodeUpdate struct {
	Code     string `json:"code"`
	Language string `json:"language,omitempty"`
}

// CodeSync is accepted as an alias of CodeUpdate.
type CodeSync struct {
	Code string `json:"code"`
}

type UserJoined struct {
	Presence
	DisplayName string `json:"displayName,omitempty"`
}

type UserLeft struct {
	Presence
}

func (RoomState) Kind() Kind  { return KindRoomState }
func (CodeUpdate) Kind() Kind { return KindCodeUpdate }
func (CodeSync) Kind() Kind   { return KindCodeSync }
func (UserJoined) Kind() Kind { return KindUserJoined }
func (UserLeft) Kind() Kind   { return KindUserLeft }

// DocumentOf returns the full document carried by p, if any.
func DocumentOf(p Payload) (string, bool) {
	switch v := p.(type) {
	case RoomState:
		return v.Code, true
	case CodeUpdate:
		return v.Code, true
	case CodeSync:
		return v.Code, true
	}
	return "", false
}

// PresenceOf returns the member list carried by p, if any.
func PresenceOf(p Payload) (Presence, bool) {
	switch v := p.(type) {
	case RoomState:
		return v.Presence, true
	case UserJoined:
		return v.Presence, true
	case UserLeft:
		return v.Presence, true
	}
	return Presence{}, false
}

// NewPresence copies names so the payload never aliases live member state.
func NewPresence(names []string) Presence {
	users := make([]string, len(names))
	copy(users, names)
	return Presence{UserCount: len(users), ConnectedUsers: users}
}
