package syncclient

type Status int

const (
	Disconnected Status = iota
	Connecting
	Connected
)

func (s Status) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// State is the client's local view of a room. Remote updates overwrite it
// wholesale.
type State struct {
	Status    Status
	RoomID    string
	Language  string
	Document  string
	UserCount int
	Users     []string
}

func (s State) clone() State {
	users := make([]string, len(s.Users))
	copy(users, s.Users)
	s.Users = users
	return s
}
