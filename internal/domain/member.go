package domain

import "time"

// Member is one connection's participation in a room.
// No transport or lifecycle logic here.
type Member struct {
	DisplayName string
	JoinedAt    time.Time
}

// NewMember avoids raw literals in adapters and keeps construction obvious.
func NewMember(displayName string, now time.Time) *Member {
	return &Member{DisplayName: SanitizeDisplayName(displayName), JoinedAt: now}
}
