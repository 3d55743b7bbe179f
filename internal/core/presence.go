package core

// PresenceTracker keeps the members of one room in join order.
// It is not safe for concurrent use; the owning room serializes access.
type PresenceTracker struct {
	order []SessionID
	names map[SessionID]string
}

func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{names: make(map[SessionID]string)}
}

// Add registers sid and returns the resulting count and names.
// Adding a present sid only refreshes its display name.
func (p *PresenceTracker) Add(sid SessionID, displayName string) (int, []string) {
	if _, ok := p.names[sid]; !ok {
		p.order = append(p.order, sid)
	}
	p.names[sid] = displayName
	return p.Count(), p.Names()
}

// Remove drops sid. Removing an absent sid is a no-op and reports false.
func (p *PresenceTracker) Remove(sid SessionID) (int, []string, bool) {
	if _, ok := p.names[sid]; !ok {
		return p.Count(), p.Names(), false
	}
	delete(p.names, sid)
	for i, id := range p.order {
		if id == sid {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	return p.Count(), p.Names(), true
}

func (p *PresenceTracker) Has(sid SessionID) bool {
	_, ok := p.names[sid]
	return ok
}

func (p *PresenceTracker) Count() int { return len(p.order) }

// Names returns a fresh slice, never nil.
func (p *PresenceTracker) Names() []string {
	out := make([]string, 0, len(p.order))
	for _, sid := range p.order {
		out = append(out, p.names[sid])
	}
	return out
}

// IDs returns session ids in join order.
func (p *PresenceTracker) IDs() []SessionID {
	out := make([]SessionID, len(p.order))
	copy(out, p.order)
	return out
}
