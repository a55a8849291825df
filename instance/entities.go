package instance

import "darkest-dnd-server/protocol"

// EntityRegistry is the ledger of every character in the world, keeping
// insertion order for stable snapshots.
type EntityRegistry struct {
	byID  map[string]*Character
	order []string
}

func NewEntityRegistry() *EntityRegistry {
	return &EntityRegistry{byID: make(map[string]*Character)}
}

// Add registers c, replacing any character with the same id.
func (r *EntityRegistry) Add(c *Character) {
	if _, ok := r.byID[c.ID]; !ok {
		r.order = append(r.order, c.ID)
	}
	r.byID[c.ID] = c
}

func (r *EntityRegistry) Get(id string) (*Character, bool) {
	c, ok := r.byID[id]
	return c, ok
}

// Remove deletes a character. Removing an absent id is a no-op.
func (r *EntityRegistry) Remove(id string) (*Character, bool) {
	c, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	delete(r.byID, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return c, true
}

// RemoveOwnedBy deletes every character of owner and returns their ids.
func (r *EntityRegistry) RemoveOwnedBy(owner string) []string {
	var ids []string
	for _, c := range r.OwnedBy(owner) {
		r.Remove(c.ID)
		ids = append(ids, c.ID)
	}
	return ids
}

// OwnedBy lists the characters of one session in spawn order.
func (r *EntityRegistry) OwnedBy(owner string) []*Character {
	var out []*Character
	for _, id := range r.order {
		if c := r.byID[id]; c.Owner == owner {
			out = append(out, c)
		}
	}
	return out
}

// All lists every character in spawn order.
func (r *EntityRegistry) All() []*Character {
	out := make([]*Character, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

func (r *EntityRegistry) Len() int { return len(r.order) }

// States returns the wire view of characters in order.
func States(chars []*Character) []protocol.CharacterState {
	out := make([]protocol.CharacterState, 0, len(chars))
	for _, c := range chars {
		out = append(out, c.State())
	}
	return out
}
