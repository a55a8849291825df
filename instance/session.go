package instance

import (
	"github.com/zyedidia/generic/mapset"
)

// Session is everything remembered about one network identity.
// It outlives its transports so a reconnect finds it again.
type Session struct {
	ID         string   // Opaque session id, sent to peers as the player id
	Address    string   // Network identity the session was admitted from
	Admin      bool     // Granted once at admission
	Characters []string // Owned character ids in spawn order

	transports mapset.Set[string]
}

func newSession(id, address string, admin bool) *Session {
	return &Session{
		ID:         id,
		Address:    address,
		Admin:      admin,
		transports: mapset.New[string](),
	}
}

// AddTransport attaches a transport. Adding one twice is harmless.
func (s *Session) AddTransport(id string) {
	s.transports.Put(id)
}

// RemoveTransport detaches a transport and reports whether it was attached.
func (s *Session) RemoveTransport(id string) bool {
	if !s.transports.Has(id) {
		return false
	}
	s.transports.Remove(id)
	return true
}

func (s *Session) HasTransport(id string) bool { return s.transports.Has(id) }

func (s *Session) TransportCount() int { return s.transports.Size() }

// Active reports whether at least one transport is attached.
func (s *Session) Active() bool { return s.transports.Size() > 0 }

// Transports lists attached transport ids in no particular order.
func (s *Session) Transports() []string {
	out := make([]string, 0, s.transports.Size())
	s.transports.Each(func(id string) {
		out = append(out, id)
	})
	return out
}

func (s *Session) owns(characterID string) bool {
	for _, id := range s.Characters {
		if id == characterID {
			return true
		}
	}
	return false
}

func (s *Session) dropCharacter(characterID string) {
	for i, id := range s.Characters {
		if id == characterID {
			s.Characters = append(s.Characters[:i], s.Characters[i+1:]...)
			return
		}
	}
}

// SessionRegistry maps network identities to sessions.
type SessionRegistry struct {
	byAddress map[string]*Session
	byID      map[string]*Session
	order     []string
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		byAddress: make(map[string]*Session),
		byID:      make(map[string]*Session),
	}
}

func (r *SessionRegistry) ByAddress(address string) (*Session, bool) {
	s, ok := r.byAddress[address]
	return s, ok
}

func (r *SessionRegistry) ByID(id string) (*Session, bool) {
	s, ok := r.byID[id]
	return s, ok
}

func (r *SessionRegistry) add(s *Session) {
	r.byAddress[s.Address] = s
	r.byID[s.ID] = s
	r.order = append(r.order, s.ID)
}

func (r *SessionRegistry) remove(id string) {
	s, ok := r.byID[id]
	if !ok {
		return
	}
	delete(r.byID, id)
	delete(r.byAddress, s.Address)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// All lists sessions in admission order.
func (r *SessionRegistry) All() []*Session {
	out := make([]*Session, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

func (r *SessionRegistry) Len() int { return len(r.order) }
