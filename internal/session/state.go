package session

// State is the session's undo record: at most one event id, the most
// recently created one. Remembering a new id replaces the previous one; there
// is no history.
type State struct {
	lastEventID string
	set         bool
}

// Remember records id as the last created event, replacing any previous id.
func (s *State) Remember(id string) {
	s.lastEventID = id
	s.set = true
}

// LastEventID returns the last created event id, if any.
func (s *State) LastEventID() (string, bool) {
	return s.lastEventID, s.set
}

// Take returns the last created event id and clears the slot.
func (s *State) Take() (string, bool) {
	id, ok := s.lastEventID, s.set
	s.lastEventID, s.set = "", false
	return id, ok
}
