package memory

import "campuslife/pkg/domain"

// Snapshot is the full portable state of a store. Slices preserve insertion
// order so a restored store lists entities the way the original did.
type Snapshot struct {
	Associations []domain.Association `json:"associations"`
	Events       []domain.Event       `json:"events"`
	Users        []domain.User        `json:"users"`
	NextUID      int64                `json:"nextUid"`
}

// ExportState returns a deep copy of the current state.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Associations: s.listAssociationsLocked(),
		Events:       s.listEventsLocked(),
		Users:        s.listUsersLocked(),
		NextUID:      s.nextUID,
	}
}

// ImportState replaces the store contents with the snapshot and announces
// the new collections to all-listeners.
func (s *Store) ImportState(snap Snapshot) {
	s.mu.Lock()
	s.associations = newCollection[domain.Association]()
	for _, a := range snap.Associations {
		s.associations.insert(a.ID, a.Clone())
	}
	s.events = newCollection[domain.Event]()
	for _, e := range snap.Events {
		s.events.insert(e.ID, e.Clone())
	}
	s.users = newCollection[domain.User]()
	for _, u := range snap.Users {
		s.users.insert(u.ID, u.Clone())
	}
	s.nextUID = snap.NextUID
	associations := s.listAssociationsLocked()
	events := s.listEventsLocked()
	users := s.listUsersLocked()
	s.mu.Unlock()

	s.associationHub.BroadcastAll(associations)
	s.eventHub.BroadcastAll(events)
	s.userHub.BroadcastAll(users)
}
