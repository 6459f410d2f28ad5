package app

import "github.com/nuevogironmmm-cell/SAPINECIAL-BACKEND/internal/domain"

// RegisterActivity adds a definition to the catalog in the locked state.
func (s *ClassSession) RegisterActivity(def domain.Activity) (domain.Activity, error) {
	if def.ID == "" || len(def.Options) == 0 ||
		def.CorrectIndex < 0 || def.CorrectIndex >= len(def.Options) {
		return domain.Activity{}, domain.ErrInvalidActivity
	}
	if def.Type == "" {
		def.Type = domain.ActivityMultipleChoice
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.activities[def.ID]; exists {
		return domain.Activity{}, domain.ErrDuplicateActivity
	}
	def.Status = domain.ActivityLocked
	stored := def
	s.activities[def.ID] = &stored
	return def, nil
}

// Activity returns a copy of one catalog entry.
func (s *ClassSession) Activity(id string) (domain.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.activities[id]
	if !ok {
		return domain.Activity{}, domain.ErrActivityNotFound
	}
	return *a, nil
}

// UnlockActivity activates an activity, makes it the session's current one
// and resets every present student to notResponded. Closed activities stay
// closed. Unlocking a second activity does not close the previous one; only
// the current pointer moves.
func (s *ClassSession) UnlockActivity(id string) (domain.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.activities[id]
	if !ok {
		return domain.Activity{}, domain.ErrActivityNotFound
	}
	if a.Status == domain.ActivityClosed {
		return domain.Activity{}, domain.ErrActivityNotActive
	}
	a.Status = domain.ActivityActive
	s.state.CurrentActivityID = a.ID
	s.resetAllForNewActivityLocked()
	return *a, nil
}

// LockActivity closes one activity. An empty id targets the session's
// current activity. Clears the current pointer when it was pointing here.
func (s *ClassSession) LockActivity(id string) (domain.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == "" {
		id = s.state.CurrentActivityID
	}
	a, ok := s.activities[id]
	if !ok {
		return domain.Activity{}, domain.ErrActivityNotFound
	}
	a.Status = domain.ActivityClosed
	if s.state.CurrentActivityID == a.ID {
		s.state.CurrentActivityID = ""
	}
	return *a, nil
}

// LockAllActivities closes every active activity and clears the current
// pointer, returning how many were closed.
func (s *ClassSession) LockAllActivities() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	closed := 0
	for _, a := range s.activities {
		if a.Status == domain.ActivityActive {
			a.Status = domain.ActivityClosed
			closed++
		}
	}
	s.state.CurrentActivityID = ""
	return closed
}
