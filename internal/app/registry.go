package app

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/nuevogironmmm-cell/SAPINECIAL-BACKEND/internal/domain"
)

const (
	minNameLen = 3
	maxNameLen = 50
)

// RegistrationOutcome distinguishes a fresh registration from a reconnect.
type RegistrationOutcome string

const (
	RegistrationNew       RegistrationOutcome = "OK"
	RegistrationReconnect RegistrationOutcome = "RECONNECT"
)

// RegistrationResult is what the registering student gets back.
type RegistrationResult struct {
	SessionID             string
	Name                  string
	AccumulatedPercentage float64
	Outcome               RegistrationOutcome
}

// StudentSummary is the per-student line of a dashboard push.
type StudentSummary struct {
	Name                  string               `json:"name"`
	SessionID             string               `json:"sessionId"`
	Status                domain.StudentStatus `json:"status"`
	AccumulatedPercentage float64              `json:"accumulatedPercentage"`
	Tier                  domain.Tier          `json:"tier"`
	HasResponded          bool                 `json:"hasResponded"`
}

// DashboardSummary aggregates the class for teacher dashboards.
type DashboardSummary struct {
	Students          []StudentSummary `json:"students"`
	ConnectedCount    int              `json:"connectedCount"`
	RespondedCount    int              `json:"respondedCount"`
	NotRespondedCount int              `json:"notRespondedCount"`
	ResponseRate      float64          `json:"responseRate"`
	CurrentActivityID string           `json:"currentActivityId,omitempty"`
}

func foldName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// RegisterOrReconnect binds a connection to a named student record.
// The name is trimmed and compared case-insensitively. A disconnected record
// matching the name is reactivated with its sessionId and score intact. A
// live record with the same name rejects the attempt unless the reconnect
// flag is set, in which case the new connection wins the transport slot and
// the prior one is orphaned. Fresh registrations are seeded from the loaded
// snapshot when the name matches.
func (s *ClassSession) RegisterOrReconnect(connID, name string, reconnect bool) (RegistrationResult, Transport, error) {
	trimmed := strings.TrimSpace(name)
	// Bounds are in characters, not bytes: accented names count per rune.
	if n := utf8.RuneCountInString(trimmed); n < minNameLen || n > maxNameLen {
		return RegistrationResult{}, nil, domain.ErrInvalidName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.conns[connID]
	if !ok || entry.role != RoleStudent {
		return RegistrationResult{}, nil, domain.ErrStudentNotFound
	}

	now := s.now()
	folded := foldName(trimmed)

	if sessionID, exists := s.nameIndex[folded]; exists {
		student := s.students[sessionID]
		var orphaned Transport
		if student.Status != domain.StatusDisconnected {
			if !reconnect {
				return RegistrationResult{}, nil, domain.ErrNameTaken
			}
			// The new connection claims the slot; the stale one is cut loose.
			if oldConnID, live := s.connBySession[sessionID]; live && oldConnID != connID {
				if old, ok := s.conns[oldConnID]; ok {
					orphaned = old.transport
					delete(s.conns, oldConnID)
				}
				delete(s.sessionByConn, oldConnID)
			}
		}
		student.Status = domain.StatusConnected
		student.ConnectedAt = now
		student.LastActivityAt = now
		s.connBySession[sessionID] = connID
		s.sessionByConn[connID] = sessionID
		return RegistrationResult{
			SessionID:             student.SessionID,
			Name:                  student.Name,
			AccumulatedPercentage: student.AccumulatedPercentage,
			Outcome:               RegistrationReconnect,
		}, orphaned, nil
	}

	student := &domain.Student{
		Name:           trimmed,
		SessionID:      s.newID(),
		Status:         domain.StatusConnected,
		Responses:      make(map[string]domain.Response),
		ConnectedAt:    now,
		LastActivityAt: now,
	}
	for seededName, seeded := range s.seed.Students {
		if foldName(seededName) != folded {
			continue
		}
		student.AccumulatedPercentage = seeded.AccumulatedPercentage
		for id, r := range seeded.Responses {
			student.Responses[id] = r
		}
		student.Reflections = append(student.Reflections, seeded.Reflections...)
		break
	}

	s.students[student.SessionID] = student
	s.nameIndex[folded] = student.SessionID
	s.connBySession[student.SessionID] = connID
	s.sessionByConn[connID] = student.SessionID

	return RegistrationResult{
		SessionID:             student.SessionID,
		Name:                  student.Name,
		AccumulatedPercentage: student.AccumulatedPercentage,
		Outcome:               RegistrationNew,
	}, nil, nil
}

// Detach removes a connection. A registered student flips to disconnected
// with the record retained; the returned student (nil for teachers and
// anonymous connections) lets the caller notify teachers and flush.
func (s *ClassSession) Detach(connID string) (student *domain.Student, role Role, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.conns[connID]
	if !exists {
		return nil, "", false
	}
	delete(s.conns, connID)

	sessionID, registered := s.sessionByConn[connID]
	if !registered {
		return nil, entry.role, true
	}
	delete(s.sessionByConn, connID)
	delete(s.connBySession, sessionID)

	st := s.students[sessionID]
	st.Status = domain.StatusDisconnected
	st.LastActivityAt = s.now()
	copied := *st
	return &copied, entry.role, true
}

// StudentByConn resolves the registered student owning a connection.
// Returns a copy; mutations go through session methods.
func (s *ClassSession) StudentByConn(connID string) (domain.Student, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sessionID, ok := s.sessionByConn[connID]
	if !ok {
		return domain.Student{}, false
	}
	return *s.students[sessionID], true
}

// StudentBySession resolves a student record by its session id.
func (s *ClassSession) StudentBySession(sessionID string) (domain.Student, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.students[sessionID]
	if !ok {
		return domain.Student{}, false
	}
	return *st, true
}

// resetAllForNewActivityLocked flips every non-disconnected student to
// notResponded. Scores are untouched. Caller holds the lock.
func (s *ClassSession) resetAllForNewActivityLocked() {
	for _, st := range s.students {
		if st.Status != domain.StatusDisconnected {
			st.Status = domain.StatusNotResponded
		}
	}
}

// Dashboard summarizes the non-disconnected students against the current
// activity. Response rate is responded/connected, zero when nobody is here.
func (s *ClassSession) Dashboard() DashboardSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := DashboardSummary{CurrentActivityID: s.state.CurrentActivityID}
	for _, st := range s.students {
		if st.Status == domain.StatusDisconnected {
			continue
		}
		_, answered := st.Responses[s.state.CurrentActivityID]
		summary.Students = append(summary.Students, StudentSummary{
			Name:                  st.Name,
			SessionID:             st.SessionID,
			Status:                st.Status,
			AccumulatedPercentage: st.AccumulatedPercentage,
			Tier:                  domain.ClassifyPercentage(st.AccumulatedPercentage),
			HasResponded:          s.state.CurrentActivityID != "" && answered,
		})
		summary.ConnectedCount++
		if st.Status == domain.StatusResponded {
			summary.RespondedCount++
		} else {
			summary.NotRespondedCount++
		}
	}
	if summary.ConnectedCount > 0 {
		summary.ResponseRate = float64(summary.RespondedCount) / float64(summary.ConnectedCount)
	}
	sort.Slice(summary.Students, func(i, j int) bool {
		return summary.Students[i].Name < summary.Students[j].Name
	})
	return summary
}
