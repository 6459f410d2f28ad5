package app

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nuevogironmmm-cell/SAPINECIAL-BACKEND/internal/domain"
)

// ClassSession is the single shared aggregate for one running class: the
// participant registry, the activity catalog and the lesson state pointer.
// Every mutation goes through its mutex; methods never perform network I/O
// while holding it. Exactly one instance exists per process, built
// explicitly by the CLI (no package-level state).
type ClassSession struct {
	mu    sync.Mutex
	now   func() time.Time
	newID func() string

	state      domain.ClassState
	activities map[string]*domain.Activity

	students  map[string]*domain.Student // sessionID -> record
	nameIndex map[string]string          // folded name -> sessionID

	conns         map[string]*connEntry // connID -> live connection
	connBySession map[string]string     // sessionID -> connID
	sessionByConn map[string]string     // connID -> sessionID

	seed domain.Snapshot
}

type connEntry struct {
	role      Role
	transport Transport
}

// connRef is a lock-free copy of a live connection used by the broadcast
// router after the session lock has been released.
type connRef struct {
	id        string
	transport Transport
}

// NewClassSession builds an empty session in the LOBBY phase.
func NewClassSession() *ClassSession {
	return NewClassSessionWithClock(time.Now)
}

// NewClassSessionWithClock allows deterministic timestamps in tests.
func NewClassSessionWithClock(now func() time.Time) *ClassSession {
	return &ClassSession{
		now:           now,
		newID:         uuid.NewString,
		state:         domain.ClassState{Phase: domain.PhaseLobby},
		activities:    make(map[string]*domain.Activity),
		students:      make(map[string]*domain.Student),
		nameIndex:     make(map[string]string),
		conns:         make(map[string]*connEntry),
		connBySession: make(map[string]string),
		sessionByConn: make(map[string]string),
		seed:          domain.EmptySnapshot(),
	}
}

// SeedFromSnapshot installs a previously persisted snapshot. Fresh
// registrations matching a seeded name (case-insensitive) start with the
// persisted progress instead of zero. Called once at startup, before any
// connection is accepted.
func (s *ClassSession) SeedFromSnapshot(snap domain.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap.Students == nil {
		snap.Students = make(map[string]domain.StudentSnapshot)
	}
	s.seed = snap
}

// Attach registers a live connection under a fresh opaque connection id.
// Teacher connections participate in broadcasts immediately; student
// connections stay anonymous until a successful REGISTER.
func (s *ClassSession) Attach(role Role, t Transport) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.newID()
	s.conns[id] = &connEntry{role: role, transport: t}
	return id
}

// RoleOf returns the role a connection was attached with.
func (s *ClassSession) RoleOf(connID string) (Role, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.conns[connID]
	if !ok {
		return "", false
	}
	return entry.role, true
}

// ConnectionCount reports how many transports are currently attached.
func (s *ClassSession) ConnectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// State returns a copy of the current lesson state.
func (s *ClassSession) State() domain.ClassState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetPhase moves the lesson to a new phase and returns the updated state.
func (s *ClassSession) SetPhase(phase string) domain.ClassState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if phase != "" {
		s.state.Phase = phase
	}
	return s.state
}

// SetSlide moves the slide/block pointer. Nil arguments leave the
// corresponding index untouched.
func (s *ClassSession) SetSlide(slide, block *int) domain.ClassState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slide != nil {
		s.state.SlideIndex = *slide
	}
	if block != nil {
		s.state.BlockIndex = *block
	}
	return s.state
}

// Snapshot builds the persistence view of every known student, including
// disconnected ones. Keys are the student names as registered.
func (s *ClassSession) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := domain.Snapshot{
		Students:    make(map[string]domain.StudentSnapshot, len(s.students)),
		LastUpdated: s.now(),
	}
	for _, st := range s.students {
		snap.Students[st.Name] = domain.SnapshotStudent(st)
	}
	return snap
}

// transports returns lock-free copies of the live connections matching the
// filter, for the broadcast router to iterate without holding the lock.
func (s *ClassSession) transports(filter func(id string, e *connEntry) bool) []connRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	refs := make([]connRef, 0, len(s.conns))
	for id, entry := range s.conns {
		if filter == nil || filter(id, entry) {
			refs = append(refs, connRef{id: id, transport: entry.transport})
		}
	}
	return refs
}

func (s *ClassSession) studentTransports() []connRef {
	return s.transports(func(_ string, e *connEntry) bool { return e.role == RoleStudent })
}

func (s *ClassSession) teacherTransports() []connRef {
	return s.transports(func(_ string, e *connEntry) bool { return e.role == RoleTeacher })
}

func (s *ClassSession) allTransports() []connRef {
	return s.transports(nil)
}

// connTransport resolves one live connection by id.
func (s *ClassSession) connTransport(connID string) (connRef, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.conns[connID]
	if !ok {
		return connRef{}, false
	}
	return connRef{id: connID, transport: entry.transport}, true
}

// sessionTransport resolves the live connection for one student session.
func (s *ClassSession) sessionTransport(sessionID string) (connRef, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	connID, ok := s.connBySession[sessionID]
	if !ok {
		return connRef{}, false
	}
	entry, ok := s.conns[connID]
	if !ok {
		return connRef{}, false
	}
	return connRef{id: connID, transport: entry.transport}, true
}
