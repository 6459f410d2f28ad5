package app

import "go.uber.org/zap"

// Broadcast router: every send is attempted independently per recipient and
// delivery is at-most-once. A failed send means the transport is dead; the
// recipient is disconnected through the normal path so teachers see the
// departure. Transport implementations buffer writes and fail fast, so one
// slow or broken client never blocks the rest.

// toAllStudents fans an event out to every live student connection.
func (s *ClassService) toAllStudents(ev Event) {
	s.deliver(s.session.studentTransports(), ev)
}

// toTeachers fans an event out to every teacher connection.
func (s *ClassService) toTeachers(ev Event) {
	s.deliver(s.session.teacherTransports(), ev)
}

// toEveryone sends to students and teachers alike.
func (s *ClassService) toEveryone(ev Event) {
	s.deliver(s.session.allTransports(), ev)
}

// ToSession targets the single live connection of one student session.
func (s *ClassService) ToSession(sessionID string, ev Event) bool {
	ref, ok := s.session.sessionTransport(sessionID)
	if !ok {
		return false
	}
	s.send(ref.id, ref.transport, ev)
	return true
}

// reply sends to one connection by id.
func (s *ClassService) reply(connID string, ev Event) {
	if ref, ok := s.session.connTransport(connID); ok {
		s.send(ref.id, ref.transport, ev)
	}
}

// pushDashboard refreshes every teacher's dashboard view.
func (s *ClassService) pushDashboard() {
	s.toTeachers(Event{Type: EventDashboardUpdate, Data: s.session.Dashboard()})
}

func (s *ClassService) deliver(refs []connRef, ev Event) {
	for _, ref := range refs {
		s.send(ref.id, ref.transport, ev)
	}
}

// send attempts one delivery. Failure prunes the connection: the transport
// is closed and the owning student (if any) is marked disconnected.
func (s *ClassService) send(connID string, t Transport, ev Event) {
	if err := t.Send(ev); err != nil {
		s.log.Debug("send failed, pruning connection",
			zap.String("conn", connID),
			zap.String("event", ev.Type),
			zap.Error(err))
		_ = t.Close()
		s.Disconnect(connID)
	}
}
