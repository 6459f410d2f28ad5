package app

// Role identifies which side of the classroom a connection belongs to.
type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// ValidRole reports whether the role is one the protocol accepts.
func ValidRole(r Role) bool {
	return r == RoleTeacher || r == RoleStudent
}

// Transport is one live client connection as seen by the session core.
// Send must not block on network I/O (implementations hand the frame to a
// writer goroutine); a returned error marks the transport dead and the
// caller disconnects it. Implementations are owned by the transport layer,
// the core only holds references.
type Transport interface {
	Send(ev Event) error
	Close() error
}
