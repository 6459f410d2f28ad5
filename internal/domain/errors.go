package domain

import "errors"

var (
	// ErrInvalidName is returned when a registration name is outside the
	// accepted 3-50 character range after trimming.
	ErrInvalidName = errors.New("name must be between 3 and 50 characters")
	// ErrNameTaken is returned when a non-disconnected student already holds the name.
	ErrNameTaken = errors.New("name already in use")
	// ErrStudentNotFound indicates no record matches the given session or connection.
	ErrStudentNotFound = errors.New("student not found")
	// ErrNotRegistered is returned when a student acts before registering.
	ErrNotRegistered = errors.New("registration required")
	// ErrActivityNotFound indicates an unknown activity id.
	ErrActivityNotFound = errors.New("activity not found")
	// ErrDuplicateActivity indicates a catalog id collision on registration.
	ErrDuplicateActivity = errors.New("activity id already registered")
	// ErrInvalidActivity indicates a definition with no options or an
	// out-of-range correct index.
	ErrInvalidActivity = errors.New("invalid activity definition")
	// ErrActivityNotActive is returned on submissions to a locked or closed activity.
	ErrActivityNotActive = errors.New("activity is not active")
	// ErrAlreadyAnswered is returned on a second submission to the same activity.
	ErrAlreadyAnswered = errors.New("activity already answered")
	// ErrUnknownAction is returned for actions outside the protocol.
	ErrUnknownAction = errors.New("unknown action")
)
