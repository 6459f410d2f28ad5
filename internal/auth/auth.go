// Package auth validates the connection credentials: one shared teacher
// secret (compared by SHA-256 digest) and permissive student tokens.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"sync"

	"github.com/google/uuid"
)

const minStudentTokenLen = 4

// Validator checks presented credentials and tracks issued teacher session
// tokens. Safe for concurrent use.
type Validator struct {
	teacherHash string

	mu       sync.RWMutex
	sessions map[string]struct{}
}

// NewValidator hashes the configured teacher secret once at startup.
func NewValidator(teacherSecret string) *Validator {
	return &Validator{
		teacherHash: hashToken(teacherSecret),
		sessions:    make(map[string]struct{}),
	}
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ValidateTeacher accepts the raw shared secret or a previously issued
// session token. Digest comparison is constant-time.
func (v *Validator) ValidateTeacher(token string) bool {
	if token == "" {
		return false
	}
	presented := hashToken(token)
	if subtle.ConstantTimeCompare([]byte(presented), []byte(v.teacherHash)) == 1 {
		return true
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.sessions[token]
	return ok
}

// ValidateStudent trivially accepts any token of at least four characters.
func (v *Validator) ValidateStudent(token string) bool {
	return len(token) >= minStudentTokenLen
}

// IssueTeacherSession mints an opaque session token after a successful
// secret check. Tokens live for the process lifetime.
func (v *Validator) IssueTeacherSession() string {
	token := uuid.NewString()
	v.mu.Lock()
	v.sessions[token] = struct{}{}
	v.mu.Unlock()
	return token
}
