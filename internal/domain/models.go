package domain

import "time"

// StudentStatus tracks where a student stands relative to the current activity.
type StudentStatus string

const (
	StatusConnected    StudentStatus = "connected"
	StatusResponded    StudentStatus = "responded"
	StatusNotResponded StudentStatus = "notResponded"
	StatusDisconnected StudentStatus = "disconnected"
)

// Student is the registry-owned record for one named participant.
// The live transport is tracked by the registry, never stored here.
type Student struct {
	Name                  string
	SessionID             string
	Status                StudentStatus
	AccumulatedPercentage float64
	Responses             map[string]Response
	Reflections           []Reflection
	ConnectedAt           time.Time
	LastActivityAt        time.Time
}

// Response is a student's answer to one activity. Immutable once written:
// a student gets exactly one submission per activity.
type Response struct {
	Answer             int       `json:"answer"`
	Correct            bool      `json:"correct"`
	AwardedPercentage  float64   `json:"awardedPercentage"`
	Timestamp          time.Time `json:"timestamp"`
	ResponseTimeMillis int       `json:"responseTimeMs"`
}

// Reflection is a free-text submission tied to a lesson topic.
type Reflection struct {
	ID        string    `json:"id"`
	Topic     string    `json:"topic"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ActivityType distinguishes how an activity is rendered client-side.
// Scoring treats them all as index-vs-correctIndex equality.
type ActivityType string

const (
	ActivityMultipleChoice ActivityType = "multipleChoice"
	ActivityTrueFalse      ActivityType = "trueFalse"
	ActivityShortAnswer    ActivityType = "shortAnswer"
)

// ActivityStatus is the lifecycle state of an activity.
// locked -> active -> closed; closed is terminal.
type ActivityStatus string

const (
	ActivityLocked ActivityStatus = "locked"
	ActivityActive ActivityStatus = "active"
	ActivityClosed ActivityStatus = "closed"
)

// Activity is one gradable exercise in the catalog.
type Activity struct {
	ID              string         `json:"id"`
	Question        string         `json:"question"`
	Options         []string       `json:"options"`
	CorrectIndex    int            `json:"correctIndex"`
	PercentageValue float64        `json:"percentageValue"`
	Type            ActivityType   `json:"type"`
	Status          ActivityStatus `json:"status"`
	TimeLimitSec    int            `json:"timeLimitSec,omitempty"`
	Title           string         `json:"title,omitempty"`
	Content         string         `json:"content,omitempty"`
	Reference       string         `json:"reference,omitempty"`
}

// PhaseLobby is the pre-lesson phase every class starts in.
const PhaseLobby = "LOBBY"

// ClassState is the shared lesson pointer: phase, slide position and the
// currently unlocked activity (empty when none).
type ClassState struct {
	Phase             string `json:"state"`
	SlideIndex        int    `json:"slide"`
	BlockIndex        int    `json:"block"`
	CurrentActivityID string `json:"activity,omitempty"`
}
