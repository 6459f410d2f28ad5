package app

import "encoding/json"

// Inbound actions. Teachers drive the lesson; students register and submit.
const (
	ActionSetState          = "SET_STATE"
	ActionSetSlide          = "SET_SLIDE"
	ActionRegisterActivity  = "REGISTER_ACTIVITY"
	ActionUnlockActivity    = "UNLOCK_ACTIVITY"
	ActionLockActivity      = "LOCK_ACTIVITY"
	ActionLockAllActivities = "LOCK_ALL_ACTIVITIES"
	ActionRevealAnswer      = "REVEAL_ANSWER"
	ActionGetReflections    = "GET_REFLECTIONS"
	ActionRequestDashboard  = "REQUEST_DASHBOARD"

	ActionRegister         = "REGISTER"
	ActionSubmitAnswer     = "SUBMIT_ANSWER"
	ActionSubmitReflection = "SUBMIT_REFLECTION"
	ActionGetState         = "GET_STATE"
)

// Outbound event types.
const (
	EventStateUpdate          = "STATE_UPDATE"
	EventSlideUpdate          = "SLIDE_UPDATE"
	EventActivityRegistered   = "ACTIVITY_REGISTERED"
	EventActivityUnlocked     = "ACTIVITY_UNLOCKED"
	EventActivityLocked       = "ACTIVITY_LOCKED"
	EventAllActivitiesLocked  = "ALL_ACTIVITIES_LOCKED"
	EventAnswerRevealed       = "ANSWER_REVEALED"
	EventRegistrationSuccess  = "REGISTRATION_SUCCESS"
	EventRegistrationError    = "REGISTRATION_ERROR"
	EventRegistrationRequired = "REGISTRATION_REQUIRED"
	EventAnswerReceived       = "ANSWER_RECEIVED"
	EventError                = "ERROR"
	EventDashboardUpdate      = "DASHBOARD_UPDATE"
	EventStudentJoined        = "STUDENT_JOINED"
	EventStudentLeft          = "STUDENT_LEFT"
	EventStudentResponded     = "STUDENT_RESPONDED"
	EventReflectionReceived   = "REFLECTION_RECEIVED"
	EventNewReflection        = "NEW_REFLECTION"
	EventReflectionsList      = "REFLECTIONS_LIST"
)

// Envelope is the inbound frame. Clients have historically sent either
// action/payload or type/data key pairs; both are accepted.
type Envelope struct {
	Action  string          `json:"action,omitempty"`
	Type    string          `json:"type,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Kind returns the declared action name regardless of which key carried it.
func (e Envelope) Kind() string {
	if e.Action != "" {
		return e.Action
	}
	return e.Type
}

// Body returns the payload bytes regardless of which key carried them.
func (e Envelope) Body() json.RawMessage {
	if len(e.Payload) > 0 {
		return e.Payload
	}
	return e.Data
}

// Event is the outbound frame.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type errorData struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func errorEvent(message string) Event {
	return Event{Type: EventError, Data: errorData{Message: message}}
}

// Closed payload shapes per inbound action. Unknown actions are rejected
// explicitly, missing required fields produce one ERROR frame.

type registerPayload struct {
	Name      string `json:"name"`
	Reconnect bool   `json:"reconnect"`
}

type submitAnswerPayload struct {
	ActivityID     string `json:"activityId" validate:"required"`
	Answer         *int   `json:"answer" validate:"required"`
	ResponseTimeMs int    `json:"responseTimeMs"`
}

type submitReflectionPayload struct {
	Topic   string `json:"topic" validate:"required"`
	Content string `json:"content" validate:"required"`
}

type setStatePayload struct {
	State string `json:"state" validate:"required"`
}

type setSlidePayload struct {
	Slide *int `json:"slide"`
	Block *int `json:"block"`
}

type registerActivityPayload struct {
	ActivityID      string   `json:"activityId" validate:"required"`
	Question        string   `json:"question" validate:"required"`
	Options         []string `json:"options" validate:"required,min=1"`
	CorrectIndex    int      `json:"correctIndex"`
	PercentageValue float64  `json:"percentageValue"`
	Type            string   `json:"type"`
	TimeLimitSec    int      `json:"timeLimitSec"`
	Title           string   `json:"title"`
	Content         string   `json:"content"`
	Reference       string   `json:"reference"`
}

type activityRefPayload struct {
	ActivityID string `json:"activityId" validate:"required"`
}

type lockActivityPayload struct {
	ActivityID string `json:"activityId"`
}
