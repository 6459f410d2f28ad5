package app

import (
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/nuevogironmmm-cell/SAPINECIAL-BACKEND/internal/domain"
)

// ClassService dispatches inbound frames by role and action, mutates the
// session aggregate and routes the resulting events back out. One instance
// serves all connections.
type ClassService struct {
	session  *ClassSession
	flusher  *Flusher
	log      *zap.Logger
	validate *validator.Validate
}

// NewClassService wires the dispatcher. flusher may be nil when persistence
// is disabled (tests).
func NewClassService(session *ClassSession, flusher *Flusher, log *zap.Logger) *ClassService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ClassService{
		session:  session,
		flusher:  flusher,
		log:      log,
		validate: validator.New(),
	}
}

// Session exposes the underlying aggregate for read-only endpoints (/state).
func (s *ClassService) Session() *ClassSession {
	return s.session
}

// Connect attaches a transport under a fresh connection id and pushes the
// current class state, mirroring what every client expects on open.
func (s *ClassService) Connect(role Role, t Transport) string {
	connID := s.session.Attach(role, t)
	s.log.Info("client connected", zap.String("role", string(role)), zap.String("conn", connID))
	s.send(connID, t, Event{Type: EventStateUpdate, Data: s.session.State()})
	return connID
}

// Disconnect releases a connection. A registered student flips to
// disconnected (record retained), teachers are told and the snapshot is
// flushed.
func (s *ClassService) Disconnect(connID string) {
	student, role, ok := s.session.Detach(connID)
	if !ok {
		return
	}
	s.log.Info("client disconnected", zap.String("role", string(role)), zap.String("conn", connID))
	if student == nil {
		return
	}
	s.toTeachers(Event{Type: EventStudentLeft, Data: map[string]any{
		"name":      student.Name,
		"sessionId": student.SessionID,
	}})
	s.pushDashboard()
	s.flush()
}

// HandleMessage processes one inbound frame from a connection. Malformed
// frames produce a single ERROR reply; the read loop is never torn down
// from here.
func (s *ClassService) HandleMessage(connID string, raw []byte) {
	role, ok := s.session.RoleOf(connID)
	if !ok {
		return
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		s.reply(connID, errorEvent("invalid JSON"))
		return
	}

	switch role {
	case RoleTeacher:
		s.handleTeacherAction(connID, env)
	case RoleStudent:
		s.handleStudentAction(connID, env)
	}
}

func (s *ClassService) handleTeacherAction(connID string, env Envelope) {
	switch env.Kind() {
	case ActionSetState:
		var p setStatePayload
		if !s.decode(connID, env.Body(), &p) {
			return
		}
		state := s.session.SetPhase(p.State)
		s.toEveryone(Event{Type: EventStateUpdate, Data: state})

	case ActionSetSlide:
		var p setSlidePayload
		if !s.decode(connID, env.Body(), &p) {
			return
		}
		state := s.session.SetSlide(p.Slide, p.Block)
		s.toEveryone(Event{Type: EventSlideUpdate, Data: map[string]any{
			"slide": state.SlideIndex,
			"block": state.BlockIndex,
		}})

	case ActionRegisterActivity:
		var p registerActivityPayload
		if !s.decode(connID, env.Body(), &p) {
			return
		}
		activity, err := s.session.RegisterActivity(domain.Activity{
			ID:              p.ActivityID,
			Question:        p.Question,
			Options:         p.Options,
			CorrectIndex:    p.CorrectIndex,
			PercentageValue: p.PercentageValue,
			Type:            domain.ActivityType(p.Type),
			TimeLimitSec:    p.TimeLimitSec,
			Title:           p.Title,
			Content:         p.Content,
			Reference:       p.Reference,
		})
		if err != nil {
			s.reply(connID, errorEvent(err.Error()))
			return
		}
		s.toTeachers(Event{Type: EventActivityRegistered, Data: activity})

	case ActionUnlockActivity:
		var p activityRefPayload
		if !s.decode(connID, env.Body(), &p) {
			return
		}
		activity, err := s.session.UnlockActivity(p.ActivityID)
		if err != nil {
			s.reply(connID, errorEvent(err.Error()))
			return
		}
		// Students must not see the answer key; teachers get the full definition.
		s.toAllStudents(Event{Type: EventActivityUnlocked, Data: studentActivityView(activity)})
		s.toTeachers(Event{Type: EventActivityUnlocked, Data: activity})
		s.pushDashboard()

	case ActionLockActivity:
		var p lockActivityPayload
		if !s.decode(connID, env.Body(), &p) {
			return
		}
		activity, err := s.session.LockActivity(p.ActivityID)
		if err != nil {
			s.reply(connID, errorEvent(err.Error()))
			return
		}
		s.toEveryone(Event{Type: EventActivityLocked, Data: map[string]any{
			"activityId": activity.ID,
		}})
		s.pushDashboard()

	case ActionLockAllActivities:
		closed := s.session.LockAllActivities()
		s.toEveryone(Event{Type: EventAllActivitiesLocked, Data: map[string]any{
			"closedCount": closed,
		}})
		s.pushDashboard()

	case ActionRevealAnswer:
		var p activityRefPayload
		if !s.decode(connID, env.Body(), &p) {
			return
		}
		activity, err := s.session.Activity(p.ActivityID)
		if err != nil {
			s.reply(connID, errorEvent(err.Error()))
			return
		}
		s.toEveryone(Event{Type: EventAnswerRevealed, Data: map[string]any{
			"activityId":   activity.ID,
			"correctIndex": activity.CorrectIndex,
		}})

	case ActionGetReflections:
		s.reply(connID, Event{Type: EventReflectionsList, Data: map[string]any{
			"students": s.session.Reflections(),
		}})

	case ActionRequestDashboard:
		s.reply(connID, Event{Type: EventDashboardUpdate, Data: s.session.Dashboard()})

	default:
		s.reply(connID, errorEvent(domain.ErrUnknownAction.Error()))
	}
}

func (s *ClassService) handleStudentAction(connID string, env Envelope) {
	kind := env.Kind()

	// Unknown actions are rejected outright, registered or not.
	switch kind {
	case ActionRegister, ActionSubmitAnswer, ActionSubmitReflection, ActionGetState:
	default:
		s.reply(connID, errorEvent(domain.ErrUnknownAction.Error()))
		return
	}

	// Everything but REGISTER requires an established identity.
	if kind != ActionRegister {
		if _, registered := s.session.StudentByConn(connID); !registered {
			s.reply(connID, Event{Type: EventRegistrationRequired, Data: errorData{
				Message: domain.ErrNotRegistered.Error(),
			}})
			return
		}
	}

	switch kind {
	case ActionRegister:
		s.handleRegister(connID, env)

	case ActionSubmitAnswer:
		var p submitAnswerPayload
		if !s.decode(connID, env.Body(), &p) {
			return
		}
		result, err := s.session.SubmitAnswer(connID, p.ActivityID, *p.Answer, p.ResponseTimeMs)
		if err != nil {
			s.reply(connID, errorEvent(err.Error()))
			return
		}
		s.reply(connID, Event{Type: EventAnswerReceived, Data: map[string]any{
			"activityId":            result.ActivityID,
			"correct":               result.Correct,
			"awardedPercentage":     result.AwardedPercentage,
			"accumulatedPercentage": result.AccumulatedPercentage,
			"classification":        result.Classification,
		}})
		s.toTeachers(Event{Type: EventStudentResponded, Data: map[string]any{
			"name":                  result.Student,
			"sessionId":             result.SessionID,
			"activityId":            result.ActivityID,
			"correct":               result.Correct,
			"accumulatedPercentage": result.AccumulatedPercentage,
		}})
		s.pushDashboard()
		s.flush()

	case ActionSubmitReflection:
		var p submitReflectionPayload
		if !s.decode(connID, env.Body(), &p) {
			return
		}
		result, err := s.session.SubmitReflection(connID, p.Topic, p.Content)
		if err != nil {
			s.reply(connID, errorEvent(err.Error()))
			return
		}
		s.reply(connID, Event{Type: EventReflectionReceived, Data: result.Reflection})
		s.toTeachers(Event{Type: EventNewReflection, Data: map[string]any{
			"name":       result.Student,
			"sessionId":  result.SessionID,
			"reflection": result.Reflection,
		}})
		s.flush()

	case ActionGetState:
		s.reply(connID, Event{Type: EventStateUpdate, Data: s.session.State()})
	}
}

func (s *ClassService) handleRegister(connID string, env Envelope) {
	var p registerPayload
	if err := json.Unmarshal(env.Body(), &p); err != nil {
		s.reply(connID, Event{Type: EventRegistrationError, Data: errorData{Message: "invalid payload"}})
		return
	}
	result, orphaned, err := s.session.RegisterOrReconnect(connID, p.Name, p.Reconnect)
	if err != nil {
		s.reply(connID, Event{Type: EventRegistrationError, Data: errorData{Message: err.Error()}})
		return
	}
	if orphaned != nil {
		_ = orphaned.Close()
	}
	s.reply(connID, Event{Type: EventRegistrationSuccess, Data: map[string]any{
		"sessionId":             result.SessionID,
		"name":                  result.Name,
		"accumulatedPercentage": result.AccumulatedPercentage,
		"reconnected":           result.Outcome == RegistrationReconnect,
	}})
	s.toTeachers(Event{Type: EventStudentJoined, Data: map[string]any{
		"name":        result.Name,
		"sessionId":   result.SessionID,
		"reconnected": result.Outcome == RegistrationReconnect,
	}})
	s.pushDashboard()
	s.log.Info("student registered",
		zap.String("name", result.Name),
		zap.String("session", result.SessionID),
		zap.String("outcome", string(result.Outcome)))
}

// decode unmarshals and validates an action payload, replying with one
// ERROR frame on failure.
func (s *ClassService) decode(connID string, body json.RawMessage, dst any) bool {
	if len(body) == 0 {
		body = []byte("{}")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		s.reply(connID, errorEvent("invalid payload"))
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			s.reply(connID, errorEvent("invalid payload"))
		} else {
			s.reply(connID, errorEvent("missing required field"))
		}
		return false
	}
	return true
}

func (s *ClassService) flush() {
	if s.flusher == nil {
		return
	}
	s.flusher.Flush(s.session.Snapshot())
}

// studentActivityView strips the answer key from an activity before it is
// broadcast to the room.
func studentActivityView(a domain.Activity) map[string]any {
	view := map[string]any{
		"id":              a.ID,
		"question":        a.Question,
		"options":         a.Options,
		"percentageValue": a.PercentageValue,
		"type":            a.Type,
		"status":          a.Status,
	}
	if a.TimeLimitSec > 0 {
		view["timeLimitSec"] = a.TimeLimitSec
	}
	if a.Title != "" {
		view["title"] = a.Title
	}
	if a.Content != "" {
		view["content"] = a.Content
	}
	if a.Reference != "" {
		view["reference"] = a.Reference
	}
	return view
}
