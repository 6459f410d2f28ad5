package app

import (
	"sort"

	"github.com/nuevogironmmm-cell/SAPINECIAL-BACKEND/internal/domain"
)

const maxAccumulated = 100

// AnswerResult is the scored outcome returned to the submitting student.
type AnswerResult struct {
	ActivityID            string
	Student               string
	SessionID             string
	Correct               bool
	AwardedPercentage     float64
	AccumulatedPercentage float64
	Classification        domain.Classification
}

// ReflectionResult acknowledges a stored reflection.
type ReflectionResult struct {
	Reflection domain.Reflection
	Student    string
	SessionID  string
}

// StudentReflections groups one student's reflections for the teacher view.
type StudentReflections struct {
	Name        string              `json:"name"`
	SessionID   string              `json:"sessionId"`
	Reflections []domain.Reflection `json:"reflections"`
}

// evaluateAnswer checks a submission against the activity key.
// Correctness is exact index equality; the award is the activity's
// percentage value, zero otherwise.
func evaluateAnswer(a *domain.Activity, answer int) (bool, float64) {
	if answer == a.CorrectIndex {
		return true, a.PercentageValue
	}
	return false, 0
}

// SubmitAnswer scores one submission for the student bound to connID.
// Preconditions enforced here, not in the evaluator: the activity must be
// active and the student must not have answered it before. A correct answer
// accumulates the activity's percentage, clamped at 100; either way the
// student becomes responded and the response record is written once.
func (s *ClassSession) SubmitAnswer(connID, activityID string, answer, responseTimeMs int) (AnswerResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessionID, ok := s.sessionByConn[connID]
	if !ok {
		return AnswerResult{}, domain.ErrNotRegistered
	}
	student := s.students[sessionID]

	activity, ok := s.activities[activityID]
	if !ok {
		return AnswerResult{}, domain.ErrActivityNotFound
	}
	if activity.Status != domain.ActivityActive {
		return AnswerResult{}, domain.ErrActivityNotActive
	}
	if _, answered := student.Responses[activityID]; answered {
		return AnswerResult{}, domain.ErrAlreadyAnswered
	}

	correct, awarded := evaluateAnswer(activity, answer)
	now := s.now()
	student.Responses[activityID] = domain.Response{
		Answer:             answer,
		Correct:            correct,
		AwardedPercentage:  awarded,
		Timestamp:          now,
		ResponseTimeMillis: responseTimeMs,
	}
	if correct {
		student.AccumulatedPercentage += awarded
		if student.AccumulatedPercentage > maxAccumulated {
			student.AccumulatedPercentage = maxAccumulated
		}
	}
	student.Status = domain.StatusResponded
	student.LastActivityAt = now

	return AnswerResult{
		ActivityID:            activityID,
		Student:               student.Name,
		SessionID:             student.SessionID,
		Correct:               correct,
		AwardedPercentage:     awarded,
		AccumulatedPercentage: student.AccumulatedPercentage,
		Classification:        domain.Classify(student.AccumulatedPercentage),
	}, nil
}

// SubmitReflection appends a free-text reflection to the student's record.
func (s *ClassSession) SubmitReflection(connID, topic, content string) (ReflectionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessionID, ok := s.sessionByConn[connID]
	if !ok {
		return ReflectionResult{}, domain.ErrNotRegistered
	}
	student := s.students[sessionID]

	now := s.now()
	reflection := domain.Reflection{
		ID:        s.newID(),
		Topic:     topic,
		Content:   content,
		Timestamp: now,
	}
	student.Reflections = append(student.Reflections, reflection)
	student.LastActivityAt = now

	return ReflectionResult{
		Reflection: reflection,
		Student:    student.Name,
		SessionID:  student.SessionID,
	}, nil
}

// Reflections collects every student's reflections, sorted by name.
func (s *ClassSession) Reflections() []StudentReflections {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]StudentReflections, 0, len(s.students))
	for _, st := range s.students {
		if len(st.Reflections) == 0 {
			continue
		}
		reflections := make([]domain.Reflection, len(st.Reflections))
		copy(reflections, st.Reflections)
		out = append(out, StudentReflections{
			Name:        st.Name,
			SessionID:   st.SessionID,
			Reflections: reflections,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
