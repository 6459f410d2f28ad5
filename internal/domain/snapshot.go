package domain

import "time"

// StudentSnapshot is the persisted slice of a student record: accumulated
// progress only, keyed by name in the enclosing Snapshot. Transport state
// and session ids are deliberately not persisted.
type StudentSnapshot struct {
	AccumulatedPercentage float64             `json:"accumulated_percentage"`
	Responses             map[string]Response `json:"responses"`
	Reflections           []Reflection        `json:"reflections"`
}

// Snapshot is the whole-class persistence unit, rewritten wholesale on every
// disconnect and every scored answer.
type Snapshot struct {
	Students    map[string]StudentSnapshot `json:"students"`
	LastUpdated time.Time                  `json:"last_updated"`
}

// EmptySnapshot returns a snapshot with an initialized student map.
func EmptySnapshot() Snapshot {
	return Snapshot{Students: make(map[string]StudentSnapshot)}
}

// SnapshotStudent extracts the persistable fields from a live record.
func SnapshotStudent(s *Student) StudentSnapshot {
	responses := make(map[string]Response, len(s.Responses))
	for id, r := range s.Responses {
		responses[id] = r
	}
	reflections := make([]Reflection, len(s.Reflections))
	copy(reflections, s.Reflections)
	return StudentSnapshot{
		AccumulatedPercentage: s.AccumulatedPercentage,
		Responses:             responses,
		Reflections:           reflections,
	}
}
