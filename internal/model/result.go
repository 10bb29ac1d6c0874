package model

import (
	"time"

	"github.com/google/uuid"
)

// ParticipantResult is one participant's finalized outcome inside a
// contest's ResultSet. Rewritten wholesale on every recompute because rank
// and percentile depend on the full population.
type ParticipantResult struct {
	ContestID         uuid.UUID `json:"contest_id"`
	ParticipantID     int       `json:"participant_id"`
	MCQMarks          float64   `json:"mcq_marks"`
	CodingMarks       float64   `json:"coding_marks"`
	TotalMarks        float64   `json:"total_marks"`
	Rank              int       `json:"rank"`
	Percentile        float64   `json:"percentile"`
	TimeTakenSeconds  float64   `json:"time_taken_seconds"`
	Correct           int       `json:"correct"`
	Wrong             int       `json:"wrong"`
	Unanswered        int       `json:"unanswered"`
	ProblemsAttempted int       `json:"problems_attempted"`
	FinalizedAt       time.Time `json:"finalized_at"`
}

// AggregateStats summarizes the total marks of a contest's population.
type AggregateStats struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Max   float64 `json:"max"`
	Min   float64 `json:"min"`
}

// ResultSet is the ranked, contest-scoped collection of all finalized
// results. Published gates visibility to participants; the owning educator
// always sees it.
type ResultSet struct {
	ContestID    uuid.UUID           `json:"contest_id"`
	Results      []ParticipantResult `json:"results"`
	Stats        AggregateStats      `json:"stats"`
	Published    bool                `json:"published"`
	RecomputedAt time.Time           `json:"recomputed_at"`
}

// Entry returns the result row for one participant, or nil.
func (rs *ResultSet) Entry(participantID int) *ParticipantResult {
	for i := range rs.Results {
		if rs.Results[i].ParticipantID == participantID {
			return &rs.Results[i]
		}
	}
	return nil
}
