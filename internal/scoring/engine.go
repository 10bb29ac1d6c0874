// Package scoring computes deterministic marks from an answer snapshot and
// an answer-key snapshot. It is pure: no I/O, no clock, no store access.
package scoring

import (
	"github.com/strivio/contesthub-backend/internal/model"
)

// Policy holds the explicit scoring configuration. FloorTotalAtZero decides
// whether negative marking may drive the total below zero; it is always set
// from application config, never decided at a call site.
type Policy struct {
	FloorTotalAtZero bool
}

// Breakdown is the per-participant scoring outcome for one contest.
type Breakdown struct {
	MCQMarks          float64 `json:"mcq_marks"`
	CodingMarks       float64 `json:"coding_marks"`
	Total             float64 `json:"total"`
	Correct           int     `json:"correct"`
	Wrong             int     `json:"wrong"`
	Unanswered        int     `json:"unanswered"`
	ProblemsAttempted int     `json:"problems_attempted"`
}

// Engine scores finalized sessions against answer keys.
type Engine struct {
	policy Policy
}

// NewEngine creates an Engine with the given policy.
func NewEngine(policy Policy) *Engine {
	return &Engine{policy: policy}
}

// Score grades a session snapshot against a key snapshot.
//
// MCQ rules: an unanswered question scores 0 and counts as unanswered. A
// single-answer question is correct iff exactly the key's option was
// selected. A multi-answer question is correct iff the selected set equals
// the key's correct set exactly; subsets and supersets score as wrong.
// Correct awards +Marks, wrong awards -NegativeMarks.
//
// Coding problems: each attempted problem is counted; marks stay at the
// zero placeholder because verdicts arrive asynchronously from the judge.
func (e *Engine) Score(session *model.LiveSession, key *model.AnswerKey) Breakdown {
	var b Breakdown

	for _, qk := range key.Questions {
		slot, ok := session.Answers[qk.QuestionID]
		if !ok || len(slot.SelectedOptions) == 0 {
			b.Unanswered++
			continue
		}

		var correct bool
		if qk.MultiSelect {
			correct = setsEqual(slot.SelectedOptions, qk.CorrectOptions)
		} else {
			correct = len(slot.SelectedOptions) == 1 &&
				len(qk.CorrectOptions) == 1 &&
				slot.SelectedOptions[0] == qk.CorrectOptions[0]
		}

		if correct {
			b.Correct++
			b.MCQMarks += qk.Marks
		} else {
			b.Wrong++
			b.MCQMarks -= qk.NegativeMarks
		}
	}

	for _, pid := range key.ProblemIDs {
		if slot, ok := session.Code[pid]; ok && slot.Code != "" {
			b.ProblemsAttempted++
		}
	}

	// CodingMarks is a placeholder until the judge verdict path fills it in.
	b.Total = b.MCQMarks + b.CodingMarks
	if e.policy.FloorTotalAtZero && b.Total < 0 {
		b.Total = 0
	}

	return b
}

// setsEqual compares two option-ID slices as sets.
func setsEqual(a, b []string) bool {
	as := make(map[string]struct{}, len(a))
	for _, v := range a {
		as[v] = struct{}{}
	}
	bs := make(map[string]struct{}, len(b))
	for _, v := range b {
		bs[v] = struct{}{}
	}
	if len(as) != len(bs) {
		return false
	}
	for v := range as {
		if _, ok := bs[v]; !ok {
			return false
		}
	}
	return true
}
