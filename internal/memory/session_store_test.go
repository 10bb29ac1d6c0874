package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/strivio/contesthub-backend/internal/model"
)

// TestFrozenSessionRefusesWrites freezes a session and then drives every
// write path straight at the store, as a racing autosave would after losing
// the finalize claim. The frozen row must stay byte-for-byte what scoring
// saw.
func TestFrozenSessionRefusesWrites(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()

	contestID := uuid.New()
	questionID := uuid.New()
	problemID := uuid.New()

	session := &model.LiveSession{
		ID:            uuid.New(),
		ContestID:     contestID,
		ParticipantID: 1,
		Answers: map[uuid.UUID]model.AnswerSlot{
			questionID: {SelectedOptions: []string{"A"}},
		},
		Code:            map[uuid.UUID]model.CodeSlot{},
		CurrentQuestion: 3,
		StartedAt:       time.Now().Add(-20 * time.Minute),
	}
	if err := store.CreateSession(ctx, session); err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := store.MarkSubmitted(ctx, contestID, 1, 4, 0, 4, time.Now()); err != nil {
		t.Fatalf("mark submitted: %v", err)
	}

	writes := map[string]error{
		"save answer": store.SaveAnswer(ctx, contestID, 1, questionID, model.AnswerSlot{SelectedOptions: []string{"B"}}),
		"save code":   store.SaveCode(ctx, contestID, 1, problemID, model.CodeSlot{Code: "print(1)", Language: "python"}),
		"navigation":  store.UpdateNavigation(ctx, contestID, 1, 7, 2),
		"counter":     store.IncrementCounter(ctx, contestID, 1, model.ProctorTabSwitch),
		"resubmit":    store.MarkSubmitted(ctx, contestID, 1, 0, 0, 0, time.Now()),
	}
	for name, err := range writes {
		if !errors.Is(err, model.ErrNotFound) {
			t.Fatalf("%s on frozen session: err = %v, want ErrNotFound", name, err)
		}
	}

	got, err := store.GetSession(ctx, contestID, 1)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if slot := got.Answers[questionID]; len(slot.SelectedOptions) != 1 || slot.SelectedOptions[0] != "A" {
		t.Fatalf("answer slot mutated after freeze: %+v", slot)
	}
	if len(got.Code) != 0 {
		t.Fatalf("code slot written after freeze: %+v", got.Code)
	}
	if got.CurrentQuestion != 3 || got.TabSwitches != 0 {
		t.Fatalf("position/counters mutated after freeze: question=%d tabSwitches=%d", got.CurrentQuestion, got.TabSwitches)
	}
	if got.TotalMarks == nil || *got.TotalMarks != 4 {
		t.Fatalf("frozen marks changed: %+v", got.TotalMarks)
	}
}
