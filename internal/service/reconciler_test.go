package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/strivio/contesthub-backend/internal/memory"
	"github.com/strivio/contesthub-backend/internal/model"
	"github.com/strivio/contesthub-backend/internal/scoring"
)

type finalizeFixture struct {
	contestID     uuid.UUID
	registrations *memory.RegistrationStore
	sessions      *memory.SessionStore
	results       *memory.ResultStore
	keys          *memory.KeySource
	reconciler    *SubmissionReconciler
}

// newFinalizeFixture seeds one contest with a two-question key and one
// STARTED participant whose session answers q1 correctly and q2 wrong.
func newFinalizeFixture(t *testing.T, participantIDs ...int) *finalizeFixture {
	t.Helper()

	contestID := uuid.New()
	q1 := uuid.New()
	q2 := uuid.New()

	keys := memory.NewKeySource()
	keys.Put(&model.AnswerKey{
		ContestID: contestID,
		Questions: []model.QuestionKey{
			{QuestionID: q1, CorrectOptions: []string{"A"}, Marks: 4, NegativeMarks: 1},
			{QuestionID: q2, CorrectOptions: []string{"B"}, Marks: 4, NegativeMarks: 1},
		},
	})

	registrations := memory.NewRegistrationStore()
	sessions := memory.NewSessionStore()
	results := memory.NewResultStore()

	started := time.Now().Add(-10 * time.Minute)
	for _, pid := range participantIDs {
		reg := &model.Registration{
			ID:            uuid.New(),
			ContestID:     contestID,
			ParticipantID: pid,
			Status:        model.RegistrationStarted,
			RegisteredAt:  started,
			StartedAt:     &started,
		}
		if err := registrations.CreateRegistration(context.Background(), reg); err != nil {
			t.Fatalf("seed registration: %v", err)
		}

		session := &model.LiveSession{
			ID:            uuid.New(),
			ContestID:     contestID,
			ParticipantID: pid,
			Answers: map[uuid.UUID]model.AnswerSlot{
				q1: {SelectedOptions: []string{"A"}},
				q2: {SelectedOptions: []string{"C"}},
			},
			Code:      map[uuid.UUID]model.CodeSlot{},
			StartedAt: started,
		}
		if err := sessions.CreateSession(context.Background(), session); err != nil {
			t.Fatalf("seed session: %v", err)
		}
	}

	log := zerolog.Nop()
	aggregator := NewResultAggregator(results, log)
	engine := scoring.NewEngine(scoring.Policy{FloorTotalAtZero: true})
	reconciler := NewSubmissionReconciler(registrations, sessions, keys, aggregator, engine, nil, log)

	return &finalizeFixture{
		contestID:     contestID,
		registrations: registrations,
		sessions:      sessions,
		results:       results,
		keys:          keys,
		reconciler:    reconciler,
	}
}

func TestFinalizeScoresAndFreezesSession(t *testing.T) {
	fx := newFinalizeFixture(t, 1)
	ctx := context.Background()

	result, err := fx.reconciler.Finalize(ctx, fx.contestID, 1, model.TriggerManual)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}

	// q1 correct (+4), q2 wrong (-1).
	if result.MCQMarks != 3 {
		t.Fatalf("mcq marks = %v, want 3", result.MCQMarks)
	}
	if result.TotalMarks != 3 {
		t.Fatalf("total marks = %v, want 3", result.TotalMarks)
	}
	if result.Correct != 1 || result.Wrong != 1 || result.Unanswered != 0 {
		t.Fatalf("counters = %d/%d/%d, want 1/1/0", result.Correct, result.Wrong, result.Unanswered)
	}
	if result.Rank != 1 {
		t.Fatalf("rank = %d, want 1", result.Rank)
	}

	reg, err := fx.registrations.GetRegistration(ctx, fx.contestID, 1)
	if err != nil {
		t.Fatalf("get registration: %v", err)
	}
	if reg.Status != model.RegistrationSubmitted {
		t.Fatalf("status = %s, want SUBMITTED", reg.Status)
	}
	if reg.SubmittedAt == nil {
		t.Fatal("submitted_at not set")
	}

	session, err := fx.sessions.GetSession(ctx, fx.contestID, 1)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if !session.IsSubmitted {
		t.Fatal("session not marked submitted")
	}
	if session.TotalMarks == nil || *session.TotalMarks != 3 {
		t.Fatalf("session total = %v, want 3", session.TotalMarks)
	}
}

func TestFinalizeSecondCallRejected(t *testing.T) {
	fx := newFinalizeFixture(t, 1)
	ctx := context.Background()

	if _, err := fx.reconciler.Finalize(ctx, fx.contestID, 1, model.TriggerManual); err != nil {
		t.Fatalf("first finalize: %v", err)
	}
	if _, err := fx.reconciler.Finalize(ctx, fx.contestID, 1, model.TriggerAuto); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("second finalize err = %v, want ErrAlreadySubmitted", err)
	}

	rows, err := fx.results.ListResults(ctx, fx.contestID)
	if err != nil {
		t.Fatalf("list results: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("result rows = %d, want 1", len(rows))
	}
}

func TestFinalizeUnregisteredParticipant(t *testing.T) {
	fx := newFinalizeFixture(t, 1)

	_, err := fx.reconciler.Finalize(context.Background(), fx.contestID, 99, model.TriggerManual)
	if !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("err = %v, want ErrNotRegistered", err)
	}
}

func TestFinalizeTriggerTerminalStatus(t *testing.T) {
	cases := []struct {
		trigger model.FinalizeTrigger
		want    model.RegistrationStatus
	}{
		{model.TriggerManual, model.RegistrationSubmitted},
		{model.TriggerAuto, model.RegistrationAutoSubmitted},
		{model.TriggerScheduler, model.RegistrationAutoSubmitted},
	}

	for _, tc := range cases {
		fx := newFinalizeFixture(t, 1)
		ctx := context.Background()

		if _, err := fx.reconciler.Finalize(ctx, fx.contestID, 1, tc.trigger); err != nil {
			t.Fatalf("%s: finalize: %v", tc.trigger, err)
		}
		reg, err := fx.registrations.GetRegistration(ctx, fx.contestID, 1)
		if err != nil {
			t.Fatalf("%s: get registration: %v", tc.trigger, err)
		}
		if reg.Status != tc.want {
			t.Fatalf("%s: status = %s, want %s", tc.trigger, reg.Status, tc.want)
		}
	}
}

// TestFinalizeConcurrentRace fires the three trigger paths concurrently many
// times over: exactly one caller may win, everyone else must observe
// ErrAlreadySubmitted, and exactly one result row must exist afterwards.
func TestFinalizeConcurrentRace(t *testing.T) {
	fx := newFinalizeFixture(t, 1)
	ctx := context.Background()

	triggers := []model.FinalizeTrigger{
		model.TriggerManual, model.TriggerAuto, model.TriggerScheduler,
		model.TriggerManual, model.TriggerAuto, model.TriggerScheduler,
		model.TriggerManual, model.TriggerAuto, model.TriggerScheduler,
	}

	var wg sync.WaitGroup
	errs := make([]error, len(triggers))
	for i, trigger := range triggers {
		wg.Add(1)
		go func(i int, trigger model.FinalizeTrigger) {
			defer wg.Done()
			_, errs[i] = fx.reconciler.Finalize(ctx, fx.contestID, 1, trigger)
		}(i, trigger)
	}
	wg.Wait()

	winners := 0
	for i, err := range errs {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, ErrAlreadySubmitted):
		default:
			t.Fatalf("caller %d: unexpected error %v", i, err)
		}
	}
	if winners != 1 {
		t.Fatalf("winners = %d, want exactly 1", winners)
	}

	rows, err := fx.results.ListResults(ctx, fx.contestID)
	if err != nil {
		t.Fatalf("list results: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("result rows = %d, want 1", len(rows))
	}

	reg, err := fx.registrations.GetRegistration(ctx, fx.contestID, 1)
	if err != nil {
		t.Fatalf("get registration: %v", err)
	}
	if !reg.Status.Terminal() {
		t.Fatalf("status = %s, want terminal", reg.Status)
	}
}

// slowRewriteStore stretches the ranked-rows rewrite so that two finalizes
// for different participants overlap in time.
type slowRewriteStore struct {
	ResultStore
	delay time.Duration
}

func (s *slowRewriteStore) ReplaceResults(ctx context.Context, contestID uuid.UUID, results []model.ParticipantResult, stats model.AggregateStats, at time.Time) error {
	time.Sleep(s.delay)
	return s.ResultStore.ReplaceResults(ctx, contestID, results, stats, at)
}

// TestFinalizeConcurrentParticipantsKeepAllResults finalizes two different
// participants at once while the rewrite of the ranked rows is artificially
// slow. The rewrite is a wholesale replace, so a result upserted between
// another finalize's scan and its replace would be deleted and, with the
// registration already terminal, never scored again. Both rows must survive.
func TestFinalizeConcurrentParticipantsKeepAllResults(t *testing.T) {
	fx := newFinalizeFixture(t, 1, 2)
	ctx := context.Background()

	log := zerolog.Nop()
	slow := &slowRewriteStore{ResultStore: fx.results, delay: 20 * time.Millisecond}
	aggregator := NewResultAggregator(slow, log)
	engine := scoring.NewEngine(scoring.Policy{FloorTotalAtZero: true})
	reconciler := NewSubmissionReconciler(fx.registrations, fx.sessions, fx.keys, aggregator, engine, nil, log)

	var wg sync.WaitGroup
	for _, pid := range []int{1, 2} {
		wg.Add(1)
		go func(pid int) {
			defer wg.Done()
			if _, err := reconciler.Finalize(ctx, fx.contestID, pid, model.TriggerManual); err != nil {
				t.Errorf("finalize participant %d: %v", pid, err)
			}
		}(pid)
	}
	wg.Wait()

	rows, err := fx.results.ListResults(ctx, fx.contestID)
	if err != nil {
		t.Fatalf("list results: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("result rows = %d, want 2", len(rows))
	}
	seen := map[int]bool{}
	for _, row := range rows {
		seen[row.ParticipantID] = true
		if row.Rank < 1 || row.Rank > 2 {
			t.Fatalf("participant %d: rank = %d, want 1 or 2", row.ParticipantID, row.Rank)
		}
	}
	if !seen[1] || !seen[2] {
		t.Fatalf("surviving participants = %v, want both 1 and 2", seen)
	}
}
