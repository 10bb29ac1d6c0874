package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/strivio/contesthub-backend/internal/memory"
	"github.com/strivio/contesthub-backend/internal/model"
	"github.com/strivio/contesthub-backend/internal/scoring"
	"github.com/strivio/contesthub-backend/internal/service"
)

type sweepFixture struct {
	contests      *memory.ContestStore
	registrations *memory.RegistrationStore
	sessions      *memory.SessionStore
	results       *memory.ResultStore
	keys          *memory.KeySource
	scheduler     *Scheduler
	clock         time.Time
}

func newSweepFixture(t *testing.T) *sweepFixture {
	t.Helper()

	fx := &sweepFixture{
		contests:      memory.NewContestStore(),
		registrations: memory.NewRegistrationStore(),
		sessions:      memory.NewSessionStore(),
		results:       memory.NewResultStore(),
		keys:          memory.NewKeySource(),
		clock:         time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}

	log := zerolog.Nop()
	aggregator := service.NewResultAggregator(fx.results, log)
	engine := scoring.NewEngine(scoring.Policy{FloorTotalAtZero: true})
	reconciler := service.NewSubmissionReconciler(
		fx.registrations, fx.sessions, fx.keys, aggregator, engine, nil, log)

	fx.scheduler = New(fx.contests, fx.registrations, reconciler, log, 15*time.Second, 4)
	fx.scheduler.SetNow(func() time.Time { return fx.clock })
	return fx
}

// seedContest registers a published UPCOMING contest that starts at the
// given offset from the fixture clock and installs an empty answer key.
func (fx *sweepFixture) seedContest(t *testing.T, startOffset time.Duration, durationMinutes int) uuid.UUID {
	t.Helper()
	id := uuid.New()
	fx.contests.Put(&model.Contest{
		ID:              id,
		Title:           "sweep test",
		StartTime:       fx.clock.Add(startOffset),
		DurationMinutes: durationMinutes,
		Phase:           model.PhaseUpcoming,
		Published:       true,
	})
	fx.keys.Put(&model.AnswerKey{ContestID: id})
	return id
}

func (fx *sweepFixture) seedStarted(t *testing.T, contestID uuid.UUID, pid int) {
	t.Helper()
	startedAt := fx.clock.Add(-time.Hour)
	err := fx.registrations.CreateRegistration(context.Background(), &model.Registration{
		ID:            uuid.New(),
		ContestID:     contestID,
		ParticipantID: pid,
		Status:        model.RegistrationStarted,
		RegisteredAt:  startedAt,
		StartedAt:     &startedAt,
	})
	if err != nil {
		t.Fatalf("seed registration: %v", err)
	}
	err = fx.sessions.CreateSession(context.Background(), &model.LiveSession{
		ID:            uuid.New(),
		ContestID:     contestID,
		ParticipantID: pid,
		Answers:       map[uuid.UUID]model.AnswerSlot{},
		Code:          map[uuid.UUID]model.CodeSlot{},
		StartedAt:     startedAt,
	})
	if err != nil {
		t.Fatalf("seed session: %v", err)
	}
}

func (fx *sweepFixture) phase(t *testing.T, id uuid.UUID) model.ContestPhase {
	t.Helper()
	contest, err := fx.contests.GetContest(context.Background(), id)
	if err != nil {
		t.Fatalf("get contest: %v", err)
	}
	return contest.Phase
}

func TestSweepActivatesDueContests(t *testing.T) {
	fx := newSweepFixture(t)
	due := fx.seedContest(t, -time.Minute, 60)
	future := fx.seedContest(t, time.Hour, 60)

	fx.scheduler.Sweep(context.Background())

	if got := fx.phase(t, due); got != model.PhaseRunning {
		t.Fatalf("due contest phase = %s, want RUNNING", got)
	}
	if got := fx.phase(t, future); got != model.PhaseUpcoming {
		t.Fatalf("future contest phase = %s, want UPCOMING", got)
	}

	// A second sweep at the same instant must not change anything.
	fx.scheduler.Sweep(context.Background())
	if got := fx.phase(t, due); got != model.PhaseRunning {
		t.Fatalf("after resweep phase = %s, want RUNNING", got)
	}
}

func TestSweepIgnoresUnpublished(t *testing.T) {
	fx := newSweepFixture(t)
	id := uuid.New()
	fx.contests.Put(&model.Contest{
		ID:              id,
		StartTime:       fx.clock.Add(-time.Minute),
		DurationMinutes: 60,
		Phase:           model.PhaseUpcoming,
		Published:       false,
	})

	fx.scheduler.Sweep(context.Background())

	if got := fx.phase(t, id); got != model.PhaseUpcoming {
		t.Fatalf("unpublished contest phase = %s, want UPCOMING", got)
	}
}

func TestSweepClosesExpiredAndFinalizesStragglers(t *testing.T) {
	fx := newSweepFixture(t)
	id := fx.seedContest(t, -2*time.Hour, 60)
	fx.seedStarted(t, id, 1)
	fx.seedStarted(t, id, 2)

	// First sweep flips UPCOMING to RUNNING; the contest end time is
	// already in the past, so the same sweep also closes it.
	fx.scheduler.Sweep(context.Background())

	if got := fx.phase(t, id); got != model.PhaseCompleted {
		t.Fatalf("phase = %s, want COMPLETED", got)
	}

	for _, pid := range []int{1, 2} {
		reg, err := fx.registrations.GetRegistration(context.Background(), id, pid)
		if err != nil {
			t.Fatalf("get registration %d: %v", pid, err)
		}
		if reg.Status != model.RegistrationAutoSubmitted {
			t.Fatalf("participant %d status = %s, want AUTO_SUBMITTED", pid, reg.Status)
		}
	}

	set, err := fx.results.GetResultSet(context.Background(), id)
	if err != nil {
		t.Fatalf("get result set: %v", err)
	}
	if len(set.Results) != 2 {
		t.Fatalf("result rows = %d, want 2", len(set.Results))
	}
}

// A contest missed by a down scheduler is still closed correctly by the next
// sweep, however late it runs.
func TestSweepHealsAfterMissedTicks(t *testing.T) {
	fx := newSweepFixture(t)
	id := fx.seedContest(t, -30*time.Minute, 60)

	fx.scheduler.Sweep(context.Background())
	if got := fx.phase(t, id); got != model.PhaseRunning {
		t.Fatalf("phase = %s, want RUNNING", got)
	}

	// The process goes dark across the contest's whole end window.
	fx.clock = fx.clock.Add(3 * time.Hour)
	fx.scheduler.Sweep(context.Background())

	if got := fx.phase(t, id); got != model.PhaseCompleted {
		t.Fatalf("phase after late sweep = %s, want COMPLETED", got)
	}
}

// One contest with a broken answer key must not block the other expired
// contests in the same sweep, and must stay RUNNING for a retry.
func TestSweepIsolatesFailingContest(t *testing.T) {
	fx := newSweepFixture(t)
	healthy := fx.seedContest(t, -2*time.Hour, 60)
	broken := fx.seedContest(t, -2*time.Hour, 60)
	fx.seedStarted(t, healthy, 1)
	fx.seedStarted(t, broken, 2)

	// No answer key for the broken contest: finalize fails there.
	fx.keys.Delete(broken)

	fx.scheduler.Sweep(context.Background())

	if got := fx.phase(t, healthy); got != model.PhaseCompleted {
		t.Fatalf("healthy contest phase = %s, want COMPLETED", got)
	}
	if got := fx.phase(t, broken); got != model.PhaseRunning {
		t.Fatalf("broken contest phase = %s, want RUNNING (retry later)", got)
	}

	// Restore the key; the next sweep completes the stuck contest.
	fx.keys.Put(&model.AnswerKey{ContestID: broken})
	fx.scheduler.Sweep(context.Background())
	if got := fx.phase(t, broken); got != model.PhaseCompleted {
		t.Fatalf("retried contest phase = %s, want COMPLETED", got)
	}

	// The straggler was not dropped: the retry scored it.
	set, err := fx.results.GetResultSet(context.Background(), broken)
	if err != nil {
		t.Fatalf("get result set: %v", err)
	}
	if set.Entry(2) == nil {
		t.Fatal("participant 2 missing from retried contest's results")
	}
}
