package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/strivio/contesthub-backend/internal/memory"
	"github.com/strivio/contesthub-backend/internal/model"
	"github.com/strivio/contesthub-backend/internal/scoring"
	"golang.org/x/crypto/bcrypt"
)

type sessionFixture struct {
	contests *memory.ContestStore
	service  *SessionService
	keysPut  func(*model.AnswerKey)
	clock    time.Time
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()

	fx := &sessionFixture{
		contests: memory.NewContestStore(),
		clock:    time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}

	registrations := memory.NewRegistrationStore()
	sessions := memory.NewSessionStore()
	results := memory.NewResultStore()
	keys := memory.NewKeySource()

	log := zerolog.Nop()
	aggregator := NewResultAggregator(results, log)
	engine := scoring.NewEngine(scoring.Policy{FloorTotalAtZero: true})
	reconciler := NewSubmissionReconciler(registrations, sessions, keys, aggregator, engine, nil, log)

	fx.service = NewSessionService(fx.contests, registrations, sessions, reconciler, nil, log)
	fx.service.now = func() time.Time { return fx.clock }

	// Contests seeded through runningContest score against an empty key.
	fx.keysPut = keys.Put
	return fx
}

func (fx *sessionFixture) runningContest(t *testing.T) uuid.UUID {
	t.Helper()
	id := uuid.New()
	fx.contests.Put(&model.Contest{
		ID:              id,
		Title:           "session test",
		StartTime:       fx.clock.Add(-10 * time.Minute),
		DurationMinutes: 60,
		Phase:           model.PhaseRunning,
		Published:       true,
	})
	fx.keysPut(&model.AnswerKey{ContestID: id})
	return id
}

func TestRegisterIsIdempotent(t *testing.T) {
	fx := newSessionFixture(t)
	contestID := fx.runningContest(t)
	ctx := context.Background()

	first, err := fx.service.Register(ctx, contestID, 1, "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	second, err := fx.service.Register(ctx, contestID, 1, "")
	if err != nil {
		t.Fatalf("repeat register: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("repeat register created a new registration: %s vs %s", first.ID, second.ID)
	}
	if second.Status != model.RegistrationRegistered {
		t.Fatalf("status = %s, want REGISTERED", second.Status)
	}
}

func TestRegisterRejectsUnpublishedAndCompleted(t *testing.T) {
	fx := newSessionFixture(t)
	ctx := context.Background()

	unpublished := uuid.New()
	fx.contests.Put(&model.Contest{
		ID: unpublished, StartTime: fx.clock, DurationMinutes: 60,
		Phase: model.PhaseUpcoming, Published: false,
	})
	if _, err := fx.service.Register(ctx, unpublished, 1, ""); !errors.Is(err, ErrContestNotPublished) {
		t.Fatalf("unpublished err = %v, want ErrContestNotPublished", err)
	}

	completed := uuid.New()
	fx.contests.Put(&model.Contest{
		ID: completed, StartTime: fx.clock.Add(-2 * time.Hour), DurationMinutes: 60,
		Phase: model.PhaseCompleted, Published: true,
	})
	if _, err := fx.service.Register(ctx, completed, 1, ""); !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("completed err = %v, want ErrInvalidPhase", err)
	}
}

func TestRegisterPrivateContestAccessCode(t *testing.T) {
	fx := newSessionFixture(t)
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("secret42"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash access code: %v", err)
	}
	id := uuid.New()
	fx.contests.Put(&model.Contest{
		ID: id, StartTime: fx.clock, DurationMinutes: 60,
		Phase: model.PhaseUpcoming, Published: true,
		Private: true, AccessCodeHash: string(hash),
	})

	if _, err := fx.service.Register(ctx, id, 1, "wrong"); !errors.Is(err, ErrInvalidAccessCode) {
		t.Fatalf("wrong code err = %v, want ErrInvalidAccessCode", err)
	}
	if _, err := fx.service.Register(ctx, id, 1, "secret42"); err != nil {
		t.Fatalf("correct code: %v", err)
	}
}

func TestStartRequiresRunningPhase(t *testing.T) {
	fx := newSessionFixture(t)
	ctx := context.Background()

	id := uuid.New()
	fx.contests.Put(&model.Contest{
		ID: id, StartTime: fx.clock.Add(time.Hour), DurationMinutes: 60,
		Phase: model.PhaseUpcoming, Published: true,
	})
	if _, err := fx.service.Register(ctx, id, 1, ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := fx.service.Start(ctx, id, 1); !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("start before running err = %v, want ErrInvalidPhase", err)
	}
}

func TestStartRequiresRegistration(t *testing.T) {
	fx := newSessionFixture(t)
	contestID := fx.runningContest(t)

	if _, err := fx.service.Start(context.Background(), contestID, 1); !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("err = %v, want ErrNotRegistered", err)
	}
}

func TestStartIsIdempotent(t *testing.T) {
	fx := newSessionFixture(t)
	contestID := fx.runningContest(t)
	ctx := context.Background()

	if _, err := fx.service.Register(ctx, contestID, 1, ""); err != nil {
		t.Fatalf("register: %v", err)
	}

	first, err := fx.service.Start(ctx, contestID, 1)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	second, err := fx.service.Start(ctx, contestID, 1)
	if err != nil {
		t.Fatalf("repeat start: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("repeat start created a new session: %s vs %s", first.ID, second.ID)
	}
	if !first.StartedAt.Equal(second.StartedAt) {
		t.Fatalf("start time changed on retry: %v vs %v", first.StartedAt, second.StartedAt)
	}
}

func TestSaveAnswerRejectedOnceFinalized(t *testing.T) {
	fx := newSessionFixture(t)
	contestID := fx.runningContest(t)
	ctx := context.Background()

	if _, err := fx.service.Register(ctx, contestID, 1, ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := fx.service.Start(ctx, contestID, 1); err != nil {
		t.Fatalf("start: %v", err)
	}

	req := &model.SaveAnswerRequest{QuestionID: uuid.New(), SelectedOptions: []string{"A"}}
	if err := fx.service.SaveAnswer(ctx, contestID, 1, req); err != nil {
		t.Fatalf("save answer: %v", err)
	}

	if _, err := fx.service.Submit(ctx, contestID, 1); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := fx.service.SaveAnswer(ctx, contestID, 1, req); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("post-submit save err = %v, want ErrAlreadySubmitted", err)
	}
	if err := fx.service.UpdateNavigation(ctx, contestID, 1, &model.NavigationRequest{CurrentQuestion: 3}); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("post-submit navigation err = %v, want ErrAlreadySubmitted", err)
	}
}

func TestSaveAnswerBeforeStart(t *testing.T) {
	fx := newSessionFixture(t)
	contestID := fx.runningContest(t)
	ctx := context.Background()

	if _, err := fx.service.Register(ctx, contestID, 1, ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	req := &model.SaveAnswerRequest{QuestionID: uuid.New(), SelectedOptions: []string{"A"}}
	if err := fx.service.SaveAnswer(ctx, contestID, 1, req); !errors.Is(err, ErrSessionNotStarted) {
		t.Fatalf("err = %v, want ErrSessionNotStarted", err)
	}
}

func TestProctorEventIncrementsCounter(t *testing.T) {
	fx := newSessionFixture(t)
	contestID := fx.runningContest(t)
	ctx := context.Background()

	if _, err := fx.service.Register(ctx, contestID, 1, ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := fx.service.Start(ctx, contestID, 1); err != nil {
		t.Fatalf("start: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := fx.service.RecordProctorEvent(ctx, contestID, 1, model.ProctorTabSwitch); err != nil {
			t.Fatalf("record tab switch: %v", err)
		}
	}
	if err := fx.service.RecordProctorEvent(ctx, contestID, 1, model.ProctorFocusLost); err != nil {
		t.Fatalf("record focus lost: %v", err)
	}

	session, err := fx.service.GetSession(ctx, contestID, 1)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if session.TabSwitches != 3 || session.FocusLost != 1 {
		t.Fatalf("counters = %d/%d, want 3/1", session.TabSwitches, session.FocusLost)
	}
}

func TestStatusReflectsLifecycle(t *testing.T) {
	fx := newSessionFixture(t)
	contestID := fx.runningContest(t)
	ctx := context.Background()

	status, err := fx.service.Status(ctx, contestID, 1)
	if err != nil {
		t.Fatalf("status (unregistered): %v", err)
	}
	if status.RegistrationStatus != nil || status.SessionStarted {
		t.Fatalf("unregistered status = %+v, want bare phase view", status)
	}
	// Contest started 10 minutes ago with a 60-minute duration.
	if status.RemainingSeconds != (50 * time.Minute).Seconds() {
		t.Fatalf("remaining = %v, want %v", status.RemainingSeconds, (50 * time.Minute).Seconds())
	}

	if _, err := fx.service.Register(ctx, contestID, 1, ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := fx.service.Start(ctx, contestID, 1); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := fx.service.Submit(ctx, contestID, 1); err != nil {
		t.Fatalf("submit: %v", err)
	}

	status, err = fx.service.Status(ctx, contestID, 1)
	if err != nil {
		t.Fatalf("status (submitted): %v", err)
	}
	if !status.SessionStarted || !status.IsSubmitted {
		t.Fatalf("submitted status = %+v, want started and submitted", status)
	}
	if *status.RegistrationStatus != model.RegistrationSubmitted {
		t.Fatalf("registration status = %s, want SUBMITTED", *status.RegistrationStatus)
	}
}

func TestForceSubmitUsesAutoStatus(t *testing.T) {
	fx := newSessionFixture(t)
	contestID := fx.runningContest(t)
	ctx := context.Background()

	if _, err := fx.service.Register(ctx, contestID, 1, ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := fx.service.Start(ctx, contestID, 1); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := fx.service.ForceSubmit(ctx, contestID, 1); err != nil {
		t.Fatalf("force submit: %v", err)
	}

	status, err := fx.service.Status(ctx, contestID, 1)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if *status.RegistrationStatus != model.RegistrationAutoSubmitted {
		t.Fatalf("registration status = %s, want AUTO_SUBMITTED", *status.RegistrationStatus)
	}
}
