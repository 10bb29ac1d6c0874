package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/strivio/contesthub-backend/internal/model"
	"github.com/strivio/contesthub-backend/internal/service"
	"golang.org/x/sync/errgroup"
)

// Scheduler periodically sweeps contest phases against the wall clock:
// published UPCOMING contests whose start time has passed flip to RUNNING,
// and expired RUNNING contests have their straggler sessions finalized
// before flipping to COMPLETED. Every step is idempotent, so an overlapping
// or missed sweep never corrupts state; it only delays it.
type Scheduler struct {
	contests      service.ContestStore
	registrations service.RegistrationStore
	reconciler    *service.SubmissionReconciler
	log           zerolog.Logger
	interval      time.Duration
	concurrency   int
	now           func() time.Time
}

// New creates a Scheduler. A concurrency of zero or less means unbounded.
func New(
	contests service.ContestStore,
	registrations service.RegistrationStore,
	reconciler *service.SubmissionReconciler,
	log zerolog.Logger,
	interval time.Duration,
	concurrency int,
) *Scheduler {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Scheduler{
		contests:      contests,
		registrations: registrations,
		reconciler:    reconciler,
		log:           log.With().Str("component", "scheduler").Logger(),
		interval:      interval,
		concurrency:   concurrency,
		now:           time.Now,
	}
}

// SetNow overrides the clock source. Intended for tests.
func (s *Scheduler) SetNow(now func() time.Time) {
	s.now = now
}

// Run sweeps once immediately, then on every tick until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info().Dur("interval", s.interval).Msg("Scheduler started")

	s.Sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("Scheduler stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep performs a single pass: activate due contests, then close expired
// ones. A failure in one contest never blocks the others.
func (s *Scheduler) Sweep(ctx context.Context) {
	now := s.now()

	activated, err := s.contests.ActivateDue(ctx, now)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to activate due contests")
	} else {
		for _, id := range activated {
			s.log.Info().Str("contest_id", id.String()).Msg("Contest is now running")
		}
	}

	expired, err := s.contests.ListExpiredRunning(ctx, now)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list expired contests")
		return
	}
	if len(expired) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	if s.concurrency > 0 {
		g.SetLimit(s.concurrency)
	}
	for i := range expired {
		contest := expired[i]
		g.Go(func() error {
			if err := s.closeContest(gctx, contest); err != nil {
				// Isolate the fault: log, leave the contest RUNNING and let
				// the next sweep retry it.
				s.log.Error().Err(err).
					Str("contest_id", contest.ID.String()).
					Msg("Failed to close expired contest")
			}
			return nil
		})
	}
	_ = g.Wait()
}

// closeContest finalizes every session still STARTED, then flips the
// contest to COMPLETED. The flip is withheld while any finalize fails so
// stragglers are never silently dropped.
func (s *Scheduler) closeContest(ctx context.Context, contest model.Contest) error {
	started, err := s.registrations.ListStarted(ctx, contest.ID)
	if err != nil {
		return fmt.Errorf("list started: %w", err)
	}

	var failed int
	for _, participantID := range started {
		_, err := s.reconciler.Finalize(ctx, contest.ID, participantID, model.TriggerScheduler)
		if err != nil {
			if errors.Is(err, service.ErrAlreadySubmitted) {
				// Lost the claim to a manual or auto submit. Fine.
				continue
			}
			failed++
			s.log.Error().Err(err).
				Str("contest_id", contest.ID.String()).
				Int("participant_id", participantID).
				Msg("Failed to finalize straggler session")
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d straggler finalizations failed", failed)
	}

	completed, err := s.contests.CompleteContest(ctx, contest.ID)
	if err != nil {
		return fmt.Errorf("complete contest: %w", err)
	}
	if completed {
		s.log.Info().
			Str("contest_id", contest.ID.String()).
			Int("finalized", len(started)).
			Msg("Contest completed")
	}
	return nil
}
