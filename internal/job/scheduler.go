package job

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"daily-bars/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

// State tracks where the scheduler is in its daily cycle.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateWaitingForReset
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateWaitingForReset:
		return "waiting-for-reset"
	default:
		return "unknown"
	}
}

// Clock abstracts time so tests can drive the scheduler through day
// boundaries without real sleeps.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type Ingester interface {
	IngestDaily(ctx context.Context, symbol string) (int, error)
}

type Backfiller interface {
	BackfillAll(ctx context.Context, symbols []string)
}

type QuotaTracker interface {
	Load() (domain.QuotaState, error)
	Save(state domain.QuotaState) error
}

// Scheduler runs the quota-gated daily ingest loop: one pass over the symbol
// list per UTC day, then sleep until the quota resets at midnight. Ingest
// failures are scoped to their symbol; the only fatal condition is a quota
// state that cannot be persisted.
type Scheduler struct {
	tracer         trace.Tracer
	clock          Clock
	tracker        QuotaTracker
	ingester       Ingester
	backfiller     Backfiller
	symbols        []string
	maxCallsPerDay int

	mu    sync.Mutex
	state State
}

func NewScheduler(
	tracer trace.Tracer,
	tracker QuotaTracker,
	ingester Ingester,
	backfiller Backfiller,
	symbols []string,
	maxCallsPerDay int,
) *Scheduler {
	return &Scheduler{
		tracer:         tracer,
		clock:          realClock{},
		tracker:        tracker,
		ingester:       ingester,
		backfiller:     backfiller,
		symbols:        symbols,
		maxCallsPerDay: maxCallsPerDay,
		state:          StateIdle,
	}
}

// State returns the scheduler's current cycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scheduler) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Run blocks until ctx is cancelled, alternating between one ingest cycle
// and a sleep until the next UTC midnight.
func (s *Scheduler) Run(ctx context.Context) error {
	log.Printf("ingest scheduler starting for %d symbols (cap %d calls/day)", len(s.symbols), s.maxCallsPerDay)

	for {
		if ctx.Err() != nil {
			s.setState(StateIdle)
			return nil
		}

		if err := s.runCycle(ctx); err != nil {
			s.setState(StateIdle)
			return err
		}

		s.setState(StateWaitingForReset)
		now := s.clock.Now()
		wait := domain.NextReset(now).Sub(now)
		log.Printf("cycle complete, sleeping %s until the next UTC midnight", wait.Round(time.Second))
		if err := s.clock.Sleep(ctx, wait); err != nil {
			s.setState(StateIdle)
			return nil
		}
	}
}

func (s *Scheduler) runCycle(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "scheduler.run-cycle")
	defer span.End()

	state, err := s.tracker.Load()
	if err != nil {
		// A readable-but-invalid tracker must not silently reset: that would
		// forge quota headroom. Skip the cycle and keep logging.
		log.Printf("quota state unreadable, skipping cycle: %v", err)
		return nil
	}

	now := s.clock.Now()
	if state.IsNewDay(now) {
		state = state.Reset(now)
		if err := s.tracker.Save(state); err != nil {
			return fmt.Errorf("persist quota reset: %w", err)
		}
		log.Printf("new UTC day %s, quota reset", state.Day.Format("2006-01-02"))
	}

	if state.Exhausted(s.maxCallsPerDay) {
		log.Printf("daily quota already exhausted (%d/%d)", state.CallsMade, s.maxCallsPerDay)
		return nil
	}

	s.setState(StateFetching)
	ingested := 0
	for _, symbol := range s.symbols {
		if state.Exhausted(s.maxCallsPerDay) {
			log.Printf("daily quota exhausted (%d/%d), deferring remaining symbols", state.CallsMade, s.maxCallsPerDay)
			break
		}

		n, ingestErr := s.ingester.IngestDaily(ctx, symbol)

		// The provider bills the request whether or not it succeeded, so the
		// call is recorded and persisted before the error is inspected.
		state = state.RecordCall()
		if err := s.tracker.Save(state); err != nil {
			return fmt.Errorf("persist quota state: %w", err)
		}

		if ingestErr != nil {
			log.Printf("ingest %s: %v", symbol, ingestErr)
			continue
		}
		ingested += n

		if ctx.Err() != nil {
			return nil
		}
	}

	if ingested > 0 && s.backfiller != nil {
		s.backfiller.BackfillAll(ctx, s.symbols)
	}
	return nil
}
