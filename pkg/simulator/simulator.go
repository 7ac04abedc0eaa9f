// Package simulator produces mock test executions. No test is actually
// run: each known test name is assigned a random outcome and duration and
// the result is recorded as a new test record.
package simulator

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/ethpandaops/qahub/pkg/api/store"
	"github.com/sirupsen/logrus"
)

const (
	// MaxTests is the maximum number of test names executed per run.
	MaxTests = 10

	// PassThreshold is the draw a test must exceed to pass, giving a
	// nominal pass probability of 90%.
	PassThreshold = 0.1

	passedMinMs = 100
	passedMaxMs = 600
	failedMinMs = 3000
	failedMaxMs = 5000
)

// Store is the persistence the simulator needs.
type Store interface {
	DistinctTestNames(ctx context.Context, limit int) ([]string, error)
	CreateTests(ctx context.Context, tests []*store.TestRecord) error
}

// Observer is notified of every simulated outcome.
type Observer interface {
	ObserveSimulatedTest(status string, durationMs int)
}

// Result is the outcome of a simulated run.
type Result struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Results []*store.TestRecord `json:"results"`
}

// Simulator runs mock test executions against known test names.
type Simulator struct {
	log          logrus.FieldLogger
	store        Store
	defaultNames []string
	observer     Observer

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithRand sets the random source. The simulator serialises access to it.
func WithRand(rng *rand.Rand) Option {
	return func(s *Simulator) {
		s.rng = rng
	}
}

// WithSeed sets a deterministic random source derived from seed.
func WithSeed(seed uint64) Option {
	return WithRand(newSeededRand(seed))
}

// WithDefaultNames sets the names used when no test has been recorded yet.
func WithDefaultNames(names []string) Option {
	return func(s *Simulator) {
		s.defaultNames = append([]string(nil), names...)
	}
}

// WithObserver registers an observer for simulated outcomes.
func WithObserver(o Observer) Option {
	return func(s *Simulator) {
		s.observer = o
	}
}

// New creates a Simulator. Without WithRand or WithSeed the random source
// is seeded from the current time.
func New(log logrus.FieldLogger, st Store, opts ...Option) *Simulator {
	s := &Simulator{
		log:          log.WithField("component", "simulator"),
		store:        st,
		defaultNames: append([]string(nil), store.DefaultTestNames...),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.rng == nil {
		s.rng = newSeededRand(uint64(time.Now().UnixNano()))
	}

	return s
}

func newSeededRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Run picks up to MaxTests known test names in order of first appearance,
// draws an outcome for each, and records the outcomes as new test records.
// History accumulates; existing records are never modified.
func (s *Simulator) Run(ctx context.Context) (*Result, error) {
	names, err := s.store.DistinctTestNames(ctx, MaxTests)
	if err != nil {
		return nil, fmt.Errorf("listing test names: %w", err)
	}

	if len(names) == 0 {
		names = s.defaultNames
	}

	if len(names) > MaxTests {
		names = names[:MaxTests]
	}

	records := s.draw(names)

	if err := s.store.CreateTests(ctx, records); err != nil {
		return nil, fmt.Errorf("recording simulated tests: %w", err)
	}

	passed := 0

	for _, rec := range records {
		if rec.Status == store.StatusPassed {
			passed++
		}

		if s.observer != nil {
			s.observer.ObserveSimulatedTest(rec.Status, rec.Duration)
		}
	}

	failed := len(records) - passed

	s.log.WithField("total", len(records)).
		WithField("passed", passed).
		WithField("failed", failed).
		Info("Simulated test run")

	return &Result{
		Success: true,
		Message: fmt.Sprintf(
			"Executed %d tests: %d passed, %d failed",
			len(records), passed, failed,
		),
		Results: records,
	}, nil
}

// draw assigns an outcome and duration to each name. The random source
// is consumed in name order: one draw for the outcome, one for the
// duration.
func (s *Simulator) draw(names []string) []*store.TestRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]*store.TestRecord, 0, len(names))

	for _, name := range names {
		status := store.StatusFailed
		if s.rng.Float64() > PassThreshold {
			status = store.StatusPassed
		}

		var duration int
		if status == store.StatusPassed {
			duration = passedMinMs + s.rng.IntN(passedMaxMs-passedMinMs+1)
		} else {
			duration = failedMinMs + s.rng.IntN(failedMaxMs-failedMinMs+1)
		}

		records = append(records, &store.TestRecord{
			Name:     name,
			Status:   status,
			Duration: duration,
		})
	}

	return records
}
