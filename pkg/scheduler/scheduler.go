package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"geckofetcher/internal/recorder"
	"geckofetcher/pkg/config"
	errs "geckofetcher/pkg/errors"
	"geckofetcher/pkg/fetcher"
	"geckofetcher/pkg/logger"
	"geckofetcher/pkg/storage"
)

// Mode selects between a single cycle and an endless loop
type Mode int

const (
	ModeOnce Mode = iota
	ModeForever
)

func (m Mode) String() string {
	if m == ModeForever {
		return "forever"
	}
	return "once"
}

// Fetcher produces the merged listing for one cycle
type Fetcher interface {
	FetchAll(ctx context.Context) (*fetcher.Result, error)
}

// Store persists a cycle's output
type Store interface {
	SaveSnapshot(entries []json.RawMessage) error
	SaveMetadata(meta *storage.Metadata) error
	DataPath() string
}

// Option configures a Runner
type Option func(*Runner) error

// WithInterval sets the pause between the end of one cycle and the start of
// the next
func WithInterval(d time.Duration) Option {
	return func(r *Runner) error {
		if d <= 0 {
			return errs.New(errs.ErrorTypeConfig, fmt.Sprintf("interval must be positive, got %s", d))
		}
		r.next = func(finished time.Time) time.Time { return finished.Add(d) }
		return nil
	}
}

// WithCron starts cycles on a cron schedule instead of a fixed pause. expr
// is a standard five-field expression or a descriptor such as @hourly or
// "@every 10m". Cycles still run one at a time; a start time that passes
// while a cycle is running is skipped.
func WithCron(expr string) Option {
	return func(r *Runner) error {
		if expr == "" {
			return nil
		}
		schedule, err := cron.ParseStandard(expr)
		if err != nil {
			return errs.Wrap(errs.ErrorTypeConfig, fmt.Sprintf("invalid schedule %q", expr), err)
		}
		r.next = schedule.Next
		return nil
	}
}

// WithRecorder stores a history row per cycle
func WithRecorder(rec recorder.Recorder) Option {
	return func(r *Runner) error {
		r.recorder = rec
		return nil
	}
}

// WithMetadata enables the sidecar metadata file
func WithMetadata(enabled bool) Option {
	return func(r *Runner) error {
		r.writeMetadata = enabled
		return nil
	}
}

// WithInterrupts ends the forever loop when a value arrives on ch while the
// runner is waiting for the next cycle
func WithInterrupts(ch <-chan os.Signal) Option {
	return func(r *Runner) error {
		r.interrupts = ch
		return nil
	}
}

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(r *Runner) error {
		r.logger = l
		return nil
	}
}

// FromConfig applies the scheduling-related settings of cfg
func FromConfig(cfg *config.Config) Option {
	return func(r *Runner) error {
		if err := WithInterval(cfg.Interval())(r); err != nil {
			return err
		}
		if err := WithCron(cfg.ScheduleCron)(r); err != nil {
			return err
		}
		r.writeMetadata = cfg.WriteMetadata
		return nil
	}
}

// Runner drives fetch-and-persist cycles
type Runner struct {
	fetcher       Fetcher
	store         Store
	recorder      recorder.Recorder
	logger        logger.Logger
	interrupts    <-chan os.Signal
	writeMetadata bool

	next  func(finished time.Time) time.Time
	now   func() time.Time
	newID func() string
}

// New creates a Runner that pauses config.DefaultUpdateFrequency between
// cycles unless an option says otherwise
func New(f Fetcher, s Store, opts ...Option) (*Runner, error) {
	r := &Runner{
		fetcher:  f,
		store:    s,
		recorder: recorder.NewNoopRecorder(),
		logger:   logger.GetLogger(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	r.next = func(finished time.Time) time.Time { return finished.Add(config.DefaultUpdateFrequency) }

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Run dispatches on mode
func (r *Runner) Run(ctx context.Context, mode Mode) error {
	if mode == ModeForever {
		return r.RunForever(ctx)
	}
	return r.RunOnce(ctx)
}

// RunOnce runs a single cycle. A snapshot that could not be written is
// returned as an error.
func (r *Runner) RunOnce(ctx context.Context) error {
	_, err := r.Cycle(ctx)
	return err
}

// RunForever repeats cycles until ctx is done or an interrupt arrives while
// waiting. A failed cycle is logged and the loop carries on. Stopping is
// not an error.
func (r *Runner) RunForever(ctx context.Context) error {
	for {
		if _, err := r.Cycle(ctx); err != nil {
			if ctx.Err() != nil {
				r.logger.Info("Shutting down")
				return nil
			}
			r.logger.WithError(err).Error("Cycle failed, will try again at the next run")
		}

		next := r.next(r.now())
		wait := next.Sub(r.now())
		if wait < 0 {
			wait = 0
		}
		r.logger.WithFields(map[string]interface{}{
			"next_run": next.Format(time.RFC3339),
			"wait":     wait.Round(time.Second),
		}).Info("Sleeping until next cycle")

		if !r.sleep(ctx, wait) {
			return nil
		}
	}
}

// sleep waits d and reports whether the loop should continue
func (r *Runner) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		r.logger.Info("Shutting down")
		return false
	case sig := <-r.interrupts:
		r.logger.WithField("signal", sig.String()).Info("Interrupted while sleeping, exiting")
		return false
	}
}

// Summary describes a finished cycle
type Summary struct {
	CycleID     string
	StartedAt   time.Time
	FinishedAt  time.Time
	Entries     int
	Pages       int
	FailedPages []int
	PersistErr  error
}

// Cycle fetches every page, writes the snapshot and records the outcome.
// The returned error is either ctx's or the persistence failure.
func (r *Runner) Cycle(ctx context.Context) (*Summary, error) {
	summary := &Summary{CycleID: r.newID(), StartedAt: r.now()}
	log := r.logger.WithField("cycle_id", summary.CycleID)
	log.Info("Fetcher - initiated")

	result, err := r.fetcher.FetchAll(ctx)
	if err != nil {
		return summary, err
	}
	summary.Entries = len(result.Entries)
	summary.Pages = len(result.Pages)
	summary.FailedPages = result.FailedPages()

	elapsed := r.now().Sub(summary.StartedAt)
	log.Info(fmt.Sprintf("Fetcher - %d items fetched in %.1f s", summary.Entries, elapsed.Seconds()))

	if err := r.store.SaveSnapshot(result.Entries); err != nil {
		summary.PersistErr = err
		log.WithError(err).Error("Fetcher - failed to save responses")
	} else {
		log.Info(fmt.Sprintf("Fetcher - Responses saved to: %s", r.store.DataPath()))
	}
	summary.FinishedAt = r.now()

	if r.writeMetadata && summary.PersistErr == nil {
		if err := r.store.SaveMetadata(&storage.Metadata{
			CycleID:        summary.CycleID,
			UpdatedAt:      summary.FinishedAt.UTC(),
			Entries:        summary.Entries,
			PagesRequested: summary.Pages,
			FailedPages:    summary.FailedPages,
			DurationMS:     summary.FinishedAt.Sub(summary.StartedAt).Milliseconds(),
		}); err != nil {
			log.WithError(err).Warn("Failed to write snapshot metadata")
		}
	}

	r.record(ctx, log, summary)
	logger.LogCycle(r.logger, summary.CycleID, summary.Entries, summary.FailedPages, summary.FinishedAt.Sub(summary.StartedAt))

	return summary, summary.PersistErr
}

func (r *Runner) record(ctx context.Context, log logger.Logger, s *Summary) {
	rec := &recorder.CycleRecord{
		CycleID:     s.CycleID,
		StartedAt:   s.StartedAt,
		FinishedAt:  s.FinishedAt,
		Entries:     s.Entries,
		FailedPages: s.FailedPages,
	}
	if s.PersistErr != nil {
		rec.PersistError = s.PersistErr.Error()
	}
	if err := r.recorder.RecordCycle(ctx, rec); err != nil {
		log.WithError(err).Warn("Failed to record cycle history")
	}
}
