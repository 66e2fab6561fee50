// Package scheduler keeps the registry of recurring questions and fires a
// pipeline run for each job when its cron schedule is due.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dukex/datapilot/pkg/models"
	"github.com/robfig/cron/v3"
)

// UserID is the user scheduled runs are attributed to.
const UserID = "scheduler"

var (
	ErrJobIDRequired    = errors.New("job id is required")
	ErrQuestionRequired = errors.New("question is required")
)

// RunFunc starts one pipeline run.
type RunFunc func(ctx context.Context, question string, overrides map[string]any, userID string) error

// Sink records scheduler events.
type Sink interface {
	Record(ctx context.Context, runID, level, node, event string, data map[string]any)
}

type entry struct {
	job      models.Job
	schedule cron.Schedule
	cronID   cron.EntryID
}

// Scheduler is the process wide job registry. Every read and mutation of
// the registry happens under mu.
type Scheduler struct {
	logger   *slog.Logger
	run      RunFunc
	sink     Sink
	location *time.Location
	now      func() time.Time
	cron     *cron.Cron

	mu   sync.Mutex
	jobs map[string]*entry
}

type Option func(*Scheduler)

// WithLocation evaluates cron expressions in loc. The default is UTC.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		s.location = loc
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

func WithSink(sink Sink) Option {
	return func(s *Scheduler) {
		s.sink = sink
	}
}

func New(logger *slog.Logger, run RunFunc, opts ...Option) *Scheduler {
	s := &Scheduler{
		logger:   logger.With("module", "scheduler"),
		run:      run,
		location: time.UTC,
		now:      time.Now,
		jobs:     make(map[string]*entry),
	}

	for _, opt := range opts {
		opt(s)
	}

	cronLogger := cron.VerbosePrintfLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))

	s.cron = cron.New(
		cron.WithLocation(s.location),
		cron.WithChain(cron.Recover(cronLogger)),
	)

	return s
}

// Register adds the job, replacing a job with the same id.
func (s *Scheduler) Register(id, question string, frequency models.Frequency, timeOfDay string, overrides map[string]any) (models.Job, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return models.Job{}, ErrJobIDRequired
	}

	if strings.TrimSpace(question) == "" {
		return models.Job{}, ErrQuestionRequired
	}

	expr, err := CronSpec(frequency, timeOfDay)
	if err != nil {
		return models.Job{}, err
	}

	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return models.Job{}, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}

	now := s.now().In(s.location)
	next := schedule.Next(now)

	job := models.Job{
		ID:             id,
		Question:       question,
		Frequency:      frequency,
		Time:           timeOfDay,
		Overrides:      maps.Clone(overrides),
		CronExpression: expr,
		CreatedAt:      now.UTC(),
		NextRun:        &next,
	}

	if job.Overrides == nil {
		job.Overrides = map[string]any{}
	}

	s.mu.Lock()

	if previous, ok := s.jobs[id]; ok {
		s.cron.Remove(previous.cronID)
	}

	cronID := s.cron.Schedule(schedule, cron.FuncJob(func() { s.fire(id) }))
	s.jobs[id] = &entry{job: job, schedule: schedule, cronID: cronID}

	s.mu.Unlock()

	s.logger.Info("Job registered", "job_id", id, "cron", expr, "next_run", next)
	s.record("job_added", map[string]any{"job_id": id, "frequency": string(frequency), "time": timeOfDay})

	return copyJob(job), nil
}

// List returns the jobs ordered by creation time.
func (s *Scheduler) List() []models.Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make([]models.Job, 0, len(s.jobs))
	for _, e := range s.jobs {
		jobs = append(jobs, copyJob(e.job))
	}

	slices.SortFunc(jobs, func(a, b models.Job) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}

		return strings.Compare(a.ID, b.ID)
	})

	return jobs
}

func (s *Scheduler) Get(id string) (models.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.jobs[id]
	if !ok {
		return models.Job{}, false
	}

	return copyJob(e.job), true
}

// Remove deletes the job and reports whether it existed.
func (s *Scheduler) Remove(id string) bool {
	s.mu.Lock()

	e, ok := s.jobs[id]
	if ok {
		s.cron.Remove(e.cronID)
		delete(s.jobs, id)
	}

	s.mu.Unlock()

	if ok {
		s.logger.Info("Job removed", "job_id", id)
		s.record("job_removed", map[string]any{"job_id": id})
	}

	return ok
}

// RunNow fires the job immediately, outside its schedule, and blocks until
// the run returns. It reports whether the job exists.
func (s *Scheduler) RunNow(id string) bool {
	if _, ok := s.Get(id); !ok {
		return false
	}

	s.fire(id)

	return true
}

func (s *Scheduler) Start() {
	s.logger.Info("Starting scheduler", "location", s.location.String())
	s.cron.Start()
}

// Stop stops firing jobs and waits for running ones until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.logger.Info("Stopping scheduler")

	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// fire runs the job and refreshes its next fire time.
func (s *Scheduler) fire(id string) {
	s.mu.Lock()

	e, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()

		return
	}

	job := copyJob(e.job)
	s.mu.Unlock()

	s.logger.Info("Job fired", "job_id", id)

	err := s.run(context.Background(), job.Question, job.Overrides, UserID)
	if err != nil {
		s.logger.Error("Scheduled run failed", "job_id", id, "error", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.jobs[id]
	if !ok || current.cronID != e.cronID {
		return
	}

	next := current.schedule.Next(s.now().In(s.location))
	current.job.NextRun = &next
}

func (s *Scheduler) record(event string, data map[string]any) {
	if s.sink == nil {
		return
	}

	s.sink.Record(context.Background(), "", models.LevelInfo, "scheduler", event, data)
}

func copyJob(job models.Job) models.Job {
	job.Overrides = maps.Clone(job.Overrides)

	if job.NextRun != nil {
		next := *job.NextRun
		job.NextRun = &next
	}

	return job
}
