package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"childcare/internal/log"
)

// Job is a unit of scheduled work.
type Job func(ctx context.Context) error

// Scheduler runs named jobs on standard five-field cron expressions.
// Overlapping runs of the same job are skipped and panics are recovered.
type Scheduler struct {
	cron   *cron.Cron
	logger *log.Logger

	mu     sync.Mutex
	ctx    context.Context
	jobs   map[string]Job
	cancel context.CancelFunc
}

func NewScheduler(logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentScheduler)
	adapter := cronLogger{logger: logger}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(adapter),
			cron.SkipIfStillRunning(adapter),
		)),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(map[string]Job),
	}
}

// Add registers job under name. An empty schedule leaves the job unscheduled
// but still available to RunNow.
func (s *Scheduler) Add(name, spec string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.jobs[name]; dup {
		return fmt.Errorf("job %q already registered", name)
	}
	if spec != "" {
		if _, err := s.cron.AddFunc(spec, func() { s.run(name, job) }); err != nil {
			return fmt.Errorf("schedule %q: %w", name, err)
		}
	}
	s.jobs[name] = job
	s.logger.Info("Job registered", "job", name, "schedule", spec)
	return nil
}

// RunNow runs a registered job synchronously with ctx.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	return job(ctx)
}

// Scheduled returns the number of jobs with a cron schedule.
func (s *Scheduler) Scheduled() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started", "jobs", s.Scheduled())
}

// Stop cancels running jobs and waits for them until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("Scheduler stopped")
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out")
	}
}

func (s *Scheduler) run(name string, job Job) {
	start := time.Now()
	if err := job(s.ctx); err != nil {
		s.logger.Error("Scheduled job failed",
			"job", name,
			log.FieldError, err.Error(),
			log.FieldDuration, time.Since(start).Milliseconds())
		return
	}
	s.logger.Info("Scheduled job finished",
		"job", name,
		log.FieldDuration, time.Since(start).Milliseconds())
}

// cronLogger adapts Logger to cron.Logger.
type cronLogger struct {
	logger *log.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, log.FieldError, err.Error())...)
}
