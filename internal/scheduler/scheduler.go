package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"

	"github.com/mrwolf/ppl-server/internal/lifecycle"
	"github.com/mrwolf/ppl-server/internal/logger"
	"github.com/mrwolf/ppl-server/internal/promotion"
)

// Promoter runs a promotion pass
type Promoter interface {
	Promote(ctx context.Context, trigger string) (promotion.Result, error)
}

// Sweeper advances events whose deadlines have passed
type Sweeper interface {
	Sweep(ctx context.Context) (lifecycle.SweepResult, error)
}

// HealthChecker reports whether a collaborator is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Scheduler manages scheduled jobs
type Scheduler struct {
	scheduler gocron.Scheduler
	promoter  Promoter
	sweeper   Sweeper
	health    HealthChecker
	cfg       Config
	log       *logger.Logger
}

// Config holds scheduler configuration. A zero SweepInterval disables the
// lifecycle sweep
type Config struct {
	Location        *time.Location
	PromoteInterval time.Duration
	SweepInterval   time.Duration
	HealthInterval  time.Duration
	Clock           clockwork.Clock
}

// New creates a new scheduler. sweeper and health may be nil
func New(promoter Promoter, sweeper Sweeper, health HealthChecker, cfg Config, log *logger.Logger) (*Scheduler, error) {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.HealthInterval == 0 {
		cfg.HealthInterval = 5 * time.Minute
	}
	if log == nil {
		log = logger.Nop()
	}

	opts := []gocron.SchedulerOption{
		gocron.WithLocation(cfg.Location),
		gocron.WithLogger(log),
	}
	if cfg.Clock != nil {
		opts = append(opts, gocron.WithClock(cfg.Clock))
	}

	s, err := gocron.NewScheduler(opts...)
	if err != nil {
		return nil, err
	}

	return &Scheduler{
		scheduler: s,
		promoter:  promoter,
		sweeper:   sweeper,
		health:    health,
		cfg:       cfg,
		log:       log,
	}, nil
}

// Start starts the scheduler and registers all jobs
func (s *Scheduler) Start() error {
	// Safety net for gauges whose triggered promotion failed
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(s.cfg.PromoteInterval),
		gocron.NewTask(s.promote),
		gocron.WithName("promote"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}

	if s.sweeper != nil && s.cfg.SweepInterval > 0 {
		_, err = s.scheduler.NewJob(
			gocron.DurationJob(s.cfg.SweepInterval),
			gocron.NewTask(s.sweep),
			gocron.WithName("lifecycle-sweep"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return err
		}
	}

	if s.health != nil {
		_, err = s.scheduler.NewJob(
			gocron.DurationJob(s.cfg.HealthInterval),
			gocron.NewTask(s.healthCheck),
			gocron.WithName("health-check"),
		)
		if err != nil {
			return err
		}
	}

	s.scheduler.Start()
	s.log.Info("Scheduler started",
		"promote_interval", s.cfg.PromoteInterval.String(),
		"sweep_interval", s.cfg.SweepInterval.String())
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() error {
	return s.scheduler.Shutdown()
}

func (s *Scheduler) promote() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	res, err := s.promoter.Promote(ctx, promotion.TriggerSchedule)
	if err != nil {
		s.log.Error("Scheduled promotion failed", "error", err)
		return
	}
	if res.Created > 0 || res.Failed > 0 {
		s.log.Info("Scheduled promotion finished", "created", res.Created, "skipped", res.Skipped, "failed", res.Failed)
	}
}

func (s *Scheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if _, err := s.sweeper.Sweep(ctx); err != nil {
		s.log.Error("Lifecycle sweep failed", "error", err)
	}
}

func (s *Scheduler) healthCheck() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.health.HealthCheck(ctx); err != nil {
		s.log.Warn("Health check failed - Ollama unreachable", "error", err)
	}
}

// PromoteNow runs the scheduled promotion job immediately
func (s *Scheduler) PromoteNow() {
	s.promote()
}

// SweepNow runs the lifecycle sweep immediately
func (s *Scheduler) SweepNow() {
	if s.sweeper != nil {
		s.sweep()
	}
}
