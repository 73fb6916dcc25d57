package promotion

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/mrwolf/ppl-server/internal/catalog"
	"github.com/mrwolf/ppl-server/internal/logger"
	"github.com/mrwolf/ppl-server/internal/models"
)

// DefaultThreshold applies to activity types without a min_attendees value
const DefaultThreshold = catalog.DefaultMinAttendees

// Triggers recorded on promotion runs
const (
	TriggerGauge    = "gauge"
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
)

const (
	leaseTTL        = 30 * time.Second
	describeTimeout = 60 * time.Second
	singleflightKey = "promote"
	passTimeout     = 2 * time.Minute
)

// Result summarises one promotion pass
type Result = models.PromotionResult

// Store is the persistence the engine needs
type Store interface {
	ListActivityTypes(ctx context.Context) ([]models.ActivityType, error)
	ActiveActivityTypeIDs(ctx context.Context) (map[string]bool, error)
	AllAggregateCounts(ctx context.Context) (map[string]models.GaugeCounts, error)
	CreateEvent(ctx context.Context, ev models.Event) (*models.Event, error)
	SetActivityTypeMetadata(ctx context.Context, id, description, imageRef string) error
	StartPromotionRun(ctx context.Context, trigger string) (int64, error)
	CompletePromotionRun(ctx context.Context, runID int64, created, failed int, errMsg string) error
}

// VenueResolver supplies the venue for an activity type's venue type
type VenueResolver interface {
	ForVenueType(ctx context.Context, venueType string) (string, bool, error)
}

// Describer generates a short description for a newly promoted activity
type Describer interface {
	DescribeActivity(ctx context.Context, displayName string) (string, error)
}

// Engine turns gauge aggregates into scheduled events
type Engine struct {
	store     Store
	venues    VenueResolver
	locker    Locker
	describer Describer
	clock     clockwork.Clock
	loc       *time.Location
	log       *logger.Logger

	group    singleflight.Group
	requests atomic.Int64
	bg       sync.WaitGroup
}

// Option configures an Engine
type Option func(*Engine)

func WithLocker(l Locker) Option {
	return func(e *Engine) { e.locker = l }
}

func WithDescriber(d Describer) Option {
	return func(e *Engine) { e.describer = d }
}

func WithClock(c clockwork.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithLocation sets the timezone events are scheduled in
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) { e.loc = loc }
}

func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

func NewEngine(store Store, venues VenueResolver, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		venues: venues,
		locker: NewLocalLocker(),
		clock:  clockwork.NewRealClock(),
		loc:    time.UTC,
		log:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type flight struct {
	result Result
	seq    int64
}

// Promote creates one pending_rsvp event for every activity type whose yes
// count has reached its threshold and which has no active event. Concurrent
// callers share a pass; a caller that arrives after a pass has loaded its
// data waits for the next one so its own gauges are always considered.
//
// The shared pass is detached from every caller's cancellation and bounded
// by passTimeout. A caller whose ctx ends stops waiting and gets ctx.Err()
// while the pass carries on for the others
func (e *Engine) Promote(ctx context.Context, trigger string) (Result, error) {
	seq := e.requests.Add(1)
	for {
		ch := e.group.DoChan(singleflightKey, func() (interface{}, error) {
			start := e.requests.Load()
			passCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), passTimeout)
			defer cancel()
			res, err := e.promote(passCtx, trigger)
			return flight{result: res, seq: start}, err
		})

		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case r := <-ch:
			f := r.Val.(flight)
			if r.Err != nil || f.seq >= seq {
				return f.result, r.Err
			}
		}
	}
}

func (e *Engine) promote(ctx context.Context, trigger string) (Result, error) {
	var res Result

	runID, err := e.store.StartPromotionRun(ctx, trigger)
	if err != nil {
		e.log.Warn("Recording promotion run failed", "error", err)
	}

	types, active, counts, err := e.load(ctx)
	if err != nil {
		e.finishRun(ctx, runID, res, err)
		return res, err
	}

	for _, at := range types {
		if active[at.ID] {
			continue
		}
		yes := counts[at.ID].Yes
		if yes < Threshold(at) {
			continue
		}

		ev, err := e.promoteOne(ctx, at, yes)
		switch {
		case errors.Is(err, models.ErrConflict):
			res.Skipped++
			e.log.Debug("Activity type already promoted elsewhere", "activity_type", at.Name)
		case err != nil:
			res.Failed++
			e.log.Error("Promoting activity type failed", "activity_type", at.Name, "error", err)
		default:
			res.Created++
			res.Events = append(res.Events, *ev)
			e.log.Info("Event promoted",
				"activity_type", at.Name,
				"event_id", ev.ID,
				"yes_count", yes,
				"scheduled_time", ev.ScheduledTime)
			if at.Description == "" {
				e.describe(at)
			}
		}
	}

	e.finishRun(ctx, runID, res, nil)
	return res, nil
}

func (e *Engine) load(ctx context.Context) ([]models.ActivityType, map[string]bool, map[string]models.GaugeCounts, error) {
	types, err := e.store.ListActivityTypes(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading activity types: %w", err)
	}
	active, err := e.store.ActiveActivityTypeIDs(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading active events: %w", err)
	}
	counts, err := e.store.AllAggregateCounts(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading gauge counts: %w", err)
	}
	return types, active, counts, nil
}

// promoteOne returns models.ErrConflict when another caller holds the lease
// or already created the active event
func (e *Engine) promoteOne(ctx context.Context, at models.ActivityType, yes int) (*models.Event, error) {
	release, ok, err := e.locker.Acquire(ctx, at.ID, leaseTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("lease for %s held: %w", at.Name, models.ErrConflict)
	}
	defer release()

	venueID, found, err := e.venues.ForVenueType(ctx, at.VenueType)
	if err != nil {
		return nil, fmt.Errorf("resolving venue: %w", err)
	}
	if !found {
		e.log.Warn("No venue for venue type", "activity_type", at.Name, "venue_type", at.VenueType)
	}

	scheduled, deadline := NextSlot(e.clock.Now(), e.loc)
	return e.store.CreateEvent(ctx, models.Event{
		ActivityTypeID: at.ID,
		Status:         models.StatusPendingRSVP,
		VenueID:        venueID,
		ScheduledTime:  &scheduled,
		RSVPDeadline:   &deadline,
		MatchReason:    MatchReason(yes, at.DisplayName),
	})
}

func (e *Engine) finishRun(ctx context.Context, runID int64, res Result, runErr error) {
	if runID == 0 {
		return
	}
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}
	if err := e.store.CompletePromotionRun(ctx, runID, res.Created, res.Failed, msg); err != nil {
		e.log.Warn("Completing promotion run failed", "run_id", runID, "error", err)
	}
}

// describe generates activity metadata in the background. It never affects
// the promotion that triggered it
func (e *Engine) describe(at models.ActivityType) {
	if e.describer == nil {
		return
	}
	e.bg.Add(1)
	go func() {
		defer e.bg.Done()
		defer func() {
			if r := recover(); r != nil {
				e.log.Error("Description job panicked", "activity_type", at.Name, "panic", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), describeTimeout)
		defer cancel()

		desc, err := e.describer.DescribeActivity(ctx, at.DisplayName)
		if err != nil {
			e.log.Warn("Describing activity failed", "activity_type", at.Name, "error", err)
			return
		}
		if err := e.store.SetActivityTypeMetadata(ctx, at.ID, desc, ""); err != nil {
			e.log.Warn("Storing activity description failed", "activity_type", at.Name, "error", err)
		}
	}()
}

// Wait blocks until background jobs started by Promote have finished
func (e *Engine) Wait() {
	e.bg.Wait()
}

// Threshold is the yes count at which an activity type is promoted
func Threshold(at models.ActivityType) int {
	if at.MinAttendees > 0 {
		return at.MinAttendees
	}
	return DefaultThreshold
}

// MatchReason is the audit string recorded on promoted events
func MatchReason(yes int, displayName string) string {
	if yes == 1 {
		return fmt.Sprintf("1 person interested in %s", displayName)
	}
	return fmt.Sprintf("%d people interested in %s", yes, displayName)
}
