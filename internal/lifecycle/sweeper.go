package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/mrwolf/ppl-server/internal/catalog"
	"github.com/mrwolf/ppl-server/internal/logger"
	"github.com/mrwolf/ppl-server/internal/models"
)

// Store is the persistence the lifecycle manager needs
type Store interface {
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	GetActivityType(ctx context.Context, id string) (*models.ActivityType, error)
	UpdateEventStatus(ctx context.Context, id, from, to string) error
	EventsDue(ctx context.Context, status, column string, t time.Time) ([]models.Event, error)
	TallyRSVPs(ctx context.Context, eventID string) (models.RSVPTally, error)
}

// Manager applies status transitions to stored events
type Manager struct {
	store Store
	clock clockwork.Clock
	log   *logger.Logger
}

func NewManager(store Store, clock clockwork.Clock, log *logger.Logger) *Manager {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Manager{store: store, clock: clock, log: log}
}

// Transition moves an event to status to. The write is conditional on the
// status read here, so a concurrent transition yields models.ErrConflict
func (m *Manager) Transition(ctx context.Context, eventID, to string) (*models.Event, error) {
	ev, err := m.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := Validate(ev.Status, to); err != nil {
		return nil, err
	}
	if err := m.store.UpdateEventStatus(ctx, eventID, ev.Status, to); err != nil {
		return nil, err
	}

	m.log.Info("Event status changed", "event_id", eventID, "from", ev.Status, "to", to)
	ev.Status = to
	return ev, nil
}

// SweepResult counts the transitions one sweep applied
type SweepResult struct {
	Confirmed int
	Cancelled int
	Completed int
	Failed    int
}

// Sweep closes RSVP windows and completes past events. Events whose RSVP
// deadline has passed become confirmed when enough people can go and
// cancelled otherwise; confirmed events whose time has passed become
// completed. Per-event failures are logged and counted, never returned
func (m *Manager) Sweep(ctx context.Context) (SweepResult, error) {
	now := m.clock.Now()

	closing, err := m.store.EventsDue(ctx, models.StatusPendingRSVP, "rsvp_deadline", now)
	if err != nil {
		return SweepResult{}, fmt.Errorf("loading events past deadline: %w", err)
	}
	finished, err := m.store.EventsDue(ctx, models.StatusConfirmed, "scheduled_time", now)
	if err != nil {
		return SweepResult{}, fmt.Errorf("loading finished events: %w", err)
	}

	outcomes := make([]string, len(closing)+len(finished))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for i, ev := range closing {
		i, ev := i, ev
		g.Go(func() error {
			outcomes[i] = m.closeRSVP(gctx, ev)
			return nil
		})
	}
	for i, ev := range finished {
		i, ev := i+len(closing), ev
		g.Go(func() error {
			outcomes[i] = m.apply(gctx, ev, models.StatusCompleted)
			return nil
		})
	}
	_ = g.Wait()

	var res SweepResult
	for _, o := range outcomes {
		switch o {
		case models.StatusConfirmed:
			res.Confirmed++
		case models.StatusCancelled:
			res.Cancelled++
		case models.StatusCompleted:
			res.Completed++
		case "":
			res.Failed++
		}
	}
	if len(outcomes) > 0 {
		m.log.Info("Lifecycle sweep finished",
			"confirmed", res.Confirmed, "cancelled", res.Cancelled,
			"completed", res.Completed, "failed", res.Failed)
	}
	return res, nil
}

func (m *Manager) closeRSVP(ctx context.Context, ev models.Event) string {
	tally, err := m.store.TallyRSVPs(ctx, ev.ID)
	if err != nil {
		m.log.Error("Tallying RSVPs failed", "event_id", ev.ID, "error", err)
		return ""
	}

	min := catalog.DefaultMinAttendees
	at, err := m.store.GetActivityType(ctx, ev.ActivityTypeID)
	if err != nil {
		m.log.Warn("Activity type lookup failed, using default minimum", "event_id", ev.ID, "error", err)
	} else if at.MinAttendees > 0 {
		min = at.MinAttendees
	}

	to := models.StatusCancelled
	if tally.CanGo >= min {
		to = models.StatusConfirmed
	}
	return m.apply(ctx, ev, to)
}

// apply returns the new status, "skipped" when a concurrent writer got there
// first, or "" on failure
func (m *Manager) apply(ctx context.Context, ev models.Event, to string) string {
	err := m.store.UpdateEventStatus(ctx, ev.ID, ev.Status, to)
	switch {
	case errors.Is(err, models.ErrConflict):
		m.log.Debug("Event changed concurrently, skipping", "event_id", ev.ID)
		return "skipped"
	case err != nil:
		m.log.Error("Event transition failed", "event_id", ev.ID, "to", to, "error", err)
		return ""
	}
	m.log.Info("Event status changed", "event_id", ev.ID, "from", ev.Status, "to", to)
	return to
}
