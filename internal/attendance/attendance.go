package attendance

import (
	"context"
	"fmt"

	"github.com/mrwolf/ppl-server/internal/lifecycle"
	"github.com/mrwolf/ppl-server/internal/models"
)

// Store is the persistence the aggregator needs
type Store interface {
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	UpsertRSVP(ctx context.Context, userID, eventID, response string) error
	TallyRSVPs(ctx context.Context, eventID string) (models.RSVPTally, error)
	GetRSVP(ctx context.Context, userID, eventID string) (string, error)
	CountAttendedEvents(ctx context.Context, userID string) (int, error)
}

// Aggregator records RSVPs and answers attendance questions
type Aggregator struct {
	store Store
}

func New(store Store) *Aggregator {
	return &Aggregator{store: store}
}

// UpsertRSVP records userID's response for an active event. Later responses
// overwrite earlier ones
func (a *Aggregator) UpsertRSVP(ctx context.Context, userID, eventID, response string) error {
	if !models.ValidRSVPResponse(response) {
		return models.NewValidationError("response", "must be can_go or unavailable")
	}

	ev, err := a.store.GetEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if !lifecycle.IsActive(ev.Status) {
		return models.NewValidationError("event", fmt.Sprintf("event is %s and no longer accepts RSVPs", ev.Status))
	}

	return a.store.UpsertRSVP(ctx, userID, eventID, response)
}

// AttendeeCount counts users who can go
func (a *Aggregator) AttendeeCount(ctx context.Context, eventID string) (int, error) {
	t, err := a.store.TallyRSVPs(ctx, eventID)
	if err != nil {
		return 0, err
	}
	return t.CanGo, nil
}

func (a *Aggregator) Tally(ctx context.Context, eventID string) (models.RSVPTally, error) {
	return a.store.TallyRSVPs(ctx, eventID)
}

// Response returns userID's current response for an event, or nil
func (a *Aggregator) Response(ctx context.Context, userID, eventID string) (*string, error) {
	r, err := a.store.GetRSVP(ctx, userID, eventID)
	if err != nil || r == "" {
		return nil, err
	}
	return &r, nil
}

// AttendedCount counts completed events the user said they could go to
func (a *Aggregator) AttendedCount(ctx context.Context, userID string) (int, error) {
	return a.store.CountAttendedEvents(ctx, userID)
}
