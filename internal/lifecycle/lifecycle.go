package lifecycle

import (
	"errors"
	"fmt"

	"github.com/mrwolf/ppl-server/internal/models"
)

// ErrInvalidTransition is returned for a status change the state machine
// does not allow
var ErrInvalidTransition = errors.New("invalid status transition")

var transitions = map[string][]string{
	models.StatusGauging:     {models.StatusPendingRSVP, models.StatusCancelled},
	models.StatusPendingRSVP: {models.StatusConfirmed, models.StatusCancelled},
	models.StatusConfirmed:   {models.StatusCompleted, models.StatusCancelled},
}

// IsActive reports whether an event in status blocks another promotion of
// its activity type
func IsActive(status string) bool {
	return status == models.StatusPendingRSVP || status == models.StatusConfirmed
}

// IsTerminal reports whether no transition leaves status
func IsTerminal(status string) bool {
	return status == models.StatusCompleted || status == models.StatusCancelled
}

// ValidStatus reports whether status is a known event status
func ValidStatus(status string) bool {
	switch status {
	case models.StatusGauging, models.StatusPendingRSVP, models.StatusConfirmed,
		models.StatusCompleted, models.StatusCancelled:
		return true
	}
	return false
}

func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Validate returns ErrInvalidTransition (wrapped with both statuses) unless
// from -> to is allowed
func Validate(from, to string) error {
	if !ValidStatus(to) {
		return models.NewValidationError("status", fmt.Sprintf("unknown status %q", to))
	}
	if IsTerminal(from) {
		return fmt.Errorf("event is already %s: %w", from, ErrInvalidTransition)
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%s -> %s: %w", from, to, ErrInvalidTransition)
	}
	return nil
}
