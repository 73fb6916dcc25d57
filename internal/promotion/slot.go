package promotion

import "time"

// Events are held on Saturday afternoons; RSVPs close the evening before
const (
	eventHour    = 14
	deadlineHour = 18
)

// NextSlot returns the next Saturday at 14:00 in loc strictly after now, and
// the RSVP deadline at 18:00 on the Friday before it. On a Saturday the slot
// rolls to the following week
func NextSlot(now time.Time, loc *time.Location) (scheduled, deadline time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)

	days := (int(time.Saturday) - int(local.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}

	y, m, d := local.Date()
	scheduled = time.Date(y, m, d+days, eventHour, 0, 0, 0, loc)
	deadline = time.Date(y, m, d+days-1, deadlineHour, 0, 0, 0, loc)
	return scheduled, deadline
}
