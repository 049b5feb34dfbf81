package beds

import (
	"fmt"
	"time"

	"casework-backend/internal/parse"
)

// ScheduleKind classifies a scheduled checkout against today.
type ScheduleKind string

const (
	Overdue     ScheduleKind = "overdue"
	DueToday    ScheduleKind = "due-today"
	DueTomorrow ScheduleKind = "due-tomorrow"
	DueLater    ScheduleKind = "due-later"
)

// Schedule is the advisory checkout annotation of an occupied bed.
type Schedule struct {
	Kind ScheduleKind `json:"kind"`
	Days int          `json:"days"`
}

// ClassifyCheckout compares the scheduled checkout day with today's date in loc.
// Days counts whole calendar days overdue or remaining.
func ClassifyCheckout(now, scheduled time.Time, loc *time.Location) Schedule {
	today := parse.Day(now, loc)
	due := parse.Day(scheduled, loc)
	days := calendarDays(today, due)

	switch {
	case days < 0:
		return Schedule{Kind: Overdue, Days: -days}
	case days == 0:
		return Schedule{Kind: DueToday}
	case days == 1:
		return Schedule{Kind: DueTomorrow, Days: 1}
	}
	return Schedule{Kind: DueLater, Days: days}
}

// calendarDays counts whole days between the calendar dates of from and to.
func calendarDays(from, to time.Time) int {
	a := time.Date(from.Year(), from.Month(), from.Day(), 12, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 12, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// Label renders the annotation for display.
func (s Schedule) Label() string {
	switch s.Kind {
	case Overdue:
		if s.Days == 1 {
			return "Overdue by 1 day"
		}
		return fmt.Sprintf("Overdue by %d days", s.Days)
	case DueToday:
		return "Due today"
	case DueTomorrow:
		return "Due tomorrow"
	}
	return fmt.Sprintf("Due in %d days", s.Days)
}

// NeedsAttention reports whether staff should be reminded about the checkout.
func (s Schedule) NeedsAttention() bool {
	return s.Kind == Overdue || s.Kind == DueToday
}
