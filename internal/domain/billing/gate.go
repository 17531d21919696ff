// Package billing decides which dates are still open for hours corrections.
//
// The current month is always open up to today. The previous month stays open
// through the grace day of the current month, after which it is billed and closed.
package billing

import (
	"fmt"
	"time"

	"github.com/garyjia/vendor-attendance/internal/domain/apperr"
	"github.com/garyjia/vendor-attendance/internal/domain/entity"
)

// DefaultGraceDay is the last day of the month on which the previous month can be edited
const DefaultGraceDay = 5

// Window is the editable range in force on a given day
type Window struct {
	Today                time.Time `json:"today"`
	CurrentMonthStart    time.Time `json:"current_month_start"`
	PreviousMonthStart   time.Time `json:"previous_month_start"`
	AllowedFrom          time.Time `json:"allowed_from"`
	AllowedTo            time.Time `json:"allowed_to"`
	CanEditPreviousMonth bool      `json:"can_edit_previous_month"`
	GraceDay             int       `json:"grace_day"`
}

// Contains reports whether date lies inside the window
func (w Window) Contains(date time.Time) bool {
	d := entity.NormalizeDate(date)
	return !d.Before(w.AllowedFrom) && !d.After(w.AllowedTo)
}

// Gate applies the billing cut-off rule
type Gate struct {
	graceDay int
}

// NewGate creates a gate; values outside 1..28 fall back to DefaultGraceDay
func NewGate(graceDay int) *Gate {
	if graceDay < 1 || graceDay > 28 {
		graceDay = DefaultGraceDay
	}
	return &Gate{graceDay: graceDay}
}

// GraceDay returns the configured cut-off day
func (g *Gate) GraceDay() int {
	return g.graceDay
}

// Window computes the editable range for the given today
func (g *Gate) Window(today time.Time) Window {
	today = entity.NormalizeDate(today)
	current := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	previous := current.AddDate(0, -1, 0)

	w := Window{
		Today:                today,
		CurrentMonthStart:    current,
		PreviousMonthStart:   previous,
		AllowedFrom:          current,
		AllowedTo:            today,
		CanEditPreviousMonth: today.Day() <= g.graceDay,
		GraceDay:             g.graceDay,
	}
	if w.CanEditPreviousMonth {
		w.AllowedFrom = previous
	}
	return w
}

// Check returns nil when date may be corrected on today, otherwise a
// *apperr.WindowClosedError describing the range that is open.
func (g *Gate) Check(date, today time.Time) error {
	w := g.Window(today)
	d := entity.NormalizeDate(date)

	var reason string
	switch {
	case d.After(w.Today):
		reason = "future dates cannot be corrected"
	case !d.Before(w.CurrentMonthStart):
		return nil
	case !d.Before(w.PreviousMonthStart):
		if w.CanEditPreviousMonth {
			return nil
		}
		reason = fmt.Sprintf("previous month closed after day %d", g.graceDay)
	default:
		reason = "month already billed"
	}

	return &apperr.WindowClosedError{
		Date:        d,
		AllowedFrom: w.AllowedFrom,
		AllowedTo:   w.AllowedTo,
		Reason:      reason,
	}
}
