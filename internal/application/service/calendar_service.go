package service

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/vendor-attendance/internal/application/port"
	"github.com/garyjia/vendor-attendance/internal/domain/entity"
)

// CalendarService implements port.HolidayCalendar over the holiday table
type CalendarService struct {
	holidays port.HolidayRepository
}

// NewCalendarService creates a new CalendarService
func NewCalendarService(holidays port.HolidayRepository) *CalendarService {
	return &CalendarService{holidays: holidays}
}

// IsHoliday reports whether date is a recorded holiday
func (c *CalendarService) IsHoliday(ctx context.Context, date time.Time) (bool, error) {
	h, err := c.holidays.GetByDate(ctx, entity.NormalizeDate(date))
	if err != nil {
		return false, fmt.Errorf("lookup holiday: %w", err)
	}
	return h != nil, nil
}

// IsWorkingDay reports whether date is neither a weekend nor a holiday
func (c *CalendarService) IsWorkingDay(ctx context.Context, date time.Time) (bool, error) {
	if entity.IsWeekend(date) {
		return false, nil
	}
	holiday, err := c.IsHoliday(ctx, date)
	if err != nil {
		return false, err
	}
	return !holiday, nil
}

// WorkingDaysBetween counts working days in [start, end], both inclusive.
// It returns 0 when end is before start.
func (c *CalendarService) WorkingDaysBetween(ctx context.Context, start, end time.Time) (int, error) {
	start, end = entity.NormalizeDate(start), entity.NormalizeDate(end)
	if end.Before(start) {
		return 0, nil
	}

	holidays, err := c.holidays.ListBetween(ctx, start, end)
	if err != nil {
		return 0, fmt.Errorf("list holidays: %w", err)
	}
	off := make(map[time.Time]bool, len(holidays))
	for _, h := range holidays {
		off[entity.NormalizeDate(h.Date)] = true
	}

	count := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if !entity.IsWeekend(d) && !off[d] {
			count++
		}
	}
	return count, nil
}

var _ port.HolidayCalendar = (*CalendarService)(nil)
