package service

import (
	"context"
	"time"

	"github.com/garyjia/vendor-attendance/internal/application/port"
	"github.com/garyjia/vendor-attendance/internal/domain/apperr"
	"github.com/garyjia/vendor-attendance/internal/domain/entity"
	"github.com/garyjia/vendor-attendance/pkg/utils"
)

// HolidayService is the admin surface over the holiday calendar
type HolidayService interface {
	Add(ctx context.Context, date time.Time, name, description string) (*entity.Holiday, error)
	Remove(ctx context.Context, date time.Time) error
	ListYear(ctx context.Context, year int) ([]*entity.Holiday, error)
}

type holidayServiceImpl struct {
	holidays port.HolidayRepository
	logger   Logger
}

// NewHolidayService creates a new HolidayService
func NewHolidayService(holidays port.HolidayRepository, logger Logger) HolidayService {
	return &holidayServiceImpl{holidays: holidays, logger: logger}
}

func (s *holidayServiceImpl) Add(ctx context.Context, date time.Time, name, description string) (*entity.Holiday, error) {
	name = utils.SanitizeString(name)
	if date.IsZero() {
		return nil, apperr.Validation("holiday date is required")
	}
	if name == "" {
		return nil, apperr.Validation("holiday name is required")
	}

	h := &entity.Holiday{
		Date:        entity.NormalizeDate(date),
		Name:        name,
		Description: utils.SanitizeString(description),
	}
	if err := s.holidays.Create(ctx, h); err != nil {
		logRejection(s.logger, "Failed to add holiday", err, "date", h.Date.Format(entity.DateLayout))
		return nil, err
	}
	s.logger.Info("Holiday added", "date", h.Date.Format(entity.DateLayout), "name", name)
	return h, nil
}

func (s *holidayServiceImpl) Remove(ctx context.Context, date time.Time) error {
	if err := s.holidays.DeleteByDate(ctx, date); err != nil {
		logRejection(s.logger, "Failed to remove holiday", err, "date", date.Format(entity.DateLayout))
		return err
	}
	s.logger.Info("Holiday removed", "date", date.Format(entity.DateLayout))
	return nil
}

func (s *holidayServiceImpl) ListYear(ctx context.Context, year int) ([]*entity.Holiday, error) {
	if year < 1900 || year > 9999 {
		return nil, apperr.Validation("year %d out of range", year)
	}
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	return s.holidays.ListBetween(ctx, from, to)
}
