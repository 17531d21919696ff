package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/garyjia/vendor-attendance/internal/application/port"
	"github.com/garyjia/vendor-attendance/internal/domain/apperr"
	"github.com/garyjia/vendor-attendance/internal/domain/entity"
	"go.uber.org/zap"
)

// HolidayRepository implements port.HolidayRepository
type HolidayRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHolidayRepository creates a new holiday repository
func NewHolidayRepository(db *sql.DB, logger *zap.Logger) *HolidayRepository {
	return &HolidayRepository{db: db, logger: logger}
}

// Create inserts a holiday; one holiday per date
func (r *HolidayRepository) Create(ctx context.Context, h *entity.Holiday) error {
	h.Date = entity.NormalizeDate(h.Date)
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}

	result, err := executor(ctx, r.db).ExecContext(ctx,
		`INSERT INTO holidays (holiday_date, name, description, created_at) VALUES (?, ?, ?, ?)`,
		formatDate(h.Date), h.Name, h.Description, h.CreatedAt)
	if isUniqueViolation(err) {
		return apperr.Validation("a holiday already exists on %s", formatDate(h.Date))
	}
	if err != nil {
		r.logger.Error("Failed to create holiday", zap.String("date", formatDate(h.Date)), zap.Error(err))
		return fmt.Errorf("failed to create holiday: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	h.ID = id
	return nil
}

// DeleteByDate removes the holiday on date
func (r *HolidayRepository) DeleteByDate(ctx context.Context, date time.Time) error {
	result, err := executor(ctx, r.db).ExecContext(ctx,
		`DELETE FROM holidays WHERE holiday_date = ?`, formatDate(date))
	if err != nil {
		return fmt.Errorf("failed to delete holiday: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperr.NotFound("holiday", formatDate(date))
	}
	return nil
}

// GetByDate returns nil, nil when the date is not a holiday
func (r *HolidayRepository) GetByDate(ctx context.Context, date time.Time) (*entity.Holiday, error) {
	h, err := scanHoliday(executor(ctx, r.db).QueryRowContext(ctx,
		`SELECT id, holiday_date, name, description, created_at FROM holidays WHERE holiday_date = ?`,
		formatDate(date)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get holiday", zap.String("date", formatDate(date)), zap.Error(err))
		return nil, fmt.Errorf("failed to get holiday: %w", err)
	}
	return h, nil
}

// ListBetween returns holidays in [from, to] ordered by date
func (r *HolidayRepository) ListBetween(ctx context.Context, from, to time.Time) ([]*entity.Holiday, error) {
	rows, err := executor(ctx, r.db).QueryContext(ctx, `
		SELECT id, holiday_date, name, description, created_at FROM holidays
		WHERE holiday_date BETWEEN ? AND ?
		ORDER BY holiday_date`,
		formatDate(from), formatDate(to))
	if err != nil {
		return nil, fmt.Errorf("failed to list holidays: %w", err)
	}
	defer rows.Close()

	var holidays []*entity.Holiday
	for rows.Next() {
		h, err := scanHoliday(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holiday: %w", err)
		}
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

func scanHoliday(sc scanner) (*entity.Holiday, error) {
	var h entity.Holiday
	var date string
	if err := sc.Scan(&h.ID, &date, &h.Name, &h.Description, &h.CreatedAt); err != nil {
		return nil, err
	}
	d, err := parseDate(date)
	if err != nil {
		return nil, err
	}
	h.Date = d
	return &h, nil
}

var _ port.HolidayRepository = (*HolidayRepository)(nil)
