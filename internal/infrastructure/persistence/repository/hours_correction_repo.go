package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/garyjia/vendor-attendance/internal/application/port"
	"github.com/garyjia/vendor-attendance/internal/domain/entity"
	"go.uber.org/zap"
)

// HoursCorrectionRepository implements port.HoursCorrectionRepository
type HoursCorrectionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHoursCorrectionRepository creates a new hours correction repository
func NewHoursCorrectionRepository(db *sql.DB, logger *zap.Logger) *HoursCorrectionRepository {
	return &HoursCorrectionRepository{db: db, logger: logger}
}

// Create inserts a correction
func (r *HoursCorrectionRepository) Create(ctx context.Context, c *entity.HoursCorrection) error {
	if c.CorrectedAt.IsZero() {
		c.CorrectedAt = time.Now().UTC()
	}

	result, err := executor(ctx, r.db).ExecContext(ctx, `
		INSERT INTO hours_corrections (
			vendor_id, work_date, old_hours, new_hours, old_source, reason, corrected_by, corrected_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.VendorID, formatDate(c.WorkDate), c.OldHours, c.NewHours, c.OldSource, c.Reason, c.CorrectedBy, c.CorrectedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create hours correction", zap.String("vendor_id", c.VendorID), zap.Error(err))
		return fmt.Errorf("failed to create hours correction: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	c.ID = id
	return nil
}

// ListByVendor returns a vendor's corrections ordered by work date
func (r *HoursCorrectionRepository) ListByVendor(ctx context.Context, vendorID string) ([]*entity.HoursCorrection, error) {
	rows, err := executor(ctx, r.db).QueryContext(ctx, `
		SELECT id, vendor_id, work_date, old_hours, new_hours, old_source, reason, corrected_by, corrected_at
		FROM hours_corrections
		WHERE vendor_id = ?
		ORDER BY work_date, id`, vendorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list hours corrections: %w", err)
	}
	defer rows.Close()

	var corrections []*entity.HoursCorrection
	for rows.Next() {
		var c entity.HoursCorrection
		var date string
		if err := rows.Scan(&c.ID, &c.VendorID, &date, &c.OldHours, &c.NewHours, &c.OldSource, &c.Reason, &c.CorrectedBy, &c.CorrectedAt); err != nil {
			return nil, fmt.Errorf("failed to scan hours correction: %w", err)
		}
		if c.WorkDate, err = parseDate(date); err != nil {
			return nil, err
		}
		corrections = append(corrections, &c)
	}
	return corrections, rows.Err()
}

var _ port.HoursCorrectionRepository = (*HoursCorrectionRepository)(nil)
