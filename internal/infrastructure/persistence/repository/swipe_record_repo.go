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

const swipeColumns = `id, vendor_id, attendance_date, login_time, logout_time, status_code,
	total_hours, shift_code, extra_hours, imported_at`

// SwipeRecordRepository implements port.SwipeRecordRepository
type SwipeRecordRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSwipeRecordRepository creates a new swipe record repository
func NewSwipeRecordRepository(db *sql.DB, logger *zap.Logger) *SwipeRecordRepository {
	return &SwipeRecordRepository{db: db, logger: logger}
}

// Upsert inserts the row or replaces the existing one for the same (vendor, date).
// A corrective re-import therefore overwrites every imported field.
func (r *SwipeRecordRepository) Upsert(ctx context.Context, rec *entity.SwipeRecord) (bool, error) {
	if rec.ImportedAt.IsZero() {
		rec.ImportedAt = time.Now().UTC()
	}

	existing, err := r.GetByVendorAndDate(ctx, rec.VendorID, rec.AttendanceDate)
	if err != nil {
		return false, err
	}

	exec := executor(ctx, r.db)
	if existing != nil {
		_, err := exec.ExecContext(ctx, `
			UPDATE swipe_records
			SET login_time = ?, logout_time = ?, status_code = ?, total_hours = ?,
				shift_code = ?, extra_hours = ?, imported_at = ?
			WHERE id = ?`,
			nullableTime(rec.LoginTime), nullableTime(rec.LogoutTime), rec.StatusCode, rec.TotalHours,
			rec.ShiftCode, rec.ExtraHours, rec.ImportedAt,
			existing.ID,
		)
		if err != nil {
			r.logger.Error("Failed to update swipe record", zap.Int64("id", existing.ID), zap.Error(err))
			return false, fmt.Errorf("failed to update swipe record: %w", err)
		}
		rec.ID = existing.ID
		return false, nil
	}

	result, err := exec.ExecContext(ctx, `
		INSERT INTO swipe_records (
			vendor_id, attendance_date, login_time, logout_time, status_code,
			total_hours, shift_code, extra_hours, imported_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.VendorID, formatDate(rec.AttendanceDate), nullableTime(rec.LoginTime), nullableTime(rec.LogoutTime), rec.StatusCode,
		rec.TotalHours, rec.ShiftCode, rec.ExtraHours, rec.ImportedAt,
	)
	if err != nil {
		r.logger.Error("Failed to insert swipe record",
			zap.String("vendor_id", rec.VendorID),
			zap.String("date", formatDate(rec.AttendanceDate)),
			zap.Error(err))
		return false, fmt.Errorf("failed to insert swipe record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return false, fmt.Errorf("failed to get last insert id: %w", err)
	}
	rec.ID = id
	return true, nil
}

// GetByVendorAndDate returns nil, nil when the vendor has no swipe row for the date
func (r *SwipeRecordRepository) GetByVendorAndDate(ctx context.Context, vendorID string, date time.Time) (*entity.SwipeRecord, error) {
	row := executor(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+swipeColumns+` FROM swipe_records WHERE vendor_id = ? AND attendance_date = ?`,
		vendorID, formatDate(date))

	rec, err := scanSwipe(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get swipe record", zap.String("vendor_id", vendorID), zap.Error(err))
		return nil, fmt.Errorf("failed to get swipe record: %w", err)
	}
	return rec, nil
}

func scanSwipe(sc scanner) (*entity.SwipeRecord, error) {
	var rec entity.SwipeRecord
	var date string
	var login, logout sql.NullTime

	if err := sc.Scan(
		&rec.ID, &rec.VendorID, &date, &login, &logout, &rec.StatusCode,
		&rec.TotalHours, &rec.ShiftCode, &rec.ExtraHours, &rec.ImportedAt,
	); err != nil {
		return nil, err
	}

	d, err := parseDate(date)
	if err != nil {
		return nil, err
	}
	rec.AttendanceDate = d
	rec.LoginTime = timePtr(login)
	rec.LogoutTime = timePtr(logout)
	return &rec, nil
}

var _ port.SwipeRecordRepository = (*SwipeRecordRepository)(nil)
