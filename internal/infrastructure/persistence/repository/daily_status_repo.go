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

const statusColumns = `id, vendor_id, status_date, status, half_day_session, location,
	in_time, out_time, total_hours, comments, approval_status, submitted_at,
	approved_by, approved_at, created_at, updated_at`

// DailyStatusRepository implements port.DailyStatusRepository
type DailyStatusRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDailyStatusRepository creates a new daily status repository
func NewDailyStatusRepository(db *sql.DB, logger *zap.Logger) *DailyStatusRepository {
	return &DailyStatusRepository{db: db, logger: logger}
}

// Create inserts a status. A second row for the same (vendor, date) is a validation error.
func (r *DailyStatusRepository) Create(ctx context.Context, s *entity.DailyStatus) error {
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now
	if s.SubmittedAt.IsZero() {
		s.SubmittedAt = now
	}

	result, err := executor(ctx, r.db).ExecContext(ctx, `
		INSERT INTO daily_statuses (
			vendor_id, status_date, status, half_day_session, location,
			in_time, out_time, total_hours, comments, approval_status, submitted_at,
			approved_by, approved_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.VendorID, formatDate(s.StatusDate), s.Status, s.HalfDaySession, s.Location,
		nullableTime(s.InTime), nullableTime(s.OutTime), s.TotalHours, s.Comments, s.ApprovalStatus, s.SubmittedAt,
		nullableString(s.ApprovedBy), nullableTime(s.ApprovedAt), s.CreatedAt, s.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return apperr.Validation("a daily status already exists for vendor %s on %s", s.VendorID, formatDate(s.StatusDate))
	}
	if isForeignKeyViolation(err) {
		return apperr.NotFound("vendor", s.VendorID)
	}
	if err != nil {
		r.logger.Error("Failed to create daily status",
			zap.String("vendor_id", s.VendorID),
			zap.String("date", formatDate(s.StatusDate)),
			zap.Error(err))
		return fmt.Errorf("failed to create daily status: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	s.ID = id
	return nil
}

// GetByID returns nil, nil when no row matches
func (r *DailyStatusRepository) GetByID(ctx context.Context, id int64) (*entity.DailyStatus, error) {
	return r.getOne(ctx, `SELECT `+statusColumns+` FROM daily_statuses WHERE id = ?`, id)
}

// GetByVendorAndDate looks a status up by its natural key
func (r *DailyStatusRepository) GetByVendorAndDate(ctx context.Context, vendorID string, date time.Time) (*entity.DailyStatus, error) {
	return r.getOne(ctx,
		`SELECT `+statusColumns+` FROM daily_statuses WHERE vendor_id = ? AND status_date = ?`,
		vendorID, formatDate(date))
}

// UpdatePending overwrites vendor-editable fields if the row is still PENDING
func (r *DailyStatusRepository) UpdatePending(ctx context.Context, s *entity.DailyStatus) error {
	s.UpdatedAt = time.Now().UTC()

	result, err := executor(ctx, r.db).ExecContext(ctx, `
		UPDATE daily_statuses
		SET status = ?, half_day_session = ?, location = ?, in_time = ?, out_time = ?,
			total_hours = ?, comments = ?, submitted_at = ?, updated_at = ?
		WHERE id = ? AND approval_status = 'PENDING'`,
		s.Status, s.HalfDaySession, s.Location, nullableTime(s.InTime), nullableTime(s.OutTime),
		s.TotalHours, s.Comments, s.SubmittedAt, s.UpdatedAt,
		s.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update daily status", zap.Int64("id", s.ID), zap.Error(err))
		return fmt.Errorf("failed to update daily status: %w", err)
	}
	return requireOneRow(result, "daily status", s.ID)
}

// Decide records a manager decision on a PENDING row
func (r *DailyStatusRepository) Decide(ctx context.Context, id int64, decision entity.ApprovalStatus, approvedBy string, at time.Time) error {
	result, err := executor(ctx, r.db).ExecContext(ctx, `
		UPDATE daily_statuses
		SET approval_status = ?, approved_by = ?, approved_at = ?, updated_at = ?
		WHERE id = ? AND approval_status = 'PENDING'`,
		decision, approvedBy, at, at, id,
	)
	if err != nil {
		r.logger.Error("Failed to decide daily status", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to decide daily status: %w", err)
	}
	return requireOneRow(result, "daily status", id)
}

// UpdateHours sets total_hours regardless of approval state (billing corrections)
func (r *DailyStatusRepository) UpdateHours(ctx context.Context, id int64, hours float64) error {
	_, err := executor(ctx, r.db).ExecContext(ctx,
		`UPDATE daily_statuses SET total_hours = ?, updated_at = ? WHERE id = ?`,
		hours, time.Now().UTC(), id)
	if err != nil {
		r.logger.Error("Failed to update hours", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to update hours: %w", err)
	}
	return nil
}

// ListByVendor returns a vendor's statuses in [from, to] ordered by date
func (r *DailyStatusRepository) ListByVendor(ctx context.Context, vendorID string, from, to time.Time) ([]*entity.DailyStatus, error) {
	return r.list(ctx, `
		SELECT `+statusColumns+` FROM daily_statuses
		WHERE vendor_id = ? AND status_date BETWEEN ? AND ?
		ORDER BY status_date`,
		vendorID, formatDate(from), formatDate(to))
}

func (r *DailyStatusRepository) getOne(ctx context.Context, query string, args ...interface{}) (*entity.DailyStatus, error) {
	s, err := scanStatus(executor(ctx, r.db).QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get daily status", zap.Error(err))
		return nil, fmt.Errorf("failed to get daily status: %w", err)
	}
	return s, nil
}

func (r *DailyStatusRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.DailyStatus, error) {
	rows, err := executor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list daily statuses", zap.Error(err))
		return nil, fmt.Errorf("failed to list daily statuses: %w", err)
	}
	defer rows.Close()

	var statuses []*entity.DailyStatus
	for rows.Next() {
		s, err := scanStatus(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily status: %w", err)
		}
		statuses = append(statuses, s)
	}
	return statuses, rows.Err()
}

func scanStatus(sc scanner) (*entity.DailyStatus, error) {
	var s entity.DailyStatus
	var date string
	var inTime, outTime, approvedAt sql.NullTime
	var approvedBy sql.NullString

	if err := sc.Scan(
		&s.ID, &s.VendorID, &date, &s.Status, &s.HalfDaySession, &s.Location,
		&inTime, &outTime, &s.TotalHours, &s.Comments, &s.ApprovalStatus, &s.SubmittedAt,
		&approvedBy, &approvedAt, &s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return nil, err
	}

	d, err := parseDate(date)
	if err != nil {
		return nil, err
	}
	s.StatusDate = d
	s.InTime = timePtr(inTime)
	s.OutTime = timePtr(outTime)
	s.ApprovedBy = stringPtr(approvedBy)
	s.ApprovedAt = timePtr(approvedAt)
	return &s, nil
}

var _ port.DailyStatusRepository = (*DailyStatusRepository)(nil)
