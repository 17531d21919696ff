package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/vendor-attendance/internal/application/port"
	"github.com/garyjia/vendor-attendance/internal/domain/apperr"
	"github.com/garyjia/vendor-attendance/internal/domain/entity"
	"go.uber.org/zap"
)

const mismatchColumns = `id, vendor_id, mismatch_date, web_status, swipe_status, mismatch_type,
	severity, details, vendor_explanation, explained_at, manager_approval, manager_comments,
	approved_by, approved_at, created_at, updated_at`

// MismatchRepository implements port.MismatchRepository
type MismatchRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMismatchRepository creates a new mismatch repository
func NewMismatchRepository(db *sql.DB, logger *zap.Logger) *MismatchRepository {
	return &MismatchRepository{db: db, logger: logger}
}

// Create inserts a mismatch. A second row for the same (vendor, date) is a validation error.
func (r *MismatchRepository) Create(ctx context.Context, m *entity.MismatchRecord) error {
	now := time.Now().UTC()
	m.CreatedAt, m.UpdatedAt = now, now
	if m.ManagerApproval == "" {
		m.ManagerApproval = entity.ApprovalPending
	}

	result, err := executor(ctx, r.db).ExecContext(ctx, `
		INSERT INTO mismatch_records (
			vendor_id, mismatch_date, web_status, swipe_status, mismatch_type, severity, details,
			vendor_explanation, explained_at, manager_approval, manager_comments,
			approved_by, approved_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.VendorID, formatDate(m.MismatchDate), m.WebStatus, m.SwipeStatus, m.MismatchType, m.Severity, m.Details,
		m.VendorExplanation, nullableTime(m.ExplainedAt), m.ManagerApproval, m.ManagerComments,
		nullableString(m.ApprovedBy), nullableTime(m.ApprovedAt), m.CreatedAt, m.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return apperr.Validation("a mismatch already exists for vendor %s on %s", m.VendorID, formatDate(m.MismatchDate))
	}
	if err != nil {
		r.logger.Error("Failed to create mismatch",
			zap.String("vendor_id", m.VendorID),
			zap.String("date", formatDate(m.MismatchDate)),
			zap.Error(err))
		return fmt.Errorf("failed to create mismatch: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	m.ID = id
	return nil
}

// GetByID returns nil, nil when no row matches
func (r *MismatchRepository) GetByID(ctx context.Context, id int64) (*entity.MismatchRecord, error) {
	return r.getOne(ctx, `SELECT `+mismatchColumns+` FROM mismatch_records WHERE id = ?`, id)
}

// GetByVendorAndDate looks a mismatch up by its natural key
func (r *MismatchRepository) GetByVendorAndDate(ctx context.Context, vendorID string, date time.Time) (*entity.MismatchRecord, error) {
	return r.getOne(ctx,
		`SELECT `+mismatchColumns+` FROM mismatch_records WHERE vendor_id = ? AND mismatch_date = ?`,
		vendorID, formatDate(date))
}

// UpdateSignals rewrites only the detector-owned columns; review columns are untouched
func (r *MismatchRepository) UpdateSignals(ctx context.Context, m *entity.MismatchRecord) error {
	m.UpdatedAt = time.Now().UTC()

	_, err := executor(ctx, r.db).ExecContext(ctx, `
		UPDATE mismatch_records
		SET web_status = ?, swipe_status = ?, mismatch_type = ?, severity = ?, details = ?, updated_at = ?
		WHERE id = ?`,
		m.WebStatus, m.SwipeStatus, m.MismatchType, m.Severity, m.Details, m.UpdatedAt,
		m.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update mismatch signals", zap.Int64("id", m.ID), zap.Error(err))
		return fmt.Errorf("failed to update mismatch signals: %w", err)
	}
	return nil
}

// SetExplanation stores the vendor's explanation while the mismatch is PENDING
func (r *MismatchRepository) SetExplanation(ctx context.Context, id int64, explanation string, at time.Time) error {
	result, err := executor(ctx, r.db).ExecContext(ctx, `
		UPDATE mismatch_records
		SET vendor_explanation = ?, explained_at = ?, updated_at = ?
		WHERE id = ? AND manager_approval = 'PENDING'`,
		explanation, at, at, id,
	)
	if err != nil {
		r.logger.Error("Failed to set explanation", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to set explanation: %w", err)
	}
	return requireOneRow(result, "mismatch", id)
}

// Decide records the manager's terminal decision on a PENDING mismatch
func (r *MismatchRepository) Decide(ctx context.Context, id int64, decision entity.ApprovalStatus, approvedBy, comments string, at time.Time) error {
	result, err := executor(ctx, r.db).ExecContext(ctx, `
		UPDATE mismatch_records
		SET manager_approval = ?, manager_comments = ?, approved_by = ?, approved_at = ?, updated_at = ?
		WHERE id = ? AND manager_approval = 'PENDING'`,
		decision, comments, approvedBy, at, at, id,
	)
	if err != nil {
		r.logger.Error("Failed to decide mismatch", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to decide mismatch: %w", err)
	}
	return requireOneRow(result, "mismatch", id)
}

// ListByVendors returns mismatches for the given vendors, newest date first
func (r *MismatchRepository) ListByVendors(ctx context.Context, vendorIDs []string) ([]*entity.MismatchRecord, error) {
	if len(vendorIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(vendorIDs)), ",")
	args := make([]interface{}, len(vendorIDs))
	for i, id := range vendorIDs {
		args[i] = id
	}

	rows, err := executor(ctx, r.db).QueryContext(ctx, `
		SELECT `+mismatchColumns+` FROM mismatch_records
		WHERE vendor_id IN (`+placeholders+`)
		ORDER BY mismatch_date DESC, vendor_id`, args...)
	if err != nil {
		r.logger.Error("Failed to list mismatches", zap.Error(err))
		return nil, fmt.Errorf("failed to list mismatches: %w", err)
	}
	defer rows.Close()

	var records []*entity.MismatchRecord
	for rows.Next() {
		m, err := scanMismatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mismatch: %w", err)
		}
		records = append(records, m)
	}
	return records, rows.Err()
}

func (r *MismatchRepository) getOne(ctx context.Context, query string, args ...interface{}) (*entity.MismatchRecord, error) {
	m, err := scanMismatch(executor(ctx, r.db).QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get mismatch", zap.Error(err))
		return nil, fmt.Errorf("failed to get mismatch: %w", err)
	}
	return m, nil
}

func scanMismatch(sc scanner) (*entity.MismatchRecord, error) {
	var m entity.MismatchRecord
	var date string
	var explainedAt, approvedAt sql.NullTime
	var approvedBy sql.NullString

	if err := sc.Scan(
		&m.ID, &m.VendorID, &date, &m.WebStatus, &m.SwipeStatus, &m.MismatchType,
		&m.Severity, &m.Details, &m.VendorExplanation, &explainedAt, &m.ManagerApproval, &m.ManagerComments,
		&approvedBy, &approvedAt, &m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		return nil, err
	}

	d, err := parseDate(date)
	if err != nil {
		return nil, err
	}
	m.MismatchDate = d
	m.ExplainedAt = timePtr(explainedAt)
	m.ApprovedBy = stringPtr(approvedBy)
	m.ApprovedAt = timePtr(approvedAt)
	return &m, nil
}

var _ port.MismatchRepository = (*MismatchRepository)(nil)
