package port

import (
	"context"
	"time"

	"github.com/garyjia/vendor-attendance/internal/domain/entity"
)

// VendorRepository defines persistence operations for Vendor
type VendorRepository interface {
	// Create fails with a validation error if the vendor id is taken
	Create(ctx context.Context, vendor *entity.Vendor) error
	GetByID(ctx context.Context, vendorID string) (*entity.Vendor, error)
	Update(ctx context.Context, vendor *entity.Vendor) error
	SetActive(ctx context.Context, vendorID string, active bool) error
	ListActive(ctx context.Context) ([]*entity.Vendor, error)
	ListByManager(ctx context.Context, managerID string) ([]*entity.Vendor, error)
}

// ManagerRepository defines persistence operations for Manager
type ManagerRepository interface {
	Create(ctx context.Context, manager *entity.Manager) error
	GetByID(ctx context.Context, managerID string) (*entity.Manager, error)
	List(ctx context.Context) ([]*entity.Manager, error)
}

// DailyStatusRepository defines persistence operations for DailyStatus.
// (vendor_id, status_date) is unique; a second Create for the same key
// returns a validation error.
type DailyStatusRepository interface {
	Create(ctx context.Context, status *entity.DailyStatus) error
	GetByID(ctx context.Context, id int64) (*entity.DailyStatus, error)
	GetByVendorAndDate(ctx context.Context, vendorID string, date time.Time) (*entity.DailyStatus, error)

	// UpdatePending overwrites the vendor-editable fields while the record is
	// still PENDING; returns apperr.ErrStale if it no longer is.
	UpdatePending(ctx context.Context, status *entity.DailyStatus) error

	// Decide moves a PENDING record to a terminal approval status;
	// returns apperr.ErrStale if the record is no longer PENDING.
	Decide(ctx context.Context, id int64, decision entity.ApprovalStatus, approvedBy string, at time.Time) error

	UpdateHours(ctx context.Context, id int64, hours float64) error
	ListByVendor(ctx context.Context, vendorID string, from, to time.Time) ([]*entity.DailyStatus, error)
}

// SwipeRecordRepository defines persistence operations for SwipeRecord
type SwipeRecordRepository interface {
	// Upsert inserts or replaces the row for (vendor_id, attendance_date).
	// It reports whether a new row was created.
	Upsert(ctx context.Context, rec *entity.SwipeRecord) (bool, error)
	GetByVendorAndDate(ctx context.Context, vendorID string, date time.Time) (*entity.SwipeRecord, error)
}

// MismatchRepository defines persistence operations for MismatchRecord.
// (vendor_id, mismatch_date) is unique.
type MismatchRepository interface {
	Create(ctx context.Context, rec *entity.MismatchRecord) error
	GetByID(ctx context.Context, id int64) (*entity.MismatchRecord, error)
	GetByVendorAndDate(ctx context.Context, vendorID string, date time.Time) (*entity.MismatchRecord, error)

	// UpdateSignals rewrites only the detector-owned columns
	// (web_status, swipe_status, mismatch_type, severity, details).
	UpdateSignals(ctx context.Context, rec *entity.MismatchRecord) error

	// SetExplanation stores the vendor explanation while PENDING; apperr.ErrStale otherwise
	SetExplanation(ctx context.Context, id int64, explanation string, at time.Time) error

	// Decide moves a PENDING record to a terminal state; apperr.ErrStale otherwise
	Decide(ctx context.Context, id int64, decision entity.ApprovalStatus, approvedBy, comments string, at time.Time) error

	ListByVendors(ctx context.Context, vendorIDs []string) ([]*entity.MismatchRecord, error)
}

// HolidayRepository defines persistence operations for Holiday
type HolidayRepository interface {
	// Create fails with a validation error if the date already has a holiday
	Create(ctx context.Context, holiday *entity.Holiday) error
	DeleteByDate(ctx context.Context, date time.Time) error
	GetByDate(ctx context.Context, date time.Time) (*entity.Holiday, error)
	ListBetween(ctx context.Context, from, to time.Time) ([]*entity.Holiday, error)
}

// AuditLogRepository is append-only
type AuditLogRepository interface {
	Create(ctx context.Context, log *entity.AuditLog) error
	ListByRecord(ctx context.Context, tableName string, recordID int64) ([]*entity.AuditLog, error)
}

// HoursCorrectionRepository defines persistence operations for HoursCorrection
type HoursCorrectionRepository interface {
	Create(ctx context.Context, correction *entity.HoursCorrection) error
	ListByVendor(ctx context.Context, vendorID string) ([]*entity.HoursCorrection, error)
}

// TransactionManager runs fn inside a transaction carried by ctx
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// HolidayCalendar answers working-day questions for the detector and the billing gate
type HolidayCalendar interface {
	IsHoliday(ctx context.Context, date time.Time) (bool, error)
	IsWorkingDay(ctx context.Context, date time.Time) (bool, error)
	WorkingDaysBetween(ctx context.Context, start, end time.Time) (int, error)
}
