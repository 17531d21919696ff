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

const vendorColumns = `vendor_id, name, department, company, manager_id, location, band, active, created_at, updated_at`

// VendorRepository implements port.VendorRepository
type VendorRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewVendorRepository creates a new vendor repository
func NewVendorRepository(db *sql.DB, logger *zap.Logger) *VendorRepository {
	return &VendorRepository{db: db, logger: logger}
}

// Create inserts a vendor; a duplicate vendor id is a validation error
func (r *VendorRepository) Create(ctx context.Context, v *entity.Vendor) error {
	now := time.Now().UTC()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	v.UpdatedAt = now

	_, err := executor(ctx, r.db).ExecContext(ctx, `
		INSERT INTO vendors (`+vendorColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.VendorID, v.Name, v.Department, v.Company, nullableString(v.ManagerID),
		v.Location, v.Band, v.Active, v.CreatedAt, v.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return apperr.Validation("vendor %s already exists", v.VendorID)
	}
	if isForeignKeyViolation(err) {
		return apperr.Validation("vendor %s references an unknown manager", v.VendorID)
	}
	if err != nil {
		r.logger.Error("Failed to create vendor", zap.String("vendor_id", v.VendorID), zap.Error(err))
		return fmt.Errorf("failed to create vendor: %w", err)
	}
	return nil
}

// GetByID returns nil, nil when the vendor does not exist
func (r *VendorRepository) GetByID(ctx context.Context, vendorID string) (*entity.Vendor, error) {
	row := executor(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+vendorColumns+` FROM vendors WHERE vendor_id = ?`, vendorID)

	v, err := scanVendor(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get vendor", zap.String("vendor_id", vendorID), zap.Error(err))
		return nil, fmt.Errorf("failed to get vendor: %w", err)
	}
	return v, nil
}

// Update rewrites the profile fields of a vendor
func (r *VendorRepository) Update(ctx context.Context, v *entity.Vendor) error {
	v.UpdatedAt = time.Now().UTC()

	result, err := executor(ctx, r.db).ExecContext(ctx, `
		UPDATE vendors
		SET name = ?, department = ?, company = ?, manager_id = ?, location = ?, band = ?, updated_at = ?
		WHERE vendor_id = ?`,
		v.Name, v.Department, v.Company, nullableString(v.ManagerID), v.Location, v.Band, v.UpdatedAt,
		v.VendorID,
	)
	if isForeignKeyViolation(err) {
		return apperr.Validation("vendor %s references an unknown manager", v.VendorID)
	}
	if err != nil {
		r.logger.Error("Failed to update vendor", zap.String("vendor_id", v.VendorID), zap.Error(err))
		return fmt.Errorf("failed to update vendor: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperr.NotFound("vendor", v.VendorID)
	}
	return nil
}

// SetActive soft-activates or deactivates a vendor
func (r *VendorRepository) SetActive(ctx context.Context, vendorID string, active bool) error {
	result, err := executor(ctx, r.db).ExecContext(ctx,
		`UPDATE vendors SET active = ?, updated_at = ? WHERE vendor_id = ?`,
		active, time.Now().UTC(), vendorID)
	if err != nil {
		r.logger.Error("Failed to set vendor active flag", zap.String("vendor_id", vendorID), zap.Error(err))
		return fmt.Errorf("failed to set vendor active flag: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperr.NotFound("vendor", vendorID)
	}
	return nil
}

// ListActive returns active vendors ordered by id
func (r *VendorRepository) ListActive(ctx context.Context) ([]*entity.Vendor, error) {
	return r.list(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE active = 1 ORDER BY vendor_id`)
}

// ListByManager returns every vendor on the manager's team, active or not
func (r *VendorRepository) ListByManager(ctx context.Context, managerID string) ([]*entity.Vendor, error) {
	return r.list(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE manager_id = ? ORDER BY vendor_id`, managerID)
}

func (r *VendorRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.Vendor, error) {
	rows, err := executor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list vendors", zap.Error(err))
		return nil, fmt.Errorf("failed to list vendors: %w", err)
	}
	defer rows.Close()

	var vendors []*entity.Vendor
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vendor: %w", err)
		}
		vendors = append(vendors, v)
	}
	return vendors, rows.Err()
}

func scanVendor(s scanner) (*entity.Vendor, error) {
	var v entity.Vendor
	var managerID sql.NullString
	if err := s.Scan(
		&v.VendorID, &v.Name, &v.Department, &v.Company, &managerID,
		&v.Location, &v.Band, &v.Active, &v.CreatedAt, &v.UpdatedAt,
	); err != nil {
		return nil, err
	}
	v.ManagerID = stringPtr(managerID)
	return &v, nil
}

var _ port.VendorRepository = (*VendorRepository)(nil)
