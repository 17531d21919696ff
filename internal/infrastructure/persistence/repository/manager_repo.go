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

// ManagerRepository implements port.ManagerRepository
type ManagerRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewManagerRepository creates a new manager repository
func NewManagerRepository(db *sql.DB, logger *zap.Logger) *ManagerRepository {
	return &ManagerRepository{db: db, logger: logger}
}

// Create inserts a manager; a duplicate id is a validation error
func (r *ManagerRepository) Create(ctx context.Context, m *entity.Manager) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	_, err := executor(ctx, r.db).ExecContext(ctx, `
		INSERT INTO managers (manager_id, name, email, department, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.ManagerID, m.Name, m.Email, m.Department, m.Active, m.CreatedAt,
	)
	if isUniqueViolation(err) {
		return apperr.Validation("manager %s already exists", m.ManagerID)
	}
	if err != nil {
		r.logger.Error("Failed to create manager", zap.String("manager_id", m.ManagerID), zap.Error(err))
		return fmt.Errorf("failed to create manager: %w", err)
	}
	return nil
}

// GetByID returns nil, nil when the manager does not exist
func (r *ManagerRepository) GetByID(ctx context.Context, managerID string) (*entity.Manager, error) {
	var m entity.Manager
	err := executor(ctx, r.db).QueryRowContext(ctx, `
		SELECT manager_id, name, email, department, active, created_at
		FROM managers WHERE manager_id = ?`, managerID,
	).Scan(&m.ManagerID, &m.Name, &m.Email, &m.Department, &m.Active, &m.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get manager", zap.String("manager_id", managerID), zap.Error(err))
		return nil, fmt.Errorf("failed to get manager: %w", err)
	}
	return &m, nil
}

// List returns all managers ordered by id
func (r *ManagerRepository) List(ctx context.Context) ([]*entity.Manager, error) {
	rows, err := executor(ctx, r.db).QueryContext(ctx, `
		SELECT manager_id, name, email, department, active, created_at
		FROM managers ORDER BY manager_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list managers: %w", err)
	}
	defer rows.Close()

	var managers []*entity.Manager
	for rows.Next() {
		var m entity.Manager
		if err := rows.Scan(&m.ManagerID, &m.Name, &m.Email, &m.Department, &m.Active, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan manager: %w", err)
		}
		managers = append(managers, &m)
	}
	return managers, rows.Err()
}

var _ port.ManagerRepository = (*ManagerRepository)(nil)
