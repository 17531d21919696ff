package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/vendor-attendance/internal/application/port"
	"github.com/garyjia/vendor-attendance/internal/domain/entity"
	"go.uber.org/zap"
)

// AuditLogRepository implements port.AuditLogRepository
type AuditLogRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAuditLogRepository creates a new audit log repository
func NewAuditLogRepository(db *sql.DB, logger *zap.Logger) *AuditLogRepository {
	return &AuditLogRepository{db: db, logger: logger}
}

// Create appends an entry, assigning a UUID and timestamp when absent
func (r *AuditLogRepository) Create(ctx context.Context, log *entity.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	_, err := executor(ctx, r.db).ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor, action, table_name, record_id, old_values, new_values, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		log.ID, log.Actor, log.Action, log.TableName, log.RecordID, log.OldValues, log.NewValues, log.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to write audit log",
			zap.String("action", log.Action),
			zap.String("table", log.TableName),
			zap.Int64("record_id", log.RecordID),
			zap.Error(err))
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

// ListByRecord returns the trail of one record in insertion order
func (r *AuditLogRepository) ListByRecord(ctx context.Context, tableName string, recordID int64) ([]*entity.AuditLog, error) {
	rows, err := executor(ctx, r.db).QueryContext(ctx, `
		SELECT id, actor, action, table_name, record_id, old_values, new_values, created_at
		FROM audit_logs
		WHERE table_name = ? AND record_id = ?
		ORDER BY rowid`, tableName, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	defer rows.Close()

	var logs []*entity.AuditLog
	for rows.Next() {
		var l entity.AuditLog
		if err := rows.Scan(&l.ID, &l.Actor, &l.Action, &l.TableName, &l.RecordID, &l.OldValues, &l.NewValues, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}

var _ port.AuditLogRepository = (*AuditLogRepository)(nil)
