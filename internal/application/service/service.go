package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/garyjia/vendor-attendance/internal/application/port"
	"github.com/garyjia/vendor-attendance/internal/domain/apperr"
	"github.com/garyjia/vendor-attendance/internal/domain/entity"
	"github.com/garyjia/vendor-attendance/internal/domain/event"
	"github.com/garyjia/vendor-attendance/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// EventPublisher is the part of the dispatcher services need
type EventPublisher interface {
	Dispatch(ctx context.Context, evt *event.Event) error
}

// Clock returns the current instant; tests substitute a fixed one
type Clock func() time.Time

func orNow(clock Clock) Clock {
	if clock == nil {
		return time.Now
	}
	return clock
}

// today returns the calendar date of now in loc
func today(clock Clock, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return entity.NormalizeDate(clock().In(loc))
}

// writeAudit appends one audit entry with JSON snapshots of old and new values
func writeAudit(ctx context.Context, repo port.AuditLogRepository, actor, action, table string, recordID int64, oldValues, newValues interface{}) error {
	oldJSON, err := snapshot(oldValues)
	if err != nil {
		return err
	}
	newJSON, err := snapshot(newValues)
	if err != nil {
		return err
	}
	return repo.Create(ctx, &entity.AuditLog{
		Actor:     actor,
		Action:    action,
		TableName: table,
		RecordID:  recordID,
		OldValues: oldJSON,
		NewValues: newJSON,
	})
}

func snapshot(v interface{}) (string, error) {
	if v == nil {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// publish dispatches evt when a publisher is configured. Handler failures are
// logged; the state change that produced the event has already committed.
func publish(ctx context.Context, p EventPublisher, logger Logger, evt *event.Event) {
	if p == nil {
		return
	}
	if err := p.Dispatch(ctx, evt); err != nil {
		logger.Error("Event handlers failed", "event_type", evt.Type, "event_id", evt.ID, "error", err)
	}
}

// logRejection logs domain rejections at info and everything else at error
func logRejection(logger Logger, msg string, err error, kv ...interface{}) {
	kind := apperr.KindOf(err)
	kv = append(kv, "error", err, "kind", kind)
	if kind == apperr.KindInternal {
		logger.Error(msg, kv...)
		return
	}
	logger.Info(msg, kv...)
}

// teamGuard resolves the acting manager and checks that a vendor reports to them
type teamGuard struct {
	vendors  port.VendorRepository
	managers port.ManagerRepository
}

func (g teamGuard) manager(ctx context.Context, managerID string) (*entity.Manager, error) {
	m, err := g.managers.GetByID(ctx, managerID)
	if err != nil {
		return nil, fmt.Errorf("get manager: %w", err)
	}
	if m == nil {
		return nil, apperr.NotFound("manager", managerID)
	}
	if !m.Active {
		return nil, apperr.Authorization("manager %s is inactive", managerID)
	}
	return m, nil
}

func (g teamGuard) vendor(ctx context.Context, vendorID string) (*entity.Vendor, error) {
	v, err := g.vendors.GetByID(ctx, vendorID)
	if err != nil {
		return nil, fmt.Errorf("get vendor: %w", err)
	}
	if v == nil {
		return nil, apperr.NotFound("vendor", vendorID)
	}
	return v, nil
}

// authorize returns the vendor when it is on managerID's team
func (g teamGuard) authorize(ctx context.Context, managerID, vendorID string) (*entity.Vendor, error) {
	if _, err := g.manager(ctx, managerID); err != nil {
		return nil, err
	}
	v, err := g.vendor(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	if !v.ReportsTo(managerID) {
		return nil, apperr.Authorization("vendor %s is not on manager %s's team", vendorID, managerID)
	}
	return v, nil
}

// decisionTrigger maps an approve/reject decision onto the workflow trigger
func decisionTrigger(decision entity.ApprovalStatus) (workflow.Trigger, error) {
	switch decision {
	case entity.ApprovalApproved:
		return workflow.TriggerApprove, nil
	case entity.ApprovalRejected:
		return workflow.TriggerReject, nil
	default:
		return "", apperr.Validation("decision must be APPROVED or REJECTED, got %q", decision)
	}
}
