package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/garyjia/vendor-attendance/internal/application/port"
	"github.com/garyjia/vendor-attendance/internal/domain/apperr"
	"github.com/garyjia/vendor-attendance/internal/domain/entity"
	"github.com/garyjia/vendor-attendance/internal/domain/event"
	"github.com/garyjia/vendor-attendance/internal/domain/workflow"
	"github.com/garyjia/vendor-attendance/pkg/utils"
)

const maxCommentLength = 2000

// SubmitStatusInput is a vendor's status for one date
type SubmitStatusInput struct {
	VendorID       string
	Date           time.Time
	Status         entity.StatusType
	HalfDaySession entity.HalfDaySession
	Location       string
	InTime         *time.Time
	OutTime        *time.Time
	// TotalHours is derived from InTime/OutTime when nil
	TotalHours *float64
	Comments   string
}

// StatusService runs the DailyStatus approval workflow
type StatusService interface {
	// Submit creates the status for (vendor, date) or edits it while still PENDING
	Submit(ctx context.Context, in SubmitStatusInput) (*entity.DailyStatus, error)
	Approve(ctx context.Context, managerID string, statusID int64, comments string) (*entity.DailyStatus, error)
	Reject(ctx context.Context, managerID string, statusID int64, comments string) (*entity.DailyStatus, error)
	Get(ctx context.Context, id int64) (*entity.DailyStatus, error)
	ListForVendor(ctx context.Context, vendorID string, from, to time.Time) ([]*entity.DailyStatus, error)
}

type statusServiceImpl struct {
	statuses  port.DailyStatusRepository
	audits    port.AuditLogRepository
	guard     teamGuard
	txManager port.TransactionManager
	publisher EventPublisher
	clock     Clock
	logger    Logger
}

// NewStatusService creates a new StatusService
func NewStatusService(
	statuses port.DailyStatusRepository,
	vendors port.VendorRepository,
	managers port.ManagerRepository,
	audits port.AuditLogRepository,
	txManager port.TransactionManager,
	publisher EventPublisher,
	clock Clock,
	logger Logger,
) StatusService {
	return &statusServiceImpl{
		statuses:  statuses,
		audits:    audits,
		guard:     teamGuard{vendors: vendors, managers: managers},
		txManager: txManager,
		publisher: publisher,
		clock:     orNow(clock),
		logger:    logger,
	}
}

// Submit validates the input and writes it with one audit entry
func (s *statusServiceImpl) Submit(ctx context.Context, in SubmitStatusInput) (*entity.DailyStatus, error) {
	vendor, err := s.guard.vendor(ctx, in.VendorID)
	if err != nil {
		return nil, err
	}
	if !vendor.Active {
		return nil, apperr.Validation("vendor %s is inactive", in.VendorID)
	}

	status, err := s.buildStatus(in)
	if err != nil {
		logRejection(s.logger, "Status submission rejected", err, "vendor_id", in.VendorID)
		return nil, err
	}

	var (
		result  *entity.DailyStatus
		created bool
	)
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		existing, err := s.statuses.GetByVendorAndDate(txCtx, status.VendorID, status.StatusDate)
		if err != nil {
			return fmt.Errorf("get daily status: %w", err)
		}

		if existing == nil {
			if err := s.statuses.Create(txCtx, status); err != nil {
				return err
			}
			created = true
			result = status
			return writeAudit(txCtx, s.audits, status.VendorID, entity.AuditActionSubmitStatus,
				entity.TableDailyStatus, status.ID, nil, status)
		}

		if _, err := workflow.Next(txCtx, workflow.State(existing.ApprovalStatus), workflow.TriggerEdit); err != nil {
			return apperr.Validation("status for %s on %s is %s and can no longer be edited",
				existing.VendorID, existing.StatusDate.Format(entity.DateLayout), existing.ApprovalStatus)
		}

		updated := *status
		updated.ID = existing.ID
		updated.CreatedAt = existing.CreatedAt
		if err := s.statuses.UpdatePending(txCtx, &updated); err != nil {
			if errors.Is(err, apperr.ErrStale) {
				return apperr.Validation("status %d was decided while being edited", existing.ID)
			}
			return err
		}
		result = &updated
		return writeAudit(txCtx, s.audits, status.VendorID, entity.AuditActionUpdateStatus,
			entity.TableDailyStatus, existing.ID, existing, &updated)
	})
	if err != nil {
		logRejection(s.logger, "Failed to submit status", err, "vendor_id", in.VendorID,
			"date", status.StatusDate.Format(entity.DateLayout))
		return nil, err
	}

	s.logger.Info("Status submitted", "id", result.ID, "vendor_id", result.VendorID,
		"date", result.StatusDate.Format(entity.DateLayout), "status", result.Status, "created", created)

	publish(ctx, s.publisher, s.logger, event.New(event.TypeStatusSubmitted, result.VendorID, result.VendorID, result.ID,
		map[string]interface{}{
			"date":    result.StatusDate.Format(entity.DateLayout),
			"status":  string(result.Status),
			"created": created,
		}))
	return result, nil
}

func (s *statusServiceImpl) buildStatus(in SubmitStatusInput) (*entity.DailyStatus, error) {
	if in.Date.IsZero() {
		return nil, apperr.Validation("status date is required")
	}
	if !in.Status.IsValid() {
		return nil, apperr.Validation("unknown status %q", in.Status)
	}

	session := in.HalfDaySession
	if in.Status.IsHalfDay() {
		if !session.IsValid() {
			return nil, apperr.Validation("%s requires a half-day session of AM or PM", in.Status)
		}
	} else {
		session = entity.SessionNone
	}

	if in.InTime != nil && in.OutTime != nil && !in.OutTime.After(*in.InTime) {
		return nil, apperr.Validation("out time must be after in time")
	}

	var hours float64
	switch {
	case in.TotalHours != nil:
		hours = *in.TotalHours
	case in.InTime != nil && in.OutTime != nil:
		hours = math.Round(in.OutTime.Sub(*in.InTime).Hours()*100) / 100
	}
	if hours < 0 || hours > 24 {
		return nil, apperr.Validation("total hours %.2f must be between 0 and 24", hours)
	}

	comments := utils.SanitizeString(in.Comments)
	if len(comments) > maxCommentLength {
		return nil, apperr.Validation("comments exceed %d characters", maxCommentLength)
	}

	now := s.clock()
	return &entity.DailyStatus{
		VendorID:       in.VendorID,
		StatusDate:     entity.NormalizeDate(in.Date),
		Status:         in.Status,
		HalfDaySession: session,
		Location:       strings.TrimSpace(in.Location),
		InTime:         in.InTime,
		OutTime:        in.OutTime,
		TotalHours:     hours,
		Comments:       comments,
		ApprovalStatus: entity.ApprovalPending,
		SubmittedAt:    now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

func (s *statusServiceImpl) Approve(ctx context.Context, managerID string, statusID int64, comments string) (*entity.DailyStatus, error) {
	return s.decide(ctx, managerID, statusID, entity.ApprovalApproved, comments)
}

func (s *statusServiceImpl) Reject(ctx context.Context, managerID string, statusID int64, comments string) (*entity.DailyStatus, error) {
	return s.decide(ctx, managerID, statusID, entity.ApprovalRejected, comments)
}

func (s *statusServiceImpl) decide(ctx context.Context, managerID string, statusID int64, decision entity.ApprovalStatus, comments string) (*entity.DailyStatus, error) {
	trigger, err := decisionTrigger(decision)
	if err != nil {
		return nil, err
	}

	status, err := s.Get(ctx, statusID)
	if err != nil {
		return nil, err
	}
	if _, err := s.guard.authorize(ctx, managerID, status.VendorID); err != nil {
		logRejection(s.logger, "Status decision rejected", err, "id", statusID, "manager_id", managerID)
		return nil, err
	}

	next, err := workflow.Next(ctx, workflow.State(status.ApprovalStatus), trigger)
	if err != nil {
		err = apperr.Validation("status %d is already %s", statusID, status.ApprovalStatus)
		logRejection(s.logger, "Status decision rejected", err, "id", statusID, "manager_id", managerID)
		return nil, err
	}

	comments = utils.SanitizeString(comments)
	now := s.clock()
	decided := *status
	decided.ApprovalStatus = entity.ApprovalStatus(next)
	decided.ApprovedBy = &managerID
	decided.ApprovedAt = &now
	decided.UpdatedAt = now

	action := entity.AuditActionApproveStatus
	if decision == entity.ApprovalRejected {
		action = entity.AuditActionRejectStatus
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.statuses.Decide(txCtx, statusID, decided.ApprovalStatus, managerID, now); err != nil {
			return err
		}
		return writeAudit(txCtx, s.audits, managerID, action, entity.TableDailyStatus, statusID,
			map[string]interface{}{"approval_status": status.ApprovalStatus},
			map[string]interface{}{"approval_status": decided.ApprovalStatus, "approved_by": managerID, "comments": comments})
	})
	if err != nil {
		logRejection(s.logger, "Failed to decide status", err, "id", statusID, "manager_id", managerID)
		return nil, err
	}

	s.logger.Info("Status decided", "id", statusID, "vendor_id", status.VendorID,
		"manager_id", managerID, "decision", decided.ApprovalStatus)

	publish(ctx, s.publisher, s.logger, event.New(event.TypeStatusDecided, managerID, status.VendorID, statusID,
		map[string]interface{}{
			"date":     status.StatusDate.Format(entity.DateLayout),
			"decision": string(decided.ApprovalStatus),
		}))
	return &decided, nil
}

func (s *statusServiceImpl) Get(ctx context.Context, id int64) (*entity.DailyStatus, error) {
	status, err := s.statuses.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get daily status: %w", err)
	}
	if status == nil {
		return nil, apperr.NotFound("daily status", id)
	}
	return status, nil
}

func (s *statusServiceImpl) ListForVendor(ctx context.Context, vendorID string, from, to time.Time) ([]*entity.DailyStatus, error) {
	if to.Before(from) {
		return nil, apperr.Validation("range end %s is before start %s", to.Format(entity.DateLayout), from.Format(entity.DateLayout))
	}
	if _, err := s.guard.vendor(ctx, vendorID); err != nil {
		return nil, err
	}
	return s.statuses.ListByVendor(ctx, vendorID, entity.NormalizeDate(from), entity.NormalizeDate(to))
}
