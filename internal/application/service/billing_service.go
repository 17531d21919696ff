package service

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/vendor-attendance/internal/application/port"
	"github.com/garyjia/vendor-attendance/internal/domain/apperr"
	"github.com/garyjia/vendor-attendance/internal/domain/billing"
	"github.com/garyjia/vendor-attendance/internal/domain/entity"
	"github.com/garyjia/vendor-attendance/internal/domain/event"
	"github.com/garyjia/vendor-attendance/pkg/utils"
)

// CorrectionInput is a manager's request to change billed hours for one day
type CorrectionInput struct {
	ManagerID string
	VendorID  string
	Date      time.Time
	NewHours  float64
	Reason    string
}

// BillingWindow is the gate window plus how many working days of grace remain
type BillingWindow struct {
	billing.Window
	GraceWorkingDaysLeft int `json:"grace_working_days_left"`
}

// BillingService applies the billing correction gate
type BillingService interface {
	Window(ctx context.Context) (*BillingWindow, error)
	Correct(ctx context.Context, in CorrectionInput) (*entity.HoursCorrection, error)
	History(ctx context.Context, vendorID string) ([]*entity.HoursCorrection, error)
}

type billingServiceImpl struct {
	gate        *billing.Gate
	statuses    port.DailyStatusRepository
	swipes      port.SwipeRecordRepository
	corrections port.HoursCorrectionRepository
	audits      port.AuditLogRepository
	guard       teamGuard
	calendar    port.HolidayCalendar
	txManager   port.TransactionManager
	publisher   EventPublisher
	clock       Clock
	location    *time.Location
	logger      Logger
}

// NewBillingService creates a new BillingService
func NewBillingService(
	gate *billing.Gate,
	statuses port.DailyStatusRepository,
	swipes port.SwipeRecordRepository,
	corrections port.HoursCorrectionRepository,
	vendors port.VendorRepository,
	managers port.ManagerRepository,
	audits port.AuditLogRepository,
	calendar port.HolidayCalendar,
	txManager port.TransactionManager,
	publisher EventPublisher,
	clock Clock,
	location *time.Location,
	logger Logger,
) BillingService {
	if gate == nil {
		gate = billing.NewGate(billing.DefaultGraceDay)
	}
	return &billingServiceImpl{
		gate:        gate,
		statuses:    statuses,
		swipes:      swipes,
		corrections: corrections,
		audits:      audits,
		guard:       teamGuard{vendors: vendors, managers: managers},
		calendar:    calendar,
		txManager:   txManager,
		publisher:   publisher,
		clock:       orNow(clock),
		location:    location,
		logger:      logger,
	}
}

func (s *billingServiceImpl) Window(ctx context.Context) (*BillingWindow, error) {
	now := today(s.clock, s.location)
	w := &BillingWindow{Window: s.gate.Window(now)}
	if !w.CanEditPreviousMonth {
		return w, nil
	}

	cutoff := w.CurrentMonthStart.AddDate(0, 0, s.gate.GraceDay()-1)
	left, err := s.calendar.WorkingDaysBetween(ctx, now, cutoff)
	if err != nil {
		return nil, fmt.Errorf("count grace days: %w", err)
	}
	w.GraceWorkingDaysLeft = left
	return w, nil
}

// Correct checks the team first, then the date window, then the request
// itself, and records the change with one audit entry.
func (s *billingServiceImpl) Correct(ctx context.Context, in CorrectionInput) (*entity.HoursCorrection, error) {
	if in.Date.IsZero() {
		return nil, apperr.Validation("correction date is required")
	}
	if _, err := s.guard.authorize(ctx, in.ManagerID, in.VendorID); err != nil {
		logRejection(s.logger, "Correction rejected", err, "vendor_id", in.VendorID, "manager_id", in.ManagerID)
		return nil, err
	}

	date := entity.NormalizeDate(in.Date)
	if err := s.gate.Check(date, today(s.clock, s.location)); err != nil {
		logRejection(s.logger, "Correction rejected", err, "vendor_id", in.VendorID,
			"manager_id", in.ManagerID, "date", date.Format(entity.DateLayout))
		return nil, err
	}

	reason := utils.SanitizeString(in.Reason)
	if reason == "" {
		return nil, apperr.Validation("a reason is required for every correction")
	}
	if len(reason) > maxCommentLength {
		return nil, apperr.Validation("reason exceeds %d characters", maxCommentLength)
	}
	if in.NewHours < 0 || in.NewHours > 24 {
		return nil, apperr.Validation("corrected hours %.2f must be between 0 and 24", in.NewHours)
	}

	correction := &entity.HoursCorrection{
		VendorID:    in.VendorID,
		WorkDate:    date,
		NewHours:    in.NewHours,
		OldSource:   entity.HoursSourceNone,
		Reason:      reason,
		CorrectedBy: in.ManagerID,
		CorrectedAt: s.clock(),
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		status, err := s.statuses.GetByVendorAndDate(txCtx, in.VendorID, date)
		if err != nil {
			return fmt.Errorf("get daily status: %w", err)
		}
		if status != nil {
			correction.OldHours = status.TotalHours
			correction.OldSource = entity.HoursSourceDailyStatus
			if err := s.statuses.UpdateHours(txCtx, status.ID, in.NewHours); err != nil {
				return err
			}
		} else {
			swipe, err := s.swipes.GetByVendorAndDate(txCtx, in.VendorID, date)
			if err != nil {
				return fmt.Errorf("get swipe record: %w", err)
			}
			if swipe != nil {
				correction.OldHours = swipe.TotalHours
				correction.OldSource = entity.HoursSourceSwipe
			}
		}

		if err := s.corrections.Create(txCtx, correction); err != nil {
			return err
		}
		return writeAudit(txCtx, s.audits, in.ManagerID, entity.AuditActionCorrectHours,
			entity.TableHoursCorrections, correction.ID,
			map[string]interface{}{"hours": correction.OldHours, "source": correction.OldSource},
			map[string]interface{}{"hours": correction.NewHours, "reason": reason})
	})
	if err != nil {
		logRejection(s.logger, "Failed to correct hours", err, "vendor_id", in.VendorID, "manager_id", in.ManagerID)
		return nil, err
	}

	s.logger.Info("Hours corrected", "id", correction.ID, "vendor_id", in.VendorID,
		"date", date.Format(entity.DateLayout), "old_hours", correction.OldHours,
		"new_hours", correction.NewHours, "source", correction.OldSource)

	publish(ctx, s.publisher, s.logger, event.New(event.TypeHoursCorrected, in.ManagerID, in.VendorID, correction.ID,
		map[string]interface{}{
			"date":      date.Format(entity.DateLayout),
			"old_hours": correction.OldHours,
			"new_hours": correction.NewHours,
		}))
	return correction, nil
}

func (s *billingServiceImpl) History(ctx context.Context, vendorID string) ([]*entity.HoursCorrection, error) {
	if _, err := s.guard.vendor(ctx, vendorID); err != nil {
		return nil, err
	}
	return s.corrections.ListByVendor(ctx, vendorID)
}
