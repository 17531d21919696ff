package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/garyjia/vendor-attendance/internal/application/port"
	"github.com/garyjia/vendor-attendance/internal/domain/apperr"
	"github.com/garyjia/vendor-attendance/internal/domain/entity"
	"github.com/garyjia/vendor-attendance/internal/domain/event"
	"github.com/garyjia/vendor-attendance/internal/domain/reconcile"
	"github.com/garyjia/vendor-attendance/internal/domain/workflow"
	"github.com/garyjia/vendor-attendance/pkg/utils"
)

// MaxDetectionSpan bounds a single DetectRange call
const MaxDetectionSpan = 366

// DetectionAction is what one detection run did to the store
type DetectionAction string

const (
	ActionCreated      DetectionAction = "created"
	ActionUpdated      DetectionAction = "updated"
	ActionUnchanged    DetectionAction = "unchanged"
	ActionClean        DetectionAction = "clean"
	ActionSkipped      DetectionAction = "skipped"
	ActionUnclassified DetectionAction = "unclassified"
)

// DetectionOutcome is the result of detecting one (vendor, date)
type DetectionOutcome struct {
	VendorID string                 `json:"vendor_id"`
	Date     time.Time              `json:"date"`
	Action   DetectionAction        `json:"action"`
	Decision reconcile.Decision     `json:"-"`
	Record   *entity.MismatchRecord `json:"record,omitempty"`
}

// DetectionSummary counts outcomes of a batch run
type DetectionSummary struct {
	Dates             int `json:"dates"`
	Evaluated         int `json:"evaluated"`
	SkippedNonWorking int `json:"skipped_non_working"`
	Created           int `json:"created"`
	Updated           int `json:"updated"`
	Unchanged         int `json:"unchanged"`
	Clean             int `json:"clean"`
	Unclassified      int `json:"unclassified"`
	Failed            int `json:"failed"`
}

func (s *DetectionSummary) add(action DetectionAction) {
	switch action {
	case ActionCreated:
		s.Created++
	case ActionUpdated:
		s.Updated++
	case ActionUnchanged:
		s.Unchanged++
	case ActionClean:
		s.Clean++
	case ActionUnclassified:
		s.Unclassified++
	case ActionSkipped:
		s.SkippedNonWorking++
		return
	}
	s.Evaluated++
}

// MismatchService runs detection and the MismatchRecord review workflow
type MismatchService interface {
	DetectForDate(ctx context.Context, vendorID string, date time.Time) (*DetectionOutcome, error)
	// DetectRange evaluates every active vendor on every date in [from, to]
	DetectRange(ctx context.Context, from, to time.Time) (*DetectionSummary, error)
	DetectDates(ctx context.Context, dates []time.Time) (*DetectionSummary, error)

	Explain(ctx context.Context, vendorID string, mismatchID int64, explanation string) (*entity.MismatchRecord, error)
	Approve(ctx context.Context, managerID string, mismatchID int64, comments string) (*entity.MismatchRecord, error)
	Reject(ctx context.Context, managerID string, mismatchID int64, comments string) (*entity.MismatchRecord, error)
	Get(ctx context.Context, id int64) (*entity.MismatchRecord, error)

	// HandleSwipesImported re-runs detection for the dates carried by the event
	HandleSwipesImported(ctx context.Context, evt *event.Event) error
	// HandleStatusSubmitted re-runs detection for a status edited after its day ended
	HandleStatusSubmitted(ctx context.Context, evt *event.Event) error
}

type mismatchServiceImpl struct {
	mismatches port.MismatchRepository
	statuses   port.DailyStatusRepository
	swipes     port.SwipeRecordRepository
	audits     port.AuditLogRepository
	guard      teamGuard
	calendar   port.HolidayCalendar
	detector   *reconcile.Detector
	txManager  port.TransactionManager
	publisher  EventPublisher
	clock      Clock
	location   *time.Location
	logger     Logger
}

// NewMismatchService creates a new MismatchService
func NewMismatchService(
	mismatches port.MismatchRepository,
	statuses port.DailyStatusRepository,
	swipes port.SwipeRecordRepository,
	vendors port.VendorRepository,
	managers port.ManagerRepository,
	audits port.AuditLogRepository,
	calendar port.HolidayCalendar,
	detector *reconcile.Detector,
	txManager port.TransactionManager,
	publisher EventPublisher,
	clock Clock,
	location *time.Location,
	logger Logger,
) MismatchService {
	if detector == nil {
		detector = reconcile.NewDetector(nil)
	}
	return &mismatchServiceImpl{
		mismatches: mismatches,
		statuses:   statuses,
		swipes:     swipes,
		audits:     audits,
		guard:      teamGuard{vendors: vendors, managers: managers},
		calendar:   calendar,
		detector:   detector,
		txManager:  txManager,
		publisher:  publisher,
		clock:      orNow(clock),
		location:   location,
		logger:     logger,
	}
}

func (s *mismatchServiceImpl) DetectForDate(ctx context.Context, vendorID string, date time.Time) (*DetectionOutcome, error) {
	if _, err := s.guard.vendor(ctx, vendorID); err != nil {
		return nil, err
	}
	date = entity.NormalizeDate(date)
	working, err := s.calendar.IsWorkingDay(ctx, date)
	if err != nil {
		return nil, err
	}
	return s.detect(ctx, vendorID, date, !working)
}

func (s *mismatchServiceImpl) DetectRange(ctx context.Context, from, to time.Time) (*DetectionSummary, error) {
	from, to = entity.NormalizeDate(from), entity.NormalizeDate(to)
	if to.Before(from) {
		return nil, apperr.Validation("range end %s is before start %s", to.Format(entity.DateLayout), from.Format(entity.DateLayout))
	}
	var dates []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	if len(dates) > MaxDetectionSpan {
		return nil, apperr.Validation("range covers %d days; at most %d allowed", len(dates), MaxDetectionSpan)
	}
	return s.run(ctx, dates)
}

func (s *mismatchServiceImpl) DetectDates(ctx context.Context, dates []time.Time) (*DetectionSummary, error) {
	seen := make(map[time.Time]bool, len(dates))
	unique := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		d = entity.NormalizeDate(d)
		if !seen[d] {
			seen[d] = true
			unique = append(unique, d)
		}
	}
	sort.Slice(unique, func(i, j int) bool { return unique[i].Before(unique[j]) })
	if len(unique) > MaxDetectionSpan {
		return nil, apperr.Validation("%d dates requested; at most %d allowed", len(unique), MaxDetectionSpan)
	}
	return s.run(ctx, unique)
}

// run evaluates active vendors on each date. A failing (vendor, date) is
// counted and reported but does not stop the batch.
func (s *mismatchServiceImpl) run(ctx context.Context, dates []time.Time) (*DetectionSummary, error) {
	vendors, err := s.guard.vendors.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active vendors: %w", err)
	}

	summary := &DetectionSummary{Dates: len(dates)}
	var errs []error
	for _, date := range dates {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		working, err := s.calendar.IsWorkingDay(ctx, date)
		if err != nil {
			summary.Failed += len(vendors)
			errs = append(errs, fmt.Errorf("%s: %w", date.Format(entity.DateLayout), err))
			continue
		}
		if !working {
			summary.SkippedNonWorking += len(vendors)
			continue
		}

		for _, v := range vendors {
			outcome, err := s.detect(ctx, v.VendorID, date, false)
			if err != nil {
				summary.Failed++
				errs = append(errs, fmt.Errorf("%s on %s: %w", v.VendorID, date.Format(entity.DateLayout), err))
				continue
			}
			summary.add(outcome.Action)
		}
	}

	s.logger.Info("Detection run finished", "dates", summary.Dates, "evaluated", summary.Evaluated,
		"created", summary.Created, "updated", summary.Updated, "unchanged", summary.Unchanged,
		"clean", summary.Clean, "skipped", summary.SkippedNonWorking,
		"unclassified", summary.Unclassified, "failed", summary.Failed)

	if len(errs) > 0 {
		s.logger.Error("Detection run had failures", "failed", summary.Failed, "error", errors.Join(errs...))
		return summary, errors.Join(errs...)
	}
	return summary, nil
}

// detect evaluates one (vendor, date) and persists any mismatch
func (s *mismatchServiceImpl) detect(ctx context.Context, vendorID string, date time.Time, nonWorking bool) (*DetectionOutcome, error) {
	outcome := &DetectionOutcome{VendorID: vendorID, Date: date}

	status, err := s.statuses.GetByVendorAndDate(ctx, vendorID, date)
	if err != nil {
		return nil, fmt.Errorf("get daily status: %w", err)
	}
	swipe, err := s.swipes.GetByVendorAndDate(ctx, vendorID, date)
	if err != nil {
		return nil, fmt.Errorf("get swipe record: %w", err)
	}

	in := reconcile.Input{VendorID: vendorID, Date: date, Status: status, Swipe: swipe, NonWorking: nonWorking}
	dec := s.detector.Evaluate(in)
	outcome.Decision = dec

	switch dec.Kind {
	case reconcile.DecisionSkipped:
		outcome.Action = ActionSkipped
		return outcome, nil
	case reconcile.DecisionClean:
		outcome.Action = ActionClean
		return outcome, nil
	case reconcile.DecisionUnclassified:
		outcome.Action = ActionUnclassified
		s.logger.Error("Unclassified attendance signals", "vendor_id", vendorID,
			"date", date.Format(entity.DateLayout), "web_status", dec.WebStatus, "swipe_status", dec.SwipeStatus)
		return outcome, nil
	}

	rec, err := reconcile.BuildRecord(in, dec)
	if err != nil {
		return nil, err
	}
	if err := s.persist(ctx, rec, outcome); err != nil {
		return nil, err
	}

	if outcome.Action == ActionCreated || outcome.Action == ActionUpdated {
		s.logger.Info("Mismatch recorded", "id", outcome.Record.ID, "vendor_id", vendorID,
			"date", date.Format(entity.DateLayout), "type", dec.Type, "severity", dec.Severity, "action", outcome.Action)
		publish(ctx, s.publisher, s.logger, event.New(event.TypeMismatchDetected, entity.SystemActor, vendorID, outcome.Record.ID,
			map[string]interface{}{
				"date":     date.Format(entity.DateLayout),
				"type":     string(dec.Type),
				"severity": string(dec.Severity),
				"action":   string(outcome.Action),
			}))
	}
	return outcome, nil
}

// persist creates the record or refreshes the detector-owned fields of the
// existing one. Explanation and approval fields are never touched.
func (s *mismatchServiceImpl) persist(ctx context.Context, rec *entity.MismatchRecord, outcome *DetectionOutcome) error {
	return s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		existing, err := s.mismatches.GetByVendorAndDate(txCtx, rec.VendorID, rec.MismatchDate)
		if err != nil {
			return fmt.Errorf("get mismatch: %w", err)
		}

		if existing == nil {
			now := s.clock()
			rec.CreatedAt, rec.UpdatedAt = now, now
			err := s.mismatches.Create(txCtx, rec)
			if err == nil {
				outcome.Action = ActionCreated
				outcome.Record = rec
				return writeAudit(txCtx, s.audits, entity.SystemActor, entity.AuditActionDetectMismatch,
					entity.TableMismatchRecords, rec.ID, nil, rec)
			}
			if !errors.Is(err, apperr.ErrValidation) {
				return err
			}
			// a concurrent run created it first
			existing, err = s.mismatches.GetByVendorAndDate(txCtx, rec.VendorID, rec.MismatchDate)
			if err != nil {
				return fmt.Errorf("get mismatch: %w", err)
			}
			if existing == nil {
				return fmt.Errorf("mismatch for %s on %s vanished after conflict", rec.VendorID, rec.MismatchDate.Format(entity.DateLayout))
			}
		}

		if existing.SameSignals(rec) {
			outcome.Action = ActionUnchanged
			outcome.Record = existing
			return nil
		}

		if _, err := workflow.Next(txCtx, workflow.State(existing.ManagerApproval), workflow.TriggerRedetect); err != nil {
			return fmt.Errorf("redetect mismatch %d: %w", existing.ID, err)
		}

		refreshed := *existing
		refreshed.WebStatus = rec.WebStatus
		refreshed.SwipeStatus = rec.SwipeStatus
		refreshed.MismatchType = rec.MismatchType
		refreshed.Severity = rec.Severity
		refreshed.Details = rec.Details
		refreshed.UpdatedAt = s.clock()
		if err := s.mismatches.UpdateSignals(txCtx, &refreshed); err != nil {
			return err
		}

		outcome.Action = ActionUpdated
		outcome.Record = &refreshed
		return writeAudit(txCtx, s.audits, entity.SystemActor, entity.AuditActionRedetectMismatch,
			entity.TableMismatchRecords, existing.ID, signalsOf(existing), signalsOf(&refreshed))
	})
}

func signalsOf(m *entity.MismatchRecord) map[string]interface{} {
	return map[string]interface{}{
		"web_status":    m.WebStatus,
		"swipe_status":  m.SwipeStatus,
		"mismatch_type": m.MismatchType,
		"severity":      m.Severity,
		"details":       m.Details,
	}
}

func (s *mismatchServiceImpl) Explain(ctx context.Context, vendorID string, mismatchID int64, explanation string) (*entity.MismatchRecord, error) {
	rec, err := s.Get(ctx, mismatchID)
	if err != nil {
		return nil, err
	}
	if rec.VendorID != vendorID {
		err := apperr.Authorization("mismatch %d does not belong to vendor %s", mismatchID, vendorID)
		logRejection(s.logger, "Explanation rejected", err, "id", mismatchID, "vendor_id", vendorID)
		return nil, err
	}

	explanation = utils.SanitizeString(explanation)
	if explanation == "" {
		return nil, apperr.Validation("explanation is required")
	}
	if len(explanation) > maxCommentLength {
		return nil, apperr.Validation("explanation exceeds %d characters", maxCommentLength)
	}

	if _, err := workflow.Next(ctx, workflow.State(rec.ManagerApproval), workflow.TriggerExplain); err != nil {
		err = apperr.Validation("mismatch %d is already %s", mismatchID, rec.ManagerApproval)
		logRejection(s.logger, "Explanation rejected", err, "id", mismatchID, "vendor_id", vendorID)
		return nil, err
	}

	now := s.clock()
	explained := *rec
	explained.VendorExplanation = explanation
	explained.ExplainedAt = &now
	explained.UpdatedAt = now

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.mismatches.SetExplanation(txCtx, mismatchID, explanation, now); err != nil {
			return err
		}
		return writeAudit(txCtx, s.audits, vendorID, entity.AuditActionExplainMismatch, entity.TableMismatchRecords, mismatchID,
			map[string]interface{}{"vendor_explanation": rec.VendorExplanation},
			map[string]interface{}{"vendor_explanation": explanation})
	})
	if err != nil {
		logRejection(s.logger, "Failed to explain mismatch", err, "id", mismatchID, "vendor_id", vendorID)
		return nil, err
	}

	s.logger.Info("Mismatch explained", "id", mismatchID, "vendor_id", vendorID)
	return &explained, nil
}

func (s *mismatchServiceImpl) Approve(ctx context.Context, managerID string, mismatchID int64, comments string) (*entity.MismatchRecord, error) {
	return s.decide(ctx, managerID, mismatchID, entity.ApprovalApproved, comments)
}

func (s *mismatchServiceImpl) Reject(ctx context.Context, managerID string, mismatchID int64, comments string) (*entity.MismatchRecord, error) {
	return s.decide(ctx, managerID, mismatchID, entity.ApprovalRejected, comments)
}

func (s *mismatchServiceImpl) decide(ctx context.Context, managerID string, mismatchID int64, decision entity.ApprovalStatus, comments string) (*entity.MismatchRecord, error) {
	trigger, err := decisionTrigger(decision)
	if err != nil {
		return nil, err
	}

	rec, err := s.Get(ctx, mismatchID)
	if err != nil {
		return nil, err
	}
	if _, err := s.guard.authorize(ctx, managerID, rec.VendorID); err != nil {
		logRejection(s.logger, "Mismatch decision rejected", err, "id", mismatchID, "manager_id", managerID)
		return nil, err
	}

	next, err := workflow.Next(ctx, workflow.State(rec.ManagerApproval), trigger)
	if err != nil {
		err = apperr.Validation("mismatch %d is already %s", mismatchID, rec.ManagerApproval)
		logRejection(s.logger, "Mismatch decision rejected", err, "id", mismatchID, "manager_id", managerID)
		return nil, err
	}

	comments = utils.SanitizeString(comments)
	if len(comments) > maxCommentLength {
		return nil, apperr.Validation("comments exceed %d characters", maxCommentLength)
	}

	now := s.clock()
	decided := *rec
	decided.ManagerApproval = entity.ApprovalStatus(next)
	decided.ManagerComments = comments
	decided.ApprovedBy = &managerID
	decided.ApprovedAt = &now
	decided.UpdatedAt = now

	action := entity.AuditActionApproveMismatch
	if decision == entity.ApprovalRejected {
		action = entity.AuditActionRejectMismatch
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.mismatches.Decide(txCtx, mismatchID, decided.ManagerApproval, managerID, comments, now); err != nil {
			return err
		}
		return writeAudit(txCtx, s.audits, managerID, action, entity.TableMismatchRecords, mismatchID,
			map[string]interface{}{"manager_approval": rec.ManagerApproval},
			map[string]interface{}{"manager_approval": decided.ManagerApproval, "approved_by": managerID, "manager_comments": comments})
	})
	if err != nil {
		logRejection(s.logger, "Failed to decide mismatch", err, "id", mismatchID, "manager_id", managerID)
		return nil, err
	}

	s.logger.Info("Mismatch decided", "id", mismatchID, "vendor_id", rec.VendorID,
		"manager_id", managerID, "decision", decided.ManagerApproval)

	publish(ctx, s.publisher, s.logger, event.New(event.TypeMismatchDecided, managerID, rec.VendorID, mismatchID,
		map[string]interface{}{
			"date":     rec.MismatchDate.Format(entity.DateLayout),
			"decision": string(decided.ManagerApproval),
		}))
	return &decided, nil
}

func (s *mismatchServiceImpl) Get(ctx context.Context, id int64) (*entity.MismatchRecord, error) {
	rec, err := s.mismatches.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get mismatch: %w", err)
	}
	if rec == nil {
		return nil, apperr.NotFound("mismatch", id)
	}
	return rec, nil
}

func (s *mismatchServiceImpl) HandleSwipesImported(ctx context.Context, evt *event.Event) error {
	raw := evt.PayloadDates("dates")
	dates := make([]time.Time, 0, len(raw))
	for _, r := range raw {
		d, err := entity.ParseDate(strings.TrimSpace(r))
		if err != nil {
			s.logger.Error("Ignoring malformed date in import event", "event_id", evt.ID, "date", r)
			continue
		}
		dates = append(dates, d)
	}
	if len(dates) == 0 {
		return nil
	}

	summary, err := s.DetectDates(ctx, dates)
	if summary != nil {
		s.logger.Info("Detection after import", "event_id", evt.ID, "correlation_id", evt.CorrelationID,
			"dates", summary.Dates, "created", summary.Created, "updated", summary.Updated)
	}
	return err
}

func (s *mismatchServiceImpl) HandleStatusSubmitted(ctx context.Context, evt *event.Event) error {
	date, err := entity.ParseDate(evt.PayloadString("date"))
	if err != nil {
		return fmt.Errorf("status event %s: %w", evt.ID, err)
	}
	// the badge feed for today is not complete yet
	if !date.Before(today(s.clock, s.location)) {
		return nil
	}
	_, err = s.DetectForDate(ctx, evt.VendorID, date)
	return err
}
