package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/garyjia/vendor-attendance/internal/application/port"
	"github.com/garyjia/vendor-attendance/internal/domain/apperr"
	"github.com/garyjia/vendor-attendance/internal/domain/entity"
	"github.com/garyjia/vendor-attendance/internal/domain/reconcile"
)

// Report status filters
const (
	ReportStatusAll      = "all"
	ReportStatusPending  = "pending"
	ReportStatusApproved = "approved"
	ReportStatusRejected = "rejected"
)

// ReportFilter narrows a reconciliation report. Zero values mean no filter.
type ReportFilter struct {
	Status   string          `json:"status,omitempty"`
	VendorID string          `json:"vendor_id,omitempty"`
	Priority entity.Severity `json:"priority,omitempty"`
}

// ReportItem is one mismatch with its reporting annotations
type ReportItem struct {
	entity.MismatchRecord
	VendorName string          `json:"vendor_name"`
	Priority   entity.Severity `json:"priority"`
}

// VendorGroup collects the items of one vendor
type VendorGroup struct {
	VendorID   string       `json:"vendor_id"`
	VendorName string       `json:"vendor_name"`
	Pending    int          `json:"pending"`
	Items      []ReportItem `json:"items"`
}

// ReportSummary counts the manager's mismatches before status and priority filters
type ReportSummary struct {
	Total          int     `json:"total"`
	Pending        int     `json:"pending"`
	Approved       int     `json:"approved"`
	Rejected       int     `json:"rejected"`
	ResolutionRate float64 `json:"resolution_rate"`
}

// ReconciliationReport is the manager's view of their team's mismatches
type ReconciliationReport struct {
	ManagerID   string        `json:"manager_id"`
	GeneratedAt time.Time     `json:"generated_at"`
	Filter      ReportFilter  `json:"filter"`
	Summary     ReportSummary `json:"summary"`
	Items       []ReportItem  `json:"items"`
	Groups      []VendorGroup `json:"groups"`
}

// ResolutionRate is the decided share of total as a percentage rounded to one
// decimal. With nothing to resolve the rate is 100.
func ResolutionRate(total, pending int) float64 {
	if total <= 0 {
		return 100
	}
	return math.Round(float64(total-pending)/float64(total)*1000) / 10
}

// ReportService builds read-only reconciliation reports
type ReportService interface {
	Reconciliation(ctx context.Context, managerID string, filter ReportFilter) (*ReconciliationReport, error)
	AuditTrail(ctx context.Context, table string, recordID int64) ([]*entity.AuditLog, error)
}

type reportServiceImpl struct {
	mismatches port.MismatchRepository
	audits     port.AuditLogRepository
	guard      teamGuard
	clock      Clock
	logger     Logger
}

// NewReportService creates a new ReportService
func NewReportService(
	mismatches port.MismatchRepository,
	vendors port.VendorRepository,
	managers port.ManagerRepository,
	audits port.AuditLogRepository,
	clock Clock,
	logger Logger,
) ReportService {
	return &reportServiceImpl{
		mismatches: mismatches,
		audits:     audits,
		guard:      teamGuard{vendors: vendors, managers: managers},
		clock:      orNow(clock),
		logger:     logger,
	}
}

func (s *reportServiceImpl) Reconciliation(ctx context.Context, managerID string, filter ReportFilter) (*ReconciliationReport, error) {
	filter, err := normalizeFilter(filter)
	if err != nil {
		return nil, err
	}
	if _, err := s.guard.manager(ctx, managerID); err != nil {
		return nil, err
	}

	team, err := s.guard.vendors.ListByManager(ctx, managerID)
	if err != nil {
		return nil, fmt.Errorf("list team: %w", err)
	}
	names := make(map[string]string, len(team))
	for _, v := range team {
		names[v.VendorID] = v.Name
	}

	ids := make([]string, 0, len(team))
	if filter.VendorID != "" {
		if _, ok := names[filter.VendorID]; !ok {
			if _, err := s.guard.vendor(ctx, filter.VendorID); err != nil {
				return nil, err
			}
			return nil, apperr.Authorization("vendor %s is not on manager %s's team", filter.VendorID, managerID)
		}
		ids = append(ids, filter.VendorID)
	} else {
		for _, v := range team {
			ids = append(ids, v.VendorID)
		}
	}

	var records []*entity.MismatchRecord
	if len(ids) > 0 {
		records, err = s.mismatches.ListByVendors(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("list mismatches: %w", err)
		}
	}

	report := &ReconciliationReport{
		ManagerID:   managerID,
		GeneratedAt: s.clock(),
		Filter:      filter,
		Items:       []ReportItem{},
		Groups:      []VendorGroup{},
	}

	groups := make(map[string]*VendorGroup)
	for _, rec := range records {
		report.Summary.Total++
		switch rec.ManagerApproval {
		case entity.ApprovalPending:
			report.Summary.Pending++
		case entity.ApprovalApproved:
			report.Summary.Approved++
		case entity.ApprovalRejected:
			report.Summary.Rejected++
		}

		item := ReportItem{
			MismatchRecord: *rec,
			VendorName:     names[rec.VendorID],
			Priority:       reconcile.ConflictPriority(rec.WebStatus, rec.SwipeStatus),
		}
		if !matchesStatus(filter.Status, rec.ManagerApproval) {
			continue
		}
		if filter.Priority != "" && item.Priority != filter.Priority {
			continue
		}

		report.Items = append(report.Items, item)
		g, ok := groups[rec.VendorID]
		if !ok {
			g = &VendorGroup{VendorID: rec.VendorID, VendorName: item.VendorName}
			groups[rec.VendorID] = g
		}
		g.Items = append(g.Items, item)
		if rec.ManagerApproval == entity.ApprovalPending {
			g.Pending++
		}
	}
	report.Summary.ResolutionRate = ResolutionRate(report.Summary.Total, report.Summary.Pending)

	for _, g := range groups {
		report.Groups = append(report.Groups, *g)
	}
	sort.Slice(report.Groups, func(i, j int) bool { return report.Groups[i].VendorID < report.Groups[j].VendorID })

	s.logger.Info("Reconciliation report built", "manager_id", managerID, "total", report.Summary.Total,
		"items", len(report.Items), "status", filter.Status, "priority", filter.Priority)
	return report, nil
}

func (s *reportServiceImpl) AuditTrail(ctx context.Context, table string, recordID int64) ([]*entity.AuditLog, error) {
	switch table {
	case entity.TableDailyStatus, entity.TableMismatchRecords, entity.TableHoursCorrections:
	default:
		return nil, apperr.Validation("unknown audited table %q", table)
	}
	return s.audits.ListByRecord(ctx, table, recordID)
}

func normalizeFilter(f ReportFilter) (ReportFilter, error) {
	f.Status = strings.ToLower(strings.TrimSpace(f.Status))
	if f.Status == "" {
		f.Status = ReportStatusAll
	}
	switch f.Status {
	case ReportStatusAll, ReportStatusPending, ReportStatusApproved, ReportStatusRejected:
	default:
		return f, apperr.Validation("status filter must be one of all, pending, approved, rejected; got %q", f.Status)
	}

	f.Priority = entity.Severity(strings.ToUpper(strings.TrimSpace(string(f.Priority))))
	switch f.Priority {
	case "", entity.SeverityHigh, entity.SeverityMedium, entity.SeverityLow:
	default:
		return f, apperr.Validation("priority filter must be HIGH, MEDIUM or LOW; got %q", f.Priority)
	}

	f.VendorID = strings.TrimSpace(f.VendorID)
	return f, nil
}

func matchesStatus(filter string, approval entity.ApprovalStatus) bool {
	switch filter {
	case ReportStatusPending:
		return approval == entity.ApprovalPending
	case ReportStatusApproved:
		return approval == entity.ApprovalApproved
	case ReportStatusRejected:
		return approval == entity.ApprovalRejected
	default:
		return true
	}
}
