package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/vendor-attendance/internal/domain/apperr"
	"github.com/garyjia/vendor-attendance/internal/domain/entity"
)

func TestResolutionRate(t *testing.T) {
	tests := []struct {
		name           string
		total, pending int
		want           float64
	}{
		{"ten with three pending", 10, 3, 70.0},
		{"nothing to resolve counts as fully resolved", 0, 0, 100},
		{"all pending", 4, 4, 0},
		{"rounds to one decimal", 3, 1, 66.7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolutionRate(tt.total, tt.pending))
		})
	}
}

type reportFixture struct {
	svc        ReportService
	mismatches *mockMismatchRepo
	audits     *mockAuditRepo
}

func newReportFixture() *reportFixture {
	vendors, managers := team()
	f := &reportFixture{mismatches: newMockMismatchRepo(), audits: &mockAuditRepo{}}
	f.svc = NewReportService(f.mismatches, vendors, managers, f.audits,
		fixedClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)), &mockLogger{})
	return f
}

func (f *reportFixture) add(vendorID string, day int, web entity.StatusType, swipe entity.SwipeStatus, approval entity.ApprovalStatus) {
	f.mismatches.put(&entity.MismatchRecord{
		VendorID:        vendorID,
		MismatchDate:    date(2025, 3, day),
		WebStatus:       string(web),
		SwipeStatus:     swipe,
		ManagerApproval: approval,
	})
}

func TestReportService_Reconciliation_Summary(t *testing.T) {
	f := newReportFixture()
	// ten records on M1's team, three still pending
	for day := 1; day <= 7; day++ {
		f.add("V1", day, entity.StatusWFHFull, entity.SwipeFullDayOffice, entity.ApprovalApproved)
	}
	f.add("V2", 8, entity.StatusInOfficeFull, entity.SwipePartial, entity.ApprovalPending)
	f.add("V2", 9, entity.StatusInOfficeFull, entity.SwipeNone, entity.ApprovalPending)
	f.add("V4", 10, entity.StatusLeaveHalf, entity.SwipePartial, entity.ApprovalPending)
	// another team's record must not leak in
	f.add("V3", 3, entity.StatusWFHFull, entity.SwipeFullDayOffice, entity.ApprovalPending)

	report, err := f.svc.Reconciliation(context.Background(), "M1", ReportFilter{})

	require.NoError(t, err)
	assert.Equal(t, 10, report.Summary.Total)
	assert.Equal(t, 3, report.Summary.Pending)
	assert.Equal(t, 7, report.Summary.Approved)
	assert.Equal(t, 70.0, report.Summary.ResolutionRate)
	assert.Len(t, report.Items, 10)
	require.Len(t, report.Groups, 3)
	assert.Equal(t, "V1", report.Groups[0].VendorID)
	assert.Equal(t, "Asha Rao", report.Groups[0].VendorName)
	assert.Equal(t, 2, report.Groups[1].Pending)
}

func TestReportService_Reconciliation_Filters(t *testing.T) {
	f := newReportFixture()
	f.add("V1", 3, entity.StatusWFHFull, entity.SwipeFullDayOffice, entity.ApprovalPending)
	f.add("V1", 4, entity.StatusInOfficeFull, entity.SwipePartial, entity.ApprovalApproved)
	f.add("V2", 5, entity.StatusInOfficeFull, entity.SwipeNone, entity.ApprovalRejected)
	f.add("V2", 6, entity.StatusType(entity.NoWebStatus), entity.SwipeFullDayOffice, entity.ApprovalPending)

	tests := []struct {
		name      string
		filter    ReportFilter
		wantItems int
		wantTotal int
	}{
		{"pending", ReportFilter{Status: "pending"}, 2, 4},
		{"approved upper case", ReportFilter{Status: "APPROVED"}, 1, 4},
		{"rejected", ReportFilter{Status: "rejected"}, 1, 4},
		{"high priority", ReportFilter{Priority: entity.SeverityHigh}, 1, 4},
		{"medium priority", ReportFilter{Priority: "medium"}, 1, 4},
		{"low priority", ReportFilter{Priority: entity.SeverityLow}, 2, 4},
		{"single vendor", ReportFilter{VendorID: "V2"}, 2, 2},
		{"vendor and status", ReportFilter{VendorID: "V2", Status: "pending"}, 1, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := f.svc.Reconciliation(context.Background(), "M1", tt.filter)
			require.NoError(t, err)
			assert.Len(t, report.Items, tt.wantItems)
			assert.Equal(t, tt.wantTotal, report.Summary.Total)
		})
	}
}

func TestReportService_Reconciliation_PriorityAnnotation(t *testing.T) {
	f := newReportFixture()
	f.add("V1", 3, entity.StatusLeaveHalf, entity.SwipePartial, entity.ApprovalPending)

	report, err := f.svc.Reconciliation(context.Background(), "M1", ReportFilter{})

	require.NoError(t, err)
	require.Len(t, report.Items, 1)
	assert.Equal(t, entity.SeverityHigh, report.Items[0].Priority)
}

func TestReportService_Reconciliation_Errors(t *testing.T) {
	f := newReportFixture()

	_, err := f.svc.Reconciliation(context.Background(), "M1", ReportFilter{Status: "open"})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = f.svc.Reconciliation(context.Background(), "M1", ReportFilter{Priority: "URGENT"})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = f.svc.Reconciliation(context.Background(), "M9", ReportFilter{})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	_, err = f.svc.Reconciliation(context.Background(), "M1", ReportFilter{VendorID: "V3"})
	assert.True(t, errors.Is(err, apperr.ErrAuthorization))

	_, err = f.svc.Reconciliation(context.Background(), "M1", ReportFilter{VendorID: "V9"})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestReportService_NoMismatchesIsFullyResolved(t *testing.T) {
	f := newReportFixture()

	report, err := f.svc.Reconciliation(context.Background(), "M2", ReportFilter{})

	require.NoError(t, err)
	assert.Equal(t, 0, report.Summary.Total)
	assert.Equal(t, 100.0, report.Summary.ResolutionRate)
	assert.Empty(t, report.Items)
}

func TestReportService_AuditTrail(t *testing.T) {
	f := newReportFixture()
	require.NoError(t, f.audits.Create(context.Background(), &entity.AuditLog{TableName: entity.TableMismatchRecords, RecordID: 7, Action: entity.AuditActionDetectMismatch}))

	logs, err := f.svc.AuditTrail(context.Background(), entity.TableMismatchRecords, 7)
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	_, err = f.svc.AuditTrail(context.Background(), "vendors", 1)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}
