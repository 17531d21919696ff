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
	"github.com/garyjia/vendor-attendance/internal/domain/event"
)

type statusFixture struct {
	svc       StatusService
	statuses  *mockStatusRepo
	audits    *mockAuditRepo
	publisher *mockPublisher
}

func newStatusFixture() *statusFixture {
	vendors, managers := team()
	f := &statusFixture{
		statuses:  newMockStatusRepo(),
		audits:    &mockAuditRepo{},
		publisher: &mockPublisher{},
	}
	now := time.Date(2025, 3, 4, 18, 30, 0, 0, time.UTC)
	f.svc = NewStatusService(f.statuses, vendors, managers, f.audits, &mockTxManager{}, f.publisher, fixedClock(now), &mockLogger{})
	return f
}

func (f *statusFixture) submitPending(t *testing.T, vendorID string) *entity.DailyStatus {
	t.Helper()
	s, err := f.svc.Submit(context.Background(), SubmitStatusInput{
		VendorID: vendorID,
		Date:     date(2025, 3, 4),
		Status:   entity.StatusInOfficeFull,
		InTime:   clockAt(2025, 3, 4, 9, 0),
		OutTime:  clockAt(2025, 3, 4, 17, 30),
	})
	require.NoError(t, err)
	return s
}

func TestStatusService_Submit_Validation(t *testing.T) {
	hours := 25.0
	tests := []struct {
		name    string
		in      SubmitStatusInput
		wantErr error
	}{
		{
			name:    "unknown vendor",
			in:      SubmitStatusInput{VendorID: "V9", Date: date(2025, 3, 4), Status: entity.StatusWFHFull},
			wantErr: apperr.ErrNotFound,
		},
		{
			name:    "inactive vendor",
			in:      SubmitStatusInput{VendorID: "V4", Date: date(2025, 3, 4), Status: entity.StatusWFHFull},
			wantErr: apperr.ErrValidation,
		},
		{
			name:    "unknown status",
			in:      SubmitStatusInput{VendorID: "V1", Date: date(2025, 3, 4), Status: "REMOTE"},
			wantErr: apperr.ErrValidation,
		},
		{
			name:    "half day without session",
			in:      SubmitStatusInput{VendorID: "V1", Date: date(2025, 3, 4), Status: entity.StatusWFHHalf},
			wantErr: apperr.ErrValidation,
		},
		{
			name:    "missing date",
			in:      SubmitStatusInput{VendorID: "V1", Status: entity.StatusWFHFull},
			wantErr: apperr.ErrValidation,
		},
		{
			name: "out before in",
			in: SubmitStatusInput{VendorID: "V1", Date: date(2025, 3, 4), Status: entity.StatusInOfficeFull,
				InTime: clockAt(2025, 3, 4, 18, 0), OutTime: clockAt(2025, 3, 4, 9, 0)},
			wantErr: apperr.ErrValidation,
		},
		{
			name:    "hours out of range",
			in:      SubmitStatusInput{VendorID: "V1", Date: date(2025, 3, 4), Status: entity.StatusInOfficeFull, TotalHours: &hours},
			wantErr: apperr.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newStatusFixture()
			_, err := f.svc.Submit(context.Background(), tt.in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			assert.Empty(t, f.statuses.byID)
			assert.Empty(t, f.audits.logs)
		})
	}
}

func TestStatusService_Submit_CreatesPendingWithDerivedHours(t *testing.T) {
	f := newStatusFixture()

	s := f.submitPending(t, "V1")

	assert.Equal(t, entity.ApprovalPending, s.ApprovalStatus)
	assert.Equal(t, 8.5, s.TotalHours)
	assert.Equal(t, date(2025, 3, 4), s.StatusDate)
	assert.Equal(t, []string{entity.AuditActionSubmitStatus}, f.audits.actions())
	assert.Equal(t, []event.Type{event.TypeStatusSubmitted}, f.publisher.types())
	assert.Equal(t, "2025-03-04", f.publisher.events[0].PayloadString("date"))
}

func TestStatusService_Submit_FullDayClearsSession(t *testing.T) {
	f := newStatusFixture()

	s, err := f.svc.Submit(context.Background(), SubmitStatusInput{
		VendorID: "V1", Date: date(2025, 3, 4), Status: entity.StatusWFHFull, HalfDaySession: entity.SessionPM,
	})

	require.NoError(t, err)
	assert.Equal(t, entity.SessionNone, s.HalfDaySession)
}

func TestStatusService_Submit_EditsPendingInPlace(t *testing.T) {
	f := newStatusFixture()
	first := f.submitPending(t, "V1")

	second, err := f.svc.Submit(context.Background(), SubmitStatusInput{
		VendorID: "V1", Date: date(2025, 3, 4), Status: entity.StatusWFHHalf, HalfDaySession: entity.SessionAM,
	})

	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, f.statuses.byID, 1, "one record per (vendor, date)")
	assert.Equal(t, entity.StatusWFHHalf, f.statuses.byID[first.ID].Status)
	assert.Equal(t, []string{entity.AuditActionSubmitStatus, entity.AuditActionUpdateStatus}, f.audits.actions())
}

func TestStatusService_Submit_RejectsEditAfterDecision(t *testing.T) {
	for _, decide := range []string{"approve", "reject"} {
		t.Run(decide, func(t *testing.T) {
			f := newStatusFixture()
			s := f.submitPending(t, "V1")

			var err error
			if decide == "approve" {
				_, err = f.svc.Approve(context.Background(), "M1", s.ID, "ok")
			} else {
				_, err = f.svc.Reject(context.Background(), "M1", s.ID, "no")
			}
			require.NoError(t, err)
			before := *f.statuses.byID[s.ID]
			auditsBefore := len(f.audits.logs)

			_, err = f.svc.Submit(context.Background(), SubmitStatusInput{
				VendorID: "V1", Date: date(2025, 3, 4), Status: entity.StatusWFHFull,
			})

			assert.True(t, errors.Is(err, apperr.ErrValidation), "got %v", err)
			assert.Equal(t, before, *f.statuses.byID[s.ID])
			assert.Len(t, f.audits.logs, auditsBefore)
		})
	}
}

func TestStatusService_Submit_ConcurrentCreateSurfacesValidation(t *testing.T) {
	f := newStatusFixture()
	f.statuses.createFunc = func(ctx context.Context, s *entity.DailyStatus) error {
		return apperr.Validation("status for %s already exists", s.VendorID)
	}

	_, err := f.svc.Submit(context.Background(), SubmitStatusInput{VendorID: "V1", Date: date(2025, 3, 4), Status: entity.StatusWFHFull})

	assert.True(t, errors.Is(err, apperr.ErrValidation))
	assert.Empty(t, f.audits.logs)
	assert.Empty(t, f.publisher.events)
}

func TestStatusService_Approve(t *testing.T) {
	f := newStatusFixture()
	s := f.submitPending(t, "V1")

	approved, err := f.svc.Approve(context.Background(), "M1", s.ID, "looks right")

	require.NoError(t, err)
	assert.Equal(t, entity.ApprovalApproved, approved.ApprovalStatus)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, "M1", *approved.ApprovedBy)
	assert.Equal(t, entity.ApprovalApproved, f.statuses.byID[s.ID].ApprovalStatus)

	last := f.audits.logs[len(f.audits.logs)-1]
	assert.Equal(t, entity.AuditActionApproveStatus, last.Action)
	assert.Equal(t, "M1", last.Actor)
	assert.JSONEq(t, `{"approval_status":"PENDING"}`, last.OldValues)
	assert.Contains(t, last.NewValues, `"approval_status":"APPROVED"`)
	assert.Equal(t, event.TypeStatusDecided, f.publisher.events[len(f.publisher.events)-1].Type)
}

func TestStatusService_AuthorizationBoundary(t *testing.T) {
	f := newStatusFixture()
	s := f.submitPending(t, "V1")
	auditsBefore := len(f.audits.logs)

	for _, decide := range []func(context.Context, string, int64, string) (*entity.DailyStatus, error){f.svc.Approve, f.svc.Reject} {
		_, err := decide(context.Background(), "M2", s.ID, "")

		assert.True(t, errors.Is(err, apperr.ErrAuthorization), "got %v", err)
		assert.Equal(t, entity.ApprovalPending, f.statuses.byID[s.ID].ApprovalStatus)
		assert.Nil(t, f.statuses.byID[s.ID].ApprovedBy)
	}
	assert.Len(t, f.audits.logs, auditsBefore)
}

func TestStatusService_AuthorizationCheckedBeforeState(t *testing.T) {
	f := newStatusFixture()
	s := f.submitPending(t, "V1")
	_, err := f.svc.Approve(context.Background(), "M1", s.ID, "")
	require.NoError(t, err)

	_, err = f.svc.Reject(context.Background(), "M2", s.ID, "")

	assert.True(t, errors.Is(err, apperr.ErrAuthorization), "got %v", err)
}

func TestStatusService_DecisionIsMonotonic(t *testing.T) {
	f := newStatusFixture()
	s := f.submitPending(t, "V1")
	_, err := f.svc.Reject(context.Background(), "M1", s.ID, "wrong day")
	require.NoError(t, err)

	_, err = f.svc.Approve(context.Background(), "M1", s.ID, "")
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = f.svc.Reject(context.Background(), "M1", s.ID, "")
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	assert.Equal(t, entity.ApprovalRejected, f.statuses.byID[s.ID].ApprovalStatus)
}

func TestStatusService_DecideNotFound(t *testing.T) {
	f := newStatusFixture()
	s := f.submitPending(t, "V1")

	_, err := f.svc.Approve(context.Background(), "M1", 999, "")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	_, err = f.svc.Approve(context.Background(), "M9", s.ID, "")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestStatusService_ListForVendor(t *testing.T) {
	f := newStatusFixture()
	f.submitPending(t, "V1")

	list, err := f.svc.ListForVendor(context.Background(), "V1", date(2025, 3, 1), date(2025, 3, 31))
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = f.svc.ListForVendor(context.Background(), "V1", date(2025, 3, 31), date(2025, 3, 1))
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}
