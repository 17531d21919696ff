package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/vendor-attendance/internal/domain/apperr"
	"github.com/garyjia/vendor-attendance/internal/domain/billing"
	"github.com/garyjia/vendor-attendance/internal/domain/entity"
	"github.com/garyjia/vendor-attendance/internal/domain/event"
)

type billingFixture struct {
	svc         BillingService
	statuses    *mockStatusRepo
	swipes      *mockSwipeRepo
	corrections *mockCorrectionRepo
	audits      *mockAuditRepo
	publisher   *mockPublisher
}

func newBillingFixture(now time.Time, holidays ...time.Time) *billingFixture {
	vendors, managers := team()
	f := &billingFixture{
		statuses:    newMockStatusRepo(),
		swipes:      newMockSwipeRepo(),
		corrections: &mockCorrectionRepo{},
		audits:      &mockAuditRepo{},
		publisher:   &mockPublisher{},
	}
	f.svc = NewBillingService(billing.NewGate(5), f.statuses, f.swipes, f.corrections, vendors, managers, f.audits,
		NewCalendarService(newMockHolidayRepo(holidays...)), &mockTxManager{}, f.publisher, fixedClock(now), time.UTC, &mockLogger{})
	return f
}

func TestBillingService_Window(t *testing.T) {
	// Mon 2025-03-03; 3rd..5th has three working days, one of them a holiday
	f := newBillingFixture(time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC), date(2025, 3, 4))

	w, err := f.svc.Window(context.Background())

	require.NoError(t, err)
	assert.True(t, w.CanEditPreviousMonth)
	assert.Equal(t, date(2025, 2, 1), w.AllowedFrom)
	assert.Equal(t, date(2025, 3, 3), w.AllowedTo)
	assert.Equal(t, 2, w.GraceWorkingDaysLeft)

	closed := newBillingFixture(time.Date(2025, 3, 6, 10, 0, 0, 0, time.UTC))
	w, err = closed.svc.Window(context.Background())
	require.NoError(t, err)
	assert.False(t, w.CanEditPreviousMonth)
	assert.Equal(t, 0, w.GraceWorkingDaysLeft)
}

func TestBillingService_Correct_Boundary(t *testing.T) {
	in := CorrectionInput{ManagerID: "M1", VendorID: "V1", Date: date(2025, 2, 27), NewHours: 8, Reason: "badge reader outage"}

	onFifth := newBillingFixture(time.Date(2025, 3, 5, 23, 0, 0, 0, time.UTC))
	_, err := onFifth.svc.Correct(context.Background(), in)
	assert.NoError(t, err)

	onSixth := newBillingFixture(time.Date(2025, 3, 6, 0, 30, 0, 0, time.UTC))
	_, err = onSixth.svc.Correct(context.Background(), in)

	var closed *apperr.WindowClosedError
	require.True(t, errors.As(err, &closed), "got %v", err)
	assert.Equal(t, date(2025, 3, 1), closed.AllowedFrom)
	assert.Equal(t, date(2025, 3, 6), closed.AllowedTo)
	assert.Empty(t, onSixth.audits.logs)
	assert.Empty(t, onSixth.corrections.corrections)
}

func TestBillingService_Correct_OrderOfChecks(t *testing.T) {
	now := time.Date(2025, 3, 20, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		in      CorrectionInput
		wantErr error
	}{
		{
			name:    "unknown manager",
			in:      CorrectionInput{ManagerID: "M9", VendorID: "V1", Date: date(2025, 3, 18), NewHours: 8, Reason: "x"},
			wantErr: apperr.ErrNotFound,
		},
		{
			name:    "unknown vendor",
			in:      CorrectionInput{ManagerID: "M1", VendorID: "V9", Date: date(2025, 3, 18), NewHours: 8, Reason: "x"},
			wantErr: apperr.ErrNotFound,
		},
		{
			name:    "other team wins over closed window",
			in:      CorrectionInput{ManagerID: "M2", VendorID: "V1", Date: date(2025, 1, 10), NewHours: 8, Reason: ""},
			wantErr: apperr.ErrAuthorization,
		},
		{
			name:    "closed window wins over missing reason",
			in:      CorrectionInput{ManagerID: "M1", VendorID: "V1", Date: date(2025, 2, 10), NewHours: 8, Reason: ""},
			wantErr: apperr.ErrWindowClosed,
		},
		{
			name:    "future date",
			in:      CorrectionInput{ManagerID: "M1", VendorID: "V1", Date: date(2025, 3, 21), NewHours: 8, Reason: "x"},
			wantErr: apperr.ErrWindowClosed,
		},
		{
			name:    "missing reason",
			in:      CorrectionInput{ManagerID: "M1", VendorID: "V1", Date: date(2025, 3, 18), NewHours: 8, Reason: "  "},
			wantErr: apperr.ErrValidation,
		},
		{
			name:    "hours out of range",
			in:      CorrectionInput{ManagerID: "M1", VendorID: "V1", Date: date(2025, 3, 18), NewHours: -1, Reason: "x"},
			wantErr: apperr.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newBillingFixture(now)
			_, err := f.svc.Correct(context.Background(), tt.in)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			assert.Empty(t, f.audits.logs)
			assert.Empty(t, f.corrections.corrections)
		})
	}
}

func TestBillingService_Correct_OldHoursSource(t *testing.T) {
	now := time.Date(2025, 3, 20, 9, 0, 0, 0, time.UTC)

	t.Run("from daily status", func(t *testing.T) {
		f := newBillingFixture(now)
		st := f.statuses.put(&entity.DailyStatus{VendorID: "V1", StatusDate: date(2025, 3, 18), Status: entity.StatusInOfficeFull,
			TotalHours: 6.5, ApprovalStatus: entity.ApprovalApproved})
		f.swipe(t, 7.25)

		c, err := f.svc.Correct(context.Background(), CorrectionInput{ManagerID: "M1", VendorID: "V1", Date: date(2025, 3, 18), NewHours: 8, Reason: "late badge"})

		require.NoError(t, err)
		assert.Equal(t, 6.5, c.OldHours)
		assert.Equal(t, entity.HoursSourceDailyStatus, c.OldSource)
		assert.Equal(t, 8.0, f.statuses.byID[st.ID].TotalHours)
		assert.Equal(t, entity.ApprovalApproved, f.statuses.byID[st.ID].ApprovalStatus)

		require.Len(t, f.audits.logs, 1)
		log := f.audits.logs[0]
		assert.Equal(t, entity.AuditActionCorrectHours, log.Action)
		assert.Equal(t, "M1", log.Actor)
		assert.JSONEq(t, `{"hours":6.5,"source":"daily_status"}`, log.OldValues)
		assert.JSONEq(t, `{"hours":8,"reason":"late badge"}`, log.NewValues)
		assert.Equal(t, []event.Type{event.TypeHoursCorrected}, f.publisher.types())
	})

	t.Run("falls back to swipe", func(t *testing.T) {
		f := newBillingFixture(now)
		f.swipe(t, 7.25)

		c, err := f.svc.Correct(context.Background(), CorrectionInput{ManagerID: "M1", VendorID: "V1", Date: date(2025, 3, 18), NewHours: 8, Reason: "x"})

		require.NoError(t, err)
		assert.Equal(t, 7.25, c.OldHours)
		assert.Equal(t, entity.HoursSourceSwipe, c.OldSource)
	})

	t.Run("nothing recorded", func(t *testing.T) {
		f := newBillingFixture(now)

		c, err := f.svc.Correct(context.Background(), CorrectionInput{ManagerID: "M1", VendorID: "V1", Date: date(2025, 3, 18), NewHours: 4, Reason: "x"})

		require.NoError(t, err)
		assert.Equal(t, 0.0, c.OldHours)
		assert.Equal(t, entity.HoursSourceNone, c.OldSource)

		history, err := f.svc.History(context.Background(), "V1")
		require.NoError(t, err)
		assert.Len(t, history, 1)
	})
}

func (f *billingFixture) swipe(t *testing.T, hours float64) {
	t.Helper()
	_, err := f.swipes.Upsert(context.Background(), &entity.SwipeRecord{VendorID: "V1", AttendanceDate: date(2025, 3, 18), TotalHours: hours})
	require.NoError(t, err)
}
