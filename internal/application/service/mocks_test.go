package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/garyjia/vendor-attendance/internal/application/port"
	"github.com/garyjia/vendor-attendance/internal/domain/apperr"
	"github.com/garyjia/vendor-attendance/internal/domain/entity"
	"github.com/garyjia/vendor-attendance/internal/domain/event"
)

// In-memory repositories. They hold copies so a test can tell whether a
// service wrote anything, and enforce the same natural keys and PENDING
// guards as the sqlite repositories.

type mockVendorRepo struct {
	vendors map[string]*entity.Vendor
	getErr  error
}

func newMockVendorRepo(vendors ...*entity.Vendor) *mockVendorRepo {
	m := &mockVendorRepo{vendors: make(map[string]*entity.Vendor)}
	for _, v := range vendors {
		cp := *v
		m.vendors[v.VendorID] = &cp
	}
	return m
}

func (m *mockVendorRepo) Create(ctx context.Context, v *entity.Vendor) error {
	if _, ok := m.vendors[v.VendorID]; ok {
		return apperr.Validation("vendor %s already exists", v.VendorID)
	}
	cp := *v
	m.vendors[v.VendorID] = &cp
	return nil
}

func (m *mockVendorRepo) GetByID(ctx context.Context, id string) (*entity.Vendor, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.vendors[id]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

func (m *mockVendorRepo) Update(ctx context.Context, v *entity.Vendor) error {
	if _, ok := m.vendors[v.VendorID]; !ok {
		return apperr.NotFound("vendor", v.VendorID)
	}
	cp := *v
	m.vendors[v.VendorID] = &cp
	return nil
}

func (m *mockVendorRepo) SetActive(ctx context.Context, id string, active bool) error {
	v, ok := m.vendors[id]
	if !ok {
		return apperr.NotFound("vendor", id)
	}
	v.Active = active
	return nil
}

func (m *mockVendorRepo) ListActive(ctx context.Context) ([]*entity.Vendor, error) {
	return m.list(func(v *entity.Vendor) bool { return v.Active }), nil
}

func (m *mockVendorRepo) ListByManager(ctx context.Context, managerID string) ([]*entity.Vendor, error) {
	return m.list(func(v *entity.Vendor) bool { return v.ReportsTo(managerID) }), nil
}

func (m *mockVendorRepo) list(keep func(*entity.Vendor) bool) []*entity.Vendor {
	out := []*entity.Vendor{}
	for _, v := range m.vendors {
		if keep(v) {
			cp := *v
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VendorID < out[j].VendorID })
	return out
}

type mockManagerRepo struct {
	managers map[string]*entity.Manager
}

func newMockManagerRepo(managers ...*entity.Manager) *mockManagerRepo {
	m := &mockManagerRepo{managers: make(map[string]*entity.Manager)}
	for _, mg := range managers {
		cp := *mg
		m.managers[mg.ManagerID] = &cp
	}
	return m
}

func (m *mockManagerRepo) Create(ctx context.Context, mg *entity.Manager) error {
	if _, ok := m.managers[mg.ManagerID]; ok {
		return apperr.Validation("manager %s already exists", mg.ManagerID)
	}
	cp := *mg
	m.managers[mg.ManagerID] = &cp
	return nil
}

func (m *mockManagerRepo) GetByID(ctx context.Context, id string) (*entity.Manager, error) {
	mg, ok := m.managers[id]
	if !ok {
		return nil, nil
	}
	cp := *mg
	return &cp, nil
}

func (m *mockManagerRepo) List(ctx context.Context) ([]*entity.Manager, error) {
	out := []*entity.Manager{}
	for _, mg := range m.managers {
		cp := *mg
		out = append(out, &cp)
	}
	return out, nil
}

type mockStatusRepo struct {
	byID   map[int64]*entity.DailyStatus
	nextID int64

	createFunc func(ctx context.Context, s *entity.DailyStatus) error
}

func newMockStatusRepo() *mockStatusRepo {
	return &mockStatusRepo{byID: make(map[int64]*entity.DailyStatus)}
}

func (m *mockStatusRepo) put(s *entity.DailyStatus) *entity.DailyStatus {
	m.nextID++
	cp := *s
	cp.ID = m.nextID
	m.byID[cp.ID] = &cp
	s.ID = cp.ID
	return s
}

func (m *mockStatusRepo) Create(ctx context.Context, s *entity.DailyStatus) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, s)
	}
	for _, existing := range m.byID {
		if existing.VendorID == s.VendorID && existing.StatusDate.Equal(s.StatusDate) {
			return apperr.Validation("status for %s on %s already exists", s.VendorID, s.StatusDate.Format(entity.DateLayout))
		}
	}
	m.put(s)
	return nil
}

func (m *mockStatusRepo) GetByID(ctx context.Context, id int64) (*entity.DailyStatus, error) {
	s, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *mockStatusRepo) GetByVendorAndDate(ctx context.Context, vendorID string, date time.Time) (*entity.DailyStatus, error) {
	for _, s := range m.byID {
		if s.VendorID == vendorID && s.StatusDate.Equal(date) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockStatusRepo) UpdatePending(ctx context.Context, s *entity.DailyStatus) error {
	existing, ok := m.byID[s.ID]
	if !ok || existing.ApprovalStatus != entity.ApprovalPending {
		return fmt.Errorf("daily status %d is no longer pending: %w", s.ID, apperr.ErrStale)
	}
	cp := *s
	m.byID[s.ID] = &cp
	return nil
}

func (m *mockStatusRepo) Decide(ctx context.Context, id int64, decision entity.ApprovalStatus, approvedBy string, at time.Time) error {
	existing, ok := m.byID[id]
	if !ok || existing.ApprovalStatus != entity.ApprovalPending {
		return fmt.Errorf("daily status %d is no longer pending: %w", id, apperr.ErrStale)
	}
	existing.ApprovalStatus = decision
	existing.ApprovedBy = &approvedBy
	existing.ApprovedAt = &at
	return nil
}

func (m *mockStatusRepo) UpdateHours(ctx context.Context, id int64, hours float64) error {
	existing, ok := m.byID[id]
	if !ok {
		return apperr.NotFound("daily status", id)
	}
	existing.TotalHours = hours
	return nil
}

func (m *mockStatusRepo) ListByVendor(ctx context.Context, vendorID string, from, to time.Time) ([]*entity.DailyStatus, error) {
	out := []*entity.DailyStatus{}
	for _, s := range m.byID {
		if s.VendorID == vendorID && !s.StatusDate.Before(from) && !s.StatusDate.After(to) {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StatusDate.Before(out[j].StatusDate) })
	return out, nil
}

type mockSwipeRepo struct {
	rows   map[string]*entity.SwipeRecord
	nextID int64

	upsertFunc func(ctx context.Context, rec *entity.SwipeRecord) (bool, error)
}

func newMockSwipeRepo(rows ...*entity.SwipeRecord) *mockSwipeRepo {
	m := &mockSwipeRepo{rows: make(map[string]*entity.SwipeRecord)}
	for _, r := range rows {
		_, _ = m.Upsert(context.Background(), r)
	}
	return m
}

func swipeKey(vendorID string, date time.Time) string {
	return vendorID + "|" + date.Format(entity.DateLayout)
}

func (m *mockSwipeRepo) Upsert(ctx context.Context, rec *entity.SwipeRecord) (bool, error) {
	if m.upsertFunc != nil {
		return m.upsertFunc(ctx, rec)
	}
	key := swipeKey(rec.VendorID, rec.AttendanceDate)
	cp := *rec
	if existing, ok := m.rows[key]; ok {
		cp.ID = existing.ID
		m.rows[key] = &cp
		return false, nil
	}
	m.nextID++
	cp.ID = m.nextID
	rec.ID = cp.ID
	m.rows[key] = &cp
	return true, nil
}

func (m *mockSwipeRepo) GetByVendorAndDate(ctx context.Context, vendorID string, date time.Time) (*entity.SwipeRecord, error) {
	r, ok := m.rows[swipeKey(vendorID, date)]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

type mockMismatchRepo struct {
	byID   map[int64]*entity.MismatchRecord
	nextID int64
	writes int

	createFunc func(ctx context.Context, rec *entity.MismatchRecord) error
}

func newMockMismatchRepo() *mockMismatchRepo {
	return &mockMismatchRepo{byID: make(map[int64]*entity.MismatchRecord)}
}

func (m *mockMismatchRepo) put(rec *entity.MismatchRecord) *entity.MismatchRecord {
	m.nextID++
	cp := *rec
	cp.ID = m.nextID
	m.byID[cp.ID] = &cp
	rec.ID = cp.ID
	return rec
}

func (m *mockMismatchRepo) Create(ctx context.Context, rec *entity.MismatchRecord) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, rec)
	}
	for _, existing := range m.byID {
		if existing.VendorID == rec.VendorID && existing.MismatchDate.Equal(rec.MismatchDate) {
			return apperr.Validation("mismatch for %s on %s already exists", rec.VendorID, rec.MismatchDate.Format(entity.DateLayout))
		}
	}
	m.writes++
	m.put(rec)
	return nil
}

func (m *mockMismatchRepo) GetByID(ctx context.Context, id int64) (*entity.MismatchRecord, error) {
	r, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (m *mockMismatchRepo) GetByVendorAndDate(ctx context.Context, vendorID string, date time.Time) (*entity.MismatchRecord, error) {
	for _, r := range m.byID {
		if r.VendorID == vendorID && r.MismatchDate.Equal(date) {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockMismatchRepo) UpdateSignals(ctx context.Context, rec *entity.MismatchRecord) error {
	existing, ok := m.byID[rec.ID]
	if !ok {
		return apperr.NotFound("mismatch", rec.ID)
	}
	m.writes++
	existing.WebStatus = rec.WebStatus
	existing.SwipeStatus = rec.SwipeStatus
	existing.MismatchType = rec.MismatchType
	existing.Severity = rec.Severity
	existing.Details = rec.Details
	return nil
}

func (m *mockMismatchRepo) SetExplanation(ctx context.Context, id int64, explanation string, at time.Time) error {
	existing, ok := m.byID[id]
	if !ok || existing.ManagerApproval != entity.ApprovalPending {
		return fmt.Errorf("mismatch %d is no longer pending: %w", id, apperr.ErrStale)
	}
	m.writes++
	existing.VendorExplanation = explanation
	existing.ExplainedAt = &at
	return nil
}

func (m *mockMismatchRepo) Decide(ctx context.Context, id int64, decision entity.ApprovalStatus, approvedBy, comments string, at time.Time) error {
	existing, ok := m.byID[id]
	if !ok || existing.ManagerApproval != entity.ApprovalPending {
		return fmt.Errorf("mismatch %d is no longer pending: %w", id, apperr.ErrStale)
	}
	m.writes++
	existing.ManagerApproval = decision
	existing.ManagerComments = comments
	existing.ApprovedBy = &approvedBy
	existing.ApprovedAt = &at
	return nil
}

func (m *mockMismatchRepo) ListByVendors(ctx context.Context, vendorIDs []string) ([]*entity.MismatchRecord, error) {
	want := make(map[string]bool, len(vendorIDs))
	for _, id := range vendorIDs {
		want[id] = true
	}
	out := []*entity.MismatchRecord{}
	for _, r := range m.byID {
		if want[r.VendorID] {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type mockHolidayRepo struct {
	holidays map[time.Time]*entity.Holiday
}

func newMockHolidayRepo(dates ...time.Time) *mockHolidayRepo {
	m := &mockHolidayRepo{holidays: make(map[time.Time]*entity.Holiday)}
	for _, d := range dates {
		m.holidays[entity.NormalizeDate(d)] = &entity.Holiday{Date: entity.NormalizeDate(d), Name: "Holiday"}
	}
	return m
}

func (m *mockHolidayRepo) Create(ctx context.Context, h *entity.Holiday) error {
	if _, ok := m.holidays[h.Date]; ok {
		return apperr.Validation("holiday on %s already exists", h.Date.Format(entity.DateLayout))
	}
	cp := *h
	m.holidays[h.Date] = &cp
	return nil
}

func (m *mockHolidayRepo) DeleteByDate(ctx context.Context, date time.Time) error {
	if _, ok := m.holidays[date]; !ok {
		return apperr.NotFound("holiday", date.Format(entity.DateLayout))
	}
	delete(m.holidays, date)
	return nil
}

func (m *mockHolidayRepo) GetByDate(ctx context.Context, date time.Time) (*entity.Holiday, error) {
	h, ok := m.holidays[date]
	if !ok {
		return nil, nil
	}
	cp := *h
	return &cp, nil
}

func (m *mockHolidayRepo) ListBetween(ctx context.Context, from, to time.Time) ([]*entity.Holiday, error) {
	out := []*entity.Holiday{}
	for d, h := range m.holidays {
		if !d.Before(from) && !d.After(to) {
			cp := *h
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

type mockAuditRepo struct {
	logs []*entity.AuditLog
}

func (m *mockAuditRepo) Create(ctx context.Context, log *entity.AuditLog) error {
	cp := *log
	m.logs = append(m.logs, &cp)
	return nil
}

func (m *mockAuditRepo) ListByRecord(ctx context.Context, table string, recordID int64) ([]*entity.AuditLog, error) {
	out := []*entity.AuditLog{}
	for _, l := range m.logs {
		if l.TableName == table && l.RecordID == recordID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *mockAuditRepo) actions() []string {
	out := make([]string, len(m.logs))
	for i, l := range m.logs {
		out[i] = l.Action
	}
	return out
}

type mockCorrectionRepo struct {
	corrections []*entity.HoursCorrection
}

func (m *mockCorrectionRepo) Create(ctx context.Context, c *entity.HoursCorrection) error {
	c.ID = int64(len(m.corrections) + 1)
	cp := *c
	m.corrections = append(m.corrections, &cp)
	return nil
}

func (m *mockCorrectionRepo) ListByVendor(ctx context.Context, vendorID string) ([]*entity.HoursCorrection, error) {
	out := []*entity.HoursCorrection{}
	for _, c := range m.corrections {
		if c.VendorID == vendorID {
			out = append(out, c)
		}
	}
	return out, nil
}

type mockTxManager struct {
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

type mockLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, msg)
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

type mockPublisher struct {
	events []*event.Event
	err    error
}

func (m *mockPublisher) Dispatch(ctx context.Context, evt *event.Event) error {
	m.events = append(m.events, evt)
	return m.err
}

func (m *mockPublisher) types() []event.Type {
	out := make([]event.Type, len(m.events))
	for i, e := range m.events {
		out[i] = e.Type
	}
	return out
}

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func clockAt(y int, m time.Month, d, hh, mm int) *time.Time {
	t := time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
	return &t
}

func strPtr(s string) *string { return &s }

// team builds the fixture shared by the service tests: M1 manages V1 and
// V2, M2 manages V3, and V4 is inactive on M1's team.
func team() (*mockVendorRepo, *mockManagerRepo) {
	vendors := newMockVendorRepo(
		&entity.Vendor{VendorID: "V1", Name: "Asha Rao", ManagerID: strPtr("M1"), Active: true},
		&entity.Vendor{VendorID: "V2", Name: "Ben Ortiz", ManagerID: strPtr("M1"), Active: true},
		&entity.Vendor{VendorID: "V3", Name: "Chen Wei", ManagerID: strPtr("M2"), Active: true},
		&entity.Vendor{VendorID: "V4", Name: "Dana Hill", ManagerID: strPtr("M1"), Active: false},
	)
	managers := newMockManagerRepo(
		&entity.Manager{ManagerID: "M1", Name: "Maya Singh", Active: true},
		&entity.Manager{ManagerID: "M2", Name: "Omar Haddad", Active: true},
	)
	return vendors, managers
}

var (
	_ port.VendorRepository          = (*mockVendorRepo)(nil)
	_ port.ManagerRepository         = (*mockManagerRepo)(nil)
	_ port.DailyStatusRepository     = (*mockStatusRepo)(nil)
	_ port.SwipeRecordRepository     = (*mockSwipeRepo)(nil)
	_ port.MismatchRepository        = (*mockMismatchRepo)(nil)
	_ port.HolidayRepository         = (*mockHolidayRepo)(nil)
	_ port.AuditLogRepository        = (*mockAuditRepo)(nil)
	_ port.HoursCorrectionRepository = (*mockCorrectionRepo)(nil)
	_ port.TransactionManager        = (*mockTxManager)(nil)
)
