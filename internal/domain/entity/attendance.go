package entity

import "time"

// DailyStatus is a vendor's self-reported status for one calendar date.
// (VendorID, StatusDate) is the natural key.
type DailyStatus struct {
	ID             int64          `json:"id"`
	VendorID       string         `json:"vendor_id"`
	StatusDate     time.Time      `json:"status_date"`
	Status         StatusType     `json:"status"`
	HalfDaySession HalfDaySession `json:"half_day_session,omitempty"`
	Location       string         `json:"location,omitempty"`
	InTime         *time.Time     `json:"in_time,omitempty"`
	OutTime        *time.Time     `json:"out_time,omitempty"`
	TotalHours     float64        `json:"total_hours"`
	Comments       string         `json:"comments,omitempty"`
	ApprovalStatus ApprovalStatus `json:"approval_status"`
	SubmittedAt    time.Time      `json:"submitted_at"`
	ApprovedBy     *string        `json:"approved_by,omitempty"`
	ApprovedAt     *time.Time     `json:"approved_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// IsEditable returns true while the vendor may still change the record
func (s *DailyStatus) IsEditable() bool {
	return s.ApprovalStatus == ApprovalPending
}

// SwipeRecord is one day of imported badge data for a vendor.
// (VendorID, AttendanceDate) is the natural key.
type SwipeRecord struct {
	ID             int64      `json:"id"`
	VendorID       string     `json:"vendor_id"`
	AttendanceDate time.Time  `json:"attendance_date"`
	LoginTime      *time.Time `json:"login_time,omitempty"`
	LogoutTime     *time.Time `json:"logout_time,omitempty"`
	StatusCode     string     `json:"status_code,omitempty"`
	TotalHours     float64    `json:"total_hours"`
	ShiftCode      string     `json:"shift_code,omitempty"`
	ExtraHours     float64    `json:"extra_hours"`
	ImportedAt     time.Time  `json:"imported_at"`
}

// MismatchRecord is a detected disagreement for one (vendor, date).
type MismatchRecord struct {
	ID                int64          `json:"id"`
	VendorID          string         `json:"vendor_id"`
	MismatchDate      time.Time      `json:"mismatch_date"`
	WebStatus         string         `json:"web_status"`
	SwipeStatus       SwipeStatus    `json:"swipe_status"`
	MismatchType      MismatchType   `json:"mismatch_type"`
	Severity          Severity       `json:"severity"`
	Details           string         `json:"details"`
	VendorExplanation string         `json:"vendor_explanation,omitempty"`
	ExplainedAt       *time.Time     `json:"explained_at,omitempty"`
	ManagerApproval   ApprovalStatus `json:"manager_approval"`
	ManagerComments   string         `json:"manager_comments,omitempty"`
	ApprovedBy        *string        `json:"approved_by,omitempty"`
	ApprovedAt        *time.Time     `json:"approved_at,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// SameSignals reports whether the detector-owned fields equal other's
func (m *MismatchRecord) SameSignals(other *MismatchRecord) bool {
	return m.WebStatus == other.WebStatus &&
		m.SwipeStatus == other.SwipeStatus &&
		m.MismatchType == other.MismatchType &&
		m.Severity == other.Severity &&
		m.Details == other.Details
}
