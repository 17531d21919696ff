package entity

import "time"

// Audit actions
const (
	AuditActionSubmitStatus     = "SUBMIT_STATUS"
	AuditActionUpdateStatus     = "UPDATE_STATUS"
	AuditActionApproveStatus    = "APPROVE_STATUS"
	AuditActionRejectStatus     = "REJECT_STATUS"
	AuditActionDetectMismatch   = "DETECT_MISMATCH"
	AuditActionRedetectMismatch = "REDETECT_MISMATCH"
	AuditActionExplainMismatch  = "EXPLAIN_MISMATCH"
	AuditActionApproveMismatch  = "APPROVE_MISMATCH"
	AuditActionRejectMismatch   = "REJECT_MISMATCH"
	AuditActionCorrectHours     = "CORRECT_HOURS"
)

// Audited tables
const (
	TableDailyStatus      = "daily_statuses"
	TableMismatchRecords  = "mismatch_records"
	TableHoursCorrections = "hours_corrections"
)

// SystemActor is recorded as the actor of detector writes
const SystemActor = "system:detector"

// AuditLog is an append-only record of one mutating transition
type AuditLog struct {
	ID        string    `json:"id"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	TableName string    `json:"table_name"`
	RecordID  int64     `json:"record_id"`
	OldValues string    `json:"old_values,omitempty"`
	NewValues string    `json:"new_values,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// HoursCorrection records a manager's retroactive change to billed hours
type HoursCorrection struct {
	ID          int64     `json:"id"`
	VendorID    string    `json:"vendor_id"`
	WorkDate    time.Time `json:"work_date"`
	OldHours    float64   `json:"old_hours"`
	NewHours    float64   `json:"new_hours"`
	OldSource   string    `json:"old_source"`
	Reason      string    `json:"reason"`
	CorrectedBy string    `json:"corrected_by"`
	CorrectedAt time.Time `json:"corrected_at"`
}

// Sources of the pre-correction hours figure
const (
	HoursSourceDailyStatus = "daily_status"
	HoursSourceSwipe       = "swipe_record"
	HoursSourceNone        = "none"
)
