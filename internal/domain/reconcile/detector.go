// Package reconcile compares a vendor's self-reported daily status with the
// badge swipe feed and decides whether the two disagree.
//
// Everything here is pure: callers load the status and swipe rows, decide
// whether the date is a working day, and persist the resulting record.
package reconcile

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/vendor-attendance/internal/domain/entity"
)

// DefaultAbsentCodes are the raw swipe status codes that mean "absent"
var DefaultAbsentCodes = []string{"AA"}

// DecisionKind is the outcome category of one evaluation
type DecisionKind int

const (
	// DecisionUnclassified means the inputs fell outside the known enums.
	// It is never silently treated as clean.
	DecisionUnclassified DecisionKind = iota
	// DecisionSkipped means the date is a weekend or holiday
	DecisionSkipped
	// DecisionClean means the signals agree
	DecisionClean
	// DecisionMismatch means the signals disagree
	DecisionMismatch
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionSkipped:
		return "skipped"
	case DecisionClean:
		return "clean"
	case DecisionMismatch:
		return "mismatch"
	default:
		return "unclassified"
	}
}

// Decision is the result of classifying one (status, swipe) pair
type Decision struct {
	Kind        DecisionKind
	WebStatus   string
	SwipeStatus entity.SwipeStatus
	Type        entity.MismatchType
	Severity    entity.Severity
}

// Input is everything the detector needs for one vendor on one date
type Input struct {
	VendorID string
	Date     time.Time
	Status   *entity.DailyStatus
	Swipe    *entity.SwipeRecord
	// NonWorking is true for weekends and recorded holidays
	NonWorking bool
}

// Detector holds the site-specific swipe code configuration
type Detector struct {
	absentCodes map[string]bool
}

// NewDetector creates a detector; an empty code list falls back to DefaultAbsentCodes
func NewDetector(absentCodes []string) *Detector {
	if len(absentCodes) == 0 {
		absentCodes = DefaultAbsentCodes
	}
	codes := make(map[string]bool, len(absentCodes))
	for _, c := range absentCodes {
		codes[strings.ToUpper(strings.TrimSpace(c))] = true
	}
	return &Detector{absentCodes: codes}
}

// Bucket derives the coarse swipe status from a raw swipe row
func (d *Detector) Bucket(rec *entity.SwipeRecord) entity.SwipeStatus {
	if rec == nil {
		return entity.SwipeNone
	}

	hasLogin := rec.LoginTime != nil
	hasLogout := rec.LogoutTime != nil

	switch {
	case hasLogin && hasLogout:
		return entity.SwipeFullDayOffice
	case hasLogin || hasLogout:
		return entity.SwipePartial
	case d.absentCodes[strings.ToUpper(strings.TrimSpace(rec.StatusCode))]:
		return entity.SwipeAbsentMarked
	default:
		return entity.SwipeNone
	}
}

// Classify applies the mismatch table in priority order. An absence-coded
// row is not evidence of presence, so it is treated like a missing swipe.
func Classify(status *entity.DailyStatus, bucket entity.SwipeStatus) Decision {
	present := bucket.ShowsPresence()

	if status == nil {
		if present {
			return mismatch(entity.NoWebStatus, bucket, entity.MismatchNoWebStatusButSwiped, entity.SeverityHigh)
		}
		return clean(entity.NoWebStatus, bucket)
	}

	web := string(status.Status)
	switch status.Status {
	case entity.StatusWFHFull, entity.StatusWFHHalf:
		if present {
			return mismatch(web, bucket, entity.MismatchWFHButSwiped, entity.SeverityHigh)
		}
		return clean(web, bucket)

	case entity.StatusLeaveFull, entity.StatusLeaveHalf:
		if present {
			return mismatch(web, bucket, entity.MismatchOnLeaveButSwiped, entity.SeverityHigh)
		}
		return clean(web, bucket)

	case entity.StatusInOfficeFull:
		if !present {
			return mismatch(web, bucket, entity.MismatchOfficeButNoSwipe, entity.SeverityHigh)
		}
		if bucket == entity.SwipePartial {
			return mismatch(web, bucket, entity.MismatchFullDayButPartialSwipe, entity.SeverityMedium)
		}
		return clean(web, bucket)

	case entity.StatusInOfficeHalf:
		if !present {
			return mismatch(web, bucket, entity.MismatchOfficeButNoSwipe, entity.SeverityHigh)
		}
		return clean(web, bucket)

	default:
		return Decision{Kind: DecisionUnclassified, WebStatus: web, SwipeStatus: bucket}
	}
}

// Evaluate buckets the swipe row and classifies the pair, skipping non-working days
func (d *Detector) Evaluate(in Input) Decision {
	bucket := d.Bucket(in.Swipe)
	if in.NonWorking {
		web := entity.NoWebStatus
		if in.Status != nil {
			web = string(in.Status.Status)
		}
		return Decision{Kind: DecisionSkipped, WebStatus: web, SwipeStatus: bucket}
	}
	return Classify(in.Status, bucket)
}

// Details is the structured payload stored with a mismatch record
type Details struct {
	WebStatus      string          `json:"web_status"`
	HalfDaySession string          `json:"half_day_session,omitempty"`
	ReportedHours  *float64        `json:"reported_hours,omitempty"`
	SwipeStatus    string          `json:"swipe_status"`
	Login          string          `json:"login,omitempty"`
	Logout         string          `json:"logout,omitempty"`
	StatusCode     string          `json:"status_code,omitempty"`
	SwipeHours     *float64        `json:"swipe_hours,omitempty"`
	Conflicts      []string        `json:"conflicts"`
	Severity       entity.Severity `json:"severity"`
}

// BuildRecord turns a mismatch decision into the detector-owned fields of a record.
// Review fields (explanation, approval) are left at their initial values.
func BuildRecord(in Input, dec Decision) (*entity.MismatchRecord, error) {
	if dec.Kind != DecisionMismatch {
		return nil, fmt.Errorf("cannot build mismatch record from %s decision", dec.Kind)
	}

	details := Details{
		WebStatus:   dec.WebStatus,
		SwipeStatus: string(dec.SwipeStatus),
		Conflicts:   conflicts(dec),
		Severity:    dec.Severity,
	}
	if in.Status != nil {
		details.HalfDaySession = string(in.Status.HalfDaySession)
		hours := in.Status.TotalHours
		details.ReportedHours = &hours
	}
	if in.Swipe != nil {
		details.Login = clock(in.Swipe.LoginTime)
		details.Logout = clock(in.Swipe.LogoutTime)
		details.StatusCode = in.Swipe.StatusCode
		hours := in.Swipe.TotalHours
		details.SwipeHours = &hours
	}

	payload, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("marshal mismatch details: %w", err)
	}

	return &entity.MismatchRecord{
		VendorID:        in.VendorID,
		MismatchDate:    entity.NormalizeDate(in.Date),
		WebStatus:       dec.WebStatus,
		SwipeStatus:     dec.SwipeStatus,
		MismatchType:    dec.Type,
		Severity:        dec.Severity,
		Details:         string(payload),
		ManagerApproval: entity.ApprovalPending,
	}, nil
}

// ConflictPriority ranks a stored mismatch for the manager dashboard:
// HIGH when a WFH or leave day shows badge presence, MEDIUM when an office
// day shows only a partial swipe, LOW otherwise.
func ConflictPriority(webStatus string, swipe entity.SwipeStatus) entity.Severity {
	status := entity.StatusType(webStatus)
	switch {
	case (status.IsWFH() || status.IsLeave()) && swipe.ShowsPresence():
		return entity.SeverityHigh
	case status.IsInOffice() && swipe == entity.SwipePartial:
		return entity.SeverityMedium
	default:
		return entity.SeverityLow
	}
}

func mismatch(web string, bucket entity.SwipeStatus, t entity.MismatchType, sev entity.Severity) Decision {
	return Decision{Kind: DecisionMismatch, WebStatus: web, SwipeStatus: bucket, Type: t, Severity: sev}
}

func clean(web string, bucket entity.SwipeStatus) Decision {
	return Decision{Kind: DecisionClean, WebStatus: web, SwipeStatus: bucket}
}

func conflicts(dec Decision) []string {
	switch dec.Type {
	case entity.MismatchNoWebStatusButSwiped:
		return []string{"missing_web_status", "badge_presence"}
	case entity.MismatchWFHButSwiped:
		return []string{"web_wfh", "badge_presence"}
	case entity.MismatchOnLeaveButSwiped:
		return []string{"web_leave", "badge_presence"}
	case entity.MismatchOfficeButNoSwipe:
		return []string{"web_in_office", "no_badge_presence"}
	case entity.MismatchFullDayButPartialSwipe:
		return []string{"web_full_day", "single_swipe"}
	default:
		return []string{}
	}
}

func clock(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("15:04")
}
