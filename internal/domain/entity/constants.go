package entity

import "time"

// DateLayout is the storage and wire format of calendar dates
const DateLayout = "2006-01-02"

// StatusType is the vendor's self-reported attendance for a day
type StatusType string

const (
	StatusInOfficeFull StatusType = "IN_OFFICE_FULL"
	StatusInOfficeHalf StatusType = "IN_OFFICE_HALF"
	StatusWFHFull      StatusType = "WFH_FULL"
	StatusWFHHalf      StatusType = "WFH_HALF"
	StatusLeaveFull    StatusType = "LEAVE_FULL"
	StatusLeaveHalf    StatusType = "LEAVE_HALF"
)

// IsValid returns true if the status is one of the six defined values
func (s StatusType) IsValid() bool {
	switch s {
	case StatusInOfficeFull, StatusInOfficeHalf,
		StatusWFHFull, StatusWFHHalf,
		StatusLeaveFull, StatusLeaveHalf:
		return true
	default:
		return false
	}
}

// IsHalfDay returns true for the AM/PM split variants
func (s StatusType) IsHalfDay() bool {
	return s == StatusInOfficeHalf || s == StatusWFHHalf || s == StatusLeaveHalf
}

func (s StatusType) IsInOffice() bool {
	return s == StatusInOfficeFull || s == StatusInOfficeHalf
}

func (s StatusType) IsWFH() bool {
	return s == StatusWFHFull || s == StatusWFHHalf
}

func (s StatusType) IsLeave() bool {
	return s == StatusLeaveFull || s == StatusLeaveHalf
}

// HalfDaySession identifies which half of a split day the status covers
type HalfDaySession string

const (
	SessionNone HalfDaySession = ""
	SessionAM   HalfDaySession = "AM"
	SessionPM   HalfDaySession = "PM"
)

// IsValid returns true for AM or PM
func (h HalfDaySession) IsValid() bool {
	return h == SessionAM || h == SessionPM
}

// ApprovalStatus is shared by DailyStatus.ApprovalStatus and MismatchRecord.ManagerApproval
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

// IsValid returns true for the three approval states
func (a ApprovalStatus) IsValid() bool {
	return a == ApprovalPending || a == ApprovalApproved || a == ApprovalRejected
}

// SwipeStatus is the coarse bucket derived from a swipe record
type SwipeStatus string

const (
	SwipeFullDayOffice SwipeStatus = "FULL_DAY_OFFICE"
	SwipePartial       SwipeStatus = "PARTIAL_SWIPE"
	SwipeAbsentMarked  SwipeStatus = "ABSENT_MARKED"
	SwipeNone          SwipeStatus = "NO_SWIPE"
)

// ShowsPresence returns true when the badge feed places the vendor in the building
func (s SwipeStatus) ShowsPresence() bool {
	return s == SwipeFullDayOffice || s == SwipePartial
}

// MismatchType classifies a disagreement between web status and swipe signal
type MismatchType string

const (
	MismatchNoWebStatusButSwiped   MismatchType = "NO_WEB_STATUS_BUT_SWIPED"
	MismatchWFHButSwiped           MismatchType = "WFH_BUT_SWIPED"
	MismatchOnLeaveButSwiped       MismatchType = "ON_LEAVE_BUT_SWIPED"
	MismatchOfficeButNoSwipe       MismatchType = "OFFICE_BUT_NO_SWIPE"
	MismatchFullDayButPartialSwipe MismatchType = "FULL_DAY_BUT_PARTIAL_SWIPE"
)

// Severity of a mismatch; also used as the report's conflict priority
type Severity string

const (
	SeverityHigh   Severity = "HIGH"
	SeverityMedium Severity = "MEDIUM"
	SeverityLow    Severity = "LOW"
)

// NoWebStatus is stored as web_status when the vendor submitted nothing for the day
const NoWebStatus = "NOT_SUBMITTED"

// NormalizeDate truncates t to midnight UTC of its calendar date
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a normalized date
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return NormalizeDate(t), nil
}

// IsWeekend reports whether the date falls on Saturday or Sunday
func IsWeekend(date time.Time) bool {
	wd := date.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
