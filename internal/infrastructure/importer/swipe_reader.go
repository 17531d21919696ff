// Package importer parses badge-system exports into swipe records.
package importer

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/vendor-attendance/internal/application/port"
	"github.com/garyjia/vendor-attendance/internal/domain/apperr"
	"github.com/garyjia/vendor-attendance/internal/domain/entity"
)

// MaxRows caps the data rows accepted from one workbook
const MaxRows = 50000

type column int

const (
	colVendorID column = iota
	colDate
	colLogin
	colLogout
	colStatus
	colHours
	colShift
	colExtra
	numColumns
)

// headerAliases maps normalized header text to the column it fills
var headerAliases = map[string]column{
	"vendor_id":       colVendorID,
	"vendor id":       colVendorID,
	"emp id":          colVendorID,
	"empid":           colVendorID,
	"employee id":     colVendorID,
	"date":            colDate,
	"attendance_date": colDate,
	"attendance date": colDate,
	"login":           colLogin,
	"login_time":      colLogin,
	"in time":         colLogin,
	"first in":        colLogin,
	"logout":          colLogout,
	"logout_time":     colLogout,
	"out time":        colLogout,
	"last out":        colLogout,
	"status":          colStatus,
	"status_code":     colStatus,
	"total_hours":     colHours,
	"total hours":     colHours,
	"hours":           colHours,
	"shift":           colShift,
	"shift_code":      colShift,
	"extra_hours":     colExtra,
	"extra hours":     colExtra,
	"ot hours":        colExtra,
}

var dateLayouts = []string{
	entity.DateLayout,
	"2006/01/02",
	"02-Jan-2006",
	"02-Jan-06",
	"01/02/2006",
	"1/2/2006",
	"01-02-06",
}

var clockLayouts = []string{
	"15:04",
	"15:04:05",
	"3:04 PM",
	"3:04:05 PM",
	"03:04 PM",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// SwipeReader reads swipe exports with excelize. Columns are located by
// header text so exports with reordered or extra columns still load.
type SwipeReader struct {
	sheetName string
	location  *time.Location
	logger    *zap.Logger
}

// NewSwipeReader creates a reader. An empty sheetName reads the first sheet;
// punch times are interpreted in loc.
func NewSwipeReader(sheetName string, loc *time.Location, logger *zap.Logger) *SwipeReader {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SwipeReader{sheetName: sheetName, location: loc, logger: logger}
}

// ReadSwipes parses the workbook. Malformed rows are reported as problems
// rather than failing the whole file; a missing sheet or required header fails.
func (r *SwipeReader) ReadSwipes(src io.Reader) (*port.SwipeSheet, error) {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, apperr.Validation("cannot open workbook: %v", err)
	}
	defer func() { _ = f.Close() }()

	sheet := r.sheetName
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, apperr.Validation("worksheet %q not found", sheet)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read worksheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, apperr.Validation("worksheet %q is empty", sheet)
	}

	index, err := headerIndex(rows[0])
	if err != nil {
		return nil, err
	}
	if len(rows)-1 > MaxRows {
		return nil, apperr.Validation("worksheet has %d data rows; at most %d allowed", len(rows)-1, MaxRows)
	}

	out := &port.SwipeSheet{Records: []*entity.SwipeRecord{}, Problems: []port.RowProblem{}}
	for i := 1; i < len(rows); i++ {
		rowNum := i + 1
		cells := rows[i]
		if blank(cells) {
			continue
		}

		rec, err := r.parseRow(cells, index)
		if err != nil {
			out.Problems = append(out.Problems, port.RowProblem{Row: rowNum, Message: err.Error()})
			continue
		}
		out.Records = append(out.Records, rec)
	}

	r.logger.Info("Swipe workbook parsed",
		zap.String("sheet", sheet),
		zap.Int("records", len(out.Records)),
		zap.Int("problems", len(out.Problems)))
	return out, nil
}

func (r *SwipeReader) parseRow(cells []string, index [numColumns]int) (*entity.SwipeRecord, error) {
	cell := func(c column) string {
		idx := index[c]
		if idx < 0 || idx >= len(cells) {
			return ""
		}
		return strings.TrimSpace(cells[idx])
	}

	vendorID := cell(colVendorID)
	if vendorID == "" {
		return nil, fmt.Errorf("vendor id is empty")
	}
	day, err := parseDate(cell(colDate))
	if err != nil {
		return nil, err
	}

	rec := &entity.SwipeRecord{
		VendorID:       vendorID,
		AttendanceDate: day,
		StatusCode:     strings.ToUpper(cell(colStatus)),
		ShiftCode:      cell(colShift),
	}
	if rec.LoginTime, err = r.parseClock(day, cell(colLogin)); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if rec.LogoutTime, err = r.parseClock(day, cell(colLogout)); err != nil {
		return nil, fmt.Errorf("logout: %w", err)
	}
	if rec.TotalHours, err = parseHours(cell(colHours)); err != nil {
		return nil, fmt.Errorf("total hours: %w", err)
	}
	if rec.ExtraHours, err = parseHours(cell(colExtra)); err != nil {
		return nil, fmt.Errorf("extra hours: %w", err)
	}

	if rec.TotalHours == 0 && rec.LoginTime != nil && rec.LogoutTime != nil && rec.LogoutTime.After(*rec.LoginTime) {
		rec.TotalHours = float64(int(rec.LogoutTime.Sub(*rec.LoginTime).Minutes())) / 60
	}
	return rec, nil
}

func headerIndex(header []string) ([numColumns]int, error) {
	var index [numColumns]int
	for i := range index {
		index[i] = -1
	}
	for i, h := range header {
		key := strings.Join(strings.Fields(strings.ToLower(h)), " ")
		if c, ok := headerAliases[key]; ok && index[c] < 0 {
			index[c] = i
		}
	}
	if index[colVendorID] < 0 || index[colDate] < 0 {
		return index, apperr.Validation("header row must contain a vendor id column and a date column")
	}
	return index, nil
}

func parseDate(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, fmt.Errorf("date is empty")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return entity.NormalizeDate(t), nil
		}
	}
	// unformatted cells come through as the Excel serial number
	if serial, err := strconv.ParseFloat(v, 64); err == nil && serial > 1 {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return entity.NormalizeDate(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", v)
}

// parseClock returns nil for an empty cell or a placeholder dash
func (r *SwipeReader) parseClock(day time.Time, v string) (*time.Time, error) {
	if v == "" || v == "-" || v == "--" || strings.EqualFold(v, "NA") {
		return nil, nil
	}

	for _, layout := range clockLayouts {
		t, err := time.Parse(layout, strings.ToUpper(v))
		if err != nil {
			continue
		}
		at := time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), t.Second(), 0, r.location)
		return &at, nil
	}

	// a fraction of a day, as Excel stores time-only cells
	if frac, err := strconv.ParseFloat(v, 64); err == nil && frac >= 0 && frac < 1 {
		secs := int(frac*86400 + 0.5)
		at := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, secs, 0, r.location)
		return &at, nil
	}
	return nil, fmt.Errorf("unrecognised time %q", v)
}

func parseHours(v string) (float64, error) {
	if v == "" || v == "-" {
		return 0, nil
	}
	// "8:30" style durations
	if h, m, ok := strings.Cut(v, ":"); ok {
		hours, err1 := strconv.Atoi(h)
		mins, err2 := strconv.Atoi(m)
		if err1 != nil || err2 != nil || mins < 0 || mins >= 60 {
			return 0, fmt.Errorf("unrecognised duration %q", v)
		}
		return float64(hours) + float64(mins)/60, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("unrecognised number %q", v)
	}
	return f, nil
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

var _ port.SwipeSheetReader = (*SwipeReader)(nil)
