package importer

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/garyjia/vendor-attendance/internal/domain/apperr"
)

func workbook(t *testing.T, sheet string, rows ...[]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if sheet != "Sheet1" {
		_, err := f.NewSheet(sheet)
		require.NoError(t, err)
		require.NoError(t, f.DeleteSheet("Sheet1"))
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow(sheet, cell, &r))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestSwipeReader_ReadSwipes(t *testing.T) {
	buf := workbook(t, "Sheet1",
		[]interface{}{"Emp ID", "Name", "Date", "In Time", "Out Time", "Status", "Total Hours"},
		[]interface{}{"V100", "Asha", "2025-03-04", "09:10", "17:50", "ap", "8:40"},
		[]interface{}{"V101", "Ben", "04-Mar-2025", "9:00 am", "", "AP", ""},
		[]interface{}{"V102", "Chen", "2025-03-04", "-", "-", "AA", "0"},
		[]interface{}{},
		[]interface{}{"", "Nobody", "2025-03-04"},
		[]interface{}{"V103", "Dana", "yesterday"},
		[]interface{}{"V104", "Eve", "2025-03-04", "25:99"},
	)

	sheet, err := NewSwipeReader("", time.UTC, nil).ReadSwipes(buf)
	require.NoError(t, err)

	require.Len(t, sheet.Records, 3)
	first := sheet.Records[0]
	assert.Equal(t, "V100", first.VendorID)
	assert.Equal(t, time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC), first.AttendanceDate)
	require.NotNil(t, first.LoginTime)
	require.NotNil(t, first.LogoutTime)
	assert.Equal(t, time.Date(2025, 3, 4, 9, 10, 0, 0, time.UTC), *first.LoginTime)
	assert.Equal(t, time.Date(2025, 3, 4, 17, 50, 0, 0, time.UTC), *first.LogoutTime)
	assert.Equal(t, "AP", first.StatusCode)
	assert.InDelta(t, 8.6667, first.TotalHours, 0.001)

	second := sheet.Records[1]
	require.NotNil(t, second.LoginTime)
	assert.Equal(t, 9, second.LoginTime.Hour())
	assert.Nil(t, second.LogoutTime)

	third := sheet.Records[2]
	assert.Nil(t, third.LoginTime)
	assert.Nil(t, third.LogoutTime)
	assert.Equal(t, "AA", third.StatusCode)

	require.Len(t, sheet.Problems, 3)
	assert.Equal(t, 6, sheet.Problems[0].Row)
	assert.Contains(t, sheet.Problems[0].Message, "vendor id")
	assert.Equal(t, 7, sheet.Problems[1].Row)
	assert.Contains(t, sheet.Problems[1].Message, "date")
	assert.Equal(t, 8, sheet.Problems[2].Row)
	assert.Contains(t, sheet.Problems[2].Message, "login")
}

func TestSwipeReader_DerivesHoursFromPunches(t *testing.T) {
	buf := workbook(t, "Sheet1",
		[]interface{}{"vendor_id", "attendance_date", "login_time", "logout_time"},
		[]interface{}{"V100", "2025-03-04", "09:00", "17:30"},
	)

	sheet, err := NewSwipeReader("", time.UTC, nil).ReadSwipes(buf)
	require.NoError(t, err)
	require.Len(t, sheet.Records, 1)
	assert.Equal(t, 8.5, sheet.Records[0].TotalHours)
}

func TestSwipeReader_NamedSheet(t *testing.T) {
	buf := workbook(t, "Swipes",
		[]interface{}{"EmpID", "Date"},
		[]interface{}{"V100", "2025-03-04"},
	)

	sheet, err := NewSwipeReader("Swipes", time.UTC, nil).ReadSwipes(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Len(t, sheet.Records, 1)

	_, err = NewSwipeReader("Missing", time.UTC, nil).ReadSwipes(bytes.NewReader(buf.Bytes()))
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestSwipeReader_Rejects(t *testing.T) {
	t.Run("missing required header", func(t *testing.T) {
		buf := workbook(t, "Sheet1", []interface{}{"Name", "Date"}, []interface{}{"Asha", "2025-03-04"})
		_, err := NewSwipeReader("", time.UTC, nil).ReadSwipes(buf)
		assert.True(t, errors.Is(err, apperr.ErrValidation))
	})

	t.Run("not a workbook", func(t *testing.T) {
		_, err := NewSwipeReader("", time.UTC, nil).ReadSwipes(bytes.NewReader([]byte("vendor_id,date\n")))
		assert.True(t, errors.Is(err, apperr.ErrValidation))
	})

	t.Run("empty sheet", func(t *testing.T) {
		buf := workbook(t, "Sheet1")
		_, err := NewSwipeReader("", time.UTC, nil).ReadSwipes(buf)
		assert.True(t, errors.Is(err, apperr.ErrValidation))
	})
}

func TestParseDate_ExcelSerial(t *testing.T) {
	// 45720 is 2025-03-04 in the 1900 date system
	got, err := parseDate("45720")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC), got)
}

func TestParseHours(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"", 0, false},
		{"8.5", 8.5, false},
		{"7:45", 7.75, false},
		{"7:75", 0, true},
		{"eight", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseHours(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
