package port

import (
	"io"

	"github.com/garyjia/vendor-attendance/internal/domain/entity"
)

// RowProblem describes one spreadsheet row that could not be parsed
type RowProblem struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// SwipeSheet is the parsed content of a swipe workbook
type SwipeSheet struct {
	Records  []*entity.SwipeRecord
	Problems []RowProblem
}

// SwipeSheetReader parses an uploaded swipe export
type SwipeSheetReader interface {
	ReadSwipes(r io.Reader) (*SwipeSheet, error)
}
