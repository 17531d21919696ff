package service

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/garyjia/vendor-attendance/internal/application/port"
	"github.com/garyjia/vendor-attendance/internal/domain/apperr"
	"github.com/garyjia/vendor-attendance/internal/domain/entity"
	"github.com/garyjia/vendor-attendance/internal/domain/event"
)

// ImportResult summarises one swipe import
type ImportResult struct {
	ArchivePath string            `json:"archive_path,omitempty"`
	Rows        int               `json:"rows"`
	Created     int               `json:"created"`
	Updated     int               `json:"updated"`
	Skipped     int               `json:"skipped"`
	Dates       []string          `json:"dates"`
	Problems    []port.RowProblem `json:"problems"`
}

// SwipeImportService loads badge data into the swipe store
type SwipeImportService interface {
	// Import upserts rows; a re-imported (vendor, date) replaces the earlier row
	Import(ctx context.Context, rows []*entity.SwipeRecord, actor string) (*ImportResult, error)
	// ImportWorkbook archives and parses an uploaded export, then imports it
	ImportWorkbook(ctx context.Context, filename string, content []byte, actor string) (*ImportResult, error)
}

type swipeImportServiceImpl struct {
	swipes    port.SwipeRecordRepository
	vendors   port.VendorRepository
	reader    port.SwipeSheetReader
	archive   port.ImportArchive
	txManager port.TransactionManager
	publisher EventPublisher
	clock     Clock
	logger    Logger
}

// NewSwipeImportService creates a new SwipeImportService. reader and archive
// may be nil when only Import is used.
func NewSwipeImportService(
	swipes port.SwipeRecordRepository,
	vendors port.VendorRepository,
	reader port.SwipeSheetReader,
	archive port.ImportArchive,
	txManager port.TransactionManager,
	publisher EventPublisher,
	clock Clock,
	logger Logger,
) SwipeImportService {
	return &swipeImportServiceImpl{
		swipes:    swipes,
		vendors:   vendors,
		reader:    reader,
		archive:   archive,
		txManager: txManager,
		publisher: publisher,
		clock:     orNow(clock),
		logger:    logger,
	}
}

func (s *swipeImportServiceImpl) Import(ctx context.Context, rows []*entity.SwipeRecord, actor string) (*ImportResult, error) {
	result := &ImportResult{Rows: len(rows), Dates: []string{}, Problems: []port.RowProblem{}}

	known := make(map[string]bool)
	accepted := make([]*entity.SwipeRecord, 0, len(rows))
	for i, row := range rows {
		if row != nil {
			row.VendorID = strings.TrimSpace(row.VendorID)
		}
		if msg := checkSwipeRow(row); msg != "" {
			result.Problems = append(result.Problems, port.RowProblem{Row: i + 1, Message: msg})
			continue
		}

		exists, seen := known[row.VendorID]
		if !seen {
			v, err := s.vendors.GetByID(ctx, row.VendorID)
			if err != nil {
				return nil, fmt.Errorf("get vendor: %w", err)
			}
			exists = v != nil
			known[row.VendorID] = exists
		}
		if !exists {
			result.Problems = append(result.Problems, port.RowProblem{Row: i + 1, Message: fmt.Sprintf("unknown vendor %s", row.VendorID)})
			continue
		}
		accepted = append(accepted, row)
	}
	result.Skipped = len(rows) - len(accepted)

	if len(accepted) == 0 {
		s.logger.Info("Swipe import had no usable rows", "rows", result.Rows, "actor", actor)
		return result, nil
	}

	now := s.clock()
	dates := make(map[string]bool)
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		for _, row := range accepted {
			row.AttendanceDate = entity.NormalizeDate(row.AttendanceDate)
			row.StatusCode = strings.ToUpper(strings.TrimSpace(row.StatusCode))
			row.ImportedAt = now
			created, err := s.swipes.Upsert(txCtx, row)
			if err != nil {
				return fmt.Errorf("upsert swipe for %s on %s: %w", row.VendorID, row.AttendanceDate.Format(entity.DateLayout), err)
			}
			if created {
				result.Created++
			} else {
				result.Updated++
			}
			dates[row.AttendanceDate.Format(entity.DateLayout)] = true
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Swipe import failed", "error", err, "rows", result.Rows, "actor", actor)
		return nil, err
	}

	for d := range dates {
		result.Dates = append(result.Dates, d)
	}
	sort.Strings(result.Dates)

	s.logger.Info("Swipes imported", "rows", result.Rows, "created", result.Created,
		"updated", result.Updated, "skipped", result.Skipped, "dates", len(result.Dates), "actor", actor)

	publish(ctx, s.publisher, s.logger, event.New(event.TypeSwipesImported, actor, "", 0,
		map[string]interface{}{
			"dates":   result.Dates,
			"created": result.Created,
			"updated": result.Updated,
		}))
	return result, nil
}

func (s *swipeImportServiceImpl) ImportWorkbook(ctx context.Context, filename string, content []byte, actor string) (*ImportResult, error) {
	if s.reader == nil {
		return nil, fmt.Errorf("no swipe sheet reader configured")
	}
	if len(content) == 0 {
		return nil, apperr.Validation("uploaded file %q is empty", filename)
	}

	var archivePath string
	if s.archive != nil {
		path, err := s.archive.Store(ctx, filename, content)
		if err != nil {
			s.logger.Error("Failed to archive swipe workbook", "error", err, "filename", filename)
			return nil, err
		}
		archivePath = path
	}

	sheet, err := s.reader.ReadSwipes(bytes.NewReader(content))
	if err != nil {
		logRejection(s.logger, "Failed to read swipe workbook", err, "filename", filename)
		return nil, err
	}

	result, err := s.Import(ctx, sheet.Records, actor)
	if err != nil {
		return nil, err
	}
	result.ArchivePath = archivePath
	// sheet problems come first; import row numbers refer to parsed records
	result.Rows += len(sheet.Problems)
	result.Skipped += len(sheet.Problems)
	result.Problems = append(append([]port.RowProblem{}, sheet.Problems...), result.Problems...)
	return result, nil
}

func checkSwipeRow(row *entity.SwipeRecord) string {
	switch {
	case row == nil:
		return "empty row"
	case row.VendorID == "":
		return "vendor id is required"
	case row.AttendanceDate.IsZero():
		return "attendance date is required"
	case row.TotalHours < 0 || row.TotalHours > 24:
		return fmt.Sprintf("total hours %.2f out of range", row.TotalHours)
	case row.LoginTime != nil && row.LogoutTime != nil && row.LogoutTime.Before(*row.LoginTime):
		return "logout is before login"
	}
	return ""
}
