package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/garyjia/vendor-attendance/internal/application/port"
	"go.uber.org/zap"
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// LocalImportArchive implements port.ImportArchive on the local filesystem.
// Files land in <baseDir>/YYYY/MM/<unix-nanos>_<sanitized name>.
type LocalImportArchive struct {
	baseDir string
	now     func() time.Time
	logger  *zap.Logger
}

// NewLocalImportArchive creates an archive rooted at baseDir
func NewLocalImportArchive(baseDir string, logger *zap.Logger) *LocalImportArchive {
	return &LocalImportArchive{
		baseDir: baseDir,
		now:     time.Now,
		logger:  logger,
	}
}

// Store writes content and returns its path relative to baseDir
func (a *LocalImportArchive) Store(ctx context.Context, filename string, content []byte) (string, error) {
	now := a.now()
	rel := filepath.Join(
		now.Format("2006"),
		now.Format("01"),
		fmt.Sprintf("%d_%s", now.UnixNano(), SanitizeName(filename)),
	)

	full, err := a.resolve(rel)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		a.logger.Error("Failed to create archive directory", zap.String("path", full), zap.Error(err))
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}
	if err := os.WriteFile(full, content, 0644); err != nil {
		a.logger.Error("Failed to archive workbook", zap.String("path", full), zap.Error(err))
		return "", fmt.Errorf("failed to archive workbook: %w", err)
	}

	a.logger.Info("Workbook archived", zap.String("path", rel), zap.Int("size", len(content)))
	return rel, nil
}

// resolve joins rel onto baseDir and refuses paths that escape it
func (a *LocalImportArchive) resolve(rel string) (string, error) {
	absBase, err := filepath.Abs(a.baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base path: %w", err)
	}
	absPath, err := filepath.Abs(filepath.Join(a.baseDir, rel))
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes archive directory: %s", rel)
	}
	return absPath, nil
}

// SanitizeName reduces an uploaded filename to a safe base name
func SanitizeName(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "upload.xlsx"
	}
	return name
}

var _ port.ImportArchive = (*LocalImportArchive)(nil)
