// Package container wires the attendance system together and owns its
// startup and shutdown order.
package container

import (
	"fmt"
	"time"

	"github.com/garyjia/vendor-attendance/internal/domain/billing"
	"github.com/garyjia/vendor-attendance/internal/domain/reconcile"
)

// Config holds all configuration for the Container.
type Config struct {
	Database       DatabaseConfig
	Server         ServerConfig
	Reconciliation ReconciliationConfig
	Billing        BillingConfig
	Import         ImportConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// MigrationsDir reads migrations from disk instead of the embedded set
	MigrationsDir string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxUploadBytes  int64
}

// ReconciliationConfig holds detector and detection worker settings.
type ReconciliationConfig struct {
	AbsentCodes []string

	// Location decides which calendar day "today" is
	Location *time.Location

	WorkerEnabled bool
	Interval      time.Duration
	LookbackDays  int
	RunTimeout    time.Duration

	// RunOnImport re-detects imported dates as part of the import
	RunOnImport bool
}

// BillingConfig holds correction gate settings.
type BillingConfig struct {
	GraceDay int
}

// ImportConfig holds swipe import settings.
type ImportConfig struct {
	// SheetName selects the worksheet; empty means the first sheet
	SheetName  string
	ArchiveDir string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:         "data/attendance.db",
			MaxOpenConns: 4,
			MaxIdleConns: 2,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxUploadBytes:  20 << 20,
		},
		Reconciliation: ReconciliationConfig{
			AbsentCodes:   reconcile.DefaultAbsentCodes,
			Location:      time.UTC,
			WorkerEnabled: true,
			Interval:      time.Hour,
			LookbackDays:  7,
			RunTimeout:    10 * time.Minute,
			RunOnImport:   true,
		},
		Billing: BillingConfig{
			GraceDay: billing.DefaultGraceDay,
		},
		Import: ImportConfig{
			ArchiveDir: "data/imports",
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Reconciliation.Location == nil {
		return fmt.Errorf("reconciliation.location is required")
	}
	if c.Reconciliation.WorkerEnabled && c.Reconciliation.Interval <= 0 {
		return fmt.Errorf("reconciliation.interval must be positive")
	}
	if c.Billing.GraceDay < 1 || c.Billing.GraceDay > 28 {
		return fmt.Errorf("billing.grace_day must be within 1..28")
	}
	if c.Import.ArchiveDir == "" {
		return fmt.Errorf("import.archive_dir is required")
	}
	return nil
}
