package config

import (
	"fmt"

	"github.com/garyjia/vendor-attendance/internal/container"
)

// ToContainerConfig converts the file-based Config into the container's settings
func (c *Config) ToContainerConfig() (*container.Config, error) {
	loc, err := c.Location()
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}

	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			MigrationsDir:   c.Database.MigrationsDir,
		},
		Server: container.ServerConfig{
			Host:            c.Server.Host,
			Port:            c.Server.Port,
			ReadTimeout:     c.Server.ReadTimeout,
			WriteTimeout:    c.Server.WriteTimeout,
			ShutdownTimeout: c.Server.ShutdownTimeout,
			MaxUploadBytes:  int64(c.Server.MaxUploadMB) << 20,
		},
		Reconciliation: container.ReconciliationConfig{
			AbsentCodes:   c.Reconciliation.AbsentCodes,
			Location:      loc,
			WorkerEnabled: c.Reconciliation.WorkerEnabled,
			Interval:      c.Reconciliation.Interval,
			LookbackDays:  c.Reconciliation.LookbackDays,
			RunTimeout:    c.Reconciliation.RunTimeout,
			RunOnImport:   c.Reconciliation.RunOnImport,
		},
		Billing: container.BillingConfig{
			GraceDay: c.Billing.GraceDay,
		},
		Import: container.ImportConfig{
			SheetName:  c.Import.SheetName,
			ArchiveDir: c.Import.ArchiveDir,
		},
	}, nil
}
