// Command reconcile runs a one-off swipe import and/or mismatch detection
// against the configured database, for use from cron or by operators.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/vendor-attendance/internal/config"
	"github.com/garyjia/vendor-attendance/internal/container"
	"github.com/garyjia/vendor-attendance/internal/domain/entity"
	"github.com/garyjia/vendor-attendance/pkg/utils"
)

func main() {
	var (
		configPath = flag.String("config", "configs/config.yaml", "path to the YAML config file")
		workbook   = flag.String("import", "", "swipe workbook (.xlsx) to import before detecting")
		actor      = flag.String("actor", "cli", "actor recorded for the import")
		from       = flag.String("from", "", "first date to detect (YYYY-MM-DD); defaults to yesterday")
		to         = flag.String("to", "", "last date to detect (YYYY-MM-DD); defaults to -from")
		skipDetect = flag.Bool("no-detect", false, "only import, do not run detection")
	)
	flag.Parse()

	if err := run(*configPath, *workbook, *actor, *from, *to, *skipDetect); err != nil {
		fmt.Fprintf(os.Stderr, "reconcile: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, workbook, actor, fromArg, toArg string, skipDetect bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer logger.Sync()

	containerCfg, err := cfg.ToContainerConfig()
	if err != nil {
		return err
	}
	containerCfg.Reconciliation.WorkerEnabled = false
	if workbook != "" && !skipDetect {
		// the explicit range below covers the imported dates
		containerCfg.Reconciliation.RunOnImport = false
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := container.NewContainer(containerCfg, logger)
	if err != nil {
		return err
	}
	if err := c.Start(ctx); err != nil {
		return err
	}
	defer c.Close()

	services := c.Services()
	out := json.NewEncoder(os.Stdout)
	out.SetIndent("", "  ")

	var importedDates []string
	if workbook != "" {
		content, err := os.ReadFile(workbook)
		if err != nil {
			return fmt.Errorf("read workbook: %w", err)
		}
		result, err := services.Import.ImportWorkbook(ctx, filepath.Base(workbook), content, actor)
		if err != nil {
			return fmt.Errorf("import %s: %w", workbook, err)
		}
		logger.Info("Import finished", zap.Int("created", result.Created), zap.Int("updated", result.Updated),
			zap.Int("skipped", result.Skipped))
		importedDates = result.Dates
		if err := out.Encode(result); err != nil {
			return err
		}
	}

	if skipDetect {
		return nil
	}

	start, end, err := detectionRange(fromArg, toArg, importedDates, containerCfg.Reconciliation.Location)
	if err != nil {
		return err
	}
	summary, err := services.Mismatch.DetectRange(ctx, start, end)
	if summary != nil {
		if encErr := out.Encode(summary); encErr != nil {
			return encErr
		}
	}
	return err
}

// detectionRange resolves the dates to detect: explicit flags win, then the
// span of an import, then yesterday
func detectionRange(fromArg, toArg string, imported []string, loc *time.Location) (time.Time, time.Time, error) {
	if fromArg == "" && len(imported) > 0 {
		fromArg, toArg = imported[0], imported[len(imported)-1]
	}
	if fromArg == "" {
		yesterday := entity.NormalizeDate(time.Now().In(loc)).AddDate(0, 0, -1)
		return yesterday, yesterday, nil
	}

	start, err := entity.ParseDate(fromArg)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid -from %q: %w", fromArg, err)
	}
	if toArg == "" {
		return start, start, nil
	}
	end, err := entity.ParseDate(toArg)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid -to %q: %w", toArg, err)
	}
	return start, end, nil
}
