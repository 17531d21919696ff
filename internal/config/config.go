package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/garyjia/vendor-attendance/internal/domain/billing"
)

// EnvPrefix prefixes every environment override, e.g. ATTENDANCE_SERVER_PORT
const EnvPrefix = "ATTENDANCE"

// Config holds all application configuration
type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Logger         LoggerConfig         `mapstructure:"logger"`
	Reconciliation ReconciliationConfig `mapstructure:"reconciliation"`
	Billing        BillingConfig        `mapstructure:"billing"`
	Import         ImportConfig         `mapstructure:"import"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxUploadMB     int           `mapstructure:"max_upload_mb"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	// MigrationsDir overrides the embedded schema when set
	MigrationsDir string `mapstructure:"migrations_dir"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// ReconciliationConfig controls mismatch detection
type ReconciliationConfig struct {
	// AbsentCodes are badge status codes that mean the vendor was marked absent
	AbsentCodes []string `mapstructure:"absent_codes"`
	// Timezone decides which calendar day "today" is
	Timezone string `mapstructure:"timezone"`
	// WorkerEnabled turns on the periodic detection worker
	WorkerEnabled bool          `mapstructure:"worker_enabled"`
	Interval      time.Duration `mapstructure:"interval"`
	LookbackDays  int           `mapstructure:"lookback_days"`
	RunTimeout    time.Duration `mapstructure:"run_timeout"`
	// RunOnImport re-detects the imported dates right after a swipe import
	RunOnImport bool `mapstructure:"run_on_import"`
}

// BillingConfig controls the correction gate
type BillingConfig struct {
	// GraceDay is the last day of the month on which the previous month stays editable
	GraceDay int `mapstructure:"grace_day"`
}

// ImportConfig controls swipe workbook imports
type ImportConfig struct {
	SheetName  string `mapstructure:"sheet_name"`
	ArchiveDir string `mapstructure:"archive_dir"`
}

// Load loads configuration from file, a .env file and environment variables.
// A missing config file is not an error; defaults and the environment still apply.
func Load(configPath string) (*Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, fs.ErrNotExist) && !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.max_upload_mb", 20)

	v.SetDefault("database.path", "data/attendance.db")
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", 0)
	v.SetDefault("database.migrations_dir", "")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")

	v.SetDefault("reconciliation.absent_codes", []string{"AA"})
	v.SetDefault("reconciliation.timezone", "UTC")
	v.SetDefault("reconciliation.worker_enabled", true)
	v.SetDefault("reconciliation.interval", time.Hour)
	v.SetDefault("reconciliation.lookback_days", 7)
	v.SetDefault("reconciliation.run_timeout", 10*time.Minute)
	v.SetDefault("reconciliation.run_on_import", true)

	v.SetDefault("billing.grace_day", billing.DefaultGraceDay)

	v.SetDefault("import.sheet_name", "")
	v.SetDefault("import.archive_dir", "data/imports")
}

// bindEnvVars binds the unprefixed names deployments already use
func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("database.path", EnvPrefix+"_DATABASE_PATH", "DATABASE_PATH")
	_ = v.BindEnv("logger.level", EnvPrefix+"_LOGGER_LEVEL", "LOG_LEVEL")
}

// Location resolves Reconciliation.Timezone
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Reconciliation.Timezone)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("server.max_upload_mb must be positive")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	switch strings.ToLower(c.Logger.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("logger.format must be json or console, got %q", c.Logger.Format)
	}

	if len(c.Reconciliation.AbsentCodes) == 0 {
		return fmt.Errorf("reconciliation.absent_codes must list at least one code")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("reconciliation.timezone: %w", err)
	}
	if c.Reconciliation.WorkerEnabled && c.Reconciliation.Interval < time.Minute {
		return fmt.Errorf("reconciliation.interval must be at least 1m")
	}
	if c.Reconciliation.LookbackDays < 0 || c.Reconciliation.LookbackDays > 365 {
		return fmt.Errorf("reconciliation.lookback_days must be within 0..365")
	}

	if c.Billing.GraceDay < 1 || c.Billing.GraceDay > 28 {
		return fmt.Errorf("billing.grace_day must be within 1..28, got %d", c.Billing.GraceDay)
	}

	if c.Import.ArchiveDir == "" {
		return fmt.Errorf("import.archive_dir is required")
	}

	return nil
}
