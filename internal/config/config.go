package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"taxlot-matcher-go/internal/pairing"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all configuration for the application.
type Config struct {
	Logger   Logger   `mapstructure:"logger"`
	Database Database `mapstructure:"database"`
	Pairing  Pairing  `mapstructure:"pairing"`
	Renames  Renames  `mapstructure:"renames"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Pairing holds the configuration for lot matching.
type Pairing struct {
	Strategy                string        `mapstructure:"strategy"`
	FromYear                int           `mapstructure:"from_year"`
	ExemptAfterDays         int           `mapstructure:"exempt_after_days"`
	IncludeTransfersInTotal bool          `mapstructure:"include_transfers_in_total"`
	Workers                 int           `mapstructure:"workers"`
	CacheTTL                time.Duration `mapstructure:"cache_ttl"`
}

// Renames holds the configuration for the rename history sources.
type Renames struct {
	File           string        `mapstructure:"file"`
	URL            string        `mapstructure:"url"`
	RateLimit      float64       `mapstructure:"rate_limit"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// LoadConfig reads configuration from path/config.yml, a .env file next to it
// and environment variables, in increasing order of precedence.
func LoadConfig(path string) (config Config, err error) {
	if err = loadDotEnv(filepath.Join(path, ".env")); err != nil {
		return
	}

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yml")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
		err = nil
	}

	if err = v.Unmarshal(&config); err != nil {
		return
	}
	err = config.Validate()
	return
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.file", "")
	v.SetDefault("logger.max_size_mb", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age_days", 28)
	v.SetDefault("logger.compress", false)
	v.SetDefault("database.dsn", "taxlots.db")
	v.SetDefault("pairing.strategy", "FIFO")
	v.SetDefault("pairing.from_year", 0)
	v.SetDefault("pairing.exempt_after_days", 3*365)
	v.SetDefault("pairing.include_transfers_in_total", true)
	v.SetDefault("pairing.workers", 4)
	v.SetDefault("pairing.cache_ttl", "10m")
	v.SetDefault("renames.file", "")
	v.SetDefault("renames.url", "")
	v.SetDefault("renames.rate_limit", 2)
	v.SetDefault("renames.rate_limit_burst", 1)
	v.SetDefault("renames.timeout", "15s")
}

// Validate reports every problem with the configuration at once.
func (c Config) Validate() error {
	var errs error
	if _, err := pairing.StrategyByName(c.Pairing.Strategy); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("pairing.strategy: %w (one of %s)", err, strings.Join(pairing.StrategyNames(), ", ")))
	}
	if c.Pairing.Workers <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("pairing.workers must be positive, got %d", c.Pairing.Workers))
	}
	if c.Pairing.ExemptAfterDays <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("pairing.exempt_after_days must be positive, got %d", c.Pairing.ExemptAfterDays))
	}
	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		errs = multierr.Append(errs, fmt.Errorf("logger.format %q must be json or console", c.Logger.Format))
	}
	if c.Renames.URL != "" && c.Renames.RateLimit <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("renames.rate_limit must be positive when renames.url is set"))
	}
	if errs != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errs)
	}
	return nil
}
