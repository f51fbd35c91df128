// Package config loads runtime settings from defaults, a YAML config file,
// IHC_-prefixed environment variables and command-line flags, in increasing
// order of precedence.
//
// Keys use dotted paths. The environment form upper-cases the path and replaces
// dots with underscores:
//
//	calibration.pixels_per_mm   IHC_CALIBRATION_PIXELS_PER_MM
//	calibration.stain.hue_min   IHC_CALIBRATION_STAIN_HUE_MIN
//	logging.level               IHC_LOGGING_LEVEL
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"github.com/ironsheep/ihc-metrics-mcp/internal/ihc"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "IHC"

// Settings is the full runtime configuration.
type Settings struct {
	Calibration ihc.Calibration `mapstructure:"calibration"`
	Logging     Logging         `mapstructure:"logging"`

	// Workers bounds the number of images analyzed at once by batch runs.
	Workers int `mapstructure:"workers"`
}

// Logging selects the slog handler.
type Logging struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // console, json
}

// New returns a viper instance with every default registered and environment
// lookup enabled.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	cal := ihc.DefaultCalibration()

	v.SetDefault("calibration.pixels_per_mm", cal.PixelsPerMM)
	v.SetDefault("calibration.stain.hue_min", cal.Stain.HueMin)
	v.SetDefault("calibration.stain.hue_max", cal.Stain.HueMax)
	v.SetDefault("calibration.stain.sat_min", cal.Stain.SatMin)
	v.SetDefault("calibration.stain.val_min", cal.Stain.ValMin)
	v.SetDefault("calibration.stain.val_max", cal.Stain.ValMax)
	v.SetDefault("calibration.grades.strong_below", cal.Grades.StrongBelow)
	v.SetDefault("calibration.grades.moderate_below", cal.Grades.ModerateBelow)
	v.SetDefault("calibration.iod_normalization", cal.IODNormalization)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("workers", runtime.NumCPU())
}

// ReadFile loads a config file into v. With an empty path the standard
// locations are searched ($HOME/.config/ihc-mcp/config.yaml, then ./config.yaml)
// and a missing file is not an error.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "ihc-mcp"))
		}
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// Load decodes v into Settings and validates the result.
func Load(v *viper.Viper) (*Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the calibration, logging and worker settings.
func (s *Settings) Validate() error {
	if err := s.Calibration.Validate(); err != nil {
		return err
	}
	if _, err := ParseLevel(s.Logging.Level); err != nil {
		return err
	}
	switch s.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log format: %s", s.Logging.Format)
	}
	if s.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", s.Workers)
	}
	return nil
}

// ParseLevel maps a level name to its slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level: %s", level)
	}
}

// NewLogger builds a logger writing to w. Stdout carries the MCP protocol, so
// callers pass os.Stderr.
func NewLogger(l Logging, w io.Writer) (*slog.Logger, error) {
	level, err := ParseLevel(l.Level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch l.Format {
	case "console":
		handler = slog.NewTextHandler(w, opts)
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("invalid log format: %s", l.Format)
	}
	return slog.New(handler), nil
}
