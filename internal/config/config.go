// Package config holds the run configuration for fixupem and its sources:
// defaults, an optional YAML file, FIXUPEM_* environment variables and CLI flags.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Defaults.
const (
	DefaultTargetUPM = 1000
	DefaultSrcDir    = "firaCodeMono"
	DefaultDstDir    = "fix_firaCodeMono"
	DefaultPython    = "python3"
)

// Range of head.unitsPerEm recommended by OpenType. Values outside it are
// accepted but logged as a warning.
const (
	MinUPM = 16
	MaxUPM = 16384
)

// Environment variable names.
const (
	EnvTargetUPM = "FIXUPEM_TARGET_UPM"
	EnvSrcDir    = "FIXUPEM_SRC_DIR"
	EnvDstDir    = "FIXUPEM_DST_DIR"
	EnvPython    = "FIXUPEM_PYTHON"
	EnvLogLevel  = "FIXUPEM_LOG_LEVEL"
	EnvLogFormat = "FIXUPEM_LOG_FORMAT"
)

// ErrInvalidUPM is returned when the target units-per-em is not a positive integer.
var ErrInvalidUPM = errors.New("invalid target UPM")

// Config is the complete configuration of one run. It is passed explicitly to
// the engine; nothing below the CLI reads flags or the environment.
type Config struct {
	TargetUPM int           `yaml:"target_upm"`
	SrcDir    string        `yaml:"src_dir"`
	DstDir    string        `yaml:"dst_dir"`
	Python    string        `yaml:"python"`
	Verify    bool          `yaml:"verify"`
	DryRun    bool          `yaml:"-"`
	Color     bool          `yaml:"-"`
	Logging   LoggingConfig `yaml:"logging"`
}

// LoggingConfig configures diagnostic logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		TargetUPM: DefaultTargetUPM,
		SrcDir:    DefaultSrcDir,
		DstDir:    DefaultDstDir,
		Python:    DefaultPython,
		Verify:    true,
		Color:     true,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// ApplyEnv overrides fields from FIXUPEM_* environment variables.
// lookup is usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvTargetUPM); ok && v != "" {
		upm, err := ParseUPM(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTargetUPM, err)
		}
		c.TargetUPM = upm
	}
	if v, ok := lookup(EnvSrcDir); ok && v != "" {
		c.SrcDir = v
	}
	if v, ok := lookup(EnvDstDir); ok && v != "" {
		c.DstDir = v
	}
	if v, ok := lookup(EnvPython); ok && v != "" {
		c.Python = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := lookup(EnvLogFormat); ok && v != "" {
		c.Logging.Format = v
	}
	return nil
}

// Validate checks that the configuration can drive a run.
func (c *Config) Validate() error {
	if c.TargetUPM <= 0 {
		return fmt.Errorf("%w: %d (must be positive)", ErrInvalidUPM, c.TargetUPM)
	}
	if strings.TrimSpace(c.SrcDir) == "" {
		return errors.New("source directory must not be empty")
	}
	if strings.TrimSpace(c.DstDir) == "" {
		return errors.New("destination directory must not be empty")
	}
	if c.Python == "" {
		return errors.New("python interpreter must not be empty")
	}
	return nil
}

// UPMInRecommendedRange reports whether TargetUPM lies within MinUPM..MaxUPM.
func (c *Config) UPMInRecommendedRange() bool {
	return c.TargetUPM >= MinUPM && c.TargetUPM <= MaxUPM
}

// ParseUPM parses a units-per-em argument.
func ParseUPM(s string) (int, error) {
	upm, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid target UPM %q: must be an integer", s)
	}
	if upm <= 0 {
		return 0, fmt.Errorf("%w: %d (must be positive)", ErrInvalidUPM, upm)
	}
	return upm, nil
}
