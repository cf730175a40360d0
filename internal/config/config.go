package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/qbsgo-release/internal/domain/release"
	"github.com/oshokin/qbsgo-release/internal/logger"
	"github.com/oshokin/qbsgo-release/internal/repository/staging"
)

// Archiver selects how archives are produced.
type Archiver string

const (
	// ArchiverExec shells out to tar, zstd and zip.
	ArchiverExec Archiver = "exec"
	// ArchiverNative writes archives in-process.
	ArchiverNative Archiver = "native"
)

// Config holds the tool settings. The platform matrix, product name and
// release version are not part of it.
type Config struct {
	// OutputDir is destroyed and recreated on every run.
	OutputDir string `yaml:"output_dir"`
	// GoBinary is the Go toolchain used for cross-compilation.
	GoBinary string `yaml:"go_binary"`
	// BuildPackage is the package passed to go build. Empty builds the working directory.
	BuildPackage string `yaml:"build_package"`
	// TarBinary creates .tar.zst archives.
	TarBinary string `yaml:"tar_binary"`
	// ZstdFilter is the compressor command tar pipes through.
	ZstdFilter string `yaml:"zstd_filter"`
	// ZipBinary creates .zip archives.
	ZipBinary string `yaml:"zip_binary"`
	// Archiver is either "exec" or "native".
	Archiver Archiver `yaml:"archiver"`
	// ResetMode is either "strict" or "lenient".
	ResetMode staging.ResetMode `yaml:"reset_mode"`
	// FailOnError makes failed builds or archives fail the whole run.
	FailOnError bool `yaml:"fail_on_error"`
	// VerifyArtifacts checks that binaries and archives exist after each step.
	VerifyArtifacts bool `yaml:"verify_artifacts"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

const (
	// DefaultConfigFilename is looked up in the working directory.
	DefaultConfigFilename = "qbsgo-release.yaml"

	// DefaultGoBinary is the toolchain resolved from PATH.
	DefaultGoBinary = "go"
	// DefaultTarBinary is the tar resolved from PATH.
	DefaultTarBinary = "tar"
	// DefaultZstdFilter compresses at the highest zstd level.
	DefaultZstdFilter = "zstd --ultra -22"
	// DefaultZipBinary is the zip resolved from PATH.
	DefaultZipBinary = "zip"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errUnknownArchiver is returned for archivers other than exec and native.
	errUnknownArchiver = errors.New("unknown archiver")
	// errUnknownResetMode is returned for reset modes other than strict and lenient.
	errUnknownResetMode = errors.New("unknown reset mode")
	// errUnknownLogLevel is returned for unparsable log levels.
	errUnknownLogLevel = errors.New("unknown log level")
)

// Default returns the settings of a plain release run: external archivers, strict reset, errors only logged.
func Default() *Config {
	return &Config{
		OutputDir:  release.DefaultOutputDir,
		GoBinary:   DefaultGoBinary,
		TarBinary:  DefaultTarBinary,
		ZstdFilter: DefaultZstdFilter,
		ZipBinary:  DefaultZipBinary,
		Archiver:   ArchiverExec,
		ResetMode:  staging.ResetStrict,
		LogLevel:   "info",
	}
}

// Load reads the settings at path on top of the defaults.
// When path is the default filename and the file is absent, defaults are returned.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFilename
	}

	cfg := Default()

	contents, err := os.ReadFile(filepath.Clean(path))
	if errors.Is(err, os.ErrNotExist) && !explicit {
		return cfg, nil
	} else if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	if err = yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err = Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes cfg to path as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, 0o644); err != nil { //nolint:gosec // Not a secret.
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills empty fields with defaults and rejects unknown enum values.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	defaults := Default()

	fill(&cfg.OutputDir, defaults.OutputDir)
	fill(&cfg.GoBinary, defaults.GoBinary)
	fill(&cfg.TarBinary, defaults.TarBinary)
	fill(&cfg.ZstdFilter, defaults.ZstdFilter)
	fill(&cfg.ZipBinary, defaults.ZipBinary)
	fill(&cfg.Archiver, defaults.Archiver)
	fill(&cfg.ResetMode, defaults.ResetMode)
	fill(&cfg.LogLevel, defaults.LogLevel)

	switch cfg.Archiver {
	case ArchiverExec, ArchiverNative:
	default:
		return fmt.Errorf("%q: %w", cfg.Archiver, errUnknownArchiver)
	}

	switch cfg.ResetMode {
	case staging.ResetStrict, staging.ResetLenient:
	default:
		return fmt.Errorf("%q: %w", cfg.ResetMode, errUnknownResetMode)
	}

	if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("%q: %w", cfg.LogLevel, errUnknownLogLevel)
	}

	return nil
}

func fill[T ~string](field *T, fallback T) {
	if *field == "" {
		*field = fallback
	}
}
