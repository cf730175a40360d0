package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/qbsgo-release/internal/config"
	"github.com/oshokin/qbsgo-release/internal/logger"
	"github.com/oshokin/qbsgo-release/internal/repository/staging"
	"github.com/oshokin/qbsgo-release/internal/service/packager"
	"github.com/oshokin/qbsgo-release/internal/version"
)

var (
	// configPath to the optional settings YAML file.
	configPath string
	// workDir holds the sources, LICENSE.md and qbsgo.example.toml.
	workDir string
	// nativeArchive writes archives in-process instead of calling tar and zip.
	nativeArchive bool
	// lenientReset tolerates a missing output directory.
	lenientReset bool
	// failOnError exits non-zero when a build or archive fails.
	failOnError bool
	// verifyArtifacts checks every binary and archive was produced.
	verifyArtifacts bool
	// logLevel overrides the configured log level.
	logLevel string
	// writeConfig is where the effective settings are saved instead of running a release.
	writeConfig string

	errUnknownLogLevel = errors.New("unknown log level")

	// rootCmd represents the base command producing the release archives.
	rootCmd = &cobra.Command{
		Use:   "qbsgo-release",
		Short: "Cross-compile qbsgo and package it for every supported platform",
		Long: `Builds qbsgo for windows, darwin and linux, stages each binary with LICENSE.md
(and, on linux, qbsgo.example.toml renamed to qbsgo.toml) under dist/, then archives
every staging directory as .tar.zst (or .zip for windows).

The dist/ directory is deleted and recreated on every run. By default it must
already exist, failed builds and archives are only reported, and the exit code
is 0 unless a local file could not be copied.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			settings, err := loadSettings(cmd)
			if err != nil {
				return err
			}

			level, ok := logger.ParseLogLevel(settings.LogLevel)
			if !ok {
				return fmt.Errorf("%q: %w", settings.LogLevel, errUnknownLogLevel)
			}

			logger.SetLevel(level)

			if writeConfig != "" {
				if err = config.Save(writeConfig, settings); err != nil {
					return err
				}

				logger.InfoKV(ctx, "Settings written", "path", writeConfig)

				return nil
			}

			options := &packager.Options{
				Settings: settings,
				WorkDir:  workDir,
			}

			return packager.Run(ctx, options)
		},
	}
)

// loadSettings reads the settings file, then applies explicitly set flags on top.
// Without --config, "qbsgo-release.yaml" in the working directory is used when present.
func loadSettings(cmd *cobra.Command) (*config.Config, error) {
	path := configPath
	if path == "" {
		candidate := filepath.Join(workDir, config.DefaultConfigFilename)
		if _, err := os.Stat(candidate); err != nil {
			return applyFlags(cmd, config.Default()), nil
		}

		path = candidate
	}

	settings, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	return applyFlags(cmd, settings), nil
}

// applyFlags overrides settings with the flags set on the command line.
func applyFlags(cmd *cobra.Command, settings *config.Config) *config.Config {
	flags := cmd.Flags()

	if flags.Changed("native-archive") {
		settings.Archiver = config.ArchiverExec
		if nativeArchive {
			settings.Archiver = config.ArchiverNative
		}
	}

	if flags.Changed("lenient-reset") {
		settings.ResetMode = staging.ResetStrict
		if lenientReset {
			settings.ResetMode = staging.ResetLenient
		}
	}

	if flags.Changed("fail-on-error") {
		settings.FailOnError = failOnError
	}

	if flags.Changed("verify") {
		settings.VerifyArtifacts = verifyArtifacts
	}

	if flags.Changed("log-level") {
		settings.LogLevel = logLevel
	}

	return settings
}

// Execute runs the qbsgo-release CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.ErrorKV(context.Background(), "Release failed", "error", err)
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.Flags()

	flags.StringVarP(&configPath, "config", "c", "", "path to settings file (default "+config.DefaultConfigFilename+" if present)")
	flags.StringVarP(&workDir, "workdir", "C", "", "directory holding the sources, LICENSE.md and qbsgo.example.toml")
	flags.BoolVar(&nativeArchive, "native-archive", false, "write archives in-process instead of calling tar, zstd and zip")
	flags.BoolVar(&lenientReset, "lenient-reset", false, "create the output directory when it does not exist")
	flags.BoolVar(&failOnError, "fail-on-error", false, "exit with status 1 when any build or archive fails")
	flags.BoolVar(&verifyArtifacts, "verify", false, "check that every binary and archive was produced")
	flags.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.StringVar(&writeConfig, "write-config", "", "save the effective settings to this file and exit without building")
}
