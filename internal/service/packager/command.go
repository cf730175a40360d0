package packager

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/oshokin/qbsgo-release/internal/config"
	"github.com/oshokin/qbsgo-release/internal/domain/release"
	"github.com/oshokin/qbsgo-release/internal/logger"
	"github.com/oshokin/qbsgo-release/internal/repository/staging"
	"github.com/oshokin/qbsgo-release/internal/service/common"
)

// Options contains inputs for the packager entry point.
type Options struct {
	// Settings are the tool settings; nil means config.Default().
	Settings *config.Config
	// WorkDir holds the sources, LICENSE.md and qbsgo.example.toml. Empty means the current directory.
	WorkDir string
	// Runner executes external commands; nil runs them with os/exec.
	Runner common.Runner
}

// packager produces one staging directory and one archive per target.
// It is unexported: callers should use Run, which encapsulates setup and validation.
type packager struct {
	// cfg holds the validated tool settings.
	cfg *config.Config
	// product names every produced path.
	product release.Product
	// matrix lists the targets in processing order.
	matrix release.Matrix
	// ws resolves source and output paths.
	ws *staging.Workspace
	// runner executes the toolchain and archivers.
	runner common.Runner
	// archiver writes one archive per staging directory.
	archiver archiver
	// exampleChecked is set once the example configuration has been parsed.
	exampleChecked bool
}

// outputTailLines bounds how much of a failed command's output is logged.
const outputTailLines = 20

var (
	// errPackagerRunning indicates another packager would race on the output directory.
	errPackagerRunning = errors.New("another qbsgo-release is running")
	// errTargetsFailed is returned when FailOnError is set and a target failed.
	errTargetsFailed = errors.New("release targets failed")
)

// Run executes the packaging workflow.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "qbsgo-release")

	running, err := isAnotherPackagerRunning()
	if err != nil {
		logger.WarnKV(ctx, "Unable to list running processes", "error", err)
	} else if running {
		return errPackagerRunning
	}

	pkg, err := newPackager(opts)
	if err != nil {
		return fmt.Errorf("initialize packager: %w", err)
	}

	summary, err := pkg.Package(ctx)
	if err != nil {
		return fmt.Errorf("packager failed: %w", err)
	}

	failed := summary.Failed()
	if len(failed) > 0 && pkg.cfg.FailOnError {
		return fmt.Errorf("%s: %w", joinTargets(failed), errTargetsFailed)
	}

	logger.Info(ctx, "Packager completed")

	return nil
}

// newPackager validates the options and wires the collaborators.
func newPackager(opts *Options) (*packager, error) {
	if opts == nil {
		opts = new(Options)
	}

	cfg := opts.Settings
	if cfg == nil {
		cfg = config.Default()
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	runner := opts.Runner
	if runner == nil {
		runner = common.NewExecRunner()
	}

	pkg := &packager{
		cfg:     cfg,
		product: release.DefaultProduct(),
		matrix:  release.DefaultMatrix(),
		ws:      staging.NewWorkspace(opts.WorkDir, cfg.OutputDir),
		runner:  runner,
	}

	switch cfg.Archiver {
	case config.ArchiverNative:
		pkg.archiver = &nativeArchiver{ws: pkg.ws}
	default:
		pkg.archiver = &execArchiver{cfg: cfg, ws: pkg.ws, runner: runner}
	}

	return pkg, nil
}

// Package resets the output directory and packages every target in order.
// The summary covers the targets processed before an error, if any.
func (p *packager) Package(ctx context.Context) (*release.Summary, error) {
	p.logActor(ctx)

	summary := &release.Summary{Targets: make([]release.TargetReport, 0, len(p.matrix))}

	logger.InfoKV(ctx, "Resetting output directory", "path", p.ws.OutputPath(), "mode", p.cfg.ResetMode)

	if err := p.ws.Reset(p.cfg.ResetMode); err != nil {
		return summary, err
	}

	for _, target := range p.matrix {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		report, err := p.packageTarget(logger.WithKV(ctx, "target", target.String()), target)
		if err != nil {
			return summary, fmt.Errorf("%s: %w", target, err)
		}

		summary.Targets = append(summary.Targets, report)
	}

	p.logSummary(ctx, summary)

	return summary, nil
}

// packageTarget stages and archives a single target.
func (p *packager) packageTarget(ctx context.Context, target release.Target) (release.TargetReport, error) {
	stagingName := p.product.StagingDirName(target)
	archiveName := p.product.ArchiveName(target)

	report := release.TargetReport{
		Target:      target,
		ArchivePath: p.ws.OutputPath(archiveName),
	}

	dir, err := p.ws.Prepare(stagingName)
	if err != nil {
		return report, err
	}

	report.StagingDir = dir

	binaryName := p.product.BinaryName(target)
	report.Build = p.build(ctx, target, stagingName, binaryName)
	p.verify(ctx, &report.Build, filepath.Join(dir, binaryName), "binary")

	if err = staging.CopyFile(p.ws.SourcePath(release.LicenseFilename), dir); err != nil {
		return report, err
	}

	if target.IncludesExampleConfig() {
		src := p.ws.SourcePath(release.ExampleConfigFilename)
		p.checkExampleConfig(ctx, src)

		if err = staging.CopyFile(src, filepath.Join(dir, release.StagedConfigFilename)); err != nil {
			return report, err
		}
	}

	report.Archive = p.archiver.Archive(ctx, archiveJob{
		format:      p.product.ArchiveFormat(target),
		stagingName: stagingName,
		archiveName: archiveName,
	})
	p.verify(ctx, &report.Archive, report.ArchivePath, "archive")

	return report, nil
}

// build cross-compiles the product into the staging directory.
func (p *packager) build(ctx context.Context, target release.Target, stagingName, binaryName string) release.Step {
	args := []string{"build", "-o", commandPath(p.ws, stagingName, binaryName)}
	if p.cfg.BuildPackage != "" {
		args = append(args, p.cfg.BuildPackage)
	}

	cmd := common.Command{
		Name: p.cfg.GoBinary,
		Args: args,
		Env:  []string{"GOOS=" + target.OS, "GOARCH=" + target.Arch},
		Dir:  p.ws.Root(),
	}

	return runStep(ctx, p.runner, cmd, "Return Value")
}

// verify marks step as missing when path was not produced.
func (p *packager) verify(ctx context.Context, step *release.Step, path, kind string) {
	if !p.cfg.VerifyArtifacts || staging.Exists(path) {
		return
	}

	step.Missing = true

	logger.WarnKV(ctx, "Expected artifact was not produced", "kind", kind, "path", path)
}

// logActor records who started the release.
func (p *packager) logActor(ctx context.Context) {
	actor, err := common.DetectActor()
	if err != nil {
		logger.DebugKV(ctx, "Unable to detect actor", "error", err)

		return
	}

	logger.InfoKV(ctx, "Packaging release",
		"product", p.product.Name,
		"version", p.product.Version,
		"host", actor.Hostname,
		"user", actor.Username,
	)
}

// logSummary prints one line per target and the list of failed targets.
func (p *packager) logSummary(ctx context.Context, summary *release.Summary) {
	for _, report := range summary.Targets {
		logger.DebugKV(ctx, "Target packaged",
			"target", report.Target.String(),
			"build_exit_code", report.Build.ExitCode,
			"archive_exit_code", report.Archive.ExitCode,
			"archive", report.ArchivePath,
		)
	}

	if failed := summary.Failed(); len(failed) > 0 {
		logger.WarnKV(ctx, "Some targets failed", "targets", joinTargets(failed))
	}
}

// runStep logs the command line, runs it and logs its exit status under label.
// A failing command also gets the tail of its output logged.
func runStep(ctx context.Context, runner common.Runner, cmd common.Command, label string) release.Step {
	line := cmd.String()

	logger.Infof(ctx, "Running: %s", line)

	result := runner.Run(ctx, cmd)
	if result.Err != nil {
		logger.WarnKV(ctx, "Command did not complete", "error", result.Err)
	}

	if !result.Succeeded() && len(result.Output) > 0 {
		logger.WarnKV(ctx, "Command output", "command", cmd.Name, "output", outputTail(result.Output))
	}

	logger.Infof(ctx, "%s: %d", label, result.ExitCode)

	return release.Step{Command: line, ExitCode: result.ExitCode}
}

// outputTail keeps the last outputTailLines lines of a command's output.
func outputTail(output []byte) string {
	lines := strings.Split(strings.TrimRight(string(output), "\n"), "\n")
	if len(lines) > outputTailLines {
		lines = lines[len(lines)-outputTailLines:]
	}

	return strings.Join(lines, "\n")
}

// commandPath renders a path under the output directory the way it is passed
// to external commands run from the working directory: ./dist/<elem>.
func commandPath(ws *staging.Workspace, elem ...string) string {
	path := filepath.Join(append([]string{ws.OutputDir()}, elem...)...)
	if filepath.IsAbs(path) {
		return path
	}

	return "./" + filepath.ToSlash(path)
}

func joinTargets(targets []release.Target) string {
	names := make([]string, 0, len(targets))
	for _, target := range targets {
		names = append(names, target.String())
	}

	return strings.Join(names, ", ")
}
