package packager

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/oshokin/qbsgo-release/internal/config"
	"github.com/oshokin/qbsgo-release/internal/domain/release"
	"github.com/oshokin/qbsgo-release/internal/logger"
	"github.com/oshokin/qbsgo-release/internal/repository/staging"
	"github.com/oshokin/qbsgo-release/internal/service/common"
)

const exampleConfig = `archive = "tar"
archivedir = "/var/backups/qbsgo"

[targets.home]
path = "/home"
`

// fakeRunner records commands and, when produce is set, creates the file each
// successful command would have written.
type fakeRunner struct {
	commands []common.Command
	exitCode func(cmd common.Command) int
	output   []byte
	produce  bool
}

func (f *fakeRunner) Run(_ context.Context, cmd common.Command) common.Result {
	f.commands = append(f.commands, cmd)

	code := 0
	if f.exitCode != nil {
		code = f.exitCode(cmd)
	}

	if f.produce && code == 0 {
		// go build -o <out>, tar -I <filter> -cf <out>, zip -9 -r <out>.
		out := cmd.Args[2]
		if cmd.Name == config.DefaultTarBinary {
			out = cmd.Args[3]
		}

		_ = os.WriteFile(filepath.Join(cmd.Dir, filepath.FromSlash(out)), []byte(cmd.String()), 0o600)
	}

	return common.Result{ExitCode: code, Output: f.output}
}

func (f *fakeRunner) lines() []string {
	lines := make([]string, 0, len(f.commands))
	for _, cmd := range f.commands {
		lines = append(lines, cmd.String())
	}

	return lines
}

// newTestWorkDir creates a working directory with the release inputs and an existing dist/.
func newTestWorkDir(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, release.LicenseFilename), []byte("MIT License"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, release.ExampleConfigFilename), []byte(exampleConfig), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, release.DefaultOutputDir), staging.DirPermissions))

	return dir
}

func newTestPackager(t *testing.T, workDir string, cfg *config.Config, runner common.Runner) *packager {
	t.Helper()

	pkg, err := newPackager(&Options{Settings: cfg, WorkDir: workDir, Runner: runner})
	require.NoError(t, err)

	return pkg
}

func observedContext() (context.Context, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)

	return logger.ToContext(context.Background(), zap.New(core).Sugar()), logs
}

// listTree returns every path below root, relative and sorted.
func listTree(t *testing.T, root string) []string {
	t.Helper()

	var paths []string

	err := filepath.WalkDir(root, func(path string, _ os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		paths = append(paths, filepath.ToSlash(rel))

		return nil
	})
	require.NoError(t, err)

	sort.Strings(paths)

	return paths
}

func entryNames(t *testing.T, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}

	return names
}

// TestPackage_CommandsInMatrixOrder verifies the literal build and archive commands.
func TestPackage_CommandsInMatrixOrder(t *testing.T) {
	t.Parallel()

	workDir := newTestWorkDir(t)
	runner := &fakeRunner{produce: true}
	ctx, _ := observedContext()

	summary, err := newTestPackager(t, workDir, nil, runner).Package(ctx)
	require.NoError(t, err)
	require.Len(t, summary.Targets, 7)
	require.Empty(t, summary.Failed())

	require.Equal(t, []string{
		"GOOS=windows GOARCH=amd64 go build -o ./dist/qbsgo_windows_amd64/qbsgo.exe",
		"zip -9 -r ./dist/qbsgo_1.0.0_windows_amd64.zip ./dist/qbsgo_windows_amd64/",
		"GOOS=windows GOARCH=arm64 go build -o ./dist/qbsgo_windows_arm64/qbsgo.exe",
		"zip -9 -r ./dist/qbsgo_1.0.0_windows_arm64.zip ./dist/qbsgo_windows_arm64/",
		"GOOS=darwin GOARCH=amd64 go build -o ./dist/qbsgo_darwin_amd64/qbsgo",
		"tar -I 'zstd --ultra -22' -cf ./dist/qbsgo_1.0.0_darwin_amd64.tar.zst --directory=./dist qbsgo_darwin_amd64/",
		"GOOS=darwin GOARCH=arm64 go build -o ./dist/qbsgo_darwin_arm64/qbsgo",
		"tar -I 'zstd --ultra -22' -cf ./dist/qbsgo_1.0.0_darwin_arm64.tar.zst --directory=./dist qbsgo_darwin_arm64/",
		"GOOS=linux GOARCH=amd64 go build -o ./dist/qbsgo_linux_amd64/qbsgo",
		"tar -I 'zstd --ultra -22' -cf ./dist/qbsgo_1.0.0_linux_amd64.tar.zst --directory=./dist qbsgo_linux_amd64/",
		"GOOS=linux GOARCH=arm64 go build -o ./dist/qbsgo_linux_arm64/qbsgo",
		"tar -I 'zstd --ultra -22' -cf ./dist/qbsgo_1.0.0_linux_arm64.tar.zst --directory=./dist qbsgo_linux_arm64/",
		"GOOS=linux GOARCH=arm go build -o ./dist/qbsgo_linux_arm/qbsgo",
		"tar -I 'zstd --ultra -22' -cf ./dist/qbsgo_1.0.0_linux_arm.tar.zst --directory=./dist qbsgo_linux_arm/",
	}, runner.lines())

	for _, cmd := range runner.commands {
		require.Equal(t, filepath.Clean(workDir), cmd.Dir)
	}
}

// TestPackage_StagingLayout checks binary names and the linux-only configuration file.
func TestPackage_StagingLayout(t *testing.T) {
	t.Parallel()

	workDir := newTestWorkDir(t)
	ctx, _ := observedContext()

	_, err := newTestPackager(t, workDir, nil, &fakeRunner{produce: true}).Package(ctx)
	require.NoError(t, err)

	dist := filepath.Join(workDir, "dist")

	require.ElementsMatch(t,
		[]string{"qbsgo", "LICENSE.md", "qbsgo.toml"},
		entryNames(t, filepath.Join(dist, "qbsgo_linux_amd64")))
	require.ElementsMatch(t,
		[]string{"qbsgo.exe", "LICENSE.md"},
		entryNames(t, filepath.Join(dist, "qbsgo_windows_arm64")))
	require.ElementsMatch(t,
		[]string{"qbsgo", "LICENSE.md"},
		entryNames(t, filepath.Join(dist, "qbsgo_darwin_amd64")))

	staged, err := os.ReadFile(filepath.Join(dist, "qbsgo_linux_arm", "qbsgo.toml"))
	require.NoError(t, err)
	require.Equal(t, exampleConfig, string(staged))

	require.FileExists(t, filepath.Join(dist, "qbsgo_1.0.0_linux_amd64.tar.zst"))
	require.FileExists(t, filepath.Join(dist, "qbsgo_1.0.0_windows_arm64.zip"))
}

// TestPackage_BuildFailuresDoNotStopRun ensures every target is attempted after failures.
func TestPackage_BuildFailuresDoNotStopRun(t *testing.T) {
	t.Parallel()

	workDir := newTestWorkDir(t)
	runner := &fakeRunner{
		exitCode: func(cmd common.Command) int {
			if cmd.Name == config.DefaultGoBinary {
				return 1
			}

			return 0
		},
	}
	ctx, logs := observedContext()

	summary, err := newTestPackager(t, workDir, nil, runner).Package(ctx)
	require.NoError(t, err)
	require.Len(t, runner.commands, 14)
	require.Len(t, summary.Failed(), 7)

	// Staging still happens without a binary.
	require.ElementsMatch(t,
		[]string{"LICENSE.md", "qbsgo.toml"},
		entryNames(t, filepath.Join(workDir, "dist", "qbsgo_linux_arm")))

	require.Equal(t, 7, logs.FilterMessage("Return Value: 1").Len())
	require.Equal(t, 7, logs.FilterMessage("Archive creation returned: 0").Len())
}

// TestPackage_LogsCommandThenStatus ensures each command line is followed by its status.
func TestPackage_LogsCommandThenStatus(t *testing.T) {
	t.Parallel()

	workDir := newTestWorkDir(t)
	runner := &fakeRunner{
		exitCode: func(cmd common.Command) int {
			if cmd.Name == config.DefaultZipBinary {
				return 12
			}

			return 0
		},
	}
	ctx, logs := observedContext()

	_, err := newTestPackager(t, workDir, nil, runner).Package(ctx)
	require.NoError(t, err)

	var messages []string

	for _, entry := range logs.All() {
		if strings.HasPrefix(entry.Message, "Running: ") ||
			strings.HasPrefix(entry.Message, "Return Value: ") ||
			strings.HasPrefix(entry.Message, archiveLabel) {
			messages = append(messages, entry.Message)
		}
	}

	require.Len(t, messages, 28)
	require.Equal(t, []string{
		"Running: GOOS=windows GOARCH=amd64 go build -o ./dist/qbsgo_windows_amd64/qbsgo.exe",
		"Return Value: 0",
		"Running: zip -9 -r ./dist/qbsgo_1.0.0_windows_amd64.zip ./dist/qbsgo_windows_amd64/",
		"Archive creation returned: 12",
	}, messages[:4])
}

// TestPackage_StrictResetRequiresOutputDirectory preserves the delete-or-fail start.
func TestPackage_StrictResetRequiresOutputDirectory(t *testing.T) {
	t.Parallel()

	workDir := newTestWorkDir(t)
	require.NoError(t, os.Remove(filepath.Join(workDir, "dist")))

	runner := new(fakeRunner)
	ctx, _ := observedContext()

	_, err := newTestPackager(t, workDir, nil, runner).Package(ctx)
	require.ErrorIs(t, err, staging.ErrMissingOutputDirectory)
	require.Empty(t, runner.commands)

	// Lenient mode creates it instead.
	cfg := config.Default()
	cfg.ResetMode = staging.ResetLenient

	_, err = newTestPackager(t, workDir, cfg, runner).Package(ctx)
	require.NoError(t, err)
	require.DirExists(t, filepath.Join(workDir, "dist", "qbsgo_linux_amd64"))
}

// TestPackage_MissingLicenseAbortsRun ensures local file errors stop the whole run.
func TestPackage_MissingLicenseAbortsRun(t *testing.T) {
	t.Parallel()

	workDir := newTestWorkDir(t)
	require.NoError(t, os.Remove(filepath.Join(workDir, release.LicenseFilename)))

	runner := new(fakeRunner)
	ctx, _ := observedContext()

	summary, err := newTestPackager(t, workDir, nil, runner).Package(ctx)
	require.ErrorIs(t, err, os.ErrNotExist)
	require.Contains(t, err.Error(), "windows/amd64")
	require.Empty(t, summary.Targets)

	// Only the first build ran.
	require.Len(t, runner.commands, 1)
}

// TestPackage_MissingExampleConfigAbortsAtLinux ensures non-linux targets do not need it.
func TestPackage_MissingExampleConfigAbortsAtLinux(t *testing.T) {
	t.Parallel()

	workDir := newTestWorkDir(t)
	require.NoError(t, os.Remove(filepath.Join(workDir, release.ExampleConfigFilename)))

	ctx, logs := observedContext()

	summary, err := newTestPackager(t, workDir, nil, new(fakeRunner)).Package(ctx)
	require.ErrorIs(t, err, os.ErrNotExist)
	require.Len(t, summary.Targets, 4)
	require.Equal(t, 1, logs.FilterMessage("Example configuration could not be parsed").Len())
}

// TestPackage_InvalidExampleConfigOnlyWarns ensures a broken example is still shipped.
func TestPackage_InvalidExampleConfigOnlyWarns(t *testing.T) {
	t.Parallel()

	workDir := newTestWorkDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(workDir, release.ExampleConfigFilename), []byte("[broken"), 0o644))

	ctx, logs := observedContext()

	_, err := newTestPackager(t, workDir, nil, new(fakeRunner)).Package(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, logs.FilterMessage("Example configuration could not be parsed").Len())
	require.FileExists(t, filepath.Join(workDir, "dist", "qbsgo_linux_amd64", "qbsgo.toml"))
}

// TestPackage_RerunProducesSameLayout ensures the output directory is rebuilt from scratch.
func TestPackage_RerunProducesSameLayout(t *testing.T) {
	t.Parallel()

	workDir := newTestWorkDir(t)
	dist := filepath.Join(workDir, "dist")
	ctx, _ := observedContext()

	_, err := newTestPackager(t, workDir, nil, &fakeRunner{produce: true}).Package(ctx)
	require.NoError(t, err)

	first := listTree(t, dist)

	require.NoError(t, os.WriteFile(filepath.Join(dist, "leftover.txt"), []byte("x"), 0o600))

	_, err = newTestPackager(t, workDir, nil, &fakeRunner{produce: true}).Package(ctx)
	require.NoError(t, err)
	require.Equal(t, first, listTree(t, dist))
}

// TestPackage_VerifyArtifacts flags commands that succeeded without output.
func TestPackage_VerifyArtifacts(t *testing.T) {
	t.Parallel()

	workDir := newTestWorkDir(t)
	cfg := config.Default()
	cfg.VerifyArtifacts = true

	ctx, logs := observedContext()

	summary, err := newTestPackager(t, workDir, cfg, new(fakeRunner)).Package(ctx)
	require.NoError(t, err)
	require.Len(t, summary.Failed(), 7)

	for _, report := range summary.Targets {
		require.True(t, report.Build.Missing)
		require.True(t, report.Archive.Missing)
		require.Zero(t, report.Build.ExitCode)
	}

	require.Equal(t, 14, logs.FilterMessage("Expected artifact was not produced").Len())
}

// TestRun_ExitPolicy checks failures are ignored unless FailOnError is set.
func TestRun_ExitPolicy(t *testing.T) {
	t.Parallel()

	failing := func(common.Command) int { return 2 }

	err := Run(context.Background(), &Options{
		WorkDir: newTestWorkDir(t),
		Runner:  &fakeRunner{exitCode: failing},
	})
	require.NoError(t, err)

	cfg := config.Default()
	cfg.FailOnError = true

	err = Run(context.Background(), &Options{
		Settings: cfg,
		WorkDir:  newTestWorkDir(t),
		Runner:   &fakeRunner{exitCode: failing},
	})
	require.ErrorIs(t, err, errTargetsFailed)
	require.Contains(t, err.Error(), "linux/arm")
}

// TestNewPackager_RejectsInvalidSettings ensures settings are validated.
func TestNewPackager_RejectsInvalidSettings(t *testing.T) {
	t.Parallel()

	_, err := newPackager(&Options{Settings: &config.Config{Archiver: "7z"}})
	require.Error(t, err)

	pkg, err := newPackager(nil)
	require.NoError(t, err)
	require.IsType(t, &execArchiver{}, pkg.archiver)
}

// TestCommandPath covers relative and absolute output directories.
func TestCommandPath(t *testing.T) {
	t.Parallel()

	require.Equal(t, "./dist", commandPath(staging.NewWorkspace(".", "dist")))
	require.Equal(t, "./dist/a/b", commandPath(staging.NewWorkspace(".", "./dist"), "a", "b"))

	abs := filepath.Join(t.TempDir(), "out")
	require.Equal(t, filepath.Join(abs, "x.zip"), commandPath(staging.NewWorkspace(".", abs), "x.zip"))
}

// TestPackage_LogsOutputOfFailedCommands ensures failures carry the command's diagnostics.
func TestPackage_LogsOutputOfFailedCommands(t *testing.T) {
	t.Parallel()

	workDir := newTestWorkDir(t)
	runner := &fakeRunner{
		exitCode: func(cmd common.Command) int {
			if cmd.Name == config.DefaultGoBinary {
				return 1
			}

			return 0
		},
		output: []byte("# example.com/qbsgo\n./main.go:3:1: syntax error\n"),
	}
	ctx, logs := observedContext()

	_, err := newTestPackager(t, workDir, nil, runner).Package(ctx)
	require.NoError(t, err)

	entries := logs.FilterMessage("Command output").All()
	require.Len(t, entries, 7)
	require.Equal(t, "# example.com/qbsgo\n./main.go:3:1: syntax error", entries[0].ContextMap()["output"])
	require.Equal(t, config.DefaultGoBinary, entries[0].ContextMap()["command"])
}

// TestOutputTail keeps only the last lines of long outputs.
func TestOutputTail(t *testing.T) {
	t.Parallel()

	var lines []string
	for i := 0; i < outputTailLines+5; i++ {
		lines = append(lines, strconv.Itoa(i))
	}

	tail := outputTail([]byte(strings.Join(lines, "\n") + "\n"))
	require.Equal(t, strings.Join(lines[5:], "\n"), tail)
	require.Equal(t, "only line", outputTail([]byte("only line")))
}
