package packager

import (
	"context"

	"github.com/oshokin/qbsgo-release/internal/config"
	"github.com/oshokin/qbsgo-release/internal/domain/release"
	"github.com/oshokin/qbsgo-release/internal/repository/staging"
	"github.com/oshokin/qbsgo-release/internal/service/common"
)

// archiveLabel prefixes the exit status of every archive step.
const archiveLabel = "Archive creation returned"

// archiveJob names the staging directory to bundle and the archive to produce.
type archiveJob struct {
	format      release.ArchiveFormat
	stagingName string
	archiveName string
}

// archiver bundles a staging directory into an archive in the output directory.
// Failures are reported through the returned step, never as an error.
type archiver interface {
	Archive(ctx context.Context, job archiveJob) release.Step
}

// execArchiver shells out to tar with a zstd filter, or to zip for windows.
type execArchiver struct {
	cfg    *config.Config
	ws     *staging.Workspace
	runner common.Runner
}

// Archive runs the archive command for job.
func (a *execArchiver) Archive(ctx context.Context, job archiveJob) release.Step {
	return runStep(ctx, a.runner, a.command(job), archiveLabel)
}

// command builds the archive command line.
// tar members are rooted at <staging>/ because tar runs from the output directory;
// zip is given the staging path as is, so its members keep the output directory prefix.
func (a *execArchiver) command(job archiveJob) common.Command {
	if job.format == release.FormatZip {
		return common.Command{
			Name: a.cfg.ZipBinary,
			Args: []string{
				"-9",
				"-r",
				commandPath(a.ws, job.archiveName),
				commandPath(a.ws, job.stagingName) + "/",
			},
			Dir: a.ws.Root(),
		}
	}

	return common.Command{
		Name: a.cfg.TarBinary,
		Args: []string{
			"-I", a.cfg.ZstdFilter,
			"-cf", commandPath(a.ws, job.archiveName),
			"--directory=" + commandPath(a.ws),
			job.stagingName + "/",
		},
		Dir: a.ws.Root(),
	}
}
