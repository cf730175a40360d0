package packager

import (
	"archive/tar"
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zstd"

	"github.com/oshokin/qbsgo-release/internal/domain/release"
	"github.com/oshokin/qbsgo-release/internal/logger"
	"github.com/oshokin/qbsgo-release/internal/repository/staging"
)

// Exit codes reported by the native archiver.
const (
	nativeExitOK     = 0
	nativeExitFailed = 1
)

// nativeArchiver writes archives in-process with the same names and member
// layout as the external tar and zip commands.
type nativeArchiver struct {
	ws *staging.Workspace
	// create opens the archive file; nil means os.Create.
	create func(path string) (io.WriteCloser, error)
}

// Archive writes the archive for job, removing partial output on failure.
func (a *nativeArchiver) Archive(ctx context.Context, job archiveJob) release.Step {
	var (
		archivePath = a.ws.OutputPath(job.archiveName)
		sourceDir   = a.ws.OutputPath(job.stagingName)
		step        = release.Step{Command: fmt.Sprintf("native %s %s", job.format, commandPath(a.ws, job.archiveName))}
		err         error
	)

	logger.Infof(ctx, "Running: %s", step.Command)

	if job.format == release.FormatZip {
		err = a.writeArchive(archivePath, func(out io.Writer) error {
			return writeZip(out, sourceDir, zipPrefix(a.ws.OutputDir(), job.stagingName))
		})
	} else {
		err = a.writeArchive(archivePath, func(out io.Writer) error {
			return writeTarZstd(out, sourceDir, job.stagingName)
		})
	}

	step.ExitCode = nativeExitOK

	if err != nil {
		step.ExitCode = nativeExitFailed

		logger.WarnKV(ctx, "Archive could not be written", "path", archivePath, "error", err)
	}

	logger.Infof(ctx, "%s: %d", archiveLabel, step.ExitCode)

	return step
}

// writeArchive creates archivePath and hands it to write.
// The file is removed when writing or closing it fails.
func (a *nativeArchiver) writeArchive(archivePath string, write func(io.Writer) error) error {
	create := a.create
	if create == nil {
		create = func(path string) (io.WriteCloser, error) {
			return os.Create(filepath.Clean(path))
		}
	}

	file, err := create(archivePath)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}

	if err = write(file); err != nil {
		_ = file.Close()
		_ = os.Remove(archivePath)

		return err
	}

	if err = file.Close(); err != nil {
		_ = os.Remove(archivePath)

		return fmt.Errorf("close archive: %w", err)
	}

	return nil
}

// writeTarZstd streams sourceDir as a tar compressed with zstd at its best level.
// Member names start with prefix.
func writeTarZstd(out io.Writer, sourceDir, prefix string) error {
	encoder, err := zstd.NewWriter(out, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return fmt.Errorf("create zstd encoder: %w", err)
	}

	tarWriter := tar.NewWriter(encoder)

	err = walkStaging(sourceDir, prefix, func(name string, info fs.FileInfo, file string) error {
		header, headerErr := tar.FileInfoHeader(info, "")
		if headerErr != nil {
			return fmt.Errorf("tar header for %s: %w", name, headerErr)
		}

		header.Name = name

		if writeErr := tarWriter.WriteHeader(header); writeErr != nil {
			return fmt.Errorf("write tar header for %s: %w", name, writeErr)
		}

		return copyContents(tarWriter, info, file)
	})
	if err != nil {
		_ = encoder.Close()

		return err
	}

	if err = tarWriter.Close(); err != nil {
		_ = encoder.Close()

		return fmt.Errorf("close tar stream: %w", err)
	}

	if err = encoder.Close(); err != nil {
		return fmt.Errorf("close zstd stream: %w", err)
	}

	return nil
}

// writeZip writes sourceDir as a zip deflated at the best compression level.
// Member names start with prefix.
func writeZip(out io.Writer, sourceDir, prefix string) error {
	zipWriter := zip.NewWriter(out)
	zipWriter.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestCompression)
	})

	err := walkStaging(sourceDir, prefix, func(name string, info fs.FileInfo, file string) error {
		header, headerErr := zip.FileInfoHeader(info)
		if headerErr != nil {
			return fmt.Errorf("zip header for %s: %w", name, headerErr)
		}

		header.Name = name
		if !info.IsDir() {
			header.Method = zip.Deflate
		}

		writer, createErr := zipWriter.CreateHeader(header)
		if createErr != nil {
			return fmt.Errorf("write zip header for %s: %w", name, createErr)
		}

		return copyContents(writer, info, file)
	})
	if err != nil {
		_ = zipWriter.Close()

		return err
	}

	if err = zipWriter.Close(); err != nil {
		return fmt.Errorf("close zip stream: %w", err)
	}

	return nil
}

// walkStaging visits sourceDir in lexical order, naming every entry
// prefix/<relative path>, with a trailing slash for directories.
func walkStaging(sourceDir, prefix string, visit func(name string, info fs.FileInfo, file string) error) error {
	return filepath.WalkDir(sourceDir, func(file string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		rel, err := filepath.Rel(sourceDir, file)
		if err != nil {
			return err
		}

		info, err := entry.Info()
		if err != nil {
			return err
		}

		name := path.Join(prefix, filepath.ToSlash(rel))
		if info.IsDir() {
			name += "/"
		}

		return visit(name, info, file)
	})
}

// copyContents copies regular files into the archive entry.
func copyContents(dst io.Writer, info fs.FileInfo, file string) error {
	if !info.Mode().IsRegular() {
		return nil
	}

	src, err := os.Open(filepath.Clean(file))
	if err != nil {
		return err
	}

	defer func() {
		_ = src.Close()
	}()

	_, err = io.Copy(dst, src)

	return err
}

// zipPrefix mirrors how zip stores `./dist/<staging>/`: without the leading
// "./" or "/" but with the output directory.
func zipPrefix(outputDir, stagingName string) string {
	prefix := path.Join(filepath.ToSlash(outputDir), stagingName)

	return strings.TrimLeft(strings.TrimPrefix(prefix, "./"), "/")
}
