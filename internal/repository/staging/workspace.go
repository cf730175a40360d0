package staging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ResetMode selects how a missing output directory is treated by Reset.
type ResetMode string

const (
	// ResetStrict fails when the output directory does not exist yet.
	ResetStrict ResetMode = "strict"
	// ResetLenient deletes the output directory only if it exists.
	ResetLenient ResetMode = "lenient"
)

// DirPermissions is used for every directory the workspace creates.
const DirPermissions os.FileMode = 0o755

var (
	// ErrMissingOutputDirectory is returned by a strict Reset when there is nothing to delete.
	ErrMissingOutputDirectory = errors.New("output directory does not exist")
	// errUnknownResetMode is returned for reset modes other than strict and lenient.
	errUnknownResetMode = errors.New("unknown reset mode")
)

// Workspace resolves paths relative to a working directory and its output directory.
type Workspace struct {
	// root is the working directory holding the sources, license and example config.
	root string
	// outputDir is the output directory, relative to root unless absolute.
	outputDir string
}

// NewWorkspace creates a workspace rooted at root producing output in outputDir.
func NewWorkspace(root, outputDir string) *Workspace {
	if root == "" {
		root = "."
	}

	return &Workspace{
		root:      filepath.Clean(root),
		outputDir: filepath.Clean(outputDir),
	}
}

// Root returns the working directory.
func (w *Workspace) Root() string {
	return w.root
}

// OutputDir returns the output directory as configured, relative to Root.
func (w *Workspace) OutputDir() string {
	return w.outputDir
}

// OutputPath joins elem onto the output directory and resolves it against Root.
func (w *Workspace) OutputPath(elem ...string) string {
	base := w.outputDir
	if !filepath.IsAbs(base) {
		base = filepath.Join(w.root, base)
	}

	return filepath.Join(append([]string{base}, elem...)...)
}

// SourcePath resolves a file of the working directory.
func (w *Workspace) SourcePath(name string) string {
	return filepath.Join(w.root, name)
}

// Reset deletes the whole output directory tree and recreates it empty.
func (w *Workspace) Reset(mode ResetMode) error {
	path := w.OutputPath()

	switch mode {
	case ResetStrict:
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", path, ErrMissingOutputDirectory)
		} else if err != nil {
			return fmt.Errorf("stat output directory: %w", err)
		}
	case ResetLenient:
	default:
		return fmt.Errorf("%q: %w", mode, errUnknownResetMode)
	}

	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("remove output directory: %w", err)
	}

	if err := os.MkdirAll(path, DirPermissions); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	return nil
}

// Prepare creates the named staging directory under the output directory and
// returns its path. Existing directories are left as they are.
func (w *Workspace) Prepare(name string) (string, error) {
	dir := w.OutputPath(name)

	if err := os.MkdirAll(dir, DirPermissions); err != nil {
		return "", fmt.Errorf("create staging directory %s: %w", name, err)
	}

	return dir, nil
}

// Exists reports whether path exists and is a non-empty regular file or a directory.
func Exists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	return info.IsDir() || info.Size() > 0
}

// CopyFile copies src to dst, overwriting dst. When dst is a directory the file
// keeps its name inside it. Permission bits and modification time are preserved.
func CopyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}

	if dstInfo, statErr := os.Stat(dst); statErr == nil && dstInfo.IsDir() {
		dst = filepath.Join(dst, filepath.Base(src))
	}

	in, err := os.Open(filepath.Clean(src))
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}

	defer func() {
		_ = in.Close()
	}()

	out, err := os.OpenFile(filepath.Clean(dst), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	if _, err = io.Copy(out, in); err != nil {
		_ = out.Close()

		return fmt.Errorf("copy %s: %w", src, err)
	}

	if err = out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dst, err)
	}

	// OpenFile applies the mode only on creation and through the umask.
	if err = os.Chmod(dst, info.Mode().Perm()); err != nil {
		return fmt.Errorf("chmod %s: %w", dst, err)
	}

	if err = os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return fmt.Errorf("chtimes %s: %w", dst, err)
	}

	return nil
}
