package release

import "fmt"

const (
	// ProductName is the name of the packaged binary.
	ProductName = "qbsgo"
	// ProductVersion names the archives. It is not derived from git.
	ProductVersion = "1.0.0"

	// LicenseFilename is copied into every staging directory.
	LicenseFilename = "LICENSE.md"
	// ExampleConfigFilename is the example configuration in the working directory.
	ExampleConfigFilename = "qbsgo.example.toml"
	// StagedConfigFilename is the name the example configuration gets once staged.
	StagedConfigFilename = "qbsgo.toml"
	// DefaultOutputDir is recreated on every run.
	DefaultOutputDir = "dist"
)

// ArchiveFormat is the file extension of a release archive.
type ArchiveFormat string

const (
	// FormatTarZstd is a tar stream compressed with zstd.
	FormatTarZstd ArchiveFormat = "tar.zst"
	// FormatZip is a deflate-compressed zip archive.
	FormatZip ArchiveFormat = "zip"
)

// Product identifies what is being released.
type Product struct {
	// Name of the binary and prefix of every produced path.
	Name string
	// Version is embedded in archive names only.
	Version string
}

// DefaultProduct returns the qbsgo product at the fixed release version.
func DefaultProduct() Product {
	return Product{Name: ProductName, Version: ProductVersion}
}

// StagingDirName returns <name>_<os>_<arch>.
func (p Product) StagingDirName(t Target) string {
	return fmt.Sprintf("%s_%s_%s", p.Name, t.OS, t.Arch)
}

// BinaryName returns the executable name, with .exe for windows only.
func (p Product) BinaryName(t Target) string {
	if t.IsWindows() {
		return p.Name + ".exe"
	}

	return p.Name
}

// ArchiveFormat returns zip for windows and tar.zst for everything else.
func (p Product) ArchiveFormat(t Target) ArchiveFormat {
	if t.IsWindows() {
		return FormatZip
	}

	return FormatTarZstd
}

// ArchiveName returns <name>_<version>_<os>_<arch>.<format>.
func (p Product) ArchiveName(t Target) string {
	return fmt.Sprintf("%s_%s_%s_%s.%s", p.Name, p.Version, t.OS, t.Arch, p.ArchiveFormat(t))
}
