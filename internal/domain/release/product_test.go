package release

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestDefaultMatrixOrder verifies the platform order targets are processed in.
func TestDefaultMatrixOrder(t *testing.T) {
	t.Parallel()

	got := make([]string, 0, 7)
	for _, target := range DefaultMatrix() {
		got = append(got, target.String())
	}

	require.Equal(t, []string{
		"windows/amd64",
		"windows/arm64",
		"darwin/amd64",
		"darwin/arm64",
		"linux/amd64",
		"linux/arm64",
		"linux/arm",
	}, got)
}

// TestDefaultMatrixIsFresh ensures callers cannot modify the shared matrix.
func TestDefaultMatrixIsFresh(t *testing.T) {
	t.Parallel()

	m := DefaultMatrix()
	m[0].OS = "plan9"

	require.Equal(t, OSWindows, DefaultMatrix()[0].OS)
}

// TestNaming checks names are pure functions of product, version, os and arch.
func TestNaming(t *testing.T) {
	t.Parallel()

	product := DefaultProduct()

	cases := []struct {
		target  Target
		staging string
		binary  string
		archive string
		config  bool
	}{
		{Target{OSLinux, "amd64"}, "qbsgo_linux_amd64", "qbsgo", "qbsgo_1.0.0_linux_amd64.tar.zst", true},
		{Target{OSLinux, "arm"}, "qbsgo_linux_arm", "qbsgo", "qbsgo_1.0.0_linux_arm.tar.zst", true},
		{Target{OSWindows, "arm64"}, "qbsgo_windows_arm64", "qbsgo.exe", "qbsgo_1.0.0_windows_arm64.zip", false},
		{Target{OSDarwin, "arm64"}, "qbsgo_darwin_arm64", "qbsgo", "qbsgo_1.0.0_darwin_arm64.tar.zst", false},
	}

	for _, tc := range cases {
		require.Equal(t, tc.staging, product.StagingDirName(tc.target))
		require.Equal(t, tc.binary, product.BinaryName(tc.target))
		require.Equal(t, tc.archive, product.ArchiveName(tc.target))
		require.Equal(t, tc.config, tc.target.IncludesExampleConfig())

		// Same inputs, same outputs.
		require.Equal(t, product.ArchiveName(tc.target), product.ArchiveName(tc.target))
	}
}

// TestArchiveFormatPerOS ensures zip is used for windows only.
func TestArchiveFormatPerOS(t *testing.T) {
	t.Parallel()

	product := DefaultProduct()

	for _, target := range DefaultMatrix() {
		if target.OS == OSWindows {
			require.Equal(t, FormatZip, product.ArchiveFormat(target))
			require.Equal(t, "qbsgo.exe", product.BinaryName(target))

			continue
		}

		require.Equal(t, FormatTarZstd, product.ArchiveFormat(target))
		require.Equal(t, "qbsgo", product.BinaryName(target))
	}
}

// TestSummaryFailed verifies failing targets are reported in order.
func TestSummaryFailed(t *testing.T) {
	t.Parallel()

	summary := &Summary{Targets: []TargetReport{
		{Target: Target{OSWindows, "amd64"}, Build: Step{ExitCode: 1}},
		{Target: Target{OSLinux, "amd64"}},
		{Target: Target{OSLinux, "arm"}, Archive: Step{Missing: true}},
	}}

	require.Equal(t, []Target{{OSWindows, "amd64"}, {OSLinux, "arm"}}, summary.Failed())
}
