package packager

import (
	"os"
	"runtime"

	"github.com/mitchellh/go-ps"
)

// packagerExecutable is the process name of the CLI.
const packagerExecutable = "qbsgo-release"

// isAnotherPackagerRunning reports whether a second qbsgo-release process exists.
// Two runs would delete each other's output directory.
func isAnotherPackagerRunning() (bool, error) {
	processList, err := ps.Processes()
	if err != nil {
		return false, err
	}

	return findOtherProcess(processList, os.Getpid(), executableName()), nil
}

// findOtherProcess looks for name among processes, skipping self.
func findOtherProcess(processes []ps.Process, self int, name string) bool {
	for _, process := range processes {
		if process.Pid() == self {
			continue
		}

		if process.Executable() == name {
			return true
		}
	}

	return false
}

// executableName returns the CLI name with ".exe" on Windows.
func executableName() string {
	if runtime.GOOS == "windows" {
		return packagerExecutable + ".exe"
	}

	return packagerExecutable
}
