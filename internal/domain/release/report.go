package release

// Step is the outcome of a single external command.
type Step struct {
	// Command is the literal command line that was run.
	Command string
	// ExitCode is the process exit status, -1 when the command could not start.
	ExitCode int
	// Missing is set when artifact verification found no output.
	Missing bool
}

// Failed reports whether the step should count against the run.
func (s Step) Failed() bool {
	return s.ExitCode != 0 || s.Missing
}

// TargetReport describes what happened to one target.
type TargetReport struct {
	// Target is the platform the report is about.
	Target Target
	// StagingDir is the directory the binary and documents were staged in.
	StagingDir string
	// ArchivePath is where the archive was expected to be written.
	ArchivePath string
	// Build is the cross-compilation step.
	Build Step
	// Archive is the archive step.
	Archive Step
}

// Failed reports whether either step of the target failed.
func (r TargetReport) Failed() bool {
	return r.Build.Failed() || r.Archive.Failed()
}

// Summary collects target reports in processing order.
type Summary struct {
	Targets []TargetReport
}

// Failed returns the targets whose build or archive step failed.
func (s *Summary) Failed() []Target {
	var failed []Target

	for _, report := range s.Targets {
		if report.Failed() {
			failed = append(failed, report.Target)
		}
	}

	return failed
}
