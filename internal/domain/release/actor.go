package release

// Actor identifies who ran a release.
type Actor struct {
	// Hostname is the machine the release was built on.
	Hostname string
	// Username is the system user who started the build.
	Username string
}
