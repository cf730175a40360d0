// Package staging owns the local filesystem side of a release: resetting the
// output directory, creating per-target staging directories and copying the
// documents shipped next to each binary.
package staging
