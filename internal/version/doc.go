// Package version exposes build metadata of the qbsgo-release tool.
//
// This is not the version of the packaged product: archive names use the
// release version fixed in the domain package.
package version
