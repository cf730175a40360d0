// Package integration drives qbsgo-release end to end in temporary working directories.
package integration
