// Package common holds helpers shared by several services.
//
// It runs external commands as explicit results (exit code and output, never
// an error for a non-zero exit) and detects the system actor running a release.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
