// Package config defines the qbsgo-release tool settings and helpers to load,
// validate and save them in YAML format.
//
// The settings tune how the release is produced (toolchain, archiver, error
// policy). They never change what is released: the platform matrix, product
// name and version are fixed in the domain package.
package config
