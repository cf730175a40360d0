// Package release contains the domain types of a qbsgo release: the fixed
// platform matrix, the product identity and the pure naming rules that map a
// target to its staging directory, binary and archive.
package release
