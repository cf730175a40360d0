// Package packager cross-compiles qbsgo for every platform of the release
// matrix, stages each binary with its documents and archives the result.
//
// External commands are best effort: a failed build or archive is logged with
// its exit status and the run moves on to the next platform. Local filesystem
// errors (missing output directory, license or example configuration) abort
// the run. Options can turn failed commands into a failed run.
package packager
