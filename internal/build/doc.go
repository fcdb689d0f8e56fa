// Package build turns staged artifacts into a plan of output paths and emits
// the plan into the output directory.
//
// Planning is pure: it routes every staged artifact and rejects plans in
// which two artifacts land on the same output path. Emitting follows the
// overwrite policy: the output directory is cleared first so that no stale
// file from an earlier build survives.
package build
