// Package buildconfig loads the build configuration: output directory, named
// entry points, naming templates, and the content globs handed to the
// external CSS tool.
//
// Configuration comes from a single file passed explicitly to [LoadFile].
// There is no discovery and no environment override; the only environment
// lookup is ${VAR} and ${VAR:-default} expansion in path fields.
//
// YAML (.yaml, .yml) and JSON with comments (.json, .jsonc) are accepted.
// Unknown keys are rejected in both formats.
package buildconfig
