package route

import (
	"path/filepath"
	"strings"
)

// Kind is the logical kind of a build artifact.
//
// The string values appear in plans and manifests; do not rename.
type Kind string

const (
	KindEntryScript     Kind = "entry-script"
	KindDependentScript Kind = "dependent-script"
	KindAsset           Kind = "asset"
)

// Valid reports whether k is one of the three known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindEntryScript, KindDependentScript, KindAsset:
		return true
	default:
		return false
	}
}

// IsScript reports whether k is an entry or dependent script.
func (k Kind) IsScript() bool {
	return k == KindEntryScript || k == KindDependentScript
}

// Artifact is a single output of a build invocation.
type Artifact struct {
	Kind Kind

	// LogicalName is the artifact name without directory or extension.
	LogicalName string

	// Extension includes its leading separator (".png"). Ignored for scripts.
	Extension string
}

// FromFileName splits a file name into logical name and extension.
// Only the base name is kept: "vendor/logo.min.svg" becomes ("logo.min", ".svg").
func FromFileName(kind Kind, fileName string) Artifact {
	base := filepath.Base(filepath.FromSlash(fileName))
	ext := filepath.Ext(base)
	return Artifact{
		Kind:        kind,
		LogicalName: strings.TrimSuffix(base, ext),
		Extension:   ext,
	}
}
