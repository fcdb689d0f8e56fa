// Package harvest turns the raw output of the external bundler into
// classified artifacts.
package harvest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"assetweaver/internal/route"
)

// ErrStageDir marks a stage directory that is missing or not a directory.
var ErrStageDir = errors.New("invalid stage dir")

// Staged is a file found in the stage directory together with its artifact
// classification.
type Staged struct {
	// Source is the path relative to the stage directory, slash separated.
	Source string

	Artifact route.Artifact
}

// Harvester collects every file under StageDir. Dot files and dot dirs
// (.DS_Store, .gitkeep, .vite) are not build output and are skipped.
//
// A file whose extension is in ScriptExtensions is a script: an entry script
// when its logical name is one of EntryNames, a dependent script otherwise.
// Every other file is an asset.
type Harvester struct {
	StageDir         string
	EntryNames       map[string]struct{}
	ScriptExtensions []string
}

// NewHarvester creates a Harvester for stageDir.
func NewHarvester(stageDir string, entryNames map[string]struct{}, scriptExtensions []string) *Harvester {
	return &Harvester{
		StageDir:         stageDir,
		EntryNames:       entryNames,
		ScriptExtensions: scriptExtensions,
	}
}

// Harvest walks StageDir and returns the staged artifacts sorted by Source.
//
// Returns an error if StageDir does not exist, is not a directory, or cannot
// be walked.
func (h *Harvester) Harvest() ([]Staged, error) {
	info, err := os.Stat(h.StageDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: does not exist: %s", ErrStageDir, h.StageDir)
		}
		return nil, fmt.Errorf("stat stage dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: not a directory: %s", ErrStageDir, h.StageDir)
	}

	scriptExts := make(map[string]struct{}, len(h.ScriptExtensions))
	for _, ext := range h.ScriptExtensions {
		scriptExts[strings.ToLower(ext)] = struct{}{}
	}

	var files []string
	err = filepath.WalkDir(h.StageDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p != h.StageDir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(h.StageDir, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk stage dir: %w", err)
	}

	// Do not rely on filesystem ordering.
	sort.Strings(files)

	out := make([]Staged, 0, len(files))
	for _, rel := range files {
		out = append(out, Staged{Source: rel, Artifact: h.classify(rel, scriptExts)})
	}
	return out, nil
}

func (h *Harvester) classify(rel string, scriptExts map[string]struct{}) route.Artifact {
	a := route.FromFileName(route.KindAsset, rel)
	if _, ok := scriptExts[strings.ToLower(a.Extension)]; !ok {
		return a
	}
	a.Kind = route.KindDependentScript
	if _, ok := h.EntryNames[a.LogicalName]; ok {
		a.Kind = route.KindEntryScript
	}
	return a
}
