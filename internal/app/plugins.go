package app

import (
	"context"
	"path/filepath"

	"assetweaver/internal/contentscan"
)

// ContentScanPlugin resolves Config.Content under the work dir and stores the
// file list on the build. The output directory is never scanned.
type ContentScanPlugin struct{}

func (ContentScanPlugin) Name() string { return "content-scan" }

func (ContentScanPlugin) Apply(_ context.Context, b *Build) error {
	var exclude []string
	if rel, err := filepath.Rel(b.WorkDir, b.OutDir); err == nil && !filepath.IsAbs(rel) {
		exclude = append(exclude, filepath.ToSlash(rel))
	}
	if rel, err := filepath.Rel(b.WorkDir, b.StageDir); err == nil && !filepath.IsAbs(rel) {
		exclude = append(exclude, filepath.ToSlash(rel))
	}

	files, err := contentscan.NewScanner(b.WorkDir, exclude...).Scan(b.Config.Content)
	if err != nil {
		return err
	}
	b.Content = files
	return nil
}
