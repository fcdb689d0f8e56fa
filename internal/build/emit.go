package build

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"assetweaver/internal/manifest"
)

// Emitter copies planned artifacts from StageDir into OutDir.
type Emitter struct {
	StageDir string
	OutDir   string

	// Workers bounds concurrent copies. Zero means runtime.NumCPU().
	Workers int

	Logger *slog.Logger
}

// PrepareOutputDir creates OutDir or clears its contents.
func (e *Emitter) PrepareOutputDir() error {
	return prepareOutputDir(e.OutDir)
}

// Emit copies every step of p and records one manifest entry per file. Steps
// run in parallel; the first failure cancels the remaining copies.
func (e *Emitter) Emit(ctx context.Context, p *Plan, rec *manifest.Recorder) error {
	if p == nil {
		return fmt.Errorf("nil plan")
	}
	workers := e.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	logger := e.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, step := range p.Steps {
		step := step
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			digest, err := e.copyStep(step)
			if err != nil {
				return err
			}
			logger.Debug("emitted artifact",
				"source", step.Source,
				"output", step.Output,
				"kind", string(step.Artifact.Kind),
				"category", string(step.Category),
			)
			rec.Record(manifest.Entry{
				Output: step.Output,
				Source: step.Source,
				Kind:   string(step.Artifact.Kind),
				Digest: digest,
			})
			return nil
		})
	}
	return g.Wait()
}

func (e *Emitter) copyStep(step Step) (string, error) {
	src := filepath.Join(e.StageDir, filepath.FromSlash(step.Source))
	dst := filepath.Join(e.OutDir, filepath.FromSlash(step.Output))

	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("open staged %s: %w", step.Source, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create dir for %s: %w", step.Output, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".tmp.*")
	if err != nil {
		return "", fmt.Errorf("emit %s: %w", step.Output, err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	w := manifest.NewDigestWriter(tmp)
	if _, err := io.Copy(w, in); err != nil {
		return "", fmt.Errorf("emit %s: %w", step.Output, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return "", fmt.Errorf("emit %s: %w", step.Output, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("emit %s: %w", step.Output, err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return "", fmt.Errorf("emit %s: %w", step.Output, err)
	}
	return w.Digest(), nil
}

func prepareOutputDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("output dir is empty")
	}
	clean := filepath.Clean(dir)
	if clean == string(filepath.Separator) {
		return fmt.Errorf("refusing to operate on output dir %q", clean)
	}
	info, err := os.Stat(clean)
	if err != nil {
		if os.IsNotExist(err) {
			return os.MkdirAll(clean, 0o755)
		}
		return fmt.Errorf("stat output dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("output dir is not a directory: %s", clean)
	}
	entries, err := os.ReadDir(clean)
	if err != nil {
		return fmt.Errorf("read output dir: %w", err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(clean, e.Name())); err != nil {
			return fmt.Errorf("clear output dir: %w", err)
		}
	}
	return nil
}
