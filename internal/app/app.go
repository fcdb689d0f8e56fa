// Package app holds the application context of a build: the configuration,
// the router, the logger and the registered plugins.
//
// Components that need the router or logger receive the *Context explicitly.
// There is no package-level instance.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"assetweaver/internal/build"
	"assetweaver/internal/buildconfig"
	"assetweaver/internal/harvest"
	"assetweaver/internal/manifest"
	"assetweaver/internal/route"
)

var (
	ErrAlreadyStarted  = errors.New("application already started")
	ErrDuplicatePlugin = errors.New("plugin already registered")
)

// Mode selects how far Start goes.
type Mode string

const (
	// ModePlan harvests and routes but writes nothing.
	ModePlan Mode = "plan"
	// ModeEmit also clears the output directory, copies artifacts and writes
	// the manifest.
	ModeEmit Mode = "emit"
)

// Options configures a Context. WorkDir must be absolute; relative paths in
// Config are resolved under it.
type Options struct {
	Config   *buildconfig.Config
	WorkDir  string
	StageDir string

	// OutDir overrides Config.OutDir when set. Absolute.
	OutDir string

	// ManifestPath is where emit mode writes the manifest. Defaults to
	// <OutDir>/manifest.json.
	ManifestPath string

	Workers int
	Logger  *slog.Logger
}

// Build is the state plugins see after planning.
type Build struct {
	Config   *buildconfig.Config
	WorkDir  string
	StageDir string
	OutDir   string
	Plan     *build.Plan

	// Content is set by the content scan plugin.
	Content []string
}

// Plugin extends a build after planning and before emitting.
type Plugin interface {
	Name() string
	Apply(ctx context.Context, b *Build) error
}

// Result is what Start produced.
type Result struct {
	Build        *Build
	Manifest     manifest.Manifest
	ManifestPath string
}

// Context is the application context. Create it with New, register plugins,
// then call Start exactly once.
type Context struct {
	opts   Options
	router *route.Router
	logger *slog.Logger

	mu      sync.Mutex
	plugins []Plugin
	names   map[string]struct{}
	started bool
}

// New validates opts and builds the router from the configuration.
func New(opts Options) (*Context, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("app: nil config")
	}
	if !filepath.IsAbs(opts.WorkDir) {
		return nil, fmt.Errorf("app: work dir must be absolute (got %q)", opts.WorkDir)
	}
	if opts.StageDir == "" {
		return nil, fmt.Errorf("app: stage dir is required")
	}

	router, err := route.NewRouter(opts.Config.Rules())
	if err != nil {
		return nil, err
	}

	if opts.OutDir == "" {
		opts.OutDir = resolve(opts.WorkDir, opts.Config.OutDir)
	}
	opts.OutDir = resolve(opts.WorkDir, opts.OutDir)
	opts.StageDir = resolve(opts.WorkDir, opts.StageDir)
	if opts.ManifestPath == "" {
		opts.ManifestPath = filepath.Join(opts.OutDir, "manifest.json")
	}
	opts.ManifestPath = resolve(opts.WorkDir, opts.ManifestPath)

	// The output dir is cleared on every emit and the stage dir is harvested
	// on every build, so neither may reach into the other.
	switch {
	case within(opts.OutDir, opts.StageDir):
		return nil, fmt.Errorf("app: stage dir %s must not be inside the output dir %s", opts.StageDir, opts.OutDir)
	case within(opts.StageDir, opts.OutDir):
		return nil, fmt.Errorf("app: output dir %s must not be inside the stage dir %s", opts.OutDir, opts.StageDir)
	case within(opts.OutDir, opts.WorkDir):
		return nil, fmt.Errorf("app: output dir %s must not contain the work dir %s", opts.OutDir, opts.WorkDir)
	case within(opts.StageDir, opts.ManifestPath):
		return nil, fmt.Errorf("app: manifest %s must not be inside the stage dir %s", opts.ManifestPath, opts.StageDir)
	case opts.ManifestPath == opts.OutDir:
		return nil, fmt.Errorf("app: manifest path %s is the output dir", opts.ManifestPath)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Context{
		opts:   opts,
		router: router,
		logger: logger,
		names:  map[string]struct{}{},
	}, nil
}

func resolve(workDir, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(workDir, filepath.FromSlash(p))
}

// reservedOutputs lists output-relative paths no staged file may claim.
func (c *Context) reservedOutputs() []string {
	rel, err := filepath.Rel(c.opts.OutDir, c.opts.ManifestPath)
	if err != nil || !within(c.opts.OutDir, c.opts.ManifestPath) {
		return nil
	}
	return []string{filepath.ToSlash(rel)}
}

// within reports whether p is dir or below it.
func within(dir, p string) bool {
	rel, err := filepath.Rel(dir, p)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// Router returns the router shared by every component of this build.
func (c *Context) Router() *route.Router { return c.router }

// Logger returns the build logger.
func (c *Context) Logger() *slog.Logger { return c.logger }

// OutDir returns the resolved output directory.
func (c *Context) OutDir() string { return c.opts.OutDir }

// Register adds p. Names must be unique and registration closes at Start.
func (c *Context) Register(p Plugin) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return fmt.Errorf("register %s: %w", p.Name(), ErrAlreadyStarted)
	}
	if _, ok := c.names[p.Name()]; ok {
		return fmt.Errorf("register %s: %w", p.Name(), ErrDuplicatePlugin)
	}
	c.names[p.Name()] = struct{}{}
	c.plugins = append(c.plugins, p)
	return nil
}

// Start runs the build once: harvest, plan, plugins, and in ModeEmit the
// emit and manifest steps. A second call returns ErrAlreadyStarted.
func (c *Context) Start(ctx context.Context, mode Mode) (*Result, error) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return nil, ErrAlreadyStarted
	}
	c.started = true
	plugins := append([]Plugin(nil), c.plugins...)
	c.mu.Unlock()

	switch mode {
	case ModePlan, ModeEmit:
	default:
		return nil, fmt.Errorf("app: unknown mode %q", mode)
	}

	cfg := c.opts.Config
	h := harvest.NewHarvester(c.opts.StageDir, cfg.EntryNames(), cfg.ScriptExtensions)
	staged, err := h.Harvest()
	if err != nil {
		return nil, err
	}
	c.logger.Info("harvested stage dir", "stage_dir", c.opts.StageDir, "files", len(staged))

	plan, err := build.NewPlan(c.router, staged, c.reservedOutputs()...)
	if err != nil {
		return nil, err
	}
	counts := plan.CountByCategory()
	c.logger.Info("planned outputs",
		"scripts", counts[route.CategoryScript],
		"images", counts[route.CategoryImage],
		"other_assets", counts[route.CategoryDefault],
	)

	b := &Build{
		Config:   cfg,
		WorkDir:  c.opts.WorkDir,
		StageDir: c.opts.StageDir,
		OutDir:   c.opts.OutDir,
		Plan:     plan,
	}
	for _, p := range plugins {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := p.Apply(ctx, b); err != nil {
			return nil, fmt.Errorf("plugin %s: %w", p.Name(), err)
		}
		c.logger.Debug("applied plugin", "plugin", p.Name())
	}

	configHash, err := cfg.Fingerprint()
	if err != nil {
		return nil, err
	}

	res := &Result{Build: b}
	rec := manifest.NewRecorder()

	if mode == ModePlan {
		for _, s := range plan.Steps {
			rec.Record(manifest.Entry{Output: s.Output, Source: s.Source, Kind: string(s.Artifact.Kind)})
		}
		res.Manifest = rec.Manifest(configHash, b.Content, cfg.CSSPlugins)
		return res, nil
	}

	emitter := &build.Emitter{
		StageDir: c.opts.StageDir,
		OutDir:   c.opts.OutDir,
		Workers:  c.opts.Workers,
		Logger:   c.logger,
	}
	if err := emitter.PrepareOutputDir(); err != nil {
		return nil, err
	}
	if err := emitter.Emit(ctx, plan, rec); err != nil {
		return nil, err
	}

	res.Manifest = rec.Manifest(configHash, b.Content, cfg.CSSPlugins)
	hash, err := manifest.WriteFile(c.opts.ManifestPath, res.Manifest)
	if err != nil {
		return nil, err
	}
	res.ManifestPath = c.opts.ManifestPath

	c.logger.Info("emitted build",
		"out_dir", c.opts.OutDir,
		"files", len(res.Manifest.Entries),
		"manifest", c.opts.ManifestPath,
		"manifest_hash", hash,
	)
	return res, nil
}
