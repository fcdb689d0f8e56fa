package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assetweaver/internal/build"
	"assetweaver/internal/buildconfig"
	"assetweaver/internal/manifest"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, body := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
}

func newTestContext(t *testing.T) (*Context, string) {
	t.Helper()
	workDir := t.TempDir()
	writeFiles(t, workDir, map[string]string{
		"stage/app.js":          "app",
		"stage/chunk-a.js":      "chunk",
		"stage/assets/logo.ICO": "ico",
		"stage/assets/app.css":  "css",
		"views/index.html":      "<div x-data>",
		"static/js/app.js":      "import Alpine from 'alpinejs'",
	})

	cfg := buildconfig.Default()
	c, err := New(Options{Config: cfg, WorkDir: workDir, StageDir: "stage"})
	require.NoError(t, err)
	return c, workDir
}

func TestStart_EmitWritesFilesAndManifest(t *testing.T) {
	c, workDir := newTestContext(t)
	require.NoError(t, c.Register(ContentScanPlugin{}))

	res, err := c.Start(context.Background(), ModeEmit)
	require.NoError(t, err)

	outDir := filepath.Join(workDir, "static", "dist")
	assert.Equal(t, outDir, c.OutDir())
	for _, rel := range []string{"js/app.js", "js/chunk-a.js", "images/logo.ICO", "css/app.css", "manifest.json"} {
		_, err := os.Stat(filepath.Join(outDir, filepath.FromSlash(rel)))
		assert.NoError(t, err, rel)
	}

	assert.Equal(t, filepath.Join(outDir, "manifest.json"), res.ManifestPath)
	onDisk, err := manifest.ReadFile(res.ManifestPath)
	require.NoError(t, err)
	assert.Equal(t, res.Manifest.ConfigHash, onDisk.ConfigHash)
	assert.Len(t, onDisk.Entries, 4)

	entry, ok := onDisk.Lookup("js/app.js")
	require.True(t, ok)
	assert.Equal(t, "entry-script", entry.Kind)
	entry, ok = onDisk.Lookup("js/chunk-a.js")
	require.True(t, ok)
	assert.Equal(t, "dependent-script", entry.Kind)

	// The default content globs pick up views and static sources but not the
	// emitted output.
	assert.Equal(t, []string{"static/js/app.js", "views/index.html"}, onDisk.Content)
	assert.Equal(t, []string{"@tailwindcss/forms", "@tailwindcss/typography", "autoprefixer", "tailwindcss"}, onDisk.CSSPlugins)
}

func TestStart_PlanWritesNothing(t *testing.T) {
	c, workDir := newTestContext(t)

	res, err := c.Start(context.Background(), ModePlan)
	require.NoError(t, err)
	assert.Equal(t, []string{"css/app.css", "images/logo.ICO", "js/app.js", "js/chunk-a.js"}, res.Build.Plan.Outputs())
	assert.Empty(t, res.ManifestPath)
	for _, e := range res.Manifest.Entries {
		assert.Empty(t, e.Digest)
	}

	_, err = os.Stat(filepath.Join(workDir, "static", "dist"))
	assert.True(t, os.IsNotExist(err))
}

func TestStart_OnlyOnce(t *testing.T) {
	c, _ := newTestContext(t)
	_, err := c.Start(context.Background(), ModePlan)
	require.NoError(t, err)

	_, err = c.Start(context.Background(), ModePlan)
	assert.ErrorIs(t, err, ErrAlreadyStarted)

	err = c.Register(ContentScanPlugin{})
	assert.ErrorIs(t, err, ErrAlreadyStarted)
}

func TestRegister_RejectsDuplicates(t *testing.T) {
	c, _ := newTestContext(t)
	require.NoError(t, c.Register(ContentScanPlugin{}))
	assert.ErrorIs(t, c.Register(ContentScanPlugin{}), ErrDuplicatePlugin)
}

type failingPlugin struct{}

func (failingPlugin) Name() string { return "failing" }
func (failingPlugin) Apply(context.Context, *Build) error { return errors.New("boom") }

func TestStart_PluginFailureStopsBuild(t *testing.T) {
	c, workDir := newTestContext(t)
	require.NoError(t, c.Register(failingPlugin{}))

	_, err := c.Start(context.Background(), ModeEmit)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "plugin failing: boom")

	_, statErr := os.Stat(filepath.Join(workDir, "static", "dist"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestStart_CollisionIsReported(t *testing.T) {
	c, workDir := newTestContext(t)
	writeFiles(t, workDir, map[string]string{"stage/legacy/app.css": "dup"})

	_, err := c.Start(context.Background(), ModeEmit)
	assert.ErrorIs(t, err, build.ErrCollision)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Options{WorkDir: "/tmp", StageDir: "s"})
	assert.Error(t, err)

	_, err = New(Options{Config: buildconfig.Default(), WorkDir: "relative", StageDir: "s"})
	assert.Error(t, err)

	_, err = New(Options{Config: buildconfig.Default(), WorkDir: "/tmp"})
	assert.Error(t, err)

	cfg := buildconfig.Default()
	cfg.Naming.Scripts = "js/app.js"
	_, err = New(Options{Config: cfg, WorkDir: "/tmp", StageDir: "s"})
	assert.Error(t, err)
}

func TestNew_RejectsOverlappingDirs(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"stage is out dir", Options{StageDir: "static/dist"}},
		{"stage inside out dir", Options{StageDir: "static/dist/stage"}},
		{"out dir inside stage", Options{StageDir: "build", OutDir: "/work/build/dist"}},
		{"out dir is work dir", Options{StageDir: "/elsewhere/stage", OutDir: "/work"}},
		{"out dir contains work dir", Options{StageDir: "stage", OutDir: "/"}},
		{"manifest inside stage", Options{StageDir: "stage", ManifestPath: "/work/stage/manifest.json"}},
		{"manifest is out dir", Options{StageDir: "stage", ManifestPath: "/work/static/dist"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			opts := tc.opts
			opts.Config = buildconfig.Default()
			opts.WorkDir = "/work"
			_, err := New(opts)
			assert.Error(t, err)
		})
	}

	_, err := New(Options{Config: buildconfig.Default(), WorkDir: "/work", StageDir: "static/dist-stage"})
	assert.NoError(t, err)
	_, err = New(Options{Config: buildconfig.Default(), WorkDir: "/work", StageDir: "build/stage", OutDir: "/work/build/dist"})
	assert.NoError(t, err)
}

func TestStart_RepeatedEmitIsStable(t *testing.T) {
	workDir := t.TempDir()
	writeFiles(t, workDir, map[string]string{
		"build/stage/app.js":   "app",
		"build/stage/logo.png": "png",
	})

	var manifests [][]byte
	for i := 0; i < 2; i++ {
		c, err := New(Options{
			Config:   buildconfig.Default(),
			WorkDir:  workDir,
			StageDir: "build/stage",
			OutDir:   filepath.Join(workDir, "build", "dist"),
		})
		require.NoError(t, err)
		res, err := c.Start(context.Background(), ModeEmit)
		require.NoError(t, err, "run %d", i)
		assert.Len(t, res.Manifest.Entries, 2, "run %d", i)

		b, err := os.ReadFile(res.ManifestPath)
		require.NoError(t, err)
		manifests = append(manifests, b)
	}
	assert.Equal(t, string(manifests[0]), string(manifests[1]))
}

func TestStart_IgnoresDotFilesInStage(t *testing.T) {
	c, workDir := newTestContext(t)
	writeFiles(t, workDir, map[string]string{
		"stage/.DS_Store":    "junk",
		"stage/assets/.keep": "",
		"stage/.vite/m.json": "{}",
	})

	res, err := c.Start(context.Background(), ModePlan)
	require.NoError(t, err)
	assert.Equal(t, []string{"css/app.css", "images/logo.ICO", "js/app.js", "js/chunk-a.js"}, res.Build.Plan.Outputs())
}

func TestStart_ManifestPathIsReserved(t *testing.T) {
	workDir := t.TempDir()
	writeFiles(t, workDir, map[string]string{
		"stage/app.js":        "app",
		"stage/manifest.json": "{}",
	})
	cfg := buildconfig.Default()
	cfg.Naming.Assets = "[name][extname]"

	c, err := New(Options{Config: cfg, WorkDir: workDir, StageDir: "stage"})
	require.NoError(t, err)
	_, err = c.Start(context.Background(), ModeEmit)
	assert.ErrorIs(t, err, build.ErrCollision)

	_, err = os.Stat(filepath.Join(workDir, "static", "dist"))
	assert.True(t, os.IsNotExist(err), "nothing is written on collision")

	c, err = New(Options{
		Config:       cfg,
		WorkDir:      workDir,
		StageDir:     "stage",
		ManifestPath: filepath.Join(workDir, "meta", "manifest.json"),
	})
	require.NoError(t, err)
	res, err := c.Start(context.Background(), ModeEmit)
	require.NoError(t, err)
	_, ok := res.Manifest.Lookup("manifest.json")
	assert.True(t, ok)
}

func TestNew_OutDirOverride(t *testing.T) {
	c, err := New(Options{Config: buildconfig.Default(), WorkDir: "/work", StageDir: "s", OutDir: "/elsewhere/out"})
	require.NoError(t, err)
	assert.Equal(t, "/elsewhere/out", c.OutDir())
	assert.Same(t, c.Router(), c.Router())
	assert.NotNil(t, c.Logger())
}
