package buildconfig

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assetweaver/internal/route"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "static/dist", cfg.OutDir)
	assert.Equal(t, []EntryPoint{{Name: "app", Source: "static/js/app.js"}}, cfg.EntryPointList())
	assert.Equal(t, []string{"tailwindcss", "autoprefixer", "@tailwindcss/forms", "@tailwindcss/typography"}, cfg.CSSPlugins)

	r, err := route.NewRouter(cfg.Rules())
	require.NoError(t, err)
	assert.Equal(t, "js/app.js", r.Route(route.Artifact{Kind: route.KindEntryScript, LogicalName: "app"}))
	assert.Equal(t, "images/logo.svg", r.Route(route.Artifact{Kind: route.KindAsset, LogicalName: "logo", Extension: ".svg"}))
	assert.Equal(t, "css/main.css", r.Route(route.Artifact{Kind: route.KindAsset, LogicalName: "main", Extension: ".css"}))
}

func TestLoadFile_YAMLReplacesDefaults(t *testing.T) {
	p := writeConfig(t, "assets.yaml", `
out_dir: public/build
entry_points:
  main: web/main.js
  admin: web/admin.js
naming:
  images: img/[name][extname]
content:
  - ./web/**/*.html
`)
	cfg, err := LoadFile(p)
	require.NoError(t, err)

	assert.Equal(t, "public/build", cfg.OutDir)
	assert.Equal(t, []EntryPoint{
		{Name: "admin", Source: "web/admin.js"},
		{Name: "main", Source: "web/main.js"},
	}, cfg.EntryPointList(), "entry points replace the default map instead of merging")
	assert.Equal(t, "img/[name][extname]", cfg.Naming.Images)
	assert.Equal(t, "js/[name].js", cfg.Naming.Scripts, "unset naming keys keep defaults")
	assert.Equal(t, []string{"./web/**/*.html"}, cfg.Content)
	assert.Equal(t, []string{".js", ".mjs"}, cfg.ScriptExtensions)
	assert.Contains(t, cfg.EntryNames(), "admin")
}

func TestLoadFile_JSONCWithComments(t *testing.T) {
	p := writeConfig(t, "assets.jsonc", `{
	// where everything goes
	"out_dir": "dist",
	"entry_points": {"app": "src/app.js",},
	/* fonts get their own rule set later */
	"naming": {"image_extensions": ["png", "webp"]},
}`)
	cfg, err := LoadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "dist", cfg.OutDir)
	assert.Equal(t, []string{"png", "webp"}, cfg.Naming.ImageExtensions)
}

func TestLoadFile_EmptyFileUsesDefaults(t *testing.T) {
	for _, name := range []string{"empty.yaml", "empty.json"} {
		cfg, err := LoadFile(writeConfig(t, name, ""))
		require.NoError(t, err, name)
		assert.Equal(t, Default(), cfg, name)
	}
}

func TestLoadFile_RejectsUnknownKeys(t *testing.T) {
	_, err := LoadFile(writeConfig(t, "bad.yaml", "outDir: dist\n"))
	require.Error(t, err)

	_, err = LoadFile(writeConfig(t, "bad.json", `{"outDir": "dist"}`))
	require.Error(t, err)
}

func TestLoadFile_RejectsTrailingJSON(t *testing.T) {
	_, err := LoadFile(writeConfig(t, "two.json", `{"out_dir": "a"} {"out_dir": "b"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trailing data")
}

func TestLoadFile_UnsupportedExtension(t *testing.T) {
	_, err := LoadFile(writeConfig(t, "vite.config.js", "export default {}"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadFile_ExpandsVariables(t *testing.T) {
	t.Setenv("ASSET_OUT", "build/out")
	t.Setenv("ASSET_SRC", "")
	p := writeConfig(t, "vars.yaml", `
out_dir: ${ASSET_OUT}
entry_points:
  app: ${ASSET_SRC:-static/js}/app.js
`)
	cfg, err := LoadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "build/out", cfg.OutDir)
	assert.Equal(t, "static/js/app.js", cfg.EntryPoints["app"])
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.OutDir = "/"
	cfg.EntryPoints = map[string]string{"nested/app": "", "": "x.js"}
	cfg.Naming.Assets = "css/main.css"
	cfg.Content = []string{"static/[abc"}
	cfg.ScriptExtensions = []string{"js"}

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	var ce *ConfigError
	require.True(t, errors.As(err, &ce))
	assert.Len(t, ce.Problems, 7)
	assert.Contains(t, err.Error(), "entry_points: entry name is empty")
	assert.Contains(t, err.Error(), "out_dir must not be the filesystem root")
	assert.Contains(t, err.Error(), "entry_points.nested/app: name must not contain path separators")
	assert.Contains(t, err.Error(), "entry_points.nested/app: source path is required")
	assert.Contains(t, err.Error(), "naming:")
	assert.Contains(t, err.Error(), `content: invalid pattern "static/[abc"`)
	assert.Contains(t, err.Error(), `script_extensions: "js" must start with '.'`)
}

func TestValidate_RequiresEntryPoints(t *testing.T) {
	cfg := Default()
	cfg.EntryPoints = nil
	cfg.OutDir = ""
	cfg.ScriptExtensions = nil

	err := cfg.Validate()
	var ce *ConfigError
	require.True(t, errors.As(err, &ce))
	assert.ElementsMatch(t, []string{
		"out_dir is required",
		"entry_points must declare at least one entry",
		"script_extensions must not be empty",
	}, ce.Problems)
}

func TestFingerprint_StableAndSensitive(t *testing.T) {
	a, err := Default().Fingerprint()
	require.NoError(t, err)
	b, err := Default().Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, a, b)

	cfg := Default()
	cfg.OutDir = "other"
	c, err := cfg.Fingerprint()
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}
