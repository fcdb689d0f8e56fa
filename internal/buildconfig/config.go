package buildconfig

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/tidwall/jsonc"
	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"

	"assetweaver/internal/contentscan"
	"assetweaver/internal/route"
)

// Config is the complete build configuration.
type Config struct {
	// OutDir is the root directory for every emitted artifact.
	OutDir string `yaml:"out_dir" json:"out_dir"`

	// EntryPoints maps a logical entry name to its source path.
	EntryPoints map[string]string `yaml:"entry_points" json:"entry_points"`

	// Naming holds the output templates.
	Naming Naming `yaml:"naming" json:"naming"`

	// Content lists the globs the external CSS tool scans for class names.
	Content []string `yaml:"content" json:"content"`

	// CSSPlugins names the PostCSS pipeline and Tailwind plugins. It is passed
	// through to the manifest untouched.
	CSSPlugins []string `yaml:"css_plugins" json:"css_plugins"`

	// ScriptExtensions decides which staged files are scripts.
	ScriptExtensions []string `yaml:"script_extensions" json:"script_extensions"`
}

// Naming is the configurable form of route.Rules.
type Naming struct {
	Scripts         string   `yaml:"scripts" json:"scripts"`
	Images          string   `yaml:"images" json:"images"`
	Assets          string   `yaml:"assets" json:"assets"`
	ImageExtensions []string `yaml:"image_extensions" json:"image_extensions"`
}

// EntryPoint is a named build input.
type EntryPoint struct {
	Name   string
	Source string
}

// Default returns the stock configuration: one "app" entry, output under
// static/dist, and the default naming policy.
func Default() *Config {
	rules := route.DefaultRules()
	return &Config{
		OutDir: "static/dist",
		EntryPoints: map[string]string{
			"app": "static/js/app.js",
		},
		Naming: Naming{
			Scripts:         string(rules.Script),
			Images:          string(rules.Image),
			Assets:          string(rules.Default),
			ImageExtensions: rules.ImageExtensions,
		},
		Content: []string{
			"./views/**/*.html",
			"./**/*.templ",
			"./**/go",
			"./templates/**/*.html",
			"./static/**/*.js",
		},
		CSSPlugins: []string{
			"tailwindcss",
			"autoprefixer",
			"@tailwindcss/forms",
			"@tailwindcss/typography",
		},
		ScriptExtensions: []string{".js", ".mjs"},
	}
}

// fileConfig mirrors Config with optional fields so that a key present in
// the file replaces the default as a whole instead of merging into it.
type fileConfig struct {
	OutDir           *string           `yaml:"out_dir" json:"out_dir"`
	EntryPoints      map[string]string `yaml:"entry_points" json:"entry_points"`
	Naming           *fileNaming       `yaml:"naming" json:"naming"`
	Content          []string          `yaml:"content" json:"content"`
	CSSPlugins       []string          `yaml:"css_plugins" json:"css_plugins"`
	ScriptExtensions []string          `yaml:"script_extensions" json:"script_extensions"`
}

type fileNaming struct {
	Scripts         *string  `yaml:"scripts" json:"scripts"`
	Images          *string  `yaml:"images" json:"images"`
	Assets          *string  `yaml:"assets" json:"assets"`
	ImageExtensions []string `yaml:"image_extensions" json:"image_extensions"`
}

// LoadFile reads the configuration at path on top of Default, expands path
// variables and validates the result.
func LoadFile(p string) (*Config, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read build config: %w", err)
	}

	var fc fileConfig
	switch ext := strings.ToLower(filepath.Ext(p)); ext {
	case ".yaml", ".yml":
		err = decodeYAML(data, &fc)
	case ".json", ".jsonc":
		err = decodeJSONC(data, &fc)
	default:
		return nil, fmt.Errorf("build config %s: unsupported format %q (expected .yaml, .yml, .json or .jsonc)", p, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}

	cfg := Default()
	cfg.apply(&fc)
	cfg.expandVariables()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeYAML(data []byte, out *fileConfig) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("parse build config yaml: %w", err)
	}
	return nil
}

func decodeJSONC(data []byte, out *fileConfig) error {
	stripped := jsonc.ToJSON(data)
	if len(bytes.TrimSpace(stripped)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(stripped))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("parse build config json: %w", err)
	}
	var trailing any
	if err := dec.Decode(&trailing); err != io.EOF {
		if err == nil {
			return fmt.Errorf("parse build config json: trailing data")
		}
		return fmt.Errorf("parse build config json: %w", err)
	}
	return nil
}

func (c *Config) apply(fc *fileConfig) {
	if fc.OutDir != nil {
		c.OutDir = *fc.OutDir
	}
	if fc.EntryPoints != nil {
		c.EntryPoints = fc.EntryPoints
	}
	if fc.Naming != nil {
		if fc.Naming.Scripts != nil {
			c.Naming.Scripts = *fc.Naming.Scripts
		}
		if fc.Naming.Images != nil {
			c.Naming.Images = *fc.Naming.Images
		}
		if fc.Naming.Assets != nil {
			c.Naming.Assets = *fc.Naming.Assets
		}
		if fc.Naming.ImageExtensions != nil {
			c.Naming.ImageExtensions = fc.Naming.ImageExtensions
		}
	}
	if fc.Content != nil {
		c.Content = fc.Content
	}
	if fc.CSSPlugins != nil {
		c.CSSPlugins = fc.CSSPlugins
	}
	if fc.ScriptExtensions != nil {
		c.ScriptExtensions = fc.ScriptExtensions
	}
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVariables expands ${VAR} and ${VAR:-default} in out_dir and entry
// sources.
func (c *Config) expandVariables() {
	c.OutDir = expandVars(c.OutDir)
	for name, src := range c.EntryPoints {
		c.EntryPoints[name] = expandVars(src)
	}
}

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		if len(parts) >= 3 {
			return parts[2]
		}
		return ""
	})
}

// Validate reports every problem at once as a *ConfigError.
func (c *Config) Validate() error {
	var problems []string

	out := strings.TrimSpace(c.OutDir)
	switch {
	case out == "":
		problems = append(problems, "out_dir is required")
	case filepath.Clean(out) == string(filepath.Separator) || path.Clean(out) == "/":
		problems = append(problems, "out_dir must not be the filesystem root")
	case filepath.Clean(out) == ".":
		problems = append(problems, "out_dir must not be the working directory")
	}

	if len(c.EntryPoints) == 0 {
		problems = append(problems, "entry_points must declare at least one entry")
	}
	for _, ep := range c.EntryPointList() {
		if strings.TrimSpace(ep.Name) == "" {
			problems = append(problems, "entry_points: entry name is empty")
			continue
		}
		if strings.ContainsAny(ep.Name, `/\`) {
			problems = append(problems, fmt.Sprintf("entry_points.%s: name must not contain path separators", ep.Name))
		}
		if strings.TrimSpace(ep.Source) == "" {
			problems = append(problems, fmt.Sprintf("entry_points.%s: source path is required", ep.Name))
		}
	}

	if _, err := route.NewRouter(c.Rules()); err != nil {
		problems = append(problems, "naming: "+err.Error())
	}

	for _, pattern := range c.Content {
		if strings.TrimSpace(pattern) == "" {
			problems = append(problems, "content: empty pattern")
			continue
		}
		if err := contentscan.ValidatePattern(pattern); err != nil {
			problems = append(problems, fmt.Sprintf("content: invalid pattern %q: %v", pattern, err))
		}
	}

	if len(c.ScriptExtensions) == 0 {
		problems = append(problems, "script_extensions must not be empty")
	}
	for _, ext := range c.ScriptExtensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			problems = append(problems, fmt.Sprintf("script_extensions: %q must start with '.'", ext))
		}
	}

	if len(problems) > 0 {
		return &ConfigError{Kind: ErrInvalidConfig, Problems: problems}
	}
	return nil
}

// Rules converts the naming section into route.Rules.
func (c *Config) Rules() route.Rules {
	return route.Rules{
		Script:          route.Template(c.Naming.Scripts),
		Image:           route.Template(c.Naming.Images),
		Default:         route.Template(c.Naming.Assets),
		ImageExtensions: append([]string(nil), c.Naming.ImageExtensions...),
	}
}

// EntryPointList returns the entry points sorted by name.
func (c *Config) EntryPointList() []EntryPoint {
	names := make([]string, 0, len(c.EntryPoints))
	for name := range c.EntryPoints {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]EntryPoint, 0, len(names))
	for _, name := range names {
		out = append(out, EntryPoint{Name: name, Source: c.EntryPoints[name]})
	}
	return out
}

// EntryNames returns the set of declared entry names.
func (c *Config) EntryNames() map[string]struct{} {
	out := make(map[string]struct{}, len(c.EntryPoints))
	for name := range c.EntryPoints {
		out[name] = struct{}{}
	}
	return out
}

// Fingerprint is the BLAKE3 hex digest of the configuration's JSON encoding.
// encoding/json sorts map keys, so equal configs give equal fingerprints.
func (c *Config) Fingerprint() (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode build config: %w", err)
	}
	sum := blake3.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
