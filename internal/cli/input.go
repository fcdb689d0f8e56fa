package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"assetweaver/internal/app"
)

const (
	ExitSuccess           = 0
	ExitBuildFailure      = 1
	ExitInvalidInvocation = 2
	ExitConfigError       = 3
	ExitInternalError     = 4
)

// CLIInvocation is the fully canonicalized description of a run.
//
// All paths are cleaned and relative paths are resolved against WorkDir.
// WorkDir is required and must be absolute, so nothing depends on the
// process working directory.
type CLIInvocation struct {
	WorkDir      string
	ConfigPath   string
	StageDir     string
	OutDir       string
	ManifestPath string
	Mode         app.Mode
	LogLevel     slog.Level
	Workers      int
}

type InvocationError struct {
	ExitCode int
	Message  string
}

func (e *InvocationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func invalidInvocationf(format string, args ...any) error {
	return &InvocationError{ExitCode: ExitInvalidInvocation, Message: fmt.Sprintf(format, args...)}
}

// ErrHelp is returned by ParseInvocation when --help was requested.
var ErrHelp = pflag.ErrHelp

type flagValues struct {
	workDir      string
	configPath   string
	stageDir     string
	outDir       string
	manifestPath string
	mode         string
	logLevel     string
	workers      int
}

func newFlagSet(out io.Writer, v *flagValues) *pflag.FlagSet {
	fs := pflag.NewFlagSet("assetweaver", pflag.ContinueOnError)
	fs.SetOutput(out)
	fs.SortFlags = false

	fs.StringVar(&v.workDir, "workdir", "", "Absolute working directory. Required.")
	fs.StringVar(&v.configPath, "config", "", "Build config file (.yaml, .yml, .json, .jsonc). Required.")
	fs.StringVar(&v.stageDir, "stage-dir", "", "Directory holding the raw bundler output. Required.")
	fs.StringVar(&v.outDir, "out-dir", "", "Output directory (overrides out_dir from the config).")
	fs.StringVar(&v.manifestPath, "manifest", "", "Manifest path (default <out-dir>/manifest.json).")
	fs.StringVar(&v.mode, "mode", string(app.ModeEmit), "Mode: plan|emit")
	fs.StringVar(&v.logLevel, "log-level", "info", "Log level: debug|info|warn|error")
	fs.IntVar(&v.workers, "workers", 0, "Concurrent copies during emit (0 = number of CPUs).")
	return fs
}

// Usage writes the flag summary to w.
func Usage(w io.Writer) {
	fmt.Fprintln(w, "usage: assetweaver --workdir DIR --config FILE --stage-dir DIR [flags]")
	newFlagSet(w, &flagValues{}).PrintDefaults()
}

// ParseInvocation parses CLI flags into a canonical CLIInvocation.
//
// Nothing is read from the environment or the process working directory.
func ParseInvocation(args []string) (CLIInvocation, error) {
	var v flagValues
	fs := newFlagSet(io.Discard, &v)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return CLIInvocation{}, ErrHelp
		}
		return CLIInvocation{}, invalidInvocationf("%v", err)
	}
	if fs.NArg() != 0 {
		return CLIInvocation{}, invalidInvocationf("unexpected positional arguments: %q", strings.Join(fs.Args(), " "))
	}

	if v.workDir == "" {
		return CLIInvocation{}, invalidInvocationf("--workdir is required")
	}
	v.workDir = filepath.Clean(v.workDir)
	if !filepath.IsAbs(v.workDir) {
		return CLIInvocation{}, invalidInvocationf("--workdir must be an absolute path (got %q)", v.workDir)
	}
	if v.configPath == "" {
		return CLIInvocation{}, invalidInvocationf("--config is required")
	}
	if v.stageDir == "" {
		return CLIInvocation{}, invalidInvocationf("--stage-dir is required")
	}
	if v.workers < 0 {
		return CLIInvocation{}, invalidInvocationf("--workers must not be negative (got %d)", v.workers)
	}

	parsedMode, err := parseMode(v.mode)
	if err != nil {
		return CLIInvocation{}, err
	}
	level, err := parseLogLevel(v.logLevel)
	if err != nil {
		return CLIInvocation{}, err
	}

	inv := CLIInvocation{
		WorkDir:  v.workDir,
		Mode:     parsedMode,
		LogLevel: level,
		Workers:  v.workers,
	}
	if inv.ConfigPath, err = resolveUnderWorkDir(v.workDir, v.configPath); err != nil {
		return CLIInvocation{}, err
	}
	if inv.StageDir, err = resolveUnderWorkDir(v.workDir, v.stageDir); err != nil {
		return CLIInvocation{}, err
	}
	if strings.TrimSpace(v.outDir) != "" {
		if inv.OutDir, err = resolveUnderWorkDir(v.workDir, v.outDir); err != nil {
			return CLIInvocation{}, err
		}
	}
	if strings.TrimSpace(v.manifestPath) != "" {
		if inv.ManifestPath, err = resolveUnderWorkDir(v.workDir, v.manifestPath); err != nil {
			return CLIInvocation{}, err
		}
	}
	return inv, nil
}

func parseMode(raw string) (app.Mode, error) {
	n := strings.ToLower(strings.TrimSpace(raw))
	switch app.Mode(n) {
	case app.ModePlan, app.ModeEmit:
		return app.Mode(n), nil
	case "":
		return "", invalidInvocationf("--mode is required")
	default:
		return "", invalidInvocationf("invalid --mode %q (expected plan|emit)", raw)
	}
}

func parseLogLevel(raw string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
		return 0, invalidInvocationf("invalid --log-level %q (expected debug|info|warn|error)", raw)
	}
	return level, nil
}

func resolveUnderWorkDir(workDir, p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", invalidInvocationf("path must not be empty")
	}
	clean := filepath.Clean(p)
	if clean == "." {
		return "", invalidInvocationf("path must not be '.'")
	}
	if filepath.IsAbs(clean) {
		return clean, nil
	}
	// WorkDir is absolute, so Join does not consult the process CWD.
	return filepath.Clean(filepath.Join(workDir, clean)), nil
}

// ExitCode extracts a semantic exit code from a ParseInvocation error.
func ExitCode(err error) int {
	var invErr *InvocationError
	if errors.As(err, &invErr) && invErr != nil {
		if invErr.ExitCode != 0 {
			return invErr.ExitCode
		}
		return ExitInvalidInvocation
	}
	if err == nil || errors.Is(err, ErrHelp) {
		return ExitSuccess
	}
	return ExitInternalError
}
