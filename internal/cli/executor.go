package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"assetweaver/internal/app"
	"assetweaver/internal/build"
	"assetweaver/internal/buildconfig"
	"assetweaver/internal/harvest"
	"assetweaver/internal/route"
)

// BuildStarter runs a prepared application context.
//
// This allows the CLI to prove exit-code mapping (including panic) in tests
// without depending on build internals.
type BuildStarter interface {
	Start(ctx context.Context, a *app.Context, mode app.Mode) (*app.Result, error)
}

type defaultStarter struct{}

func (defaultStarter) Start(ctx context.Context, a *app.Context, mode app.Mode) (*app.Result, error) {
	return a.Start(ctx, mode)
}

type CLIResult struct {
	ExitCode int
	Result   *app.Result
}

// Execute runs a canonical invocation. Plan lines go to stdout, logs to stderr.
func Execute(ctx context.Context, inv CLIInvocation, stdout, stderr io.Writer) (CLIResult, error) {
	return ExecuteWithStarter(ctx, inv, stdout, stderr, defaultStarter{})
}

// ExecuteWithStarter maps a canonical CLIInvocation to a build.
//
// Responsibilities:
//   - Load and validate the build config (exit 3 on failure).
//   - Register the content scan plugin and start the build once.
//   - Print the plan in plan mode.
//   - Translate build outcomes to semantic exit codes, even on panic.
func ExecuteWithStarter(ctx context.Context, inv CLIInvocation, stdout, stderr io.Writer, starter BuildStarter) (res CLIResult, execErr error) {
	res.ExitCode = ExitInternalError
	if starter == nil {
		return res, fmt.Errorf("nil starter")
	}
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: inv.LogLevel}))

	cfg, err := buildconfig.LoadFile(inv.ConfigPath)
	if err != nil {
		res.ExitCode = ExitConfigError
		return res, err
	}
	logger.Debug("loaded build config", "path", inv.ConfigPath, "entries", len(cfg.EntryPoints))

	a, err := app.New(app.Options{
		Config:       cfg,
		WorkDir:      inv.WorkDir,
		StageDir:     inv.StageDir,
		OutDir:       inv.OutDir,
		ManifestPath: inv.ManifestPath,
		Workers:      inv.Workers,
		Logger:       logger,
	})
	if err != nil {
		res.ExitCode = ExitConfigError
		return res, err
	}
	if err := a.Register(app.ContentScanPlugin{}); err != nil {
		return res, err
	}

	defer func() {
		if r := recover(); r != nil {
			res.ExitCode = ExitInternalError
			res.Result = nil
			execErr = fmt.Errorf("panic: %v", r)
			logger.Error("build panicked", "panic", r)
		}
	}()

	result, err := starter.Start(ctx, a, inv.Mode)
	if err != nil {
		res.ExitCode = exitCodeForBuildError(err)
		logger.Error("build failed", "error", err)
		return res, err
	}
	res.Result = result

	if inv.Mode == app.ModePlan && result != nil && result.Build != nil && result.Build.Plan != nil {
		if err := writePlan(stdout, result.Build.Plan); err != nil {
			return res, err
		}
	}

	res.ExitCode = ExitSuccess
	return res, nil
}

func exitCodeForBuildError(err error) int {
	switch {
	case errors.Is(err, harvest.ErrStageDir),
		errors.Is(err, buildconfig.ErrInvalidConfig),
		errors.Is(err, route.ErrInvalidRules):
		return ExitConfigError
	case errors.Is(err, app.ErrAlreadyStarted):
		return ExitInternalError
	case errors.Is(err, build.ErrCollision), errors.Is(err, build.ErrInvalidInput):
		return ExitBuildFailure
	default:
		// Emit I/O, plugin failures and cancellation.
		return ExitBuildFailure
	}
}

func writePlan(w io.Writer, p *build.Plan) error {
	for _, s := range p.Steps {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", s.Output, s.Artifact.Kind, s.Source); err != nil {
			return fmt.Errorf("write plan: %w", err)
		}
	}
	return nil
}
