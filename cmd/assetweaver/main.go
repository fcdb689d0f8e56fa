package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"assetweaver/internal/cli"
)

// main canonicalizes all CLI inputs into a CLIInvocation before any build
// logic is invoked. A .env file in the process directory, if present, is
// loaded first so ${VAR} references in the build config can see it.
func main() {
	_ = godotenv.Load()

	inv, err := cli.ParseInvocation(os.Args[1:])
	if err != nil {
		if errors.Is(err, cli.ErrHelp) {
			cli.Usage(os.Stdout)
			os.Exit(cli.ExitSuccess)
		}
		var invErr *cli.InvocationError
		if errors.As(err, &invErr) {
			fmt.Fprintln(os.Stderr, invErr.Message)
			cli.Usage(os.Stderr)
			os.Exit(invErr.ExitCode)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitInternalError)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	result, execErr := cli.Execute(ctx, inv, os.Stdout, os.Stderr)
	stop()
	if execErr != nil {
		fmt.Fprintln(os.Stderr, execErr)
	}
	os.Exit(result.ExitCode)
}
