package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/roach88/imgforge/internal/cli"
)

// main is the entrypoint for imgforge. Ctrl-C or SIGTERM cancels the
// running tool and fails the build.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
