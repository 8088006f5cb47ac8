package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/trialmatch/internal/cli"
	"github.com/okian/trialmatch/pkg/logger"
)

// Set by -ldflags at build time.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	cli.SetVersionInfo(version, commit, buildTime)
	err := cli.Execute(ctx)

	_ = logger.Sync()
	stop()

	if err != nil {
		os.Stderr.WriteString("trialmatch: " + err.Error() + "\n")
		os.Exit(1)
	}
}
