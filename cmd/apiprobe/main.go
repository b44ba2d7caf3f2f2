package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/wesleyorama2/apiprobe/internal/cli"
)

// Main runs apiprobe and returns the process exit code. An interrupt
// cancels the running command.
func Main() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		return 1
	}
	return 0
}

func main() {
	os.Exit(Main())
}
