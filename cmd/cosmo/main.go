package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cosmo-orch/cosmo/cmd/cosmo/commands"
	"github.com/cosmo-orch/cosmo/pkg/failures"

	// Bundled provisioning providers register themselves on import.
	_ "github.com/cosmo-orch/cosmo/pkg/providers/baremetal"
)

// Version is set via ldflags during build.
var Version = "dev"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	if err := commands.Execute(ctx, Version); err != nil {
		classified := failures.Classify(err)
		if classified.Kind != failures.KindAlreadyReported {
			fmt.Fprintln(os.Stderr, "Error: "+classified.Message)
		}
		os.Exit(classified.ExitCode())
	}
}
