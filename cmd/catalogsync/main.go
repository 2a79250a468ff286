// Package main is the catalogsync command line: the local API server and one-shot catalog commands.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
)

const serviceName = "catalogsync"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Printf("%s failed: %v", serviceName, err)
		stop()
		os.Exit(1)
	}
}
