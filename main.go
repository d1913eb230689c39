// Package main implements the netgateway binary, which validates, applies,
// destroys and checks stacks of network gateways and gateway connections.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "netgateway: %v\n", err)
		stop()
		os.Exit(1)
	}
}
