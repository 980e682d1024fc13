package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/crucial707/hci-inventory/cmd/cli/root"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Execute the root Cobra command
	if err := root.NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
