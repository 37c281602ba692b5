package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/webbmaffian/go-mpsc/cmd/mpscload/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := commands.NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
