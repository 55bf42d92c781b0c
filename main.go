package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"qapages/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.Execute(ctx)
	stop()
	if err != nil {
		// cobra already printed the error
		os.Exit(1)
	}
}
