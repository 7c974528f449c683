package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/QwerMotion/the-Azathoth-project/internal/cli"
	"github.com/QwerMotion/the-Azathoth-project/internal/config"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx, config.SettingsFromEnv()); err != nil {
		stop()
		os.Exit(1)
	}
}
