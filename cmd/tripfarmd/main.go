// Command tripfarmd runs the TripFarm intake server until interrupted.
package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"tripfarm/internal/config"
	"tripfarm/internal/daemonrun"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if err := daemonrun.Run(ctx, cfg, daemonrun.Options{}); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("tripfarmd: %v", err)
	}
}
