package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/philippe-ths/ai-running-coach/pkg/bootstrap"
	"github.com/philippe-ths/ai-running-coach/pkg/worker"
)

func main() {
	svc, err := bootstrap.NewService("worker")
	if err != nil {
		os.Stderr.WriteString("startup failed: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer svc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := worker.New(svc).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		svc.Logger.Error("worker failed", "error", err)
		os.Exit(1)
	}
	svc.Logger.Info("worker stopped")
}
