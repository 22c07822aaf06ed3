package main

import (
	"context"
	"errors"
	"os"
	"time"

	"expensely/internal/amqp"
	"expensely/internal/cli"
	applog "expensely/internal/log"
	"expensely/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(applog.ComponentWorker, os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required to run the worker")
		os.Exit(1)
	}

	res := cli.InitBackend(context.Background(), logger, cfg)
	consumer, ok := res.Publisher.(*amqp.Client)
	if !ok {
		logger.Error("AMQP broker unavailable", "exchange", cfg.AMQPExchange)
		_ = res.Cleanup()
		os.Exit(1)
	}

	if res.Activity == nil {
		logger.WithComponent(applog.ComponentSheets).Info("Activity sheet disabled - no GOOGLE_SPREADSHEET_ID provided")
	}
	events := worker.NewEventWorker(res.Store, res.Activity)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	amqpLogger := logger.WithComponent(applog.ComponentAMQP)
	amqpLogger.Info("Starting expensely-worker", "queue", cfg.AMQPQueue, "exchange", cfg.AMQPExchange)
	if err := consumer.ConsumeExpenseEvents(ctx, events.Handle); err != nil && !errors.Is(err, context.Canceled) {
		amqpLogger.Error("Message consumption failed", "error", err)
		_ = res.Cleanup()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
