package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Christabll/IST-LeaveManagementService/internal/app"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	_, reg, cleanup, err := app.BuildApp(logger)
	if err != nil {
		logger.Fatal("build app failed", zap.Error(err))
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	broker := os.Getenv("KAFKA_BROKER")
	if broker == "" {
		broker = "localhost:9092"
	}

	if err := app.RunConsumer(ctx, reg, broker, logger); err != nil {
		logger.Fatal("consumer failed", zap.Error(err))
	}
}
