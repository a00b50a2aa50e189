package main

import (
	"os"

	"github.com/Christabll/IST-LeaveManagementService/internal/app"
	"github.com/Christabll/IST-LeaveManagementService/internal/bootstrap"

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

	router, _, cleanup, err := app.BuildApp(logger)
	if err != nil {
		logger.Fatal("build app failed", zap.Error(err))
	}
	defer cleanup()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := bootstrap.StartHTTPServer(router, port, logger); err != nil {
		logger.Fatal("http server failed", zap.Error(err))
	}
}
