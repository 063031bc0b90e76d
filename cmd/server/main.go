package main

import (
	"log"

	"filegate/internal/app"
	"filegate/internal/config"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Logger error: %v", err)
	}
	sugar := logger.Sugar()
	defer func() {
		_ = logger.Sync()
	}()

	if err := app.Run(cfg, sugar); err != nil {
		sugar.Fatalw("server failed", "error", err)
	}
}
