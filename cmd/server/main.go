package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sujal-2301/SyncCanvasLab/internal/bootstrap"

	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize application: %v", err)
	}

	if err := app.Start(); err != nil {
		logrus.Fatalf("Failed to start application: %v", err)
	}

	// 设置优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutdown signal received...")

	app.Shutdown()
}
