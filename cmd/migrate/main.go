// migrate applies the embedded schema migrations: go run ./cmd/migrate -direction up
package main

import (
	"errors"
	"flag"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/transaction-manager/internal/config"
	"github.com/Dan9191/transaction-manager/internal/db/migrate"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	flag.Parse()

	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warnf("Failed to load .env: %v", err)
	}

	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	if err := migrate.Run(cfg.DBConn, *direction); err != nil {
		logger.Fatalf("Failed to migrate database %s: %v", *direction, err)
	}
	logger.Infof("Migrations applied (%s)", *direction)
}
