package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/ayiooo/shortlink/internal/app"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	ctx := context.Background()

	loadEnv()

	// Initialize application
	application, err := app.New(ctx)
	if err != nil {
		return err
	}
	defer application.Shutdown()

	// Start server (blocks until shutdown)
	return application.Start(ctx)
}

// loadEnv loads .env only in development and test environments.
func loadEnv() {
	env := os.Getenv("APP_ENV")
	if env != "development" && env != "test" {
		return
	}
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found")
	}
}
