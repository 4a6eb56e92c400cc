package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/intermine/authserver/internal/authserver/app"
)

func main() {
	// Missing .env is fine; real deployments configure via the environment.
	_ = godotenv.Load()

	cfg := app.LoadConfig()

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
