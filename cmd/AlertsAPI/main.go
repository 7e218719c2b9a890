package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/quebec-alerts/alerts-api/internal/app"
	"github.com/quebec-alerts/alerts-api/internal/config"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg, err := config.NewConfig()
	if err != nil {
		log.Panicf("failed to load configuration: %v", err)
	}

	logger := log.New(log.Writer(), "AlertsAPI: ", log.LstdFlags)

	application := app.New(*cfg, logger)

	serviceContainer := application.Init()

	if err := application.Start(serviceContainer); err != nil {
		log.Panic(err)
	}

	defer func() {
		if err := application.Stop(serviceContainer); err != nil {
			log.Panicf("failed to shutdown application: %v", err)
		}
		log.Println("Application shutdown successfully")
	}()
}
