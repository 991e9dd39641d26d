package main

import (
	"log"

	"github.com/Yasuhisa-O/SNS/internal/config"
	"github.com/Yasuhisa-O/SNS/internal/database"
)

func main() {
	config.LoadConfig()

	database.Connect(config.AppConfig.DatabaseURL)

	if err := database.SeedTestData(database.DB); err != nil {
		log.Fatalf("failed to seed: %v", err)
	}

	log.Println("Seeding completed.")
}
