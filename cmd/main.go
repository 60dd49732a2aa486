package main

import (
	"fmt"
	"os"

	"github.com/trous-aml/trous_service/internal/app"
)

// @title Trous AML Compliance API
// @version 1.0
// @description Bilingual (Arabic/English) AML compliance workflows: KYC intake, sanctions screening, transaction monitoring alerts, STR cases with goAML export, policies and risk assessments.

// @contact.name Trous Support
// @contact.email support@trous.sa

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	application := app.NewApplication()

	if err := application.Initialize(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	if err := application.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start application: %v\n", err)
		os.Exit(1)
	}

	application.WaitForShutdown()

	if err := application.Shutdown(); err != nil {
		fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
		os.Exit(1)
	}
}
