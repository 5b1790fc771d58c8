package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/answergrid/answergrid/internal/adapters/driving/cli"
)

func main() {
	// A .env file is optional; secrets can come from the real environment.
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
