package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/fleetops/fuelrecon/internal/cli"
)

func main() {
	// Load .env if present; real environment variables win
	_ = godotenv.Load()

	if err := cli.Execute(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
