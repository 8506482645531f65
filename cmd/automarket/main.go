// Package main provides the entry point for the marketing automation service.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "automarket",
	Short: "WhatsApp-driven marketing automation service",
	Long:  "Automarket turns a WhatsApp conversation into a full marketing package: briefing, strategy, content calendar, post images, and a published landing page.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
