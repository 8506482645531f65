package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/veyra/automarket/internal/config"
	"github.com/veyra/automarket/internal/db"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status [thread_id]",
	Short: "Show workflow state",
	Long:  `Show the persisted record for one thread, or recent threads when no thread ID is given.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 20, "Maximum threads to list")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	if len(args) == 1 {
		rec, err := database.GetWorkflow(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(rec)
	}

	records, err := database.ListWorkflows(ctx, statusLimit)
	if err != nil {
		return err
	}
	return printJSON(records)
}
