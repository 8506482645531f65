package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/veyra/automarket/internal/agents"
	"github.com/veyra/automarket/internal/config"
	"github.com/veyra/automarket/internal/db"
	"github.com/veyra/automarket/internal/llm"
	"github.com/veyra/automarket/internal/publish"
	"github.com/veyra/automarket/internal/render"
	"github.com/veyra/automarket/internal/whatsapp"
	"github.com/veyra/automarket/internal/workflow"
)

var (
	runTranscript     string
	runTranscriptFile string
	runSingleStep     bool
)

var runCmd = &cobra.Command{
	Use:   "run <thread_id>",
	Short: "Drive a workflow thread from the command line",
	Long: `Drive the pipeline for a thread directly, without going through HTTP.
A new thread needs --transcript or --transcript-file; an existing thread
resumes from its persisted status.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runTranscript, "transcript", "", "Conversation transcript for a new thread")
	runCmd.Flags().StringVar(&runTranscriptFile, "transcript-file", "", "Read the transcript from a file")
	runCmd.Flags().BoolVar(&runSingleStep, "step", false, "Advance at most one stage")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	if runTranscript != "" && runTranscriptFile != "" {
		return fmt.Errorf("--transcript and --transcript-file are mutually exclusive")
	}

	ctx := cmd.Context()
	threadID := args[0]

	env, err := newEnv(ctx)
	if err != nil {
		return err
	}
	defer env.close()

	transcript := runTranscript
	if runTranscriptFile != "" {
		data, err := os.ReadFile(runTranscriptFile)
		if err != nil {
			return fmt.Errorf("failed to read transcript file: %w", err)
		}
		transcript = string(data)
	}

	if transcript != "" {
		if _, err := env.database.CreateWorkflow(ctx, threadID, transcript); err != nil {
			if !errors.Is(err, workflow.ErrAlreadyExists) {
				return err
			}
			log.Printf("[RUN] thread %s already exists, resuming", threadID)
		}
	}

	var rec *workflow.Record
	if runSingleStep {
		rec, err = env.engine.Step(ctx, threadID)
	} else {
		rec, err = env.engine.Advance(ctx, threadID)
	}
	if err != nil {
		return err
	}

	return printJSON(rec)
}

// env bundles the collaborators a CLI pipeline run needs.
type env struct {
	database *db.DB
	llm      llm.Client
	engine   *workflow.Engine
}

func newEnv(ctx context.Context) (*env, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.Migrate(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	llmClient, err := llm.NewGeminiClient(ctx, llm.DefaultConfig(), cfg.GeminiAPIKey)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	whatsappCfg := whatsapp.ConfigFromEnv()
	var notifier workflow.Notifier = workflow.NopNotifier{}
	if whatsappCfg.Configured() {
		notifier = whatsapp.NewClient(whatsappCfg)
	}

	var publisher workflow.Publisher
	if cfg.V0APIKey != "" {
		publisher = publish.NewV0Client(cfg.V0APIKey)
	} else {
		publisher = &publish.Local{BaseURL: cfg.PublicBaseURL}
	}

	engine := workflow.New(database, agents.New(llmClient, render.New(cfg.RenderTimeout)), publisher, notifier, workflow.Config{
		FanOutLimit:  cfg.FanOutLimit,
		StageTimeout: cfg.StageTimeout,
		ItemTimeout:  cfg.ItemTimeout,
	})

	return &env{database: database, llm: llmClient, engine: engine}, nil
}

func (e *env) close() {
	if e.llm != nil {
		e.llm.Close()
	}
	if e.database != nil {
		e.database.Close()
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
