// Package agents implements the five pipeline stage agents on top of the LLM
// client. Each agent loads its prompt template from the prompts package,
// fills in the stage inputs, and post-processes the model output into the
// artifact the engine persists.
package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/veyra/automarket/internal/llm"
	"github.com/veyra/automarket/internal/prompts"
	"github.com/veyra/automarket/internal/render"
	"github.com/veyra/automarket/internal/workflow"
)

const promptFile = "marketing.json"

// CardRenderer renders a post card to PNG bytes. Satisfied by
// *render.Renderer; tests substitute a fake.
type CardRenderer interface {
	CardPNG(ctx context.Context, card render.Card) ([]byte, error)
}

// New wires all five stage agents against the given LLM client and card
// renderer.
func New(client llm.Client, renderer CardRenderer) workflow.Agents {
	return workflow.Agents{
		Briefing: &Briefing{client: client},
		Strategy: &Strategy{client: client},
		Calendar: &Calendar{client: client},
		Image:    &Image{client: client, renderer: renderer},
		Page:     &Page{client: client},
	}
}

// Briefing distills a raw conversation transcript into a Markdown briefing.
type Briefing struct {
	client llm.Client
}

// Briefing implements workflow.BriefingAgent.
func (a *Briefing) Briefing(ctx context.Context, transcript string) (string, error) {
	if strings.TrimSpace(transcript) == "" {
		return "", fmt.Errorf("transcript is empty")
	}

	prompt := prompts.Format(prompts.MustGet(promptFile, "briefing"), map[string]string{
		"Transcript": transcript,
	})

	out, err := a.client.GenerateText(ctx, prompt, llm.TierFast)
	if err != nil {
		return "", fmt.Errorf("failed to generate briefing: %w", err)
	}
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("briefing output is empty")
	}
	return strings.TrimSpace(out), nil
}

// Strategy writes the strategy and one-week plan document from a briefing.
type Strategy struct {
	client llm.Client
}

// Strategy implements workflow.StrategyAgent.
func (a *Strategy) Strategy(ctx context.Context, briefing string) (string, error) {
	prompt := prompts.Format(prompts.MustGet(promptFile, "strategy"), map[string]string{
		"Briefing": briefing,
	})

	out, err := a.client.GenerateText(ctx, prompt, llm.TierCreative)
	if err != nil {
		return "", fmt.Errorf("failed to generate strategy: %w", err)
	}
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("strategy output is empty")
	}
	return strings.TrimSpace(out), nil
}
