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

// Image produces one branded post-card asset per calendar post. The LLM
// writes the visual prompt, then the renderer composes it into a PNG at the
// post type's resolution.
type Image struct {
	client   llm.Client
	renderer CardRenderer
}

// GenerateImage implements workflow.ImageAgent.
func (a *Image) GenerateImage(ctx context.Context, post workflow.CalendarPost) (workflow.ImageAsset, error) {
	prompt := prompts.Format(prompts.MustGet(promptFile, "image_prompt"), map[string]string{
		"Date":        post.Date.Format("2006-01-02"),
		"Title":       post.Title,
		"Description": post.Description,
	})

	visual, err := a.client.GenerateText(ctx, prompt, llm.TierCreative)
	if err != nil {
		return workflow.ImageAsset{}, fmt.Errorf("failed to generate image prompt: %w", err)
	}

	res := post.PostType.Resolution()
	png, err := a.renderer.CardPNG(ctx, render.Card{
		Title:       post.Title,
		Description: post.Description,
		Prompt:      strings.TrimSpace(visual),
		Date:        post.Date,
		Width:       res.Width,
		Height:      res.Height,
	})
	if err != nil {
		return workflow.ImageAsset{}, fmt.Errorf("failed to render post card: %w", err)
	}

	return workflow.ImageAsset{
		Data:     png,
		MIMEType: "image/png",
		Filename: assetFilename(post),
	}, nil
}

func assetFilename(post workflow.CalendarPost) string {
	slug := strings.ToLower(post.Title)
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '-'
		}
	}, slug)
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "post"
	}
	return fmt.Sprintf("%s-%s.png", post.Date.Format("2006-01-02"), slug)
}
