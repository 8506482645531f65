package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/veyra/automarket/internal/llm"
	"github.com/veyra/automarket/internal/prompts"
	"github.com/veyra/automarket/internal/workflow"
)

// Page generates the final landing-page HTML from the accumulated artifacts.
type Page struct {
	client llm.Client
}

// LandingPage implements workflow.PageAgent.
func (a *Page) LandingPage(ctx context.Context, input workflow.PageInput) (string, error) {
	prompt := prompts.Format(prompts.MustGet(promptFile, "landing_page"), map[string]string{
		"Briefing":  input.Briefing,
		"Strategy":  input.Strategy,
		"ImageURLs": strings.Join(input.ImageURLs, "\n"),
	})

	out, err := a.client.GenerateText(ctx, prompt, llm.TierCreative)
	if err != nil {
		return "", fmt.Errorf("failed to generate landing page: %w", err)
	}

	html := llm.CleanCodeBlock(out)
	if err := CheckLandingPage(html); err != nil {
		return "", err
	}
	return html, nil
}

// CheckLandingPage verifies the generated document is a usable HTML page:
// parseable, with a body that actually contains content.
func CheckLandingPage(html string) error {
	if strings.TrimSpace(html) == "" {
		return fmt.Errorf("landing page output is empty")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return fmt.Errorf("landing page is not parseable HTML: %w", err)
	}
	if strings.TrimSpace(doc.Find("body").Text()) == "" {
		return fmt.Errorf("landing page has no body content")
	}
	return nil
}

// PageTitle extracts the <title> of a landing page, falling back to the first
// h1 when no title element is present.
func PageTitle(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}
