package agents

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veyra/automarket/internal/llm"
	"github.com/veyra/automarket/internal/render"
	"github.com/veyra/automarket/internal/workflow"
)

// fakeClient returns canned responses keyed by a substring of the prompt.
type fakeClient struct {
	textFn func(prompt string, tier llm.ModelTier) (string, error)
	jsonFn func(prompt string, tier llm.ModelTier) (string, error)
}

func (f *fakeClient) GenerateText(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	return f.textFn(prompt, tier)
}

func (f *fakeClient) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	return f.jsonFn(prompt, tier)
}

func (f *fakeClient) Close() error { return nil }

type fakeRenderer struct {
	cards []render.Card
	err   error
}

func (f *fakeRenderer) CardPNG(ctx context.Context, card render.Card) ([]byte, error) {
	f.cards = append(f.cards, card)
	if f.err != nil {
		return nil, f.err
	}
	return []byte("png-bytes"), nil
}

func TestBriefingIncludesTranscript(t *testing.T) {
	var gotPrompt string
	client := &fakeClient{textFn: func(prompt string, tier llm.ModelTier) (string, error) {
		gotPrompt = prompt
		assert.Equal(t, llm.TierFast, tier)
		return "# Briefing\nAroma coffee shop", nil
	}}

	agent := &Briefing{client: client}
	out, err := agent.Briefing(context.Background(), "I run a coffee shop called Aroma")
	require.NoError(t, err)
	assert.Contains(t, gotPrompt, "I run a coffee shop called Aroma")
	assert.Equal(t, "# Briefing\nAroma coffee shop", out)
}

func TestBriefingRejectsEmptyTranscript(t *testing.T) {
	agent := &Briefing{client: &fakeClient{}}
	_, err := agent.Briefing(context.Background(), "   ")
	assert.Error(t, err)
}

func TestStrategyUsesCreativeTier(t *testing.T) {
	client := &fakeClient{textFn: func(prompt string, tier llm.ModelTier) (string, error) {
		assert.Equal(t, llm.TierCreative, tier)
		assert.Contains(t, prompt, "target audience: students")
		return "# Strategy\nWeek plan", nil
	}}

	agent := &Strategy{client: client}
	out, err := agent.Strategy(context.Background(), "target audience: students")
	require.NoError(t, err)
	assert.Equal(t, "# Strategy\nWeek plan", out)
}

func TestCalendarParsesValidJSON(t *testing.T) {
	raw := `[
		{"date": "2025-06-02T00:00:00Z", "title": "Launch day", "description": "Announce the opening", "post_type": "feed"},
		{"date": "2025-06-03T00:00:00Z", "title": "Behind the scenes", "description": "Roasting process", "post_type": "story"},
		{"date": "2025-06-04T00:00:00Z", "title": "Meet the team", "description": "Baristas intro"}
	]`
	client := &fakeClient{jsonFn: func(prompt string, tier llm.ModelTier) (string, error) {
		return raw, nil
	}}

	agent := &Calendar{client: client}
	posts, err := agent.Calendar(context.Background(), "strategy doc")
	require.NoError(t, err)
	require.Len(t, posts, 3)

	assert.Equal(t, "Launch day", posts[0].Title)
	assert.Equal(t, workflow.PostTypeFeed, posts[0].PostType)
	assert.Equal(t, workflow.PostTypeStory, posts[1].PostType)
	// Missing post_type defaults to the square format.
	assert.Equal(t, workflow.PostTypePost, posts[2].PostType)
	assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), posts[0].Date)
}

func TestParseCalendarStripsCodeFences(t *testing.T) {
	raw := "```json\n[{\"date\": \"2025-06-02T00:00:00Z\", \"title\": \"T\", \"description\": \"D\", \"post_type\": \"post\"}]\n```"
	posts, err := ParseCalendar(raw)
	require.NoError(t, err)
	assert.Len(t, posts, 1)
}

func TestParseCalendarRejectsInvalidShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not an array", `{"date": "2025-06-02T00:00:00Z"}`},
		{"empty array", `[]`},
		{"missing title", `[{"date": "2025-06-02T00:00:00Z", "description": "D"}]`},
		{"empty description", `[{"date": "2025-06-02T00:00:00Z", "title": "T", "description": ""}]`},
		{"unknown post type", `[{"date": "2025-06-02T00:00:00Z", "title": "T", "description": "D", "post_type": "reel"}]`},
		{"not json", `this is not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCalendar(tt.raw)
			assert.Error(t, err)
		})
	}
}

func TestGenerateImageUsesPostResolution(t *testing.T) {
	client := &fakeClient{textFn: func(prompt string, tier llm.ModelTier) (string, error) {
		assert.Contains(t, prompt, "Launch day")
		return "A warm, sunlit coffee bar with steam rising", nil
	}}
	renderer := &fakeRenderer{}

	agent := &Image{client: client, renderer: renderer}
	asset, err := agent.GenerateImage(context.Background(), workflow.CalendarPost{
		Date:        time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		Title:       "Launch day",
		Description: "Announce the opening",
		PostType:    workflow.PostTypeStory,
	})
	require.NoError(t, err)

	assert.Equal(t, []byte("png-bytes"), asset.Data)
	assert.Equal(t, "image/png", asset.MIMEType)
	assert.Equal(t, "2025-06-02-launch-day.png", asset.Filename)

	require.Len(t, renderer.cards, 1)
	assert.Equal(t, 1080, renderer.cards[0].Width)
	assert.Equal(t, 1920, renderer.cards[0].Height)
	assert.Equal(t, "A warm, sunlit coffee bar with steam rising", renderer.cards[0].Prompt)
}

func TestGenerateImageRenderFailure(t *testing.T) {
	client := &fakeClient{textFn: func(prompt string, tier llm.ModelTier) (string, error) {
		return "visual prompt", nil
	}}
	renderer := &fakeRenderer{err: fmt.Errorf("chrome exited")}

	agent := &Image{client: client, renderer: renderer}
	_, err := agent.GenerateImage(context.Background(), workflow.CalendarPost{Title: "T"})
	assert.ErrorContains(t, err, "failed to render post card")
}

func TestLandingPageStripsFencesAndValidates(t *testing.T) {
	client := &fakeClient{textFn: func(prompt string, tier llm.ModelTier) (string, error) {
		assert.Contains(t, prompt, "https://cdn.example.com/a.png")
		return "```html\n<!DOCTYPE html><html><head><title>Aroma</title></head><body><h1>Aroma</h1></body></html>\n```", nil
	}}

	agent := &Page{client: client}
	html, err := agent.LandingPage(context.Background(), workflow.PageInput{
		Briefing:  "briefing",
		Strategy:  "strategy",
		ImageURLs: []string{"https://cdn.example.com/a.png"},
	})
	require.NoError(t, err)
	assert.Contains(t, html, "<!DOCTYPE html>")
	assert.NotContains(t, html, "```")
}

func TestLandingPageRejectsEmptyBody(t *testing.T) {
	client := &fakeClient{textFn: func(prompt string, tier llm.ModelTier) (string, error) {
		return "<html><body>   </body></html>", nil
	}}

	agent := &Page{client: client}
	_, err := agent.LandingPage(context.Background(), workflow.PageInput{})
	assert.ErrorContains(t, err, "no body content")
}

func TestPageTitle(t *testing.T) {
	assert.Equal(t, "Aroma", PageTitle("<html><head><title>Aroma</title></head><body><h1>Other</h1></body></html>"))
	assert.Equal(t, "Fallback", PageTitle("<html><body><h1>Fallback</h1></body></html>"))
	assert.Equal(t, "", PageTitle("<html><body><p>none</p></body></html>"))
}

func TestNewBundlesAllAgents(t *testing.T) {
	bundle := New(&fakeClient{}, &fakeRenderer{})
	assert.NotNil(t, bundle.Briefing)
	assert.NotNil(t, bundle.Strategy)
	assert.NotNil(t, bundle.Calendar)
	assert.NotNil(t, bundle.Image)
	assert.NotNil(t, bundle.Page)
}
