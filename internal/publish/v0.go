package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/veyra/automarket/internal/workflow"
)

// V0Client publishes landing pages through the v0.dev Platform API. Each
// publish creates a chat seeded with the generated HTML and returns the
// hosted demo URL.
type V0Client struct {
	apiKey string
	http   *http.Client

	// BaseURL is overridable for tests; defaults to the v0 Platform API.
	BaseURL string
}

var _ workflow.Publisher = (*V0Client)(nil)

// NewV0Client creates a v0.dev publisher.
func NewV0Client(apiKey string) *V0Client {
	return &V0Client{
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 120 * time.Second},
		BaseURL: "https://api.v0.dev/v1",
	}
}

type v0ChatRequest struct {
	Message string `json:"message"`
}

type v0ChatResponse struct {
	ID     string `json:"id"`
	WebURL string `json:"webUrl"`
	Demo   string `json:"demo"`
}

// Publish creates a v0 chat from the HTML and returns the hosted URL.
func (c *V0Client) Publish(ctx context.Context, threadID, html string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("v0 API key is not configured")
	}

	message := "Host this landing page exactly as provided, without modifications:\n\n" + html
	data, err := json.Marshal(v0ChatRequest{Message: message})
	if err != nil {
		return "", fmt.Errorf("failed to encode publish request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chats", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create publish request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("publish request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read publish response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("v0 API returned %d: %s", resp.StatusCode, string(body))
	}

	var chat v0ChatResponse
	if err := json.Unmarshal(body, &chat); err != nil {
		return "", fmt.Errorf("failed to parse publish response: %w", err)
	}

	switch {
	case chat.Demo != "":
		return chat.Demo, nil
	case chat.WebURL != "":
		return chat.WebURL, nil
	default:
		return "", fmt.Errorf("v0 API returned no page URL")
	}
}
