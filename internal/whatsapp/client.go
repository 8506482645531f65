// Package whatsapp implements the WhatsApp Business Cloud API surface the
// pipeline needs: media upload, outbound image and text messages, and inbound
// webhook verification and parsing.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"time"

	"github.com/veyra/automarket/internal/workflow"
)

const defaultGraphVersion = "v22.0"

// Config holds the WhatsApp Business credentials. All values come from the
// Meta app dashboard.
type Config struct {
	PhoneNumberID string
	AccessToken   string
	VerifyToken   string
	AppSecret     string
	GraphVersion  string
}

// ConfigFromEnv reads the WhatsApp configuration from the environment.
func ConfigFromEnv() Config {
	cfg := Config{
		PhoneNumberID: os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
		AccessToken:   os.Getenv("WHATSAPP_ACCESS_TOKEN"),
		VerifyToken:   os.Getenv("WHATSAPP_VERIFY_TOKEN"),
		AppSecret:     os.Getenv("WHATSAPP_APP_SECRET"),
		GraphVersion:  os.Getenv("WHATSAPP_GRAPH_VERSION"),
	}
	if cfg.GraphVersion == "" {
		cfg.GraphVersion = defaultGraphVersion
	}
	return cfg
}

// Configured reports whether outbound messaging credentials are present.
func (c Config) Configured() bool {
	return c.PhoneNumberID != "" && c.AccessToken != ""
}

// Client talks to the WhatsApp Cloud API. It implements workflow.Notifier.
type Client struct {
	config Config
	http   *http.Client

	// BaseURL is overridable for tests; defaults to the Graph API host.
	BaseURL string
}

var _ workflow.Notifier = (*Client)(nil)

// NewClient creates a WhatsApp client from the given config.
func NewClient(config Config) *Client {
	return &Client{
		config:  config,
		http:    &http.Client{Timeout: 30 * time.Second},
		BaseURL: "https://graph.facebook.com",
	}
}

func (c *Client) endpoint(path string) string {
	return fmt.Sprintf("%s/%s/%s/%s", c.BaseURL, c.config.GraphVersion, c.config.PhoneNumberID, path)
}

// UploadImage uploads the asset to the media endpoint and returns the media
// ID for later message sends.
func (c *Client) UploadImage(ctx context.Context, asset workflow.ImageAsset) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("messaging_product", "whatsapp"); err != nil {
		return "", fmt.Errorf("failed to build media upload: %w", err)
	}
	if err := writer.WriteField("type", asset.MIMEType); err != nil {
		return "", fmt.Errorf("failed to build media upload: %w", err)
	}

	part, err := writer.CreateFormFile("file", asset.Filename)
	if err != nil {
		return "", fmt.Errorf("failed to build media upload: %w", err)
	}
	if _, err := part.Write(asset.Data); err != nil {
		return "", fmt.Errorf("failed to build media upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to build media upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("media"), &buf)
	if err != nil {
		return "", fmt.Errorf("failed to create media request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.AccessToken)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	body, err := c.do(req)
	if err != nil {
		return "", err
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse media response: %w", err)
	}
	if result.ID == "" {
		return "", fmt.Errorf("media upload returned no ID")
	}
	return result.ID, nil
}

// SendImage sends an uploaded media asset to a contact with a caption.
func (c *Client) SendImage(ctx context.Context, to, mediaRef, caption string) error {
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "image",
		"image": map[string]string{
			"id":      mediaRef,
			"caption": caption,
		},
	}
	return c.sendMessage(ctx, payload)
}

// SendText sends a plain text message to a contact.
func (c *Client) SendText(ctx context.Context, to, text string) error {
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text": map[string]string{
			"body": text,
		},
	}
	return c.sendMessage(ctx, payload)
}

func (c *Client) sendMessage(ctx context.Context, payload map[string]any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("messages"), bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create message request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	_, err = c.do(req)
	return err
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whatsapp request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read whatsapp response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("whatsapp API returned %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
