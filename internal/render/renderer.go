// Package render turns post-card templates into PNG assets using a headless
// Chrome instance. Each render uses its own browser context, so concurrent
// fan-out units stay isolated. Requires Chrome/Chromium on the host.
package render

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"net/url"
	"time"

	"github.com/chromedp/chromedp"
)

//go:embed post_card.html.tmpl
var postCardTemplate string

var cardTmpl = template.Must(template.New("post_card").Parse(postCardTemplate))

// DefaultTimeout bounds one screenshot round trip, including the Tailwind
// CDN fetch.
const DefaultTimeout = 45 * time.Second

// Card is the data rendered into a post-card asset.
type Card struct {
	Title       string
	Description string
	Prompt      string
	Date        time.Time
	Width       int
	Height      int
}

// Renderer renders cards to PNG bytes.
type Renderer struct {
	timeout time.Duration
}

// New creates a renderer. A non-positive timeout uses DefaultTimeout.
func New(timeout time.Duration) *Renderer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Renderer{timeout: timeout}
}

// CardPNG renders the card to a PNG screenshot of the #content element at
// the card's dimensions.
func (r *Renderer) CardPNG(ctx context.Context, card Card) ([]byte, error) {
	html, err := CardHTML(card)
	if err != nil {
		return nil, err
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, r.timeout)
	defer cancel()

	var png []byte
	err = chromedp.Run(browserCtx,
		chromedp.EmulateViewport(int64(card.Width), int64(card.Height)),
		chromedp.Navigate("data:text/html;charset=utf-8,"+url.PathEscape(html)),
		chromedp.WaitVisible("#content", chromedp.ByID),
		// Give the Tailwind CDN script time to apply styles.
		chromedp.Sleep(1*time.Second),
		chromedp.Screenshot("#content", &png, chromedp.ByID),
	)
	if err != nil {
		return nil, fmt.Errorf("card rendering failed: %w", err)
	}

	return png, nil
}

// CardHTML renders the card template to an HTML document. Exposed so the
// template can be exercised without a browser.
func CardHTML(card Card) (string, error) {
	if card.Width <= 0 || card.Height <= 0 {
		return "", fmt.Errorf("invalid card dimensions %dx%d", card.Width, card.Height)
	}

	var buf bytes.Buffer
	data := struct {
		Card
		DateLabel string
	}{Card: card, DateLabel: card.Date.Format("Monday, January 2")}

	if err := cardTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render card template: %w", err)
	}
	return buf.String(), nil
}
