// Package publish makes generated landing pages reachable. Local serves the
// stored HTML from this service's own /pages endpoint; V0Client pushes the
// page to v0.dev and returns its hosted demo URL.
package publish

import (
	"context"
	"fmt"
	"strings"

	"github.com/veyra/automarket/internal/workflow"
)

// Local publishes pages on this service's own HTTP surface. Publish only
// computes the public URL; the page handler serves the HTML from the store.
type Local struct {
	BaseURL string
}

var _ workflow.Publisher = (*Local)(nil)

// Publish returns the public URL for the thread's page.
func (l *Local) Publish(ctx context.Context, threadID, html string) (string, error) {
	if l.BaseURL == "" {
		return "", fmt.Errorf("public base URL is not configured")
	}
	return strings.TrimSuffix(l.BaseURL, "/") + "/pages/" + threadID, nil
}
