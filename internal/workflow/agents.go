package workflow

import "context"

// The stage agents are external collaborators: opaque functions from a
// projection of the record to the next artifact. They are injected into the
// engine so tests can substitute fakes.

// BriefingAgent distills a conversation transcript into a marketing briefing.
type BriefingAgent interface {
	Briefing(ctx context.Context, transcript string) (string, error)
}

// StrategyAgent turns a briefing into a strategy and planning document.
type StrategyAgent interface {
	Strategy(ctx context.Context, briefing string) (string, error)
}

// CalendarAgent turns a strategy into an ordered content calendar.
type CalendarAgent interface {
	Calendar(ctx context.Context, strategy string) ([]CalendarPost, error)
}

// ImageAgent produces one image asset for a calendar post.
type ImageAgent interface {
	GenerateImage(ctx context.Context, post CalendarPost) (ImageAsset, error)
}

// PageAgent generates the landing-page HTML from the accumulated artifacts.
type PageAgent interface {
	LandingPage(ctx context.Context, input PageInput) (string, error)
}

// PageInput is the deterministic projection of the record handed to the
// page agent.
type PageInput struct {
	Briefing  string
	Strategy  string
	ImageURLs []string
}

// ImageAsset is a generated media asset ready for upload.
type ImageAsset struct {
	Data     []byte
	MIMEType string
	Filename string
}

// Agents bundles the five stage agents the engine sequences.
type Agents struct {
	Briefing BriefingAgent
	Strategy StrategyAgent
	Calendar CalendarAgent
	Image    ImageAgent
	Page     PageAgent
}

// Publisher makes the generated landing page reachable and returns its URL.
type Publisher interface {
	Publish(ctx context.Context, threadID, html string) (string, error)
}

// Notifier delivers outbound media and messages to a contact. UploadImage
// stores the asset durably and returns its reference; SendImage and SendText
// deliver to the originating contact of a thread.
type Notifier interface {
	UploadImage(ctx context.Context, asset ImageAsset) (string, error)
	SendImage(ctx context.Context, to, mediaRef, caption string) error
	SendText(ctx context.Context, to, text string) error
}

// NopNotifier is a Notifier that uploads nowhere and sends nothing. It is
// used for CLI-driven threads that have no messaging contact.
type NopNotifier struct{}

// UploadImage returns an empty reference without storing the asset.
func (NopNotifier) UploadImage(ctx context.Context, asset ImageAsset) (string, error) {
	return "", nil
}

// SendImage is a no-op.
func (NopNotifier) SendImage(ctx context.Context, to, mediaRef, caption string) error {
	return nil
}

// SendText is a no-op.
func (NopNotifier) SendText(ctx context.Context, to, text string) error {
	return nil
}
