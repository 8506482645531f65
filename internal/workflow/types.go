// Package workflow implements the durable marketing-generation state machine.
// One Record per conversation thread is driven stage by stage (briefing,
// strategy, calendar, images, landing page, publish); every transition is
// persisted, so any process can resume a thread from its last recorded status.
package workflow

import "time"

// Status marks how far a thread's pipeline has advanced. Statuses advance
// monotonically in the order declared below; StatusFailed is a terminal sink
// reachable only through an explicit operator action.
type Status string

// Workflow statuses in pipeline order.
const (
	StatusStarted          Status = "started"
	StatusBriefingComplete Status = "briefing_complete"
	StatusStrategyComplete Status = "strategy_complete"
	StatusCalendarComplete Status = "calendar_complete"
	StatusImagesComplete   Status = "images_complete"
	StatusHTMLComplete     Status = "html_complete"
	StatusPublished        Status = "published"
	StatusFailed           Status = "failed"
)

// PostType classifies a calendar post by placement. The set is closed; each
// type maps to a fixed render resolution.
type PostType string

// Supported post types.
const (
	PostTypeFeed  PostType = "feed"
	PostTypeStory PostType = "story"
	PostTypePost  PostType = "post"
)

// Resolution is a pixel size for a rendered post asset.
type Resolution struct {
	Width  int
	Height int
}

// Resolution returns the fixed pixel dimensions for the post type. Unknown
// types fall back to the square post format.
func (t PostType) Resolution() Resolution {
	switch t {
	case PostTypeFeed:
		return Resolution{Width: 1080, Height: 1350}
	case PostTypeStory:
		return Resolution{Width: 1080, Height: 1920}
	default:
		return Resolution{Width: 1080, Height: 1080}
	}
}

// Valid reports whether t is one of the declared post types.
func (t PostType) Valid() bool {
	switch t {
	case PostTypeFeed, PostTypeStory, PostTypePost:
		return true
	}
	return false
}

// CalendarPost is one planned content unit produced by the calendar stage.
// The image stage fills ImageURL on success or ImageError on failure; a post
// never carries both.
type CalendarPost struct {
	Date        time.Time `json:"date"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	PostType    PostType  `json:"post_type"`
	ImageURL    string    `json:"image_url,omitempty"`
	ImageError  string    `json:"image_error,omitempty"`
}

// Record is the durable per-thread workflow state. ThreadID and Transcript
// are fixed at creation; every other field is written by exactly one stage
// handler and never cleared. Version backs the optimistic concurrency check
// in Store.UpdateWorkflow.
type Record struct {
	ThreadID       string         `json:"thread_id"`
	Status         Status         `json:"status"`
	Transcript     string         `json:"conversation_transcript"`
	BriefingMD     string         `json:"briefing_md,omitempty"`
	StrategyPlanMD string         `json:"strategy_and_plan_md,omitempty"`
	CalendarEvents []CalendarPost `json:"calendar_events,omitempty"`
	ImageURLs      []string       `json:"image_urls,omitempty"`
	HTMLContent    string         `json:"html_content,omitempty"`
	PageURL        string         `json:"page_url,omitempty"`
	LastError      string         `json:"last_error,omitempty"`
	Version        int64          `json:"version"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Terminal reports whether the record has reached a status with no further
// transitions.
func (r *Record) Terminal() bool {
	return r.Status == StatusPublished || r.Status == StatusFailed
}
