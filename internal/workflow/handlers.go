package workflow

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// Stage handlers. Each reads its required upstream fields, calls one stage
// agent, writes the produced artifact and the next status, and persists via
// the store as its last action. Handlers never call each other; only the
// engine sequences them.

func (e *Engine) runBriefing(ctx context.Context, rec *Record) error {
	briefing, err := e.agents.Briefing.Briefing(ctx, rec.Transcript)
	if err != nil {
		return fmt.Errorf("briefing agent: %w", err)
	}

	rec.BriefingMD = briefing
	rec.Status = StatusBriefingComplete
	return e.store.UpdateWorkflow(ctx, rec)
}

func (e *Engine) runStrategy(ctx context.Context, rec *Record) error {
	if rec.BriefingMD == "" {
		return &PreconditionError{Stage: "strategy", Missing: "briefing_md"}
	}

	strategy, err := e.agents.Strategy.Strategy(ctx, rec.BriefingMD)
	if err != nil {
		return fmt.Errorf("strategy agent: %w", err)
	}

	rec.StrategyPlanMD = strategy
	rec.Status = StatusStrategyComplete
	return e.store.UpdateWorkflow(ctx, rec)
}

func (e *Engine) runCalendar(ctx context.Context, rec *Record) error {
	if rec.StrategyPlanMD == "" {
		return &PreconditionError{Stage: "calendar", Missing: "strategy_and_plan_md"}
	}

	posts, err := e.agents.Calendar.Calendar(ctx, rec.StrategyPlanMD)
	if err != nil {
		return fmt.Errorf("calendar agent: %w", err)
	}

	rec.CalendarEvents = posts
	rec.Status = StatusCalendarComplete
	return e.store.UpdateWorkflow(ctx, rec)
}

// runImages fans out one image unit per calendar post. Item failures are
// isolated: the post keeps its slot with ImageError set, the stage still
// completes, and only successful references join the flat ImageURLs list.
func (e *Engine) runImages(ctx context.Context, rec *Record) error {
	if len(rec.CalendarEvents) == 0 {
		return &PreconditionError{Stage: "images", Missing: "calendar_events"}
	}

	contact, err := e.store.OriginatingContact(ctx, rec.ThreadID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("resolving originating contact: %w", err)
	}

	results := e.generateImages(ctx, contact, rec.CalendarEvents)

	posts := make([]CalendarPost, len(results))
	for _, res := range results {
		posts[res.Index] = res.Post
		if res.Err != nil {
			log.Printf("[IMAGES] thread %s: %v", rec.ThreadID, res.Err)
			continue
		}
		if res.Post.ImageURL != "" {
			rec.ImageURLs = append(rec.ImageURLs, res.Post.ImageURL)
		}
	}

	rec.CalendarEvents = posts
	rec.Status = StatusImagesComplete
	return e.store.UpdateWorkflow(ctx, rec)
}

func (e *Engine) runHTML(ctx context.Context, rec *Record) error {
	if rec.BriefingMD == "" {
		return &PreconditionError{Stage: "html", Missing: "briefing_md"}
	}
	if rec.StrategyPlanMD == "" {
		return &PreconditionError{Stage: "html", Missing: "strategy_and_plan_md"}
	}

	html, err := e.agents.Page.LandingPage(ctx, PageInput{
		Briefing:  rec.BriefingMD,
		Strategy:  rec.StrategyPlanMD,
		ImageURLs: rec.ImageURLs,
	})
	if err != nil {
		return fmt.Errorf("page agent: %w", err)
	}

	rec.HTMLContent = html
	rec.Status = StatusHTMLComplete
	return e.store.UpdateWorkflow(ctx, rec)
}

func (e *Engine) runPublish(ctx context.Context, rec *Record) error {
	if rec.HTMLContent == "" {
		return &PreconditionError{Stage: "publish", Missing: "html_content"}
	}

	pageURL, err := e.publisher.Publish(ctx, rec.ThreadID, rec.HTMLContent)
	if err != nil {
		return fmt.Errorf("publisher: %w", err)
	}

	rec.PageURL = pageURL
	rec.Status = StatusPublished
	if err := e.store.UpdateWorkflow(ctx, rec); err != nil {
		return err
	}

	// Best-effort notification; the page is already live and persisted.
	contact, err := e.store.OriginatingContact(ctx, rec.ThreadID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Printf("[PUBLISH] thread %s: contact lookup failed: %v", rec.ThreadID, err)
		}
		return nil
	}
	text := fmt.Sprintf("Your landing page is live: %s", pageURL)
	if err := e.notifier.SendText(ctx, contact, text); err != nil {
		log.Printf("[PUBLISH] thread %s: notification failed: %v", rec.ThreadID, err)
	}
	return nil
}
