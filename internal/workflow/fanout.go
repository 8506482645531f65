package workflow

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// ItemResult is the explicit outcome of one per-post image unit. The full
// result set is reduced back into the record, so downstream consumers can
// tell a fully successful batch from a partial one.
type ItemResult struct {
	Index int
	Post  CalendarPost
	Err   error
}

// generateImages runs one independent unit per calendar post with bounded
// concurrency. A unit generates the asset, uploads it, and notifies the
// originating contact. Unit errors never abort the batch: the errgroup
// closures always return nil, so siblings keep running and every post keeps
// its slot in the result set, order preserved.
func (e *Engine) generateImages(ctx context.Context, contact string, posts []CalendarPost) []ItemResult {
	results := make([]ItemResult, len(posts))

	var g errgroup.Group
	g.SetLimit(e.cfg.FanOutLimit)

	for i, post := range posts {
		g.Go(func() error {
			results[i] = e.generateOne(ctx, contact, i, post)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (e *Engine) generateOne(ctx context.Context, contact string, index int, post CalendarPost) ItemResult {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.ItemTimeout)
	defer cancel()

	fail := func(err error) ItemResult {
		post.ImageURL = ""
		post.ImageError = err.Error()
		return ItemResult{Index: index, Post: post, Err: &ItemError{Index: index, Title: post.Title, Err: err}}
	}

	asset, err := e.agents.Image.GenerateImage(ctx, post)
	if err != nil {
		return fail(fmt.Errorf("generate image: %w", err))
	}

	mediaRef, err := e.notifier.UploadImage(ctx, asset)
	if err != nil {
		return fail(fmt.Errorf("upload image: %w", err))
	}
	post.ImageURL = mediaRef

	if contact != "" && mediaRef != "" {
		caption := fmt.Sprintf("%s (%s)", post.Title, post.Date.Format("Mon Jan 2"))
		if err := e.notifier.SendImage(ctx, contact, mediaRef, caption); err != nil {
			return fail(fmt.Errorf("send image: %w", err))
		}
	}

	return ItemResult{Index: index, Post: post}
}
