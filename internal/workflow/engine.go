package workflow

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// Default engine limits. FanOutLimit bounds concurrent per-post image units
// so a long calendar cannot stampede the image and messaging services.
const (
	DefaultFanOutLimit  = 4
	DefaultStageTimeout = 5 * time.Minute
	DefaultItemTimeout  = 2 * time.Minute
)

// Config tunes engine concurrency and timeouts. Zero values fall back to the
// defaults above.
type Config struct {
	FanOutLimit  int
	StageTimeout time.Duration
	ItemTimeout  time.Duration
}

func (c Config) withDefaults() Config {
	if c.FanOutLimit <= 0 {
		c.FanOutLimit = DefaultFanOutLimit
	}
	if c.StageTimeout <= 0 {
		c.StageTimeout = DefaultStageTimeout
	}
	if c.ItemTimeout <= 0 {
		c.ItemTimeout = DefaultItemTimeout
	}
	return c
}

// transition binds one pipeline edge to its handler. The handler is the sole
// mutator of the record and must persist via the store as its final action.
type transition struct {
	from    Status
	to      Status
	handler func(ctx context.Context, rec *Record) error
}

// Engine drives a thread's record forward by re-deriving the next eligible
// stage from the persisted status. It holds no continuation state in memory,
// which is what makes the pipeline resumable after a crash.
type Engine struct {
	store     Store
	agents    Agents
	publisher Publisher
	notifier  Notifier
	cfg       Config

	steps []transition

	mu      sync.Mutex
	threads map[string]*sync.Mutex
}

// New builds an engine over the given store and collaborators.
func New(store Store, agents Agents, publisher Publisher, notifier Notifier, cfg Config) *Engine {
	e := &Engine{
		store:     store,
		agents:    agents,
		publisher: publisher,
		notifier:  notifier,
		cfg:       cfg.withDefaults(),
		threads:   make(map[string]*sync.Mutex),
	}
	// Ordered pipeline table. StatusPublished and StatusFailed have no entry
	// and therefore idle.
	e.steps = []transition{
		{StatusStarted, StatusBriefingComplete, e.runBriefing},
		{StatusBriefingComplete, StatusStrategyComplete, e.runStrategy},
		{StatusStrategyComplete, StatusCalendarComplete, e.runCalendar},
		{StatusCalendarComplete, StatusImagesComplete, e.runImages},
		{StatusImagesComplete, StatusHTMLComplete, e.runHTML},
		{StatusHTMLComplete, StatusPublished, e.runPublish},
	}
	return e
}

// Advance drives the thread's workflow as far as its current state allows,
// one stage at a time, and returns the record as last loaded. A stage error
// aborts the invocation with the status unchanged; re-invoking retries the
// same stage. Advance is safe against concurrent invocation for the same
// thread: a per-thread mutex serializes in-process callers, and the store's
// version check rejects lost updates from other processes.
func (e *Engine) Advance(ctx context.Context, threadID string) (*Record, error) {
	return e.advance(ctx, threadID, 0)
}

// Step performs at most one stage transition for the thread and returns the
// refreshed record. Threads with no eligible transition are left untouched.
func (e *Engine) Step(ctx context.Context, threadID string) (*Record, error) {
	return e.advance(ctx, threadID, 1)
}

// advance runs up to maxSteps transitions; maxSteps <= 0 means unbounded.
func (e *Engine) advance(ctx context.Context, threadID string, maxSteps int) (*Record, error) {
	unlock := e.lockThread(threadID)
	defer unlock()

	rec, err := e.store.GetWorkflow(ctx, threadID)
	if err != nil {
		return nil, err
	}

	for taken := 0; maxSteps <= 0 || taken < maxSteps; taken++ {
		step, ok := e.next(rec.Status)
		if !ok {
			return rec, nil
		}

		prev := rec.Status
		log.Printf("[ENGINE] thread %s: %s -> %s", threadID, step.from, step.to)
		if err := e.runStage(ctx, step, rec); err != nil {
			if recordErr := e.store.RecordError(ctx, threadID, err.Error()); recordErr != nil {
				log.Printf("[ENGINE] thread %s: recording error failed: %v", threadID, recordErr)
			}
			return rec, fmt.Errorf("stage %s -> %s: %w", step.from, step.to, err)
		}

		rec, err = e.store.GetWorkflow(ctx, threadID)
		if err != nil {
			return nil, err
		}
		if rec.Status == prev {
			// A handler that returns nil must have persisted its transition.
			return rec, fmt.Errorf("stage %s -> %s: handler did not advance status", step.from, step.to)
		}
	}
	return rec, nil
}

// next finds the table entry whose from-status matches the current status.
func (e *Engine) next(status Status) (transition, bool) {
	for _, step := range e.steps {
		if step.from == status {
			return step, true
		}
	}
	return transition{}, false
}

func (e *Engine) runStage(ctx context.Context, step transition, rec *Record) error {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.StageTimeout)
	defer cancel()
	return step.handler(ctx, rec)
}

// lockThread acquires the per-thread mutex, creating it on first use.
func (e *Engine) lockThread(threadID string) func() {
	e.mu.Lock()
	m, ok := e.threads[threadID]
	if !ok {
		m = &sync.Mutex{}
		e.threads[threadID] = m
	}
	e.mu.Unlock()

	m.Lock()
	return m.Unlock
}
