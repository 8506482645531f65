package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/veyra/automarket/internal/workflow"
)

// pgUniqueViolation is the Postgres error code for unique-constraint breaks.
const pgUniqueViolation = "23505"

const workflowColumns = `thread_id, status, conversation_transcript,
	COALESCE(briefing_md, ''), COALESCE(strategy_and_plan_md, ''),
	calendar_events, image_urls, COALESCE(html_content, ''),
	COALESCE(page_url, ''), COALESCE(last_error, ''),
	version, created_at, updated_at`

// GetWorkflow loads the record for a thread.
func (db *DB) GetWorkflow(ctx context.Context, threadID string) (*workflow.Record, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+workflowColumns+` FROM workflows WHERE thread_id = $1`,
		threadID,
	)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, workflow.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}
	return rec, nil
}

// CreateWorkflow inserts a new record with status started and the transcript
// fixed at creation time. A duplicate thread id yields ErrAlreadyExists.
func (db *DB) CreateWorkflow(ctx context.Context, threadID, transcript string) (*workflow.Record, error) {
	row := db.pool.QueryRow(ctx,
		`INSERT INTO workflows (thread_id, status, conversation_transcript)
		 VALUES ($1, $2, $3)
		 RETURNING `+workflowColumns,
		threadID, workflow.StatusStarted, transcript,
	)
	rec, err := scanRecord(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, workflow.ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}
	return rec, nil
}

// UpdateWorkflow persists the full mutable projection of rec, guarded by an
// optimistic version check. On a concurrent update the stored version no
// longer matches and ErrVersionConflict is returned.
func (db *DB) UpdateWorkflow(ctx context.Context, rec *workflow.Record) error {
	var calendarJSON []byte
	if rec.CalendarEvents != nil {
		var err error
		calendarJSON, err = json.Marshal(rec.CalendarEvents)
		if err != nil {
			return fmt.Errorf("failed to marshal calendar events: %w", err)
		}
	}

	imageURLs := rec.ImageURLs
	if imageURLs == nil {
		imageURLs = []string{}
	}

	tag, err := db.pool.Exec(ctx,
		`UPDATE workflows SET
			status = $2,
			briefing_md = NULLIF($3, ''),
			strategy_and_plan_md = NULLIF($4, ''),
			calendar_events = $5,
			image_urls = $6,
			html_content = NULLIF($7, ''),
			page_url = NULLIF($8, ''),
			version = version + 1,
			updated_at = NOW()
		 WHERE thread_id = $1 AND version = $9`,
		rec.ThreadID, rec.Status, rec.BriefingMD, rec.StrategyPlanMD,
		calendarJSON, imageURLs, rec.HTMLContent, rec.PageURL, rec.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update workflow: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := db.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM workflows WHERE thread_id = $1)`,
			rec.ThreadID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check workflow existence: %w", err)
		}
		if !exists {
			return workflow.ErrNotFound
		}
		return workflow.ErrVersionConflict
	}

	rec.Version++
	return nil
}

// RecordError notes a stage failure on the record without touching status or
// version, so in-flight readers are not invalidated.
func (db *DB) RecordError(ctx context.Context, threadID, cause string) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE workflows SET last_error = $2, updated_at = NOW() WHERE thread_id = $1`,
		threadID, cause,
	)
	if err != nil {
		return fmt.Errorf("failed to record workflow error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return workflow.ErrNotFound
	}
	return nil
}

// MarkFailed parks the thread in the failed status with the given cause.
func (db *DB) MarkFailed(ctx context.Context, threadID, cause string) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE workflows SET status = $2, last_error = $3, version = version + 1, updated_at = NOW()
		 WHERE thread_id = $1`,
		threadID, workflow.StatusFailed, cause,
	)
	if err != nil {
		return fmt.Errorf("failed to mark workflow failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return workflow.ErrNotFound
	}
	return nil
}

// OriginatingContact returns the phone number that opened the thread: the
// earliest inbound user message.
func (db *DB) OriginatingContact(ctx context.Context, threadID string) (string, error) {
	var phone string
	err := db.pool.QueryRow(ctx,
		`SELECT phone_number FROM messages
		 WHERE thread_id = $1 AND role = 'user'
		 ORDER BY created_at ASC LIMIT 1`,
		threadID,
	).Scan(&phone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", workflow.ErrNotFound
		}
		return "", fmt.Errorf("failed to resolve originating contact: %w", err)
	}
	return phone, nil
}

// PageContent returns the stored landing-page HTML for a thread.
func (db *DB) PageContent(ctx context.Context, threadID string) (string, error) {
	var html string
	err := db.pool.QueryRow(ctx,
		`SELECT COALESCE(html_content, '') FROM workflows WHERE thread_id = $1`,
		threadID,
	).Scan(&html)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", workflow.ErrNotFound
		}
		return "", fmt.Errorf("failed to get page content: %w", err)
	}
	return html, nil
}

// ListWorkflows returns up to limit records, most recently updated first.
func (db *DB) ListWorkflows(ctx context.Context, limit int) ([]workflow.Record, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.pool.Query(ctx,
		`SELECT `+workflowColumns+` FROM workflows ORDER BY updated_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}
	defer rows.Close()

	var records []workflow.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func scanRecord(row pgx.Row) (*workflow.Record, error) {
	var rec workflow.Record
	var calendarJSON []byte

	err := row.Scan(&rec.ThreadID, &rec.Status, &rec.Transcript,
		&rec.BriefingMD, &rec.StrategyPlanMD, &calendarJSON, &rec.ImageURLs,
		&rec.HTMLContent, &rec.PageURL, &rec.LastError,
		&rec.Version, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if len(calendarJSON) > 0 {
		if err := json.Unmarshal(calendarJSON, &rec.CalendarEvents); err != nil {
			return nil, fmt.Errorf("failed to unmarshal calendar events: %w", err)
		}
	}
	return &rec, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
