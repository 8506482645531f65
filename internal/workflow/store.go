package workflow

import "context"

// Store is the durable persistence contract the engine depends on. All
// operations are atomic at single-record granularity; no cross-record
// transactions are required.
//
// Create policy: CreateWorkflow fails with ErrAlreadyExists when a record
// for the thread exists. Callers that want create-or-get semantics handle
// the error by fetching the existing record.
type Store interface {
	// GetWorkflow loads the record for a thread, or ErrNotFound.
	GetWorkflow(ctx context.Context, threadID string) (*Record, error)

	// CreateWorkflow creates a record with StatusStarted and the transcript
	// fixed at creation time. Returns ErrAlreadyExists on a duplicate thread.
	CreateWorkflow(ctx context.Context, threadID, transcript string) (*Record, error)

	// UpdateWorkflow persists the full mutable projection of rec and
	// refreshes UpdatedAt. The write succeeds only when rec.Version matches
	// the stored version; otherwise ErrVersionConflict is returned and the
	// caller must reload. On success rec.Version reflects the new version.
	UpdateWorkflow(ctx context.Context, rec *Record) error

	// RecordError notes the cause of a failed stage on the record without
	// changing its status, so a stuck thread is visible to operators.
	RecordError(ctx context.Context, threadID, cause string) error

	// MarkFailed parks the thread in StatusFailed with the given cause.
	// This is the only path into the failed status.
	MarkFailed(ctx context.Context, threadID, cause string) error

	// OriginatingContact resolves the thread to the contact identifier that
	// opened the conversation, for routing outbound notifications. Returns
	// ErrNotFound when the thread has no recorded inbound message.
	OriginatingContact(ctx context.Context, threadID string) (string, error)

	// PageContent returns the stored landing-page HTML for a thread, or
	// ErrNotFound when the thread does not exist.
	PageContent(ctx context.Context, threadID string) (string, error)
}
