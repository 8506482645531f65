package workflow

import (
	"context"
	"sync"
	"time"
)

// MemStore is an in-memory Store implementation. It mirrors the Postgres
// store's contract, including create-once semantics and the optimistic
// version check, and is used by tests and local dry runs.
type MemStore struct {
	mu       sync.Mutex
	records  map[string]*Record
	contacts map[string]string
	updates  int
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		records:  make(map[string]*Record),
		contacts: make(map[string]string),
	}
}

// SetContact registers the originating contact for a thread.
func (s *MemStore) SetContact(threadID, contact string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contacts[threadID] = contact
}

// Updates returns how many UpdateWorkflow calls have succeeded.
func (s *MemStore) Updates() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updates
}

// GetWorkflow implements Store.
func (s *MemStore) GetWorkflow(ctx context.Context, threadID string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[threadID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := cloneRecord(rec)
	return &cp, nil
}

// CreateWorkflow implements Store.
func (s *MemStore) CreateWorkflow(ctx context.Context, threadID, transcript string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[threadID]; ok {
		return nil, ErrAlreadyExists
	}

	now := time.Now()
	rec := &Record{
		ThreadID:   threadID,
		Status:     StatusStarted,
		Transcript: transcript,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.records[threadID] = rec
	cp := cloneRecord(rec)
	return &cp, nil
}

// UpdateWorkflow implements Store.
func (s *MemStore) UpdateWorkflow(ctx context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.records[rec.ThreadID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != rec.Version {
		return ErrVersionConflict
	}

	cp := cloneRecord(rec)
	cp.Version = stored.Version + 1
	cp.CreatedAt = stored.CreatedAt
	cp.UpdatedAt = time.Now()
	s.records[rec.ThreadID] = &cp

	rec.Version = cp.Version
	s.updates++
	return nil
}

// RecordError implements Store.
func (s *MemStore) RecordError(ctx context.Context, threadID, cause string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[threadID]
	if !ok {
		return ErrNotFound
	}
	rec.LastError = cause
	rec.UpdatedAt = time.Now()
	return nil
}

// MarkFailed implements Store.
func (s *MemStore) MarkFailed(ctx context.Context, threadID, cause string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[threadID]
	if !ok {
		return ErrNotFound
	}
	rec.Status = StatusFailed
	rec.LastError = cause
	rec.Version++
	rec.UpdatedAt = time.Now()
	return nil
}

// OriginatingContact implements Store.
func (s *MemStore) OriginatingContact(ctx context.Context, threadID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	contact, ok := s.contacts[threadID]
	if !ok {
		return "", ErrNotFound
	}
	return contact, nil
}

// PageContent implements Store.
func (s *MemStore) PageContent(ctx context.Context, threadID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[threadID]
	if !ok {
		return "", ErrNotFound
	}
	return rec.HTMLContent, nil
}

// ListWorkflows returns up to limit records, most recently updated first.
func (s *MemStore) ListWorkflows(ctx context.Context, limit int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, cloneRecord(rec))
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].UpdatedAt.After(out[i].UpdatedAt) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func cloneRecord(rec *Record) Record {
	cp := *rec
	if rec.CalendarEvents != nil {
		cp.CalendarEvents = append([]CalendarPost(nil), rec.CalendarEvents...)
	}
	if rec.ImageURLs != nil {
		cp.ImageURLs = append([]string(nil), rec.ImageURLs...)
	}
	return cp
}
