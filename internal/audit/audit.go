// Package audit records an append-only trail of sensitive actions:
// lifecycle transitions, approvals, catalog deletes, and logins. Recording
// is best-effort; a failed append is logged and never fails the action
// that triggered it.
package audit

import (
	"context"
	"sync"
	"time"

	"xdial-backend/pkg/logger"
	"xdial-backend/pkg/utils"

	"github.com/google/uuid"
)

type EventType string

const (
	EventStatusChange  EventType = "status_change"
	EventApproval      EventType = "approval"
	EventCatalogDelete EventType = "catalog_delete"
	EventLogin         EventType = "login"
)

// Event is one audit row. SubjectID identifies the affected entity within
// the event type's namespace (association id, status id, user id).
type Event struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Type      EventType `json:"type" db:"event_type"`
	ActorID   int64     `json:"actor_id" db:"actor_id"`
	SubjectID int64     `json:"subject_id" db:"subject_id"`
	Detail    string    `json:"detail,omitempty" db:"detail"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Repository interface {
	Append(ctx context.Context, e Event) error
}

type PgRepo struct {
	db utils.DB
}

func NewPgRepo(db utils.DB) *PgRepo { return &PgRepo{db: db} }

func (r *PgRepo) Append(ctx context.Context, e Event) error {
	_, err := r.db.Exec(ctx, `
INSERT INTO audit_events (id, event_type, actor_id, subject_id, detail, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.Type, e.ActorID, e.SubjectID, e.Detail, e.CreatedAt,
	)
	return err
}

// MemoryRepo collects events in memory for tests.
type MemoryRepo struct {
	mu     sync.Mutex
	Events []Event
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Append(ctx context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, e)
	return nil
}

// Recorder stamps and appends events without ever propagating failures to
// the caller.
type Recorder struct {
	repo  Repository
	clock func() time.Time
}

func NewRecorder(repo Repository) *Recorder {
	return &Recorder{repo: repo, clock: time.Now}
}

func (r *Recorder) Record(ctx context.Context, t EventType, actorID, subjectID int64, detail string) {
	if r == nil || r.repo == nil {
		return
	}
	e := Event{
		ID:        uuid.New(),
		Type:      t,
		ActorID:   actorID,
		SubjectID: subjectID,
		Detail:    detail,
		CreatedAt: r.clock().UTC(),
	}
	if err := r.repo.Append(ctx, e); err != nil {
		logger.From(ctx).Warn("audit append failed",
			"event_type", string(t), "actor_id", actorID, "subject_id", subjectID, "error", err)
	}
}
