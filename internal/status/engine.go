// Package status implements the campaign-association lifecycle state
// machine. Every association has an append-only status history; the row
// with a null end_date is the current status.
//
// Core invariant: for a given association, at most one history row is open
// at any time. Transitions close the open row and insert the next one in a
// single transaction, serialized per association by a row lock.
package status

import (
	"context"
	"errors"
	"fmt"
	"time"

	"xdial-backend/internal/apperr"
	"xdial-backend/pkg/logger"
	"xdial-backend/pkg/utils"

	"github.com/jackc/pgx/v5"
)

// History is one status interval for a campaign association.
type History struct {
	ID            int64      `json:"id" db:"id"`
	AssociationID int64      `json:"association_id" db:"client_campaign_model_id"`
	StatusID      int64      `json:"status_id" db:"status_id"`
	StatusName    string     `json:"status_name,omitempty" db:"status_name"`
	StartDate     time.Time  `json:"start_date" db:"start_date"`
	EndDate       *time.Time `json:"end_date,omitempty" db:"end_date"`
}

// Engine mutates and projects status history. It owns no state beyond the
// database handle; the clock is injectable for deterministic tests.
type Engine struct {
	db    utils.DB
	clock func() time.Time
}

func NewEngine(db utils.DB) *Engine {
	return &Engine{db: db, clock: time.Now}
}

// SetStatus transitions an association to the named status.
//
// Effect (atomic): the association row is locked, the open history row (if
// any) is closed with end_date = now, and a new open row is inserted. If
// the open row already carries the target status the call is an idempotent
// no-op and the existing row is returned.
func (e *Engine) SetStatus(ctx context.Context, associationID int64, statusName string) (History, error) {
	now := e.clock().UTC()

	var out History
	err := utils.WithTx(ctx, e.db, pgx.TxOptions{}, func(ctx context.Context, tx pgx.Tx) error {
		if err := LockAssociation(ctx, tx, associationID); err != nil {
			return err
		}

		var statusID int64
		err := tx.QueryRow(ctx, `SELECT id FROM statuses WHERE name = $1`, statusName).Scan(&statusID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("status %q: %w", statusName, apperr.ErrNotFound)
			}
			return err
		}

		h, err := SetStatusTx(ctx, tx, associationID, statusID, now)
		if err != nil {
			return err
		}
		h.StatusName = statusName
		out = h
		return nil
	})
	return out, err
}

// LockAssociation takes the per-association row lock that serializes
// concurrent status transitions. Must run inside the caller's transaction.
func LockAssociation(ctx context.Context, tx pgx.Tx, associationID int64) error {
	var id int64
	err := tx.QueryRow(ctx,
		`SELECT id FROM client_campaign_model WHERE id = $1 FOR UPDATE`,
		associationID,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("association %d: %w", associationID, apperr.ErrNotFound)
		}
		return err
	}
	return nil
}

// SetStatusTx performs the close-then-open transition inside an existing
// transaction. Callers must already hold the association row lock
// (LockAssociation) so that two writers cannot both observe the same open
// row.
func SetStatusTx(ctx context.Context, tx pgx.Tx, associationID, statusID int64, now time.Time) (History, error) {
	rows, err := tx.Query(ctx, `
SELECT id, status_id, start_date
FROM status_history
WHERE client_campaign_model_id = $1 AND end_date IS NULL
ORDER BY id
`, associationID)
	if err != nil {
		return History{}, err
	}

	var open []History
	for rows.Next() {
		h := History{AssociationID: associationID}
		if err := rows.Scan(&h.ID, &h.StatusID, &h.StartDate); err != nil {
			rows.Close()
			return History{}, err
		}
		open = append(open, h)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return History{}, err
	}

	// Defensive check: the schema and the row lock should make this
	// impossible. Never pick a row silently; surface as internal error.
	if len(open) > 1 {
		err := apperr.Invariant("association %d has %d open status rows", associationID, len(open))
		logger.From(ctx).Error("status history corrupt", "association_id", associationID, "open_rows", len(open))
		return History{}, err
	}

	if len(open) == 1 {
		if open[0].StatusID == statusID {
			// Idempotent: same status, nothing to transition.
			return open[0], nil
		}
		if _, err := tx.Exec(ctx,
			`UPDATE status_history SET end_date = $1 WHERE id = $2`,
			now, open[0].ID,
		); err != nil {
			return History{}, err
		}
	}

	h := History{AssociationID: associationID, StatusID: statusID, StartDate: now}
	err = tx.QueryRow(ctx, `
INSERT INTO status_history (client_campaign_model_id, status_id, start_date, end_date)
VALUES ($1, $2, $3, NULL)
RETURNING id
`, associationID, statusID, now).Scan(&h.ID)
	if err != nil {
		return History{}, err
	}
	return h, nil
}

// CurrentStatus returns the status of the unique open history row, or
// (nil, nil) if the association has never had a status set.
func (e *Engine) CurrentStatus(ctx context.Context, associationID int64) (*History, error) {
	rows, err := e.db.Query(ctx, `
SELECT h.id, h.status_id, s.name, h.start_date
FROM status_history h
JOIN statuses s ON s.id = h.status_id
WHERE h.client_campaign_model_id = $1 AND h.end_date IS NULL
ORDER BY h.id
`, associationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var open []History
	for rows.Next() {
		h := History{AssociationID: associationID}
		if err := rows.Scan(&h.ID, &h.StatusID, &h.StatusName, &h.StartDate); err != nil {
			return nil, err
		}
		open = append(open, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch len(open) {
	case 0:
		return nil, nil
	case 1:
		return &open[0], nil
	default:
		err := apperr.Invariant("association %d has %d open status rows", associationID, len(open))
		logger.From(ctx).Error("status history corrupt", "association_id", associationID, "open_rows", len(open))
		return nil, err
	}
}

// ListHistory returns the full audit trail, newest first.
func (e *Engine) ListHistory(ctx context.Context, associationID int64) ([]History, error) {
	rows, err := e.db.Query(ctx, `
SELECT h.id, h.status_id, s.name, h.start_date, h.end_date
FROM status_history h
JOIN statuses s ON s.id = h.status_id
WHERE h.client_campaign_model_id = $1
ORDER BY h.start_date DESC, h.id DESC
`, associationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []History
	for rows.Next() {
		h := History{AssociationID: associationID}
		if err := rows.Scan(&h.ID, &h.StatusID, &h.StatusName, &h.StartDate, &h.EndDate); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
