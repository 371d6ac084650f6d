package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"xdial-backend/internal/apperr"
	"xdial-backend/pkg/utils"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Repository is the persistence contract for catalog reference data.
// Implementations must surface apperr.ErrNotFound for absent rows.
type Repository interface {
	GetStatusByName(ctx context.Context, name string) (Status, error)
	GetStatus(ctx context.Context, id int64) (Status, error)
	ListStatuses(ctx context.Context) ([]Status, error)
	EnsureStatus(ctx context.Context, name string, now time.Time) (Status, bool, error)
	DeleteStatus(ctx context.Context, id int64) error

	GetCampaignModel(ctx context.Context, id int64) (CampaignModel, error)
	ListCampaignModels(ctx context.Context) ([]CampaignModel, error)

	ListTransferSettings(ctx context.Context) ([]TransferSettings, error)

	ListResponseCategories(ctx context.Context) ([]ResponseCategory, error)
}

// PgRepo is the pgx-backed catalog repository.
//
// NOTE: assumes the following tables exist:
// - statuses (name unique)
// - campaigns, models, campaign_model (UNIQUE (campaign_id, model_id))
// - transfer_settings
// - response_categories
// Referencing tables declare ON DELETE RESTRICT, so deletes of referenced
// reference data fail at the database rather than orphaning rows.
type PgRepo struct {
	db utils.DB
}

func NewPgRepo(db utils.DB) *PgRepo { return &PgRepo{db: db} }

func (r *PgRepo) GetStatusByName(ctx context.Context, name string) (Status, error) {
	const q = `SELECT id, name, updated_at FROM statuses WHERE name = $1`
	var s Status
	if err := r.db.QueryRow(ctx, q, name).Scan(&s.ID, &s.Name, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Status{}, fmt.Errorf("status %q: %w", name, apperr.ErrNotFound)
		}
		return Status{}, err
	}
	return s, nil
}

func (r *PgRepo) GetStatus(ctx context.Context, id int64) (Status, error) {
	const q = `SELECT id, name, updated_at FROM statuses WHERE id = $1`
	var s Status
	if err := r.db.QueryRow(ctx, q, id).Scan(&s.ID, &s.Name, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Status{}, fmt.Errorf("status %d: %w", id, apperr.ErrNotFound)
		}
		return Status{}, err
	}
	return s, nil
}

func (r *PgRepo) ListStatuses(ctx context.Context) ([]Status, error) {
	const q = `SELECT id, name, updated_at FROM statuses ORDER BY id`
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Status
	for rows.Next() {
		var s Status
		if err := rows.Scan(&s.ID, &s.Name, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// EnsureStatus inserts the status if missing. The bool result reports
// whether a new row was created.
func (r *PgRepo) EnsureStatus(ctx context.Context, name string, now time.Time) (Status, bool, error) {
	const q = `
INSERT INTO statuses (name, updated_at)
VALUES ($1, $2)
ON CONFLICT (name) DO NOTHING
RETURNING id, name, updated_at
`
	var s Status
	err := r.db.QueryRow(ctx, q, name, now).Scan(&s.ID, &s.Name, &s.UpdatedAt)
	if err == nil {
		return s, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Status{}, false, err
	}
	s, err = r.GetStatusByName(ctx, name)
	return s, false, err
}

func (r *PgRepo) DeleteStatus(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM statuses WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		// 23503 = foreign_key_violation: status still referenced by history.
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return apperr.Validation("status", "status is referenced by history and cannot be deleted")
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("status %d: %w", id, apperr.ErrNotFound)
	}
	return nil
}

func (r *PgRepo) GetCampaignModel(ctx context.Context, id int64) (CampaignModel, error) {
	const q = `SELECT id, campaign_id, model_id FROM campaign_model WHERE id = $1`
	var cm CampaignModel
	if err := r.db.QueryRow(ctx, q, id).Scan(&cm.ID, &cm.CampaignID, &cm.ModelID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CampaignModel{}, fmt.Errorf("campaign model %d: %w", id, apperr.ErrNotFound)
		}
		return CampaignModel{}, err
	}
	return cm, nil
}

func (r *PgRepo) ListCampaignModels(ctx context.Context) ([]CampaignModel, error) {
	const q = `SELECT id, campaign_id, model_id FROM campaign_model ORDER BY id`
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CampaignModel
	for rows.Next() {
		var cm CampaignModel
		if err := rows.Scan(&cm.ID, &cm.CampaignID, &cm.ModelID); err != nil {
			return nil, err
		}
		out = append(out, cm)
	}
	return out, rows.Err()
}

// ListTransferSettings returns bundles in presentation order: recommended
// first, then by quality score descending.
func (r *PgRepo) ListTransferSettings(ctx context.Context) ([]TransferSettings, error) {
	const q = `
SELECT id, name, quality_score, volume_score, recommended
FROM transfer_settings
ORDER BY recommended DESC, quality_score DESC, name
`
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TransferSettings
	for rows.Next() {
		var ts TransferSettings
		if err := rows.Scan(&ts.ID, &ts.Name, &ts.QualityScore, &ts.VolumeScore, &ts.Recommended); err != nil {
			return nil, err
		}
		out = append(out, ts)
	}
	return out, rows.Err()
}

func (r *PgRepo) ListResponseCategories(ctx context.Context) ([]ResponseCategory, error) {
	const q = `SELECT id, name, color FROM response_categories ORDER BY id`
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ResponseCategory
	for rows.Next() {
		var rc ResponseCategory
		if err := rows.Scan(&rc.ID, &rc.Name, &rc.Color); err != nil {
			return nil, err
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}
