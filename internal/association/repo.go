package association

import (
	"context"
	"errors"
	"fmt"
	"time"

	"xdial-backend/internal/apperr"
	"xdial-backend/internal/scope"
	"xdial-backend/internal/status"
	"xdial-backend/pkg/utils"

	"github.com/jackc/pgx/v5"
)

// Repository persists associations and their bot allocations. Writes that
// involve a lifecycle transition are transactional: the field update and the
// status-history rows commit or roll back together.
type Repository interface {
	Get(ctx context.Context, sc scope.Scope, id int64) (Association, error)
	List(ctx context.Context, sc scope.Scope) ([]Association, error)
	ListBots(ctx context.Context, sc scope.Scope, associationID int64) ([]ServerCampaignBots, error)

	// Create inserts the association and opens its first status row.
	Create(ctx context.Context, a Association, statusName string, now time.Time) (Association, status.History, error)
	// Update rewrites the mutable fields; statusName, when non-empty,
	// transitions the lifecycle in the same transaction.
	Update(ctx context.Context, a Association, statusName string, now time.Time) (Association, *status.History, error)
	// SetApproved flips only is_approved.
	SetApproved(ctx context.Context, id int64, approved bool) error
}

const associationCols = `
id, client_id, campaign_model_id, dialer_settings_id, selected_transfer_setting_id,
start_date, end_date, is_active, is_enabled, is_approved,
bot_count, long_call_scripts_active, disposition_set,
is_custom, custom_comments, current_remote_agents`

type PgRepo struct {
	db utils.DB
}

func NewPgRepo(db utils.DB) *PgRepo { return &PgRepo{db: db} }

func scanAssociation(row pgx.Row) (Association, error) {
	var a Association
	err := row.Scan(
		&a.ID, &a.ClientID, &a.CampaignModelID, &a.DialerSettingsID, &a.SelectedTransferSettingID,
		&a.StartDate, &a.EndDate, &a.IsActive, &a.IsEnabled, &a.IsApproved,
		&a.BotCount, &a.LongCallScriptsActive, &a.DispositionSet,
		&a.IsCustom, &a.CustomComments, &a.CurrentRemoteAgents,
	)
	return a, err
}

func (r *PgRepo) Get(ctx context.Context, sc scope.Scope, id int64) (Association, error) {
	if sc.Empty() {
		return Association{}, fmt.Errorf("association %d: %w", id, apperr.ErrNotFound)
	}
	frag, args := sc.SQL("client_id", 1)
	q := fmt.Sprintf(`SELECT %s FROM client_campaign_model WHERE id = $1 AND %s`, associationCols, frag)

	a, err := scanAssociation(r.db.QueryRow(ctx, q, append([]any{id}, args...)...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Association{}, fmt.Errorf("association %d: %w", id, apperr.ErrNotFound)
		}
		return Association{}, err
	}
	return a, nil
}

func (r *PgRepo) List(ctx context.Context, sc scope.Scope) ([]Association, error) {
	if sc.Empty() {
		return nil, nil
	}
	frag, args := sc.SQL("client_id", 0)
	q := fmt.Sprintf(`SELECT %s FROM client_campaign_model WHERE %s ORDER BY id`, associationCols, frag)

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Association
	for rows.Next() {
		a, err := scanAssociation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PgRepo) ListBots(ctx context.Context, sc scope.Scope, associationID int64) ([]ServerCampaignBots, error) {
	if sc.Empty() {
		return nil, nil
	}
	frag, args := sc.SQL("ccm.client_id", 1)
	q := fmt.Sprintf(`
SELECT b.id, b.client_campaign_model_id, b.server_id, b.extension_id, b.bot_count
FROM server_campaign_bots b
JOIN client_campaign_model ccm ON ccm.id = b.client_campaign_model_id
WHERE b.client_campaign_model_id = $1 AND %s
ORDER BY b.id`, frag)

	rows, err := r.db.Query(ctx, q, append([]any{associationID}, args...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ServerCampaignBots
	for rows.Next() {
		var b ServerCampaignBots
		if err := rows.Scan(&b.ID, &b.AssociationID, &b.ServerID, &b.ExtensionID, &b.BotCount); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *PgRepo) Create(ctx context.Context, a Association, statusName string, now time.Time) (Association, status.History, error) {
	var hist status.History
	err := utils.WithTx(ctx, r.db, pgx.TxOptions{}, func(ctx context.Context, tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
INSERT INTO client_campaign_model (
  client_id, campaign_model_id, dialer_settings_id, selected_transfer_setting_id,
  start_date, end_date, is_active, is_enabled, is_approved,
  bot_count, long_call_scripts_active, disposition_set,
  is_custom, custom_comments, current_remote_agents
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
RETURNING id`,
			a.ClientID, a.CampaignModelID, a.DialerSettingsID, a.SelectedTransferSettingID,
			a.StartDate, a.EndDate, a.IsActive, a.IsEnabled, a.IsApproved,
			a.BotCount, a.LongCallScriptsActive, a.DispositionSet,
			a.IsCustom, a.CustomComments, a.CurrentRemoteAgents,
		).Scan(&a.ID)
		if err != nil {
			return err
		}

		statusID, err := resolveStatusTx(ctx, tx, statusName)
		if err != nil {
			return err
		}
		// The insert already holds the row; no extra lock needed for the
		// first transition.
		hist, err = status.SetStatusTx(ctx, tx, a.ID, statusID, now)
		if err != nil {
			return err
		}
		hist.StatusName = statusName
		return nil
	})
	if err != nil {
		return Association{}, status.History{}, err
	}
	return a, hist, nil
}

func (r *PgRepo) Update(ctx context.Context, a Association, statusName string, now time.Time) (Association, *status.History, error) {
	var hist *status.History
	err := utils.WithTx(ctx, r.db, pgx.TxOptions{}, func(ctx context.Context, tx pgx.Tx) error {
		if err := status.LockAssociation(ctx, tx, a.ID); err != nil {
			return err
		}

		_, err := tx.Exec(ctx, `
UPDATE client_campaign_model SET
  dialer_settings_id = $1, selected_transfer_setting_id = $2,
  start_date = $3, end_date = $4, is_active = $5, is_enabled = $6,
  bot_count = $7, long_call_scripts_active = $8, disposition_set = $9,
  is_custom = $10, custom_comments = $11, current_remote_agents = $12
WHERE id = $13`,
			a.DialerSettingsID, a.SelectedTransferSettingID,
			a.StartDate, a.EndDate, a.IsActive, a.IsEnabled,
			a.BotCount, a.LongCallScriptsActive, a.DispositionSet,
			a.IsCustom, a.CustomComments, a.CurrentRemoteAgents,
			a.ID,
		)
		if err != nil {
			return err
		}

		if statusName == "" {
			return nil
		}
		statusID, err := resolveStatusTx(ctx, tx, statusName)
		if err != nil {
			return err
		}
		h, err := status.SetStatusTx(ctx, tx, a.ID, statusID, now)
		if err != nil {
			return err
		}
		h.StatusName = statusName
		hist = &h
		return nil
	})
	if err != nil {
		return Association{}, nil, err
	}
	return a, hist, nil
}

func (r *PgRepo) SetApproved(ctx context.Context, id int64, approved bool) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE client_campaign_model SET is_approved = $1 WHERE id = $2`,
		approved, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("association %d: %w", id, apperr.ErrNotFound)
	}
	return nil
}

func resolveStatusTx(ctx context.Context, tx pgx.Tx, name string) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, `SELECT id FROM statuses WHERE name = $1`, name).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("status %q: %w", name, apperr.ErrNotFound)
		}
		return 0, err
	}
	return id, nil
}
