package association

import (
	"context"
	"testing"
	"time"

	"xdial-backend/internal/catalog"
	"xdial-backend/internal/scope"

	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestPgRepoCreate_InsertsRowAndOpensStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := Association{
		ClientID:        1,
		CampaignModelID: 5,
		StartDate:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		BotCount:        3,
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO client_campaign_model`).
		WithArgs(
			a.ClientID, a.CampaignModelID, a.DialerSettingsID, a.SelectedTransferSettingID,
			a.StartDate, a.EndDate, a.IsActive, a.IsEnabled, a.IsApproved,
			a.BotCount, a.LongCallScriptsActive, a.DispositionSet,
			a.IsCustom, a.CustomComments, a.CurrentRemoteAgents,
		).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectQuery(`SELECT id FROM statuses WHERE name = \$1`).
		WithArgs(catalog.StatusNotApproved).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery(`SELECT id, status_id, start_date`).
		WithArgs(int64(42)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "status_id", "start_date"}))
	mock.ExpectQuery(`INSERT INTO status_history`).
		WithArgs(int64(42), int64(1), now).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(100)))
	mock.ExpectCommit()

	repo := NewPgRepo(mock)
	created, hist, err := repo.Create(context.Background(), a, catalog.StatusNotApproved, now)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID != 42 {
		t.Fatalf("association id = %d, want 42", created.ID)
	}
	if hist.ID != 100 || hist.EndDate != nil {
		t.Fatalf("unexpected history row: %+v", hist)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPgRepoList_EmptyScopeNeverQueries(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	repo := NewPgRepo(mock)
	sc := scope.ForClient(0) // client role with no profile

	out, err := repo.List(context.Background(), sc)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty result, got %+v", out)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no SQL should run for an empty scope: %v", err)
	}
}

func TestPgRepoList_ClientScopeAddsPredicate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	cols := []string{
		"id", "client_id", "campaign_model_id", "dialer_settings_id", "selected_transfer_setting_id",
		"start_date", "end_date", "is_active", "is_enabled", "is_approved",
		"bot_count", "long_call_scripts_active", "disposition_set",
		"is_custom", "custom_comments", "current_remote_agents",
	}
	mock.ExpectQuery(`WHERE client_id = \$1 ORDER BY id`).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows(cols).AddRow(
			int64(1), int64(7), int64(5), nil, nil,
			time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), nil, true, false, false,
			3, false, "",
			false, "", 0,
		))

	repo := NewPgRepo(mock)
	out, err := repo.List(context.Background(), scope.ForClient(7))
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(out) != 1 || out[0].ClientID != 7 {
		t.Fatalf("unexpected rows: %+v", out)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
