package status

import (
	"context"
	"errors"
	"testing"
	"time"

	"xdial-backend/internal/apperr"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func newTestEngine(t *testing.T, at time.Time) (*Engine, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)

	e := NewEngine(mock)
	e.clock = func() time.Time { return at }
	return e, mock
}

func TestSetStatus_ClosesOpenRowAndOpensNext(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e, mock := newTestEngine(t, now)

	prevStart := now.Add(-48 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM client_campaign_model WHERE id = \$1 FOR UPDATE`).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery(`SELECT id FROM statuses WHERE name = \$1`).
		WithArgs("Enabled").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectQuery(`SELECT id, status_id, start_date`).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "status_id", "start_date"}).
			AddRow(int64(11), int64(2), prevStart))
	mock.ExpectExec(`UPDATE status_history SET end_date = \$1 WHERE id = \$2`).
		WithArgs(now, int64(11)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery(`INSERT INTO status_history`).
		WithArgs(int64(7), int64(3), now).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(12)))
	mock.ExpectCommit()

	h, err := e.SetStatus(context.Background(), 7, "Enabled")
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if h.ID != 12 || h.StatusID != 3 || h.StatusName != "Enabled" {
		t.Fatalf("unexpected history row: %+v", h)
	}
	// The closed row ends exactly where the new one starts.
	if !h.StartDate.Equal(now) {
		t.Fatalf("start date = %v, want %v", h.StartDate, now)
	}
	if h.EndDate != nil {
		t.Fatalf("new row must be open, got end_date %v", h.EndDate)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSetStatus_FirstStatusSkipsClose(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e, mock := newTestEngine(t, now)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM client_campaign_model`).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery(`SELECT id FROM statuses`).
		WithArgs("Not Approved").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery(`SELECT id, status_id, start_date`).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "status_id", "start_date"}))
	mock.ExpectQuery(`INSERT INTO status_history`).
		WithArgs(int64(7), int64(1), now).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectCommit()

	h, err := e.SetStatus(context.Background(), 7, "Not Approved")
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if h.StatusID != 1 {
		t.Fatalf("status id = %d, want 1", h.StatusID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSetStatus_SameStatusIsNoOp(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e, mock := newTestEngine(t, now)

	openStart := now.Add(-time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM client_campaign_model`).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery(`SELECT id FROM statuses`).
		WithArgs("Enabled").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectQuery(`SELECT id, status_id, start_date`).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "status_id", "start_date"}).
			AddRow(int64(11), int64(3), openStart))
	// No UPDATE, no INSERT.
	mock.ExpectCommit()

	h, err := e.SetStatus(context.Background(), 7, "Enabled")
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if h.ID != 11 {
		t.Fatalf("expected existing open row 11, got %d", h.ID)
	}
	if !h.StartDate.Equal(openStart) {
		t.Fatalf("start date must be preserved, got %v", h.StartDate)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSetStatus_MultipleOpenRowsIsInvariantViolation(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e, mock := newTestEngine(t, now)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM client_campaign_model`).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery(`SELECT id FROM statuses`).
		WithArgs("Enabled").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectQuery(`SELECT id, status_id, start_date`).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "status_id", "start_date"}).
			AddRow(int64(11), int64(2), now.Add(-2*time.Hour)).
			AddRow(int64(12), int64(3), now.Add(-time.Hour)))
	mock.ExpectRollback()

	_, err := e.SetStatus(context.Background(), 7, "Enabled")
	if !apperr.IsInvariant(err) {
		t.Fatalf("expected invariant violation, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSetStatus_UnknownAssociation(t *testing.T) {
	e, mock := newTestEngine(t, time.Now())

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM client_campaign_model`).
		WithArgs(int64(99)).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err := e.SetStatus(context.Background(), 99, "Enabled")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSetStatus_UnknownStatusName(t *testing.T) {
	e, mock := newTestEngine(t, time.Now())

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM client_campaign_model`).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery(`SELECT id FROM statuses`).
		WithArgs("Bogus").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err := e.SetStatus(context.Background(), 7, "Bogus")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCurrentStatus_NoneSet(t *testing.T) {
	e, mock := newTestEngine(t, time.Now())

	mock.ExpectQuery(`SELECT h.id, h.status_id, s.name, h.start_date`).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "status_id", "name", "start_date"}))

	h, err := e.CurrentStatus(context.Background(), 7)
	if err != nil {
		t.Fatalf("CurrentStatus: %v", err)
	}
	if h != nil {
		t.Fatalf("expected nil for association with no history, got %+v", h)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestListHistory_NewestFirst(t *testing.T) {
	e, mock := newTestEngine(t, time.Now())

	t1 := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT h.id, h.status_id, s.name, h.start_date, h.end_date`).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "status_id", "name", "start_date", "end_date"}).
			AddRow(int64(12), int64(3), "Enabled", t2, nil).
			AddRow(int64(11), int64(2), "Pending Approval", t1, &t2))

	hs, err := e.ListHistory(context.Background(), 7)
	if err != nil {
		t.Fatalf("ListHistory: %v", err)
	}
	if len(hs) != 2 {
		t.Fatalf("got %d rows, want 2", len(hs))
	}
	if hs[0].EndDate != nil {
		t.Fatalf("newest row must be open")
	}
	// Contiguity: the closed row ends where the open one starts.
	if !hs[1].EndDate.Equal(hs[0].StartDate) {
		t.Fatalf("history gap: %v != %v", hs[1].EndDate, hs[0].StartDate)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
