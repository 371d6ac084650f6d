package clients

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"xdial-backend/internal/apperr"
	"xdial-backend/pkg/utils"

	"github.com/jackc/pgx/v5"
)

type Repository interface {
	Get(ctx context.Context, id int64) (Client, error)
	GetByUser(ctx context.Context, userID int64) (Client, error)
	// ListActive returns non-archived clients for new-association flows.
	ListActive(ctx context.Context) ([]Client, error)
}

type PgRepo struct {
	db utils.DB
}

func NewPgRepo(db utils.DB) *PgRepo { return &PgRepo{db: db} }

func (r *PgRepo) Get(ctx context.Context, id int64) (Client, error) {
	const q = `SELECT id, user_id, name, is_archived FROM clients WHERE id = $1`
	var c Client
	if err := r.db.QueryRow(ctx, q, id).Scan(&c.ID, &c.UserID, &c.Name, &c.IsArchived); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Client{}, fmt.Errorf("client %d: %w", id, apperr.ErrNotFound)
		}
		return Client{}, err
	}
	return c, nil
}

func (r *PgRepo) GetByUser(ctx context.Context, userID int64) (Client, error) {
	const q = `SELECT id, user_id, name, is_archived FROM clients WHERE user_id = $1`
	var c Client
	if err := r.db.QueryRow(ctx, q, userID).Scan(&c.ID, &c.UserID, &c.Name, &c.IsArchived); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Client{}, fmt.Errorf("client for user %d: %w", userID, apperr.ErrNotFound)
		}
		return Client{}, err
	}
	return c, nil
}

func (r *PgRepo) ListActive(ctx context.Context) ([]Client, error) {
	const q = `SELECT id, user_id, name, is_archived FROM clients WHERE NOT is_archived ORDER BY name`
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Client
	for rows.Next() {
		var c Client
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.IsArchived); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// MemoryRepo is an in-memory client repository for tests.
type MemoryRepo struct {
	mu      sync.Mutex
	Clients []Client
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Get(ctx context.Context, id int64) (Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.Clients {
		if c.ID == id {
			return c, nil
		}
	}
	return Client{}, fmt.Errorf("client %d: %w", id, apperr.ErrNotFound)
}

func (r *MemoryRepo) GetByUser(ctx context.Context, userID int64) (Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.Clients {
		if c.UserID == userID {
			return c, nil
		}
	}
	return Client{}, fmt.Errorf("client for user %d: %w", userID, apperr.ErrNotFound)
}

func (r *MemoryRepo) ListActive(ctx context.Context) ([]Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Client
	for _, c := range r.Clients {
		if !c.IsArchived {
			out = append(out, c)
		}
	}
	return out, nil
}
