// Package identity is the credential collaborator: it resolves a
// username/password pair to an authenticated Identity. Token issuance
// lives in internal/auth; this package only answers "who is this".
package identity

import (
	"context"
	"errors"
	"fmt"

	"xdial-backend/internal/apperr"
	"xdial-backend/internal/auth"
	"xdial-backend/internal/rbac"
	"xdial-backend/pkg/utils"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

// User is a login row. ClientID is non-zero only for client-tied roles.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         string
	ClientID     int64
	Superuser    bool
}

type Store interface {
	FindByUsername(ctx context.Context, username string) (User, error)
	FindByID(ctx context.Context, id int64) (User, error)
}

// Service verifies credentials against the store.
type Service struct {
	store Store
}

func NewService(store Store) *Service { return &Service{store: store} }

// Authenticate returns the caller's identity, or ErrPermissionDenied for
// any credential failure. Unknown user and wrong password are
// indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, username, password string) (auth.Identity, error) {
	u, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return auth.Identity{}, fmt.Errorf("authenticate: %w", apperr.ErrPermissionDenied)
		}
		return auth.Identity{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return auth.Identity{}, fmt.Errorf("authenticate: %w", apperr.ErrPermissionDenied)
	}
	if !rbac.IsValidRole(u.Role) {
		return auth.Identity{}, fmt.Errorf("authenticate: unknown role %q: %w", u.Role, apperr.ErrPermissionDenied)
	}

	return auth.Identity{
		UserID:    u.ID,
		ClientID:  u.ClientID,
		Role:      u.Role,
		Superuser: u.Superuser,
	}, nil
}

// IdentityFor re-resolves a user's current role and profile, used on token
// refresh so revoked privileges don't outlive a login session.
func (s *Service) IdentityFor(ctx context.Context, userID int64) (auth.Identity, error) {
	u, err := s.store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return auth.Identity{}, fmt.Errorf("refresh: %w", apperr.ErrPermissionDenied)
		}
		return auth.Identity{}, err
	}
	if !rbac.IsValidRole(u.Role) {
		return auth.Identity{}, fmt.Errorf("refresh: unknown role %q: %w", u.Role, apperr.ErrPermissionDenied)
	}
	return auth.Identity{
		UserID:    u.ID,
		ClientID:  u.ClientID,
		Role:      u.Role,
		Superuser: u.Superuser,
	}, nil
}

// PgStore reads users joined to their optional client profile.
type PgStore struct {
	db utils.DB
}

func NewPgStore(db utils.DB) *PgStore { return &PgStore{db: db} }

func (s *PgStore) FindByUsername(ctx context.Context, username string) (User, error) {
	const q = `
SELECT u.id, u.username, u.password_hash, u.role, u.is_superuser, COALESCE(c.id, 0)
FROM users u
LEFT JOIN clients c ON c.user_id = u.id
WHERE u.username = $1`

	var u User
	err := s.db.QueryRow(ctx, q, username).Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.Superuser, &u.ClientID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, fmt.Errorf("user %q: %w", username, apperr.ErrNotFound)
		}
		return User{}, err
	}
	return u, nil
}

func (s *PgStore) FindByID(ctx context.Context, id int64) (User, error) {
	const q = `
SELECT u.id, u.username, u.password_hash, u.role, u.is_superuser, COALESCE(c.id, 0)
FROM users u
LEFT JOIN clients c ON c.user_id = u.id
WHERE u.id = $1`

	var u User
	err := s.db.QueryRow(ctx, q, id).Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.Superuser, &u.ClientID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, fmt.Errorf("user %d: %w", id, apperr.ErrNotFound)
		}
		return User{}, err
	}
	return u, nil
}

// MemoryStore holds users in memory for tests.
type MemoryStore struct {
	Users map[string]User
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{Users: map[string]User{}} }

// Add hashes password and stores the user under its username.
func (s *MemoryStore) Add(u User, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	s.Users[u.Username] = u
	return nil
}

func (s *MemoryStore) FindByUsername(ctx context.Context, username string) (User, error) {
	u, ok := s.Users[username]
	if !ok {
		return User{}, fmt.Errorf("user %q: %w", username, apperr.ErrNotFound)
	}
	return u, nil
}

func (s *MemoryStore) FindByID(ctx context.Context, id int64) (User, error) {
	for _, u := range s.Users {
		if u.ID == id {
			return u, nil
		}
	}
	return User{}, fmt.Errorf("user %d: %w", id, apperr.ErrNotFound)
}
