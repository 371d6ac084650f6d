package dialer

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
	GetSettings(ctx context.Context, id int64) (Settings, error)
	GetServer(ctx context.Context, id int64) (Server, error)
	GetExtension(ctx context.Context, id int64) (Extension, error)
}

type PgRepo struct {
	db utils.DB
}

func NewPgRepo(db utils.DB) *PgRepo { return &PgRepo{db: db} }

// GetSettings loads the settings row plus its primary and optional closer
// dialers in one round trip.
func (r *PgRepo) GetSettings(ctx context.Context, id int64) (Settings, error) {
	const q = `
SELECT ds.id, ds.has_separate_closer,
       pd.id, pd.ip_validation_link, pd.admin_link, pd.admin_username, pd.admin_password,
       pd.fronting_campaign, pd.verifier_campaign, pd.port,
       cd.id, cd.ip_validation_link, cd.admin_link, cd.admin_username, cd.admin_password,
       cd.closer_campaign, cd.ingroup, cd.port
FROM dialer_settings ds
JOIN primary_dialer pd ON pd.id = ds.primary_dialer_id
LEFT JOIN closer_dialer cd ON cd.id = ds.closer_dialer_id
WHERE ds.id = $1
`
	var (
		s         Settings
		closerID  *int64
		closerIVL, closerAL, closerUser, closerPass, closerCampaign, closerIngroup *string
		closerPort *int
	)
	err := r.db.QueryRow(ctx, q, id).Scan(
		&s.ID, &s.HasSeparateCloser,
		&s.Primary.ID, &s.Primary.IPValidationLink, &s.Primary.AdminLink,
		&s.Primary.AdminUsername, &s.Primary.AdminPassword,
		&s.Primary.FrontingCampaign, &s.Primary.VerifierCampaign, &s.Primary.Port,
		&closerID, &closerIVL, &closerAL, &closerUser, &closerPass,
		&closerCampaign, &closerIngroup, &closerPort,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Settings{}, fmt.Errorf("dialer settings %d: %w", id, apperr.ErrNotFound)
		}
		return Settings{}, err
	}
	if closerID != nil {
		s.Closer = &CloserDialer{
			ID:               *closerID,
			IPValidationLink: deref(closerIVL),
			AdminLink:        deref(closerAL),
			AdminUsername:    deref(closerUser),
			AdminPassword:    deref(closerPass),
			CloserCampaign:   deref(closerCampaign),
			Ingroup:          deref(closerIngroup),
			Port:             derefInt(closerPort),
		}
	}
	return s, nil
}

func (r *PgRepo) GetServer(ctx context.Context, id int64) (Server, error) {
	const q = `SELECT id, ip, alias, domain FROM servers WHERE id = $1`
	var s Server
	if err := r.db.QueryRow(ctx, q, id).Scan(&s.ID, &s.IP, &s.Alias, &s.Domain); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Server{}, fmt.Errorf("server %d: %w", id, apperr.ErrNotFound)
		}
		return Server{}, err
	}
	return s, nil
}

func (r *PgRepo) GetExtension(ctx context.Context, id int64) (Extension, error) {
	const q = `SELECT id, extension_number FROM extensions WHERE id = $1`
	var e Extension
	if err := r.db.QueryRow(ctx, q, id).Scan(&e.ID, &e.ExtensionNumber); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Extension{}, fmt.Errorf("extension %d: %w", id, apperr.ErrNotFound)
		}
		return Extension{}, err
	}
	return e, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(n *int) int {
	if n == nil {
		return 0
	}
	return *n
}

// MemoryRepo is an in-memory dialer repository for tests.
type MemoryRepo struct {
	mu         sync.Mutex
	Settings   map[int64]Settings
	Servers    map[int64]Server
	Extensions map[int64]Extension
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		Settings:   map[int64]Settings{},
		Servers:    map[int64]Server{},
		Extensions: map[int64]Extension{},
	}
}

func (r *MemoryRepo) GetSettings(ctx context.Context, id int64) (Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.Settings[id]; ok {
		return s, nil
	}
	return Settings{}, fmt.Errorf("dialer settings %d: %w", id, apperr.ErrNotFound)
}

func (r *MemoryRepo) GetServer(ctx context.Context, id int64) (Server, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.Servers[id]; ok {
		return s, nil
	}
	return Server{}, fmt.Errorf("server %d: %w", id, apperr.ErrNotFound)
}

func (r *MemoryRepo) GetExtension(ctx context.Context, id int64) (Extension, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.Extensions[id]; ok {
		return e, nil
	}
	return Extension{}, fmt.Errorf("extension %d: %w", id, apperr.ErrNotFound)
}
