package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"xdial-backend/internal/apperr"
)

// MemoryRepo is an in-memory catalog repository for tests and early
// development. Referenced statuses are tracked so restrict-on-delete can be
// exercised without a database.
type MemoryRepo struct {
	mu sync.Mutex

	Statuses         []Status
	CampaignModels   []CampaignModel
	TransferSettings []TransferSettings
	Categories       []ResponseCategory

	// ReferencedStatusIDs mimics foreign keys from status_history.
	ReferencedStatusIDs map[int64]bool

	nextStatusID int64
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{ReferencedStatusIDs: map[int64]bool{}, nextStatusID: 1}
}

func (r *MemoryRepo) GetStatusByName(ctx context.Context, name string) (Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.Statuses {
		if s.Name == name {
			return s, nil
		}
	}
	return Status{}, fmt.Errorf("status %q: %w", name, apperr.ErrNotFound)
}

func (r *MemoryRepo) GetStatus(ctx context.Context, id int64) (Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.Statuses {
		if s.ID == id {
			return s, nil
		}
	}
	return Status{}, fmt.Errorf("status %d: %w", id, apperr.ErrNotFound)
}

func (r *MemoryRepo) ListStatuses(ctx context.Context) ([]Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Status, len(r.Statuses))
	copy(out, r.Statuses)
	return out, nil
}

func (r *MemoryRepo) EnsureStatus(ctx context.Context, name string, now time.Time) (Status, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.Statuses {
		if s.Name == name {
			return s, false, nil
		}
	}
	s := Status{ID: r.nextStatusID, Name: name, UpdatedAt: now}
	r.nextStatusID++
	r.Statuses = append(r.Statuses, s)
	return s, true, nil
}

func (r *MemoryRepo) DeleteStatus(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ReferencedStatusIDs[id] {
		return apperr.Validation("status", "status is referenced by history and cannot be deleted")
	}
	for i, s := range r.Statuses {
		if s.ID == id {
			r.Statuses = append(r.Statuses[:i], r.Statuses[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("status %d: %w", id, apperr.ErrNotFound)
}

func (r *MemoryRepo) GetCampaignModel(ctx context.Context, id int64) (CampaignModel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cm := range r.CampaignModels {
		if cm.ID == id {
			return cm, nil
		}
	}
	return CampaignModel{}, fmt.Errorf("campaign model %d: %w", id, apperr.ErrNotFound)
}

func (r *MemoryRepo) ListCampaignModels(ctx context.Context) ([]CampaignModel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]CampaignModel, len(r.CampaignModels))
	copy(out, r.CampaignModels)
	return out, nil
}

func (r *MemoryRepo) ListTransferSettings(ctx context.Context) ([]TransferSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]TransferSettings, len(r.TransferSettings))
	copy(out, r.TransferSettings)
	return out, nil
}

func (r *MemoryRepo) ListResponseCategories(ctx context.Context) ([]ResponseCategory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ResponseCategory, len(r.Categories))
	copy(out, r.Categories)
	return out, nil
}
