package catalog

import (
	"context"
	"log/slog"
	"time"

	"xdial-backend/internal/apperr"
	"xdial-backend/internal/auth"
	"xdial-backend/internal/rbac"
)

// Service wraps the catalog repository with capability checks. Reads are
// open to any authenticated staff or client; destructive operations require
// CanDeleteCatalog.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

func (s *Service) ListStatuses(ctx context.Context) ([]Status, error) {
	return s.repo.ListStatuses(ctx)
}

func (s *Service) ListTransferSettings(ctx context.Context) ([]TransferSettings, error) {
	return s.repo.ListTransferSettings(ctx)
}

func (s *Service) ListCampaignModels(ctx context.Context) ([]CampaignModel, error) {
	return s.repo.ListCampaignModels(ctx)
}

func (s *Service) ListResponseCategories(ctx context.Context) ([]ResponseCategory, error) {
	return s.repo.ListResponseCategories(ctx)
}

// DeleteStatus removes an unreferenced status. Only callers with the
// CanDeleteCatalog capability may delete reference data.
func (s *Service) DeleteStatus(ctx context.Context, actor auth.Identity, id int64) error {
	if !rbac.ForRole(actor.Role, actor.Superuser).CanDeleteCatalog {
		return apperr.ErrPermissionDenied
	}
	return s.repo.DeleteStatus(ctx, id)
}

// SeedStatuses ensures every canonical lifecycle state exists. Safe to run
// repeatedly.
func (s *Service) SeedStatuses(ctx context.Context, log *slog.Logger) error {
	now := s.clock().UTC()
	for _, name := range DefaultStatuses() {
		st, created, err := s.repo.EnsureStatus(ctx, name, now)
		if err != nil {
			return err
		}
		if created {
			log.Info("created status", "name", st.Name, "id", st.ID)
		} else {
			log.Debug("status already exists", "name", st.Name)
		}
	}
	return nil
}
