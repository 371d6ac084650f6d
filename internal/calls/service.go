package calls

import (
	"context"

	"xdial-backend/internal/auth"
	"xdial-backend/internal/catalog"
	"xdial-backend/internal/scope"
)

// Service is the reporting facade the HTTP layer talks to. It resolves the
// caller's scope once and threads it through every read.
type Service struct {
	repo    Repository
	catalog catalog.Repository
	mapping *Mapping

	// cache is optional; nil disables caching entirely.
	cache *CountsCache
}

func NewService(repo Repository, catalogRepo catalog.Repository, mapping *Mapping, cache *CountsCache) *Service {
	return &Service{repo: repo, catalog: catalogRepo, mapping: mapping, cache: cache}
}

func (s *Service) Mapping() *Mapping { return s.mapping }

// List returns the association's calls, optionally filtered to the selected
// display categories.
func (s *Service) List(ctx context.Context, ident auth.Identity, associationID int64, displayCategories []string) ([]Call, error) {
	rows, err := s.repo.ListByAssociation(ctx, scope.ForIdentity(ident), associationID)
	if err != nil {
		return nil, err
	}
	return FilterByDisplayCategories(rows, displayCategories, s.mapping), nil
}

// LatestStage returns only the authoritative current-outcome call(s) per
// phone number.
func (s *Service) LatestStage(ctx context.Context, ident auth.Identity, associationID int64) ([]Call, error) {
	rows, err := s.repo.ListByAssociation(ctx, scope.ForIdentity(ident), associationID)
	if err != nil {
		return nil, err
	}
	return LatestStagePerNumber(rows), nil
}

// Counts computes category counts for the dashboard, optionally restricted
// to each number's latest stage. Results are served from cache when fresh
// enough; a stale dashboard is acceptable, a wrong scope is not, so the
// cache is only consulted after the scoped read path is decided.
func (s *Service) Counts(ctx context.Context, ident auth.Identity, associationID int64, latestOnly bool) ([]CategoryCount, error) {
	sc := scope.ForIdentity(ident)
	if sc.Empty() {
		return nil, nil
	}

	// Cached entries are unscoped aggregates, so only see-everything
	// callers may read them. Client-tied scopes always recompute.
	if s.cache != nil && sc.AllowAll() {
		if counts, ok := s.cache.Get(ctx, associationID, latestOnly, s.mapping.Version()); ok {
			return counts, nil
		}
	}

	rows, err := s.repo.ListByAssociation(ctx, sc, associationID)
	if err != nil {
		return nil, err
	}
	if latestOnly {
		rows = LatestStagePerNumber(rows)
	}
	categories, err := s.catalog.ListResponseCategories(ctx)
	if err != nil {
		return nil, err
	}

	counts := CategoryCounts(rows, categories, s.mapping)
	if s.cache != nil && sc.AllowAll() {
		s.cache.Put(ctx, associationID, latestOnly, s.mapping.Version(), counts)
	}
	return counts, nil
}

// Stats returns the transfer summary for the client landing view.
func (s *Service) Stats(ctx context.Context, ident auth.Identity, associationID int64) (TransferStats, error) {
	return s.repo.TransferStats(ctx, scope.ForIdentity(ident), associationID)
}
