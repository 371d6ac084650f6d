package association

import (
	"context"
	"fmt"
	"time"

	"xdial-backend/internal/apperr"
	"xdial-backend/internal/auth"
	"xdial-backend/internal/clients"
	"xdial-backend/internal/rbac"
	"xdial-backend/internal/scope"
	"xdial-backend/internal/status"
)

// Service enforces capability and validation rules in front of the
// repository. All reads and writes pass through the caller's scope.
type Service struct {
	repo    Repository
	clients clients.Repository
	clock   func() time.Time
}

func NewService(repo Repository, clientRepo clients.Repository) *Service {
	return &Service{repo: repo, clients: clientRepo, clock: time.Now}
}

// CreateInput is the full configuration for a new engagement.
type CreateInput struct {
	ClientID                  int64      `json:"client_id"`
	CampaignModelID           int64      `json:"campaign_model_id"`
	DialerSettingsID          *int64     `json:"dialer_settings_id,omitempty"`
	SelectedTransferSettingID *int64     `json:"selected_transfer_setting_id,omitempty"`
	StartDate                 time.Time  `json:"start_date"`
	EndDate                   *time.Time `json:"end_date,omitempty"`
	IsActive                  bool       `json:"is_active"`
	BotCount                  int        `json:"bot_count"`
	LongCallScriptsActive     bool       `json:"long_call_scripts_active"`
	DispositionSet            string     `json:"disposition_set,omitempty"`
	IsCustom                  bool       `json:"is_custom,omitempty"`
	CustomComments            string     `json:"custom_comments,omitempty"`

	// InitialStatus defaults to "Not Approved" when empty.
	InitialStatus string `json:"initial_status,omitempty"`
}

func (s *Service) Get(ctx context.Context, ident auth.Identity, id int64) (Association, error) {
	return s.repo.Get(ctx, scope.ForIdentity(ident), id)
}

func (s *Service) List(ctx context.Context, ident auth.Identity) ([]Association, error) {
	return s.repo.List(ctx, scope.ForIdentity(ident))
}

func (s *Service) Bots(ctx context.Context, ident auth.Identity, id int64) ([]ServerCampaignBots, error) {
	return s.repo.ListBots(ctx, scope.ForIdentity(ident), id)
}

// Create persists a new association and opens its first status row in the
// same transaction. Staff need CanEditConfig; client-role callers may only
// self-serve an engagement for their own profile.
func (s *Service) Create(ctx context.Context, ident auth.Identity, in CreateInput) (Association, status.History, error) {
	caps := rbac.ForRole(ident.Role, ident.Superuser)
	if !caps.CanEditConfig {
		if !caps.CanSelfServeOwnData || ident.ClientID == 0 || ident.ClientID != in.ClientID {
			return Association{}, status.History{}, fmt.Errorf("create association: %w", apperr.ErrPermissionDenied)
		}
	}

	client, err := s.clients.Get(ctx, in.ClientID)
	if err != nil {
		return Association{}, status.History{}, err
	}
	if client.IsArchived {
		return Association{}, status.History{}, apperr.Validation("client_id", "client is archived")
	}

	a := Association{
		ClientID:                  in.ClientID,
		CampaignModelID:           in.CampaignModelID,
		DialerSettingsID:          in.DialerSettingsID,
		SelectedTransferSettingID: in.SelectedTransferSettingID,
		StartDate:                 in.StartDate,
		EndDate:                   in.EndDate,
		IsActive:                  in.IsActive,
		BotCount:                  in.BotCount,
		LongCallScriptsActive:     in.LongCallScriptsActive,
		DispositionSet:            in.DispositionSet,
		IsCustom:                  in.IsCustom,
		CustomComments:            in.CustomComments,
	}
	if err := a.Validate(); err != nil {
		return Association{}, status.History{}, err
	}

	initial := in.InitialStatus
	if initial == "" {
		initial = defaultInitialStatus
	}
	return s.repo.Create(ctx, a, initial, s.clock().UTC())
}

const defaultInitialStatus = "Not Approved"

// UpdateConfig merges the patch, re-validates the result, and persists it.
// A status change in the patch commits atomically with the field update.
func (s *Service) UpdateConfig(ctx context.Context, ident auth.Identity, id int64, patch ConfigPatch) (Association, *status.History, error) {
	caps := rbac.ForRole(ident.Role, ident.Superuser)
	if !caps.CanEditConfig {
		return Association{}, nil, fmt.Errorf("update association %d: %w", id, apperr.ErrPermissionDenied)
	}

	existing, err := s.repo.Get(ctx, scope.ForIdentity(ident), id)
	if err != nil {
		return Association{}, nil, err
	}

	merged := patch.Apply(existing)
	if err := merged.Validate(); err != nil {
		return Association{}, nil, err
	}

	statusName := ""
	if patch.Status != nil {
		statusName = *patch.Status
	}
	return s.repo.Update(ctx, merged, statusName, s.clock().UTC())
}

// Approve flips is_approved and nothing else. Approval, operational status
// and is_active are independent axes.
func (s *Service) Approve(ctx context.Context, ident auth.Identity, id int64) (Association, error) {
	caps := rbac.ForRole(ident.Role, ident.Superuser)
	if !caps.CanApprove {
		return Association{}, fmt.Errorf("approve association %d: %w", id, apperr.ErrPermissionDenied)
	}

	if _, err := s.repo.Get(ctx, scope.ForIdentity(ident), id); err != nil {
		return Association{}, err
	}
	if err := s.repo.SetApproved(ctx, id, true); err != nil {
		return Association{}, err
	}
	return s.repo.Get(ctx, scope.ForIdentity(ident), id)
}
