// Package association owns the ClientCampaignModel aggregate: one client's
// engagement with one campaign/model product, its configuration, bot
// allocation, and its lifecycle status (delegated to internal/status).
package association

import (
	"time"

	"xdial-backend/internal/apperr"
)

// Association is the root aggregate row. Approval, operational status and
// the running flag are independent axes: approve never flips is_active, and
// status transitions never touch is_approved.
type Association struct {
	ID              int64 `json:"id" db:"id"`
	ClientID        int64 `json:"client_id" db:"client_id"`
	CampaignModelID int64 `json:"campaign_model_id" db:"campaign_model_id"`

	DialerSettingsID          *int64 `json:"dialer_settings_id,omitempty" db:"dialer_settings_id"`
	SelectedTransferSettingID *int64 `json:"selected_transfer_setting_id,omitempty" db:"selected_transfer_setting_id"`

	StartDate time.Time  `json:"start_date" db:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty" db:"end_date"`

	IsActive   bool `json:"is_active" db:"is_active"`
	IsEnabled  bool `json:"is_enabled" db:"is_enabled"`
	IsApproved bool `json:"is_approved" db:"is_approved"`

	BotCount              int    `json:"bot_count" db:"bot_count"`
	LongCallScriptsActive bool   `json:"long_call_scripts_active" db:"long_call_scripts_active"`
	DispositionSet        string `json:"disposition_set,omitempty" db:"disposition_set"`

	IsCustom            bool   `json:"is_custom" db:"is_custom"`
	CustomComments      string `json:"custom_comments,omitempty" db:"custom_comments"`
	CurrentRemoteAgents int    `json:"current_remote_agents" db:"current_remote_agents"`
}

// Validate checks the write invariants. Called on create and on the merged
// state of every patch.
func (a Association) Validate() error {
	if a.ClientID == 0 {
		return apperr.Validation("client_id", "required")
	}
	if a.CampaignModelID == 0 {
		return apperr.Validation("campaign_model_id", "required")
	}
	if a.StartDate.IsZero() {
		return apperr.Validation("start_date", "required")
	}
	if a.EndDate != nil && a.EndDate.Before(a.StartDate) {
		return apperr.Validation("end_date", "must not precede start_date")
	}
	if a.IsActive && a.EndDate != nil {
		return apperr.Validation("is_active", "cannot be active once end_date is set")
	}
	if a.BotCount < 0 {
		return apperr.Validation("bot_count", "must not be negative")
	}
	if a.CurrentRemoteAgents < 0 {
		return apperr.Validation("current_remote_agents", "must not be negative")
	}
	return nil
}

// ServerCampaignBots allocates bot capacity to a (server, extension) pair
// under one association.
type ServerCampaignBots struct {
	ID            int64 `json:"id" db:"id"`
	AssociationID int64 `json:"association_id" db:"client_campaign_model_id"`
	ServerID      int64 `json:"server_id" db:"server_id"`
	ExtensionID   int64 `json:"extension_id" db:"extension_id"`
	BotCount      int   `json:"bot_count" db:"bot_count"`
}

// ConfigPatch carries partial updates. Nil fields are left unchanged;
// ClearEndDate removes an existing end date. A non-nil Status requests a
// lifecycle transition committed in the same transaction as the field
// update.
type ConfigPatch struct {
	DialerSettingsID          *int64     `json:"dialer_settings_id,omitempty"`
	SelectedTransferSettingID *int64     `json:"selected_transfer_setting_id,omitempty"`
	StartDate                 *time.Time `json:"start_date,omitempty"`
	EndDate                   *time.Time `json:"end_date,omitempty"`
	ClearEndDate              bool       `json:"clear_end_date,omitempty"`
	IsActive                  *bool      `json:"is_active,omitempty"`
	IsEnabled                 *bool      `json:"is_enabled,omitempty"`
	BotCount                  *int       `json:"bot_count,omitempty"`
	LongCallScriptsActive     *bool      `json:"long_call_scripts_active,omitempty"`
	DispositionSet            *string    `json:"disposition_set,omitempty"`
	IsCustom                  *bool      `json:"is_custom,omitempty"`
	CustomComments            *string    `json:"custom_comments,omitempty"`
	CurrentRemoteAgents       *int       `json:"current_remote_agents,omitempty"`
	Status                    *string    `json:"status,omitempty"`
}

// Apply merges the patch over a and returns the result; a is not modified.
func (p ConfigPatch) Apply(a Association) Association {
	out := a
	if p.DialerSettingsID != nil {
		out.DialerSettingsID = p.DialerSettingsID
	}
	if p.SelectedTransferSettingID != nil {
		out.SelectedTransferSettingID = p.SelectedTransferSettingID
	}
	if p.StartDate != nil {
		out.StartDate = *p.StartDate
	}
	if p.ClearEndDate {
		out.EndDate = nil
	} else if p.EndDate != nil {
		out.EndDate = p.EndDate
	}
	if p.IsActive != nil {
		out.IsActive = *p.IsActive
	}
	if p.IsEnabled != nil {
		out.IsEnabled = *p.IsEnabled
	}
	if p.BotCount != nil {
		out.BotCount = *p.BotCount
	}
	if p.LongCallScriptsActive != nil {
		out.LongCallScriptsActive = *p.LongCallScriptsActive
	}
	if p.DispositionSet != nil {
		out.DispositionSet = *p.DispositionSet
	}
	if p.IsCustom != nil {
		out.IsCustom = *p.IsCustom
	}
	if p.CustomComments != nil {
		out.CustomComments = *p.CustomComments
	}
	if p.CurrentRemoteAgents != nil {
		out.CurrentRemoteAgents = *p.CurrentRemoteAgents
	}
	return out
}
