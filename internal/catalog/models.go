package catalog

import "time"

// Reference data for the campaign catalog. Rows here are created rarely by
// admin/onboarding actions and are never hard-deleted while referenced.

// Model is an AI model offered to clients.
type Model struct {
	ID          int64  `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description,omitempty" db:"description"`

	// TransferSettingsID is optional; nil means the model has no named
	// transfer configuration.
	TransferSettingsID *int64 `json:"transfer_settings_id,omitempty" db:"transfer_settings_id"`
}

type Campaign struct {
	ID          int64  `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description,omitempty" db:"description"`
}

// CampaignModel is a unique (campaign, model) pairing: the catalog product
// a client signs up for.
type CampaignModel struct {
	ID         int64 `json:"id" db:"id"`
	CampaignID int64 `json:"campaign_id" db:"campaign_id"`
	ModelID    int64 `json:"model_id" db:"model_id"`
}

// TransferSettings is a named configuration bundle. Quality/volume scores
// and the recommended flag are used purely for presentation ordering.
type TransferSettings struct {
	ID           int64  `json:"id" db:"id"`
	Name         string `json:"name" db:"name"`
	QualityScore int    `json:"quality_score" db:"quality_score"`
	VolumeScore  int    `json:"volume_score" db:"volume_score"`
	Recommended  bool   `json:"recommended" db:"recommended"`
}

// Status is a named lifecycle state for a campaign association.
type Status struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Canonical status names. Seeded by cmd/seed; name is unique.
const (
	StatusNotApproved     = "Not Approved"
	StatusPendingApproval = "Pending Approval"
	StatusEnabled         = "Enabled"
	StatusDisabled        = "Disabled"
	StatusArchived        = "Archived"
	StatusTesting         = "Testing"
)

// DefaultStatuses lists every seeded lifecycle state in display order.
func DefaultStatuses() []string {
	return []string{
		StatusNotApproved,
		StatusPendingApproval,
		StatusEnabled,
		StatusDisabled,
		StatusArchived,
		StatusTesting,
	}
}

// ResponseCategory is a raw call-classification label with a display color.
// Many raw labels normalize to one display category; the mapping lives in
// internal/calls.
type ResponseCategory struct {
	ID    int64  `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Color string `json:"color,omitempty" db:"color"`
}
