package clients

// Client is a tenant profile. Each client owns exactly one login identity
// (UserID is unique). Archived clients are excluded from new-association
// flows but stay visible for historical reads.
type Client struct {
	ID         int64  `json:"id" db:"id"`
	UserID     int64  `json:"user_id" db:"user_id"`
	Name       string `json:"name" db:"name"`
	IsArchived bool   `json:"is_archived" db:"is_archived"`
}
