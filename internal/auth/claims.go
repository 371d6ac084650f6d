package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims are the only supported JWT claims shape for this service.
// ClientID is zero for staff roles; client and client_member tokens must
// carry the owning client profile id. Superuser is an orthogonal override
// flag resolved at login time from the user row.
type Claims struct {
	jwt.RegisteredClaims

	UserID    int64     `json:"user_id"`
	ClientID  int64     `json:"client_id,omitempty"`
	Role      string    `json:"role"`
	Superuser bool      `json:"superuser,omitempty"`
	TokenType TokenType `json:"token_type"`
}
