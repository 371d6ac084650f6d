// Package scope implements row-level visibility for every read and write
// that touches campaign associations, bot allocations, or call records.
//
// The rules are deliberately small: staff roles (admin, onboarding, qa) and
// superusers see everything; client-tied roles see only rows whose
// association belongs to their own client profile; anything else sees
// nothing. Repositories must compose the scope into their queries — it is
// the only multi-tenancy isolation guarantee in the system, so it is never
// left to individual handlers.
package scope

import (
	"fmt"

	"xdial-backend/internal/auth"
	"xdial-backend/internal/rbac"
)

// Scope is an explicit, testable predicate over association ownership.
type Scope struct {
	role      string
	clientID  int64
	superuser bool
}

// ForIdentity derives the scope for an authenticated caller.
func ForIdentity(id auth.Identity) Scope {
	return Scope{role: id.Role, clientID: id.ClientID, superuser: id.Superuser}
}

// ForClient builds a client-limited scope directly; used by self-service
// flows and tests.
func ForClient(clientID int64) Scope {
	return Scope{role: rbac.RoleClient, clientID: clientID}
}

// Unrestricted is the scope for internal jobs (seeding, ingestion hooks)
// that run without a caller.
func Unrestricted() Scope {
	return Scope{superuser: true}
}

// AllowAll reports whether the caller sees every row.
func (s Scope) AllowAll() bool {
	if s.superuser {
		return true
	}
	return rbac.ForRole(s.role, false).CanViewAll
}

// AllowsClient reports whether rows owned by clientID are visible.
func (s Scope) AllowsClient(clientID int64) bool {
	if s.AllowAll() {
		return true
	}
	if rbac.IsClientRole(s.role) && s.clientID != 0 {
		return s.clientID == clientID
	}
	return false
}

// Empty reports whether the scope can never match a row. Repositories use
// this to short-circuit to an empty result instead of issuing a query.
func (s Scope) Empty() bool {
	if s.AllowAll() {
		return false
	}
	return !rbac.IsClientRole(s.role) || s.clientID == 0
}

// ClientID returns the owning client id for client-tied scopes, 0 otherwise.
func (s Scope) ClientID() int64 {
	if rbac.IsClientRole(s.role) {
		return s.clientID
	}
	return 0
}

// SQL renders the scope as a WHERE fragment over the given client-id column
// (e.g. "ccm.client_id"). The returned args use placeholders starting at
// $argOffset+1. An always-false fragment is returned for empty scopes so a
// mistakenly issued query still leaks nothing.
func (s Scope) SQL(clientIDCol string, argOffset int) (string, []any) {
	if s.AllowAll() {
		return "TRUE", nil
	}
	if s.Empty() {
		return "FALSE", nil
	}
	return fmt.Sprintf("%s = $%d", clientIDCol, argOffset+1), []any{s.clientID}
}
