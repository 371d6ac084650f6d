package rbac

// Role names. Keep these stable; they are part of auth contracts and are
// stored on user rows.
const (
	RoleAdmin        = "admin"
	RoleClient       = "client"
	RoleClientMember = "client_member"
	RoleOnboarding   = "onboarding"
	RoleQA           = "qa"
)

// Capabilities are derived from the role, never stored. Superuser is an
// orthogonal override that implies everything.
type Capabilities struct {
	CanViewAll               bool
	CanEditConfig            bool
	CanApprove               bool
	CanDeleteCatalog         bool
	CanSelfServeOwnData      bool
	CanViewDialerCredentials bool
}

// ForRole computes the capability set for a role. Unknown roles get no
// capabilities at all.
func ForRole(role string, superuser bool) Capabilities {
	if superuser {
		return Capabilities{
			CanViewAll:               true,
			CanEditConfig:            true,
			CanApprove:               true,
			CanDeleteCatalog:         true,
			CanSelfServeOwnData:      true,
			CanViewDialerCredentials: true,
		}
	}
	switch role {
	case RoleAdmin:
		return Capabilities{
			CanViewAll:               true,
			CanEditConfig:            true,
			CanApprove:               true,
			CanDeleteCatalog:         true,
			CanViewDialerCredentials: true,
		}
	case RoleOnboarding:
		return Capabilities{
			CanViewAll:               true,
			CanEditConfig:            true,
			CanViewDialerCredentials: true,
		}
	case RoleQA:
		return Capabilities{CanViewAll: true}
	case RoleClient:
		return Capabilities{CanSelfServeOwnData: true}
	case RoleClientMember:
		// Read-only access to the owning client's data.
		return Capabilities{}
	default:
		return Capabilities{}
	}
}

// IsClientRole reports whether the role is tied to a client profile and
// therefore only ever sees its own rows.
func IsClientRole(role string) bool {
	return role == RoleClient || role == RoleClientMember
}

func IsValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleClient, RoleClientMember, RoleOnboarding, RoleQA:
		return true
	default:
		return false
	}
}
