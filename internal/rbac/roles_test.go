package rbac

import "testing"

func TestForRoleMatrix(t *testing.T) {
	tests := []struct {
		role string
		want Capabilities
	}{
		{RoleAdmin, Capabilities{CanViewAll: true, CanEditConfig: true, CanApprove: true, CanDeleteCatalog: true, CanViewDialerCredentials: true}},
		{RoleOnboarding, Capabilities{CanViewAll: true, CanEditConfig: true, CanViewDialerCredentials: true}},
		{RoleQA, Capabilities{CanViewAll: true}},
		{RoleClient, Capabilities{CanSelfServeOwnData: true}},
		{RoleClientMember, Capabilities{}},
		{"unknown", Capabilities{}},
	}
	for _, tc := range tests {
		if got := ForRole(tc.role, false); got != tc.want {
			t.Fatalf("ForRole(%q) = %+v, want %+v", tc.role, got, tc.want)
		}
	}
}

func TestSuperuserImpliesEverything(t *testing.T) {
	got := ForRole("whatever", true)
	want := Capabilities{
		CanViewAll:               true,
		CanEditConfig:            true,
		CanApprove:               true,
		CanDeleteCatalog:         true,
		CanSelfServeOwnData:      true,
		CanViewDialerCredentials: true,
	}
	if got != want {
		t.Fatalf("superuser capabilities = %+v", got)
	}
}
