package entity

import "testing"

func TestCanonicalRole(t *testing.T) {
	cases := map[string]Role{
		"site_engineer":      RoleSiteEngineer,
		"SE":                 RoleSiteEngineer,
		"Site Engineer":      RoleSiteEngineer,
		"pm":                 RoleProjectManager,
		"ProjectManager":     RoleProjectManager,
		"project manager":    RoleProjectManager,
		"MEP":                RoleMEP,
		"mep_lead":           RoleMEP,
		"estimator":          RoleEstimator,
		"est":                RoleEstimator,
		"purchaser":          RoleBuyer,
		"buyer":              RoleBuyer,
		"TD":                 RoleTechnicalDirector,
		"Technical Director": RoleTechnicalDirector,
		"technicaldirector":  RoleTechnicalDirector,
		"Admin":              RoleAdmin,
		"  pm  ":             RoleProjectManager,
		"unknown_role":       RoleUnknown,
		"":                   RoleUnknown,
	}

	for raw, want := range cases {
		if got := CanonicalRole(raw); got != want {
			t.Errorf("CanonicalRole(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestActingIdentityRole(t *testing.T) {
	// 普通用户的EffectiveRole被忽略
	buyer := ActingIdentity{UserID: "u1", RealRole: RoleBuyer, EffectiveRole: RoleTechnicalDirector}
	if got := buyer.Role(); got != RoleBuyer {
		t.Errorf("non-admin effective role must be ignored, got %q", got)
	}

	// 管理员显式代角色
	admin := ActingIdentity{UserID: "u2", RealRole: RoleAdmin, EffectiveRole: RoleBuyer}
	if got := admin.Role(); got != RoleBuyer {
		t.Errorf("admin acting as buyer, got %q", got)
	}

	// 管理员未代角色时保持admin
	plain := ActingIdentity{UserID: "u3", RealRole: RoleAdmin}
	if got := plain.Role(); got != RoleAdmin {
		t.Errorf("admin without effective role, got %q", got)
	}
	if !plain.IsAdmin() {
		t.Error("IsAdmin should be true for admin real role")
	}
}

func TestIsTerminalCRStatus(t *testing.T) {
	terminal := []string{CRStatusComplete, CRStatusRejected, CRStatusSplitToPO}
	for _, s := range terminal {
		if !IsTerminalCRStatus(s) {
			t.Errorf("%s should be terminal", s)
		}
	}
	open := []string{CRStatusPending, CRStatusSendToPM, CRStatusSendToBuyer, CRStatusPendingTD}
	for _, s := range open {
		if IsTerminalCRStatus(s) {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestPOChildTerminal(t *testing.T) {
	store := POChild{RoutingType: RoutingTypeStore, Status: POChildStatusRoutedToStore}
	if !store.IsTerminal() {
		t.Error("routed_to_store is terminal for store children")
	}

	vendor := POChild{RoutingType: RoutingTypeVendor, Status: POChildStatusRoutedToStore}
	if vendor.IsTerminal() {
		t.Error("routed_to_store is not terminal for vendor children")
	}
	vendor.Status = POChildStatusCompleted
	if !vendor.IsTerminal() {
		t.Error("purchase_completed is terminal for vendor children")
	}
}

func TestRecalcTotal(t *testing.T) {
	cr := ChangeRequest{Materials: []CRMaterial{
		{TotalPrice: 100.5},
		{TotalPrice: 200},
		{TotalPrice: 0},
	}}
	cr.RecalcTotal()
	if cr.TotalCost != 300.5 {
		t.Errorf("TotalCost = %v, want 300.5", cr.TotalCost)
	}
}

func TestUnroutedMaterials(t *testing.T) {
	cr := ChangeRequest{
		Materials:       []CRMaterial{{Name: "cement"}, {Name: "sand"}, {Name: "rebar"}},
		RoutedMaterials: StringArray{"sand"},
	}
	unrouted := cr.UnroutedMaterials()
	if len(unrouted) != 2 {
		t.Fatalf("unrouted = %d, want 2", len(unrouted))
	}
	for _, m := range unrouted {
		if m.Name == "sand" {
			t.Error("routed material must be excluded")
		}
	}
}

func TestExceedsBudget(t *testing.T) {
	budget := 10.0
	m := CRMaterial{Quantity: 12, BudgetQty: &budget}
	if !m.ExceedsBudget() {
		t.Error("12 > 10 should exceed budget")
	}
	m.Quantity = 10
	if m.ExceedsBudget() {
		t.Error("10 <= 10 should not exceed budget")
	}
	m.BudgetQty = nil
	if m.ExceedsBudget() {
		t.Error("new material has no budget to exceed")
	}
}
