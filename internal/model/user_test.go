package model

import "testing"

func TestRoleAtLeast(t *testing.T) {
	tests := []struct {
		role     string
		minimum  string
		expected bool
	}{
		{RoleAdmin, RoleAdmin, true},
		{RoleAdmin, RoleUser, true},
		{RoleUser, RoleAdmin, false},
		{RoleUser, RoleUser, true},
		// Unknown roles fail-closed.
		{"unknown", RoleUser, false},
		{"", "", false},
		{"", RoleUser, false},
	}

	for _, tt := range tests {
		got := RoleAtLeast(tt.role, tt.minimum)
		if got != tt.expected {
			t.Errorf("RoleAtLeast(%q, %q) = %v, want %v", tt.role, tt.minimum, got, tt.expected)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		wantErr  bool
	}{
		{"", true},
		{"short", true},
		{"1234567", true},
		{"12345678", false},
		{"a-valid-password", false},
	}

	for _, tt := range tests {
		err := ValidatePassword(tt.password)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidatePassword(%q) error = %v, wantErr %v", tt.password, err, tt.wantErr)
		}
	}
}

func TestNormalizeCategory(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"critical", CategoryCritical},
		{"CRITICAL", CategoryCritical},
		{" Consumable ", CategoryConsumable},
		{"", CategoryConsumable},
		{"spare", CategoryConsumable},
	}
	for _, tt := range tests {
		if got := NormalizeCategory(tt.in); got != tt.want {
			t.Errorf("NormalizeCategory(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizePurpose(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"breakdown", PurposeBreakdown},
		{"BreakDown", PurposeBreakdown},
		{"", PurposeOthers},
		{"maintenance", PurposeOthers},
		{"others", PurposeOthers},
	}
	for _, tt := range tests {
		if got := NormalizePurpose(tt.in); got != tt.want {
			t.Errorf("NormalizePurpose(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsLowStockInclusive(t *testing.T) {
	item := Item{Quantity: 5, MinimumQuantity: 5}
	if !item.IsLowStock() {
		t.Error("expected quantity == minimum to be low stock")
	}
	item.Quantity = 6
	if item.IsLowStock() {
		t.Error("expected quantity above minimum not to be low stock")
	}
}

func TestRequestCanResolve(t *testing.T) {
	r := Request{Status: RequestPending}
	if !r.CanResolve(RequestApproved) || !r.CanResolve(RequestRejected) {
		t.Error("pending request should resolve to approved or rejected")
	}
	if r.CanResolve(RequestPending) {
		t.Error("pending -> pending is not a resolution")
	}
	r.Status = RequestApproved
	if r.CanResolve(RequestRejected) {
		t.Error("approved request is terminal")
	}
}
