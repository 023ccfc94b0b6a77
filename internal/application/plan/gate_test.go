package plan

import (
	"testing"

	"bookforge-api/pkg/errors"
)

func TestAllowed(t *testing.T) {
	tests := []struct {
		name string
		tier Tier
		want []Capability
	}{
		{name: "starter has nothing", tier: TierStarter, want: nil},
		{name: "pro has full book and cover", tier: TierPro, want: []Capability{CapabilityFullBook, CapabilityCover}},
		{name: "enterprise has everything", tier: TierEnterprise, want: []Capability{CapabilityFullBook, CapabilityCover, CapabilityAudiobook}},
		{name: "unknown tier treated as starter", tier: Tier("platinum"), want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Allowed(tt.tier)
			if len(got) != len(tt.want) {
				t.Fatalf("Allowed(%s) has %d capabilities, want %d", tt.tier, len(got), len(tt.want))
			}
			for _, cap := range tt.want {
				if !got[cap] {
					t.Errorf("Allowed(%s) missing %s", tt.tier, cap)
				}
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		tier      Tier
		requested []Capability
		wantErr   bool
	}{
		{name: "starter no request", tier: TierStarter, requested: nil, wantErr: false},
		{name: "starter full book denied", tier: TierStarter, requested: []Capability{CapabilityFullBook}, wantErr: true},
		{name: "starter cover denied", tier: TierStarter, requested: []Capability{CapabilityCover}, wantErr: true},
		{name: "starter audiobook denied", tier: TierStarter, requested: []Capability{CapabilityAudiobook}, wantErr: true},
		{name: "pro full book allowed", tier: TierPro, requested: []Capability{CapabilityFullBook, CapabilityCover}, wantErr: false},
		{name: "pro audiobook denied", tier: TierPro, requested: []Capability{CapabilityAudiobook}, wantErr: true},
		{name: "enterprise everything allowed", tier: TierEnterprise, requested: []Capability{CapabilityFullBook, CapabilityCover, CapabilityAudiobook}, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.tier, tt.requested)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected PermissionDenied, got nil")
				}
				if !errors.IsCode(err, errors.CodePermissionDenied) {
					t.Fatalf("expected CodePermissionDenied, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateNamesMissingCapability(t *testing.T) {
	err := Validate(TierPro, []Capability{CapabilityAudiobook})
	if err == nil {
		t.Fatal("expected error")
	}
	appErr := errors.AsAppError(err)
	if want := "plan does not allow capability: audiobook"; appErr.Message != want {
		t.Fatalf("message = %q, want %q", appErr.Message, want)
	}
}
