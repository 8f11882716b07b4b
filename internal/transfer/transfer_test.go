package transfer

import (
	"strings"
	"testing"
)

func TestValidatePostCreation(t *testing.T) {
	tests := []struct {
		name    string
		in      PostCreation
		wantErr string
	}{
		{"valid", PostCreation{Content: "hi", Platforms: []string{"facebook", "x"}}, ""},
		{"missing content", PostCreation{Platforms: []string{"facebook"}}, "content is required"},
		{"no platforms", PostCreation{Content: "hi"}, "platforms is required"},
		{"unknown platform", PostCreation{Content: "hi", Platforms: []string{"myspace"}}, "must be one of"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&tt.in)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateShareCreation(t *testing.T) {
	ok := ShareCreation{Kind: "report", ResourceID: 3, AllowedIPs: []string{"10.0.0.0/8", "192.168.1.4"}}
	if err := Validate(&ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bad := ShareCreation{Kind: "report", ResourceID: 3, AllowedIPs: []string{"not-an-ip"}}
	if err := Validate(&bad); err == nil {
		t.Fatal("expected error for invalid allowlist entry")
	}

	short := ShareCreation{Kind: "campaign", ResourceID: 1, Password: "abc"}
	if err := Validate(&short); err == nil {
		t.Fatal("expected error for short password")
	}
}
