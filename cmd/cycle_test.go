package cmd

import (
	"testing"
	"time"

	"github.com/Tiliavir/timeex/internal/model"
)

func TestCycleFlagsResolve(t *testing.T) {
	now := time.Date(2026, 2, 27, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		flags   cycleFlags
		wantID  string
		wantErr bool
	}{
		{"current", cycleFlags{cycle: "current"}, "cycle-2026-02-22", false},
		{"default", cycleFlags{}, "cycle-2026-02-22", false},
		{"previous", cycleFlags{cycle: "Previous"}, "cycle-2026-02-08", false},
		{"all", cycleFlags{cycle: "all"}, "all-time", false},
		{"custom", cycleFlags{cycle: "custom", from: "2026-01-01", to: "2026-01-31"}, "custom-2026-01-01-2026-01-31", false},
		{"custom report", cycleFlags{cycle: "custom", from: "2026-01-01", to: "2026-01-31", reports: true}, "custom-report-2026-01-01-2026-01-31", false},
		{"custom reversed", cycleFlags{cycle: "custom", from: "2026-02-01", to: "2026-01-31"}, "", true},
		{"custom missing end", cycleFlags{cycle: "custom", from: "2026-02-01"}, "", true},
		{"unknown", cycleFlags{cycle: "weekly"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := tt.flags.resolve(now)
			if tt.wantErr {
				if !model.IsValidation(err) {
					t.Fatalf("err = %v, want ValidationError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if c.ID != tt.wantID {
				t.Errorf("ID = %q, want %q", c.ID, tt.wantID)
			}
		})
	}

	c, err := (&cycleFlags{cycle: "all", project: "Acme"}).resolve(now)
	if err != nil || c.ProjectFilter != "Acme" {
		t.Errorf("project filter not applied: %+v, %v", c, err)
	}
}
