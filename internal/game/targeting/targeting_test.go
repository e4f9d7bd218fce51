package targeting

import (
	"testing"

	"github.com/optcgsim/match-server-go/internal/game/script"
)

func boolPtr(b bool) *bool { return &b }

func TestMatches(t *testing.T) {
	c := Candidate{InstanceID: "i1", Type: "CHARACTER", Cost: 3, Power: 4000, Rested: true}

	tests := []struct {
		name   string
		filter *script.Filter
		want   bool
	}{
		{"nil filter matches all", nil, true},
		{"type match", &script.Filter{Types: []string{"CHARACTER"}}, true},
		{"type mismatch", &script.Filter{Types: []string{"STAGE"}}, false},
		{"max cost ok", &script.Filter{MaxCost: 3}, true},
		{"max cost exceeded", &script.Filter{MaxCost: 2}, false},
		{"max power ok", &script.Filter{MaxPower: 4000}, true},
		{"max power exceeded", &script.Filter{MaxPower: 3999}, false},
		{"rested required", &script.Filter{Rested: boolPtr(true)}, true},
		{"active required", &script.Filter{Rested: boolPtr(false)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(c, tt.filter); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateSelection(t *testing.T) {
	legal := []Candidate{{InstanceID: "a"}, {InstanceID: "b"}, {InstanceID: "c"}}

	if err := ValidateSelection(legal, []string{"a", "b"}, 1, 2); err != nil {
		t.Errorf("valid selection rejected: %v", err)
	}
	if err := ValidateSelection(legal, nil, 1, 2); err == nil {
		t.Error("expected error for too few targets")
	}
	if err := ValidateSelection(legal, []string{"a", "b", "c"}, 0, 2); err == nil {
		t.Error("expected error for too many targets")
	}
	if err := ValidateSelection(legal, []string{"z"}, 0, 1); err == nil {
		t.Error("expected error for illegal target")
	}
	if err := ValidateSelection(legal, []string{"a", "a"}, 0, 2); err == nil {
		t.Error("expected error for duplicate target")
	}
}
