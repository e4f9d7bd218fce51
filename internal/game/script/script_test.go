package script

import (
	"testing"

	"gopkg.in/yaml.v3"
)

func TestDecodeScript(t *testing.T) {
	data := `
trigger: ON_PLAY
cost: 1
actions:
  - kind: SELECT_TARGETS
    min: 0
    max: 1
    filter:
      side: OPPONENT
      zone: CHARACTER_AREA
      max_power: 3000
    actions:
      - kind: POWER_MOD
        target: SELECTED
        amount: -2000
        duration: TURN
`
	var s Script
	if err := yaml.Unmarshal([]byte(data), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if s.Trigger != TriggerOnPlay {
		t.Errorf("expected ON_PLAY trigger, got %s", s.Trigger)
	}
	if s.Cost != 1 {
		t.Errorf("expected cost 1, got %d", s.Cost)
	}
	sel := s.Actions[0]
	if sel.Kind != ActionSelectTargets {
		t.Fatalf("expected SELECT_TARGETS, got %s", sel.Kind)
	}
	if sel.Filter == nil || sel.Filter.Side != SideOpponent {
		t.Error("expected opponent-side filter")
	}
	if len(sel.Actions) != 1 || sel.Actions[0].Amount != -2000 {
		t.Error("expected nested power mod of -2000")
	}
}

func TestValidateRejectsUnknownTrigger(t *testing.T) {
	s := Script{Trigger: "ON_SNEEZE", Actions: []Action{{Kind: ActionDraw, Amount: 1}}}
	if err := s.Validate(); err == nil {
		t.Error("expected error for unknown trigger kind")
	}
}

func TestValidateRejectsBadBounds(t *testing.T) {
	s := Script{
		Trigger: TriggerOnPlay,
		Actions: []Action{{
			Kind:   ActionSelectTargets,
			Min:    2,
			Max:    1,
			Filter: &Filter{Zone: "CHARACTER_AREA"},
		}},
	}
	if err := s.Validate(); err == nil {
		t.Error("expected error for min > max")
	}
}

func TestValidateRejectsMissingFilter(t *testing.T) {
	s := Script{
		Trigger: TriggerActivated,
		Actions: []Action{{Kind: ActionSearchDeck, Min: 1, Max: 1}},
	}
	if err := s.Validate(); err == nil {
		t.Error("expected error for selection without filter")
	}
}

func TestValidateAllowsUnknownActionKind(t *testing.T) {
	// Unknown action kinds fail at interpretation time, not decode time.
	s := Script{Trigger: TriggerOnKO, Actions: []Action{{Kind: "SUMMON_KRAKEN"}}}
	if err := s.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
