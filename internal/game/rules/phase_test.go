package rules

import "testing"

func TestTurnManager_PhaseOrder(t *testing.T) {
	tm := NewTurnManager("alice")

	want := []Phase{PhaseDraw, PhaseDonGain, PhaseMain, PhaseEnd}
	for _, expected := range want {
		got := tm.AdvancePhase("bob")
		if got != expected {
			t.Fatalf("expected phase %s, got %s", expected, got)
		}
	}
	if tm.ActivePlayer() != "alice" {
		t.Errorf("active player changed before turn passed")
	}

	// Past END the turn rotates
	if got := tm.AdvancePhase("bob"); got != PhaseRefresh {
		t.Fatalf("expected REFRESH, got %s", got)
	}
	if tm.ActivePlayer() != "bob" {
		t.Errorf("expected bob active, got %s", tm.ActivePlayer())
	}
	if tm.TurnNumber() != 2 {
		t.Errorf("expected turn 2, got %d", tm.TurnNumber())
	}
}

func TestTurnManager_FirstTurnTracking(t *testing.T) {
	tm := NewTurnManager("alice")

	if !tm.IsFirstTurnFor("alice") {
		t.Error("expected alice on her first turn")
	}
	if tm.IsFirstTurnFor("bob") {
		t.Error("bob has not taken a turn yet")
	}

	// alice -> bob
	for i := 0; i < 5; i++ {
		tm.AdvancePhase("bob")
	}
	if !tm.IsFirstTurnFor("bob") {
		t.Error("expected bob on his first turn")
	}

	// bob -> alice: neither is on their first turn any longer
	for i := 0; i < 5; i++ {
		tm.AdvancePhase("alice")
	}
	if tm.IsFirstTurnFor("alice") {
		t.Error("alice is on her second turn")
	}
	if tm.TurnsTaken("alice") != 2 {
		t.Errorf("expected alice to have taken 2 turns, got %d", tm.TurnsTaken("alice"))
	}
}

func TestTurnManager_BattleTransitions(t *testing.T) {
	tm := NewTurnManager("alice")

	// Battle is illegal outside MAIN
	if err := tm.BeginBattle(); err == nil {
		t.Error("expected begin battle to fail during REFRESH")
	}

	tm.AdvancePhase("")
	tm.AdvancePhase("")
	tm.AdvancePhase("") // now MAIN

	if err := tm.BeginBattle(); err != nil {
		t.Fatalf("begin battle: %v", err)
	}
	if tm.CurrentPhase() != PhaseBattle {
		t.Fatalf("expected BATTLE, got %s", tm.CurrentPhase())
	}
	if err := tm.EndBattle(); err != nil {
		t.Fatalf("end battle: %v", err)
	}
	if tm.CurrentPhase() != PhaseMain {
		t.Fatalf("expected MAIN after battle, got %s", tm.CurrentPhase())
	}
	if err := tm.EndBattle(); err == nil {
		t.Error("expected end battle to fail outside BATTLE")
	}
}
