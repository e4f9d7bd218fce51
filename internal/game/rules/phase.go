package rules

import (
	"fmt"
	"strings"
)

// Phase represents the phases of a turn.
type Phase int

const (
	PhaseRefresh Phase = iota
	PhaseDraw
	PhaseDonGain
	PhaseMain
	PhaseBattle
	PhaseEnd
)

var phaseNames = map[Phase]string{
	PhaseRefresh: "REFRESH",
	PhaseDraw:    "DRAW",
	PhaseDonGain: "DON_GAIN",
	PhaseMain:    "MAIN",
	PhaseBattle:  "BATTLE",
	PhaseEnd:     "END",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PHASE_%d", int(p))
}

// BattleStep represents the sub-steps of an in-progress battle.
type BattleStep int

const (
	StepAttackDeclared BattleStep = iota
	StepBlock
	StepCounter
	StepDamage
	StepEndOfBattle
)

var battleStepNames = map[BattleStep]string{
	StepAttackDeclared: "ATTACK_DECLARED",
	StepBlock:          "BLOCK",
	StepCounter:        "COUNTER",
	StepDamage:         "DAMAGE",
	StepEndOfBattle:    "END_OF_BATTLE",
}

func (s BattleStep) String() string {
	if name, ok := battleStepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("STEP_%d", int(s))
}

// TurnManager tracks the active player, turn number and phase progression.
// The battle phase is entered from MAIN when an attack is declared and
// returns to MAIN when the battle resolves; all other phases advance in
// fixed order.
type TurnManager struct {
	phase        Phase
	turnNumber   int
	activePlayer string
	turnsTaken   map[string]int
}

// NewTurnManager creates a turn manager at turn 1, refresh phase, with the
// given starting player active.
func NewTurnManager(startingPlayer string) *TurnManager {
	active := strings.TrimSpace(startingPlayer)
	return &TurnManager{
		phase:        PhaseRefresh,
		turnNumber:   1,
		activePlayer: active,
		turnsTaken:   map[string]int{active: 1},
	}
}

// CurrentPhase returns the phase currently in progress.
func (tm *TurnManager) CurrentPhase() Phase {
	return tm.phase
}

// TurnNumber returns the current turn number (1-based, counting both
// players' turns).
func (tm *TurnManager) TurnNumber() int {
	return tm.turnNumber
}

// ActivePlayer returns the player whose turn it is.
func (tm *TurnManager) ActivePlayer() string {
	return tm.activePlayer
}

// TurnsTaken returns how many turns the given player has started,
// counting an in-progress one.
func (tm *TurnManager) TurnsTaken(player string) int {
	return tm.turnsTaken[player]
}

// IsFirstTurnFor reports whether the player is on their first turn of the
// match. Drives the no-draw, single-DON, no-attack opening rules.
func (tm *TurnManager) IsFirstTurnFor(player string) bool {
	return tm.activePlayer == player && tm.turnsTaken[player] == 1
}

// AdvancePhase moves to the next phase in the fixed order. Advancing past
// END rotates the active player to next and increments the turn number.
// The battle phase is never entered this way; it is only reachable via
// BeginBattle.
func (tm *TurnManager) AdvancePhase(next string) Phase {
	switch tm.phase {
	case PhaseRefresh:
		tm.phase = PhaseDraw
	case PhaseDraw:
		tm.phase = PhaseDonGain
	case PhaseDonGain:
		tm.phase = PhaseMain
	case PhaseMain, PhaseBattle:
		tm.phase = PhaseEnd
	case PhaseEnd:
		tm.phase = PhaseRefresh
		tm.turnNumber++
		if n := strings.TrimSpace(next); n != "" {
			tm.activePlayer = n
		}
		tm.turnsTaken[tm.activePlayer]++
	}
	return tm.phase
}

// BeginBattle enters the battle phase. Only legal from MAIN.
func (tm *TurnManager) BeginBattle() error {
	if tm.phase != PhaseMain {
		return fmt.Errorf("rules: cannot begin battle during %s", tm.phase)
	}
	tm.phase = PhaseBattle
	return nil
}

// EndBattle returns from the battle phase to MAIN. Only legal from BATTLE.
func (tm *TurnManager) EndBattle() error {
	if tm.phase != PhaseBattle {
		return fmt.Errorf("rules: cannot end battle during %s", tm.phase)
	}
	tm.phase = PhaseMain
	return nil
}
