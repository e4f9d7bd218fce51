// Package script defines the data model for card effect scripts.
//
// A script is pure data: a trigger kind, an optional DON!! cost, and an
// ordered list of actions, each optionally guarded by a condition. Scripts
// are decoded from the card catalog and interpreted by the game engine; new
// cards are new data, not new code paths.
package script

import "fmt"

// TriggerKind identifies the lifecycle hook a script is bound to.
type TriggerKind string

const (
	TriggerOnPlay      TriggerKind = "ON_PLAY"
	TriggerOnAttack    TriggerKind = "ON_ATTACK"
	TriggerOnBlock     TriggerKind = "ON_BLOCK"
	TriggerOnKO        TriggerKind = "ON_KO"
	TriggerTurnEnd     TriggerKind = "TURN_END"
	TriggerEndOfBattle TriggerKind = "END_OF_BATTLE"
	TriggerActivated   TriggerKind = "ACTIVATED"
	TriggerLife        TriggerKind = "LIFE"
	TriggerCounter     TriggerKind = "COUNTER"
)

// ConditionKind identifies a predicate evaluated against current match state.
type ConditionKind string

const (
	ConditionDonCount        ConditionKind = "DON_COUNT"
	ConditionLifeCount       ConditionKind = "LIFE_COUNT"
	ConditionBoardCount      ConditionKind = "BOARD_COUNT"
	ConditionRestrictionFlag ConditionKind = "RESTRICTION_FLAG"
)

// Side selects whose state a condition or filter inspects, relative to the
// script's controller.
type Side string

const (
	SideSelf     Side = "SELF"
	SideOpponent Side = "OPPONENT"
)

// Comparator compares an observed count against a condition's value.
type Comparator string

const (
	CompAtLeast Comparator = "AT_LEAST"
	CompAtMost  Comparator = "AT_MOST"
	CompExactly Comparator = "EXACTLY"
)

// Condition is a single predicate check.
type Condition struct {
	Kind    ConditionKind `yaml:"kind"`
	Side    Side          `yaml:"side,omitempty"`
	Compare Comparator    `yaml:"compare,omitempty"`
	Value   int           `yaml:"value,omitempty"`
	Flag    string        `yaml:"flag,omitempty"`
}

// ActionKind identifies a single effect the interpreter can apply.
type ActionKind string

const (
	ActionPowerMod      ActionKind = "POWER_MOD"
	ActionDraw          ActionKind = "DRAW"
	ActionMoveZone      ActionKind = "MOVE_ZONE"
	ActionAttachDon     ActionKind = "ATTACH_DON"
	ActionSetKeyword    ActionKind = "SET_KEYWORD"
	ActionSetFlag       ActionKind = "SET_FLAG"
	ActionRestSlot      ActionKind = "REST_SLOT"
	ActionSubBlock      ActionKind = "SUB_BLOCK"
	ActionSelectTargets ActionKind = "SELECT_TARGETS"
	ActionSearchDeck    ActionKind = "SEARCH_DECK"
)

// Duration scopes a temporary modification.
type Duration string

const (
	DurationBattle    Duration = "BATTLE"
	DurationTurn      Duration = "TURN"
	DurationPermanent Duration = "PERMANENT"
)

// TargetRef names the slot an action applies to when no interactive
// selection is involved.
type TargetRef string

const (
	TargetSelf           TargetRef = "SELF" // the script's source slot
	TargetOwnLeader      TargetRef = "OWN_LEADER"
	TargetOpposingLeader TargetRef = "OPPOSING_LEADER"
	TargetAttacker       TargetRef = "ATTACKER" // battle context only
	TargetDefender       TargetRef = "DEFENDER" // battle context only
	TargetSelected       TargetRef = "SELECTED" // bound by SELECT_TARGETS
)

// Filter narrows the legal target set for interactive selections.
type Filter struct {
	Side     Side     `yaml:"side,omitempty"`
	Zone     string   `yaml:"zone,omitempty"` // CHARACTER_AREA, HAND, TRASH, DECK
	Types    []string `yaml:"types,omitempty"`
	MaxCost  int      `yaml:"max_cost,omitempty"`
	MaxPower int      `yaml:"max_power,omitempty"`
	Rested   *bool    `yaml:"rested,omitempty"`
}

// Action is one step of a script. Exactly the fields relevant to its Kind
// are set; the interpreter rejects unknown kinds at execution time.
type Action struct {
	Kind ActionKind `yaml:"kind"`

	// Guard, when present, is evaluated immediately before the action runs.
	// A failed guard skips this action only.
	Guard *Condition `yaml:"guard,omitempty"`

	Target   TargetRef `yaml:"target,omitempty"`
	Amount   int       `yaml:"amount,omitempty"`
	Duration Duration  `yaml:"duration,omitempty"`
	Keyword  string    `yaml:"keyword,omitempty"`
	Flag     string    `yaml:"flag,omitempty"`
	ToZone   string    `yaml:"to_zone,omitempty"`

	// Interactive selection bounds and filter.
	Filter *Filter `yaml:"filter,omitempty"`
	Min    int     `yaml:"min,omitempty"`
	Max    int     `yaml:"max,omitempty"`

	// Nested actions for SUB_BLOCK and per-selection effects of
	// SELECT_TARGETS / SEARCH_DECK.
	Actions []Action `yaml:"actions,omitempty"`
}

// Script binds a trigger to its cost, activation conditions, and actions.
type Script struct {
	Trigger    TriggerKind `yaml:"trigger"`
	Cost       int         `yaml:"cost,omitempty"`
	Optional   bool        `yaml:"optional,omitempty"`
	Conditions []Condition `yaml:"conditions,omitempty"`
	Actions    []Action    `yaml:"actions"`
}

var validTriggers = map[TriggerKind]bool{
	TriggerOnPlay:      true,
	TriggerOnAttack:    true,
	TriggerOnBlock:     true,
	TriggerOnKO:        true,
	TriggerTurnEnd:     true,
	TriggerEndOfBattle: true,
	TriggerActivated:   true,
	TriggerLife:        true,
	TriggerCounter:     true,
}

// Validate checks structural sanity of a decoded script. Unknown action and
// condition kinds are deliberately not rejected here; the interpreter treats
// them as script execution errors so a bad card aborts only itself.
func (s *Script) Validate() error {
	if !validTriggers[s.Trigger] {
		return fmt.Errorf("script: unknown trigger kind %q", s.Trigger)
	}
	if s.Cost < 0 {
		return fmt.Errorf("script: negative cost %d", s.Cost)
	}
	if len(s.Actions) == 0 {
		return fmt.Errorf("script: %s has no actions", s.Trigger)
	}
	return validateActions(s.Actions)
}

func validateActions(actions []Action) error {
	for i := range actions {
		a := &actions[i]
		switch a.Kind {
		case ActionSelectTargets, ActionSearchDeck:
			if a.Min < 0 || a.Max < a.Min {
				return fmt.Errorf("script: action %d has invalid selection bounds [%d,%d]", i, a.Min, a.Max)
			}
			if a.Filter == nil {
				return fmt.Errorf("script: action %d requires a filter", i)
			}
		case ActionSubBlock:
			if len(a.Actions) == 0 {
				return fmt.Errorf("script: action %d sub-block is empty", i)
			}
		}
		if len(a.Actions) > 0 {
			if err := validateActions(a.Actions); err != nil {
				return err
			}
		}
	}
	return nil
}
