package game

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/optcgsim/match-server-go/internal/catalog"
	"github.com/optcgsim/match-server-go/internal/game/don"
	"github.com/optcgsim/match-server-go/internal/game/rules"
	"github.com/optcgsim/match-server-go/internal/game/script"
	"github.com/optcgsim/match-server-go/internal/game/targeting"
)

// Board constants.
const (
	DeckSize      = 50
	MaxCharacters = 5
	InitialHand   = 5
	PowerPerDon   = 1000
)

// ZoneID identifies a card location.
type ZoneID string

const (
	ZoneDeck          ZoneID = "DECK"
	ZoneHand          ZoneID = "HAND"
	ZoneTrash         ZoneID = "TRASH"
	ZoneLife          ZoneID = "LIFE"
	ZoneBanished      ZoneID = "BANISHED"
	ZoneLeader        ZoneID = "LEADER"
	ZoneCharacterArea ZoneID = "CHARACTER_AREA"
	ZoneStage         ZoneID = "STAGE"
)

// inPlay reports whether a zone is part of the field, where cards exist as
// slot-bound instances with modifiers.
func (z ZoneID) inPlay() bool {
	return z == ZoneLeader || z == ZoneCharacterArea || z == ZoneStage
}

// CardInstance binds a card definition to a per-match identity. The
// identity is discarded and re-minted whenever the card crosses the play
// boundary, so modifiers can never survive leaving the field.
type CardInstance struct {
	ID         string
	CardNumber string
	Def        *catalog.CardDefinition
}

func newInstance(def *catalog.CardDefinition) *CardInstance {
	return &CardInstance{
		ID:         uuid.NewString(),
		CardNumber: def.CardNumber,
		Def:        def,
	}
}

// PowerMod is a temporary power delta with an expiry scope.
type PowerMod struct {
	Delta    int
	Duration script.Duration
}

// Slot binds a card instance occupying a board position to its orientation,
// attached DON!! count and temporary state. Current power is always
// recomputed from its components, never stored.
type Slot struct {
	Instance    *CardInstance
	Rested      bool
	AttachedDon int
	Mods        []PowerMod
	Keywords    map[string]script.Duration // granted keywords with expiry
	PlayedTurn  int                        // turn number the card entered play
}

func newSlot(inst *CardInstance, turn int) *Slot {
	return &Slot{
		Instance:   inst,
		Keywords:   make(map[string]script.Duration),
		PlayedTurn: turn,
	}
}

// CurrentPower computes base power + DON!! bonus + temporary modifiers.
func (s *Slot) CurrentPower() int {
	power := s.Instance.Def.Power + s.AttachedDon*PowerPerDon
	for _, m := range s.Mods {
		power += m.Delta
	}
	return power
}

// HasKeyword reports whether the slot's card has a keyword, printed or
// granted.
func (s *Slot) HasKeyword(kw string) bool {
	if s.Instance.Def.HasKeyword(kw) {
		return true
	}
	_, ok := s.Keywords[kw]
	return ok
}

// expireMods drops modifiers and granted keywords whose duration matches.
func (s *Slot) expireMods(d script.Duration) {
	kept := s.Mods[:0]
	for _, m := range s.Mods {
		if m.Duration != d {
			kept = append(kept, m)
		}
	}
	s.Mods = kept
	for kw, dur := range s.Keywords {
		if dur == d {
			delete(s.Keywords, kw)
		}
	}
}

// Restriction flags toggled by active effects.
const (
	RestrictionNoLifeToHand = "NO_LIFE_TO_HAND"
	RestrictionCannotAttack = "CANNOT_ATTACK"
	RestrictionCannotBlock  = "CANNOT_BLOCK"
)

// PlayerState is the mutable per-player board state.
type PlayerState struct {
	ID           string
	Leader       *Slot
	Characters   []*Slot // insertion order = board position
	Stage        *Slot
	Hand         []*CardInstance
	Deck         []*CardInstance // index 0 = top
	Trash        []*CardInstance // last = most recent
	Life         []*CardInstance // index 0 = top, face down
	Banished     []*CardInstance
	Don          *don.Pool
	Restrictions map[string]bool
}

// LiveInstances counts every card identity the player owns across all
// zones. It must always equal DeckSize + 1 (the leader).
func (p *PlayerState) LiveInstances() int {
	n := len(p.Hand) + len(p.Deck) + len(p.Trash) + len(p.Life) + len(p.Banished)
	if p.Leader != nil {
		n++
	}
	n += len(p.Characters)
	if p.Stage != nil {
		n++
	}
	return n
}

// slotFor finds the slot holding the given instance on this player's field.
func (p *PlayerState) slotFor(instanceID string) *Slot {
	if p.Leader != nil && p.Leader.Instance.ID == instanceID {
		return p.Leader
	}
	for _, s := range p.Characters {
		if s.Instance.ID == instanceID {
			return s
		}
	}
	if p.Stage != nil && p.Stage.Instance.ID == instanceID {
		return p.Stage
	}
	return nil
}

// handCard finds a card instance in the player's hand.
func (p *PlayerState) handCard(instanceID string) *CardInstance {
	for _, c := range p.Hand {
		if c.ID == instanceID {
			return c
		}
	}
	return nil
}

// fieldSlots returns leader, characters and stage in a stable order.
func (p *PlayerState) fieldSlots() []*Slot {
	slots := make([]*Slot, 0, len(p.Characters)+2)
	if p.Leader != nil {
		slots = append(slots, p.Leader)
	}
	slots = append(slots, p.Characters...)
	if p.Stage != nil {
		slots = append(slots, p.Stage)
	}
	return slots
}

// BattleContext is the state of an in-progress attack, created at attack
// declaration and discarded at end of battle.
type BattleContext struct {
	Step           rules.BattleStep
	AttackerPlayer string
	DefenderPlayer string
	AttackerSlot   *Slot
	TargetSlot     *Slot // opposing leader or character; replaced by a blocker
	TargetIsLeader bool
	BlockerID      string // instance ID of declared blocker, empty if none
	DamageLeft     int    // life damage points still to resolve
}

// StagedCounterEntry is a provisionally applied counter, retained so its
// recorded mutations can be exactly reversed before confirmation.
type StagedCounterEntry struct {
	Instance   *CardInstance
	PowerBonus int
	DonPaid    int
	Records    []*ActionRecord
}

// PendingKind discriminates suspended player interactions.
type PendingKind string

const (
	PendingSelectTargets PendingKind = "SELECT_TARGETS"
	PendingSearchDeck    PendingKind = "SEARCH_DECK"
	PendingLifeTrigger   PendingKind = "LIFE_TRIGGER"
	PendingTriggerOrder  PendingKind = "TRIGGER_ORDER"
	PendingActivation    PendingKind = "ACTIVATION"
)

// Choice tokens for pending interactions that are yes/no rather than
// card selections.
const (
	ChoiceActivate = "ACTIVATE"
	ChoiceSkip     = "SKIP"
	ChoiceTake     = "TAKE"
)

// PendingSelection is a first-class suspended interaction. While present,
// the match accepts only the matching resolve-pending-selection command.
type PendingSelection struct {
	ID       string
	Kind     PendingKind
	PlayerID string
	SourceID string
	Min      int
	Max      int
	LegalIDs []string

	// Suspended script execution (SELECT_TARGETS / SEARCH_DECK).
	action    *script.Action
	remaining []script.Action
	exec      *execContext
	legal     []targeting.Candidate
	lookedAt  []*CardInstance // SEARCH_DECK: cards looked at on top of the deck

	// LIFE_TRIGGER resolution.
	lifeCard *CardInstance
}

// QueuedTrigger is a lifecycle script waiting to resolve.
type QueuedTrigger struct {
	ID       string
	PlayerID string
	Source   *CardInstance
	Slot     *Slot // nil for cards not in play (events, life cards)
	Script   script.Script
}

// resumePoint marks where match flow continues once the trigger queue and
// any pending interaction drain.
type resumePoint int

const (
	resumeNone resumePoint = iota
	resumeBlockStep
	resumeCounterStep
	resumeEndOfBattle
	resumeBattleCleanup
	resumeLifeDamage
	resumeEndPhase
)

// MatchState is the complete mutable state of one match.
type MatchState struct {
	ID             string
	Players        map[string]*PlayerState
	Order          [2]string
	Turn           *rules.TurnManager
	Battle         *BattleContext
	StagedCounters []*StagedCounterEntry
	Pending        *PendingSelection
	TriggerQueue   []QueuedTrigger
	Resume         resumePoint
	Winner         string
	Finished       bool
	Corrupted      bool
}

// opponentOf returns the other player's ID.
func (st *MatchState) opponentOf(playerID string) string {
	if st.Order[0] == playerID {
		return st.Order[1]
	}
	return st.Order[0]
}

// player returns the state for a player ID, or nil.
func (st *MatchState) player(playerID string) *PlayerState {
	return st.Players[playerID]
}

// checkInvariants verifies the structural invariants that must hold between
// commands. A failure marks the match corrupted and aborts it.
func (st *MatchState) checkInvariants() error {
	for _, id := range st.Order {
		p := st.Players[id]
		if p == nil {
			return fmt.Errorf("missing player state for %s", id)
		}
		if got := p.LiveInstances(); got != DeckSize+1 {
			return fmt.Errorf("player %s has %d card identities, want %d", id, got, DeckSize+1)
		}
		if len(p.Characters) > MaxCharacters {
			return fmt.Errorf("player %s has %d characters, max %d", id, len(p.Characters), MaxCharacters)
		}
		if err := p.Don.Check(); err != nil {
			return err
		}
		attached := 0
		for _, s := range p.fieldSlots() {
			if s.AttachedDon < 0 {
				return fmt.Errorf("player %s slot %s has negative attached DON", id, s.Instance.ID)
			}
			attached += s.AttachedDon
		}
		if attached != p.Don.Attached {
			return fmt.Errorf("player %s attached DON mismatch: slots=%d pool=%d", id, attached, p.Don.Attached)
		}
	}
	return nil
}
