package game

import (
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/optcgsim/match-server-go/internal/catalog"
	"github.com/optcgsim/match-server-go/internal/game/script"
)

// Test fixtures shared by the package tests. The harness builds matches
// from a small fixed card pool and pokes cards directly into zones, always
// swapping against the deck so the card-conservation invariant holds.

const (
	tLeader       = "TEST-L01" // 5000 power, 4 life
	tVanilla      = "TEST-C01" // 3000 power, 1000 counter
	tBlocker      = "TEST-C02" // BLOCKER
	tRush         = "TEST-C03" // RUSH
	tDoubleAttack = "TEST-C04" // DOUBLE_ATTACK
	tBanish       = "TEST-C05" // BANISH
	tDrawOnPlay   = "TEST-C06" // on play: draw 1
	tPumpOnAttack = "TEST-C07" // on attack: +2000 self for the battle
	tRemovalChar  = "TEST-C08" // on play: KO up to one enemy character of cost 3 or less
	tLifeDraw     = "TEST-C09" // life trigger: draw 1
	tActivated    = "TEST-C10" // activated, pay 1: +1000 self for the turn
	tOptionalEnd  = "TEST-C11" // turn end, optional: draw 1
	tLifeCombo    = "TEST-C12" // life triggers: weaken an enemy character, draw 1
	tDrawEvent    = "TEST-E01" // event: draw 2
	tCounterEvent = "TEST-E02" // counter, pay 1: +3000 to the defender for the battle
	tStage        = "TEST-S01" // stage
)

func testDefinitions() []catalog.CardDefinition {
	return []catalog.CardDefinition{
		{CardNumber: tLeader, Name: "Test Leader", Type: catalog.TypeLeader, Power: 5000, Life: 4},
		{CardNumber: tVanilla, Name: "Deckhand", Type: catalog.TypeCharacter, Cost: 2, Power: 3000, Counter: 1000},
		{CardNumber: tBlocker, Name: "Wall", Type: catalog.TypeCharacter, Cost: 1, Power: 2000, Counter: 1000,
			Keywords: []string{catalog.KeywordBlocker}},
		{CardNumber: tRush, Name: "Charger", Type: catalog.TypeCharacter, Cost: 2, Power: 4000,
			Keywords: []string{catalog.KeywordRush}},
		{CardNumber: tDoubleAttack, Name: "Heavy Hitter", Type: catalog.TypeCharacter, Cost: 4, Power: 5000,
			Keywords: []string{catalog.KeywordDoubleAttack}},
		{CardNumber: tBanish, Name: "Eraser", Type: catalog.TypeCharacter, Cost: 3, Power: 4000,
			Keywords: []string{catalog.KeywordBanish}},
		{CardNumber: tDrawOnPlay, Name: "Lookout", Type: catalog.TypeCharacter, Cost: 2, Power: 2000,
			Scripts: []script.Script{{
				Trigger: script.TriggerOnPlay,
				Actions: []script.Action{{Kind: script.ActionDraw, Amount: 1}},
			}}},
		{CardNumber: tPumpOnAttack, Name: "Brawler", Type: catalog.TypeCharacter, Cost: 3, Power: 3000,
			Scripts: []script.Script{{
				Trigger: script.TriggerOnAttack,
				Actions: []script.Action{{
					Kind: script.ActionPowerMod, Target: script.TargetSelf,
					Amount: 2000, Duration: script.DurationBattle,
				}},
			}}},
		{CardNumber: tRemovalChar, Name: "Sniper", Type: catalog.TypeCharacter, Cost: 4, Power: 4000,
			Scripts: []script.Script{{
				Trigger: script.TriggerOnPlay,
				Actions: []script.Action{{
					Kind: script.ActionSelectTargets,
					Min:  0, Max: 1,
					Filter: &script.Filter{
						Side: script.SideOpponent, Zone: "CHARACTER_AREA",
						Types: []string{string(catalog.TypeCharacter)}, MaxCost: 3,
					},
					Actions: []script.Action{{
						Kind: script.ActionMoveZone, ToZone: "TRASH", Target: script.TargetSelected,
					}},
				}},
			}}},
		{CardNumber: tLifeDraw, Name: "Lucky Coin", Type: catalog.TypeCharacter, Cost: 2, Power: 3000,
			Scripts: []script.Script{{
				Trigger: script.TriggerLife,
				Actions: []script.Action{{Kind: script.ActionDraw, Amount: 1}},
			}}},
		{CardNumber: tActivated, Name: "Trainer", Type: catalog.TypeCharacter, Cost: 2, Power: 2000,
			Scripts: []script.Script{{
				Trigger: script.TriggerActivated, Cost: 1,
				Actions: []script.Action{{
					Kind: script.ActionPowerMod, Target: script.TargetSelf,
					Amount: 1000, Duration: script.DurationTurn,
				}},
			}}},
		{CardNumber: tOptionalEnd, Name: "Night Owl", Type: catalog.TypeCharacter, Cost: 2, Power: 2000,
			Scripts: []script.Script{{
				Trigger: script.TriggerTurnEnd, Optional: true,
				Actions: []script.Action{{Kind: script.ActionDraw, Amount: 1}},
			}}},
		{CardNumber: tLifeCombo, Name: "Counter Signal", Type: catalog.TypeCharacter, Cost: 3, Power: 4000,
			Scripts: []script.Script{
				{
					Trigger: script.TriggerLife,
					Actions: []script.Action{{
						Kind: script.ActionSelectTargets,
						Min:  0, Max: 1,
						Filter: &script.Filter{
							Side: script.SideOpponent, Zone: "CHARACTER_AREA",
							Types: []string{string(catalog.TypeCharacter)},
						},
						Actions: []script.Action{{
							Kind: script.ActionPowerMod, Target: script.TargetSelected,
							Amount: -1000, Duration: script.DurationTurn,
						}},
					}},
				},
				{
					Trigger: script.TriggerLife,
					Actions: []script.Action{{Kind: script.ActionDraw, Amount: 1}},
				},
			}},
		{CardNumber: tDrawEvent, Name: "Chart a Course", Type: catalog.TypeEvent, Cost: 1,
			Scripts: []script.Script{{
				Trigger: script.TriggerOnPlay,
				Actions: []script.Action{{Kind: script.ActionDraw, Amount: 2}},
			}}},
		{CardNumber: tCounterEvent, Name: "Hard Parry", Type: catalog.TypeEvent, Cost: 1,
			Scripts: []script.Script{{
				Trigger: script.TriggerCounter, Cost: 1,
				Actions: []script.Action{{
					Kind: script.ActionPowerMod, Target: script.TargetDefender,
					Amount: 3000, Duration: script.DurationBattle,
				}},
			}}},
		{CardNumber: tStage, Name: "Harbor", Type: catalog.TypeStage, Cost: 1},
	}
}

func newTestCatalog(t *testing.T) *catalog.MemoryCatalog {
	t.Helper()
	cat, err := catalog.NewMemoryCatalog(testDefinitions())
	if err != nil {
		t.Fatalf("building test catalog: %v", err)
	}
	return cat
}

// newTestMatch creates a match between "alice" (first player) and "bob",
// both on all-vanilla decks so the shuffle cannot matter. The match is in
// alice's first MAIN phase.
func newTestMatch(t *testing.T) *Match {
	t.Helper()
	deck := make([]string, DeckSize)
	for i := range deck {
		deck[i] = tVanilla
	}
	m, err := NewMatch(MatchConfig{
		ID:   "test-match",
		Seed: 1,
		Players: [2]PlayerConfig{
			{ID: "alice", Leader: tLeader, Deck: deck},
			{ID: "bob", Leader: tLeader, Deck: deck},
		},
	}, newTestCatalog(t), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("creating test match: %v", err)
	}
	return m
}

// mustExecute fails the test on a rejected command.
func mustExecute(t *testing.T, m *Match, cmd Command) Result {
	t.Helper()
	res := m.Execute(cmd)
	if !res.Success {
		t.Fatalf("command %s for %s rejected: %s %s", cmd.Type, cmd.PlayerID, res.Reason, res.Message)
	}
	return res
}

// giveCard swaps the bottom deck card for a fresh instance of the wanted
// definition in the player's hand.
func giveCard(t *testing.T, m *Match, playerID, number string) *CardInstance {
	t.Helper()
	def, err := m.catalog.GetDefinition(number)
	if err != nil {
		t.Fatalf("unknown test card %s: %v", number, err)
	}
	p := m.state.player(playerID)
	if len(p.Deck) == 0 {
		t.Fatalf("deck of %s is empty", playerID)
	}
	p.Deck = p.Deck[:len(p.Deck)-1]
	inst := newInstance(def)
	p.Hand = append(p.Hand, inst)
	return inst
}

// putCharacter swaps the bottom deck card for a character slot already in
// play, marked as played on an earlier turn so it may attack.
func putCharacter(t *testing.T, m *Match, playerID, number string) *Slot {
	t.Helper()
	def, err := m.catalog.GetDefinition(number)
	if err != nil {
		t.Fatalf("unknown test card %s: %v", number, err)
	}
	p := m.state.player(playerID)
	if len(p.Deck) == 0 || len(p.Characters) >= MaxCharacters {
		t.Fatalf("cannot place %s for %s", number, playerID)
	}
	p.Deck = p.Deck[:len(p.Deck)-1]
	slot := newSlot(newInstance(def), 0)
	p.Characters = append(p.Characters, slot)
	return slot
}

// putLifeCard swaps the top life card for a fresh instance of the wanted
// definition, keeping the life count unchanged.
func putLifeCard(t *testing.T, m *Match, playerID, number string) *CardInstance {
	t.Helper()
	def, err := m.catalog.GetDefinition(number)
	if err != nil {
		t.Fatalf("unknown test card %s: %v", number, err)
	}
	p := m.state.player(playerID)
	if len(p.Life) == 0 {
		t.Fatalf("life of %s is empty", playerID)
	}
	inst := newInstance(def)
	p.Life[0] = inst
	return inst
}

// gainDon moves DON!! from the player's DON!! deck to the active pool.
func gainDon(t *testing.T, m *Match, playerID string, n int) {
	t.Helper()
	p := m.state.player(playerID)
	if p.Don.Gain(n) != n {
		t.Fatalf("cannot gain %d DON for %s", n, playerID)
	}
}

// passTurn ends the current player's turn, delivering the match into the
// opponent's MAIN phase.
func passTurn(t *testing.T, m *Match) {
	t.Helper()
	active := m.state.Turn.ActivePlayer()
	mustExecute(t, m, Command{Type: CmdEndMainPhase, PlayerID: active})
	mustExecute(t, m, Command{Type: CmdEndTurn, PlayerID: active})
}
