package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optcgsim/match-server-go/internal/game/rules"
)

func TestNewMatchDealsOpeningState(t *testing.T) {
	m := newTestMatch(t)

	for _, id := range []string{"alice", "bob"} {
		p := m.state.player(id)
		assert.Equal(t, 4, len(p.Life), "life cards for %s", id)
		assert.Equal(t, InitialHand, len(p.Hand), "hand for %s", id)
		assert.Equal(t, DeckSize-4-InitialHand, len(p.Deck), "deck for %s", id)
		assert.Equal(t, DeckSize+1, p.LiveInstances(), "card identities for %s", id)
	}
}

func TestFirstTurnGainsOneDonAndSkipsDraw(t *testing.T) {
	m := newTestMatch(t)

	alice := m.state.player("alice")
	assert.Equal(t, 1, alice.Don.Active, "first turn DON gain")
	assert.Equal(t, InitialHand, len(alice.Hand), "no draw on the game's first turn")

	passTurn(t, m)
	bob := m.state.player("bob")
	assert.Equal(t, 2, bob.Don.Active, "second turn DON gain")
	assert.Equal(t, InitialHand+1, len(bob.Hand), "second player draws on their first turn")
}

func TestCommandsRejectedOutOfTurn(t *testing.T) {
	m := newTestMatch(t)

	res := m.Execute(Command{Type: CmdEndMainPhase, PlayerID: "bob"})
	require.False(t, res.Success)
	assert.Equal(t, ErrIllegalCommand, res.Reason)
}

func TestPlayCharacterPaysCostAndFiresOnPlay(t *testing.T) {
	m := newTestMatch(t)
	card := giveCard(t, m, "alice", tDrawOnPlay)
	gainDon(t, m, "alice", 3)

	alice := m.state.player("alice")
	handBefore := len(alice.Hand)
	activeBefore := alice.Don.Active

	mustExecute(t, m, Command{Type: CmdPlayCharacter, PlayerID: "alice", CardID: card.ID})

	require.Len(t, alice.Characters, 1)
	assert.Equal(t, tDrawOnPlay, alice.Characters[0].Instance.CardNumber)
	assert.Equal(t, activeBefore-2, alice.Don.Active, "cost rested")
	// One card left the hand, one was drawn by the on-play script.
	assert.Equal(t, handBefore, len(alice.Hand))
}

func TestPlayCharacterFullBoardRequiresTrash(t *testing.T) {
	m := newTestMatch(t)
	for i := 0; i < MaxCharacters; i++ {
		putCharacter(t, m, "alice", tVanilla)
	}
	card := giveCard(t, m, "alice", tVanilla)
	gainDon(t, m, "alice", 4)

	res := m.Execute(Command{Type: CmdPlayCharacter, PlayerID: "alice", CardID: card.ID})
	require.False(t, res.Success)
	assert.Equal(t, ErrIllegalCommand, res.Reason)

	alice := m.state.player("alice")
	evict := alice.Characters[0]
	trashBefore := len(alice.Trash)
	mustExecute(t, m, Command{
		Type: CmdPlayCharacter, PlayerID: "alice",
		CardID: card.ID, TrashID: evict.Instance.ID,
	})

	assert.Len(t, alice.Characters, MaxCharacters)
	assert.Equal(t, trashBefore+1, len(alice.Trash), "evicted character trashed")
	assert.Equal(t, DeckSize+1, alice.LiveInstances())
}

func TestPlayEventTrashesThenResolves(t *testing.T) {
	m := newTestMatch(t)
	card := giveCard(t, m, "alice", tDrawEvent)
	gainDon(t, m, "alice", 1)

	alice := m.state.player("alice")
	handBefore := len(alice.Hand)

	mustExecute(t, m, Command{Type: CmdPlayEvent, PlayerID: "alice", CardID: card.ID})

	assert.Equal(t, tDrawEvent, alice.Trash[len(alice.Trash)-1].CardNumber)
	// Event left the hand, two cards came in.
	assert.Equal(t, handBefore+1, len(alice.Hand))
}

func TestPlayStageRejectsOccupiedSlot(t *testing.T) {
	m := newTestMatch(t)
	first := giveCard(t, m, "alice", tStage)
	second := giveCard(t, m, "alice", tStage)
	gainDon(t, m, "alice", 2)

	mustExecute(t, m, Command{Type: CmdPlayStage, PlayerID: "alice", CardID: first.ID})
	res := m.Execute(Command{Type: CmdPlayStage, PlayerID: "alice", CardID: second.ID})
	require.False(t, res.Success)
	assert.Equal(t, ErrIllegalCommand, res.Reason)
}

func TestAttachAndDetachDon(t *testing.T) {
	m := newTestMatch(t)
	slot := putCharacter(t, m, "alice", tVanilla)
	gainDon(t, m, "alice", 2)
	base := slot.CurrentPower()

	mustExecute(t, m, Command{
		Type: CmdAttachDon, PlayerID: "alice",
		TargetID: slot.Instance.ID, Count: 2,
	})
	assert.Equal(t, base+2*PowerPerDon, slot.CurrentPower())

	mustExecute(t, m, Command{
		Type: CmdDetachDon, PlayerID: "alice",
		TargetID: slot.Instance.ID, Count: 1,
	})
	assert.Equal(t, base+PowerPerDon, slot.CurrentPower())
	assert.Equal(t, 2, m.state.player("alice").Don.Active)
}

func TestActivatedAbilityPaysAndPumps(t *testing.T) {
	m := newTestMatch(t)
	slot := putCharacter(t, m, "alice", tActivated)
	gainDon(t, m, "alice", 1)
	base := slot.CurrentPower()

	mustExecute(t, m, Command{Type: CmdActivateAbility, PlayerID: "alice", CardID: slot.Instance.ID})
	assert.Equal(t, base+1000, slot.CurrentPower())
	assert.Equal(t, 1, m.state.player("alice").Don.Active, "first-turn DON untouched, ability DON rested")

	// The pump expires with the turn.
	passTurn(t, m)
	assert.Equal(t, base, slot.CurrentPower())
}

func TestActivatedAbilityRejectedWithoutDon(t *testing.T) {
	m := newTestMatch(t)
	slot := putCharacter(t, m, "alice", tActivated)
	m.state.player("alice").Don.Pay(1) // spend the turn's DON

	res := m.Execute(Command{Type: CmdActivateAbility, PlayerID: "alice", CardID: slot.Instance.ID})
	require.False(t, res.Success)
	assert.Equal(t, ErrInsufficientDon, res.Reason)
}

func TestRefreshReturnsAttachedDonAndUntaps(t *testing.T) {
	m := newTestMatch(t)
	slot := putCharacter(t, m, "alice", tVanilla)
	gainDon(t, m, "alice", 2)
	mustExecute(t, m, Command{
		Type: CmdAttachDon, PlayerID: "alice",
		TargetID: slot.Instance.ID, Count: 2,
	})
	slot.Rested = true

	passTurn(t, m) // bob's turn
	passTurn(t, m) // back to alice; her refresh ran

	alice := m.state.player("alice")
	assert.Equal(t, 0, slot.AttachedDon, "attached DON returned on refresh")
	assert.False(t, slot.Rested, "slot untapped on refresh")
	assert.Equal(t, 0, alice.Don.Attached)
	require.NoError(t, alice.Don.Check())
}

func TestMatchResultEventsArePerCommand(t *testing.T) {
	m := newTestMatch(t)
	res := mustExecute(t, m, Command{Type: CmdEndMainPhase, PlayerID: "alice"})
	require.NotEmpty(t, res.Events)

	res2 := mustExecute(t, m, Command{Type: CmdEndTurn, PlayerID: "alice"})
	require.NotEmpty(t, res2.Events)
	assert.Equal(t, rules.EventTurnEnded, res2.Events[0].Type, "event lists start fresh per command")
}

func TestFinishedMatchRejectsCommands(t *testing.T) {
	m := newTestMatch(t)
	m.finish("alice", "test")

	res := m.Execute(Command{Type: CmdEndMainPhase, PlayerID: "alice"})
	require.False(t, res.Success)
	assert.Equal(t, ErrIllegalCommand, res.Reason)

	done, winner := m.Finished()
	assert.True(t, done)
	assert.Equal(t, "alice", winner)
}

func TestEngineRegistry(t *testing.T) {
	e := NewEngine(newTestCatalog(t), nil)
	deck := make([]string, DeckSize)
	for i := range deck {
		deck[i] = tVanilla
	}
	m, err := e.CreateMatch(MatchConfig{
		ID: "m1",
		Players: [2]PlayerConfig{
			{ID: "p1", Leader: tLeader, Deck: deck},
			{ID: "p2", Leader: tLeader, Deck: deck},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 1, e.MatchCount())

	got, ok := e.GetMatch("m1")
	require.True(t, ok)
	assert.Same(t, m, got)

	e.RemoveMatch("m1")
	assert.Equal(t, 0, e.MatchCount())
}

func TestNewMatchRejectsBadDecks(t *testing.T) {
	cat := newTestCatalog(t)
	deck := make([]string, DeckSize)
	for i := range deck {
		deck[i] = tVanilla
	}

	_, err := NewMatch(MatchConfig{
		Players: [2]PlayerConfig{
			{ID: "p1", Leader: tVanilla, Deck: deck}, // not a leader
			{ID: "p2", Leader: tLeader, Deck: deck},
		},
	}, cat, nil)
	require.Error(t, err)

	short := deck[:DeckSize-1]
	_, err = NewMatch(MatchConfig{
		Players: [2]PlayerConfig{
			{ID: "p1", Leader: tLeader, Deck: short},
			{ID: "p2", Leader: tLeader, Deck: deck},
		},
	}, cat, nil)
	require.Error(t, err)
}

func TestDrawingLastDeckCardEndsTheMatch(t *testing.T) {
	m := newTestMatch(t)
	alice := m.state.player("alice")
	// Thin alice's deck to one card without losing any identities.
	alice.Trash = append(alice.Trash, alice.Deck[:len(alice.Deck)-1]...)
	alice.Deck = alice.Deck[len(alice.Deck)-1:]

	passTurn(t, m) // bob's turn
	passTurn(t, m) // alice's draw takes her last card

	done, winner := m.Finished()
	require.True(t, done, "deck-out on the phase draw ends the match")
	assert.Equal(t, "bob", winner)
	assert.Empty(t, alice.Deck)

	res := m.Execute(Command{Type: CmdEndMainPhase, PlayerID: "alice"})
	assert.False(t, res.Success)
}

func TestCreateMatchRejectsDuplicateID(t *testing.T) {
	e := NewEngine(newTestCatalog(t), nil)
	deck := make([]string, DeckSize)
	for i := range deck {
		deck[i] = tVanilla
	}
	cfg := MatchConfig{
		ID: "m1",
		Players: [2]PlayerConfig{
			{ID: "p1", Leader: tLeader, Deck: deck},
			{ID: "p2", Leader: tLeader, Deck: deck},
		},
	}
	first, err := e.CreateMatch(cfg)
	require.NoError(t, err)

	_, err = e.CreateMatch(cfg)
	require.Error(t, err, "a live match keeps its ID")
	require.Equal(t, 1, e.MatchCount())

	got, ok := e.GetMatch("m1")
	require.True(t, ok)
	assert.Same(t, first, got)
}
