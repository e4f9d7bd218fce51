package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newBattleMatch returns a test match advanced to alice's second turn, so
// her attacks are legal.
func newBattleMatch(t *testing.T) *Match {
	t.Helper()
	m := newTestMatch(t)
	passTurn(t, m) // bob's turn
	passTurn(t, m) // alice again
	return m
}

func attackLeader(t *testing.T, m *Match, attackerID string) {
	t.Helper()
	bob := m.state.player("bob")
	mustExecute(t, m, Command{
		Type: CmdDeclareAttack, PlayerID: "alice",
		CardID: attackerID, TargetID: bob.Leader.Instance.ID,
	})
}

func TestAttackIllegalOnFirstTurn(t *testing.T) {
	m := newTestMatch(t)
	alice := m.state.player("alice")
	bob := m.state.player("bob")

	res := m.Execute(Command{
		Type: CmdDeclareAttack, PlayerID: "alice",
		CardID: alice.Leader.Instance.ID, TargetID: bob.Leader.Instance.ID,
	})
	require.False(t, res.Success)
	assert.Equal(t, ErrIllegalCommand, res.Reason)
}

func TestAttackRejectsRestedAttacker(t *testing.T) {
	m := newBattleMatch(t)
	slot := putCharacter(t, m, "alice", tVanilla)
	slot.Rested = true

	res := m.Execute(Command{
		Type: CmdDeclareAttack, PlayerID: "alice",
		CardID: slot.Instance.ID, TargetID: m.state.player("bob").Leader.Instance.ID,
	})
	require.False(t, res.Success)
	assert.Equal(t, ErrIllegalCommand, res.Reason)
}

func TestAttackRejectsActiveCharacterTarget(t *testing.T) {
	m := newBattleMatch(t)
	target := putCharacter(t, m, "bob", tVanilla) // active, not rested

	res := m.Execute(Command{
		Type: CmdDeclareAttack, PlayerID: "alice",
		CardID: m.state.player("alice").Leader.Instance.ID, TargetID: target.Instance.ID,
	})
	require.False(t, res.Success)
	assert.Equal(t, ErrInvalidTarget, res.Reason)
}

func TestSummoningSicknessAndRush(t *testing.T) {
	m := newBattleMatch(t)
	bobLeader := m.state.player("bob").Leader.Instance.ID

	fresh := putCharacter(t, m, "alice", tVanilla)
	fresh.PlayedTurn = m.state.Turn.TurnNumber()
	res := m.Execute(Command{
		Type: CmdDeclareAttack, PlayerID: "alice",
		CardID: fresh.Instance.ID, TargetID: bobLeader,
	})
	require.False(t, res.Success, "character played this turn cannot attack")

	rush := putCharacter(t, m, "alice", tRush)
	rush.PlayedTurn = m.state.Turn.TurnNumber()
	mustExecute(t, m, Command{
		Type: CmdDeclareAttack, PlayerID: "alice",
		CardID: rush.Instance.ID, TargetID: bobLeader,
	})
}

func TestLeaderAttackDealsLifeDamage(t *testing.T) {
	m := newBattleMatch(t)
	alice := m.state.player("alice")
	bob := m.state.player("bob")
	handBefore := len(bob.Hand)

	attackLeader(t, m, alice.Leader.Instance.ID) // 5000 vs 5000: hits
	mustExecute(t, m, Command{Type: CmdSkipBlocker, PlayerID: "bob"})
	mustExecute(t, m, Command{Type: CmdSkipCounter, PlayerID: "bob"})

	assert.Equal(t, 3, len(bob.Life), "one life dealt")
	assert.Equal(t, handBefore+1, len(bob.Hand), "life card taken to hand")
	assert.Nil(t, m.state.Battle, "battle context discarded")
	assert.True(t, alice.Leader.Rested, "attacker rested by declaration")
}

func TestWeakerAttackHasNoEffect(t *testing.T) {
	m := newBattleMatch(t)
	slot := putCharacter(t, m, "alice", tVanilla) // 3000 vs leader 5000

	attackLeader(t, m, slot.Instance.ID)
	mustExecute(t, m, Command{Type: CmdSkipBlocker, PlayerID: "bob"})
	mustExecute(t, m, Command{Type: CmdSkipCounter, PlayerID: "bob"})

	assert.Equal(t, 4, len(m.state.player("bob").Life), "no damage dealt")
	assert.Nil(t, m.state.Battle)
}

func TestDoubleAttackDealsTwoLife(t *testing.T) {
	m := newBattleMatch(t)
	slot := putCharacter(t, m, "alice", tDoubleAttack) // 5000, DOUBLE_ATTACK

	attackLeader(t, m, slot.Instance.ID)
	mustExecute(t, m, Command{Type: CmdSkipBlocker, PlayerID: "bob"})
	mustExecute(t, m, Command{Type: CmdSkipCounter, PlayerID: "bob"})

	assert.Equal(t, 2, len(m.state.player("bob").Life))
}

func TestOnAttackPumpLastsForTheBattle(t *testing.T) {
	m := newBattleMatch(t)
	slot := putCharacter(t, m, "alice", tPumpOnAttack) // 3000, +2000 on attack
	bob := m.state.player("bob")

	attackLeader(t, m, slot.Instance.ID)
	assert.Equal(t, 5000, slot.CurrentPower(), "pump applied at declaration")

	mustExecute(t, m, Command{Type: CmdSkipBlocker, PlayerID: "bob"})
	mustExecute(t, m, Command{Type: CmdSkipCounter, PlayerID: "bob"})

	assert.Equal(t, 3, len(bob.Life), "5000 vs 5000 hits")
	assert.Equal(t, 3000, slot.CurrentPower(), "battle modifier expired")
}

func TestBlockerRedirectsAndDies(t *testing.T) {
	m := newBattleMatch(t)
	attacker := putCharacter(t, m, "alice", tVanilla) // 3000
	blocker := putCharacter(t, m, "bob", tBlocker)    // 2000, BLOCKER
	bob := m.state.player("bob")

	attackLeader(t, m, attacker.Instance.ID)
	mustExecute(t, m, Command{
		Type: CmdDeclareBlocker, PlayerID: "bob", CardID: blocker.Instance.ID,
	})
	assert.False(t, blocker.Rested, "blocking does not rest the blocker")

	mustExecute(t, m, Command{Type: CmdSkipCounter, PlayerID: "bob"})

	assert.Equal(t, 4, len(bob.Life), "leader untouched")
	assert.Empty(t, bob.Characters, "blocker KO'd")
	assert.Equal(t, tBlocker, bob.Trash[len(bob.Trash)-1].CardNumber)
}

func TestBlockerRequiresKeyword(t *testing.T) {
	m := newBattleMatch(t)
	attacker := putCharacter(t, m, "alice", tVanilla)
	nonBlocker := putCharacter(t, m, "bob", tVanilla)

	attackLeader(t, m, attacker.Instance.ID)
	res := m.Execute(Command{
		Type: CmdDeclareBlocker, PlayerID: "bob", CardID: nonBlocker.Instance.ID,
	})
	require.False(t, res.Success)
	assert.Equal(t, ErrInvalidTarget, res.Reason)
}

func TestCharacterKOReleasesDonToRested(t *testing.T) {
	m := newBattleMatch(t)
	target := putCharacter(t, m, "bob", tVanilla)
	target.Rested = true
	bob := m.state.player("bob")
	bob.Don.Gain(1)
	bob.Don.Attach(1)
	target.AttachedDon = 1

	mustExecute(t, m, Command{
		Type: CmdDeclareAttack, PlayerID: "alice",
		CardID: m.state.player("alice").Leader.Instance.ID, TargetID: target.Instance.ID,
	})
	mustExecute(t, m, Command{Type: CmdSkipBlocker, PlayerID: "bob"})
	mustExecute(t, m, Command{Type: CmdSkipCounter, PlayerID: "bob"})

	assert.Empty(t, bob.Characters)
	assert.Equal(t, 0, bob.Don.Attached)
	assert.Equal(t, 1, bob.Don.Rested, "attached DON released rested")
	assert.Equal(t, tVanilla, bob.Trash[len(bob.Trash)-1].CardNumber)
	assert.Equal(t, DeckSize+1, bob.LiveInstances())
}

func TestBanishSendsKOToBanishedZone(t *testing.T) {
	m := newBattleMatch(t)
	attacker := putCharacter(t, m, "alice", tBanish) // 4000, BANISH
	target := putCharacter(t, m, "bob", tVanilla)
	target.Rested = true
	bob := m.state.player("bob")
	trashBefore := len(bob.Trash)

	mustExecute(t, m, Command{
		Type: CmdDeclareAttack, PlayerID: "alice",
		CardID: attacker.Instance.ID, TargetID: target.Instance.ID,
	})
	mustExecute(t, m, Command{Type: CmdSkipBlocker, PlayerID: "bob"})
	mustExecute(t, m, Command{Type: CmdSkipCounter, PlayerID: "bob"})

	assert.Empty(t, bob.Characters)
	assert.Equal(t, trashBefore, len(bob.Trash), "banished card not in trash")
	require.Len(t, bob.Banished, 1)
	assert.Equal(t, tVanilla, bob.Banished[0].CardNumber)
	assert.Equal(t, DeckSize+1, bob.LiveInstances())
}

func TestCounterValueTurnsTheBattle(t *testing.T) {
	m := newBattleMatch(t)
	counterCard := giveCard(t, m, "bob", tVanilla) // 1000 counter
	bob := m.state.player("bob")

	attackLeader(t, m, m.state.player("alice").Leader.Instance.ID) // 5000 vs 5000
	mustExecute(t, m, Command{Type: CmdSkipBlocker, PlayerID: "bob"})
	mustExecute(t, m, Command{
		Type: CmdStageCounter, PlayerID: "bob", CardID: counterCard.ID,
	})
	assert.Equal(t, 6000, bob.Leader.CurrentPower(), "counter bonus applied at staging")

	mustExecute(t, m, Command{Type: CmdConfirmCounter, PlayerID: "bob"})

	assert.Equal(t, 4, len(bob.Life), "5000 vs 6000 misses")
	assert.Equal(t, tVanilla, bob.Trash[len(bob.Trash)-1].CardNumber, "counter card trashed on confirm")
	assert.Equal(t, 5000, bob.Leader.CurrentPower(), "battle modifier expired")
}

// counterFingerprint captures everything a staged counter may touch.
type counterFingerprint struct {
	targetPower int
	handIDs     []string
	donActive   int
	donRested   int
	trashLen    int
}

func fingerprint(m *Match, playerID string) counterFingerprint {
	p := m.state.player(playerID)
	fp := counterFingerprint{
		targetPower: m.state.Battle.TargetSlot.CurrentPower(),
		donActive:   p.Don.Active,
		donRested:   p.Don.Rested,
		trashLen:    len(p.Trash),
	}
	for _, c := range p.Hand {
		fp.handIDs = append(fp.handIDs, c.ID)
	}
	return fp
}

func TestUnstageReversesCounterExactly(t *testing.T) {
	m := newBattleMatch(t)
	eventCard := giveCard(t, m, "bob", tCounterEvent) // pay 1: +3000
	gainDon(t, m, "bob", 2)
	bob := m.state.player("bob")

	attackLeader(t, m, m.state.player("alice").Leader.Instance.ID)
	mustExecute(t, m, Command{Type: CmdSkipBlocker, PlayerID: "bob"})

	before := fingerprint(m, "bob")
	mustExecute(t, m, Command{Type: CmdStageCounter, PlayerID: "bob", CardID: eventCard.ID})

	staged := fingerprint(m, "bob")
	assert.Equal(t, before.targetPower+3000, staged.targetPower)
	assert.Equal(t, before.donActive-1, staged.donActive, "counter cost paid at staging")

	mustExecute(t, m, Command{Type: CmdUnstageCounter, PlayerID: "bob", CardID: eventCard.ID})
	assert.Equal(t, before, fingerprint(m, "bob"), "unstage is an exact reversal")
	require.NoError(t, bob.Don.Check())
}

func TestUnstageOnlyTopOfStack(t *testing.T) {
	m := newBattleMatch(t)
	first := giveCard(t, m, "bob", tVanilla)
	second := giveCard(t, m, "bob", tVanilla)

	attackLeader(t, m, m.state.player("alice").Leader.Instance.ID)
	mustExecute(t, m, Command{Type: CmdSkipBlocker, PlayerID: "bob"})
	mustExecute(t, m, Command{Type: CmdStageCounter, PlayerID: "bob", CardID: first.ID})
	mustExecute(t, m, Command{Type: CmdStageCounter, PlayerID: "bob", CardID: second.ID})

	res := m.Execute(Command{Type: CmdUnstageCounter, PlayerID: "bob", CardID: first.ID})
	require.False(t, res.Success)
	assert.Equal(t, ErrIllegalCommand, res.Reason)

	mustExecute(t, m, Command{Type: CmdUnstageCounter, PlayerID: "bob", CardID: second.ID})
	mustExecute(t, m, Command{Type: CmdUnstageCounter, PlayerID: "bob", CardID: first.ID})
}

func TestSkipCounterRejectedWithStagedEntries(t *testing.T) {
	m := newBattleMatch(t)
	card := giveCard(t, m, "bob", tVanilla)

	attackLeader(t, m, m.state.player("alice").Leader.Instance.ID)
	mustExecute(t, m, Command{Type: CmdSkipBlocker, PlayerID: "bob"})
	mustExecute(t, m, Command{Type: CmdStageCounter, PlayerID: "bob", CardID: card.ID})

	res := m.Execute(Command{Type: CmdSkipCounter, PlayerID: "bob"})
	require.False(t, res.Success)
	assert.Equal(t, ErrIllegalCommand, res.Reason)
}

func TestLifeTriggerTakeAndActivate(t *testing.T) {
	m := newBattleMatch(t)
	putLifeCard(t, m, "bob", tLifeDraw)
	bob := m.state.player("bob")
	handBefore := len(bob.Hand)

	attackLeader(t, m, m.state.player("alice").Leader.Instance.ID)
	mustExecute(t, m, Command{Type: CmdSkipBlocker, PlayerID: "bob"})
	mustExecute(t, m, Command{Type: CmdSkipCounter, PlayerID: "bob"})

	pending := m.state.Pending
	require.NotNil(t, pending)
	assert.Equal(t, PendingLifeTrigger, pending.Kind)
	assert.Equal(t, "bob", pending.PlayerID)

	// A stray command is rejected while the trigger is pending.
	res := m.Execute(Command{Type: CmdEndMainPhase, PlayerID: "alice"})
	require.False(t, res.Success)

	mustExecute(t, m, Command{
		Type: CmdResolveSelection, PlayerID: "bob",
		SelectionID: pending.ID, Chosen: []string{ChoiceTake},
	})
	assert.Equal(t, handBefore+1, len(bob.Hand), "life card taken to hand")
	assert.Equal(t, 3, len(bob.Life))
	assert.Nil(t, m.state.Battle, "battle completed after resolution")
}

func TestLifeTriggerActivateRunsScriptAndTrashes(t *testing.T) {
	m := newBattleMatch(t)
	lifeCard := putLifeCard(t, m, "bob", tLifeDraw)
	bob := m.state.player("bob")
	handBefore := len(bob.Hand)

	attackLeader(t, m, m.state.player("alice").Leader.Instance.ID)
	mustExecute(t, m, Command{Type: CmdSkipBlocker, PlayerID: "bob"})
	mustExecute(t, m, Command{Type: CmdSkipCounter, PlayerID: "bob"})

	pending := m.state.Pending
	require.NotNil(t, pending)
	mustExecute(t, m, Command{
		Type: CmdResolveSelection, PlayerID: "bob",
		SelectionID: pending.ID, Chosen: []string{ChoiceActivate},
	})

	assert.Equal(t, lifeCard.ID, bob.Trash[len(bob.Trash)-1].ID, "activated life card trashed")
	assert.Equal(t, handBefore+1, len(bob.Hand), "life script drew a card")
	assert.Equal(t, 3, len(bob.Life))
}

func TestLethalDamageEndsTheMatch(t *testing.T) {
	m := newBattleMatch(t)
	bob := m.state.player("bob")
	bob.Life = bob.Life[:1]
	// Keep the identity count honest for the invariant check.
	bob.Deck = append(bob.Deck, newInstance(bob.Leader.Instance.Def), newInstance(bob.Leader.Instance.Def), newInstance(bob.Leader.Instance.Def))

	attackLeader(t, m, m.state.player("alice").Leader.Instance.ID)
	mustExecute(t, m, Command{Type: CmdSkipBlocker, PlayerID: "bob"})
	mustExecute(t, m, Command{Type: CmdSkipCounter, PlayerID: "bob"})

	done, winner := m.Finished()
	assert.True(t, done)
	assert.Equal(t, "alice", winner)
}

func TestResolveTimeoutAdvancesBattle(t *testing.T) {
	m := newBattleMatch(t)
	attackLeader(t, m, m.state.player("alice").Leader.Instance.ID)

	res := m.ResolveTimeout() // block step: skip
	require.True(t, res.Success)
	res = m.ResolveTimeout() // counter step: confirm
	require.True(t, res.Success)

	assert.Nil(t, m.state.Battle)
	assert.Equal(t, 3, len(m.state.player("bob").Life))
}

func TestActivateRunsEveryLifeScript(t *testing.T) {
	m := newBattleMatch(t)
	target := putCharacter(t, m, "alice", tVanilla)
	putLifeCard(t, m, "bob", tLifeCombo)
	bob := m.state.player("bob")
	handBefore := len(bob.Hand)

	attackLeader(t, m, m.state.player("alice").Leader.Instance.ID)
	mustExecute(t, m, Command{Type: CmdSkipBlocker, PlayerID: "bob"})
	mustExecute(t, m, Command{Type: CmdSkipCounter, PlayerID: "bob"})

	pending := m.state.Pending
	require.NotNil(t, pending)
	require.Equal(t, PendingLifeTrigger, pending.Kind)
	mustExecute(t, m, Command{
		Type: CmdResolveSelection, PlayerID: "bob",
		SelectionID: pending.ID, Chosen: []string{ChoiceActivate},
	})

	// Both life scripts resolve: bob orders them, one asks for a target.
	for m.state.Pending != nil {
		p := m.state.Pending
		switch p.Kind {
		case PendingTriggerOrder:
			mustExecute(t, m, Command{
				Type: CmdResolveSelection, PlayerID: "bob",
				SelectionID: p.ID, Chosen: []string{p.LegalIDs[0]},
			})
		case PendingSelectTargets:
			mustExecute(t, m, Command{
				Type: CmdResolveSelection, PlayerID: "bob",
				SelectionID: p.ID, Chosen: []string{target.Instance.ID},
			})
		default:
			t.Fatalf("unexpected pending selection %s", p.Kind)
		}
	}

	assert.Equal(t, 2000, target.CurrentPower(), "first life script weakened the character")
	assert.Equal(t, handBefore+1, len(bob.Hand), "second life script drew a card")
	assert.Equal(t, 3, len(bob.Life))
	assert.Nil(t, m.state.Battle, "battle completed after both scripts")
}

func TestBattleCleanupOutsidePhaseAborts(t *testing.T) {
	m := newBattleMatch(t)
	attackLeader(t, m, m.state.player("alice").Leader.Instance.ID)
	// Knock the phase machine out of the battle behind the match's back.
	require.NoError(t, m.state.Turn.EndBattle())

	mustExecute(t, m, Command{Type: CmdSkipBlocker, PlayerID: "bob"})
	res := m.Execute(Command{Type: CmdSkipCounter, PlayerID: "bob"})

	require.False(t, res.Success)
	assert.Equal(t, ErrStateCorruption, res.Reason)
	assert.True(t, m.state.Corrupted)
}
