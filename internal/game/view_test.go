package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRedactsHiddenZones(t *testing.T) {
	m := newTestMatch(t)

	snap := m.Snapshot("alice")
	assert.Equal(t, "alice", snap.You.ID)
	assert.Equal(t, "bob", snap.Opponent.ID)

	assert.Len(t, snap.You.Hand, InitialHand, "own hand visible")
	assert.Empty(t, snap.Opponent.Hand, "opponent hand hidden")
	assert.Equal(t, InitialHand, snap.Opponent.HandCount)

	// Life contents are face down for everyone, including the owner.
	assert.Equal(t, 4, snap.You.LifeCount)
	assert.Equal(t, 4, snap.Opponent.LifeCount)

	assert.Equal(t, DeckSize-4-InitialHand, snap.You.DeckCount)
	require.NotNil(t, snap.You.Leader)
	assert.Equal(t, tLeader, snap.You.Leader.CardNumber)
}

func TestSnapshotShowsPublicBattleState(t *testing.T) {
	m := newTestMatch(t)
	passTurn(t, m)
	passTurn(t, m)
	attacker := putCharacter(t, m, "alice", tVanilla)
	counter := giveCard(t, m, "bob", tVanilla)

	mustExecute(t, m, Command{
		Type: CmdDeclareAttack, PlayerID: "alice",
		CardID: attacker.Instance.ID, TargetID: m.state.player("bob").Leader.Instance.ID,
	})
	mustExecute(t, m, Command{Type: CmdSkipBlocker, PlayerID: "bob"})
	mustExecute(t, m, Command{Type: CmdStageCounter, PlayerID: "bob", CardID: counter.ID})

	snap := m.Snapshot("alice")
	require.NotNil(t, snap.Battle)
	assert.Equal(t, "COUNTER", snap.Battle.Step)
	assert.True(t, snap.Battle.TargetIsLeader)
	require.Len(t, snap.Battle.StagedCounters, 1, "staged counters are public")
	assert.Equal(t, tVanilla, snap.Battle.StagedCounters[0].CardNumber)
}

func TestSnapshotDisclosesPendingChoicesOnlyToOwner(t *testing.T) {
	m := newTestMatch(t)
	putCharacter(t, m, "bob", tVanilla)
	sniper := giveCard(t, m, "alice", tRemovalChar)
	gainDon(t, m, "alice", 4)
	mustExecute(t, m, Command{Type: CmdPlayCharacter, PlayerID: "alice", CardID: sniper.ID})
	require.NotNil(t, m.state.Pending)

	mine := m.Snapshot("alice")
	require.NotNil(t, mine.Pending)
	assert.NotEmpty(t, mine.Pending.LegalIDs)

	theirs := m.Snapshot("bob")
	require.NotNil(t, theirs.Pending, "the suspension itself is public")
	assert.Empty(t, theirs.Pending.LegalIDs, "legal set hidden from the opponent")
}

func TestSnapshotPowerReflectsModifiers(t *testing.T) {
	m := newTestMatch(t)
	slot := putCharacter(t, m, "alice", tVanilla)
	gainDon(t, m, "alice", 1)
	mustExecute(t, m, Command{
		Type: CmdAttachDon, PlayerID: "alice",
		TargetID: slot.Instance.ID, Count: 1,
	})

	snap := m.Snapshot("alice")
	require.Len(t, snap.You.Characters, 1)
	assert.Equal(t, 3000+PowerPerDon, snap.You.Characters[0].Power)
	assert.Equal(t, 1, snap.You.Characters[0].AttachedDon)
}
